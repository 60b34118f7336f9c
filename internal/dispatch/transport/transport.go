// Package transport performs one HTTP exchange against one candidate
// address over a leased network path.
package transport

import (
	"context"
	"fmt"
	"net/netip"

	"github.com/openmms/mmsd/internal/dispatch/netlease"
)

// Exchange describes one transport attempt.
type Exchange struct {
	// URL is the full destination URL (MMSC for sends, content location for
	// downloads).
	URL string

	// Method is the HTTP method, GET or POST.
	Method string

	// Body is the request payload, nil for downloads.
	Body []byte

	// Candidate is the resolved address every connection for this exchange
	// is pinned to. When a proxy is configured the candidate is the proxy's
	// address, otherwise the destination host's.
	Candidate netip.Addr

	// Proxy settings from the APN.
	UseProxy  bool
	ProxyHost string
	ProxyPort int

	// Network is the leased data path connections are bound to.
	Network netlease.Network
}

// Client performs one bound exchange.
type Client interface {
	Do(ctx context.Context, ex Exchange) ([]byte, error)
}

// Error is an address-specific transport failure. The dispatcher should
// fall back to the next candidate address rather than abort the attempt.
type Error struct {
	Addr  netip.Addr
	Cause error
}

func (e *Error) Error() string {
	return fmt.Sprintf("transport via %s: %v", e.Addr, e.Cause)
}

func (e *Error) Unwrap() error { return e.Cause }
