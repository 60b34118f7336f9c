// Package netlease manages the shared claim on the dedicated MMS data path.
//
// Bringing the path up is expensive and carrier-policed, so concurrent
// requests share one established network under a reference count. Every
// Acquire must be paired with exactly one Release; the path is torn down
// only after the last holder releases (optionally after a short linger, so
// back-to-back requests reuse the connection).
package netlease

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/netip"
	"sync"
	"time"

	"github.com/openmms/mmsd/internal/dispatch/metrics"
)

// Network is a handle to an established data path. Lookups and dials made
// through the handle are bound to that path.
type Network interface {
	// Addrs returns the addresses assigned to the link.
	Addrs() []netip.Addr

	// LookupHost resolves host using the path's own resolver.
	LookupHost(ctx context.Context, host string) ([]netip.Addr, error)

	// DialContext opens a connection over the path.
	DialContext(ctx context.Context, network, addr string) (net.Conn, error)
}

// Connector brings the data path up and down. Connect may block until the
// carrier grants the path or its own policy gives up.
type Connector interface {
	Connect(ctx context.Context) (Network, error)
	Disconnect(n Network)
}

// AcquireError reports that no eligible network path became available.
type AcquireError struct {
	Cause error
}

func (e *AcquireError) Error() string {
	return fmt.Sprintf("acquire network: %v", e.Cause)
}

func (e *AcquireError) Unwrap() error { return e.Cause }

// Manager is a reference-counted lease over one network path.
type Manager struct {
	connector      Connector
	acquireTimeout time.Duration
	linger         time.Duration

	mu          sync.Mutex
	refs        int
	network     Network
	lingerTimer *time.Timer
}

// Option configures a Manager.
type Option func(*Manager)

// WithAcquireTimeout bounds how long Acquire waits for the connector.
// Non-positive values keep the default.
func WithAcquireTimeout(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.acquireTimeout = d
		}
	}
}

// WithLinger keeps the path up for d after the last release.
func WithLinger(d time.Duration) Option {
	return func(m *Manager) { m.linger = d }
}

// NewManager creates a lease manager over the given connector.
func NewManager(connector Connector, opts ...Option) *Manager {
	m := &Manager{
		connector:      connector,
		acquireTimeout: 30 * time.Second,
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

// Acquire claims the network path, bringing it up if no one holds it yet.
// Every successful Acquire must be matched by exactly one Release.
func (m *Manager) Acquire(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.network != nil {
		if m.lingerTimer != nil {
			m.lingerTimer.Stop()
			m.lingerTimer = nil
		}
		m.refs++
		metrics.NetworkLeaseRefs.Set(float64(m.refs))
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, m.acquireTimeout)
	defer cancel()

	n, err := m.connector.Connect(ctx)
	if err != nil {
		return &AcquireError{Cause: err}
	}

	m.network = n
	m.refs = 1
	metrics.NetworkLeaseRefs.Set(float64(m.refs))
	return nil
}

// Release gives up one claim. When the last claim goes away the path is
// torn down, after the configured linger.
func (m *Manager) Release() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.refs == 0 {
		slog.Error("network lease released without a matching acquire")
		return
	}

	m.refs--
	metrics.NetworkLeaseRefs.Set(float64(m.refs))
	if m.refs > 0 {
		return
	}

	if m.linger <= 0 {
		m.teardownLocked()
		return
	}
	m.lingerTimer = time.AfterFunc(m.linger, func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		if m.refs == 0 && m.network != nil {
			m.teardownLocked()
		}
	})
}

func (m *Manager) teardownLocked() {
	n := m.network
	m.network = nil
	m.lingerTimer = nil
	m.connector.Disconnect(n)
}

// Network returns the currently held path handle, or nil when the path is
// not up.
func (m *Manager) Network() Network {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.network
}
