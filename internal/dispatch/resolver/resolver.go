// Package resolver turns a destination hostname into the ordered list of
// candidate addresses usable on the active data path.
//
// The active link may carry IPv4 addresses, IPv6 addresses, or both; only
// resolved addresses whose family the link actually has are worth dialing,
// so resolution is filtered through a family mask computed fresh per attempt.
package resolver

import (
	"context"
	"fmt"
	"net/netip"
)

// FamilyMask is a bitset over the address families assigned to the link.
type FamilyMask uint8

const (
	FamilyIPv4 FamilyMask = 1 << iota
	FamilyIPv6
)

func (m FamilyMask) String() string {
	switch m {
	case 0:
		return "none"
	case FamilyIPv4:
		return "ipv4"
	case FamilyIPv6:
		return "ipv6"
	default:
		return "ipv4|ipv6"
	}
}

// MaskOf computes the family mask from a link's assigned addresses.
// A nil or empty slice yields the zero mask.
func MaskOf(addrs []netip.Addr) FamilyMask {
	var m FamilyMask
	for _, a := range addrs {
		if a.Unmap().Is4() {
			m |= FamilyIPv4
		} else if a.Is6() {
			m |= FamilyIPv6
		}
	}
	return m
}

// Lookup resolves a hostname on the active network path.
type Lookup interface {
	LookupHost(ctx context.Context, host string) ([]netip.Addr, error)
}

// ResolutionError reports that no usable candidate address could be
// produced for a host.
type ResolutionError struct {
	Host  string
	Mask  FamilyMask
	Cause error
}

func (e *ResolutionError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("resolve %s (families %s): %v", e.Host, e.Mask, e.Cause)
	}
	return fmt.Sprintf("resolve %s: no address matches families %s", e.Host, e.Mask)
}

func (e *ResolutionError) Unwrap() error { return e.Cause }

// Resolve resolves host through lu and retains only addresses whose family
// is set in mask, preserving lookup order. It never returns an empty list:
// a zero mask, a lookup failure, or an all-filtered result is a
// *ResolutionError.
func Resolve(ctx context.Context, lu Lookup, host string, mask FamilyMask) ([]netip.Addr, error) {
	if mask == 0 {
		return nil, &ResolutionError{Host: host, Mask: mask}
	}

	addrs, err := lu.LookupHost(ctx, host)
	if err != nil {
		return nil, &ResolutionError{Host: host, Mask: mask, Cause: err}
	}

	candidates := make([]netip.Addr, 0, len(addrs))
	for _, a := range addrs {
		if a.Unmap().Is4() {
			if mask&FamilyIPv4 != 0 {
				candidates = append(candidates, a)
			}
		} else if mask&FamilyIPv6 != 0 {
			candidates = append(candidates, a)
		}
	}

	if len(candidates) == 0 {
		return nil, &ResolutionError{Host: host, Mask: mask}
	}
	return candidates, nil
}
