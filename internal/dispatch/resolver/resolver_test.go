package resolver

import (
	"context"
	"errors"
	"net/netip"
	"testing"
)

type fakeLookup struct {
	addrs []netip.Addr
	err   error
}

func (f *fakeLookup) LookupHost(_ context.Context, _ string) ([]netip.Addr, error) {
	return f.addrs, f.err
}

func ap(s string) netip.Addr { return netip.MustParseAddr(s) }

func TestMaskOf(t *testing.T) {
	tests := []struct {
		name  string
		addrs []netip.Addr
		want  FamilyMask
	}{
		{"none", nil, 0},
		{"v4 only", []netip.Addr{ap("10.0.0.2")}, FamilyIPv4},
		{"v6 only", []netip.Addr{ap("2001:db8::1")}, FamilyIPv6},
		{"both", []netip.Addr{ap("10.0.0.2"), ap("2001:db8::1")}, FamilyIPv4 | FamilyIPv6},
		{"mapped v4 counts as v4", []netip.Addr{ap("::ffff:10.0.0.2")}, FamilyIPv4},
	}

	for _, tt := range tests {
		if got := MaskOf(tt.addrs); got != tt.want {
			t.Errorf("%s: MaskOf = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestResolve_FiltersByMask(t *testing.T) {
	lu := &fakeLookup{addrs: []netip.Addr{ap("2001:db8::1"), ap("198.51.100.7")}}

	// IPv6-only link never yields an IPv4 candidate.
	got, err := Resolve(context.Background(), lu, "mmsc.example.com", FamilyIPv6)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if len(got) != 1 || got[0] != ap("2001:db8::1") {
		t.Errorf("candidates = %v, want [2001:db8::1]", got)
	}

	// Dual-stack link keeps lookup order untouched.
	got, err = Resolve(context.Background(), lu, "mmsc.example.com", FamilyIPv4|FamilyIPv6)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if len(got) != 2 || got[0] != ap("2001:db8::1") || got[1] != ap("198.51.100.7") {
		t.Errorf("candidates = %v, want lookup order preserved", got)
	}
}

func TestResolve_EmptyMask(t *testing.T) {
	lu := &fakeLookup{addrs: []netip.Addr{ap("10.0.0.2")}}

	_, err := Resolve(context.Background(), lu, "mmsc.example.com", 0)
	var resErr *ResolutionError
	if !errors.As(err, &resErr) {
		t.Fatalf("expected *ResolutionError, got %v", err)
	}
}

func TestResolve_NoMatch(t *testing.T) {
	lu := &fakeLookup{addrs: []netip.Addr{ap("2001:db8::1")}}

	_, err := Resolve(context.Background(), lu, "mmsc.example.com", FamilyIPv4)
	var resErr *ResolutionError
	if !errors.As(err, &resErr) {
		t.Fatalf("expected *ResolutionError, got %v", err)
	}
}

func TestResolve_LookupFailure(t *testing.T) {
	cause := errors.New("no such host")
	lu := &fakeLookup{err: cause}

	_, err := Resolve(context.Background(), lu, "mmsc.example.com", FamilyIPv4)
	var resErr *ResolutionError
	if !errors.As(err, &resErr) {
		t.Fatalf("expected *ResolutionError, got %v", err)
	}
	if !errors.Is(err, cause) {
		t.Errorf("resolution error does not carry the lookup cause")
	}
}
