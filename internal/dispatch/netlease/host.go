package netlease

import (
	"context"
	"net"
	"net/netip"
	"time"
)

// hostNetwork routes over the host OS stack. It stands in for a dedicated
// cellular path in development and in deployments where the MMSC is
// reachable over the default route.
type hostNetwork struct {
	resolver *net.Resolver
	dialer   *net.Dialer
	addrs    []netip.Addr
}

func (n *hostNetwork) Addrs() []netip.Addr { return n.addrs }

func (n *hostNetwork) LookupHost(ctx context.Context, host string) ([]netip.Addr, error) {
	return n.resolver.LookupNetIP(ctx, "ip", host)
}

func (n *hostNetwork) DialContext(ctx context.Context, network, addr string) (net.Conn, error) {
	return n.dialer.DialContext(ctx, network, addr)
}

type hostConnector struct{}

// NewHostConnector returns a Connector backed by the host OS network stack.
func NewHostConnector() Connector { return hostConnector{} }

func (hostConnector) Connect(_ context.Context) (Network, error) {
	ifaceAddrs, err := net.InterfaceAddrs()
	if err != nil {
		return nil, err
	}

	var addrs []netip.Addr
	for _, ia := range ifaceAddrs {
		ipn, ok := ia.(*net.IPNet)
		if !ok {
			continue
		}
		a, ok := netip.AddrFromSlice(ipn.IP)
		if !ok {
			continue
		}
		a = a.Unmap()
		if a.IsLoopback() || a.IsLinkLocalUnicast() {
			continue
		}
		addrs = append(addrs, a)
	}

	return &hostNetwork{
		resolver: net.DefaultResolver,
		dialer:   &net.Dialer{Timeout: 30 * time.Second},
		addrs:    addrs,
	}, nil
}

func (hostConnector) Disconnect(_ Network) {}
