package netlease

import (
	"context"
	"errors"
	"net"
	"net/netip"
	"sync"
	"testing"
	"time"
)

type fakeNetwork struct{}

func (fakeNetwork) Addrs() []netip.Addr { return nil }
func (fakeNetwork) LookupHost(_ context.Context, _ string) ([]netip.Addr, error) {
	return nil, nil
}
func (fakeNetwork) DialContext(_ context.Context, _, _ string) (net.Conn, error) {
	return nil, nil
}

type fakeConnector struct {
	mu          sync.Mutex
	connects    int
	disconnects int
	err         error
}

func (c *fakeConnector) Connect(_ context.Context) (Network, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connects++
	if c.err != nil {
		return nil, c.err
	}
	return fakeNetwork{}, nil
}

func (c *fakeConnector) Disconnect(_ Network) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.disconnects++
}

func (c *fakeConnector) counts() (int, int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connects, c.disconnects
}

func TestManager_Refcount(t *testing.T) {
	conn := &fakeConnector{}
	m := NewManager(conn)

	ctx := context.Background()
	if err := m.Acquire(ctx); err != nil {
		t.Fatalf("first Acquire failed: %v", err)
	}
	if err := m.Acquire(ctx); err != nil {
		t.Fatalf("second Acquire failed: %v", err)
	}

	if connects, _ := conn.counts(); connects != 1 {
		t.Errorf("connects = %d, want 1 (shared path)", connects)
	}
	if m.Network() == nil {
		t.Error("Network() = nil while leases are held")
	}

	m.Release()
	if _, disconnects := conn.counts(); disconnects != 0 {
		t.Error("path torn down while a lease is still held")
	}

	m.Release()
	if _, disconnects := conn.counts(); disconnects != 1 {
		t.Error("path not torn down after last release")
	}
	if m.Network() != nil {
		t.Error("Network() != nil after teardown")
	}
}

func TestManager_AcquireFailure(t *testing.T) {
	cause := errors.New("carrier refused")
	m := NewManager(&fakeConnector{err: cause})

	err := m.Acquire(context.Background())
	var acqErr *AcquireError
	if !errors.As(err, &acqErr) {
		t.Fatalf("expected *AcquireError, got %v", err)
	}
	if !errors.Is(err, cause) {
		t.Error("acquire error does not carry connector cause")
	}
	if m.Network() != nil {
		t.Error("Network() != nil after failed acquire")
	}
}

func TestManager_Linger(t *testing.T) {
	conn := &fakeConnector{}
	m := NewManager(conn, WithLinger(20*time.Millisecond))

	ctx := context.Background()
	if err := m.Acquire(ctx); err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	m.Release()

	// Re-acquire within the linger window reuses the path.
	if err := m.Acquire(ctx); err != nil {
		t.Fatalf("re-Acquire failed: %v", err)
	}
	if connects, _ := conn.counts(); connects != 1 {
		t.Errorf("connects = %d, want 1 (linger reuse)", connects)
	}
	m.Release()

	deadline := time.Now().Add(500 * time.Millisecond)
	for {
		if _, disconnects := conn.counts(); disconnects == 1 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("path not torn down after linger expired")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestManager_ReleaseWithoutAcquire(t *testing.T) {
	conn := &fakeConnector{}
	m := NewManager(conn)

	// Must not panic or go negative.
	m.Release()

	if err := m.Acquire(context.Background()); err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	m.Release()
	if _, disconnects := conn.counts(); disconnects != 1 {
		t.Error("refcount corrupted by unmatched release")
	}
}
