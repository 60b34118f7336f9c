package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"net/netip"
	"testing"
	"time"
)

type testNetwork struct {
	dialer net.Dialer
}

func (n *testNetwork) Addrs() []netip.Addr { return nil }

func (n *testNetwork) LookupHost(_ context.Context, _ string) ([]netip.Addr, error) {
	return nil, errors.New("lookup not expected in transport tests")
}

func (n *testNetwork) DialContext(ctx context.Context, network, addr string) (net.Conn, error) {
	return n.dialer.DialContext(ctx, network, addr)
}

func serverPort(t *testing.T, srv *httptest.Server) int {
	t.Helper()
	_, portStr, err := net.SplitHostPort(srv.Listener.Addr().String())
	if err != nil {
		t.Fatalf("split server addr: %v", err)
	}
	var port int
	fmt.Sscanf(portStr, "%d", &port)
	return port
}

func TestHTTPClient_SendPinsCandidate(t *testing.T) {
	var gotMethod, gotContentType string
	var gotBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotContentType = r.Header.Get("Content-Type")
		gotBody, _ = io.ReadAll(r.Body)
		w.Write([]byte("m-send-conf"))
	}))
	defer srv.Close()

	// The URL names a host that does not resolve; only the pinned candidate
	// can reach the server.
	url := fmt.Sprintf("http://mmsc.invalid:%d/mms", serverPort(t, srv))

	c := NewHTTPClient(5*time.Second, "")
	resp, err := c.Do(context.Background(), Exchange{
		URL:       url,
		Method:    http.MethodPost,
		Body:      []byte("pdu-bytes"),
		Candidate: netip.MustParseAddr("127.0.0.1"),
		Network:   &testNetwork{},
	})
	if err != nil {
		t.Fatalf("Do failed: %v", err)
	}
	if string(resp) != "m-send-conf" {
		t.Errorf("response = %q, want m-send-conf", resp)
	}
	if gotMethod != http.MethodPost {
		t.Errorf("method = %s, want POST", gotMethod)
	}
	if gotContentType != contentTypeMMS {
		t.Errorf("content-type = %q, want %q", gotContentType, contentTypeMMS)
	}
	if string(gotBody) != "pdu-bytes" {
		t.Errorf("body = %q, want pdu-bytes", gotBody)
	}
}

func TestHTTPClient_StatusFailureIsAddressSpecific(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "mmsc rejected", http.StatusBadGateway)
	}))
	defer srv.Close()

	url := fmt.Sprintf("http://mmsc.invalid:%d/mms", serverPort(t, srv))

	c := NewHTTPClient(5*time.Second, "")
	_, err := c.Do(context.Background(), Exchange{
		URL:       url,
		Method:    http.MethodGet,
		Candidate: netip.MustParseAddr("127.0.0.1"),
		Network:   &testNetwork{},
	})

	var trErr *Error
	if !errors.As(err, &trErr) {
		t.Fatalf("expected *Error, got %v", err)
	}
	if trErr.Addr != netip.MustParseAddr("127.0.0.1") {
		t.Errorf("error addr = %v, want candidate", trErr.Addr)
	}
}

func TestHTTPClient_DialFailureIsAddressSpecific(t *testing.T) {
	// A listener we immediately close gives a port with nothing behind it.
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := l.Addr().String()
	l.Close()

	c := NewHTTPClient(time.Second, "")
	_, err = c.Do(context.Background(), Exchange{
		URL:       "http://" + addr + "/mms",
		Method:    http.MethodGet,
		Candidate: netip.MustParseAddr("127.0.0.1"),
		Network:   &testNetwork{},
	})

	var trErr *Error
	if !errors.As(err, &trErr) {
		t.Fatalf("expected *Error, got %v", err)
	}
}

func TestHTTPClient_NoNetworkIsFatal(t *testing.T) {
	c := NewHTTPClient(time.Second, "")
	_, err := c.Do(context.Background(), Exchange{
		URL:       "http://mmsc.invalid/mms",
		Method:    http.MethodGet,
		Candidate: netip.MustParseAddr("127.0.0.1"),
	})
	if err == nil {
		t.Fatal("expected error")
	}
	var trErr *Error
	if errors.As(err, &trErr) {
		t.Error("missing network must not be an address-specific failure")
	}
}
