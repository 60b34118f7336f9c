package transport

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"
)

const contentTypeMMS = "application/vnd.wap.mms-message"

// HTTPClient implements Client over net/http. Each exchange gets its own
// transport whose dialer rewrites every connection to the pinned candidate
// address, so DNS is never consulted twice and the proxy (when set) is
// reached at exactly the address the dispatcher chose.
type HTTPClient struct {
	timeout   time.Duration
	userAgent string
}

// NewHTTPClient creates a transport client with the given per-exchange
// timeout.
func NewHTTPClient(timeout time.Duration, userAgent string) *HTTPClient {
	if userAgent == "" {
		userAgent = "mmsd/1.0"
	}
	return &HTTPClient{timeout: timeout, userAgent: userAgent}
}

// Do performs one exchange. An *Error means the failure is specific to the
// candidate address; any other error is a fatal, non-address-specific
// condition.
func (c *HTTPClient) Do(ctx context.Context, ex Exchange) ([]byte, error) {
	if ex.Network == nil {
		return nil, fmt.Errorf("transport: no network path")
	}
	if _, err := url.Parse(ex.URL); err != nil {
		return nil, fmt.Errorf("transport: bad url %q: %w", ex.URL, err)
	}

	var body io.Reader
	if len(ex.Body) > 0 {
		body = bytes.NewReader(ex.Body)
	}
	req, err := http.NewRequestWithContext(ctx, ex.Method, ex.URL, body)
	if err != nil {
		return nil, fmt.Errorf("transport: build request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", contentTypeMMS)
	if ex.Method == http.MethodPost {
		req.Header.Set("Content-Type", contentTypeMMS)
	}

	tr := &http.Transport{
		DialContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
			_, port, err := net.SplitHostPort(addr)
			if err != nil {
				return nil, err
			}
			return ex.Network.DialContext(ctx, network, net.JoinHostPort(ex.Candidate.String(), port))
		},
		DisableKeepAlives: true,
	}
	if ex.UseProxy {
		proxyURL := &url.URL{
			Scheme: "http",
			Host:   net.JoinHostPort(ex.ProxyHost, fmt.Sprintf("%d", ex.ProxyPort)),
		}
		tr.Proxy = http.ProxyURL(proxyURL)
	}

	client := &http.Client{Transport: tr, Timeout: c.timeout}

	resp, err := client.Do(req)
	if err != nil {
		return nil, &Error{Addr: ex.Candidate, Cause: err}
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &Error{Addr: ex.Candidate, Cause: fmt.Errorf("read response: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &Error{
			Addr:  ex.Candidate,
			Cause: fmt.Errorf("http %d: %s", resp.StatusCode, truncate(payload, 200)),
		}
	}
	return payload, nil
}

func truncate(b []byte, n int) string {
	if len(b) > n {
		b = b[:n]
	}
	return string(b)
}
