package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/openmms/mmsd/internal/core/domain"
	"github.com/openmms/mmsd/internal/infra/storage/memory"
)

type fakeDispatcher struct {
	submitted []*domain.Request
}

func (d *fakeDispatcher) Submit(_ context.Context, req *domain.Request) error {
	d.submitted = append(d.submitted, req)
	return nil
}

func newTestServer(t *testing.T) (*httptest.Server, *memory.MessageRepo, *fakeDispatcher) {
	t.Helper()
	repo := memory.NewMessageRepo(memory.NewMemoryStorage())
	dispatcher := &fakeDispatcher{}
	srv := NewServer(repo, dispatcher, 0)
	ts := httptest.NewServer(srv.server.Handler)
	t.Cleanup(ts.Close)
	return ts, repo, dispatcher
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	payload, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal body: %v", err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(payload))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	return resp
}

func TestSendAcceptedAndQueryable(t *testing.T) {
	ts, _, dispatcher := newTestServer(t)

	resp := postJSON(t, ts.URL+"/v1/messages/send", sendBody{
		SubscriptionID: "sub-1",
		Creator:        "app.example",
		Payload:        []byte{0x8c, 0x80},
	})
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", resp.StatusCode)
	}

	var accepted submitResponse
	if err := json.NewDecoder(resp.Body).Decode(&accepted); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if accepted.TransactionID == "" {
		t.Fatal("expected a transaction id")
	}

	if len(dispatcher.submitted) != 1 {
		t.Fatalf("expected 1 dispatched request, got %d", len(dispatcher.submitted))
	}
	req := dispatcher.submitted[0]
	if req.Kind != domain.KindSend {
		t.Errorf("expected kind send, got %s", req.Kind)
	}
	if req.MessageID == 0 {
		t.Error("expected request to carry its message row id")
	}

	// The message is immediately queryable as pending.
	getResp, err := http.Get(ts.URL + "/v1/messages/" + accepted.TransactionID)
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer getResp.Body.Close()
	if getResp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", getResp.StatusCode)
	}

	var msg messageResponse
	if err := json.NewDecoder(getResp.Body).Decode(&msg); err != nil {
		t.Fatalf("decode message: %v", err)
	}
	if msg.Status != string(domain.StatusPending) {
		t.Errorf("expected pending, got %s", msg.Status)
	}
}

func TestDownloadAccepted(t *testing.T) {
	ts, _, dispatcher := newTestServer(t)

	resp := postJSON(t, ts.URL+"/v1/messages/download", downloadBody{
		SubscriptionID: "sub-1",
		ContentURL:     "http://mmsc.example/retrieve?id=abc",
	})
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", resp.StatusCode)
	}
	if len(dispatcher.submitted) != 1 {
		t.Fatalf("expected 1 dispatched request, got %d", len(dispatcher.submitted))
	}
	if dispatcher.submitted[0].Kind != domain.KindDownload {
		t.Errorf("expected kind download, got %s", dispatcher.submitted[0].Kind)
	}
	if dispatcher.submitted[0].ContentURL == "" {
		t.Error("expected content URL on the request")
	}
}

func TestSendRejectsMissingFields(t *testing.T) {
	ts, _, dispatcher := newTestServer(t)

	resp := postJSON(t, ts.URL+"/v1/messages/send", sendBody{SubscriptionID: "sub-1"})
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
	if len(dispatcher.submitted) != 0 {
		t.Error("invalid request must not be dispatched")
	}
}

func TestGetUnknownTransaction(t *testing.T) {
	ts, _, _ := newTestServer(t)

	resp, err := http.Get(ts.URL + "/v1/messages/no-such-tx")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}
