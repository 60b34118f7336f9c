package delivery

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/openmms/mmsd/internal/core/domain"
)

func TestWebhook_Notify(t *testing.T) {
	var got Notification
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(body, &got); err != nil {
			t.Errorf("bad notification body: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	wh := NewWebhook(time.Second)
	req := &domain.Request{
		TransactionID: "tx-1",
		MessageID:     7,
		Kind:          domain.KindDownload,
		WebhookURL:    srv.URL,
	}
	if err := wh.Notify(context.Background(), req, domain.ResultOK, []byte("m-retrieve-conf")); err != nil {
		t.Fatalf("Notify failed: %v", err)
	}

	if got.TransactionID != "tx-1" || got.MessageID != 7 || got.Code != domain.ResultOK {
		t.Errorf("notification = %+v", got)
	}
	if string(got.Response) != "m-retrieve-conf" {
		t.Errorf("response = %q", got.Response)
	}
}

func TestWebhook_NotifyFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusGone)
	}))
	defer srv.Close()

	wh := NewWebhook(time.Second)
	req := &domain.Request{TransactionID: "tx-1", WebhookURL: srv.URL}
	if err := wh.Notify(context.Background(), req, domain.ResultOK, nil); err == nil {
		t.Fatal("expected error for non-2xx webhook response")
	}
}
