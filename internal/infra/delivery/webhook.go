// Package delivery notifies callers of terminal results over HTTP
// webhooks.
package delivery

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/openmms/mmsd/internal/core/domain"
)

// Notification is the webhook body. Response is base64-encoded by the JSON
// codec.
type Notification struct {
	TransactionID string            `json:"transaction_id"`
	MessageID     int64             `json:"message_id"`
	Kind          domain.Kind       `json:"kind"`
	Code          domain.ResultCode `json:"code"`
	Response      []byte            `json:"response,omitempty"`
}

// Webhook implements the delivery channel by POSTing results to the
// caller-supplied URL.
type Webhook struct {
	client *http.Client
}

func NewWebhook(timeout time.Duration) *Webhook {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Webhook{client: &http.Client{Timeout: timeout}}
}

// Notify delivers the terminal result. Failures are returned for the
// reporter to log; they never change the result.
func (w *Webhook) Notify(ctx context.Context, req *domain.Request, code domain.ResultCode, response []byte) error {
	body, err := json.Marshal(Notification{
		TransactionID: req.TransactionID,
		MessageID:     req.MessageID,
		Kind:          req.Kind,
		Code:          code,
		Response:      response,
	})
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, req.WebhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build notification request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("deliver notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("webhook returned http %d", resp.StatusCode)
	}
	return nil
}
