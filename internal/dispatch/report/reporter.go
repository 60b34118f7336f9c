// Package report completes a request: terminal results are persisted and
// then delivered back to the caller.
package report

import (
	"context"
	"log/slog"

	"github.com/openmms/mmsd/internal/core/domain"
	"github.com/openmms/mmsd/internal/dispatch/metrics"
)

// PersistenceStore records the terminal status of a message.
type PersistenceStore interface {
	UpdateStatus(ctx context.Context, req *domain.Request, code domain.ResultCode, response []byte) error
}

// DeliveryChannel notifies the original caller of the terminal result.
type DeliveryChannel interface {
	Notify(ctx context.Context, req *domain.Request, code domain.ResultCode, response []byte) error
}

// Reporter translates a terminal result into the request's completion
// contract. Persistence happens first; a delivery failure is logged and
// swallowed, it never changes the result.
type Reporter struct {
	store    PersistenceStore
	delivery DeliveryChannel
}

func NewReporter(store PersistenceStore, delivery DeliveryChannel) *Reporter {
	return &Reporter{store: store, delivery: delivery}
}

// Report completes one request with its terminal result.
func (r *Reporter) Report(ctx context.Context, req *domain.Request, res domain.RequestResult) {
	if err := r.store.UpdateStatus(ctx, req, res.Code, res.Response); err != nil {
		slog.Error("failed to persist message status",
			"transaction_id", req.TransactionID, "code", res.Code, "error", err)
	}
	metrics.ResultsTotal.WithLabelValues(string(req.Kind), string(res.Code)).Inc()

	if r.delivery == nil || req.WebhookURL == "" {
		return
	}
	if err := r.delivery.Notify(ctx, req, res.Code, res.Response); err != nil {
		slog.Warn("result delivery failed",
			"transaction_id", req.TransactionID, "webhook", req.WebhookURL, "error", err)
		metrics.DeliveriesTotal.WithLabelValues("failed").Inc()
		return
	}
	metrics.DeliveriesTotal.WithLabelValues("ok").Inc()
}
