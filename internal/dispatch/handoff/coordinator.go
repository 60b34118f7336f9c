// Package handoff manages the optional carrier-agent interception of a
// request before the transport path runs.
//
// The protocol is two-phase: the request is offered to the privileged agent
// once; if the agent accepts it supplies an opaque token and the request is
// parked in a pending registry. A later resume for that token re-dispatches
// the request through the normal retry loop as if freshly submitted. If the
// agent declines, is absent, or errors, the transport path runs immediately.
package handoff

import (
	"context"
	"errors"
	"log/slog"

	"github.com/openmms/mmsd/internal/core/domain"
	"github.com/openmms/mmsd/internal/dispatch/metrics"
)

// AgentChannel is the offer half of the carrier agent protocol.
type AgentChannel interface {
	// Offer presents the request to the agent. accepted is true only when
	// the agent claimed the request and returned a handoff token.
	Offer(ctx context.Context, req *domain.Request) (token string, accepted bool, err error)
}

// ErrNotFound is returned by a Registry when a token has no registration.
var ErrNotFound = errors.New("no pending request for token")

// Registry parks accepted requests under their handoff token. Eviction of
// stale registrations is the registry's own concern.
type Registry interface {
	Put(ctx context.Context, token string, req *domain.Request) error
	Get(ctx context.Context, token string) (*domain.Request, error)
	Remove(ctx context.Context, token string) error
}

// Dispatcher re-enters a resumed request into normal processing.
type Dispatcher interface {
	Enqueue(req *domain.Request)
}

// Coordinator wires the agent channel, the pending registry, and the
// dispatcher together.
type Coordinator struct {
	agent    AgentChannel // nil when no agent is configured
	registry Registry
	dispatch Dispatcher
}

func NewCoordinator(agent AgentChannel, registry Registry, dispatch Dispatcher) *Coordinator {
	return &Coordinator{agent: agent, registry: registry, dispatch: dispatch}
}

// Intercept offers the request to the agent. It returns true when the agent
// accepted and the request is now pending: the caller must not run the
// transport path. Any failure in the offer or the registration falls back
// to running the request normally.
func (c *Coordinator) Intercept(ctx context.Context, req *domain.Request) bool {
	if c.agent == nil {
		return false
	}
	metrics.HandoffEvents.WithLabelValues("offered").Inc()

	token, accepted, err := c.agent.Offer(ctx, req)
	if err != nil {
		slog.Warn("carrier agent offer failed, dispatching directly",
			"transaction_id", req.TransactionID, "error", err)
		metrics.HandoffEvents.WithLabelValues("declined").Inc()
		return false
	}
	if !accepted || token == "" {
		metrics.HandoffEvents.WithLabelValues("declined").Inc()
		return false
	}

	if err := c.registry.Put(ctx, token, req); err != nil {
		slog.Error("failed to register pending request, dispatching directly",
			"transaction_id", req.TransactionID, "token", token, "error", err)
		metrics.HandoffEvents.WithLabelValues("declined").Inc()
		return false
	}

	slog.Info("request intercepted by carrier agent",
		"transaction_id", req.TransactionID, "token", token)
	metrics.HandoffEvents.WithLabelValues("accepted").Inc()
	return true
}

// Resume re-dispatches the request parked under token. A token with no
// registration, or one whose registered operation kind does not match, is
// logged and ignored.
func (c *Coordinator) Resume(ctx context.Context, token string, kind domain.Kind) {
	req, err := c.registry.Get(ctx, token)
	if err != nil {
		slog.Warn("resume for unknown handoff token ignored", "token", token, "error", err)
		metrics.HandoffEvents.WithLabelValues("orphaned").Inc()
		return
	}
	if req.Kind != kind {
		slog.Warn("resume kind mismatch ignored",
			"token", token, "registered", req.Kind, "resumed", kind)
		metrics.HandoffEvents.WithLabelValues("orphaned").Inc()
		return
	}

	if err := c.registry.Remove(ctx, token); err != nil {
		slog.Error("failed to remove pending registration", "token", token, "error", err)
	}

	slog.Info("carrier agent resumed request",
		"transaction_id", req.TransactionID, "token", token)
	metrics.HandoffEvents.WithLabelValues("resumed").Inc()
	c.dispatch.Enqueue(req)
}
