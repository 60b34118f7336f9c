// Package carrier bridges the handoff protocol to the privileged carrier
// agent over Redis pub/sub.
//
// An offer is broadcast once on a shared channel; an agent that wants the
// request replies on the offer's private reply channel with a handoff
// token. Resumes arrive later on a shared resume channel. An absent agent
// is detected cheaply: a broadcast with zero receivers is an immediate
// decline.
package carrier

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/openmms/mmsd/internal/core/domain"
	redisclient "github.com/openmms/mmsd/internal/infra/redis"
)

const (
	offerChannel  = "mms:handoff:offer"
	replyPrefix   = "mms:handoff:reply:"
	resumeChannel = "mms:handoff:resume"
)

type offerMessage struct {
	TransactionID  string      `json:"transaction_id"`
	Kind           domain.Kind `json:"kind"`
	SubscriptionID string      `json:"subscription_id"`
	ReplyChannel   string      `json:"reply_channel"`
}

type replyMessage struct {
	Accepted bool   `json:"accepted"`
	Token    string `json:"token"`
}

type resumeMessage struct {
	Token string      `json:"token"`
	Kind  domain.Kind `json:"kind"`
}

// ResumeHandler re-enters a resumed request into normal processing.
type ResumeHandler interface {
	Resume(ctx context.Context, token string, kind domain.Kind)
}

// Bridge implements the agent channel (handoff.AgentChannel) and the
// resume listener.
type Bridge struct {
	client       *redisclient.Client
	offerTimeout time.Duration
}

// NewBridge creates a carrier bridge over an existing Redis client.
func NewBridge(client *redisclient.Client, offerTimeout time.Duration) *Bridge {
	if offerTimeout <= 0 {
		offerTimeout = 2 * time.Second
	}
	return &Bridge{client: client, offerTimeout: offerTimeout}
}

// Offer broadcasts the request to the agent and waits briefly for a claim.
// No listening agent, a timeout, or a decline all mean the dispatcher
// should run the transport path itself.
func (b *Bridge) Offer(ctx context.Context, req *domain.Request) (string, bool, error) {
	rdb := b.client.RDB()
	reply := replyPrefix + req.TransactionID

	sub := rdb.Subscribe(ctx, reply)
	defer sub.Close()
	// Wait for the subscription to be live before broadcasting, otherwise
	// the agent's reply can race past us.
	if _, err := sub.Receive(ctx); err != nil {
		return "", false, fmt.Errorf("subscribe reply channel: %w", err)
	}

	payload, err := json.Marshal(offerMessage{
		TransactionID:  req.TransactionID,
		Kind:           req.Kind,
		SubscriptionID: req.SubscriptionID,
		ReplyChannel:   reply,
	})
	if err != nil {
		return "", false, err
	}

	receivers, err := rdb.Publish(ctx, offerChannel, payload).Result()
	if err != nil {
		return "", false, fmt.Errorf("broadcast offer: %w", err)
	}
	if receivers == 0 {
		// No agent present.
		return "", false, nil
	}

	timer := time.NewTimer(b.offerTimeout)
	defer timer.Stop()

	select {
	case msg, ok := <-sub.Channel():
		if !ok {
			return "", false, nil
		}
		var rep replyMessage
		if err := json.Unmarshal([]byte(msg.Payload), &rep); err != nil {
			return "", false, fmt.Errorf("bad agent reply: %w", err)
		}
		return rep.Token, rep.Accepted, nil
	case <-timer.C:
		slog.Debug("carrier agent did not claim offer in time",
			"transaction_id", req.TransactionID)
		return "", false, nil
	case <-ctx.Done():
		return "", false, ctx.Err()
	}
}

// ListenResumes consumes resume broadcasts until ctx is canceled, feeding
// each into the handler. Malformed messages are logged and skipped.
func (b *Bridge) ListenResumes(ctx context.Context, handler ResumeHandler) {
	sub := b.client.RDB().Subscribe(ctx, resumeChannel)
	defer sub.Close()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var res resumeMessage
			if err := json.Unmarshal([]byte(msg.Payload), &res); err != nil {
				slog.Warn("malformed resume message ignored", "error", err)
				continue
			}
			handler.Resume(ctx, res.Token, res.Kind)
		}
	}
}
