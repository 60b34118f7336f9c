package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/openmms/mmsd/internal/core/domain"
	"github.com/openmms/mmsd/internal/dispatch/handoff"
)

// PendingRegistry implements handoff.Registry in Redis. Each registration
// lives under its own key with a TTL, so requests the carrier agent never
// resumes are evicted by Redis itself.
type PendingRegistry struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewPendingRegistry creates a Redis-backed pending registry.
func NewPendingRegistry(client *Client, ttl time.Duration) *PendingRegistry {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &PendingRegistry{rdb: client.rdb, ttl: ttl}
}

func pendingKey(token string) string {
	return fmt.Sprintf("mms:pending:%s", token)
}

// Put parks a request under its handoff token.
func (r *PendingRegistry) Put(ctx context.Context, token string, req *domain.Request) error {
	data, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("failed to marshal pending request: %w", err)
	}
	if err := r.rdb.Set(ctx, pendingKey(token), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to register pending request: %w", err)
	}
	return nil
}

// Get returns the request parked under token.
func (r *PendingRegistry) Get(ctx context.Context, token string) (*domain.Request, error) {
	data, err := r.rdb.Get(ctx, pendingKey(token)).Bytes()
	if err == redis.Nil {
		return nil, handoff.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load pending request: %w", err)
	}

	var req domain.Request
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("corrupt pending request for token %s: %w", token, err)
	}
	return &req, nil
}

// Remove drops the registration for token.
func (r *PendingRegistry) Remove(ctx context.Context, token string) error {
	return r.rdb.Del(ctx, pendingKey(token)).Err()
}
