package memory

import (
	"context"
	"sync"
	"time"

	"github.com/openmms/mmsd/internal/core/domain"
	"github.com/openmms/mmsd/internal/dispatch/handoff"
	"github.com/openmms/mmsd/internal/infra/storage"
)

// MemoryStorage backs the repositories when no database is configured.
type MemoryStorage struct {
	mu       sync.RWMutex
	messages map[int64]*domain.Message
	nextID   int64
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{messages: make(map[int64]*domain.Message)}
}

// -----------------------------------------------------------------------------
// Message Repository
// -----------------------------------------------------------------------------

type MessageRepo struct {
	store *MemoryStorage
}

func NewMessageRepo(store *MemoryStorage) *MessageRepo {
	return &MessageRepo{store: store}
}

func (r *MessageRepo) Create(_ context.Context, msg *domain.Message) (int64, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	r.store.nextID++
	cp := *msg
	cp.ID = r.store.nextID
	cp.CreatedAt = time.Now()
	cp.UpdatedAt = cp.CreatedAt
	r.store.messages[cp.ID] = &cp
	return cp.ID, nil
}

func (r *MessageRepo) UpdateStatus(_ context.Context, id int64, status domain.MessageStatus) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	msg, ok := r.store.messages[id]
	if !ok {
		return storage.ErrMessageNotFound
	}
	msg.Status = status
	msg.UpdatedAt = time.Now()
	return nil
}

func (r *MessageRepo) UpdateResult(_ context.Context, id int64, status domain.MessageStatus, code domain.ResultCode, response []byte) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	msg, ok := r.store.messages[id]
	if !ok {
		return storage.ErrMessageNotFound
	}
	msg.Status = status
	msg.ResultCode = code
	msg.Response = response
	msg.UpdatedAt = time.Now()
	return nil
}

func (r *MessageRepo) GetByTransactionID(_ context.Context, transactionID string) (*domain.Message, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	for _, msg := range r.store.messages {
		if msg.TransactionID == transactionID {
			cp := *msg
			return &cp, nil
		}
	}
	return nil, storage.ErrMessageNotFound
}

func (r *MessageRepo) CountByStatus(_ context.Context) (map[domain.MessageStatus]int64, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	counts := make(map[domain.MessageStatus]int64)
	for _, msg := range r.store.messages {
		counts[msg.Status]++
	}
	return counts, nil
}

// -----------------------------------------------------------------------------
// Pending Registry
// -----------------------------------------------------------------------------

// PendingRegistry is the in-memory handoff registry used when Redis is not
// configured. Registrations expire after ttl.
type PendingRegistry struct {
	mu      sync.Mutex
	ttl     time.Duration
	pending map[string]pendingEntry
}

type pendingEntry struct {
	req     *domain.Request
	expires time.Time
}

func NewPendingRegistry(ttl time.Duration) *PendingRegistry {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &PendingRegistry{ttl: ttl, pending: make(map[string]pendingEntry)}
}

func (r *PendingRegistry) Put(_ context.Context, token string, req *domain.Request) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pending[token] = pendingEntry{req: req, expires: time.Now().Add(r.ttl)}
	return nil
}

func (r *PendingRegistry) Get(_ context.Context, token string) (*domain.Request, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.pending[token]
	if !ok || time.Now().After(e.expires) {
		delete(r.pending, token)
		return nil, handoff.ErrNotFound
	}
	return e.req, nil
}

func (r *PendingRegistry) Remove(_ context.Context, token string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.pending, token)
	return nil
}
