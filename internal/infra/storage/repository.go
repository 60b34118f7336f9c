package storage

import (
	"context"
	"errors"

	"github.com/openmms/mmsd/internal/core/domain"
)

// ErrMessageNotFound is returned when a message doesn't exist.
var ErrMessageNotFound = errors.New("message not found")

// MessageRepository handles message storage operations.
type MessageRepository interface {
	// Create persists a new message and returns its row id.
	Create(ctx context.Context, msg *domain.Message) (int64, error)

	// UpdateStatus moves a message through its lifecycle.
	UpdateStatus(ctx context.Context, id int64, status domain.MessageStatus) error

	// UpdateResult records the terminal outcome. A nil response clears any
	// stored payload.
	UpdateResult(ctx context.Context, id int64, status domain.MessageStatus, code domain.ResultCode, response []byte) error

	// GetByTransactionID retrieves a message by its caller-facing reference.
	GetByTransactionID(ctx context.Context, transactionID string) (*domain.Message, error)

	// CountByStatus returns how many messages sit in each status.
	CountByStatus(ctx context.Context) (map[domain.MessageStatus]int64, error)
}
