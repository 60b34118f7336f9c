package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/openmms/mmsd/internal/core/domain"
	"github.com/openmms/mmsd/internal/infra/storage"
)

// MessageRepo implements storage.MessageRepository using PostgreSQL.
type MessageRepo struct {
	db *DB
}

// NewMessageRepo creates a new PostgreSQL message repository.
func NewMessageRepo(db *DB) *MessageRepo {
	return &MessageRepo{db: db}
}

// Create persists a new message row.
func (r *MessageRepo) Create(ctx context.Context, msg *domain.Message) (int64, error) {
	query := `
		INSERT INTO messages (
			transaction_id, kind, subscription_id, creator, status, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
		RETURNING id
	`
	var id int64
	err := r.db.QueryRowContext(ctx, query,
		msg.TransactionID, string(msg.Kind), msg.SubscriptionID, msg.Creator, string(msg.Status),
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to create message: %w", err)
	}
	return id, nil
}

// UpdateStatus moves a message to a new lifecycle status.
func (r *MessageRepo) UpdateStatus(ctx context.Context, id int64, status domain.MessageStatus) error {
	query := `UPDATE messages SET status = $2, updated_at = NOW() WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id, string(status))
	if err != nil {
		return fmt.Errorf("failed to update message status: %w", err)
	}
	return checkAffected(res)
}

// UpdateResult records the terminal outcome of a message.
func (r *MessageRepo) UpdateResult(ctx context.Context, id int64, status domain.MessageStatus, code domain.ResultCode, response []byte) error {
	query := `
		UPDATE messages
		SET status = $2, result_code = $3, response = $4, updated_at = NOW()
		WHERE id = $1
	`
	res, err := r.db.ExecContext(ctx, query, id, string(status), string(code), response)
	if err != nil {
		return fmt.Errorf("failed to update message result: %w", err)
	}
	return checkAffected(res)
}

func checkAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return storage.ErrMessageNotFound
	}
	return nil
}

type messageRow struct {
	ID             int64          `db:"id"`
	TransactionID  string         `db:"transaction_id"`
	Kind           string         `db:"kind"`
	SubscriptionID string         `db:"subscription_id"`
	Creator        string         `db:"creator"`
	Status         string         `db:"status"`
	ResultCode     sql.NullString `db:"result_code"`
	Response       []byte         `db:"response"`
	CreatedAt      time.Time      `db:"created_at"`
	UpdatedAt      time.Time      `db:"updated_at"`
}

func (m *messageRow) toDomain() *domain.Message {
	msg := &domain.Message{
		ID:             m.ID,
		TransactionID:  m.TransactionID,
		Kind:           domain.Kind(m.Kind),
		SubscriptionID: m.SubscriptionID,
		Creator:        m.Creator,
		Status:         domain.MessageStatus(m.Status),
		Response:       m.Response,
		CreatedAt:      m.CreatedAt,
		UpdatedAt:      m.UpdatedAt,
	}
	if m.ResultCode.Valid {
		msg.ResultCode = domain.ResultCode(m.ResultCode.String)
	}
	return msg
}

// GetByTransactionID retrieves a message by its caller-facing reference.
func (r *MessageRepo) GetByTransactionID(ctx context.Context, transactionID string) (*domain.Message, error) {
	query := `
		SELECT id, transaction_id, kind, subscription_id, creator, status,
		       result_code, response, created_at, updated_at
		FROM messages WHERE transaction_id = $1
	`
	var row messageRow
	err := r.db.GetContext(ctx, &row, query, transactionID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrMessageNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get message: %w", err)
	}
	return row.toDomain(), nil
}

// CountByStatus returns message counts grouped by status.
func (r *MessageRepo) CountByStatus(ctx context.Context) (map[domain.MessageStatus]int64, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM messages GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("failed to count messages: %w", err)
	}
	defer rows.Close()

	counts := make(map[domain.MessageStatus]int64)
	for rows.Next() {
		var status string
		var n int64
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[domain.MessageStatus(status)] = n
	}
	return counts, rows.Err()
}
