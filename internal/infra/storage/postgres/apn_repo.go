package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/openmms/mmsd/internal/infra/apn"
)

// APNRepo implements apn.Store using PostgreSQL.
type APNRepo struct {
	db *DB
}

// NewAPNRepo creates a new PostgreSQL APN repository.
func NewAPNRepo(db *DB) *APNRepo {
	return &APNRepo{db: db}
}

// Get returns the APN settings for a subscription.
func (r *APNRepo) Get(ctx context.Context, subscriptionID string) (apn.Settings, error) {
	query := `
		SELECT mmsc, proxy_host, proxy_port
		FROM apns WHERE subscription_id = $1
	`
	var row struct {
		MMSC      string         `db:"mmsc"`
		ProxyHost sql.NullString `db:"proxy_host"`
		ProxyPort sql.NullInt32  `db:"proxy_port"`
	}
	err := r.db.GetContext(ctx, &row, query, subscriptionID)
	if errors.Is(err, sql.ErrNoRows) {
		return apn.Settings{}, apn.ErrNotFound
	}
	if err != nil {
		return apn.Settings{}, fmt.Errorf("failed to load apn settings: %w", err)
	}

	s := apn.Settings{MMSC: row.MMSC}
	if row.ProxyHost.Valid {
		s.ProxyHost = row.ProxyHost.String
	}
	if row.ProxyPort.Valid {
		s.ProxyPort = int(row.ProxyPort.Int32)
	}
	return s, nil
}
