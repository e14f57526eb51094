// Package messages records delivered message history. Appending history is
// best-effort: callers log failures and never fail the delivery over them.
package messages

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Record is one delivered-message history row.
type Record struct {
	DealershipID     uuid.UUID
	Phone            string
	Body             string
	Kind             string
	GatewayMessageID string
}

// Repository provides database operations for message history
type Repository struct {
	pool *pgxpool.Pool
}

// New creates a new messages repository
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Append inserts a delivered-message history row.
func (r *Repository) Append(ctx context.Context, rec Record) error {
	query := `
		INSERT INTO messages (id, dealership_id, phone, body, kind, gateway_message_id, created_at)
		VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), $7)`

	_, err := r.pool.Exec(ctx, query,
		uuid.New(), rec.DealershipID, rec.Phone, rec.Body, rec.Kind, rec.GatewayMessageID, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to append message history: %w", err)
	}

	return nil
}
