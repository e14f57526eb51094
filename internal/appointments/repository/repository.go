package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"workshop_portal_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Appointment statuses. pending and confirmed are the non-terminal ones the
// expiry sweeper acts on.
const (
	StatusPending    = "pending"
	StatusConfirmed  = "confirmed"
	StatusInProgress = "in_progress"
	StatusCompleted  = "completed"
	StatusCancelled  = "cancelled"
)

// Appointment represents the appointment database model
type Appointment struct {
	ID           uuid.UUID `db:"id"`
	DealershipID uuid.UUID `db:"dealership_id"`
	ClientID     uuid.UUID `db:"client_id"`
	Date         time.Time `db:"date"`
	Time         *string   `db:"time"`
	Status       string    `db:"status"`
	UpdatedAt    time.Time `db:"updated_at"`
}

const appointmentNotFoundMsg = "appointment not found"

// Repository provides database operations for appointments
type Repository struct {
	pool *pgxpool.Pool
}

// New creates a new appointments repository
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// GetByID retrieves an appointment by its ID
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	var appt Appointment
	query := `SELECT id, dealership_id, client_id, date, time, status, updated_at
		FROM appointments WHERE id = $1`

	err := r.pool.QueryRow(ctx, query, id).Scan(
		&appt.ID, &appt.DealershipID, &appt.ClientID, &appt.Date, &appt.Time, &appt.Status, &appt.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound(appointmentNotFoundMsg)
		}
		return nil, fmt.Errorf("failed to get appointment: %w", err)
	}

	return &appt, nil
}

// ListExpired returns appointments still pending or confirmed whose date is
// before the given day.
func (r *Repository) ListExpired(ctx context.Context, before time.Time, dealershipID *uuid.UUID) ([]Appointment, error) {
	query := `SELECT id, dealership_id, client_id, date, time, status, updated_at
		FROM appointments
		WHERE status = ANY($1) AND date < $2`
	args := []any{[]string{StatusPending, StatusConfirmed}, before}

	if dealershipID != nil {
		query += ` AND dealership_id = $3`
		args = append(args, *dealershipID)
	}
	query += ` ORDER BY date ASC`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list expired appointments: %w", err)
	}
	defer rows.Close()

	var appts []Appointment
	for rows.Next() {
		var appt Appointment
		if err := rows.Scan(
			&appt.ID, &appt.DealershipID, &appt.ClientID, &appt.Date, &appt.Time, &appt.Status, &appt.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan appointment: %w", err)
		}
		appts = append(appts, appt)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("failed to list expired appointments: %w", rows.Err())
	}

	return appts, nil
}

// UpdateStatus transitions a single appointment's status.
func (r *Repository) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE appointments SET status = $2, updated_at = now() WHERE id = $1`,
		id, status,
	)
	if err != nil {
		return fmt.Errorf("failed to update appointment status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound(appointmentNotFoundMsg)
	}

	return nil
}
