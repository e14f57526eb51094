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

// Work item statuses. pending -> processing -> sent | failed; sent and
// failed are terminal for this engine.
const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusSent       = "sent"
	StatusFailed     = "failed"
)

// Reminder kinds.
const (
	KindConfirmation = "confirmation"
	KindFollowUp     = "follow_up"
	KindNPS          = "nps"
)

// WorkItem represents a scheduled reminder row
type WorkItem struct {
	ID            uuid.UUID  `db:"id"`
	DealershipID  uuid.UUID  `db:"dealership_id"`
	Kind          string     `db:"kind"`
	Status        string     `db:"status"`
	ClientID      uuid.UUID  `db:"client_id"`
	VehicleID     *uuid.UUID `db:"vehicle_id"`
	ServiceID     *uuid.UUID `db:"service_id"`
	AppointmentID *uuid.UUID `db:"appointment_id"`
	ScheduledFor  time.Time  `db:"scheduled_for"`
	CreatedAt     time.Time  `db:"created_at"`
}

// DeliveryDetails carries the denormalized fields a reminder message renders.
type DeliveryDetails struct {
	ClientName      string
	ClientPhone     string
	Vehicle         string
	Plate           string
	VIN             string
	ServiceName     string
	AppointmentDate string
	AppointmentTime string
	WorkshopName    string
}

// Repository provides database operations for service reminders
type Repository struct {
	pool *pgxpool.Pool
}

// New creates a new reminders repository
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ListDueByDay returns all pending reminders scheduled for the given day,
// oldest first, optionally filtered to one dealership.
func (r *Repository) ListDueByDay(ctx context.Context, day time.Time, dealershipID *uuid.UUID) ([]WorkItem, error) {
	query := `SELECT id, dealership_id, kind, status, client_id, vehicle_id, service_id, appointment_id, scheduled_for, created_at
		FROM service_reminders
		WHERE status = $1 AND scheduled_for = $2`
	args := []any{StatusPending, day}

	if dealershipID != nil {
		query += ` AND dealership_id = $3`
		args = append(args, *dealershipID)
	}
	query += ` ORDER BY created_at ASC`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list due reminders: %w", err)
	}
	defer rows.Close()

	var items []WorkItem
	for rows.Next() {
		var item WorkItem
		if err := rows.Scan(
			&item.ID, &item.DealershipID, &item.Kind, &item.Status, &item.ClientID,
			&item.VehicleID, &item.ServiceID, &item.AppointmentID, &item.ScheduledFor, &item.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan reminder: %w", err)
		}
		items = append(items, item)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("failed to list due reminders: %w", rows.Err())
	}

	return items, nil
}

// ClaimPending moves a reminder from pending to processing. The conditional
// update makes the claim atomic: a reminder already claimed by a concurrent
// tick reports false and must be skipped.
func (r *Repository) ClaimPending(ctx context.Context, id uuid.UUID) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE service_reminders SET status = $2, updated_at = now() WHERE id = $1 AND status = $3`,
		id, StatusProcessing, StatusPending,
	)
	if err != nil {
		return false, fmt.Errorf("failed to claim reminder: %w", err)
	}

	return tag.RowsAffected() == 1, nil
}

// GetDeliveryDetails loads the client, vehicle, service, and appointment
// fields referenced by a reminder's template.
func (r *Repository) GetDeliveryDetails(ctx context.Context, id uuid.UUID) (*DeliveryDetails, error) {
	query := `SELECT
			c.name, c.phone,
			COALESCE(TRIM(CONCAT(v.make, ' ', v.model)), ''), COALESCE(v.plate, ''), COALESCE(v.vin, ''),
			COALESCE(s.name, ''),
			COALESCE(to_char(a.date, 'DD/MM/YYYY'), ''), COALESCE(a.time, ''),
			COALESCE(w.name, '')
		FROM service_reminders r
		JOIN clients c ON c.id = r.client_id
		LEFT JOIN vehicles v ON v.id = r.vehicle_id
		LEFT JOIN services s ON s.id = r.service_id
		LEFT JOIN appointments a ON a.id = r.appointment_id
		LEFT JOIN workshops w ON w.dealership_id = r.dealership_id AND w.is_main = true
		WHERE r.id = $1`

	var d DeliveryDetails
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&d.ClientName, &d.ClientPhone, &d.Vehicle, &d.Plate, &d.VIN,
		&d.ServiceName, &d.AppointmentDate, &d.AppointmentTime, &d.WorkshopName,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("reminder client not found")
		}
		return nil, fmt.Errorf("failed to get delivery details: %w", err)
	}

	return &d, nil
}

// GetActiveTemplate returns the active template body for a dealership and kind.
func (r *Repository) GetActiveTemplate(ctx context.Context, dealershipID uuid.UUID, kind string) (string, error) {
	var body string
	query := `SELECT body FROM message_templates
		WHERE dealership_id = $1 AND kind = $2 AND is_active = true
		ORDER BY updated_at DESC LIMIT 1`

	err := r.pool.QueryRow(ctx, query, dealershipID, kind).Scan(&body)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", apperr.NotFound("no active template for kind " + kind)
		}
		return "", fmt.Errorf("failed to get template: %w", err)
	}

	return body, nil
}

// MarkSent records a successful delivery.
func (r *Repository) MarkSent(ctx context.Context, id uuid.UUID, gatewayMessageID string) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE service_reminders
		 SET status = $2, gateway_message_id = NULLIF($3, ''), last_error = NULL, sent_at = now(), updated_at = now()
		 WHERE id = $1`,
		id, StatusSent, gatewayMessageID,
	)
	if err != nil {
		return fmt.Errorf("failed to mark reminder sent: %w", err)
	}
	return nil
}

// MarkFailed records a terminal delivery failure with the error text.
func (r *Repository) MarkFailed(ctx context.Context, id uuid.UUID, errText string) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE service_reminders
		 SET status = $2, last_error = $3, updated_at = now()
		 WHERE id = $1`,
		id, StatusFailed, errText,
	)
	if err != nil {
		return fmt.Errorf("failed to mark reminder failed: %w", err)
	}
	return nil
}

// ReleaseStuckProcessing requeues reminders abandoned mid-flight (still
// processing past the threshold) back to pending.
func (r *Repository) ReleaseStuckProcessing(ctx context.Context, olderThan time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE service_reminders SET status = $1, updated_at = now()
		 WHERE status = $2 AND updated_at < $3`,
		StatusPending, StatusProcessing, olderThan,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to release stuck reminders: %w", err)
	}

	return tag.RowsAffected(), nil
}
