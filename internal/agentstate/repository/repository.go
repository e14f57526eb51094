package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Setting represents the per-phone agent toggle row. Absence of a row means
// the agent is active by default.
type Setting struct {
	PhoneNumber  string    `db:"phone_number"`
	DealershipID uuid.UUID `db:"dealership_id"`
	AgentActive  bool      `db:"agent_active"`
	Notes        *string   `db:"notes"`
	UpdatedBy    string    `db:"updated_by"`
	UpdatedAt    time.Time `db:"updated_at"`
}

// UpsertParams carries one agent-state write keyed on (phone, dealership).
type UpsertParams struct {
	PhoneNumber  string
	DealershipID uuid.UUID
	AgentActive  bool
	Note         string
	Actor        string
}

// Repository provides database operations for agent phone settings
type Repository struct {
	pool *pgxpool.Pool
}

// New creates a new agentstate repository
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Upsert creates or updates the setting row for (phone, dealership). The
// unique key keeps exactly one row per pair, so repeating a write is a no-op
// besides the timestamp.
func (r *Repository) Upsert(ctx context.Context, p UpsertParams) error {
	query := `
		INSERT INTO agent_phone_settings (phone_number, dealership_id, agent_active, notes, updated_by, updated_at)
		VALUES ($1, $2, $3, NULLIF($4, ''), $5, now())
		ON CONFLICT (phone_number, dealership_id) DO UPDATE SET
			agent_active = EXCLUDED.agent_active,
			notes = EXCLUDED.notes,
			updated_by = EXCLUDED.updated_by,
			updated_at = now()`

	_, err := r.pool.Exec(ctx, query, p.PhoneNumber, p.DealershipID, p.AgentActive, p.Note, p.Actor)
	if err != nil {
		return fmt.Errorf("failed to upsert agent setting: %w", err)
	}

	return nil
}

// ListStaleManualDeactivations returns settings deactivated by a dealership
// worker whose last update is older than cutoff.
func (r *Repository) ListStaleManualDeactivations(ctx context.Context, cutoff time.Time, dealershipID *uuid.UUID) ([]Setting, error) {
	query := `SELECT phone_number, dealership_id, agent_active, notes, updated_by, updated_at
		FROM agent_phone_settings
		WHERE agent_active = false AND updated_by = $1 AND updated_at < $2`
	args := []any{"dealership_worker", cutoff}

	if dealershipID != nil {
		query += ` AND dealership_id = $3`
		args = append(args, *dealershipID)
	}
	query += ` ORDER BY updated_at ASC`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list stale manual deactivations: %w", err)
	}
	defer rows.Close()

	var settings []Setting
	for rows.Next() {
		var s Setting
		if err := rows.Scan(&s.PhoneNumber, &s.DealershipID, &s.AgentActive, &s.Notes, &s.UpdatedBy, &s.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan agent setting: %w", err)
		}
		settings = append(settings, s)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("failed to list stale manual deactivations: %w", rows.Err())
	}

	return settings, nil
}

// ListAppointmentDayClients returns the distinct phones of clients holding an
// appointment on day with one of the given statuses.
func (r *Repository) ListAppointmentDayClients(ctx context.Context, dealershipID uuid.UUID, day time.Time, statuses []string) ([]string, error) {
	query := `SELECT DISTINCT c.phone
		FROM appointments a
		JOIN clients c ON c.id = a.client_id
		WHERE a.dealership_id = $1 AND a.date = $2 AND a.status = ANY($3) AND c.phone IS NOT NULL`

	return r.listPhones(ctx, query, dealershipID, day, statuses)
}

// ListHonoredAppointmentClients returns the distinct phones of clients whose
// appointment on day was not cancelled (any other status counts as honored).
func (r *Repository) ListHonoredAppointmentClients(ctx context.Context, dealershipID uuid.UUID, day time.Time) ([]string, error) {
	query := `SELECT DISTINCT c.phone
		FROM appointments a
		JOIN clients c ON c.id = a.client_id
		WHERE a.dealership_id = $1 AND a.date = $2 AND a.status <> 'cancelled' AND c.phone IS NOT NULL`

	return r.listPhones(ctx, query, dealershipID, day)
}

func (r *Repository) listPhones(ctx context.Context, query string, args ...any) ([]string, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list appointment clients: %w", err)
	}
	defer rows.Close()

	var phones []string
	for rows.Next() {
		var phone string
		if err := rows.Scan(&phone); err != nil {
			return nil, fmt.Errorf("failed to scan client phone: %w", err)
		}
		phones = append(phones, phone)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("failed to list appointment clients: %w", rows.Err())
	}

	return phones, nil
}
