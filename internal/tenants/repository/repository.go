package repository

import (
	"context"
	"errors"
	"fmt"

	"workshop_portal_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Dealership represents the dealership (tenant) database model
type Dealership struct {
	ID    uuid.UUID `db:"id"`
	Name  string    `db:"name"`
	Phone *string   `db:"phone"`
}

// Workshop represents a dealership workshop and its gateway configuration
type Workshop struct {
	ID              uuid.UUID `db:"id"`
	DealershipID    uuid.UUID `db:"dealership_id"`
	Name            string    `db:"name"`
	IsMain          bool      `db:"is_main"`
	Timezone        *string   `db:"timezone"`
	GatewayAPIKey   *string   `db:"gateway_api_key"`
	GatewayDeviceID *string   `db:"gateway_device_id"`
}

const (
	dealershipNotFoundMsg = "dealership not found"
	workshopNotFoundMsg   = "workshop not found"
)

// Repository provides database operations for dealerships and workshops
type Repository struct {
	pool *pgxpool.Pool
}

// New creates a new tenants repository
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// GetDealershipByID retrieves a dealership by its ID
func (r *Repository) GetDealershipByID(ctx context.Context, id uuid.UUID) (*Dealership, error) {
	var d Dealership
	query := `SELECT id, name, phone FROM dealerships WHERE id = $1`

	err := r.pool.QueryRow(ctx, query, id).Scan(&d.ID, &d.Name, &d.Phone)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound(dealershipNotFoundMsg)
		}
		return nil, fmt.Errorf("failed to get dealership: %w", err)
	}

	return &d, nil
}

// FindDealershipIDByPhone looks up a dealership by its canonical contact phone
func (r *Repository) FindDealershipIDByPhone(ctx context.Context, phoneLocal string) (uuid.UUID, error) {
	var id uuid.UUID
	query := `SELECT id FROM dealerships WHERE phone = $1 LIMIT 1`

	err := r.pool.QueryRow(ctx, query, phoneLocal).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return uuid.Nil, apperr.NotFound(dealershipNotFoundMsg)
		}
		return uuid.Nil, fmt.Errorf("failed to find dealership by phone: %w", err)
	}

	return id, nil
}

// FindDealershipIDByClient looks up the dealership owning a client record
func (r *Repository) FindDealershipIDByClient(ctx context.Context, clientID uuid.UUID) (uuid.UUID, error) {
	var id uuid.UUID
	query := `SELECT dealership_id FROM clients WHERE id = $1`

	err := r.pool.QueryRow(ctx, query, clientID).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return uuid.Nil, apperr.NotFound("client not found")
		}
		return uuid.Nil, fmt.Errorf("failed to find dealership by client: %w", err)
	}

	return id, nil
}

// GetMainWorkshop retrieves the workshop flagged main for a dealership
func (r *Repository) GetMainWorkshop(ctx context.Context, dealershipID uuid.UUID) (*Workshop, error) {
	query := `SELECT id, dealership_id, name, is_main, timezone, gateway_api_key, gateway_device_id
		FROM workshops WHERE dealership_id = $1 AND is_main = true LIMIT 1`

	return r.scanWorkshop(ctx, query, dealershipID)
}

// GetWorkshopByID retrieves a workshop by ID scoped to a dealership
func (r *Repository) GetWorkshopByID(ctx context.Context, id, dealershipID uuid.UUID) (*Workshop, error) {
	query := `SELECT id, dealership_id, name, is_main, timezone, gateway_api_key, gateway_device_id
		FROM workshops WHERE id = $1 AND dealership_id = $2`

	return r.scanWorkshop(ctx, query, id, dealershipID)
}

// ListDealershipIDs returns the ids of all dealerships
func (r *Repository) ListDealershipIDs(ctx context.Context) ([]uuid.UUID, error) {
	rows, err := r.pool.Query(ctx, `SELECT id FROM dealerships ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("failed to list dealerships: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan dealership id: %w", err)
		}
		ids = append(ids, id)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("failed to list dealerships: %w", rows.Err())
	}

	return ids, nil
}

func (r *Repository) scanWorkshop(ctx context.Context, query string, args ...any) (*Workshop, error) {
	var w Workshop
	err := r.pool.QueryRow(ctx, query, args...).Scan(
		&w.ID, &w.DealershipID, &w.Name, &w.IsMain, &w.Timezone, &w.GatewayAPIKey, &w.GatewayDeviceID,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound(workshopNotFoundMsg)
		}
		return nil, fmt.Errorf("failed to get workshop: %w", err)
	}

	return &w, nil
}
