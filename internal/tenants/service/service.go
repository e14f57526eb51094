// Package service implements tenant resolution: mapping explicit ids, client
// records, or dealership phones onto a dealership, and resolving the active
// workshop configuration (timezone, gateway credential) for it.
package service

import (
	"context"
	"fmt"
	"time"

	"workshop_portal_backend/platform/apperr"

	"github.com/google/uuid"

	"workshop_portal_backend/internal/tenants/repository"
)

// Store is the subset of the tenants repository the service depends on.
type Store interface {
	GetDealershipByID(ctx context.Context, id uuid.UUID) (*repository.Dealership, error)
	FindDealershipIDByPhone(ctx context.Context, phoneLocal string) (uuid.UUID, error)
	FindDealershipIDByClient(ctx context.Context, clientID uuid.UUID) (uuid.UUID, error)
	GetMainWorkshop(ctx context.Context, dealershipID uuid.UUID) (*repository.Workshop, error)
	GetWorkshopByID(ctx context.Context, id, dealershipID uuid.UUID) (*repository.Workshop, error)
	ListDealershipIDs(ctx context.Context) ([]uuid.UUID, error)
}

// ResolveInput carries the alternative dealership identifiers. Exactly one is
// honored, in priority order: explicit id, client lookup, phone lookup.
type ResolveInput struct {
	DealershipID    *uuid.UUID
	ClientID        *uuid.UUID
	DealershipPhone string
}

// WorkshopConfig is the per-tenant configuration resolved once per job run.
type WorkshopConfig struct {
	DealershipID    uuid.UUID
	WorkshopID      uuid.UUID
	Timezone        string
	GatewayAPIKey   string
	GatewayDeviceID string
}

// HasGatewayCredential reports whether the workshop can deliver messages.
func (c WorkshopConfig) HasGatewayCredential() bool {
	return c.GatewayAPIKey != ""
}

// Service resolves dealerships, workshops, and their configuration
type Service struct {
	repo                Store
	fallbackOffsetHours int
}

// New creates a new tenants service. fallbackOffsetHours is the fixed UTC
// offset used for day computations when a workshop has no usable timezone.
func New(repo Store, fallbackOffsetHours int) *Service {
	return &Service{repo: repo, fallbackOffsetHours: fallbackOffsetHours}
}

// ResolveDealershipID resolves a dealership from the input identifiers.
func (s *Service) ResolveDealershipID(ctx context.Context, in ResolveInput) (uuid.UUID, error) {
	switch {
	case in.DealershipID != nil:
		dealership, err := s.repo.GetDealershipByID(ctx, *in.DealershipID)
		if err != nil {
			return uuid.Nil, err
		}
		return dealership.ID, nil
	case in.ClientID != nil:
		return s.repo.FindDealershipIDByClient(ctx, *in.ClientID)
	case in.DealershipPhone != "":
		return s.repo.FindDealershipIDByPhone(ctx, in.DealershipPhone)
	default:
		return uuid.Nil, apperr.NotFound("dealership could not be resolved")
	}
}

// ResolveWorkshopID validates the requested workshop or falls back to the
// dealership's main workshop.
func (s *Service) ResolveWorkshopID(ctx context.Context, dealershipID uuid.UUID, requested *uuid.UUID) (uuid.UUID, error) {
	if requested != nil {
		workshop, err := s.repo.GetWorkshopByID(ctx, *requested, dealershipID)
		if err != nil {
			return uuid.Nil, err
		}
		return workshop.ID, nil
	}

	workshop, err := s.repo.GetMainWorkshop(ctx, dealershipID)
	if err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			return uuid.Nil, apperr.NotFound("dealership has no main workshop")
		}
		return uuid.Nil, err
	}
	return workshop.ID, nil
}

// GetConfig resolves the workshop configuration for a dealership. A nil
// workshopID resolves the main workshop. Callers treat a NotFound as
// non-fatal for date computations (fixed-offset fallback) but fatal for
// gateway sends.
func (s *Service) GetConfig(ctx context.Context, dealershipID uuid.UUID, workshopID *uuid.UUID) (WorkshopConfig, error) {
	var workshop *repository.Workshop
	var err error

	if workshopID != nil {
		workshop, err = s.repo.GetWorkshopByID(ctx, *workshopID, dealershipID)
	} else {
		workshop, err = s.repo.GetMainWorkshop(ctx, dealershipID)
	}
	if err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			return WorkshopConfig{}, apperr.NotFound("workshop configuration not found")
		}
		return WorkshopConfig{}, err
	}

	cfg := WorkshopConfig{
		DealershipID: workshop.DealershipID,
		WorkshopID:   workshop.ID,
	}
	if workshop.Timezone != nil {
		cfg.Timezone = *workshop.Timezone
	}
	if workshop.GatewayAPIKey != nil {
		cfg.GatewayAPIKey = *workshop.GatewayAPIKey
	}
	if workshop.GatewayDeviceID != nil {
		cfg.GatewayDeviceID = *workshop.GatewayDeviceID
	}

	return cfg, nil
}

// Location resolves the IANA timezone of a workshop config, falling back to
// the fixed UTC offset when the zone is missing or unknown.
func (s *Service) Location(cfg WorkshopConfig) *time.Location {
	if cfg.Timezone != "" {
		if loc, err := time.LoadLocation(cfg.Timezone); err == nil {
			return loc
		}
	}
	return s.fallbackLocation()
}

// LocationFor resolves a dealership's timezone through its main workshop.
// Any resolution failure yields the fixed-offset fallback: day boundary
// computation must not abort a job.
func (s *Service) LocationFor(ctx context.Context, dealershipID uuid.UUID) *time.Location {
	cfg, err := s.GetConfig(ctx, dealershipID, nil)
	if err != nil {
		return s.fallbackLocation()
	}
	return s.Location(cfg)
}

// ListDealershipIDs returns all dealership ids for cross-tenant jobs.
func (s *Service) ListDealershipIDs(ctx context.Context) ([]uuid.UUID, error) {
	return s.repo.ListDealershipIDs(ctx)
}

func (s *Service) fallbackLocation() *time.Location {
	name := fmt.Sprintf("UTC%+d", s.fallbackOffsetHours)
	return time.FixedZone(name, s.fallbackOffsetHours*3600)
}
