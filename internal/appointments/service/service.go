package service

import (
	"context"
	"fmt"
	"time"

	"workshop_portal_backend/internal/appointments/repository"
	"workshop_portal_backend/platform/apperr"
	"workshop_portal_backend/platform/logger"

	"github.com/google/uuid"
)

// Store abstracts the appointment persistence operations the service needs.
type Store interface {
	GetByID(ctx context.Context, id uuid.UUID) (*repository.Appointment, error)
	ListExpired(ctx context.Context, before time.Time, dealershipID *uuid.UUID) ([]repository.Appointment, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status string) error
}

var validStatuses = map[string]bool{
	repository.StatusPending:    true,
	repository.StatusConfirmed:  true,
	repository.StatusInProgress: true,
	repository.StatusCompleted:  true,
	repository.StatusCancelled:  true,
}

// SweepDetail records the outcome for one appointment touched by the sweep.
type SweepDetail struct {
	AppointmentID uuid.UUID `json:"appointment_id"`
	DealershipID  uuid.UUID `json:"dealership_id"`
	Date          string    `json:"date"`
	FromStatus    string    `json:"from_status"`
	Status        string    `json:"status"` // "completed" | "failed"
	Error         string    `json:"error,omitempty"`
}

// SweepResult summarizes one expiry sweep.
type SweepResult struct {
	Expired int           `json:"expired"`
	Updated int           `json:"updated"`
	Failed  int           `json:"failed"`
	Details []SweepDetail `json:"details"`
}

// SweepInput carries the optional tenant filter and the reference time.
type SweepInput struct {
	DealershipID *uuid.UUID
	Now          time.Time
}

// Service owns appointment status transitions and the expiry sweep.
type Service struct {
	repo Store
	log  *logger.Logger
}

func New(repo Store, log *logger.Logger) *Service {
	return &Service{repo: repo, log: log}
}

// UpdateStatus validates and applies a status transition for one appointment.
func (s *Service) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	if !validStatuses[status] {
		return apperr.Validation(fmt.Sprintf("invalid appointment status: %s", status))
	}
	return s.repo.UpdateStatus(ctx, id, status)
}

// SweepExpired moves appointments dated before today that are still pending
// or confirmed to completed. Rows whose update fails are reported but do not
// stop the sweep.
func (s *Service) SweepExpired(ctx context.Context, in SweepInput) (*SweepResult, error) {
	now := in.Now
	if now.IsZero() {
		now = time.Now()
	}
	utc := now.UTC()
	today := time.Date(utc.Year(), utc.Month(), utc.Day(), 0, 0, 0, 0, time.UTC)

	expired, err := s.repo.ListExpired(ctx, today, in.DealershipID)
	if err != nil {
		return nil, fmt.Errorf("failed to list expired appointments: %w", err)
	}

	result := &SweepResult{Expired: len(expired), Details: make([]SweepDetail, 0, len(expired))}
	for _, appt := range expired {
		detail := SweepDetail{
			AppointmentID: appt.ID,
			DealershipID:  appt.DealershipID,
			Date:          appt.Date.Format("2006-01-02"),
			FromStatus:    appt.Status,
		}
		if err := s.UpdateStatus(ctx, appt.ID, repository.StatusCompleted); err != nil {
			s.log.DatabaseError("appointments.sweep_expired", err)
			detail.Status = "failed"
			detail.Error = err.Error()
			result.Failed++
		} else {
			detail.Status = repository.StatusCompleted
			result.Updated++
		}
		result.Details = append(result.Details, detail)
	}

	s.log.JobResult("appointments.sweep_expired", result.Expired, result.Updated, result.Failed)
	return result, nil
}
