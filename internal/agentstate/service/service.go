// Package service implements the agent-state orchestrator: three daily jobs
// that derive the desired per-(phone, dealership) agent toggle from
// appointment and prior-setting data, all converging on one idempotent
// upsert primitive.
package service

import (
	"context"
	"sync"
	"time"

	"workshop_portal_backend/platform/apperr"
	"workshop_portal_backend/platform/logger"
	"workshop_portal_backend/platform/phone"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"workshop_portal_backend/internal/agentstate/repository"
)

// Actors recorded on upserts written by this orchestrator.
const (
	ActorCron                 = "cron"
	ActorCronManualReactivate = "cron_dealership_worker_reactivate"
)

// UpdatedByWorker marks a human-initiated deactivation. Those auto-expire
// after the grace window so an unattended toggle cannot cut a customer off
// from the agent permanently.
const UpdatedByWorker = "dealership_worker"

// manualReactivationGrace is the window after a manual deactivation before
// the orchestrator flips the agent back on.
const manualReactivationGrace = 48 * time.Hour

var appointmentDayStatuses = []string{"pending", "confirmed"}

// Store is the subset of the agentstate repository the jobs depend on.
type Store interface {
	Upsert(ctx context.Context, p repository.UpsertParams) error
	ListStaleManualDeactivations(ctx context.Context, cutoff time.Time, dealershipID *uuid.UUID) ([]repository.Setting, error)
	ListAppointmentDayClients(ctx context.Context, dealershipID uuid.UUID, day time.Time, statuses []string) ([]string, error)
	ListHonoredAppointmentClients(ctx context.Context, dealershipID uuid.UUID, day time.Time) ([]string, error)
}

// TenantDirectory resolves the dealership set and their local timezones.
type TenantDirectory interface {
	ListDealershipIDs(ctx context.Context) ([]uuid.UUID, error)
	LocationFor(ctx context.Context, dealershipID uuid.UUID) *time.Location
}

// TargetDetail is the per-target outcome of one orchestrator run.
type TargetDetail struct {
	DealershipID uuid.UUID `json:"dealership_id"`
	Phone        string    `json:"phone"`
	AgentActive  bool      `json:"agent_active"`
	Status       string    `json:"status"` // ok | error
	Error        string    `json:"error,omitempty"`
}

// RunResult aggregates one orchestrator job run.
type RunResult struct {
	Date        string
	Processed   int
	Succeeded   int
	Failed      int
	Dealerships []uuid.UUID
	Details     []TargetDetail
}

// JobInput parameterizes one orchestrator run.
type JobInput struct {
	// DealershipID restricts the run to one dealership when set.
	DealershipID *uuid.UUID
	// Now is the run time; zero means time.Now().
	Now time.Time
}

// Service runs the agent-state orchestrator jobs
type Service struct {
	repo    Store
	tenants TenantDirectory
	log     *logger.Logger
}

// New creates a new agentstate service
func New(repo Store, tenants TenantDirectory, log *logger.Logger) *Service {
	return &Service{repo: repo, tenants: tenants, log: log}
}

// SetAgentActive is the idempotent upsert primitive every job and the manual
// admin path converge on. phoneRaw is canonicalized to the 10-digit local
// form before the write; a phone that cannot be canonicalized is rejected.
func (s *Service) SetAgentActive(ctx context.Context, phoneRaw string, dealershipID uuid.UUID, active bool, note, actor string) error {
	local, err := phone.ToLocalForm(phoneRaw)
	if err != nil {
		return err
	}

	return s.repo.Upsert(ctx, repository.UpsertParams{
		PhoneNumber:  local,
		DealershipID: dealershipID,
		AgentActive:  active,
		Note:         note,
		Actor:        actor,
	})
}

// DeactivateForTodaysAppointments turns the agent off for every client with
// a pending or confirmed appointment today (tenant-local day), so staff can
// run the conversation on the appointment day itself.
func (s *Service) DeactivateForTodaysAppointments(ctx context.Context, in JobInput) (*RunResult, error) {
	return s.runAppointmentDayJob(ctx, in, "agent.deactivate_appointment_day", 0, func(ctx context.Context, dealershipID uuid.UUID, day time.Time) ([]string, error) {
		return s.repo.ListAppointmentDayClients(ctx, dealershipID, day, appointmentDayStatuses)
	}, false, "appointment scheduled today")
}

// ReactivateAfterYesterday turns the agent back on for every client whose
// appointment yesterday (tenant-local) was not cancelled. Any honored
// appointment restores agent assistance regardless of completion.
func (s *Service) ReactivateAfterYesterday(ctx context.Context, in JobInput) (*RunResult, error) {
	return s.runAppointmentDayJob(ctx, in, "agent.reactivate_after_appointments", -1, func(ctx context.Context, dealershipID uuid.UUID, day time.Time) ([]string, error) {
		return s.repo.ListHonoredAppointmentClients(ctx, dealershipID, day)
	}, true, "appointment day passed")
}

// ReactivateStaleManual re-enables the agent on settings a dealership worker
// switched off more than the grace window ago.
func (s *Service) ReactivateStaleManual(ctx context.Context, in JobInput) (*RunResult, error) {
	now := in.Now
	if now.IsZero() {
		now = time.Now()
	}
	cutoff := now.Add(-manualReactivationGrace)

	settings, err := s.repo.ListStaleManualDeactivations(ctx, cutoff, in.DealershipID)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "stale deactivation discovery failed", err)
	}

	result := &RunResult{Date: now.UTC().Format("2006-01-02")}
	seen := make(map[uuid.UUID]bool)
	for _, setting := range settings {
		detail := TargetDetail{
			DealershipID: setting.DealershipID,
			Phone:        setting.PhoneNumber,
			AgentActive:  true,
			Status:       "ok",
		}

		err := s.repo.Upsert(ctx, repository.UpsertParams{
			PhoneNumber:  setting.PhoneNumber,
			DealershipID: setting.DealershipID,
			AgentActive:  true,
			Note:         "manual deactivation expired",
			Actor:        ActorCronManualReactivate,
		})
		result.Processed++
		if err != nil {
			detail.Status = "error"
			detail.Error = err.Error()
			result.Failed++
		} else {
			result.Succeeded++
		}

		if !seen[setting.DealershipID] {
			seen[setting.DealershipID] = true
			result.Dealerships = append(result.Dealerships, setting.DealershipID)
		}
		result.Details = append(result.Details, detail)
	}

	s.log.JobResult("agent.reactivate_manual", result.Processed, result.Succeeded, result.Failed)
	return result, nil
}

// runAppointmentDayJob walks dealerships concurrently, computes the target
// day in each dealership's local zone, and applies the toggle to every
// matched client with per-target failure isolation.
func (s *Service) runAppointmentDayJob(
	ctx context.Context,
	in JobInput,
	jobName string,
	dayOffset int,
	list func(ctx context.Context, dealershipID uuid.UUID, day time.Time) ([]string, error),
	active bool,
	note string,
) (*RunResult, error) {
	now := in.Now
	if now.IsZero() {
		now = time.Now()
	}

	var dealerships []uuid.UUID
	if in.DealershipID != nil {
		dealerships = []uuid.UUID{*in.DealershipID}
	} else {
		var err error
		dealerships, err = s.tenants.ListDealershipIDs(ctx)
		if err != nil {
			return nil, apperr.Wrap(apperr.KindInternal, "dealership discovery failed", err)
		}
	}

	result := &RunResult{Date: now.UTC().Format("2006-01-02")}
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(context.WithoutCancel(ctx))
	g.SetLimit(8)
	for _, dealershipID := range dealerships {
		g.Go(func() error {
			details := s.applyForDealership(gctx, dealershipID, now, dayOffset, list, active, note)
			if len(details) == 0 {
				return nil
			}

			mu.Lock()
			defer mu.Unlock()
			result.Dealerships = append(result.Dealerships, dealershipID)
			for _, detail := range details {
				result.Processed++
				if detail.Status == "ok" {
					result.Succeeded++
				} else {
					result.Failed++
				}
				result.Details = append(result.Details, detail)
			}
			return nil
		})
	}
	_ = g.Wait()

	s.log.JobResult(jobName, result.Processed, result.Succeeded, result.Failed)
	return result, nil
}

func (s *Service) applyForDealership(
	ctx context.Context,
	dealershipID uuid.UUID,
	now time.Time,
	dayOffset int,
	list func(ctx context.Context, dealershipID uuid.UUID, day time.Time) ([]string, error),
	active bool,
	note string,
) []TargetDetail {
	loc := s.tenants.LocationFor(ctx, dealershipID)
	local := now.In(loc).AddDate(0, 0, dayOffset)
	day := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, time.UTC)

	phones, err := list(ctx, dealershipID, day)
	if err != nil {
		// One dealership's query failure must not sink the others.
		s.log.DatabaseError("list appointment clients", err)
		return []TargetDetail{{
			DealershipID: dealershipID,
			AgentActive:  active,
			Status:       "error",
			Error:        err.Error(),
		}}
	}

	details := make([]TargetDetail, 0, len(phones))
	for _, rawPhone := range phones {
		detail := TargetDetail{
			DealershipID: dealershipID,
			Phone:        rawPhone,
			AgentActive:  active,
			Status:       "ok",
		}
		if err := s.SetAgentActive(ctx, rawPhone, dealershipID, active, note, ActorCron); err != nil {
			detail.Status = "error"
			detail.Error = err.Error()
		}
		details = append(details, detail)
	}
	return details
}
