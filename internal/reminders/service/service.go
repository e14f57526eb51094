// Package service implements the reminder dispatch pipeline: claim due work
// items one per dealership, render their templates, deliver through the
// messaging gateway, and record terminal state per attempt.
package service

import (
	"context"
	"time"

	"workshop_portal_backend/platform/apperr"
	"workshop_portal_backend/platform/logger"
	"workshop_portal_backend/platform/phone"
	"workshop_portal_backend/platform/template"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"workshop_portal_backend/internal/messages"
	"workshop_portal_backend/internal/reminders/repository"
	tenantsvc "workshop_portal_backend/internal/tenants/service"
	"workshop_portal_backend/internal/whatsapp"
)

const defaultDispatchConcurrency = 8

// Store is the subset of the reminders repository the pipeline depends on.
type Store interface {
	ListDueByDay(ctx context.Context, day time.Time, dealershipID *uuid.UUID) ([]repository.WorkItem, error)
	ClaimPending(ctx context.Context, id uuid.UUID) (bool, error)
	GetDeliveryDetails(ctx context.Context, id uuid.UUID) (*repository.DeliveryDetails, error)
	GetActiveTemplate(ctx context.Context, dealershipID uuid.UUID, kind string) (string, error)
	MarkSent(ctx context.Context, id uuid.UUID, gatewayMessageID string) error
	MarkFailed(ctx context.Context, id uuid.UUID, errText string) error
	ReleaseStuckProcessing(ctx context.Context, olderThan time.Time) (int64, error)
}

// ConfigResolver resolves a dealership's workshop configuration.
type ConfigResolver interface {
	GetConfig(ctx context.Context, dealershipID uuid.UUID, workshopID *uuid.UUID) (tenantsvc.WorkshopConfig, error)
}

// Gateway delivers a rendered message to a gateway-form phone number.
type Gateway interface {
	SendMessage(ctx context.Context, creds whatsapp.Credentials, phoneNumber, message string) (string, error)
}

// HistoryRecorder appends delivered-message history. Best-effort: the
// pipeline logs append failures and keeps the item sent.
type HistoryRecorder interface {
	Append(ctx context.Context, rec messages.Record) error
}

// Detail is the per-item outcome of one dispatch tick.
type Detail struct {
	ReminderID   uuid.UUID `json:"reminder_id"`
	DealershipID uuid.UUID `json:"dealership_id"`
	Kind         string    `json:"kind"`
	Status       string    `json:"status"` // sent | failed | skipped
	Error        string    `json:"error,omitempty"`
}

// RunResult aggregates one dispatch invocation.
type RunResult struct {
	Date        string
	Processed   int
	Sent        int
	Failed      int
	Dealerships []uuid.UUID
	Details     []Detail
}

// DispatchInput parameterizes one dispatch tick.
type DispatchInput struct {
	// DealershipID restricts the tick to one dealership when set.
	DealershipID *uuid.UUID
	// Now is the tick time; zero means time.Now().
	Now time.Time
}

// Service runs the reminder dispatch pipeline
type Service struct {
	repo        Store
	tenants     ConfigResolver
	gateway     Gateway
	history     HistoryRecorder
	log         *logger.Logger
	concurrency int
}

// New creates a new reminders service. history may be nil (no recording).
func New(repo Store, tenants ConfigResolver, gateway Gateway, history HistoryRecorder, log *logger.Logger, concurrency int) *Service {
	if concurrency < 1 {
		concurrency = defaultDispatchConcurrency
	}
	return &Service{
		repo:        repo,
		tenants:     tenants,
		gateway:     gateway,
		history:     history,
		log:         log,
		concurrency: concurrency,
	}
}

// DispatchDue runs one dispatch tick. It selects the oldest pending reminder
// per dealership scheduled for today (UTC day at batch level), delivers the
// selected items concurrently across dealerships, and isolates every item's
// failure from its siblings. Only a failed discovery query aborts the run.
func (s *Service) DispatchDue(ctx context.Context, in DispatchInput) (*RunResult, error) {
	now := in.Now
	if now.IsZero() {
		now = time.Now()
	}
	day := now.UTC().Truncate(24 * time.Hour)

	due, err := s.repo.ListDueByDay(ctx, day, in.DealershipID)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "reminder discovery failed", err)
	}

	selected := selectOldestPerDealership(due)

	result := &RunResult{
		Date:    day.Format("2006-01-02"),
		Details: make([]Detail, len(selected)),
	}
	if len(selected) == 0 {
		result.Details = nil
		return result, nil
	}

	// One item per dealership bounds the fan-out to one in-flight gateway
	// call per active tenant; the group limit caps it further.
	g, gctx := errgroup.WithContext(context.WithoutCancel(ctx))
	g.SetLimit(s.concurrency)
	for i, item := range selected {
		g.Go(func() error {
			result.Details[i] = s.dispatchOne(gctx, item)
			return nil
		})
	}
	_ = g.Wait()

	seen := make(map[uuid.UUID]bool)
	for _, detail := range result.Details {
		switch detail.Status {
		case repository.StatusSent:
			result.Processed++
			result.Sent++
		case repository.StatusFailed:
			result.Processed++
			result.Failed++
		}
		if !seen[detail.DealershipID] {
			seen[detail.DealershipID] = true
			result.Dealerships = append(result.Dealerships, detail.DealershipID)
		}
	}

	s.log.JobResult("reminders.dispatch", result.Processed, result.Sent, result.Failed)
	return result, nil
}

// ReleaseStuck requeues reminders left processing beyond age. Attempts that
// die mid-flight must not hold their row forever.
func (s *Service) ReleaseStuck(ctx context.Context, age time.Duration) (int64, error) {
	released, err := s.repo.ReleaseStuckProcessing(ctx, time.Now().Add(-age))
	if err != nil {
		return 0, err
	}
	if released > 0 {
		s.log.Warn("requeued stuck reminders", "count", released)
	}
	return released, nil
}

func (s *Service) dispatchOne(ctx context.Context, item repository.WorkItem) Detail {
	detail := Detail{
		ReminderID:   item.ID,
		DealershipID: item.DealershipID,
		Kind:         item.Kind,
	}

	// State marks survive a timed-out attempt; a timeout is a failed item,
	// never one left processing.
	markCtx := context.WithoutCancel(ctx)

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	claimed, err := s.repo.ClaimPending(ctx, item.ID)
	if err != nil {
		return s.fail(markCtx, detail, "claim failed: "+err.Error())
	}
	if !claimed {
		// Another tick got here first.
		detail.Status = "skipped"
		return detail
	}

	cfg, err := s.tenants.GetConfig(ctx, item.DealershipID, nil)
	if err != nil {
		return s.fail(markCtx, detail, "workshop config: "+err.Error())
	}
	if !cfg.HasGatewayCredential() {
		return s.fail(markCtx, detail, "missing gateway credential")
	}

	delivery, err := s.repo.GetDeliveryDetails(ctx, item.ID)
	if err != nil {
		return s.fail(markCtx, detail, "delivery details: "+err.Error())
	}

	body, err := s.renderBody(ctx, item, delivery)
	if err != nil {
		return s.fail(markCtx, detail, err.Error())
	}

	// Canonicalize to the 10-digit national form first so the gateway trunk
	// prefix applies regardless of how the number was stored.
	local, err := phone.ToLocalForm(phone.NormalizeE164(delivery.ClientPhone))
	if err != nil {
		return s.fail(markCtx, detail, "invalid phone: "+delivery.ClientPhone)
	}
	destination := phone.ToGatewayForm(local)
	if !phone.IsGatewayDeliverable(destination) {
		return s.fail(markCtx, detail, "invalid phone: "+delivery.ClientPhone)
	}

	messageID, err := s.gateway.SendMessage(ctx, whatsapp.Credentials{
		APIKey:   cfg.GatewayAPIKey,
		DeviceID: cfg.GatewayDeviceID,
	}, destination, body)
	if err != nil {
		s.log.GatewayError(item.DealershipID.String(), destination, err)
		return s.fail(markCtx, detail, err.Error())
	}

	if err := s.repo.MarkSent(markCtx, item.ID, messageID); err != nil {
		s.log.DatabaseError("mark reminder sent", err)
	}

	if s.history != nil {
		if err := s.history.Append(markCtx, messages.Record{
			DealershipID:     item.DealershipID,
			Phone:            destination,
			Body:             body,
			Kind:             item.Kind,
			GatewayMessageID: messageID,
		}); err != nil {
			s.log.Warn("message history append failed", "reminder_id", item.ID, "error", err)
		}
	}

	detail.Status = repository.StatusSent
	return detail
}

func (s *Service) renderBody(ctx context.Context, item repository.WorkItem, delivery *repository.DeliveryDetails) (string, error) {
	tpl, err := s.repo.GetActiveTemplate(ctx, item.DealershipID, item.Kind)
	if err != nil {
		return "", err
	}

	data := map[string]any{
		"client_name": delivery.ClientName,
		"vehicle":     delivery.Vehicle,
		"plate":       delivery.Plate,
		"vin":         delivery.VIN,
		"service":     delivery.ServiceName,
		"date":        delivery.AppointmentDate,
		"time":        delivery.AppointmentTime,
		"workshop":    delivery.WorkshopName,
	}

	return template.Render(tpl, data), nil
}

func (s *Service) fail(ctx context.Context, detail Detail, reason string) Detail {
	if err := s.repo.MarkFailed(ctx, detail.ReminderID, reason); err != nil {
		s.log.DatabaseError("mark reminder failed", err)
	}
	detail.Status = repository.StatusFailed
	detail.Error = reason
	return detail
}

// selectOldestPerDealership enforces the one-delivery-per-tenant-per-tick
// throttle. Input is ordered by creation time, so the first item seen for a
// dealership is its oldest pending one.
func selectOldestPerDealership(items []repository.WorkItem) []repository.WorkItem {
	var selected []repository.WorkItem
	taken := make(map[uuid.UUID]bool)
	for _, item := range items {
		if taken[item.DealershipID] {
			continue
		}
		taken[item.DealershipID] = true
		selected = append(selected, item)
	}
	return selected
}
