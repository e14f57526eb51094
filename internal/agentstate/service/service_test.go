package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"workshop_portal_backend/internal/agentstate/repository"
	"workshop_portal_backend/platform/logger"

	"github.com/google/uuid"
)

type fakeStore struct {
	mu          sync.Mutex
	upserts     []repository.UpsertParams
	upsertErr   map[string]error
	stale       []repository.Setting
	staleErr    error
	dayClients  map[uuid.UUID][]string
	honored     map[uuid.UUID][]string
	listErrFor  map[uuid.UUID]error
	requestDays map[uuid.UUID]time.Time
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		upsertErr:   make(map[string]error),
		dayClients:  make(map[uuid.UUID][]string),
		honored:     make(map[uuid.UUID][]string),
		listErrFor:  make(map[uuid.UUID]error),
		requestDays: make(map[uuid.UUID]time.Time),
	}
}

func (f *fakeStore) Upsert(_ context.Context, p repository.UpsertParams) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.upsertErr[p.PhoneNumber]; ok {
		return err
	}
	f.upserts = append(f.upserts, p)
	return nil
}

func (f *fakeStore) ListStaleManualDeactivations(_ context.Context, cutoff time.Time, _ *uuid.UUID) ([]repository.Setting, error) {
	if f.staleErr != nil {
		return nil, f.staleErr
	}
	// Filters like the SQL it stands in for: updated_at < cutoff.
	var matched []repository.Setting
	for _, setting := range f.stale {
		if setting.UpdatedAt.Before(cutoff) {
			matched = append(matched, setting)
		}
	}
	return matched, nil
}

func (f *fakeStore) ListAppointmentDayClients(_ context.Context, dealershipID uuid.UUID, day time.Time, _ []string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.listErrFor[dealershipID]; ok {
		return nil, err
	}
	f.requestDays[dealershipID] = day
	return f.dayClients[dealershipID], nil
}

func (f *fakeStore) ListHonoredAppointmentClients(_ context.Context, dealershipID uuid.UUID, day time.Time) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requestDays[dealershipID] = day
	return f.honored[dealershipID], nil
}

type fakeTenants struct {
	ids       []uuid.UUID
	locations map[uuid.UUID]*time.Location
}

func (f *fakeTenants) ListDealershipIDs(_ context.Context) ([]uuid.UUID, error) {
	return f.ids, nil
}

func (f *fakeTenants) LocationFor(_ context.Context, dealershipID uuid.UUID) *time.Location {
	if loc, ok := f.locations[dealershipID]; ok {
		return loc
	}
	return time.FixedZone("UTC-6", -6*3600)
}

func newTestService(store *fakeStore, tenants *fakeTenants) *Service {
	return New(store, tenants, logger.New("development"))
}

func TestSetAgentActive_CanonicalizesPhone(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store, &fakeTenants{})
	dealership := uuid.New()

	err := svc.SetAgentActive(context.Background(), "+52 1 55 1234 5678", dealership, false, "note", UpdatedByWorker)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(store.upserts) != 1 {
		t.Fatalf("expected 1 upsert, got %d", len(store.upserts))
	}
	if store.upserts[0].PhoneNumber != "5512345678" {
		t.Fatalf("expected canonical phone 5512345678, got %s", store.upserts[0].PhoneNumber)
	}
}

func TestSetAgentActive_RejectsInvalidPhone(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store, &fakeTenants{})

	if err := svc.SetAgentActive(context.Background(), "123", uuid.New(), false, "", UpdatedByWorker); err == nil {
		t.Fatal("expected error for short phone")
	}
	if len(store.upserts) != 0 {
		t.Fatal("expected no upsert for invalid phone")
	}
}

func TestDeactivateForTodaysAppointments_TogglesOff(t *testing.T) {
	dealership := uuid.New()
	store := newFakeStore()
	store.dayClients[dealership] = []string{"5512345678", "5587654321"}
	tenants := &fakeTenants{ids: []uuid.UUID{dealership}}

	svc := newTestService(store, tenants)

	result, err := svc.DeactivateForTodaysAppointments(context.Background(), JobInput{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Processed != 2 || result.Succeeded != 2 {
		t.Fatalf("expected 2 processed/succeeded, got %d/%d", result.Processed, result.Succeeded)
	}
	for _, up := range store.upserts {
		if up.AgentActive {
			t.Fatal("expected agent toggled off")
		}
		if up.Actor != ActorCron {
			t.Fatalf("expected cron actor, got %s", up.Actor)
		}
	}
}

func TestDeactivateForTodaysAppointments_UsesTenantLocalDay(t *testing.T) {
	dealership := uuid.New()
	store := newFakeStore()
	tokyo, err := time.LoadLocation("Asia/Tokyo")
	if err != nil {
		t.Fatalf("load location: %v", err)
	}
	tenants := &fakeTenants{
		ids:       []uuid.UUID{dealership},
		locations: map[uuid.UUID]*time.Location{dealership: tokyo},
	}

	svc := newTestService(store, tenants)

	// 2026-03-15 23:00 UTC is already 2026-03-16 in Tokyo.
	now := time.Date(2026, 3, 15, 23, 0, 0, 0, time.UTC)
	if _, err := svc.DeactivateForTodaysAppointments(context.Background(), JobInput{Now: now}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	day := store.requestDays[dealership]
	want := time.Date(2026, 3, 16, 0, 0, 0, 0, time.UTC)
	if !day.Equal(want) {
		t.Fatalf("expected tenant-local day %v, got %v", want, day)
	}
}

func TestDeactivateForTodaysAppointments_FallbackOffsetDay(t *testing.T) {
	dealership := uuid.New()
	store := newFakeStore()
	tenants := &fakeTenants{ids: []uuid.UUID{dealership}}

	svc := newTestService(store, tenants)

	// 2026-03-16 03:00 UTC is still 2026-03-15 at UTC-6.
	now := time.Date(2026, 3, 16, 3, 0, 0, 0, time.UTC)
	if _, err := svc.DeactivateForTodaysAppointments(context.Background(), JobInput{Now: now}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	day := store.requestDays[dealership]
	want := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)
	if !day.Equal(want) {
		t.Fatalf("expected fallback-offset day %v, got %v", want, day)
	}
}

func TestDeactivateForTodaysAppointments_DealershipFailureIsolated(t *testing.T) {
	broken := uuid.New()
	healthy := uuid.New()
	store := newFakeStore()
	store.listErrFor[broken] = errors.New("query failed")
	store.dayClients[healthy] = []string{"5512345678"}
	tenants := &fakeTenants{ids: []uuid.UUID{broken, healthy}}

	svc := newTestService(store, tenants)

	result, err := svc.DeactivateForTodaysAppointments(context.Background(), JobInput{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Succeeded != 1 || result.Failed != 1 {
		t.Fatalf("expected 1 succeeded and 1 failed, got %d/%d", result.Succeeded, result.Failed)
	}
	if len(store.upserts) != 1 {
		t.Fatalf("expected the healthy dealership's upsert, got %d", len(store.upserts))
	}
}

func TestReactivateAfterYesterday_TogglesOnForYesterday(t *testing.T) {
	dealership := uuid.New()
	store := newFakeStore()
	store.honored[dealership] = []string{"5512345678"}
	tenants := &fakeTenants{ids: []uuid.UUID{dealership}}

	svc := newTestService(store, tenants)

	// Noon UTC-6 on 2026-03-16; yesterday is 2026-03-15.
	now := time.Date(2026, 3, 16, 18, 0, 0, 0, time.UTC)
	result, err := svc.ReactivateAfterYesterday(context.Background(), JobInput{Now: now})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Succeeded != 1 {
		t.Fatalf("expected 1 succeeded, got %d", result.Succeeded)
	}
	if !store.upserts[0].AgentActive {
		t.Fatal("expected agent toggled on")
	}

	day := store.requestDays[dealership]
	want := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)
	if !day.Equal(want) {
		t.Fatalf("expected yesterday %v, got %v", want, day)
	}
}

func TestReactivateStaleManual_OnlyPastGraceWindow(t *testing.T) {
	dealership := uuid.New()
	now := time.Date(2026, 3, 16, 12, 0, 0, 0, time.UTC)

	store := newFakeStore()
	store.stale = []repository.Setting{
		{PhoneNumber: "5512345678", DealershipID: dealership, AgentActive: false, UpdatedBy: UpdatedByWorker, UpdatedAt: now.Add(-49 * time.Hour)},
		{PhoneNumber: "5587654321", DealershipID: dealership, AgentActive: false, UpdatedBy: UpdatedByWorker, UpdatedAt: now.Add(-47 * time.Hour)},
	}

	svc := newTestService(store, &fakeTenants{})

	result, err := svc.ReactivateStaleManual(context.Background(), JobInput{Now: now})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Processed != 1 || result.Succeeded != 1 {
		t.Fatalf("expected only the 49h-old setting swept, got %d/%d", result.Processed, result.Succeeded)
	}
	if len(store.upserts) != 1 {
		t.Fatalf("expected 1 upsert, got %d", len(store.upserts))
	}
	up := store.upserts[0]
	if up.PhoneNumber != "5512345678" {
		t.Fatalf("expected the 49h-old phone reactivated, got %s", up.PhoneNumber)
	}
	if !up.AgentActive {
		t.Fatal("expected reactivation")
	}
	if up.Actor != ActorCronManualReactivate {
		t.Fatalf("expected manual-reactivate actor, got %s", up.Actor)
	}
}

func TestReactivateStaleManual_UpsertFailureCounted(t *testing.T) {
	dealership := uuid.New()
	now := time.Now()

	store := newFakeStore()
	store.stale = []repository.Setting{
		{PhoneNumber: "5512345678", DealershipID: dealership, UpdatedBy: UpdatedByWorker, UpdatedAt: now.Add(-72 * time.Hour)},
		{PhoneNumber: "5587654321", DealershipID: dealership, UpdatedBy: UpdatedByWorker, UpdatedAt: now.Add(-72 * time.Hour)},
	}
	store.upsertErr["5512345678"] = errors.New("write failed")

	svc := newTestService(store, &fakeTenants{})

	result, err := svc.ReactivateStaleManual(context.Background(), JobInput{Now: now})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Processed != 2 || result.Succeeded != 1 || result.Failed != 1 {
		t.Fatalf("unexpected counts: %d/%d/%d", result.Processed, result.Succeeded, result.Failed)
	}
}

func TestReactivateStaleManual_DiscoveryErrorAborts(t *testing.T) {
	store := newFakeStore()
	store.staleErr = errors.New("connection refused")

	svc := newTestService(store, &fakeTenants{})

	if _, err := svc.ReactivateStaleManual(context.Background(), JobInput{}); err == nil {
		t.Fatal("expected discovery error to abort the run")
	}
}
