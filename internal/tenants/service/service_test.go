package service

import (
	"context"
	"testing"
	"time"

	"workshop_portal_backend/internal/tenants/repository"
	"workshop_portal_backend/platform/apperr"

	"github.com/google/uuid"
)

type fakeStore struct {
	dealerships map[uuid.UUID]*repository.Dealership
	byPhone     map[string]uuid.UUID
	byClient    map[uuid.UUID]uuid.UUID
	mainShops   map[uuid.UUID]*repository.Workshop
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		dealerships: make(map[uuid.UUID]*repository.Dealership),
		byPhone:     make(map[string]uuid.UUID),
		byClient:    make(map[uuid.UUID]uuid.UUID),
		mainShops:   make(map[uuid.UUID]*repository.Workshop),
	}
}

func (f *fakeStore) GetDealershipByID(_ context.Context, id uuid.UUID) (*repository.Dealership, error) {
	if d, ok := f.dealerships[id]; ok {
		return d, nil
	}
	return nil, apperr.NotFound("dealership not found")
}

func (f *fakeStore) FindDealershipIDByPhone(_ context.Context, phoneLocal string) (uuid.UUID, error) {
	if id, ok := f.byPhone[phoneLocal]; ok {
		return id, nil
	}
	return uuid.Nil, apperr.NotFound("dealership not found")
}

func (f *fakeStore) FindDealershipIDByClient(_ context.Context, clientID uuid.UUID) (uuid.UUID, error) {
	if id, ok := f.byClient[clientID]; ok {
		return id, nil
	}
	return uuid.Nil, apperr.NotFound("client not found")
}

func (f *fakeStore) GetMainWorkshop(_ context.Context, dealershipID uuid.UUID) (*repository.Workshop, error) {
	if w, ok := f.mainShops[dealershipID]; ok {
		return w, nil
	}
	return nil, apperr.NotFound("workshop not found")
}

func (f *fakeStore) GetWorkshopByID(_ context.Context, id, dealershipID uuid.UUID) (*repository.Workshop, error) {
	if w, ok := f.mainShops[dealershipID]; ok && w.ID == id {
		return w, nil
	}
	return nil, apperr.NotFound("workshop not found")
}

func (f *fakeStore) ListDealershipIDs(_ context.Context) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	for id := range f.dealerships {
		ids = append(ids, id)
	}
	return ids, nil
}

func strPtr(s string) *string { return &s }

func TestResolveDealershipID_ExplicitIDWins(t *testing.T) {
	store := newFakeStore()
	explicit := uuid.New()
	other := uuid.New()
	clientID := uuid.New()
	store.dealerships[explicit] = &repository.Dealership{ID: explicit}
	store.byClient[clientID] = other

	svc := New(store, -6)

	got, err := svc.ResolveDealershipID(context.Background(), ResolveInput{
		DealershipID: &explicit,
		ClientID:     &clientID,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != explicit {
		t.Fatalf("expected explicit id to win, got %s", got)
	}
}

func TestResolveDealershipID_ClientBeforePhone(t *testing.T) {
	store := newFakeStore()
	byClient := uuid.New()
	byPhone := uuid.New()
	clientID := uuid.New()
	store.byClient[clientID] = byClient
	store.byPhone["5512345678"] = byPhone

	svc := New(store, -6)

	got, err := svc.ResolveDealershipID(context.Background(), ResolveInput{
		ClientID:        &clientID,
		DealershipPhone: "5512345678",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != byClient {
		t.Fatalf("expected client lookup to win, got %s", got)
	}
}

func TestResolveDealershipID_NoIdentifiers(t *testing.T) {
	svc := New(newFakeStore(), -6)

	if _, err := svc.ResolveDealershipID(context.Background(), ResolveInput{}); !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestGetConfig_MainWorkshopFields(t *testing.T) {
	store := newFakeStore()
	dealership := uuid.New()
	workshop := uuid.New()
	store.mainShops[dealership] = &repository.Workshop{
		ID:              workshop,
		DealershipID:    dealership,
		IsMain:          true,
		Timezone:        strPtr("America/Mexico_City"),
		GatewayAPIKey:   strPtr("key"),
		GatewayDeviceID: strPtr("device"),
	}

	svc := New(store, -6)

	cfg, err := svc.GetConfig(context.Background(), dealership, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.WorkshopID != workshop {
		t.Fatalf("expected main workshop resolved, got %s", cfg.WorkshopID)
	}
	if cfg.Timezone != "America/Mexico_City" {
		t.Fatalf("unexpected timezone: %s", cfg.Timezone)
	}
	if !cfg.HasGatewayCredential() {
		t.Fatal("expected gateway credential present")
	}
}

func TestGetConfig_MissingWorkshopIsNotFound(t *testing.T) {
	svc := New(newFakeStore(), -6)

	if _, err := svc.GetConfig(context.Background(), uuid.New(), nil); !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestLocation_ValidZone(t *testing.T) {
	svc := New(newFakeStore(), -6)

	loc := svc.Location(WorkshopConfig{Timezone: "America/Mexico_City"})
	if loc.String() != "America/Mexico_City" {
		t.Fatalf("unexpected location: %s", loc)
	}
}

func TestLocation_UnknownZoneFallsBack(t *testing.T) {
	svc := New(newFakeStore(), -6)

	loc := svc.Location(WorkshopConfig{Timezone: "Not/AZone"})
	ref := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	if got := ref.In(loc).Hour(); got != 6 {
		t.Fatalf("expected UTC-6 fallback (hour 6), got %d", got)
	}
}

func TestLocationFor_MissingWorkshopFallsBack(t *testing.T) {
	svc := New(newFakeStore(), -6)

	loc := svc.LocationFor(context.Background(), uuid.New())
	if loc == nil {
		t.Fatal("expected fallback location, got nil")
	}
	ref := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	if got := ref.In(loc).Hour(); got != 6 {
		t.Fatalf("expected UTC-6 fallback (hour 6), got %d", got)
	}
}
