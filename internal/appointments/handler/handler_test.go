package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"workshop_portal_backend/internal/appointments/repository"
	"workshop_portal_backend/internal/appointments/service"
	"workshop_portal_backend/platform/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type fakeStore struct {
	expired      []repository.Appointment
	listedFilter *uuid.UUID
	updated      []uuid.UUID
	updateErr    map[uuid.UUID]error
}

func (f *fakeStore) GetByID(_ context.Context, id uuid.UUID) (*repository.Appointment, error) {
	for i := range f.expired {
		if f.expired[i].ID == id {
			return &f.expired[i], nil
		}
	}
	return nil, nil
}

func (f *fakeStore) ListExpired(_ context.Context, _ time.Time, dealershipID *uuid.UUID) ([]repository.Appointment, error) {
	f.listedFilter = dealershipID
	if dealershipID == nil {
		return f.expired, nil
	}
	var filtered []repository.Appointment
	for _, appt := range f.expired {
		if appt.DealershipID == *dealershipID {
			filtered = append(filtered, appt)
		}
	}
	return filtered, nil
}

func (f *fakeStore) UpdateStatus(_ context.Context, id uuid.UUID, _ string) error {
	if err := f.updateErr[id]; err != nil {
		return err
	}
	f.updated = append(f.updated, id)
	return nil
}

func newTestRouter(store *fakeStore) *gin.Engine {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	h := New(service.New(store, logger.New("development")))
	h.RegisterRoutes(engine.Group("/api/jobs/appointments"))
	return engine
}

func expiredAppointment(dealership uuid.UUID) repository.Appointment {
	return repository.Appointment{
		ID:           uuid.New(),
		DealershipID: dealership,
		Date:         time.Now().AddDate(0, 0, -1),
		Status:       repository.StatusPending,
	}
}

func TestExpire_ResponseEnvelope(t *testing.T) {
	dealership := uuid.New()
	store := &fakeStore{expired: []repository.Appointment{expiredAppointment(dealership)}}
	engine := newTestRouter(store)

	req := httptest.NewRequest(http.MethodPost, "/api/jobs/appointments/expire", nil)
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var body map[string]json.RawMessage
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid response JSON: %v", err)
	}
	for _, key := range []string{"success", "processed_count", "success_count", "error_count", "details"} {
		if _, ok := body[key]; !ok {
			t.Fatalf("expected envelope key %q, got %s", key, rec.Body.String())
		}
	}
	if string(body["success"]) != "true" {
		t.Fatalf("expected success true, got %s", body["success"])
	}
	if string(body["processed_count"]) != "1" || string(body["success_count"]) != "1" {
		t.Fatalf("unexpected counters: %s", rec.Body.String())
	}
}

func TestExpire_SuccessTrueDespiteRowFailures(t *testing.T) {
	dealership := uuid.New()
	appt := expiredAppointment(dealership)
	store := &fakeStore{
		expired:   []repository.Appointment{appt},
		updateErr: map[uuid.UUID]error{appt.ID: context.DeadlineExceeded},
	}
	engine := newTestRouter(store)

	req := httptest.NewRequest(http.MethodPost, "/api/jobs/appointments/expire", nil)
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body struct {
		Success    bool `json:"success"`
		ErrorCount int  `json:"error_count"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid response JSON: %v", err)
	}
	if !body.Success {
		t.Fatal("expected success true with per-row failures reported in counters")
	}
	if body.ErrorCount != 1 {
		t.Fatalf("expected 1 error counted, got %d", body.ErrorCount)
	}
}

func TestExpire_BodyDealershipFilterHonored(t *testing.T) {
	target := uuid.New()
	other := uuid.New()
	store := &fakeStore{expired: []repository.Appointment{
		expiredAppointment(target),
		expiredAppointment(other),
	}}
	engine := newTestRouter(store)

	payload := `{"dealership_id": "` + target.String() + `"}`
	req := httptest.NewRequest(http.MethodPost, "/api/jobs/appointments/expire", strings.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if store.listedFilter == nil || *store.listedFilter != target {
		t.Fatalf("expected sweep filtered to %s, got %v", target, store.listedFilter)
	}
	if len(store.updated) != 1 {
		t.Fatalf("expected 1 row swept, got %d", len(store.updated))
	}
}

func TestExpire_InvalidDealershipIDRejected(t *testing.T) {
	engine := newTestRouter(&fakeStore{})

	req := httptest.NewRequest(http.MethodGet, "/api/jobs/appointments/expire?dealership_id=nope", nil)
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}
