// Package appointments provides the appointment lifecycle module, including
// the expiry sweep job.
package appointments

import (
	"workshop_portal_backend/internal/appointments/handler"
	"workshop_portal_backend/internal/appointments/repository"
	"workshop_portal_backend/internal/appointments/service"
	apphttp "workshop_portal_backend/internal/http"
	"workshop_portal_backend/platform/logger"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module represents the appointments domain module
type Module struct {
	handler *handler.Handler
	Service *service.Service
}

// NewModule creates a new appointments module with all dependencies wired
func NewModule(pool *pgxpool.Pool, log *logger.Logger) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, log)
	h := handler.New(svc)

	return &Module{
		handler: h,
		Service: svc,
	}
}

// Name returns the module name for logging
func (m *Module) Name() string {
	return "appointments"
}

// RegisterRoutes registers the module's routes under /api/jobs/appointments
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	appts := ctx.Jobs.Group("/appointments")
	m.handler.RegisterRoutes(appts)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
