// Package reminders provides the reminder dispatch domain module.
package reminders

import (
	apphttp "workshop_portal_backend/internal/http"
	"workshop_portal_backend/internal/messages"
	"workshop_portal_backend/internal/reminders/handler"
	"workshop_portal_backend/internal/reminders/repository"
	"workshop_portal_backend/internal/reminders/service"
	tenantsvc "workshop_portal_backend/internal/tenants/service"
	"workshop_portal_backend/internal/whatsapp"
	"workshop_portal_backend/platform/config"
	"workshop_portal_backend/platform/logger"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module represents the reminders domain module
type Module struct {
	handler *handler.Handler
	Service *service.Service
}

// NewModule creates a new reminders module with all dependencies wired
func NewModule(pool *pgxpool.Pool, tenants *tenantsvc.Service, gateway *whatsapp.Client, cfg config.DispatchConfig, log *logger.Logger) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, tenants, gateway, messages.New(pool), log, cfg.GetDispatchConcurrency())
	h := handler.New(svc)

	return &Module{
		handler: h,
		Service: svc,
	}
}

// Name returns the module name for logging
func (m *Module) Name() string {
	return "reminders"
}

// RegisterRoutes registers the module's routes under /api/jobs/reminders
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	reminders := ctx.Jobs.Group("/reminders")
	m.handler.RegisterRoutes(reminders)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
