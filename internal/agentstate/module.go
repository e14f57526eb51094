// Package agentstate provides the agent-state orchestrator domain module.
package agentstate

import (
	"workshop_portal_backend/internal/agentstate/handler"
	"workshop_portal_backend/internal/agentstate/repository"
	"workshop_portal_backend/internal/agentstate/service"
	apphttp "workshop_portal_backend/internal/http"
	tenantsvc "workshop_portal_backend/internal/tenants/service"
	"workshop_portal_backend/platform/logger"
	"workshop_portal_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module represents the agentstate domain module
type Module struct {
	handler *handler.Handler
	Service *service.Service
}

// NewModule creates a new agentstate module with all dependencies wired
func NewModule(pool *pgxpool.Pool, tenants *tenantsvc.Service, val *validator.Validator, log *logger.Logger) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, tenants, log)
	h := handler.New(svc, val)

	return &Module{
		handler: h,
		Service: svc,
	}
}

// Name returns the module name for logging
func (m *Module) Name() string {
	return "agentstate"
}

// RegisterRoutes registers the module's routes under /api/jobs/agent
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	agent := ctx.Jobs.Group("/agent")
	m.handler.RegisterRoutes(agent)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
