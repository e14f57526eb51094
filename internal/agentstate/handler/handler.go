package handler

import (
	"context"
	"net/http"

	"workshop_portal_backend/internal/agentstate/service"
	"workshop_portal_backend/internal/agentstate/transport"
	"workshop_portal_backend/platform/httpkit"
	"workshop_portal_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const msgInvalidDealershipID = "invalid dealership id"

// Handler handles HTTP triggers for the agent-state orchestrator jobs
type Handler struct {
	svc *service.Service
	val *validator.Validator
}

// New creates a new agentstate handler
func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// RegisterRoutes registers one trigger per orchestrator job. GET is a
// manual-trigger alias of POST.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.PUT("/settings", h.UpdateSetting)
	rg.POST("/deactivate-appointment-day", h.DeactivateAppointmentDay)
	rg.GET("/deactivate-appointment-day", h.DeactivateAppointmentDay)
	rg.POST("/reactivate-after-appointments", h.ReactivateAfterAppointments)
	rg.GET("/reactivate-after-appointments", h.ReactivateAfterAppointments)
	rg.POST("/reactivate-manual-deactivations", h.ReactivateManualDeactivations)
	rg.GET("/reactivate-manual-deactivations", h.ReactivateManualDeactivations)
}

// DeactivateAppointmentDay handles /api/jobs/agent/deactivate-appointment-day
func (h *Handler) DeactivateAppointmentDay(c *gin.Context) {
	h.run(c, h.svc.DeactivateForTodaysAppointments)
}

// ReactivateAfterAppointments handles /api/jobs/agent/reactivate-after-appointments
func (h *Handler) ReactivateAfterAppointments(c *gin.Context) {
	h.run(c, h.svc.ReactivateAfterYesterday)
}

// ReactivateManualDeactivations handles /api/jobs/agent/reactivate-manual-deactivations
func (h *Handler) ReactivateManualDeactivations(c *gin.Context) {
	h.run(c, h.svc.ReactivateStaleManual)
}

// UpdateSetting handles PUT /api/jobs/agent/settings: the manual toggle
// dealership staff use to take a conversation over from the agent.
func (h *Handler) UpdateSetting(c *gin.Context) {
	var req transport.SettingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "validation failed", err.Error())
		return
	}

	dealershipID, err := uuid.Parse(req.DealershipID)
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidDealershipID, req.DealershipID)
		return
	}

	err = h.svc.SetAgentActive(c.Request.Context(), req.Phone, dealershipID, *req.AgentActive, req.Note, service.UpdatedByWorker)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, transport.SettingResponse{
		Success:     true,
		Phone:       req.Phone,
		AgentActive: *req.AgentActive,
	})
}

func (h *Handler) run(c *gin.Context, job func(context.Context, service.JobInput) (*service.RunResult, error)) {
	dealershipID, ok := parseDealershipFilter(c)
	if !ok {
		return
	}

	result, err := job(c.Request.Context(), service.JobInput{DealershipID: dealershipID})
	if httpkit.HandleError(c, err) {
		return
	}

	dealerships := make([]string, 0, len(result.Dealerships))
	for _, id := range result.Dealerships {
		dealerships = append(dealerships, id.String())
	}

	httpkit.OK(c, transport.JobResponse{
		Success:             true,
		Date:                result.Date,
		ProcessedCount:      result.Processed,
		SuccessCount:        result.Succeeded,
		ErrorCount:          result.Failed,
		DealershipsAffected: dealerships,
		Details:             result.Details,
	})
}

// parseDealershipFilter reads the optional dealership filter from the JSON
// body (POST) or query string (GET alias). A malformed id is rejected before
// any query executes.
func parseDealershipFilter(c *gin.Context) (*uuid.UUID, bool) {
	raw := c.Query("dealership_id")
	if c.Request.Method != http.MethodGet {
		var req transport.JobRequest
		if err := c.ShouldBindJSON(&req); err == nil && req.DealershipID != "" {
			raw = req.DealershipID
		}
	}

	if raw == "" {
		return nil, true
	}

	id, err := uuid.Parse(raw)
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidDealershipID, raw)
		return nil, false
	}
	return &id, true
}
