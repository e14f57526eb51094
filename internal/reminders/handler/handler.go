package handler

import (
	"net/http"

	"workshop_portal_backend/internal/reminders/service"
	"workshop_portal_backend/internal/reminders/transport"
	"workshop_portal_backend/platform/httpkit"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const msgInvalidDealershipID = "invalid dealership id"

// Handler handles HTTP triggers for the reminder dispatch job
type Handler struct {
	svc *service.Service
}

// New creates a new reminders handler
func New(svc *service.Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes registers the dispatch trigger. GET is a manual-trigger
// alias of POST for the same job.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/dispatch", h.Dispatch)
	rg.GET("/dispatch", h.Dispatch)
}

// Dispatch handles POST /api/jobs/reminders/dispatch
func (h *Handler) Dispatch(c *gin.Context) {
	dealershipID, ok := parseDealershipFilter(c)
	if !ok {
		return
	}

	result, err := h.svc.DispatchDue(c.Request.Context(), service.DispatchInput{DealershipID: dealershipID})
	if httpkit.HandleError(c, err) {
		return
	}

	dealerships := make([]string, 0, len(result.Dealerships))
	for _, id := range result.Dealerships {
		dealerships = append(dealerships, id.String())
	}

	httpkit.OK(c, transport.DispatchResponse{
		Success:             true,
		Date:                result.Date,
		ProcessedCount:      result.Processed,
		SuccessCount:        result.Sent,
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
		var req transport.DispatchRequest
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
