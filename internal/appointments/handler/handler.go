package handler

import (
	"net/http"
	"time"

	"workshop_portal_backend/internal/appointments/service"
	"workshop_portal_backend/internal/appointments/transport"
	"workshop_portal_backend/platform/httpkit"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const msgInvalidDealershipID = "invalid dealership id"

// Handler handles HTTP triggers for the appointment expiry sweep
type Handler struct {
	svc *service.Service
}

// New creates a new appointments handler
func New(svc *service.Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes registers the expiry trigger. GET is a manual-trigger alias
// of POST for the same job.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/expire", h.Expire)
	rg.GET("/expire", h.Expire)
}

// Expire handles POST /api/jobs/appointments/expire
func (h *Handler) Expire(c *gin.Context) {
	dealershipID, ok := parseDealershipFilter(c)
	if !ok {
		return
	}

	result, err := h.svc.SweepExpired(c.Request.Context(), service.SweepInput{
		DealershipID: dealershipID,
		Now:          time.Now(),
	})
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, transport.FromResult(result))
}

func parseDealershipFilter(c *gin.Context) (*uuid.UUID, bool) {
	raw := c.Query("dealership_id")
	if c.Request.Method != http.MethodGet {
		var req transport.SweepRequest
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
