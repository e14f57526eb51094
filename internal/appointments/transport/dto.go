// Package transport defines request/response DTOs for the appointments module.
package transport

import "workshop_portal_backend/internal/appointments/service"

// SweepRequest is the optional JSON body for the expiry sweep job.
type SweepRequest struct {
	DealershipID string `json:"dealership_id"`
}

// SweepResponse is the job report returned to the cron caller. It carries the
// same envelope as the other job endpoints; per-row failures live in details.
type SweepResponse struct {
	Success        bool                  `json:"success"`
	ProcessedCount int                   `json:"processed_count"`
	SuccessCount   int                   `json:"success_count"`
	ErrorCount     int                   `json:"error_count"`
	Details        []service.SweepDetail `json:"details"`
}

// FromResult maps a sweep result onto the wire response.
func FromResult(res *service.SweepResult) SweepResponse {
	return SweepResponse{
		Success:        true,
		ProcessedCount: res.Expired,
		SuccessCount:   res.Updated,
		ErrorCount:     res.Failed,
		Details:        res.Details,
	}
}
