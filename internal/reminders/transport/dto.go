// Package transport defines request/response DTOs for the reminders module.
package transport

import "workshop_portal_backend/internal/reminders/service"

// DispatchRequest is the optional body of a dispatch trigger. The external
// scheduler usually sends an empty body; a dealership id restricts the tick.
type DispatchRequest struct {
	DealershipID string `json:"dealership_id"`
}

// DispatchResponse is the aggregate result envelope of one dispatch tick.
type DispatchResponse struct {
	Success             bool             `json:"success"`
	Date                string           `json:"date"`
	ProcessedCount      int              `json:"processed_count"`
	SuccessCount        int              `json:"success_count"`
	ErrorCount          int              `json:"error_count"`
	DealershipsAffected []string         `json:"dealerships_affected"`
	Details             []service.Detail `json:"details"`
}
