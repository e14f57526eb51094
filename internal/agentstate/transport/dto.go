// Package transport defines request/response DTOs for the agentstate module.
package transport

import "workshop_portal_backend/internal/agentstate/service"

// JobRequest is the optional body of an orchestrator job trigger.
type JobRequest struct {
	DealershipID string `json:"dealership_id"`
}

// SettingRequest is the manual agent toggle written by dealership staff.
type SettingRequest struct {
	Phone        string `json:"phone" validate:"required"`
	DealershipID string `json:"dealership_id" validate:"required,uuid"`
	AgentActive  *bool  `json:"agent_active" validate:"required"`
	Note         string `json:"note" validate:"max=500"`
}

// SettingResponse acknowledges a manual toggle write.
type SettingResponse struct {
	Success     bool   `json:"success"`
	Phone       string `json:"phone"`
	AgentActive bool   `json:"agent_active"`
}

// JobResponse is the aggregate result envelope of one orchestrator run.
type JobResponse struct {
	Success             bool                   `json:"success"`
	Date                string                 `json:"date"`
	ProcessedCount      int                    `json:"processed_count"`
	SuccessCount        int                    `json:"success_count"`
	ErrorCount          int                    `json:"error_count"`
	DealershipsAffected []string               `json:"dealerships_affected"`
	Details             []service.TargetDetail `json:"details"`
}
