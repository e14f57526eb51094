package scheduler

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const TaskReminderDispatch = "reminders.dispatch"

const TaskAgentDeactivateAppointmentDay = "agent.deactivate_appointment_day"

const TaskAgentReactivateAfterAppointments = "agent.reactivate_after_appointments"

const TaskAgentReactivateManual = "agent.reactivate_manual_deactivations"

const TaskAppointmentExpiry = "appointments.expire"

const TaskReminderReleaseStuck = "reminders.release_stuck"

// JobPayload is the shared payload for all periodic jobs. DealershipID is
// empty for scheduler-enqueued runs and set for targeted manual enqueues.
type JobPayload struct {
	DealershipID string `json:"dealershipId,omitempty"`
}

func NewJobTask(name string, payload JobPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(name, data), nil
}

func ParseJobPayload(task *asynq.Task) (JobPayload, error) {
	var payload JobPayload
	if len(task.Payload()) == 0 {
		return payload, nil
	}
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return JobPayload{}, err
	}
	return payload, nil
}
