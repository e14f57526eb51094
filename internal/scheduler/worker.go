package scheduler

import (
	"context"
	"fmt"
	"time"

	agentsvc "workshop_portal_backend/internal/agentstate/service"
	apptsvc "workshop_portal_backend/internal/appointments/service"
	"workshop_portal_backend/internal/email"
	remindersvc "workshop_portal_backend/internal/reminders/service"
	"workshop_portal_backend/platform/config"
	"workshop_portal_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

// Worker runs the periodic jobs. An asynq scheduler enqueues a task per cron
// spec and the embedded server executes it, so a single worker process both
// drives and performs the schedule.
type Worker struct {
	server    *asynq.Server
	scheduler *asynq.Scheduler
	mux       *asynq.ServeMux

	reminders    *remindersvc.Service
	agents       *agentsvc.Service
	appointments *apptsvc.Service
	reporter     *email.Reporter

	stuckAge time.Duration
	log      *logger.Logger
}

// WorkerDeps carries the job services the worker executes.
type WorkerDeps struct {
	Reminders    *remindersvc.Service
	Agents       *agentsvc.Service
	Appointments *apptsvc.Service
	Reporter     *email.Reporter
}

func NewWorker(cfg config.SchedulerConfig, dispatchCfg config.DispatchConfig, deps WorkerDeps, log *logger.Logger) (*Worker, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	queue := cfg.GetAsynqQueueName()
	if queue == "" {
		queue = "default"
	}

	concurrency := cfg.GetAsynqConcurrency()
	if concurrency < 1 {
		concurrency = 10
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queue: 1,
		},
	})

	sched := asynq.NewScheduler(opt, &asynq.SchedulerOpts{})

	mux := asynq.NewServeMux()
	w := &Worker{
		server:       server,
		scheduler:    sched,
		mux:          mux,
		reminders:    deps.Reminders,
		agents:       deps.Agents,
		appointments: deps.Appointments,
		reporter:     deps.Reporter,
		stuckAge:     dispatchCfg.GetStuckProcessingAge(),
		log:          log,
	}

	mux.HandleFunc(TaskReminderDispatch, w.handleReminderDispatch)
	mux.HandleFunc(TaskAgentDeactivateAppointmentDay, w.handleAgentDeactivateAppointmentDay)
	mux.HandleFunc(TaskAgentReactivateAfterAppointments, w.handleAgentReactivateAfterAppointments)
	mux.HandleFunc(TaskAgentReactivateManual, w.handleAgentReactivateManual)
	mux.HandleFunc(TaskAppointmentExpiry, w.handleAppointmentExpiry)
	mux.HandleFunc(TaskReminderReleaseStuck, w.handleReminderReleaseStuck)

	entries := []struct {
		spec string
		name string
	}{
		{cfg.GetReminderDispatchSpec(), TaskReminderDispatch},
		{cfg.GetAgentJobsSpec(), TaskAgentDeactivateAppointmentDay},
		{cfg.GetAgentJobsSpec(), TaskAgentReactivateAfterAppointments},
		{cfg.GetAgentJobsSpec(), TaskAgentReactivateManual},
		{cfg.GetExpirySweepSpec(), TaskAppointmentExpiry},
		{cfg.GetStuckReleaseSpec(), TaskReminderReleaseStuck},
	}
	for _, entry := range entries {
		if entry.spec == "" {
			continue
		}
		task, err := NewJobTask(entry.name, JobPayload{})
		if err != nil {
			return nil, err
		}
		if _, err := sched.Register(entry.spec, task, asynq.Queue(queue)); err != nil {
			return nil, fmt.Errorf("register %s: %w", entry.name, err)
		}
	}

	return w, nil
}

// Run starts the scheduler and the task server and blocks until ctx is done.
func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.server == nil {
		return
	}

	if err := w.scheduler.Start(); err != nil {
		w.log.Error("scheduler failed to start", "error", err)
		return
	}

	go func() {
		<-ctx.Done()
		w.scheduler.Shutdown()
		w.server.Shutdown()
	}()

	if err := w.server.Run(w.mux); err != nil {
		w.log.Error("scheduler worker stopped", "error", err)
	}
}

func (w *Worker) handleReminderDispatch(ctx context.Context, task *asynq.Task) error {
	dealershipID, err := parseDealershipID(task)
	if err != nil {
		return err
	}

	result, err := w.reminders.DispatchDue(ctx, remindersvc.DispatchInput{DealershipID: dealershipID})
	if err != nil {
		return err
	}

	if result.Failed > 0 {
		lines := make([]email.FailureLine, 0, result.Failed)
		for _, d := range result.Details {
			if d.Status == "failed" {
				lines = append(lines, email.FailureLine{ID: d.ReminderID.String(), Error: d.Error})
			}
		}
		w.reporter.ReportRunFailures(ctx, TaskReminderDispatch, time.Now(), lines)
	}

	return nil
}

func (w *Worker) handleAgentDeactivateAppointmentDay(ctx context.Context, task *asynq.Task) error {
	return w.runAgentJob(ctx, task, TaskAgentDeactivateAppointmentDay, w.agents.DeactivateForTodaysAppointments)
}

func (w *Worker) handleAgentReactivateAfterAppointments(ctx context.Context, task *asynq.Task) error {
	return w.runAgentJob(ctx, task, TaskAgentReactivateAfterAppointments, w.agents.ReactivateAfterYesterday)
}

func (w *Worker) handleAgentReactivateManual(ctx context.Context, task *asynq.Task) error {
	return w.runAgentJob(ctx, task, TaskAgentReactivateManual, w.agents.ReactivateStaleManual)
}

func (w *Worker) runAgentJob(
	ctx context.Context,
	task *asynq.Task,
	name string,
	job func(context.Context, agentsvc.JobInput) (*agentsvc.RunResult, error),
) error {
	dealershipID, err := parseDealershipID(task)
	if err != nil {
		return err
	}

	result, err := job(ctx, agentsvc.JobInput{DealershipID: dealershipID})
	if err != nil {
		return err
	}

	if result.Failed > 0 {
		lines := make([]email.FailureLine, 0, result.Failed)
		for _, d := range result.Details {
			if d.Status == "error" {
				lines = append(lines, email.FailureLine{ID: d.Phone, Error: d.Error})
			}
		}
		w.reporter.ReportRunFailures(ctx, name, time.Now(), lines)
	}

	return nil
}

func (w *Worker) handleAppointmentExpiry(ctx context.Context, task *asynq.Task) error {
	dealershipID, err := parseDealershipID(task)
	if err != nil {
		return err
	}

	result, err := w.appointments.SweepExpired(ctx, apptsvc.SweepInput{DealershipID: dealershipID, Now: time.Now()})
	if err != nil {
		return err
	}

	if result.Failed > 0 {
		lines := make([]email.FailureLine, 0, result.Failed)
		for _, d := range result.Details {
			if d.Status == "failed" {
				lines = append(lines, email.FailureLine{ID: d.AppointmentID.String(), Error: d.Error})
			}
		}
		w.reporter.ReportRunFailures(ctx, TaskAppointmentExpiry, time.Now(), lines)
	}

	return nil
}

func (w *Worker) handleReminderReleaseStuck(ctx context.Context, _ *asynq.Task) error {
	released, err := w.reminders.ReleaseStuck(ctx, w.stuckAge)
	if err != nil {
		return err
	}
	if released > 0 {
		w.log.Warn("released stuck reminders", "count", released)
	}
	return nil
}

func parseDealershipID(task *asynq.Task) (*uuid.UUID, error) {
	payload, err := ParseJobPayload(task)
	if err != nil {
		return nil, err
	}
	if payload.DealershipID == "" {
		return nil, nil
	}
	id, err := uuid.Parse(payload.DealershipID)
	if err != nil {
		return nil, fmt.Errorf("invalid dealership id in payload: %w", err)
	}
	return &id, nil
}
