package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	agentsrepo "workshop_portal_backend/internal/agentstate/repository"
	agentsvc "workshop_portal_backend/internal/agentstate/service"
	apptsrepo "workshop_portal_backend/internal/appointments/repository"
	apptsvc "workshop_portal_backend/internal/appointments/service"
	"workshop_portal_backend/internal/email"
	"workshop_portal_backend/internal/messages"
	remindersrepo "workshop_portal_backend/internal/reminders/repository"
	remindersvc "workshop_portal_backend/internal/reminders/service"
	"workshop_portal_backend/internal/scheduler"
	tenantsrepo "workshop_portal_backend/internal/tenants/repository"
	tenantsvc "workshop_portal_backend/internal/tenants/service"
	"workshop_portal_backend/internal/whatsapp"
	"workshop_portal_backend/platform/config"
	"workshop_portal_backend/platform/db"
	"workshop_portal_backend/platform/logger"

	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting scheduler", "env", cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var pool *pgxpool.Pool
	if err := withRetry(ctx, log, "database connection", 5, 2*time.Second, func() error {
		p, err := db.NewPool(ctx, cfg)
		if err != nil {
			return err
		}
		pool = p
		return nil
	}); err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()

	gateway := whatsapp.NewClient(cfg, log)
	tenantDirectory := tenantsvc.New(tenantsrepo.New(pool), cfg.GetFallbackUTCOffsetHours())

	reminderService := remindersvc.New(
		remindersrepo.New(pool),
		tenantDirectory,
		gateway,
		messages.New(pool),
		log,
		cfg.GetDispatchConcurrency(),
	)
	agentService := agentsvc.New(agentsrepo.New(pool), tenantDirectory, log)
	appointmentService := apptsvc.New(apptsrepo.New(pool), log)

	reporter := email.NewReporter(cfg, log)
	if reporter == nil {
		log.Warn("report email not configured; job failure reports disabled")
	}

	worker, err := scheduler.NewWorker(cfg, cfg, scheduler.WorkerDeps{
		Reminders:    reminderService,
		Agents:       agentService,
		Appointments: appointmentService,
		Reporter:     reporter,
	}, log)
	if err != nil {
		log.Error("failed to initialize scheduler worker", "error", err)
		panic("failed to initialize scheduler worker: " + err.Error())
	}

	worker.Run(ctx)
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return errors.New(name + ": invalid retry attempts")
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
			log.Warn("retryable operation failed", "operation", name, "attempt", attempt, "error", err)
		}

		if attempt < attempts {
			delay := time.Duration(attempt*attempt) * baseDelay
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	return errors.New(name + ": " + lastErr.Error())
}
