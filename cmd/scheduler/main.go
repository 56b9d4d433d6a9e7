package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"leadtracker_backend/internal/email"
	"leadtracker_backend/internal/events"
	leadrepo "leadtracker_backend/internal/leads/repository"
	"leadtracker_backend/internal/scheduler"
	"leadtracker_backend/platform/config"
	"leadtracker_backend/platform/db"
	platformevents "leadtracker_backend/platform/events"
	"leadtracker_backend/platform/logger"

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

	eventBus := platformevents.NewInMemoryBus(log)
	platformevents.On(eventBus, func(ctx context.Context, e events.LeadNextActionDue) error {
		log.WithContext(ctx).Info("lead next action due", "lead_id", e.LeadID, "lead", e.LeadName, "recipient", e.Recipient)
		return nil
	})

	sender := email.NewSender(cfg, log)
	repo := leadrepo.New(pool)
	location := cfg.GetLocation()
	reminders := scheduler.NewReminderHandler(repo, repo, sender, eventBus, log.WithComponent("reminders"), func() time.Time {
		return time.Now().In(location)
	})

	worker, err := scheduler.NewWorker(cfg, reminders, log)
	if err != nil {
		log.Error("failed to initialize scheduler worker", "error", err)
		panic("failed to initialize scheduler worker: " + err.Error())
	}

	worker.Run(ctx)
	eventBus.Wait()
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
