package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"leadtracker_backend/internal/auth"
	apphttp "leadtracker_backend/internal/http"
	"leadtracker_backend/internal/http/router"
	"leadtracker_backend/internal/leads"
	"leadtracker_backend/internal/leads/syncer"
	"leadtracker_backend/internal/scheduler"
	"leadtracker_backend/migrations"
	"leadtracker_backend/platform/config"
	"leadtracker_backend/platform/db"
	platformevents "leadtracker_backend/platform/events"
	"leadtracker_backend/platform/kv"
	"leadtracker_backend/platform/logger"
	"leadtracker_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	// Initialize structured logger
	log := logger.New(cfg.Env)
	log.Info("starting server", "env", cfg.Env, "addr", cfg.HTTPAddr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ========================================================================
	// Infrastructure Layer
	// ========================================================================

	if err := withRetry(ctx, log, "database migrations", 5, 2*time.Second, func() error {
		return db.RunMigrations(ctx, cfg, migrations.FS)
	}); err != nil {
		log.Error("failed to run database migrations", "error", err)
		panic("failed to run database migrations: " + err.Error())
	}
	log.Info("database migrations complete")

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
	log.Info("database connection established")

	deps := []apphttp.Dependency{{Name: "postgres", Checker: db.NewPoolAdapter(pool)}}
	store, closeStore := initWorkspaceStore(ctx, cfg, log)
	if closeStore != nil {
		defer closeStore()
	}
	if checker, ok := store.(apphttp.HealthChecker); ok {
		deps = append(deps, apphttp.Dependency{Name: "redis", Checker: checker})
	}

	// Event bus for decoupled communication between modules
	eventBus := platformevents.NewInMemoryBus(log)

	reminderScheduler, closeScheduler := initReminderScheduler(cfg, log)
	if closeScheduler != nil {
		defer closeScheduler()
	}

	// Shared validator instance for dependency injection
	val := validator.New()

	// ========================================================================
	// Domain Modules
	// ========================================================================

	authModule := auth.NewModule(pool, cfg, eventBus, log, val)

	leadsModule, err := leads.NewModule(pool, store, authModule.Service(), reminderScheduler, cfg, val, log)
	if err != nil {
		log.Error("failed to initialize leads module", "error", err)
		panic("failed to initialize leads module: " + err.Error())
	}

	// Auth state changes drive the per-user workspaces
	authModule.Service().OnAuthStateChange(leadsModule.HandleAuthEvent)

	// ========================================================================
	// HTTP Layer
	// ========================================================================

	app := &apphttp.App{
		Config:       cfg,
		Logger:       log,
		Dependencies: deps,
		Modules: []apphttp.Module{
			authModule,
			leadsModule,
		},
	}

	engine := router.New(app)
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	// Open dashboard streams would otherwise hold Shutdown until its deadline
	for _, module := range app.Modules {
		if closer, ok := module.(apphttp.Closer); ok {
			srv.RegisterOnShutdown(closer.Close)
		}
	}

	srvErr := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", cfg.HTTPAddr)
		srvErr <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received, gracefully shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("server shutdown failed", "error", err)
		}
		eventBus.Wait()
	case err := <-srvErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			panic("server error: " + err.Error())
		}
	}
}

// initWorkspaceStore returns the durable store for per-user workspaces:
// Redis when configured, process memory otherwise.
func initWorkspaceStore(ctx context.Context, cfg config.RedisConfig, log *logger.Logger) (kv.Store, func()) {
	if cfg.GetRedisURL() == "" {
		log.Warn("REDIS_URL not configured; workspace caches are kept in memory")
		return kv.NewMemory(), nil
	}

	var store *kv.RedisStore
	if err := withRetry(ctx, log, "redis connection", 5, 2*time.Second, func() error {
		s, err := kv.NewRedis(ctx, cfg)
		if err != nil {
			return err
		}
		store = s
		return nil
	}); err != nil {
		log.Error("failed to connect to redis, falling back to memory", "error", err)
		return kv.NewMemory(), nil
	}

	return store, func() {
		_ = store.Close()
	}
}

func initReminderScheduler(cfg config.SchedulerConfig, log *logger.Logger) (syncer.ReminderScheduler, func()) {
	if cfg.GetRedisURL() == "" {
		log.Warn("REDIS_URL not configured; next action reminders disabled")
		return nil, nil
	}

	reminderClient, err := scheduler.NewClient(cfg)
	if err != nil {
		log.Error("failed to initialize reminder scheduler client", "error", err)
		return nil, nil
	}

	return reminderClient, func() {
		_ = reminderClient.Close()
	}
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return fmt.Errorf("%s: invalid retry attempts", name)
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
