// Package http provides HTTP server infrastructure including module registration.
package http

import (
	"context"
	"sync"

	"leadtracker_backend/platform/config"
	"leadtracker_backend/platform/logger"

	"golang.org/x/sync/errgroup"
)

// RouterConfig combines the config interfaces needed by the HTTP router.
type RouterConfig interface {
	config.HTTPConfig
	config.JWTConfig
}

// HealthChecker exposes minimal functionality for readiness checks.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// Dependency is a named backing service pinged by the health endpoint.
type Dependency struct {
	Name    string
	Checker HealthChecker
}

// App holds the fully initialized application dependencies.
// This is populated by main.go (the composition root) and passed to the router.
type App struct {
	Config       RouterConfig
	Logger       *logger.Logger
	Dependencies []Dependency
	Modules      []Module
}

// CheckHealth pings every dependency concurrently. It returns the status of
// each by name and whether all of them answered.
func (a *App) CheckHealth(ctx context.Context) (map[string]string, bool) {
	var (
		mu      sync.Mutex
		healthy = true
		status  = make(map[string]string, len(a.Dependencies))
	)

	var g errgroup.Group
	for _, dep := range a.Dependencies {
		g.Go(func() error {
			state := "ok"
			if err := dep.Checker.Ping(ctx); err != nil {
				state = "unavailable"
				a.Logger.Warn("health check failed", "dependency", dep.Name, "error", err)
			}

			mu.Lock()
			defer mu.Unlock()
			status[dep.Name] = state
			if state != "ok" {
				healthy = false
			}
			return nil
		})
	}
	_ = g.Wait()
	return status, healthy
}
