package http

import (
	"context"
	"errors"
	"testing"

	"leadtracker_backend/platform/logger"
)

type pingFunc func(context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestCheckHealthReportsEachDependency(t *testing.T) {
	app := &App{
		Logger: logger.Discard(),
		Dependencies: []Dependency{
			{Name: "postgres", Checker: pingFunc(func(context.Context) error { return nil })},
			{Name: "redis", Checker: pingFunc(func(context.Context) error { return errors.New("connection refused") })},
		},
	}

	checks, healthy := app.CheckHealth(context.Background())
	if healthy {
		t.Fatal("expected unhealthy when a dependency fails")
	}
	if checks["postgres"] != "ok" || checks["redis"] != "unavailable" {
		t.Fatalf("unexpected checks %v", checks)
	}
}

func TestCheckHealthWithoutDependencies(t *testing.T) {
	app := &App{Logger: logger.Discard()}
	checks, healthy := app.CheckHealth(context.Background())
	if !healthy || len(checks) != 0 {
		t.Fatalf("expected healthy empty report, got %v %v", checks, healthy)
	}
}
