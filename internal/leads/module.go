// Package leads provides the lead tracking bounded context module.
// This file defines the module that encapsulates all leads setup and route registration.
package leads

import (
	"context"
	"time"

	authtransport "leadtracker_backend/internal/auth/transport"
	"leadtracker_backend/internal/events"
	apphttp "leadtracker_backend/internal/http"
	"leadtracker_backend/internal/identity"
	"leadtracker_backend/internal/leads/cache"
	"leadtracker_backend/internal/leads/handler"
	"leadtracker_backend/internal/leads/repository"
	"leadtracker_backend/internal/leads/stream"
	"leadtracker_backend/internal/leads/syncer"
	"leadtracker_backend/internal/leads/views"
	"leadtracker_backend/internal/workspace"
	"leadtracker_backend/platform/config"
	"leadtracker_backend/platform/httpkit"
	"leadtracker_backend/platform/kv"
	"leadtracker_backend/platform/logger"
	"leadtracker_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Config combines the settings the leads module reads.
type Config interface {
	config.CacheConfig
	config.IdentityConfig
}

// Module is the leads bounded context module implementing http.Module.
type Module struct {
	handler    *handler.Handler
	repo       *repository.Repository
	workspaces *workspace.Registry
	stream     *stream.Service
}

// NewModule creates and initializes the leads module with all its dependencies.
// reminders may be nil when no scheduler is configured.
func NewModule(pool *pgxpool.Pool, store kv.Store, sessions authtransport.SessionVerifier, reminders syncer.ReminderScheduler, cfg Config, val *validator.Validator, log *logger.Logger) (*Module, error) {
	repo := repository.New(pool)

	policy, err := identity.LoadPolicy(cfg.GetAccessPolicyFile(), cfg.GetBreakGlassAdmins())
	if err != nil {
		return nil, err
	}

	location := cfg.GetLocation()
	now := func() time.Time { return time.Now().In(location) }
	streamSvc := stream.New(log.WithComponent("stream"))

	registry := workspace.NewRegistry(workspace.Deps{
		KV:        store,
		Rows:      repo,
		Profiles:  repo,
		Sessions:  sessions,
		Policy:    policy,
		Validator: val,
		Reminders: reminders,
		Config:    cfg,
		Log:       log.WithComponent("workspace"),
		Now:       now,
		OnCacheChange: func(userID string, snap cache.Snapshot) {
			streamSvc.Publish(userID, stream.Event{
				Type: stream.EventLeadsChanged,
				Data: views.Bucket(snap.Leads, now()).Counts,
			})
		},
	})

	return &Module{
		handler:    handler.New(registry, val, log.WithComponent("leads"), now),
		repo:       repo,
		workspaces: registry,
		stream:     streamSvc,
	}, nil
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "leads"
}

// Workspaces returns the per-user workspace registry.
func (m *Module) Workspaces() *workspace.Registry {
	return m.workspaces
}

// HandleAuthEvent forwards auth state changes to the workspaces and tells
// open streams of a signed-out user to disconnect.
func (m *Module) HandleAuthEvent(ctx context.Context, e events.AuthStateChanged) error {
	if err := m.workspaces.HandleAuthEvent(ctx, e); err != nil {
		return err
	}
	if e.Change == events.SignedOut {
		m.stream.Publish(e.UserID, stream.Event{Type: stream.EventSignedOut})
	}
	return nil
}

// Close shuts down open streams and workspaces.
func (m *Module) Close() {
	m.stream.Close()
	m.workspaces.Close()
}

// Repository returns the remote row store for the reminder worker.
func (m *Module) Repository() *repository.Repository {
	return m.repo
}

// RegisterRoutes mounts leads routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	// All leads routes require authentication
	m.handler.RegisterRoutes(ctx.Protected)
	ctx.Protected.GET("/dashboard/stream", m.stream.Handler(streamUserID))
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)

func streamUserID(c *gin.Context) (string, bool) {
	id := httpkit.GetIdentity(c)
	if !id.IsAuthenticated() {
		return "", false
	}
	return id.UserID().String(), true
}
