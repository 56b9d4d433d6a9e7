// Package workspace builds and tracks the per-user state of the lead tracker:
// a namespaced key-value store, the lead cache, the identity resolver, the
// sync client and the views reading from the cache.
package workspace

import (
	"context"
	"sync"
	"time"

	authtransport "leadtracker_backend/internal/auth/transport"
	"leadtracker_backend/internal/events"
	"leadtracker_backend/internal/identity"
	"leadtracker_backend/internal/leads/cache"
	"leadtracker_backend/internal/leads/domain"
	"leadtracker_backend/internal/leads/syncer"
	"leadtracker_backend/internal/leads/views"
	"leadtracker_backend/platform/apperr"
	"leadtracker_backend/platform/kv"
	"leadtracker_backend/platform/logger"
	"leadtracker_backend/platform/validator"
)

// Config carries the timings of every workspace.
type Config interface {
	GetLeadsCacheTTL() time.Duration
	GetLoadingCeiling() time.Duration
	GetSessionCacheTTL() time.Duration
	GetRoleResolveTimeout() time.Duration
}

// Deps are the shared collaborators every workspace is built from.
type Deps struct {
	KV        kv.Store
	Rows      syncer.RowStore
	Profiles  ProfileStore
	Sessions  authtransport.SessionVerifier
	Policy    *identity.Policy
	Validator *validator.Validator
	Reminders syncer.ReminderScheduler
	Config    Config
	Log       *logger.Logger
	Now       func() time.Time
	// OnCacheChange, when set, receives every change of a workspace's lead cache.
	OnCacheChange func(userID string, snap cache.Snapshot)
}

// Workspace is the state owned by one signed-in user.
type Workspace struct {
	UserID    string
	Cache     *cache.Store
	Identity  *identity.Resolver
	Leads     *syncer.Client
	Dashboard *views.Dashboard
	Team      *views.Team

	settled <-chan struct{}
}

// Requester resolves the role of the workspace user into a requester.
func (w *Workspace) Requester(ctx context.Context) domain.Requester {
	role := w.Identity.Role(ctx)
	return domain.Requester{UserID: w.UserID, Admin: identity.IsAdminTier(role)}
}

// Teardown drops the in-memory state. Durable entries stay for the next Init.
func (w *Workspace) Teardown() {
	w.Cache.Teardown()
}

// entry is a workspace slot. ready closes once build has finished, with
// either ws or err set.
type entry struct {
	ready chan struct{}
	ws    *Workspace
	err   error
}

func (e *entry) wait(ctx context.Context) (*Workspace, error) {
	select {
	case <-e.ready:
		return e.ws, e.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Registry hands out workspaces by user id.
type Registry struct {
	deps Deps

	mu      sync.Mutex
	entries map[string]*entry
}

func NewRegistry(deps Deps) *Registry {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &Registry{deps: deps, entries: make(map[string]*entry)}
}

// Namespace is the key prefix of a user's durable entries.
func Namespace(userID string) string {
	return "ws:" + userID + ":"
}

// Get returns the workspace of userID, building and initialising it on first
// use. Concurrent first requests for the same user share one build; other
// users are not blocked by it. Get waits for the identity resolver to settle,
// which is bounded by the resolve timeout.
func (r *Registry) Get(ctx context.Context, userID, email string) (*Workspace, error) {
	if userID == "" {
		return nil, apperr.Unauthorized("not authenticated")
	}

	r.mu.Lock()
	e, ok := r.entries[userID]
	if !ok {
		e = &entry{ready: make(chan struct{})}
		r.entries[userID] = e
	}
	r.mu.Unlock()

	if !ok {
		e.ws, e.err = r.build(context.WithoutCancel(ctx), userID, email)
		if e.err != nil {
			r.mu.Lock()
			if r.entries[userID] == e {
				delete(r.entries, userID)
			}
			r.mu.Unlock()
		}
		close(e.ready)
	}

	ws, err := e.wait(ctx)
	if err != nil {
		return nil, err
	}

	select {
	case <-ws.settled:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return ws, nil
}

func (r *Registry) build(ctx context.Context, userID, email string) (*Workspace, error) {
	log := r.deps.Log.WithUserID(userID)
	store := kv.WithNamespace(r.deps.KV, Namespace(userID))

	leadCache := cache.New(store, log.WithComponent("lead_cache"), cache.WithClock(r.deps.Now))
	if err := leadCache.Init(ctx); err != nil {
		return nil, err
	}

	resolver := identity.NewResolver(userID, email, store, r.deps.Sessions, r.deps.Profiles, r.deps.Policy, log.WithComponent("identity"), identity.Options{
		SessionTTL:     r.deps.Config.GetSessionCacheTTL(),
		ResolveTimeout: r.deps.Config.GetRoleResolveTimeout(),
		Now:            r.deps.Now,
	})

	client := syncer.New(r.deps.Rows, leadCache, r.deps.Validator, log.WithComponent("syncer"), syncer.Options{
		CacheDuration:  r.deps.Config.GetLeadsCacheTTL(),
		LoadingCeiling: r.deps.Config.GetLoadingCeiling(),
		Now:            r.deps.Now,
		Reminders:      r.deps.Reminders,
	})

	if r.deps.OnCacheChange != nil {
		notify := r.deps.OnCacheChange
		leadCache.OnChange(func(snap cache.Snapshot) { notify(userID, snap) })
	}

	ws := &Workspace{
		UserID:    userID,
		Cache:     leadCache,
		Identity:  resolver,
		Leads:     client,
		Dashboard: views.NewDashboard(leadCache, r.deps.Now),
		Team:      views.NewTeam(profileMembers{profiles: r.deps.Profiles}, client, leadCache),
	}
	ws.settled = resolver.Start(ctx)
	return ws, nil
}

// HandleAuthEvent forwards an auth state change to the user's workspace.
// Sign-out tears the workspace down and clears its durable entries.
func (r *Registry) HandleAuthEvent(ctx context.Context, e events.AuthStateChanged) error {
	r.mu.Lock()
	slot, ok := r.entries[e.UserID]
	if ok && e.Change == events.SignedOut {
		delete(r.entries, e.UserID)
	}
	r.mu.Unlock()

	var ws *Workspace
	if ok {
		built, err := slot.wait(ctx)
		if err != nil && ctx.Err() != nil {
			return err
		}
		ws = built
		ok = ws != nil
	}

	if e.Change != events.SignedOut {
		if !ok {
			return nil
		}
		return ws.Identity.HandleAuthEvent(ctx, e)
	}

	if ok {
		ws.Teardown()
		if err := ws.Identity.HandleAuthEvent(ctx, e); err != nil {
			return err
		}
	}
	return r.clearNamespace(ctx, e.UserID)
}

func (r *Registry) clearNamespace(ctx context.Context, userID string) error {
	store := kv.WithNamespace(r.deps.KV, Namespace(userID))
	keys, err := store.Keys(ctx, "")
	if err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	return store.Delete(ctx, keys...)
}

// Close tears down every live workspace, waiting for builds in progress.
func (r *Registry) Close() {
	r.mu.Lock()
	entries := r.entries
	r.entries = make(map[string]*entry)
	r.mu.Unlock()

	for _, e := range entries {
		<-e.ready
		if e.ws != nil {
			e.ws.Teardown()
		}
	}
}
