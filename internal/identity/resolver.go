package identity

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	authtransport "leadtracker_backend/internal/auth/transport"
	"leadtracker_backend/internal/events"
	"leadtracker_backend/platform/apperr"
	"leadtracker_backend/platform/kv"
	"leadtracker_backend/platform/logger"
)

const (
	SessionCacheKey = "vm_session_cache"
	RoleKeyPrefix   = "vm_user_role_"

	DefaultSessionTTL     = 5 * time.Minute
	DefaultResolveTimeout = time.Second
)

// RoleKey is the durable cache key for one identity's role.
func RoleKey(userID string) string {
	return RoleKeyPrefix + userID
}

// ProfileSource looks up the stored role of a user.
type ProfileSource interface {
	GetProfileRole(ctx context.Context, userID string) (string, error)
}

// Options tunes a Resolver. Zero values fall back to the defaults.
type Options struct {
	SessionTTL     time.Duration
	ResolveTimeout time.Duration
	Now            func() time.Time
}

type sessionEntry struct {
	UserID      string    `json:"userId"`
	Email       string    `json:"email"`
	Role        string    `json:"role"`
	PersistedAt time.Time `json:"persistedAt"`
}

// Resolver is the identity and role state machine of one workspace.
type Resolver struct {
	userID   string
	email    string
	store    kv.Store
	sessions authtransport.SessionVerifier
	profiles ProfileSource
	policy   *Policy
	log      *logger.Logger
	opts     Options

	mu         sync.RWMutex
	state      State
	identity   *Identity
	role       string
	provision  bool
	roles      map[string]string
	generation uint64
}

// NewResolver creates a resolver for the user the workspace belongs to.
// email is the address the access token was issued for.
func NewResolver(userID, email string, store kv.Store, sessions authtransport.SessionVerifier, profiles ProfileSource, policy *Policy, log *logger.Logger, opts Options) *Resolver {
	if opts.SessionTTL <= 0 {
		opts.SessionTTL = DefaultSessionTTL
	}
	if opts.ResolveTimeout <= 0 {
		opts.ResolveTimeout = DefaultResolveTimeout
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Resolver{
		userID:   userID,
		email:    email,
		store:    store,
		sessions: sessions,
		profiles: profiles,
		policy:   policy,
		log:      log,
		opts:     opts,
		state:    StateUnresolved,
		roles:    make(map[string]string),
	}
}

// Snapshot returns the current state.
func (r *Resolver) Snapshot() Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.snapshotLocked()
}

func (r *Resolver) snapshotLocked() Snapshot {
	snap := Snapshot{State: r.state, Role: r.role, Provisional: r.provision}
	if r.identity != nil {
		id := *r.identity
		snap.Identity = &id
	}
	return snap
}

// Start hydrates the cached session and verifies it in the background. The
// returned channel closes once the state has left Resolving, either because
// verification finished or because the resolve timeout elapsed.
func (r *Resolver) Start(ctx context.Context) <-chan struct{} {
	settled := make(chan struct{})
	var once sync.Once
	settle := func() { once.Do(func() { close(settled) }) }

	r.mu.Lock()
	r.state = StateResolving
	gen := r.generation
	r.mu.Unlock()

	if entry, ok := r.loadSession(ctx); ok {
		r.mu.Lock()
		if r.generation == gen {
			r.identity = &Identity{UserID: entry.UserID, Email: entry.Email}
			r.role = NormalizeRole(entry.Role)
			r.roles[entry.UserID] = r.role
			r.state = StateResolved
			r.provision = true
		}
		r.mu.Unlock()
		settle()
	}

	bg := context.WithoutCancel(ctx)
	go func() {
		defer settle()
		r.verify(bg, gen)
	}()

	timer := time.NewTimer(r.opts.ResolveTimeout)
	go func() {
		defer timer.Stop()
		select {
		case <-settled:
		case <-timer.C:
			r.mu.Lock()
			if r.generation == gen && r.state == StateResolving {
				r.state = StateUnresolved
				r.log.Warn("session verification timed out", "user_id", r.userID)
			}
			r.mu.Unlock()
			settle()
		}
	}()

	return settled
}

func (r *Resolver) verify(ctx context.Context, gen uint64) {
	user, err := r.sessions.GetSession(ctx, r.userID)
	if apperr.Is(err, apperr.KindUnauthorized) || apperr.Is(err, apperr.KindNotFound) {
		r.log.Warn("session rejected", "user_id", r.userID, "error", err)
		if err := r.revoke(ctx, gen); err != nil {
			r.log.Warn("failed to clear rejected session", "user_id", r.userID, "error", err)
		}
		return
	}
	if err != nil {
		r.log.RemoteFailure("verify_session", err)
		r.mu.Lock()
		if r.generation == gen && r.identity == nil {
			r.state = StateUnresolved
		}
		r.mu.Unlock()
		return
	}

	id := Identity{UserID: user.ID, Email: user.Email}
	if id.Email == "" {
		id.Email = r.email
	}
	role := r.ResolveRole(ctx, id, false)

	r.mu.Lock()
	if r.generation != gen {
		r.mu.Unlock()
		return
	}
	r.identity = &id
	r.role = role
	r.state = StateResolved
	r.provision = false
	r.mu.Unlock()

	r.persistSession(ctx, id, role)
}

// ResolveRole determines the role of id. Lookup order: the in-memory role
// (unless forced), the durable role cache (unless forced), the break-glass
// policy, then the profile store. A failed profile lookup yields the user
// role and is not cached.
func (r *Resolver) ResolveRole(ctx context.Context, id Identity, force bool) string {
	if !force {
		r.mu.RLock()
		role, ok := r.roles[id.UserID]
		r.mu.RUnlock()
		if ok {
			return role
		}

		if raw, err := r.store.Get(ctx, RoleKey(id.UserID)); err == nil && len(raw) > 0 {
			role := NormalizeRole(string(raw))
			r.rememberRole(id.UserID, role)
			return role
		}
	}

	if r.policy.IsBreakGlass(id.Email) {
		r.cacheRole(ctx, id.UserID, RoleAdmin)
		return RoleAdmin
	}

	stored, err := r.profiles.GetProfileRole(ctx, id.UserID)
	if err != nil {
		r.log.RemoteFailure("resolve_role", err)
		return RoleUser
	}

	role := NormalizeRole(stored)
	r.cacheRole(ctx, id.UserID, role)
	return role
}

// Role is the role of the workspace user, resolving it when unknown. A
// signed-out resolver only ever grants the user role.
func (r *Resolver) Role(ctx context.Context) string {
	snap := r.Snapshot()
	if snap.State == StateSignedOut {
		return RoleUser
	}
	if snap.State == StateResolved && snap.Role != "" {
		return snap.Role
	}
	return r.ResolveRole(ctx, Identity{UserID: r.userID, Email: r.email}, false)
}

// HandleAuthEvent applies an auth state change to the resolver.
func (r *Resolver) HandleAuthEvent(ctx context.Context, e events.AuthStateChanged) error {
	switch e.Change {
	case events.SignedIn, events.TokenRefreshed:
		id := Identity{UserID: e.UserID, Email: e.Email}
		if id.Email == "" {
			id.Email = r.email
		}
		r.resolveFresh(ctx, id)
		return nil
	case events.SignedOut:
		return r.signOut(ctx)
	default:
		return nil
	}
}

// Refresh forces a fresh role lookup for the current identity.
func (r *Resolver) Refresh(ctx context.Context) (Snapshot, error) {
	snap := r.Snapshot()
	if snap.State == StateSignedOut {
		return snap, apperr.Unauthorized("signed out")
	}

	id := Identity{UserID: r.userID, Email: r.email}
	if snap.Identity != nil {
		id = *snap.Identity
	}
	r.resolveFresh(ctx, id)
	return r.Snapshot(), nil
}

func (r *Resolver) resolveFresh(ctx context.Context, id Identity) {
	r.mu.Lock()
	gen := r.generation
	r.mu.Unlock()

	role := r.ResolveRole(ctx, id, true)

	r.mu.Lock()
	if r.generation != gen {
		r.mu.Unlock()
		return
	}
	r.identity = &id
	r.role = role
	r.state = StateResolved
	r.provision = false
	r.mu.Unlock()

	r.persistSession(ctx, id, role)
}

func (r *Resolver) signOut(ctx context.Context) error {
	r.mu.Lock()
	r.signOutLocked()
	r.mu.Unlock()
	return r.dropCaches(ctx)
}

// revoke signs out after the auth provider rejected the session, unless the
// state moved on since verification started.
func (r *Resolver) revoke(ctx context.Context, gen uint64) error {
	r.mu.Lock()
	if r.generation != gen {
		r.mu.Unlock()
		return nil
	}
	r.signOutLocked()
	r.mu.Unlock()
	return r.dropCaches(ctx)
}

func (r *Resolver) signOutLocked() {
	r.generation++
	r.state = StateSignedOut
	r.identity = nil
	r.role = ""
	r.provision = false
	r.roles = make(map[string]string)
}

func (r *Resolver) dropCaches(ctx context.Context) error {
	keys, err := r.store.Keys(ctx, RoleKeyPrefix)
	if err != nil {
		return err
	}
	keys = append(keys, SessionCacheKey)
	return r.store.Delete(ctx, keys...)
}

func (r *Resolver) rememberRole(userID, role string) {
	r.mu.Lock()
	r.roles[userID] = role
	r.mu.Unlock()
}

func (r *Resolver) cacheRole(ctx context.Context, userID, role string) {
	r.rememberRole(userID, role)
	if err := r.store.Set(ctx, RoleKey(userID), []byte(role)); err != nil {
		r.log.Warn("failed to persist role", "user_id", userID, "error", err)
	}
}

func (r *Resolver) loadSession(ctx context.Context) (sessionEntry, bool) {
	raw, err := r.store.Get(ctx, SessionCacheKey)
	if err != nil {
		if !errors.Is(err, kv.ErrNotFound) {
			r.log.Warn("failed to read session cache", "error", err)
		}
		return sessionEntry{}, false
	}

	var entry sessionEntry
	if err := json.Unmarshal(raw, &entry); err != nil {
		r.log.CacheCorruption(SessionCacheKey, err)
		return sessionEntry{}, false
	}

	age := r.opts.Now().Sub(entry.PersistedAt)
	if entry.UserID != r.userID || age < 0 || age >= r.opts.SessionTTL {
		return sessionEntry{}, false
	}
	return entry, true
}

func (r *Resolver) persistSession(ctx context.Context, id Identity, role string) {
	raw, err := json.Marshal(sessionEntry{
		UserID:      id.UserID,
		Email:       id.Email,
		Role:        role,
		PersistedAt: r.opts.Now(),
	})
	if err != nil {
		return
	}
	if err := r.store.Set(ctx, SessionCacheKey, raw); err != nil {
		r.log.Warn("failed to persist session cache", "error", err)
	}
}
