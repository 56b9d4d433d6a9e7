package workspace

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	authtransport "leadtracker_backend/internal/auth/transport"
	"leadtracker_backend/internal/events"
	"leadtracker_backend/internal/identity"
	"leadtracker_backend/internal/leads/cache"
	"leadtracker_backend/internal/leads/domain"
	"leadtracker_backend/internal/leads/repository"
	"leadtracker_backend/platform/kv"
	"leadtracker_backend/platform/logger"
	"leadtracker_backend/platform/validator"
)

var testNow = time.Date(2024, 6, 10, 9, 0, 0, 0, time.UTC)

type testConfig struct{}

func (testConfig) GetLeadsCacheTTL() time.Duration      { return 5 * time.Minute }
func (testConfig) GetLoadingCeiling() time.Duration     { return time.Second }
func (testConfig) GetSessionCacheTTL() time.Duration    { return 5 * time.Minute }
func (testConfig) GetRoleResolveTimeout() time.Duration { return 200 * time.Millisecond }

type testRows struct{ leads []domain.Lead }

func (r testRows) List(context.Context, repository.ListQuery) ([]domain.Lead, error) {
	return append([]domain.Lead(nil), r.leads...), nil
}

func (r testRows) GetByID(_ context.Context, id string) (domain.Lead, error) {
	for _, lead := range r.leads {
		if lead.ID == id {
			return lead, nil
		}
	}
	return domain.Lead{}, repository.ErrNotFound
}

func (testRows) Create(context.Context, repository.CreateParams) (domain.Lead, error) {
	return domain.Lead{}, errors.New("not supported")
}

func (testRows) Update(context.Context, string, domain.Patch) (domain.Lead, error) {
	return domain.Lead{}, errors.New("not supported")
}

func (testRows) Delete(context.Context, string) error { return nil }

func (testRows) CreateNote(context.Context, string, string) (domain.Note, error) {
	return domain.Note{}, errors.New("not supported")
}

type testProfiles struct{}

func (testProfiles) GetProfileRole(context.Context, string) (string, error) {
	return identity.RoleUser, nil
}

func (testProfiles) ListProfiles(context.Context) ([]repository.Profile, error) {
	return []repository.Profile{{ID: "U1", Email: "u1@example.com", Role: "user"}}, nil
}

type testSessions struct{}

func (testSessions) GetSession(_ context.Context, userID string) (authtransport.User, error) {
	return authtransport.User{ID: userID}, nil
}

func newTestRegistry(store kv.Store, onChange func(string, cache.Snapshot)) *Registry {
	return NewRegistry(Deps{
		KV:            store,
		Rows:          testRows{leads: []domain.Lead{{ID: "l1", Name: "Acme", Status: domain.StatusNew, CreatedBy: "U1", NextActionDate: testNow}}},
		Profiles:      testProfiles{},
		Sessions:      testSessions{},
		Policy:        identity.NewPolicy(nil),
		Validator:     validator.New(),
		Config:        testConfig{},
		Log:           logger.Discard(),
		Now:           func() time.Time { return testNow },
		OnCacheChange: onChange,
	})
}

func TestGetReusesWorkspace(t *testing.T) {
	registry := newTestRegistry(kv.NewMemory(), nil)
	ctx := context.Background()

	first, err := registry.Get(ctx, "U1", "u1@example.com")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	second, err := registry.Get(ctx, "U1", "u1@example.com")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if first != second {
		t.Fatal("expected the same workspace for the same user")
	}

	if _, err := registry.Get(ctx, "", ""); err == nil {
		t.Fatal("expected an error for an anonymous caller")
	}
}

func TestCacheChangesReachListener(t *testing.T) {
	var (
		mu    sync.Mutex
		users []string
		last  cache.Snapshot
	)
	registry := newTestRegistry(kv.NewMemory(), func(userID string, snap cache.Snapshot) {
		mu.Lock()
		defer mu.Unlock()
		users = append(users, userID)
		last = snap
	})
	ctx := context.Background()

	ws, err := registry.Get(ctx, "U1", "u1@example.com")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if err := ws.Leads.Fetch(ctx, ws.Requester(ctx), false); err != nil {
		t.Fatalf("fetch: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(users) == 0 || users[len(users)-1] != "U1" {
		t.Fatalf("expected a change for U1, got %v", users)
	}
	if len(last.Leads) != 1 || last.Leads[0].ID != "l1" {
		t.Fatalf("unexpected snapshot %+v", last.Leads)
	}
}

func TestSignOutClearsOnlyThatNamespace(t *testing.T) {
	store := kv.NewMemory()
	registry := newTestRegistry(store, nil)
	ctx := context.Background()

	if err := store.Set(ctx, Namespace("U2")+cache.StorageKey, []byte(`{"data":[]}`)); err != nil {
		t.Fatalf("seed: %v", err)
	}

	ws, err := registry.Get(ctx, "U1", "u1@example.com")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if err := ws.Leads.Fetch(ctx, ws.Requester(ctx), false); err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if keys, _ := store.Keys(ctx, Namespace("U1")); len(keys) == 0 {
		t.Fatal("expected durable entries after the fetch")
	}

	err = registry.HandleAuthEvent(ctx, events.AuthStateChanged{
		BaseEvent: events.NewBaseEvent(),
		Change:    events.SignedOut,
		UserID:    "U1",
	})
	if err != nil {
		t.Fatalf("sign out: %v", err)
	}

	if keys, _ := store.Keys(ctx, Namespace("U1")); len(keys) != 0 {
		t.Fatalf("expected U1 namespace cleared, got %v", keys)
	}
	if _, err := store.Get(ctx, Namespace("U2")+cache.StorageKey); err != nil {
		t.Fatalf("expected U2 entry to survive, got %v", err)
	}

	again, err := registry.Get(ctx, "U1", "u1@example.com")
	if err != nil {
		t.Fatalf("get after sign out: %v", err)
	}
	if again == ws {
		t.Fatal("expected a fresh workspace after sign out")
	}
	if rows, _ := again.Cache.Read(); len(rows) != 0 {
		t.Fatalf("expected an empty cache after sign out, got %d rows", len(rows))
	}
}

// blockingKV stalls reads under one prefix until release is closed.
type blockingKV struct {
	kv.Store
	prefix  string
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func (b *blockingKV) Get(ctx context.Context, key string) ([]byte, error) {
	if strings.HasPrefix(key, b.prefix) {
		b.once.Do(func() { close(b.entered) })
		<-b.release
	}
	return b.Store.Get(ctx, key)
}

func TestSlowBuildDoesNotBlockOtherUsers(t *testing.T) {
	store := &blockingKV{
		Store:   kv.NewMemory(),
		prefix:  Namespace("slow"),
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
	registry := newTestRegistry(store, nil)
	ctx := context.Background()

	type result struct {
		ws  *Workspace
		err error
	}
	slow := make(chan result, 2)
	for i := 0; i < 2; i++ {
		go func() {
			ws, err := registry.Get(ctx, "slow", "slow@example.com")
			slow <- result{ws, err}
		}()
	}
	<-store.entered

	fastCtx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	if _, err := registry.Get(fastCtx, "U1", "u1@example.com"); err != nil {
		t.Fatalf("expected another user's workspace while a build is stalled, got %v", err)
	}

	close(store.release)
	first, second := <-slow, <-slow
	if first.err != nil || second.err != nil {
		t.Fatalf("slow builds failed: %v, %v", first.err, second.err)
	}
	if first.ws != second.ws {
		t.Fatal("expected concurrent first requests to share one workspace")
	}
}
