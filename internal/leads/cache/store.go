// Package cache keeps the caller's working set of leads in memory and
// mirrors it to durable key-value storage after every change.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"leadtracker_backend/internal/leads/domain"
	"leadtracker_backend/platform/kv"
	"leadtracker_backend/platform/logger"
)

// StorageKey is the durable key holding the cache envelope.
const StorageKey = "vt_leads_cache"

// Snapshot is an immutable view of the cache contents. Seq increases with
// every change, so a listener can tell a late delivery from a newer one.
type Snapshot struct {
	Leads     []domain.Lead
	Timestamp *time.Time
	Seq       uint64
}

type envelope struct {
	Data      []domain.Lead `json:"data"`
	Timestamp *time.Time    `json:"timestamp"`
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the clock used to bump UpdatedAt on optimistic updates.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// Store is the local lead cache. Every mutation replaces the in-memory
// envelope and then writes the whole envelope to storage.
type Store struct {
	kv  kv.Store
	log *logger.Logger
	now func() time.Time

	mu  sync.RWMutex
	env envelope
	seq uint64

	listenersMu sync.RWMutex
	listeners   []func(Snapshot)
}

// New creates an empty, uninitialised store backed by store.
func New(store kv.Store, log *logger.Logger, opts ...Option) *Store {
	s := &Store{
		kv:  store,
		log: log.WithComponent("leads.cache"),
		now: time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Init hydrates the in-memory envelope from storage. A missing or corrupt
// entry leaves the cache empty; only a storage failure is returned.
func (s *Store) Init(ctx context.Context) error {
	raw, err := s.kv.Get(ctx, StorageKey)
	if errors.Is(err, kv.ErrNotFound) {
		s.swap(envelope{})
		return nil
	}
	if err != nil {
		return fmt.Errorf("load lead cache: %w", err)
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		s.log.CacheCorruption(StorageKey, err)
		s.swap(envelope{})
		return nil
	}
	s.swap(envelope{Data: dedupe(env.Data), Timestamp: env.Timestamp})
	return nil
}

// Teardown drops the in-memory state. Durable storage is left as is.
func (s *Store) Teardown() {
	s.mu.Lock()
	s.env = envelope{}
	s.seq++
	s.mu.Unlock()
}

// Clear drops the in-memory state and the persisted envelope.
func (s *Store) Clear(ctx context.Context) error {
	s.swap(envelope{})
	return s.kv.Delete(ctx, StorageKey)
}

// OnChange registers fn to receive a snapshot after every change.
func (s *Store) OnChange(fn func(Snapshot)) {
	s.listenersMu.Lock()
	s.listeners = append(s.listeners, fn)
	s.listenersMu.Unlock()
}

// Read returns the cached rows and the time of the last successful fetch.
// It never fails: an uninitialised cache reads as empty with a nil timestamp.
func (s *Store) Read() ([]domain.Lead, *time.Time) {
	snap := s.Snapshot()
	return snap.Leads, snap.Timestamp
}

// Snapshot returns a deep copy of the cache contents.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

// Get returns the cached row with id.
func (s *Store) Get(id string) (domain.Lead, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, lead := range s.env.Data {
		if lead.ID == id {
			return lead.Clone(), true
		}
	}
	return domain.Lead{}, false
}

// IsFresh reports whether the cache holds rows fetched less than maxAge before now.
func (s *Store) IsFresh(now time.Time, maxAge time.Duration) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.env.Data) == 0 || s.env.Timestamp == nil {
		return false
	}
	return now.Sub(*s.env.Timestamp) < maxAge
}

// Replace swaps the whole row set and stamps it with fetchedAt.
func (s *Store) Replace(ctx context.Context, rows []domain.Lead, fetchedAt time.Time) error {
	ts := fetchedAt
	return s.mutate(ctx, func(env *envelope) bool {
		env.Data = dedupe(rows)
		env.Timestamp = &ts
		return true
	})
}

// OptimisticInsert prepends row ahead of the next fetch. A row with the same
// id is replaced. The freshness timestamp is left unchanged.
func (s *Store) OptimisticInsert(ctx context.Context, row domain.Lead) error {
	return s.mutate(ctx, func(env *envelope) bool {
		data := make([]domain.Lead, 0, len(env.Data)+1)
		data = append(data, row.Clone())
		for _, lead := range env.Data {
			if lead.ID != row.ID {
				data = append(data, lead)
			}
		}
		env.Data = data
		return true
	})
}

// OptimisticUpdate merges patch into the row with id. It reports whether a
// row was found; an absent id is not an error.
func (s *Store) OptimisticUpdate(ctx context.Context, id string, patch domain.Patch) (bool, error) {
	found := false
	err := s.mutate(ctx, func(env *envelope) bool {
		for i := range env.Data {
			if env.Data[i].ID == id {
				patch.Apply(&env.Data[i], s.now())
				found = true
				return true
			}
		}
		return false
	})
	return found, err
}

// ReplaceRow swaps the cached row carrying row.ID for row, keeping its
// position. It reports whether the row was cached.
func (s *Store) ReplaceRow(ctx context.Context, row domain.Lead) (bool, error) {
	found := false
	err := s.mutate(ctx, func(env *envelope) bool {
		for i := range env.Data {
			if env.Data[i].ID == row.ID {
				env.Data[i] = row.Clone()
				found = true
				return true
			}
		}
		return false
	})
	return found, err
}

// OptimisticRemove drops the row with id if present.
func (s *Store) OptimisticRemove(ctx context.Context, id string) (bool, error) {
	found := false
	err := s.mutate(ctx, func(env *envelope) bool {
		for i := range env.Data {
			if env.Data[i].ID == id {
				env.Data = append(env.Data[:i:i], env.Data[i+1:]...)
				found = true
				return true
			}
		}
		return false
	})
	return found, err
}

// AppendNote appends note to the row with id, preserving note order.
func (s *Store) AppendNote(ctx context.Context, id string, note domain.Note) (bool, error) {
	found := false
	err := s.mutate(ctx, func(env *envelope) bool {
		for i := range env.Data {
			if env.Data[i].ID == id {
				env.Data[i].Notes = append(env.Data[i].Notes, note)
				env.Data[i].UpdatedAt = s.now()
				found = true
				return true
			}
		}
		return false
	})
	return found, err
}

// mutate applies fn to a copy of the envelope. When fn reports a change the
// copy becomes current, is persisted and listeners are notified.
func (s *Store) mutate(ctx context.Context, fn func(*envelope) bool) error {
	s.mu.Lock()
	next := copyEnvelope(s.env)
	env := envelope{Data: next.Leads, Timestamp: next.Timestamp}
	if !fn(&env) {
		s.mu.Unlock()
		return nil
	}
	s.env = env
	s.seq++
	err := s.persistLocked(ctx)
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.notify(snap)
	return err
}

func (s *Store) swap(env envelope) {
	s.mu.Lock()
	s.env = env
	s.seq++
	snap := s.snapshotLocked()
	s.mu.Unlock()
	s.notify(snap)
}

func (s *Store) snapshotLocked() Snapshot {
	snap := copyEnvelope(s.env)
	snap.Seq = s.seq
	return snap
}

func (s *Store) persistLocked(ctx context.Context) error {
	payload, err := json.Marshal(s.env)
	if err != nil {
		return fmt.Errorf("encode lead cache: %w", err)
	}
	if err := s.kv.Set(ctx, StorageKey, payload); err != nil {
		return fmt.Errorf("persist lead cache: %w", err)
	}
	return nil
}

func (s *Store) notify(snap Snapshot) {
	s.listenersMu.RLock()
	listeners := append([]func(Snapshot){}, s.listeners...)
	s.listenersMu.RUnlock()
	for _, fn := range listeners {
		fn(snap)
	}
}

func copyEnvelope(env envelope) Snapshot {
	leads := make([]domain.Lead, len(env.Data))
	for i, lead := range env.Data {
		leads[i] = lead.Clone()
	}
	var ts *time.Time
	if env.Timestamp != nil {
		t := *env.Timestamp
		ts = &t
	}
	return Snapshot{Leads: leads, Timestamp: ts}
}

// dedupe keeps the first row for every id.
func dedupe(rows []domain.Lead) []domain.Lead {
	out := make([]domain.Lead, 0, len(rows))
	seen := make(map[string]struct{}, len(rows))
	for _, row := range rows {
		if _, ok := seen[row.ID]; ok {
			continue
		}
		seen[row.ID] = struct{}{}
		out = append(out, row.Clone())
	}
	return out
}
