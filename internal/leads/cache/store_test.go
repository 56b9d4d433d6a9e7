package cache

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"leadtracker_backend/internal/leads/domain"
	"leadtracker_backend/platform/kv"
	"leadtracker_backend/platform/logger"
)

var fetchedAt = time.Date(2024, 6, 10, 9, 0, 0, 0, time.UTC)

func lead(id, name string) domain.Lead {
	created := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)
	return domain.Lead{
		ID:             id,
		Name:           name,
		Source:         domain.SourceLinkedIn,
		Contact:        id + "@acme.io",
		ProfileURL:     "https://linkedin.com/in/" + id,
		Tags:           []string{"saas"},
		Status:         domain.StatusNew,
		NextAction:     "Follow up",
		NextActionDate: created.Add(48 * time.Hour),
		CreatedBy:      "u1",
		CreatedAt:      created,
		UpdatedAt:      created,
	}
}

func newStore(t *testing.T, store kv.Store) *Store {
	t.Helper()
	s := New(store, logger.Discard(), WithClock(func() time.Time { return fetchedAt.Add(time.Minute) }))
	if err := s.Init(context.Background()); err != nil {
		t.Fatalf("init: %v", err)
	}
	return s
}

func ids(rows []domain.Lead) []string {
	out := make([]string, len(rows))
	for i, row := range rows {
		out[i] = row.ID
	}
	return out
}

func TestReadBeforeInitIsEmpty(t *testing.T) {
	s := New(kv.NewMemory(), logger.Discard())
	rows, ts := s.Read()
	if len(rows) != 0 || ts != nil {
		t.Fatalf("expected empty cache, got %d rows ts=%v", len(rows), ts)
	}
}

func TestReplaceThenReadRoundTrip(t *testing.T) {
	s := newStore(t, kv.NewMemory())
	rows := []domain.Lead{lead("a", "Alpha"), lead("b", "Beta"), lead("c", "Gamma")}

	if err := s.Replace(context.Background(), rows, fetchedAt); err != nil {
		t.Fatalf("replace: %v", err)
	}

	got, ts := s.Read()
	if !reflect.DeepEqual(got, rows) {
		t.Fatalf("rows differ after round trip:\n got %+v\nwant %+v", got, rows)
	}
	if ts == nil || !ts.Equal(fetchedAt) {
		t.Fatalf("expected timestamp %s, got %v", fetchedAt, ts)
	}
}

func TestReplacePersistsAcrossInstances(t *testing.T) {
	store := kv.NewMemory()
	s := newStore(t, store)
	rows := []domain.Lead{lead("a", "Alpha"), lead("b", "Beta")}
	if err := s.Replace(context.Background(), rows, fetchedAt); err != nil {
		t.Fatalf("replace: %v", err)
	}

	reloaded := newStore(t, store)
	got, ts := reloaded.Read()
	if !reflect.DeepEqual(ids(got), []string{"a", "b"}) {
		t.Fatalf("unexpected ids after reload: %v", ids(got))
	}
	if ts == nil || !ts.Equal(fetchedAt) {
		t.Fatalf("expected persisted timestamp, got %v", ts)
	}
	if !got[0].NextActionDate.Equal(rows[0].NextActionDate) {
		t.Fatal("next action date changed across reload")
	}
}

func TestReplaceDeduplicatesIDs(t *testing.T) {
	s := newStore(t, kv.NewMemory())
	rows := []domain.Lead{lead("a", "First"), lead("b", "Beta"), lead("a", "Second")}
	if err := s.Replace(context.Background(), rows, fetchedAt); err != nil {
		t.Fatalf("replace: %v", err)
	}
	got, _ := s.Read()
	if !reflect.DeepEqual(ids(got), []string{"a", "b"}) || got[0].Name != "First" {
		t.Fatalf("expected first occurrence to win, got %+v", got)
	}
}

func TestCorruptEntryReadsAsEmpty(t *testing.T) {
	store := kv.NewMemory()
	if err := store.Set(context.Background(), StorageKey, []byte("{not json")); err != nil {
		t.Fatalf("seed: %v", err)
	}

	s := newStore(t, store)
	rows, ts := s.Read()
	if len(rows) != 0 || ts != nil {
		t.Fatalf("expected corrupt cache to read as empty, got %d rows", len(rows))
	}

	if err := s.Replace(context.Background(), []domain.Lead{lead("a", "Alpha")}, fetchedAt); err != nil {
		t.Fatalf("replace after corruption: %v", err)
	}
	if rows, _ := newStore(t, store).Read(); len(rows) != 1 {
		t.Fatal("expected cache to heal after a successful replace")
	}
}

func TestOptimisticInsertIsVisibleImmediately(t *testing.T) {
	s := newStore(t, kv.NewMemory())
	_ = s.Replace(context.Background(), []domain.Lead{lead("a", "Alpha")}, fetchedAt)

	if err := s.OptimisticInsert(context.Background(), lead("n", "New")); err != nil {
		t.Fatalf("insert: %v", err)
	}

	rows, ts := s.Read()
	if !reflect.DeepEqual(ids(rows), []string{"n", "a"}) {
		t.Fatalf("expected new row first, got %v", ids(rows))
	}
	if ts == nil || !ts.Equal(fetchedAt) {
		t.Fatal("optimistic insert must not bump the freshness timestamp")
	}

	if err := s.OptimisticInsert(context.Background(), lead("a", "Alpha v2")); err != nil {
		t.Fatalf("insert: %v", err)
	}
	rows, _ = s.Read()
	if !reflect.DeepEqual(ids(rows), []string{"a", "n"}) || rows[0].Name != "Alpha v2" {
		t.Fatalf("expected same-id insert to replace, got %+v", ids(rows))
	}
}

func TestOptimisticUpdate(t *testing.T) {
	s := newStore(t, kv.NewMemory())
	_ = s.Replace(context.Background(), []domain.Lead{lead("a", "Alpha")}, fetchedAt)

	status := domain.StatusContacted
	found, err := s.OptimisticUpdate(context.Background(), "a", domain.Patch{Status: &status})
	if err != nil || !found {
		t.Fatalf("expected update to apply, found=%v err=%v", found, err)
	}
	row, _ := s.Get("a")
	if row.Status != domain.StatusContacted {
		t.Fatalf("expected contacted, got %s", row.Status)
	}
	if !row.UpdatedAt.Equal(fetchedAt.Add(time.Minute)) {
		t.Fatalf("expected updatedAt bump, got %s", row.UpdatedAt)
	}

	found, err = s.OptimisticUpdate(context.Background(), "missing", domain.Patch{Status: &status})
	if err != nil || found {
		t.Fatalf("expected absent id to be a no-op, found=%v err=%v", found, err)
	}
}

func TestOptimisticRemove(t *testing.T) {
	s := newStore(t, kv.NewMemory())
	_ = s.Replace(context.Background(), []domain.Lead{lead("a", "Alpha"), lead("b", "Beta")}, fetchedAt)

	if found, err := s.OptimisticRemove(context.Background(), "a"); err != nil || !found {
		t.Fatalf("expected removal, found=%v err=%v", found, err)
	}
	if found, err := s.OptimisticRemove(context.Background(), "a"); err != nil || found {
		t.Fatalf("expected second removal to be a no-op, found=%v err=%v", found, err)
	}
	rows, _ := s.Read()
	if !reflect.DeepEqual(ids(rows), []string{"b"}) {
		t.Fatalf("unexpected rows %v", ids(rows))
	}
}

func TestAppendNotePreservesOrder(t *testing.T) {
	s := newStore(t, kv.NewMemory())
	_ = s.Replace(context.Background(), []domain.Lead{lead("a", "Alpha")}, fetchedAt)

	_, _ = s.AppendNote(context.Background(), "a", domain.Note{ID: "n1", Content: "first"})
	_, _ = s.AppendNote(context.Background(), "a", domain.Note{ID: "n2", Content: "second"})

	row, _ := s.Get("a")
	if len(row.Notes) != 2 || row.Notes[0].ID != "n1" || row.Notes[1].ID != "n2" {
		t.Fatalf("unexpected notes %+v", row.Notes)
	}
	if !row.UpdatedAt.Equal(fetchedAt.Add(time.Minute)) {
		t.Fatalf("expected updatedAt bump, got %s", row.UpdatedAt)
	}
}

func TestReplaceRowKeepsPosition(t *testing.T) {
	s := newStore(t, kv.NewMemory())
	_ = s.Replace(context.Background(), []domain.Lead{lead("a", "Alpha"), lead("b", "Beta")}, fetchedAt)

	server := lead("b", "Beta Corp")
	server.UpdatedAt = fetchedAt.Add(time.Hour)
	if found, err := s.ReplaceRow(context.Background(), server); err != nil || !found {
		t.Fatalf("expected replacement, found=%v err=%v", found, err)
	}
	rows, _ := s.Read()
	if !reflect.DeepEqual(ids(rows), []string{"a", "b"}) || rows[1].Name != "Beta Corp" {
		t.Fatalf("unexpected rows %+v", rows)
	}

	if found, err := s.ReplaceRow(context.Background(), lead("c", "Gamma")); err != nil || found {
		t.Fatalf("expected uncached row to be ignored, found=%v err=%v", found, err)
	}
}

func TestSnapshotSequenceIncreases(t *testing.T) {
	s := newStore(t, kv.NewMemory())
	var seqs []uint64
	s.OnChange(func(snap Snapshot) { seqs = append(seqs, snap.Seq) })

	before := s.Snapshot().Seq
	_ = s.Replace(context.Background(), []domain.Lead{lead("a", "Alpha")}, fetchedAt)
	_ = s.OptimisticInsert(context.Background(), lead("b", "Beta"))

	if len(seqs) != 2 || seqs[0] <= before || seqs[1] <= seqs[0] {
		t.Fatalf("expected increasing sequence after %d, got %v", before, seqs)
	}
	if got := s.Snapshot().Seq; got != seqs[1] {
		t.Fatalf("expected current sequence %d, got %d", seqs[1], got)
	}
}

func TestIsFresh(t *testing.T) {
	s := newStore(t, kv.NewMemory())
	if s.IsFresh(fetchedAt, 5*time.Minute) {
		t.Fatal("empty cache must not be fresh")
	}
	_ = s.Replace(context.Background(), []domain.Lead{lead("a", "Alpha")}, fetchedAt)

	if !s.IsFresh(fetchedAt.Add(4*time.Minute), 5*time.Minute) {
		t.Fatal("expected cache to be fresh within max age")
	}
	if s.IsFresh(fetchedAt.Add(5*time.Minute), 5*time.Minute) {
		t.Fatal("expected cache to be stale at max age")
	}
}

func TestReadReturnsCopies(t *testing.T) {
	s := newStore(t, kv.NewMemory())
	_ = s.Replace(context.Background(), []domain.Lead{lead("a", "Alpha")}, fetchedAt)

	rows, _ := s.Read()
	rows[0].Name = "Mutated"
	rows[0].Tags[0] = "mutated"

	again, _ := s.Read()
	if again[0].Name != "Alpha" || again[0].Tags[0] != "saas" {
		t.Fatal("callers must not be able to mutate cached rows")
	}
}

func TestOnChangeReceivesSnapshots(t *testing.T) {
	s := newStore(t, kv.NewMemory())
	var seen [][]string
	s.OnChange(func(snap Snapshot) { seen = append(seen, ids(snap.Leads)) })

	_ = s.Replace(context.Background(), []domain.Lead{lead("a", "Alpha")}, fetchedAt)
	_ = s.OptimisticInsert(context.Background(), lead("b", "Beta"))
	_, _ = s.OptimisticRemove(context.Background(), "missing")

	want := [][]string{{"a"}, {"b", "a"}}
	if !reflect.DeepEqual(seen, want) {
		t.Fatalf("unexpected notifications %v", seen)
	}
}

type failingStore struct{ kv.Store }

func (failingStore) Set(context.Context, string, []byte) error { return errors.New("disk full") }

func TestPersistFailureIsReturned(t *testing.T) {
	s := newStore(t, failingStore{Store: kv.NewMemory()})
	if err := s.Replace(context.Background(), []domain.Lead{lead("a", "Alpha")}, fetchedAt); err == nil {
		t.Fatal("expected persist failure to surface")
	}
}

func TestClearDropsPersistedEnvelope(t *testing.T) {
	store := kv.NewMemory()
	s := newStore(t, store)
	_ = s.Replace(context.Background(), []domain.Lead{lead("a", "Alpha")}, fetchedAt)

	if err := s.Clear(context.Background()); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if _, err := store.Get(context.Background(), StorageKey); !errors.Is(err, kv.ErrNotFound) {
		t.Fatalf("expected envelope removed, got %v", err)
	}
	if rows, _ := s.Read(); len(rows) != 0 {
		t.Fatal("expected empty cache after clear")
	}
}
