package views

import (
	"sync"
	"time"

	"leadtracker_backend/internal/leads/cache"
	"leadtracker_backend/internal/leads/domain"
)

// Dashboard keeps the buckets of a cache current by recomputing them on
// every cache change.
type Dashboard struct {
	now func() time.Time

	mu      sync.RWMutex
	rows    []domain.Lead
	seq     uint64
	latest  Buckets
	version uint64
}

// NewDashboard subscribes to store and computes the initial buckets.
func NewDashboard(store *cache.Store, now func() time.Time) *Dashboard {
	if now == nil {
		now = time.Now
	}
	d := &Dashboard{now: now}
	d.apply(store.Snapshot())
	store.OnChange(d.apply)
	return d
}

// apply installs snap unless a newer snapshot was already applied. Listeners
// run outside the cache lock, so deliveries can arrive out of order.
func (d *Dashboard) apply(snap cache.Snapshot) {
	buckets := Bucket(snap.Leads, d.now())
	d.mu.Lock()
	defer d.mu.Unlock()
	if snap.Seq < d.seq {
		return
	}
	d.seq = snap.Seq
	d.rows = snap.Leads
	d.latest = buckets
	d.version++
}

// Latest returns the buckets computed at the last cache change and a
// counter that increases with every recomputation.
func (d *Dashboard) Latest() (Buckets, uint64) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.latest, d.version
}

// View filters the current rows and buckets them against the current time.
func (d *Dashboard) View(search, source string) Buckets {
	d.mu.RLock()
	rows := d.rows
	d.mu.RUnlock()
	return Bucket(Filter(rows, search, source), d.now())
}

// Rows returns the filtered current rows in cache order.
func (d *Dashboard) Rows(search, source string) []domain.Lead {
	d.mu.RLock()
	rows := d.rows
	d.mu.RUnlock()
	return Filter(rows, search, source)
}
