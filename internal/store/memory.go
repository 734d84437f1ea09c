package store

import (
	"context"
	"sync"
	"time"

	"github.com/ansel1/merry"
	"github.com/powerman/structlog"
	"go.uber.org/atomic"

	"github.com/i474232898/covid-dashboard/internal/covid"
)

var log = structlog.New(structlog.KeyUnit, "store")

// DefaultTTL is how long a loaded table is served before a refresh.
const DefaultTTL = 1800 * time.Second

// LoadFunc produces a fresh table.
type LoadFunc func(ctx context.Context) (*covid.Table, error)

// State is the freshness of the held table.
type State string

const (
	StateStale State = "stale"
	StateFresh State = "fresh"
)

// Stats is a point-in-time view of the holder.
type Stats struct {
	State       State     `json:"state"`
	TableID     string    `json:"tableId,omitempty"`
	RefreshedAt time.Time `json:"refreshedAt,omitempty"`
	Refreshes   int64     `json:"refreshes"`
	Failures    int64     `json:"failures"`
}

// MemoryStore holds the current table in memory and reloads it when it is
// older than the TTL. It implements covid.TableSource.
type MemoryStore struct {
	mu          sync.RWMutex
	table       *covid.Table
	refreshedAt time.Time

	// refreshMu serialises load-then-replace.
	refreshMu sync.Mutex

	load LoadFunc
	ttl  time.Duration
	now  func() time.Time

	refreshes *atomic.Int64
	failures  *atomic.Int64
}

// NewMemoryStore creates a store. A ttl <= 0 selects DefaultTTL.
func NewMemoryStore(load LoadFunc, ttl time.Duration) *MemoryStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &MemoryStore{
		load:      load,
		ttl:       ttl,
		now:       time.Now,
		refreshes: atomic.NewInt64(0),
		failures:  atomic.NewInt64(0),
	}
}

// Table returns the held table, refreshing it first if it is stale.
func (s *MemoryStore) Table(ctx context.Context) (*covid.Table, error) {
	if err := s.RefreshIfStale(ctx); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.table, nil
}

// RefreshIfStale loads a new table when none is held or the held one is
// older than the TTL. Without a held table a load failure is returned.
// With one, the failure is logged and the old table stays in place.
func (s *MemoryStore) RefreshIfStale(ctx context.Context) error {
	if s.State() == StateFresh {
		return nil
	}

	s.refreshMu.Lock()
	defer s.refreshMu.Unlock()

	// Another caller may have refreshed while we waited.
	if s.State() == StateFresh {
		return nil
	}

	t, err := s.load(ctx)
	if err == nil && t == nil {
		err = covid.ErrNoData.Here().Append("loader returned no table")
	}
	if err != nil {
		s.failures.Inc()
		s.mu.RLock()
		held := s.table
		s.mu.RUnlock()
		if held == nil {
			return merry.Prepend(err, "initial load")
		}
		log.Warn("refresh failed, serving previous table", "err", err, "table", held.ID)
		return nil
	}

	s.mu.Lock()
	s.table = t
	s.refreshedAt = s.now()
	s.mu.Unlock()
	s.refreshes.Inc()
	log.Info("table refreshed", "table", t.ID, "states", len(t.States))
	return nil
}

// State reports whether the held table is within the TTL.
func (s *MemoryStore) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.table == nil || s.now().Sub(s.refreshedAt) >= s.ttl {
		return StateStale
	}
	return StateFresh
}

// Stats returns counters and the identity of the held table.
func (s *MemoryStore) Stats() Stats {
	st := Stats{
		State:     s.State(),
		Refreshes: s.refreshes.Load(),
		Failures:  s.failures.Load(),
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.table != nil {
		st.TableID = s.table.ID
		st.RefreshedAt = s.refreshedAt
	}
	return st
}
