package store

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ansel1/merry"
	"github.com/powerman/structlog"

	"github.com/i474232898/covid-dashboard/internal/covid"
)

type countingLoader struct {
	mu    sync.Mutex
	calls int
	err   error
	delay time.Duration
}

func (l *countingLoader) load(ctx context.Context) (*covid.Table, error) {
	l.mu.Lock()
	l.calls++
	n, err := l.calls, l.err
	l.mu.Unlock()
	time.Sleep(l.delay)
	if err != nil {
		return nil, err
	}
	return &covid.Table{ID: string(rune('a' + n - 1))}, nil
}

func (l *countingLoader) count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.calls
}

func newTestStore(l *countingLoader, now *time.Time) *MemoryStore {
	s := NewMemoryStore(l.load, 30*time.Minute)
	s.now = func() time.Time { return *now }
	return s
}

func TestMemoryStore_FirstLoadFailure(t *testing.T) {
	now := time.Date(2020, 4, 1, 0, 0, 0, 0, time.UTC)
	l := &countingLoader{err: covid.ErrUpstreamUnavailable.Here()}
	s := newTestStore(l, &now)

	tbl, err := s.Table(context.Background())
	if err == nil || tbl != nil {
		t.Fatalf("Table() = %v, %v; want error", tbl, err)
	}
	if !merry.Is(err, covid.ErrUpstreamUnavailable) {
		t.Errorf("Table() error = %v; want ErrUpstreamUnavailable", err)
	}
	if s.State() != StateStale {
		t.Errorf("State() = %s; want stale", s.State())
	}
}

func TestMemoryStore_FreshReadsDoNotFetch(t *testing.T) {
	now := time.Date(2020, 4, 1, 0, 0, 0, 0, time.UTC)
	l := &countingLoader{}
	s := newTestStore(l, &now)

	first, err := s.Table(context.Background())
	if err != nil {
		t.Fatalf("Table() failed: %v", err)
	}
	for i := 0; i < 5; i++ {
		now = now.Add(5 * time.Minute)
		tbl, err := s.Table(context.Background())
		if err != nil {
			t.Fatal(err)
		}
		if tbl != first {
			t.Errorf("read %d returned a different table", i)
		}
	}
	if l.count() != 1 {
		t.Errorf("loader called %d times; want 1", l.count())
	}
	if s.State() != StateFresh {
		t.Errorf("State() = %s; want fresh", s.State())
	}

	now = now.Add(5 * time.Minute)
	tbl, err := s.Table(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if tbl.ID != "b" || l.count() != 2 {
		t.Errorf("after TTL got table %q with %d loads; want b with 2", tbl.ID, l.count())
	}
}

func captureLog(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	orig := log
	log = structlog.New(structlog.KeyUnit, "store").SetOutput(&buf)
	t.Cleanup(func() { log = orig })
	return &buf
}

func TestMemoryStore_StaleRefreshFailureKeepsTable(t *testing.T) {
	now := time.Date(2020, 4, 1, 0, 0, 0, 0, time.UTC)
	l := &countingLoader{}
	s := newTestStore(l, &now)
	logged := captureLog(t)

	first, err := s.Table(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	l.mu.Lock()
	l.err = covid.ErrUpstreamUnavailable.Here()
	l.mu.Unlock()
	now = now.Add(time.Hour)

	tbl, err := s.Table(context.Background())
	if err != nil {
		t.Fatalf("Table() after failed refresh = %v; want no error", err)
	}
	if tbl != first {
		t.Error("failed refresh replaced the table")
	}
	st := s.Stats()
	if st.Failures != 1 || st.Refreshes != 1 || st.TableID != "a" {
		t.Errorf("Stats() = %+v", st)
	}
	if out := logged.String(); !strings.Contains(out, "refresh failed") || !strings.Contains(out, "upstream unavailable") {
		t.Errorf("log output = %q; want the refresh failure", out)
	}
}

func TestMemoryStore_ConcurrentRefreshLoadsOnce(t *testing.T) {
	now := time.Date(2020, 4, 1, 0, 0, 0, 0, time.UTC)
	l := &countingLoader{delay: 20 * time.Millisecond}
	s := newTestStore(l, &now)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.Table(context.Background()); err != nil {
				t.Error(err)
			}
		}()
	}
	wg.Wait()
	if l.count() != 1 {
		t.Errorf("loader called %d times; want 1", l.count())
	}
}
