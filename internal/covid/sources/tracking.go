package sources

import (
	"context"
	"encoding/json"
	"net/url"
	"strings"
	"sync"

	"github.com/sony/gobreaker"

	"github.com/i474232898/covid-dashboard/internal/covid"
)

// TrackingSource implements covid.Source for the COVID Tracking Project
// REST API. Each endpoint path trips its own circuit breaker, so failing
// per-state lookups never block the daily table fetches.
type TrackingSource struct {
	baseURL string
	httpCfg HTTPClientConfig

	mu       sync.Mutex
	circuits map[string]*gobreaker.CircuitBreaker
}

func NewTrackingSource(cfg HTTPClientConfig, baseURL string) *TrackingSource {
	return &TrackingSource{
		baseURL:  strings.TrimRight(baseURL, "/"),
		httpCfg:  cfg,
		circuits: make(map[string]*gobreaker.CircuitBreaker),
	}
}

func (s *TrackingSource) circuit(path string) *gobreaker.CircuitBreaker {
	s.mu.Lock()
	defer s.mu.Unlock()
	cb, ok := s.circuits[path]
	if !ok {
		cb = newBreaker("covidtracking" + path)
		s.circuits[path] = cb
	}
	return cb
}

func (s *TrackingSource) get(ctx context.Context, path string, params url.Values) ([]byte, error) {
	return getBody(ctx, s.httpCfg, s.circuit(path), s.baseURL+path, params)
}

func (s *TrackingSource) getRows(ctx context.Context, path string) ([]covid.RawRow, error) {
	body, err := s.get(ctx, path, nil)
	if err != nil {
		return nil, err
	}
	var rows []covid.RawRow
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, covid.ErrMalformedResponse.Here().WithCause(err).Appendf("GET %s", path)
	}
	return rows, nil
}

func (s *TrackingSource) getObject(ctx context.Context, path string, params url.Values) (covid.RawRow, error) {
	body, err := s.get(ctx, path, params)
	if err != nil {
		return nil, err
	}
	var row covid.RawRow
	if err := json.Unmarshal(body, &row); err != nil {
		return nil, covid.ErrMalformedResponse.Here().WithCause(err).Appendf("GET %s", path)
	}
	return row, nil
}

func (s *TrackingSource) FetchDailyStates(ctx context.Context) ([]covid.RawRow, error) {
	return s.getRows(ctx, "/states/daily")
}

func (s *TrackingSource) FetchNationalDaily(ctx context.Context) ([]covid.RawRow, error) {
	return s.getRows(ctx, "/us/daily")
}

func (s *TrackingSource) FetchCurrentState(ctx context.Context, state string) (covid.RawRow, error) {
	return s.getObject(ctx, "/states", url.Values{"state": {state}})
}

// FetchNationalCurrent returns the single object of the /us array.
func (s *TrackingSource) FetchNationalCurrent(ctx context.Context) (covid.RawRow, error) {
	rows, err := s.getRows(ctx, "/us")
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, covid.ErrMalformedResponse.Here().Append("GET /us: empty array")
	}
	return rows[0], nil
}

func (s *TrackingSource) FetchStateInfo(ctx context.Context, state string) (json.RawMessage, error) {
	body, err := s.get(ctx, "/states/info", url.Values{"state": {state}})
	if err != nil {
		return nil, err
	}
	if !json.Valid(body) {
		return nil, covid.ErrMalformedResponse.Here().Appendf("GET /states/info?state=%s", state)
	}
	return json.RawMessage(body), nil
}
