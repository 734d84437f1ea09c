package covid

import (
	"context"
	"sort"
	"time"
	_ "time/tzdata" // US/Eastern rendering of national lastModified
)

const lastUpdateLayout = "Monday, January 02, 2006 03:04PM MST -0700UTC"

var eastern = func() *time.Location {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		return time.UTC
	}
	return loc
}()

// Service answers dashboard queries from the cached Table, fetching
// per-state blobs and projections on demand.
type Service struct {
	tables      TableSource
	source      Source
	projections ProjectionSource
	now         func() time.Time
}

// NewService creates a new Service. projections may be nil, in which case
// time series carry actuals only.
func NewService(tables TableSource, source Source, projections ProjectionSource) *Service {
	return &Service{
		tables:      tables,
		source:      source,
		projections: projections,
		now:         time.Now,
	}
}

// States returns the sorted state codes present in the cached table.
func (s *Service) States(ctx context.Context) ([]string, error) {
	t, err := s.tables.Table(ctx)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool)
	var out []string
	for _, r := range t.States {
		if !seen[r.State] {
			seen[r.State] = true
			out = append(out, r.State)
		}
	}
	sort.Strings(out)
	return out, nil
}

// CurrentSnapshot returns the latest record of every state, ordered by
// state code.
func (s *Service) CurrentSnapshot(ctx context.Context) ([]DerivedSnapshot, error) {
	t, err := s.tables.Table(ctx)
	if err != nil {
		return nil, err
	}
	return latestByState(t.States), nil
}

func latestByState(records []DailyRecord) []DerivedSnapshot {
	latest := make(map[string]int)
	var order []string
	for i, r := range records {
		j, ok := latest[r.State]
		if !ok {
			order = append(order, r.State)
			latest[r.State] = i
			continue
		}
		if r.Date.After(records[j].Date) {
			latest[r.State] = i
		}
	}
	sort.Strings(order)
	out := make([]DerivedSnapshot, 0, len(order))
	for _, st := range order {
		out = append(out, newDerivedSnapshot(records[latest[st]]))
	}
	return out
}

// TopNByMetric ranks states by metric on their latest record, highest
// first. States with no value for the metric are left out; ties keep
// snapshot order.
func (s *Service) TopNByMetric(ctx context.Context, n int, metric Metric) ([]RankedValue, error) {
	if n <= 0 {
		return nil, ErrInvalidArgument.Here().Appendf("n must be positive, got %d", n)
	}
	if _, err := Label(metric); err != nil {
		return nil, err
	}
	if isProjectionMetric(metric) {
		return nil, ErrUnknownMetric.Here().Appendf("%q is not a snapshot metric", string(metric))
	}
	snap, err := s.CurrentSnapshot(ctx)
	if err != nil {
		return nil, err
	}
	return topN(snap, n, metric), nil
}

func topN(snap []DerivedSnapshot, n int, metric Metric) []RankedValue {
	var ranked []RankedValue
	for _, r := range snap {
		if v, ok := r.Value(metric); ok {
			ranked = append(ranked, RankedValue{State: r.State, Value: v})
		}
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].Value > ranked[j].Value })
	if len(ranked) > n {
		ranked = ranked[:n]
	}
	for i := range ranked {
		ranked[i].Rank = i + 1
	}
	return ranked
}

// NationalTimeseries returns national daily metrics in tidy form, outer
// merged with national projections when a projection metric is asked for.
// An empty metric set selects DefaultSeriesMetrics.
func (s *Service) NationalTimeseries(ctx context.Context, metrics []Metric) ([]TidySeriesPoint, error) {
	actual, projected, err := splitMetrics(metrics)
	if err != nil {
		return nil, err
	}
	t, err := s.tables.Table(ctx)
	if err != nil {
		return nil, err
	}
	wide := WideFromRecords(t.National, actual)
	wide = s.mergeProjections(ctx, wide, projected, NationalCode, "")
	return Melt(wide)
}

// StateTimeseries is NationalTimeseries for one state.
func (s *Service) StateTimeseries(ctx context.Context, state string, metrics []Metric) ([]TidySeriesPoint, error) {
	if !IsState(state) {
		return nil, ErrUnknownState.Here().Appendf("%q", state)
	}
	actual, projected, err := splitMetrics(metrics)
	if err != nil {
		return nil, err
	}
	t, err := s.tables.Table(ctx)
	if err != nil {
		return nil, err
	}
	wide := WideFromRecords(t.StateRecords(state), actual)
	wide = s.mergeProjections(ctx, wide, projected, state, state)
	return Melt(wide)
}

func splitMetrics(metrics []Metric) (actual, projected []Metric, err error) {
	if len(metrics) == 0 {
		metrics = DefaultSeriesMetrics
	}
	for _, m := range metrics {
		if _, err := Label(m); err != nil {
			return nil, nil, err
		}
		if isProjectionMetric(m) {
			projected = append(projected, m)
		} else {
			actual = append(actual, m)
		}
	}
	return actual, projected, nil
}

// mergeProjections outer merges projections for region into wide. The
// merged rows are keyed by rowState so they line up with the actuals.
// A failed fetch is logged and the actuals are returned unchanged.
func (s *Service) mergeProjections(ctx context.Context, wide WideTable, metrics []Metric, region, rowState string) WideTable {
	// Merging with an empty table still orders rows by date.
	if len(metrics) == 0 || s.projections == nil {
		return OuterMerge(wide, WideTable{})
	}
	recs, err := s.loadProjections(ctx)
	if err != nil {
		log.Warn("projections unavailable", "err", err, "region", region)
		return OuterMerge(wide, WideTable{})
	}
	var sel []ProjectionRecord
	for _, p := range recs {
		if p.State == region {
			p.State = rowState
			sel = append(sel, p)
		}
	}
	return OuterMerge(wide, WideFromProjections(sel, metrics))
}

func (s *Service) loadProjections(ctx context.Context) ([]ProjectionRecord, error) {
	blob, err := s.projections.FetchProjectionArchive(ctx)
	if err != nil {
		return nil, err
	}
	return ParseProjectionArchive(blob, s.now())
}

// StateDetail returns the info blob, current totals with grade, and the
// latest derived row of state.
func (s *Service) StateDetail(ctx context.Context, state string) (StateDetail, error) {
	if !IsState(state) {
		return StateDetail{}, ErrUnknownState.Here().Appendf("%q", state)
	}
	rawInfo, err := s.source.FetchStateInfo(ctx, state)
	if err != nil {
		return StateDetail{}, err
	}
	info, err := DecodeStateInfo(state, rawInfo)
	if err != nil {
		return StateDetail{}, err
	}
	rawCurrent, err := s.source.FetchCurrentState(ctx, state)
	if err != nil {
		return StateDetail{}, err
	}
	current, err := NormalizeCurrent(rawCurrent)
	if err != nil {
		return StateDetail{}, err
	}

	t, err := s.tables.Table(ctx)
	if err != nil {
		return StateDetail{}, err
	}
	snap := latestByState(t.StateRecords(state))
	if len(snap) == 0 {
		return StateDetail{}, ErrNoData.Here().Appendf("state %s", state)
	}
	return StateDetail{Info: info, Current: current, Snapshot: snap[0]}, nil
}

// NationalSummary returns the labelled national totals and the time of
// the last upstream update rendered in US/Eastern.
func (s *Service) NationalSummary(ctx context.Context) (NationalSummary, error) {
	raw, err := s.source.FetchNationalCurrent(ctx)
	if err != nil {
		return NationalSummary{}, err
	}
	cur, err := NormalizeCurrent(raw)
	if err != nil {
		return NationalSummary{}, err
	}
	sum := NationalSummary{Stats: cur.Labeled(), LastModified: cur.Modified}
	if !cur.Modified.IsZero() {
		sum.LastUpdate = FormatLastUpdate(cur.Modified)
	}
	return sum, nil
}

// FormatLastUpdate renders t in US/Eastern for the national header.
func FormatLastUpdate(t time.Time) string {
	return t.In(eastern).Format(lastUpdateLayout)
}
