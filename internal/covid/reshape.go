package covid

import (
	"sort"
	"time"
)

// WideRow is one (state, date) row with one cell per metric. A metric
// absent from Values is a missing cell.
type WideRow struct {
	Date   time.Time
	State  string
	Values map[Metric]float64
}

// WideTable is a time series in wide form.
type WideTable struct {
	Metrics []Metric
	Rows    []WideRow
}

// WideFromRecords builds a wide table of the given metrics from records.
func WideFromRecords(records []DailyRecord, metrics []Metric) WideTable {
	t := WideTable{Metrics: metrics, Rows: make([]WideRow, 0, len(records))}
	for _, r := range records {
		row := WideRow{Date: r.Date, State: r.State, Values: make(map[Metric]float64, len(metrics))}
		for _, m := range metrics {
			if v, ok := r.Value(m); ok {
				row.Values[m] = v
			}
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}

// WideFromProjections builds a wide table of the given projection metrics.
func WideFromProjections(records []ProjectionRecord, metrics []Metric) WideTable {
	t := WideTable{Metrics: metrics, Rows: make([]WideRow, 0, len(records))}
	for _, p := range records {
		row := WideRow{Date: p.Date, State: p.State, Values: make(map[Metric]float64, len(metrics))}
		for _, m := range metrics {
			if v, ok := p.Value(m); ok {
				row.Values[m] = v
			}
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}

// OuterMerge joins two wide tables on (state, date). Rows present in only
// one side keep missing cells for the other side's metrics. The result is
// ordered by date, then state.
func OuterMerge(left, right WideTable) WideTable {
	out := WideTable{Metrics: append([]Metric(nil), left.Metrics...)}
	for _, m := range right.Metrics {
		if !containsMetric(out.Metrics, m) {
			out.Metrics = append(out.Metrics, m)
		}
	}

	index := make(map[recordKey]int)
	add := func(rows []WideRow) {
		for _, r := range rows {
			k := recordKey{r.State, r.Date}
			i, ok := index[k]
			if !ok {
				i = len(out.Rows)
				index[k] = i
				out.Rows = append(out.Rows, WideRow{Date: r.Date, State: r.State, Values: make(map[Metric]float64)})
			}
			for m, v := range r.Values {
				out.Rows[i].Values[m] = v
			}
		}
	}
	add(left.Rows)
	add(right.Rows)

	sort.SliceStable(out.Rows, func(i, j int) bool {
		a, b := out.Rows[i], out.Rows[j]
		if !a.Date.Equal(b.Date) {
			return a.Date.Before(b.Date)
		}
		return a.State < b.State
	})
	return out
}

// Melt reshapes a wide table into tidy points labelled for display. Points
// are emitted row by row in metric order; missing cells are skipped.
func Melt(t WideTable) ([]TidySeriesPoint, error) {
	labels := make([]string, len(t.Metrics))
	for i, m := range t.Metrics {
		l, err := Label(m)
		if err != nil {
			return nil, err
		}
		labels[i] = l
	}
	out := make([]TidySeriesPoint, 0, len(t.Rows)*len(t.Metrics))
	for _, r := range t.Rows {
		for i, m := range t.Metrics {
			v, ok := r.Values[m]
			if !ok {
				continue
			}
			out = append(out, TidySeriesPoint{
				Date:     r.Date,
				State:    r.State,
				Variable: labels[i],
				Value:    v,
			})
		}
	}
	return out, nil
}

// Pivot reverses Melt. Metrics and rows keep first-seen order.
func Pivot(points []TidySeriesPoint) (WideTable, error) {
	var t WideTable
	index := make(map[recordKey]int)
	for _, p := range points {
		m, ok := metricByLabel(p.Variable)
		if !ok {
			return WideTable{}, ErrUnknownMetric.Here().Appendf("label %q", p.Variable)
		}
		if !containsMetric(t.Metrics, m) {
			t.Metrics = append(t.Metrics, m)
		}
		k := recordKey{p.State, p.Date}
		i, ok := index[k]
		if !ok {
			i = len(t.Rows)
			index[k] = i
			t.Rows = append(t.Rows, WideRow{Date: p.Date, State: p.State, Values: make(map[Metric]float64)})
		}
		t.Rows[i].Values[m] = p.Value
	}
	return t, nil
}

func containsMetric(ms []Metric, m Metric) bool {
	for _, x := range ms {
		if x == m {
			return true
		}
	}
	return false
}
