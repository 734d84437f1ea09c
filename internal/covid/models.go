package covid

import (
	"encoding/json"
	"math"
	"time"

	"github.com/dustin/go-humanize"
)

// Count is an upstream counter that may be reported as null.
// A null count is "no data" and is distinct from a true zero.
type Count struct {
	Value int64
	Valid bool
}

// CountOf returns a valid Count holding v.
func CountOf(v int64) Count {
	return Count{Value: v, Valid: true}
}

// Display renders the count for tables; no data renders as 0.
func (c Count) Display() string {
	if !c.Valid {
		return "0"
	}
	return humanize.Comma(c.Value)
}

func (c Count) MarshalJSON() ([]byte, error) {
	if !c.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(c.Value)
}

func (c *Count) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*c = Count{}
		return nil
	}
	var f float64
	if err := json.Unmarshal(b, &f); err != nil {
		return err
	}
	*c = CountOf(int64(math.Round(f)))
	return nil
}

// Number is a nullable float used for rates and projections.
type Number struct {
	Value float64
	Valid bool
}

// NumberOf returns a valid Number holding v.
func NumberOf(v float64) Number {
	return Number{Value: v, Valid: true}
}

func (n Number) MarshalJSON() ([]byte, error) {
	if !n.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(n.Value)
}

// DailyRecord is one day of statistics for a state, or for the whole
// country when State is empty.
type DailyRecord struct {
	State string    `json:"state,omitempty"`
	Date  time.Time `json:"date"`

	Positive                 Count `json:"positive"`
	Negative                 Count `json:"negative"`
	Hospitalized             Count `json:"hospitalized"`
	Death                    Count `json:"death"`
	TotalTestResults         Count `json:"totalTestResults"`
	PositiveIncrease         Count `json:"positiveIncrease"`
	DeathIncrease            Count `json:"deathIncrease"`
	TotalTestResultsIncrease Count `json:"totalTestResultsIncrease"`

	// New is the day-over-day change in Positive.
	New int64 `json:"new"`

	// PerCapita holds derived per-10k rates keyed by derived metric.
	// States without a population entry have no entries here.
	PerCapita map[Metric]float64 `json:"perCapita,omitempty"`
}

// Value returns the value of metric m for the record, and false when the
// record has no data for it.
func (r DailyRecord) Value(m Metric) (float64, bool) {
	if _, ok := perCapitaNumerators[m]; ok {
		v, ok := r.PerCapita[m]
		return v, ok
	}
	var c Count
	switch m {
	case MetricPositive:
		c = r.Positive
	case MetricNegative:
		c = r.Negative
	case MetricHospitalized:
		c = r.Hospitalized
	case MetricDeath:
		c = r.Death
	case MetricTotalTestResults:
		c = r.TotalTestResults
	case MetricPositiveIncrease:
		c = r.PositiveIncrease
	case MetricDeathIncrease:
		c = r.DeathIncrease
	case MetricTotalTestResultsIncrease:
		c = r.TotalTestResultsIncrease
	case MetricNew:
		c = CountOf(r.New)
	default:
		return 0, false
	}
	return float64(c.Value), c.Valid
}

// DerivedSnapshot is the latest record of a state with its per-10k rates.
type DerivedSnapshot struct {
	DailyRecord
	PositivePer10k Number `json:"positivePer10k"`
	TestsPer10k    Number `json:"testsPer10k"`
}

func newDerivedSnapshot(r DailyRecord) DerivedSnapshot {
	s := DerivedSnapshot{DailyRecord: r}
	if v, ok := r.PerCapita[MetricPositivePer10k]; ok {
		s.PositivePer10k = NumberOf(v)
	}
	if v, ok := r.PerCapita[MetricTestsPer10k]; ok {
		s.TestsPer10k = NumberOf(v)
	}
	return s
}

// ProjectionRecord is one day of model output for a region. State holds a
// state code, "US" for the whole country, or the unmapped region name.
type ProjectionRecord struct {
	State          string    `json:"state"`
	Date           time.Time `json:"date"`
	DeathsMean     Number    `json:"deathsMean"`
	AdmissionsMean Number    `json:"admissionsMean"`
	AllBedsMean    Number    `json:"allBedsMean"`
}

// Value returns the value of projection metric m.
func (p ProjectionRecord) Value(m Metric) (float64, bool) {
	var n Number
	switch m {
	case MetricDeathsMean:
		n = p.DeathsMean
	case MetricAdmissionsMean:
		n = p.AdmissionsMean
	case MetricAllBedsMean:
		n = p.AllBedsMean
	default:
		return 0, false
	}
	return n.Value, n.Valid
}

// TidySeriesPoint is one (date, metric) value in long form.
type TidySeriesPoint struct {
	Date     time.Time `json:"date"`
	State    string    `json:"state,omitempty"`
	Variable string    `json:"variable"`
	Value    float64   `json:"value"`
}

// RankedValue is a row of a top-N ranking.
type RankedValue struct {
	Rank  int     `json:"rank"`
	State string  `json:"state"`
	Value float64 `json:"value"`
}

// StateInfo describes a state's reporting sources.
type StateInfo struct {
	State                string `json:"state"`
	Name                 string `json:"name"`
	Covid19Site          string `json:"covid19Site"`
	Covid19SiteSecondary string `json:"covid19SiteSecondary"`
	Twitter              string `json:"twitter"`
	Notes                string `json:"notes"`
}

// CurrentStats is the running total reported by the current-state and
// national-current endpoints.
type CurrentStats struct {
	Positive         Count     `json:"positive"`
	Negative         Count     `json:"negative"`
	Hospitalized     Count     `json:"hospitalized"`
	Death            Count     `json:"death"`
	TotalTestResults Count     `json:"totalTestResults"`
	Grade            string    `json:"grade,omitempty"`
	Modified         time.Time `json:"modified"`
}

// LabeledStat is a labelled total ready for a summary table.
type LabeledStat struct {
	Label   string `json:"label"`
	Value   Count  `json:"value"`
	Display string `json:"display"`
}

// Labeled returns the stats in summary table order with display labels.
func (c CurrentStats) Labeled() []LabeledStat {
	pairs := []struct {
		m Metric
		v Count
	}{
		{MetricPositive, c.Positive},
		{MetricNegative, c.Negative},
		{MetricHospitalized, c.Hospitalized},
		{MetricDeath, c.Death},
		{MetricTotalTestResults, c.TotalTestResults},
	}
	out := make([]LabeledStat, 0, len(pairs))
	for _, p := range pairs {
		out = append(out, LabeledStat{
			Label:   metricLabels[p.m],
			Value:   p.v,
			Display: p.v.Display(),
		})
	}
	return out
}

// StateDetail combines a state's info blob, its reporting grade and the
// latest derived row from the cached table.
type StateDetail struct {
	Info     StateInfo       `json:"info"`
	Current  CurrentStats    `json:"current"`
	Snapshot DerivedSnapshot `json:"snapshot"`
}

// NationalSummary is the national totals view.
type NationalSummary struct {
	Stats        []LabeledStat `json:"stats"`
	LastModified time.Time     `json:"lastModified"`
	LastUpdate   string        `json:"lastUpdate"`
}

// Table is one fetched, normalized and derived generation of data. It is
// replaced wholesale on refresh and never mutated after construction.
type Table struct {
	ID        string        `json:"id"`
	FetchedAt time.Time     `json:"fetchedAt"`
	States    []DailyRecord `json:"-"`
	National  []DailyRecord `json:"-"`
}

// StateRecords returns the records of one state, newest first.
func (t *Table) StateRecords(state string) []DailyRecord {
	var out []DailyRecord
	for _, r := range t.States {
		if r.State == state {
			out = append(out, r)
		}
	}
	return out
}
