package covid

import (
	"math"
	"sort"
	"time"
)

type recordKey struct {
	state string
	date  time.Time
}

// Dedupe drops repeated (state, date) records. The occurrence that comes
// last in the input wins and takes the position of the first one.
func Dedupe(records []DailyRecord) []DailyRecord {
	index := make(map[recordKey]int, len(records))
	out := make([]DailyRecord, 0, len(records))
	for _, r := range records {
		k := recordKey{r.State, r.Date}
		if i, ok := index[k]; ok {
			out[i] = r
			continue
		}
		index[k] = len(out)
		out = append(out, r)
	}
	return out
}

// SortByStateDateDesc orders records by state ascending, newest date first.
func SortByStateDateDesc(records []DailyRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		if records[i].State != records[j].State {
			return records[i].State < records[j].State
		}
		return records[i].Date.After(records[j].Date)
	})
}

// WithDayOverDayDelta returns a copy of records, deduplicated and sorted by
// SortByStateDateDesc, with New set to the change in Positive since the
// previous reported day of the same state. The earliest day of each state
// has New = 0, as does any day where either Positive is null.
func WithDayOverDayDelta(records []DailyRecord) []DailyRecord {
	out := Dedupe(records)
	SortByStateDateDesc(out)
	for i := range out {
		out[i].New = 0
		if i+1 >= len(out) || out[i+1].State != out[i].State {
			continue
		}
		cur, prev := out[i].Positive, out[i+1].Positive
		if !cur.Valid || !prev.Valid {
			continue
		}
		out[i].New = cur.Value - prev.Value
	}
	return out
}

// Population looks up state populations.
type Population interface {
	Lookup(state string) (int64, bool)
}

// WithPerCapita returns a copy of records with the given per-10k metrics
// filled in. Records whose state has no population entry keep every other
// field and get no per-capita values; their states are returned sorted in
// missing. Null numerators produce no value either.
func WithPerCapita(records []DailyRecord, pop Population, derived ...Metric) (out []DailyRecord, missing []string) {
	out = make([]DailyRecord, len(records))
	seen := make(map[string]bool)
	for i, r := range records {
		out[i] = r
		p, ok := pop.Lookup(r.State)
		if !ok || p <= 0 {
			if !seen[r.State] {
				seen[r.State] = true
				missing = append(missing, r.State)
			}
			continue
		}
		pc := make(map[Metric]float64, len(derived)+len(r.PerCapita))
		for m, v := range r.PerCapita {
			pc[m] = v
		}
		for _, d := range derived {
			num, ok := perCapitaNumerators[d]
			if !ok {
				continue
			}
			v, ok := r.Value(num)
			if !ok {
				continue
			}
			pc[d] = PerTenThousand(v, p)
		}
		out[i].PerCapita = pc
	}
	sort.Strings(missing)
	return out, missing
}

// PerTenThousand returns v per 10,000 of population, rounded to two
// decimals.
func PerTenThousand(v float64, population int64) float64 {
	rate := v / (float64(population) / 10000)
	return math.Round(rate*100) / 100
}
