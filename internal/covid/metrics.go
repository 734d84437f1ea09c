package covid

import "strings"

// Metric is a column key. Actual metrics use upstream field names.
type Metric string

const (
	MetricPositive                 Metric = "positive"
	MetricNegative                 Metric = "negative"
	MetricHospitalized             Metric = "hospitalized"
	MetricDeath                    Metric = "death"
	MetricTotalTestResults         Metric = "totalTestResults"
	MetricPositiveIncrease         Metric = "positiveIncrease"
	MetricDeathIncrease            Metric = "deathIncrease"
	MetricTotalTestResultsIncrease Metric = "totalTestResultsIncrease"

	MetricNew            Metric = "new"
	MetricPositivePer10k Metric = "positivePer10k"
	MetricTestsPer10k    Metric = "testsPer10k"

	MetricDeathsMean     Metric = "deaths_mean"
	MetricAdmissionsMean Metric = "admis_mean"
	MetricAllBedsMean    Metric = "allbed_mean"
)

var metricLabels = map[Metric]string{
	MetricPositive:                 "Confirmed Positive",
	MetricNegative:                 "Reported Negative",
	MetricHospitalized:             "Reported Hospitalized",
	MetricDeath:                    "Deaths",
	MetricTotalTestResults:         "Total Reported Tests",
	MetricPositiveIncrease:         "Positives per Day",
	MetricDeathIncrease:            "Deaths per Day",
	MetricTotalTestResultsIncrease: "Tests per Day",
	MetricNew:                      "New Positives",
	MetricPositivePer10k:           "Positives per 10k",
	MetricTestsPer10k:              "Tests per 10k",
	MetricDeathsMean:               "Projected Deaths per Day",
	MetricAdmissionsMean:           "Projected Admissions per Day",
	MetricAllBedsMean:              "Projected Beds Needed",
}

// perCapitaNumerators maps each derived per-10k metric to its numerator.
var perCapitaNumerators = map[Metric]Metric{
	MetricPositivePer10k: MetricPositive,
	MetricTestsPer10k:    MetricTotalTestResults,
}

var projectionMetrics = []Metric{MetricDeathsMean, MetricAdmissionsMean, MetricAllBedsMean}

// DefaultSeriesMetrics is charted when a caller asks for no specific metrics.
var DefaultSeriesMetrics = []Metric{
	MetricPositiveIncrease,
	MetricDeathIncrease,
	MetricTotalTestResultsIncrease,
	MetricDeathsMean,
	MetricAdmissionsMean,
	MetricAllBedsMean,
}

// Label returns the display label of m.
func Label(m Metric) (string, error) {
	l, ok := metricLabels[m]
	if !ok {
		return "", ErrUnknownMetric.Here().Appendf("%q", string(m))
	}
	return l, nil
}

// ParseMetrics splits a comma separated list and validates every key.
// An empty list yields nil.
func ParseMetrics(s string) ([]Metric, error) {
	var out []Metric
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		m := Metric(part)
		if _, err := Label(m); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}

func metricByLabel(label string) (Metric, bool) {
	for m, l := range metricLabels {
		if l == label {
			return m, true
		}
	}
	return "", false
}

func isProjectionMetric(m Metric) bool {
	for _, p := range projectionMetrics {
		if p == m {
			return true
		}
	}
	return false
}
