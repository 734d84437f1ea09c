package covid

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/ansel1/merry"
)

const dateLayout = "20060102"

// RawRow is one upstream JSON object with its fields undecoded.
type RawRow map[string]json.RawMessage

type fieldSetter func(r *DailyRecord, raw json.RawMessage) error

func countField(f func(r *DailyRecord) *Count) fieldSetter {
	return func(r *DailyRecord, raw json.RawMessage) error {
		return json.Unmarshal(raw, f(r))
	}
}

// dailyFields maps upstream field names to canonical record fields.
// Fields not listed here are dropped.
var dailyFields = map[string]fieldSetter{
	"state": func(r *DailyRecord, raw json.RawMessage) error {
		if string(raw) == "null" {
			return nil
		}
		return json.Unmarshal(raw, &r.State)
	},
	"date": func(r *DailyRecord, raw json.RawMessage) error {
		d, err := parseCompactDate(raw)
		if err != nil {
			return err
		}
		r.Date = d
		return nil
	},
	"positive":                 countField(func(r *DailyRecord) *Count { return &r.Positive }),
	"negative":                 countField(func(r *DailyRecord) *Count { return &r.Negative }),
	"hospitalized":             countField(func(r *DailyRecord) *Count { return &r.Hospitalized }),
	"death":                    countField(func(r *DailyRecord) *Count { return &r.Death }),
	"totalTestResults":         countField(func(r *DailyRecord) *Count { return &r.TotalTestResults }),
	"positiveIncrease":         countField(func(r *DailyRecord) *Count { return &r.PositiveIncrease }),
	"deathIncrease":            countField(func(r *DailyRecord) *Count { return &r.DeathIncrease }),
	"totalTestResultsIncrease": countField(func(r *DailyRecord) *Count { return &r.TotalTestResultsIncrease }),
}

// parseCompactDate accepts YYYYMMDD as either a JSON number or string.
func parseCompactDate(raw json.RawMessage) (time.Time, error) {
	s := strings.Trim(string(raw), `"`)
	if _, err := strconv.Atoi(s); err != nil || len(s) != len(dateLayout) {
		return time.Time{}, ErrMalformedResponse.Here().Appendf("bad date %s", string(raw))
	}
	d, err := time.Parse(dateLayout, s)
	if err != nil {
		return time.Time{}, ErrMalformedResponse.Here().WithCause(err).Appendf("bad date %s", s)
	}
	return d, nil
}

// Normalize converts raw daily rows into DailyRecords in source order.
// Every row must carry a date.
func Normalize(rows []RawRow) ([]DailyRecord, error) {
	out := make([]DailyRecord, 0, len(rows))
	for i, row := range rows {
		var r DailyRecord
		if _, ok := row["date"]; !ok {
			return nil, ErrMalformedResponse.Here().Appendf("row %d: missing date", i)
		}
		for key, raw := range row {
			set, ok := dailyFields[key]
			if !ok {
				continue
			}
			if err := set(&r, raw); err != nil {
				if merry.Is(err, ErrMalformedResponse) {
					return nil, err
				}
				return nil, ErrMalformedResponse.Here().WithCause(err).Appendf("row %d: field %s", i, key)
			}
		}
		out = append(out, r)
	}
	return out, nil
}

// NormalizeCurrent converts a current-totals object. The modified time is
// taken from dateModified or lastModified, whichever is present.
func NormalizeCurrent(row RawRow) (CurrentStats, error) {
	var c CurrentStats
	counts := map[string]*Count{
		"positive":         &c.Positive,
		"negative":         &c.Negative,
		"hospitalized":     &c.Hospitalized,
		"death":            &c.Death,
		"totalTestResults": &c.TotalTestResults,
	}
	for key, dst := range counts {
		raw, ok := row[key]
		if !ok {
			continue
		}
		if err := json.Unmarshal(raw, dst); err != nil {
			return CurrentStats{}, ErrMalformedResponse.Here().WithCause(err).Appendf("field %s", key)
		}
	}
	if raw, ok := row["grade"]; ok && string(raw) != "null" {
		if err := json.Unmarshal(raw, &c.Grade); err != nil {
			return CurrentStats{}, ErrMalformedResponse.Here().WithCause(err).Append("field grade")
		}
	}
	for _, key := range []string{"lastModified", "dateModified"} {
		raw, ok := row[key]
		if !ok || string(raw) == "null" {
			continue
		}
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return CurrentStats{}, ErrMalformedResponse.Here().WithCause(err).Appendf("field %s", key)
		}
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return CurrentStats{}, ErrMalformedResponse.Here().WithCause(err).Appendf("field %s", key)
		}
		c.Modified = t
		break
	}
	return c, nil
}

// DecodeStateInfo decodes a state info object.
func DecodeStateInfo(state string, raw json.RawMessage) (StateInfo, error) {
	var info StateInfo
	if err := json.Unmarshal(raw, &info); err != nil {
		return StateInfo{}, ErrMalformedResponse.Here().WithCause(err).Appendf("state info %s", state)
	}
	if info.State == "" {
		info.State = state
	}
	return info, nil
}
