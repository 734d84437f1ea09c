package covid

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/ansel1/merry"
)

func rawRows(t *testing.T, s string) []RawRow {
	t.Helper()
	var rows []RawRow
	if err := json.Unmarshal([]byte(s), &rows); err != nil {
		t.Fatalf("bad fixture: %v", err)
	}
	return rows
}

func TestNormalize(t *testing.T) {
	rows := rawRows(t, `[
		{"state":"CA","date":20200402,"positive":150,"negative":null,"death":3,
		 "totalTestResults":1000,"positiveIncrease":50,"dateChecked":"2020-04-02T20:00:00Z","fips":"06"},
		{"state":"CA","date":"20200401","positive":100,"hospitalized":null}
	]`)
	recs, err := Normalize(rows)
	if err != nil {
		t.Fatalf("Normalize() failed: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("Normalize() returned %d records; want 2", len(recs))
	}
	r := recs[0]
	if want := time.Date(2020, 4, 2, 0, 0, 0, 0, time.UTC); !r.Date.Equal(want) {
		t.Errorf("Date = %v; want %v", r.Date, want)
	}
	if r.State != "CA" {
		t.Errorf("State = %q; want CA", r.State)
	}
	if r.Positive != CountOf(150) {
		t.Errorf("Positive = %+v; want 150", r.Positive)
	}
	if r.Negative.Valid {
		t.Errorf("Negative = %+v; want no data", r.Negative)
	}
	if r.Hospitalized.Valid {
		t.Errorf("absent Hospitalized = %+v; want no data", r.Hospitalized)
	}
	if r.PositiveIncrease != CountOf(50) {
		t.Errorf("PositiveIncrease = %+v; want 50", r.PositiveIncrease)
	}
	if d := recs[1].Date.Format(dateLayout); d != "20200401" {
		t.Errorf("string date = %s; want 20200401", d)
	}
}

func TestNormalize_NoDataRendersZero(t *testing.T) {
	recs, err := Normalize(rawRows(t, `[{"date":20200401,"positive":null,"negative":0,"death":1234567}]`))
	if err != nil {
		t.Fatalf("Normalize() failed: %v", err)
	}
	r := recs[0]
	if r.Positive.Valid || r.Positive.Display() != "0" {
		t.Errorf("null positive = %+v (%q); want no data displayed as 0", r.Positive, r.Positive.Display())
	}
	if !r.Negative.Valid || r.Negative.Display() != "0" {
		t.Errorf("zero negative = %+v (%q); want valid 0", r.Negative, r.Negative.Display())
	}
	if v := r.Death.Display(); v != "1,234,567" {
		t.Errorf("Death.Display() = %q; want 1,234,567", v)
	}
	if r.State != "" {
		t.Errorf("national State = %q; want empty", r.State)
	}
}

func TestNormalize_Malformed(t *testing.T) {
	for _, tc := range []string{
		`[{"state":"CA","positive":1}]`,
		`[{"state":"CA","date":"2020-04-01"}]`,
		`[{"state":"CA","date":20201341}]`,
		`[{"state":"CA","date":20200401,"positive":"many"}]`,
	} {
		if _, err := Normalize(rawRows(t, tc)); !merry.Is(err, ErrMalformedResponse) {
			t.Errorf("Normalize(%s) error = %v; want ErrMalformedResponse", tc, err)
		}
	}
}

func TestNormalizeCurrent(t *testing.T) {
	var row RawRow
	if err := json.Unmarshal([]byte(`{"positive":10,"negative":20,"hospitalized":null,"death":1,
		"totalTestResults":30,"grade":"A","lastModified":"2020-04-01T20:00:00.000Z"}`), &row); err != nil {
		t.Fatal(err)
	}
	c, err := NormalizeCurrent(row)
	if err != nil {
		t.Fatalf("NormalizeCurrent() failed: %v", err)
	}
	if c.Grade != "A" {
		t.Errorf("Grade = %q; want A", c.Grade)
	}
	if want := time.Date(2020, 4, 1, 20, 0, 0, 0, time.UTC); !c.Modified.Equal(want) {
		t.Errorf("Modified = %v; want %v", c.Modified, want)
	}
	stats := c.Labeled()
	if len(stats) != 5 || stats[0].Label != "Confirmed Positive" || stats[2].Display != "0" {
		t.Errorf("Labeled() = %+v", stats)
	}
}

func TestDecodeStateInfo(t *testing.T) {
	info, err := DecodeStateInfo("NY", json.RawMessage(`{"name":"New York","twitter":"@HealthNYGov","extra":1}`))
	if err != nil {
		t.Fatalf("DecodeStateInfo() failed: %v", err)
	}
	if info.Name != "New York" || info.State != "NY" || info.Twitter != "@HealthNYGov" {
		t.Errorf("DecodeStateInfo() = %+v", info)
	}
	if _, err := DecodeStateInfo("NY", json.RawMessage(`[1]`)); !merry.Is(err, ErrMalformedResponse) {
		t.Errorf("DecodeStateInfo(array) error = %v; want ErrMalformedResponse", err)
	}
}
