package covid

import (
	"bytes"
	"encoding/csv"
	"io"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/klauspost/compress/zip"
)

var projectionColumns = []string{"location", "date", "deaths_mean", "admis_mean", "allbed_mean"}

// ParseProjectionArchive reads the first CSV file in a ZIP archive and
// returns its rows dated on or after the day of now. Region names are
// mapped to state codes with RegionCode.
func ParseProjectionArchive(blob []byte, now time.Time) ([]ProjectionRecord, error) {
	zr, err := zip.NewReader(bytes.NewReader(blob), int64(len(blob)))
	if err != nil {
		return nil, ErrMalformedResponse.Here().WithCause(err).Append("projection archive")
	}
	for _, f := range zr.File {
		if f.FileInfo().IsDir() || !strings.EqualFold(path.Ext(f.Name), ".csv") {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, ErrMalformedResponse.Here().WithCause(err).Appendf("open %s", f.Name)
		}
		defer rc.Close()
		return ParseProjectionCSV(rc, now)
	}
	return nil, ErrMalformedResponse.Here().Append("projection archive has no csv file")
}

// ParseProjectionCSV parses projection rows. Columns are located by header
// name; extra columns are ignored. Empty or unparsable numeric cells are
// treated as missing.
func ParseProjectionCSV(r io.Reader, now time.Time) ([]ProjectionRecord, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	header, err := cr.Read()
	if err != nil {
		return nil, ErrMalformedResponse.Here().WithCause(err).Append("projection header")
	}
	col := make(map[string]int, len(header))
	for i, h := range header {
		col[strings.TrimSpace(h)] = i
	}
	for _, c := range projectionColumns {
		if _, ok := col[c]; !ok {
			return nil, ErrMalformedResponse.Here().Appendf("projection column %q missing", c)
		}
	}

	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	var out []ProjectionRecord
	for line := 2; ; line++ {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, ErrMalformedResponse.Here().WithCause(err).Appendf("projection line %d", line)
		}
		cell := func(name string) string {
			i := col[name]
			if i >= len(row) {
				return ""
			}
			return strings.TrimSpace(row[i])
		}
		d, err := time.Parse("2006-01-02", cell("date"))
		if err != nil {
			log.Debug("skip projection row", "line", line, "err", err)
			continue
		}
		if d.Before(today) {
			continue
		}
		out = append(out, ProjectionRecord{
			State:          RegionCode(cell("location")),
			Date:           d,
			DeathsMean:     parseNumber(cell("deaths_mean")),
			AdmissionsMean: parseNumber(cell("admis_mean")),
			AllBedsMean:    parseNumber(cell("allbed_mean")),
		})
	}
	return out, nil
}

func parseNumber(s string) Number {
	if s == "" {
		return Number{}
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return Number{}
	}
	return NumberOf(v)
}
