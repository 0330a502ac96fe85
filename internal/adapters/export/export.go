// Package export writes and reads the persisted interchange forms of the
// aggregate set: newline-delimited JSON and an equivalent tabular CSV.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/aerodrift/constellation/internal/domain/model"
)

// CSV column order, fixed by the interchange contract.
var csvHeader = []string{"id", "time_iso", "lat", "lon", "alt_m", "source_hour", "raw_index"}

// WriteNDJSON writes one flat JSON record per line.
func WriteNDJSON(w io.Writer, records []model.Record) error {
	enc := json.NewEncoder(w)
	for _, r := range records {
		if err := enc.Encode(r); err != nil {
			return fmt.Errorf("encode record: %w", err)
		}
	}
	return nil
}

// WriteCSV writes the tabular form with the interchange header.
func WriteCSV(w io.Writer, records []model.Record) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, r := range records {
		alt := ""
		if r.AltM != nil {
			alt = strconv.FormatFloat(*r.AltM, 'f', -1, 64)
		}
		row := []string{
			r.ID,
			r.TimeISO,
			strconv.FormatFloat(r.Lat, 'f', -1, 64),
			strconv.FormatFloat(r.Lon, 'f', -1, 64),
			alt,
			strconv.Itoa(r.SourceHour),
			strconv.Itoa(r.RawIndex),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}

// WriteFiles writes both interchange forms into dir, creating it if
// needed, and returns the two paths.
func WriteFiles(dir string, records []model.Record) (ndjsonPath, csvPath string, err error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", "", fmt.Errorf("create output dir: %w", err)
	}

	ndjsonPath = filepath.Join(dir, "constellation.ndjson")
	csvPath = filepath.Join(dir, "constellation.csv")

	nf, err := os.Create(ndjsonPath)
	if err != nil {
		return "", "", fmt.Errorf("create ndjson: %w", err)
	}
	defer nf.Close()
	if err := WriteNDJSON(nf, records); err != nil {
		return "", "", err
	}

	cf, err := os.Create(csvPath)
	if err != nil {
		return "", "", fmt.Errorf("create csv: %w", err)
	}
	defer cf.Close()
	if err := WriteCSV(cf, records); err != nil {
		return "", "", err
	}
	return ndjsonPath, csvPath, nil
}

// ReadCSV reads the tabular form back, optionally filtering by identifier.
// Rows with uncoercible coordinates are skipped, mirroring the pipeline's
// graceful-rejection posture.
func ReadCSV(r io.Reader, balloonID string) ([]model.Record, error) {
	cr := csv.NewReader(r)
	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	col := make(map[string]int, len(rows[0]))
	for i, name := range rows[0] {
		col[name] = i
	}
	for _, name := range csvHeader {
		if _, ok := col[name]; !ok {
			return nil, fmt.Errorf("%w: missing column %q", ErrBadHeader, name)
		}
	}

	var out []model.Record
	for _, row := range rows[1:] {
		id := row[col["id"]]
		if balloonID != "" && id != balloonID {
			continue
		}
		lat, err1 := strconv.ParseFloat(row[col["lat"]], 64)
		lon, err2 := strconv.ParseFloat(row[col["lon"]], 64)
		if err1 != nil || err2 != nil {
			continue
		}
		rec := model.Record{
			ID:      id,
			Lat:     lat,
			Lon:     lon,
			TimeISO: row[col["time_iso"]],
		}
		if s := row[col["alt_m"]]; s != "" {
			if alt, err := strconv.ParseFloat(s, 64); err == nil {
				rec.AltM = &alt
			}
		}
		if h, err := strconv.Atoi(row[col["source_hour"]]); err == nil {
			rec.SourceHour = h
		}
		if i, err := strconv.Atoi(row[col["raw_index"]]); err == nil {
			rec.RawIndex = i
		}
		out = append(out, rec)
	}
	return out, nil
}
