// Package evaluate scores recorded car samples through the inference
// pipeline offline and reports how far the estimates are from known prices.
package evaluate

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"car-price-predictor/internal/storage"

	"github.com/rs/zerolog/log"
)

// Sample is one input row. Nil inputs are imputed during evaluation.
// Label is the known price, or nil when the row is unlabelled.
type Sample struct {
	Line         int
	Transmission *int
	MaxPower     *float64
	Label        *float64
}

// DataLoader handles loading evaluation samples
type DataLoader struct {
	samples []Sample
	skipped int
}

func NewDataLoader() *DataLoader {
	return &DataLoader{samples: make([]Sample, 0)}
}

func (dl *DataLoader) Samples() []Sample {
	return dl.samples
}

// Skipped reports rows dropped because a present value did not parse.
func (dl *DataLoader) Skipped() int {
	return dl.skipped
}

// LoadFromCSV reads a CSV with a header containing transmission and
// max_power, and optionally selling_price. Empty cells are absent values.
func (dl *DataLoader) LoadFromCSV(filePath string) error {
	file, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer file.Close()

	if err := dl.readCSV(file); err != nil {
		return fmt.Errorf("%s: %w", filePath, err)
	}

	log.Info().
		Str("file", filePath).
		Int("samples", len(dl.samples)).
		Int("skipped", dl.skipped).
		Msg("CSV samples loaded")
	return nil
}

func (dl *DataLoader) readCSV(r io.Reader) error {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return fmt.Errorf("failed to read CSV header: %w", err)
	}

	indices := make(map[string]int)
	for i, col := range header {
		indices[strings.ToLower(strings.TrimSpace(col))] = i
	}
	for _, required := range []string{"transmission", "max_power"} {
		if _, ok := indices[required]; !ok {
			return fmt.Errorf("CSV header is missing column %q", required)
		}
	}

	line := 1
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return fmt.Errorf("line %d: %w", line, err)
		}

		s, ok := parseRecord(record, indices)
		if !ok {
			dl.skipped++
			log.Debug().Int("line", line).Strs("record", record).Msg("skipping malformed row")
			continue
		}
		s.Line = line
		dl.samples = append(dl.samples, s)
	}
	return nil
}

func parseRecord(record []string, indices map[string]int) (Sample, bool) {
	cell := func(name string) string {
		idx, ok := indices[name]
		if !ok || idx >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[idx])
	}

	var s Sample
	if v := cell("transmission"); v != "" {
		t, err := parseTransmission(v)
		if err != nil {
			return Sample{}, false
		}
		s.Transmission = &t
	}
	if v := cell("max_power"); v != "" {
		f, err := parseFinite(v)
		if err != nil {
			return Sample{}, false
		}
		s.MaxPower = &f
	}
	if v := cell("selling_price"); v != "" {
		f, err := parseFinite(v)
		if err != nil {
			return Sample{}, false
		}
		s.Label = &f
	}
	return s, true
}

// parseFinite rejects the NaN and Inf spellings ParseFloat accepts.
func parseFinite(v string) (float64, error) {
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("non-finite value %q", v)
	}
	return f, nil
}

// parseTransmission accepts the encoded category or the raw dataset label.
func parseTransmission(v string) (int, error) {
	switch strings.ToLower(v) {
	case "0", "manual":
		return 0, nil
	case "1", "automatic":
		return 1, nil
	default:
		return 0, fmt.Errorf("unknown transmission %q", v)
	}
}

// LoadFromBoltDB replays stored predictions in [start, end] with the stored
// price as label, so a new model can be compared with what was served.
// The inputs actually used are replayed, so nothing is imputed again.
func (dl *DataLoader) LoadFromBoltDB(store *storage.Store, start, end time.Time) error {
	records, err := store.GetPredictions(start, end)
	if err != nil {
		return fmt.Errorf("failed to load prediction history: %w", err)
	}

	for i, r := range records {
		t, mp, price := r.Transmission, r.MaxPower, r.Price
		dl.samples = append(dl.samples, Sample{
			Line:         i + 1,
			Transmission: &t,
			MaxPower:     &mp,
			Label:        &price,
		})
	}

	log.Info().
		Time("start", start).
		Time("end", end).
		Int("samples", len(records)).
		Msg("prediction history loaded")
	return nil
}
