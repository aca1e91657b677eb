// Command generate_sample_data writes a consistent set of sample artifacts
// (model, scaler, defaults) plus a labelled CSV for local runs and evaluation.
package main

import (
	"encoding/csv"
	"encoding/json"
	"flag"
	"fmt"
	"math"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"car-price-predictor/internal/ml"
	"car-price-predictor/internal/storage"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	intercept     = 11.5
	coefTrans     = 0.4
	coefPower     = 0.01
	meanPower     = 91.5
	stdPower      = 35.7
	automaticRate = 0.13
)

type linearArtifact struct {
	Type      string    `json:"type"`
	Version   string    `json:"version"`
	Features  []string  `json:"features"`
	TrainedAt time.Time `json:"trained_at"`
	ml.LinearRegressor
}

func main() {
	var (
		outDir      = flag.String("out", ".", "Directory for the generated files")
		rows        = flag.Int("rows", 500, "Number of labelled CSV rows")
		missingRate = flag.Float64("missing", 0.05, "Fraction of CSV cells left empty")
		noise       = flag.Float64("noise", 0.1, "Std dev of log-price noise")
		historyPath = flag.String("history", "", "Also seed a prediction history database in this directory")
		seed        = flag.Uint64("seed", 42, "Random seed")
	)
	flag.Parse()
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	if *rows < 1 {
		log.Fatal().Int("rows", *rows).Msg("rows must be positive")
	}

	if err := os.MkdirAll(*outDir, 0755); err != nil {
		log.Fatal().Err(err).Msg("Failed to create output directory")
	}
	rng := rand.New(rand.NewPCG(*seed, *seed))

	if err := writeArtifacts(*outDir); err != nil {
		log.Fatal().Err(err).Msg("Failed to write artifacts")
	}
	if err := writeSamples(filepath.Join(*outDir, "cars.csv"), rng, *rows, *missingRate, *noise); err != nil {
		log.Fatal().Err(err).Msg("Failed to write samples")
	}
	if *historyPath != "" {
		if err := seedHistory(*historyPath, rng, *rows); err != nil {
			log.Fatal().Err(err).Msg("Failed to seed history")
		}
	}

	fmt.Printf("✓ Generated sample data in %s\n", *outDir)
}

func writeArtifacts(dir string) error {
	model := linearArtifact{
		Type:      ml.ModelTypeLinear,
		Version:   "sample-1",
		Features:  []string{"transmission", "max_power"},
		TrainedAt: time.Now().UTC().Truncate(time.Second),
		LinearRegressor: ml.LinearRegressor{
			Intercept:    intercept,
			Coefficients: []float64{coefTrans, coefPower},
		},
	}
	scaler := ml.Scaler{
		Mean:  []float64{automaticRate, meanPower},
		Scale: []float64{math.Sqrt(automaticRate * (1 - automaticRate)), stdPower},
	}
	defaults := ml.Defaults{
		MeanMaxPower:      meanPower,
		TransmissionRatio: map[int]float64{0: 1 - automaticRate, 1: automaticRate},
	}

	files := map[string]any{
		"car-prediction.model.json": model,
		"scaler.json":               scaler,
		"defaults.json":             defaults,
	}
	for name, v := range files {
		data, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return fmt.Errorf("marshal %s: %w", name, err)
		}
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, data, 0644); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
		log.Info().Str("file", path).Msg("artifact written")
	}

	// Load them back to validate the written set.
	_, err := ml.LoadArtifacts(ml.Paths{
		Model:    filepath.Join(dir, "car-prediction.model.json"),
		Scaler:   filepath.Join(dir, "scaler.json"),
		Defaults: filepath.Join(dir, "defaults.json"),
	})
	return err
}

func drawCar(rng *rand.Rand) (int, float64) {
	t := 0
	if rng.Float64() < automaticRate {
		t = 1
	}
	p := math.Max(30, meanPower+rng.NormFloat64()*stdPower)
	return t, math.Round(p*10) / 10
}

func priceFor(t int, p, noise float64, rng *rand.Rand) float64 {
	return math.Exp(intercept + coefTrans*float64(t) + coefPower*p + rng.NormFloat64()*noise)
}

func writeSamples(path string, rng *rand.Rand, rows int, missingRate, noise float64) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create sample file: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.Write([]string{"transmission", "max_power", "selling_price"}); err != nil {
		return err
	}

	for i := 0; i < rows; i++ {
		t, p := drawCar(rng)
		price := priceFor(t, p, noise, rng)

		tCell, pCell := strconv.Itoa(t), strconv.FormatFloat(p, 'f', -1, 64)
		if rng.Float64() < missingRate {
			tCell = ""
		}
		if rng.Float64() < missingRate {
			pCell = ""
		}
		record := []string{tCell, pCell, strconv.FormatFloat(math.Round(price), 'f', 0, 64)}
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return err
	}
	log.Info().Str("file", path).Int("rows", rows).Msg("sample CSV written")
	return nil
}

func seedHistory(dataPath string, rng *rand.Rand, rows int) error {
	if err := os.MkdirAll(dataPath, 0755); err != nil {
		return err
	}
	store, err := storage.New(dataPath)
	if err != nil {
		return err
	}
	defer store.Close()

	start := time.Now().AddDate(0, 0, -7)
	step := 7 * 24 * time.Hour / time.Duration(rows)
	for i := 0; i < rows; i++ {
		t, p := drawCar(rng)
		err := store.StorePrediction(storage.Prediction{
			Timestamp:    start.Add(time.Duration(i) * step),
			Transmission: t,
			MaxPower:     p,
			Price:        priceFor(t, p, 0, rng),
		})
		if err != nil {
			return fmt.Errorf("store prediction %d: %w", i, err)
		}
	}
	log.Info().Str("path", dataPath).Int("records", rows).Msg("prediction history seeded")
	return nil
}
