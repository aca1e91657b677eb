package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"car-price-predictor/internal/cfg"
	"car-price-predictor/internal/evaluate"
	"car-price-predictor/internal/ml"
	"car-price-predictor/internal/pipeline"
	"car-price-predictor/internal/storage"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	var (
		dataPath   = flag.String("data", "", "CSV file with transmission, max_power and optional selling_price columns")
		history    = flag.Bool("history", false, "Replay the stored prediction history instead of a CSV file")
		modelPath  = flag.String("model", "", "Path to model artifact (overrides config)")
		outputPath = flag.String("output", "", "Output directory for reports (summary only when empty)")
		logLevel   = flag.String("log-level", "info", "Log level: debug, info, warn, error")
		startDate  = flag.String("start", "", "History start date (YYYY-MM-DD)")
		endDate    = flag.String("end", "", "History end date (YYYY-MM-DD)")
		seed       = flag.Uint64("seed", 1, "Random seed for transmission imputation (0 = time seeded)")
	)
	flag.Parse()

	level, err := zerolog.ParseLevel(*logLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Warn().Err(err).Msg("failed to load .env file")
	}

	config, err := cfg.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}
	if *modelPath != "" {
		config.ModelPath = *modelPath
	}

	artifacts, err := ml.LoadArtifacts(ml.Paths{
		Model:    config.ModelPath,
		Scaler:   config.ScalerPath,
		Defaults: config.DefaultsPath,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load artifacts")
	}

	loader := evaluate.NewDataLoader()
	switch {
	case *history:
		if config.DataPath == "" {
			log.Fatal().Msg("DATA_PATH must be set to replay prediction history")
		}
		startTime, endTime := parseRange(*startDate, *endDate)
		store, err := storage.New(config.DataPath)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to open BoltDB")
		}
		err = loader.LoadFromBoltDB(store, startTime, endTime)
		store.Close()
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to load history")
		}
	case *dataPath != "":
		if err := loader.LoadFromCSV(*dataPath); err != nil {
			log.Fatal().Err(err).Msg("Failed to load CSV data")
		}
	default:
		fmt.Fprintln(os.Stderr, "one of -data or -history is required")
		flag.Usage()
		os.Exit(2)
	}

	if len(loader.Samples()) == 0 {
		log.Fatal().Msg("No samples to evaluate")
	}

	p := pipeline.New(artifacts, pipeline.WithSeed(*seed))
	results := evaluate.NewEngine(p, loader).Run()

	reporter := evaluate.NewReporter(results, *outputPath)
	if *outputPath != "" {
		if err := reporter.GenerateReport(); err != nil {
			log.Fatal().Err(err).Msg("Failed to generate report")
		}
	}
	reporter.PrintSummary()
}

func parseRange(start, end string) (time.Time, time.Time) {
	startTime := time.Now().AddDate(0, -1, 0)
	endTime := time.Now()

	var err error
	if start != "" {
		startTime, err = time.Parse("2006-01-02", start)
		if err != nil {
			log.Fatal().Err(err).Msg("Invalid start date format")
		}
	}
	if end != "" {
		endTime, err = time.Parse("2006-01-02", end)
		if err != nil {
			log.Fatal().Err(err).Msg("Invalid end date format")
		}
		// include the whole end day
		endTime = endTime.Add(24*time.Hour - time.Nanosecond)
	}
	return startTime, endTime
}
