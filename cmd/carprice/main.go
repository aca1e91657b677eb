package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"car-price-predictor/internal/cfg"
	"car-price-predictor/internal/common"
	"car-price-predictor/internal/metrics"
	"car-price-predictor/internal/ml"
	"car-price-predictor/internal/pipeline"
	"car-price-predictor/internal/storage"
	"car-price-predictor/internal/web"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Warn().Err(err).Msg("failed to load .env file")
	}

	c, err := cfg.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config load failed")
	}
	setupLogging(c)

	// Artifacts are required; there is no degraded mode.
	artifacts, err := ml.LoadArtifacts(ml.Paths{
		Model:    c.ModelPath,
		Scaler:   c.ScalerPath,
		Defaults: c.DefaultsPath,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("artifact load failed")
	}
	// TODO: decide with the model owners whether the scaler should be applied before Predict.
	log.Warn().Str("scaler_path", c.ScalerPath).Msg("scaler artifact loaded but not applied to model input")

	var mw *metrics.MetricsWrapper
	var metricsHandler http.Handler
	if c.MetricsEnabled {
		mw = metrics.NewWrapper(metrics.New())
		metricsHandler = promhttp.Handler()
		if trained := artifacts.Info().TrainedAt; !trained.IsZero() {
			mw.ModelAgeSet(time.Since(trained).Seconds())
		}
	}

	opts := []pipeline.Option{pipeline.WithSeed(c.RandomSeed)}
	if mw != nil {
		opts = append(opts, pipeline.WithMetrics(mw))
	}
	p := pipeline.New(artifacts, opts...)

	store := initializeStorage(c)
	if store != nil {
		defer store.Close()
	}

	serverCfg := web.Config{
		Addr:           c.Addr(),
		ReadTimeout:    c.ReadTimeout,
		WriteTimeout:   c.WriteTimeout,
		HistoryLimit:   c.HistoryLimit,
		ModelInfo:      artifacts.Info(),
		MetricsHandler: metricsHandler,
	}
	// Assigning a nil *Store or *MetricsWrapper would yield non-nil interfaces.
	if store != nil {
		serverCfg.History = store
	}
	if mw != nil {
		serverCfg.Metrics = mw
	}
	server := web.NewServer(p, serverCfg)

	errCh := make(chan error, 1)
	go func() {
		if err := server.Start(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	waitForShutdown(server, errCh)
}

func setupLogging(c cfg.Settings) {
	level, err := zerolog.ParseLevel(c.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	if c.LogFormat == common.LogFormatConsole {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
}

// initializeStorage opens prediction history if DATA_PATH is configured
func initializeStorage(c cfg.Settings) *storage.Store {
	if c.DataPath == "" {
		return nil
	}
	store, err := storage.New(c.DataPath)
	if err != nil {
		log.Warn().Err(err).Msg("storage initialization failed, continuing without prediction history")
		return nil
	}
	return store
}

// waitForShutdown blocks until a signal or server failure, then drains the server
func waitForShutdown(server *web.Server, errCh <-chan error) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case <-sigChan:
		log.Info().Msg("shutdown signal received")
	case err := <-errCh:
		log.Error().Err(err).Msg("prediction server failed")
	}

	log.Info().Msg("shutting down gracefully...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Warn().Err(err).Msg("shutdown timeout, forcing exit")
		return
	}
	log.Info().Msg("server stopped")
}
