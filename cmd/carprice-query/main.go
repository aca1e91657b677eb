package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	"car-price-predictor/internal/client"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	_ = godotenv.Load()

	var (
		server       = flag.String("server", envOr("CARPRICE_SERVER", "http://localhost:8050"), "Base URL of the prediction server")
		transmission = flag.String("transmission", "", "Transmission type: 0 (manual) or 1 (automatic); empty to impute")
		maxPower     = flag.String("max-power", "", "Maximum engine power in bhp; empty to impute")
		timeout      = flag.Duration("timeout", 5*time.Second, "Request timeout")
	)
	flag.Parse()

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	t, err := optionalInt(*transmission)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid -transmission")
	}
	mp, err := optionalFloat(*maxPower)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid -max-power")
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	c := client.New(*server, *timeout)
	resp, err := c.Predict(ctx, t, mp)
	if err != nil {
		fmt.Println("Error:", err)
		os.Exit(1)
	}

	fmt.Println(resp.Message)
	log.Info().
		Int("transmission", resp.Transmission).
		Float64("max_power", resp.MaxPower).
		Bool("imputed_transmission", resp.ImputedTransmission).
		Bool("imputed_max_power", resp.ImputedMaxPower).
		Msg("inputs used")
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func optionalInt(v string) (*int, error) {
	if v == "" {
		return nil, nil
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return nil, err
	}
	if i != 0 && i != 1 {
		return nil, fmt.Errorf("transmission must be 0 or 1, got %d", i)
	}
	return &i, nil
}

func optionalFloat(v string) (*float64, error) {
	if v == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return nil, err
	}
	return &f, nil
}
