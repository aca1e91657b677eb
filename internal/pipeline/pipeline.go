// Package pipeline implements imputation and inference for car price estimates.
//
// A Pipeline wraps the immutable artifacts loaded at startup. It fills absent
// inputs from the defaults table, runs the regression model, and inverts the
// log transform the model was trained with.
package pipeline

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"sync"
	"time"

	"car-price-predictor/internal/ml"

	"github.com/rs/zerolog/log"
)

const (
	FieldTransmission = "transmission"
	FieldMaxPower     = "max_power"
)

// ErrNonFinite is returned when the model output does not map to a finite price.
var ErrNonFinite = errors.New("prediction is not a finite number")

// MetricsInterface defines metrics methods needed by the pipeline
type MetricsInterface interface {
	PredictionsInc()
	PredictionErrorsInc()
	PredictionLatencyObserve(float64)
	PredictedPriceObserve(float64)
	ImputationInc(field string)
}

type nopMetrics struct{}

func (nopMetrics) PredictionsInc()                  {}
func (nopMetrics) PredictionErrorsInc()             {}
func (nopMetrics) PredictionLatencyObserve(float64) {}
func (nopMetrics) PredictedPriceObserve(float64)    {}
func (nopMetrics) ImputationInc(string)             {}

// FeatureVector is the model input in training column order.
type FeatureVector struct {
	Transmission int
	MaxPower     float64
}

// Sample returns the vector as a single-row batch.
func (f FeatureVector) Sample() [][]float64 {
	return [][]float64{{float64(f.Transmission), f.MaxPower}}
}

type Option func(*Pipeline)

// WithRand sets the random source used to impute transmission.
func WithRand(r *rand.Rand) Option {
	return func(p *Pipeline) {
		p.rng = r
	}
}

// WithSeed seeds a PCG source. A zero seed keeps the time-seeded default.
func WithSeed(seed uint64) Option {
	return func(p *Pipeline) {
		if seed != 0 {
			p.rng = rand.New(rand.NewPCG(seed, seed))
		}
	}
}

func WithMetrics(m MetricsInterface) Option {
	return func(p *Pipeline) {
		if m != nil {
			p.metrics = m
		}
	}
}

// Pipeline fills missing values and predicts prices from loaded artifacts.
// It is safe for concurrent use.
type Pipeline struct {
	artifacts *ml.Artifacts
	defaults  ml.Defaults
	metrics   MetricsInterface

	mu  sync.Mutex // guards rng
	rng *rand.Rand
}

func New(artifacts *ml.Artifacts, opts ...Option) *Pipeline {
	now := uint64(time.Now().UnixNano())
	p := &Pipeline{
		artifacts: artifacts,
		defaults:  artifacts.Defaults(),
		metrics:   nopMetrics{},
		rng:       rand.New(rand.NewPCG(now, now>>1)),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// FillMissingValues substitutes defaults for absent inputs. An absent
// transmission is drawn from the stored category distribution, an absent
// max power becomes the stored mean. Present values pass through unchanged.
func (p *Pipeline) FillMissingValues(transmission *int, maxPower *float64) (int, float64) {
	var t int
	if transmission != nil {
		t = *transmission
	} else {
		t = p.sampleTransmission()
		p.metrics.ImputationInc(FieldTransmission)
	}

	var mp float64
	if maxPower != nil {
		mp = *maxPower
	} else {
		mp = p.defaults.MeanMaxPower
		p.metrics.ImputationInc(FieldMaxPower)
	}

	return t, mp
}

// sampleTransmission draws one category with probability transmission_ratio[k].
// Categories are walked in ascending order so a seeded source is reproducible.
func (p *Pipeline) sampleTransmission() int {
	p.mu.Lock()
	u := p.rng.Float64()
	p.mu.Unlock()

	cats := p.defaults.Categories()
	var (
		cum  float64
		last int
	)
	for _, k := range cats {
		prob := p.defaults.TransmissionRatio[k]
		if prob <= 0 {
			continue
		}
		cum += prob
		last = k
		if u < cum {
			return k
		}
	}
	// Rounding can leave cum slightly below 1.
	return last
}

// PredictCarPrice runs the model on sample and returns exp of the first output.
// The sample must have exactly the model's feature count per row; the scaler
// is not applied.
func (p *Pipeline) PredictCarPrice(sample [][]float64) (float64, error) {
	start := time.Now()
	raw, err := p.artifacts.Model().Predict(sample)
	p.metrics.PredictionLatencyObserve(time.Since(start).Seconds())
	if err != nil {
		p.metrics.PredictionErrorsInc()
		return 0, fmt.Errorf("model prediction failed: %w", err)
	}
	if len(raw) == 0 {
		p.metrics.PredictionErrorsInc()
		return 0, fmt.Errorf("empty prediction result")
	}

	price := math.Exp(raw[0])
	if math.IsNaN(price) || math.IsInf(price, 0) {
		p.metrics.PredictionErrorsInc()
		return 0, fmt.Errorf("%w: exp(%v)", ErrNonFinite, raw[0])
	}

	p.metrics.PredictionsInc()
	p.metrics.PredictedPriceObserve(price)

	log.Debug().
		Interface("sample", sample).
		Float64("raw", raw[0]).
		Float64("price", price).
		Msg("prediction successful")

	return price, nil
}

// Estimate is a completed prediction together with the inputs actually used.
type Estimate struct {
	Features            FeatureVector
	Price               float64
	ImputedTransmission bool
	ImputedMaxPower     bool
}

// Estimate fills missing inputs and predicts a price.
// On failure the returned Estimate still carries the filled features.
func (p *Pipeline) Estimate(transmission *int, maxPower *float64) (Estimate, error) {
	t, mp := p.FillMissingValues(transmission, maxPower)
	est := Estimate{
		Features:            FeatureVector{Transmission: t, MaxPower: mp},
		ImputedTransmission: transmission == nil,
		ImputedMaxPower:     maxPower == nil,
	}

	price, err := p.PredictCarPrice(est.Features.Sample())
	if err != nil {
		return est, err
	}
	est.Price = price
	return est, nil
}
