package evaluate

import (
	"math"
	"time"

	"car-price-predictor/internal/pipeline"

	"github.com/rs/zerolog/log"
)

// Estimator is the pipeline surface the engine needs.
type Estimator interface {
	Estimate(transmission *int, maxPower *float64) (pipeline.Estimate, error)
}

// Outcome is the evaluation of a single sample.
type Outcome struct {
	Line                int      `json:"line"`
	Transmission        int      `json:"transmission"`
	MaxPower            float64  `json:"max_power"`
	ImputedTransmission bool     `json:"imputed_transmission"`
	ImputedMaxPower     bool     `json:"imputed_max_power"`
	Price               float64  `json:"price"`
	Label               *float64 `json:"label,omitempty"`
	Error               string   `json:"error,omitempty"`
}

// Results aggregates an evaluation run.
type Results struct {
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`

	Samples   int `json:"samples"`
	Predicted int `json:"predicted"`
	Failed    int `json:"failed"`
	Labelled  int `json:"labelled"`
	Imputed   int `json:"imputed"`

	MAE         float64 `json:"mae"`
	RMSE        float64 `json:"rmse"`
	MAPE        float64 `json:"mape"`
	MaxAbsError float64 `json:"max_abs_error"`
	// RMSLE is computed on log prices, the scale the model was trained on,
	// over rows where both price and label are positive.
	RMSLE float64 `json:"rmsle"`

	Outcomes []Outcome `json:"outcomes"`
}

type Engine struct {
	estimator Estimator
	samples   []Sample
}

func NewEngine(estimator Estimator, data *DataLoader) *Engine {
	return &Engine{estimator: estimator, samples: data.Samples()}
}

// Run scores every sample. Per-sample failures are recorded, not returned.
func (e *Engine) Run() *Results {
	res := &Results{
		StartTime: time.Now(),
		Samples:   len(e.samples),
		Outcomes:  make([]Outcome, 0, len(e.samples)),
	}

	var (
		absSum, sqSum, pctSum, logSqSum float64
		pctCount, logCount              int
	)

	for _, s := range e.samples {
		est, err := e.estimator.Estimate(s.Transmission, s.MaxPower)
		o := Outcome{
			Line:                s.Line,
			Transmission:        est.Features.Transmission,
			MaxPower:            est.Features.MaxPower,
			ImputedTransmission: est.ImputedTransmission,
			ImputedMaxPower:     est.ImputedMaxPower,
			Label:               s.Label,
		}
		if est.ImputedTransmission || est.ImputedMaxPower {
			res.Imputed++
		}
		if err != nil {
			o.Error = pipeline.FormatError(err)
			res.Failed++
			res.Outcomes = append(res.Outcomes, o)
			continue
		}
		o.Price = est.Price
		res.Predicted++
		res.Outcomes = append(res.Outcomes, o)

		if s.Label == nil {
			continue
		}
		res.Labelled++
		label := *s.Label
		diff := est.Price - label
		absSum += math.Abs(diff)
		sqSum += diff * diff
		res.MaxAbsError = math.Max(res.MaxAbsError, math.Abs(diff))
		if label != 0 {
			pctSum += math.Abs(diff / label)
			pctCount++
		}
		if label > 0 && est.Price > 0 {
			ld := math.Log(est.Price) - math.Log(label)
			logSqSum += ld * ld
			logCount++
		}
	}

	if res.Labelled > 0 {
		n := float64(res.Labelled)
		res.MAE = absSum / n
		res.RMSE = math.Sqrt(sqSum / n)
	}
	if logCount > 0 {
		res.RMSLE = math.Sqrt(logSqSum / float64(logCount))
	}
	if pctCount > 0 {
		res.MAPE = pctSum / float64(pctCount) * 100
	}
	res.EndTime = time.Now()

	log.Info().
		Int("samples", res.Samples).
		Int("predicted", res.Predicted).
		Int("failed", res.Failed).
		Float64("mae", res.MAE).
		Float64("rmse", res.RMSE).
		Msg("evaluation finished")

	return res
}
