package pipeline

import (
	"math"
	"sync"
	"testing"

	"car-price-predictor/internal/ml"

	"github.com/stretchr/testify/require"
)

// MockMetrics implements MetricsInterface for testing
type MockMetrics struct {
	mu          sync.Mutex
	predictions int
	errors      int
	latencies   int
	prices      []float64
	imputations map[string]int
}

func (m *MockMetrics) PredictionsInc() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.predictions++
}

func (m *MockMetrics) PredictionErrorsInc() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors++
}

func (m *MockMetrics) PredictionLatencyObserve(float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.latencies++
}

func (m *MockMetrics) PredictedPriceObserve(v float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prices = append(m.prices, v)
}

func (m *MockMetrics) ImputationInc(field string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.imputations == nil {
		m.imputations = make(map[string]int)
	}
	m.imputations[field]++
}

// constSource always yields the same value, pinning rand.Float64.
type constSource uint64

func (s constSource) Uint64() uint64 { return uint64(s) }

// testArtifacts returns a linear model with log-price = 11.5 + 0.4*t + 0.01*p.
func testArtifacts(t *testing.T, ratio map[int]float64) *ml.Artifacts {
	t.Helper()
	if ratio == nil {
		ratio = map[int]float64{0: 0.87, 1: 0.13}
	}
	a, err := ml.NewArtifacts(
		&ml.LinearRegressor{Intercept: 11.5, Coefficients: []float64{0.4, 0.01}},
		&ml.Scaler{Mean: []float64{0.2, 91.5}, Scale: []float64{0.4, 35.7}},
		ml.Defaults{MeanMaxPower: 91.5, TransmissionRatio: ratio},
	)
	require.NoError(t, err)
	return a
}

func intPtr(v int) *int { return &v }

func floatPtr(v float64) *float64 { return &v }

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
