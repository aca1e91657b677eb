package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"car-price-predictor/internal/ml"
	"car-price-predictor/internal/pipeline"
	"car-price-predictor/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeHistory struct {
	mu      sync.Mutex
	records []storage.Prediction
	err     error
}

func (f *fakeHistory) StorePrediction(p storage.Prediction) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.records = append(f.records, p)
	return nil
}

func (f *fakeHistory) Recent(limit int) ([]storage.Prediction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	out := []storage.Prediction{}
	for i := len(f.records) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, f.records[i])
	}
	return out, nil
}

type mockMetrics struct {
	mu            sync.Mutex
	requests      map[string]int
	historyErrors int
}

func (m *mockMetrics) RequestInc(route string, code int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.requests == nil {
		m.requests = make(map[string]int)
	}
	m.requests[route+" "+http.StatusText(code)]++
}

func (m *mockMetrics) HistoryWriteErrorsInc() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.historyErrors++
}

func newTestPipeline(t *testing.T) *pipeline.Pipeline {
	t.Helper()
	a, err := ml.NewArtifacts(
		&ml.LinearRegressor{Intercept: 11.5, Coefficients: []float64{0.4, 0.01}},
		&ml.Scaler{Mean: []float64{0.2, 91.5}, Scale: []float64{0.4, 35.7}},
		ml.Defaults{MeanMaxPower: 91.5, TransmissionRatio: map[int]float64{0: 0.87, 1: 0.13}},
	)
	require.NoError(t, err)
	return pipeline.New(a, pipeline.WithSeed(99))
}

func newTestServer(t *testing.T, c Config) *Server {
	t.Helper()
	return NewServer(newTestPipeline(t), c)
}

func postForm(h http.Handler, values url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/predict", strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestHomePage(t *testing.T) {
	s := newTestServer(t, Config{})

	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Welcome to Car Price Predictor")
	assert.Contains(t, w.Body.String(), `href="/predict"`)
}

func TestUnknownPathIsNotFound(t *testing.T) {
	s := newTestServer(t, Config{})

	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/nowhere", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestPredictPage(t *testing.T) {
	s := newTestServer(t, Config{})

	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/predict", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, "Car Price Prediction")
	assert.Contains(t, body, `name="transmission"`)
	assert.Contains(t, body, `name="max_power"`)
}

func TestPredictForm_Submit(t *testing.T) {
	history := &fakeHistory{}
	metrics := &mockMetrics{}
	s := newTestServer(t, Config{History: history, Metrics: metrics})

	w := postForm(s.Handler(), url.Values{"action": {"submit"}, "transmission": {"1"}, "max_power": {"100"}})

	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, "Predicted Car Price: $400,312.19")
	assert.Contains(t, body, `value="100"`)
	assert.Contains(t, body, `<option value="1" selected>Automatic</option>`)

	require.Len(t, history.records, 1)
	assert.Equal(t, 1, history.records[0].Transmission)
	assert.False(t, history.records[0].ImputedMaxPower)
	assert.Equal(t, 1, metrics.requests["/predict OK"])
}

func TestPredictForm_SubmitEmptyFillsDefaults(t *testing.T) {
	history := &fakeHistory{}
	s := newTestServer(t, Config{History: history})

	w := postForm(s.Handler(), url.Values{"action": {"submit"}, "transmission": {""}, "max_power": {""}})

	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, "Predicted Car Price: $")
	assert.Contains(t, body, `value="91.5"`)

	require.Len(t, history.records, 1)
	assert.True(t, history.records[0].ImputedTransmission)
	assert.True(t, history.records[0].ImputedMaxPower)
}

func TestPredictForm_DefaultActionIsSubmit(t *testing.T) {
	s := newTestServer(t, Config{})

	w := postForm(s.Handler(), url.Values{"transmission": {"0"}, "max_power": {"50"}})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Predicted Car Price: $162,754.79")
}

func TestPredictForm_ErrorMessage(t *testing.T) {
	history := &fakeHistory{}
	s := newTestServer(t, Config{History: history})

	w := postForm(s.Handler(), url.Values{"action": {"submit"}, "transmission": {"1"}, "max_power": {"1e308"}})

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Error: ")
	assert.Empty(t, history.records)
}

func TestPredictForm_Reset(t *testing.T) {
	history := &fakeHistory{}
	s := newTestServer(t, Config{History: history})

	w := postForm(s.Handler(), url.Values{"action": {"reset"}, "transmission": {"1"}, "max_power": {"100"}})

	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.NotContains(t, body, "Predicted Car Price")
	assert.Contains(t, body, `value=""`)
	assert.Contains(t, body, `<option value="" selected>`)
	assert.Empty(t, history.records)
}

func TestPredictForm_UnknownAction(t *testing.T) {
	metrics := &mockMetrics{}
	s := newTestServer(t, Config{Metrics: metrics})

	w := postForm(s.Handler(), url.Values{"action": {"launch"}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, 1, metrics.requests["/predict Bad Request"])
}

func TestAPIPredict(t *testing.T) {
	history := &fakeHistory{}
	s := newTestServer(t, Config{History: history})

	req := httptest.NewRequest(http.MethodPost, "/api/predict", strings.NewReader(`{"transmission": 1, "max_power": 100}`))
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var resp PredictResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Transmission)
	assert.Equal(t, 100.0, resp.MaxPower)
	assert.InDelta(t, 400312.1913298826, resp.Price, 1e-6)
	assert.Equal(t, "Predicted Car Price: $400,312.19", resp.Message)
	assert.False(t, resp.ImputedTransmission)
	assert.Len(t, history.records, 1)
}

func TestAPIPredict_NullsAreImputed(t *testing.T) {
	s := newTestServer(t, Config{})

	req := httptest.NewRequest(http.MethodPost, "/api/predict", strings.NewReader(`{"transmission": null}`))
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var resp PredictResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.ImputedTransmission)
	assert.True(t, resp.ImputedMaxPower)
	assert.Equal(t, 91.5, resp.MaxPower)
	assert.True(t, strings.HasPrefix(resp.Message, "Predicted Car Price: $"))
}

func TestAPIPredict_BadRequests(t *testing.T) {
	s := newTestServer(t, Config{})

	tests := []struct {
		name string
		body string
		code int
	}{
		{"malformed json", `{"transmission":`, http.StatusBadRequest},
		{"transmission out of domain", `{"transmission": 3}`, http.StatusBadRequest},
		{"non-finite prediction", `{"transmission": 1, "max_power": 1e308}`, http.StatusUnprocessableEntity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/predict", strings.NewReader(tt.body))
			w := httptest.NewRecorder()
			s.Handler().ServeHTTP(w, req)

			assert.Equal(t, tt.code, w.Code)
			var resp errorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.True(t, strings.HasPrefix(resp.Message, "Error: "), resp.Message)
		})
	}
}

func TestAPIPredict_HistoryFailureIsNotFatal(t *testing.T) {
	history := &fakeHistory{err: errors.New("disk full")}
	metrics := &mockMetrics{}
	s := newTestServer(t, Config{History: history, Metrics: metrics})

	req := httptest.NewRequest(http.MethodPost, "/api/predict", strings.NewReader(`{"transmission": 0, "max_power": 70}`))
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, metrics.historyErrors)
}

func TestHistory(t *testing.T) {
	history := &fakeHistory{}
	s := newTestServer(t, Config{History: history, HistoryLimit: 2})

	for _, body := range []string{`{"max_power": 50}`, `{"max_power": 60}`, `{"max_power": 70}`} {
		w := httptest.NewRecorder()
		s.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/predict", strings.NewReader(body)))
		require.Equal(t, http.StatusOK, w.Code)
	}

	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/history", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var records []storage.Prediction
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &records))
	require.Len(t, records, 2)
	assert.Equal(t, 70.0, records[0].MaxPower)

	w = httptest.NewRecorder()
	s.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/history?limit=1", nil))
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &records))
	assert.Len(t, records, 1)

	w = httptest.NewRecorder()
	s.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/history?limit=abc", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHistory_Disabled(t *testing.T) {
	s := newTestServer(t, Config{})

	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/history", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())
}

func TestModelInfo(t *testing.T) {
	s := newTestServer(t, Config{ModelInfo: ml.ModelInfo{Type: ml.ModelTypeLinear, Version: "v7", Features: []string{"transmission", "max_power"}}})

	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/model", nil))

	require.Equal(t, http.StatusOK, w.Code)
	var info ml.ModelInfo
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &info))
	assert.Equal(t, "v7", info.Version)
	assert.Equal(t, []string{"transmission", "max_power"}, info.Features)
}

func TestHealthAndMetrics(t *testing.T) {
	metricsHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("carprice_predictions_total 0"))
	})
	s := newTestServer(t, Config{MetricsHandler: metricsHandler})

	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "OK", w.Body.String())

	w = httptest.NewRecorder()
	s.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "carprice_predictions_total")
}

func TestMetricsEndpointAbsentWhenDisabled(t *testing.T) {
	s := newTestServer(t, Config{})

	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestParseInputs(t *testing.T) {
	assert.Nil(t, parseTransmission(""))
	assert.Nil(t, parseTransmission("2"))
	assert.Nil(t, parseTransmission("automatic"))
	assert.Equal(t, 0, *parseTransmission("0"))
	assert.Equal(t, 1, *parseTransmission(" 1 "))

	assert.Nil(t, parseMaxPower(""))
	assert.Nil(t, parseMaxPower("lots"))
	assert.Nil(t, parseMaxPower("NaN"))
	assert.Nil(t, parseMaxPower("Inf"))
	assert.Equal(t, 67.05, *parseMaxPower("67.05"))
	assert.Equal(t, -5.0, *parseMaxPower("-5"))
}
