// Package web serves the car price prediction form and its JSON API.
package web

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"html/template"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"car-price-predictor/internal/ml"
	"car-price-predictor/internal/pipeline"
	"car-price-predictor/internal/storage"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"
)

//go:embed templates/*.html
var templateFS embed.FS

var pageTemplates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

// Estimator is the pipeline surface the server depends on.
type Estimator interface {
	HandleForm(action pipeline.Action, transmission *int, maxPower *float64) (pipeline.FormResult, error)
	Estimate(transmission *int, maxPower *float64) (pipeline.Estimate, error)
}

// History records and lists served predictions.
type History interface {
	StorePrediction(p storage.Prediction) error
	Recent(limit int) ([]storage.Prediction, error)
}

// MetricsInterface defines metrics methods needed by the server
type MetricsInterface interface {
	RequestInc(route string, code int)
	HistoryWriteErrorsInc()
}

type nopMetrics struct{}

func (nopMetrics) RequestInc(string, int)  {}
func (nopMetrics) HistoryWriteErrorsInc() {}

// Config wires optional collaborators into the server.
type Config struct {
	Addr         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	HistoryLimit int
	ModelInfo    ml.ModelInfo

	// History is optional; nil disables prediction history.
	History History
	// Metrics is optional.
	Metrics MetricsInterface
	// MetricsHandler is mounted at /metrics when non-nil.
	MetricsHandler http.Handler
}

// Server serves the prediction form and API over HTTP.
type Server struct {
	estimator    Estimator
	history      History
	metrics      MetricsInterface
	modelInfo    ml.ModelInfo
	historyLimit int
	handler      http.Handler
	server       *http.Server
}

func NewServer(estimator Estimator, c Config) *Server {
	s := &Server{
		estimator:    estimator,
		history:      c.History,
		metrics:      c.Metrics,
		modelInfo:    c.ModelInfo,
		historyLimit: c.HistoryLimit,
	}
	if s.metrics == nil {
		s.metrics = nopMetrics{}
	}
	if s.historyLimit <= 0 {
		s.historyLimit = 20
	}

	r := mux.NewRouter()
	s.handle(r, http.MethodGet, "/", s.handleHome)
	s.handle(r, http.MethodGet, "/predict", s.handlePredictPage)
	s.handle(r, http.MethodPost, "/predict", s.handlePredictForm)
	s.handle(r, http.MethodPost, "/api/predict", s.handleAPIPredict)
	s.handle(r, http.MethodGet, "/api/history", s.handleHistory)
	s.handle(r, http.MethodGet, "/api/model", s.handleModelInfo)
	s.handle(r, http.MethodGet, "/health", s.handleHealth)
	if c.MetricsHandler != nil {
		r.Handle("/metrics", c.MetricsHandler).Methods(http.MethodGet)
	}

	s.handler = r
	s.server = &http.Server{
		Addr:              c.Addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       c.ReadTimeout,
		WriteTimeout:      c.WriteTimeout,
		IdleTimeout:       120 * time.Second,
	}

	return s
}

// Handler exposes the routed handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start begins serving HTTP requests
func (s *Server) Start() error {
	log.Info().Str("addr", s.server.Addr).Msg("starting prediction server")
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// statusRecorder captures the response code for logging and metrics.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) handle(router *mux.Router, method, route string, h http.HandlerFunc) {
	router.HandleFunc(route, func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		h(rec, r)

		s.metrics.RequestInc(route, rec.status)
		log.Debug().
			Str("method", r.Method).
			Str("route", route).
			Int("status", rec.status).
			Dur("duration", time.Since(start)).
			Msg("request served")
	}).Methods(method)
}

// pageData feeds the HTML templates.
type pageData struct {
	Page            string
	HasTransmission bool
	Transmission    int
	MaxPower        string
	Message         string
}

func newPageData(res pipeline.FormResult) pageData {
	d := pageData{Page: "predict", Message: res.Message}
	if res.Transmission != nil {
		d.HasTransmission = true
		d.Transmission = *res.Transmission
	}
	if res.MaxPower != nil {
		d.MaxPower = strconv.FormatFloat(*res.MaxPower, 'f', -1, 64)
	}
	return d
}

func (s *Server) render(w http.ResponseWriter, status int, data pageData) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := pageTemplates.ExecuteTemplate(w, "layout", data); err != nil {
		log.Error().Err(err).Str("page", data.Page).Msg("failed to render page")
	}
}

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	s.render(w, http.StatusOK, pageData{Page: "home"})
}

func (s *Server) handlePredictPage(w http.ResponseWriter, r *http.Request) {
	s.render(w, http.StatusOK, pageData{Page: "predict"})
}

func (s *Server) handlePredictForm(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form: "+err.Error(), http.StatusBadRequest)
		return
	}

	action := pipeline.Action(r.PostForm.Get("action"))
	if action == "" {
		action = pipeline.ActionSubmit
	}
	transmission := parseTransmission(r.PostForm.Get("transmission"))
	maxPower := parseMaxPower(r.PostForm.Get("max_power"))

	res, err := s.estimator.HandleForm(action, transmission, maxPower)
	if err != nil {
		if errors.Is(err, pipeline.ErrUnknownAction) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		log.Error().Err(err).Msg("form handling failed")
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	if res.Estimate != nil {
		s.recordHistory(*res.Estimate)
	}

	s.render(w, http.StatusOK, newPageData(res))
}

// PredictRequest is the JSON body accepted by /api/predict.
// Absent or null fields are imputed.
type PredictRequest struct {
	Transmission *int     `json:"transmission"`
	MaxPower     *float64 `json:"max_power"`
}

// PredictResponse is returned by /api/predict.
type PredictResponse struct {
	Transmission        int     `json:"transmission"`
	MaxPower            float64 `json:"max_power"`
	Price               float64 `json:"price"`
	Message             string  `json:"message"`
	ImputedTransmission bool    `json:"imputed_transmission"`
	ImputedMaxPower     bool    `json:"imputed_max_power"`
}

type errorResponse struct {
	Message string `json:"message"`
}

func (s *Server) handleAPIPredict(w http.ResponseWriter, r *http.Request) {
	var req PredictRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Message: pipeline.FormatError(err)})
		return
	}
	if req.Transmission != nil && *req.Transmission != 0 && *req.Transmission != 1 {
		writeJSON(w, http.StatusBadRequest, errorResponse{Message: "Error: transmission must be 0 or 1"})
		return
	}

	est, err := s.estimator.Estimate(req.Transmission, req.MaxPower)
	if err != nil {
		log.Warn().Err(err).Msg("prediction failed")
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Message: pipeline.FormatError(err)})
		return
	}

	s.recordHistory(est)

	writeJSON(w, http.StatusOK, PredictResponse{
		Transmission:        est.Features.Transmission,
		MaxPower:            est.Features.MaxPower,
		Price:               est.Price,
		Message:             pipeline.FormatPrice(est.Price),
		ImputedTransmission: est.ImputedTransmission,
		ImputedMaxPower:     est.ImputedMaxPower,
	})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit := s.historyLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeJSON(w, http.StatusBadRequest, errorResponse{Message: "Error: limit must be a positive integer"})
			return
		}
		if n < limit {
			limit = n
		}
	}

	if s.history == nil {
		writeJSON(w, http.StatusOK, []storage.Prediction{})
		return
	}

	records, err := s.history.Recent(limit)
	if err != nil {
		log.Error().Err(err).Msg("failed to read prediction history")
		writeJSON(w, http.StatusInternalServerError, errorResponse{Message: pipeline.FormatError(err)})
		return
	}
	writeJSON(w, http.StatusOK, records)
}

func (s *Server) handleModelInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.modelInfo)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

// recordHistory persists a served prediction. Failures are logged only.
func (s *Server) recordHistory(est pipeline.Estimate) {
	if s.history == nil {
		return
	}
	err := s.history.StorePrediction(storage.Prediction{
		Timestamp:           time.Now(),
		Transmission:        est.Features.Transmission,
		MaxPower:            est.Features.MaxPower,
		Price:               est.Price,
		ImputedTransmission: est.ImputedTransmission,
		ImputedMaxPower:     est.ImputedMaxPower,
	})
	if err != nil {
		s.metrics.HistoryWriteErrorsInc()
		log.Warn().Err(err).Msg("failed to store prediction history")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("failed to encode response")
	}
}

// parseTransmission maps the dropdown value to a category.
// Anything other than "0" or "1" counts as no selection.
func parseTransmission(v string) *int {
	switch strings.TrimSpace(v) {
	case "0":
		t := 0
		return &t
	case "1":
		t := 1
		return &t
	default:
		return nil
	}
}

// parseMaxPower reads the number input. Empty or non-numeric input is absent.
func parseMaxPower(v string) *float64 {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return &f
}
