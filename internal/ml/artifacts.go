package ml

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"sort"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	ModelTypeLinear = "linear"
	ModelTypeForest = "forest"

	// probabilityTolerance bounds how far transmission_ratio may drift from 1.
	probabilityTolerance = 1e-6
)

// ModelInfo describes the loaded model artifact.
type ModelInfo struct {
	Type      string    `json:"type"`
	Version   string    `json:"version,omitempty"`
	Features  []string  `json:"features,omitempty"`
	Path      string    `json:"path"`
	TrainedAt time.Time `json:"trained_at,omitempty"`
	LoadedAt  time.Time `json:"loaded_at"`
}

// Defaults is the table used to impute absent inputs.
type Defaults struct {
	MeanMaxPower      float64         `json:"mean_max_power"`
	TransmissionRatio map[int]float64 `json:"transmission_ratio"`
}

// Categories returns the transmission categories in ascending order.
func (d Defaults) Categories() []int {
	keys := make([]int, 0, len(d.TransmissionRatio))
	for k := range d.TransmissionRatio {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}

func (d Defaults) validate() error {
	if !(d.MeanMaxPower > 0) || math.IsInf(d.MeanMaxPower, 0) {
		return fmt.Errorf("%w: mean_max_power must be a positive finite number, got %v", ErrInvalidArtifact, d.MeanMaxPower)
	}
	if len(d.TransmissionRatio) == 0 {
		return fmt.Errorf("%w: transmission_ratio is empty", ErrInvalidArtifact)
	}

	var sum float64
	for k, p := range d.TransmissionRatio {
		if k != 0 && k != 1 {
			return fmt.Errorf("%w: transmission category %d is not 0 or 1", ErrInvalidArtifact, k)
		}
		if p < 0 || math.IsNaN(p) {
			return fmt.Errorf("%w: transmission probability for %d is %v", ErrInvalidArtifact, k, p)
		}
		sum += p
	}
	if math.Abs(sum-1) > probabilityTolerance {
		return fmt.Errorf("%w: transmission probabilities sum to %v, want 1", ErrInvalidArtifact, sum)
	}
	return nil
}

// Artifacts holds the model, scaler and defaults table loaded at startup.
// All accessors are read-only.
type Artifacts struct {
	model    Regressor
	scaler   *Scaler
	defaults Defaults
	info     ModelInfo
}

// Paths locates the three artifact files.
type Paths struct {
	Model    string
	Scaler   string
	Defaults string
}

// NewArtifacts assembles an Artifacts value from already decoded parts.
// It applies the same validation as LoadArtifacts.
func NewArtifacts(model Regressor, scaler *Scaler, defaults Defaults) (*Artifacts, error) {
	if model == nil {
		return nil, fmt.Errorf("%w: model is nil", ErrInvalidArtifact)
	}
	if scaler == nil {
		return nil, fmt.Errorf("%w: scaler is nil", ErrInvalidArtifact)
	}
	if err := scaler.validate(); err != nil {
		return nil, err
	}
	if err := defaults.validate(); err != nil {
		return nil, err
	}
	if model.NumFeatures() != scaler.NumFeatures() {
		return nil, fmt.Errorf("%w: model expects %d features, scaler has %d", ErrInvalidArtifact, model.NumFeatures(), scaler.NumFeatures())
	}

	return &Artifacts{
		model:    model,
		scaler:   scaler,
		defaults: defaults,
		info:     ModelInfo{LoadedAt: time.Now()},
	}, nil
}

// LoadArtifacts reads and validates all three artifacts.
// Any missing or corrupt file is an error; there is no partial result.
func LoadArtifacts(p Paths) (*Artifacts, error) {
	model, info, err := LoadModel(p.Model)
	if err != nil {
		return nil, err
	}

	scaler, err := LoadScaler(p.Scaler)
	if err != nil {
		return nil, err
	}

	defaults, err := LoadDefaults(p.Defaults)
	if err != nil {
		return nil, err
	}

	a, err := NewArtifacts(model, scaler, defaults)
	if err != nil {
		return nil, fmt.Errorf("artifacts %s, %s, %s: %w", p.Model, p.Scaler, p.Defaults, err)
	}
	info.LoadedAt = a.info.LoadedAt
	a.info = info

	log.Info().
		Str("model_path", p.Model).
		Str("model_type", info.Type).
		Str("model_version", info.Version).
		Int("features", model.NumFeatures()).
		Float64("mean_max_power", defaults.MeanMaxPower).
		Msg("artifacts loaded")

	return a, nil
}

func (a *Artifacts) Model() Regressor {
	return a.model
}

// Scaler returns the loaded feature scaler. Inference does not apply it.
func (a *Artifacts) Scaler() *Scaler {
	return a.scaler
}

// Defaults returns a copy of the defaults table.
func (a *Artifacts) Defaults() Defaults {
	ratio := make(map[int]float64, len(a.defaults.TransmissionRatio))
	for k, v := range a.defaults.TransmissionRatio {
		ratio[k] = v
	}
	return Defaults{MeanMaxPower: a.defaults.MeanMaxPower, TransmissionRatio: ratio}
}

func (a *Artifacts) Info() ModelInfo {
	return a.info
}

// modelHeader is decoded first to select the concrete model type.
type modelHeader struct {
	Type      string    `json:"type"`
	Version   string    `json:"version"`
	Features  []string  `json:"features"`
	TrainedAt time.Time `json:"trained_at"`
}

// LoadModel decodes a model artifact, dispatching on its "type" field.
func LoadModel(path string) (Regressor, ModelInfo, error) {
	data, err := readArtifact("model", path)
	if err != nil {
		return nil, ModelInfo{}, err
	}

	var hdr modelHeader
	if err := json.Unmarshal(data, &hdr); err != nil {
		return nil, ModelInfo{}, fmt.Errorf("failed to parse model %s: %w", path, err)
	}

	var (
		model Regressor
		vErr  error
	)
	switch hdr.Type {
	case ModelTypeLinear:
		m := &LinearRegressor{}
		if err := json.Unmarshal(data, m); err != nil {
			return nil, ModelInfo{}, fmt.Errorf("failed to parse linear model %s: %w", path, err)
		}
		model, vErr = m, m.validate()
	case ModelTypeForest:
		m := &ForestRegressor{}
		if err := json.Unmarshal(data, m); err != nil {
			return nil, ModelInfo{}, fmt.Errorf("failed to parse forest model %s: %w", path, err)
		}
		model, vErr = m, m.validate()
	default:
		return nil, ModelInfo{}, fmt.Errorf("%w: unsupported model type %q in %s", ErrInvalidArtifact, hdr.Type, path)
	}
	if vErr != nil {
		return nil, ModelInfo{}, fmt.Errorf("model %s: %w", path, vErr)
	}
	if len(hdr.Features) > 0 && len(hdr.Features) != model.NumFeatures() {
		return nil, ModelInfo{}, fmt.Errorf("model %s: %w: %d feature names for %d features", path, ErrInvalidArtifact, len(hdr.Features), model.NumFeatures())
	}

	return model, ModelInfo{
		Type:      hdr.Type,
		Version:   hdr.Version,
		Features:  hdr.Features,
		Path:      path,
		TrainedAt: hdr.TrainedAt,
	}, nil
}

func LoadScaler(path string) (*Scaler, error) {
	data, err := readArtifact("scaler", path)
	if err != nil {
		return nil, err
	}

	s := &Scaler{}
	if err := json.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("failed to parse scaler %s: %w", path, err)
	}
	if err := s.validate(); err != nil {
		return nil, fmt.Errorf("scaler %s: %w", path, err)
	}
	return s, nil
}

func LoadDefaults(path string) (Defaults, error) {
	data, err := readArtifact("defaults", path)
	if err != nil {
		return Defaults{}, err
	}

	var d Defaults
	if err := json.Unmarshal(data, &d); err != nil {
		return Defaults{}, fmt.Errorf("failed to parse defaults %s: %w", path, err)
	}
	if err := d.validate(); err != nil {
		return Defaults{}, fmt.Errorf("defaults %s: %w", path, err)
	}
	return d, nil
}

func readArtifact(kind, path string) ([]byte, error) {
	if path == "" {
		return nil, fmt.Errorf("%s artifact path is empty", kind)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s artifact %s: %w", kind, path, err)
	}
	return data, nil
}
