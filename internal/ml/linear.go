package ml

import "fmt"

// LinearRegressor is an ordinary least squares model: intercept + w·x.
type LinearRegressor struct {
	Intercept    float64   `json:"intercept"`
	Coefficients []float64 `json:"coefficients"`
}

func (m *LinearRegressor) NumFeatures() int {
	return len(m.Coefficients)
}

func (m *LinearRegressor) Predict(samples [][]float64) ([]float64, error) {
	if err := checkArity(samples, len(m.Coefficients)); err != nil {
		return nil, err
	}

	out := make([]float64, len(samples))
	for i, row := range samples {
		y := m.Intercept
		for j, x := range row {
			y += m.Coefficients[j] * x
		}
		out[i] = y
	}
	return out, nil
}

func (m *LinearRegressor) validate() error {
	if len(m.Coefficients) == 0 {
		return fmt.Errorf("%w: linear model has no coefficients", ErrInvalidArtifact)
	}
	return nil
}
