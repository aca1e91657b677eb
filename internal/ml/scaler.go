package ml

import "fmt"

// Scaler standardizes features as (x - mean) / scale.
type Scaler struct {
	Mean  []float64 `json:"mean"`
	Scale []float64 `json:"scale"`
}

// Transform returns a scaled copy of samples.
func (s *Scaler) Transform(samples [][]float64) ([][]float64, error) {
	if err := checkArity(samples, len(s.Mean)); err != nil {
		return nil, err
	}

	out := make([][]float64, len(samples))
	for i, row := range samples {
		scaled := make([]float64, len(row))
		for j, x := range row {
			scaled[j] = (x - s.Mean[j]) / s.Scale[j]
		}
		out[i] = scaled
	}
	return out, nil
}

func (s *Scaler) NumFeatures() int {
	return len(s.Mean)
}

func (s *Scaler) validate() error {
	if len(s.Mean) == 0 {
		return fmt.Errorf("%w: scaler has no features", ErrInvalidArtifact)
	}
	if len(s.Mean) != len(s.Scale) {
		return fmt.Errorf("%w: scaler mean has %d entries, scale has %d", ErrInvalidArtifact, len(s.Mean), len(s.Scale))
	}
	for i, v := range s.Scale {
		if v == 0 {
			return fmt.Errorf("%w: scaler scale[%d] is zero", ErrInvalidArtifact, i)
		}
	}
	return nil
}
