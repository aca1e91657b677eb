// Package ml provides the serialized artifacts behind car price inference.
// It defines the Regressor interface implemented by the supported model
// types, the feature scaler, the defaults table used for imputation, and the
// Artifacts store that loads all three once at startup.
//
// Artifacts are JSON documents. Once loaded they are never mutated, so a
// single *Artifacts value may be shared by any number of readers.
package ml

import (
	"errors"
	"fmt"
)

var (
	// ErrFeatureMismatch is returned when a sample row does not have the
	// number of features the model was trained on.
	ErrFeatureMismatch = errors.New("feature count mismatch")

	// ErrInvalidArtifact is returned when an artifact decodes but violates
	// its schema.
	ErrInvalidArtifact = errors.New("invalid artifact")
)

// Regressor defines the interface for trained regression models.
// Implementations must be safe for concurrent use once constructed.
type Regressor interface {
	// Predict returns one raw model output per sample row.
	// Returns an error wrapping ErrFeatureMismatch if any row has the wrong arity.
	Predict(samples [][]float64) ([]float64, error)

	// NumFeatures reports the number of features each sample row must carry.
	NumFeatures() int
}

func checkArity(samples [][]float64, want int) error {
	if len(samples) == 0 {
		return fmt.Errorf("%w: empty sample batch", ErrFeatureMismatch)
	}
	for i, row := range samples {
		if len(row) != want {
			return fmt.Errorf("%w: row %d has %d features, model expects %d", ErrFeatureMismatch, i, len(row), want)
		}
	}
	return nil
}
