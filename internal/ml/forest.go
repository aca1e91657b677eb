package ml

import "fmt"

// TreeNode is one node of a regression tree. Internal nodes route a sample
// left when sample[Feature] <= Threshold, right otherwise.
type TreeNode struct {
	Feature   int     `json:"feature"`
	Threshold float64 `json:"threshold"`
	Left      int     `json:"left"`
	Right     int     `json:"right"`
	Value     float64 `json:"value"`
	Leaf      bool    `json:"leaf"`
}

// RegressionTree is a flattened binary tree rooted at Nodes[0].
type RegressionTree struct {
	Nodes []TreeNode `json:"nodes"`
}

func (t *RegressionTree) eval(row []float64) float64 {
	i := 0
	for {
		n := t.Nodes[i]
		if n.Leaf {
			return n.Value
		}
		if row[n.Feature] <= n.Threshold {
			i = n.Left
		} else {
			i = n.Right
		}
	}
}

// validate checks that every path from the root terminates in a leaf.
// Children must point strictly forward, which rules out cycles.
func (t *RegressionTree) validate(numFeatures int) error {
	if len(t.Nodes) == 0 {
		return fmt.Errorf("empty tree")
	}
	for i, n := range t.Nodes {
		if n.Leaf {
			continue
		}
		if n.Feature < 0 || n.Feature >= numFeatures {
			return fmt.Errorf("node %d: feature index %d out of range", i, n.Feature)
		}
		if n.Left <= i || n.Left >= len(t.Nodes) || n.Right <= i || n.Right >= len(t.Nodes) {
			return fmt.Errorf("node %d: child index out of range", i)
		}
	}
	return nil
}

// ForestRegressor averages the outputs of an ensemble of regression trees.
type ForestRegressor struct {
	Features int              `json:"n_features"`
	Trees    []RegressionTree `json:"trees"`
}

func (f *ForestRegressor) NumFeatures() int {
	return f.Features
}

func (f *ForestRegressor) Predict(samples [][]float64) ([]float64, error) {
	if err := checkArity(samples, f.Features); err != nil {
		return nil, err
	}

	out := make([]float64, len(samples))
	for i, row := range samples {
		var sum float64
		for t := range f.Trees {
			sum += f.Trees[t].eval(row)
		}
		out[i] = sum / float64(len(f.Trees))
	}
	return out, nil
}

func (f *ForestRegressor) validate() error {
	if f.Features <= 0 {
		return fmt.Errorf("%w: forest n_features must be positive", ErrInvalidArtifact)
	}
	if len(f.Trees) == 0 {
		return fmt.Errorf("%w: forest has no trees", ErrInvalidArtifact)
	}
	for i := range f.Trees {
		if err := f.Trees[i].validate(f.Features); err != nil {
			return fmt.Errorf("%w: tree %d: %v", ErrInvalidArtifact, i, err)
		}
	}
	return nil
}
