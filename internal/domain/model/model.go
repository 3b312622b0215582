// Package model defines the fare regressor contract and a gradient-boosted
// regression tree implementation of it.
package model

import (
	"fmt"
	"math"
)

// Regressor predicts one value per feature row. Rows must follow the
// feature schema the model was trained on.
type Regressor interface {
	Predict(X [][]float64) ([]float64, error)
	NumFeatures() int
}

// Node is one node of a flattened regression tree. Leaves have Feature -1.
type Node struct {
	Feature   int     `json:"feature"`
	Threshold float64 `json:"threshold,omitempty"`
	Left      int     `json:"left,omitempty"`
	Right     int     `json:"right,omitempty"`
	Value     float64 `json:"value,omitempty"`
}

// IsLeaf reports whether n is a leaf.
func (n Node) IsLeaf() bool { return n.Feature < 0 }

// Tree is a regression tree stored as a flat node slice rooted at index 0.
type Tree struct {
	Nodes []Node `json:"nodes"`
}

// Eval walks the tree for one row. Values <= threshold go left.
func (t Tree) Eval(row []float64) float64 {
	i := 0
	for {
		n := t.Nodes[i]
		if n.IsLeaf() {
			return n.Value
		}
		if row[n.Feature] <= n.Threshold {
			i = n.Left
		} else {
			i = n.Right
		}
	}
}

// Leaves returns the number of leaves.
func (t Tree) Leaves() int {
	c := 0
	for _, n := range t.Nodes {
		if n.IsLeaf() {
			c++
		}
	}
	return c
}

// Ensemble is a boosted sum of shrunk regression trees.
type Ensemble struct {
	Features     int     `json:"num_features"`
	BaseScore    float64 `json:"base_score"`
	LearningRate float64 `json:"learning_rate"`
	Trees        []Tree  `json:"trees"`
}

// NumFeatures implements Regressor.
func (e *Ensemble) NumFeatures() int { return e.Features }

// PredictRow predicts a single row without width checks.
func (e *Ensemble) PredictRow(row []float64) float64 {
	out := e.BaseScore
	for _, t := range e.Trees {
		out += e.LearningRate * t.Eval(row)
	}
	return out
}

// Predict implements Regressor.
func (e *Ensemble) Predict(X [][]float64) ([]float64, error) {
	out := make([]float64, len(X))
	for i, row := range X {
		if len(row) != e.Features {
			return nil, fmt.Errorf("row %d has %d features, model expects %d: %w", i, len(row), e.Features, ErrFeatureCount)
		}
		out[i] = e.PredictRow(row)
	}
	return out, nil
}

// Validate checks the tree structure, e.g. after loading from disk.
func (e *Ensemble) Validate() error {
	if e.Features <= 0 {
		return fmt.Errorf("num_features %d: %w", e.Features, ErrInvalidModel)
	}
	for ti, t := range e.Trees {
		if len(t.Nodes) == 0 {
			return fmt.Errorf("tree %d is empty: %w", ti, ErrInvalidModel)
		}
		for ni, n := range t.Nodes {
			if n.IsLeaf() {
				continue
			}
			if n.Feature >= e.Features {
				return fmt.Errorf("tree %d node %d splits on feature %d: %w", ti, ni, n.Feature, ErrInvalidModel)
			}
			// children always follow their parent in the flat layout
			if n.Left <= ni || n.Right <= ni || n.Left >= len(t.Nodes) || n.Right >= len(t.Nodes) {
				return fmt.Errorf("tree %d node %d has bad children: %w", ti, ni, ErrInvalidModel)
			}
		}
	}
	return nil
}

// RMSE returns the root mean squared error of yhat against y.
func RMSE(y, yhat []float64) (float64, error) {
	if len(y) != len(yhat) {
		return 0, fmt.Errorf("rmse over %d and %d values: %w", len(y), len(yhat), ErrFeatureCount)
	}
	if len(y) == 0 {
		return 0, ErrEmptyDataset
	}
	var sum float64
	for i := range y {
		d := y[i] - yhat[i]
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(y))), nil
}
