package model

import "errors"

// Sentinel error kinds for this package.
var (
	ErrFeatureCount = errors.New("feature count mismatch")
	ErrEmptyDataset = errors.New("empty dataset")
	ErrInvalidModel = errors.New("invalid model")
)
