package service

import "errors"

// Sentinel kinds for service errors.
var (
	ErrNotStarted         = errors.New("service not started")
	ErrNoModel            = errors.New("no model loaded")
	ErrUnlabeled          = errors.New("training record has no fare")
	ErrSchemaMismatch     = errors.New("schema does not match model")
	ErrTrainingInProgress = errors.New("training already in progress")
)
