package repository

import "errors"

// Sentinel kinds for artifact store errors.
var (
	ErrNotFound        = errors.New("artifact not found")
	ErrCorruptArtifact = errors.New("corrupt artifact")
	ErrNilModel        = errors.New("nil model")
)
