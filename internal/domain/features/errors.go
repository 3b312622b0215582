package features

import (
	"errors"
	"fmt"
)

// Sentinel error kinds for this package. These allow errors.Is from callers.
var (
	ErrMissingColumn   = errors.New("missing column")
	ErrDuplicateColumn = errors.New("duplicate column")
	ErrShape           = errors.New("frame shape mismatch")
	ErrEmptyPipeline   = errors.New("pipeline has no stages")
)

// StageError reports a stage failure, with the offending row when known.
type StageError struct {
	Stage  string
	Row    int
	Column string
	Err    error
}

func (e *StageError) Error() string {
	if e.Column != "" {
		return fmt.Sprintf("stage %s: column %s: %v", e.Stage, e.Column, e.Err)
	}
	return fmt.Sprintf("stage %s: row %d: %v", e.Stage, e.Row, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }
