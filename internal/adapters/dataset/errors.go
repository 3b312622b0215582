package dataset

import (
	"errors"
	"fmt"
)

// Sentinel error kinds for this package.
var (
	ErrNoHeader      = errors.New("csv has no header")
	ErrMissingColumn = errors.New("required csv column missing")
	ErrEmptySplit    = errors.New("split produced an empty partition")

	errIncomplete = errors.New("empty numeric field")
)

// LineError ties a row failure to its CSV line (header is line 0).
type LineError struct {
	Line int
	Err  error
}

func (e *LineError) Error() string { return fmt.Sprintf("line %d: %v", e.Line, e.Err) }

func (e *LineError) Unwrap() error { return e.Err }
