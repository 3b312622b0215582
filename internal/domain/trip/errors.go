package trip

import (
	"errors"
	"fmt"
)

// Sentinel error kinds for this package.
var (
	ErrMissingTimestamp = errors.New("missing pickup timestamp")
)

// ParseError reports a timestamp that calendar features cannot be derived from.
type ParseError struct {
	Value string
	Err   error
}

func (e *ParseError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("parse pickup_datetime: %v", e.Err)
	}
	return fmt.Sprintf("parse pickup_datetime %q: %v", e.Value, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }
