package geo

import "errors"

// Sentinel error kinds for this package.
var (
	ErrLengthMismatch = errors.New("coordinate slices differ in length")
)
