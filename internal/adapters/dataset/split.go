package dataset

import (
	"fmt"
	"math/rand"

	"github.com/okian/farecast/internal/domain/trip"
)

// Split shuffles records with seed and holds out validFraction of them.
// The input slice is not reordered.
func Split(records []trip.Record, validFraction float64, seed int64) (train, valid []trip.Record, err error) {
	if validFraction <= 0 || validFraction >= 1 {
		return nil, nil, fmt.Errorf("valid fraction %v outside (0, 1): %w", validFraction, ErrEmptySplit)
	}
	n := len(records)
	nValid := int(float64(n) * validFraction)
	if nValid == 0 || nValid == n {
		return nil, nil, fmt.Errorf("%d records with valid fraction %v: %w", n, validFraction, ErrEmptySplit)
	}
	perm := rand.New(rand.NewSource(seed)).Perm(n) //nolint:gosec // reproducible split
	valid = make([]trip.Record, 0, nValid)
	train = make([]trip.Record, 0, n-nValid)
	for k, i := range perm {
		if k < nValid {
			valid = append(valid, records[i])
		} else {
			train = append(train, records[i])
		}
	}
	return train, valid, nil
}
