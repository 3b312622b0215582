package dataset

import (
	"github.com/okian/farecast/internal/domain/geo"
	"github.com/okian/farecast/internal/domain/trip"
)

// Default data-quality bounds for training rows.
const (
	defaultMinPassengers = 1
	defaultMaxPassengers = 6
	defaultMinFare       = 0.5
	defaultMaxFare       = 200
	defaultMinTripKm     = 0.05
	defaultMaxTripKm     = 100
)

// Filter drops implausible training rows. It is never applied at inference.
type Filter struct {
	bounds        geo.BoundingBox
	minPassengers int
	maxPassengers int
	minFare       float64
	maxFare       float64
	minTripKm     float64
	maxTripKm     float64
}

// FilterOption applies a configuration option to the Filter.
type FilterOption func(*Filter)

// WithBounds sets the box both trip ends must fall in (inclusive).
func WithBounds(b geo.BoundingBox) FilterOption {
	return func(f *Filter) {
		f.bounds = b
	}
}

// WithPassengerRange sets the inclusive passenger count range.
func WithPassengerRange(minCount, maxCount int) FilterOption {
	return func(f *Filter) {
		if minCount > 0 && maxCount >= minCount {
			f.minPassengers = minCount
			f.maxPassengers = maxCount
		}
	}
}

// WithFareRange sets the inclusive fare range.
func WithFareRange(minFare, maxFare float64) FilterOption {
	return func(f *Filter) {
		if maxFare > minFare {
			f.minFare = minFare
			f.maxFare = maxFare
		}
	}
}

// WithTripKmRange sets the inclusive haversine trip length range.
func WithTripKmRange(minKm, maxKm float64) FilterOption {
	return func(f *Filter) {
		if maxKm > minKm {
			f.minTripKm = minKm
			f.maxTripKm = maxKm
		}
	}
}

// NewFilter creates a filter with the default NYC bounds.
func NewFilter(opts ...FilterOption) *Filter {
	f := &Filter{
		bounds:        geo.NYC(),
		minPassengers: defaultMinPassengers,
		maxPassengers: defaultMaxPassengers,
		minFare:       defaultMinFare,
		maxFare:       defaultMaxFare,
		minTripKm:     defaultMinTripKm,
		maxTripKm:     defaultMaxTripKm,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Reason names why a row was rejected; empty when accepted.
type Reason string

// Rejection reasons.
const (
	ReasonNone        Reason = ""
	ReasonPassengers  Reason = "passenger_count"
	ReasonCoordinates Reason = "coordinates"
	ReasonFare        Reason = "fare"
	ReasonDistance    Reason = "distance"
)

// Check returns why r would be dropped, or ReasonNone.
func (f *Filter) Check(r trip.Record) Reason {
	switch {
	case r.PassengerCount < f.minPassengers || r.PassengerCount > f.maxPassengers:
		return ReasonPassengers
	case !f.bounds.ContainsInclusive(r.Pickup()) || !f.bounds.ContainsInclusive(r.Dropoff()):
		return ReasonCoordinates
	case r.HasFare && (r.Fare < f.minFare || r.Fare > f.maxFare):
		return ReasonFare
	}
	km := r.Pickup().DistanceTo(r.Dropoff())
	if km < f.minTripKm || km > f.maxTripKm {
		return ReasonDistance
	}
	return ReasonNone
}

// Apply returns the accepted records in input order and the rejection
// count per reason.
func (f *Filter) Apply(records []trip.Record) ([]trip.Record, map[Reason]int) {
	kept := make([]trip.Record, 0, len(records))
	dropped := make(map[Reason]int)
	for _, r := range records {
		if reason := f.Check(r); reason != ReasonNone {
			dropped[reason]++
			continue
		}
		kept = append(kept, r)
	}
	return kept, dropped
}
