// Package trip contains the trip record passed from input collaborators
// (CSV loader, HTTP handler) into the feature pipeline.
package trip

import (
	"strings"
	"time"

	"github.com/okian/farecast/internal/domain/geo"
)

// Record is a single taxi trip. Values are never mutated after construction.
type Record struct {
	PickupTime     time.Time // wall-clock pickup time, zone ignored
	PickupLat      float64
	PickupLon      float64
	DropoffLat     float64
	DropoffLon     float64
	PassengerCount int
	Fare           float64 // label, training only
	HasFare        bool
}

// Pickup returns the pickup coordinate.
func (r Record) Pickup() geo.Point { return geo.Point{Lat: r.PickupLat, Lon: r.PickupLon} }

// Dropoff returns the dropoff coordinate.
func (r Record) Dropoff() geo.Point { return geo.Point{Lat: r.DropoffLat, Lon: r.DropoffLon} }

// Raw mirrors the input contract before timestamp parsing.
type Raw struct {
	PickupDatetime   string   `json:"pickup_datetime"`
	PickupLatitude   float64  `json:"pickup_latitude"`
	PickupLongitude  float64  `json:"pickup_longitude"`
	DropoffLatitude  float64  `json:"dropoff_latitude"`
	DropoffLongitude float64  `json:"dropoff_longitude"`
	PassengerCount   int      `json:"passenger_count"`
	FareAmount       *float64 `json:"fare_amount,omitempty"`
}

// Record converts r, failing with *ParseError on a bad timestamp.
func (r Raw) Record() (Record, error) {
	ts, err := ParseTimestamp(r.PickupDatetime)
	if err != nil {
		return Record{}, err
	}
	rec := Record{
		PickupTime:     ts,
		PickupLat:      r.PickupLatitude,
		PickupLon:      r.PickupLongitude,
		DropoffLat:     r.DropoffLatitude,
		DropoffLon:     r.DropoffLongitude,
		PassengerCount: r.PassengerCount,
	}
	if r.FareAmount != nil {
		rec.Fare = *r.FareAmount
		rec.HasFare = true
	}
	return rec, nil
}

// Layouts accepted by ParseTimestamp, tried in order.
var layouts = []string{ //nolint:gochecknoglobals // read-only
	"2006-01-02 15:04:05 MST",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC3339,
}

// ParseTimestamp parses a pickup timestamp. The wall clock is kept as
// written; calendar fields are derived from it without zone conversion.
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, &ParseError{Value: s, Err: ErrMissingTimestamp}
	}
	var lastErr error
	for _, layout := range layouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return t, nil
		}
		lastErr = err
	}
	return time.Time{}, &ParseError{Value: s, Err: lastErr}
}
