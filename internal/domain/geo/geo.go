// Package geo provides great-circle distances and the fixed reference
// geography (landmarks, zones) used by feature extraction.
package geo

import (
	"fmt"
	"math"
)

// EarthRadiusKm is the mean Earth radius used by Haversine.
const EarthRadiusKm = 6371.0

const degToRad = math.Pi / 180

// Point is a WGS84 coordinate in degrees.
type Point struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// DistanceTo returns the haversine distance in kilometers to q.
func (p Point) DistanceTo(q Point) float64 {
	return Haversine(p.Lat, p.Lon, q.Lat, q.Lon)
}

// Haversine returns the great-circle distance in kilometers between two
// points given in degrees. Coordinates are not range checked.
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	phi1 := lat1 * degToRad
	phi2 := lat2 * degToRad
	dPhi := (lat2 - lat1) * degToRad
	dLambda := (lon2 - lon1) * degToRad

	sinPhi := math.Sin(dPhi / 2)
	sinLambda := math.Sin(dLambda / 2)
	a := sinPhi*sinPhi + math.Cos(phi1)*math.Cos(phi2)*sinLambda*sinLambda
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return EarthRadiusKm * c
}

// HaversineSlice computes Haversine element-wise over equal-length slices.
func HaversineSlice(lat1, lon1, lat2, lon2 []float64) ([]float64, error) {
	n := len(lat1)
	if len(lon1) != n || len(lat2) != n || len(lon2) != n {
		return nil, fmt.Errorf("haversine over %d/%d/%d/%d values: %w",
			len(lat1), len(lon1), len(lat2), len(lon2), ErrLengthMismatch)
	}
	out := make([]float64, n)
	for i := range out {
		out[i] = Haversine(lat1[i], lon1[i], lat2[i], lon2[i])
	}
	return out, nil
}

// HaversineTo computes the distance from every (lats[i], lons[i]) to p.
func HaversineTo(lats, lons []float64, p Point) ([]float64, error) {
	if len(lats) != len(lons) {
		return nil, fmt.Errorf("haversine to point over %d/%d values: %w", len(lats), len(lons), ErrLengthMismatch)
	}
	out := make([]float64, len(lats))
	for i := range out {
		out[i] = Haversine(lats[i], lons[i], p.Lat, p.Lon)
	}
	return out, nil
}
