package features

import (
	"github.com/okian/farecast/internal/domain/geo"
)

// Spatial feature names. Landmark distances are named <landmark>_drop_distance.
const (
	ColTripDistanceKm       = "trip_distance_km"
	ColPickupInManhattan    = "pickup_in_manhattan"
	ColDropoffInManhattan   = "dropoff_in_manhattan"
	ColTripCrossesManhattan = "trip_crosses_manhattan"
	ColMinLandmarkDistance  = "min_landmark_distance"

	dropDistanceSuffix = "_drop_distance"
)

// DropDistanceColumn returns the feature name for a landmark.
func DropDistanceColumn(landmark string) string {
	return landmark + dropDistanceSuffix
}

// SpatialStage derives trip distance, Manhattan membership and dropoff
// proximity to the reference landmarks. Only dropoff distances are computed.
type SpatialStage struct{}

// Name implements Stage.
func (SpatialStage) Name() string { return "spatial" }

// Requires implements Stage.
func (SpatialStage) Requires() []string {
	return []string{ColPickupLatitude, ColPickupLongitude, ColDropoffLatitude, ColDropoffLongitude}
}

// Produces implements Stage.
func (SpatialStage) Produces() []string {
	out := []string{ColTripDistanceKm, ColPickupInManhattan, ColDropoffInManhattan}
	for _, l := range geo.Landmarks() {
		out = append(out, DropDistanceColumn(l.Name))
	}
	return append(out, ColTripCrossesManhattan, ColMinLandmarkDistance)
}

// Apply implements Stage.
func (s SpatialStage) Apply(f *Frame) (*Frame, error) {
	in, err := requireColumns(s, f)
	if err != nil {
		return nil, err
	}
	plat, plon, dlat, dlon := in[0], in[1], in[2], in[3]
	n := f.Len()

	dist, err := geo.HaversineSlice(plat, plon, dlat, dlon)
	if err != nil {
		return nil, &StageError{Stage: s.Name(), Column: ColTripDistanceKm, Err: err}
	}

	box := geo.Manhattan()
	pickupIn := make([]float64, n)
	dropoffIn := make([]float64, n)
	crosses := make([]float64, n)
	for i := 0; i < n; i++ {
		p := box.Contains(geo.Point{Lat: plat[i], Lon: plon[i]})
		d := box.Contains(geo.Point{Lat: dlat[i], Lon: dlon[i]})
		pickupIn[i] = flag(p)
		dropoffIn[i] = flag(d)
		crosses[i] = flag(p != d)
	}

	cols := []Column{
		{Name: ColTripDistanceKm, Values: dist},
		{Name: ColPickupInManhattan, Values: pickupIn},
		{Name: ColDropoffInManhattan, Values: dropoffIn},
	}

	minDist := make([]float64, n)
	for k, l := range geo.Landmarks() {
		d, err := geo.HaversineTo(dlat, dlon, l.Point)
		if err != nil {
			return nil, &StageError{Stage: s.Name(), Column: DropDistanceColumn(l.Name), Err: err}
		}
		for i := range minDist {
			if k == 0 || d[i] < minDist[i] {
				minDist[i] = d[i]
			}
		}
		cols = append(cols, Column{Name: DropDistanceColumn(l.Name), Values: d})
	}

	cols = append(cols,
		Column{Name: ColTripCrossesManhattan, Values: crosses},
		Column{Name: ColMinLandmarkDistance, Values: minDist},
	)
	return f.With(cols...)
}

// requireColumns fetches the stage's required columns in declared order.
func requireColumns(s Stage, f *Frame) ([][]float64, error) {
	req := s.Requires()
	out := make([][]float64, len(req))
	for i, name := range req {
		c, ok := f.Column(name)
		if !ok {
			return nil, &StageError{Stage: s.Name(), Column: name, Err: ErrMissingColumn}
		}
		out[i] = c
	}
	return out, nil
}
