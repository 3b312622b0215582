package geo

// Landmark is a named reference location.
type Landmark struct {
	Name  string
	Point Point
}

// landmarks is ordered; feature column order follows it.
var landmarks = [...]Landmark{ //nolint:gochecknoglobals // read-only reference table
	{Name: "jfk", Point: Point{Lon: -73.7781, Lat: 40.6413}},
	{Name: "lga", Point: Point{Lon: -73.8740, Lat: 40.7769}},
	{Name: "ewr", Point: Point{Lon: -74.1745, Lat: 40.6895}},
	{Name: "met", Point: Point{Lon: -73.9632, Lat: 40.7794}},
	{Name: "wtc", Point: Point{Lon: -74.0099, Lat: 40.7126}},
}

// Landmarks returns a copy of the landmark table in canonical order.
func Landmarks() []Landmark {
	out := make([]Landmark, len(landmarks))
	copy(out, landmarks[:])
	return out
}

// LandmarkByName looks up a landmark.
func LandmarkByName(name string) (Landmark, bool) {
	for _, l := range landmarks {
		if l.Name == name {
			return l, true
		}
	}
	return Landmark{}, false
}

// BoundingBox is a lon/lat rectangle.
type BoundingBox struct {
	MinLon float64
	MaxLon float64
	MinLat float64
	MaxLat float64
}

// Contains reports whether p lies strictly inside the box.
func (b BoundingBox) Contains(p Point) bool {
	return p.Lon > b.MinLon && p.Lon < b.MaxLon &&
		p.Lat > b.MinLat && p.Lat < b.MaxLat
}

// ContainsInclusive reports whether p lies inside the box or on its edge.
func (b BoundingBox) ContainsInclusive(p Point) bool {
	return p.Lon >= b.MinLon && p.Lon <= b.MaxLon &&
		p.Lat >= b.MinLat && p.Lat <= b.MaxLat
}

// Manhattan returns the zone used for pickup/dropoff membership features.
func Manhattan() BoundingBox {
	return BoundingBox{MinLon: -74.03, MaxLon: -73.93, MinLat: 40.70, MaxLat: 40.85}
}

// NYC returns the plausibility box used to filter training rows.
func NYC() BoundingBox {
	return BoundingBox{MinLon: -74.3, MaxLon: -73.6, MinLat: 40.5, MaxLat: 41.0}
}
