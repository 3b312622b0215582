package features

// Interaction feature names.
const (
	ColRushHourXDistance       = "rush_hour_x_distance"
	ColCrossManhattanXDistance = "cross_manhattan_x_distance"
	ColWeekendXDistance        = "weekend_x_distance"
	ColIsShortTrip             = "is_short_trip"
	ColIsLongTrip              = "is_long_trip"
)

// Trip length thresholds in kilometers.
const (
	ShortTripKm = 1.0
	LongTripKm  = 30.0
)

// InteractionStage combines temporal and spatial outputs into cross terms
// and trip-length flags.
type InteractionStage struct{}

// Name implements Stage.
func (InteractionStage) Name() string { return "interaction" }

// Requires implements Stage.
func (InteractionStage) Requires() []string {
	return []string{ColTripDistanceKm, ColRushHour, ColTripCrossesManhattan, ColIsWeekend}
}

// Produces implements Stage.
func (InteractionStage) Produces() []string {
	return []string{
		ColRushHourXDistance, ColCrossManhattanXDistance, ColWeekendXDistance,
		ColIsShortTrip, ColIsLongTrip,
	}
}

// Apply implements Stage.
func (s InteractionStage) Apply(f *Frame) (*Frame, error) {
	in, err := requireColumns(s, f)
	if err != nil {
		return nil, err
	}
	dist, rush, cross, weekend := in[0], in[1], in[2], in[3]
	n := f.Len()

	rushX := make([]float64, n)
	crossX := make([]float64, n)
	weekendX := make([]float64, n)
	short := make([]float64, n)
	long := make([]float64, n)
	for i := 0; i < n; i++ {
		rushX[i] = rush[i] * dist[i]
		crossX[i] = cross[i] * dist[i]
		weekendX[i] = weekend[i] * dist[i]
		short[i] = flag(dist[i] < ShortTripKm)
		long[i] = flag(dist[i] > LongTripKm)
	}
	return f.With(
		Column{Name: ColRushHourXDistance, Values: rushX},
		Column{Name: ColCrossManhattanXDistance, Values: crossX},
		Column{Name: ColWeekendXDistance, Values: weekendX},
		Column{Name: ColIsShortTrip, Values: short},
		Column{Name: ColIsLongTrip, Values: long},
	)
}
