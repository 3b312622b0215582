package features

import (
	"time"

	"github.com/okian/farecast/internal/domain/trip"
)

// Temporal feature names.
const (
	ColYear       = "year"
	ColMonth      = "month"
	ColDayOfMonth = "day_of_month"
	ColDayOfWeek  = "day_of_week"
	ColHour       = "hour"
	ColIsWeekend  = "is_weekend"
	ColIsNight    = "is_night"
	ColRushHour   = "rush_hour"
	ColWeek       = "week"
	ColQuarter    = "quarter"
)

// Hours considered rush hour.
var rushHours = [24]bool{7: true, 8: true, 9: true, 16: true, 17: true, 18: true} //nolint:gochecknoglobals // read-only

// TemporalStage derives calendar and time-of-day features from the pickup
// timestamp of each source record.
type TemporalStage struct{}

// Name implements Stage.
func (TemporalStage) Name() string { return "temporal" }

// Requires implements Stage. Timestamps come from the source records.
func (TemporalStage) Requires() []string { return nil }

// Produces implements Stage.
func (TemporalStage) Produces() []string {
	return []string{
		ColYear, ColMonth, ColDayOfMonth, ColDayOfWeek, ColHour,
		ColIsWeekend, ColIsNight, ColRushHour, ColWeek, ColQuarter,
	}
}

// Calendar holds the temporal features of one timestamp.
type Calendar struct {
	Year       int
	Month      int
	DayOfMonth int
	DayOfWeek  int // 0=Monday..6=Sunday
	Hour       int
	Week       int // ISO 8601
	Quarter    int
	IsWeekend  bool
	IsNight    bool
	RushHour   bool
}

// CalendarOf computes the temporal features of t in its own location.
func CalendarOf(t time.Time) Calendar {
	dow := (int(t.Weekday()) + 6) % 7
	hour := t.Hour()
	month := int(t.Month())
	_, week := t.ISOWeek()
	return Calendar{
		Year:       t.Year(),
		Month:      month,
		DayOfMonth: t.Day(),
		DayOfWeek:  dow,
		Hour:       hour,
		Week:       week,
		Quarter:    (month-1)/3 + 1,
		IsWeekend:  dow >= 5,
		IsNight:    hour < 6 || hour > 22,
		RushHour:   rushHours[hour],
	}
}

// Apply implements Stage.
func (s TemporalStage) Apply(f *Frame) (*Frame, error) {
	n := f.Len()
	recs := f.Records()
	if len(recs) != n {
		return nil, &StageError{Stage: s.Name(), Err: ErrMissingColumn, Column: "pickup_datetime"}
	}
	names := s.Produces()
	cols := make([][]float64, len(names))
	for j := range cols {
		cols[j] = make([]float64, n)
	}
	for i, r := range recs {
		if r.PickupTime.IsZero() {
			return nil, &StageError{Stage: s.Name(), Row: i, Err: &trip.ParseError{Err: trip.ErrMissingTimestamp}}
		}
		c := CalendarOf(r.PickupTime)
		cols[0][i] = float64(c.Year)
		cols[1][i] = float64(c.Month)
		cols[2][i] = float64(c.DayOfMonth)
		cols[3][i] = float64(c.DayOfWeek)
		cols[4][i] = float64(c.Hour)
		cols[5][i] = flag(c.IsWeekend)
		cols[6][i] = flag(c.IsNight)
		cols[7][i] = flag(c.RushHour)
		cols[8][i] = float64(c.Week)
		cols[9][i] = float64(c.Quarter)
	}
	return f.With(zipColumns(names, cols)...)
}

func flag(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

func zipColumns(names []string, cols [][]float64) []Column {
	out := make([]Column, len(names))
	for i := range names {
		out[i] = Column{Name: names[i], Values: cols[i]}
	}
	return out
}
