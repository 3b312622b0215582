package features_test

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/okian/farecast/internal/domain/features"
	"github.com/okian/farecast/internal/domain/geo"
	"github.com/okian/farecast/internal/domain/trip"
	. "github.com/smartystreets/goconvey/convey"
)

var (
	midtown = geo.Point{Lat: 40.7580, Lon: -73.9855}
	jfk     = geo.Point{Lat: 40.6413, Lon: -73.7781}
	brklyn  = geo.Point{Lat: 40.6782, Lon: -73.9442}
	upper   = geo.Point{Lat: 40.7794, Lon: -73.9632}
)

func at(s string) time.Time {
	ts, err := trip.ParseTimestamp(s)
	if err != nil {
		panic(err)
	}
	return ts
}

func rec(ts string, from, to geo.Point, passengers int) trip.Record {
	return trip.Record{
		PickupTime:     at(ts),
		PickupLat:      from.Lat,
		PickupLon:      from.Lon,
		DropoffLat:     to.Lat,
		DropoffLon:     to.Lon,
		PassengerCount: passengers,
	}
}

func value(f *features.Frame, row int, name string) float64 {
	v, ok := f.Value(row, name)
	So(ok, ShouldBeTrue)
	return v
}

func TestTemporalStage(t *testing.T) {
	Convey("Given trips on known dates", t, func() {
		records := []trip.Record{
			rec("2016-06-15 08:30:00", midtown, jfk, 1), // Wednesday
			rec("2016-06-18 23:10:00", midtown, jfk, 1), // Saturday
			rec("2016-06-19 05:59:00", midtown, jfk, 1), // Sunday
			rec("2016-01-01 22:00:00", midtown, jfk, 1), // Friday, ISO week 53 of 2015
			rec("2016-12-31 17:00:00", midtown, jfk, 1), // Saturday
		}

		Convey("When applying the temporal stage", func() {
			f, err := features.TemporalStage{}.Apply(features.NewFrame(records))
			So(err, ShouldBeNil)

			Convey("Then calendar fields match the timestamp", func() {
				So(value(f, 0, features.ColYear), ShouldEqual, 2016)
				So(value(f, 0, features.ColMonth), ShouldEqual, 6)
				So(value(f, 0, features.ColDayOfMonth), ShouldEqual, 15)
				So(value(f, 0, features.ColDayOfWeek), ShouldEqual, 2)
				So(value(f, 0, features.ColHour), ShouldEqual, 8)
				So(value(f, 0, features.ColWeek), ShouldEqual, 24)
				So(value(f, 0, features.ColQuarter), ShouldEqual, 2)
				So(value(f, 0, features.ColRushHour), ShouldEqual, 1)
				So(value(f, 0, features.ColIsNight), ShouldEqual, 0)
			})

			Convey("Then ISO week and calendar year are independent", func() {
				So(value(f, 3, features.ColYear), ShouldEqual, 2016)
				So(value(f, 3, features.ColWeek), ShouldEqual, 53)
				So(value(f, 3, features.ColQuarter), ShouldEqual, 1)
				So(value(f, 4, features.ColQuarter), ShouldEqual, 4)
			})

			Convey("Then night and rush hour follow the hour", func() {
				So(value(f, 1, features.ColIsNight), ShouldEqual, 1) // 23h
				So(value(f, 2, features.ColIsNight), ShouldEqual, 1) // 5h
				So(value(f, 3, features.ColIsNight), ShouldEqual, 0) // 22h
				So(value(f, 4, features.ColRushHour), ShouldEqual, 1)
				So(value(f, 1, features.ColRushHour), ShouldEqual, 0)
			})

			Convey("Then is_weekend agrees with day_of_week for every row", func() {
				for i := 0; i < f.Len(); i++ {
					dow := value(f, i, features.ColDayOfWeek)
					weekend := value(f, i, features.ColIsWeekend)
					So(weekend == 0 || weekend == 1, ShouldBeTrue)
					So(weekend == 1, ShouldEqual, dow == 5 || dow == 6)
				}
				So(value(f, 1, features.ColDayOfWeek), ShouldEqual, 5)
				So(value(f, 2, features.ColDayOfWeek), ShouldEqual, 6)
			})
		})
	})

	Convey("Given every hour of a week", t, func() {
		start := at("2016-06-13 00:00:00") // Monday
		for h := 0; h < 7*24; h++ {
			c := features.CalendarOf(start.Add(time.Duration(h) * time.Hour))
			So(c.DayOfWeek, ShouldEqual, h/24)
			So(c.IsWeekend, ShouldEqual, h/24 >= 5)
			So(c.IsNight, ShouldEqual, c.Hour < 6 || c.Hour > 22)
		}
	})

	Convey("Given a record without a timestamp", t, func() {
		r := rec("2016-06-15 08:30:00", midtown, jfk, 1)
		r.PickupTime = time.Time{}
		_, err := features.TemporalStage{}.Apply(features.NewFrame([]trip.Record{r}))

		Convey("Then the stage fails with a ParseError", func() {
			var pe *trip.ParseError
			So(errors.As(err, &pe), ShouldBeTrue)
			So(errors.Is(err, trip.ErrMissingTimestamp), ShouldBeTrue)
		})
	})
}

func TestSpatialStage(t *testing.T) {
	Convey("Given trips covering every Manhattan membership combination", t, func() {
		records := []trip.Record{
			rec("2016-06-15 08:30:00", midtown, upper, 1),  // in -> in
			rec("2016-06-15 08:30:00", midtown, jfk, 1),    // in -> out
			rec("2016-06-15 08:30:00", brklyn, midtown, 1), // out -> in
			rec("2016-06-15 08:30:00", jfk, brklyn, 1),     // out -> out
		}
		f, err := features.SpatialStage{}.Apply(features.NewFrame(records))
		So(err, ShouldBeNil)

		Convey("Then membership and crossing follow XOR semantics", func() {
			want := [][3]float64{{1, 1, 0}, {1, 0, 1}, {0, 1, 1}, {0, 0, 0}}
			for i, w := range want {
				So(value(f, i, features.ColPickupInManhattan), ShouldEqual, w[0])
				So(value(f, i, features.ColDropoffInManhattan), ShouldEqual, w[1])
				So(value(f, i, features.ColTripCrossesManhattan), ShouldEqual, w[2])
			}
		})

		Convey("Then min_landmark_distance is the minimum drop distance", func() {
			for i := 0; i < f.Len(); i++ {
				m := math.Inf(1)
				for _, l := range geo.Landmarks() {
					m = math.Min(m, value(f, i, features.DropDistanceColumn(l.Name)))
				}
				So(value(f, i, features.ColMinLandmarkDistance), ShouldEqual, m)
			}
		})

		Convey("Then landmark distances are measured from the dropoff only", func() {
			So(value(f, 1, "jfk_drop_distance"), ShouldAlmostEqual, 0, 1e-9)
			So(value(f, 3, "jfk_drop_distance"), ShouldAlmostEqual, brklyn.DistanceTo(jfk), 1e-9)
		})
	})

	Convey("Given a frame without coordinates", t, func() {
		f, err := features.NewFrameFromColumns([]string{"x"}, [][]float64{{1}})
		So(err, ShouldBeNil)
		_, err = features.SpatialStage{}.Apply(f)

		Convey("Then the stage reports the missing column", func() {
			So(errors.Is(err, features.ErrMissingColumn), ShouldBeTrue)
		})
	})
}

func TestInteractionStage(t *testing.T) {
	Convey("Given precomputed inputs", t, func() {
		f, err := features.NewFrameFromColumns(
			[]string{features.ColTripDistanceKm, features.ColRushHour, features.ColTripCrossesManhattan, features.ColIsWeekend},
			[][]float64{
				{0.5, 12, 31, 1},
				{1, 0, 1, 0},
				{0, 1, 1, 0},
				{1, 1, 0, 0},
			},
		)
		So(err, ShouldBeNil)

		Convey("When applying the interaction stage", func() {
			out, err := features.InteractionStage{}.Apply(f)
			So(err, ShouldBeNil)

			Convey("Then products and thresholds are exact", func() {
				So(value(out, 0, features.ColRushHourXDistance), ShouldEqual, 0.5)
				So(value(out, 1, features.ColRushHourXDistance), ShouldEqual, 0)
				So(value(out, 1, features.ColCrossManhattanXDistance), ShouldEqual, 12)
				So(value(out, 1, features.ColWeekendXDistance), ShouldEqual, 12)
				So(value(out, 2, features.ColWeekendXDistance), ShouldEqual, 0)
				So(value(out, 0, features.ColIsShortTrip), ShouldEqual, 1)
				So(value(out, 3, features.ColIsShortTrip), ShouldEqual, 0)
				So(value(out, 3, features.ColIsLongTrip), ShouldEqual, 0)
				So(value(out, 2, features.ColIsLongTrip), ShouldEqual, 1)
			})

			Convey("Then the input frame is untouched", func() {
				So(f.Columns(), ShouldHaveLength, 4)
				So(out.Columns(), ShouldHaveLength, 9)
			})
		})
	})
}

func TestPipeline(t *testing.T) {
	Convey("Given stages in the wrong order", t, func() {
		_, err := features.NewPipeline(features.InteractionStage{}, features.TemporalStage{}, features.SpatialStage{})

		Convey("Then construction fails on the missing input", func() {
			So(errors.Is(err, features.ErrMissingColumn), ShouldBeTrue)
			var se *features.StageError
			So(errors.As(err, &se), ShouldBeTrue)
			So(se.Stage, ShouldEqual, "interaction")
		})
	})

	Convey("Given a stage listed twice", t, func() {
		_, err := features.NewPipeline(features.TemporalStage{}, features.TemporalStage{})
		So(errors.Is(err, features.ErrDuplicateColumn), ShouldBeTrue)
	})

	Convey("Given no stages", t, func() {
		_, err := features.NewPipeline()
		So(errors.Is(err, features.ErrEmptyPipeline), ShouldBeTrue)
	})

	Convey("Given the default pipeline", t, func() {
		p := features.Default()

		Convey("Then stages run temporal, spatial, interaction", func() {
			So(p.Stages(), ShouldResemble, []string{"temporal", "spatial", "interaction"})
		})

		Convey("Then the canonical columns exclude raw coordinates", func() {
			cols := p.Columns()
			So(cols[0], ShouldEqual, features.ColPassengerCount)
			So(cols, ShouldNotContain, features.ColPickupLatitude)
			So(cols, ShouldContain, features.ColMinLandmarkDistance)
			So(cols[len(cols)-1], ShouldEqual, features.ColIsLongTrip)
			So(cols, ShouldHaveLength, 1+10+10+5)
		})

		Convey("When featurizing the Midtown to JFK example", func() {
			r := rec("2016-06-15 08:30:00", midtown, jfk, 1)
			v, err := p.ApplyOne(r)
			So(err, ShouldBeNil)

			get := func(name string) float64 {
				x, ok := v.Get(name)
				So(ok, ShouldBeTrue)
				return x
			}

			Convey("Then the documented features hold", func() {
				So(get(features.ColPickupInManhattan), ShouldEqual, 1)
				So(get(features.ColDropoffInManhattan), ShouldEqual, 0)
				So(get(features.ColTripCrossesManhattan), ShouldEqual, 1)
				So(get(features.ColRushHour), ShouldEqual, 1)
				So(get("jfk_drop_distance"), ShouldAlmostEqual, 0, 1e-9)
				So(get(features.ColMinLandmarkDistance), ShouldAlmostEqual, 0, 1e-9)
				So(get(features.ColTripDistanceKm), ShouldAlmostEqual, 21.77, 1.0)
				So(get(features.ColRushHourXDistance), ShouldEqual, get(features.ColTripDistanceKm))
				So(get(features.ColCrossManhattanXDistance), ShouldEqual, get(features.ColTripDistanceKm))
				So(get(features.ColWeekendXDistance), ShouldEqual, 0)
				So(get(features.ColPassengerCount), ShouldEqual, 1)
			})

			Convey("Then the vector is in canonical order", func() {
				names := make([]string, len(v))
				for i, ft := range v {
					names[i] = ft.Name
				}
				So(names, ShouldResemble, p.Columns())
			})
		})

		Convey("When featurizing a batch", func() {
			records := []trip.Record{
				rec("2016-06-15 08:30:00", midtown, jfk, 1),
				rec("2016-06-18 23:10:00", brklyn, upper, 3),
			}
			f, err := p.Apply(records)
			So(err, ShouldBeNil)

			Convey("Then each row equals featurizing it alone", func() {
				for i, r := range records {
					one, err := p.ApplyOne(r)
					So(err, ShouldBeNil)
					So(f.Vector(i), ShouldResemble, one)
				}
			})
		})

		Convey("When a record in the batch has no timestamp", func() {
			bad := rec("2016-06-15 08:30:00", midtown, jfk, 1)
			bad.PickupTime = time.Time{}
			_, err := p.Apply([]trip.Record{rec("2016-06-15 08:30:00", midtown, jfk, 1), bad})

			Convey("Then the failure propagates", func() {
				var pe *trip.ParseError
				So(errors.As(err, &pe), ShouldBeTrue)
				var se *features.StageError
				So(errors.As(err, &se), ShouldBeTrue)
				So(se.Row, ShouldEqual, 1)
			})
		})
	})
}

func TestSchema(t *testing.T) {
	Convey("Given a frame with columns A, B, C and a schema B, D, A", t, func() {
		f, err := features.NewFrameFromColumns(
			[]string{"A", "B", "C"},
			[][]float64{{1, 2}, {3, 4}, {5, 6}},
		)
		So(err, ShouldBeNil)
		schema := features.Schema{Features: []string{"B", "D", "A"}}

		Convey("When aligning", func() {
			aligned, report := schema.Align(f)

			Convey("Then columns are exactly the schema in order", func() {
				So(aligned.Columns(), ShouldResemble, []string{"B", "D", "A"})
			})
			Convey("Then D is zero-filled and values are preserved", func() {
				So(aligned.Row(0), ShouldResemble, []float64{3, 0, 1})
				So(aligned.Row(1), ShouldResemble, []float64{4, 0, 2})
			})
			Convey("Then the report lists filled and dropped columns", func() {
				So(report.Filled, ShouldResemble, []string{"D"})
				So(report.Dropped, ShouldResemble, []string{"C"})
				So(report.Clean(), ShouldBeFalse)
			})
		})
	})

	Convey("Given a training frame", t, func() {
		p := features.Default()
		f, err := p.Apply([]trip.Record{rec("2016-06-15 08:30:00", midtown, jfk, 2)})
		So(err, ShouldBeNil)

		Convey("When capturing its schema", func() {
			schema := features.Capture(f)

			Convey("Then it records the column order", func() {
				So(schema.Features, ShouldResemble, p.Columns())
				pos, ok := schema.Position(features.ColHour)
				So(ok, ShouldBeTrue)
				So(pos, ShouldEqual, 5)
				_, ok = schema.Position("nope")
				So(ok, ShouldBeFalse)
			})

			Convey("Then aligning the same frame is a clean identity", func() {
				aligned, report := schema.Align(f)
				So(report.Clean(), ShouldBeTrue)
				So(aligned.Matrix(), ShouldResemble, f.Matrix())
			})
		})
	})
}

func TestFrame(t *testing.T) {
	Convey("Given frames with mismatched shapes", t, func() {
		_, err := features.NewFrameFromColumns([]string{"a", "b"}, [][]float64{{1}, {1, 2}})
		So(errors.Is(err, features.ErrShape), ShouldBeTrue)

		_, err = features.NewFrameFromColumns([]string{"a", "a"}, [][]float64{{1}, {2}})
		So(errors.Is(err, features.ErrDuplicateColumn), ShouldBeTrue)
	})

	Convey("Given two compatible frames", t, func() {
		a, _ := features.NewFrameFromColumns([]string{"x", "y"}, [][]float64{{1}, {2}})
		b, _ := features.NewFrameFromColumns([]string{"x", "y"}, [][]float64{{3, 5}, {4, 6}})

		Convey("When concatenating", func() {
			c, err := features.Concat(a, b)
			So(err, ShouldBeNil)
			So(c.Len(), ShouldEqual, 3)
			So(c.Matrix(), ShouldResemble, [][]float64{{1, 2}, {3, 4}, {5, 6}})
		})

		Convey("When a column is extended twice", func() {
			_, err := a.With(features.Column{Name: "x", Values: []float64{0}})
			So(errors.Is(err, features.ErrDuplicateColumn), ShouldBeTrue)
		})

		Convey("When selecting an unknown column", func() {
			_, err := a.Select("z")
			So(errors.Is(err, features.ErrMissingColumn), ShouldBeTrue)
		})
	})
}
