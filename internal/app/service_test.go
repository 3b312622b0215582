package service_test

import (
	"context"
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/google/uuid"

	service "github.com/okian/farecast/internal/app"
	"github.com/okian/farecast/internal/domain/features"
	"github.com/okian/farecast/internal/domain/model"
	"github.com/okian/farecast/internal/domain/trip"
	"github.com/okian/farecast/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

// syntheticTrips returns labelled trips inside NYC whose fare is a
// noisy linear function of distance with a rush-hour surcharge.
func syntheticTrips(n int, seed int64) []trip.Record {
	rng := rand.New(rand.NewSource(seed)) //nolint:gosec // test data
	base := time.Date(2013, 5, 6, 0, 0, 0, 0, time.UTC)
	out := make([]trip.Record, 0, n)
	for len(out) < n {
		r := trip.Record{
			PickupTime:     base.Add(time.Duration(rng.Intn(60*24*90)) * time.Minute),
			PickupLat:      40.70 + rng.Float64()*0.12,
			PickupLon:      -74.02 + rng.Float64()*0.10,
			DropoffLat:     40.63 + rng.Float64()*0.19,
			DropoffLon:     -74.02 + rng.Float64()*0.26,
			PassengerCount: 1 + rng.Intn(6),
			HasFare:        true,
		}
		km := r.Pickup().DistanceTo(r.Dropoff())
		if km < 0.2 {
			continue
		}
		r.Fare = 2.5 + 1.9*km + rng.NormFloat64()*0.5
		if h := r.PickupTime.Hour(); h >= 16 && h <= 18 {
			r.Fare += 1
		}
		if r.Fare < 0.5 {
			r.Fare = 0.5
		}
		out = append(out, r)
	}
	return out
}

func midtownToJFK() trip.Record {
	return trip.Record{
		PickupTime:     time.Date(2016, 6, 15, 17, 30, 0, 0, time.UTC),
		PickupLat:      40.7580,
		PickupLon:      -73.9855,
		DropoffLat:     40.6413,
		DropoffLon:     -73.7781,
		PassengerCount: 1,
	}
}

func smallTrainer() service.Option {
	return service.WithTrainerOptions(
		model.WithEstimators(40),
		model.WithMaxDepth(3),
		model.WithMinChildSamples(5),
		model.WithMinSplitGain(0),
	)
}

func TestService_Lifecycle(t *testing.T) {
	ctx := context.Background()

	Convey("Given a service that was never started", t, func() {
		svc := service.New()

		Convey("Then predictions and training are refused", func() {
			_, err := svc.Predict(ctx, midtownToJFK())
			So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)
			_, err = svc.Train(ctx, syntheticTrips(10, 1))
			So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)
			So(svc.Ready(), ShouldBeFalse)
		})
	})

	Convey("Given a started service without a model", t, func() {
		svc := service.New(service.WithWorkerCount(2))
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop()

		Convey("Then it reports no model", func() {
			_, err := svc.Predict(ctx, midtownToJFK())
			So(errors.Is(err, service.ErrNoModel), ShouldBeTrue)
			_, ok := svc.Schema()
			So(ok, ShouldBeFalse)
			stats := svc.GetStats()
			So(stats["started"], ShouldEqual, true)
			So(stats["modelLoaded"], ShouldEqual, false)
		})

		Convey("When it is stopped", func() {
			svc.Stop()

			Convey("Then stats reflect it", func() {
				So(svc.GetStats()["started"], ShouldEqual, false)
			})
		})
	})
}

func TestService_Train(t *testing.T) {
	ctx := context.Background()

	Convey("Given a started service", t, func() {
		svc := service.New(service.WithWorkerCount(4), smallTrainer())
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop()

		Convey("When training on synthetic trips", func() {
			records := syntheticTrips(600, 7)
			records[3].PassengerCount = 0
			records[9].Fare = 900
			report, err := svc.Train(ctx, records)
			So(err, ShouldBeNil)

			Convey("Then implausible rows are dropped before the split", func() {
				So(report.Loaded, ShouldEqual, 600)
				So(report.Dropped["passenger_count"], ShouldEqual, 1)
				So(report.Dropped["fare"], ShouldEqual, 1)
				So(report.Kept(), ShouldEqual, 598)
				So(report.ValidRows, ShouldEqual, 119)
			})

			Convey("Then the model beats the constant baseline", func() {
				So(report.Trees, ShouldEqual, 40)
				So(report.ValidationRMSE, ShouldBeLessThan, report.BaselineRMSE)
				So(report.TrainRMSE, ShouldBeLessThan, report.BaselineRMSE)
			})

			Convey("Then the schema is the canonical feature list", func() {
				schema, ok := svc.Schema()
				So(ok, ShouldBeTrue)
				So(schema.Features, ShouldResemble, features.Default().Columns())
				So(report.Features, ShouldResemble, schema.Features)
			})

			Convey("Then the end-to-end example predicts a plausible airport fare", func() {
				p, err := svc.Predict(ctx, midtownToJFK())
				So(err, ShouldBeNil)
				So(p.TripKm, ShouldAlmostEqual, 21.77, 1)
				So(p.Fare, ShouldBeGreaterThan, 20)
				So(p.PickupCell, ShouldHaveLength, 6)
				So(p.DropoffCell, ShouldHaveLength, 6)
				So(p.PickupCell, ShouldStartWith, "dr5")
				So(p.FilledFeatures, ShouldBeEmpty)
				_, err = uuid.Parse(p.RequestID)
				So(err, ShouldBeNil)
				So(svc.Ready(), ShouldBeTrue)
			})

			Convey("Then batch predictions match single predictions in order", func() {
				batch := syntheticTrips(50, 99)
				got, err := svc.PredictBatch(ctx, batch)
				So(err, ShouldBeNil)
				So(got, ShouldHaveLength, 50)
				for _, i := range []int{0, 17, 49} {
					single, err := svc.Predict(ctx, batch[i])
					So(err, ShouldBeNil)
					So(got[i].Fare, ShouldEqual, single.Fare)
				}
				empty, err := svc.PredictBatch(ctx, nil)
				So(err, ShouldBeNil)
				So(empty, ShouldBeEmpty)
			})

			Convey("Then stats describe the model", func() {
				stats := svc.GetStats()
				So(stats["modelLoaded"], ShouldEqual, true)
				So(stats["trees"], ShouldEqual, 40)
				So(stats["features"], ShouldEqual, 26)
				So(stats["predictions"], ShouldHaveSameTypeAs, int64(0))
			})
		})

		Convey("When a record has no fare", func() {
			records := syntheticTrips(50, 3)
			records[10].HasFare = false
			_, err := svc.Train(ctx, records)

			Convey("Then training is refused", func() {
				So(errors.Is(err, service.ErrUnlabeled), ShouldBeTrue)
			})
		})

		Convey("When a timestamp is missing", func() {
			records := syntheticTrips(80, 5)
			records[20].PickupTime = time.Time{}
			_, err := svc.Train(ctx, records)

			Convey("Then the parse error surfaces", func() {
				var pe *trip.ParseError
				So(errors.As(err, &pe), ShouldBeTrue)
			})
		})
	})
}

func TestService_SchemaAlignment(t *testing.T) {
	ctx := context.Background()

	Convey("Given a model trained on a schema with an unknown feature", t, func() {
		schema := features.Schema{Features: []string{"passenger_count", "hour", "legacy_surge"}}
		ens := &model.Ensemble{Features: 3, BaseScore: 10, LearningRate: 0.1}
		svc := service.New(service.WithModel(ens, schema))
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop()

		Convey("When predicting", func() {
			p, err := svc.Predict(ctx, midtownToJFK())

			Convey("Then the missing feature is zero-filled and reported", func() {
				So(err, ShouldBeNil)
				So(p.Fare, ShouldEqual, 10)
				So(p.FilledFeatures, ShouldResemble, []string{"legacy_surge"})
			})
		})
	})

	Convey("Given a model whose width disagrees with its schema", t, func() {
		ens := &model.Ensemble{Features: 2, BaseScore: 10}
		svc := service.New(service.WithModel(ens, features.Schema{Features: []string{"hour"}}))

		Convey("Then start fails", func() {
			err := svc.Start(ctx)
			So(errors.Is(err, service.ErrSchemaMismatch), ShouldBeTrue)
		})
	})
}
