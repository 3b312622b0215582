package metrics

import (
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMetricsManagerCreation(t *testing.T) {
	Convey("Given metrics manager creation", t, func() {
		Convey("When creating with default options", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(WithPrometheusRegistry(registry))

			Convey("Then it uses the service namespace", func() {
				So(manager, ShouldNotBeNil)
				So(manager.namespace, ShouldEqual, "farecast")
				So(manager.enabled, ShouldBeTrue)
				So(manager.refreshInterval, ShouldEqual, defaultRefreshInterval)
			})
		})

		Convey("When creating with custom options", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithNamespace("test_namespace"),
				WithSubsystem("test_subsystem"),
				WithNamePrefix("test_"),
				WithLatencyBuckets([]float64{0.1, 0.5, 1.0}),
				WithRefreshInterval(5*time.Second),
				WithConstLabels(map[string]string{"env": "test"}),
				WithPrometheusRegistry(registry),
			)
			manager.predictions.Inc()

			Convey("Then metric names carry namespace, subsystem and prefix", func() {
				families, err := registry.Gather()
				So(err, ShouldBeNil)
				found := false
				for _, f := range families {
					if f.GetName() == "test_namespace_test_subsystem_test_predictions_total" {
						found = true
						So(f.GetMetric()[0].GetLabel()[0].GetName(), ShouldEqual, "env")
					}
				}
				So(found, ShouldBeTrue)
				So(manager.latencyBuckets, ShouldResemble, []float64{0.1, 0.5, 1.0})
			})
		})

		Convey("When options carry empty values", func() {
			manager := NewManager(
				WithNamespace(""),
				WithLatencyBuckets(nil),
				WithRefreshInterval(0),
				WithPrometheusRegistry(prometheus.NewRegistry()),
			)

			Convey("Then defaults are kept", func() {
				So(manager.namespace, ShouldEqual, "farecast")
				So(manager.latencyBuckets, ShouldResemble, prometheus.DefBuckets)
				So(manager.fareBuckets, ShouldResemble, defaultFareBuckets)
				So(manager.refreshInterval, ShouldEqual, defaultRefreshInterval)
			})
		})
	})
}

func TestMetricsRecording(t *testing.T) {
	Convey("Given the global manager", t, func() {
		Convey("When recording predictions", func() {
			before := testutil.ToFloat64(globalManager.predictions)
			RecordPrediction(12.5)
			RecordPrediction(52)
			RecordPredictionLatency(3)
			RecordPredictionError()

			Convey("Then the counters move", func() {
				So(testutil.ToFloat64(globalManager.predictions), ShouldEqual, before+2)
				So(testutil.ToFloat64(globalManager.predictionErrors), ShouldBeGreaterThanOrEqualTo, 1)
			})
		})

		Convey("When recording schema alignment", func() {
			RecordSchemaColumnFilled("week")
			RecordSchemaColumnFilled("week")
			RecordSchemaColumnDropped("legacy")

			Convey("Then counts are labelled by feature", func() {
				So(testutil.ToFloat64(globalManager.schemaColumnsFilled.WithLabelValues("week")), ShouldBeGreaterThanOrEqualTo, 2)
				So(testutil.ToFloat64(globalManager.schemaColumnsDrop.WithLabelValues("legacy")), ShouldBeGreaterThanOrEqualTo, 1)
			})
		})

		Convey("When recording a training run", func() {
			RecordTrainingRun(2*time.Second, 3.25, 120)
			UpdateTrainingRows("train", 800)
			UpdateModelState(true, 120, 26)

			Convey("Then the model gauges reflect it", func() {
				So(testutil.ToFloat64(globalManager.validationRMSE), ShouldEqual, 3.25)
				So(testutil.ToFloat64(globalManager.modelTrees), ShouldEqual, 120)
				So(testutil.ToFloat64(globalManager.modelFeatures), ShouldEqual, 26)
				So(testutil.ToFloat64(globalManager.modelLoaded), ShouldEqual, 1)
				So(testutil.ToFloat64(globalManager.trainingRows.WithLabelValues("train")), ShouldEqual, 800)
			})
		})

		Convey("When recording operational metrics", func() {
			So(func() {
				RecordPipelineLatency(100, 1.5)
				RecordArtifactLatency("save_model", 4)
				RecordHTTPRequest("/predict", "POST", "200")
				RecordHTTPRequestDuration("/predict", "POST", "200", 2)
				UpdateWorkerActiveCount(4)
				RecordWorkerProcessingLatency(10)
				RecordWorkerError()
				RecordErrorByComponent("service", "predict")
				RecordErrorByType("validation", "warning")
				RecordErrorByEndpoint("/predict", "POST", "bad_request")
				UpdateSystemMemoryUsage(1 << 20)
				UpdateSystemGoroutineCount(12)
				RecordSystemGCPauseTime(0.3)
			}, ShouldNotPanic)
		})

		Convey("When gathering the custom registry", func() {
			families, err := GetRegistry().Gather()

			Convey("Then only farecast metrics are exposed", func() {
				So(err, ShouldBeNil)
				So(families, ShouldNotBeEmpty)
				for _, f := range families {
					So(strings.HasPrefix(f.GetName(), "farecast_service_"), ShouldBeTrue)
				}
			})
		})
	})
}

func TestMetricsDisabled(t *testing.T) {
	Convey("Given a disabled global manager", t, func() {
		saved := globalManager
		globalManager = NewManager(WithEnabled(false), WithPrometheusRegistry(prometheus.NewRegistry()))
		Reset(func() { globalManager = saved })

		Convey("Then recorders are no-ops", func() {
			RecordPrediction(10)
			RecordSchemaColumnFilled("hour")
			So(Enabled(), ShouldBeFalse)
			So(testutil.ToFloat64(globalManager.predictions), ShouldEqual, 0)
		})
	})
}
