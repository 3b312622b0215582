// Package service provides the core fare service that implements
// the dependencies required by the HTTP API and the training CLI.
package service

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/mmcloughlin/geohash"

	"github.com/okian/farecast/internal/adapters/dataset"
	"github.com/okian/farecast/internal/adapters/repository"
	workerpool "github.com/okian/farecast/internal/adapters/worker"
	"github.com/okian/farecast/internal/domain/features"
	"github.com/okian/farecast/internal/domain/model"
	"github.com/okian/farecast/internal/domain/trip"
	"github.com/okian/farecast/internal/domain/types"
	"github.com/okian/farecast/pkg/logger"
	"github.com/okian/farecast/pkg/metrics"
)

// Default service configuration constants.
const (
	defaultValidFraction    = 0.2
	defaultSplitSeed        = 42
	defaultGeohashPrecision = 6
)

// Service featurizes trips, serves fare predictions and trains new models.
type Service struct {
	mu sync.RWMutex

	// Core components
	store    repository.Store
	pipeline *features.Pipeline
	filter   *dataset.Filter
	pool     *workerpool.Pool

	// Serving state, swapped as a pair under mu
	regressor model.Regressor
	schema    features.Schema
	loadedAt  time.Time

	// Configuration
	workerCount      int
	trainerOpts      []model.Option
	validFraction    float64
	splitSeed        int64
	geohashPrecision uint

	// State
	started     bool
	training    sync.Mutex
	predictions atomic.Int64
	lastReport  *types.TrainReport

	logger logger.Logger
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		pipeline:         features.Default(),
		filter:           dataset.NewFilter(),
		workerCount:      runtime.NumCPU(),
		validFraction:    defaultValidFraction,
		splitSeed:        defaultSplitSeed,
		geohashPrecision: defaultGeohashPrecision,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start wires the worker pool and loads the persisted model, if any. A
// missing model is not an error: the service starts and reports ErrNoModel
// from Predict until Train succeeds.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}

	s.logger.Info(ctx, "starting fare service...")

	s.pool = workerpool.NewPool(s.pipeline,
		workerpool.WithSize(s.workerCount),
		workerpool.WithLogger(s.logger.Named("pool")),
	)

	if s.regressor == nil && s.store != nil {
		if err := s.loadLocked(ctx); err != nil {
			if !errors.Is(err, repository.ErrNotFound) {
				return fmt.Errorf("load artifacts: %w", err)
			}
			s.logger.Warn(ctx, "no model artifacts found; predictions disabled until a model is trained",
				logger.Error(err),
			)
		}
	}
	if s.regressor != nil {
		if err := checkSchema(s.regressor, s.schema); err != nil {
			return err
		}
		if s.loadedAt.IsZero() {
			s.loadedAt = time.Now()
		}
	}

	s.started = true
	metrics.UpdateModelState(s.regressor != nil, treeCount(s.regressor), s.schema.Len())
	s.logger.Info(ctx, "fare service started",
		logger.Int("workers", s.pool.Size()),
		logger.Bool("modelLoaded", s.regressor != nil),
		logger.Int("features", s.schema.Len()),
		logger.Strings("stages", s.pipeline.Stages()),
	)

	return nil
}

// Stop marks the service stopped. Predictions fail with ErrNotStarted afterwards.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	s.started = false
	s.logger.Info(context.Background(), "fare service stopped",
		logger.Int("predictions", int(s.predictions.Load())),
	)
}

// Reload re-reads the model and schema from the store and swaps them in.
func (s *Service) Reload(ctx context.Context) error {
	if s.store == nil {
		return fmt.Errorf("reload: %w", repository.ErrNotFound)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.loadLocked(ctx); err != nil {
		return err
	}
	metrics.UpdateModelState(true, treeCount(s.regressor), s.schema.Len())
	return nil
}

func (s *Service) loadLocked(ctx context.Context) error {
	m, err := s.store.LoadModel(ctx)
	if err != nil {
		return err
	}
	schema, err := s.store.LoadSchema(ctx)
	if err != nil {
		return err
	}
	if err := checkSchema(m, schema); err != nil {
		return err
	}
	s.regressor = m
	s.schema = schema
	s.loadedAt = time.Now()
	if s.logger != nil {
		s.logger.Info(ctx, "model loaded",
			logger.Int("trees", len(m.Trees)),
			logger.Int("features", schema.Len()),
		)
	}
	return nil
}

func checkSchema(r model.Regressor, schema features.Schema) error {
	if r.NumFeatures() != schema.Len() {
		return fmt.Errorf("model expects %d features, schema lists %d: %w", r.NumFeatures(), schema.Len(), ErrSchemaMismatch)
	}
	return nil
}

func treeCount(r model.Regressor) int {
	if e, ok := r.(*model.Ensemble); ok && e != nil {
		return len(e.Trees)
	}
	return 0
}

// serving returns a consistent model/schema pair.
func (s *Service) serving() (model.Regressor, features.Schema, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return nil, features.Schema{}, ErrNotStarted
	}
	if s.regressor == nil {
		return nil, features.Schema{}, ErrNoModel
	}
	return s.regressor, s.schema, nil
}

// Predict featurizes one trip and returns its predicted fare.
func (s *Service) Predict(ctx context.Context, r trip.Record) (types.Prediction, error) {
	out, err := s.predict(ctx, []trip.Record{r}, false)
	if err != nil {
		return types.Prediction{}, err
	}
	return out[0], nil
}

// PredictBatch predicts a fare per record, in input order. Large batches
// are featurized on the worker pool.
func (s *Service) PredictBatch(ctx context.Context, records []trip.Record) ([]types.Prediction, error) {
	if len(records) == 0 {
		return []types.Prediction{}, nil
	}
	return s.predict(ctx, records, true)
}

func (s *Service) predict(ctx context.Context, records []trip.Record, pooled bool) ([]types.Prediction, error) {
	start := time.Now()
	reg, schema, err := s.serving()
	if err != nil {
		return nil, err
	}

	frame, err := s.featurize(ctx, records, pooled)
	if err != nil {
		metrics.RecordPredictionError()
		metrics.RecordErrorByComponent("service", "featurize")
		return nil, err
	}

	aligned, report := schema.Align(frame)
	s.reportAlignment(ctx, report)

	fares, err := reg.Predict(aligned.Matrix())
	if err != nil {
		metrics.RecordPredictionError()
		metrics.RecordErrorByComponent("service", "predict")
		return nil, fmt.Errorf("predict: %w", err)
	}

	out := make([]types.Prediction, len(records))
	for i, r := range records {
		out[i] = types.Prediction{
			RequestID:      uuid.NewString(),
			Fare:           fares[i],
			TripKm:         r.Pickup().DistanceTo(r.Dropoff()),
			PickupCell:     geohash.EncodeWithPrecision(r.PickupLat, r.PickupLon, s.geohashPrecision),
			DropoffCell:    geohash.EncodeWithPrecision(r.DropoffLat, r.DropoffLon, s.geohashPrecision),
			FilledFeatures: report.Filled,
		}
		metrics.RecordPrediction(fares[i])
	}
	s.predictions.Add(int64(len(records)))
	metrics.RecordPredictionLatency(float64(time.Since(start).Microseconds()) / 1000)

	if len(records) == 1 {
		s.logger.Debug(ctx, "fare predicted",
			logger.String("requestID", out[0].RequestID),
			logger.Float64("fare", out[0].Fare),
			logger.String("pickupCell", out[0].PickupCell),
			logger.String("dropoffCell", out[0].DropoffCell),
		)
	}
	return out, nil
}

func (s *Service) featurize(ctx context.Context, records []trip.Record, pooled bool) (*features.Frame, error) {
	start := time.Now()
	var (
		frame *features.Frame
		err   error
	)
	if pooled && s.pool != nil {
		frame, err = s.pool.Featurize(ctx, records)
	} else {
		frame, err = s.pipeline.Apply(records)
	}
	if err != nil {
		return nil, err
	}
	metrics.RecordPipelineLatency(len(records), float64(time.Since(start).Microseconds())/1000)
	return frame, nil
}

// reportAlignment surfaces schema drift: the features package zero-fills
// silently, the service makes it visible.
func (s *Service) reportAlignment(ctx context.Context, report features.AlignReport) {
	if report.Clean() {
		return
	}
	for _, name := range report.Filled {
		metrics.RecordSchemaColumnFilled(name)
	}
	for _, name := range report.Dropped {
		metrics.RecordSchemaColumnDropped(name)
	}
	s.logger.Warn(ctx, "feature schema mismatch",
		logger.Strings("filled", report.Filled),
		logger.Strings("dropped", report.Dropped),
	)
}

// Train filters and splits records, featurizes both partitions, fits a new
// ensemble, persists it when a store is configured and swaps it in.
func (s *Service) Train(ctx context.Context, records []trip.Record) (types.TrainReport, error) {
	s.mu.RLock()
	started := s.started
	s.mu.RUnlock()
	if !started {
		return types.TrainReport{}, ErrNotStarted
	}
	if !s.training.TryLock() {
		return types.TrainReport{}, ErrTrainingInProgress
	}
	defer s.training.Unlock()

	start := time.Now()
	report, ens, schema, err := s.fit(ctx, records)
	if err != nil {
		metrics.RecordErrorByComponent("service", "train")
		s.logger.Error(ctx, "training failed", logger.Error(err))
		return types.TrainReport{}, err
	}

	if s.store != nil {
		if err := s.store.SaveModel(ctx, ens); err != nil {
			return types.TrainReport{}, fmt.Errorf("save model: %w", err)
		}
		if err := s.store.SaveSchema(ctx, schema); err != nil {
			return types.TrainReport{}, fmt.Errorf("save schema: %w", err)
		}
	}

	report.Duration = time.Since(start)

	s.mu.Lock()
	s.regressor = ens
	s.schema = schema
	s.loadedAt = time.Now()
	s.lastReport = &report
	s.mu.Unlock()

	metrics.RecordTrainingRun(report.Duration, report.ValidationRMSE, report.Trees)
	metrics.UpdateModelState(true, report.Trees, schema.Len())
	s.logger.Info(ctx, "model trained",
		logger.Int("trainRows", report.TrainRows),
		logger.Int("validRows", report.ValidRows),
		logger.Int("trees", report.Trees),
		logger.Float64("trainRMSE", report.TrainRMSE),
		logger.Float64("validationRMSE", report.ValidationRMSE),
		logger.Float64("baselineRMSE", report.BaselineRMSE),
		logger.Duration("elapsed", report.Duration),
	)
	return report, nil
}

func (s *Service) fit(ctx context.Context, records []trip.Record) (types.TrainReport, *model.Ensemble, features.Schema, error) {
	report := types.TrainReport{Loaded: len(records), Dropped: map[string]int{}}
	for i, r := range records {
		if !r.HasFare {
			return report, nil, features.Schema{}, fmt.Errorf("record %d: %w", i, ErrUnlabeled)
		}
	}

	kept, dropped := s.filter.Apply(records)
	for reason, n := range dropped {
		report.Dropped[string(reason)] = n
	}
	metrics.UpdateTrainingRows("loaded", len(records))
	metrics.UpdateTrainingRows("filtered", len(kept))
	if len(dropped) > 0 {
		s.logger.Info(ctx, "filtered implausible rows",
			logger.Int("kept", len(kept)),
			logger.Any("dropped", report.Dropped),
		)
	}

	train, valid, err := dataset.Split(kept, s.validFraction, s.splitSeed)
	if err != nil {
		return report, nil, features.Schema{}, err
	}
	report.TrainRows, report.ValidRows = len(train), len(valid)
	metrics.UpdateTrainingRows("train", len(train))
	metrics.UpdateTrainingRows("valid", len(valid))

	trainFrame, err := s.featurize(ctx, train, true)
	if err != nil {
		return report, nil, features.Schema{}, fmt.Errorf("featurize train: %w", err)
	}
	validFrame, err := s.featurize(ctx, valid, true)
	if err != nil {
		return report, nil, features.Schema{}, fmt.Errorf("featurize valid: %w", err)
	}

	schema := features.Capture(trainFrame)
	report.Features = schema.Features

	yTrain, yValid := labels(train), labels(valid)
	ens, err := model.NewTrainer(s.trainerOpts...).Fit(ctx, trainFrame.Matrix(), yTrain)
	if err != nil {
		return report, nil, features.Schema{}, fmt.Errorf("fit: %w", err)
	}
	report.Trees = len(ens.Trees)

	if report.TrainRMSE, err = score(ens, trainFrame, yTrain); err != nil {
		return report, nil, features.Schema{}, err
	}
	aligned, _ := schema.Align(validFrame)
	if report.ValidationRMSE, err = score(ens, aligned, yValid); err != nil {
		return report, nil, features.Schema{}, err
	}
	baseline := make([]float64, len(yValid))
	for i := range baseline {
		baseline[i] = ens.BaseScore
	}
	if report.BaselineRMSE, err = model.RMSE(yValid, baseline); err != nil {
		return report, nil, features.Schema{}, err
	}
	return report, ens, schema, nil
}

func labels(records []trip.Record) []float64 {
	y := make([]float64, len(records))
	for i, r := range records {
		y[i] = r.Fare
	}
	return y
}

func score(r model.Regressor, f *features.Frame, y []float64) (float64, error) {
	yhat, err := r.Predict(f.Matrix())
	if err != nil {
		return 0, err
	}
	return model.RMSE(y, yhat)
}

// Schema returns the feature schema of the serving model.
func (s *Service) Schema() (features.Schema, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.regressor == nil {
		return features.Schema{}, false
	}
	return features.Schema{Features: append([]string(nil), s.schema.Features...)}, true
}

// Ready reports whether the service is started and serving a model.
func (s *Service) Ready() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.started && s.regressor != nil
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]interface{}{
		"started":     s.started,
		"workerCount": s.workerCount,
		"modelLoaded": s.regressor != nil,
		"predictions": s.predictions.Load(),
		"stages":      s.pipeline.Stages(),
	}

	if s.regressor != nil {
		stats["features"] = s.schema.Len()
		stats["trees"] = treeCount(s.regressor)
		stats["loadedAt"] = s.loadedAt.UTC().Format(time.RFC3339)
	}
	if s.lastReport != nil {
		stats["validationRMSE"] = s.lastReport.ValidationRMSE
		stats["baselineRMSE"] = s.lastReport.BaselineRMSE
		dropped := make([]string, 0, len(s.lastReport.Dropped))
		for reason := range s.lastReport.Dropped {
			dropped = append(dropped, reason)
		}
		sort.Strings(dropped)
		stats["droppedReasons"] = dropped
	}

	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)
	metrics.UpdateSystemMemoryUsage(mem.Alloc)
	metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())

	return stats
}
