package service

import (
	"github.com/okian/farecast/internal/adapters/dataset"
	"github.com/okian/farecast/internal/adapters/repository"
	"github.com/okian/farecast/internal/domain/features"
	"github.com/okian/farecast/internal/domain/model"
	"github.com/okian/farecast/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithWorkerCount sets the number of featurization workers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithStore sets where models are loaded from and saved to.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		s.store = store
	}
}

// WithPipeline replaces the default feature pipeline.
func WithPipeline(p *features.Pipeline) Option {
	return func(s *Service) {
		if p != nil {
			s.pipeline = p
		}
	}
}

// WithFilter replaces the default training data-quality filter.
func WithFilter(f *dataset.Filter) Option {
	return func(s *Service) {
		if f != nil {
			s.filter = f
		}
	}
}

// WithTrainerOptions sets the hyperparameters used by Train.
func WithTrainerOptions(opts ...model.Option) Option {
	return func(s *Service) {
		s.trainerOpts = append(s.trainerOpts, opts...)
	}
}

// WithValidation sets the held-out fraction and shuffle seed used by Train.
func WithValidation(fraction float64, seed int64) Option {
	return func(s *Service) {
		if fraction > 0 && fraction < 1 {
			s.validFraction = fraction
		}
		s.splitSeed = seed
	}
}

// WithGeohashPrecision sets the length of pickup/dropoff cells.
func WithGeohashPrecision(chars uint) Option {
	return func(s *Service) {
		if chars > 0 && chars <= 12 {
			s.geohashPrecision = chars
		}
	}
}

// WithModel serves a preloaded regressor and its schema. Start will not
// consult the store when a model is already set.
func WithModel(r model.Regressor, schema features.Schema) Option {
	return func(s *Service) {
		s.regressor = r
		s.schema = schema
	}
}
