package service

import (
	"github.com/okian/farecast/internal/adapters/repository"
	"github.com/okian/farecast/internal/config"
	"github.com/okian/farecast/internal/domain/model"
)

// OptionsFromConfig translates process configuration into service options.
func OptionsFromConfig(cfg *config.Config) []Option {
	return []Option{
		WithWorkerCount(cfg.WorkerCount),
		WithValidation(cfg.ValidFraction, cfg.SplitSeed),
		WithTrainerOptions(
			model.WithEstimators(cfg.Estimators),
			model.WithLearningRate(cfg.LearningRate),
			model.WithMaxDepth(cfg.MaxDepth),
			model.WithMinChildSamples(cfg.MinChildSamples),
			model.WithSubsample(cfg.Subsample),
			model.WithMinSplitGain(cfg.MinSplitGain),
			model.WithSeed(cfg.ModelSeed),
		),
	}
}

// StoreFromConfig opens the artifact store named by the configuration.
func StoreFromConfig(cfg *config.Config) (*repository.FileStore, error) {
	return repository.NewFileStore(cfg.ArtifactDir,
		repository.WithModelFile(cfg.ModelFile),
		repository.WithSchemaFile(cfg.SchemaFile),
	)
}
