// Package repository persists the trained model and its feature schema.
package repository

import (
	"context"

	"github.com/okian/farecast/internal/domain/features"
	"github.com/okian/farecast/internal/domain/model"
)

// Store provides read/write access to training artifacts.
type Store interface {
	// SaveModel persists the ensemble, replacing any previous one.
	SaveModel(ctx context.Context, m *model.Ensemble) error
	// LoadModel returns the persisted ensemble.
	// Returns ErrNotFound if nothing was saved yet.
	LoadModel(ctx context.Context) (*model.Ensemble, error)

	// SaveSchema persists the feature schema the model was trained on.
	SaveSchema(ctx context.Context, s features.Schema) error
	// LoadSchema returns the persisted schema.
	// Returns ErrNotFound if nothing was saved yet.
	LoadSchema(ctx context.Context) (features.Schema, error)
}
