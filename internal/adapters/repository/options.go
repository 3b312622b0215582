package repository

import "github.com/okian/farecast/pkg/logger"

// Default artifact file names.
const (
	DefaultModelFile  = "model.json"
	DefaultSchemaFile = "features.json"
)

// Option applies a configuration option to the FileStore.
type Option func(*FileStore)

// WithModelFile sets the model file name inside the store directory.
func WithModelFile(name string) Option {
	return func(s *FileStore) {
		if name != "" {
			s.modelFile = name
		}
	}
}

// WithSchemaFile sets the schema file name inside the store directory.
func WithSchemaFile(name string) Option {
	return func(s *FileStore) {
		if name != "" {
			s.schemaFile = name
		}
	}
}

// WithLogger sets a custom logger for the store.
func WithLogger(l logger.Logger) Option {
	return func(s *FileStore) {
		if l != nil {
			s.logger = l
		}
	}
}
