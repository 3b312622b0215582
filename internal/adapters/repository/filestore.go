package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/okian/farecast/internal/domain/features"
	"github.com/okian/farecast/internal/domain/model"
	"github.com/okian/farecast/pkg/logger"
	"github.com/okian/farecast/pkg/metrics"
)

const artifactPerm = 0o644

// FileStore keeps artifacts as JSON files in one directory. Writes go to a
// temp file that is renamed over the target, so readers never observe a
// partially written artifact.
type FileStore struct {
	dir        string
	modelFile  string
	schemaFile string
	logger     logger.Logger

	mu sync.Mutex // serializes writers
}

var _ Store = (*FileStore)(nil)

// NewFileStore creates the directory if needed and returns a store over it.
func NewFileStore(dir string, opts ...Option) (*FileStore, error) {
	if dir == "" {
		return nil, fmt.Errorf("artifact dir is empty: %w", fs.ErrInvalid)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create artifact dir: %w", err)
	}
	s := &FileStore{
		dir:        dir,
		modelFile:  DefaultModelFile,
		schemaFile: DefaultSchemaFile,
		logger:     logger.Get().Named("artifact-store"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Dir returns the store directory.
func (s *FileStore) Dir() string { return s.dir }

// ModelPath returns the path of the model file.
func (s *FileStore) ModelPath() string { return filepath.Join(s.dir, s.modelFile) }

// SchemaPath returns the path of the feature schema file.
func (s *FileStore) SchemaPath() string { return filepath.Join(s.dir, s.schemaFile) }

// SaveModel writes m as JSON.
func (s *FileStore) SaveModel(ctx context.Context, m *model.Ensemble) error {
	if m == nil {
		return ErrNilModel
	}
	start := time.Now()
	defer observe("save_model", start)

	if err := s.write(ctx, s.ModelPath(), m); err != nil {
		return err
	}
	s.logger.Info(ctx, "model saved",
		logger.String("path", s.ModelPath()),
		logger.Int("trees", len(m.Trees)),
		logger.Int("features", m.Features),
	)
	return nil
}

// LoadModel reads and validates the model file.
func (s *FileStore) LoadModel(ctx context.Context) (*model.Ensemble, error) {
	start := time.Now()
	defer observe("load_model", start)

	var m model.Ensemble
	if err := s.read(ctx, s.ModelPath(), &m); err != nil {
		return nil, err
	}
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w: %w", s.ModelPath(), ErrCorruptArtifact, err)
	}
	return &m, nil
}

// SaveSchema writes the feature schema as {"features":[...]}.
func (s *FileStore) SaveSchema(ctx context.Context, schema features.Schema) error {
	start := time.Now()
	defer observe("save_schema", start)

	if err := s.write(ctx, s.SchemaPath(), schema); err != nil {
		return err
	}
	s.logger.Info(ctx, "feature schema saved",
		logger.String("path", s.SchemaPath()),
		logger.Int("features", schema.Len()),
	)
	return nil
}

// LoadSchema reads the feature schema file. An empty schema is corrupt.
func (s *FileStore) LoadSchema(ctx context.Context) (features.Schema, error) {
	start := time.Now()
	defer observe("load_schema", start)

	var schema features.Schema
	if err := s.read(ctx, s.SchemaPath(), &schema); err != nil {
		return features.Schema{}, err
	}
	if schema.Len() == 0 {
		return features.Schema{}, fmt.Errorf("%s has no features: %w", s.SchemaPath(), ErrCorruptArtifact)
	}
	return schema, nil
}

func (s *FileStore) write(ctx context.Context, path string, v any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", filepath.Base(path), err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tmp, err := os.CreateTemp(s.dir, "."+filepath.Base(path)+"-*")
	if err != nil {
		return fmt.Errorf("create temp for %s: %w", filepath.Base(path), err)
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("write %s: %w", tmpName, err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("sync %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("close %s: %w", tmpName, err)
	}
	if err := os.Chmod(tmpName, artifactPerm); err != nil {
		cleanup()
		return fmt.Errorf("chmod %s: %w", tmpName, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		cleanup()
		return fmt.Errorf("publish %s: %w", path, err)
	}
	return nil
}

func (s *FileStore) read(ctx context.Context, path string, v any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%s: %w", path, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%s: %w: %w", path, ErrCorruptArtifact, err)
	}
	return nil
}

func observe(op string, start time.Time) {
	metrics.RecordArtifactLatency(op, float64(time.Since(start).Microseconds())/1000)
}
