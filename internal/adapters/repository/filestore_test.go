package repository

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/okian/farecast/internal/domain/features"
	"github.com/okian/farecast/internal/domain/model"
	"github.com/okian/farecast/pkg/logger"
)

func TestMain(m *testing.M) {
	if err := logger.InitWithWriter(os.Stderr); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

func stump() *model.Ensemble {
	return &model.Ensemble{
		Features:     2,
		BaseScore:    11.3,
		LearningRate: 0.1,
		Trees: []model.Tree{{Nodes: []model.Node{
			{Feature: 1, Threshold: 5, Left: 1, Right: 2},
			{Feature: -1, Value: -4},
			{Feature: -1, Value: 9},
		}}},
	}
}

func TestFileStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	store, err := NewFileStore(filepath.Join(t.TempDir(), "artifacts"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := stump()
	if err := store.SaveModel(ctx, want); err != nil {
		t.Fatalf("save model: %v", err)
	}
	got, err := store.LoadModel(ctx)
	if err != nil {
		t.Fatalf("load model: %v", err)
	}
	if got.Features != want.Features || got.BaseScore != want.BaseScore || len(got.Trees) != 1 {
		t.Errorf("model round trip mismatch: got %+v", got)
	}
	row := []float64{0, 7}
	if got.PredictRow(row) != want.PredictRow(row) {
		t.Errorf("prediction changed after round trip: %v vs %v", got.PredictRow(row), want.PredictRow(row))
	}

	schema := features.Schema{Features: []string{"passenger_count", "hour"}}
	if err := store.SaveSchema(ctx, schema); err != nil {
		t.Fatalf("save schema: %v", err)
	}
	loaded, err := store.LoadSchema(ctx)
	if err != nil {
		t.Fatalf("load schema: %v", err)
	}
	if strings.Join(loaded.Features, ",") != "passenger_count,hour" {
		t.Errorf("schema round trip mismatch: %v", loaded.Features)
	}

	raw, err := os.ReadFile(store.SchemaPath())
	if err != nil {
		t.Fatalf("read schema file: %v", err)
	}
	if !strings.Contains(string(raw), `"features"`) {
		t.Errorf("schema file lacks features key: %s", raw)
	}

	entries, err := os.ReadDir(store.Dir())
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	if len(entries) != 2 {
		t.Errorf("expected only the two artifacts, found %d entries", len(entries))
	}
}

func TestFileStore_Overwrite(t *testing.T) {
	ctx := context.Background()
	store, err := NewFileStore(t.TempDir(), WithModelFile("fare.json"), WithSchemaFile("cols.json"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if filepath.Base(store.ModelPath()) != "fare.json" || filepath.Base(store.SchemaPath()) != "cols.json" {
		t.Fatalf("file options not applied: %s %s", store.ModelPath(), store.SchemaPath())
	}

	first := stump()
	if err := store.SaveModel(ctx, first); err != nil {
		t.Fatalf("save: %v", err)
	}
	second := stump()
	second.BaseScore = 20
	if err := store.SaveModel(ctx, second); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := store.LoadModel(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.BaseScore != 20 {
		t.Errorf("expected latest model, got base score %v", got.BaseScore)
	}
}

func TestFileStore_Errors(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	store, err := NewFileStore(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	tests := []struct {
		name    string
		prepare func()
		load    func() error
		want    error
	}{
		{
			name:    "missing model",
			prepare: func() {},
			load:    func() error { _, err := store.LoadModel(ctx); return err },
			want:    ErrNotFound,
		},
		{
			name:    "missing schema",
			prepare: func() {},
			load:    func() error { _, err := store.LoadSchema(ctx); return err },
			want:    ErrNotFound,
		},
		{
			name: "garbage model",
			prepare: func() {
				_ = os.WriteFile(store.ModelPath(), []byte("{not json"), 0o600)
			},
			load: func() error { _, err := store.LoadModel(ctx); return err },
			want: ErrCorruptArtifact,
		},
		{
			name: "structurally invalid model",
			prepare: func() {
				_ = os.WriteFile(store.ModelPath(), []byte(`{"num_features":0,"trees":[]}`), 0o600)
			},
			load: func() error { _, err := store.LoadModel(ctx); return err },
			want: model.ErrInvalidModel,
		},
		{
			name: "empty schema",
			prepare: func() {
				_ = os.WriteFile(store.SchemaPath(), []byte(`{"features":[]}`), 0o600)
			},
			load: func() error { _, err := store.LoadSchema(ctx); return err },
			want: ErrCorruptArtifact,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.prepare()
			if err := tt.load(); !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}

	if err := store.SaveModel(ctx, nil); !errors.Is(err, ErrNilModel) {
		t.Errorf("expected ErrNilModel, got %v", err)
	}

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	if err := store.SaveSchema(cancelled, features.Schema{Features: []string{"hour"}}); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}

	if _, err := NewFileStore(""); err == nil {
		t.Error("expected error for empty dir")
	}
}
