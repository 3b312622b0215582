package features

import (
	"fmt"

	"github.com/okian/farecast/internal/domain/trip"
)

// Stage is a pure transformation that appends the columns it produces.
// Requires and Produces are declared up front so a Pipeline can reject a
// stage ordering that would read a column before it exists.
type Stage interface {
	Name() string
	Requires() []string
	Produces() []string
	Apply(f *Frame) (*Frame, error)
}

// Pipeline applies stages in a fixed order and projects the result onto the
// model feature columns.
type Pipeline struct {
	stages  []Stage
	columns []string
}

// NewPipeline validates the stage order and returns a pipeline. Every
// required column must be a base column or produced by an earlier stage,
// and no column may be produced twice.
func NewPipeline(stages ...Stage) (*Pipeline, error) {
	if len(stages) == 0 {
		return nil, ErrEmptyPipeline
	}
	available := make(map[string]bool)
	for _, c := range BaseColumns() {
		available[c] = true
	}
	columns := []string{ColPassengerCount}
	for _, s := range stages {
		for _, req := range s.Requires() {
			if !available[req] {
				return nil, &StageError{Stage: s.Name(), Column: req, Err: ErrMissingColumn}
			}
		}
		for _, out := range s.Produces() {
			if available[out] {
				return nil, &StageError{Stage: s.Name(), Column: out, Err: ErrDuplicateColumn}
			}
			available[out] = true
			columns = append(columns, out)
		}
	}
	return &Pipeline{stages: stages, columns: columns}, nil
}

// Default returns the temporal, spatial, interaction pipeline.
func Default() *Pipeline {
	p, err := NewPipeline(TemporalStage{}, SpatialStage{}, InteractionStage{})
	if err != nil {
		panic(fmt.Sprintf("default feature pipeline: %v", err))
	}
	return p
}

// Columns returns the canonical feature columns in output order.
func (p *Pipeline) Columns() []string {
	out := make([]string, len(p.columns))
	copy(out, p.columns)
	return out
}

// Stages returns the stage names in application order.
func (p *Pipeline) Stages() []string {
	out := make([]string, len(p.stages))
	for i, s := range p.stages {
		out[i] = s.Name()
	}
	return out
}

// Apply featurizes a batch of records.
func (p *Pipeline) Apply(records []trip.Record) (*Frame, error) {
	f := NewFrame(records)
	for _, s := range p.stages {
		next, err := s.Apply(f)
		if err != nil {
			return nil, fmt.Errorf("apply features: %w", err)
		}
		f = next
	}
	return f.Select(p.columns...)
}

// ApplyOne featurizes a single record.
func (p *Pipeline) ApplyOne(r trip.Record) (Vector, error) {
	f, err := p.Apply([]trip.Record{r})
	if err != nil {
		return nil, err
	}
	return f.Vector(0), nil
}
