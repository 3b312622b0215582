package model

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
)

// Default boosting configuration constants.
const (
	defaultEstimators      = 500
	defaultLearningRate    = 0.1
	defaultMaxDepth        = 6
	defaultMinChildSamples = 10
	defaultSubsample       = 0.8
	defaultMinSplitGain    = 0.5
	defaultSeed            = 42
)

// Option applies a configuration option to the Trainer.
type Option func(*Trainer)

// WithEstimators sets the number of boosting rounds.
func WithEstimators(n int) Option {
	return func(t *Trainer) {
		if n > 0 {
			t.estimators = n
		}
	}
}

// WithLearningRate sets the shrinkage applied to each tree.
func WithLearningRate(rate float64) Option {
	return func(t *Trainer) {
		if rate > 0 && rate <= 1 {
			t.learningRate = rate
		}
	}
}

// WithMaxDepth limits tree depth.
func WithMaxDepth(depth int) Option {
	return func(t *Trainer) {
		if depth > 0 {
			t.maxDepth = depth
		}
	}
}

// WithMinChildSamples sets the minimum rows per leaf.
func WithMinChildSamples(n int) Option {
	return func(t *Trainer) {
		if n > 0 {
			t.minChildSamples = n
		}
	}
}

// WithSubsample sets the fraction of rows drawn for each tree.
func WithSubsample(fraction float64) Option {
	return func(t *Trainer) {
		if fraction > 0 && fraction <= 1 {
			t.subsample = fraction
		}
	}
}

// WithMinSplitGain sets the minimum squared-error reduction for a split.
func WithMinSplitGain(gain float64) Option {
	return func(t *Trainer) {
		if gain >= 0 {
			t.minSplitGain = gain
		}
	}
}

// WithSeed sets the row-sampling seed.
func WithSeed(seed int64) Option {
	return func(t *Trainer) {
		t.seed = seed
	}
}

// Trainer fits gradient-boosted regression trees with squared-error loss.
type Trainer struct {
	estimators      int
	learningRate    float64
	maxDepth        int
	minChildSamples int
	subsample       float64
	minSplitGain    float64
	seed            int64
}

// NewTrainer creates a trainer with configuration options.
func NewTrainer(opts ...Option) *Trainer {
	t := &Trainer{
		estimators:      defaultEstimators,
		learningRate:    defaultLearningRate,
		maxDepth:        defaultMaxDepth,
		minChildSamples: defaultMinChildSamples,
		subsample:       defaultSubsample,
		minSplitGain:    defaultMinSplitGain,
		seed:            defaultSeed,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Fit trains an ensemble on X (row-major) and y. Cancellation is checked
// between boosting rounds.
func (t *Trainer) Fit(ctx context.Context, X [][]float64, y []float64) (*Ensemble, error) {
	if len(X) == 0 {
		return nil, ErrEmptyDataset
	}
	if len(X) != len(y) {
		return nil, fmt.Errorf("%d rows for %d labels: %w", len(X), len(y), ErrFeatureCount)
	}
	width := len(X[0])
	if width == 0 {
		return nil, fmt.Errorf("rows have no features: %w", ErrFeatureCount)
	}
	for i, row := range X {
		if len(row) != width {
			return nil, fmt.Errorf("row %d has %d features, want %d: %w", i, len(row), width, ErrFeatureCount)
		}
	}

	n := len(X)
	var base float64
	for _, v := range y {
		base += v
	}
	base /= float64(n)

	ens := &Ensemble{Features: width, BaseScore: base, LearningRate: t.learningRate}
	pred := make([]float64, n)
	for i := range pred {
		pred[i] = base
	}
	residual := make([]float64, n)
	rng := rand.New(rand.NewSource(t.seed)) //nolint:gosec // deterministic seed for reproducible training
	perm := make([]int, n)
	sampleSize := int(float64(n) * t.subsample)
	if sampleSize < 1 {
		sampleSize = 1
	}

	for round := 0; round < t.estimators; round++ {
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("fit cancelled after %d trees: %w", round, ctx.Err())
		default:
		}
		for i := range residual {
			residual[i] = y[i] - pred[i]
		}
		for i := range perm {
			perm[i] = i
		}
		if sampleSize < n {
			rng.Shuffle(n, func(i, j int) { perm[i], perm[j] = perm[j], perm[i] })
		}
		idx := append([]int(nil), perm[:sampleSize]...)

		b := &treeBuilder{t: t, X: X, r: residual, width: width}
		b.grow(idx, 0)
		tree := Tree{Nodes: b.nodes}
		for i, row := range X {
			pred[i] += t.learningRate * tree.Eval(row)
		}
		ens.Trees = append(ens.Trees, tree)
	}
	return ens, nil
}

type treeBuilder struct {
	t     *Trainer
	X     [][]float64
	r     []float64
	width int
	nodes []Node
}

type split struct {
	feature   int
	threshold float64
	gain      float64
}

// grow appends the subtree for idx and returns its root index.
func (b *treeBuilder) grow(idx []int, depth int) int {
	var sum float64
	for _, i := range idx {
		sum += b.r[i]
	}
	at := len(b.nodes)
	b.nodes = append(b.nodes, Node{Feature: -1, Value: sum / float64(len(idx))})

	if depth >= b.t.maxDepth || len(idx) < 2*b.t.minChildSamples {
		return at
	}
	best, ok := b.bestSplit(idx, sum)
	if !ok || best.gain <= b.t.minSplitGain {
		return at
	}

	left := make([]int, 0, len(idx))
	right := make([]int, 0, len(idx))
	for _, i := range idx {
		if b.X[i][best.feature] <= best.threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}
	l := b.grow(left, depth+1)
	r := b.grow(right, depth+1)
	b.nodes[at] = Node{Feature: best.feature, Threshold: best.threshold, Left: l, Right: r}
	return at
}

// bestSplit scans every feature for the split with the largest reduction
// in squared error.
func (b *treeBuilder) bestSplit(idx []int, total float64) (split, bool) {
	n := len(idx)
	minChild := b.t.minChildSamples
	parent := total * total / float64(n)
	best := split{feature: -1}
	sorted := make([]int, n)

	for f := 0; f < b.width; f++ {
		copy(sorted, idx)
		sort.SliceStable(sorted, func(i, j int) bool {
			return b.X[sorted[i]][f] < b.X[sorted[j]][f]
		})
		var leftSum float64
		for k := 0; k < n-1; k++ {
			leftSum += b.r[sorted[k]]
			nl := k + 1
			nr := n - nl
			if nl < minChild {
				continue
			}
			if nr < minChild {
				break
			}
			lo := b.X[sorted[k]][f]
			hi := b.X[sorted[k+1]][f]
			if lo == hi {
				continue
			}
			rightSum := total - leftSum
			gain := leftSum*leftSum/float64(nl) + rightSum*rightSum/float64(nr) - parent
			if gain > best.gain {
				th := lo + (hi-lo)/2
				if th >= hi {
					th = lo
				}
				best = split{feature: f, threshold: th, gain: gain}
			}
		}
	}
	return best, best.feature >= 0
}
