// Package matcher resolves query embeddings against a labeled reference profile.
package matcher

import (
	"errors"
	"fmt"
	"math"

	"github.com/kozaktomas/facescan/internal/config"
	"github.com/kozaktomas/facescan/internal/database"
	"github.com/kozaktomas/facescan/internal/face"
	"github.com/kozaktomas/facescan/internal/profile"
)

// Matching strategies.
const (
	StrategyMean    = "mean"    // mean distance over a label's references
	StrategyNearest = "nearest" // closest single reference
)

var (
	ErrDimensionMismatch = errors.New("embedding dimension does not match profile")
	ErrUnknownStrategy   = errors.New("unknown match strategy")
	ErrUnknownMetric     = errors.New("unknown distance metric")
)

// Options configures a Matcher.
type Options struct {
	Threshold         float64
	Metric            string
	Strategy          string
	HNSWMinReferences int // 0 disables the index; only the euclidean nearest strategy uses it
}

// DefaultOptions returns the face-api compatible defaults.
func DefaultOptions() Options {
	return Options{
		Threshold:         0.6,
		Metric:            database.MetricEuclidean,
		Strategy:          StrategyMean,
		HNSWMinReferences: 256,
	}
}

// OptionsFromConfig maps the match section of the configuration.
func OptionsFromConfig(cfg config.MatchConfig) Options {
	return Options{
		Threshold:         cfg.Threshold,
		Metric:            cfg.Metric,
		Strategy:          cfg.Strategy,
		HNSWMinReferences: cfg.HNSWMinReferences,
	}
}

// Matcher holds an immutable reference set. It is safe for concurrent use.
type Matcher struct {
	opts     Options
	distance database.DistanceFunc
	labels   []string // sorted, labels without references are dropped
	refs     map[string][]face.Embedding
	count    int
	dim      int
	index    *database.ReferenceIndex // nil unless nearest strategy over a large profile
}

// New builds a matcher from a profile. The profile must not be modified afterwards.
func New(p face.Profile, opts Options) (*Matcher, error) {
	if opts.Strategy == "" {
		opts.Strategy = StrategyMean
	}
	if opts.Metric == "" {
		opts.Metric = database.MetricEuclidean
	}
	if opts.Strategy != StrategyMean && opts.Strategy != StrategyNearest {
		return nil, fmt.Errorf("%w: %s", ErrUnknownStrategy, opts.Strategy)
	}
	if opts.Metric != database.MetricEuclidean && opts.Metric != database.MetricCosine {
		return nil, fmt.Errorf("%w: %s", ErrUnknownMetric, opts.Metric)
	}

	dim, err := profile.Validate(p)
	if err != nil {
		return nil, fmt.Errorf("invalid profile: %w", err)
	}

	m := &Matcher{
		opts:     opts,
		distance: database.Metric(opts.Metric),
		refs:     make(map[string][]face.Embedding, len(p)),
		dim:      dim,
	}
	for _, label := range profile.Labels(p) {
		if len(p[label]) == 0 {
			continue
		}
		m.labels = append(m.labels, label)
		m.refs[label] = p[label]
		m.count += len(p[label])
	}

	if opts.Strategy == StrategyNearest && opts.Metric == database.MetricEuclidean &&
		opts.HNSWMinReferences > 0 && m.count >= opts.HNSWMinReferences {
		idx := database.NewReferenceIndex(opts.Metric)
		if err := idx.Build(profile.ToReferences(p, "")); err != nil {
			return nil, fmt.Errorf("build reference index: %w", err)
		}
		m.index = idx
	}

	return m, nil
}

// Match returns the best label for the embedding, or the unknown sentinel when
// the best distance is not strictly below the threshold.
func (m *Matcher) Match(e face.Embedding) (face.MatchResult, error) {
	if m.count == 0 {
		return face.Unknown(math.Inf(1)), nil
	}
	if len(e) != m.dim {
		return face.MatchResult{}, fmt.Errorf("%w: got %d, expected %d", ErrDimensionMismatch, len(e), m.dim)
	}

	var label string
	var dist float64
	switch {
	case m.opts.Strategy == StrategyMean:
		label, dist = m.bestMean(e)
	case m.Indexed():
		var err error
		label, dist, err = m.bestIndexed(e)
		if err != nil {
			return face.MatchResult{}, err
		}
	default:
		label, dist = m.bestNearest(e)
	}

	if dist < m.opts.Threshold {
		return face.MatchResult{Label: label, Distance: dist}, nil
	}
	return face.Unknown(dist), nil
}

// MatchAll matches each observation's embedding; the result is index-aligned.
func (m *Matcher) MatchAll(obs []face.Observation) ([]face.MatchResult, error) {
	out := make([]face.MatchResult, len(obs))
	for i, o := range obs {
		r, err := m.Match(o.Embedding)
		if err != nil {
			return nil, fmt.Errorf("face %d: %w", i, err)
		}
		out[i] = r
	}
	return out, nil
}

// bestMean walks labels in sorted order; strict comparison keeps the smaller label on ties.
func (m *Matcher) bestMean(e face.Embedding) (string, float64) {
	bestLabel, best := "", math.Inf(1)
	for _, label := range m.labels {
		refs := m.refs[label]
		var sum float64
		for _, r := range refs {
			sum += m.distance(e, r)
		}
		if d := sum / float64(len(refs)); d < best {
			bestLabel, best = label, d
		}
	}
	return bestLabel, best
}

func (m *Matcher) bestNearest(e face.Embedding) (string, float64) {
	bestLabel, best := "", math.Inf(1)
	for _, label := range m.labels {
		for _, r := range m.refs[label] {
			if d := m.distance(e, r); d < best {
				bestLabel, best = label, d
			}
		}
	}
	return bestLabel, best
}

// bestIndexed seeds the search with the closest graph candidate, then scans
// every reference with that distance as an early-exit bound. The graph is
// approximate, so the scan is what makes the result exact.
func (m *Matcher) bestIndexed(e face.Embedding) (string, float64, error) {
	k := min(m.index.Count(), database.HNSWSearchK)
	refs, distances, err := m.index.Search(e, k)
	if err != nil {
		return "", 0, fmt.Errorf("search reference index: %w", err)
	}

	bestLabel, best := "", math.Inf(1)
	for i, ref := range refs {
		if d := distances[i]; d < best || (d == best && ref.Label < bestLabel) {
			bestLabel, best = ref.Label, d
		}
	}

	for _, label := range m.labels {
		for _, r := range m.refs[label] {
			d, ok := database.EuclideanDistanceWithin(e, r, best)
			if ok && (d < best || (d == best && label < bestLabel)) {
				bestLabel, best = label, d
			}
		}
	}
	return bestLabel, best, nil
}

// Dim returns the profile embedding dimension, 0 for an empty profile.
func (m *Matcher) Dim() int { return m.dim }

// Labels returns the known labels in sorted order.
func (m *Matcher) Labels() []string { return append([]string(nil), m.labels...) }

// References returns the total number of reference embeddings.
func (m *Matcher) References() int { return m.count }

// Indexed reports whether nearest lookups go through the HNSW index.
func (m *Matcher) Indexed() bool { return m.index != nil && !m.index.IsEmpty() }

// Options returns the effective matcher options.
func (m *Matcher) Options() Options { return m.opts }
