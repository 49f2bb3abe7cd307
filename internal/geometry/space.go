// Package geometry classifies relations between category vectors.
//
// Each category is a fixed numeric vector. Distances are cosine distances
// between unit-normalised copies; the raw magnitude is kept because the
// inclusion rule compares how "large" two concepts are.
package geometry

import (
	"errors"
	"fmt"
	"math"

	"github.com/ppiankov/dhatu/internal/model"
)

// ErrUnknownCategory is returned for a category with no vector
var ErrUnknownCategory = errors.New("unknown category")

// magnitudeTolerance decides when two raw magnitudes count as equal
const magnitudeTolerance = 1e-9

// Vector is a category vector with its magnitude and unit direction
type Vector struct {
	Category  string
	Raw       []float64
	Unit      []float64
	Magnitude float64
}

// Space holds the immutable category vectors and classification thresholds
type Space struct {
	vectors map[string]Vector
	order   []string
	dim     int
	cfg     model.RelationConfig
}

// NewSpace validates and normalises the vectors.
// All vectors must share one dimension and have non-zero magnitude.
func NewSpace(vectors []model.CategoryVector, cfg model.RelationConfig) (*Space, error) {
	if len(vectors) == 0 {
		return nil, &model.ConfigError{Source: "vectors", Err: errors.New("no category vectors")}
	}

	space := &Space{
		vectors: make(map[string]Vector, len(vectors)),
		order:   make([]string, 0, len(vectors)),
		dim:     len(vectors[0].Components),
		cfg:     cfg,
	}

	for _, v := range vectors {
		if _, dup := space.vectors[v.Category]; dup {
			return nil, &model.ConfigError{Source: "vectors", Field: v.Category, Err: errors.New("duplicate vector")}
		}
		if len(v.Components) != space.dim {
			return nil, &model.ConfigError{Source: "vectors", Field: v.Category,
				Err: fmt.Errorf("dimension %d, expected %d", len(v.Components), space.dim)}
		}
		if space.dim == 0 {
			return nil, &model.ConfigError{Source: "vectors", Field: v.Category, Err: errors.New("empty vector")}
		}

		mag := magnitude(v.Components)
		if mag == 0 || math.IsNaN(mag) || math.IsInf(mag, 0) {
			return nil, &model.ConfigError{Source: "vectors", Field: v.Category, Err: fmt.Errorf("invalid magnitude %v", mag)}
		}

		raw := make([]float64, len(v.Components))
		unit := make([]float64, len(v.Components))
		for i, c := range v.Components {
			raw[i] = c
			unit[i] = c / mag
		}

		space.vectors[v.Category] = Vector{Category: v.Category, Raw: raw, Unit: unit, Magnitude: mag}
		space.order = append(space.order, v.Category)
	}

	return space, nil
}

// Dimension returns the vector dimension
func (s *Space) Dimension() int {
	return s.dim
}

// Categories returns the categories in declaration order
func (s *Space) Categories() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// Classify returns the relation between two categories.
// Rules apply in order: identity, inclusion a⊂b, inclusion b⊂a, exclusion,
// equality, intersection.
func (s *Space) Classify(a, b string) (model.Relation, error) {
	va, vb, err := s.lookup(a, b)
	if err != nil {
		return model.Relation{}, err
	}

	distance := cosineDistance(va.Unit, vb.Unit)
	cfg := s.cfg

	// Same concept: same category, or indistinguishable direction and size
	if a == b || (distance < cfg.EqualityThreshold && math.Abs(va.Magnitude-vb.Magnitude) <= magnitudeTolerance) {
		return model.Relation{Kind: model.RelationEquality, A: a, B: b, Distance: distance}, nil
	}

	if distance < cfg.InclusionThreshold {
		if va.Magnitude <= vb.Magnitude*cfg.MagnitudeSlack {
			return model.Relation{Kind: model.RelationInclusion, A: a, B: b, Distance: distance}, nil
		}
		if vb.Magnitude <= va.Magnitude*cfg.MagnitudeSlack {
			return model.Relation{Kind: model.RelationInclusion, A: b, B: a, Distance: distance}, nil
		}
	}

	if distance > cfg.ExclusionThreshold {
		return model.Relation{Kind: model.RelationExclusion, A: a, B: b, Distance: distance}, nil
	}

	if distance < cfg.EqualityThreshold {
		return model.Relation{Kind: model.RelationEquality, A: a, B: b, Distance: distance}, nil
	}

	return model.Relation{
		Kind:     model.RelationIntersection,
		A:        a,
		B:        b,
		Distance: distance,
		Strength: cfg.IntersectionStrength,
	}, nil
}

// Pairwise classifies every unordered pair of the given categories, in
// order. An empty list means all categories. Every kind has a key.
func (s *Space) Pairwise(categories []string) (map[model.RelationKind][]model.Relation, error) {
	if len(categories) == 0 {
		categories = s.order
	}

	for _, c := range categories {
		if _, ok := s.vectors[c]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownCategory, c)
		}
	}

	out := make(map[model.RelationKind][]model.Relation, 4)
	for _, kind := range model.RelationKinds() {
		out[kind] = []model.Relation{}
	}

	for i := 0; i < len(categories); i++ {
		for j := i + 1; j < len(categories); j++ {
			rel, err := s.Classify(categories[i], categories[j])
			if err != nil {
				return nil, err
			}
			out[rel.Kind] = append(out[rel.Kind], rel)
		}
	}

	return out, nil
}

func (s *Space) lookup(a, b string) (Vector, Vector, error) {
	va, ok := s.vectors[a]
	if !ok {
		return Vector{}, Vector{}, fmt.Errorf("%w: %s", ErrUnknownCategory, a)
	}
	vb, ok := s.vectors[b]
	if !ok {
		return Vector{}, Vector{}, fmt.Errorf("%w: %s", ErrUnknownCategory, b)
	}
	return va, vb, nil
}

func magnitude(v []float64) float64 {
	var sum float64
	for _, c := range v {
		sum += c * c
	}
	return math.Sqrt(sum)
}

// cosineDistance expects unit vectors of equal length
func cosineDistance(a, b []float64) float64 {
	var dot float64
	for i := range a {
		dot += a[i] * b[i]
	}
	d := 1 - dot
	if d < 0 {
		return 0
	}
	if d > 2 {
		return 2
	}
	return d
}
