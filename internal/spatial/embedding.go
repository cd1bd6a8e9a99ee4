package spatial

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Embedding maps the nodes of a boundary manifold (the domain) into the
// manifold it bounds (the range).
type Embedding interface {
	Domain() Manifold
	Range() Manifold

	// NeedsInterpolation reports whether domain nodes must be sampled through
	// the range's interpolation stencil. When false, IndexOf is exact.
	NeedsInterpolation() bool

	// PositionOf returns the range-local position of domain node k.
	PositionOf(k int) []float64

	// IndexOf returns the range node that domain node k coincides with, or -1
	// when the embedding interpolates or the node falls outside the range.
	IndexOf(k int) int
}

func component(v r3.Vec, d int) float64 {
	switch d {
	case 0:
		return v.X
	case 1:
		return v.Y
	default:
		return v.Z
	}
}

func checkDimensionMap(domain, rng Manifold, dimensionMap []int) error {
	if len(dimensionMap) != domain.Dim() {
		return fmt.Errorf("dimension map has %d entries for a %d-D domain: %w",
			len(dimensionMap), domain.Dim(), ErrDimensionMismatch)
	}
	if rng.Dim() > 3 {
		return fmt.Errorf("range has %d dimensions: %w", rng.Dim(), ErrDimensionMismatch)
	}
	seen := make(map[int]bool, len(dimensionMap))
	for d, r := range dimensionMap {
		if r < 0 || r >= rng.Dim() {
			return fmt.Errorf("domain dimension %d maps to range dimension %d of %d: %w",
				d, r, rng.Dim(), ErrDimensionMismatch)
		}
		if seen[r] {
			return fmt.Errorf("range dimension %d mapped twice: %w", r, ErrDimensionMismatch)
		}
		seen[r] = true
	}
	return nil
}

// mapPosition translates and permutes domain node k into range coordinates.
func mapPosition(domain, rng Manifold, translation r3.Vec, dimensionMap []int, k int) []float64 {
	p := make([]float64, rng.Dim())
	for r := range p {
		p[r] = component(translation, r)
	}
	local := domain.Coordinate(k)
	for d, r := range dimensionMap {
		p[r] += local[d]
	}
	return p
}

// TranslatedEmbedding places the domain at an offset that may change over
// time, such as a membrane that follows its cell. Translation points at a
// slot owned elsewhere (the cell position); every access reads it afresh.
type TranslatedEmbedding struct {
	domain       Manifold
	rng          Manifold
	translation  *r3.Vec
	dimensionMap []int
}

// NewTranslatedEmbedding creates an interpolating embedding. dimensionMap[d]
// is the range dimension that domain dimension d runs along.
func NewTranslatedEmbedding(domain, rng Manifold, translation *r3.Vec, dimensionMap []int) (*TranslatedEmbedding, error) {
	if domain == nil || rng == nil {
		return nil, fmt.Errorf("translated embedding needs both manifolds")
	}
	if translation == nil {
		return nil, fmt.Errorf("translated embedding needs a translation slot")
	}
	if err := checkDimensionMap(domain, rng, dimensionMap); err != nil {
		return nil, fmt.Errorf("translated embedding: %w", err)
	}
	return &TranslatedEmbedding{
		domain:       domain,
		rng:          rng,
		translation:  translation,
		dimensionMap: append([]int(nil), dimensionMap...),
	}, nil
}

func (e *TranslatedEmbedding) Domain() Manifold         { return e.domain }
func (e *TranslatedEmbedding) Range() Manifold          { return e.rng }
func (e *TranslatedEmbedding) NeedsInterpolation() bool { return true }
func (e *TranslatedEmbedding) IndexOf(int) int          { return -1 }

func (e *TranslatedEmbedding) PositionOf(k int) []float64 {
	return mapPosition(e.domain, e.rng, *e.translation, e.dimensionMap, k)
}

// Translation returns the current offset.
func (e *TranslatedEmbedding) Translation() r3.Vec {
	return *e.translation
}

// DirectEmbedding is a fixed translation whose domain nodes coincide with
// range nodes, so the node map is computed once.
type DirectEmbedding struct {
	domain    Manifold
	rng       Manifold
	indexMap  []int
	positions [][]float64
}

// NewDirectEmbedding precomputes the node map. Every domain node must land on
// a range node (within round-off) or outside the range; nodes outside map to
// -1.
func NewDirectEmbedding(domain, rng Manifold, translation r3.Vec, dimensionMap []int) (*DirectEmbedding, error) {
	if domain == nil || rng == nil {
		return nil, fmt.Errorf("direct embedding needs both manifolds")
	}
	if err := checkDimensionMap(domain, rng, dimensionMap); err != nil {
		return nil, fmt.Errorf("direct embedding: %w", err)
	}
	e := &DirectEmbedding{
		domain:    domain,
		rng:       rng,
		indexMap:  make([]int, domain.ArraySize()),
		positions: make([][]float64, domain.ArraySize()),
	}
	steps, nodes := rng.StepSize(), rng.NumPoints()
	for k := range e.indexMap {
		p := mapPosition(domain, rng, translation, dimensionMap, k)
		e.positions[k] = p
		idx := make([]int, len(p))
		inside := true
		for r, x := range p {
			q := x / steps[r]
			n := math.Round(q)
			if math.Abs(q-n) > boundaryTolerance {
				return nil, fmt.Errorf("domain node %d at %v falls between range nodes: %w", k, p, ErrNotGridAligned)
			}
			idx[r] = int(n)
			if idx[r] < 0 || idx[r] >= nodes[r] {
				inside = false
			}
		}
		if inside {
			e.indexMap[k] = rng.ArrayToIndex(idx)
		} else {
			e.indexMap[k] = -1
		}
	}
	return e, nil
}

func (e *DirectEmbedding) Domain() Manifold         { return e.domain }
func (e *DirectEmbedding) Range() Manifold          { return e.rng }
func (e *DirectEmbedding) NeedsInterpolation() bool { return false }
func (e *DirectEmbedding) IndexOf(k int) int        { return e.indexMap[k] }
func (e *DirectEmbedding) PositionOf(k int) []float64 {
	return e.positions[k]
}

// OneToOneEmbedding pairs two manifolds with identical node layouts, such as a
// cell's membrane and cytosol when neither has internal structure.
type OneToOneEmbedding struct {
	domain Manifold
	rng    Manifold
}

// NewOneToOneEmbedding requires both manifolds to have the same array size.
func NewOneToOneEmbedding(domain, rng Manifold) (*OneToOneEmbedding, error) {
	if domain == nil || rng == nil {
		return nil, fmt.Errorf("one-to-one embedding needs both manifolds")
	}
	if domain.ArraySize() != rng.ArraySize() {
		return nil, fmt.Errorf("one-to-one embedding of %d nodes into %d nodes: %w",
			domain.ArraySize(), rng.ArraySize(), ErrDimensionMismatch)
	}
	return &OneToOneEmbedding{domain: domain, rng: rng}, nil
}

func (e *OneToOneEmbedding) Domain() Manifold         { return e.domain }
func (e *OneToOneEmbedding) Range() Manifold          { return e.rng }
func (e *OneToOneEmbedding) NeedsInterpolation() bool { return false }
func (e *OneToOneEmbedding) IndexOf(k int) int        { return k }
func (e *OneToOneEmbedding) PositionOf(k int) []float64 {
	return e.rng.Coordinate(k)
}
