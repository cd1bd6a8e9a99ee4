// Package spatial implements the discretized manifolds molecular fields live on,
// the embeddings that relate a boundary manifold to the manifold it bounds, and
// the scalar/vector field algebra built over them.
package spatial

import (
	"fmt"
	"sort"
)

// StencilEntry is one (node, coefficient) term of an interpolation, gradient or
// Laplacian stencil.
type StencilEntry struct {
	Index  int
	Weight float64
}

// Manifold is a discretized spatial domain.
//
// Point-like manifolds (Point, TinySphere, TinyBall) have Dim() == 0 and
// ArraySize() == 1. Grid manifolds have ArraySize() equal to the product of
// their NumPoints().
type Manifold interface {
	ID() int
	Dim() int
	ArraySize() int
	NumPoints() []int
	Extents() []float64
	StepSize() []float64

	// Coordinate returns the position of node i in local coordinates.
	Coordinate(i int) []float64

	// InterpolationStencil returns the nodes and weights that interpolate a
	// field at point, or nil when the point lies outside the manifold.
	InterpolationStencil(point []float64) []StencilEntry

	// GradientStencil returns one stencil per dimension for the gradient at
	// node i, or nil when i is not a node of this manifold.
	GradientStencil(i int) [][]StencilEntry

	// LaplacianStencil returns the precomputed Laplacian stencil of node i
	// with reflecting boundaries.
	LaplacianStencil(i int) []StencilEntry

	// VoxelVolume is the measure attached to a single node: a volume for 3-D
	// grids and balls, an area for 2-D grids and spheres.
	VoxelVolume() float64

	Integrate(f *ScalarField) float64

	// LocalToArray maps a local point to the array indices of the voxel
	// containing it. ok is false when the point lies outside.
	LocalToArray(point []float64) (idx []int, ok bool)
	ArrayToIndex(idx []int) int
	IndexToArray(i int) []int

	Boundaries() map[int]Embedding
	Boundary(id int) (Embedding, bool)
	AddBoundary(e Embedding) error
	RemoveBoundary(id int)
}

// IsDegenerate reports whether m has a single node and therefore no internal
// spatial structure to diffuse over.
func IsDegenerate(m Manifold) bool {
	return m.ArraySize() == 1
}

// Same reports whether a and b are the same manifold.
func Same(a, b Manifold) bool {
	if a == nil || b == nil {
		return false
	}
	return a.ID() == b.ID()
}

// base carries the identity and boundary registry every manifold shares.
type base struct {
	id         int
	boundaries map[int]Embedding
}

func newBase(id int) base {
	return base{id: id, boundaries: make(map[int]Embedding)}
}

func (b *base) ID() int { return b.id }

// Boundaries returns the registered embeddings keyed by boundary manifold id.
func (b *base) Boundaries() map[int]Embedding { return b.boundaries }

func (b *base) Boundary(id int) (Embedding, bool) {
	e, ok := b.boundaries[id]
	return e, ok
}

// AddBoundary registers e, whose range must be this manifold.
func (b *base) AddBoundary(e Embedding) error {
	if e == nil {
		return fmt.Errorf("boundary embedding cannot be nil")
	}
	if e.Range().ID() != b.id {
		return fmt.Errorf("boundary %d embeds into manifold %d, not %d: %w",
			e.Domain().ID(), e.Range().ID(), b.id, ErrManifoldMismatch)
	}
	b.boundaries[e.Domain().ID()] = e
	return nil
}

func (b *base) RemoveBoundary(id int) {
	delete(b.boundaries, id)
}

// BoundaryIDs returns the boundary ids of m in ascending order, so that
// iteration over boundaries is deterministic.
func BoundaryIDs(m Manifold) []int {
	ids := make([]int, 0, len(m.Boundaries()))
	for id := range m.Boundaries() {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// Arena allocates manifold ids and resolves ids back to manifolds. Boundary
// lookups go through ids so manifolds never hold references to each other
// beyond their embeddings.
type Arena struct {
	next      int
	manifolds map[int]Manifold
}

// NewArena creates an empty arena. Ids start at 1.
func NewArena() *Arena {
	return &Arena{next: 1, manifolds: make(map[int]Manifold)}
}

func (a *Arena) allocate() int {
	id := a.next
	a.next++
	return id
}

func (a *Arena) register(m Manifold) {
	a.manifolds[m.ID()] = m
}

// Manifold returns the manifold with the given id.
func (a *Arena) Manifold(id int) (Manifold, bool) {
	m, ok := a.manifolds[id]
	return m, ok
}

// Release forgets the manifold with the given id. Ids are never reused.
func (a *Arena) Release(id int) {
	delete(a.manifolds, id)
}

// Len returns the number of live manifolds.
func (a *Arena) Len() int {
	return len(a.manifolds)
}
