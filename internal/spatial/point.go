package spatial

import (
	"fmt"
	"math"
)

// pointLike implements the single-node behaviour shared by the 0-D manifolds.
// measure is the volume or area a node stands for.
type pointLike struct {
	base
	measure float64
}

func (p *pointLike) Dim() int               { return 0 }
func (p *pointLike) ArraySize() int         { return 1 }
func (p *pointLike) NumPoints() []int       { return []int{} }
func (p *pointLike) Extents() []float64     { return []float64{} }
func (p *pointLike) StepSize() []float64    { return []float64{} }
func (p *pointLike) VoxelVolume() float64   { return p.measure }
func (p *pointLike) IndexToArray(int) []int { return []int{} }
func (p *pointLike) ArrayToIndex([]int) int { return 0 }

func (p *pointLike) Coordinate(i int) []float64 {
	return []float64{}
}

func (p *pointLike) LocalToArray([]float64) ([]int, bool) {
	return []int{}, true
}

// InterpolationStencil is the identity: every point samples the single node.
func (p *pointLike) InterpolationStencil([]float64) []StencilEntry {
	return []StencilEntry{{Index: 0, Weight: 1}}
}

// GradientStencil has no dimensions to differentiate along.
func (p *pointLike) GradientStencil(i int) [][]StencilEntry {
	if i != 0 {
		return nil
	}
	return [][]StencilEntry{}
}

// LaplacianStencil is empty; a single node never diffuses.
func (p *pointLike) LaplacianStencil(int) []StencilEntry {
	return nil
}

func (p *pointLike) Integrate(f *ScalarField) float64 {
	return f.array[0] * p.measure
}

// Point is a dimensionless manifold of unit measure.
type Point struct {
	pointLike
}

// NewPoint creates a point manifold.
func (a *Arena) NewPoint() *Point {
	p := &Point{pointLike{base: newBase(a.allocate()), measure: 1}}
	a.register(p)
	return p
}

// TinySphere is the surface of a sphere with no internal structure, typically
// a cell membrane. Integration yields value times surface area.
type TinySphere struct {
	pointLike
	radius float64
}

// NewTinySphere creates a sphere surface of the given radius.
func (a *Arena) NewTinySphere(radius float64) (*TinySphere, error) {
	if radius <= 0 {
		return nil, fmt.Errorf("tiny sphere radius %g: %w", radius, ErrInvalidGeometry)
	}
	s := &TinySphere{
		pointLike: pointLike{base: newBase(a.allocate()), measure: 4 * math.Pi * radius * radius},
		radius:    radius,
	}
	a.register(s)
	return s, nil
}

func (s *TinySphere) Radius() float64 { return s.radius }

// Area returns the surface area.
func (s *TinySphere) Area() float64 { return s.measure }

// TinyBall is a solid ball with no internal structure, typically a cell's
// cytosol. Integration yields value times volume.
type TinyBall struct {
	pointLike
	radius float64
}

// NewTinyBall creates a ball of the given radius.
func (a *Arena) NewTinyBall(radius float64) (*TinyBall, error) {
	if radius <= 0 {
		return nil, fmt.Errorf("tiny ball radius %g: %w", radius, ErrInvalidGeometry)
	}
	b := &TinyBall{
		pointLike: pointLike{base: newBase(a.allocate()), measure: 4.0 / 3.0 * math.Pi * radius * radius * radius},
		radius:    radius,
	}
	a.register(b)
	return b, nil
}

func (b *TinyBall) Radius() float64 { return b.radius }

// Volume returns the ball volume.
func (b *TinyBall) Volume() float64 { return b.measure }
