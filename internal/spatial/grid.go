package spatial

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

// boundaryTolerance absorbs round-off when a point sits on the outer face of
// a grid manifold.
const boundaryTolerance = 1e-9

// grid is a bounded, uniformly spaced node lattice in 2 or 3 dimensions.
// Node i has array indices (i0, i1, ...) with i = i0 + n0*(i1 + n1*i2).
type grid struct {
	base
	numPoints []int
	stepSize  []float64
	extents   []float64
	strides   []int
	size      int
	laplacian [][]StencilEntry
}

func newGrid(id int, numPoints []int, stepSize float64) (*grid, error) {
	if stepSize <= 0 || math.IsNaN(stepSize) || math.IsInf(stepSize, 0) {
		return nil, fmt.Errorf("step size %g: %w", stepSize, ErrInvalidGeometry)
	}
	g := &grid{
		base:      newBase(id),
		numPoints: append([]int(nil), numPoints...),
		stepSize:  make([]float64, len(numPoints)),
		extents:   make([]float64, len(numPoints)),
		strides:   make([]int, len(numPoints)),
		size:      1,
	}
	for d, n := range numPoints {
		if n < 2 {
			return nil, fmt.Errorf("dimension %d has %d nodes, need at least 2: %w", d, n, ErrInvalidGeometry)
		}
		g.strides[d] = g.size
		g.size *= n
		g.stepSize[d] = stepSize
		g.extents[d] = float64(n-1) * stepSize
	}
	g.buildLaplacian()
	return g, nil
}

func (g *grid) Dim() int            { return len(g.numPoints) }
func (g *grid) ArraySize() int      { return g.size }
func (g *grid) NumPoints() []int    { return g.numPoints }
func (g *grid) Extents() []float64  { return g.extents }
func (g *grid) StepSize() []float64 { return g.stepSize }

func (g *grid) VoxelVolume() float64 {
	v := 1.0
	for _, h := range g.stepSize {
		v *= h
	}
	return v
}

func (g *grid) IndexToArray(i int) []int {
	idx := make([]int, len(g.numPoints))
	for d, n := range g.numPoints {
		idx[d] = i % n
		i /= n
	}
	return idx
}

func (g *grid) ArrayToIndex(idx []int) int {
	i := 0
	for d := range g.numPoints {
		i += idx[d] * g.strides[d]
	}
	return i
}

func (g *grid) Coordinate(i int) []float64 {
	idx := g.IndexToArray(i)
	x := make([]float64, len(idx))
	for d := range idx {
		x[d] = float64(idx[d]) * g.stepSize[d]
	}
	return x
}

func (g *grid) inside(point []float64) bool {
	if len(point) != len(g.numPoints) {
		return false
	}
	for d, p := range point {
		tol := boundaryTolerance * g.stepSize[d]
		if p < -tol || p > g.extents[d]+tol {
			return false
		}
	}
	return true
}

// voxelOf returns the lower corner of the voxel containing p along dimension d
// and the fractional offset inside it. Points on the upper face belong to the
// last voxel.
func (g *grid) voxelOf(d int, p float64) (int, float64) {
	q := p / g.stepSize[d]
	c := int(math.Floor(q))
	if c < 0 {
		c = 0
	}
	if c > g.numPoints[d]-2 {
		c = g.numPoints[d] - 2
	}
	t := q - float64(c)
	if t < 0 {
		t = 0
	} else if t > 1 {
		t = 1
	}
	return c, t
}

func (g *grid) LocalToArray(point []float64) ([]int, bool) {
	if !g.inside(point) {
		return nil, false
	}
	idx := make([]int, len(point))
	for d, p := range point {
		idx[d], _ = g.voxelOf(d, p)
	}
	return idx, true
}

// InterpolationStencil returns the multilinear weights of the 2^dim corners of
// the voxel containing point.
func (g *grid) InterpolationStencil(point []float64) []StencilEntry {
	if !g.inside(point) {
		return nil
	}
	dim := len(g.numPoints)
	lower := make([]int, dim)
	frac := make([]float64, dim)
	for d, p := range point {
		lower[d], frac[d] = g.voxelOf(d, p)
	}
	stencil := make([]StencilEntry, 0, 1<<dim)
	for corner := 0; corner < 1<<dim; corner++ {
		w := 1.0
		i := 0
		for d := 0; d < dim; d++ {
			k := lower[d]
			if corner&(1<<d) != 0 {
				k++
				w *= frac[d]
			} else {
				w *= 1 - frac[d]
			}
			i += k * g.strides[d]
		}
		stencil = append(stencil, StencilEntry{Index: i, Weight: w})
	}
	return stencil
}

// GradientStencil uses central differences inside the grid and one-sided
// differences on the faces.
func (g *grid) GradientStencil(i int) [][]StencilEntry {
	if i < 0 || i >= g.size {
		return nil
	}
	idx := g.IndexToArray(i)
	out := make([][]StencilEntry, len(idx))
	for d, k := range idx {
		h, s, n := g.stepSize[d], g.strides[d], g.numPoints[d]
		switch {
		case k == 0:
			out[d] = []StencilEntry{{i, -1 / h}, {i + s, 1 / h}}
		case k == n-1:
			out[d] = []StencilEntry{{i - s, -1 / h}, {i, 1 / h}}
		default:
			out[d] = []StencilEntry{{i - s, -0.5 / h}, {i + s, 0.5 / h}}
		}
	}
	return out
}

func (g *grid) LaplacianStencil(i int) []StencilEntry {
	return g.laplacian[i]
}

// buildLaplacian precomputes the second-difference stencil of every node. A
// neighbour that would lie outside the grid is replaced by the node itself,
// which realizes a zero-flux boundary. The self term is always first.
func (g *grid) buildLaplacian() {
	g.laplacian = make([][]StencilEntry, g.size)
	for i := 0; i < g.size; i++ {
		idx := g.IndexToArray(i)
		self := 0.0
		stencil := []StencilEntry{{Index: i}}
		for d, k := range idx {
			c := 1 / (g.stepSize[d] * g.stepSize[d])
			self -= 2 * c
			if k > 0 {
				stencil = append(stencil, StencilEntry{i - g.strides[d], c})
			} else {
				self += c
			}
			if k < g.numPoints[d]-1 {
				stencil = append(stencil, StencilEntry{i + g.strides[d], c})
			} else {
				self += c
			}
		}
		stencil[0].Weight = self
		g.laplacian[i] = stencil
	}
}

// Integrate applies the midpoint rule with each node at the center of its
// own voxel: the sum of node values times the voxel volume.
func (g *grid) Integrate(f *ScalarField) float64 {
	return floats.Sum(f.array) * g.VoxelVolume()
}

// BoundedRectangle is a 2-D node lattice, e.g. a face of a prism.
type BoundedRectangle struct {
	*grid
}

// NewBoundedRectangle creates a rectangle with numPoints nodes per side and
// uniform spacing stepSize.
func (a *Arena) NewBoundedRectangle(numPoints [2]int, stepSize float64) (*BoundedRectangle, error) {
	g, err := newGrid(a.allocate(), numPoints[:], stepSize)
	if err != nil {
		return nil, fmt.Errorf("bounded rectangle: %w", err)
	}
	r := &BoundedRectangle{g}
	a.register(r)
	return r, nil
}

// BoundedRectangularPrism is a 3-D node lattice, typically the extracellular
// medium.
type BoundedRectangularPrism struct {
	*grid
}

// NewBoundedRectangularPrism creates a prism with numPoints nodes per side and
// uniform spacing stepSize.
func (a *Arena) NewBoundedRectangularPrism(numPoints [3]int, stepSize float64) (*BoundedRectangularPrism, error) {
	g, err := newGrid(a.allocate(), numPoints[:], stepSize)
	if err != nil {
		return nil, fmt.Errorf("bounded rectangular prism: %w", err)
	}
	p := &BoundedRectangularPrism{g}
	a.register(p)
	return p, nil
}

// NodesForExtent returns the node count that covers extent with the given
// spacing, rounding the extent up to a whole number of steps.
func NodesForExtent(extent, stepSize float64) int {
	return int(math.Ceil(extent/stepSize-boundaryTolerance)) + 1
}
