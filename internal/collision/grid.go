// Package collision tracks which cells are close enough to interact and
// applies the pairwise contact force between them.
package collision

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// ErrInvalidGrid indicates a grid step or domain extent that cannot form a
// bucket grid.
var ErrInvalidGrid = errors.New("collision: invalid grid")

// Unplaced is the grid index of a cell that has never been bucketed.
var Unplaced = [3]int{-1, -1, -1}

// Grid is a uniform bucket grid over the simulation volume. Each bucket holds
// the cells whose position falls in it, keyed by cell index.
type Grid struct {
	step    float64
	size    [3]int
	buckets []map[int]Cell
}

// NewGrid covers extents with cubic buckets of side step, ceil(extent/step)
// per axis.
func NewGrid(step float64, extents r3.Vec) (*Grid, error) {
	if !(step > 0) || math.IsInf(step, 0) {
		return nil, fmt.Errorf("%w: step %v", ErrInvalidGrid, step)
	}
	g := &Grid{step: step}
	n := 1
	for d, e := range [3]float64{extents.X, extents.Y, extents.Z} {
		if !(e > 0) || math.IsInf(e, 0) {
			return nil, fmt.Errorf("%w: extent %v on axis %d", ErrInvalidGrid, e, d)
		}
		g.size[d] = int(math.Ceil(e / step))
		n *= g.size[d]
	}
	g.buckets = make([]map[int]Cell, n)
	return g, nil
}

// Step returns the bucket side length.
func (g *Grid) Step() float64 { return g.step }

// Size returns the number of buckets per axis.
func (g *Grid) Size() [3]int { return g.size }

// IndexOf returns the bucket coordinates of pos. The result may be illegal.
func (g *Grid) IndexOf(pos r3.Vec) [3]int {
	return [3]int{
		int(math.Floor(pos.X / g.step)),
		int(math.Floor(pos.Y / g.step)),
		int(math.Floor(pos.Z / g.step)),
	}
}

// LegalIndex reports whether idx lies inside the grid.
func (g *Grid) LegalIndex(idx [3]int) bool {
	for d, i := range idx {
		if i < 0 || i >= g.size[d] {
			return false
		}
	}
	return true
}

func (g *Grid) flat(idx [3]int) int {
	return idx[0] + g.size[0]*(idx[1]+g.size[1]*idx[2])
}

// Bucket returns the cells in bucket idx. It is nil for empty or illegal
// buckets and must not be modified.
func (g *Grid) Bucket(idx [3]int) map[int]Cell {
	if !g.LegalIndex(idx) {
		return nil
	}
	return g.buckets[g.flat(idx)]
}

func (g *Grid) insert(idx [3]int, c Cell) {
	f := g.flat(idx)
	if g.buckets[f] == nil {
		g.buckets[f] = make(map[int]Cell)
	}
	g.buckets[f][c.Index()] = c
}

func (g *Grid) remove(idx [3]int, cellIndex int) {
	if !g.LegalIndex(idx) {
		return
	}
	delete(g.buckets[g.flat(idx)], cellIndex)
}

// chebyshev is the grid-index distance max |a[d]-b[d]|.
func chebyshev(a, b [3]int) int {
	m := 0
	for d := range a {
		v := a[d] - b[d]
		if v < 0 {
			v = -v
		}
		if v > m {
			m = v
		}
	}
	return m
}
