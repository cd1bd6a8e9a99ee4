package sim

import (
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/daniacca/tissuesim/internal/chem"
	"github.com/daniacca/tissuesim/internal/collision"
	"github.com/daniacca/tissuesim/internal/spatial"
)

// Cell is a spherical cell with a well-mixed cytosol and membrane. Its
// membrane is a boundary of the extracellular medium that follows the cell's
// position.
type Cell struct {
	index     int
	group     string
	position  r3.Vec
	radius    float64
	drag      float64
	force     r3.Vec
	gridIndex [3]int
	alive     bool

	Cytosol  *chem.Compartment
	Membrane *chem.Compartment

	medium *spatial.TranslatedEmbedding
}

var _ collision.Cell = (*Cell)(nil)

func (c *Cell) Index() int            { return c.index }
func (c *Cell) Group() string         { return c.group }
func (c *Cell) Position() r3.Vec      { return c.position }
func (c *Cell) Radius() float64       { return c.radius }
func (c *Cell) Drag() float64         { return c.drag }
func (c *Cell) Force() r3.Vec         { return c.force }
func (c *Cell) GridIndex() [3]int     { return c.gridIndex }
func (c *Cell) SetGridIndex(g [3]int) { c.gridIndex = g }
func (c *Cell) AddForce(f r3.Vec)     { c.force = r3.Add(c.force, f) }
func (c *Cell) ResetForce()           { c.force = r3.Vec{} }
func (c *Cell) Alive() bool           { return c.alive }

// SetPosition moves the cell. The membrane embedding reads the same slot, so
// the membrane moves with it.
func (c *Cell) SetPosition(p r3.Vec) { c.position = p }

// MembraneID is the manifold id under which the membrane is registered as a
// boundary of the medium and of the cytosol.
func (c *Cell) MembraneID() int { return c.Membrane.Interior().ID() }

// advance integrates overdamped motion, x += F/drag * dt. Cells without drag
// do not move.
func (c *Cell) advance(dt float64) {
	if c.drag <= 0 {
		return
	}
	c.position = r3.Add(c.position, r3.Scale(dt/c.drag, c.force))
}
