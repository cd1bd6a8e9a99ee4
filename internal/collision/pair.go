package collision

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Cell is what the collision manager needs from a simulated cell.
type Cell interface {
	Index() int
	Position() r3.Vec
	Radius() float64
	GridIndex() [3]int
	SetGridIndex([3]int)
	AddForce(r3.Vec)
	Alive() bool
}

// PairKind selects the interaction law of a pair.
type PairKind int

const (
	// CellCell is plain contact between two cells.
	CellCell PairKind = iota
)

func (k PairKind) String() string {
	switch k {
	case CellCell:
		return "cell-cell"
	default:
		return fmt.Sprintf("PairKind(%d)", int(k))
	}
}

// Pair is two cells close enough on the grid that they might touch. A
// critical pair is in contact and exerts force.
type Pair struct {
	Kind     PairKind
	A, B     Cell
	Distance float64
	Critical bool

	delta r3.Vec // B - A, after wraparound
}

func newPair(a, b Cell) *Pair {
	return &Pair{Kind: CellCell, A: a, B: b}
}

// Contains reports whether c is one of the pair's cells.
func (p *Pair) Contains(c Cell) bool { return p.A == c || p.B == c }

// ContactDistance is the sum of the radii.
func (p *Pair) ContactDistance() float64 { return p.A.Radius() + p.B.Radius() }

// Normal is the unit vector from A to B, zero if they coincide.
func (p *Pair) Normal() r3.Vec {
	if p.Distance == 0 {
		return r3.Vec{}
	}
	return r3.Scale(1/p.Distance, p.delta)
}

func (p *Pair) updateDistance(cfg Config) {
	d := r3.Sub(p.B.Position(), p.A.Position())
	if cfg.Toroidal {
		d.X = wrap(d.X, cfg.Extents.X)
		d.Y = wrap(d.Y, cfg.Extents.Y)
		d.Z = wrap(d.Z, cfg.Extents.Z)
	}
	p.delta = d
	p.Distance = r3.Norm(d)
}

// wrap takes the short way around a periodic axis, keeping the sign of the
// shorter displacement.
func wrap(delta, extent float64) float64 {
	if math.Abs(delta) <= extent/2 {
		return delta
	}
	if delta > 0 {
		return delta - extent
	}
	return delta + extent
}

// bond flips criticality on contact and off on separation.
func (p *Pair) bond() {
	contact := p.Distance <= p.ContactDistance()
	switch {
	case !p.Critical && contact:
		p.Critical = true
	case p.Critical && !contact:
		p.Critical = false
	}
}

// interact applies the pair's force law. Non-critical pairs and coincident
// cells exert nothing.
func (p *Pair) interact(cfg Config) {
	if !p.Critical || p.Distance <= 0 {
		return
	}
	switch p.Kind {
	case CellCell:
		f := cfg.Phi1 * (1/p.Distance - 1/p.ContactDistance())
		n := p.Normal()
		p.A.AddForce(r3.Scale(-f, n))
		p.B.AddForce(r3.Scale(f, n))
	}
}
