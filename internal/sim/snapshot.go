package sim

import (
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/daniacca/tissuesim/internal/chem"
)

// CellState is the reported state of one cell.
type CellState struct {
	Index    int                `json:"index"`
	Group    string             `json:"group"`
	Position [3]float64         `json:"position"`
	Force    [3]float64         `json:"force"`
	Radius   float64            `json:"radius"`
	Cytosol  map[string]float64 `json:"cytosol,omitempty"`
	Membrane map[string]float64 `json:"membrane,omitempty"`
}

// Snapshot summarizes the simulation after a step: integrated amounts per
// species, cell kinematics and contact counters.
type Snapshot struct {
	Step          int64              `json:"step"`
	Time          float64            `json:"time"`
	Medium        map[string]float64 `json:"medium"`
	Cells         []CellState        `json:"cells"`
	Pairs         int                `json:"pairs"`
	CriticalPairs int                `json:"critical_pairs"`
}

// Snapshot captures the current state.
func (s *Simulation) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot()
}

func (s *Simulation) snapshot() Snapshot {
	snap := Snapshot{
		Step:          s.steps,
		Time:          s.time,
		Medium:        s.medium.Total(),
		Cells:         make([]CellState, 0, len(s.cells)),
		Pairs:         len(s.collisions.Pairs()),
		CriticalPairs: s.collisions.CriticalPairCount(),
	}
	for _, c := range s.sortedCells() {
		snap.Cells = append(snap.Cells, CellState{
			Index:    c.index,
			Group:    c.group,
			Position: vec(c.position),
			Force:    vec(c.force),
			Radius:   c.radius,
			Cytosol:  totals(c.Cytosol),
			Membrane: totals(c.Membrane),
		})
	}
	return snap
}

func totals(c *chem.Compartment) map[string]float64 {
	if len(c.Populations()) == 0 {
		return nil
	}
	return c.Total()
}

func vec(v r3.Vec) [3]float64 { return [3]float64{v.X, v.Y, v.Z} }
