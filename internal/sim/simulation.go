// Package sim assembles compartments, cells and the collision manager into a
// steppable tissue simulation, and builds one from a scenario description.
package sim

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/daniacca/tissuesim/internal/chem"
	"github.com/daniacca/tissuesim/internal/collision"
	"github.com/daniacca/tissuesim/internal/logging"
	"github.com/daniacca/tissuesim/internal/spatial"
)

// Options are the optional collaborators of a Simulation.
type Options struct {
	Logger logging.Logger

	// Notifications receives a StepEvent every ReportEvery steps, addressed
	// to NotifierIDs. Nil disables events.
	Notifications *NotificationManager
	NotifierIDs   []string
	ReportEvery   int
}

// Simulation advances the extracellular medium, the cells and their contacts
// in lock step.
type Simulation struct {
	mu sync.RWMutex

	id         string
	arena      *spatial.Arena
	medium     *chem.Compartment
	collisions *collision.Manager
	extents    r3.Vec
	toroidal   bool

	cells     map[int]*Cell
	nextIndex int
	steps     int64
	time      float64

	notifications *NotificationManager
	notifierIDs   []string
	reportEvery   int
	logger        logging.Logger
}

// NewSimulation wraps a medium compartment over a 3-D manifold. The collision
// extents default to the medium's extents.
func NewSimulation(arena *spatial.Arena, medium *chem.Compartment, cc collision.Config, opts Options) (*Simulation, error) {
	if arena == nil || medium == nil {
		return nil, fmt.Errorf("simulation needs an arena and a medium")
	}
	if medium.Interior().Dim() != 3 {
		return nil, fmt.Errorf("medium manifold must be 3-D, got %d-D", medium.Interior().Dim())
	}
	ext := medium.Interior().Extents()
	if cc.Extents == (r3.Vec{}) {
		cc.Extents = r3.Vec{X: ext[0], Y: ext[1], Z: ext[2]}
	}
	logger := logging.OrNoOp(opts.Logger)
	collisions, err := collision.NewManagerWithLogger(cc, logger)
	if err != nil {
		return nil, fmt.Errorf("collision manager: %w", err)
	}
	return &Simulation{
		id:            uuid.NewString(),
		arena:         arena,
		medium:        medium,
		collisions:    collisions,
		extents:       cc.Extents,
		toroidal:      cc.Toroidal,
		cells:         make(map[int]*Cell),
		notifications: opts.Notifications,
		notifierIDs:   opts.NotifierIDs,
		reportEvery:   opts.ReportEvery,
		logger:        logger,
	}, nil
}

// ID returns the run id attached to every step event.
func (s *Simulation) ID() string { return s.id }

func (s *Simulation) Arena() *spatial.Arena          { return s.arena }
func (s *Simulation) Medium() *chem.Compartment      { return s.medium }
func (s *Simulation) Collisions() *collision.Manager { return s.collisions }

// Steps returns the number of completed steps.
func (s *Simulation) Steps() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.steps
}

// Cell looks up a live cell by index.
func (s *Simulation) Cell(index int) (*Cell, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.cells[index]
	return c, ok
}

// Cells returns the live cells ordered by index.
func (s *Simulation) Cells() []*Cell {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sortedCells()
}

func (s *Simulation) sortedCells() []*Cell {
	out := make([]*Cell, 0, len(s.cells))
	for _, c := range s.cells {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].index < out[j].index })
	return out
}

// AddCell creates a cell of the given radius at position. Its membrane is
// attached as a boundary of both the cytosol and the medium before the cell
// is returned, so boundary reactions can be registered right away.
func (s *Simulation) AddCell(group string, position r3.Vec, radius, drag float64) (*Cell, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cytosol, err := s.arena.NewTinyBall(radius)
	if err != nil {
		return nil, fmt.Errorf("cell cytosol: %w", err)
	}
	membrane, err := s.arena.NewTinySphere(radius)
	if err != nil {
		s.arena.Release(cytosol.ID())
		return nil, fmt.Errorf("cell membrane: %w", err)
	}

	c := &Cell{
		index:    s.nextIndex,
		group:    group,
		position: position,
		radius:   radius,
		drag:     drag,
		alive:    true,
		Cytosol:  chem.NewCompartmentWithLogger(cytosol, s.logger),
		Membrane: chem.NewCompartmentWithLogger(membrane, s.logger),
	}
	release := func() {
		s.arena.Release(cytosol.ID())
		s.arena.Release(membrane.ID())
	}

	inner, err := spatial.NewOneToOneEmbedding(membrane, cytosol)
	if err != nil {
		release()
		return nil, err
	}
	if err := c.Cytosol.AddBoundary(inner); err != nil {
		release()
		return nil, err
	}
	c.medium, err = spatial.NewTranslatedEmbedding(membrane, s.medium.Interior(), &c.position, nil)
	if err != nil {
		release()
		return nil, err
	}
	if err := s.medium.AddBoundary(c.medium); err != nil {
		release()
		return nil, err
	}
	if err := s.collisions.AddCell(c); err != nil {
		s.medium.RemoveBoundary(membrane.ID())
		release()
		return nil, err
	}

	s.cells[c.index] = c
	s.nextIndex++
	s.logger.Debugf("cell %d (%s) added at %v", c.index, group, position)
	return c, nil
}

// RemoveCell kills c and detaches it from the contact model and the medium,
// along with the medium's boundary reactions on its membrane.
func (s *Simulation) RemoveCell(c *Cell) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.removeCell(c)
}

func (s *Simulation) removeCell(c *Cell) {
	if cur, ok := s.cells[c.index]; !ok || cur != c {
		return
	}
	c.alive = false
	s.collisions.RemoveCell(c)
	s.medium.RemoveBoundary(c.MembraneID())
	s.arena.Release(c.MembraneID())
	s.arena.Release(c.Cytosol.Interior().ID())
	delete(s.cells, c.index)
	s.logger.Infof("cell %d (%s) removed at step %d", c.index, c.group, s.steps)
}

// Step advances the simulation by dt:
//
//  1. medium reactions and diffusion
//  2. reset cell forces
//  3. contact maintenance and forces
//  4. cytosol and membrane of every cell
//  5. cell motion
func (s *Simulation) Step(dt float64) error {
	if !(dt > 0) || math.IsInf(dt, 0) {
		return fmt.Errorf("step size must be positive and finite, got %v", dt)
	}

	s.mu.Lock()
	s.medium.Step(dt)

	cells := s.sortedCells()
	for _, c := range cells {
		c.ResetForce()
	}
	s.collisions.Step(dt)

	for _, c := range cells {
		c.Cytosol.Step(dt)
		c.Membrane.Step(dt)
	}
	for _, c := range cells {
		c.advance(dt)
		c.position = s.confine(c.position)
	}

	s.steps++
	s.time += dt
	step, now := s.steps, s.time
	report := s.notifications != nil && s.reportEvery > 0 && step%int64(s.reportEvery) == 0
	var snap Snapshot
	if report {
		snap = s.snapshot()
	}
	s.mu.Unlock()

	s.logger.Debugf("step %d done (t=%g)", step, now)
	if report {
		s.notifications.Enqueue(StepEvent{
			SimulationID: s.id,
			Timestamp:    time.Now().Unix(),
			Snapshot:     snap,
		}, s.notifierIDs)
	}
	return nil
}

// confine keeps a position inside the medium: periodic media wrap it, closed
// ones clamp it to the walls.
func (s *Simulation) confine(p r3.Vec) r3.Vec {
	fix := func(x, extent float64) float64 {
		if s.toroidal {
			x = math.Mod(x, extent)
			if x < 0 {
				x += extent
			}
			return x
		}
		// the far wall itself belongs to no collision bucket
		return math.Max(0, math.Min(x, math.Nextafter(extent, 0)))
	}
	return r3.Vec{
		X: fix(p.X, s.extents.X),
		Y: fix(p.Y, s.extents.Y),
		Z: fix(p.Z, s.extents.Z),
	}
}

// Run performs steps steps of size dt, stopping early when ctx is done.
func (s *Simulation) Run(ctx context.Context, steps int, dt float64) error {
	for i := 0; i < steps; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := s.Step(dt); err != nil {
			return fmt.Errorf("step %d: %w", i, err)
		}
	}
	return nil
}
