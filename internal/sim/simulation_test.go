package sim

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/daniacca/tissuesim/internal/chem"
	"github.com/daniacca/tissuesim/internal/collision"
	"github.com/daniacca/tissuesim/internal/spatial"
)

// newTestSimulation builds an 11x11x11 medium with unit spacing.
func newTestSimulation(t *testing.T, cc collision.Config, opts Options) *Simulation {
	t.Helper()
	ar := spatial.NewArena()
	prism, err := ar.NewBoundedRectangularPrism([3]int{11, 11, 11}, 1)
	require.NoError(t, err)
	if cc.GridStep == 0 {
		cc.GridStep = 2
	}
	s, err := NewSimulation(ar, chem.NewCompartment(prism), cc, opts)
	require.NoError(t, err)
	return s
}

func TestNewSimulation_Validation(t *testing.T) {
	ar := spatial.NewArena()
	rect, err := ar.NewBoundedRectangle([2]int{4, 4}, 1)
	require.NoError(t, err)
	_, err = NewSimulation(ar, chem.NewCompartment(rect), collision.Config{GridStep: 1}, Options{})
	assert.Error(t, err, "2-D medium")

	_, err = NewSimulation(nil, nil, collision.Config{}, Options{})
	assert.Error(t, err)

	s := newTestSimulation(t, collision.Config{}, Options{})
	assert.Equal(t, r3.Vec{X: 10, Y: 10, Z: 10}, s.Collisions().Config().Extents)
	assert.NotEmpty(t, s.ID())
}

func TestSimulation_AddCellAttachesMembrane(t *testing.T) {
	s := newTestSimulation(t, collision.Config{}, Options{})
	c, err := s.AddCell("a", r3.Vec{X: 5, Y: 5, Z: 5}, 1, 1)
	require.NoError(t, err)

	_, ok := s.Medium().Interior().Boundary(c.MembraneID())
	assert.True(t, ok, "membrane is a boundary of the medium")
	_, ok = c.Cytosol.Interior().Boundary(c.MembraneID())
	assert.True(t, ok, "membrane is a boundary of the cytosol")
	assert.Equal(t, collision.Unplaced, c.GridIndex())
	assert.Len(t, s.Collisions().Cells(), 1)

	got, ok := s.Cell(c.Index())
	require.True(t, ok)
	assert.Same(t, c, got)

	_, err = s.AddCell("bad", r3.Vec{}, -1, 1)
	assert.Error(t, err)
	assert.Len(t, s.Cells(), 1)
}

func TestSimulation_MembraneTransportConservesMass(t *testing.T) {
	s := newTestSimulation(t, collision.Config{}, Options{})
	glucose := chem.NewMolecule("glucose", 180, 0.4, 1)

	medium, err := s.Medium().AddMolecularPopulation(glucose, spatial.Constant{C: 2}, true)
	require.NoError(t, err)
	c, err := s.AddCell("a", r3.Vec{X: 5.2, Y: 4.7, Z: 5.5}, 1, 1)
	require.NoError(t, err)
	bound, err := c.Membrane.AddMolecularPopulation(glucose, nil, false)
	require.NoError(t, err)
	r, err := chem.NewBoundaryTransportTo(medium, bound, 0.5)
	require.NoError(t, err)
	require.NoError(t, s.Medium().AddBoundaryReaction(r))

	total := medium.Integrate() + bound.Integrate()
	for i := 0; i < 30; i++ {
		require.NoError(t, s.Step(0.1))
		require.InDelta(t, total, medium.Integrate()+bound.Integrate(), 1e-9)
	}
	assert.Greater(t, bound.ConcentrationAt(0), 0.0)
	assert.Equal(t, int64(30), s.Steps())

	snap := s.Snapshot()
	require.Len(t, snap.Cells, 1)
	assert.InDelta(t, bound.Integrate(), snap.Cells[0].Membrane["glucose"], 1e-12)
	assert.InDelta(t, medium.Integrate(), snap.Medium["glucose"], 1e-12)
	assert.InDelta(t, 3.0, snap.Time, 1e-9)
}

func TestSimulation_ContactPushesCellsApart(t *testing.T) {
	s := newTestSimulation(t, collision.Config{Phi1: 1, GridStep: 2}, Options{})
	a, err := s.AddCell("a", r3.Vec{X: 4, Y: 5, Z: 5}, 1, 1)
	require.NoError(t, err)
	b, err := s.AddCell("b", r3.Vec{X: 5.5, Y: 5, Z: 5}, 1, 1)
	require.NoError(t, err)

	require.NoError(t, s.Step(0.1))
	assert.Equal(t, 1, s.Collisions().CriticalPairCount())
	assert.Less(t, a.Position().X, 4.0)
	assert.Greater(t, b.Position().X, 5.5)
	assert.InDelta(t, 5.0, a.Position().Y, 1e-12)
	assert.InDelta(t, -a.Force().X, b.Force().X, 1e-12)

	// the membrane embedding follows the cell
	assert.Equal(t, a.Position(), a.medium.Translation())
}

func TestSimulation_RemoveCell(t *testing.T) {
	s := newTestSimulation(t, collision.Config{Phi1: 1}, Options{})
	mol := chem.NewMolecule("x", 1, 1, 1)
	medium, err := s.Medium().AddMolecularPopulation(mol, spatial.Constant{C: 1}, true)
	require.NoError(t, err)
	a, err := s.AddCell("a", r3.Vec{X: 4, Y: 5, Z: 5}, 1, 1)
	require.NoError(t, err)
	b, err := s.AddCell("b", r3.Vec{X: 5.5, Y: 5, Z: 5}, 1, 1)
	require.NoError(t, err)
	onA, err := a.Membrane.AddMolecularPopulation(mol, nil, false)
	require.NoError(t, err)
	r, err := chem.NewBoundaryTransportTo(medium, onA, 1)
	require.NoError(t, err)
	require.NoError(t, s.Medium().AddBoundaryReaction(r))
	require.NoError(t, s.Step(0.1))
	require.Len(t, s.Collisions().Pairs(), 1)

	s.RemoveCell(a)
	assert.False(t, a.Alive())
	_, ok := s.Medium().Interior().Boundary(a.MembraneID())
	assert.False(t, ok)
	assert.Empty(t, s.Medium().BoundaryReactions(a.MembraneID()))
	_, ok = medium.BoundaryFlux(a.MembraneID())
	assert.False(t, ok)
	assert.Empty(t, s.Collisions().Pairs())
	assert.Len(t, s.Cells(), 1)
	_, ok = s.Arena().Manifold(a.MembraneID())
	assert.False(t, ok)

	// removing twice is harmless
	s.RemoveCell(a)
	require.NoError(t, s.Step(0.1))
	assert.True(t, b.Alive())
}

func TestSimulation_StepValidation(t *testing.T) {
	s := newTestSimulation(t, collision.Config{}, Options{})
	assert.Error(t, s.Step(0))
	assert.Error(t, s.Step(-1))
	assert.Zero(t, s.Steps())
}

func TestSimulation_RunHonorsContext(t *testing.T) {
	s := newTestSimulation(t, collision.Config{}, Options{})
	require.NoError(t, s.Run(context.Background(), 5, 0.1))
	assert.Equal(t, int64(5), s.Steps())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, s.Run(ctx, 5, 0.1), context.Canceled)
	assert.Equal(t, int64(5), s.Steps())
}

func TestSimulation_Confine(t *testing.T) {
	closed := newTestSimulation(t, collision.Config{}, Options{})
	p := closed.confine(r3.Vec{X: -1, Y: 12, Z: 3})
	assert.Equal(t, 0.0, p.X)
	assert.Less(t, p.Y, 10.0)
	assert.InDelta(t, 10.0, p.Y, 1e-9)
	assert.Equal(t, 3.0, p.Z)

	torus := newTestSimulation(t, collision.Config{Toroidal: true}, Options{})
	p = torus.confine(r3.Vec{X: -1, Y: 12, Z: 3})
	assert.InDelta(t, 9.0, p.X, 1e-12)
	assert.InDelta(t, 2.0, p.Y, 1e-12)
	assert.Equal(t, 3.0, p.Z)
}

func TestSimulation_CellsStayInsideClosedMedium(t *testing.T) {
	s := newTestSimulation(t, collision.Config{Phi1: 50, GridStep: 2}, Options{})
	a, err := s.AddCell("a", r3.Vec{X: 0.2, Y: 5, Z: 5}, 1, 0.1)
	require.NoError(t, err)
	_, err = s.AddCell("b", r3.Vec{X: 0.6, Y: 5, Z: 5}, 1, 0.1)
	require.NoError(t, err)

	require.NoError(t, s.Run(context.Background(), 3, 0.1))
	assert.GreaterOrEqual(t, a.Position().X, 0.0)
	assert.NotEqual(t, collision.Unplaced, a.GridIndex())
}

type recordingNotifier struct {
	mu    sync.Mutex
	steps []int64
}

func (r *recordingNotifier) ID() string   { return "rec" }
func (r *recordingNotifier) Type() string { return "mock" }
func (r *recordingNotifier) Close() error { return nil }
func (r *recordingNotifier) Notify(_ context.Context, e StepEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.steps = append(r.steps, e.Snapshot.Step)
	return nil
}

func (r *recordingNotifier) received() []int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]int64(nil), r.steps...)
}

func TestSimulation_ReportsEveryNSteps(t *testing.T) {
	nm := NewNotificationManager()
	defer nm.Close()
	rec := &recordingNotifier{}
	require.NoError(t, nm.RegisterNotifier(rec))

	s := newTestSimulation(t, collision.Config{}, Options{
		Notifications: nm,
		NotifierIDs:   []string{"rec"},
		ReportEvery:   2,
	})
	require.NoError(t, s.Run(context.Background(), 5, 0.1))

	require.Eventually(t, func() bool { return len(rec.received()) == 2 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, []int64{2, 4}, rec.received())
}
