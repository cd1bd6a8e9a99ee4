package chem

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/daniacca/tissuesim/internal/spatial"
)

func TestCompartment_TransportIntoMembraneConserves(t *testing.T) {
	ar := spatial.NewArena()
	ecs := NewCompartment(newECS(t, ar))
	membrane, err := ar.NewTinySphere(0.5)
	require.NoError(t, err)

	pos := r3.Vec{X: 2.3, Y: 2.7, Z: 3.1}
	e, err := spatial.NewTranslatedEmbedding(membrane, ecs.Interior(), &pos, nil)
	require.NoError(t, err)

	ligand, err := ecs.AddMolecularPopulation(NewMolecule("ligand", 1, 1, 1), spatial.Constant{C: 1}, true)
	require.NoError(t, err)
	require.NoError(t, ecs.AddBoundary(e))
	_, ok := ligand.BoundaryConcentration(membrane.ID())
	require.True(t, ok, "populations follow new boundaries")

	bound, err := NewMolecularPopulation(NewMolecule("bound", 1, 1, 0), membrane, nil, false)
	require.NoError(t, err)
	r, err := NewBoundaryTransportTo(ligand, bound, 0.2)
	require.NoError(t, err)
	require.NoError(t, ecs.AddBoundaryReaction(r))

	total := ligand.Integrate() + bound.Integrate()
	for i := 0; i < 20; i++ {
		ecs.Step(0.1)
		require.InDelta(t, total, ligand.Integrate()+bound.Integrate(), 1e-9)
	}
	assert.Greater(t, bound.ConcentrationAt(0), 0.3)
	assert.Less(t, ligand.Concentration([]float64{2.3, 2.7, 3.1}), 1.0)
}

func TestCompartment_BoundaryAssociationInCytosol(t *testing.T) {
	ar := spatial.NewArena()
	ball, err := ar.NewTinyBall(1)
	require.NoError(t, err)
	membrane, err := ar.NewTinySphere(1)
	require.NoError(t, err)
	cytosol := NewCompartment(ball)
	e, err := spatial.NewOneToOneEmbedding(membrane, ball)
	require.NoError(t, err)
	require.NoError(t, cytosol.AddBoundary(e))

	ligand, err := cytosol.AddMolecularPopulation(NewMolecule("L", 1, 1, 0), spatial.Constant{C: 2}, false)
	require.NoError(t, err)
	receptor := newPop(t, "R", membrane, 1)
	complex := newPop(t, "RL", membrane, 0)

	assoc, err := NewBoundaryAssociation(receptor, ligand, complex, 0.5)
	require.NoError(t, err)
	dissoc, err := NewBoundaryDissociation(receptor, ligand, complex, 0.1)
	require.NoError(t, err)
	require.NoError(t, cytosol.AddBoundaryReaction(assoc))
	require.NoError(t, cytosol.AddBoundaryReaction(dissoc))
	assert.Len(t, cytosol.BoundaryReactions(membrane.ID()), 2)

	ligandTotal := ligand.Integrate() + complex.Integrate()
	for i := 0; i < 50; i++ {
		cytosol.Step(0.05)
		require.InDelta(t, ligandTotal, ligand.Integrate()+complex.Integrate(), 1e-9)
		require.InDelta(t, 1.0, receptor.ConcentrationAt(0)+complex.ConcentrationAt(0), 1e-12)
	}
	assert.Greater(t, complex.ConcentrationAt(0), 0.0)
	assert.InDelta(t, 4*math.Pi, membrane.Area(), 1e-12)
}

func TestBoundaryAssociationDissociation_RoundTrip(t *testing.T) {
	ar := spatial.NewArena()
	ball, err := ar.NewTinyBall(1)
	require.NoError(t, err)
	membrane, err := ar.NewTinySphere(1)
	require.NoError(t, err)
	cytosol := NewCompartment(ball)
	e, err := spatial.NewOneToOneEmbedding(membrane, ball)
	require.NoError(t, err)
	require.NoError(t, cytosol.AddBoundary(e))

	ligand, err := cytosol.AddMolecularPopulation(NewMolecule("L", 1, 1, 0), spatial.Constant{C: 2}, false)
	require.NoError(t, err)
	receptor := newPop(t, "R", membrane, 1)
	complex := newPop(t, "RL", membrane, 0)

	const k, dt = 0.5, 0.05
	assoc, err := NewBoundaryAssociation(receptor, ligand, complex, k)
	require.NoError(t, err)
	dissoc, err := NewBoundaryDissociation(receptor, ligand, complex, k)
	require.NoError(t, err)

	ligand0 := ligand.Integrate()
	total := ligand0 + complex.Integrate()
	run := func(r BoundaryReaction, steps int) {
		for i := 0; i < steps; i++ {
			r.Step(dt)
			ligand.Step(dt)
			require.InDelta(t, total, ligand.Integrate()+complex.Integrate(), 1e-9)
		}
	}

	run(assoc, 40)
	require.Greater(t, complex.ConcentrationAt(0), 0.2)
	require.Less(t, ligand.ConcentrationAt(0), 2.0)

	// the reverse phase runs until the complex is exhausted
	run(dissoc, 2000)
	assert.InDelta(t, 1.0, receptor.ConcentrationAt(0), 1e-9)
	assert.InDelta(t, 2.0, ligand.ConcentrationAt(0), 1e-9)
	assert.InDelta(t, ligand0, ligand.Integrate(), 1e-9)
	assert.InDelta(t, 0.0, complex.ConcentrationAt(0), 1e-9)
}

func TestCompartment_TransportFromMembrane(t *testing.T) {
	ar := spatial.NewArena()
	ball, err := ar.NewTinyBall(2)
	require.NoError(t, err)
	membrane, err := ar.NewTinySphere(2)
	require.NoError(t, err)
	cytosol := NewCompartment(ball)
	e, err := spatial.NewOneToOneEmbedding(membrane, ball)
	require.NoError(t, err)
	require.NoError(t, cytosol.AddBoundary(e))

	inside, err := cytosol.AddMolecularPopulation(NewMolecule("in", 1, 1, 0), nil, false)
	require.NoError(t, err)
	surface := newPop(t, "s", membrane, 1)
	r, err := NewBoundaryTransportFrom(surface, inside, 1)
	require.NoError(t, err)
	require.NoError(t, cytosol.AddBoundaryReaction(r))

	cytosol.Step(0.1)
	assert.InDelta(t, 0.9, surface.ConcentrationAt(0), 1e-12)
	// 0.1 per unit area over area/volume = 3/r
	assert.InDelta(t, 0.1*3/2.0, inside.ConcentrationAt(0), 1e-12)
}

func TestCompartment_CatalyzedBoundaryActivation(t *testing.T) {
	ar := spatial.NewArena()
	ecs := NewCompartment(newECS(t, ar))
	membrane, err := ar.NewTinySphere(0.5)
	require.NoError(t, err)
	pos := r3.Vec{X: 4, Y: 4, Z: 4}
	e, err := spatial.NewTranslatedEmbedding(membrane, ecs.Interior(), &pos, nil)
	require.NoError(t, err)
	require.NoError(t, ecs.AddBoundary(e))

	inactive, err := ecs.AddMolecularPopulation(NewMolecule("A", 1, 1, 0), spatial.Constant{C: 1}, false)
	require.NoError(t, err)
	active, err := ecs.AddMolecularPopulation(NewMolecule("A*", 1, 1, 0), nil, false)
	require.NoError(t, err)
	receptor := newPop(t, "R", membrane, 2)

	r, err := NewCatalyzedBoundaryActivation(receptor, inactive, active, 0.5)
	require.NoError(t, err)
	require.NoError(t, ecs.AddBoundaryReaction(r))

	ecs.Step(0.1)
	// I = 0.5*2*1, moved at the node under the cell: I*dt*area/h^3
	moved := 1.0 * 0.1 * membrane.Area()
	assert.InDelta(t, moved, active.ConcentrationAt(ecs.Interior().ArrayToIndex([]int{4, 4, 4})), 1e-12)
	assert.InDelta(t, 1-moved, inactive.ConcentrationAt(ecs.Interior().ArrayToIndex([]int{4, 4, 4})), 1e-12)
	assert.InDelta(t, 2.0, receptor.ConcentrationAt(0), 1e-12)
}

func TestCompartment_MergesPopulations(t *testing.T) {
	ar := spatial.NewArena()
	ball, err := ar.NewTinyBall(1)
	require.NoError(t, err)
	c := NewCompartment(ball)
	mol := NewMolecule("x", 1, 1, 0)

	p1, err := c.AddMolecularPopulation(mol, spatial.Constant{C: 1}, false)
	require.NoError(t, err)
	p2, err := c.AddMolecularPopulation(mol, spatial.Constant{C: 2}, false)
	require.NoError(t, err)
	assert.Same(t, p1, p2)
	assert.Equal(t, 3.0, p1.ConcentrationAt(0))
	assert.Len(t, c.Populations(), 1)

	got, ok := c.Population(mol.GUID)
	require.True(t, ok)
	assert.Same(t, p1, got)
	assert.InDelta(t, 3*4.0/3.0*math.Pi, c.Total()["x"], 1e-12)
}

func TestCompartment_Validation(t *testing.T) {
	ar := spatial.NewArena()
	ball, err := ar.NewTinyBall(1)
	require.NoError(t, err)
	other, err := ar.NewTinyBall(1)
	require.NoError(t, err)
	membrane, err := ar.NewTinySphere(1)
	require.NoError(t, err)

	c := NewCompartment(ball)
	x := newPop(t, "x", other, 1)
	r, err := NewAnnihilation(x, 1)
	require.NoError(t, err)
	assert.ErrorIs(t, c.AddBulkReaction(r), ErrIncompatibleManifolds)

	inside, err := c.AddMolecularPopulation(NewMolecule("in", 1, 1, 0), nil, false)
	require.NoError(t, err)
	surface := newPop(t, "s", membrane, 1)
	_, err = NewBoundaryTransportFrom(surface, inside, 1)
	assert.ErrorIs(t, err, ErrUnknownBoundary)

	e, err := spatial.NewOneToOneEmbedding(membrane, ball)
	require.NoError(t, err)
	require.NoError(t, c.AddBoundary(e))
	tr, err := NewBoundaryTransportFrom(surface, inside, 1)
	require.NoError(t, err)
	require.NoError(t, c.AddBoundaryReaction(tr))

	c.RemoveBoundary(membrane.ID())
	assert.Empty(t, c.BoundaryReactions(membrane.ID()))
	_, ok := inside.BoundaryFlux(membrane.ID())
	assert.False(t, ok)
	assert.ErrorIs(t, c.AddBoundaryReaction(tr), ErrUnknownBoundary)

	wrongRange, err := spatial.NewOneToOneEmbedding(membrane, other)
	require.NoError(t, err)
	assert.ErrorIs(t, c.AddBoundary(wrongRange), spatial.ErrManifoldMismatch)
}

type fakeNative struct {
	steps            int
	reactions, bound bool
}

func (f *fakeNative) Step(float64)                  { f.steps++ }
func (f *fakeNative) CoversReactions() bool         { return f.reactions }
func (f *fakeNative) CoversBoundaryReactions() bool { return f.bound }

func TestCompartment_NativeStepper(t *testing.T) {
	ar := spatial.NewArena()
	ball, err := ar.NewTinyBall(1)
	require.NoError(t, err)
	c := NewCompartment(ball)
	x, err := c.AddMolecularPopulation(NewMolecule("x", 1, 1, 0), spatial.Constant{C: 1}, false)
	require.NoError(t, err)
	r, err := NewAnnihilation(x, 1)
	require.NoError(t, err)
	require.NoError(t, c.AddBulkReaction(r))

	native := &fakeNative{reactions: true}
	c.SetNativeStepper(native)
	c.Step(0.1)
	assert.Equal(t, 1, native.steps)
	assert.Equal(t, 1.0, x.ConcentrationAt(0), "covered reactions are skipped")

	c.SetNativeStepper(nil)
	c.Step(0.1)
	assert.InDelta(t, 0.9, x.ConcentrationAt(0), 1e-12)
}
