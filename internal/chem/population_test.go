package chem

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/daniacca/tissuesim/internal/spatial"
)

func newECS(t *testing.T, a *spatial.Arena) *spatial.BoundedRectangularPrism {
	t.Helper()
	p, err := a.NewBoundedRectangularPrism([3]int{9, 9, 9}, 1)
	require.NoError(t, err)
	return p
}

func TestMolecularPopulation_DiffusionConservesTotal(t *testing.T) {
	ar := spatial.NewArena()
	ecs := newECS(t, ar)
	mol := NewMolecule("ligand", 1, 1, 1)
	init := spatial.NewScalarFieldWith(ecs, spatial.Gaussian{
		Center: []float64{4, 4, 4},
		Sigma:  []float64{1.5, 1.5, 1.5},
		Peak:   1,
	})
	p, err := NewMolecularPopulation(mol, ecs, init, true)
	require.NoError(t, err)

	before := p.Integrate()
	peak := p.Concentration([]float64{4, 4, 4})
	for i := 0; i < 50; i++ {
		p.Step(0.1)
		require.InDelta(t, before, p.Integrate(), 1e-9*before)
	}
	assert.Less(t, p.Concentration([]float64{4, 4, 4}), peak)
	assert.Greater(t, p.ConcentrationAt(0), init.Get(0), "mass reaches the corner")
	for _, v := range p.Conc().Array() {
		assert.GreaterOrEqual(t, v, 0.0)
	}
}

func TestMolecularPopulation_NonDiffusingStaysPut(t *testing.T) {
	ar := spatial.NewArena()
	ecs := newECS(t, ar)
	init := spatial.NewScalarFieldWith(ecs, spatial.Linear{Axis: 0, Start: 0, Slope: 1})
	p, err := NewMolecularPopulation(NewMolecule("x", 1, 1, 5), ecs, init, false)
	require.NoError(t, err)

	p.Step(0.1)
	assert.Equal(t, init.Array(), p.Conc().Array())
	assert.InDeltaSlice(t, []float64{1, 0, 0}, p.Gradient([]float64{3.5, 2, 2}), 1e-12)
}

func TestMolecularPopulation_Validation(t *testing.T) {
	ar := spatial.NewArena()
	ecs := newECS(t, ar)
	ball, err := ar.NewTinyBall(1)
	require.NoError(t, err)

	_, err = NewMolecularPopulation(nil, ecs, nil, true)
	assert.Error(t, err)
	_, err = NewMolecularPopulation(NewMolecule("x", 1, 1, 1), ecs, spatial.NewScalarField(ball), true)
	assert.ErrorIs(t, err, spatial.ErrManifoldMismatch)
}

func TestMolecularPopulation_BoundarySampling(t *testing.T) {
	ar := spatial.NewArena()
	ecs := newECS(t, ar)
	membrane, err := ar.NewTinySphere(0.5)
	require.NoError(t, err)
	pos := r3.Vec{X: 2.5, Y: 3, Z: 3}
	e, err := spatial.NewTranslatedEmbedding(membrane, ecs, &pos, nil)
	require.NoError(t, err)
	require.NoError(t, ecs.AddBoundary(e))

	p, err := NewMolecularPopulation(NewMolecule("x", 1, 1, 0), ecs,
		spatial.NewScalarFieldWith(ecs, spatial.Linear{Axis: 0, Start: 1, Slope: 2}), false)
	require.NoError(t, err)

	bc, ok := p.BoundaryConcentration(membrane.ID())
	require.True(t, ok)
	assert.InDelta(t, 6.0, bc.Get(0), 1e-12)

	pos.X = 4
	p.UpdateBoundary()
	assert.InDelta(t, 9.0, bc.Get(0), 1e-12)

	flux, ok := p.BoundaryFlux(membrane.ID())
	require.True(t, ok)
	assert.Equal(t, 0.0, flux.Get(0))

	ecs.RemoveBoundary(membrane.ID())
	p.SyncBoundaries()
	_, ok = p.BoundaryConcentration(membrane.ID())
	assert.False(t, ok)
}

func TestMolecularPopulation_FaceGradient(t *testing.T) {
	ar := spatial.NewArena()
	ecs := newECS(t, ar)
	face, err := ar.NewBoundedRectangle([2]int{9, 9}, 1)
	require.NoError(t, err)
	e, err := spatial.NewDirectEmbedding(face, ecs, r3.Vec{Z: 8}, []int{0, 1})
	require.NoError(t, err)
	require.NoError(t, ecs.AddBoundary(e))

	p, err := NewMolecularPopulation(NewMolecule("x", 1, 1, 0), ecs,
		spatial.NewScalarFieldWith(ecs, spatial.Linear{Axis: 2, Start: 0, Slope: 0.5}), false)
	require.NoError(t, err)

	bc, ok := p.BoundaryConcentration(face.ID())
	require.True(t, ok)
	grad, ok := p.BoundaryGlobalGradient(face.ID())
	require.True(t, ok)
	for k := 0; k < face.ArraySize(); k++ {
		assert.InDelta(t, 4.0, bc.Get(k), 1e-12)
		assert.InDeltaSlice(t, []float64{0, 0, 0.5}, grad.Get(k), 1e-12)
	}
}
