package client

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/daniacca/tissuesim/internal/sim"
)

func chemotaxis() *ScenarioBuilder {
	return NewScenario("chemotaxis", [3]float64{10, 10, 10}, 1).
		Molecule("ligand", 10, 0.5, 1).
		Molecule("receptor", 50, 2, 0).
		Molecule("complex", 60, 2, 0).
		Contact(2, 2).
		Medium(NewPopulation("ligand").Diffusing().Linear(0, 1, 0.1)).
		MediumReaction(NewReaction("annihilation", 0.01, "ligand")).
		Cells(NewCellGroup("tcell", 2, 1).
			Drag(1).
			At(3, 3, 3).
			Membrane(NewPopulation("receptor").Constant(1)).
			Membrane(NewPopulation("complex")).
			WithMedium("boundary_association", 0.5, "receptor", "ligand", "complex"))
}

func TestScenarioBuilder(t *testing.T) {
	cfg := chemotaxis().Build()

	assert.Equal(t, "chemotaxis", cfg.Name)
	assert.Len(t, cfg.Molecules, 3)
	assert.Equal(t, sim.CollisionConfig{Phi1: 2, GridStep: 2}, cfg.Collision)
	require.Len(t, cfg.Medium.Populations, 1)
	assert.True(t, cfg.Medium.Populations[0].Diffusing)
	assert.Equal(t, "linear", cfg.Medium.Populations[0].Initial.Type)
	require.Len(t, cfg.Cells, 1)
	g := cfg.Cells[0]
	assert.Equal(t, [][3]float64{{3, 3, 3}}, g.Positions)
	require.Len(t, g.BoundaryReactions, 1)
	assert.Equal(t, sim.SideMedium, g.BoundaryReactions[0].Side)
	assert.Nil(t, g.Membrane[1].Initial)

	require.NoError(t, chemotaxis().Validate())

	s, err := sim.BuildSimulationFromConfig(cfg, sim.BuildOptions{Seed: 3})
	require.NoError(t, err)
	assert.Len(t, s.Cells(), 2)
}

func TestScenarioBuilder_Defaults(t *testing.T) {
	cfg := NewScenario("empty", [3]float64{4, 4, 4}, 0.5).Toroidal().Build()
	assert.Equal(t, 0.5, cfg.Collision.GridStep)
	assert.True(t, cfg.Medium.Toroidal)
	assert.Empty(t, cfg.Cells)
}

func TestScenarioBuilder_ValidateReportsIssues(t *testing.T) {
	err := NewScenario("bad", [3]float64{4, 4, 4}, 1).
		Molecule("a", 1, 1, 1).
		Medium(NewPopulation("b")).
		Cells(NewCellGroup("g", 1, 1).WithCytosol("boundary_transport_from", 1, "a", "a")).
		Validate()
	require.Error(t, err)
	var verr *sim.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.GreaterOrEqual(t, len(verr.Issues), 2)
}

func TestGeneralizedReactionBuilder(t *testing.T) {
	rc := NewGeneralizedReaction(0.3).Reactant("a", 2).Product("b", 1).Build()
	assert.Equal(t, "generalized", rc.Kind)
	assert.Equal(t, []sim.StoichConfig{{Molecule: "a", Coefficient: 2}}, rc.Reactants)
	assert.Equal(t, []sim.StoichConfig{{Molecule: "b", Coefficient: 1}}, rc.Products)

	p := NewPopulation("x").Gaussian([]float64{1, 1, 1}, []float64{2, 2, 2}, 5).Build()
	assert.Equal(t, "gaussian", p.Initial.Type)
	assert.Equal(t, 5.0, p.Initial.Peak)
}
