// Package client builds tissuesim scenarios with a fluent API and talks to a
// running tissuesim HTTP endpoint.
package client

import (
	"github.com/daniacca/tissuesim/internal/sim"
)

// ScenarioBuilder provides a fluent API for building scenarios.
type ScenarioBuilder struct {
	cfg   sim.ScenarioConfig
	cells []*CellGroupBuilder
}

// NewScenario starts a scenario over a medium of the given extents and grid
// spacing. The contact grid defaults to the medium spacing.
func NewScenario(name string, extents [3]float64, stepSize float64) *ScenarioBuilder {
	return &ScenarioBuilder{cfg: sim.ScenarioConfig{
		Name:      name,
		Medium:    sim.MediumConfig{Extents: extents, StepSize: stepSize},
		Collision: sim.CollisionConfig{GridStep: stepSize},
	}}
}

// Molecule declares a species.
func (sb *ScenarioBuilder) Molecule(name string, molecularWeight, effectiveRadius, diffusion float64) *ScenarioBuilder {
	sb.cfg.Molecules = append(sb.cfg.Molecules, sim.MoleculeConfig{
		Name:                 name,
		MolecularWeight:      molecularWeight,
		EffectiveRadius:      effectiveRadius,
		DiffusionCoefficient: diffusion,
	})
	return sb
}

// Toroidal makes the medium periodic.
func (sb *ScenarioBuilder) Toroidal() *ScenarioBuilder {
	sb.cfg.Medium.Toroidal = true
	return sb
}

// Contact sets the contact force strength and the contact grid spacing.
func (sb *ScenarioBuilder) Contact(phi1, gridStep float64) *ScenarioBuilder {
	sb.cfg.Collision = sim.CollisionConfig{Phi1: phi1, GridStep: gridStep}
	return sb
}

// Medium adds a population to the extracellular medium.
func (sb *ScenarioBuilder) Medium(p *PopulationBuilder) *ScenarioBuilder {
	sb.cfg.Medium.Populations = append(sb.cfg.Medium.Populations, p.Build())
	return sb
}

// MediumReaction adds a bulk reaction to the medium.
func (sb *ScenarioBuilder) MediumReaction(r *ReactionBuilder) *ScenarioBuilder {
	sb.cfg.Medium.Reactions = append(sb.cfg.Medium.Reactions, r.Build())
	return sb
}

// Cells adds a group of cells.
func (sb *ScenarioBuilder) Cells(g *CellGroupBuilder) *ScenarioBuilder {
	sb.cells = append(sb.cells, g)
	return sb
}

// Build returns the scenario. It is not validated; see Validate.
func (sb *ScenarioBuilder) Build() sim.ScenarioConfig {
	cfg := sb.cfg
	cfg.Cells = make([]sim.CellGroupConfig, 0, len(sb.cells))
	for _, g := range sb.cells {
		cfg.Cells = append(cfg.Cells, g.Build())
	}
	return cfg
}

// Validate builds the scenario and checks it.
func (sb *ScenarioBuilder) Validate() error {
	return sim.ValidateScenarioConfig(sb.Build())
}

// PopulationBuilder describes a population and its initial profile.
type PopulationBuilder struct {
	cfg sim.PopulationConfig
}

// NewPopulation starts a population of molecule, empty and non-diffusing.
func NewPopulation(molecule string) *PopulationBuilder {
	return &PopulationBuilder{cfg: sim.PopulationConfig{Molecule: molecule}}
}

func (pb *PopulationBuilder) Diffusing() *PopulationBuilder {
	pb.cfg.Diffusing = true
	return pb
}

func (pb *PopulationBuilder) Constant(c float64) *PopulationBuilder {
	pb.cfg.Initial = &sim.DistributionConfig{Type: "constant", Value: c}
	return pb
}

// Linear sets the profile start + slope*x[axis].
func (pb *PopulationBuilder) Linear(axis int, start, slope float64) *PopulationBuilder {
	pb.cfg.Initial = &sim.DistributionConfig{Type: "linear", Axis: axis, Start: start, Slope: slope}
	return pb
}

func (pb *PopulationBuilder) Gaussian(center, sigma []float64, peak float64) *PopulationBuilder {
	pb.cfg.Initial = &sim.DistributionConfig{Type: "gaussian", Center: center, Sigma: sigma, Peak: peak}
	return pb
}

func (pb *PopulationBuilder) Build() sim.PopulationConfig { return pb.cfg }

// ReactionBuilder describes a bulk reaction.
type ReactionBuilder struct {
	cfg sim.ReactionConfig
}

// NewReaction starts a reaction of the given kind, e.g. "association", with
// species in the order of the kind's participants.
func NewReaction(kind string, rate float64, species ...string) *ReactionBuilder {
	return &ReactionBuilder{cfg: sim.ReactionConfig{Kind: kind, Rate: rate, Species: species}}
}

// NewGeneralizedReaction starts a reaction with explicit stoichiometry; add
// participants with Reactant and Product.
func NewGeneralizedReaction(rate float64) *ReactionBuilder {
	return &ReactionBuilder{cfg: sim.ReactionConfig{Kind: "generalized", Rate: rate}}
}

func (rb *ReactionBuilder) Reactant(molecule string, coefficient int) *ReactionBuilder {
	rb.cfg.Reactants = append(rb.cfg.Reactants, sim.StoichConfig{Molecule: molecule, Coefficient: coefficient})
	return rb
}

func (rb *ReactionBuilder) Product(molecule string, coefficient int) *ReactionBuilder {
	rb.cfg.Products = append(rb.cfg.Products, sim.StoichConfig{Molecule: molecule, Coefficient: coefficient})
	return rb
}

func (rb *ReactionBuilder) Build() sim.ReactionConfig { return rb.cfg }

// CellGroupBuilder describes a group of identical cells.
type CellGroupBuilder struct {
	cfg sim.CellGroupConfig
}

// NewCellGroup starts a group of count cells of the given radius.
func NewCellGroup(name string, count int, radius float64) *CellGroupBuilder {
	return &CellGroupBuilder{cfg: sim.CellGroupConfig{Name: name, Count: count, Radius: radius}}
}

func (cb *CellGroupBuilder) Drag(drag float64) *CellGroupBuilder {
	cb.cfg.Drag = drag
	return cb
}

// At pins the next cell of the group to a position.
func (cb *CellGroupBuilder) At(x, y, z float64) *CellGroupBuilder {
	cb.cfg.Positions = append(cb.cfg.Positions, [3]float64{x, y, z})
	return cb
}

func (cb *CellGroupBuilder) Cytosol(p *PopulationBuilder) *CellGroupBuilder {
	cb.cfg.Cytosol = append(cb.cfg.Cytosol, p.Build())
	return cb
}

func (cb *CellGroupBuilder) Membrane(p *PopulationBuilder) *CellGroupBuilder {
	cb.cfg.Membrane = append(cb.cfg.Membrane, p.Build())
	return cb
}

func (cb *CellGroupBuilder) CytosolReaction(r *ReactionBuilder) *CellGroupBuilder {
	cb.cfg.CytosolReactions = append(cb.cfg.CytosolReactions, r.Build())
	return cb
}

func (cb *CellGroupBuilder) MembraneReaction(r *ReactionBuilder) *CellGroupBuilder {
	cb.cfg.MembraneReactions = append(cb.cfg.MembraneReactions, r.Build())
	return cb
}

// WithMedium adds a reaction between the membrane and the medium.
func (cb *CellGroupBuilder) WithMedium(kind string, rate float64, species ...string) *CellGroupBuilder {
	return cb.boundary(sim.SideMedium, kind, rate, species)
}

// WithCytosol adds a reaction between the membrane and the cytosol.
func (cb *CellGroupBuilder) WithCytosol(kind string, rate float64, species ...string) *CellGroupBuilder {
	return cb.boundary(sim.SideCytosol, kind, rate, species)
}

func (cb *CellGroupBuilder) boundary(side, kind string, rate float64, species []string) *CellGroupBuilder {
	cb.cfg.BoundaryReactions = append(cb.cfg.BoundaryReactions, sim.BoundaryReactionConfig{
		Kind:    kind,
		Rate:    rate,
		Side:    side,
		Species: species,
	})
	return cb
}

func (cb *CellGroupBuilder) Build() sim.CellGroupConfig { return cb.cfg }
