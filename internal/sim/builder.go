package sim

import (
	"fmt"
	"math/rand"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/daniacca/tissuesim/internal/chem"
	"github.com/daniacca/tissuesim/internal/collision"
	"github.com/daniacca/tissuesim/internal/spatial"
)

// BuildOptions carries the runtime collaborators of a scenario build. Seed
// drives random cell placement.
type BuildOptions struct {
	Options
	Seed int64
}

// BuildSimulationFromConfig validates cfg and materializes it: molecules,
// the medium with its populations and reactions, the collision model and
// every cell with its compartments and membrane reactions.
func BuildSimulationFromConfig(cfg ScenarioConfig, opts BuildOptions) (*Simulation, error) {
	if err := ValidateScenarioConfig(cfg); err != nil {
		return nil, err
	}

	molecules := make(map[string]*chem.Molecule, len(cfg.Molecules))
	for _, mc := range cfg.Molecules {
		molecules[mc.Name] = chem.NewMolecule(mc.Name, mc.MolecularWeight, mc.EffectiveRadius, mc.DiffusionCoefficient)
	}

	arena := spatial.NewArena()
	var nodes [3]int
	for d, e := range cfg.Medium.Extents {
		nodes[d] = spatial.NodesForExtent(e, cfg.Medium.StepSize)
	}
	prism, err := arena.NewBoundedRectangularPrism(nodes, cfg.Medium.StepSize)
	if err != nil {
		return nil, fmt.Errorf("medium: %w", err)
	}
	medium := chem.NewCompartmentWithLogger(prism, opts.Logger)
	if err := addPopulations(medium, cfg.Medium.Populations, molecules); err != nil {
		return nil, fmt.Errorf("medium: %w", err)
	}
	if err := addReactions(medium, cfg.Medium.Reactions, molecules); err != nil {
		return nil, fmt.Errorf("medium: %w", err)
	}

	ext := prism.Extents()
	sim, err := NewSimulation(arena, medium, collision.Config{
		Phi1:     cfg.Collision.Phi1,
		GridStep: cfg.Collision.GridStep,
		Extents:  r3.Vec{X: ext[0], Y: ext[1], Z: ext[2]},
		Toroidal: cfg.Medium.Toroidal,
	}, opts.Options)
	if err != nil {
		return nil, err
	}

	rng := rand.New(rand.NewSource(opts.Seed))
	for _, g := range cfg.Cells {
		for i := 0; i < g.Count; i++ {
			var pos r3.Vec
			if i < len(g.Positions) {
				p := g.Positions[i]
				pos = r3.Vec{X: p[0], Y: p[1], Z: p[2]}
			} else {
				pos = r3.Vec{X: rng.Float64() * ext[0], Y: rng.Float64() * ext[1], Z: rng.Float64() * ext[2]}
			}
			if err := buildCell(sim, g, pos, molecules); err != nil {
				return nil, fmt.Errorf("cell group %s, cell %d: %w", g.Name, i, err)
			}
		}
	}

	sim.logger.Infof("scenario %s: %d molecules, %d cells, medium %vx%vx%v nodes",
		cfg.Name, len(molecules), len(sim.cells), nodes[0], nodes[1], nodes[2])
	return sim, nil
}

func buildCell(sim *Simulation, g CellGroupConfig, pos r3.Vec, molecules map[string]*chem.Molecule) error {
	c, err := sim.AddCell(g.Name, pos, g.Radius, g.Drag)
	if err != nil {
		return err
	}
	if err := addPopulations(c.Cytosol, g.Cytosol, molecules); err != nil {
		return fmt.Errorf("cytosol: %w", err)
	}
	if err := addPopulations(c.Membrane, g.Membrane, molecules); err != nil {
		return fmt.Errorf("membrane: %w", err)
	}
	if err := addReactions(c.Cytosol, g.CytosolReactions, molecules); err != nil {
		return fmt.Errorf("cytosol: %w", err)
	}
	if err := addReactions(c.Membrane, g.MembraneReactions, molecules); err != nil {
		return fmt.Errorf("membrane: %w", err)
	}
	for _, br := range g.BoundaryReactions {
		bulk := sim.medium
		if br.Side == SideCytosol {
			bulk = c.Cytosol
		}
		if err := addBoundaryReaction(bulk, c.Membrane, br, molecules); err != nil {
			return err
		}
	}
	return nil
}

func initializer(d *DistributionConfig) spatial.Initializer {
	if d == nil {
		return nil
	}
	switch d.Type {
	case "linear":
		return spatial.Linear{Axis: d.Axis, Start: d.Start, Slope: d.Slope}
	case "gaussian":
		return spatial.Gaussian{Center: d.Center, Sigma: d.Sigma, Peak: d.Peak}
	default:
		return spatial.Constant{C: d.Value}
	}
}

func addPopulations(c *chem.Compartment, pops []PopulationConfig, molecules map[string]*chem.Molecule) error {
	for _, pc := range pops {
		if _, err := c.AddMolecularPopulation(molecules[pc.Molecule], initializer(pc.Initial), pc.Diffusing); err != nil {
			return err
		}
	}
	return nil
}

func lookup(c *chem.Compartment, molecules map[string]*chem.Molecule, name string) (*chem.MolecularPopulation, error) {
	m, ok := molecules[name]
	if !ok {
		return nil, fmt.Errorf("unknown molecule %s", name)
	}
	p, ok := c.Population(m.GUID)
	if !ok {
		return nil, fmt.Errorf("no population of %s on manifold %d", name, c.Interior().ID())
	}
	return p, nil
}

func addReactions(c *chem.Compartment, reactions []ReactionConfig, molecules map[string]*chem.Molecule) error {
	for _, rc := range reactions {
		r, err := buildReaction(c, rc, molecules)
		if err != nil {
			return fmt.Errorf("%s: %w", rc.Kind, err)
		}
		if err := c.AddBulkReaction(r); err != nil {
			return err
		}
	}
	return nil
}

func buildReaction(c *chem.Compartment, rc ReactionConfig, molecules map[string]*chem.Molecule) (chem.Reaction, error) {
	kind, err := chem.ParseReactionKind(rc.Kind)
	if err != nil {
		return nil, err
	}
	if kind == chem.KindGeneralized {
		side := func(list []StoichConfig) ([]chem.Stoich, error) {
			out := make([]chem.Stoich, 0, len(list))
			for _, s := range list {
				p, err := lookup(c, molecules, s.Molecule)
				if err != nil {
					return nil, err
				}
				out = append(out, chem.Stoich{Population: p, Coefficient: s.Coefficient})
			}
			return out, nil
		}
		reactants, err := side(rc.Reactants)
		if err != nil {
			return nil, err
		}
		products, err := side(rc.Products)
		if err != nil {
			return nil, err
		}
		return asReaction(chem.NewGeneralizedReaction(reactants, products, rc.Rate))
	}

	t, ok := bulkTemplates[kind]
	if !ok {
		return nil, fmt.Errorf("not a bulk reaction")
	}
	if len(rc.Species) != t.arity {
		return nil, fmt.Errorf("takes %d species, got %d", t.arity, len(rc.Species))
	}
	pops := make([]*chem.MolecularPopulation, len(rc.Species))
	for i, name := range rc.Species {
		if pops[i], err = lookup(c, molecules, name); err != nil {
			return nil, err
		}
	}
	return t.build(pops, rc.Rate)
}

func addBoundaryReaction(bulk, membrane *chem.Compartment, br BoundaryReactionConfig, molecules map[string]*chem.Molecule) error {
	kind, err := chem.ParseReactionKind(br.Kind)
	if err != nil {
		return err
	}
	t, ok := boundaryTemplates[kind]
	if !ok {
		return fmt.Errorf("%s: not a boundary reaction", br.Kind)
	}
	if len(br.Species) != len(t.roles) {
		return fmt.Errorf("%s: takes %d species, got %d", br.Kind, len(t.roles), len(br.Species))
	}
	pops := make([]*chem.MolecularPopulation, len(br.Species))
	for i, name := range br.Species {
		c := membrane
		if t.roles[i] == inBulk {
			c = bulk
		}
		if pops[i], err = lookup(c, molecules, name); err != nil {
			return fmt.Errorf("%s: %w", br.Kind, err)
		}
	}
	r, err := t.build(pops, br.Rate)
	if err != nil {
		return err
	}
	return bulk.AddBoundaryReaction(r)
}
