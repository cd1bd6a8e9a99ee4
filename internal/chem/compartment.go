package chem

import (
	"fmt"

	"github.com/daniacca/tissuesim/internal/logging"
	"github.com/daniacca/tissuesim/internal/spatial"
)

// NativeStepper is an optional accelerated implementation of part of a
// compartment step. It runs first; the interpreted reaction loops are skipped
// for whatever it reports as covered.
type NativeStepper interface {
	Step(dt float64)
	CoversReactions() bool
	CoversBoundaryReactions() bool
}

// Compartment is a bulk manifold with the species living in it, the bulk
// reactions among them and the boundary reactions coupling them to the
// manifold's boundaries.
type Compartment struct {
	interior spatial.Manifold

	populations map[string]*MolecularPopulation
	order       []string

	reactions         []Reaction
	boundaryReactions map[int][]Reaction

	native NativeStepper
	logger logging.Logger
}

// NewCompartment creates an empty compartment over interior.
func NewCompartment(interior spatial.Manifold) *Compartment {
	return NewCompartmentWithLogger(interior, nil)
}

// NewCompartmentWithLogger is NewCompartment with a logger for boundary
// attach and detach events.
func NewCompartmentWithLogger(interior spatial.Manifold, logger logging.Logger) *Compartment {
	return &Compartment{
		interior:          interior,
		populations:       make(map[string]*MolecularPopulation),
		boundaryReactions: make(map[int][]Reaction),
		logger:            logging.OrNoOp(logger),
	}
}

// Interior returns the manifold the compartment's populations live on.
func (c *Compartment) Interior() spatial.Manifold { return c.interior }

// SetLogger replaces the compartment logger; nil installs a no-op logger.
func (c *Compartment) SetLogger(l logging.Logger) { c.logger = logging.OrNoOp(l) }

// SetNativeStepper installs or, with nil, removes the accelerated path.
func (c *Compartment) SetNativeStepper(n NativeStepper) { c.native = n }

// AddMolecularPopulation registers a species on the interior. If the species
// is already present, init is added onto the existing concentration and the
// existing population is returned.
func (c *Compartment) AddMolecularPopulation(mol *Molecule, init spatial.Initializer, isDiffusing bool) (*MolecularPopulation, error) {
	if mol == nil {
		return nil, fmt.Errorf("add population: nil molecule")
	}
	var field *spatial.ScalarField
	if init != nil {
		field = spatial.NewScalarFieldWith(c.interior, init)
	}
	if p, ok := c.populations[mol.GUID]; ok {
		if field != nil {
			if err := p.Conc().Accumulate(field); err != nil {
				return nil, fmt.Errorf("merge population %s: %w", mol.Name, err)
			}
		}
		c.logger.Debugf("merged initial concentration of %s into manifold %d", mol.Name, c.interior.ID())
		return p, nil
	}
	p, err := NewMolecularPopulation(mol, c.interior, field, isDiffusing)
	if err != nil {
		return nil, err
	}
	c.populations[mol.GUID] = p
	c.order = append(c.order, mol.GUID)
	return p, nil
}

// Population returns the population of the species with the given GUID.
func (c *Compartment) Population(guid string) (*MolecularPopulation, bool) {
	p, ok := c.populations[guid]
	return p, ok
}

// Populations returns the populations in registration order.
func (c *Compartment) Populations() []*MolecularPopulation {
	out := make([]*MolecularPopulation, 0, len(c.order))
	for _, guid := range c.order {
		out = append(out, c.populations[guid])
	}
	return out
}

// AddBulkReaction registers a reaction among the interior populations.
func (c *Compartment) AddBulkReaction(r Reaction) error {
	if r == nil {
		return fmt.Errorf("add bulk reaction: nil reaction")
	}
	if !spatial.Same(r.Manifold(), c.interior) {
		return fmt.Errorf("add bulk reaction %s: %w", r.Kind(), ErrIncompatibleManifolds)
	}
	c.reactions = append(c.reactions, r)
	return nil
}

// AddBoundaryReaction registers a reaction under the boundary it couples to.
// The boundary must already be attached to the interior.
func (c *Compartment) AddBoundaryReaction(r BoundaryReaction) error {
	if r == nil {
		return fmt.Errorf("add boundary reaction: nil reaction")
	}
	if !spatial.Same(r.Manifold(), c.interior) {
		return fmt.Errorf("add boundary reaction %s: %w", r.Kind(), ErrIncompatibleManifolds)
	}
	id := r.BoundaryID()
	if _, ok := c.interior.Boundary(id); !ok {
		return fmt.Errorf("add boundary reaction %s: boundary %d: %w", r.Kind(), id, ErrUnknownBoundary)
	}
	c.boundaryReactions[id] = append(c.boundaryReactions[id], r)
	return nil
}

// Reactions returns the bulk reactions in registration order.
func (c *Compartment) Reactions() []Reaction { return c.reactions }

// BoundaryReactions returns the reactions registered under boundary id.
func (c *Compartment) BoundaryReactions(id int) []Reaction { return c.boundaryReactions[id] }

// AddBoundary attaches e to the interior and gives every population its
// boundary bookkeeping for it.
func (c *Compartment) AddBoundary(e spatial.Embedding) error {
	if err := c.interior.AddBoundary(e); err != nil {
		return fmt.Errorf("compartment %d: %w", c.interior.ID(), err)
	}
	for _, p := range c.Populations() {
		p.SyncBoundaries()
	}
	c.logger.Debugf("manifold %d: attached boundary %d", c.interior.ID(), e.Domain().ID())
	return nil
}

// RemoveBoundary detaches boundary id together with its reactions.
func (c *Compartment) RemoveBoundary(id int) {
	c.interior.RemoveBoundary(id)
	delete(c.boundaryReactions, id)
	for _, p := range c.Populations() {
		p.SyncBoundaries()
	}
	c.logger.Debugf("manifold %d: detached boundary %d", c.interior.ID(), id)
}

// Step advances the compartment by dt:
//
//  1. the native stepper, if any
//  2. bulk reactions, then boundary reactions by boundary id, unless covered
//  3. every population: boundary sampling, diffusion and flux settlement
func (c *Compartment) Step(dt float64) {
	if c.native != nil {
		c.native.Step(dt)
	}
	if c.native == nil || !c.native.CoversReactions() {
		for _, r := range c.reactions {
			r.Step(dt)
		}
	}
	if c.native == nil || !c.native.CoversBoundaryReactions() {
		for _, id := range spatial.BoundaryIDs(c.interior) {
			for _, r := range c.boundaryReactions[id] {
				r.Step(dt)
			}
		}
	}
	for _, p := range c.Populations() {
		p.Step(dt)
	}
}

// Total returns the integrated amount of every species, keyed by name.
func (c *Compartment) Total() map[string]float64 {
	out := make(map[string]float64, len(c.order))
	for _, p := range c.Populations() {
		out[p.Molecule.Name] = p.Integrate()
	}
	return out
}
