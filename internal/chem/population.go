package chem

import (
	"fmt"

	"gonum.org/v1/gonum/floats"

	"github.com/daniacca/tissuesim/internal/spatial"
)

// MolecularPopulation is the concentration of one species on one manifold,
// plus what it exchanges with every boundary of that manifold.
//
// Boundary flux is positive when it points out of the bulk, i.e. when it
// lowers the bulk concentration.
type MolecularPopulation struct {
	Molecule    *Molecule
	IsDiffusing bool

	manifold spatial.Manifold
	conc     *spatial.ScalarField

	boundaryConcs     map[int]*spatial.ScalarField
	boundaryFluxes    map[int]*spatial.ScalarField
	boundaryGradients map[int]*spatial.VectorField

	laplacian []float64
}

// NewMolecularPopulation creates a population over m. init may be nil for an
// empty population; otherwise it must live on m and is copied.
func NewMolecularPopulation(mol *Molecule, m spatial.Manifold, init *spatial.ScalarField, isDiffusing bool) (*MolecularPopulation, error) {
	if mol == nil {
		return nil, fmt.Errorf("molecular population needs a molecule")
	}
	if m == nil {
		return nil, fmt.Errorf("molecular population of %s needs a manifold", mol.Name)
	}
	conc := spatial.NewScalarField(m)
	if init != nil {
		if err := conc.Accumulate(init); err != nil {
			return nil, fmt.Errorf("initial concentration of %s: %w", mol.Name, err)
		}
	}
	p := &MolecularPopulation{
		Molecule:          mol,
		IsDiffusing:       isDiffusing,
		manifold:          m,
		conc:              conc,
		boundaryConcs:     make(map[int]*spatial.ScalarField),
		boundaryFluxes:    make(map[int]*spatial.ScalarField),
		boundaryGradients: make(map[int]*spatial.VectorField),
	}
	p.SyncBoundaries()
	return p, nil
}

func (p *MolecularPopulation) Manifold() spatial.Manifold { return p.manifold }

// Conc returns the owned concentration field.
func (p *MolecularPopulation) Conc() *spatial.ScalarField { return p.conc }

// Concentration interpolates the concentration at a local point.
func (p *MolecularPopulation) Concentration(point []float64) float64 {
	return p.conc.ValueAt(point)
}

// ConcentrationAt returns the concentration at node i.
func (p *MolecularPopulation) ConcentrationAt(i int) float64 {
	return p.conc.Get(i)
}

// Gradient interpolates the concentration gradient at a local point.
func (p *MolecularPopulation) Gradient(point []float64) []float64 {
	return p.conc.GradientAtPoint(point)
}

// Integrate returns the total amount on the manifold.
func (p *MolecularPopulation) Integrate() float64 {
	return p.manifold.Integrate(p.conc)
}

// BoundaryConcentration returns the concentration sampled on boundary id, as
// a field over the boundary manifold.
func (p *MolecularPopulation) BoundaryConcentration(id int) (*spatial.ScalarField, bool) {
	f, ok := p.boundaryConcs[id]
	return f, ok
}

// BoundaryFlux returns the outward flux accumulated on boundary id since it
// was last settled.
func (p *MolecularPopulation) BoundaryFlux(id int) (*spatial.ScalarField, bool) {
	f, ok := p.boundaryFluxes[id]
	return f, ok
}

// BoundaryGlobalGradient returns the bulk gradient sampled on boundary id, in
// the coordinates of this population's manifold. Only direct embeddings
// maintain it.
func (p *MolecularPopulation) BoundaryGlobalGradient(id int) (*spatial.VectorField, bool) {
	f, ok := p.boundaryGradients[id]
	return f, ok
}

// SyncBoundaries makes the boundary bookkeeping match the manifold's current
// boundaries: new boundaries get zeroed flux and freshly sampled
// concentrations, vanished ones are dropped.
func (p *MolecularPopulation) SyncBoundaries() {
	current := p.manifold.Boundaries()
	for id := range p.boundaryConcs {
		if _, ok := current[id]; !ok {
			p.detachBoundary(id)
		}
	}
	for id, e := range current {
		if _, ok := p.boundaryConcs[id]; !ok {
			p.attachBoundary(id, e)
		}
	}
}

func (p *MolecularPopulation) attachBoundary(id int, e spatial.Embedding) {
	dom := e.Domain()
	p.boundaryConcs[id] = spatial.NewScalarField(dom)
	p.boundaryFluxes[id] = spatial.NewScalarField(dom)
	p.boundaryGradients[id] = spatial.NewVectorField(dom, p.manifold.Dim())
	p.updateBoundary(id, e)
}

func (p *MolecularPopulation) detachBoundary(id int) {
	delete(p.boundaryConcs, id)
	delete(p.boundaryFluxes, id)
	delete(p.boundaryGradients, id)
}

// UpdateBoundary samples the concentration on every boundary.
func (p *MolecularPopulation) UpdateBoundary() {
	for _, id := range spatial.BoundaryIDs(p.manifold) {
		e, _ := p.manifold.Boundary(id)
		if _, ok := p.boundaryConcs[id]; !ok {
			p.attachBoundary(id, e)
			continue
		}
		p.updateBoundary(id, e)
	}
}

func (p *MolecularPopulation) updateBoundary(id int, e spatial.Embedding) {
	bc := p.boundaryConcs[id]
	if e.NeedsInterpolation() {
		for k := 0; k < e.Domain().ArraySize(); k++ {
			bc.Set(k, p.conc.ValueAt(e.PositionOf(k)))
		}
		return
	}
	grad := p.boundaryGradients[id]
	for k := 0; k < e.Domain().ArraySize(); k++ {
		i := e.IndexOf(k)
		if i < 0 {
			continue
		}
		bc.Set(k, p.conc.Get(i))
		// lengths match by construction
		_ = grad.Set(k, p.conc.GradientAt(i))
	}
}

// Step samples the boundaries, diffuses when the manifold has internal
// structure and the species is diffusing, then settles the boundary flux
// deposited since the previous step.
func (p *MolecularPopulation) Step(dt float64) {
	p.UpdateBoundary()
	if p.IsDiffusing && !spatial.IsDegenerate(p.manifold) {
		p.diffuse(dt)
	}
	p.settleBoundaryFlux(dt)
}

func (p *MolecularPopulation) diffuse(dt float64) {
	c := p.conc.Array()
	if len(p.laplacian) != len(c) {
		p.laplacian = make([]float64, len(c))
	}
	for i := range c {
		v := 0.0
		for _, s := range p.manifold.LaplacianStencil(i) {
			v += s.Weight * c[s.Index]
		}
		p.laplacian[i] = v
	}
	floats.AddScaled(c, p.Molecule.DiffusionCoefficient*dt, p.laplacian)
}

// settleBoundaryFlux moves each boundary's accumulated flux into the bulk
// nodes around the boundary, scaled by boundary measure over bulk voxel
// volume, and zeroes the flux.
func (p *MolecularPopulation) settleBoundaryFlux(dt float64) {
	c := p.conc.Array()
	volume := p.manifold.VoxelVolume()
	for _, id := range spatial.BoundaryIDs(p.manifold) {
		flux, ok := p.boundaryFluxes[id]
		if !ok {
			continue
		}
		e, _ := p.manifold.Boundary(id)
		scale := dt * e.Domain().VoxelVolume() / volume
		for k, f := range flux.Array() {
			if f == 0 {
				continue
			}
			if !e.NeedsInterpolation() {
				if i := e.IndexOf(k); i >= 0 {
					c[i] -= f * scale
				}
				continue
			}
			for _, s := range p.manifold.InterpolationStencil(e.PositionOf(k)) {
				c[s.Index] -= s.Weight * f * scale
			}
		}
		flux.Reset()
	}
}
