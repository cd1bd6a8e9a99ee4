package chem

import (
	"fmt"

	"github.com/daniacca/tissuesim/internal/spatial"
)

// surfaceLink ties a bulk population to one of its boundaries. Rate laws read
// the bulk concentration sampled on the boundary and push their bulk-side
// change into the boundary flux, which the population settles on its next
// step.
type surfaceLink struct {
	bulk *MolecularPopulation
	id   int
}

func linkBoundary(kind ReactionKind, bulk *MolecularPopulation, surface spatial.Manifold) (surfaceLink, error) {
	if bulk == nil || surface == nil {
		return surfaceLink{}, fmt.Errorf("%s: missing participant", kind)
	}
	e, ok := bulk.Manifold().Boundary(surface.ID())
	if !ok {
		return surfaceLink{}, fmt.Errorf("%s: manifold %d of %s has no boundary %d: %w",
			kind, bulk.Manifold().ID(), bulk.Molecule.Name, surface.ID(), ErrUnknownBoundary)
	}
	if !spatial.Same(e.Domain(), surface) {
		return surfaceLink{}, fmt.Errorf("%s: boundary %d: %w", kind, surface.ID(), ErrIncompatibleManifolds)
	}
	bulk.SyncBoundaries()
	return surfaceLink{bulk: bulk, id: surface.ID()}, nil
}

func (l surfaceLink) fields() (conc, flux []float64, ok bool) {
	c, ok := l.bulk.BoundaryConcentration(l.id)
	if !ok {
		return nil, nil, false
	}
	f, ok := l.bulk.BoundaryFlux(l.id)
	if !ok {
		return nil, nil, false
	}
	return c.Array(), f.Array(), true
}

func sameSurface(kind ReactionKind, pops ...*MolecularPopulation) (spatial.Manifold, error) {
	var m spatial.Manifold
	for _, p := range pops {
		if p == nil {
			return nil, fmt.Errorf("%s: missing participant", kind)
		}
		if m == nil {
			m = p.Manifold()
			continue
		}
		if !spatial.Same(m, p.Manifold()) {
			return nil, fmt.Errorf("%s: %s is on manifold %d, want %d: %w",
				kind, p.Molecule.Name, p.Manifold().ID(), m.ID(), ErrIncompatibleManifolds)
		}
	}
	return m, nil
}

// BoundaryAssociation binds a bulk ligand to a surface receptor:
// receptor + ligand -> complex, I = k*receptor*ligand(boundary).
type BoundaryAssociation struct {
	receptor, complex *MolecularPopulation
	ligand            surfaceLink
	rate              float64
}

// NewBoundaryAssociation requires receptor and complex on one surface that
// is a boundary of ligand's manifold.
func NewBoundaryAssociation(receptor, ligand, complex *MolecularPopulation, k float64) (*BoundaryAssociation, error) {
	const kind = KindBoundaryAssociation
	if err := checkRate(k); err != nil {
		return nil, fmt.Errorf("%s: %w", kind, err)
	}
	surface, err := sameSurface(kind, receptor, complex)
	if err != nil {
		return nil, err
	}
	link, err := linkBoundary(kind, ligand, surface)
	if err != nil {
		return nil, err
	}
	return &BoundaryAssociation{receptor: receptor, complex: complex, ligand: link, rate: k}, nil
}

func (r *BoundaryAssociation) Kind() ReactionKind         { return KindBoundaryAssociation }
func (r *BoundaryAssociation) Rate() float64              { return r.rate }
func (r *BoundaryAssociation) Manifold() spatial.Manifold { return r.ligand.bulk.Manifold() }
func (r *BoundaryAssociation) BoundaryID() int            { return r.ligand.id }

func (r *BoundaryAssociation) Step(dt float64) {
	lc, flux, ok := r.ligand.fields()
	if !ok {
		return
	}
	rec := r.receptor.Conc().Array()
	cpx := r.complex.Conc().Array()
	for k := range rec {
		in := r.rate * rec[k] * lc[k]
		flux[k] += in
		rec[k] -= in * dt
		cpx[k] += in * dt
	}
}

// BoundaryDissociation releases a bound ligand back into the bulk:
// complex -> receptor + ligand, I = k*complex.
type BoundaryDissociation struct {
	receptor, complex *MolecularPopulation
	ligand            surfaceLink
	rate              float64
}

// NewBoundaryDissociation takes the same participants as
// NewBoundaryAssociation.
func NewBoundaryDissociation(receptor, ligand, complex *MolecularPopulation, k float64) (*BoundaryDissociation, error) {
	const kind = KindBoundaryDissociation
	if err := checkRate(k); err != nil {
		return nil, fmt.Errorf("%s: %w", kind, err)
	}
	surface, err := sameSurface(kind, receptor, complex)
	if err != nil {
		return nil, err
	}
	link, err := linkBoundary(kind, ligand, surface)
	if err != nil {
		return nil, err
	}
	return &BoundaryDissociation{receptor: receptor, complex: complex, ligand: link, rate: k}, nil
}

func (r *BoundaryDissociation) Kind() ReactionKind         { return KindBoundaryDissociation }
func (r *BoundaryDissociation) Rate() float64              { return r.rate }
func (r *BoundaryDissociation) Manifold() spatial.Manifold { return r.ligand.bulk.Manifold() }
func (r *BoundaryDissociation) BoundaryID() int            { return r.ligand.id }

func (r *BoundaryDissociation) Step(dt float64) {
	_, flux, ok := r.ligand.fields()
	if !ok {
		return
	}
	rec := r.receptor.Conc().Array()
	cpx := r.complex.Conc().Array()
	for k := range cpx {
		in := r.rate * cpx[k]
		flux[k] -= in
		rec[k] += in * dt
		cpx[k] -= in * dt
	}
}

// BoundaryTransportTo moves a bulk species onto its boundary:
// bulk -> surface, I = k*bulk(boundary).
type BoundaryTransportTo struct {
	surface *MolecularPopulation
	bulk    surfaceLink
	rate    float64
}

// NewBoundaryTransportTo requires surface's manifold to be a boundary of
// bulk's.
func NewBoundaryTransportTo(bulk, surface *MolecularPopulation, k float64) (*BoundaryTransportTo, error) {
	const kind = KindBoundaryTransportTo
	if err := checkRate(k); err != nil {
		return nil, fmt.Errorf("%s: %w", kind, err)
	}
	if surface == nil {
		return nil, fmt.Errorf("%s: missing participant", kind)
	}
	link, err := linkBoundary(kind, bulk, surface.Manifold())
	if err != nil {
		return nil, err
	}
	return &BoundaryTransportTo{surface: surface, bulk: link, rate: k}, nil
}

func (r *BoundaryTransportTo) Kind() ReactionKind         { return KindBoundaryTransportTo }
func (r *BoundaryTransportTo) Rate() float64              { return r.rate }
func (r *BoundaryTransportTo) Manifold() spatial.Manifold { return r.bulk.bulk.Manifold() }
func (r *BoundaryTransportTo) BoundaryID() int            { return r.bulk.id }

func (r *BoundaryTransportTo) Step(dt float64) {
	bc, flux, ok := r.bulk.fields()
	if !ok {
		return
	}
	s := r.surface.Conc().Array()
	for k := range s {
		in := r.rate * bc[k]
		flux[k] += in
		s[k] += in * dt
	}
}

// BoundaryTransportFrom moves a surface species into the bulk it bounds:
// surface -> bulk, I = k*surface.
type BoundaryTransportFrom struct {
	surface *MolecularPopulation
	bulk    surfaceLink
	rate    float64
}

// NewBoundaryTransportFrom requires surface's manifold to be a boundary of
// bulk's.
func NewBoundaryTransportFrom(surface, bulk *MolecularPopulation, k float64) (*BoundaryTransportFrom, error) {
	const kind = KindBoundaryTransportFrom
	if err := checkRate(k); err != nil {
		return nil, fmt.Errorf("%s: %w", kind, err)
	}
	if surface == nil {
		return nil, fmt.Errorf("%s: missing participant", kind)
	}
	link, err := linkBoundary(kind, bulk, surface.Manifold())
	if err != nil {
		return nil, err
	}
	return &BoundaryTransportFrom{surface: surface, bulk: link, rate: k}, nil
}

func (r *BoundaryTransportFrom) Kind() ReactionKind         { return KindBoundaryTransportFrom }
func (r *BoundaryTransportFrom) Rate() float64              { return r.rate }
func (r *BoundaryTransportFrom) Manifold() spatial.Manifold { return r.bulk.bulk.Manifold() }
func (r *BoundaryTransportFrom) BoundaryID() int            { return r.bulk.id }

func (r *BoundaryTransportFrom) Step(dt float64) {
	_, flux, ok := r.bulk.fields()
	if !ok {
		return
	}
	s := r.surface.Conc().Array()
	for k := range s {
		in := r.rate * s[k]
		flux[k] -= in
		s[k] -= in * dt
	}
}

// CatalyzedBoundaryActivation converts a bulk species into its activated form
// wherever a surface catalyst sits: receptor + bulk -> receptor + activated,
// I = k*receptor*bulk(boundary). Both bulk species change only through flux.
type CatalyzedBoundaryActivation struct {
	receptor  *MolecularPopulation
	bulk      surfaceLink
	activated surfaceLink
	rate      float64
}

// NewCatalyzedBoundaryActivation requires bulk and activated on one manifold
// bounded by receptor's.
func NewCatalyzedBoundaryActivation(receptor, bulk, activated *MolecularPopulation, k float64) (*CatalyzedBoundaryActivation, error) {
	const kind = KindCatalyzedBoundaryActivation
	if err := checkRate(k); err != nil {
		return nil, fmt.Errorf("%s: %w", kind, err)
	}
	if receptor == nil {
		return nil, fmt.Errorf("%s: missing participant", kind)
	}
	if _, err := sameSurface(kind, bulk, activated); err != nil {
		return nil, err
	}
	bl, err := linkBoundary(kind, bulk, receptor.Manifold())
	if err != nil {
		return nil, err
	}
	al, err := linkBoundary(kind, activated, receptor.Manifold())
	if err != nil {
		return nil, err
	}
	return &CatalyzedBoundaryActivation{receptor: receptor, bulk: bl, activated: al, rate: k}, nil
}

func (r *CatalyzedBoundaryActivation) Kind() ReactionKind         { return KindCatalyzedBoundaryActivation }
func (r *CatalyzedBoundaryActivation) Rate() float64              { return r.rate }
func (r *CatalyzedBoundaryActivation) Manifold() spatial.Manifold { return r.bulk.bulk.Manifold() }
func (r *CatalyzedBoundaryActivation) BoundaryID() int            { return r.bulk.id }

func (r *CatalyzedBoundaryActivation) Step(dt float64) {
	bc, bflux, ok := r.bulk.fields()
	if !ok {
		return
	}
	_, aflux, ok := r.activated.fields()
	if !ok {
		return
	}
	rec := r.receptor.Conc().Array()
	for k := range rec {
		in := r.rate * rec[k] * bc[k]
		bflux[k] += in
		aflux[k] -= in
	}
}
