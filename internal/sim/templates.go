package sim

import (
	"github.com/daniacca/tissuesim/internal/chem"
)

type role int

const (
	onSurface role = iota
	inBulk
)

// bulkTemplate builds a mass-action reaction from populations listed in the
// constructor's argument order.
type bulkTemplate struct {
	arity int
	build func(p []*chem.MolecularPopulation, k float64) (chem.Reaction, error)
}

// boundaryTemplate builds a membrane reaction; roles says where each listed
// species lives.
type boundaryTemplate struct {
	roles []role
	build func(p []*chem.MolecularPopulation, k float64) (chem.BoundaryReaction, error)
}

func asReaction[R chem.Reaction](r R, err error) (chem.Reaction, error) {
	if err != nil {
		return nil, err
	}
	return r, nil
}

func asBoundaryReaction[R chem.BoundaryReaction](r R, err error) (chem.BoundaryReaction, error) {
	if err != nil {
		return nil, err
	}
	return r, nil
}

var bulkTemplates = map[chem.ReactionKind]bulkTemplate{
	chem.KindAnnihilation: {1, func(p []*chem.MolecularPopulation, k float64) (chem.Reaction, error) {
		return asReaction(chem.NewAnnihilation(p[0], k))
	}},
	chem.KindAssociation: {3, func(p []*chem.MolecularPopulation, k float64) (chem.Reaction, error) {
		return asReaction(chem.NewAssociation(p[0], p[1], p[2], k))
	}},
	chem.KindDimerization: {2, func(p []*chem.MolecularPopulation, k float64) (chem.Reaction, error) {
		return asReaction(chem.NewDimerization(p[0], p[1], k))
	}},
	chem.KindDimerDissociation: {2, func(p []*chem.MolecularPopulation, k float64) (chem.Reaction, error) {
		return asReaction(chem.NewDimerDissociation(p[0], p[1], k))
	}},
	chem.KindDissociation: {3, func(p []*chem.MolecularPopulation, k float64) (chem.Reaction, error) {
		return asReaction(chem.NewDissociation(p[0], p[1], p[2], k))
	}},
	chem.KindTransformation: {2, func(p []*chem.MolecularPopulation, k float64) (chem.Reaction, error) {
		return asReaction(chem.NewTransformation(p[0], p[1], k))
	}},
	chem.KindAutocatalyticTransformation: {2, func(p []*chem.MolecularPopulation, k float64) (chem.Reaction, error) {
		return asReaction(chem.NewAutocatalyticTransformation(p[0], p[1], k))
	}},
	chem.KindCatalyzedAnnihilation: {2, func(p []*chem.MolecularPopulation, k float64) (chem.Reaction, error) {
		return asReaction(chem.NewCatalyzedAnnihilation(p[0], p[1], k))
	}},
	chem.KindCatalyzedAssociation: {4, func(p []*chem.MolecularPopulation, k float64) (chem.Reaction, error) {
		return asReaction(chem.NewCatalyzedAssociation(p[0], p[1], p[2], p[3], k))
	}},
	chem.KindCatalyzedCreation: {2, func(p []*chem.MolecularPopulation, k float64) (chem.Reaction, error) {
		return asReaction(chem.NewCatalyzedCreation(p[0], p[1], k))
	}},
	chem.KindCatalyzedDimerization: {3, func(p []*chem.MolecularPopulation, k float64) (chem.Reaction, error) {
		return asReaction(chem.NewCatalyzedDimerization(p[0], p[1], p[2], k))
	}},
	chem.KindCatalyzedDimerDissociation: {3, func(p []*chem.MolecularPopulation, k float64) (chem.Reaction, error) {
		return asReaction(chem.NewCatalyzedDimerDissociation(p[0], p[1], p[2], k))
	}},
	chem.KindCatalyzedDissociation: {4, func(p []*chem.MolecularPopulation, k float64) (chem.Reaction, error) {
		return asReaction(chem.NewCatalyzedDissociation(p[0], p[1], p[2], p[3], k))
	}},
	chem.KindCatalyzedTransformation: {3, func(p []*chem.MolecularPopulation, k float64) (chem.Reaction, error) {
		return asReaction(chem.NewCatalyzedTransformation(p[0], p[1], p[2], k))
	}},
}

var boundaryTemplates = map[chem.ReactionKind]boundaryTemplate{
	chem.KindBoundaryAssociation: {[]role{onSurface, inBulk, onSurface}, func(p []*chem.MolecularPopulation, k float64) (chem.BoundaryReaction, error) {
		return asBoundaryReaction(chem.NewBoundaryAssociation(p[0], p[1], p[2], k))
	}},
	chem.KindBoundaryDissociation: {[]role{onSurface, inBulk, onSurface}, func(p []*chem.MolecularPopulation, k float64) (chem.BoundaryReaction, error) {
		return asBoundaryReaction(chem.NewBoundaryDissociation(p[0], p[1], p[2], k))
	}},
	chem.KindBoundaryTransportTo: {[]role{inBulk, onSurface}, func(p []*chem.MolecularPopulation, k float64) (chem.BoundaryReaction, error) {
		return asBoundaryReaction(chem.NewBoundaryTransportTo(p[0], p[1], k))
	}},
	chem.KindBoundaryTransportFrom: {[]role{onSurface, inBulk}, func(p []*chem.MolecularPopulation, k float64) (chem.BoundaryReaction, error) {
		return asBoundaryReaction(chem.NewBoundaryTransportFrom(p[0], p[1], k))
	}},
	chem.KindCatalyzedBoundaryActivation: {[]role{onSurface, inBulk, inBulk}, func(p []*chem.MolecularPopulation, k float64) (chem.BoundaryReaction, error) {
		return asBoundaryReaction(chem.NewCatalyzedBoundaryActivation(p[0], p[1], p[2], k))
	}},
}
