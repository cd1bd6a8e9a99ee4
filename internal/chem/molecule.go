// Package chem holds molecular populations on spatial manifolds, the rate laws
// that couple them, and the compartments that step them.
package chem

import (
	"errors"

	"github.com/google/uuid"
)

var (
	// ErrIncompatibleManifolds indicates reaction participants or compartment
	// members that do not share the manifold the rate law requires.
	ErrIncompatibleManifolds = errors.New("chem: incompatible manifolds")

	// ErrUnknownBoundary indicates a boundary id that is not registered on
	// the manifold it is looked up on.
	ErrUnknownBoundary = errors.New("chem: unknown boundary")

	// ErrInvalidRate indicates a negative or non-finite rate constant.
	ErrInvalidRate = errors.New("chem: invalid rate constant")
)

// Molecule describes a molecular species. It is shared by every population of
// that species and never changes after creation.
type Molecule struct {
	GUID                 string
	Name                 string
	MolecularWeight      float64
	EffectiveRadius      float64
	DiffusionCoefficient float64
}

// NewMolecule creates a species descriptor with a fresh GUID.
func NewMolecule(name string, molecularWeight, effectiveRadius, diffusionCoefficient float64) *Molecule {
	return &Molecule{
		GUID:                 uuid.NewString(),
		Name:                 name,
		MolecularWeight:      molecularWeight,
		EffectiveRadius:      effectiveRadius,
		DiffusionCoefficient: diffusionCoefficient,
	}
}
