package chem

import (
	"fmt"
	"math"
	"strings"

	"gonum.org/v1/gonum/floats"

	"github.com/daniacca/tissuesim/internal/spatial"
)

// ReactionKind names a rate law.
type ReactionKind int

const (
	KindAnnihilation ReactionKind = iota
	KindAssociation
	KindDimerization
	KindDimerDissociation
	KindDissociation
	KindTransformation
	KindAutocatalyticTransformation
	KindCatalyzedAnnihilation
	KindCatalyzedAssociation
	KindCatalyzedCreation
	KindCatalyzedDimerization
	KindCatalyzedDimerDissociation
	KindCatalyzedDissociation
	KindCatalyzedTransformation
	KindGeneralized

	KindBoundaryAssociation
	KindBoundaryDissociation
	KindBoundaryTransportTo
	KindBoundaryTransportFrom
	KindCatalyzedBoundaryActivation
)

var kindNames = map[ReactionKind]string{
	KindAnnihilation:                "Annihilation",
	KindAssociation:                 "Association",
	KindDimerization:                "Dimerization",
	KindDimerDissociation:           "DimerDissociation",
	KindDissociation:                "Dissociation",
	KindTransformation:              "Transformation",
	KindAutocatalyticTransformation: "AutocatalyticTransformation",
	KindCatalyzedAnnihilation:       "CatalyzedAnnihilation",
	KindCatalyzedAssociation:        "CatalyzedAssociation",
	KindCatalyzedCreation:           "CatalyzedCreation",
	KindCatalyzedDimerization:       "CatalyzedDimerization",
	KindCatalyzedDimerDissociation:  "CatalyzedDimerDissociation",
	KindCatalyzedDissociation:       "CatalyzedDissociation",
	KindCatalyzedTransformation:     "CatalyzedTransformation",
	KindGeneralized:                 "GeneralizedReaction",
	KindBoundaryAssociation:         "BoundaryAssociation",
	KindBoundaryDissociation:        "BoundaryDissociation",
	KindBoundaryTransportTo:         "BoundaryTransportTo",
	KindBoundaryTransportFrom:       "BoundaryTransportFrom",
	KindCatalyzedBoundaryActivation: "CatalyzedBoundaryActivation",
}

// String returns the variant name, e.g. "BoundaryTransportTo".
func (k ReactionKind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("ReactionKind(%d)", int(k))
}

// kindAliases are accepted spellings besides the names in kindNames.
var kindAliases = map[string]ReactionKind{
	"generalized": KindGeneralized,
}

// ParseReactionKind is the inverse of String. Matching ignores case and
// underscores, so "boundary_transport_to" names BoundaryTransportTo, and
// "generalized" is accepted for GeneralizedReaction.
func ParseReactionKind(s string) (ReactionKind, error) {
	key := strings.ToLower(strings.ReplaceAll(s, "_", ""))
	if k, ok := kindAliases[key]; ok {
		return k, nil
	}
	for k, name := range kindNames {
		if strings.ToLower(name) == key {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown reaction kind %q", s)
}

// Reaction advances its participants by one explicit Euler step.
//
// Manifold reports the bulk manifold of the compartment that owns the
// reaction.
type Reaction interface {
	Kind() ReactionKind
	Rate() float64
	Manifold() spatial.Manifold
	Step(dt float64)
}

// BoundaryReaction is a Reaction that couples a bulk population to the
// populations living on one of its boundaries.
type BoundaryReaction interface {
	Reaction
	BoundaryID() int
}

func checkRate(k float64) error {
	if k < 0 || math.IsNaN(k) || math.IsInf(k, 0) {
		return fmt.Errorf("%w: %v", ErrInvalidRate, k)
	}
	return nil
}

type factor struct {
	pop   *MolecularPopulation
	power float64
}

type change struct {
	pop   *MolecularPopulation
	coeff float64
}

// MassAction is a bulk reaction whose intensity is k*dt times the product of
// its factors' concentrations, each raised to its stoichiometric power. Every
// participant then changes by its net coefficient times that intensity. The
// intensity is computed in full before any concentration is touched.
type MassAction struct {
	kind      ReactionKind
	rate      float64
	manifold  spatial.Manifold
	factors   []factor
	changes   []change
	intensity []float64
}

func newMassAction(kind ReactionKind, rate float64, factors []factor, changes []change) (*MassAction, error) {
	if err := checkRate(rate); err != nil {
		return nil, fmt.Errorf("%s: %w", kind, err)
	}
	var m spatial.Manifold
	check := func(p *MolecularPopulation) error {
		if p == nil {
			return fmt.Errorf("%s: missing participant", kind)
		}
		if m == nil {
			m = p.Manifold()
			return nil
		}
		if !spatial.Same(m, p.Manifold()) {
			return fmt.Errorf("%s: %s is on manifold %d, want %d: %w",
				kind, p.Molecule.Name, p.Manifold().ID(), m.ID(), ErrIncompatibleManifolds)
		}
		return nil
	}
	for _, f := range factors {
		if err := check(f.pop); err != nil {
			return nil, err
		}
	}
	for _, c := range changes {
		if err := check(c.pop); err != nil {
			return nil, err
		}
	}
	return &MassAction{
		kind:      kind,
		rate:      rate,
		manifold:  m,
		factors:   factors,
		changes:   changes,
		intensity: make([]float64, m.ArraySize()),
	}, nil
}

// Kind returns the variant the reaction was built as.
func (r *MassAction) Kind() ReactionKind { return r.kind }

// Rate returns the rate constant k.
func (r *MassAction) Rate() float64 { return r.rate }

// Manifold returns the manifold shared by every participant.
func (r *MassAction) Manifold() spatial.Manifold { return r.manifold }

// Step applies one explicit Euler update of every participant.
func (r *MassAction) Step(dt float64) {
	in := r.intensity
	for i := range in {
		in[i] = r.rate * dt
	}
	for _, f := range r.factors {
		c := f.pop.Conc().Array()
		if f.power == 1 {
			floats.Mul(in, c)
			continue
		}
		for i := range in {
			in[i] *= math.Pow(c[i], f.power)
		}
	}
	for _, c := range r.changes {
		floats.AddScaled(c.pop.Conc().Array(), c.coeff, in)
	}
}

// NewAnnihilation: a -> 0, I = k*dt*a.
func NewAnnihilation(a *MolecularPopulation, k float64) (*MassAction, error) {
	return newMassAction(KindAnnihilation, k,
		[]factor{{a, 1}},
		[]change{{a, -1}})
}

// NewAssociation: a + b -> c, I = k*dt*a*b.
func NewAssociation(a, b, c *MolecularPopulation, k float64) (*MassAction, error) {
	return newMassAction(KindAssociation, k,
		[]factor{{a, 1}, {b, 1}},
		[]change{{a, -1}, {b, -1}, {c, 1}})
}

// NewDimerization: 2a -> b, I = k*dt*a^2.
func NewDimerization(a, b *MolecularPopulation, k float64) (*MassAction, error) {
	return newMassAction(KindDimerization, k,
		[]factor{{a, 2}},
		[]change{{a, -2}, {b, 1}})
}

// NewDimerDissociation: b -> 2a, I = k*dt*b.
func NewDimerDissociation(b, a *MolecularPopulation, k float64) (*MassAction, error) {
	return newMassAction(KindDimerDissociation, k,
		[]factor{{b, 1}},
		[]change{{b, -1}, {a, 2}})
}

// NewDissociation: c -> a + b, I = k*dt*c.
func NewDissociation(c, a, b *MolecularPopulation, k float64) (*MassAction, error) {
	return newMassAction(KindDissociation, k,
		[]factor{{c, 1}},
		[]change{{c, -1}, {a, 1}, {b, 1}})
}

// NewTransformation: a -> b, I = k*dt*a.
func NewTransformation(a, b *MolecularPopulation, k float64) (*MassAction, error) {
	return newMassAction(KindTransformation, k,
		[]factor{{a, 1}},
		[]change{{a, -1}, {b, 1}})
}

// NewAutocatalyticTransformation: e + a -> 2e, I = k*dt*e*a.
func NewAutocatalyticTransformation(e, a *MolecularPopulation, k float64) (*MassAction, error) {
	return newMassAction(KindAutocatalyticTransformation, k,
		[]factor{{e, 1}, {a, 1}},
		[]change{{e, 1}, {a, -1}})
}

// NewCatalyzedAnnihilation: e + a -> e, I = k*dt*e*a.
func NewCatalyzedAnnihilation(e, a *MolecularPopulation, k float64) (*MassAction, error) {
	return newMassAction(KindCatalyzedAnnihilation, k,
		[]factor{{e, 1}, {a, 1}},
		[]change{{a, -1}})
}

// NewCatalyzedAssociation: e + a + b -> e + c, I = k*dt*e*a*b.
func NewCatalyzedAssociation(e, a, b, c *MolecularPopulation, k float64) (*MassAction, error) {
	return newMassAction(KindCatalyzedAssociation, k,
		[]factor{{e, 1}, {a, 1}, {b, 1}},
		[]change{{a, -1}, {b, -1}, {c, 1}})
}

// NewCatalyzedCreation: e -> e + a, I = k*dt*e.
func NewCatalyzedCreation(e, a *MolecularPopulation, k float64) (*MassAction, error) {
	return newMassAction(KindCatalyzedCreation, k,
		[]factor{{e, 1}},
		[]change{{a, 1}})
}

// NewCatalyzedDimerization: e + 2a -> e + b, I = k*dt*a*e.
func NewCatalyzedDimerization(e, a, b *MolecularPopulation, k float64) (*MassAction, error) {
	return newMassAction(KindCatalyzedDimerization, k,
		[]factor{{a, 1}, {e, 1}},
		[]change{{a, -2}, {b, 1}})
}

// NewCatalyzedDimerDissociation: e + b -> e + 2a, I = k*dt*e*b.
func NewCatalyzedDimerDissociation(e, b, a *MolecularPopulation, k float64) (*MassAction, error) {
	return newMassAction(KindCatalyzedDimerDissociation, k,
		[]factor{{e, 1}, {b, 1}},
		[]change{{b, -1}, {a, 2}})
}

// NewCatalyzedDissociation: e + c -> e + a + b, I = k*dt*e*c.
func NewCatalyzedDissociation(e, c, a, b *MolecularPopulation, k float64) (*MassAction, error) {
	return newMassAction(KindCatalyzedDissociation, k,
		[]factor{{e, 1}, {c, 1}},
		[]change{{c, -1}, {a, 1}, {b, 1}})
}

// NewCatalyzedTransformation: e + a -> e + b, I = k*dt*e*a.
func NewCatalyzedTransformation(e, a, b *MolecularPopulation, k float64) (*MassAction, error) {
	return newMassAction(KindCatalyzedTransformation, k,
		[]factor{{e, 1}, {a, 1}},
		[]change{{a, -1}, {b, 1}})
}

// Stoich is one side's coefficient for a population in a generalized
// reaction.
type Stoich struct {
	Population  *MolecularPopulation
	Coefficient int
}

// NewGeneralizedReaction builds an arbitrary mass-action reaction. The
// intensity is k*dt*prod(reactant^coefficient) and every participant changes
// by (product coefficient - reactant coefficient) times the intensity.
// Repeated entries for the same population are summed.
func NewGeneralizedReaction(reactants, products []Stoich, k float64) (*MassAction, error) {
	var order []*MolecularPopulation
	in := make(map[*MolecularPopulation]int)
	net := make(map[*MolecularPopulation]int)
	seen := func(p *MolecularPopulation) {
		if _, ok := net[p]; !ok {
			order = append(order, p)
			net[p] = 0
		}
	}
	for _, s := range reactants {
		if s.Coefficient <= 0 {
			return nil, fmt.Errorf("%s: reactant coefficient %d must be positive", KindGeneralized, s.Coefficient)
		}
		seen(s.Population)
		in[s.Population] += s.Coefficient
		net[s.Population] -= s.Coefficient
	}
	for _, s := range products {
		if s.Coefficient <= 0 {
			return nil, fmt.Errorf("%s: product coefficient %d must be positive", KindGeneralized, s.Coefficient)
		}
		seen(s.Population)
		net[s.Population] += s.Coefficient
	}
	if len(order) == 0 {
		return nil, fmt.Errorf("%s: no participants", KindGeneralized)
	}

	var factors []factor
	var changes []change
	for _, p := range order {
		if n := in[p]; n > 0 {
			factors = append(factors, factor{p, float64(n)})
		}
		if d := net[p]; d != 0 {
			changes = append(changes, change{p, float64(d)})
		}
	}
	// with no reactants the intensity is the constant k*dt
	return newMassAction(KindGeneralized, k, factors, changes)
}
