package sim

import (
	"fmt"
	"math"
	"strings"

	"github.com/daniacca/tissuesim/internal/chem"
)

// ValidationError collects multiple validation issues
type ValidationError struct {
	Issues []string
}

func (e *ValidationError) Error() string {
	if len(e.Issues) == 0 {
		return "invalid scenario: unknown validation error"
	}
	if len(e.Issues) == 1 {
		return e.Issues[0]
	}
	return "scenario validation errors: " + strings.Join(e.Issues, "; ")
}

// Add records one issue.
func (e *ValidationError) Add(issue string) {
	e.Issues = append(e.Issues, issue)
}

// Addf records one formatted issue.
func (e *ValidationError) Addf(format string, args ...any) {
	e.Add(fmt.Sprintf(format, args...))
}

// HasIssues reports whether any issue was recorded.
func (e *ValidationError) HasIssues() bool {
	return len(e.Issues) > 0
}

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }

// ValidateScenarioConfig performs comprehensive validation of a ScenarioConfig
func ValidateScenarioConfig(cfg ScenarioConfig) error {
	err := &ValidationError{}

	if cfg.Name == "" {
		err.Add("scenario name is required")
	}

	molecules := make(map[string]bool)
	for i, m := range cfg.Molecules {
		if m.Name == "" {
			err.Addf("molecule at index %d: name is required", i)
			continue
		}
		if molecules[m.Name] {
			err.Add("duplicate molecule name: " + m.Name)
		}
		molecules[m.Name] = true
		if m.DiffusionCoefficient < 0 || !finite(m.DiffusionCoefficient) {
			err.Addf("molecule '%s': diffusion coefficient must be non-negative", m.Name)
		}
	}

	// medium
	for d, e := range cfg.Medium.Extents {
		if !(e > 0) || !finite(e) {
			err.Addf("medium: extent on axis %d must be positive", d)
		}
	}
	if !(cfg.Medium.StepSize > 0) || !finite(cfg.Medium.StepSize) {
		err.Add("medium: step size must be positive")
	}
	medium := validatePopulations(cfg.Medium.Populations, "medium", 3, molecules, err)
	for i, rc := range cfg.Medium.Reactions {
		validateReaction(rc, fmt.Sprintf("medium reaction at index %d", i), medium, err)
	}

	if !(cfg.Collision.GridStep > 0) || !finite(cfg.Collision.GridStep) {
		err.Add("collision: grid step must be positive")
	}
	if !finite(cfg.Collision.Phi1) {
		err.Add("collision: phi1 must be finite")
	}

	groups := make(map[string]bool)
	for i, g := range cfg.Cells {
		prefix := fmt.Sprintf("cell group at index %d", i)
		if g.Name != "" {
			prefix = "cell group '" + g.Name + "'"
			if groups[g.Name] {
				err.Add("duplicate cell group name: " + g.Name)
			}
			groups[g.Name] = true
		}
		if g.Count < 0 {
			err.Add(prefix + ": count must be non-negative")
		}
		if !(g.Radius > 0) || !finite(g.Radius) {
			err.Add(prefix + ": radius must be positive")
		} else if step := cfg.Collision.GridStep; step > 0 && 2*g.Radius > step {
			// pairs are only discovered between neighboring buckets
			err.Addf("%s: diameter %g exceeds collision grid step %g", prefix, 2*g.Radius, step)
		}
		if g.Drag < 0 || !finite(g.Drag) {
			err.Add(prefix + ": drag must be non-negative")
		}
		if len(g.Positions) > g.Count {
			err.Addf("%s: %d positions given for %d cells", prefix, len(g.Positions), g.Count)
		}
		for j, p := range g.Positions {
			for d, x := range p {
				if x < 0 || x > cfg.Medium.Extents[d] || !finite(x) {
					err.Addf("%s: position %d lies outside the medium", prefix, j)
					break
				}
			}
		}

		cytosol := validatePopulations(g.Cytosol, prefix+" cytosol", 0, molecules, err)
		membrane := validatePopulations(g.Membrane, prefix+" membrane", 0, molecules, err)
		for j, rc := range g.CytosolReactions {
			validateReaction(rc, fmt.Sprintf("%s cytosol reaction at index %d", prefix, j), cytosol, err)
		}
		for j, rc := range g.MembraneReactions {
			validateReaction(rc, fmt.Sprintf("%s membrane reaction at index %d", prefix, j), membrane, err)
		}
		for j, br := range g.BoundaryReactions {
			bp := fmt.Sprintf("%s boundary reaction at index %d", prefix, j)
			var bulk map[string]bool
			switch br.Side {
			case SideMedium:
				bulk = medium
			case SideCytosol:
				bulk = cytosol
			default:
				err.Addf("%s: side must be '%s' or '%s', got '%s'", bp, SideMedium, SideCytosol, br.Side)
				continue
			}
			validateBoundaryReaction(br, bp, bulk, membrane, err)
		}
	}

	if err.HasIssues() {
		return err
	}
	return nil
}

// validatePopulations checks a compartment's populations and returns the set
// of molecules present in it.
func validatePopulations(pops []PopulationConfig, prefix string, dim int, molecules map[string]bool, err *ValidationError) map[string]bool {
	present := make(map[string]bool)
	for i, p := range pops {
		pp := fmt.Sprintf("%s population at index %d", prefix, i)
		switch {
		case p.Molecule == "":
			err.Add(pp + ": molecule is required")
			continue
		case !molecules[p.Molecule]:
			err.Addf("%s: molecule '%s' does not exist", pp, p.Molecule)
		case present[p.Molecule]:
			err.Addf("%s: duplicate population of '%s'", prefix, p.Molecule)
		}
		present[p.Molecule] = true
		if p.Initial != nil {
			validateDistribution(*p.Initial, pp, dim, err)
		}
	}
	return present
}

func validateDistribution(d DistributionConfig, prefix string, dim int, err *ValidationError) {
	switch d.Type {
	case "constant":
	case "linear":
		if dim > 0 && (d.Axis < 0 || d.Axis >= dim) {
			err.Addf("%s: linear axis %d out of range", prefix, d.Axis)
		}
	case "gaussian":
		if dim == 0 {
			break
		}
		if len(d.Center) != dim || len(d.Sigma) != dim {
			err.Addf("%s: gaussian center and sigma need %d components", prefix, dim)
			break
		}
		for _, s := range d.Sigma {
			if !(s > 0) {
				err.Add(prefix + ": gaussian sigma must be positive")
				break
			}
		}
	default:
		err.Addf("%s: unknown distribution type '%s'", prefix, d.Type)
	}
}

func validateRate(k float64, prefix string, err *ValidationError) {
	if k < 0 || !finite(k) {
		err.Add(prefix + ": rate must be non-negative")
	}
}

func validateReaction(rc ReactionConfig, prefix string, present map[string]bool, err *ValidationError) {
	validateRate(rc.Rate, prefix, err)
	kind, perr := chem.ParseReactionKind(rc.Kind)
	if perr != nil {
		err.Addf("%s: unknown reaction kind '%s'", prefix, rc.Kind)
		return
	}
	if kind == chem.KindGeneralized {
		if len(rc.Reactants)+len(rc.Products) == 0 {
			err.Add(prefix + ": generalized reaction needs reactants or products")
		}
		for _, s := range append(append([]StoichConfig{}, rc.Reactants...), rc.Products...) {
			if s.Coefficient <= 0 {
				err.Addf("%s: coefficient of '%s' must be positive", prefix, s.Molecule)
			}
			if !present[s.Molecule] {
				err.Addf("%s: species '%s' has no population here", prefix, s.Molecule)
			}
		}
		return
	}
	t, ok := bulkTemplates[kind]
	if !ok {
		err.Addf("%s: '%s' is not a bulk reaction", prefix, rc.Kind)
		return
	}
	if len(rc.Species) != t.arity {
		err.Addf("%s: %s takes %d species, got %d", prefix, rc.Kind, t.arity, len(rc.Species))
		return
	}
	for _, s := range rc.Species {
		if !present[s] {
			err.Addf("%s: species '%s' has no population here", prefix, s)
		}
	}
}

func validateBoundaryReaction(br BoundaryReactionConfig, prefix string, bulk, surface map[string]bool, err *ValidationError) {
	validateRate(br.Rate, prefix, err)
	kind, perr := chem.ParseReactionKind(br.Kind)
	if perr != nil {
		err.Addf("%s: unknown reaction kind '%s'", prefix, br.Kind)
		return
	}
	t, ok := boundaryTemplates[kind]
	if !ok {
		err.Addf("%s: '%s' is not a boundary reaction", prefix, br.Kind)
		return
	}
	if len(br.Species) != len(t.roles) {
		err.Addf("%s: %s takes %d species, got %d", prefix, br.Kind, len(t.roles), len(br.Species))
		return
	}
	for i, s := range br.Species {
		where, set := "membrane", surface
		if t.roles[i] == inBulk {
			where, set = br.Side, bulk
		}
		if !set[s] {
			err.Addf("%s: species '%s' has no population in the %s", prefix, s, where)
		}
	}
}
