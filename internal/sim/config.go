package sim

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

type MoleculeConfig struct {
	Name                 string  `json:"name" yaml:"name"`
	MolecularWeight      float64 `json:"molecular_weight" yaml:"molecular_weight"`
	EffectiveRadius      float64 `json:"effective_radius" yaml:"effective_radius"`
	DiffusionCoefficient float64 `json:"diffusion_coefficient" yaml:"diffusion_coefficient"`
}

// DistributionConfig is an initial concentration profile. Type is one of
// "constant" (Value), "linear" (Axis, Start, Slope) or "gaussian" (Center,
// Sigma, Peak).
type DistributionConfig struct {
	Type   string    `json:"type" yaml:"type"`
	Value  float64   `json:"value,omitempty" yaml:"value,omitempty"`
	Axis   int       `json:"axis,omitempty" yaml:"axis,omitempty"`
	Start  float64   `json:"start,omitempty" yaml:"start,omitempty"`
	Slope  float64   `json:"slope,omitempty" yaml:"slope,omitempty"`
	Center []float64 `json:"center,omitempty" yaml:"center,omitempty"`
	Sigma  []float64 `json:"sigma,omitempty" yaml:"sigma,omitempty"`
	Peak   float64   `json:"peak,omitempty" yaml:"peak,omitempty"`
}

type PopulationConfig struct {
	Molecule  string              `json:"molecule" yaml:"molecule"`
	Diffusing bool                `json:"diffusing,omitempty" yaml:"diffusing,omitempty"`
	Initial   *DistributionConfig `json:"initial,omitempty" yaml:"initial,omitempty"`
}

type StoichConfig struct {
	Molecule    string `json:"molecule" yaml:"molecule"`
	Coefficient int    `json:"coefficient" yaml:"coefficient"`
}

// ReactionConfig declares a bulk reaction. Species lists the participants in
// the order of the kind's constructor; Generalized reactions use Reactants
// and Products instead.
type ReactionConfig struct {
	Kind      string         `json:"kind" yaml:"kind"`
	Rate      float64        `json:"rate" yaml:"rate"`
	Species   []string       `json:"species,omitempty" yaml:"species,omitempty"`
	Reactants []StoichConfig `json:"reactants,omitempty" yaml:"reactants,omitempty"`
	Products  []StoichConfig `json:"products,omitempty" yaml:"products,omitempty"`
}

// BoundaryReactionConfig declares a reaction across a cell membrane. Bulk
// participants live in the medium or in the cytosol, per Side.
type BoundaryReactionConfig struct {
	Kind    string   `json:"kind" yaml:"kind"`
	Rate    float64  `json:"rate" yaml:"rate"`
	Side    string   `json:"side" yaml:"side"`
	Species []string `json:"species" yaml:"species"`
}

const (
	SideMedium  = "medium"
	SideCytosol = "cytosol"
)

type MediumConfig struct {
	Extents     [3]float64         `json:"extents" yaml:"extents"`
	StepSize    float64            `json:"step_size" yaml:"step_size"`
	Toroidal    bool               `json:"toroidal,omitempty" yaml:"toroidal,omitempty"`
	Populations []PopulationConfig `json:"populations,omitempty" yaml:"populations,omitempty"`
	Reactions   []ReactionConfig   `json:"reactions,omitempty" yaml:"reactions,omitempty"`
}

type CollisionConfig struct {
	GridStep float64 `json:"grid_step" yaml:"grid_step"`
	Phi1     float64 `json:"phi1" yaml:"phi1"`
}

// CellGroupConfig declares Count identical cells. Positions pins the first
// len(Positions) of them; the rest are placed uniformly at random.
type CellGroupConfig struct {
	Name              string                   `json:"name" yaml:"name"`
	Count             int                      `json:"count" yaml:"count"`
	Radius            float64                  `json:"radius" yaml:"radius"`
	Drag              float64                  `json:"drag,omitempty" yaml:"drag,omitempty"`
	Positions         [][3]float64             `json:"positions,omitempty" yaml:"positions,omitempty"`
	Cytosol           []PopulationConfig       `json:"cytosol,omitempty" yaml:"cytosol,omitempty"`
	Membrane          []PopulationConfig       `json:"membrane,omitempty" yaml:"membrane,omitempty"`
	CytosolReactions  []ReactionConfig         `json:"cytosol_reactions,omitempty" yaml:"cytosol_reactions,omitempty"`
	MembraneReactions []ReactionConfig         `json:"membrane_reactions,omitempty" yaml:"membrane_reactions,omitempty"`
	BoundaryReactions []BoundaryReactionConfig `json:"boundary_reactions,omitempty" yaml:"boundary_reactions,omitempty"`
}

// ScenarioConfig is the declarative description of a simulation.
type ScenarioConfig struct {
	Name      string            `json:"name" yaml:"name"`
	Molecules []MoleculeConfig  `json:"molecules" yaml:"molecules"`
	Medium    MediumConfig      `json:"medium" yaml:"medium"`
	Collision CollisionConfig   `json:"collision" yaml:"collision"`
	Cells     []CellGroupConfig `json:"cells,omitempty" yaml:"cells,omitempty"`
}

// ParseScenarioConfig decodes a scenario. format is "json" or "yaml".
func ParseScenarioConfig(data []byte, format string) (ScenarioConfig, error) {
	var cfg ScenarioConfig
	switch strings.ToLower(format) {
	case "json":
		if err := json.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("decode json scenario: %w", err)
		}
	case "yaml", "yml":
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("decode yaml scenario: %w", err)
		}
	default:
		return cfg, fmt.Errorf("unsupported scenario format %q", format)
	}
	return cfg, nil
}

// LoadScenarioConfig reads a scenario file, choosing the decoder by
// extension. Anything but .yaml/.yml is read as JSON.
func LoadScenarioConfig(path string) (ScenarioConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return ScenarioConfig{}, fmt.Errorf("read scenario: %w", err)
	}
	format := "json"
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		format = "yaml"
	}
	return ParseScenarioConfig(data, format)
}
