package sim

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const scenarioYAML = `
name: chemotaxis
molecules:
  - name: ligand
    molecular_weight: 10
    effective_radius: 0.5
    diffusion_coefficient: 1
  - name: receptor
  - name: complex
medium:
  extents: [10, 10, 10]
  step_size: 1
  populations:
    - molecule: ligand
      diffusing: true
      initial:
        type: linear
        axis: 0
        start: 1
        slope: 0.2
  reactions:
    - kind: annihilation
      rate: 0.01
      species: [ligand]
collision:
  grid_step: 2
  phi1: 1
cells:
  - name: tcell
    count: 3
    radius: 1
    drag: 1
    positions:
      - [2, 2, 2]
      - [7, 7, 7]
    membrane:
      - molecule: receptor
        initial: {type: constant, value: 1}
      - molecule: complex
    boundary_reactions:
      - kind: boundary_association
        rate: 0.5
        side: medium
        species: [receptor, ligand, complex]
`

const scenarioJSON = `{
  "name": "minimal",
  "molecules": [{"name": "x", "diffusion_coefficient": 0.5}],
  "medium": {
    "extents": [4, 4, 4],
    "step_size": 0.5,
    "populations": [{"molecule": "x", "diffusing": true, "initial": {"type": "gaussian", "center": [2, 2, 2], "sigma": [1, 1, 1], "peak": 3}}]
  },
  "collision": {"grid_step": 1, "phi1": 0}
}`

func TestParseScenarioConfig_YAML(t *testing.T) {
	cfg, err := ParseScenarioConfig([]byte(scenarioYAML), "yaml")
	require.NoError(t, err)
	assert.Equal(t, "chemotaxis", cfg.Name)
	require.Len(t, cfg.Molecules, 3)
	assert.Equal(t, 1.0, cfg.Molecules[0].DiffusionCoefficient)
	assert.Equal(t, [3]float64{10, 10, 10}, cfg.Medium.Extents)
	require.NotNil(t, cfg.Medium.Populations[0].Initial)
	assert.Equal(t, "linear", cfg.Medium.Populations[0].Initial.Type)
	assert.Equal(t, 0.2, cfg.Medium.Populations[0].Initial.Slope)
	require.Len(t, cfg.Cells, 1)
	assert.Equal(t, [3]float64{7, 7, 7}, cfg.Cells[0].Positions[1])
	assert.Equal(t, SideMedium, cfg.Cells[0].BoundaryReactions[0].Side)
	assert.NoError(t, ValidateScenarioConfig(cfg))
}

func TestParseScenarioConfig_JSON(t *testing.T) {
	cfg, err := ParseScenarioConfig([]byte(scenarioJSON), "JSON")
	require.NoError(t, err)
	assert.Equal(t, "minimal", cfg.Name)
	assert.Equal(t, []float64{2, 2, 2}, cfg.Medium.Populations[0].Initial.Center)
	assert.NoError(t, ValidateScenarioConfig(cfg))
}

func TestParseScenarioConfig_Errors(t *testing.T) {
	_, err := ParseScenarioConfig([]byte("{"), "json")
	assert.Error(t, err)
	_, err = ParseScenarioConfig([]byte("name: [unclosed"), "yaml")
	assert.Error(t, err)
	_, err = ParseScenarioConfig([]byte(scenarioJSON), "toml")
	assert.Error(t, err)
}

func TestLoadScenarioConfig(t *testing.T) {
	dir := t.TempDir()
	yml := filepath.Join(dir, "s.yml")
	require.NoError(t, os.WriteFile(yml, []byte(scenarioYAML), 0o644))
	js := filepath.Join(dir, "s.json")
	require.NoError(t, os.WriteFile(js, []byte(scenarioJSON), 0o644))

	cfg, err := LoadScenarioConfig(yml)
	require.NoError(t, err)
	assert.Equal(t, "chemotaxis", cfg.Name)

	cfg, err = LoadScenarioConfig(js)
	require.NoError(t, err)
	assert.Equal(t, "minimal", cfg.Name)

	_, err = LoadScenarioConfig(filepath.Join(dir, "missing.json"))
	assert.Error(t, err)
}

func TestLoadScenarioConfig_Example(t *testing.T) {
	cfg, err := LoadScenarioConfig(filepath.Join("..", "..", "examples", "scenarios", "chemotaxis.yaml"))
	require.NoError(t, err)
	require.NoError(t, ValidateScenarioConfig(cfg))

	s, err := BuildSimulationFromConfig(cfg, BuildOptions{Seed: 42})
	require.NoError(t, err)
	assert.Len(t, s.Cells(), 20)
	require.NoError(t, s.Step(0.05))
}
