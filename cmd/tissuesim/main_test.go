package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/daniacca/tissuesim/internal/logging"
	"github.com/daniacca/tissuesim/internal/sim"
)

const testScenario = `
name: two-cells
molecules:
  - name: oxygen
    diffusion_coefficient: 1
medium:
  extents: [6, 6, 6]
  step_size: 1
  populations:
    - molecule: oxygen
      diffusing: true
      initial: {type: constant, value: 1000}
collision:
  grid_step: 2
  phi1: 1
cells:
  - name: epithelial
    count: 2
    radius: 1
    drag: 1
    positions: [[2, 3, 3], [3.5, 3, 3]]
    membrane:
      - molecule: oxygen
    boundary_reactions:
      - kind: boundary_transport_to
        rate: 0.1
        side: medium
        species: [oxygen, oxygen]
`

func writeScenario(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scenario.yaml")
	require.NoError(t, os.WriteFile(path, []byte(testScenario), 0o644))
	return path
}

func TestRun_PrintsSummary(t *testing.T) {
	var out bytes.Buffer
	cfg := RunConfig{ScenarioFile: writeScenario(t), Steps: 1200, Dt: 0.01, Seed: 1}
	require.NoError(t, run(context.Background(), cfg, logging.NewNoOpLogger(), &out))

	text := out.String()
	assert.Contains(t, text, "scenario two-cells: 1,200 steps")
	assert.Contains(t, text, "2 cells")
	assert.Contains(t, text, "oxygen")
	assert.Contains(t, text, "cells epithelial")
}

func TestRun_Errors(t *testing.T) {
	var out bytes.Buffer
	err := run(context.Background(), RunConfig{ScenarioFile: "missing.yaml", Steps: 1, Dt: 0.1}, nil, &out)
	assert.Error(t, err)
}

func TestRun_CancelledIsNotAnError(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	var out bytes.Buffer
	cfg := RunConfig{ScenarioFile: writeScenario(t), Steps: 10, Dt: 0.01}
	require.NoError(t, run(ctx, cfg, logging.NewNoOpLogger(), &out))
	assert.Contains(t, out.String(), "0 steps")
}

func TestServer_Routes(t *testing.T) {
	scenario, err := sim.LoadScenarioConfig(writeScenario(t))
	require.NoError(t, err)
	s, err := sim.BuildSimulationFromConfig(scenario, sim.BuildOptions{})
	require.NoError(t, err)
	require.NoError(t, s.Step(0.01))

	h := NewServer(s, nil, nil).Handler()

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", w.Body.String())

	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/snapshot", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var snap sim.Snapshot
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &snap))
	assert.Equal(t, int64(1), snap.Step)
	assert.Len(t, snap.Cells, 2)
	assert.Equal(t, 1, snap.CriticalPairs)

	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/snapshot", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)

	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ws", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}
