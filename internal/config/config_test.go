package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_OverridesLayerOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := `
store:
  database_path: /tmp/swarm/transitions.db
controller:
  enabled: false
  action_low: 0.2
selection:
  survivors: 8
logging:
  debug: true
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/tmp/swarm/transitions.db", cfg.Store.DatabasePath)
	assert.False(t, cfg.Controller.Enabled)
	assert.InDelta(t, 0.2, cfg.Controller.ActionLow, 1e-9)
	assert.Equal(t, 8, cfg.Selection.Survivors)
	assert.True(t, cfg.Logging.Debug)

	// Untouched sections keep their defaults.
	def := Default()
	assert.Equal(t, def.Store.ReportPath, cfg.Store.ReportPath)
	assert.Equal(t, def.Estimator, cfg.Estimator)
	assert.Equal(t, def.Controller.ActionHigh, cfg.Controller.ActionHigh)
	assert.Equal(t, def.Selection.PopulationSize, cfg.Selection.PopulationSize)
}

func TestLoad_MalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("store: [unbalanced"), 0o644))

	_, err := Load(path)
	require.Error(t, err)
}

func TestOptionsConversions(t *testing.T) {
	cfg := Default()

	est := cfg.Estimator.Options()
	assert.Equal(t, cfg.Estimator.SmoothingAlpha, est.Alpha)
	assert.Equal(t, cfg.Estimator.MaxIterations, est.MaxIter)

	ana := cfg.Analyzer.Options()
	assert.Equal(t, cfg.Analyzer.MinOutgoing, ana.MinOutgoing)

	ctl := cfg.Controller.Options()
	assert.Equal(t, cfg.Controller.MaxParallelism, ctl.MaxParallelism)
	assert.Equal(t, cfg.Controller.BaseTopP, ctl.BaseTopP)
}
