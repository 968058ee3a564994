package controller

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"swarmdyn/internal/dynamics"
)

func reportWithRate(rate float64) *dynamics.Report {
	return &dynamics.Report{
		SchemaVersion: dynamics.ReportSchemaVersion,
		ActionSummary: dynamics.ActionSummary{
			GlobalActionRate: rate,
			ByDomain:         map[string]float64{"code": rate},
		},
	}
}

func TestDecide_TrapMode(t *testing.T) {
	opts := DefaultOptions()
	decision := Decide(reportWithRate(0.05), Task{ID: "t1", Tags: []string{"backend"}}, opts)

	assert.Equal(t, ModeTrap, decision.Mode)
	assert.Equal(t, opts.DefaultParallelism+opts.ParallelismStep, decision.SpeculateParallelism)
	assert.LessOrEqual(t, decision.SpeculateParallelism, opts.MaxParallelism)
	assert.Greater(t, decision.Temperature, opts.BaseTemperature)
	assert.Equal(t, -1, decision.PriorityRank)
	assert.InDelta(t, 0.05, decision.ActionRate, 1e-9)
}

func TestDecide_TrapModeRespectsCaps(t *testing.T) {
	opts := DefaultOptions()
	opts.DefaultParallelism = opts.MaxParallelism
	opts.BaseTemperature = opts.TemperatureMax

	decision := Decide(reportWithRate(0.05), Task{ID: "t1"}, opts)
	assert.Equal(t, opts.MaxParallelism, decision.SpeculateParallelism)
	assert.Equal(t, opts.TemperatureMax, decision.Temperature)
}

func TestDecide_ChaosMode(t *testing.T) {
	opts := DefaultOptions()
	decision := Decide(reportWithRate(0.9), Task{ID: "t1"}, opts)

	assert.Equal(t, ModeChaos, decision.Mode)
	assert.Equal(t, max(1, opts.DefaultParallelism-opts.ParallelismStep), decision.SpeculateParallelism)
	assert.LessOrEqual(t, decision.Temperature, opts.BaseTemperature)
	assert.Equal(t, 1, decision.PriorityRank)
}

func TestDecide_ChaosParallelismFloor(t *testing.T) {
	opts := DefaultOptions()
	opts.DefaultParallelism = 1

	decision := Decide(reportWithRate(0.9), Task{ID: "t1"}, opts)
	assert.Equal(t, 1, decision.SpeculateParallelism)
}

func TestDecide_BalancedMode(t *testing.T) {
	opts := DefaultOptions()
	decision := Decide(reportWithRate(0.5), Task{ID: "t1"}, opts)

	assert.Equal(t, ModeBalanced, decision.Mode)
	assert.Equal(t, opts.DefaultParallelism, decision.SpeculateParallelism)
	assert.Equal(t, opts.BaseTemperature, decision.Temperature)
	assert.Equal(t, opts.BaseTopP, decision.TopP)
	assert.Zero(t, decision.PriorityRank)
}

func TestDecide_DisabledPaths(t *testing.T) {
	opts := DefaultOptions()

	t.Run("controller off", func(t *testing.T) {
		off := opts
		off.Enabled = false
		decision := Decide(reportWithRate(0.05), Task{ID: "t1"}, off)
		assert.Equal(t, ModeDisabled, decision.Mode)
	})

	t.Run("nil report", func(t *testing.T) {
		decision := Decide(nil, Task{ID: "t1"}, opts)
		assert.Equal(t, ModeDisabled, decision.Mode)
		assert.Equal(t, opts.DefaultParallelism, decision.SpeculateParallelism)
		assert.Equal(t, opts.BaseTemperature, decision.Temperature)
	})

	t.Run("no resolvable rate", func(t *testing.T) {
		empty := &dynamics.Report{SchemaVersion: dynamics.ReportSchemaVersion}
		decision := Decide(empty, Task{ID: "t1"}, opts)
		assert.Equal(t, ModeDisabled, decision.Mode)
	})
}

func TestDecide_FallsBackToGlobalRate(t *testing.T) {
	report := &dynamics.Report{
		SchemaVersion: dynamics.ReportSchemaVersion,
		ActionSummary: dynamics.ActionSummary{
			GlobalActionRate: 0.5,
			ByDomain:         map[string]float64{"fab_world": 0.05},
		},
	}
	// A code task has no domain entry; the global rate applies.
	decision := Decide(report, Task{ID: "t1", Tags: []string{"backend"}}, DefaultOptions())
	assert.Equal(t, ModeBalanced, decision.Mode)
	assert.InDelta(t, 0.5, decision.ActionRate, 1e-9)
}

func TestDecideFromFile_MissingReport(t *testing.T) {
	decision := DecideFromFile(filepath.Join(t.TempDir(), "nope.json"), Task{ID: "t1"}, DefaultOptions())
	assert.Equal(t, ModeDisabled, decision.Mode)
}

func TestDecideFromFile_MalformedReport(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.json")
	require.NoError(t, os.WriteFile(path, []byte("not json"), 0o644))

	decision := DecideFromFile(path, Task{ID: "t1"}, DefaultOptions())
	assert.Equal(t, ModeDisabled, decision.Mode)
}

func TestDomainForTags(t *testing.T) {
	tests := []struct {
		name string
		tags []string
		want string
	}{
		{"no tags", nil, "code"},
		{"plain tags", []string{"backend", "bugfix"}, "code"},
		{"world asset tag", []string{"asset:prop", "world-asset"}, "fab_world"},
		{"asset prefix", []string{"asset:texture"}, "fab_asset"},
		{"bare asset tag", []string{"asset"}, "fab_asset"},
		{"world beats asset", []string{"world-asset", "asset:prop"}, "fab_world"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DomainForTags(tt.tags))
		})
	}
}
