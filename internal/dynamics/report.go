package dynamics

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"swarmdyn/internal/logging"
	"swarmdyn/internal/store"
)

// ReportSchemaVersion identifies the dynamics report document format.
const ReportSchemaVersion = "dynamics_report.v1"

// Window is the estimation time window derived from observed transitions.
type Window struct {
	Since time.Time `json:"since"`
	Until time.Time `json:"until"`
}

// Estimation describes how the potential fit was produced.
type Estimation struct {
	Window         Window  `json:"window"`
	SmoothingAlpha float64 `json:"smoothing_alpha"`
	Fit            Fit     `json:"fit"`
}

// PotentialRow is one state's fitted potential.
type PotentialRow struct {
	StateID string  `json:"state_id"`
	V       float64 `json:"V"`
	Stderr  float64 `json:"stderr"`
}

// Report is the versioned dynamics snapshot consumed by the exploration
// controller and downstream tooling. Once written it is immutable.
type Report struct {
	SchemaVersion             string         `json:"schema_version"`
	GeneratedAt               time.Time      `json:"generated_at"`
	Estimation                Estimation     `json:"estimation"`
	Potential                 []PotentialRow `json:"potential"`
	ActionSummary             ActionSummary  `json:"action_summary"`
	ControllerRecommendations map[string]any `json:"controller_recommendations"`
}

// BuilderOptions bundles the estimator and analyzer parameters for a report
// build.
type BuilderOptions struct {
	Estimator EstimatorOptions
	Analyzer  AnalyzerOptions
}

// DefaultBuilderOptions returns the standard report build parameters.
func DefaultBuilderOptions() BuilderOptions {
	return BuilderOptions{
		Estimator: DefaultEstimatorOptions(),
		Analyzer:  DefaultAnalyzerOptions(),
	}
}

// BuildReport assembles a dynamics report from the transition store: all
// known states plus the union of transition endpoints, the potential fit and
// the action summary. Rebuilding from an unchanged store with the same
// options yields identical values apart from GeneratedAt.
func BuildReport(st *store.Store, opts BuilderOptions) (*Report, error) {
	timer := logging.StartTimer(logging.CategoryDynamics, "BuildReport")
	defer timer.Stop()

	if st == nil {
		return nil, fmt.Errorf("transition store is required")
	}

	states := st.LoadStates()
	counts := st.TransitionCounts(0)

	ids := make(map[string]struct{}, len(states))
	for id := range states {
		ids[id] = struct{}{}
	}
	for _, tc := range counts {
		ids[tc.From] = struct{}{}
		ids[tc.To] = struct{}{}
	}
	stateIDs := make([]string, 0, len(ids))
	for id := range ids {
		stateIDs = append(stateIDs, id)
	}
	sort.Strings(stateIDs)

	potential := EstimatePotential(counts, stateIDs, opts.Estimator)
	actions := AnalyzeActions(counts, potential.V, states, opts.Analyzer)

	rows := make([]PotentialRow, 0, len(potential.V))
	for id, v := range potential.V {
		rows = append(rows, PotentialRow{StateID: id, V: v, Stderr: potential.Stderr[id]})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].V != rows[j].V {
			return rows[i].V > rows[j].V
		}
		return rows[i].StateID < rows[j].StateID
	})

	report := &Report{
		SchemaVersion: ReportSchemaVersion,
		GeneratedAt:   time.Now().UTC(),
		Estimation: Estimation{
			SmoothingAlpha: opts.Estimator.Alpha,
			Fit:            potential.Fit,
		},
		Potential:                 rows,
		ActionSummary:             actions,
		ControllerRecommendations: map[string]any{},
	}
	if since, until, ok := st.TransitionWindow(); ok {
		report.Estimation.Window = Window{Since: since, Until: until}
	}

	logging.Get(logging.CategoryDynamics).Infow("dynamics report built",
		"states", len(stateIDs), "edges_used", potential.Fit.EdgesUsed,
		"global_action_rate", actions.GlobalActionRate, "traps", len(actions.Traps))
	return report, nil
}

// WriteReport persists a report as indented JSON, creating any missing
// directories.
func WriteReport(r *Report, path string) error {
	if r == nil {
		return fmt.Errorf("report is required")
	}
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create report directory: %w", err)
		}
	}
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}

// LoadReport reads a report from disk. Missing or malformed files are treated
// as absence of data: the warning is logged and ok is false. Scheduling must
// never block on a bad report.
func LoadReport(path string) (*Report, bool) {
	log := logging.Get(logging.CategoryDynamics)

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Warnw("failed to read dynamics report", "path", path, "error", err)
		}
		return nil, false
	}
	var r Report
	if err := json.Unmarshal(data, &r); err != nil {
		log.Warnw("malformed dynamics report, treating as absent", "path", path, "error", err)
		return nil, false
	}
	if r.SchemaVersion != ReportSchemaVersion {
		log.Warnw("unsupported dynamics report schema", "path", path, "schema_version", r.SchemaVersion)
		return nil, false
	}
	return &r, true
}
