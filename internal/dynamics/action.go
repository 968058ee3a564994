package dynamics

import (
	"fmt"
	"math"
	"sort"

	"swarmdyn/internal/logging"
	"swarmdyn/internal/state"
	"swarmdyn/internal/store"
)

// AnalyzerOptions tunes trap detection.
type AnalyzerOptions struct {
	// MinOutgoing is the minimum observation count before a state can be
	// flagged as a trap.
	MinOutgoing int64
	// ActionLow is the action-rate threshold below which a state looks stuck.
	ActionLow float64
	// DeltaVLow is the mean-|dV| threshold below which a state is not moving
	// on the potential landscape.
	DeltaVLow float64
}

// DefaultAnalyzerOptions returns the standard trap thresholds.
func DefaultAnalyzerOptions() AnalyzerOptions {
	return AnalyzerOptions{
		MinOutgoing: 10,
		ActionLow:   0.2,
		DeltaVLow:   0.05,
	}
}

// Trap flags a state where the swarm is behaviorally stuck.
type Trap struct {
	StateID        string `json:"state_id"`
	Reason         string `json:"reason"`
	Recommendation string `json:"recommendation"`
}

// trapRecommendation is the canned guidance attached to every trap.
const trapRecommendation = "raise sampling temperature and widen speculative parallelism for tasks entering this state"

// ActionSummary aggregates branching-diversity metrics across the graph.
// The action rate (distinct successors over total outgoing observations) is
// a proxy for entropy production: low values mean the swarm keeps replaying
// the same move.
type ActionSummary struct {
	GlobalActionRate float64            `json:"global_action_rate"`
	ByDomain         map[string]float64 `json:"by_domain"`
	Traps            []Trap             `json:"traps"`
}

// AnalyzeActions computes per-state branching diversity and flags traps.
// States absent from the potential map default to V=0; states absent from the
// payload map fall into the "unknown" domain.
func AnalyzeActions(counts []store.TransitionCount, potentials map[string]float64, states map[string]state.Payload, opts AnalyzerOptions) ActionSummary {
	timer := logging.StartTimer(logging.CategoryDynamics, "AnalyzeActions")
	defer timer.Stop()

	type fromStats struct {
		total    int64
		distinct int64
		dvSum    float64 // count-weighted sum of |V(to)-V(from)|
	}
	byFrom := make(map[string]*fromStats)
	for _, tc := range counts {
		st := byFrom[tc.From]
		if st == nil {
			st = &fromStats{}
			byFrom[tc.From] = st
		}
		st.total += tc.Count
		st.distinct++
		st.dvSum += float64(tc.Count) * math.Abs(potentials[tc.To]-potentials[tc.From])
	}

	summary := ActionSummary{ByDomain: make(map[string]float64), Traps: []Trap{}}
	if len(byFrom) == 0 {
		return summary
	}

	var globalNum, globalDen float64
	domainNum := make(map[string]float64)
	domainDen := make(map[string]float64)

	for id, st := range byFrom {
		rate := float64(st.distinct) / float64(st.total)
		dvMean := st.dvSum / float64(st.total)
		w := float64(st.total)

		globalNum += w * rate
		globalDen += w

		domain := "unknown"
		if p, ok := states[id]; ok && p.Domain != "" {
			domain = p.Domain
		}
		domainNum[domain] += w * rate
		domainDen[domain] += w

		if st.total >= opts.MinOutgoing && rate < opts.ActionLow && dvMean < opts.DeltaVLow {
			summary.Traps = append(summary.Traps, Trap{
				StateID: id,
				Reason: fmt.Sprintf("action_rate=%.4f < %.4f and delta_v_mean=%.4f < %.4f over %d outgoing observations",
					rate, opts.ActionLow, dvMean, opts.DeltaVLow, st.total),
				Recommendation: trapRecommendation,
			})
		}
	}

	summary.GlobalActionRate = globalNum / globalDen
	for domain, den := range domainDen {
		summary.ByDomain[domain] = domainNum[domain] / den
	}
	sort.Slice(summary.Traps, func(i, j int) bool {
		return summary.Traps[i].StateID < summary.Traps[j].StateID
	})

	logging.Get(logging.CategoryDynamics).Debugw("action analysis complete",
		"states", len(byFrom), "global_action_rate", summary.GlobalActionRate, "traps", len(summary.Traps))
	return summary
}
