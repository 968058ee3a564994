// Package dynamics estimates an energy-like potential landscape over the
// observed transition graph and derives behavioral-diversity metrics from it.
// The potential is fit from detailed balance: wherever both directions of a
// state pair have been observed, the log-ratio of their counts pins the
// potential difference between the two states. A weighted least-squares pass
// over those reversible edges yields a scalar V per state, anchored to a
// gauge state fixed at zero.
package dynamics

import (
	"math"
	"sort"

	"swarmdyn/internal/logging"
	"swarmdyn/internal/store"
)

// EstimatorOptions tunes the potential fit.
type EstimatorOptions struct {
	// Alpha is the additive smoothing applied to both directions of a pair
	// before taking the log-ratio.
	Alpha float64
	// Tolerance stops iteration once the largest single update falls below it.
	Tolerance float64
	// LearningRate scales each per-edge gradient step.
	LearningRate float64
	// MaxIter bounds the iteration count.
	MaxIter int
}

// DefaultEstimatorOptions returns the standard fit parameters.
func DefaultEstimatorOptions() EstimatorOptions {
	return EstimatorOptions{
		Alpha:        1.0,
		Tolerance:    1e-6,
		LearningRate: 0.5,
		MaxIter:      2000,
	}
}

// Fit summarizes the quality of a potential fit.
type Fit struct {
	RMSELogRatio float64 `json:"rmse_logratio"`
	EdgesUsed    int     `json:"edges_used"`
}

// PotentialResult holds the fitted potential landscape.
type PotentialResult struct {
	// V maps state id to potential. States with no reversible edge sit at 0.
	V map[string]float64
	// Stderr maps state id to the RMS residual of the edges touching it,
	// falling back to the global RMSE for untouched states.
	Stderr map[string]float64
	Fit    Fit
}

// reversibleEdge is one unordered state pair observed in both directions.
// A and B are ordered lexicographically; Delta is the target V(B)-V(A).
type reversibleEdge struct {
	A      string
	B      string
	Delta  float64
	Weight float64
}

// EstimatePotential fits a potential per state from aggregated transition
// counts. stateIDs seeds the output with states that may have no reversible
// edges; zero states or zero reversible edges are valid degenerate inputs and
// produce a zeroed result rather than an error.
func EstimatePotential(counts []store.TransitionCount, stateIDs []string, opts EstimatorOptions) PotentialResult {
	timer := logging.StartTimer(logging.CategoryDynamics, "EstimatePotential")
	defer timer.Stop()

	pair := make(map[string]map[string]int64)
	outgoing := make(map[string]int64)
	all := make(map[string]struct{})
	for _, id := range stateIDs {
		all[id] = struct{}{}
	}
	for _, tc := range counts {
		if pair[tc.From] == nil {
			pair[tc.From] = make(map[string]int64)
		}
		pair[tc.From][tc.To] += tc.Count
		outgoing[tc.From] += tc.Count
		all[tc.From] = struct{}{}
		all[tc.To] = struct{}{}
	}

	result := PotentialResult{
		V:      make(map[string]float64, len(all)),
		Stderr: make(map[string]float64, len(all)),
	}
	for id := range all {
		result.V[id] = 0.0
	}

	edges := buildReversibleEdges(pair, opts.Alpha)
	result.Fit.EdgesUsed = len(edges)
	if len(edges) == 0 {
		for id := range all {
			result.Stderr[id] = 0.0
		}
		return result
	}

	anchor := chooseAnchor(outgoing)

	maxWeight := 0.0
	for _, e := range edges {
		if e.Weight > maxWeight {
			maxWeight = e.Weight
		}
	}

	// Minimize sum over edges of wnorm * ((V[B]-V[A]) - delta)^2 with the
	// anchor held at zero.
	for iter := 0; iter < opts.MaxIter; iter++ {
		maxUpdate := 0.0
		for _, e := range edges {
			wnorm := e.Weight / maxWeight
			residual := (result.V[e.B] - result.V[e.A]) - e.Delta
			step := opts.LearningRate * wnorm * residual
			if e.B != anchor {
				result.V[e.B] -= step
				if abs := math.Abs(step); abs > maxUpdate {
					maxUpdate = abs
				}
			}
			if e.A != anchor {
				result.V[e.A] += step
				if abs := math.Abs(step); abs > maxUpdate {
					maxUpdate = abs
				}
			}
		}
		if maxUpdate < opts.Tolerance {
			break
		}
	}

	// Residual statistics.
	var sumSq float64
	perState := make(map[string][]float64)
	for _, e := range edges {
		residual := (result.V[e.B] - result.V[e.A]) - e.Delta
		sq := residual * residual
		sumSq += sq
		perState[e.A] = append(perState[e.A], sq)
		perState[e.B] = append(perState[e.B], sq)
	}
	globalRMSE := math.Sqrt(sumSq / float64(len(edges)))
	result.Fit.RMSELogRatio = globalRMSE

	for id := range all {
		sqs, ok := perState[id]
		if !ok {
			result.Stderr[id] = globalRMSE
			continue
		}
		var s float64
		for _, sq := range sqs {
			s += sq
		}
		result.Stderr[id] = math.Sqrt(s / float64(len(sqs)))
	}

	logging.Get(logging.CategoryDynamics).Debugw("potential fit complete",
		"states", len(all), "edges", len(edges), "rmse_logratio", globalRMSE, "anchor", anchor)
	return result
}

// buildReversibleEdges collects one entry per unordered pair observed in both
// directions, dropping self-loops and sorting deterministically.
func buildReversibleEdges(pair map[string]map[string]int64, alpha float64) []reversibleEdge {
	seen := make(map[[2]string]struct{})
	var edges []reversibleEdge
	for from, tos := range pair {
		for to, countAB := range tos {
			if from == to {
				continue
			}
			countBA, ok := pair[to][from]
			if !ok || countAB == 0 || countBA == 0 {
				continue
			}
			a, b := from, to
			cab, cba := countAB, countBA
			if b < a {
				a, b = b, a
				cab, cba = cba, cab
			}
			key := [2]string{a, b}
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			w := float64(cab)
			if float64(cba) < w {
				w = float64(cba)
			}
			edges = append(edges, reversibleEdge{
				A:      a,
				B:      b,
				Delta:  -math.Log((float64(cab) + alpha) / (float64(cba) + alpha)),
				Weight: w,
			})
		}
	}
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].A != edges[j].A {
			return edges[i].A < edges[j].A
		}
		if edges[i].B != edges[j].B {
			return edges[i].B < edges[j].B
		}
		if edges[i].Delta != edges[j].Delta {
			return edges[i].Delta < edges[j].Delta
		}
		return edges[i].Weight < edges[j].Weight
	})
	return edges
}

// chooseAnchor picks the gauge state: largest total outgoing count, ties
// broken by smallest id.
func chooseAnchor(outgoing map[string]int64) string {
	var anchor string
	var best int64 = -1
	ids := make([]string, 0, len(outgoing))
	for id := range outgoing {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		if outgoing[id] > best {
			best = outgoing[id]
			anchor = id
		}
	}
	return anchor
}
