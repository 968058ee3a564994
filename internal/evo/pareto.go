// Package evo selects genome survivors across bench-evaluated candidates
// using multi-objective Pareto dominance: a one-shot frontier, NSGA-II style
// non-dominated sorting with crowding distance, and a next-generation
// composer that refills the population by mutating survivors.
//
// The one-shot frontier and the non-dominated sort deliberately handle
// missing objective values differently. The frontier treats a missing value
// as making that single objective non-comparable for the pair; the sort
// treats it as making the whole pairwise comparison "does not dominate".
// Unifying the two changes frontier membership under sparse data, so both
// rules are kept exactly as they are.
package evo

import (
	"math"
	"sort"

	"swarmdyn/internal/genome"
)

// Direction states whether an objective is maximized or minimized.
type Direction string

const (
	Maximize Direction = "max"
	Minimize Direction = "min"
)

// Objectives maps metric names to optimization directions.
type Objectives map[string]Direction

// Candidate is an objective-scored genome or record entering selection.
// Genome may be nil for records that only carry metrics.
type Candidate struct {
	ID      string
	Genome  *genome.Genome
	Metrics map[string]float64
}

// objective returns the candidate's value for a metric and whether it exists.
func (c Candidate) objective(name string) (float64, bool) {
	v, ok := c.Metrics[name]
	return v, ok
}

// score orients a raw value so that larger is always better.
func score(v float64, dir Direction) float64 {
	if dir == Minimize {
		return -v
	}
	return v
}

// dominatesSkipMissing reports whether a dominates b, skipping any objective
// that is missing on either side (that objective alone becomes
// non-comparable). Used by the one-shot frontier.
func dominatesSkipMissing(a, b Candidate, objs Objectives) bool {
	strictly := false
	for name, dir := range objs {
		va, oka := a.objective(name)
		vb, okb := b.objective(name)
		if !oka || !okb {
			continue
		}
		sa, sb := score(va, dir), score(vb, dir)
		if sa < sb {
			return false
		}
		if sa > sb {
			strictly = true
		}
	}
	return strictly
}

// dominatesStrict reports whether a dominates b, where a missing objective
// value on either side voids the entire comparison. Used by the
// non-dominated sort.
func dominatesStrict(a, b Candidate, objs Objectives) bool {
	strictly := false
	for name, dir := range objs {
		va, oka := a.objective(name)
		vb, okb := b.objective(name)
		if !oka || !okb {
			return false
		}
		sa, sb := score(va, dir), score(vb, dir)
		if sa < sb {
			return false
		}
		if sa > sb {
			strictly = true
		}
	}
	return strictly
}

// ParetoFrontier returns the candidates not dominated by any other, in input
// order.
func ParetoFrontier(items []Candidate, objs Objectives) []Candidate {
	var frontier []Candidate
	for i, c := range items {
		dominated := false
		for j, other := range items {
			if i == j {
				continue
			}
			if dominatesSkipMissing(other, c, objs) {
				dominated = true
				break
			}
		}
		if !dominated {
			frontier = append(frontier, c)
		}
	}
	return frontier
}

// NonDominatedSort partitions candidates into ordered fronts: front 0 is the
// non-dominated optimal set, front 1 is optimal once front 0 is removed, and
// so on. Input order is preserved within each front.
func NonDominatedSort(items []Candidate, objs Objectives) [][]Candidate {
	remaining := append([]Candidate(nil), items...)
	var fronts [][]Candidate

	for len(remaining) > 0 {
		var front, rest []Candidate
		for i, c := range remaining {
			dominated := false
			for j, other := range remaining {
				if i == j {
					continue
				}
				if dominatesStrict(other, c, objs) {
					dominated = true
					break
				}
			}
			if dominated {
				rest = append(rest, c)
			} else {
				front = append(front, c)
			}
		}
		if len(front) == 0 {
			// Mutual non-dominance cannot produce an empty front, but guard
			// against an infinite loop anyway.
			front = rest
			rest = nil
		}
		fronts = append(fronts, front)
		remaining = rest
	}
	return fronts
}

// CrowdingDistance returns each front member's crowding distance, aligned by
// index. Fronts of size <= 2 are all infinite; per objective, the extremes
// are infinite and interior members accumulate the normalized gap between
// their neighbors. Objectives with fewer than two distinct values contribute
// nothing. A missing metric counts as 0 for ordering.
func CrowdingDistance(front []Candidate, objs Objectives) []float64 {
	dist := make([]float64, len(front))
	if len(front) <= 2 {
		for i := range dist {
			dist[i] = math.Inf(1)
		}
		return dist
	}

	names := make([]string, 0, len(objs))
	for name := range objs {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		values := make([]float64, len(front))
		for i, c := range front {
			if v, ok := c.objective(name); ok {
				values[i] = v
			}
		}

		order := make([]int, len(front))
		for i := range order {
			order[i] = i
		}
		sort.SliceStable(order, func(a, b int) bool { return values[order[a]] < values[order[b]] })

		lo, hi := values[order[0]], values[order[len(order)-1]]
		if hi == lo {
			continue
		}

		dist[order[0]] = math.Inf(1)
		dist[order[len(order)-1]] = math.Inf(1)
		for k := 1; k < len(order)-1; k++ {
			if math.IsInf(dist[order[k]], 1) {
				continue
			}
			dist[order[k]] += (values[order[k+1]] - values[order[k-1]]) / (hi - lo)
		}
	}
	return dist
}

// SelectSurvivors picks up to k candidates by consuming fronts in order,
// taking whole fronts while they fit and filling the remainder from the next
// front by descending crowding distance. k >= len(items) returns everything;
// k <= 0 returns none.
func SelectSurvivors(items []Candidate, objs Objectives, k int) []Candidate {
	if k <= 0 {
		return nil
	}
	if k >= len(items) {
		return append([]Candidate(nil), items...)
	}

	var survivors []Candidate
	for _, front := range NonDominatedSort(items, objs) {
		remaining := k - len(survivors)
		if remaining <= 0 {
			break
		}
		if len(front) <= remaining {
			survivors = append(survivors, front...)
			continue
		}

		dist := CrowdingDistance(front, objs)
		order := make([]int, len(front))
		for i := range order {
			order[i] = i
		}
		sort.SliceStable(order, func(a, b int) bool { return dist[order[a]] > dist[order[b]] })
		for _, idx := range order[:remaining] {
			survivors = append(survivors, front[idx])
		}
	}
	return survivors
}
