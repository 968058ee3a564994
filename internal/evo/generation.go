package evo

import (
	"fmt"
	"math/rand"

	"swarmdyn/internal/genome"
	"swarmdyn/internal/logging"
)

// NextGeneration composes the next genome population: survivors chosen by
// NSGA-II selection plus mutated offspring of those survivors, round-robin,
// until popSize genomes exist. Candidates without genomes can survive on
// their metrics but contribute no offspring. Deterministic given a fresh rng.
func NextGeneration(items []Candidate, objs Objectives, k, popSize int, rng *rand.Rand, strength float64) ([]genome.Genome, error) {
	if rng == nil {
		return nil, fmt.Errorf("random source is required")
	}

	survivors := SelectSurvivors(items, objs, k)

	var out []genome.Genome
	var parents []genome.Genome
	for _, c := range survivors {
		if c.Genome == nil {
			continue
		}
		out = append(out, *c.Genome)
		parents = append(parents, *c.Genome)
	}

	if len(parents) == 0 {
		logging.Get(logging.CategoryEvolve).Warnw("no survivor carries a genome, nothing to mutate",
			"survivors", len(survivors))
		return out, nil
	}

	for i := 0; len(out) < popSize; i++ {
		child, err := genome.Mutate(parents[i%len(parents)], rng, strength)
		if err != nil {
			return nil, fmt.Errorf("failed to mutate survivor: %w", err)
		}
		out = append(out, child)
	}

	logging.Get(logging.CategoryEvolve).Infow("next generation composed",
		"survivors", len(parents), "population", len(out))
	return out, nil
}
