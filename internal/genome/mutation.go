package genome

import (
	"fmt"
	"math"
	"math/rand"
	"strings"
	"time"

	"swarmdyn/internal/logging"
)

// Mutation gate probabilities and step sizes. All gates are scaled by the
// caller-supplied strength.
const (
	temperatureProb = 0.5
	temperatureStep = 0.15
	topPProb        = 0.5
	topPStep        = 0.05
	blockEditProb   = 0.6
	ruleAddProb     = 0.4
	ruleDropProb    = 0.3
	promptProb      = 0.35
)

// domainPools holds the canned edit material per genome domain. Unknown
// domains fall back to the "code" pools.
type domainPool struct {
	blocks  []string
	rules   []string
	clauses []string
}

var pools = map[string]domainPool{
	"code": {
		blocks: []string{
			"Run the full test suite before declaring a task complete.",
			"Prefer minimal diffs: touch only the files the task requires.",
			"When a build fails twice with the same error, re-read the error before editing again.",
			"State your plan as numbered steps before editing any file.",
		},
		rules: []string{
			"never modify files under vendored or generated directories",
			"prefer the project formatter over manual whitespace edits",
			"cap shell commands at one retry before reporting failure",
			"read a file before writing to it",
		},
		clauses: []string{
			"If you are repeating the same action without progress, stop and restate the problem from scratch.",
			"Favor verifying assumptions with a cheap probe over speculating about the cause.",
		},
	},
	"fab_asset": {
		blocks: []string{
			"Validate mesh scale and orientation against the reference grid before export.",
			"Bake textures at the budgeted resolution; never upscale afterwards.",
			"Name materials after their surface, not their color.",
		},
		rules: []string{
			"keep polygon count within the stated budget",
			"export with the canonical axis convention",
			"run the asset validator before handing off",
		},
		clauses: []string{
			"If the render looks wrong twice in a row, inspect the scene graph instead of re-rendering.",
		},
	},
	"fab_world": {
		blocks: []string{
			"Compose scenes from the approved asset catalog before authoring new assets.",
			"Check collision volumes after every placement pass.",
			"Keep lighting rigs consistent with the biome preset.",
		},
		rules: []string{
			"never exceed the per-cell asset budget",
			"snap placements to the world grid",
			"run the navmesh check after terrain edits",
		},
		clauses: []string{
			"If placement keeps failing validation, rebuild from the last valid checkpoint rather than patching in place.",
		},
	},
}

func poolFor(domain string) domainPool {
	if p, ok := pools[domain]; ok {
		return p
	}
	return pools["code"]
}

// Mutate derives a child genome from parent by applying gated random edits in
// a fixed order: temperature jitter, top_p jitter, instruction-block edit,
// tool-rule add/drop, system-prompt append. The draw sequence is part of the
// contract — given a freshly seeded rng, two calls produce byte-identical
// children. Sharing one rng across concurrent calls breaks that and must be
// avoided when reproducibility matters.
func Mutate(parent Genome, rng *rand.Rand, strength float64) (Genome, error) {
	if rng == nil {
		return Genome{}, fmt.Errorf("random source is required")
	}
	if strength < 0 {
		return Genome{}, fmt.Errorf("invalid mutation strength: %v", strength)
	}

	child := parent.Clone()
	child.ParentID = parent.GenomeID
	pool := poolFor(parent.Domain)

	// 1. Temperature jitter.
	if rng.Float64() < temperatureProb*strength {
		delta := (rng.Float64()*2 - 1) * temperatureStep * strength
		child.Sampling.Temperature = round3(clamp01(child.Sampling.Temperature + delta))
	}

	// 2. Top-p jitter, gated independently.
	if rng.Float64() < topPProb*strength {
		delta := (rng.Float64()*2 - 1) * topPStep * strength
		child.Sampling.TopP = round3(clamp01(child.Sampling.TopP + delta))
	}

	// 3. Instruction-block edit: add / drop / swap / no-op.
	if rng.Float64() < blockEditProb*strength {
		switch rng.Intn(4) {
		case 0:
			block := pool.blocks[rng.Intn(len(pool.blocks))]
			if !contains(child.InstructionBlocks, block) {
				child.InstructionBlocks = append(child.InstructionBlocks, block)
			}
		case 1:
			if len(child.InstructionBlocks) > 0 {
				i := rng.Intn(len(child.InstructionBlocks))
				child.InstructionBlocks = append(child.InstructionBlocks[:i], child.InstructionBlocks[i+1:]...)
			}
		case 2:
			if len(child.InstructionBlocks) > 1 {
				i := rng.Intn(len(child.InstructionBlocks))
				j := rng.Intn(len(child.InstructionBlocks))
				child.InstructionBlocks[i], child.InstructionBlocks[j] = child.InstructionBlocks[j], child.InstructionBlocks[i]
			}
		case 3:
			// no-op
		}
	}

	// 4. Tool-rule add and drop, each gated independently.
	if rng.Float64() < ruleAddProb*strength {
		rule := pool.rules[rng.Intn(len(pool.rules))]
		if !contains(child.ToolUseRules, rule) {
			child.ToolUseRules = append(child.ToolUseRules, rule)
		}
	}
	if rng.Float64() < ruleDropProb*strength {
		if len(child.ToolUseRules) > 0 {
			i := rng.Intn(len(child.ToolUseRules))
			child.ToolUseRules = append(child.ToolUseRules[:i], child.ToolUseRules[i+1:]...)
		}
	}

	// 5. System-prompt append.
	if rng.Float64() < promptProb*strength {
		clause := pool.clauses[rng.Intn(len(pool.clauses))]
		if !strings.Contains(child.SystemPrompt, clause) {
			child.SystemPrompt = strings.TrimSpace(child.SystemPrompt + "\n\n" + clause)
		}
	}

	child.CreatedAt = time.Now().UTC()
	child.GenomeID = ComputeID(child)
	logging.Get(logging.CategoryGenome).Debugw("genome mutated",
		"parent", parent.GenomeID, "child", child.GenomeID, "domain", parent.Domain, "strength", strength)
	return child, nil
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}

func contains(items []string, s string) bool {
	for _, item := range items {
		if item == s {
			return true
		}
	}
	return false
}
