package genome

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testParent() Genome {
	return New(
		"code",
		"codex",
		"You are a careful coding agent.",
		[]string{"State your plan before editing.", "Keep diffs minimal."},
		[]string{"read a file before writing to it"},
		Sampling{Temperature: 0.7, TopP: 0.95},
		map[string]string{"origin": "seed"},
	)
}

func TestComputeID_IgnoresIDAndCreatedAt(t *testing.T) {
	g := testParent()

	tampered := g
	tampered.GenomeID = "g-bogus"
	tampered.CreatedAt = time.Date(1999, 1, 1, 0, 0, 0, 0, time.UTC)

	require.Equal(t, g.GenomeID, ComputeID(tampered))
}

func TestComputeID_ContentSensitive(t *testing.T) {
	g := testParent()

	changed := g.Clone()
	changed.SystemPrompt += " Be fast."
	assert.NotEqual(t, g.GenomeID, ComputeID(changed))

	changed = g.Clone()
	changed.Sampling.Temperature = 0.71
	assert.NotEqual(t, g.GenomeID, ComputeID(changed))
}

func TestMutate_DeterministicUnderSharedSeed(t *testing.T) {
	parent := testParent()
	const seed = 12345

	first, err := Mutate(parent, rand.New(rand.NewSource(seed)), 1.0)
	require.NoError(t, err)
	second, err := Mutate(parent, rand.New(rand.NewSource(seed)), 1.0)
	require.NoError(t, err)

	assert.Equal(t, first.GenomeID, second.GenomeID)
	assert.Equal(t, first.SystemPrompt, second.SystemPrompt)
	assert.Equal(t, first.InstructionBlocks, second.InstructionBlocks)
	assert.Equal(t, first.ToolUseRules, second.ToolUseRules)
	assert.Equal(t, first.Sampling, second.Sampling)
}

func TestMutate_Lineage(t *testing.T) {
	parent := testParent()
	child, err := Mutate(parent, rand.New(rand.NewSource(7)), 1.0)
	require.NoError(t, err)

	assert.Equal(t, parent.GenomeID, child.ParentID)
	// Even a no-op edit pass changes the id: the parent pointer is part of
	// the hashed content.
	assert.NotEqual(t, parent.GenomeID, child.GenomeID)
	assert.Equal(t, SchemaVersion, child.SchemaVersion)
}

func TestMutate_DoesNotAliasParent(t *testing.T) {
	parent := testParent()
	blocksBefore := append([]string(nil), parent.InstructionBlocks...)
	rulesBefore := append([]string(nil), parent.ToolUseRules...)

	for seed := int64(0); seed < 20; seed++ {
		_, err := Mutate(parent, rand.New(rand.NewSource(seed)), 1.0)
		require.NoError(t, err)
	}
	assert.Equal(t, blocksBefore, parent.InstructionBlocks)
	assert.Equal(t, rulesBefore, parent.ToolUseRules)
}

func TestMutate_SamplingStaysClamped(t *testing.T) {
	parent := testParent()
	parent.Sampling = Sampling{Temperature: 0.99, TopP: 0.01}
	parent.GenomeID = ComputeID(parent)

	g := parent
	rng := rand.New(rand.NewSource(99))
	for i := 0; i < 200; i++ {
		child, err := Mutate(g, rng, 1.5)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, child.Sampling.Temperature, 0.0)
		assert.LessOrEqual(t, child.Sampling.Temperature, 1.0)
		assert.GreaterOrEqual(t, child.Sampling.TopP, 0.0)
		assert.LessOrEqual(t, child.Sampling.TopP, 1.0)
		g = child
	}
}

func TestMutate_ZeroStrengthIsStructuralNoOp(t *testing.T) {
	parent := testParent()
	child, err := Mutate(parent, rand.New(rand.NewSource(3)), 0.0)
	require.NoError(t, err)

	assert.Equal(t, parent.SystemPrompt, child.SystemPrompt)
	assert.Equal(t, parent.InstructionBlocks, child.InstructionBlocks)
	assert.Equal(t, parent.ToolUseRules, child.ToolUseRules)
	assert.Equal(t, parent.Sampling, child.Sampling)
	assert.Equal(t, parent.GenomeID, child.ParentID)
}

func TestMutate_InvalidInputs(t *testing.T) {
	parent := testParent()

	_, err := Mutate(parent, nil, 1.0)
	require.Error(t, err)

	_, err = Mutate(parent, rand.New(rand.NewSource(1)), -0.5)
	require.Error(t, err)
}

func TestMutate_UnknownDomainUsesCodePool(t *testing.T) {
	parent := testParent()
	parent.Domain = "research"
	parent.GenomeID = ComputeID(parent)

	// Mutating an unknown domain must not panic and keeps producing valid
	// children from the default pools.
	rng := rand.New(rand.NewSource(11))
	for i := 0; i < 50; i++ {
		child, err := Mutate(parent, rng, 1.0)
		require.NoError(t, err)
		assert.NotEmpty(t, child.GenomeID)
	}
}
