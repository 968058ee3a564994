// Package genome models agent configuration bundles: the system prompt,
// instruction blocks, tool-use rules and sampling parameters for one
// toolchain/domain pair. Genomes are content-addressed — the id is a hash of
// everything except the id and creation time — and form a lineage DAG through
// parent ids. The mutation operator applies a fixed sequence of gated random
// edits so that two runs with identically-seeded generators produce the same
// child, byte for byte.
package genome

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"
)

// SchemaVersion identifies the genome payload format.
const SchemaVersion = "genome.v1"

// IDPrefix marks genome identifiers.
const IDPrefix = "g-"

// Sampling holds the sampling parameters handed to the toolchain.
type Sampling struct {
	Temperature float64 `json:"temperature"`
	TopP        float64 `json:"top_p"`
}

// Genome is a versioned, content-addressed agent configuration bundle.
type Genome struct {
	SchemaVersion     string            `json:"schema_version"`
	GenomeID          string            `json:"genome_id"`
	Domain            string            `json:"domain"`
	Toolchain         string            `json:"toolchain"`
	CreatedAt         time.Time         `json:"created_at"`
	ParentID          string            `json:"parent_id,omitempty"`
	SystemPrompt      string            `json:"system_prompt"`
	InstructionBlocks []string          `json:"instruction_blocks"`
	ToolUseRules      []string          `json:"tool_use_rules"`
	Sampling          Sampling          `json:"sampling"`
	Metadata          map[string]string `json:"metadata,omitempty"`
}

// hashable mirrors Genome without genome_id and created_at, the two fields
// excluded from content addressing.
type hashable struct {
	SchemaVersion     string            `json:"schema_version"`
	Domain            string            `json:"domain"`
	Toolchain         string            `json:"toolchain"`
	ParentID          string            `json:"parent_id,omitempty"`
	SystemPrompt      string            `json:"system_prompt"`
	InstructionBlocks []string          `json:"instruction_blocks"`
	ToolUseRules      []string          `json:"tool_use_rules"`
	Sampling          Sampling          `json:"sampling"`
	Metadata          map[string]string `json:"metadata,omitempty"`
}

// ComputeID returns the content-addressed id for a genome, ignoring any id
// and creation time already set.
func ComputeID(g Genome) string {
	h := hashable{
		SchemaVersion:     g.SchemaVersion,
		Domain:            g.Domain,
		Toolchain:         g.Toolchain,
		ParentID:          g.ParentID,
		SystemPrompt:      g.SystemPrompt,
		InstructionBlocks: normalizeSlice(g.InstructionBlocks),
		ToolUseRules:      normalizeSlice(g.ToolUseRules),
		Sampling:          g.Sampling,
		Metadata:          g.Metadata,
	}
	data, _ := json.Marshal(h)
	sum := sha256.Sum256(data)
	return IDPrefix + hex.EncodeToString(sum[:])
}

// New constructs a genome, stamping the creation time and content id.
func New(domain, toolchain, systemPrompt string, blocks, rules []string, sampling Sampling, metadata map[string]string) Genome {
	g := Genome{
		SchemaVersion:     SchemaVersion,
		Domain:            domain,
		Toolchain:         toolchain,
		CreatedAt:         time.Now().UTC(),
		SystemPrompt:      systemPrompt,
		InstructionBlocks: normalizeSlice(blocks),
		ToolUseRules:      normalizeSlice(rules),
		Sampling:          sampling,
		Metadata:          metadata,
	}
	g.GenomeID = ComputeID(g)
	return g
}

// Clone returns a deep copy of the genome.
func (g Genome) Clone() Genome {
	c := g
	c.InstructionBlocks = append([]string(nil), g.InstructionBlocks...)
	c.ToolUseRules = append([]string(nil), g.ToolUseRules...)
	if g.Metadata != nil {
		c.Metadata = make(map[string]string, len(g.Metadata))
		for k, v := range g.Metadata {
			c.Metadata[k] = v
		}
	}
	return c
}

func normalizeSlice(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
