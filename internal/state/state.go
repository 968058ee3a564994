// Package state defines the coarse T1 fingerprint of an agent execution
// context. A state is a content-addressed snapshot of the inputs that shape
// agent behavior: task domain, job type, salient features, the active policy
// key and the digests of artifacts in play. Identical content always yields
// the identical state id, so independently-captured telemetry converges on
// the same node in the transition graph.
package state

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
)

// SchemaVersion identifies the T1 state payload format.
const SchemaVersion = "state_t1.v1"

// IDPrefix marks state identifiers so they are recognizable in logs and rows.
const IDPrefix = "t1-"

// Payload is the full serialized form of a T1 state.
type Payload struct {
	SchemaVersion   string            `json:"schema_version"`
	Domain          string            `json:"domain"`
	JobType         string            `json:"job_type"`
	Features        map[string]string `json:"features"`
	PolicyKey       map[string]string `json:"policy_key"`
	ArtifactDigests map[string]string `json:"artifact_digests"`
	StateID         string            `json:"state_id"`
}

// hashable mirrors Payload without the state_id field. Hashing operates on
// this shadow so the id never feeds back into itself.
type hashable struct {
	SchemaVersion   string            `json:"schema_version"`
	Domain          string            `json:"domain"`
	JobType         string            `json:"job_type"`
	Features        map[string]string `json:"features"`
	PolicyKey       map[string]string `json:"policy_key"`
	ArtifactDigests map[string]string `json:"artifact_digests"`
}

// Build constructs a T1 state payload and computes its content-addressed id.
// Map insertion order never affects the id: encoding/json emits map keys in
// sorted order, which doubles as the canonical form.
func Build(domain, jobType string, features, policyKey, artifactDigests map[string]string) Payload {
	p := Payload{
		SchemaVersion:   SchemaVersion,
		Domain:          domain,
		JobType:         jobType,
		Features:        normalizeMap(features),
		PolicyKey:       normalizeMap(policyKey),
		ArtifactDigests: normalizeMap(artifactDigests),
	}
	p.StateID = ComputeID(p)
	return p
}

// ComputeID returns the canonical id for a payload, ignoring any id already
// set on it.
func ComputeID(p Payload) string {
	h := hashable{
		SchemaVersion:   p.SchemaVersion,
		Domain:          p.Domain,
		JobType:         p.JobType,
		Features:        normalizeMap(p.Features),
		PolicyKey:       normalizeMap(p.PolicyKey),
		ArtifactDigests: normalizeMap(p.ArtifactDigests),
	}
	// Marshal of a fixed struct with sorted map keys cannot fail.
	data, _ := json.Marshal(h)
	sum := sha256.Sum256(data)
	return IDPrefix + hex.EncodeToString(sum[:])
}

// normalizeMap maps nil to an empty map so a nil and an empty input hash to
// the same id.
func normalizeMap(m map[string]string) map[string]string {
	if m == nil {
		return map[string]string{}
	}
	return m
}
