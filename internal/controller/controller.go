// Package controller turns a dynamics report into per-task tuning decisions.
// It is a stateless four-mode machine evaluated fresh on every call: traps
// widen the search (more parallelism, hotter sampling, elevated priority),
// chaos narrows it, balanced leaves the task alone and anything unresolvable
// fails open into disabled. The absence of a valid report must never block
// scheduling.
package controller

import (
	"fmt"
	"strings"

	"swarmdyn/internal/dynamics"
	"swarmdyn/internal/logging"
)

// Mode is the control mode chosen for a task.
type Mode string

const (
	ModeDisabled Mode = "disabled"
	ModeTrap     Mode = "trap"
	ModeChaos    Mode = "chaos"
	ModeBalanced Mode = "balanced"
)

// Task is the unit of work handed over by the dispatcher.
type Task struct {
	ID   string
	Tags []string
}

// Options tunes the controller thresholds and adjustment steps.
type Options struct {
	Enabled bool

	// Action-rate thresholds delimiting trap / balanced / chaos.
	ActionLow  float64
	ActionHigh float64

	// Speculative parallelism tuning.
	DefaultParallelism int
	MaxParallelism     int
	ParallelismStep    int

	// Sampling tuning.
	BaseTemperature float64
	TemperatureStep float64
	TemperatureMin  float64
	TemperatureMax  float64
	BaseTopP        float64
}

// DefaultOptions returns the standard controller tuning.
func DefaultOptions() Options {
	return Options{
		Enabled:            true,
		ActionLow:          0.1,
		ActionHigh:         0.8,
		DefaultParallelism: 2,
		MaxParallelism:     6,
		ParallelismStep:    1,
		BaseTemperature:    0.7,
		TemperatureStep:    0.15,
		TemperatureMin:     0.1,
		TemperatureMax:     1.0,
		BaseTopP:           0.95,
	}
}

// Decision is the per-task tuning output. It is a pure function of the
// report, the task tags and the options, and is never persisted.
type Decision struct {
	Mode                 Mode    `json:"mode"`
	ActionRate           float64 `json:"action_rate"`
	Temperature          float64 `json:"temperature"`
	TopP                 float64 `json:"top_p"`
	SpeculateParallelism int     `json:"speculate_parallelism"`
	PriorityRank         int     `json:"priority_rank"`
	Reason               string  `json:"reason"`
}

// DomainForTags derives the dynamics domain for a task from its tags.
// This is the canonical classifier: the exact tag "world-asset" maps to
// fab_world, any tag with the "asset" prefix maps to fab_asset, everything
// else is code.
func DomainForTags(tags []string) string {
	for _, tag := range tags {
		if tag == "world-asset" {
			return "fab_world"
		}
	}
	for _, tag := range tags {
		if strings.HasPrefix(tag, "asset") {
			return "fab_asset"
		}
	}
	return "code"
}

// Decide classifies a task into a control mode given a dynamics report.
// A nil report, a disabled controller or an unresolvable action rate all
// yield the disabled decision with default tuning.
func Decide(report *dynamics.Report, task Task, opts Options) Decision {
	base := Decision{
		Mode:                 ModeDisabled,
		Temperature:          opts.BaseTemperature,
		TopP:                 opts.BaseTopP,
		SpeculateParallelism: opts.DefaultParallelism,
		PriorityRank:         0,
	}

	if !opts.Enabled {
		base.Reason = "controller disabled by configuration"
		return base
	}
	if report == nil {
		base.Reason = "no dynamics report available"
		return base
	}

	domain := DomainForTags(task.Tags)
	rate, ok := report.ActionSummary.ByDomain[domain]
	if !ok {
		if len(report.ActionSummary.ByDomain) == 0 {
			base.Reason = fmt.Sprintf("no action rate resolvable for domain %q", domain)
			return base
		}
		rate = report.ActionSummary.GlobalActionRate
	}
	base.ActionRate = rate

	log := logging.Get(logging.CategoryController)
	switch {
	case rate < opts.ActionLow:
		base.Mode = ModeTrap
		base.SpeculateParallelism = min(opts.MaxParallelism, opts.DefaultParallelism+opts.ParallelismStep)
		base.Temperature = min(opts.TemperatureMax, opts.BaseTemperature+opts.TemperatureStep)
		base.PriorityRank = -1
		base.Reason = fmt.Sprintf("action_rate=%.4f below %.4f for domain %q: widening search", rate, opts.ActionLow, domain)
	case rate > opts.ActionHigh:
		base.Mode = ModeChaos
		base.SpeculateParallelism = max(1, opts.DefaultParallelism-opts.ParallelismStep)
		base.Temperature = max(opts.TemperatureMin, opts.BaseTemperature-opts.TemperatureStep)
		base.PriorityRank = 1
		base.Reason = fmt.Sprintf("action_rate=%.4f above %.4f for domain %q: narrowing search", rate, opts.ActionHigh, domain)
	default:
		base.Mode = ModeBalanced
		base.Reason = fmt.Sprintf("action_rate=%.4f within [%.4f, %.4f] for domain %q", rate, opts.ActionLow, opts.ActionHigh, domain)
	}

	log.Debugw("control decision", "task", task.ID, "domain", domain,
		"mode", base.Mode, "action_rate", rate, "parallelism", base.SpeculateParallelism,
		"temperature", base.Temperature, "priority_rank", base.PriorityRank)
	return base
}

// DecideFromFile loads the report at path and decides. Missing or malformed
// reports fail open into the disabled decision.
func DecideFromFile(path string, task Task, opts Options) Decision {
	report, ok := dynamics.LoadReport(path)
	if !ok {
		report = nil
	}
	return Decide(report, task, opts)
}

