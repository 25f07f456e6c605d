// Package policy decides which documentation artifacts to regenerate.
//
// Evaluation is a pure function over one classification plus caller-injected
// temporal and branch context. The engine never reads a clock or any global
// state; elapsed durations arrive as explicit parameters each cycle.
//
// Anti-churn safeguards run first as an ordered cascade of hard blockers.
// If none fires, the three document triggers are evaluated independently.
// Every input combination maps to a defined decision; evaluation never
// fails.
package policy

import (
	"fmt"
	"time"

	"github.com/fyrsmithlabs/repopilot/internal/classify"
)

// Skip reasons surfaced on a blocked or trigger-less decision.
const (
	// SkipSystemAuthor blocks regeneration triggered by repopilot's own
	// commits. Without it the pipeline would loop: regen -> commit ->
	// trigger -> regen.
	SkipSystemAuthor = "SYSTEM_AUTHOR"

	// SkipUnauthorizedBranch blocks regeneration on branches outside the
	// configured allow list.
	SkipUnauthorizedBranch = "UNAUTHORIZED_BRANCH"

	// SkipNoiseSuppression blocks regeneration for noise-only clusters.
	SkipNoiseSuppression = "NOISE_SUPPRESSION"
)

// Input carries everything one evaluation cycle needs.
type Input struct {
	// Label is the classification rendered for the target cluster.
	Label classify.Label

	// Elapsed durations since each document was last regenerated.
	ElapsedChangelog    time.Duration
	ElapsedArchitecture time.Duration
	ElapsedMetrics      time.Duration

	// Temporal trigger thresholds per document.
	ThresholdChangelog    time.Duration
	ThresholdArchitecture time.Duration
	ThresholdMetrics      time.Duration

	// ActiveBranch is the branch the analyzed history came from.
	ActiveBranch string

	// AllowedBranches are branches authorized for automated doc commits.
	AllowedBranches []string

	// IsSystemCommit is true when the triggering commit was authored by
	// the repopilot daemon identity.
	IsSystemCommit bool
}

// Decision is the definitive outcome for one evaluation cycle.
//
// The three booleans are independent; any combination is valid. SkipReason
// is populated only when no document was authorized.
type Decision struct {
	Changelog    bool   `json:"changelog"`
	Architecture bool   `json:"architecture"`
	Metrics      bool   `json:"metrics"`
	SkipReason   string `json:"skip_reason,omitempty"`
}

// Any reports whether at least one document was authorized.
func (d Decision) Any() bool {
	return d.Changelog || d.Architecture || d.Metrics
}

// Evaluate runs the regeneration policy for one cycle.
func Evaluate(in Input) Decision {
	// Phase 1: anti-churn safeguards, ordered, first hit blocks everything.
	if in.IsSystemCommit {
		return blocked(SkipSystemAuthor)
	}
	if !branchAllowed(in.ActiveBranch, in.AllowedBranches) {
		return blocked(SkipUnauthorizedBranch)
	}
	if in.Label == classify.LabelNoiseOnly {
		return blocked(SkipNoiseSuppression)
	}

	// Phase 2: independent per-document triggers. Changelog and
	// architecture combine a semantic trigger with a temporal one; metrics
	// is purely temporal.
	var d Decision
	d.Changelog = in.Label == classify.LabelFeatureBurst ||
		in.Label == classify.LabelStructuralChange ||
		in.ElapsedChangelog >= in.ThresholdChangelog
	d.Architecture = in.Label == classify.LabelStructuralChange ||
		in.ElapsedArchitecture >= in.ThresholdArchitecture
	d.Metrics = in.ElapsedMetrics >= in.ThresholdMetrics

	// Phase 3: distinguish "blocked by safeguard" from "no trigger met".
	if !d.Any() {
		d.SkipReason = fmt.Sprintf("NO_TRIGGERS_FIRED:classification=%s", in.Label)
	}
	return d
}

func blocked(reason string) Decision {
	return Decision{SkipReason: reason}
}

func branchAllowed(branch string, allowed []string) bool {
	for _, b := range allowed {
		if branch == b {
			return true
		}
	}
	return false
}
