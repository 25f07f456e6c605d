package policy

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/fyrsmithlabs/repopilot/internal/classify"
)

// baseInput is an authorized, non-system evaluation with no temporal
// triggers armed.
func baseInput(label classify.Label) Input {
	return Input{
		Label:                 label,
		ThresholdChangelog:    24 * time.Hour,
		ThresholdArchitecture: 7 * 24 * time.Hour,
		ThresholdMetrics:      24 * time.Hour,
		ActiveBranch:          "main",
		AllowedBranches:       []string{"main", "master"},
	}
}

func TestEvaluate_SystemAuthorBlocksEverything(t *testing.T) {
	in := baseInput(classify.LabelFeatureBurst)
	in.IsSystemCommit = true
	// Even armed temporal triggers must not fire.
	in.ElapsedChangelog = 100 * time.Hour
	in.ElapsedArchitecture = 1000 * time.Hour
	in.ElapsedMetrics = 100 * time.Hour

	d := Evaluate(in)

	assert.False(t, d.Any())
	assert.Equal(t, SkipSystemAuthor, d.SkipReason)
}

func TestEvaluate_UnauthorizedBranch(t *testing.T) {
	in := baseInput(classify.LabelFeatureBurst)
	in.ActiveBranch = "feature/experiment"

	d := Evaluate(in)

	assert.False(t, d.Any())
	assert.Equal(t, SkipUnauthorizedBranch, d.SkipReason)
}

func TestEvaluate_NoiseSuppression(t *testing.T) {
	in := baseInput(classify.LabelNoiseOnly)
	in.ElapsedMetrics = 100 * time.Hour

	d := Evaluate(in)

	assert.False(t, d.Any())
	assert.Equal(t, SkipNoiseSuppression, d.SkipReason)
}

func TestEvaluate_SafeguardOrder(t *testing.T) {
	// System author outranks branch, which outranks noise.
	in := baseInput(classify.LabelNoiseOnly)
	in.ActiveBranch = "scratch"
	in.IsSystemCommit = true

	assert.Equal(t, SkipSystemAuthor, Evaluate(in).SkipReason)

	in.IsSystemCommit = false
	assert.Equal(t, SkipUnauthorizedBranch, Evaluate(in).SkipReason)
}

func TestEvaluate_StructuralChangeTriggers(t *testing.T) {
	in := baseInput(classify.LabelStructuralChange)

	d := Evaluate(in)

	assert.True(t, d.Changelog, "semantic changelog trigger")
	assert.True(t, d.Architecture, "semantic architecture trigger")
	assert.False(t, d.Metrics, "metrics is purely temporal")
	assert.Empty(t, d.SkipReason)
}

func TestEvaluate_FeatureBurstTriggers(t *testing.T) {
	in := baseInput(classify.LabelFeatureBurst)

	d := Evaluate(in)

	assert.True(t, d.Changelog)
	assert.False(t, d.Architecture)
	assert.False(t, d.Metrics)
}

func TestEvaluate_TemporalTriggersAreIndependent(t *testing.T) {
	in := baseInput(classify.LabelUnknown)
	in.ElapsedChangelog = 25 * time.Hour
	in.ElapsedMetrics = 24 * time.Hour // equal to threshold fires

	d := Evaluate(in)

	assert.True(t, d.Changelog)
	assert.False(t, d.Architecture)
	assert.True(t, d.Metrics)
	assert.Empty(t, d.SkipReason)
}

func TestEvaluate_MetricsIgnoresClassification(t *testing.T) {
	for _, label := range []classify.Label{
		classify.LabelStructuralChange,
		classify.LabelFeatureBurst,
		classify.LabelRefactorCluster,
		classify.LabelUnknown,
	} {
		in := baseInput(label)
		in.ElapsedMetrics = 48 * time.Hour
		assert.True(t, Evaluate(in).Metrics, "label %s", label)
	}
}

func TestEvaluate_NoTriggersFired(t *testing.T) {
	in := baseInput(classify.LabelRefactorCluster)

	d := Evaluate(in)

	assert.False(t, d.Any())
	assert.Equal(t, "NO_TRIGGERS_FIRED:classification=refactor_cluster", d.SkipReason)
}

func TestEvaluate_Deterministic(t *testing.T) {
	in := baseInput(classify.LabelStructuralChange)
	in.ElapsedMetrics = 30 * time.Hour

	first := Evaluate(in)
	for i := 0; i < 20; i++ {
		assert.Equal(t, first, Evaluate(in))
	}
}
