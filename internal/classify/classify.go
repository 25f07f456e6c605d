// Package classify assigns a single semantic label to a commit cluster.
//
// Classification is a pure function of the cluster and injected thresholds:
// identical inputs always yield an identical Classification, including the
// floating-point confidence. Rules form an ordered, short-circuiting
// cascade; the first matching rule wins and the cascade always terminates
// in the unknown label, so classification never fails on a non-empty
// cluster.
//
// Determinism discipline: every set-like intermediate (touched paths, added
// paths) is sorted before it feeds a decision, so map iteration order can
// never leak into the result.
package classify

import (
	"errors"
	"sort"
	"strings"

	"github.com/fyrsmithlabs/repopilot/internal/cluster"
)

// Label is the semantic category assigned to a cluster.
type Label string

const (
	LabelNoiseOnly        Label = "noise_only"
	LabelStructuralChange Label = "structural_change"
	LabelFeatureBurst     Label = "feature_burst"
	LabelRefactorCluster  Label = "refactor_cluster"
	LabelUnknown          Label = "unknown"
)

// unknownConfidence is the fixed confidence of the unknown fallback. It is
// deliberately non-zero: zero would claim certainty of non-match.
const unknownConfidence = 0.1

// ratioEpsilon guards the refactor confidence denominator when the
// configured ratio threshold equals 1.0.
const ratioEpsilon = 0.001

// ErrEmptyCluster indicates a cluster with no commits reached the engine.
// That is an input-contract violation; the clustering engine never emits
// empty clusters.
var ErrEmptyCluster = errors.New("classify: empty cluster")

// Config holds the injected classification thresholds. There are no
// defaults here; the orchestrating layer owns them.
type Config struct {
	// NoiseExtensions are path suffixes treated as noise (e.g. ".md").
	NoiseExtensions []string

	// NoiseDirectories are path prefixes treated as noise (e.g. "docs/").
	NoiseDirectories []string

	// RenameThreshold is the minimum rename count for a structural change.
	RenameThreshold int

	// ConfigFilenames are exact base names identifying structural config
	// files (e.g. "go.mod", "Dockerfile").
	ConfigFilenames []string

	// InsertionThreshold is the minimum total insertions for a feature
	// burst.
	InsertionThreshold int

	// MinCommits is the minimum cluster size for a feature burst.
	MinCommits int

	// VendorDirectories are path prefixes excluded from feature-burst
	// added-path counting (e.g. "vendor/", "node_modules/").
	VendorDirectories []string

	// RefactorDeletionRatio is the deletions/insertions threshold for a
	// refactor cluster.
	RefactorDeletionRatio float64
}

// Classification is the decision rendered for one cluster.
//
// RawSignals exposes every aggregate the rules consumed, so a human can
// audit why the label was chosen without re-deriving it. Signals are
// outputs only; they are never fed back into evaluation.
type Classification struct {
	Label      Label              `json:"label"`
	Confidence float64            `json:"confidence"`
	RawSignals map[string]float64 `json:"raw_signals"`
}

// signals holds the aggregates computed once per cluster.
type signals struct {
	commitCount     int
	insertions      int
	deletions       int
	renames         int
	touched         []string // sorted, distinct
	added           []string // sorted, distinct
	nonVendorAdded  int
	deletionRatio   float64
	configTouched   bool
	allTouchedNoise bool
}

// rule is one stage of the cascade. It either claims the cluster, returning
// a label and confidence, or passes.
type rule func(cfg Config, s signals) (Label, float64, bool)

// cascade is evaluated top-down with first-match-wins. Order is load
// bearing: noise suppression must run before the structural rename check.
var cascade = []rule{
	ruleNoiseOnly,
	ruleStructuralChange,
	ruleFeatureBurst,
	ruleRefactorCluster,
}

// Classify evaluates one cluster against the rule cascade.
//
// The only error condition is an empty cluster, which violates the input
// contract. Every non-empty cluster maps to exactly one label.
func Classify(c cluster.Cluster, cfg Config) (Classification, error) {
	if len(c.Commits) == 0 {
		return Classification{}, ErrEmptyCluster
	}

	s := aggregate(c, cfg)

	label, confidence := LabelUnknown, float64(unknownConfidence)
	for _, r := range cascade {
		if l, conf, ok := r(cfg, s); ok {
			label, confidence = l, conf
			break
		}
	}

	return Classification{
		Label:      label,
		Confidence: confidence,
		RawSignals: map[string]float64{
			"commit_count":           float64(s.commitCount),
			"total_insertions":       float64(s.insertions),
			"total_deletions":        float64(s.deletions),
			"total_renames":          float64(s.renames),
			"touched_path_count":     float64(len(s.touched)),
			"non_vendor_added_count": float64(s.nonVendorAdded),
			"deletion_ratio":         s.deletionRatio,
		},
	}, nil
}

// aggregate folds the cluster's commits into the signal set the rules
// evaluate. Touched paths are added ∪ modified ∪ deleted ∪ rename targets.
func aggregate(c cluster.Cluster, cfg Config) signals {
	s := signals{commitCount: len(c.Commits)}

	touched := map[string]struct{}{}
	added := map[string]struct{}{}
	for _, commit := range c.Commits {
		s.insertions += commit.Insertions
		s.deletions += commit.Deletions
		s.renames += len(commit.Renamed)
		for _, p := range commit.Added {
			touched[p] = struct{}{}
			added[p] = struct{}{}
		}
		for _, p := range commit.Modified {
			touched[p] = struct{}{}
		}
		for _, p := range commit.Deleted {
			touched[p] = struct{}{}
		}
		for _, to := range commit.Renamed {
			touched[to] = struct{}{}
		}
	}

	s.touched = sortedKeys(touched)
	s.added = sortedKeys(added)

	s.allTouchedNoise = len(s.touched) > 0
	for _, p := range s.touched {
		if !isNoise(p, cfg) {
			s.allTouchedNoise = false
		}
		if isConfigFile(p, cfg) {
			s.configTouched = true
		}
	}
	for _, p := range s.added {
		if !isVendor(p, cfg) {
			s.nonVendorAdded++
		}
	}

	if s.insertions > 0 {
		s.deletionRatio = float64(s.deletions) / float64(s.insertions)
	}
	return s
}

// ruleNoiseOnly fires when every touched path is noise. Certainty: if
// nothing meaningful changed, there is nothing to document.
func ruleNoiseOnly(_ Config, s signals) (Label, float64, bool) {
	if !s.allTouchedNoise {
		return "", 0, false
	}
	return LabelNoiseOnly, 1.0, true
}

// ruleStructuralChange fires on a rename wave or a touched structural
// config file. A config-file hit is certain; a rename-only hit scales with
// how far past the threshold the cluster landed.
func ruleStructuralChange(cfg Config, s signals) (Label, float64, bool) {
	renameHit := s.renames >= cfg.RenameThreshold
	if !renameHit && !s.configTouched {
		return "", 0, false
	}
	if s.configTouched {
		return LabelStructuralChange, 1.0, true
	}
	conf := min1(float64(s.renames) / float64(maxInt(1, cfg.RenameThreshold)))
	return LabelStructuralChange, conf, true
}

// ruleFeatureBurst fires on a sustained run of additive work. Crossing the
// insertion threshold scores 0.5; doubling it saturates at 1.0.
func ruleFeatureBurst(cfg Config, s signals) (Label, float64, bool) {
	if s.commitCount < cfg.MinCommits ||
		s.nonVendorAdded == 0 ||
		s.insertions <= s.deletions ||
		s.insertions < cfg.InsertionThreshold {
		return "", 0, false
	}
	excess := float64(s.insertions-cfg.InsertionThreshold) / float64(maxInt(1, cfg.InsertionThreshold))
	return LabelFeatureBurst, 0.5 + 0.5*min1(excess), true
}

// ruleRefactorCluster fires when deletions dominate insertions past the
// configured ratio. Confidence climbs from 0.7 toward 1.0 as the ratio
// approaches or exceeds 1:1.
func ruleRefactorCluster(cfg Config, s signals) (Label, float64, bool) {
	if s.insertions == 0 || s.deletionRatio < cfg.RefactorDeletionRatio {
		return "", 0, false
	}
	clamped := min1(s.deletionRatio)
	conf := 0.7 + 0.3*(clamped-cfg.RefactorDeletionRatio)/(1.0-cfg.RefactorDeletionRatio+ratioEpsilon)
	return LabelRefactorCluster, min1(conf), true
}

// isNoise reports whether the path matches a noise extension or lives under
// a noise directory. Directory prefixes match with or without a leading
// slash.
func isNoise(path string, cfg Config) bool {
	for _, ext := range cfg.NoiseExtensions {
		if strings.HasSuffix(path, ext) {
			return true
		}
	}
	for _, dir := range cfg.NoiseDirectories {
		if hasDirPrefix(path, dir) {
			return true
		}
	}
	return false
}

// isConfigFile reports whether the path's base name exactly matches a
// configured structural config filename.
func isConfigFile(path string, cfg Config) bool {
	base := path
	if idx := strings.LastIndex(path, "/"); idx >= 0 {
		base = path[idx+1:]
	}
	for _, name := range cfg.ConfigFilenames {
		if base == name {
			return true
		}
	}
	return false
}

// isVendor reports whether the path lives under a vendor directory.
func isVendor(path string, cfg Config) bool {
	for _, dir := range cfg.VendorDirectories {
		if hasDirPrefix(path, dir) {
			return true
		}
	}
	return false
}

func hasDirPrefix(path, dir string) bool {
	return strings.HasPrefix(path, dir) || strings.HasPrefix(path, "/"+dir)
}

func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func min1(v float64) float64 {
	if v > 1.0 {
		return 1.0
	}
	return v
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
