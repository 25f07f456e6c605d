// Package engine orchestrates one repopilot analysis cycle.
//
// Data flows linearly: history reader -> clustering -> classification ->
// policy -> (conditional) renderers and history writer. The engine holds
// no decision logic of its own; every behavioral threshold is injected via
// configuration and every decision is made by the pure engines it calls.
//
// The engine persists nothing between cycles. Elapsed-time counters for
// the policy temporal triggers are derived from the rendered documents'
// modification times; a missing document counts as maximally stale.
package engine

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/repopilot/internal/classify"
	"github.com/fyrsmithlabs/repopilot/internal/cluster"
	"github.com/fyrsmithlabs/repopilot/internal/config"
	"github.com/fyrsmithlabs/repopilot/internal/history"
	"github.com/fyrsmithlabs/repopilot/internal/logging"
	"github.com/fyrsmithlabs/repopilot/internal/policy"
	"github.com/fyrsmithlabs/repopilot/internal/render"
	"github.com/fyrsmithlabs/repopilot/internal/telemetry"
)

// maxElapsed stands in for "never regenerated". It exceeds any sane
// threshold, so the temporal trigger always fires for a missing document.
const maxElapsed = time.Duration(math.MaxInt64)

// Cycle outcome labels for the cycles_total metric.
const (
	outcomeOK        = "ok"
	outcomeNoCommits = "no_commits"
	outcomeSkipped   = "skipped"
	outcomeError     = "error"
)

// HistoryReader supplies linear commit history for a repository.
type HistoryReader interface {
	Log(ctx context.Context, path, branch string, limit int) ([]history.Commit, error)
}

// HistoryWriter executes the mutating git operations the engine requests
// after a policy decision authorizes regeneration.
type HistoryWriter interface {
	Stage(path string, files []string) error
	Commit(path, message, authorName, authorEmail string) (string, error)
	Push(ctx context.Context, path, remote string) error
}

// Engine wires the decision pipeline to its collaborators.
type Engine struct {
	cfg     *config.Config
	reader  HistoryReader
	writer  HistoryWriter
	log     *logging.Logger
	metrics *telemetry.Metrics
}

// New creates an engine.
func New(cfg *config.Config, reader HistoryReader, writer HistoryWriter, log *logging.Logger, metrics *telemetry.Metrics) *Engine {
	return &Engine{
		cfg:     cfg,
		reader:  reader,
		writer:  writer,
		log:     log.Named("engine"),
		metrics: metrics,
	}
}

// CycleResult summarizes one analysis cycle for logs, the status endpoint,
// and --json output.
type CycleResult struct {
	CycleID      string                  `json:"cycle_id"`
	StartedAt    time.Time               `json:"started_at"`
	Outcome      string                  `json:"outcome"`
	Branch       string                  `json:"branch,omitempty"`
	CommitCount  int                     `json:"commit_count"`
	ClusterCount int                     `json:"cluster_count"`
	ClusterID    string                  `json:"cluster_id,omitempty"`
	Closure      cluster.ClosureReason   `json:"closure_reason,omitempty"`
	Result       classify.Classification `json:"classification"`
	Decision     policy.Decision         `json:"decision"`
	Regenerated  []string                `json:"regenerated,omitempty"`
	CommitHash   string                  `json:"commit_hash,omitempty"`
}

// RunCycle executes one full read -> decide -> write pass.
//
// The returned error covers collaborator failures (unreadable repository,
// failed write); a cycle where policy authorizes nothing is a successful
// cycle with Outcome "skipped".
func (e *Engine) RunCycle(ctx context.Context) (CycleResult, error) {
	started := time.Now()
	result := CycleResult{
		CycleID:   uuid.NewString(),
		StartedAt: started,
	}

	ctx = logging.WithCycleID(ctx, result.CycleID)
	ctx = logging.WithRepository(ctx, e.cfg.Repository.Path)
	defer func() {
		e.metrics.CycleDuration.Observe(time.Since(started).Seconds())
	}()

	commits, err := e.reader.Log(ctx, e.cfg.Repository.Path, e.cfg.Repository.Branch, e.cfg.Repository.HistoryLimit)
	if err != nil {
		result.Outcome = outcomeError
		e.metrics.CyclesTotal.WithLabelValues(outcomeError).Inc()
		return result, fmt.Errorf("reading history: %w", err)
	}
	result.CommitCount = len(commits)
	if len(commits) == 0 {
		result.Outcome = outcomeNoCommits
		e.metrics.CyclesTotal.WithLabelValues(outcomeNoCommits).Inc()
		e.log.Info(ctx, "no commits to analyze")
		return result, nil
	}

	clusters := cluster.Partition(commits, e.cfg.Clustering.InactivityThreshold.Duration(), e.cfg.SystemAuthorSet())
	result.ClusterCount = len(clusters)

	// The most recent cluster is the active unit of work.
	target := clusters[len(clusters)-1]
	result.ClusterID = target.ID
	result.Closure = target.Reason

	classification, err := classify.Classify(target, classifyConfig(e.cfg))
	if err != nil {
		result.Outcome = outcomeError
		e.metrics.CyclesTotal.WithLabelValues(outcomeError).Inc()
		return result, fmt.Errorf("classifying cluster %s: %w", target.ID, err)
	}
	result.Result = classification
	e.metrics.ClassificationsTotal.WithLabelValues(string(classification.Label)).Inc()

	head := target.Commits[len(target.Commits)-1]
	result.Branch = head.Branch
	_, isSystem := e.cfg.SystemAuthorSet()[head.Author]

	decision := policy.Evaluate(policy.Input{
		Label:                 classification.Label,
		ElapsedChangelog:      e.docElapsed(e.cfg.Docs.ChangelogFile, started),
		ElapsedArchitecture:   e.docElapsed(e.cfg.Docs.ArchitectureFile, started),
		ElapsedMetrics:        e.docElapsed(e.cfg.Docs.MetricsFile, started),
		ThresholdChangelog:    e.cfg.Policy.ChangelogThreshold.Duration(),
		ThresholdArchitecture: e.cfg.Policy.ArchitectureThreshold.Duration(),
		ThresholdMetrics:      e.cfg.Policy.MetricsThreshold.Duration(),
		ActiveBranch:          head.Branch,
		AllowedBranches:       e.cfg.Repository.AllowedBranches,
		IsSystemCommit:        isSystem,
	})
	result.Decision = decision

	e.log.Info(ctx, "cluster evaluated",
		zap.String("cluster_id", target.ID),
		zap.String("label", string(classification.Label)),
		zap.Float64("confidence", classification.Confidence),
		zap.Int("clusters", len(clusters)),
		zap.Bool("changelog", decision.Changelog),
		zap.Bool("architecture", decision.Architecture),
		zap.Bool("metrics", decision.Metrics),
		zap.String("skip_reason", decision.SkipReason),
	)

	if !decision.Any() {
		result.Outcome = outcomeSkipped
		e.metrics.CyclesTotal.WithLabelValues(outcomeSkipped).Inc()
		e.metrics.PolicySkipsTotal.WithLabelValues(skipReasonClass(decision.SkipReason)).Inc()
		return result, nil
	}

	regenerated, err := e.regenerate(ctx, target, classification, decision, started)
	if err != nil {
		result.Outcome = outcomeError
		e.metrics.CyclesTotal.WithLabelValues(outcomeError).Inc()
		return result, err
	}
	result.Regenerated = regenerated.files
	result.CommitHash = regenerated.commitHash
	result.Outcome = outcomeOK
	e.metrics.CyclesTotal.WithLabelValues(outcomeOK).Inc()
	return result, nil
}

type regenOutput struct {
	files      []string
	commitHash string
}

// regenerate renders the authorized documents, writes them into the
// repository, and records them as a single daemon-authored commit.
func (e *Engine) regenerate(ctx context.Context, target cluster.Cluster, classification classify.Classification, decision policy.Decision, generatedAt time.Time) (regenOutput, error) {
	type doc struct {
		file    string
		kind    string
		content string
	}
	var docs []doc
	if decision.Changelog {
		docs = append(docs, doc{e.cfg.Docs.ChangelogFile, "changelog",
			render.Changelog(target, classification, generatedAt)})
	}
	if decision.Architecture {
		docs = append(docs, doc{e.cfg.Docs.ArchitectureFile, "architecture",
			render.ArchitectureChurn(target, classification, generatedAt)})
	}
	if decision.Metrics {
		docs = append(docs, doc{e.cfg.Docs.MetricsFile, "metrics",
			render.DevelopmentMetrics(target, classification, generatedAt)})
	}

	outDir := filepath.Join(e.cfg.Repository.Path, e.cfg.Docs.Dir)
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return regenOutput{}, fmt.Errorf("creating docs directory: %w", err)
	}

	var staged []string
	for _, d := range docs {
		if err := os.WriteFile(filepath.Join(outDir, d.file), []byte(d.content), 0o644); err != nil {
			return regenOutput{}, fmt.Errorf("writing %s: %w", d.file, err)
		}
		staged = append(staged, filepath.Join(e.cfg.Docs.Dir, d.file))
		e.metrics.DocsRegenerated.WithLabelValues(d.kind).Inc()
	}

	if err := e.writer.Stage(e.cfg.Repository.Path, staged); err != nil {
		return regenOutput{}, fmt.Errorf("staging documents: %w", err)
	}
	hash, err := e.writer.Commit(e.cfg.Repository.Path, e.cfg.Docs.CommitMessage,
		e.cfg.Docs.AuthorName, e.cfg.Docs.AuthorEmail)
	if err != nil {
		return regenOutput{}, fmt.Errorf("committing documents: %w", err)
	}

	if e.cfg.Docs.Push {
		if err := e.writer.Push(ctx, e.cfg.Repository.Path, e.cfg.Repository.Remote); err != nil {
			return regenOutput{}, err
		}
	}

	e.log.Info(ctx, "documents regenerated",
		zap.Strings("files", staged),
		zap.String("commit", hash),
	)
	return regenOutput{files: staged, commitHash: hash}, nil
}

// docElapsed returns how long ago the named document was regenerated,
// judged by its mtime. A document that does not exist yet is maximally
// stale.
func (e *Engine) docElapsed(file string, now time.Time) time.Duration {
	info, err := os.Stat(filepath.Join(e.cfg.Repository.Path, e.cfg.Docs.Dir, file))
	if err != nil {
		return maxElapsed
	}
	elapsed := now.Sub(info.ModTime())
	if elapsed < 0 {
		return 0
	}
	return elapsed
}

// skipReasonClass collapses the parameterized no-trigger reason into one
// metric label to keep cardinality bounded.
func skipReasonClass(reason string) string {
	if reason == policy.SkipSystemAuthor ||
		reason == policy.SkipUnauthorizedBranch ||
		reason == policy.SkipNoiseSuppression {
		return reason
	}
	return "NO_TRIGGERS_FIRED"
}

// classifyConfig maps the loaded configuration onto the classification
// engine's injected thresholds.
func classifyConfig(cfg *config.Config) classify.Config {
	return classify.Config{
		NoiseExtensions:       cfg.Classify.NoiseExtensions,
		NoiseDirectories:      cfg.Classify.NoiseDirectories,
		RenameThreshold:       cfg.Classify.RenameThreshold,
		ConfigFilenames:       cfg.Classify.ConfigFilenames,
		InsertionThreshold:    cfg.Classify.InsertionThreshold,
		MinCommits:            cfg.Classify.MinCommits,
		VendorDirectories:     cfg.Classify.VendorDirectories,
		RefactorDeletionRatio: cfg.Classify.RefactorDeletionRatio,
	}
}
