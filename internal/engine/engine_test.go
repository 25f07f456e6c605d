package engine

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/fyrsmithlabs/repopilot/internal/classify"
	"github.com/fyrsmithlabs/repopilot/internal/config"
	"github.com/fyrsmithlabs/repopilot/internal/history"
	"github.com/fyrsmithlabs/repopilot/internal/logging"
	"github.com/fyrsmithlabs/repopilot/internal/policy"
	"github.com/fyrsmithlabs/repopilot/internal/telemetry"
)

// ===== MOCK COLLABORATORS =====

// mockReader implements HistoryReader for testing.
type mockReader struct {
	commits []history.Commit
	err     error
}

func (m *mockReader) Log(ctx context.Context, path, branch string, limit int) ([]history.Commit, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.commits, nil
}

// mockWriter implements HistoryWriter and records calls.
type mockWriter struct {
	stagedFiles []string
	committed   bool
	pushed      bool
	commitErr   error
}

func (m *mockWriter) Stage(path string, files []string) error {
	m.stagedFiles = append(m.stagedFiles, files...)
	return nil
}

func (m *mockWriter) Commit(path, message, authorName, authorEmail string) (string, error) {
	if m.commitErr != nil {
		return "", m.commitErr
	}
	m.committed = true
	return "feedc0de", nil
}

func (m *mockWriter) Push(ctx context.Context, path, remote string) error {
	m.pushed = true
	return nil
}

// ===== FIXTURES =====

func testEngine(t *testing.T, reader *mockReader, writer *mockWriter) (*Engine, *config.Config) {
	t.Helper()
	t.Setenv("REPOPILOT_REPOSITORY_PATH", t.TempDir())

	// Defaults via the loader keep the fixture aligned with production.
	loaded, err := config.Load("")
	if err != nil {
		t.Fatalf("loading config: %v", err)
	}
	metrics := telemetry.New(prometheus.NewRegistry())
	return New(loaded, reader, writer, logging.Nop(), metrics), loaded
}

func devCommits(n int, insertions int) []history.Commit {
	start := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	commits := make([]history.Commit, n)
	for i := range commits {
		commits[i] = history.Commit{
			Hash:       string(rune('a'+i)) + "0000000000",
			Author:     "dev <dev@example.com>",
			Timestamp:  start.Add(time.Duration(i) * time.Minute),
			Message:    "change",
			Branch:     "main",
			Added:      []string{"internal/app/file" + string(rune('a'+i)) + ".go"},
			Insertions: insertions,
		}
	}
	return commits
}

// ===== TESTS =====

func TestRunCycle_NoCommits(t *testing.T) {
	eng, _ := testEngine(t, &mockReader{}, &mockWriter{})

	result, err := eng.RunCycle(context.Background())

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Outcome != outcomeNoCommits {
		t.Errorf("outcome = %q, want %q", result.Outcome, outcomeNoCommits)
	}
}

func TestRunCycle_ReaderError(t *testing.T) {
	eng, _ := testEngine(t, &mockReader{err: errors.New("corrupt repo")}, &mockWriter{})

	_, err := eng.RunCycle(context.Background())

	if err == nil {
		t.Fatal("expected error")
	}
}

func TestRunCycle_FeatureBurstRegeneratesDocs(t *testing.T) {
	writer := &mockWriter{}
	// 4 additive commits, 60 insertions each: feature_burst territory.
	eng, cfg := testEngine(t, &mockReader{commits: devCommits(4, 60)}, writer)

	result, err := eng.RunCycle(context.Background())

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Outcome != outcomeOK {
		t.Fatalf("outcome = %q, want %q (decision %+v)", result.Outcome, outcomeOK, result.Decision)
	}
	if result.Result.Label != classify.LabelFeatureBurst {
		t.Errorf("label = %s, want feature_burst", result.Result.Label)
	}
	if !result.Decision.Changelog {
		t.Error("changelog should be authorized")
	}
	if !writer.committed {
		t.Error("writer should have committed")
	}
	if writer.pushed {
		t.Error("push disabled by default")
	}

	// The changelog must exist on disk.
	if _, err := os.Stat(filepath.Join(cfg.Repository.Path, cfg.Docs.ChangelogFile)); err != nil {
		t.Errorf("changelog not written: %v", err)
	}
	if result.CommitHash != "feedc0de" {
		t.Errorf("commit hash = %q", result.CommitHash)
	}
}

func TestRunCycle_SystemCommitSkips(t *testing.T) {
	writer := &mockWriter{}
	commits := devCommits(2, 60)
	commits[1].Author = "repopilot-daemon <repopilot@localhost>"
	eng, _ := testEngine(t, &mockReader{commits: commits}, writer)

	result, err := eng.RunCycle(context.Background())

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Outcome != outcomeSkipped {
		t.Fatalf("outcome = %q, want %q", result.Outcome, outcomeSkipped)
	}
	if result.Decision.SkipReason != policy.SkipSystemAuthor {
		t.Errorf("skip reason = %q, want %q", result.Decision.SkipReason, policy.SkipSystemAuthor)
	}
	if writer.committed {
		t.Error("writer must not commit on a skipped cycle")
	}
}

func TestRunCycle_UnauthorizedBranchSkips(t *testing.T) {
	commits := devCommits(4, 60)
	for i := range commits {
		commits[i].Branch = "feature/wip"
	}
	eng, _ := testEngine(t, &mockReader{commits: commits}, &mockWriter{})

	result, err := eng.RunCycle(context.Background())

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Decision.SkipReason != policy.SkipUnauthorizedBranch {
		t.Errorf("skip reason = %q", result.Decision.SkipReason)
	}
}

func TestRunCycle_FreshDocsSuppressTemporalTriggers(t *testing.T) {
	writer := &mockWriter{}
	// Two small commits: unknown label, no semantic triggers.
	eng, cfg := testEngine(t, &mockReader{commits: devCommits(2, 5)}, writer)

	// All three docs regenerated moments ago.
	for _, f := range []string{cfg.Docs.ChangelogFile, cfg.Docs.ArchitectureFile, cfg.Docs.MetricsFile} {
		path := filepath.Join(cfg.Repository.Path, f)
		if err := os.WriteFile(path, []byte("fresh"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	result, err := eng.RunCycle(context.Background())

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Outcome != outcomeSkipped {
		t.Fatalf("outcome = %q, want skipped (decision %+v)", result.Outcome, result.Decision)
	}
	want := "NO_TRIGGERS_FIRED:classification=unknown"
	if result.Decision.SkipReason != want {
		t.Errorf("skip reason = %q, want %q", result.Decision.SkipReason, want)
	}
}

func TestRunCycle_MissingDocsArmTemporalTriggers(t *testing.T) {
	writer := &mockWriter{}
	// Unknown label, but no docs exist: every temporal trigger fires.
	eng, _ := testEngine(t, &mockReader{commits: devCommits(2, 5)}, writer)

	result, err := eng.RunCycle(context.Background())

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Decision.Changelog || !result.Decision.Architecture || !result.Decision.Metrics {
		t.Errorf("all docs should regenerate, got %+v", result.Decision)
	}
	if len(writer.stagedFiles) != 3 {
		t.Errorf("staged %d files, want 3", len(writer.stagedFiles))
	}
}
