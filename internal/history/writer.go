package history

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// ErrNothingStaged indicates a commit was requested with a clean index.
var ErrNothingStaged = errors.New("nothing staged for commit")

// Writer executes mutating operations against a local git repository.
//
// Every method maps to exactly one git action. The orchestrator is the only
// intended consumer, and it calls the writer only after a policy decision
// authorizes a regeneration commit. There is no dry-run guard here: a call
// mutates the repository immediately.
type Writer struct{}

// NewWriter creates a history writer.
func NewWriter() *Writer {
	return &Writer{}
}

// Stage adds the given repo-relative paths to the index.
func (w *Writer) Stage(path string, files []string) error {
	wt, err := openWorktree(path)
	if err != nil {
		return err
	}
	for _, f := range files {
		if _, err := wt.Add(f); err != nil {
			return fmt.Errorf("staging %s: %w", f, err)
		}
	}
	return nil
}

// Commit records the staged index as a new commit authored by the given
// identity and returns the new commit hash.
//
// The identity is expected to be the reserved daemon author so the
// clustering system-boundary rule and the policy system-loop safeguard can
// recognize repopilot's own commits.
func (w *Writer) Commit(path, message, authorName, authorEmail string) (string, error) {
	wt, err := openWorktree(path)
	if err != nil {
		return "", err
	}

	status, err := wt.Status()
	if err != nil {
		return "", fmt.Errorf("reading status: %w", err)
	}
	if status.IsClean() {
		return "", ErrNothingStaged
	}

	hash, err := wt.Commit(message, &git.CommitOptions{
		Author: &object.Signature{
			Name:  authorName,
			Email: authorEmail,
			When:  time.Now(),
		},
	})
	if err != nil {
		return "", fmt.Errorf("committing: %w", err)
	}
	return hash.String(), nil
}

// Push publishes local history to the named remote.
func (w *Writer) Push(ctx context.Context, path, remote string) error {
	repo, err := git.PlainOpen(path)
	if err != nil {
		return fmt.Errorf("opening repository: %w", err)
	}
	err = repo.PushContext(ctx, &git.PushOptions{RemoteName: remote})
	if err != nil && !errors.Is(err, git.NoErrAlreadyUpToDate) {
		return fmt.Errorf("pushing to %s: %w", remote, err)
	}
	return nil
}

func openWorktree(path string) (*git.Worktree, error) {
	repo, err := git.PlainOpen(path)
	if err != nil {
		if errors.Is(err, git.ErrRepositoryNotExists) {
			return nil, fmt.Errorf("%w: %s", ErrNotGitRepo, path)
		}
		return nil, fmt.Errorf("opening repository: %w", err)
	}
	wt, err := repo.Worktree()
	if err != nil {
		return nil, fmt.Errorf("opening worktree: %w", err)
	}
	return wt, nil
}
