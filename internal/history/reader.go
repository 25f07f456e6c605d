package history

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/utils/merkletrie"
)

var (
	// ErrNotGitRepo indicates the path is not a git repository.
	ErrNotGitRepo = errors.New("not a git repository")

	// ErrBranchNotFound indicates the requested branch does not exist.
	ErrBranchNotFound = errors.New("branch not found")
)

// Reader retrieves commits from a local git repository.
//
// Reader performs side-effect free queries only. It never touches the
// worktree or the index, so it is safe to run concurrently with other
// read-only tooling.
type Reader struct{}

// NewReader creates a history reader.
func NewReader() *Reader {
	return &Reader{}
}

// Log returns commits reachable from branch, ordered oldest to newest.
//
// If branch is empty the currently checked-out HEAD is used. If limit is
// positive, only the most recent limit commits are returned (still ordered
// oldest to newest). Diff stats are computed against the first parent with
// rename detection enabled; root commits diff against the empty tree.
//
// The returned sequence is linear first-parent history. Callers that need
// tag- or branch-sliced windows must slice before clustering.
func (r *Reader) Log(ctx context.Context, path, branch string, limit int) ([]Commit, error) {
	repo, err := git.PlainOpen(path)
	if err != nil {
		if errors.Is(err, git.ErrRepositoryNotExists) {
			return nil, fmt.Errorf("%w: %s", ErrNotGitRepo, path)
		}
		return nil, fmt.Errorf("opening repository: %w", err)
	}

	head, branchName, err := resolveBranch(repo, branch)
	if err != nil {
		return nil, err
	}

	iter, err := repo.Log(&git.LogOptions{From: head})
	if err != nil {
		return nil, fmt.Errorf("reading log: %w", err)
	}
	defer iter.Close()

	// Walk newest -> oldest, first-parent only, stopping at limit.
	var raw []*object.Commit
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		c, err := iter.Next()
		if err != nil {
			break
		}
		raw = append(raw, c)
		if limit > 0 && len(raw) >= limit {
			break
		}
	}

	commits := make([]Commit, 0, len(raw))
	for _, c := range raw {
		node, err := r.parseCommit(ctx, c, branchName)
		if err != nil {
			return nil, fmt.Errorf("parsing commit %s: %w", c.Hash, err)
		}
		commits = append(commits, node)
	}

	// Reverse to oldest -> newest for the clustering engine.
	for i, j := 0, len(commits)-1; i < j; i, j = i+1, j-1 {
		commits[i], commits[j] = commits[j], commits[i]
	}
	return commits, nil
}

// resolveBranch returns the hash to log from and the branch name attached
// to parsed commits.
func resolveBranch(repo *git.Repository, branch string) (plumbing.Hash, string, error) {
	if branch == "" {
		head, err := repo.Head()
		if err != nil {
			return plumbing.ZeroHash, "", fmt.Errorf("resolving HEAD: %w", err)
		}
		name := "detached"
		if head.Name().IsBranch() {
			name = head.Name().Short()
		}
		return head.Hash(), name, nil
	}

	ref, err := repo.Reference(plumbing.NewBranchReferenceName(branch), true)
	if err != nil {
		return plumbing.ZeroHash, "", fmt.Errorf("%w: %s", ErrBranchNotFound, branch)
	}
	return ref.Hash(), branch, nil
}

// parseCommit hydrates one Commit from a go-git commit object.
func (r *Reader) parseCommit(ctx context.Context, c *object.Commit, branch string) (Commit, error) {
	node := Commit{
		Hash:      c.Hash.String(),
		Author:    fmt.Sprintf("%s <%s>", c.Author.Name, c.Author.Email),
		Timestamp: c.Author.When.UTC(),
		Message:   c.Message,
		Branch:    branch,
		Renamed:   map[string]string{},
	}

	tree, err := c.Tree()
	if err != nil {
		return Commit{}, fmt.Errorf("resolving tree: %w", err)
	}

	var parentTree *object.Tree
	if c.NumParents() > 0 {
		parent, err := c.Parent(0)
		if err != nil {
			return Commit{}, fmt.Errorf("resolving parent: %w", err)
		}
		parentTree, err = parent.Tree()
		if err != nil {
			return Commit{}, fmt.Errorf("resolving parent tree: %w", err)
		}
	}

	changes, err := object.DiffTreeWithOptions(ctx, parentTree, tree, object.DefaultDiffTreeOptions)
	if err != nil {
		return Commit{}, fmt.Errorf("diffing trees: %w", err)
	}

	for _, change := range changes {
		action, err := change.Action()
		if err != nil {
			return Commit{}, fmt.Errorf("resolving change action: %w", err)
		}

		switch action {
		case merkletrie.Insert:
			node.Added = append(node.Added, change.To.Name)
		case merkletrie.Delete:
			node.Deleted = append(node.Deleted, change.From.Name)
		case merkletrie.Modify:
			if change.From.Name != change.To.Name {
				node.Renamed[change.From.Name] = change.To.Name
			} else {
				node.Modified = append(node.Modified, change.To.Name)
			}
		}

		patch, err := change.PatchContext(ctx)
		if err != nil {
			return Commit{}, fmt.Errorf("computing patch: %w", err)
		}
		for _, stat := range patch.Stats() {
			node.Insertions += stat.Addition
			node.Deletions += stat.Deletion
		}
	}

	sort.Strings(node.Added)
	sort.Strings(node.Modified)
	sort.Strings(node.Deleted)
	return node, nil
}
