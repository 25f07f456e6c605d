// Package history reads and writes local git history for repopilot.
//
// The package owns the Commit value type that flows through the analysis
// pipeline, a read-only log walker built on go-git, and a writer that
// performs the mutating operations (stage, commit, push) the orchestrator
// invokes when a policy decision authorizes regeneration.
//
// The reader never mutates the repository. The writer never reads history.
// Each writer method maps to exactly one git operation; callers sequence
// them explicitly.
package history

import "time"

// Commit is a single parsed commit from local git history.
//
// Commits are immutable once constructed and are produced only by the
// Reader. The analysis engines treat them as read-only values.
type Commit struct {
	// Hash is the full hex commit hash.
	Hash string

	// Author is the commit author identity as "Name <email>".
	Author string

	// Timestamp is the author timestamp of the commit.
	Timestamp time.Time

	// Message is the full commit message.
	Message string

	// Branch is the branch the commit was read from.
	Branch string

	// Insertions and Deletions are line counts across the whole commit.
	Insertions int
	Deletions  int

	// Added, Modified and Deleted hold repo-relative file paths.
	Added    []string
	Modified []string
	Deleted  []string

	// Renamed maps old path -> new path for detected renames.
	Renamed map[string]string
}
