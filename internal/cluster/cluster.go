// Package cluster partitions linear commit history into bounded units of
// work.
//
// A cluster is a maximal contiguous run of commits sealed by one of a small
// set of closure rules. Partitioning is deterministic: identical input
// always produces identical clusters, including cluster identifiers.
//
// The engine is branch-unaware. Callers must pre-slice history into a
// single-branch, tag-free linear run before partitioning.
package cluster

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"time"

	"github.com/fyrsmithlabs/repopilot/internal/history"
)

// ClosureReason tags why a cluster was sealed.
type ClosureReason string

const (
	// ReasonSystemCommit seals a cluster because the previous commit was
	// authored by a configured system identity.
	ReasonSystemCommit ClosureReason = "SYSTEM_COMMIT"

	// ReasonInactivityTimeout seals a cluster because the gap to the next
	// commit exceeded the inactivity threshold.
	ReasonInactivityTimeout ClosureReason = "INACTIVITY_TIMEOUT"

	// ReasonHead seals the final cluster, bounded only by the end of
	// available history.
	ReasonHead ClosureReason = "HEAD"
)

// Cluster is a sealed, contiguous run of commits.
//
// Commits keep their chronological insertion order and are never re-sorted
// within a cluster. Start and End are the timestamps of the first and last
// member. Clusters are immutable once sealed.
type Cluster struct {
	// ID is derived solely from the first and last member hashes.
	ID string

	// Commits holds the members, oldest first.
	Commits []history.Commit

	// Start and End bound the cluster in time; Start <= End always holds.
	Start time.Time
	End   time.Time

	// Reason records which closure rule sealed the cluster.
	Reason ClosureReason
}

// ID derives a deterministic cluster identifier from its bounding commits.
//
// The identifier is sha256 over the concatenation of the first and last
// member hashes, in that order.
func ID(firstHash, lastHash string) string {
	sum := sha256.Sum256([]byte(firstHash + lastHash))
	return hex.EncodeToString(sum[:])
}

// Partition splits commits into non-overlapping clusters.
//
// Input that is not chronologically sorted is stable-sorted by timestamp
// first; tied timestamps keep their original relative order so repeated
// runs over the same input produce the same clusters. Empty input yields
// nil with no error.
//
// Two hard-stop rules are evaluated against the previous commit, in strict
// priority order, before each commit is appended:
//
//  1. previous author is a system author -> seal with ReasonSystemCommit
//  2. gap to the current commit exceeds inactivityThreshold -> seal with
//     ReasonInactivityTimeout
//
// The final open cluster is always sealed with ReasonHead.
func Partition(commits []history.Commit, inactivityThreshold time.Duration, systemAuthors map[string]struct{}) []Cluster {
	if len(commits) == 0 {
		return nil
	}

	ordered := make([]history.Commit, len(commits))
	copy(ordered, commits)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Timestamp.Before(ordered[j].Timestamp)
	})

	var clusters []Cluster
	open := []history.Commit{ordered[0]}

	for _, current := range ordered[1:] {
		previous := open[len(open)-1]

		if _, isSystem := systemAuthors[previous.Author]; isSystem {
			clusters = append(clusters, seal(open, ReasonSystemCommit))
			open = []history.Commit{current}
			continue
		}

		if current.Timestamp.Sub(previous.Timestamp) > inactivityThreshold {
			clusters = append(clusters, seal(open, ReasonInactivityTimeout))
			open = []history.Commit{current}
			continue
		}

		open = append(open, current)
	}

	clusters = append(clusters, seal(open, ReasonHead))
	return clusters
}

// seal closes an open run of commits into an immutable Cluster.
func seal(commits []history.Commit, reason ClosureReason) Cluster {
	first := commits[0]
	last := commits[len(commits)-1]
	return Cluster{
		ID:      ID(first.Hash, last.Hash),
		Commits: commits,
		Start:   first.Timestamp,
		End:     last.Timestamp,
		Reason:  reason,
	}
}
