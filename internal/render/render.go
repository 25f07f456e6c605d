// Package render builds the markdown documents repopilot maintains.
//
// Renderers are pure: output depends only on the cluster, its
// classification, and the generation timestamp passed in. Paths are sorted
// before rendering so repeated runs over the same cluster produce
// byte-identical documents.
package render

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/fyrsmithlabs/repopilot/internal/classify"
	"github.com/fyrsmithlabs/repopilot/internal/cluster"
)

const timeLayout = "2006-01-02 15:04 MST"

// Changelog renders the changelog entry for one analyzed cluster.
func Changelog(c cluster.Cluster, result classify.Classification, generatedAt time.Time) string {
	var b strings.Builder
	b.WriteString("# Changelog\n\n")
	header(&b, c, result, generatedAt)

	b.WriteString("## Commits\n\n")
	for _, commit := range c.Commits {
		subject := commit.Message
		if idx := strings.IndexByte(subject, '\n'); idx >= 0 {
			subject = subject[:idx]
		}
		fmt.Fprintf(&b, "- `%s` %s (+%d/-%d)\n",
			shortHash(commit.Hash), subject, commit.Insertions, commit.Deletions)
	}
	b.WriteString("\n")
	return b.String()
}

// ArchitectureChurn renders the structural-change report for one cluster.
func ArchitectureChurn(c cluster.Cluster, result classify.Classification, generatedAt time.Time) string {
	var b strings.Builder
	b.WriteString("# Architecture Churn\n\n")
	header(&b, c, result, generatedAt)

	renames := collectRenames(c)
	if len(renames) > 0 {
		b.WriteString("## Renamed paths\n\n")
		for _, r := range renames {
			fmt.Fprintf(&b, "- `%s` -> `%s`\n", r[0], r[1])
		}
		b.WriteString("\n")
	}

	touched := collectTouched(c)
	b.WriteString("## Touched paths\n\n")
	for _, p := range touched {
		fmt.Fprintf(&b, "- `%s`\n", p)
	}
	b.WriteString("\n")
	return b.String()
}

// DevelopmentMetrics renders the quantitative snapshot for one cluster.
// Metrics are classification-agnostic; the label appears only as context.
func DevelopmentMetrics(c cluster.Cluster, result classify.Classification, generatedAt time.Time) string {
	var b strings.Builder
	b.WriteString("# Development Metrics\n\n")
	header(&b, c, result, generatedAt)

	b.WriteString("| Signal | Value |\n|---|---|\n")
	names := make([]string, 0, len(result.RawSignals))
	for name := range result.RawSignals {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(&b, "| %s | %g |\n", name, result.RawSignals[name])
	}
	b.WriteString("\n")
	return b.String()
}

// header writes the shared cluster summary block.
func header(b *strings.Builder, c cluster.Cluster, result classify.Classification, generatedAt time.Time) {
	fmt.Fprintf(b, "Generated by repopilot at %s.\n\n", generatedAt.UTC().Format(timeLayout))
	fmt.Fprintf(b, "- Cluster: `%s`\n", shortHash(c.ID))
	fmt.Fprintf(b, "- Window: %s to %s (%s)\n",
		c.Start.UTC().Format(timeLayout), c.End.UTC().Format(timeLayout), c.Reason)
	fmt.Fprintf(b, "- Classification: %s (confidence %.2f)\n\n", result.Label, result.Confidence)
}

func shortHash(hash string) string {
	if len(hash) > 12 {
		return hash[:12]
	}
	return hash
}

// collectRenames gathers all renames in the cluster, sorted by old path.
func collectRenames(c cluster.Cluster) [][2]string {
	var renames [][2]string
	for _, commit := range c.Commits {
		for from, to := range commit.Renamed {
			renames = append(renames, [2]string{from, to})
		}
	}
	sort.Slice(renames, func(i, j int) bool { return renames[i][0] < renames[j][0] })
	return renames
}

// collectTouched gathers the distinct touched paths, sorted.
func collectTouched(c cluster.Cluster) []string {
	set := map[string]struct{}{}
	for _, commit := range c.Commits {
		for _, p := range commit.Added {
			set[p] = struct{}{}
		}
		for _, p := range commit.Modified {
			set[p] = struct{}{}
		}
		for _, p := range commit.Deleted {
			set[p] = struct{}{}
		}
		for _, to := range commit.Renamed {
			set[to] = struct{}{}
		}
	}
	paths := make([]string, 0, len(set))
	for p := range set {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}
