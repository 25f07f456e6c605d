// Package config provides configuration loading for repopilot.
//
// Configuration is loaded from a YAML file and overridden by environment
// variables. Every analysis threshold the decision engines consume lives
// here; the engines themselves carry no defaults.
package config

import (
	"errors"
	"fmt"
	"time"
)

// Config holds the complete repopilot configuration.
type Config struct {
	Repository RepositoryConfig `koanf:"repository"`
	Clustering ClusteringConfig `koanf:"clustering"`
	Classify   ClassifyConfig   `koanf:"classify"`
	Policy     PolicyConfig     `koanf:"policy"`
	Docs       DocsConfig       `koanf:"docs"`
	Watch      WatchConfig      `koanf:"watch"`
	Server     ServerConfig     `koanf:"server"`
	Logging    LoggingConfig    `koanf:"logging"`
}

// RepositoryConfig identifies the repository under analysis.
type RepositoryConfig struct {
	// Path is the local repository root. Required.
	Path string `koanf:"path"`

	// Branch to analyze. Empty means the checked-out HEAD branch.
	Branch string `koanf:"branch"`

	// Remote used when pushing regeneration commits.
	Remote string `koanf:"remote"`

	// HistoryLimit caps how many recent commits the reader fetches.
	HistoryLimit int `koanf:"history_limit"`

	// AllowedBranches are branches authorized for automated doc commits.
	AllowedBranches []string `koanf:"allowed_branches"`
}

// ClusteringConfig controls how history is partitioned into clusters.
type ClusteringConfig struct {
	// InactivityThreshold is the maximum quiet gap inside one cluster.
	InactivityThreshold Duration `koanf:"inactivity_threshold"`

	// SystemAuthors are identities whose commits seal cluster boundaries,
	// the daemon's own identity above all.
	SystemAuthors []string `koanf:"system_authors"`
}

// ClassifyConfig holds the classification heuristics.
type ClassifyConfig struct {
	NoiseExtensions       []string `koanf:"noise_extensions"`
	NoiseDirectories      []string `koanf:"noise_directories"`
	RenameThreshold       int      `koanf:"rename_threshold"`
	ConfigFilenames       []string `koanf:"config_filenames"`
	InsertionThreshold    int      `koanf:"insertion_threshold"`
	MinCommits            int      `koanf:"min_commits"`
	VendorDirectories     []string `koanf:"vendor_directories"`
	RefactorDeletionRatio float64  `koanf:"refactor_deletion_ratio"`
}

// PolicyConfig holds the temporal trigger thresholds per document.
type PolicyConfig struct {
	ChangelogThreshold    Duration `koanf:"changelog_threshold"`
	ArchitectureThreshold Duration `koanf:"architecture_threshold"`
	MetricsThreshold      Duration `koanf:"metrics_threshold"`
}

// DocsConfig controls rendered document placement and the daemon commit
// identity.
type DocsConfig struct {
	// Dir is the output directory, relative to the repository root.
	Dir string `koanf:"dir"`

	ChangelogFile    string `koanf:"changelog_file"`
	ArchitectureFile string `koanf:"architecture_file"`
	MetricsFile      string `koanf:"metrics_file"`

	// AuthorName and AuthorEmail form the reserved daemon identity used
	// for regeneration commits. The clustering system-boundary rule and
	// the policy system-loop safeguard key off this identity.
	AuthorName  string `koanf:"author_name"`
	AuthorEmail string `koanf:"author_email"`

	// CommitMessage used for regeneration commits.
	CommitMessage string `koanf:"commit_message"`

	// Push publishes regeneration commits to the configured remote.
	Push bool `koanf:"push"`
}

// WatchConfig controls the filesystem watch loop.
type WatchConfig struct {
	// Debounce coalesces bursts of filesystem events into one cycle.
	Debounce Duration `koanf:"debounce"`

	// MinCycleInterval rate-limits back-to-back analysis cycles.
	MinCycleInterval Duration `koanf:"min_cycle_interval"`
}

// ServerConfig controls the status/metrics HTTP server in watch mode.
type ServerConfig struct {
	Enabled bool `koanf:"enabled"`
	Port    int  `koanf:"port"`
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `koanf:"level"`

	// Format is "json" or "console".
	Format string `koanf:"format"`
}

// SystemAuthorSet returns the system authors as a membership set for the
// clustering engine.
func (c *Config) SystemAuthorSet() map[string]struct{} {
	set := make(map[string]struct{}, len(c.Clustering.SystemAuthors))
	for _, a := range c.Clustering.SystemAuthors {
		set[a] = struct{}{}
	}
	return set
}

// DaemonIdentity returns the daemon author as "Name <email>", the form the
// reader produces and the boundary rules compare against.
func (c *Config) DaemonIdentity() string {
	return fmt.Sprintf("%s <%s>", c.Docs.AuthorName, c.Docs.AuthorEmail)
}

// Validate checks configuration invariants. It is called by the loader
// after defaults are applied, so a loaded Config is always valid.
func (c *Config) Validate() error {
	if c.Repository.Path == "" {
		return errors.New("repository.path is required")
	}
	if len(c.Repository.AllowedBranches) == 0 {
		return errors.New("repository.allowed_branches must not be empty")
	}
	if c.Repository.HistoryLimit < 0 {
		return fmt.Errorf("repository.history_limit must be >= 0, got %d", c.Repository.HistoryLimit)
	}

	if c.Clustering.InactivityThreshold.Duration() <= 0 {
		return errors.New("clustering.inactivity_threshold must be positive")
	}

	if c.Classify.RenameThreshold < 1 {
		return fmt.Errorf("classify.rename_threshold must be >= 1, got %d", c.Classify.RenameThreshold)
	}
	if c.Classify.InsertionThreshold < 1 {
		return fmt.Errorf("classify.insertion_threshold must be >= 1, got %d", c.Classify.InsertionThreshold)
	}
	if c.Classify.MinCommits < 1 {
		return fmt.Errorf("classify.min_commits must be >= 1, got %d", c.Classify.MinCommits)
	}
	if c.Classify.RefactorDeletionRatio <= 0 || c.Classify.RefactorDeletionRatio > 1 {
		return fmt.Errorf("classify.refactor_deletion_ratio must be in (0, 1], got %g", c.Classify.RefactorDeletionRatio)
	}

	if c.Policy.ChangelogThreshold.Duration() <= 0 {
		return errors.New("policy.changelog_threshold must be positive")
	}
	if c.Policy.ArchitectureThreshold.Duration() <= 0 {
		return errors.New("policy.architecture_threshold must be positive")
	}
	if c.Policy.MetricsThreshold.Duration() <= 0 {
		return errors.New("policy.metrics_threshold must be positive")
	}

	if c.Docs.AuthorName == "" || c.Docs.AuthorEmail == "" {
		return errors.New("docs.author_name and docs.author_email are required")
	}

	if c.Server.Enabled && (c.Server.Port < 1 || c.Server.Port > 65535) {
		return fmt.Errorf("server.port must be in 1..65535, got %d", c.Server.Port)
	}

	switch c.Logging.Format {
	case "json", "console":
	default:
		return fmt.Errorf("logging.format must be json or console, got %q", c.Logging.Format)
	}

	return nil
}

// applyDefaults sets default values for missing configuration fields.
// Thresholds mirror the documented repopilot daemon defaults; the decision
// engines themselves never assume them.
func applyDefaults(cfg *Config) {
	if cfg.Repository.Remote == "" {
		cfg.Repository.Remote = "origin"
	}
	if cfg.Repository.HistoryLimit == 0 {
		cfg.Repository.HistoryLimit = 500
	}
	if len(cfg.Repository.AllowedBranches) == 0 {
		cfg.Repository.AllowedBranches = []string{"main", "master"}
	}

	if cfg.Clustering.InactivityThreshold == 0 {
		cfg.Clustering.InactivityThreshold = Duration(2 * time.Hour) // 120-minute window
	}

	if len(cfg.Classify.NoiseExtensions) == 0 {
		cfg.Classify.NoiseExtensions = []string{".md", ".txt", ".lock", ".svg"}
	}
	if len(cfg.Classify.NoiseDirectories) == 0 {
		cfg.Classify.NoiseDirectories = []string{"docs/", ".idea/", ".vscode/"}
	}
	if cfg.Classify.RenameThreshold == 0 {
		cfg.Classify.RenameThreshold = 3
	}
	if len(cfg.Classify.ConfigFilenames) == 0 {
		cfg.Classify.ConfigFilenames = []string{
			"go.mod", "package.json", "pyproject.toml", "Dockerfile", "Makefile",
		}
	}
	if cfg.Classify.InsertionThreshold == 0 {
		cfg.Classify.InsertionThreshold = 100
	}
	if cfg.Classify.MinCommits == 0 {
		cfg.Classify.MinCommits = 3
	}
	if len(cfg.Classify.VendorDirectories) == 0 {
		cfg.Classify.VendorDirectories = []string{"vendor/", "node_modules/", "third_party/"}
	}
	if cfg.Classify.RefactorDeletionRatio == 0 {
		cfg.Classify.RefactorDeletionRatio = 0.5
	}

	if cfg.Policy.ChangelogThreshold == 0 {
		cfg.Policy.ChangelogThreshold = Duration(24 * time.Hour)
	}
	if cfg.Policy.ArchitectureThreshold == 0 {
		cfg.Policy.ArchitectureThreshold = Duration(7 * 24 * time.Hour)
	}
	if cfg.Policy.MetricsThreshold == 0 {
		cfg.Policy.MetricsThreshold = Duration(24 * time.Hour)
	}

	if cfg.Docs.ChangelogFile == "" {
		cfg.Docs.ChangelogFile = "CHANGELOG.md"
	}
	if cfg.Docs.ArchitectureFile == "" {
		cfg.Docs.ArchitectureFile = "ARCHITECTURE_CHURN.md"
	}
	if cfg.Docs.MetricsFile == "" {
		cfg.Docs.MetricsFile = "DEVELOPMENT_METRICS.md"
	}
	if cfg.Docs.AuthorName == "" {
		cfg.Docs.AuthorName = "repopilot-daemon"
	}
	if cfg.Docs.AuthorEmail == "" {
		cfg.Docs.AuthorEmail = "repopilot@localhost"
	}
	if cfg.Docs.CommitMessage == "" {
		cfg.Docs.CommitMessage = "docs: regenerate documentation"
	}

	// The daemon identity always seals cluster boundaries, even when the
	// operator configures additional system authors.
	daemon := cfg.DaemonIdentity()
	found := false
	for _, a := range cfg.Clustering.SystemAuthors {
		if a == daemon {
			found = true
			break
		}
	}
	if !found {
		cfg.Clustering.SystemAuthors = append(cfg.Clustering.SystemAuthors, daemon)
	}

	if cfg.Watch.Debounce == 0 {
		cfg.Watch.Debounce = Duration(2 * time.Second)
	}
	if cfg.Watch.MinCycleInterval == 0 {
		cfg.Watch.MinCycleInterval = Duration(30 * time.Second)
	}

	if cfg.Server.Port == 0 {
		cfg.Server.Port = 9182
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
}
