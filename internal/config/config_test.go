package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// validConfig returns a config that passes validation after defaults.
func validConfig() *Config {
	cfg := &Config{}
	cfg.Repository.Path = "/tmp/repo"
	applyDefaults(cfg)
	return cfg
}

func TestApplyDefaults(t *testing.T) {
	cfg := validConfig()

	assert.Equal(t, 2*time.Hour, cfg.Clustering.InactivityThreshold.Duration())
	assert.Equal(t, []string{"main", "master"}, cfg.Repository.AllowedBranches)
	assert.Equal(t, "repopilot-daemon", cfg.Docs.AuthorName)
	assert.Equal(t, "CHANGELOG.md", cfg.Docs.ChangelogFile)
	assert.Equal(t, "ARCHITECTURE_CHURN.md", cfg.Docs.ArchitectureFile)
	assert.Equal(t, "DEVELOPMENT_METRICS.md", cfg.Docs.MetricsFile)
	assert.Equal(t, 24*time.Hour, cfg.Policy.ChangelogThreshold.Duration())
	assert.Equal(t, 7*24*time.Hour, cfg.Policy.ArchitectureThreshold.Duration())
}

func TestApplyDefaults_DaemonIdentityIsSystemAuthor(t *testing.T) {
	cfg := validConfig()
	assert.Contains(t, cfg.Clustering.SystemAuthors, "repopilot-daemon <repopilot@localhost>")

	// Custom system authors are preserved alongside the daemon identity.
	cfg2 := &Config{}
	cfg2.Repository.Path = "/tmp/repo"
	cfg2.Clustering.SystemAuthors = []string{"ci-bot <ci@example.com>"}
	applyDefaults(cfg2)
	assert.Contains(t, cfg2.Clustering.SystemAuthors, "ci-bot <ci@example.com>")
	assert.Contains(t, cfg2.Clustering.SystemAuthors, cfg2.DaemonIdentity())
}

func TestValidate_Valid(t *testing.T) {
	require.NoError(t, validConfig().Validate())
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"missing path", func(c *Config) { c.Repository.Path = "" }, "repository.path"},
		{"no allowed branches", func(c *Config) { c.Repository.AllowedBranches = nil }, "allowed_branches"},
		{"negative history limit", func(c *Config) { c.Repository.HistoryLimit = -1 }, "history_limit"},
		{"zero inactivity", func(c *Config) { c.Clustering.InactivityThreshold = 0 }, "inactivity_threshold"},
		{"zero rename threshold", func(c *Config) { c.Classify.RenameThreshold = 0 }, "rename_threshold"},
		{"bad ratio", func(c *Config) { c.Classify.RefactorDeletionRatio = 1.5 }, "refactor_deletion_ratio"},
		{"zero changelog threshold", func(c *Config) { c.Policy.ChangelogThreshold = 0 }, "changelog_threshold"},
		{"missing author", func(c *Config) { c.Docs.AuthorName = "" }, "author_name"},
		{"bad port", func(c *Config) { c.Server.Enabled = true; c.Server.Port = 99999 }, "server.port"},
		{"bad log format", func(c *Config) { c.Logging.Format = "xml" }, "logging.format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestDuration_UnmarshalText(t *testing.T) {
	var d Duration
	require.NoError(t, d.UnmarshalText([]byte("90m")))
	assert.Equal(t, 90*time.Minute, d.Duration())

	assert.Error(t, d.UnmarshalText([]byte("-1h")))
	assert.Error(t, d.UnmarshalText([]byte("soon")))
}

func TestSystemAuthorSet(t *testing.T) {
	cfg := validConfig()
	set := cfg.SystemAuthorSet()
	_, ok := set[cfg.DaemonIdentity()]
	assert.True(t, ok)
}
