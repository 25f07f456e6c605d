package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommandWiring(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	assert.True(t, names["analyze"], "analyze command registered")
	assert.True(t, names["watch"], "watch command registered")

	flag := rootCmd.PersistentFlags().Lookup("config")
	require.NotNil(t, flag)
	assert.Equal(t, "c", flag.Shorthand)
}

func TestAnalyzeCommand_JSONFlag(t *testing.T) {
	require.NotNil(t, analyzeCmd.Flags().Lookup("json"))
}

func TestSetup_RequiresRepositoryPath(t *testing.T) {
	t.Setenv("REPOPILOT_REPOSITORY_PATH", "")
	_, _, err := setup()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "repository.path")
}
