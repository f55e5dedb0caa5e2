package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand_HasSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}

	for _, name := range []string{"detect", "score", "baseline", "watch", "serve", "version"} {
		assert.True(t, names[name], "expected subcommand %q not found", name)
	}
}

func TestRootCommand_Metadata(t *testing.T) {
	assert.Equal(t, "draftscan", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Short)
	assert.NotEmpty(t, rootCmd.Long)
}

func TestBaselineCommand_HasSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range baselineCmd.Commands() {
		names[c.Name()] = true
	}
	for _, name := range []string{"save", "show", "clear", "list"} {
		assert.True(t, names[name], "baseline should have subcommand %q", name)
	}
}

func TestDetectCommand_Flags(t *testing.T) {
	for _, name := range []string{"format", "encoding", "no-auto", "no-manual", "actionable", "save", "concurrency", "output"} {
		assert.NotNil(t, detectCmd.Flags().Lookup(name), "detect should have --%s flag", name)
	}
	assert.Equal(t, "table", detectCmd.Flags().Lookup("format").DefValue)
	assert.Equal(t, "4", detectCmd.Flags().Lookup("concurrency").DefValue)
}

func TestScoreCommand_Flags(t *testing.T) {
	flag := scoreCmd.Flags().Lookup("format")
	require.NotNil(t, flag)
	assert.Equal(t, "text", flag.DefValue)
	assert.NotNil(t, scoreCmd.Flags().Lookup("file"))
}

func TestWatchCommand_Flags(t *testing.T) {
	flag := watchCmd.Flags().Lookup("save-on-start")
	require.NotNil(t, flag)
	assert.Equal(t, "false", flag.DefValue)
}

func TestServeCommand_Flags(t *testing.T) {
	flag := serveCmd.Flags().Lookup("port")
	require.NotNil(t, flag, "serve command should have --port flag")
	assert.Equal(t, "0", flag.DefValue)
}

func TestVersionCommand(t *testing.T) {
	var out bytes.Buffer
	versionCmd.SetOut(&out)
	t.Cleanup(func() { versionCmd.SetOut(nil) })

	require.NoError(t, versionCmd.RunE(versionCmd, nil))
	assert.Equal(t, "draftscan dev (none)\n", out.String())
}
