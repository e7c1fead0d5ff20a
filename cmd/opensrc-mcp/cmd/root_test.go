package cmd

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCmd_ShowsHelp(t *testing.T) {
	// Given: a root command

	// When: executing with --help
	cmd := NewRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"--help"})

	err := cmd.Execute()

	// Then: it should show usage information
	require.NoError(t, err)
	output := buf.String()
	assert.Contains(t, output, "opensrc-mcp", "Help should mention program name")
	assert.Contains(t, output, "Usage:", "Help should show usage")
}

func TestRootCmd_ShowsVersion(t *testing.T) {
	// Given: a root command

	// When: executing with --version
	cmd := NewRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"--version"})

	err := cmd.Execute()

	// Then: it should show version
	require.NoError(t, err)
	output := buf.String()
	assert.Contains(t, output, "opensrc-mcp", "Version output should mention program name")
	assert.True(t, strings.Contains(output, "version"), "Version output should use the custom template")
}

func TestRootCmd_HasSubcommands(t *testing.T) {
	// Given: a root command

	// When: checking available commands
	cmd := NewRootCmd()
	subcommands := cmd.Commands()

	var commandNames []string
	for _, subcmd := range subcommands {
		commandNames = append(commandNames, subcmd.Name())
	}

	// Then: every subcommand should be registered
	assert.Contains(t, commandNames, "serve")
	assert.Contains(t, commandNames, "fetch")
	assert.Contains(t, commandNames, "list")
	assert.Contains(t, commandNames, "remove")
	assert.Contains(t, commandNames, "clean")
	assert.Contains(t, commandNames, "doctor")
	assert.Contains(t, commandNames, "logs")
	assert.Contains(t, commandNames, "version")
}

func TestRootCmd_HasPersistentFlags(t *testing.T) {
	// Given: a root command
	cmd := NewRootCmd()

	// Then: the profiling/debug/config flags should be registered
	for _, name := range []string{"profile-cpu", "profile-mem", "profile-trace", "debug", "config"} {
		flag := cmd.PersistentFlags().Lookup(name)
		assert.NotNil(t, flag, "Should have --%s flag", name)
	}
}

func TestServeCmd_ShowsHelp(t *testing.T) {
	// Given: a root command

	// When: executing serve --help
	cmd := NewRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"serve", "--help"})

	err := cmd.Execute()

	// Then: it should show serve usage
	require.NoError(t, err)
	output := buf.String()
	assert.Contains(t, output, "stdio", "Serve help should mention the stdio transport")
}
