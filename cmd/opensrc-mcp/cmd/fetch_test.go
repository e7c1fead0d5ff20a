package cmd

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetchCmd_InvalidSpecReportsErrorWithoutFailingCommand(t *testing.T) {
	// Given: a fresh data directory
	t.Setenv("OPENSRC_DIR", t.TempDir())

	cmd := newFetchCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"github:no-slash-in-this-name"})

	// When: fetching a github spec missing the required owner/repo slash
	err := cmd.Execute()

	// Then: the command reports the per-spec error inline rather than
	// aborting, since a batch of specs may be a mix of good and bad
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "error")
}

func TestFetchCmd_HasModifyFlag(t *testing.T) {
	// Given: the fetch command
	cmd := newFetchCmd()

	// Then: it should expose --modify
	flag := cmd.Flags().Lookup("modify")
	assert.NotNil(t, flag)
	assert.Equal(t, "false", flag.DefValue)
}

func TestFetchCmd_AddedToRoot(t *testing.T) {
	// Given: the root command
	rootCmd := NewRootCmd()

	// When: looking for the fetch subcommand
	fetchCmd, _, err := rootCmd.Find([]string{"fetch"})

	// Then: it should exist
	require.NoError(t, err)
	assert.Equal(t, "fetch", fetchCmd.Name())
}
