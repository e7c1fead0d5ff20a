package cmd

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListCmd_NoSourcesTracked(t *testing.T) {
	// Given: a fresh data directory with nothing fetched
	t.Setenv("OPENSRC_DIR", t.TempDir())

	cmd := newListCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{})

	// When: listing
	err := cmd.Execute()

	// Then: it should report nothing tracked, not an empty table
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "no sources tracked")
}

func TestListCmd_AddedToRoot(t *testing.T) {
	// Given: the root command
	rootCmd := NewRootCmd()

	// When: looking for the list subcommand
	listCmd, _, err := rootCmd.Find([]string{"list"})

	// Then: it should exist
	require.NoError(t, err)
	assert.Equal(t, "list", listCmd.Name())
}
