package cmd

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmmulroy/opensrc-mcp/internal/config"
)

func TestCheckDataDirWritable_CreatesAndProbes(t *testing.T) {
	// Given: a data dir that does not exist yet
	cfg := config.Default()
	cfg.DataDir = t.TempDir() + "/nested/data"

	// When: checking writability
	check := checkDataDirWritable(cfg)

	// Then: it should create the directory and pass
	assert.True(t, check.pass)
}

func TestDoctorCmd_ReportsEachCheck(t *testing.T) {
	// Given: a fresh data directory
	t.Setenv("OPENSRC_DIR", t.TempDir())

	cmd := newDoctorCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{})

	// When: running doctor
	err := cmd.Execute()

	// Then: every check should be reported by name, regardless of pass/fail
	output := buf.String()
	assert.Contains(t, output, "data directory")
	assert.Contains(t, output, "sqlite-vec extension")
	assert.Contains(t, output, "embedder")
	_ = err // doctor's exit status depends on host sqlite-vec availability
}

func TestDoctorCmd_AddedToRoot(t *testing.T) {
	// Given: the root command
	rootCmd := NewRootCmd()

	// When: looking for the doctor subcommand
	doctorCmd, _, err := rootCmd.Find([]string{"doctor"})

	// Then: it should exist
	require.NoError(t, err)
	assert.Equal(t, "doctor", doctorCmd.Name())
}
