package utils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "gflow.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestReadConfig(t *testing.T) {
	path := writeConfig(t, `
task: optimize
fun: main
jobs: 4
dce: true
nodesep: 0.5
`)

	cfg, err := ReadConfig(path)
	require.NoError(t, err)
	require.NotNil(t, cfg.Task)
	assert.Equal(t, "optimize", *cfg.Task)
	assert.Equal(t, "main", *cfg.Function)
	assert.Equal(t, uint(4), *cfg.Jobs)
	assert.True(t, *cfg.DCE)
	assert.Equal(t, 0.5, *cfg.Nodesep)
	assert.Nil(t, cfg.Verbose)
}

func TestReadConfigRejectsUnknownKeys(t *testing.T) {
	path := writeConfig(t, "tsak: optimize\n")

	_, err := ReadConfig(path)
	assert.Error(t, err)
}

func TestReadConfigMissingFile(t *testing.T) {
	_, err := ReadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestConfigApplyKeepsExplicitFlags(t *testing.T) {
	task, fun := "cfg", "f"
	jobs := uint(8)
	verbose := true
	cfg := &Config{Task: &task, Function: &fun, Jobs: &jobs, Verbose: &verbose}

	o := &options{task: "analyze", function: ".", jobs: 1}
	cfg.apply(o, map[string]bool{"fun": true})

	assert.Equal(t, "cfg", o.task)
	assert.Equal(t, ".", o.function, "explicit flag must win over the config file")
	assert.Equal(t, uint(8), o.jobs)
	assert.True(t, o.verbose)
	assert.False(t, o.dce)
}
