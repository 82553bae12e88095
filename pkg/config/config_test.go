// Copyright © 2026 Teradata Corporation - All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("WORKFLOW_MANAGER_DATA_DIR", t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, int64(1), cfg.Concurrency)
	assert.Equal(t, 4, cfg.BatchSize)
	assert.Equal(t, 3, cfg.FixIterations)
	assert.Contains(t, cfg.DBPath, "workflow-manager.db")
}

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("WORKFLOW_MANAGER_DATA_DIR", dir)

	path := filepath.Join(dir, ConfigFileName)
	require.NoError(t, os.WriteFile(path, []byte(`
log_level: debug
concurrency: 8
planner:
  backend: anthropic
  model: claude-sonnet-4-5-20250929
`), 0o644))

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, int64(8), cfg.Concurrency)
	assert.Equal(t, "anthropic", cfg.Planner.Backend)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("WORKFLOW_MANAGER_DATA_DIR", dir)
	t.Setenv("WORKFLOW_MANAGER_LOG_LEVEL", "warn")

	path := filepath.Join(dir, ConfigFileName)
	require.NoError(t, os.WriteFile(path, []byte("log_level: debug\n"), 0o644))

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.LogLevel)
}

func TestLoadExplicitFileMustExist(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestSessionRoundTrip(t *testing.T) {
	t.Setenv("WORKFLOW_MANAGER_DATA_DIR", t.TempDir())

	require.NoError(t, SaveSession(Session{
		LastRunID:      "run-1",
		LastWorkflowID: "demo",
		LastBinaryPath: "/usr/local/bin/demo",
	}))

	s, err := LoadSession()
	require.NoError(t, err)
	assert.Equal(t, "run-1", s.LastRunID)
	assert.Equal(t, "demo", s.LastWorkflowID)
	assert.False(t, s.UpdatedAt.IsZero())
}

func TestLoadSessionMissingFile(t *testing.T) {
	t.Setenv("WORKFLOW_MANAGER_DATA_DIR", t.TempDir())
	s, err := LoadSession()
	require.NoError(t, err)
	assert.Empty(t, s.LastRunID)
}
