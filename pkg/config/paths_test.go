// Copyright © 2026 Teradata Corporation - All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDataDir(t *testing.T) {
	originalEnv := os.Getenv("WORKFLOW_MANAGER_DATA_DIR")
	defer func() {
		if originalEnv != "" {
			_ = os.Setenv("WORKFLOW_MANAGER_DATA_DIR", originalEnv)
		} else {
			_ = os.Unsetenv("WORKFLOW_MANAGER_DATA_DIR")
		}
	}()

	t.Run("default to ~/.workflow-manager", func(t *testing.T) {
		_ = os.Unsetenv("WORKFLOW_MANAGER_DATA_DIR")

		dataDir := DataDir()

		homeDir, err := os.UserHomeDir()
		require.NoError(t, err)
		expected := filepath.Join(homeDir, ".workflow-manager")
		assert.Equal(t, expected, dataDir)
	})

	t.Run("use WORKFLOW_MANAGER_DATA_DIR when set", func(t *testing.T) {
		customDir := "/custom/workflow-manager/data"
		_ = os.Setenv("WORKFLOW_MANAGER_DATA_DIR", customDir)

		dataDir := DataDir()

		assert.Equal(t, customDir, dataDir)
	})

	t.Run("expand ~ in WORKFLOW_MANAGER_DATA_DIR", func(t *testing.T) {
		_ = os.Setenv("WORKFLOW_MANAGER_DATA_DIR", "~/custom/.workflow-manager")

		dataDir := DataDir()

		homeDir, err := os.UserHomeDir()
		require.NoError(t, err)
		expected := filepath.Join(homeDir, "custom", ".workflow-manager")
		assert.Equal(t, expected, dataDir)
	})

	t.Run("make relative path absolute in WORKFLOW_MANAGER_DATA_DIR", func(t *testing.T) {
		_ = os.Setenv("WORKFLOW_MANAGER_DATA_DIR", "relative/path")

		dataDir := DataDir()

		assert.True(t, filepath.IsAbs(dataDir))
		assert.True(t, strings.HasSuffix(dataDir, "relative/path") || strings.HasSuffix(dataDir, "relative\\path"))
	})
}

func TestSubDir(t *testing.T) {
	originalEnv := os.Getenv("WORKFLOW_MANAGER_DATA_DIR")
	defer func() {
		if originalEnv != "" {
			_ = os.Setenv("WORKFLOW_MANAGER_DATA_DIR", originalEnv)
		} else {
			_ = os.Unsetenv("WORKFLOW_MANAGER_DATA_DIR")
		}
	}()

	t.Run("return subdirectory path", func(t *testing.T) {
		_ = os.Unsetenv("WORKFLOW_MANAGER_DATA_DIR")

		checkpointsDir := SubDir("checkpoints")

		homeDir, err := os.UserHomeDir()
		require.NoError(t, err)
		expected := filepath.Join(homeDir, ".workflow-manager", "checkpoints")
		assert.Equal(t, expected, checkpointsDir)
	})

	t.Run("respect WORKFLOW_MANAGER_DATA_DIR for subdirectories", func(t *testing.T) {
		customDir := "/custom/workflow-manager"
		_ = os.Setenv("WORKFLOW_MANAGER_DATA_DIR", customDir)

		eventsDir := SubDir("events")

		expected := filepath.Join(customDir, "events")
		assert.Equal(t, expected, eventsDir)
	})
}

func TestExpandPath(t *testing.T) {
	homeDir, err := os.UserHomeDir()
	require.NoError(t, err)

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "expand tilde",
			input:    "~/test/path",
			expected: filepath.Join(homeDir, "test", "path"),
		},
		{
			name:     "absolute path unchanged",
			input:    "/absolute/path",
			expected: "/absolute/path",
		},
		{
			name:  "relative path made absolute",
			input: "relative/path",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := expandPath(tt.input)

			if tt.name == "relative path made absolute" {
				assert.True(t, filepath.IsAbs(result))
				assert.True(t, strings.HasSuffix(result, "relative/path") || strings.HasSuffix(result, "relative\\path"))
			} else {
				assert.Equal(t, tt.expected, result)
			}
		})
	}
}
