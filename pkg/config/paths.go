// Copyright © 2026 Teradata Corporation - All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

package config

import (
	"os"
	"path/filepath"
	"strings"
)

// DataDir returns the workflow-manager data directory, where the event
// store database and session files live.
//
// Priority:
// 1. WORKFLOW_MANAGER_DATA_DIR environment variable (if set and non-empty)
// 2. ~/.workflow-manager (default)
//
// The returned path is always absolute. Tilde (~) in
// WORKFLOW_MANAGER_DATA_DIR is expanded to the user's home directory.
// Relative paths are converted to absolute paths.
//
// This function is called during bootstrap, before the loaded
// configuration (viper) layer exists, to locate the config file itself —
// it reads directly from os.Getenv() to avoid a circular dependency on
// the config loader.
//
// Examples:
//
//	WORKFLOW_MANAGER_DATA_DIR=/custom/dir   -> /custom/dir
//	WORKFLOW_MANAGER_DATA_DIR=~/my-data     -> /home/user/my-data
//	WORKFLOW_MANAGER_DATA_DIR=relative/path -> /current/dir/relative/path
//	WORKFLOW_MANAGER_DATA_DIR not set       -> /home/user/.workflow-manager
func DataDir() string {
	if dataDir := os.Getenv("WORKFLOW_MANAGER_DATA_DIR"); dataDir != "" {
		return expandPath(dataDir)
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ".workflow-manager"
	}
	return filepath.Join(homeDir, ".workflow-manager")
}

// SandboxDir returns the working directory agent child processes are
// spawned with.
//
// Priority:
// 1. WORKFLOW_MANAGER_SANDBOX_DIR environment variable
// 2. DataDir() (default)
//
// Kept separate from DataDir so an agent's filesystem tool calls land in
// a project directory rather than inside the orchestrator's own data
// directory (databases, checkpoints, config).
func SandboxDir() string {
	if sandboxDir := os.Getenv("WORKFLOW_MANAGER_SANDBOX_DIR"); sandboxDir != "" {
		return expandPath(sandboxDir)
	}
	return DataDir()
}

// SubDir returns a subdirectory within the data directory, e.g.
// SubDir("checkpoints") -> ~/.workflow-manager/checkpoints.
func SubDir(subdir string) string {
	return filepath.Join(DataDir(), subdir)
}

// expandPath expands ~ and resolves to absolute path.
func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(homeDir, path[2:])
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return path
	}
	return absPath
}
