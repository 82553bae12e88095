// Copyright © 2026 Teradata Corporation - All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Session is the small state file recording the most recent run, so
// `history show` without arguments and a future resume can find it
// without querying the database.
type Session struct {
	LastRunID      string    `json:"last_run_id"`
	LastWorkflowID string    `json:"last_workflow_id"`
	LastBinaryPath string    `json:"last_binary_path"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func sessionPath() string {
	return filepath.Join(DataDir(), "session.json")
}

// SaveSession writes the session file, creating the data directory if
// needed.
func SaveSession(s Session) error {
	s.UpdatedAt = time.Now()
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("config: marshal session: %w", err)
	}
	if err := os.MkdirAll(DataDir(), 0o755); err != nil {
		return fmt.Errorf("config: create data dir: %w", err)
	}
	if err := os.WriteFile(sessionPath(), data, 0o644); err != nil {
		return fmt.Errorf("config: write session: %w", err)
	}
	return nil
}

// LoadSession reads the session file. A missing file returns a zero
// Session and no error.
func LoadSession() (Session, error) {
	var s Session
	data, err := os.ReadFile(sessionPath())
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return s, fmt.Errorf("config: read session: %w", err)
	}
	if err := json.Unmarshal(data, &s); err != nil {
		return s, fmt.Errorf("config: parse session: %w", err)
	}
	return s, nil
}
