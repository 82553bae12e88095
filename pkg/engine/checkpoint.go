// Copyright 2026 Teradata
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
package engine

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/molaco/workflow-manager/internal/event"
)

// WriteCheckpoint atomically writes a resumable artifact under the
// engine's checkpoint directory, registers it under kind so later
// selected phases can require it, and emits a state_file_created event
// carrying the path and description. Returns the final path.
func (pc *PhaseContext) WriteCheckpoint(kind, filename string, data []byte, description string) (string, error) {
	dir := pc.engine.opts.CheckpointDir
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("engine: create checkpoint dir %s: %w", dir, err)
	}

	path := filepath.Join(dir, filename)
	if err := atomicWriteFile(path, data); err != nil {
		return "", err
	}

	pc.engine.outputsMu.Lock()
	pc.engine.outputs[kind] = path
	pc.engine.outputsMu.Unlock()
	pc.engine.emitter.Publish(event.StateFileCreated(pc.index, path, description))
	return path, nil
}

// atomicWriteFile writes data to a temp file in the target's directory,
// fsyncs, and renames it over the final path, so a crash mid-write never
// leaves a torn checkpoint behind.
func atomicWriteFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("engine: create temp for %s: %w", path, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("engine: write temp for %s: %w", path, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("engine: sync temp for %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("engine: close temp for %s: %w", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("engine: rename checkpoint into place %s: %w", path, err)
	}
	return nil
}
