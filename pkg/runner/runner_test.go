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
package runner

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/molaco/workflow-manager/internal/event"
)

type recordEmitter struct {
	mu     sync.Mutex
	events []event.Event
}

func (r *recordEmitter) Publish(e event.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recordEmitter) all() []event.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]event.Event(nil), r.events...)
}

func TestBuildArgs(t *testing.T) {
	args := BuildArgs(Options{
		Params:         map[string]string{"topic": "storage", "depth": "2"},
		Phases:         []int{2, 3, 4},
		Concurrency:    4,
		SimpleBatching: true,
		ResumeFiles:    map[string]string{"prompts": "/tmp/p.json"},
		OutputDir:      "/tmp/out",
		ExtraArgs:      []string{"--verbose"},
	})
	assert.Equal(t, []string{
		"--depth", "2",
		"--topic", "storage",
		"--phases", "2,3,4",
		"--concurrency", "4",
		"--simple-batching",
		"--resume", "prompts=/tmp/p.json",
		"--output", "/tmp/out",
		"--verbose",
	}, args)
}

func TestBuildArgsMinimal(t *testing.T) {
	assert.Empty(t, BuildArgs(Options{}))
}

// writeScript drops an executable shell script for the run tests.
func writeScript(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell script test")
	}
	path := filepath.Join(t.TempDir(), "workflow.sh")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0o755))
	return path
}

func TestRunClassifiesOutput(t *testing.T) {
	script := writeScript(t, `
echo '`+event.Marker+`{"type":"phase_started","phase":0,"name":"X","total_phases":1}' >&2
echo 'plain diagnostics' >&2
echo 'stdout noise'
exit 0
`)

	rec := &recordEmitter{}
	code, err := Run(context.Background(), Options{BinaryPath: script}, rec)
	require.NoError(t, err)
	assert.Equal(t, 0, code)

	var started, rawErr, rawOut int
	for _, e := range rec.all() {
		switch {
		case e.Type == event.TypePhaseStarted:
			started++
			assert.Equal(t, "X", e.Name)
			assert.Equal(t, 1, e.TotalPhases)
		case e.Type == event.TypeRawOutput && e.Stream == event.StreamStderr:
			rawErr++
			assert.Equal(t, "plain diagnostics", e.Line)
		case e.Type == event.TypeRawOutput && e.Stream == event.StreamStdout:
			rawOut++
			assert.Equal(t, "stdout noise", e.Line)
		}
	}
	assert.Equal(t, 1, started)
	assert.Equal(t, 1, rawErr)
	assert.Equal(t, 1, rawOut)
}

func TestRunReportsExitCode(t *testing.T) {
	script := writeScript(t, "exit 3\n")

	rec := &recordEmitter{}
	code, err := Run(context.Background(), Options{BinaryPath: script}, rec)
	require.NoError(t, err)
	assert.Equal(t, 3, code)
}

func TestRunSpawnFailure(t *testing.T) {
	rec := &recordEmitter{}
	_, err := Run(context.Background(), Options{BinaryPath: "/nonexistent/workflow-binary"}, rec)
	assert.Error(t, err)
}

func TestMetadataQuery(t *testing.T) {
	script := writeScript(t, `
if [ "$1" = "--workflow-metadata" ]; then
  echo '{"id":"demo","name":"Demo","description":"d","fields":[]}'
  exit 0
fi
exit 1
`)

	meta, err := Metadata(context.Background(), script)
	require.NoError(t, err)
	assert.Equal(t, "demo", meta.ID)
	assert.Equal(t, "Demo", meta.Name)
}
