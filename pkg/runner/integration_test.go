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
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/molaco/workflow-manager/internal/event"
	"github.com/molaco/workflow-manager/pkg/eventbus"
	"github.com/molaco/workflow-manager/pkg/store"
)

// TestSinglePhaseHappyPath drives a fake workflow binary through the
// full supervision pipeline: stderr marker lines into the Bus, the Bus
// into the Store, exit code zero, and the four events persisted in
// order with sequence numbers 0..3.
func TestSinglePhaseHappyPath(t *testing.T) {
	script := writeScript(t, `
echo '`+event.Marker+`{"type":"phase_started","phase":0,"name":"X","total_phases":1}' >&2
echo '`+event.Marker+`{"type":"task_started","phase":0,"task_id":"t1","description":"desc","total_tasks":1}' >&2
echo '`+event.Marker+`{"type":"task_completed","task_id":"t1"}' >&2
echo '`+event.Marker+`{"type":"phase_completed","phase":0,"name":"X"}' >&2
exit 0
`)

	ctx := context.Background()
	st, err := store.Open(ctx, filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	defer st.Close()

	runID := "run-happy"
	require.NoError(t, st.InsertRun(ctx, store.Run{
		ID: runID, WorkflowID: "x", WorkflowName: "X",
		Status: store.StatusRunning, StartTime: time.Now(), BinaryPath: script,
	}))

	bus := eventbus.New(runID, st)
	busDone := make(chan struct{})
	go func() {
		bus.Run(context.Background())
		close(busDone)
	}()

	code, err := Run(ctx, Options{BinaryPath: script}, bus)
	require.NoError(t, err)
	assert.Equal(t, 0, code)

	bus.Close()
	<-busDone

	entries, err := st.QueryByRun(ctx, runID)
	require.NoError(t, err)
	require.Len(t, entries, 4)
	wantOrder := []string{"phase_started", "task_started", "task_completed", "phase_completed"}
	for i, e := range entries {
		assert.Equal(t, i, e.Sequence)
		assert.Equal(t, wantOrder[i], e.LogType)
	}

	snap := bus.Tree().Snapshot()
	require.Len(t, snap, 1)
	assert.Equal(t, eventbus.Completed, snap[0].Status)
	require.Len(t, snap[0].Tasks, 1)
	assert.Equal(t, eventbus.Completed, snap[0].Tasks[0].Status)
}
