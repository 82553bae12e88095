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
package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/molaco/workflow-manager/internal/event"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), "file::memory:?cache=shared")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestInsertAndGetRun(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	start := time.Now().Truncate(time.Second)
	r := Run{
		ID:           "run-1",
		WorkflowID:   "wf-demo",
		WorkflowName: "demo",
		Status:       StatusRunning,
		StartTime:    start,
		BinaryPath:   "/usr/local/bin/demo",
	}
	require.NoError(t, s.InsertRun(ctx, r))

	got, err := s.GetRun(ctx, "run-1")
	require.NoError(t, err)
	require.Equal(t, r.WorkflowID, got.WorkflowID)
	require.Equal(t, r.WorkflowName, got.WorkflowName)
	require.Equal(t, StatusRunning, got.Status)
	require.Nil(t, got.EndTime)
	require.Nil(t, got.ExitCode)
}

func TestUpdateRunStatusAndEndTime(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.InsertRun(ctx, Run{
		ID: "run-2", WorkflowID: "wf-demo", WorkflowName: "demo",
		Status: StatusRunning, StartTime: time.Now(), BinaryPath: "/bin/demo",
	}))

	require.NoError(t, s.UpdateRunStatus(ctx, "run-2", StatusFailed))
	end := time.Now().Truncate(time.Second)
	require.NoError(t, s.UpdateRunEndTimeAndExitCode(ctx, "run-2", end, 1))

	got, err := s.GetRun(ctx, "run-2")
	require.NoError(t, err)
	require.Equal(t, StatusFailed, got.Status)
	require.NotNil(t, got.EndTime)
	require.NotNil(t, got.ExitCode)
	require.Equal(t, 1, *got.ExitCode)
}

func TestInsertParams(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.InsertRun(ctx, Run{
		ID: "run-3", WorkflowID: "wf-demo", WorkflowName: "demo",
		Status: StatusRunning, StartTime: time.Now(), BinaryPath: "/bin/demo",
	}))
	require.NoError(t, s.InsertParams(ctx, "run-3", map[string]string{
		"input_file": "data.json",
		"phases":     "3",
	}))
}

func TestAppendEventAssignsMonotoneSequence(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.InsertRun(ctx, Run{
		ID: "run-4", WorkflowID: "wf-demo", WorkflowName: "demo",
		Status: StatusRunning, StartTime: time.Now(), BinaryPath: "/bin/demo",
	}))

	require.NoError(t, s.AppendEvent(ctx, "run-4", event.PhaseStarted(1, "gather", 3)))
	require.NoError(t, s.AppendEvent(ctx, "run-4", event.PhaseCompleted(1, "gather")))
	require.NoError(t, s.BatchInsertEvents(ctx, "run-4", []event.Event{
		event.TaskStarted(1, "t1", "fetch", 2),
		event.TaskCompleted("t1", "done"),
	}))

	logs, err := s.QueryByRun(ctx, "run-4")
	require.NoError(t, err)
	require.Len(t, logs, 4)
	for i, entry := range logs {
		require.Equal(t, i, entry.Sequence)
	}
	require.Equal(t, string(event.TypePhaseStarted), logs[0].LogType)
	require.Equal(t, string(event.TypeTaskCompleted), logs[3].LogType)
}

func TestQueryByStatusAndPaginate(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	for i, status := range []Status{StatusCompleted, StatusFailed, StatusCompleted} {
		require.NoError(t, s.InsertRun(ctx, Run{
			ID: "run-status-" + time.Now().Add(time.Duration(i)*time.Second).Format("150405.000000000"),
			WorkflowID: "wf-demo", WorkflowName: "demo",
			Status: status, StartTime: time.Now().Add(time.Duration(i) * time.Minute), BinaryPath: "/bin/demo",
		}))
	}

	completed, err := s.QueryByStatus(ctx, StatusCompleted)
	require.NoError(t, err)
	require.Len(t, completed, 2)

	failed, err := s.QueryByStatus(ctx, StatusFailed)
	require.NoError(t, err)
	require.Len(t, failed, 1)

	page, err := s.PaginateRuns(ctx, 2, 0)
	require.NoError(t, err)
	require.Len(t, page, 2)
}

func TestDeleteRunsBefore(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	old := time.Now().Add(-48 * time.Hour)
	require.NoError(t, s.InsertRun(ctx, Run{
		ID: "run-old", WorkflowID: "wf-demo", WorkflowName: "demo",
		Status: StatusCompleted, StartTime: old, BinaryPath: "/bin/demo",
	}))
	require.NoError(t, s.InsertRun(ctx, Run{
		ID: "run-new", WorkflowID: "wf-demo", WorkflowName: "demo",
		Status: StatusCompleted, StartTime: time.Now(), BinaryPath: "/bin/demo",
	}))

	n, err := s.DeleteRunsBefore(ctx, time.Now().Add(-24*time.Hour))
	require.NoError(t, err)
	require.Equal(t, int64(1), n)

	_, err = s.GetRun(ctx, "run-old")
	require.Error(t, err)
	_, err = s.GetRun(ctx, "run-new")
	require.NoError(t, err)
}

func TestWorkflowStats(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	start := time.Now().Add(-time.Minute)
	end := time.Now()
	require.NoError(t, s.InsertRun(ctx, Run{
		ID: "run-stat-1", WorkflowID: "wf-stats", WorkflowName: "demo",
		Status: StatusCompleted, StartTime: start, BinaryPath: "/bin/demo",
	}))
	require.NoError(t, s.UpdateRunEndTimeAndExitCode(ctx, "run-stat-1", end, 0))
	require.NoError(t, s.InsertRun(ctx, Run{
		ID: "run-stat-2", WorkflowID: "wf-stats", WorkflowName: "demo",
		Status: StatusFailed, StartTime: start, BinaryPath: "/bin/demo",
	}))

	stats, err := s.WorkflowStats(ctx, "wf-stats")
	require.NoError(t, err)
	require.Equal(t, 2, stats.TotalRuns)
	require.Equal(t, 1, stats.Completed)
	require.Equal(t, 1, stats.Failed)
}
