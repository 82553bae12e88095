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
package eventbus

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/molaco/workflow-manager/internal/event"
)

func TestTreeAutoProvisionsPrecedingPhases(t *testing.T) {
	tree := NewTree()
	tree.Apply(event.PhaseStarted(2, "research", 5))

	snap := tree.Snapshot()
	require.Len(t, snap, 3)
	assert.Equal(t, NotStarted, snap[0].Status)
	assert.Equal(t, NotStarted, snap[1].Status)
	assert.Equal(t, Running, snap[2].Status)
	assert.Equal(t, "research", snap[2].Name)
}

func TestTreeTaskAutoProvisionsPhase(t *testing.T) {
	tree := NewTree()
	tree.Apply(event.TaskStarted(1, "t1", "desc", 4))

	snap := tree.Snapshot()
	require.Len(t, snap, 2)
	require.Len(t, snap[1].Tasks, 1)
	assert.Equal(t, Running, snap[1].Tasks[0].Status)
	assert.Equal(t, "desc", snap[1].Tasks[0].Description)
}

func TestTreeAgentLifecycle(t *testing.T) {
	tree := NewTree()
	tree.Apply(event.TaskStarted(0, "t1", "", 1))
	tree.Apply(event.AgentStarted("t1", "writer", "drafts"))
	tree.Apply(event.AgentMessage("t1", "writer", "chunk one"))
	tree.Apply(event.AgentCompleted("t1", "writer", "done"))

	snap := tree.Snapshot()
	require.Len(t, snap, 1)
	require.Len(t, snap[0].Tasks, 1)
	require.Len(t, snap[0].Tasks[0].Agents, 1)
	agent := snap[0].Tasks[0].Agents[0]
	assert.Equal(t, Completed, agent.Status)
	assert.Equal(t, []string{"chunk one"}, agent.Messages)
	assert.Equal(t, "done", agent.Result)
}

func TestTreeDropsMessagesForUnknownIDs(t *testing.T) {
	tree := NewTree()
	tree.Apply(event.TaskProgress("ghost", "hello"))
	tree.Apply(event.AgentMessage("ghost", "writer", "hello"))
	assert.Empty(t, tree.Snapshot())
}

func TestTreeRejectsIllegalTransitions(t *testing.T) {
	tree := NewTree()
	tree.Apply(event.TaskStarted(0, "t1", "", 1))
	tree.Apply(event.TaskCompleted("t1", "first"))
	// completed -> failed must be ignored; completed is terminal.
	tree.Apply(event.TaskFailed("t1", errors.New("late failure")))

	snap := tree.Snapshot()
	assert.Equal(t, Completed, snap[0].Tasks[0].Status)
	assert.Equal(t, "first", snap[0].Tasks[0].Result)
}

func TestTreeFailedPhaseIsSticky(t *testing.T) {
	tree := NewTree()
	tree.Apply(event.PhaseStarted(0, "X", 1))
	tree.Apply(event.PhaseFailed(0, "X", errors.New("boom")))
	tree.Apply(event.PhaseCompleted(0, "X"))

	assert.Equal(t, Failed, tree.Snapshot()[0].Status)
}

func TestTreeRecordsStateFiles(t *testing.T) {
	tree := NewTree()
	tree.Apply(event.StateFileCreated(1, "/tmp/prompts.json", "prompts"))

	snap := tree.Snapshot()
	require.Len(t, snap, 2)
	require.Len(t, snap[1].StateFiles, 1)
	assert.Equal(t, "/tmp/prompts.json", snap[1].StateFiles[0].Path)
}

func TestSnapshotIsDeepCopy(t *testing.T) {
	tree := NewTree()
	tree.Apply(event.TaskStarted(0, "t1", "", 1))
	tree.Apply(event.TaskProgress("t1", "one"))

	snap := tree.Snapshot()
	snap[0].Tasks[0].Messages[0] = "mutated"
	tree.Apply(event.TaskProgress("t1", "two"))

	fresh := tree.Snapshot()
	assert.Equal(t, []string{"one", "two"}, fresh[0].Tasks[0].Messages)
}
