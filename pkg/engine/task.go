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
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/molaco/workflow-manager/internal/event"
)

// TaskSpec declares one unit of work within a phase.
type TaskSpec struct {
	// ID is unique within the run; the orchestrating phase assigns it.
	ID          string
	Description string

	// DependsOn lists task ids that must be scheduled in an earlier
	// batch. Ids outside the phase's task set are treated as already
	// satisfied.
	DependsOn []string

	// Run does the work, reporting progress and running sub-agents
	// through tc. The returned string becomes the task_completed
	// event's result.
	Run func(ctx context.Context, tc *TaskContext) (string, error)
}

// AgentSpec declares one sub-agent a task fans out to.
type AgentSpec struct {
	// Name is the sub-agent's display name, unique within its task.
	Name        string
	Description string

	// Run drives the agent conversation, streaming messages through ac.
	// The returned string becomes the agent_completed event's result.
	Run func(ctx context.Context, ac *AgentContext) (string, error)
}

// AgentResult reports one sub-agent's outcome back to its task. A
// non-nil Err has already been published as an agent_failed event and
// echoed as a task progress message; whether it fails the task is the
// task's call.
type AgentResult struct {
	Name   string
	Result string
	Err    error
}

// TaskContext is the engine's surface handed to one running task.
type TaskContext struct {
	engine *Engine
	phase  int
	taskID string
}

// TaskID returns the running task's id.
func (tc *TaskContext) TaskID() string { return tc.taskID }

// Progress publishes a human-readable task_progress message.
func (tc *TaskContext) Progress(message string) {
	tc.engine.emitter.Publish(event.TaskProgress(tc.taskID, message))
}

// RunAgents fans out to the task's sub-agents in parallel, each gated by
// the run's global semaphore. The calling task's own permit is yielded
// for the duration so the semaphore bounds live agent work rather than
// parked parents — a task waiting on its join set holds no permit.
//
// All agents run to completion regardless of sibling failures (the
// errgroup here is a join set, not a fail-fast group); each failure is
// published as agent_failed plus a task progress message, and surfaces
// in the returned results for the task to judge. The only error returned
// is ctx cancellation.
func (tc *TaskContext) RunAgents(ctx context.Context, agents []AgentSpec) ([]AgentResult, error) {
	if len(agents) == 0 {
		return nil, nil
	}

	tc.engine.sem.Release(1)
	defer func() {
		// Re-acquire outside any child context so a cancelled fan-out
		// still restores the permit runTask will release.
		_ = tc.engine.sem.Acquire(context.Background(), 1)
	}()

	results := make([]AgentResult, len(agents))
	var g errgroup.Group
	for i, spec := range agents {
		g.Go(func() error {
			if err := tc.engine.sem.Acquire(ctx, 1); err != nil {
				results[i] = AgentResult{Name: spec.Name, Err: err}
				return err
			}
			defer tc.engine.sem.Release(1)

			tc.engine.emitter.Publish(event.AgentStarted(tc.taskID, spec.Name, spec.Description))
			ac := &AgentContext{engine: tc.engine, taskID: tc.taskID, agentName: spec.Name}
			result, err := spec.Run(ctx, ac)
			if err != nil {
				tc.engine.emitter.Publish(event.AgentFailed(tc.taskID, spec.Name, err))
				tc.engine.emitter.Publish(event.TaskProgress(tc.taskID, "agent "+spec.Name+" failed: "+err.Error()))
				results[i] = AgentResult{Name: spec.Name, Err: err}
				return nil
			}
			tc.engine.emitter.Publish(event.AgentCompleted(tc.taskID, spec.Name, result))
			results[i] = AgentResult{Name: spec.Name, Result: result}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, nil
}

// AgentContext is the engine's surface handed to one running sub-agent.
type AgentContext struct {
	engine    *Engine
	taskID    string
	agentName string
}

// Message publishes a streaming agent_message (a text chunk or tool-call
// summary) for this sub-agent.
func (ac *AgentContext) Message(message string) {
	ac.engine.emitter.Publish(event.AgentMessage(ac.taskID, ac.agentName, message))
}
