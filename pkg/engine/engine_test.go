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
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/molaco/workflow-manager/internal/event"
)

// recordEmitter captures every published event for assertions.
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

func (r *recordEmitter) ofType(t event.Type) []event.Event {
	var out []event.Event
	for _, e := range r.all() {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

func noopTask(id string, deps ...string) TaskSpec {
	return TaskSpec{
		ID:        id,
		DependsOn: deps,
		Run: func(ctx context.Context, tc *TaskContext) (string, error) {
			return "", nil
		},
	}
}

func TestFixedSizeBatches(t *testing.T) {
	tests := []struct {
		name  string
		ids   []string
		k     int
		want  [][]string
	}{
		{"exact chunks", []string{"a", "b", "c", "d"}, 2, [][]string{{"a", "b"}, {"c", "d"}}},
		{"ragged tail", []string{"a", "b", "c"}, 2, [][]string{{"a", "b"}, {"c"}}},
		{"k larger than set", []string{"a", "b"}, 5, [][]string{{"a", "b"}}},
		{"k zero defaults to one", []string{"a", "b"}, 0, [][]string{{"a"}, {"b"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var tasks []TaskSpec
			for _, id := range tt.ids {
				tasks = append(tasks, noopTask(id))
			}
			assert.Equal(t, tt.want, fixedSizeBatches(tasks, tt.k))
		})
	}
}

func TestTopologicalBatches(t *testing.T) {
	t.Run("dependency levels", func(t *testing.T) {
		tasks := []TaskSpec{noopTask("b", "a"), noopTask("c", "a"), noopTask("a")}
		batches := topologicalBatches(tasks)
		require.Len(t, batches, 2)
		assert.Equal(t, []string{"a"}, batches[0])
		assert.ElementsMatch(t, []string{"b", "c"}, batches[1])
	})

	t.Run("out-of-set dependency is already satisfied", func(t *testing.T) {
		tasks := []TaskSpec{noopTask("a", "external")}
		batches := topologicalBatches(tasks)
		require.Len(t, batches, 1)
		assert.Equal(t, []string{"a"}, batches[0])
	})

	t.Run("cycle dumps remainder as final batch", func(t *testing.T) {
		tasks := []TaskSpec{noopTask("a", "b"), noopTask("b", "a"), noopTask("c")}
		batches := topologicalBatches(tasks)
		require.Len(t, batches, 2)
		assert.Equal(t, []string{"c"}, batches[0])
		assert.ElementsMatch(t, []string{"a", "b"}, batches[1])
	})
}

func TestValidatePlan(t *testing.T) {
	tasks := []TaskSpec{noopTask("a"), noopTask("b", "a"), noopTask("c", "a")}

	tests := []struct {
		name    string
		plan    Plan
		wantErr bool
	}{
		{"valid", Plan{Batches: [][]string{{"a"}, {"b", "c"}}}, false},
		{"unknown id", Plan{Batches: [][]string{{"a", "z"}, {"b", "c"}}}, true},
		{"duplicate id", Plan{Batches: [][]string{{"a"}, {"a", "b", "c"}}}, true},
		{"omitted id", Plan{Batches: [][]string{{"a"}, {"b"}}}, true},
		{"dependency in same batch", Plan{Batches: [][]string{{"a", "b"}, {"c"}}}, true},
		{"dependency inverted", Plan{Batches: [][]string{{"b", "c"}, {"a"}}}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validatePlan(tt.plan, tasks)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

type stubPlanner struct {
	plan Plan
	err  error
}

func (s stubPlanner) Plan(ctx context.Context, tasks []TaskSummary) (Plan, error) {
	return s.plan, s.err
}

func TestPlannerFallbackRespectsDependencies(t *testing.T) {
	var order []string
	var orderMu sync.Mutex
	record := func(id string) TaskSpec {
		t := noopTask(id)
		t.Run = func(ctx context.Context, tc *TaskContext) (string, error) {
			orderMu.Lock()
			order = append(order, id)
			orderMu.Unlock()
			return "", nil
		}
		return t
	}

	rec := &recordEmitter{}
	e := New(Options{
		Concurrency: 2,
		Planner:     stubPlanner{err: errors.New("planner down")},
		Emitter:     rec,
		Phases: []PhaseSpec{{
			Name: "deps",
			Run: func(ctx context.Context, pc *PhaseContext) error {
				a := record("a")
				b := record("b")
				b.DependsOn = []string{"a"}
				c := record("c")
				c.DependsOn = []string{"a"}
				return pc.RunTasks(ctx, []TaskSpec{b, c, a})
			},
		}},
	})
	require.NoError(t, e.Run(context.Background()))

	require.Len(t, order, 3)
	assert.Equal(t, "a", order[0], "dependency a must be scheduled in an earlier batch")
}

func TestConcurrencyLimit(t *testing.T) {
	const limit = 2
	var cur, max atomic.Int64
	gate := make(chan struct{}, limit)

	blockingTask := func(id string) TaskSpec {
		return TaskSpec{
			ID: id,
			Run: func(ctx context.Context, tc *TaskContext) (string, error) {
				n := cur.Add(1)
				for {
					m := max.Load()
					if n <= m || max.CompareAndSwap(m, n) {
						break
					}
				}
				<-gate
				cur.Add(-1)
				return "", nil
			},
		}
	}

	rec := &recordEmitter{}
	e := New(Options{
		Concurrency:    limit,
		SimpleBatching: true,
		BatchSize:      4,
		Emitter:        rec,
		Phases: []PhaseSpec{{
			Name: "bounded",
			Run: func(ctx context.Context, pc *PhaseContext) error {
				return pc.RunTasks(ctx, []TaskSpec{
					blockingTask("t1"), blockingTask("t2"), blockingTask("t3"), blockingTask("t4"),
				})
			},
		}},
	})

	done := make(chan error, 1)
	go func() { done <- e.Run(context.Background()) }()
	for i := 0; i < 4; i++ {
		gate <- struct{}{}
	}
	require.NoError(t, <-done)

	assert.LessOrEqual(t, max.Load(), int64(limit), "observed concurrency exceeded the semaphore limit")
}

func TestEmptyTaskListCompletesPhase(t *testing.T) {
	rec := &recordEmitter{}
	e := New(Options{
		Emitter: rec,
		Phases: []PhaseSpec{{
			Name: "empty",
			Run: func(ctx context.Context, pc *PhaseContext) error {
				return pc.RunTasks(ctx, nil)
			},
		}},
	})
	require.NoError(t, e.Run(context.Background()))

	assert.Len(t, rec.ofType(event.TypePhaseCompleted), 1)
	assert.Empty(t, rec.ofType(event.TypeTaskStarted))
}

func TestMissingInput(t *testing.T) {
	phases := []PhaseSpec{
		{Name: "produce", Run: func(ctx context.Context, pc *PhaseContext) error {
			_, err := pc.WriteCheckpoint("prompts", "prompts.json", []byte(`{}`), "generated prompts")
			return err
		}},
		{Name: "consume", Requires: []string{"prompts"}, Run: func(ctx context.Context, pc *PhaseContext) error {
			path, ok := pc.Input("prompts")
			if !ok {
				return errors.New("input not resolved")
			}
			_, err := os.Stat(path)
			return err
		}},
	}

	t.Run("selected later phase without resume file fails", func(t *testing.T) {
		rec := &recordEmitter{}
		e := New(Options{Phases: phases, Selected: []int{1}, Emitter: rec})
		err := e.Run(context.Background())
		var missing *MissingInputError
		require.ErrorAs(t, err, &missing)
		assert.Equal(t, 1, missing.Phase)
		assert.Equal(t, "prompts", missing.Kind)
		assert.Empty(t, rec.ofType(event.TypePhaseStarted), "failed phase must not start")
	})

	t.Run("resume file satisfies the requirement", func(t *testing.T) {
		resume := filepath.Join(t.TempDir(), "prompts.json")
		require.NoError(t, os.WriteFile(resume, []byte(`{}`), 0o644))

		rec := &recordEmitter{}
		e := New(Options{
			Phases:      phases,
			Selected:    []int{1},
			ResumeFiles: map[string]string{"prompts": resume},
			Emitter:     rec,
		})
		require.NoError(t, e.Run(context.Background()))
		assert.Len(t, rec.ofType(event.TypePhaseCompleted), 1)
	})

	t.Run("earlier selected phase satisfies the requirement", func(t *testing.T) {
		dir := t.TempDir()
		rec := &recordEmitter{}
		e := New(Options{Phases: phases, CheckpointDir: dir, Emitter: rec})
		require.NoError(t, e.Run(context.Background()))

		created := rec.ofType(event.TypeStateFileCreated)
		require.Len(t, created, 1)
		assert.Equal(t, filepath.Join(dir, "prompts.json"), created[0].FilePath)
		assert.Len(t, rec.ofType(event.TypePhaseCompleted), 2)
	})
}

func TestFixLoop(t *testing.T) {
	t.Run("converges", func(t *testing.T) {
		// Two of three items start failing; the first fix round repairs both.
		failing := map[string]bool{"y": true, "z": true}
		var mu sync.Mutex

		rec := &recordEmitter{}
		e := New(Options{
			Concurrency: 2,
			Emitter:     rec,
			Phases: []PhaseSpec{{
				Name: "validate",
				Run: func(ctx context.Context, pc *PhaseContext) error {
					return pc.RunFixLoop(ctx, FixLoop{
						Items: []string{"x", "y", "z"},
						Validate: func(ctx context.Context, items []string) ([]string, error) {
							mu.Lock()
							defer mu.Unlock()
							var out []string
							for _, it := range items {
								if failing[it] {
									out = append(out, it)
								}
							}
							return out, nil
						},
						FixTask: func(iteration int, item string) TaskSpec {
							return TaskSpec{
								ID: "fix-" + item,
								Run: func(ctx context.Context, tc *TaskContext) (string, error) {
									mu.Lock()
									delete(failing, item)
									mu.Unlock()
									return "", nil
								},
							}
						},
					})
				},
			}},
		})
		require.NoError(t, e.Run(context.Background()))
		assert.Len(t, rec.ofType(event.TypeTaskStarted), 2, "one fix task per initially failing item")
	})

	t.Run("exhausts at iteration cap", func(t *testing.T) {
		e := New(Options{
			FixIterationCap: 2,
			Phases: []PhaseSpec{{
				Name: "never converges",
				Run: func(ctx context.Context, pc *PhaseContext) error {
					return pc.RunFixLoop(ctx, FixLoop{
						Items: []string{"a"},
						Validate: func(ctx context.Context, items []string) ([]string, error) {
							return items, nil
						},
						FixTask: func(iteration int, item string) TaskSpec {
							return noopTask("fix-" + item)
						},
					})
				},
			}},
		})
		err := e.Run(context.Background())
		var exhausted *FixLoopExhaustedError
		require.ErrorAs(t, err, &exhausted)
		assert.Equal(t, 2, exhausted.Iterations)
		assert.Equal(t, []string{"a"}, exhausted.Remaining)
	})
}

func TestTaskFailureFailsRun(t *testing.T) {
	boom := errors.New("boom")
	rec := &recordEmitter{}
	e := New(Options{
		Emitter: rec,
		Phases: []PhaseSpec{{
			Name: "failing",
			Run: func(ctx context.Context, pc *PhaseContext) error {
				return pc.RunTasks(ctx, []TaskSpec{{
					ID: "t1",
					Run: func(ctx context.Context, tc *TaskContext) (string, error) {
						return "", boom
					},
				}})
			},
		}, {
			Name: "never reached",
			Run: func(ctx context.Context, pc *PhaseContext) error {
				t.Fatal("second phase ran after run failure")
				return nil
			},
		}},
	})

	err := e.Run(context.Background())
	var taskErr *TaskError
	require.ErrorAs(t, err, &taskErr)
	assert.Equal(t, "t1", taskErr.TaskID)
	assert.ErrorIs(t, err, boom)

	require.Len(t, rec.ofType(event.TypeTaskFailed), 1)
	require.Len(t, rec.ofType(event.TypePhaseFailed), 1)
	assert.Empty(t, rec.ofType(event.TypePhaseCompleted))
}

func TestRunAgents(t *testing.T) {
	t.Run("sibling failure does not stop the join set", func(t *testing.T) {
		rec := &recordEmitter{}
		var results []AgentResult
		e := New(Options{
			Concurrency: 1, // the task's yielded permit must be enough
			Emitter:     rec,
			Phases: []PhaseSpec{{
				Name: "agents",
				Run: func(ctx context.Context, pc *PhaseContext) error {
					return pc.RunTasks(ctx, []TaskSpec{{
						ID: "t1",
						Run: func(ctx context.Context, tc *TaskContext) (string, error) {
							var err error
							results, err = tc.RunAgents(ctx, []AgentSpec{
								{Name: "worker-1", Run: func(ctx context.Context, ac *AgentContext) (string, error) {
									ac.Message("chunk")
									return "ok", nil
								}},
								{Name: "worker-2", Run: func(ctx context.Context, ac *AgentContext) (string, error) {
									return "", errors.New("agent exploded")
								}},
							})
							return "", err
						},
					}})
				},
			}},
		})
		require.NoError(t, e.Run(context.Background()))

		require.Len(t, results, 2)
		assert.NoError(t, results[0].Err)
		assert.Equal(t, "ok", results[0].Result)
		assert.Error(t, results[1].Err)

		assert.Len(t, rec.ofType(event.TypeAgentStarted), 2)
		assert.Len(t, rec.ofType(event.TypeAgentCompleted), 1)
		assert.Len(t, rec.ofType(event.TypeAgentFailed), 1)

		// The failure surfaced as a task progress message too.
		progress := rec.ofType(event.TypeTaskProgress)
		require.NotEmpty(t, progress)
		assert.Contains(t, progress[0].Message, "worker-2")
	})
}

func TestSelectedPhaseValidation(t *testing.T) {
	e := New(Options{
		Phases:   []PhaseSpec{{Name: "only", Run: func(ctx context.Context, pc *PhaseContext) error { return nil }}},
		Selected: []int{3},
	})
	assert.Error(t, e.Run(context.Background()))
}

func TestAtomicWriteFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "state.json")

	require.NoError(t, atomicWriteFile(path, []byte("v1")))
	require.NoError(t, atomicWriteFile(path, []byte("v2")))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "v2", string(data))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files left behind")
}
