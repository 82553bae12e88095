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

// Package engine is the Orchestration Engine of §4.4: it executes a
// Workflow Run as a sequence of selected phases, batches each phase's
// tasks (fixed-size, plan-based with dependency-topological fallback),
// bounds all task and sub-agent concurrency with one global semaphore,
// runs fix loops to a configurable iteration cap, checkpoints artifacts
// atomically, and emits the closed lifecycle event set of §4.5 along the
// way.
package engine

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/molaco/workflow-manager/internal/event"
	"github.com/molaco/workflow-manager/internal/log"
)

// PhaseSpec declares one phase of a workflow. Phases are identified by
// their index in Options.Phases.
type PhaseSpec struct {
	// Name is the phase's human-readable name, carried on phase events.
	Name string

	// Requires names the checkpoint kinds this phase consumes. Each must
	// be produced by an earlier selected phase or supplied via
	// Options.ResumeFiles, else the run fails with MissingInputError
	// before the phase starts.
	Requires []string

	// Run executes the phase. It typically builds a task list and hands
	// it to pc.RunTasks, writing checkpoints through pc as it goes.
	Run func(ctx context.Context, pc *PhaseContext) error
}

// Options configures one Workflow Run.
type Options struct {
	// Phases is the full ordered phase list; index equals phase number.
	Phases []PhaseSpec

	// Selected restricts which phase indices run, ascending. Empty means
	// all. Indices outside [0, len(Phases)) are rejected by Run.
	Selected []int

	// Concurrency is the global semaphore's permit count bounding
	// concurrent task and sub-agent executions. Default 1.
	Concurrency int64

	// BatchSize is the fixed-size batching chunk (§4.4 "simple" mode).
	// Default 4.
	BatchSize int

	// SimpleBatching forces fixed-size batching even when a Planner is
	// configured.
	SimpleBatching bool

	// Planner, when set and SimpleBatching is false, produces an
	// Execution Plan per phase. Planner failure of any kind falls back to
	// dependency-topological batching.
	Planner Planner

	// ResumeFiles maps a checkpoint kind to a previously-written file, so
	// a phase that produces that kind may be skipped.
	ResumeFiles map[string]string

	// FixIterationCap bounds RunFixLoop iterations. Default 3.
	FixIterationCap int

	// CheckpointDir is where WriteCheckpoint places artifacts. Default
	// the process working directory.
	CheckpointDir string

	// Emitter receives every lifecycle event. Nil means events are
	// discarded (tests, dry runs).
	Emitter Emitter
}

func (o Options) concurrency() int64 {
	if o.Concurrency > 0 {
		return o.Concurrency
	}
	return 1
}

func (o Options) batchSize() int {
	if o.BatchSize > 0 {
		return o.BatchSize
	}
	return 4
}

func (o Options) fixIterationCap() int {
	if o.FixIterationCap > 0 {
		return o.FixIterationCap
	}
	return 3
}

// Engine executes a Workflow Run. One Engine runs at most one Run at a
// time; its semaphore and checkpoint registry are per-run state.
type Engine struct {
	opts    Options
	emitter Emitter
	sem     *semaphore.Weighted

	// outputs maps checkpoint kind -> path for artifacts produced by
	// phases of this run, consulted (after ResumeFiles) when a later
	// phase requires that kind. Guarded by outputsMu: concurrent tasks
	// within a phase may checkpoint in parallel.
	outputs   map[string]string
	outputsMu sync.Mutex

	logger *zap.Logger
}

// New constructs an Engine for one run.
func New(opts Options) *Engine {
	emitter := opts.Emitter
	if emitter == nil {
		emitter = nopEmitter{}
	}
	return &Engine{
		opts:    opts,
		emitter: emitter,
		sem:     semaphore.NewWeighted(opts.concurrency()),
		outputs: make(map[string]string),
		logger:  log.Logger(),
	}
}

// Run executes the selected phases in ascending order. The first phase
// failure (or a missing required input) terminates the run; remaining
// phases never start. Cancellation of ctx is honored at every suspension
// point.
func (e *Engine) Run(ctx context.Context) error {
	selected, err := e.selectedPhases()
	if err != nil {
		return err
	}

	e.outputsMu.Lock()
	for kind, path := range e.opts.ResumeFiles {
		e.outputs[kind] = path
	}
	e.outputsMu.Unlock()

	total := len(e.opts.Phases)
	for _, idx := range selected {
		spec := e.opts.Phases[idx]

		inputs, err := e.resolveInputs(idx, spec)
		if err != nil {
			e.emitter.Publish(event.PhaseFailed(idx, spec.Name, err))
			return err
		}

		if err := ctx.Err(); err != nil {
			return err
		}

		e.emitter.Publish(event.PhaseStarted(idx, spec.Name, total))

		pc := &PhaseContext{
			engine: e,
			index:  idx,
			name:   spec.Name,
			inputs: inputs,
		}
		start := time.Now()
		if err := spec.Run(ctx, pc); err != nil {
			e.emitter.Publish(event.PhaseFailed(idx, spec.Name, err))
			return fmt.Errorf("engine: phase %d (%s): %w", idx, spec.Name, err)
		}
		e.logger.Debug("engine: phase completed",
			zap.Int("phase", idx), zap.String("name", spec.Name), zap.Duration("took", time.Since(start)))
		e.emitter.Publish(event.PhaseCompleted(idx, spec.Name))
	}
	return nil
}

func (e *Engine) selectedPhases() ([]int, error) {
	if len(e.opts.Phases) == 0 {
		return nil, nil
	}
	if len(e.opts.Selected) == 0 {
		all := make([]int, len(e.opts.Phases))
		for i := range all {
			all[i] = i
		}
		return all, nil
	}
	selected := append([]int(nil), e.opts.Selected...)
	sort.Ints(selected)
	for _, idx := range selected {
		if idx < 0 || idx >= len(e.opts.Phases) {
			return nil, fmt.Errorf("engine: selected phase %d out of range [0, %d)", idx, len(e.opts.Phases))
		}
	}
	return selected, nil
}

func (e *Engine) resolveInputs(idx int, spec PhaseSpec) (map[string]string, error) {
	e.outputsMu.Lock()
	defer e.outputsMu.Unlock()
	inputs := make(map[string]string, len(spec.Requires))
	for _, kind := range spec.Requires {
		path, ok := e.outputs[kind]
		if !ok {
			return nil, &MissingInputError{Phase: idx, Kind: kind}
		}
		inputs[kind] = path
	}
	return inputs, nil
}

// PhaseContext is the engine's surface handed to one running phase.
type PhaseContext struct {
	engine *Engine
	index  int
	name   string
	inputs map[string]string
}

// Index returns the phase's index.
func (pc *PhaseContext) Index() int { return pc.index }

// Input returns the checkpoint path resolved for a required kind. It
// only returns paths for kinds the phase declared in Requires.
func (pc *PhaseContext) Input(kind string) (string, bool) {
	path, ok := pc.inputs[kind]
	return path, ok
}

// RunTasks batches and executes tasks per §4.4: batches strictly
// sequential, tasks within a batch concurrent under the global
// semaphore, fail-fast on the first task error. An empty task list
// returns immediately (the phase completes with no tasks).
func (pc *PhaseContext) RunTasks(ctx context.Context, tasks []TaskSpec) error {
	if len(tasks) == 0 {
		return nil
	}
	return pc.runBatches(ctx, tasks, pc.engine.planBatches(ctx, tasks))
}

func (pc *PhaseContext) runBatches(ctx context.Context, tasks []TaskSpec, batches [][]string) error {
	byID := make(map[string]*TaskSpec, len(tasks))
	for i := range tasks {
		if _, dup := byID[tasks[i].ID]; dup {
			return fmt.Errorf("engine: duplicate task id %q in phase %d", tasks[i].ID, pc.index)
		}
		byID[tasks[i].ID] = &tasks[i]
	}

	total := len(tasks)
	for _, batch := range batches {
		g, gctx := errgroup.WithContext(ctx)
		for _, id := range batch {
			t := byID[id]
			g.Go(func() error {
				return pc.engine.runTask(gctx, pc.index, t, total)
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}
	}
	return nil
}

// planBatches resolves the batching mode: simple fixed-size, or a
// planner-produced Execution Plan validated against the §3 invariants
// with dependency-topological fallback on any planner or validation
// failure.
func (e *Engine) planBatches(ctx context.Context, tasks []TaskSpec) [][]string {
	if e.opts.SimpleBatching || e.opts.Planner == nil {
		return fixedSizeBatches(tasks, e.opts.batchSize())
	}

	summaries := make([]TaskSummary, len(tasks))
	for i, t := range tasks {
		summaries[i] = TaskSummary{ID: t.ID, Description: t.Description, DependsOn: t.DependsOn}
	}

	plan, err := e.opts.Planner.Plan(ctx, summaries)
	if err != nil {
		e.logger.Warn("engine: planner failed, falling back to topological batching", zap.Error(err))
		return topologicalBatches(tasks)
	}
	if err := validatePlan(plan, tasks); err != nil {
		e.logger.Warn("engine: planner produced invalid plan, falling back to topological batching", zap.Error(err))
		return topologicalBatches(tasks)
	}
	return plan.Batches
}

// runTask acquires a global semaphore permit, emits task_started, runs
// the task, and emits the terminal task event. A task error is wrapped
// as a TaskError and fails the enclosing batch group.
func (e *Engine) runTask(ctx context.Context, phase int, t *TaskSpec, totalTasks int) error {
	if err := e.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	defer e.sem.Release(1)

	e.emitter.Publish(event.TaskStarted(phase, t.ID, t.Description, totalTasks))

	tc := &TaskContext{engine: e, phase: phase, taskID: t.ID}
	result, err := t.Run(ctx, tc)
	if err != nil {
		e.emitter.Publish(event.TaskFailed(t.ID, err))
		return &TaskError{TaskID: t.ID, Err: err}
	}
	e.emitter.Publish(event.TaskCompleted(t.ID, result))
	return nil
}
