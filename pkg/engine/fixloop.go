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

import "context"

// FixLoop configures the validate/fix iteration some phases (e.g. a
// validate phase) run: validate all items, fan a fix task out over each
// failing one, re-validate, repeat. The loop exits when no items fail or
// the iteration cap is reached, in which case the phase fails with
// FixLoopExhaustedError.
type FixLoop struct {
	// Items are the ids of the inputs under validation.
	Items []string

	// Validate reports which of the given items currently fail. A
	// Validate error fails the loop (and so the phase) outright.
	Validate func(ctx context.Context, items []string) (failing []string, err error)

	// FixTask builds the task that repairs one failing item for the
	// given iteration. Fix tasks within an iteration run concurrently
	// under the global semaphore, using simple fixed-size batching.
	FixTask func(iteration int, item string) TaskSpec

	// MaxIterations overrides Options.FixIterationCap when positive.
	MaxIterations int
}

// RunFixLoop runs a FixLoop to convergence or the iteration cap.
func (pc *PhaseContext) RunFixLoop(ctx context.Context, fl FixLoop) error {
	maxIter := fl.MaxIterations
	if maxIter <= 0 {
		maxIter = pc.engine.opts.fixIterationCap()
	}

	failing, err := fl.Validate(ctx, fl.Items)
	if err != nil {
		return err
	}

	for iteration := 0; len(failing) > 0; iteration++ {
		if iteration >= maxIter {
			return &FixLoopExhaustedError{Phase: pc.index, Iterations: iteration, Remaining: failing}
		}

		tasks := make([]TaskSpec, 0, len(failing))
		for _, item := range failing {
			tasks = append(tasks, fl.FixTask(iteration, item))
		}
		if err := pc.runTasksFixed(ctx, tasks); err != nil {
			return err
		}

		failing, err = fl.Validate(ctx, failing)
		if err != nil {
			return err
		}
	}
	return nil
}

// runTasksFixed is RunTasks pinned to fixed-size batching, so a fix
// round never consults the planner: fix tasks are independent per item
// and need no dependency schedule.
func (pc *PhaseContext) runTasksFixed(ctx context.Context, tasks []TaskSpec) error {
	if len(tasks) == 0 {
		return nil
	}
	return pc.runBatches(ctx, tasks, fixedSizeBatches(tasks, pc.engine.opts.batchSize()))
}
