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
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/molaco/workflow-manager/internal/log"
)

// TaskSummary is what the external planner sees of a task: enough to
// schedule it, nothing about how it runs.
type TaskSummary struct {
	ID          string   `json:"id"`
	Description string   `json:"description"`
	DependsOn   []string `json:"depends_on,omitempty"`
}

// Plan is an ordered sequence of batches of task ids. Batches execute
// strictly sequentially; tasks inside a batch run in parallel subject to
// the global concurrency semaphore.
type Plan struct {
	Batches [][]string `json:"batches"`
}

// Planner produces an Execution Plan for a phase's tasks. Implemented by
// the planner package's LLM-backed planner; any error (including a
// response that fails to parse as a Plan) makes the engine fall back to
// dependency-topological batching, never fail the run.
type Planner interface {
	Plan(ctx context.Context, tasks []TaskSummary) (Plan, error)
}

// validatePlan checks a planner-produced Plan against the §3 Execution
// Plan invariants: every task id appears in exactly one batch, no batch
// names an unknown id, and for every dependency a->b, batch(a) < batch(b).
// A violation is reported as an error so the caller falls back to
// topological batching.
func validatePlan(plan Plan, tasks []TaskSpec) error {
	known := make(map[string]*TaskSpec, len(tasks))
	for i := range tasks {
		known[tasks[i].ID] = &tasks[i]
	}

	batchOf := make(map[string]int, len(tasks))
	for bi, batch := range plan.Batches {
		for _, id := range batch {
			if _, ok := known[id]; !ok {
				return fmt.Errorf("engine: plan names unknown task %q", id)
			}
			if prev, dup := batchOf[id]; dup {
				return fmt.Errorf("engine: plan schedules task %q twice (batches %d and %d)", id, prev, bi)
			}
			batchOf[id] = bi
		}
	}
	for id := range known {
		if _, ok := batchOf[id]; !ok {
			return fmt.Errorf("engine: plan omits task %q", id)
		}
	}
	for id, t := range known {
		for _, dep := range t.DependsOn {
			depBatch, ok := batchOf[dep]
			if !ok {
				continue // dependency outside this phase's task set
			}
			if depBatch >= batchOf[id] {
				return fmt.Errorf("engine: plan violates dependency %s -> %s (batches %d >= %d)", dep, id, depBatch, batchOf[id])
			}
		}
	}
	return nil
}

// fixedSizeBatches chunks task ids into consecutive batches of size k,
// preserving declaration order.
func fixedSizeBatches(tasks []TaskSpec, k int) [][]string {
	if k <= 0 {
		k = 1
	}
	var batches [][]string
	for start := 0; start < len(tasks); start += k {
		end := start + k
		if end > len(tasks) {
			end = len(tasks)
		}
		batch := make([]string, 0, end-start)
		for _, t := range tasks[start:end] {
			batch = append(batch, t.ID)
		}
		batches = append(batches, batch)
	}
	return batches
}

// topologicalBatches levels tasks by their dependencies: each round
// extracts every task whose in-set dependencies are all already
// scheduled. If a round extracts nothing while tasks remain, the
// remainder forms a cycle; it is warned about and dumped as one final
// batch rather than failing the run.
func topologicalBatches(tasks []TaskSpec) [][]string {
	known := make(map[string]bool, len(tasks))
	for _, t := range tasks {
		known[t.ID] = true
	}

	scheduled := make(map[string]bool, len(tasks))
	remaining := make([]TaskSpec, len(tasks))
	copy(remaining, tasks)

	var batches [][]string
	for len(remaining) > 0 {
		var ready, blocked []TaskSpec
		for _, t := range remaining {
			ok := true
			for _, dep := range t.DependsOn {
				if known[dep] && !scheduled[dep] {
					ok = false
					break
				}
			}
			if ok {
				ready = append(ready, t)
			} else {
				blocked = append(blocked, t)
			}
		}

		if len(ready) == 0 {
			ids := make([]string, 0, len(blocked))
			for _, t := range blocked {
				ids = append(ids, t.ID)
			}
			sort.Strings(ids)
			log.Warn("engine: dependency cycle detected, scheduling remainder as final batch", zap.Strings("tasks", ids))
			batches = append(batches, ids)
			return batches
		}

		batch := make([]string, 0, len(ready))
		for _, t := range ready {
			batch = append(batch, t.ID)
			scheduled[t.ID] = true
		}
		batches = append(batches, batch)
		remaining = blocked
	}
	return batches
}
