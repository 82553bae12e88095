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

import "fmt"

// MissingInputError is returned when a selected phase requires a
// checkpoint kind that neither an earlier selected phase produced nor a
// resume file supplied.
type MissingInputError struct {
	Phase int
	Kind  string
}

func (e *MissingInputError) Error() string {
	return fmt.Sprintf("engine: phase %d: missing required input %q (not produced by an earlier selected phase and no resume file given)", e.Phase, e.Kind)
}

// FixLoopExhaustedError is returned when a fix loop reaches its iteration
// cap with items still failing.
type FixLoopExhaustedError struct {
	Phase      int
	Iterations int
	Remaining  []string
}

func (e *FixLoopExhaustedError) Error() string {
	return fmt.Sprintf("engine: phase %d: fix loop exhausted after %d iterations, %d items still failing", e.Phase, e.Iterations, len(e.Remaining))
}

// TaskError wraps the failure of one task so the run's terminal error
// names which task brought it down.
type TaskError struct {
	TaskID string
	Err    error
}

func (e *TaskError) Error() string {
	return fmt.Sprintf("engine: task %s: %v", e.TaskID, e.Err)
}

func (e *TaskError) Unwrap() error { return e.Err }
