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

// Package event defines the closed set of hierarchical lifecycle events
// (§4.5) that flow from a workflow binary's stderr, through the
// Orchestration Engine, to the Event Bus's two sinks: the TUI view tree
// and the durable Event Store. The set is intentionally closed — callers
// build events with the constructors below rather than populating a
// general-purpose struct, so an unrecognized tag can never be forged.
package event

import "encoding/json"

// Type is one of the thirteen tags in the closed event set.
type Type string

const (
	TypePhaseStarted     Type = "phase_started"
	TypePhaseCompleted   Type = "phase_completed"
	TypePhaseFailed      Type = "phase_failed"
	TypeTaskStarted      Type = "task_started"
	TypeTaskProgress     Type = "task_progress"
	TypeTaskCompleted    Type = "task_completed"
	TypeTaskFailed       Type = "task_failed"
	TypeAgentStarted     Type = "agent_started"
	TypeAgentMessage     Type = "agent_message"
	TypeAgentCompleted   Type = "agent_completed"
	TypeAgentFailed      Type = "agent_failed"
	TypeStateFileCreated Type = "state_file_created"
	TypeRawOutput        Type = "raw_output"
)

// StreamStdout and StreamStderr are the two legal values of a raw_output
// event's Stream field.
const (
	StreamStdout = "stdout"
	StreamStderr = "stderr"
)

// Event is an immutable record in the closed tagged set. It carries the
// union of fields any variant needs; the constructors below populate only
// the fields that variant's row in §4.5 requires. Consumers should branch
// on Type, not on which fields are non-zero.
type Event struct {
	Type Type `json:"type"`

	// phase_started / phase_completed / phase_failed / state_file_created
	Phase       int    `json:"phase,omitempty"`
	Name        string `json:"name,omitempty"`
	TotalPhases int    `json:"total_phases,omitempty"`

	// task_started / task_progress / task_completed / task_failed /
	// agent_started / agent_message / agent_completed / agent_failed
	TaskID      string `json:"task_id,omitempty"`
	Description string `json:"description,omitempty"`
	TotalTasks  int    `json:"total_tasks,omitempty"`
	Message     string `json:"message,omitempty"`
	Result      string `json:"result,omitempty"`

	// agent_*
	AgentName string `json:"agent_name,omitempty"`

	// phase_failed / task_failed / agent_failed
	Error string `json:"error,omitempty"`

	// state_file_created
	FilePath string `json:"file_path,omitempty"`

	// raw_output
	Stream string `json:"stream,omitempty"`
	Line   string `json:"line,omitempty"`
}

// PhaseStarted builds a phase_started event.
func PhaseStarted(phase int, name string, totalPhases int) Event {
	return Event{Type: TypePhaseStarted, Phase: phase, Name: name, TotalPhases: totalPhases}
}

// PhaseCompleted builds a phase_completed event.
func PhaseCompleted(phase int, name string) Event {
	return Event{Type: TypePhaseCompleted, Phase: phase, Name: name}
}

// PhaseFailed builds a phase_failed event.
func PhaseFailed(phase int, name string, err error) Event {
	return Event{Type: TypePhaseFailed, Phase: phase, Name: name, Error: errString(err)}
}

// TaskStarted builds a task_started event.
func TaskStarted(phase int, taskID, description string, totalTasks int) Event {
	return Event{Type: TypeTaskStarted, Phase: phase, TaskID: taskID, Description: description, TotalTasks: totalTasks}
}

// TaskProgress builds a task_progress event.
func TaskProgress(taskID, message string) Event {
	return Event{Type: TypeTaskProgress, TaskID: taskID, Message: message}
}

// TaskCompleted builds a task_completed event. result may be empty.
func TaskCompleted(taskID, result string) Event {
	return Event{Type: TypeTaskCompleted, TaskID: taskID, Result: result}
}

// TaskFailed builds a task_failed event.
func TaskFailed(taskID string, err error) Event {
	return Event{Type: TypeTaskFailed, TaskID: taskID, Error: errString(err)}
}

// AgentStarted builds an agent_started event.
func AgentStarted(taskID, agentName, description string) Event {
	return Event{Type: TypeAgentStarted, TaskID: taskID, AgentName: agentName, Description: description}
}

// AgentMessage builds an agent_message event.
func AgentMessage(taskID, agentName, message string) Event {
	return Event{Type: TypeAgentMessage, TaskID: taskID, AgentName: agentName, Message: message}
}

// AgentCompleted builds an agent_completed event. result may be empty.
func AgentCompleted(taskID, agentName, result string) Event {
	return Event{Type: TypeAgentCompleted, TaskID: taskID, AgentName: agentName, Result: result}
}

// AgentFailed builds an agent_failed event.
func AgentFailed(taskID, agentName string, err error) Event {
	return Event{Type: TypeAgentFailed, TaskID: taskID, AgentName: agentName, Error: errString(err)}
}

// StateFileCreated builds a state_file_created event.
func StateFileCreated(phase int, filePath, description string) Event {
	return Event{Type: TypeStateFileCreated, Phase: phase, FilePath: filePath, Description: description}
}

// RawOutput builds a raw_output event for an unstructured child line.
func RawOutput(stream, line string) Event {
	return Event{Type: TypeRawOutput, Stream: stream, Line: line}
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

// Marshal serializes an event to JSON. Round-tripping through Marshal and
// Unmarshal is required to be identity (§8).
func (e Event) Marshal() ([]byte, error) {
	return json.Marshal(e)
}

// Unmarshal parses a JSON-serialized event.
func Unmarshal(data []byte) (Event, error) {
	var e Event
	err := json.Unmarshal(data, &e)
	return e, err
}
