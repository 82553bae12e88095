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
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/molaco/workflow-manager/internal/csync"
	"github.com/molaco/workflow-manager/internal/event"
	"github.com/molaco/workflow-manager/internal/log"
)

// Status is a node's lifecycle state in the hierarchical view tree. The
// only legal transitions are NotStarted->Running and
// Running->{Completed,Failed} (§4.5, §8); a Tree rejects any other move by
// logging and ignoring it rather than applying it.
type Status int

const (
	NotStarted Status = iota
	Running
	Completed
	Failed
)

func (s Status) String() string {
	switch s {
	case Running:
		return "running"
	case Completed:
		return "completed"
	case Failed:
		return "failed"
	default:
		return "not-started"
	}
}

func canTransition(from, to Status) bool {
	switch {
	case from == to:
		return true
	case from == NotStarted && to == Running:
		return true
	case from == Running && (to == Completed || to == Failed):
		return true
	default:
		return false
	}
}

// AgentView is a read-only snapshot of one sub-agent node.
type AgentView struct {
	TaskID      string
	Name        string
	Description string
	Status      Status
	Messages    []string
	Result      string
}

// TaskView is a read-only snapshot of one task node and its sub-agents.
type TaskView struct {
	Phase       int
	ID          string
	Description string
	Status      Status
	TotalTasks  int
	Messages    []string
	Result      string
	Agents      []*AgentView
}

// PhaseView is a read-only snapshot of one phase node and its tasks.
type PhaseView struct {
	Index       int
	Name        string
	Status      Status
	TotalPhases int
	Tasks       []*TaskView
	StateFiles  []StateFile
}

// StateFile records one state_file_created event observed in a phase.
type StateFile struct {
	Path        string
	Description string
}

// mutableAgent/Task/Phase are the applier's own writable records; Views are
// copied out of them on Snapshot so readers never see a torn or
// concurrently-mutated structure.
type mutableAgent struct {
	taskID, name, description string
	status                    Status
	messages                  []string
	result                    string
}

type mutableTask struct {
	phase              int
	id, description    string
	status             Status
	totalTasks         int
	messages           []string
	result             string
	agents             *csync.Map[string, *mutableAgent]
	agentOrder         []string
	agentOrderMu       sync.Mutex
}

type mutablePhase struct {
	index, totalPhases int
	name               string
	status             Status
	tasks              *csync.Map[string, *mutableTask]
	taskOrder          []string
	taskOrderMu        sync.Mutex
	stateFiles         []StateFile
	stateFilesMu       sync.Mutex
}

// Tree is the hierarchical [Phase]->[Task]->[Agent] state tree of §4.5/§9.
// It has exactly one writer (Apply, called only from the Bus's single
// applier fiber) and any number of concurrent readers (Snapshot, called
// from the TUI's View()); Apply and Snapshot both hold mu, so a reader
// never observes a node mid-update. The per-level maps are csync.Maps
// rather than bare maps.
type Tree struct {
	mu        sync.Mutex // held by Apply and Snapshot for their whole duration
	phases    *csync.Map[int, *mutablePhase]
	phaseOrds []int
	logger    *zap.Logger
}

// NewTree constructs an empty view tree.
func NewTree() *Tree {
	return &Tree{
		phases: csync.NewMap[int, *mutablePhase](),
		logger: log.Logger(),
	}
}

// Apply folds one event into the tree per the auto-provisioning and
// status-transition rules of §4.5. It is the tree's only mutator.
func (t *Tree) Apply(e event.Event) {
	t.mu.Lock()
	defer t.mu.Unlock()

	switch e.Type {
	case event.TypePhaseStarted:
		p := t.ensurePhase(e.Phase, e.Name, e.TotalPhases)
		t.setPhaseStatus(p, Running)
	case event.TypePhaseCompleted:
		p, ok := t.phases.Get(e.Phase)
		if !ok {
			t.logger.Warn("eventbus: phase_completed for unknown phase", zap.Int("phase", e.Phase))
			return
		}
		t.setPhaseStatus(p, Completed)
	case event.TypePhaseFailed:
		p, ok := t.phases.Get(e.Phase)
		if !ok {
			t.logger.Warn("eventbus: phase_failed for unknown phase", zap.Int("phase", e.Phase))
			return
		}
		t.setPhaseStatus(p, Failed)

	case event.TypeTaskStarted:
		p := t.ensurePhase(e.Phase, "", 0)
		task := t.ensureTask(p, e.TaskID, e.Description, e.TotalTasks)
		if canTransition(task.status, Running) {
			task.status = Running
		} else {
			t.logger.Warn("eventbus: illegal task status transition", zap.String("task_id", e.TaskID), zap.String("from", task.status.String()), zap.String("to", "running"))
		}

	case event.TypeTaskProgress:
		task, ok := t.findTask(e.TaskID)
		if !ok {
			t.logger.Warn("eventbus: task_progress for unknown task", zap.String("task_id", e.TaskID))
			return
		}
		task.messages = append(task.messages, e.Message)

	case event.TypeTaskCompleted:
		task, ok := t.findTask(e.TaskID)
		if !ok {
			t.logger.Warn("eventbus: task_completed for unknown task", zap.String("task_id", e.TaskID))
			return
		}
		if canTransition(task.status, Completed) {
			task.status = Completed
		} else {
			t.logger.Warn("eventbus: illegal task status transition", zap.String("task_id", e.TaskID), zap.String("from", task.status.String()), zap.String("to", "completed"))
			return
		}
		task.result = e.Result

	case event.TypeTaskFailed:
		task, ok := t.findTask(e.TaskID)
		if !ok {
			t.logger.Warn("eventbus: task_failed for unknown task", zap.String("task_id", e.TaskID))
			return
		}
		if canTransition(task.status, Failed) {
			task.status = Failed
		} else {
			t.logger.Warn("eventbus: illegal task status transition", zap.String("task_id", e.TaskID), zap.String("from", task.status.String()), zap.String("to", "failed"))
			return
		}

	case event.TypeAgentStarted:
		task, ok := t.findTask(e.TaskID)
		if !ok {
			t.logger.Warn("eventbus: agent_started for unknown task", zap.String("task_id", e.TaskID))
			return
		}
		agent := t.ensureAgent(task, e.AgentName, e.Description)
		if canTransition(agent.status, Running) {
			agent.status = Running
		} else {
			t.logger.Warn("eventbus: illegal agent status transition", zap.String("task_id", e.TaskID), zap.String("agent_name", e.AgentName), zap.String("from", agent.status.String()), zap.String("to", "running"))
		}

	case event.TypeAgentMessage:
		agent, ok := t.findAgent(e.TaskID, e.AgentName)
		if !ok {
			t.logger.Warn("eventbus: agent_message for unknown agent", zap.String("task_id", e.TaskID), zap.String("agent_name", e.AgentName))
			return
		}
		agent.messages = append(agent.messages, e.Message)

	case event.TypeAgentCompleted:
		agent, ok := t.findAgent(e.TaskID, e.AgentName)
		if !ok {
			t.logger.Warn("eventbus: agent_completed for unknown agent", zap.String("task_id", e.TaskID), zap.String("agent_name", e.AgentName))
			return
		}
		if canTransition(agent.status, Completed) {
			agent.status = Completed
		} else {
			t.logger.Warn("eventbus: illegal agent status transition", zap.String("task_id", e.TaskID), zap.String("agent_name", e.AgentName), zap.String("from", agent.status.String()), zap.String("to", "completed"))
			return
		}
		agent.result = e.Result

	case event.TypeAgentFailed:
		agent, ok := t.findAgent(e.TaskID, e.AgentName)
		if !ok {
			t.logger.Warn("eventbus: agent_failed for unknown agent", zap.String("task_id", e.TaskID), zap.String("agent_name", e.AgentName))
			return
		}
		if canTransition(agent.status, Failed) {
			agent.status = Failed
		} else {
			t.logger.Warn("eventbus: illegal agent status transition", zap.String("task_id", e.TaskID), zap.String("agent_name", e.AgentName), zap.String("from", agent.status.String()), zap.String("to", "failed"))
		}

	case event.TypeStateFileCreated:
		p := t.ensurePhase(e.Phase, "", 0)
		p.stateFilesMu.Lock()
		p.stateFiles = append(p.stateFiles, StateFile{Path: e.FilePath, Description: e.Description})
		p.stateFilesMu.Unlock()

	case event.TypeRawOutput:
		// Not part of the tree; the Bus forwards these straight to the
		// logger and the Event Store without touching tree state.
	}
}

func (t *Tree) ensurePhase(idx int, name string, totalPhases int) *mutablePhase {
	for i := 0; i <= idx; i++ {
		if _, ok := t.phases.Get(i); !ok {
			p := &mutablePhase{index: i, tasks: csync.NewMap[string, *mutableTask]()}
			t.phases.Set(i, p)
			t.phaseOrds = append(t.phaseOrds, i)
		}
	}
	p, _ := t.phases.Get(idx)
	if name != "" {
		p.name = name
	}
	if totalPhases != 0 {
		p.totalPhases = totalPhases
	}
	return p
}

func (t *Tree) setPhaseStatus(p *mutablePhase, to Status) {
	if !canTransition(p.status, to) {
		t.logger.Warn("eventbus: illegal phase status transition", zap.Int("phase", p.index), zap.String("from", p.status.String()), zap.String("to", to.String()))
		return
	}
	p.status = to
}

func (t *Tree) ensureTask(p *mutablePhase, id, description string, totalTasks int) *mutableTask {
	if task, ok := p.tasks.Get(id); ok {
		if description != "" {
			task.description = description
		}
		if totalTasks != 0 {
			task.totalTasks = totalTasks
		}
		return task
	}
	task := &mutableTask{
		phase:       p.index,
		id:          id,
		description: description,
		totalTasks:  totalTasks,
		agents:      csync.NewMap[string, *mutableAgent](),
	}
	p.tasks.Set(id, task)
	p.taskOrderMu.Lock()
	p.taskOrder = append(p.taskOrder, id)
	p.taskOrderMu.Unlock()
	return task
}

func (t *Tree) ensureAgent(task *mutableTask, name, description string) *mutableAgent {
	if agent, ok := task.agents.Get(name); ok {
		return agent
	}
	agent := &mutableAgent{taskID: task.id, name: name, description: description}
	task.agents.Set(name, agent)
	task.agentOrderMu.Lock()
	task.agentOrder = append(task.agentOrder, name)
	task.agentOrderMu.Unlock()
	return agent
}

func (t *Tree) findTask(taskID string) (*mutableTask, bool) {
	var found *mutableTask
	t.phases.Seq(func(_ int, p *mutablePhase) bool {
		if task, ok := p.tasks.Get(taskID); ok {
			found = task
			return false
		}
		return true
	})
	return found, found != nil
}

func (t *Tree) findAgent(taskID, agentName string) (*mutableAgent, bool) {
	task, ok := t.findTask(taskID)
	if !ok {
		return nil, false
	}
	agent, ok := task.agents.Get(agentName)
	return agent, ok
}

// Snapshot returns a deep, point-in-time copy of the tree ordered by
// phase index, then task/agent arrival order. Safe to call concurrently
// with Apply.
func (t *Tree) Snapshot() []*PhaseView {
	t.mu.Lock()
	defer t.mu.Unlock()

	ords := append([]int(nil), t.phaseOrds...)
	sort.Ints(ords)

	views := make([]*PhaseView, 0, len(ords))
	for _, idx := range ords {
		p, ok := t.phases.Get(idx)
		if !ok {
			continue
		}
		pv := &PhaseView{
			Index:       p.index,
			Name:        p.name,
			Status:      p.status,
			TotalPhases: p.totalPhases,
			StateFiles:  append([]StateFile(nil), p.stateFiles...),
		}
		p.taskOrderMu.Lock()
		taskOrder := append([]string(nil), p.taskOrder...)
		p.taskOrderMu.Unlock()
		for _, tid := range taskOrder {
			task, ok := p.tasks.Get(tid)
			if !ok {
				continue
			}
			tv := &TaskView{
				Phase:       task.phase,
				ID:          task.id,
				Description: task.description,
				Status:      task.status,
				TotalTasks:  task.totalTasks,
				Messages:    append([]string(nil), task.messages...),
				Result:      task.result,
			}
			task.agentOrderMu.Lock()
			agentOrder := append([]string(nil), task.agentOrder...)
			task.agentOrderMu.Unlock()
			for _, name := range agentOrder {
				agent, ok := task.agents.Get(name)
				if !ok {
					continue
				}
				tv.Agents = append(tv.Agents, &AgentView{
					TaskID:      agent.taskID,
					Name:        agent.name,
					Description: agent.description,
					Status:      agent.status,
					Messages:    append([]string(nil), agent.messages...),
					Result:      agent.result,
				})
			}
			pv.Tasks = append(pv.Tasks, tv)
		}
		views = append(views, pv)
	}
	return views
}
