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

// Package sidebar renders the run-status sidebar of the live workflow
// view: which run this is, how long it has been going, phase/task/agent
// progress counts, and the currently active sub-agents.
package sidebar

import (
	"fmt"
	"strings"
	"time"

	"charm.land/lipgloss/v2"

	"github.com/molaco/workflow-manager/pkg/eventbus"
	"github.com/molaco/workflow-manager/pkg/tui/components/agents"
	"github.com/molaco/workflow-manager/pkg/tui/components/core"
	"github.com/molaco/workflow-manager/pkg/tui/styles"
)

const logoHeightBreakpoint = 30

// RunInfo identifies the run the sidebar describes.
type RunInfo struct {
	WorkflowName string
	RunID        string
	BinaryPath   string
	StartedAt    time.Time
}

// Model is the sidebar component. It holds no run state of its own: the
// parent passes the latest tree snapshot into View, keeping the sidebar
// a pure projection of orchestration state.
type Model struct {
	width  int
	height int
}

// New creates a new sidebar component.
func New() *Model {
	return &Model{}
}

// SetSize updates the sidebar's layout bounds.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}

// View renders the sidebar from the given run info and tree snapshot.
func (m *Model) View(info RunInfo, phases []*eventbus.PhaseView) string {
	t := styles.CurrentTheme()
	var blocks []string

	if m.height >= logoHeightBreakpoint {
		blocks = append(blocks, lipgloss.NewStyle().Foreground(t.Accent).Bold(true).Render("workflow-manager"), "")
	}

	blocks = append(blocks, lipgloss.NewStyle().Foreground(t.Primary).Bold(true).Render(info.WorkflowName))
	if info.RunID != "" {
		blocks = append(blocks, lipgloss.NewStyle().Foreground(t.FgSubtle).Render(shortID(info.RunID)))
	}
	if !info.StartedAt.IsZero() {
		elapsed := time.Since(info.StartedAt).Round(time.Second)
		blocks = append(blocks, lipgloss.NewStyle().Foreground(t.FgMuted).Render("elapsed "+elapsed.String()))
	}
	blocks = append(blocks, "")

	blocks = append(blocks, core.Section("Progress", m.width))
	pc, tc, ac := countStatuses(phases)
	blocks = append(blocks,
		countLine("phases", pc, m.width),
		countLine("tasks", tc, m.width),
		countLine("agents", ac, m.width),
		"",
	)

	blocks = append(blocks, core.Section("Active agents", m.width))
	blocks = append(blocks, agents.RenderAgentBlock(activeAgents(phases), agents.RenderOptions{
		MaxWidth: m.width,
		MaxItems: maxAgentsShown(m.height),
	}, true))

	content := lipgloss.JoinVertical(lipgloss.Left, blocks...)
	return lipgloss.NewStyle().Width(m.width).Render(content)
}

// statusCounts tallies nodes of one tree level by lifecycle state.
type statusCounts struct {
	running, completed, failed, total int
}

func (c statusCounts) add(s eventbus.Status) statusCounts {
	c.total++
	switch s {
	case eventbus.Running:
		c.running++
	case eventbus.Completed:
		c.completed++
	case eventbus.Failed:
		c.failed++
	}
	return c
}

func countStatuses(phases []*eventbus.PhaseView) (p, t, a statusCounts) {
	for _, ph := range phases {
		p = p.add(ph.Status)
		for _, task := range ph.Tasks {
			t = t.add(task.Status)
			for _, agent := range task.Agents {
				a = a.add(agent.Status)
			}
		}
	}
	return p, t, a
}

func countLine(label string, c statusCounts, width int) string {
	t := styles.CurrentTheme()
	var extra []string
	if c.running > 0 {
		extra = append(extra, lipgloss.NewStyle().Foreground(t.Info).Render(fmt.Sprintf("%d running", c.running)))
	}
	if c.failed > 0 {
		extra = append(extra, lipgloss.NewStyle().Foreground(t.Error).Render(fmt.Sprintf("%d failed", c.failed)))
	}
	return core.Status(core.StatusOpts{
		Title:        label,
		TitleColor:   t.FgBase,
		Description:  fmt.Sprintf("%d/%d", c.completed, c.total),
		ExtraContent: strings.Join(extra, " "),
	}, width)
}

func activeAgents(phases []*eventbus.PhaseView) []agents.AgentInfo {
	t := styles.CurrentTheme()
	var out []agents.AgentInfo
	idx := 0
	for _, ph := range phases {
		for _, task := range ph.Tasks {
			for _, agent := range task.Agents {
				if agent.Status != eventbus.Running {
					continue
				}
				out = append(out, agents.AgentInfo{
					ID:     agent.TaskID + ":" + agent.Name,
					Name:   agent.Name,
					Status: "active",
					Color:  t.GetAgentColor(idx),
				})
				idx++
			}
		}
	}
	return out
}

func maxAgentsShown(height int) int {
	if height <= 0 {
		return 10
	}
	n := height / 3
	if n < 2 {
		return 2
	}
	if n > 10 {
		return 10
	}
	return n
}

func shortID(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[:8]
}
