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

// Package app is the live run view: a bubbletea program that renders the
// Event Bus's hierarchical [Phase]->[Task]->[Agent] tree next to a
// run-status sidebar. It is a read-only projection of orchestration
// state; the only thing it feeds back is the user's quit, which cancels
// the run's context.
package app

import (
	"context"
	"fmt"
	"strings"

	"charm.land/bubbles/v2/viewport"
	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/molaco/workflow-manager/internal/event"
	"github.com/molaco/workflow-manager/internal/pubsub"
	"github.com/molaco/workflow-manager/internal/tree"
	"github.com/molaco/workflow-manager/pkg/eventbus"
	"github.com/molaco/workflow-manager/pkg/tui/components"
	"github.com/molaco/workflow-manager/pkg/tui/components/sidebar"
	"github.com/molaco/workflow-manager/pkg/tui/styles"
)

const (
	sidebarWidth = 32
	// tailMessages bounds how many trailing messages show under a task
	// or a running agent, and how many raw output lines are kept.
	tailMessages = 3
)

// RunFinishedMsg tells the view the supervised run has terminated; the
// view stays up so the user can read the final tree, and any key exits.
type RunFinishedMsg struct {
	ExitCode int
	Err      error
}

type busEventMsg struct {
	ev pubsub.Event[event.Event]
}

type busClosedMsg struct{}

// Model is the run view's bubbletea model.
type Model struct {
	bus    *eventbus.Bus
	events <-chan pubsub.Event[event.Event]
	info   sidebar.RunInfo
	cancel context.CancelFunc

	side     *sidebar.Model
	viewport viewport.Model
	spinner  *components.SpinnerModel
	help     *components.HelpView
	width    int
	height   int

	rawTail  []string
	finished bool
	exitCode int
	runErr   error
}

// New constructs the run view. cancel is invoked when the user quits
// mid-run, triggering the cooperative cancellation path of §4.4.
func New(ctx context.Context, bus *eventbus.Bus, info sidebar.RunInfo, cancel context.CancelFunc) *Model {
	spin := components.NewSpinner(&styles.DefaultTheme)
	spin.Start()
	spin.SetMessage("running")
	return &Model{
		bus:      bus,
		events:   bus.Subscribe(ctx),
		info:     info,
		cancel:   cancel,
		side:     sidebar.New(),
		viewport: viewport.New(),
		spinner:  spin,
		help:     components.NewHelpView(styles.DefaultStyles(), components.DefaultKeyBindings()),
	}
}

// Init starts the event pump and the spinner animation.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.waitForEvent(), components.StartSpinner())
}

func (m *Model) waitForEvent() tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-m.events
		if !ok {
			return busClosedMsg{}
		}
		return busEventMsg{ev: ev}
	}
}

// Update handles resize, quit keys, bus events, and run termination.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.side.SetSize(sidebarWidth, msg.Height)
		m.viewport.SetWidth(m.mainWidth())
		m.viewport.SetHeight(max(msg.Height-1, 1))
		return m, nil

	case tea.KeyMsg:
		if m.finished {
			return m, tea.Quit
		}
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			m.cancel()
			return m, nil
		}
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd

	case busEventMsg:
		if msg.ev.Payload.Type == event.TypeRawOutput {
			m.rawTail = append(m.rawTail, msg.ev.Payload.Line)
			if len(m.rawTail) > tailMessages {
				m.rawTail = m.rawTail[len(m.rawTail)-tailMessages:]
			}
		}
		return m, m.waitForEvent()

	case busClosedMsg:
		return m, nil

	case RunFinishedMsg:
		m.finished = true
		m.exitCode = msg.ExitCode
		m.runErr = msg.Err
		m.spinner.Stop()
		return m, nil
	}

	var cmd tea.Cmd
	m.spinner, cmd = m.spinner.Update(msg)
	return m, cmd
}

func (m *Model) mainWidth() int {
	w := m.width - sidebarWidth - 1
	if w < 20 {
		w = 20
	}
	return w
}

// View renders the tree beside the sidebar.
func (m *Model) View() string {
	phases := m.bus.Tree().Snapshot()

	m.viewport.SetContent(m.renderTree(phases))
	main := lipgloss.NewStyle().Width(m.mainWidth()).Render(m.viewport.View())
	side := m.side.View(m.info, phases)

	body := lipgloss.JoinHorizontal(lipgloss.Top, main, " ", side)
	return lipgloss.JoinVertical(lipgloss.Left, body, m.statusBar())
}

func (m *Model) renderTree(phases []*eventbus.PhaseView) string {
	t := styles.CurrentTheme()
	icons := styles.DefaultIcons()
	muted := lipgloss.NewStyle().Foreground(t.FgSubtle)

	var sections []string
	for _, ph := range phases {
		name := ph.Name
		if name == "" {
			name = fmt.Sprintf("phase %d", ph.Index)
		}
		label := statusStyle(ph.Status).Render(statusIcon(ph.Status, icons)) + " " +
			lipgloss.NewStyle().Foreground(t.Primary).Bold(true).Render(
				fmt.Sprintf("[%d/%d] %s", ph.Index+1, max(ph.TotalPhases, len(phases)), name))
		phaseTree := tree.Root(label)

		for _, task := range ph.Tasks {
			taskLabel := statusStyle(task.Status).Render(statusIcon(task.Status, icons)) + " " +
				lipgloss.NewStyle().Foreground(t.FgBase).Render(task.ID)
			if task.Description != "" {
				taskLabel += lipgloss.NewStyle().Foreground(t.FgMuted).Render(": " + task.Description)
			}
			taskTree := tree.Root(taskLabel)

			for _, line := range tail(task.Messages) {
				taskTree.Item(muted.Render(line))
			}
			for ai, agent := range task.Agents {
				agentLabel := statusStyle(agent.Status).Render(statusIcon(agent.Status, icons)) + " " +
					lipgloss.NewStyle().Foreground(t.GetAgentColor(ai)).Render(agent.Name)
				agentTree := tree.Root(agentLabel)
				if agent.Status == eventbus.Running {
					for _, line := range tail(agent.Messages) {
						agentTree.Item(muted.Render(line))
					}
				}
				taskTree.Item(agentTree)
			}
			phaseTree.Item(taskTree)
		}

		for _, sf := range ph.StateFiles {
			phaseTree.Item(lipgloss.NewStyle().Foreground(t.FgMuted).Render("↳ " + sf.Path))
		}
		sections = append(sections, phaseTree.String())
	}

	for _, line := range m.rawTail {
		sections = append(sections, muted.Render(line)+"\n")
	}
	return strings.Join(sections, "")
}

func (m *Model) statusBar() string {
	t := styles.CurrentTheme()
	if m.finished {
		if m.exitCode == 0 && m.runErr == nil {
			return lipgloss.NewStyle().Foreground(t.Success).Render("run completed, press any key to exit")
		}
		msg := fmt.Sprintf("run failed (exit %d)", m.exitCode)
		if m.runErr != nil {
			msg += ": " + m.runErr.Error()
		}
		return lipgloss.NewStyle().Foreground(t.Error).Render(msg + ", press any key to exit")
	}
	bar := m.help.Render(max(m.width-12, 20))
	if spin := m.spinner.View(); spin != "" {
		bar = spin + "  " + bar
	}
	return bar
}

func statusIcon(s eventbus.Status, icons *styles.Icons) string {
	switch s {
	case eventbus.Running:
		return icons.PlayIcon
	case eventbus.Completed:
		return icons.Check
	case eventbus.Failed:
		return icons.Error
	default:
		return icons.TodoPending
	}
}

func statusStyle(s eventbus.Status) lipgloss.Style {
	t := styles.CurrentTheme()
	switch s {
	case eventbus.Running:
		return lipgloss.NewStyle().Foreground(t.Info)
	case eventbus.Completed:
		return lipgloss.NewStyle().Foreground(t.Success)
	case eventbus.Failed:
		return lipgloss.NewStyle().Foreground(t.Error)
	default:
		return lipgloss.NewStyle().Foreground(t.FgSubtle)
	}
}

func tail(messages []string) []string {
	if len(messages) <= tailMessages {
		return messages
	}
	return messages[len(messages)-tailMessages:]
}
