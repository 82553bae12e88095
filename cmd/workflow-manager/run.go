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
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	tea "charm.land/bubbletea/v2"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/molaco/workflow-manager/internal/log"
	wmconfig "github.com/molaco/workflow-manager/pkg/config"
	"github.com/molaco/workflow-manager/pkg/eventbus"
	"github.com/molaco/workflow-manager/pkg/runner"
	"github.com/molaco/workflow-manager/pkg/store"
	"github.com/molaco/workflow-manager/pkg/transport"
	"github.com/molaco/workflow-manager/pkg/tui/app"
	"github.com/molaco/workflow-manager/pkg/tui/components/sidebar"
	"github.com/molaco/workflow-manager/pkg/workflow"
)

var (
	runParams         []string
	runPhases         string
	runConcurrency    int64
	runSimpleBatching bool
	runResume         []string
	runOutput         string
	runNoTUI          bool
	runSandboxImage   string
)

var runCmd = &cobra.Command{
	Use:   "run <workflow-binary>",
	Short: "Run a workflow binary and watch it live",
	Long: `Run queries the binary's --workflow-metadata self-description,
starts it with the given parameters, records every lifecycle event in
the history database, and shows the live phase/task/agent tree unless
--no-tui is given.`,
	Args: cobra.ExactArgs(1),
	RunE: runWorkflow,
}

func init() {
	runCmd.Flags().StringArrayVar(&runParams, "param", nil, "workflow input as name=value (repeatable)")
	runCmd.Flags().StringVar(&runPhases, "phases", "", "comma-separated phase indices to run (default: all)")
	runCmd.Flags().Int64Var(&runConcurrency, "concurrency", 0, "maximum concurrent task/sub-agent executions (default from config)")
	runCmd.Flags().BoolVar(&runSimpleBatching, "simple-batching", false, "use fixed-size batching instead of a planned schedule")
	runCmd.Flags().StringArrayVar(&runResume, "resume", nil, "checkpoint input for a skipped phase, as kind=path (repeatable)")
	runCmd.Flags().StringVar(&runOutput, "output", "", "directory for checkpoint artifacts")
	runCmd.Flags().BoolVar(&runNoTUI, "no-tui", false, "stream events as plain text instead of the live tree")
	runCmd.Flags().StringVar(&runSandboxImage, "sandbox-image", "", "run the workflow binary inside a Docker container using this image")
}

func runWorkflow(cmd *cobra.Command, args []string) error {
	binaryPath := args[0]
	logger := log.Logger()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	meta, err := runner.Metadata(ctx, binaryPath)
	if err != nil {
		return err
	}

	params, err := parseParams(runParams, meta)
	if err != nil {
		return err
	}
	phases, err := workflow.ParsePhases(runPhases)
	if err != nil {
		return err
	}
	resume, err := workflow.ParseResumeFiles(runResume)
	if err != nil {
		return err
	}

	concurrency := runConcurrency
	if concurrency == 0 {
		concurrency = cfg.Concurrency
	}

	st, err := store.Open(ctx, cfg.DBPath)
	if err != nil {
		return err
	}
	defer st.Close()

	runID := uuid.NewString()
	started := time.Now()
	if err := st.InsertRun(ctx, store.Run{
		ID:           runID,
		WorkflowID:   meta.ID,
		WorkflowName: meta.Name,
		Status:       store.StatusRunning,
		StartTime:    started,
		BinaryPath:   binaryPath,
	}); err != nil {
		return err
	}
	if len(params) > 0 {
		if err := st.InsertParams(ctx, runID, params); err != nil {
			logger.Warn("failed to persist run params", zap.Error(err))
		}
	}

	bus := eventbus.New(runID, st)
	busDone := make(chan struct{})
	go func() {
		// The bus drains on its own channel close, independent of run
		// cancellation, so no trailing event is lost.
		bus.Run(context.Background())
		close(busDone)
	}()

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	opts := runner.Options{
		BinaryPath:     binaryPath,
		Params:         params,
		Phases:         phases,
		Concurrency:    concurrency,
		SimpleBatching: runSimpleBatching,
		ResumeFiles:    resume,
		OutputDir:      runOutput,
	}
	if runSandboxImage != "" {
		opts.Spawner = transport.DockerSpawner{Image: runSandboxImage}
	}

	var exitCode int
	var runErr error
	if runNoTUI {
		exitCode, runErr = runner.Run(runCtx, opts, bus)
	} else {
		exitCode, runErr = runWithTUI(runCtx, cancel, bus, opts, sidebar.RunInfo{
			WorkflowName: meta.Name,
			RunID:        runID,
			BinaryPath:   binaryPath,
			StartedAt:    started,
		})
	}

	bus.Close()
	<-busDone

	finalStatus := store.StatusCompleted
	if runErr != nil || exitCode != 0 {
		finalStatus = store.StatusFailed
	}
	finishCtx, finishCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer finishCancel()
	if err := st.UpdateRunStatus(finishCtx, runID, finalStatus); err != nil {
		logger.Warn("failed to update run status", zap.Error(err))
	}
	if err := st.UpdateRunEndTimeAndExitCode(finishCtx, runID, time.Now(), exitCode); err != nil {
		logger.Warn("failed to update run end time", zap.Error(err))
	}

	if err := wmconfig.SaveSession(wmconfig.Session{
		LastRunID:      runID,
		LastWorkflowID: meta.ID,
		LastBinaryPath: binaryPath,
	}); err != nil {
		logger.Warn("failed to save session file", zap.Error(err))
	}

	if runErr != nil {
		return runErr
	}
	if exitCode != 0 {
		return fmt.Errorf("workflow %s failed with exit code %d (run %s)", meta.ID, exitCode, runID)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "run %s completed\n", runID)
	return nil
}

func runWithTUI(ctx context.Context, cancel context.CancelFunc, bus *eventbus.Bus, opts runner.Options, info sidebar.RunInfo) (int, error) {
	model := app.New(ctx, bus, info, cancel)
	program := tea.NewProgram(model, tea.WithEnvironment(os.Environ()))

	type result struct {
		code int
		err  error
	}
	done := make(chan result, 1)
	go func() {
		code, err := runner.Run(ctx, opts, bus)
		program.Send(app.RunFinishedMsg{ExitCode: code, Err: err})
		done <- result{code: code, err: err}
	}()

	if _, err := program.Run(); err != nil {
		// The view failing must not orphan the child; cancel and wait.
		cancel()
		res := <-done
		if res.err == nil {
			res.err = err
		}
		return res.code, res.err
	}
	res := <-done
	return res.code, res.err
}

// parseParams resolves --param name=value pairs against the workflow's
// field schema, applying schema defaults for absent fields.
func parseParams(flags []string, meta workflow.Metadata) (map[string]string, error) {
	known := make(map[string]workflow.Field, len(meta.Fields))
	for _, f := range meta.Fields {
		known[f.Name] = f
	}

	params := make(map[string]string)
	for _, f := range meta.Fields {
		if f.Default != "" {
			params[f.Name] = f.Default
		}
	}
	for _, p := range flags {
		name, value, ok := strings.Cut(p, "=")
		if !ok {
			return nil, fmt.Errorf("invalid --param %q, want name=value", p)
		}
		if _, ok := known[name]; !ok {
			return nil, fmt.Errorf("unknown parameter %q for workflow %s", name, meta.ID)
		}
		params[name] = value
	}
	if err := meta.Validate(workflow.Params(params)); err != nil {
		return nil, err
	}
	return params, nil
}
