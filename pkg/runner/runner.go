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

// Package runner supervises one workflow binary on the orchestrator
// side: it queries the binary's --workflow-metadata self-description,
// builds its flag line from run parameters, spawns it, classifies every
// stderr line as either a structured __WF_EVENT__ lifecycle event or
// raw_output, forwards stdout as raw_output, and reports the process's
// exit code as the run's exit_code.
package runner

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"sort"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/molaco/workflow-manager/internal/event"
	"github.com/molaco/workflow-manager/internal/log"
	"github.com/molaco/workflow-manager/pkg/engine"
	"github.com/molaco/workflow-manager/pkg/transport"
	"github.com/molaco/workflow-manager/pkg/workflow"
)

// metadataTimeout bounds the --workflow-metadata query; a healthy binary
// answers it without doing any real work.
const metadataTimeout = 10 * time.Second

// Options configures one supervised workflow run.
type Options struct {
	// BinaryPath is the workflow binary to run.
	BinaryPath string

	// Params maps schema field names to values; each becomes a
	// --<name> <value> flag pair.
	Params map[string]string

	// Phases, Concurrency, SimpleBatching, ResumeFiles, and OutputDir
	// map onto the common flag surface of §6.
	Phases         []int
	Concurrency    int64
	SimpleBatching bool
	ResumeFiles    map[string]string
	OutputDir      string

	// ExtraArgs are appended verbatim after all derived flags.
	ExtraArgs []string

	// Dir is the child's working directory.
	Dir string

	// Spawner selects the process backend (local subprocess by default;
	// the Docker backend for sandboxed runs).
	Spawner transport.Spawner

	// KillGrace bounds how long cancellation waits for the child to exit
	// before force-terminating it.
	KillGrace time.Duration
}

func (o Options) killGrace() time.Duration {
	if o.KillGrace > 0 {
		return o.KillGrace
	}
	return 5 * time.Second
}

// Metadata runs the binary with --workflow-metadata and parses its
// self-description document.
func Metadata(ctx context.Context, binaryPath string) (workflow.Metadata, error) {
	ctx, cancel := context.WithTimeout(ctx, metadataTimeout)
	defer cancel()

	out, err := exec.CommandContext(ctx, binaryPath, "--workflow-metadata").Output()
	if err != nil {
		return workflow.Metadata{}, fmt.Errorf("runner: query metadata from %s: %w", binaryPath, err)
	}
	return workflow.ParseMetadata(out)
}

// BuildArgs derives the workflow binary's full argument list from
// Options, one flag per parameter plus the common flags.
func BuildArgs(opts Options) []string {
	var args []string

	names := make([]string, 0, len(opts.Params))
	for name := range opts.Params {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		args = append(args, "--"+name, opts.Params[name])
	}

	if len(opts.Phases) > 0 {
		csv := ""
		for i, p := range opts.Phases {
			if i > 0 {
				csv += ","
			}
			csv += strconv.Itoa(p)
		}
		args = append(args, "--phases", csv)
	}
	if opts.Concurrency > 0 {
		args = append(args, "--concurrency", strconv.FormatInt(opts.Concurrency, 10))
	}
	if opts.SimpleBatching {
		args = append(args, "--simple-batching")
	}

	kinds := make([]string, 0, len(opts.ResumeFiles))
	for kind := range opts.ResumeFiles {
		kinds = append(kinds, kind)
	}
	sort.Strings(kinds)
	for _, kind := range kinds {
		args = append(args, "--resume", kind+"="+opts.ResumeFiles[kind])
	}

	if opts.OutputDir != "" {
		args = append(args, "--output", opts.OutputDir)
	}
	return append(args, opts.ExtraArgs...)
}

// Run spawns the workflow binary and pumps its output into emit until it
// exits. The returned exit code is the child's; err is non-nil only for
// supervision failures (spawn, pipes), never for a non-zero child exit —
// the exit code itself carries that.
func Run(ctx context.Context, opts Options, emit engine.Emitter) (int, error) {
	spawner := opts.Spawner
	if spawner == nil {
		spawner = transport.Process_{}
	}

	proc, err := spawner.Spawn(ctx, transport.Options{
		Command: opts.BinaryPath,
		Args:    BuildArgs(opts),
		Dir:     opts.Dir,
	})
	if err != nil {
		return -1, fmt.Errorf("runner: spawn %s: %w", opts.BinaryPath, err)
	}
	// The workflow binary takes no input on stdin; close it immediately
	// so a child that reads stdin sees EOF rather than hanging.
	_ = proc.Stdin().Close()

	logger := log.Logger()
	var pumps sync.WaitGroup
	pumps.Add(2)

	go func() {
		defer pumps.Done()
		scanner := bufio.NewScanner(proc.Stderr())
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			emit.Publish(event.ParseStderrLine(scanner.Text()))
		}
	}()
	go func() {
		defer pumps.Done()
		scanner := bufio.NewScanner(proc.Stdout())
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			emit.Publish(event.RawOutput(event.StreamStdout, scanner.Text()))
		}
	}()

	waitErr := make(chan error, 1)
	go func() {
		pumps.Wait()
		waitErr <- proc.Wait()
	}()

	select {
	case err := <-waitErr:
		return exitCode(err), nil
	case <-ctx.Done():
		logger.Info("runner: cancellation requested, waiting for workflow binary to exit",
			zap.Duration("grace", opts.killGrace()))
		select {
		case err := <-waitErr:
			return exitCode(err), nil
		case <-time.After(opts.killGrace()):
			logger.Warn("runner: workflow binary did not exit within grace period, killing")
			_ = proc.Kill()
			return exitCode(<-waitErr), nil
		}
	}
}

func exitCode(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return -1
}
