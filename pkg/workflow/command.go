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
package workflow

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/molaco/workflow-manager/internal/log"
	"github.com/molaco/workflow-manager/pkg/engine"
	"github.com/molaco/workflow-manager/pkg/llm"
	"github.com/molaco/workflow-manager/pkg/planner"
)

// BuildFunc constructs a workflow's phase list from its resolved input
// parameters. Called once per run, after flag parsing and validation.
type BuildFunc func(params Params) ([]engine.PhaseSpec, error)

// Command builds the cobra command implementing the common CLI surface
// of §6 for one workflow binary: --workflow-metadata, one flag per
// schema field, phase selection, concurrency, resume files, output path,
// and the simple-batching toggle. Lifecycle events go to stderr as
// __WF_EVENT__ lines for the supervising orchestrator to pick up.
func Command(meta Metadata, build BuildFunc) *cobra.Command {
	var (
		printMetadata  bool
		phasesCSV      string
		concurrency    int64
		batchSize      int
		simpleBatching bool
		resumeFlags    []string
		outputDir      string
		fixIterations  int
		plannerName    string
		plannerModel   string
		verbose        bool
	)

	cmd := &cobra.Command{
		Use:           meta.ID,
		Short:         meta.Name,
		Long:          meta.Description,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if printMetadata {
				doc, err := meta.JSON()
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), string(doc))
				return nil
			}

			if verbose {
				if l, err := zap.NewDevelopment(); err == nil {
					log.SetLogger(l)
				}
			}

			params := make(Params, len(meta.Fields))
			for _, f := range meta.Fields {
				v, err := cmd.Flags().GetString(f.Name)
				if err != nil {
					return err
				}
				params[f.Name] = v
			}
			if err := meta.Validate(params); err != nil {
				return err
			}

			selected, err := ParsePhases(phasesCSV)
			if err != nil {
				return err
			}
			resume, err := ParseResumeFiles(resumeFlags)
			if err != nil {
				return err
			}

			phases, err := build(params)
			if err != nil {
				return err
			}

			opts := engine.Options{
				Phases:          phases,
				Selected:        selected,
				Concurrency:     concurrency,
				BatchSize:       batchSize,
				SimpleBatching:  simpleBatching,
				ResumeFiles:     resume,
				FixIterationCap: fixIterations,
				CheckpointDir:   outputDir,
				Emitter:         engine.NewLineEmitter(cmd.ErrOrStderr()),
			}
			if !simpleBatching && plannerName != "" {
				p, err := buildPlanner(cmd.Context(), plannerName, plannerModel)
				if err != nil {
					return err
				}
				opts.Planner = p
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return engine.New(opts).Run(ctx)
		},
	}

	cmd.Flags().BoolVar(&printMetadata, "workflow-metadata", false, "print the workflow metadata document and exit")
	cmd.Flags().StringVar(&phasesCSV, "phases", "", "comma-separated phase indices to run (default: all)")
	cmd.Flags().Int64Var(&concurrency, "concurrency", 1, "maximum concurrent task/sub-agent executions")
	cmd.Flags().IntVar(&batchSize, "batch-size", 4, "fixed-size batching chunk")
	cmd.Flags().BoolVar(&simpleBatching, "simple-batching", false, "use fixed-size batching instead of a planned schedule")
	cmd.Flags().StringArrayVar(&resumeFlags, "resume", nil, "checkpoint input for a skipped phase, as kind=path (repeatable)")
	cmd.Flags().StringVar(&outputDir, "output", "", "directory for checkpoint artifacts (default: working directory)")
	cmd.Flags().IntVar(&fixIterations, "fix-iterations", 3, "fix-loop iteration cap")
	cmd.Flags().StringVar(&plannerName, "planner", "", "execution planner backend (anthropic, bedrock)")
	cmd.Flags().StringVar(&plannerModel, "planner-model", "", "model override for the planner backend")
	cmd.Flags().BoolVar(&verbose, "verbose", false, "debug logging")

	for _, f := range meta.Fields {
		cmd.Flags().String(f.Name, f.Default, f.Description)
	}

	return cmd
}

func buildPlanner(ctx context.Context, name, model string) (engine.Planner, error) {
	limiter := llm.NewRateLimiter(llm.DefaultRateLimiterConfig())

	switch name {
	case "anthropic":
		key, err := planner.APIKey()
		if err != nil {
			return nil, err
		}
		backend, err := planner.NewAnthropicBackend(planner.AnthropicConfig{APIKey: key, Model: model})
		if err != nil {
			return nil, err
		}
		return planner.New(backend, limiter), nil
	case "bedrock":
		backend, err := planner.NewBedrockBackend(ctx, planner.BedrockConfig{ModelID: model})
		if err != nil {
			return nil, err
		}
		return planner.New(backend, limiter), nil
	default:
		return nil, fmt.Errorf("workflow: unknown planner backend %q (anthropic, bedrock)", name)
	}
}

// ParsePhases parses the --phases CSV into sorted-by-caller phase
// indices. Empty input selects all phases.
func ParsePhases(csv string) ([]int, error) {
	if strings.TrimSpace(csv) == "" {
		return nil, nil
	}
	parts := strings.Split(csv, ",")
	out := make([]int, 0, len(parts))
	for _, part := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return nil, fmt.Errorf("workflow: invalid phase index %q in --phases", part)
		}
		if n < 0 {
			return nil, fmt.Errorf("workflow: negative phase index %d in --phases", n)
		}
		out = append(out, n)
	}
	return out, nil
}

// ParseResumeFiles parses repeated --resume kind=path flags into the
// engine's resume map.
func ParseResumeFiles(flags []string) (map[string]string, error) {
	if len(flags) == 0 {
		return nil, nil
	}
	out := make(map[string]string, len(flags))
	for _, f := range flags {
		kind, path, ok := strings.Cut(f, "=")
		if !ok || kind == "" || path == "" {
			return nil, fmt.Errorf("workflow: invalid --resume %q, want kind=path", f)
		}
		out[kind] = path
	}
	return out, nil
}
