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
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/molaco/workflow-manager/internal/log"
	wmconfig "github.com/molaco/workflow-manager/pkg/config"
)

var (
	cfgFile string
	verbose bool
	cfg     *wmconfig.Config
)

var rootCmd = &cobra.Command{
	Use:   "workflow-manager",
	Short: "Multi-agent workflow orchestrator",
	Long: `workflow-manager runs hierarchical plans of LLM-driven work: it
supervises workflow binaries, shows their phases, tasks, and sub-agents
live, and keeps a durable history of every run.`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $WORKFLOW_MANAGER_DATA_DIR/"+wmconfig.ConfigFileName+")")
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "debug logging")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(configCmd)
}

func initConfig() {
	var err error
	cfg, err = wmconfig.Load(cfgFile)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	level := zapcore.InfoLevel
	if verbose {
		level = zapcore.DebugLevel
	} else if parsed, perr := zapcore.ParseLevel(cfg.LogLevel); perr == nil {
		level = parsed
	}

	zcfg := zap.NewProductionConfig()
	zcfg.Level = zap.NewAtomicLevelAt(level)
	zcfg.OutputPaths = []string{"stderr"}
	if logger, lerr := zcfg.Build(); lerr == nil {
		log.SetLogger(logger)
	}
}
