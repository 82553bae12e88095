// Copyright © 2026 Teradata Corporation - All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// Config is the loaded configuration layer: a YAML file in the data
// directory merged with WORKFLOW_MANAGER_* environment variables and any
// CLI flags the caller binds. The bootstrap path layer (DataDir and
// friends in paths.go) deliberately stays below this — it locates the
// config file itself.
type Config struct {
	// LogLevel is the zap level name (debug, info, warn, error).
	LogLevel string `mapstructure:"log_level"`

	// DBPath is the event store database file.
	DBPath string `mapstructure:"db_path"`

	// Concurrency is the default global concurrency limit passed to
	// workflow binaries.
	Concurrency int64 `mapstructure:"concurrency"`

	// BatchSize is the default fixed-size batching chunk.
	BatchSize int `mapstructure:"batch_size"`

	// FixIterations is the default fix-loop iteration cap.
	FixIterations int `mapstructure:"fix_iterations"`

	// Planner selects the external planner backend (anthropic, bedrock,
	// or empty for simple batching).
	Planner PlannerConfig `mapstructure:"planner"`

	// BinaryPaths are extra directories searched for workflow binaries.
	BinaryPaths []string `mapstructure:"binary_paths"`

	v *viper.Viper
}

// PlannerConfig configures the external planner's LLM backend.
type PlannerConfig struct {
	Backend string `mapstructure:"backend"`
	Model   string `mapstructure:"model"`
	Region  string `mapstructure:"region"`
}

// ConfigFileName is the config file's base name inside the data
// directory.
const ConfigFileName = "workflow-manager.yaml"

// Load reads the configuration: cfgFile if given, else
// <data dir>/workflow-manager.yaml if present; environment variables
// (WORKFLOW_MANAGER_ prefix, dots become underscores) override the file,
// and bound flags override both. A missing config file is not an error —
// defaults apply.
func Load(cfgFile string) (*Config, error) {
	v := viper.New()

	v.SetDefault("log_level", "info")
	v.SetDefault("db_path", filepath.Join(DataDir(), "workflow-manager.db"))
	v.SetDefault("concurrency", 1)
	v.SetDefault("batch_size", 4)
	v.SetDefault("fix_iterations", 3)
	v.SetDefault("planner.backend", "")
	v.SetDefault("planner.model", "")
	v.SetDefault("planner.region", "")

	v.SetEnvPrefix("WORKFLOW_MANAGER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName(strings.TrimSuffix(ConfigFileName, filepath.Ext(ConfigFileName)))
		v.SetConfigType("yaml")
		v.AddConfigPath(DataDir())
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && cfgFile != "" {
			return nil, fmt.Errorf("config: read %s: %w", cfgFile, err)
		}
		if !errors.As(err, &notFound) && cfgFile == "" {
			// A malformed default-location file should be loud, not
			// silently ignored.
			return nil, fmt.Errorf("config: read %s: %w", v.ConfigFileUsed(), err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}
	cfg.v = v
	return &cfg, nil
}

// Watch re-reads the config file whenever it changes on disk and calls
// onChange with the fresh values. No-op when no config file was found.
func (c *Config) Watch(onChange func(*Config)) {
	if c.v == nil || c.v.ConfigFileUsed() == "" {
		return
	}
	c.v.OnConfigChange(func(fsnotify.Event) {
		var fresh Config
		if err := c.v.Unmarshal(&fresh); err != nil {
			return
		}
		fresh.v = c.v
		onChange(&fresh)
	})
	c.v.WatchConfig()
}
