package config

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"

	"github.com/containifyci/analysis-worker/pkg/rundir"
)

// Config is read from the environment.
type Config struct {
	TemporalHost      string `envconfig:"TEMPORAL_HOST" default:"localhost:7233"`
	TemporalNamespace string `envconfig:"TEMPORAL_NAMESPACE" default:"default"`
	TaskQueue         string `envconfig:"ANALYSIS_TASK_QUEUE" default:"analysis-queue"`
	LogLevel          string `envconfig:"LOG_LEVEL" default:"debug"`

	LinkMode string `envconfig:"RUNDIR_LINK_MODE" default:"auto"`
	Strategy string `envconfig:"RUNDIR_STRATEGY" default:"staged"`

	MaxConcurrentWorkflows  int `envconfig:"MAX_CONCURRENT_WORKFLOWS" default:"2"`
	MaxConcurrentActivities int `envconfig:"MAX_CONCURRENT_ACTIVITIES" default:"4"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to read configuration: %w", err)
	}
	if _, err := rundir.ParseLinkMode(cfg.LinkMode); err != nil {
		return nil, fmt.Errorf("RUNDIR_LINK_MODE: %w", err)
	}
	if _, err := rundir.ParseStrategy(cfg.Strategy); err != nil {
		return nil, fmt.Errorf("RUNDIR_STRATEGY: %w", err)
	}
	return &cfg, nil
}

// RunDirOptions translates the rundir settings into manager options.
// Load has already validated them.
func (c *Config) RunDirOptions() []rundir.Option {
	mode, _ := rundir.ParseLinkMode(c.LinkMode)
	strategy, _ := rundir.ParseStrategy(c.Strategy)
	return []rundir.Option{rundir.WithLinkMode(mode), rundir.WithStrategy(strategy)}
}
