package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv unsets every variable Config reads; t.Setenv restores them afterwards.
func clearEnv(t *testing.T) {
	for _, key := range []string{
		"TEMPORAL_HOST", "TEMPORAL_NAMESPACE", "ANALYSIS_TASK_QUEUE", "LOG_LEVEL",
		"RUNDIR_LINK_MODE", "RUNDIR_STRATEGY", "MAX_CONCURRENT_WORKFLOWS", "MAX_CONCURRENT_ACTIVITIES",
	} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "localhost:7233", cfg.TemporalHost)
	assert.Equal(t, "default", cfg.TemporalNamespace)
	assert.Equal(t, "analysis-queue", cfg.TaskQueue)
	assert.Equal(t, "auto", cfg.LinkMode)
	assert.Equal(t, "staged", cfg.Strategy)
	assert.Equal(t, 2, cfg.MaxConcurrentWorkflows)
	assert.Equal(t, 4, cfg.MaxConcurrentActivities)
	assert.Len(t, cfg.RunDirOptions(), 2)
}

func TestLoad_FromEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("TEMPORAL_HOST", "temporal:7233")
	t.Setenv("ANALYSIS_TASK_QUEUE", "iotcom")
	t.Setenv("RUNDIR_LINK_MODE", "pointer")
	t.Setenv("RUNDIR_STRATEGY", "in-place")
	t.Setenv("MAX_CONCURRENT_ACTIVITIES", "8")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "temporal:7233", cfg.TemporalHost)
	assert.Equal(t, "iotcom", cfg.TaskQueue)
	assert.Equal(t, "pointer", cfg.LinkMode)
	assert.Equal(t, "in-place", cfg.Strategy)
	assert.Equal(t, 8, cfg.MaxConcurrentActivities)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{name: "link mode", key: "RUNDIR_LINK_MODE", value: "hardlink"},
		{name: "strategy", key: "RUNDIR_STRATEGY", value: "atomic"},
		{name: "not a number", key: "MAX_CONCURRENT_WORKFLOWS", value: "many"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tt.key, tt.value)
			_, err := Load()
			assert.Error(t, err)
		})
	}
}
