package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

const (
	PipelineEngineLocal    = "local"
	PipelineEngineTemporal = "temporal"

	EnvPipelineEngine            = "FEEDBACK_PIPELINE_ENGINE"
	EnvPipelineThreshold         = "FEEDBACK_PIPELINE_THRESHOLD"
	EnvPipelineStalenessWindow   = "FEEDBACK_PIPELINE_STALENESS_WINDOW"
	EnvPipelineStepTimeout       = "FEEDBACK_PIPELINE_STEP_TIMEOUT"
	EnvPipelineMaxConcurrentRuns = "FEEDBACK_PIPELINE_MAX_CONCURRENT_RUNS"
	EnvPipelineMaxAttempts       = "FEEDBACK_PIPELINE_RETRY_MAX_ATTEMPTS"
	EnvTemporalHostPort          = "FEEDBACK_TEMPORAL_HOST_PORT"
	EnvTemporalNamespace         = "FEEDBACK_TEMPORAL_NAMESPACE"
	EnvTemporalTaskQueue         = "FEEDBACK_TEMPORAL_TASK_QUEUE"
)

// PipelineConfig holds the reinforcement policy and the execution settings
// for feedback pipeline runs.
type PipelineConfig struct {
	Engine            string         `toml:"engine"`
	Threshold         float64        `toml:"threshold"`
	InitialWeight     int            `toml:"initial_weight"`
	WeightDelta       int            `toml:"weight_delta"`
	StalenessWindow   string         `toml:"staleness_window"`
	StepTimeout       string         `toml:"step_timeout"`
	MaxConcurrentRuns int            `toml:"max_concurrent_runs"`
	Retry             RetryConfig    `toml:"retry"`
	Temporal          TemporalConfig `toml:"temporal"`
}

// RetryConfig bounds step retries with exponential backoff.
type RetryConfig struct {
	MaxAttempts     int    `toml:"max_attempts"`
	InitialInterval string `toml:"initial_interval"`
	MaxInterval     string `toml:"max_interval"`
}

// TemporalConfig locates the Temporal frontend and task queue.
type TemporalConfig struct {
	HostPort  string `toml:"host_port"`
	Namespace string `toml:"namespace"`
	TaskQueue string `toml:"task_queue"`
}

// StalenessWindowDuration returns StalenessWindow as a time.Duration.
func (c *PipelineConfig) StalenessWindowDuration() time.Duration {
	d, _ := time.ParseDuration(c.StalenessWindow)
	return d
}

// StepTimeoutDuration returns StepTimeout as a time.Duration.
func (c *PipelineConfig) StepTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.StepTimeout)
	return d
}

// InitialIntervalDuration returns InitialInterval as a time.Duration.
func (c *RetryConfig) InitialIntervalDuration() time.Duration {
	d, _ := time.ParseDuration(c.InitialInterval)
	return d
}

// MaxIntervalDuration returns MaxInterval as a time.Duration.
func (c *RetryConfig) MaxIntervalDuration() time.Duration {
	d, _ := time.ParseDuration(c.MaxInterval)
	return d
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *PipelineConfig) Finalize() error {
	c.loadDefaults()
	c.loadEnv()
	return c.validate()
}

// Merge overwrites non-zero fields from overlay.
func (c *PipelineConfig) Merge(overlay *PipelineConfig) {
	if overlay.Engine != "" {
		c.Engine = overlay.Engine
	}
	if overlay.Threshold != 0 {
		c.Threshold = overlay.Threshold
	}
	if overlay.InitialWeight != 0 {
		c.InitialWeight = overlay.InitialWeight
	}
	if overlay.WeightDelta != 0 {
		c.WeightDelta = overlay.WeightDelta
	}
	if overlay.StalenessWindow != "" {
		c.StalenessWindow = overlay.StalenessWindow
	}
	if overlay.StepTimeout != "" {
		c.StepTimeout = overlay.StepTimeout
	}
	if overlay.MaxConcurrentRuns != 0 {
		c.MaxConcurrentRuns = overlay.MaxConcurrentRuns
	}

	if overlay.Retry.MaxAttempts != 0 {
		c.Retry.MaxAttempts = overlay.Retry.MaxAttempts
	}
	if overlay.Retry.InitialInterval != "" {
		c.Retry.InitialInterval = overlay.Retry.InitialInterval
	}
	if overlay.Retry.MaxInterval != "" {
		c.Retry.MaxInterval = overlay.Retry.MaxInterval
	}

	if overlay.Temporal.HostPort != "" {
		c.Temporal.HostPort = overlay.Temporal.HostPort
	}
	if overlay.Temporal.Namespace != "" {
		c.Temporal.Namespace = overlay.Temporal.Namespace
	}
	if overlay.Temporal.TaskQueue != "" {
		c.Temporal.TaskQueue = overlay.Temporal.TaskQueue
	}
}

func (c *PipelineConfig) loadDefaults() {
	if c.Engine == "" {
		c.Engine = PipelineEngineLocal
	}
	if c.Threshold == 0 {
		c.Threshold = 0.75
	}
	if c.InitialWeight == 0 {
		c.InitialWeight = 50
	}
	if c.WeightDelta == 0 {
		c.WeightDelta = 5
	}
	if c.StalenessWindow == "" {
		c.StalenessWindow = "336h"
	}
	if c.StepTimeout == "" {
		c.StepTimeout = "45s"
	}
	if c.MaxConcurrentRuns == 0 {
		c.MaxConcurrentRuns = 16
	}
	if c.Retry.MaxAttempts == 0 {
		c.Retry.MaxAttempts = 4
	}
	if c.Retry.InitialInterval == "" {
		c.Retry.InitialInterval = "500ms"
	}
	if c.Retry.MaxInterval == "" {
		c.Retry.MaxInterval = "10s"
	}
	if c.Temporal.HostPort == "" {
		c.Temporal.HostPort = "localhost:7233"
	}
	if c.Temporal.Namespace == "" {
		c.Temporal.Namespace = "default"
	}
	if c.Temporal.TaskQueue == "" {
		c.Temporal.TaskQueue = "feedback-pipeline"
	}
}

func (c *PipelineConfig) loadEnv() {
	if v := os.Getenv(EnvPipelineEngine); v != "" {
		c.Engine = v
	}
	if v := os.Getenv(EnvPipelineThreshold); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.Threshold = f
		}
	}
	if v := os.Getenv(EnvPipelineStalenessWindow); v != "" {
		c.StalenessWindow = v
	}
	if v := os.Getenv(EnvPipelineStepTimeout); v != "" {
		c.StepTimeout = v
	}
	if v := os.Getenv(EnvPipelineMaxConcurrentRuns); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.MaxConcurrentRuns = n
		}
	}
	if v := os.Getenv(EnvPipelineMaxAttempts); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Retry.MaxAttempts = n
		}
	}
	if v := os.Getenv(EnvTemporalHostPort); v != "" {
		c.Temporal.HostPort = v
	}
	if v := os.Getenv(EnvTemporalNamespace); v != "" {
		c.Temporal.Namespace = v
	}
	if v := os.Getenv(EnvTemporalTaskQueue); v != "" {
		c.Temporal.TaskQueue = v
	}
}

func (c *PipelineConfig) validate() error {
	switch c.Engine {
	case PipelineEngineLocal, PipelineEngineTemporal:
	default:
		return fmt.Errorf("unknown engine %q (want %s or %s)", c.Engine, PipelineEngineLocal, PipelineEngineTemporal)
	}
	if c.Threshold <= 0 || c.Threshold > 1 {
		return fmt.Errorf("threshold must be in (0, 1]")
	}
	if c.InitialWeight < 1 {
		return fmt.Errorf("initial_weight must be positive")
	}
	if c.WeightDelta < 1 {
		return fmt.Errorf("weight_delta must be positive")
	}
	if c.MaxConcurrentRuns < 1 {
		return fmt.Errorf("max_concurrent_runs must be positive")
	}
	if c.Retry.MaxAttempts < 1 {
		return fmt.Errorf("retry max_attempts must be positive")
	}
	for name, v := range map[string]string{
		"staleness_window":       c.StalenessWindow,
		"step_timeout":           c.StepTimeout,
		"retry initial_interval": c.Retry.InitialInterval,
		"retry max_interval":     c.Retry.MaxInterval,
	} {
		if _, err := time.ParseDuration(v); err != nil {
			return fmt.Errorf("invalid %s: %w", name, err)
		}
	}
	return nil
}
