package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sahithi-mandalapu/feedback-market/internal/config"
)

const baseConfig = `
shutdown_timeout = "20s"

[server]
port = 8080

[database]
name = "market"
user = "market"

[api.cors]
enabled = true
origins = ["*"]

[api.pagination]
default_page_size = 25
max_page_size = 50

[index]
backend = "chromem"
limit = 5

[pipeline]
threshold = 0.8
staleness_window = "240h"
`

const overlayConfig = `
[server]
port = 9090

[index]
backend = "qdrant"

[index.qdrant]
host = "qdrant.internal"

[pipeline]
engine = "temporal"

[pipeline.temporal]
task_queue = "feedback-prod"
`

func writeConfigs(t *testing.T, files map[string]string) {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	t.Chdir(dir)
}

func TestLoadDefaultsWithoutFiles(t *testing.T) {
	writeConfigs(t, nil)

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}

	tests := []struct {
		name string
		got  any
		want any
	}{
		{"server port", cfg.Server.Port, 8787},
		{"api base path", cfg.API.BasePath, "/api"},
		{"api body limit", cfg.API.MaxBodySizeBytes(), int64(1 << 20)},
		{"llm model", cfg.LLM.Model, "gpt-4o-mini"},
		{"llm timeout", cfg.LLM.TimeoutDuration(), 30 * time.Second},
		{"index backend", cfg.Index.Backend, config.IndexBackendChromem},
		{"index limit", cfg.Index.Limit, 3},
		{"pipeline engine", cfg.Pipeline.Engine, config.PipelineEngineLocal},
		{"threshold", cfg.Pipeline.Threshold, 0.75},
		{"initial weight", cfg.Pipeline.InitialWeight, 50},
		{"weight delta", cfg.Pipeline.WeightDelta, 5},
		{"staleness window", cfg.Pipeline.StalenessWindowDuration(), 14 * 24 * time.Hour},
		{"retry attempts", cfg.Pipeline.Retry.MaxAttempts, 4},
		{"task queue", cfg.Pipeline.Temporal.TaskQueue, "feedback-pipeline"},
		{"env", cfg.Env(), "local"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %v, want %v", tt.got, tt.want)
			}
		})
	}
}

func TestLoadBaseFile(t *testing.T) {
	writeConfigs(t, map[string]string{config.BaseConfigFile: baseConfig})

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("server port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.ShutdownTimeoutDuration() != 20*time.Second {
		t.Errorf("shutdown timeout = %v, want 20s", cfg.ShutdownTimeoutDuration())
	}
	if cfg.Database.Name != "market" {
		t.Errorf("database name = %q, want market", cfg.Database.Name)
	}
	if cfg.API.Pagination.DefaultPageSize != 25 {
		t.Errorf("page size = %d, want 25", cfg.API.Pagination.DefaultPageSize)
	}
	if len(cfg.API.CORS.Origins) != 1 || cfg.API.CORS.Origins[0] != "*" {
		t.Errorf("cors origins = %v, want [*]", cfg.API.CORS.Origins)
	}
	if cfg.Index.Limit != 5 {
		t.Errorf("index limit = %d, want 5", cfg.Index.Limit)
	}
	if cfg.Pipeline.Threshold != 0.8 {
		t.Errorf("threshold = %v, want 0.8", cfg.Pipeline.Threshold)
	}
}

func TestLoadOverlay(t *testing.T) {
	writeConfigs(t, map[string]string{
		config.BaseConfigFile: baseConfig,
		"config.prod.toml":    overlayConfig,
	})
	t.Setenv(config.EnvFeedbackEnv, "prod")

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("server port = %d, want 9090 from overlay", cfg.Server.Port)
	}
	if cfg.Database.Name != "market" {
		t.Errorf("database name = %q, want base value kept", cfg.Database.Name)
	}
	if cfg.Index.Backend != config.IndexBackendQdrant || cfg.Index.Qdrant.Host != "qdrant.internal" {
		t.Errorf("index = %+v, want qdrant at qdrant.internal", cfg.Index)
	}
	if cfg.Index.Limit != 5 {
		t.Errorf("index limit = %d, want base value kept", cfg.Index.Limit)
	}
	if cfg.Pipeline.Engine != config.PipelineEngineTemporal {
		t.Errorf("engine = %q, want temporal", cfg.Pipeline.Engine)
	}
	if cfg.Pipeline.Temporal.TaskQueue != "feedback-prod" {
		t.Errorf("task queue = %q, want feedback-prod", cfg.Pipeline.Temporal.TaskQueue)
	}
	if cfg.Env() != "prod" {
		t.Errorf("env = %q, want prod", cfg.Env())
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	writeConfigs(t, map[string]string{config.BaseConfigFile: baseConfig})

	t.Setenv(config.EnvServerPort, "7000")
	t.Setenv("FEEDBACK_DB_URL", "postgres://feedback@db/market")
	t.Setenv(config.EnvLLMAPIKey, "sk-test")
	t.Setenv(config.EnvLLMRateLimit, "2.5")
	t.Setenv(config.EnvIndexLimit, "7")
	t.Setenv(config.EnvPipelineThreshold, "0.9")
	t.Setenv(config.EnvPipelineMaxConcurrentRuns, "4")
	t.Setenv("FEEDBACK_PAGINATION_MAX_PAGE_SIZE", "80")

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}

	if cfg.Server.Port != 7000 {
		t.Errorf("server port = %d, want 7000", cfg.Server.Port)
	}
	if cfg.Database.Dsn() != "postgres://feedback@db/market" {
		t.Errorf("dsn = %q, want env URL", cfg.Database.Dsn())
	}
	if cfg.LLM.APIKey != "sk-test" || cfg.LLM.RateLimit != 2.5 {
		t.Errorf("llm = %+v, want env overrides", cfg.LLM)
	}
	if cfg.Index.Limit != 7 {
		t.Errorf("index limit = %d, want 7", cfg.Index.Limit)
	}
	if cfg.Pipeline.Threshold != 0.9 || cfg.Pipeline.MaxConcurrentRuns != 4 {
		t.Errorf("pipeline = %+v, want env overrides", cfg.Pipeline)
	}
	if cfg.API.Pagination.MaxPageSize != 80 {
		t.Errorf("max page size = %d, want 80", cfg.API.Pagination.MaxPageSize)
	}
}

func TestLoadValidationErrors(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{"bad shutdown timeout", map[string]string{config.EnvFeedbackShutdownTimeout: "never"}, "shutdown_timeout"},
		{"bad port", map[string]string{config.EnvServerPort: "70000"}, "server"},
		{"non-numeric port", map[string]string{config.EnvServerPort: "http"}, config.EnvServerPort},
		{"zero idle timeout", map[string]string{config.EnvServerIdleTimeout: "0s"}, "idle_timeout"},
		{"unknown index backend", map[string]string{config.EnvIndexBackend: "faiss"}, "index"},
		{"unknown engine", map[string]string{config.EnvPipelineEngine: "cron"}, "pipeline"},
		{"threshold above one", map[string]string{config.EnvPipelineThreshold: "1.5"}, "threshold"},
		{"bad staleness window", map[string]string{config.EnvPipelineStalenessWindow: "two weeks"}, "staleness_window"},
		{"bad llm timeout", map[string]string{config.EnvLLMTimeout: "soon"}, "llm"},
		{"bad body size", map[string]string{config.EnvAPIMaxBodySize: "lots"}, "max_body_size"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			writeConfigs(t, nil)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := config.Load()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Load error = %v, want mention of %q", err, tt.want)
			}
		})
	}
}

func TestLoadMalformedFile(t *testing.T) {
	writeConfigs(t, map[string]string{config.BaseConfigFile: "[server\nport = "})

	if _, err := config.Load(); err == nil {
		t.Error("expected parse error for malformed config.toml")
	}
}

func TestServerTimeouts(t *testing.T) {
	writeConfigs(t, map[string]string{
		config.BaseConfigFile: strings.Replace(baseConfig, "port = 8080", "port = 8080\nread_header_timeout = \"5s\"", 1),
		"config.prod.toml":    "[server]\nidle_timeout = \"90s\"\n",
	})
	t.Setenv(config.EnvFeedbackEnv, "prod")
	t.Setenv(config.EnvServerWriteTimeout, "45s")

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}

	srv := cfg.Server
	tests := []struct {
		name string
		got  time.Duration
		want time.Duration
	}{
		{"read default", srv.ReadTimeoutDuration(), 30 * time.Second},
		{"read header from base", srv.ReadHeaderTimeoutDuration(), 5 * time.Second},
		{"write from env", srv.WriteTimeoutDuration(), 45 * time.Second},
		{"idle from overlay", srv.IdleTimeoutDuration(), 90 * time.Second},
		{"shutdown default", srv.ShutdownTimeoutDuration(), 30 * time.Second},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s = %v, want %v", tt.name, tt.got, tt.want)
		}
	}
}
