package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

const (
	EnvServerHost              = "FEEDBACK_SERVER_HOST"
	EnvServerPort              = "FEEDBACK_SERVER_PORT"
	EnvServerReadTimeout       = "FEEDBACK_SERVER_READ_TIMEOUT"
	EnvServerReadHeaderTimeout = "FEEDBACK_SERVER_READ_HEADER_TIMEOUT"
	EnvServerWriteTimeout      = "FEEDBACK_SERVER_WRITE_TIMEOUT"
	EnvServerIdleTimeout       = "FEEDBACK_SERVER_IDLE_TIMEOUT"
	EnvServerShutdownTimeout   = "FEEDBACK_SERVER_SHUTDOWN_TIMEOUT"
)

// ServerConfig holds HTTP listener parameters. Submissions return 202 before
// any model call, so the write timeout only bounds response encoding.
type ServerConfig struct {
	Host              string `toml:"host"`
	Port              int    `toml:"port"`
	ReadTimeout       string `toml:"read_timeout"`
	ReadHeaderTimeout string `toml:"read_header_timeout"`
	WriteTimeout      string `toml:"write_timeout"`
	IdleTimeout       string `toml:"idle_timeout"`
	ShutdownTimeout   string `toml:"shutdown_timeout"`
}

type durationField struct {
	name  string
	env   string
	value *string
	def   string
}

func (c *ServerConfig) durations() []durationField {
	return []durationField{
		{"read_timeout", EnvServerReadTimeout, &c.ReadTimeout, "30s"},
		{"read_header_timeout", EnvServerReadHeaderTimeout, &c.ReadHeaderTimeout, "10s"},
		{"write_timeout", EnvServerWriteTimeout, &c.WriteTimeout, "1m"},
		{"idle_timeout", EnvServerIdleTimeout, &c.IdleTimeout, "2m"},
		{"shutdown_timeout", EnvServerShutdownTimeout, &c.ShutdownTimeout, "30s"},
	}
}

// Addr returns the host:port listen address.
func (c *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func (c *ServerConfig) ReadTimeoutDuration() time.Duration       { return finalDuration(c.ReadTimeout) }
func (c *ServerConfig) ReadHeaderTimeoutDuration() time.Duration { return finalDuration(c.ReadHeaderTimeout) }
func (c *ServerConfig) WriteTimeoutDuration() time.Duration      { return finalDuration(c.WriteTimeout) }
func (c *ServerConfig) IdleTimeoutDuration() time.Duration       { return finalDuration(c.IdleTimeout) }
func (c *ServerConfig) ShutdownTimeoutDuration() time.Duration   { return finalDuration(c.ShutdownTimeout) }

// Finalize applies defaults, environment variable overrides, and validation.
func (c *ServerConfig) Finalize() error {
	if c.Host == "" {
		c.Host = "0.0.0.0"
	}
	if c.Port == 0 {
		c.Port = 8787
	}

	if v := os.Getenv(EnvServerHost); v != "" {
		c.Host = v
	}
	if v := os.Getenv(EnvServerPort); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", EnvServerPort, err)
		}
		c.Port = port
	}

	for _, f := range c.durations() {
		if *f.value == "" {
			*f.value = f.def
		}
		if v := os.Getenv(f.env); v != "" {
			*f.value = v
		}
		if d, err := time.ParseDuration(*f.value); err != nil || d <= 0 {
			return fmt.Errorf("invalid %s: %q", f.name, *f.value)
		}
	}

	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Port)
	}
	return nil
}

// Merge overwrites non-zero fields from overlay.
func (c *ServerConfig) Merge(overlay *ServerConfig) {
	if overlay.Host != "" {
		c.Host = overlay.Host
	}
	if overlay.Port != 0 {
		c.Port = overlay.Port
	}
	theirs := overlay.durations()
	for i, f := range c.durations() {
		if v := *theirs[i].value; v != "" {
			*f.value = v
		}
	}
}

// finalDuration parses a value Finalize has already validated.
func finalDuration(s string) time.Duration {
	d, _ := time.ParseDuration(s)
	return d
}
