package config

import (
	"fmt"
	"os"
	"strconv"
)

const (
	IndexBackendChromem = "chromem"
	IndexBackendQdrant  = "qdrant"

	EnvIndexBackend           = "FEEDBACK_INDEX_BACKEND"
	EnvIndexLimit             = "FEEDBACK_INDEX_LIMIT"
	EnvIndexChromemPath       = "FEEDBACK_INDEX_CHROMEM_PATH"
	EnvIndexQdrantHost        = "FEEDBACK_INDEX_QDRANT_HOST"
	EnvIndexQdrantPort        = "FEEDBACK_INDEX_QDRANT_PORT"
	EnvIndexQdrantAPIKey      = "FEEDBACK_INDEX_QDRANT_API_KEY"
	EnvIndexQdrantVectorSize  = "FEEDBACK_INDEX_QDRANT_VECTOR_SIZE"
	EnvIndexQdrantUseTLS      = "FEEDBACK_INDEX_QDRANT_USE_TLS"
	defaultIndexCollection    = "claims"
	defaultQdrantVectorLength = 1536
)

// IndexConfig selects and configures the semantic similarity backend.
type IndexConfig struct {
	Backend string        `toml:"backend"`
	Limit   int           `toml:"limit"`
	Chromem ChromemConfig `toml:"chromem"`
	Qdrant  QdrantConfig  `toml:"qdrant"`
}

// ChromemConfig configures the embedded chromem-go index. An empty Path keeps
// the index in memory only.
type ChromemConfig struct {
	Path       string `toml:"path"`
	Compress   bool   `toml:"compress"`
	Collection string `toml:"collection"`
}

// QdrantConfig configures a remote Qdrant collection reached over gRPC.
type QdrantConfig struct {
	Host       string `toml:"host"`
	Port       int    `toml:"port"`
	APIKey     string `toml:"api_key"`
	UseTLS     bool   `toml:"use_tls"`
	Collection string `toml:"collection"`
	VectorSize int    `toml:"vector_size"`
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *IndexConfig) Finalize() error {
	c.loadDefaults()
	c.loadEnv()
	return c.validate()
}

// Merge overwrites non-zero fields from overlay.
func (c *IndexConfig) Merge(overlay *IndexConfig) {
	if overlay.Backend != "" {
		c.Backend = overlay.Backend
	}
	if overlay.Limit != 0 {
		c.Limit = overlay.Limit
	}

	if overlay.Chromem.Path != "" {
		c.Chromem.Path = overlay.Chromem.Path
	}
	if overlay.Chromem.Compress {
		c.Chromem.Compress = true
	}
	if overlay.Chromem.Collection != "" {
		c.Chromem.Collection = overlay.Chromem.Collection
	}

	if overlay.Qdrant.Host != "" {
		c.Qdrant.Host = overlay.Qdrant.Host
	}
	if overlay.Qdrant.Port != 0 {
		c.Qdrant.Port = overlay.Qdrant.Port
	}
	if overlay.Qdrant.APIKey != "" {
		c.Qdrant.APIKey = overlay.Qdrant.APIKey
	}
	if overlay.Qdrant.UseTLS {
		c.Qdrant.UseTLS = true
	}
	if overlay.Qdrant.Collection != "" {
		c.Qdrant.Collection = overlay.Qdrant.Collection
	}
	if overlay.Qdrant.VectorSize != 0 {
		c.Qdrant.VectorSize = overlay.Qdrant.VectorSize
	}
}

func (c *IndexConfig) loadDefaults() {
	if c.Backend == "" {
		c.Backend = IndexBackendChromem
	}
	if c.Limit == 0 {
		c.Limit = 3
	}
	if c.Chromem.Collection == "" {
		c.Chromem.Collection = defaultIndexCollection
	}
	if c.Qdrant.Host == "" {
		c.Qdrant.Host = "localhost"
	}
	if c.Qdrant.Port == 0 {
		c.Qdrant.Port = 6334
	}
	if c.Qdrant.Collection == "" {
		c.Qdrant.Collection = defaultIndexCollection
	}
	if c.Qdrant.VectorSize == 0 {
		c.Qdrant.VectorSize = defaultQdrantVectorLength
	}
}

func (c *IndexConfig) loadEnv() {
	if v := os.Getenv(EnvIndexBackend); v != "" {
		c.Backend = v
	}
	if v := os.Getenv(EnvIndexLimit); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Limit = n
		}
	}
	if v := os.Getenv(EnvIndexChromemPath); v != "" {
		c.Chromem.Path = v
	}
	if v := os.Getenv(EnvIndexQdrantHost); v != "" {
		c.Qdrant.Host = v
	}
	if v := os.Getenv(EnvIndexQdrantPort); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Qdrant.Port = n
		}
	}
	if v := os.Getenv(EnvIndexQdrantAPIKey); v != "" {
		c.Qdrant.APIKey = v
	}
	if v := os.Getenv(EnvIndexQdrantVectorSize); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Qdrant.VectorSize = n
		}
	}
	if v := os.Getenv(EnvIndexQdrantUseTLS); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Qdrant.UseTLS = b
		}
	}
}

func (c *IndexConfig) validate() error {
	switch c.Backend {
	case IndexBackendChromem, IndexBackendQdrant:
	default:
		return fmt.Errorf("unknown backend %q (want %s or %s)", c.Backend, IndexBackendChromem, IndexBackendQdrant)
	}
	if c.Limit < 1 {
		return fmt.Errorf("limit must be positive")
	}
	if c.Qdrant.Port < 1 || c.Qdrant.Port > 65535 {
		return fmt.Errorf("invalid qdrant port: %d", c.Qdrant.Port)
	}
	if c.Qdrant.VectorSize < 1 {
		return fmt.Errorf("qdrant vector_size must be positive")
	}
	return nil
}
