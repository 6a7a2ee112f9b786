// Package config loads the settings of the researchgraph command.
//
// Values are layered: built-in defaults, then an optional YAML file, then
// environment variables prefixed with RESEARCHGRAPH_ (a .env file in the
// working directory is read first). For example RESEARCHGRAPH_LLM_MODEL
// overrides llm.model.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	"github.com/smallnest/researchgraph/log"
	"github.com/smallnest/researchgraph/research"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "researchgraph"

// ErrInvalid is wrapped by every validation error.
var ErrInvalid = errors.New("invalid config")

// Provider names accepted in llm.provider.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderLangChain = "langchain"
)

// Scorer kinds accepted in scorer.kind.
const (
	ScorerKeyword   = "keyword"
	ScorerEmbedding = "embedding"
	ScorerHTTP      = "http"
)

// Backend names accepted in search.backend and checkpoints.backend.
const (
	BackendNone     = "none"
	BackendMemory   = "memory"
	BackendFile     = "file"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
)

// Config is the complete command configuration.
type Config struct {
	Pipeline    Pipeline    `yaml:"pipeline" envconfig:"pipeline"`
	LLM         LLM         `yaml:"llm" envconfig:"llm"`
	Scorer      Scorer      `yaml:"scorer" envconfig:"scorer"`
	Search      Search      `yaml:"search" envconfig:"search"`
	Cache       Cache       `yaml:"cache" envconfig:"cache"`
	Checkpoints Checkpoints `yaml:"checkpoints" envconfig:"checkpoints"`
	Journal     Journal     `yaml:"journal" envconfig:"journal"`
	Tracing     Tracing     `yaml:"tracing" envconfig:"tracing"`
	Log         Log         `yaml:"log" envconfig:"log"`
}

// Pipeline holds the research pipeline knobs.
type Pipeline struct {
	RetrieveTopK int `yaml:"retrieve_top_k" envconfig:"retrieve_top_k"`
	RerankTopK   int `yaml:"rerank_top_k" envconfig:"rerank_top_k"`
}

// LLM selects the completion model.
type LLM struct {
	Provider    string  `yaml:"provider" envconfig:"provider"`
	Model       string  `yaml:"model" envconfig:"model"`
	APIKey      string  `yaml:"api_key" envconfig:"api_key"`
	BaseURL     string  `yaml:"base_url" envconfig:"base_url"`
	Temperature float64 `yaml:"temperature" envconfig:"temperature"`
	MaxTokens   int     `yaml:"max_tokens" envconfig:"max_tokens"`
}

// Scorer selects how candidates are scored during reranking.
type Scorer struct {
	Kind           string `yaml:"kind" envconfig:"kind"`
	URL            string `yaml:"url" envconfig:"url"`
	APIKey         string `yaml:"api_key" envconfig:"api_key"`
	EmbeddingModel string `yaml:"embedding_model" envconfig:"embedding_model"`
}

// Search selects the document backend.
type Search struct {
	Backend      string   `yaml:"backend" envconfig:"backend"`
	Corpus       string   `yaml:"corpus" envconfig:"corpus"`
	Extensions   []string `yaml:"extensions" envconfig:"extensions"`
	ChunkSize    int      `yaml:"chunk_size" envconfig:"chunk_size"`
	ChunkOverlap int      `yaml:"chunk_overlap" envconfig:"chunk_overlap"`
	PostgresURL  string   `yaml:"postgres_url" envconfig:"postgres_url"`
	Table        string   `yaml:"table" envconfig:"table"`
}

// Cache enables the Redis completion cache when RedisAddr is set.
type Cache struct {
	RedisAddr string        `yaml:"redis_addr" envconfig:"redis_addr"`
	TTL       time.Duration `yaml:"ttl" envconfig:"ttl"`
}

// Enabled reports whether completions are cached.
func (c Cache) Enabled() bool { return c.RedisAddr != "" }

// Checkpoints selects where stage snapshots are kept.
type Checkpoints struct {
	Backend string        `yaml:"backend" envconfig:"backend"`
	Path    string        `yaml:"path" envconfig:"path"`
	URL     string        `yaml:"url" envconfig:"url"`
	TTL     time.Duration `yaml:"ttl" envconfig:"ttl"`
}

// Journal enables the SQLite activity journal when Path is set.
type Journal struct {
	Path string `yaml:"path" envconfig:"path"`
}

// Tracing enables OpenTelemetry span export.
type Tracing struct {
	Enabled bool   `yaml:"enabled" envconfig:"enabled"`
	Pretty  bool   `yaml:"pretty" envconfig:"pretty"`
	Output  string `yaml:"output" envconfig:"output"`
}

// Log configures the process logger.
type Log struct {
	Level string `yaml:"level" envconfig:"level"`
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		Pipeline: Pipeline{
			RetrieveTopK: research.DefaultRetrieveTopK,
			RerankTopK:   research.DefaultRerankTopK,
		},
		LLM: LLM{
			Provider:    ProviderOpenAI,
			Temperature: 0.1,
		},
		Scorer: Scorer{Kind: ScorerKeyword},
		Search: Search{
			Backend:      BackendMemory,
			Extensions:   []string{".md", ".txt"},
			ChunkSize:    1000,
			ChunkOverlap: 100,
		},
		Cache:       Cache{TTL: 24 * time.Hour},
		Checkpoints: Checkpoints{Backend: BackendNone},
		Log:         Log{Level: "info"},
	}
}

// Load builds the configuration from defaults, the YAML file at path (when
// not empty) and the environment.
func Load(path string) (Config, error) {
	_ = godotenv.Load()

	cfg := Default()
	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return Config{}, fmt.Errorf("open config: %w", err)
		}
		defer f.Close()
		if err := Decode(f, &cfg); err != nil {
			return Config{}, err
		}
	}

	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return Config{}, fmt.Errorf("read environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Decode overlays YAML from r onto cfg. Unknown keys are rejected.
func Decode(r io.Reader, cfg *Config) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}
	return nil
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalid, fmt.Sprintf(format, args...))
}

// Validate reports the first inconsistent setting.
func (c Config) Validate() error {
	if c.Pipeline.RetrieveTopK <= 0 {
		return invalid("pipeline.retrieve_top_k must be positive, got %d", c.Pipeline.RetrieveTopK)
	}
	if c.Pipeline.RerankTopK <= 0 {
		return invalid("pipeline.rerank_top_k must be positive, got %d", c.Pipeline.RerankTopK)
	}
	if !slices.Contains([]string{ProviderOpenAI, ProviderAnthropic, ProviderLangChain}, c.LLM.Provider) {
		return invalid("unknown llm.provider %q", c.LLM.Provider)
	}

	switch c.Scorer.Kind {
	case ScorerKeyword, ScorerEmbedding:
	case ScorerHTTP:
		if c.Scorer.URL == "" {
			return invalid("scorer.url is required for scorer.kind http")
		}
	default:
		return invalid("unknown scorer.kind %q", c.Scorer.Kind)
	}

	switch c.Search.Backend {
	case BackendMemory:
		if c.Search.ChunkSize <= 0 || c.Search.ChunkOverlap < 0 || c.Search.ChunkOverlap >= c.Search.ChunkSize {
			return invalid("search chunking needs 0 <= chunk_overlap < chunk_size")
		}
	case BackendPostgres:
		if c.Search.PostgresURL == "" {
			return invalid("search.postgres_url is required for search.backend postgres")
		}
	default:
		return invalid("unknown search.backend %q", c.Search.Backend)
	}

	switch c.Checkpoints.Backend {
	case BackendNone, BackendMemory:
	case BackendFile, BackendSQLite:
		if c.Checkpoints.Path == "" {
			return invalid("checkpoints.path is required for checkpoints.backend %s", c.Checkpoints.Backend)
		}
	case BackendPostgres, BackendRedis:
		if c.Checkpoints.URL == "" {
			return invalid("checkpoints.url is required for checkpoints.backend %s", c.Checkpoints.Backend)
		}
	default:
		return invalid("unknown checkpoints.backend %q", c.Checkpoints.Backend)
	}

	if _, err := log.ParseLevel(c.Log.Level); err != nil {
		return invalid("log.level: %v", err)
	}
	return nil
}
