package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// AppInfo holds basic information about the running application.
type AppInfo struct {
	Name        string `yaml:"name"`        // Application name, attached to every log entry.
	Version     string `yaml:"version"`     // Application version.
	Environment string `yaml:"environment"` // Runtime environment (e.g. "development", "production").
}

// LoggerConfig defines the logger settings.
type LoggerConfig struct {
	Level string `yaml:"level"` // Log level (e.g. "info", "debug", "warn", "error").
}

// ServerConfig defines the HTTP API server settings.
type ServerConfig struct {
	Address         string `yaml:"address"`         // Listen address (e.g. ":8080").
	ShutdownTimeout string `yaml:"shutdownTimeout"` // Graceful shutdown timeout (e.g. "10s").
}

// GeminiConfig holds the settings for a Google Gemini model.
type GeminiConfig struct {
	APIKey string `yaml:"apiKey"` // Gemini API key.
	Model  string `yaml:"model"`  // Gemini model name.
}

// OpenAIConfig holds the settings for an OpenAI model.
type OpenAIConfig struct {
	APIKey  string `yaml:"apiKey"`  // OpenAI API key.
	BaseURL string `yaml:"baseURL"` // Optional override for OpenAI-compatible endpoints.
	Model   string `yaml:"model"`   // Model name.
}

// OllamaConfig holds the settings for a local Ollama model.
type OllamaConfig struct {
	Host  string `yaml:"host"`  // Ollama server address (e.g. "http://localhost:11434").
	Model string `yaml:"model"` // Model name.
}

// LLMConfig selects and configures the generation provider.
type LLMConfig struct {
	Provider string       `yaml:"provider"` // Generation provider ("gemini", "openai", "ollama").
	Gemini   GeminiConfig `yaml:"gemini"`
	OpenAI   OpenAIConfig `yaml:"openai"`
	Ollama   OllamaConfig `yaml:"ollama"`
}

// EmbeddingConfig selects and configures the embedding provider.
type EmbeddingConfig struct {
	Provider string       `yaml:"provider"` // Embedding provider ("gemini", "openai", "ollama").
	Gemini   GeminiConfig `yaml:"gemini"`
	OpenAI   OpenAIConfig `yaml:"openai"`
	Ollama   OllamaConfig `yaml:"ollama"`
}

// ChunkingConfig defines how documents are split into chunks.
type ChunkingConfig struct {
	WindowTokens  int `yaml:"windowTokens"`  // Tokens per chunk window.
	OverlapTokens int `yaml:"overlapTokens"` // Tokens shared between consecutive windows.
}

// RetrievalConfig defines the retrieval engine parameters.
type RetrievalConfig struct {
	TopK             int     `yaml:"topK"`             // Number of chunks requested per query.
	OverfetchFactor  int     `yaml:"overfetchFactor"`  // Candidates fetched = TopK * OverfetchFactor.
	ScoreThreshold   float64 `yaml:"scoreThreshold"`   // Minimum cosine score for a candidate to survive.
	MaxContextTokens int     `yaml:"maxContextTokens"` // Token budget for the packed context.
}

// IndexConfig defines where the embedding index snapshot is persisted.
type IndexConfig struct {
	Path string `yaml:"path"` // SQLite database file holding the snapshot.
}

// MinIOConfig defines the connection settings for an S3-compatible
// object store used as a document source.
type MinIOConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Endpoint  string `yaml:"endpoint"`  // Object store endpoint.
	AccessKey string `yaml:"accessKey"` // Access key.
	SecretKey string `yaml:"secretKey"` // Secret key.
	Bucket    string `yaml:"bucket"`    // Bucket holding policy documents.
	Secure    bool   `yaml:"secure"`    // Use HTTPS.
}

// RedisConfig defines the connection settings for the optional Redis
// indicator cache backend.
type RedisConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Address  string `yaml:"address"`  // Redis server address (e.g. "localhost:6379").
	Password string `yaml:"password"` // Redis password.
	DB       int    `yaml:"db"`       // Redis database number.
}

// SDMXConfig defines the statistical data endpoint the indicator
// source queries.
type SDMXConfig struct {
	BaseURL  string `yaml:"baseURL"`  // SDMX REST base URL.
	Agency   string `yaml:"agency"`   // Dataflow agency (e.g. "UNSD").
	Dataflow string `yaml:"dataflow"` // Dataflow identifier (e.g. "DF_SDG_GLH").
	Version  string `yaml:"version"`  // Dataflow version (e.g. "1.21").
}

// IndicatorConfig defines the indicator client settings.
type IndicatorConfig struct {
	CatalogPath   string      `yaml:"catalogPath"`   // YAML file mapping table codes to series.
	AreasPath     string      `yaml:"areasPath"`     // YAML file listing known reference areas.
	SDMX          SDMXConfig  `yaml:"sdmx"`
	CacheTTL      string      `yaml:"cacheTTL"`      // How long fetched series stay cached (e.g. "6h").
	RetryAttempts int         `yaml:"retryAttempts"` // Total fetch attempts before giving up.
	RetryBackoff  string      `yaml:"retryBackoff"`  // Initial backoff between attempts (e.g. "500ms").
	Redis         RedisConfig `yaml:"redis"`
}

// TokenBucketConfig defines the token bucket algorithm settings.
type TokenBucketConfig struct {
	Rate     float64 `yaml:"rate"` // Tokens generated per second.
	Capacity int     `yaml:"capacity"`
}

// RateLimiterConfig defines the rate limiter settings.
type RateLimiterConfig struct {
	Enabled     bool              `yaml:"enabled"`
	TokenBucket TokenBucketConfig `yaml:"tokenBucket"`
}

// CircuitBreakerConfig defines the circuit breaker settings.
type CircuitBreakerConfig struct {
	Enabled          bool   `yaml:"enabled"`
	FailureThreshold uint32 `yaml:"failureThreshold"`
	SuccessThreshold uint32 `yaml:"successThreshold"`
	Timeout          string `yaml:"timeout"` // e.g. "30s"
}

// MiddlewareConfig groups the resilience settings shared by the API
// layer and the outbound indicator path.
type MiddlewareConfig struct {
	RateLimiter    RateLimiterConfig    `yaml:"rateLimiter"`
	CircuitBreaker CircuitBreakerConfig `yaml:"circuitBreaker"`
}

// AppConfig is the root structure of the YAML configuration file.
type AppConfig struct {
	App        AppInfo          `yaml:"app"`
	Server     ServerConfig     `yaml:"server"`
	Logger     LoggerConfig     `yaml:"logger"`
	LLM        LLMConfig        `yaml:"llm"`
	Embedding  EmbeddingConfig  `yaml:"embedding"`
	Chunking   ChunkingConfig   `yaml:"chunking"`
	Retrieval  RetrievalConfig  `yaml:"retrieval"`
	Index      IndexConfig      `yaml:"index"`
	MinIO      MinIOConfig      `yaml:"minio"`
	Indicator  IndicatorConfig  `yaml:"indicator"`
	Middleware MiddlewareConfig `yaml:"middleware"`
}

// LoadConfig loads and parses the YAML configuration file at path,
// applies defaults for unset optional fields and validates the result.
func LoadConfig(path string) (*AppConfig, error) {
	yamlFile, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read config file '%s': %w", path, err)
	}
	var cfg AppConfig
	if err := yaml.Unmarshal(yamlFile, &cfg); err != nil {
		return nil, fmt.Errorf("cannot parse config file: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *AppConfig) applyDefaults() {
	if c.Server.Address == "" {
		c.Server.Address = ":8080"
	}
	if c.Server.ShutdownTimeout == "" {
		c.Server.ShutdownTimeout = "10s"
	}
	if c.Logger.Level == "" {
		c.Logger.Level = "info"
	}
	if c.Chunking.WindowTokens == 0 {
		c.Chunking.WindowTokens = 512
	}
	if c.Chunking.OverlapTokens == 0 {
		c.Chunking.OverlapTokens = 64
	}
	if c.Retrieval.TopK == 0 {
		c.Retrieval.TopK = 6
	}
	if c.Retrieval.OverfetchFactor == 0 {
		c.Retrieval.OverfetchFactor = 4
	}
	if c.Retrieval.ScoreThreshold == 0 {
		c.Retrieval.ScoreThreshold = 0.25
	}
	if c.Retrieval.MaxContextTokens == 0 {
		c.Retrieval.MaxContextTokens = 3000
	}
	if c.Index.Path == "" {
		c.Index.Path = "data/index.db"
	}
	if c.Indicator.CacheTTL == "" {
		c.Indicator.CacheTTL = "6h"
	}
	if c.Indicator.RetryAttempts == 0 {
		c.Indicator.RetryAttempts = 3
	}
	if c.Indicator.RetryBackoff == "" {
		c.Indicator.RetryBackoff = "500ms"
	}
}

// Validate rejects configurations that would misbehave at runtime
// rather than failing on first use.
func (c *AppConfig) Validate() error {
	if c.Chunking.OverlapTokens >= c.Chunking.WindowTokens {
		return fmt.Errorf("chunking: overlapTokens (%d) must be smaller than windowTokens (%d)",
			c.Chunking.OverlapTokens, c.Chunking.WindowTokens)
	}
	if c.Retrieval.ScoreThreshold < -1 || c.Retrieval.ScoreThreshold > 1 {
		return fmt.Errorf("retrieval: scoreThreshold %v outside [-1, 1]", c.Retrieval.ScoreThreshold)
	}
	if c.Retrieval.OverfetchFactor < 1 {
		return fmt.Errorf("retrieval: overfetchFactor must be at least 1")
	}
	if c.Indicator.RetryAttempts < 1 {
		return fmt.Errorf("indicator: retryAttempts must be at least 1")
	}
	for _, d := range []struct {
		name, value string
	}{
		{"server.shutdownTimeout", c.Server.ShutdownTimeout},
		{"indicator.cacheTTL", c.Indicator.CacheTTL},
		{"indicator.retryBackoff", c.Indicator.RetryBackoff},
	} {
		if _, err := time.ParseDuration(d.value); err != nil {
			return fmt.Errorf("%s: %w", d.name, err)
		}
	}
	if c.Middleware.CircuitBreaker.Enabled && c.Middleware.CircuitBreaker.Timeout != "" {
		if _, err := time.ParseDuration(c.Middleware.CircuitBreaker.Timeout); err != nil {
			return fmt.Errorf("middleware.circuitBreaker.timeout: %w", err)
		}
	}
	return nil
}

// Duration parses a duration field that Validate has already checked.
// Unparseable input falls back to the given default so callers do not
// have to re-handle the error path.
func Duration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}
	return d
}
