package config

import (
	"slices"
	"strings"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

const (
	ContextBackendHTTP   = "http"
	ContextBackendQdrant = "qdrant"

	GeneratorBackendEcho   = "echo"
	GeneratorBackendGemini = "gemini"

	StoreSQLite = "sqlite"
	StoreRedis  = "redis"
	StoreQdrant = "qdrant"
)

// Config holds every runtime setting of the gateway. Each field is bound to a
// flag that also reads from the environment.
type Config struct {
	// Server
	ServerName        string
	ServerVersion     string
	ServerDescription string
	Port              string
	APIPrefix         string
	LogLevel          string

	// Context provider
	ContextProvider   string
	ContextBackend    string
	ContextAPIURL     string
	ContextAPIKey     string
	MaxContextResults int64
	ContextTimeout    time.Duration

	// Generation
	ModelName           string
	ModelVersion        string
	GeneratorBackend    string
	GeminiModel         string
	GeminiFallbackModel string
	EmbeddingModel      string
	EmbeddingDim        int64
	GoogleCloudProject  string
	GoogleCloudLocation string
	GenerationTimeout   time.Duration

	// Rate limiting
	RateLimitRequests      int64
	RateLimitPeriod        int64
	RateLimitMaxClients    int64
	RateLimitSweepInterval time.Duration

	// Persistence
	StoreBackends     []string
	SQLitePath        string
	RedisAddr         string
	RedisStream       string
	QdrantHost        string
	QdrantPort        int64
	QdrantCollection  string
	RecorderWorkers   int64
	RecorderQueueSize int64
}

// Flags returns the flag set bound to cfg.
func Flags(cfg *Config) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "server-name",
			Usage:       "Server display name",
			Value:       "AI Customer Support Bot",
			Sources:     cli.EnvVars("SERVER_NAME"),
			Destination: &cfg.ServerName,
		},
		&cli.StringFlag{
			Name:        "server-version",
			Usage:       "Server version reported by discovery endpoints",
			Value:       "1.0.0",
			Sources:     cli.EnvVars("SERVER_VERSION"),
			Destination: &cfg.ServerVersion,
		},
		&cli.StringFlag{
			Name:        "server-description",
			Usage:       "Server description",
			Value:       "MCP Server for AI-powered customer support",
			Sources:     cli.EnvVars("SERVER_DESCRIPTION"),
			Destination: &cfg.ServerDescription,
		},
		&cli.StringFlag{
			Name:        "port",
			Usage:       "HTTP listen port",
			Value:       "8000",
			Sources:     cli.EnvVars("PORT"),
			Destination: &cfg.Port,
		},
		&cli.StringFlag{
			Name:        "api-prefix",
			Usage:       "Path prefix of the MCP API",
			Value:       "/mcp",
			Sources:     cli.EnvVars("API_PREFIX"),
			Destination: &cfg.APIPrefix,
		},
		&cli.StringFlag{
			Name:        "log-level",
			Usage:       "Log level (debug, info, warn, error)",
			Value:       "info",
			Sources:     cli.EnvVars("LOG_LEVEL"),
			Destination: &cfg.LogLevel,
		},

		&cli.StringFlag{
			Name:        "context-provider",
			Usage:       "Context provider name advertised in responses",
			Value:       "glama-ai",
			Sources:     cli.EnvVars("CONTEXT_PROVIDER"),
			Destination: &cfg.ContextProvider,
		},
		&cli.StringFlag{
			Name:        "context-backend",
			Usage:       "Context provider implementation (http, qdrant)",
			Value:       ContextBackendHTTP,
			Sources:     cli.EnvVars("CONTEXT_BACKEND"),
			Destination: &cfg.ContextBackend,
		},
		&cli.StringFlag{
			Name:        "context-api-url",
			Usage:       "Base URL of the HTTP context provider",
			Value:       "https://api.glama.ai/v1",
			Sources:     cli.EnvVars("CONTEXT_API_URL", "GLAMA_API_URL"),
			Destination: &cfg.ContextAPIURL,
		},
		&cli.StringFlag{
			Name:        "context-api-key",
			Usage:       "Bearer token for the HTTP context provider",
			Sources:     cli.EnvVars("CONTEXT_API_KEY", "GLAMA_API_KEY"),
			Destination: &cfg.ContextAPIKey,
		},
		&cli.IntFlag{
			Name:        "max-context-results",
			Usage:       "Maximum number of context snippets to request",
			Value:       5,
			Sources:     cli.EnvVars("MAX_CONTEXT_RESULTS"),
			Destination: &cfg.MaxContextResults,
		},
		&cli.DurationFlag{
			Name:        "context-timeout",
			Usage:       "Timeout of a single context fetch",
			Value:       10 * time.Second,
			Sources:     cli.EnvVars("CONTEXT_TIMEOUT"),
			Destination: &cfg.ContextTimeout,
		},

		&cli.StringFlag{
			Name:        "model-name",
			Usage:       "Model name advertised in responses",
			Value:       "cursor-ai",
			Sources:     cli.EnvVars("MODEL_NAME"),
			Destination: &cfg.ModelName,
		},
		&cli.StringFlag{
			Name:        "model-version",
			Usage:       "Model version advertised in capabilities",
			Value:       "1.0",
			Sources:     cli.EnvVars("MODEL_VERSION"),
			Destination: &cfg.ModelVersion,
		},
		&cli.StringFlag{
			Name:        "generator-backend",
			Usage:       "Generation backend (echo, gemini)",
			Value:       GeneratorBackendEcho,
			Sources:     cli.EnvVars("GENERATOR_BACKEND"),
			Destination: &cfg.GeneratorBackend,
		},
		&cli.StringFlag{
			Name:        "gemini-model",
			Usage:       "Primary Gemini model",
			Value:       "gemini-2.5-flash",
			Sources:     cli.EnvVars("GEMINI_MODEL"),
			Destination: &cfg.GeminiModel,
		},
		&cli.StringFlag{
			Name:        "gemini-fallback-model",
			Usage:       "Gemini model used when the primary is exhausted",
			Value:       "gemini-2.0-flash-lite",
			Sources:     cli.EnvVars("GEMINI_FALLBACK_MODEL"),
			Destination: &cfg.GeminiFallbackModel,
		},
		&cli.StringFlag{
			Name:        "embedding-model",
			Usage:       "Embedding model for vector context and memory",
			Value:       "text-embedding-004",
			Sources:     cli.EnvVars("EMBEDDING_MODEL"),
			Destination: &cfg.EmbeddingModel,
		},
		&cli.IntFlag{
			Name:        "embedding-dim",
			Usage:       "Embedding vector size",
			Value:       768,
			Sources:     cli.EnvVars("EMBEDDING_DIM"),
			Destination: &cfg.EmbeddingDim,
		},
		&cli.StringFlag{
			Name:        "google-cloud-project",
			Usage:       "Google Cloud project for Vertex AI",
			Sources:     cli.EnvVars("GOOGLE_CLOUD_PROJECT"),
			Destination: &cfg.GoogleCloudProject,
		},
		&cli.StringFlag{
			Name:        "google-cloud-location",
			Usage:       "Google Cloud location for Vertex AI",
			Value:       "us-central1",
			Sources:     cli.EnvVars("GOOGLE_CLOUD_LOCATION"),
			Destination: &cfg.GoogleCloudLocation,
		},
		&cli.DurationFlag{
			Name:        "generation-timeout",
			Usage:       "Overall timeout of a generation call including retries",
			Value:       25 * time.Second,
			Sources:     cli.EnvVars("GENERATION_TIMEOUT"),
			Destination: &cfg.GenerationTimeout,
		},

		&cli.IntFlag{
			Name:        "rate-limit-requests",
			Usage:       "Requests allowed per client per period",
			Value:       100,
			Sources:     cli.EnvVars("RATE_LIMIT_REQUESTS"),
			Destination: &cfg.RateLimitRequests,
		},
		&cli.IntFlag{
			Name:        "rate-limit-period",
			Usage:       "Rate limit window in seconds",
			Value:       60,
			Sources:     cli.EnvVars("RATE_LIMIT_PERIOD"),
			Destination: &cfg.RateLimitPeriod,
		},
		&cli.IntFlag{
			Name:        "rate-limit-max-clients",
			Usage:       "Maximum number of tracked clients (0 for unbounded)",
			Value:       10000,
			Sources:     cli.EnvVars("RATE_LIMIT_MAX_CLIENTS"),
			Destination: &cfg.RateLimitMaxClients,
		},
		&cli.DurationFlag{
			Name:        "rate-limit-sweep-interval",
			Usage:       "Interval between sweeps of idle rate limit clients",
			Value:       time.Minute,
			Sources:     cli.EnvVars("RATE_LIMIT_SWEEP_INTERVAL"),
			Destination: &cfg.RateLimitSweepInterval,
		},

		&cli.StringSliceFlag{
			Name:        "store",
			Usage:       "Interaction stores (sqlite, redis, qdrant); empty disables persistence",
			Sources:     cli.EnvVars("STORE_BACKENDS"),
			Destination: &cfg.StoreBackends,
		},
		&cli.StringFlag{
			Name:        "sqlite-path",
			Usage:       "SQLite database file",
			Value:       "mcp_gateway.db",
			Sources:     cli.EnvVars("SQLITE_PATH"),
			Destination: &cfg.SQLitePath,
		},
		&cli.StringFlag{
			Name:        "redis-addr",
			Usage:       "Redis address",
			Value:       "localhost:6379",
			Sources:     cli.EnvVars("REDIS_ADDR"),
			Destination: &cfg.RedisAddr,
		},
		&cli.StringFlag{
			Name:        "redis-stream",
			Usage:       "Redis stream receiving interactions",
			Value:       "mcp:interactions",
			Sources:     cli.EnvVars("REDIS_STREAM"),
			Destination: &cfg.RedisStream,
		},
		&cli.StringFlag{
			Name:        "qdrant-host",
			Usage:       "Qdrant host",
			Value:       "localhost",
			Sources:     cli.EnvVars("QDRANT_HOST"),
			Destination: &cfg.QdrantHost,
		},
		&cli.IntFlag{
			Name:        "qdrant-port",
			Usage:       "Qdrant gRPC port",
			Value:       6334,
			Sources:     cli.EnvVars("QDRANT_PORT"),
			Destination: &cfg.QdrantPort,
		},
		&cli.StringFlag{
			Name:        "qdrant-collection",
			Usage:       "Qdrant collection holding interaction memory",
			Value:       "mcp_interactions",
			Sources:     cli.EnvVars("QDRANT_COLLECTION"),
			Destination: &cfg.QdrantCollection,
		},
		&cli.IntFlag{
			Name:        "recorder-workers",
			Usage:       "Number of background persistence workers",
			Value:       2,
			Sources:     cli.EnvVars("RECORDER_WORKERS"),
			Destination: &cfg.RecorderWorkers,
		},
		&cli.IntFlag{
			Name:        "recorder-queue-size",
			Usage:       "Capacity of the persistence queue",
			Value:       256,
			Sources:     cli.EnvVars("RECORDER_QUEUE_SIZE"),
			Destination: &cfg.RecorderQueueSize,
		},
	}
}

// RateLimitWindow returns the rate limit period as a duration.
func (c *Config) RateLimitWindow() time.Duration {
	return time.Duration(c.RateLimitPeriod) * time.Second
}

// Stores returns the normalized, de-duplicated store backend names.
func (c *Config) Stores() []string {
	var stores []string
	for _, s := range c.StoreBackends {
		s = strings.ToLower(strings.TrimSpace(s))
		if s == "" || slices.Contains(stores, s) {
			continue
		}
		stores = append(stores, s)
	}
	return stores
}

func (c *Config) UsesQdrant() bool {
	return c.ContextBackend == ContextBackendQdrant || slices.Contains(c.Stores(), StoreQdrant)
}

func (c *Config) UsesGenAI() bool {
	return c.GeneratorBackend == GeneratorBackendGemini || c.UsesQdrant()
}

func (c *Config) Validate() error {
	if c.RateLimitRequests <= 0 {
		return goerr.New("rate limit requests must be positive", goerr.V("requests", c.RateLimitRequests))
	}
	if c.RateLimitPeriod <= 0 {
		return goerr.New("rate limit period must be positive", goerr.V("period", c.RateLimitPeriod))
	}
	if c.RateLimitMaxClients < 0 {
		return goerr.New("rate limit max clients must not be negative", goerr.V("max_clients", c.RateLimitMaxClients))
	}
	if c.MaxContextResults <= 0 {
		return goerr.New("max context results must be positive", goerr.V("max_context_results", c.MaxContextResults))
	}
	if !strings.HasPrefix(c.APIPrefix, "/") {
		return goerr.New("api prefix must start with '/'", goerr.V("api_prefix", c.APIPrefix))
	}
	if c.RecorderWorkers <= 0 || c.RecorderQueueSize <= 0 {
		return goerr.New("recorder workers and queue size must be positive",
			goerr.V("workers", c.RecorderWorkers), goerr.V("queue_size", c.RecorderQueueSize))
	}

	switch c.ContextBackend {
	case ContextBackendHTTP:
		if c.ContextAPIURL == "" {
			return goerr.New("context-api-url is required for the http context backend")
		}
	case ContextBackendQdrant:
	default:
		return goerr.New("unknown context backend", goerr.V("backend", c.ContextBackend))
	}

	switch c.GeneratorBackend {
	case GeneratorBackendEcho, GeneratorBackendGemini:
	default:
		return goerr.New("unknown generator backend", goerr.V("backend", c.GeneratorBackend))
	}

	for _, s := range c.Stores() {
		switch s {
		case StoreSQLite, StoreRedis, StoreQdrant:
		default:
			return goerr.New("unknown store backend", goerr.V("store", s))
		}
	}

	if c.UsesGenAI() && c.GoogleCloudProject == "" {
		return goerr.New("google-cloud-project is required for gemini and qdrant backends")
	}
	if c.UsesQdrant() && c.EmbeddingDim <= 0 {
		return goerr.New("embedding dim must be positive", goerr.V("embedding_dim", c.EmbeddingDim))
	}

	return nil
}
