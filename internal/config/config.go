// Package config provides hierarchical configuration loading for CogniChat.
// Precedence: defaults < YAML file < environment variables.
package config

import "time"

// Config holds all runtime configuration for the CogniChat service.
type Config struct {
	Server     Server     `yaml:"server"`
	Postgres   Postgres   `yaml:"postgres"`
	Store      Store      `yaml:"store"`
	Embedding  Embedding  `yaml:"embedding"`
	Completion Completion `yaml:"completion"`
	Identity   Identity   `yaml:"identity"`
	Session    Session    `yaml:"session"`
	NATS       NATS       `yaml:"nats"`
	OTEL       OTEL       `yaml:"otel"`
	Logging    Logging    `yaml:"logging"`
	Rate       Rate       `yaml:"rate"`
}

// Server holds HTTP server configuration.
type Server struct {
	Port            string        `yaml:"port"`
	CORSOrigin      string        `yaml:"cors_origin"`
	RequestTimeout  time.Duration `yaml:"request_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// Postgres holds PostgreSQL connection configuration.
type Postgres struct {
	DSN             string        `yaml:"dsn"`
	MaxConns        int32         `yaml:"max_conns"`
	MinConns        int32         `yaml:"min_conns"`
	MaxConnLifetime time.Duration `yaml:"max_conn_lifetime"`
	MaxConnIdleTime time.Duration `yaml:"max_conn_idle_time"`
	HealthCheck     time.Duration `yaml:"health_check"`
}

// Store selects and tunes the memory store backend.
type Store struct {
	Backend        string  `yaml:"backend"`         // "postgres" | "memory" (default: "postgres")
	MatchThreshold float64 `yaml:"match_threshold"` // Cosine similarity cutoff (default: 0.8)
	DefaultLimit   int     `yaml:"default_limit"`   // Max memories per search (default: 5)
}

// Embedding holds sentence embedding configuration.
type Embedding struct {
	Provider      string        `yaml:"provider"` // "onnx" | "http" | "hash" (default: "hash")
	Dimensions    int           `yaml:"dimensions"`
	ModelPath     string        `yaml:"model_path"`
	TokenizerPath string        `yaml:"tokenizer_path"`
	LibraryPath   string        `yaml:"library_path"`
	URL           string        `yaml:"url"`
	APIKey        string        `yaml:"api_key"`
	Model         string        `yaml:"model"`
	CacheSizeMB   int64         `yaml:"cache_size_mb"`
	CacheTTL      time.Duration `yaml:"cache_ttl"`
	CacheBucket   string        `yaml:"cache_bucket"`
}

// Completion holds chat-completion API configuration.
type Completion struct {
	URL         string        `yaml:"url"`
	APIKey      string        `yaml:"api_key"`
	Model       string        `yaml:"model"`
	Temperature float64       `yaml:"temperature"`
	Timeout     time.Duration `yaml:"timeout"` // 0 = no client timeout
}

// Identity holds the hosted identity provider configuration.
type Identity struct {
	URL    string `yaml:"url"`
	APIKey string `yaml:"api_key"`
}

// Session holds chat session configuration.
type Session struct {
	TTL             time.Duration `yaml:"ttl"`
	CleanupInterval time.Duration `yaml:"cleanup_interval"`
	CookieName      string        `yaml:"cookie_name"`
	SecureCookie    bool          `yaml:"secure_cookie"`
	DefaultLength   string        `yaml:"default_length"` // "short" | "medium" | "long"
}

// NATS holds NATS JetStream configuration. An empty URL disables the event
// stream and the L2 embedding cache.
type NATS struct {
	URL    string `yaml:"url"`
	Stream string `yaml:"stream"`
}

// OTEL holds OpenTelemetry exporter configuration. An empty endpoint keeps the
// global no-op providers.
type OTEL struct {
	Endpoint    string  `yaml:"endpoint"`
	Insecure    bool    `yaml:"insecure"`
	ServiceName string  `yaml:"service_name"`
	SampleRate  float64 `yaml:"sample_rate"`
}

// Logging holds structured logging configuration.
type Logging struct {
	Level   string `yaml:"level"`
	Service string `yaml:"service"`
}

// Rate holds rate limiter configuration.
type Rate struct {
	RequestsPerSecond float64       `yaml:"requests_per_second"`
	Burst             int           `yaml:"burst"`
	MaxIdleTime       time.Duration `yaml:"max_idle_time"`
}

// Defaults returns a Config with sensible default values for local development.
// Credentials are intentionally empty and must come from the environment.
func Defaults() Config {
	return Config{
		Server: Server{
			Port:            "8080",
			CORSOrigin:      "http://localhost:3000",
			RequestTimeout:  2 * time.Minute,
			ShutdownTimeout: 10 * time.Second,
		},
		Postgres: Postgres{
			MaxConns:        15,
			MinConns:        2,
			MaxConnLifetime: time.Hour,
			MaxConnIdleTime: 10 * time.Minute,
			HealthCheck:     time.Minute,
		},
		Store: Store{
			Backend:        "postgres",
			MatchThreshold: 0.8,
			DefaultLimit:   5,
		},
		Embedding: Embedding{
			Provider:      "hash",
			Dimensions:    384,
			ModelPath:     "models/all-MiniLM-L6-v2/model.onnx",
			TokenizerPath: "models/all-MiniLM-L6-v2/tokenizer.json",
			Model:         "all-MiniLM-L6-v2",
			CacheSizeMB:   32,
			CacheTTL:      24 * time.Hour,
			CacheBucket:   "COGNICHAT_EMBEDDINGS",
		},
		Completion: Completion{
			URL:         "https://api.deepseek.com/chat/completions",
			Model:       "deepseek-chat",
			Temperature: 0.7,
		},
		Session: Session{
			TTL:             12 * time.Hour,
			CleanupInterval: 10 * time.Minute,
			CookieName:      "cognichat_session",
			DefaultLength:   "medium",
		},
		NATS: NATS{
			Stream: "COGNICHAT",
		},
		OTEL: OTEL{
			ServiceName: "cognichat",
			SampleRate:  1.0,
		},
		Logging: Logging{
			Level:   "info",
			Service: "cognichat",
		},
		Rate: Rate{
			RequestsPerSecond: 5,
			Burst:             20,
			MaxIdleTime:       10 * time.Minute,
		},
	}
}
