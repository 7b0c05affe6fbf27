package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the path checked for YAML configuration.
const DefaultConfigFile = "cognichat.yaml"

// PostgresDimensions is the vector width of memories.embedding in the
// postgres schema.
const PostgresDimensions = 384

// DefaultEnvFile is the dotenv file merged into the process environment
// before variables are read. Variables already set in the environment win.
const DefaultEnvFile = ".env"

// Load returns a Config using the hierarchy: defaults < YAML < ENV.
// YAML and dotenv files are optional; missing files are not an error.
func Load() (*Config, error) {
	if err := loadDotEnv(DefaultEnvFile); err != nil {
		return nil, fmt.Errorf("config dotenv: %w", err)
	}
	return LoadFrom(DefaultConfigFile)
}

// LoadFrom returns a Config loaded from the given YAML path using the
// hierarchy: defaults < YAML < ENV. The YAML file is optional.
func LoadFrom(yamlPath string) (*Config, error) {
	cfg := Defaults()

	if err := loadYAML(&cfg, yamlPath); err != nil {
		return nil, fmt.Errorf("config yaml: %w", err)
	}

	loadEnv(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("config validate: %w", err)
	}

	return &cfg, nil
}

func loadDotEnv(path string) error {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	return nil
}

// loadYAML reads the YAML file and unmarshals it over cfg.
// Returns nil if the file does not exist.
func loadYAML(cfg *Config, path string) error {
	data, err := os.ReadFile(path) //nolint:gosec // G304: path comes from the operator
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	return nil
}

// loadEnv overlays environment variables onto cfg.
// Only non-empty env values override the current config.
func loadEnv(cfg *Config) {
	setString(&cfg.Server.Port, "COGNICHAT_PORT")
	setString(&cfg.Server.CORSOrigin, "COGNICHAT_CORS_ORIGIN")
	setDuration(&cfg.Server.RequestTimeout, "COGNICHAT_REQUEST_TIMEOUT")
	setString(&cfg.Postgres.DSN, "DATABASE_URL")
	setInt32(&cfg.Postgres.MaxConns, "COGNICHAT_PG_MAX_CONNS")
	setInt32(&cfg.Postgres.MinConns, "COGNICHAT_PG_MIN_CONNS")
	setDuration(&cfg.Postgres.MaxConnLifetime, "COGNICHAT_PG_MAX_CONN_LIFETIME")
	setDuration(&cfg.Postgres.MaxConnIdleTime, "COGNICHAT_PG_MAX_CONN_IDLE_TIME")
	setDuration(&cfg.Postgres.HealthCheck, "COGNICHAT_PG_HEALTH_CHECK")

	// Store
	setString(&cfg.Store.Backend, "COGNICHAT_STORE_BACKEND")
	setFloat64(&cfg.Store.MatchThreshold, "COGNICHAT_MATCH_THRESHOLD")
	setInt(&cfg.Store.DefaultLimit, "COGNICHAT_MEMORY_LIMIT")

	// Embedding
	setString(&cfg.Embedding.Provider, "COGNICHAT_EMBED_PROVIDER")
	setInt(&cfg.Embedding.Dimensions, "COGNICHAT_EMBED_DIMENSIONS")
	setString(&cfg.Embedding.ModelPath, "COGNICHAT_EMBED_MODEL_PATH")
	setString(&cfg.Embedding.TokenizerPath, "COGNICHAT_EMBED_TOKENIZER_PATH")
	setString(&cfg.Embedding.LibraryPath, "ONNXRUNTIME_LIB")
	setString(&cfg.Embedding.URL, "COGNICHAT_EMBED_URL")
	setString(&cfg.Embedding.APIKey, "COGNICHAT_EMBED_API_KEY")
	setString(&cfg.Embedding.Model, "COGNICHAT_EMBED_MODEL")
	setInt64(&cfg.Embedding.CacheSizeMB, "COGNICHAT_EMBED_CACHE_MB")
	setDuration(&cfg.Embedding.CacheTTL, "COGNICHAT_EMBED_CACHE_TTL")

	// Completion
	setString(&cfg.Completion.URL, "DEEPSEEK_API_URL")
	setString(&cfg.Completion.APIKey, "DEEPSEEK_API_KEY")
	setString(&cfg.Completion.Model, "COGNICHAT_COMPLETION_MODEL")
	setFloat64(&cfg.Completion.Temperature, "COGNICHAT_COMPLETION_TEMPERATURE")
	setDuration(&cfg.Completion.Timeout, "COGNICHAT_COMPLETION_TIMEOUT")

	// Identity
	setString(&cfg.Identity.URL, "SUPABASE_URL")
	setString(&cfg.Identity.APIKey, "SUPABASE_KEY")

	// Session
	setDuration(&cfg.Session.TTL, "COGNICHAT_SESSION_TTL")
	setString(&cfg.Session.CookieName, "COGNICHAT_SESSION_COOKIE")
	setBool(&cfg.Session.SecureCookie, "COGNICHAT_SESSION_SECURE")
	setString(&cfg.Session.DefaultLength, "COGNICHAT_RESPONSE_LENGTH")

	setString(&cfg.NATS.URL, "NATS_URL")
	setString(&cfg.OTEL.Endpoint, "OTEL_EXPORTER_OTLP_ENDPOINT")
	setBool(&cfg.OTEL.Insecure, "OTEL_EXPORTER_OTLP_INSECURE")
	setString(&cfg.Logging.Level, "COGNICHAT_LOG_LEVEL")
	setString(&cfg.Logging.Service, "COGNICHAT_LOG_SERVICE")
	setFloat64(&cfg.Rate.RequestsPerSecond, "COGNICHAT_RATE_RPS")
	setInt(&cfg.Rate.Burst, "COGNICHAT_RATE_BURST")
}

// validate checks that required fields are set. Store, identity and
// completion credentials are checked in that order.
func validate(cfg *Config) error {
	if cfg.Server.Port == "" {
		return errors.New("server.port is required")
	}
	switch cfg.Store.Backend {
	case "postgres":
		if cfg.Postgres.DSN == "" {
			return errors.New("postgres.dsn is required (DATABASE_URL)")
		}
		if cfg.Postgres.MaxConns < 1 {
			return errors.New("postgres.max_conns must be >= 1")
		}
		if cfg.Embedding.Dimensions != PostgresDimensions {
			return fmt.Errorf("embedding.dimensions must be %d for the postgres backend, got %d", PostgresDimensions, cfg.Embedding.Dimensions)
		}
	case "memory":
	default:
		return fmt.Errorf("store.backend must be postgres or memory, got %q", cfg.Store.Backend)
	}
	if cfg.Store.MatchThreshold < -1 || cfg.Store.MatchThreshold > 1 {
		return errors.New("store.match_threshold must be between -1 and 1")
	}
	if cfg.Store.DefaultLimit < 1 {
		return errors.New("store.default_limit must be >= 1")
	}
	if cfg.Identity.URL == "" {
		return errors.New("identity.url is required (SUPABASE_URL)")
	}
	if cfg.Identity.APIKey == "" {
		return errors.New("identity.api_key is required (SUPABASE_KEY)")
	}
	if cfg.Completion.APIKey == "" {
		return errors.New("completion.api_key is required (DEEPSEEK_API_KEY)")
	}
	if cfg.Embedding.Dimensions < 1 {
		return errors.New("embedding.dimensions must be >= 1")
	}
	switch strings.ToLower(cfg.Embedding.Provider) {
	case "onnx", "hash":
	case "http":
		if cfg.Embedding.URL == "" {
			return errors.New("embedding.url is required for the http provider")
		}
	default:
		return fmt.Errorf("embedding.provider must be onnx, http or hash, got %q", cfg.Embedding.Provider)
	}
	switch cfg.Session.DefaultLength {
	case "short", "medium", "long":
	default:
		return fmt.Errorf("session.default_length must be short, medium or long, got %q", cfg.Session.DefaultLength)
	}
	if cfg.Rate.Burst < 1 {
		return errors.New("rate.burst must be >= 1")
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setInt32(dst *int32, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 32); err == nil {
			*dst = int32(n)
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setInt64(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *time.Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}
