package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Env      string `envconfig:"APP_ENV" default:"development"`
	Port     int    `envconfig:"PORT" default:"8080"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`

	DB         DBConfig
	Redis      RedisConfig
	Mongo      MongoConfig
	LLM        LLMConfig
	STT        STTConfig
	Transcript TranscriptConfig
	Auth       AuthConfig
	Limiter    RateLimiterConfig
	CORS       CORSConfig
}

type DBConfig struct {
	Driver       string        `envconfig:"DB_DRIVER" default:"postgres"` // postgres|sqlite
	PostgresURI  string        `envconfig:"POSTGRES_URI"`
	SQLitePath   string        `envconfig:"SQLITE_PATH" default:"interviewchat.db"`
	MaxOpenConns int           `envconfig:"DB_MAX_OPEN_CONNS" default:"100"`
	MaxIdleConns int           `envconfig:"DB_MAX_IDLE_CONNS" default:"10"`
	MaxLifetime  time.Duration `envconfig:"DB_CONN_MAX_LIFETIME" default:"30m"`
	MaxIdleTime  time.Duration `envconfig:"DB_CONN_MAX_IDLE_TIME" default:"5m"`
}

// RedisConfig is optional; an empty Addr disables redis-backed features.
type RedisConfig struct {
	Addr string `envconfig:"REDIS_ADDR"`
	URL  string `envconfig:"REDIS_URL"`
}

func (r RedisConfig) Enabled() bool { return r.Addr != "" || r.URL != "" }

type MongoConfig struct {
	URI            string        `envconfig:"MONGO_URI"`
	Database       string        `envconfig:"MONGO_DB" default:"interviewchat"`
	AuditTTL       time.Duration `envconfig:"TURN_AUDIT_TTL" default:"720h"`
	MaxPoolSize    uint64        `envconfig:"MONGO_MAX_POOL_SIZE" default:"10"`
	ConnectTimeout time.Duration `envconfig:"MONGO_CONNECT_TIMEOUT" default:"15s"`
	SelectTimeout  time.Duration `envconfig:"MONGO_SERVER_SELECTION_TIMEOUT" default:"20s"`
}

func (m MongoConfig) Enabled() bool { return m.URI != "" }

type LLMConfig struct {
	Provider        string        `envconfig:"LLM_PROVIDER" default:"openai"` // openai|vertex
	Model           string        `envconfig:"LLM_MODEL"`
	Timeout         time.Duration `envconfig:"LLM_TIMEOUT" default:"30s"`
	Temperature     float32       `envconfig:"LLM_TEMPERATURE" default:"0.7"`
	MaxTokens       int           `envconfig:"LLM_MAX_TOKENS" default:"500"`
	MaxRetries      uint          `envconfig:"LLM_MAX_RETRIES" default:"2"`
	OpenAIKey       string        `envconfig:"OPENAI_API_KEY"`
	OpenAIBaseURL   string        `envconfig:"OPENAI_BASE_URL" default:"https://api.openai.com/v1"`
	VertexProject   string        `envconfig:"VERTEX_PROJECT_ID"`
	VertexLocation  string        `envconfig:"VERTEX_LOCATION" default:"us-central1"`
	CredentialsFile string        `envconfig:"GOOGLE_APPLICATION_CREDENTIALS"`
}

type STTConfig struct {
	Enabled  bool   `envconfig:"STT_ENABLED" default:"false"`
	Language string `envconfig:"STT_LANGUAGE" default:"en-US"`
}

type TranscriptConfig struct {
	Bucket  string `envconfig:"TRANSCRIPT_BUCKET"`
	Workers int    `envconfig:"TRANSCRIPT_WORKERS" default:"2"`
}

func (t TranscriptConfig) Enabled() bool { return t.Bucket != "" }

// AuthConfig guards the admin routes when Secret is set.
type AuthConfig struct {
	Secret   string `envconfig:"AUTH_JWT_SECRET"`
	Issuer   string `envconfig:"AUTH_JWT_ISSUER"`
	Audience string `envconfig:"AUTH_JWT_AUDIENCE"`
}

func (a AuthConfig) Enabled() bool { return a.Secret != "" }

type RateLimiterConfig struct {
	RPS     float64 `envconfig:"RATE_LIMIT_RPS" default:"2"`
	Burst   int     `envconfig:"RATE_LIMIT_BURST" default:"5"`
	Enabled bool    `envconfig:"RATE_LIMIT_ENABLED" default:"true"`
}

type CORSConfig struct {
	TrustedOrigins []string `envconfig:"CORS_TRUSTED_ORIGINS" default:"http://localhost:3000"`
}

// Load reads a .env file when present, then the environment.
func Load() (*Config, error) {
	_ = godotenv.Load()
	return FromEnv()
}

func FromEnv() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	validEnvs := map[string]bool{"development": true, "staging": true, "production": true, "test": true}
	if !validEnvs[c.Env] {
		return fmt.Errorf("invalid environment: %s (must be one of: development, staging, production, test)", c.Env)
	}
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid port: %d (must be between 1 and 65535)", c.Port)
	}

	switch c.DB.Driver {
	case "postgres":
		if c.DB.PostgresURI == "" {
			return errors.New("POSTGRES_URI is required when DB_DRIVER=postgres")
		}
	case "sqlite":
		if c.DB.SQLitePath == "" {
			return errors.New("SQLITE_PATH is required when DB_DRIVER=sqlite")
		}
	default:
		return fmt.Errorf("invalid DB_DRIVER: %s (must be postgres or sqlite)", c.DB.Driver)
	}
	if c.DB.MaxIdleConns > c.DB.MaxOpenConns {
		return fmt.Errorf("DB_MAX_IDLE_CONNS (%d) cannot exceed DB_MAX_OPEN_CONNS (%d)", c.DB.MaxIdleConns, c.DB.MaxOpenConns)
	}

	switch c.LLM.Provider {
	case "openai":
		if c.LLM.OpenAIBaseURL == "" {
			return errors.New("OPENAI_BASE_URL must not be empty")
		}
	case "vertex":
		if c.LLM.VertexProject == "" {
			return errors.New("VERTEX_PROJECT_ID is required when LLM_PROVIDER=vertex")
		}
	default:
		return fmt.Errorf("invalid LLM_PROVIDER: %s (must be openai or vertex)", c.LLM.Provider)
	}
	if c.LLM.Timeout <= 0 {
		return errors.New("LLM_TIMEOUT must be positive")
	}

	if c.Limiter.Enabled && (c.Limiter.RPS <= 0 || c.Limiter.Burst < 1) {
		return errors.New("RATE_LIMIT_RPS must be positive and RATE_LIMIT_BURST at least 1")
	}
	if c.Auth.Enabled() && len(c.Auth.Secret) < 32 {
		return errors.New("AUTH_JWT_SECRET must be at least 32 characters")
	}
	if c.Transcript.Enabled() && !c.Redis.Enabled() {
		return errors.New("TRANSCRIPT_BUCKET requires REDIS_ADDR or REDIS_URL")
	}
	return nil
}

func (c *Config) IsProduction() bool { return c.Env == "production" }

func (c *Config) ServerAddr() string { return fmt.Sprintf(":%d", c.Port) }

func (c *Config) CORSOrigins() []string {
	out := make([]string, 0, len(c.CORS.TrustedOrigins))
	for _, o := range c.CORS.TrustedOrigins {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

// ModelName returns the configured model or the provider default.
func (l LLMConfig) ModelName() string {
	if l.Model != "" {
		return l.Model
	}
	if l.Provider == "vertex" {
		return "gemini-1.5-flash"
	}
	return "gpt-4o-mini"
}
