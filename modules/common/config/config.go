package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

const (
	BackendGemini = "gemini"
	BackendVertex = "vertex"
)

// Config - every environment driven setting of the server
type Config struct {
	// Server
	Port              string        `env:"PORT" envDefault:"8080"`
	Environment       string        `env:"ENVIRONMENT" envDefault:"production"`
	LogLevel          string        `env:"LOG_LEVEL" envDefault:"info"`
	MaxUploadBytes    int64         `env:"MAX_UPLOAD_BYTES" envDefault:"20971520"`
	AllowedOrigins    []string      `env:"CORS_ALLOWED_ORIGINS" envSeparator:"," envDefault:"https://cine-prompt-ai-storyboard.vercel.app,http://localhost:5173,http://localhost:4173"`
	ShutdownTimeout   time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
	GatewayTimeout    time.Duration `env:"GATEWAY_TIMEOUT" envDefault:"30s"`
	GenerationTimeout time.Duration `env:"GENERATION_TIMEOUT" envDefault:"2m"`

	// Gemini API
	GeminiAPIKey        string `env:"GEMINI_API_KEY"`
	GeminiModel         string `env:"GEMINI_MODEL" envDefault:"gemini-3-flash-preview"`
	GatewayDefaultModel string `env:"GATEWAY_DEFAULT_MODEL" envDefault:"gemini-2.5-flash"`
	GeminiBackend       string `env:"GEMINI_BACKEND" envDefault:"gemini"`

	// Vertex AI
	VertexAIProject         string `env:"VERTEXAI_PROJECT"`
	VertexAILocation        string `env:"VERTEXAI_LOCATION" envDefault:"us-central1"`
	VertexAICredentialsJSON string `env:"VERTEXAI_CREDENTIALS_JSON"`
	VertexAICredentialsPath string `env:"VERTEXAI_CREDENTIALS_PATH"`

	// Redis (in-flight guard only)
	RedisEnabled  bool   `env:"REDIS_ENABLED" envDefault:"false"`
	RedisHost     string `env:"REDIS_HOST" envDefault:"localhost"`
	RedisPort     string `env:"REDIS_PORT" envDefault:"6379"`
	RedisUsername string `env:"REDIS_USERNAME"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisUseTLS   bool   `env:"REDIS_USE_TLS" envDefault:"true"`

	// Session
	SessionIdleTTL     time.Duration `env:"SESSION_IDLE_TTL" envDefault:"2h"`
	SessionMaxAge      time.Duration `env:"SESSION_MAX_AGE" envDefault:"24h"`
	ResultHistoryLimit int           `env:"RESULT_HISTORY_LIMIT" envDefault:"10"`
}

// LoadConfig - reads .env (if any) and the environment, then validates
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Info().Msg("[Config] .env file not found, using environment variables")
	}

	cfg, err := Parse()
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("environment", cfg.Environment).
		Str("backend", cfg.GeminiBackend).
		Str("model", cfg.GeminiModel).
		Bool("credential", cfg.HasCredential()).
		Bool("redis", cfg.RedisEnabled).
		Msg("[Config] configuration loaded")

	return cfg, nil
}

// Parse - environment to Config without touching .env or the global copy
func Parse() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env config: %w", err)
	}
	cfg.GeminiAPIKey = strings.TrimSpace(cfg.GeminiAPIKey)
	cfg.GeminiBackend = strings.ToLower(strings.TrimSpace(cfg.GeminiBackend))
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// validate - the credential itself is optional here; its absence is reported per request
func (c *Config) validate() error {
	switch c.GeminiBackend {
	case BackendGemini:
	case BackendVertex:
		if strings.TrimSpace(c.VertexAIProject) == "" {
			return fmt.Errorf("VERTEXAI_PROJECT is required when GEMINI_BACKEND=vertex")
		}
	default:
		return fmt.Errorf("unknown GEMINI_BACKEND: %s", c.GeminiBackend)
	}
	if c.GatewayTimeout <= 0 {
		return fmt.Errorf("GATEWAY_TIMEOUT must be positive")
	}
	if c.GenerationTimeout <= 0 {
		return fmt.Errorf("GENERATION_TIMEOUT must be positive")
	}
	if c.MaxUploadBytes <= 0 {
		return fmt.Errorf("MAX_UPLOAD_BYTES must be positive")
	}
	if c.ResultHistoryLimit < 0 {
		return fmt.Errorf("RESULT_HISTORY_LIMIT must not be negative")
	}
	return nil
}

// IsDevelopment - internal error detail is exposed only in development
func (c *Config) IsDevelopment() bool {
	return strings.EqualFold(strings.TrimSpace(c.Environment), "development")
}

// HasCredential - whether a model call can be attempted at all
func (c *Config) HasCredential() bool {
	if c.GeminiBackend == BackendVertex {
		return strings.TrimSpace(c.VertexAIProject) != ""
	}
	return c.GeminiAPIKey != ""
}

// GetRedisAddr - Redis connection string
func (c *Config) GetRedisAddr() string {
	return fmt.Sprintf("%s:%s", c.RedisHost, c.RedisPort)
}
