package config

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Feed modes for the live collection feeds
const (
	FeedModePush = "push"
	FeedModePoll = "poll"
)

// Config holds all application configuration
type Config struct {
	DatabaseURL string `env:"DATABASE_URL"`
	Port        string `env:"PORT" envDefault:"8080"`
	GoEnv       string `env:"GO_ENV" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`
	ServiceName string `env:"SERVICE_NAME" envDefault:"nafs-essence-api"`

	// Admin sessions
	JWTSecret     string        `env:"JWT_SECRET"`
	JWTIssuer     string        `env:"JWT_ISSUER" envDefault:"nafs-essence-api"`
	JWTAudience   string        `env:"JWT_AUDIENCE" envDefault:"nafs-essence-admin"`
	SessionTTL    time.Duration `env:"SESSION_TTL" envDefault:"12h"`
	AdminEmail    string        `env:"ADMIN_EMAIL"`
	AdminPassword string        `env:"ADMIN_PASSWORD"`

	// Live feeds
	FeedMode     string        `env:"FEED_MODE" envDefault:"push"`
	PollInterval time.Duration `env:"FEED_POLL_INTERVAL" envDefault:"5s"`

	// HTTP
	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:"," envDefault:"http://localhost:5173"`

	// Assistant (any OpenAI compatible chat completions endpoint)
	AssistantAPIKey         string `env:"ASSISTANT_API_KEY"`
	AssistantBaseURL        string `env:"ASSISTANT_BASE_URL" envDefault:"https://generativelanguage.googleapis.com/v1beta/openai/"`
	AssistantDescribeModel  string `env:"ASSISTANT_DESCRIBE_MODEL" envDefault:"gemini-3-flash-preview"`
	AssistantRecommendModel string `env:"ASSISTANT_RECOMMEND_MODEL" envDefault:"gemini-3-pro-preview"`

	// Product images
	AWSRegion          string `env:"AWS_REGION" envDefault:"us-east-1"`
	AWSS3Bucket        string `env:"AWS_S3_BUCKET"`
	AWSAccessKeyID     string `env:"AWS_ACCESS_KEY_ID"`
	AWSSecretAccessKey string `env:"AWS_SECRET_ACCESS_KEY"`

	// Tracing is enabled only when an endpoint is set
	OTELEndpoint string `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
}

var current *Config

// Load loads the configuration from environment variables
// It automatically determines which .env file to load based on GO_ENV
func Load() (*Config, error) {
	// Determine which environment file to load
	goEnv := os.Getenv("GO_ENV")
	if goEnv == "" {
		goEnv = "development"
	}

	// Try to load environment-specific file first
	envFile := fmt.Sprintf(".env.%s", goEnv)
	if err := godotenv.Load(envFile); err != nil {
		// Deployed environments set variables directly, so missing files are fine
		if err := godotenv.Load(); err != nil {
			log.Printf("No .env file found, using system environment variables")
		}
	} else {
		log.Printf("Loaded configuration from %s", envFile)
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	// Validate required configuration
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	current = cfg
	return cfg, nil
}

// Validate checks that all required configuration values are set
func (c *Config) Validate() error {
	if c.DatabaseURL == "" && !c.IsTest() {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if c.FeedMode != FeedModePush && c.FeedMode != FeedModePoll {
		return fmt.Errorf("FEED_MODE must be %q or %q, got %q", FeedModePush, FeedModePoll, c.FeedMode)
	}
	if c.FeedMode == FeedModePoll && c.PollInterval <= 0 {
		return fmt.Errorf("FEED_POLL_INTERVAL must be positive")
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("SESSION_TTL must be positive")
	}
	return nil
}

// IsProduction returns true if the application is running in production mode
func (c *Config) IsProduction() bool {
	return c.GoEnv == "production"
}

// IsTest returns true if the application is running in test mode
func (c *Config) IsTest() bool {
	return c.GoEnv == "test"
}

// IsDevelopment returns true if the application is running in development mode
func (c *Config) IsDevelopment() bool {
	return c.GoEnv == "development"
}

// HasAssistant reports whether a language model key is configured
func (c *Config) HasAssistant() bool {
	return c.AssistantAPIKey != ""
}

// HasImageStorage reports whether product image uploads can be stored
func (c *Config) HasImageStorage() bool {
	return c.AWSS3Bucket != ""
}

// GetConfig returns the configuration loaded by the last successful Load
func GetConfig() *Config {
	return current
}
