package config

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const (
	// EnvProduction represents the production environment.
	EnvProduction = "production"

	// ProviderAnthropic generates notes with Claude.
	ProviderAnthropic = "anthropic"
	// ProviderGroq generates notes through Groq's OpenAI compatible API.
	ProviderGroq = "groq"
)

// Config holds the backend server configuration.
type Config struct {
	// Server settings
	Env  string `envconfig:"ENV" default:"development"`
	Port string `envconfig:"PORT" default:"8080"`

	// Security settings
	HSTSMaxAge int    `envconfig:"HSTS_MAX_AGE" default:"31536000"`
	CSPMode    string `envconfig:"CSP_MODE" default:"relaxed"`

	// Logging settings
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`

	// Storage settings
	DBPath     string        `envconfig:"DB_PATH" default:"scribe.sqlite"`
	SessionTTL time.Duration `envconfig:"SESSION_TTL" default:"168h"`

	// Notes generation
	NotesProvider string `envconfig:"NOTES_PROVIDER" default:"anthropic"`
	NotesModel    string `envconfig:"NOTES_MODEL"`
	GroqBaseURL   string `envconfig:"GROQ_BASE_URL" default:"https://api.groq.com/openai/v1/"`

	// Uploads
	MaxUploadBytes int64 `envconfig:"MAX_UPLOAD_BYTES" default:"104857600"`

	// Provider credentials
	OpenAIAPIKey    string `envconfig:"OPENAI_API_KEY"`
	AnthropicAPIKey string `envconfig:"ANTHROPIC_API_KEY"`
	GroqAPIKey      string `envconfig:"GROQ_API_KEY"`
}

// Client holds the command line client configuration.
type Client struct {
	BackendURL     string        `envconfig:"SCRIBE_BACKEND_URL" default:"http://localhost:8080"`
	RequestTimeout time.Duration `envconfig:"SCRIBE_REQUEST_TIMEOUT" default:"5m"`
	Language       string        `envconfig:"SCRIBE_LANGUAGE" default:"en"`
}

// LoadConfig loads server configuration from .env file and environment variables.
func LoadConfig() (*Config, error) {
	loadDotEnv()

	var config Config
	if err := envconfig.Process("", &config); err != nil {
		return nil, fmt.Errorf("failed to process environment variables: %w", err)
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// LoadClient loads client configuration from .env file and environment variables.
func LoadClient() (*Client, error) {
	loadDotEnv()

	var client Client
	if err := envconfig.Process("", &client); err != nil {
		return nil, fmt.Errorf("failed to process environment variables: %w", err)
	}

	return &client, nil
}

func loadDotEnv() {
	// Try to load .env file (optional for development)
	if err := godotenv.Load(); err != nil {
		// Not an error if file doesn't exist (expected in production)
		if !os.IsNotExist(err) {
			log.Printf("Warning: Error loading .env file: %v", err)
		}
	}
}

// Validate checks settings that have a closed set of values.
func (c *Config) Validate() error {
	switch c.NotesProvider {
	case ProviderAnthropic, ProviderGroq:
	default:
		return fmt.Errorf("unknown NOTES_PROVIDER %q", c.NotesProvider)
	}
	if c.MaxUploadBytes <= 0 {
		return fmt.Errorf("MAX_UPLOAD_BYTES must be positive")
	}
	if c.SessionTTL < 0 {
		return fmt.Errorf("SESSION_TTL must not be negative")
	}
	return nil
}

// BuildCSP constructs Content Security Policy based on mode.
func BuildCSP(mode string) string {
	if mode == "strict" {
		// The backend only serves JSON and PDF.
		return "default-src 'none'; " +
			"frame-ancestors 'none'; " +
			"base-uri 'none'; " +
			"form-action 'none'"
	}

	return "default-src 'self'; " +
		"style-src 'self' 'unsafe-inline'; " +
		"img-src 'self' data:"
}
