// Package keyring stores provider API keys in the system keychain.
package keyring

import (
	"errors"
	"fmt"
	"os"

	"github.com/zalando/go-keyring"
)

const serviceName = "scribe"

// APIKey names a provider credential stored in the keychain.
type APIKey string

const (
	// OpenAI is used for Whisper transcription.
	OpenAI APIKey = "openai-api-key"
	// Anthropic is used for notes generation.
	Anthropic APIKey = "anthropic-api-key"
	// Groq is used for notes generation through Groq.
	Groq APIKey = "groq-api-key"
)

// AllAPIKeys returns all known API key types for iteration.
func AllAPIKeys() []APIKey {
	return []APIKey{OpenAI, Anthropic, Groq}
}

// DisplayName returns the provider name for the key.
func (k APIKey) DisplayName() string {
	switch k {
	case OpenAI:
		return "openai"
	case Anthropic:
		return "anthropic"
	case Groq:
		return "groq"
	default:
		return string(k)
	}
}

// EnvVar returns the environment variable that overrides the keychain.
func (k APIKey) EnvVar() string {
	switch k {
	case OpenAI:
		return "OPENAI_API_KEY"
	case Anthropic:
		return "ANTHROPIC_API_KEY"
	case Groq:
		return "GROQ_API_KEY"
	default:
		return ""
	}
}

// Get retrieves an API key value from the system keychain.
func Get(apiKey APIKey) (string, error) {
	value, err := keyring.Get(serviceName, string(apiKey))
	if err != nil {
		return "", fmt.Errorf("failed to get %s from keychain: %w", apiKey.DisplayName(), err)
	}

	return value, nil
}

// Set stores an API key value in the system keychain.
func Set(apiKey APIKey, value string) error {
	if value == "" {
		return errors.New("api key must not be empty")
	}
	if err := keyring.Set(serviceName, string(apiKey), value); err != nil {
		return fmt.Errorf("failed to set %s in keychain: %w", apiKey.DisplayName(), err)
	}

	return nil
}

// IsSet checks if an API key exists in the keychain.
func IsSet(apiKey APIKey) bool {
	_, err := keyring.Get(serviceName, string(apiKey))

	return err == nil
}

// Resolve returns explicit when set, then the key's environment variable,
// then the keychain entry.
func Resolve(apiKey APIKey, explicit string) (string, error) {
	if explicit != "" {
		return explicit, nil
	}
	if v := os.Getenv(apiKey.EnvVar()); v != "" {
		return v, nil
	}
	v, err := Get(apiKey)
	if err != nil {
		return "", fmt.Errorf("%s api key not configured (set %s or run 'scribe config set-key %s'): %w",
			apiKey.DisplayName(), apiKey.EnvVar(), apiKey.DisplayName(), err)
	}
	return v, nil
}

// APIKeyFromServiceName maps a service name (e.g., "openai") to an APIKey.
func APIKeyFromServiceName(name string) (APIKey, error) {
	for _, k := range AllAPIKeys() {
		if k.DisplayName() == name {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown service: %s", name)
}
