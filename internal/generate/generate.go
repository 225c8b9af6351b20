// Package generate turns transcripts into markdown notes with a hosted
// language model.
package generate

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/alkime/scribe/internal/config"
)

// ErrEmptyResponse is returned when the model produced no text.
var ErrEmptyResponse = errors.New("model returned no notes")

// Writer generates markdown notes from a transcript.
type Writer interface {
	GenerateNotes(ctx context.Context, transcript string) (string, error)
}

// New returns the writer selected by cfg.NotesProvider.
func New(cfg *config.Config) (Writer, error) {
	switch cfg.NotesProvider {
	case config.ProviderAnthropic:
		if cfg.AnthropicAPIKey == "" {
			return nil, errors.New("API key required: set ANTHROPIC_API_KEY")
		}
		return NewAnthropic(cfg.AnthropicAPIKey, cfg.NotesModel), nil
	case config.ProviderGroq:
		if cfg.GroqAPIKey == "" {
			return nil, errors.New("API key required: set GROQ_API_KEY")
		}
		return NewOpenAI(cfg.GroqAPIKey, cfg.GroqBaseURL, cfg.NotesModel), nil
	default:
		return nil, fmt.Errorf("unknown notes provider %q", cfg.NotesProvider)
	}
}

func checkTranscript(transcript string) error {
	if strings.TrimSpace(transcript) == "" {
		return errors.New("transcript is empty")
	}
	return nil
}
