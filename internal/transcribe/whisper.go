// Package transcribe produces transcripts from audio files and online
// videos.
package transcribe

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// Whisper transcribes audio with the OpenAI Whisper API.
type Whisper struct {
	client   openai.Client
	language string
}

// NewWhisper creates a Whisper transcriber. language may be empty to let
// the model detect it.
func NewWhisper(apiKey, language string, opts ...option.RequestOption) (*Whisper, error) {
	if apiKey == "" {
		return nil, errors.New("API key required: set OPENAI_API_KEY")
	}
	return &Whisper{
		client:   openai.NewClient(append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)...),
		language: language,
	}, nil
}

// Transcribe sends audio to Whisper. filename decides the format the API
// assumes, so it must carry the original extension. language overrides the
// transcriber's default when set.
func (w *Whisper) Transcribe(ctx context.Context, filename, language string, audio io.Reader) (string, error) {
	params := openai.AudioTranscriptionNewParams{
		File:  openai.File(audio, filename, ""),
		Model: openai.AudioModelWhisper1,
	}
	if language == "" {
		language = w.language
	}
	if language != "" {
		params.Language = openai.String(language)
	}

	resp, err := w.client.Audio.Transcriptions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("failed to create transcription via Whisper API: %w", err)
	}
	return resp.Text, nil
}
