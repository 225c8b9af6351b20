package generate

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	anthropicopt "github.com/anthropics/anthropic-sdk-go/option"
	openaiopt "github.com/openai/openai-go/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alkime/scribe/internal/config"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.Config
		want    any
		wantErr string
	}{
		{
			name: "anthropic",
			cfg:  config.Config{NotesProvider: config.ProviderAnthropic, AnthropicAPIKey: "k"},
			want: &Anthropic{},
		},
		{
			name: "groq",
			cfg:  config.Config{NotesProvider: config.ProviderGroq, GroqAPIKey: "k"},
			want: &OpenAI{},
		},
		{
			name:    "anthropic without key",
			cfg:     config.Config{NotesProvider: config.ProviderAnthropic},
			wantErr: "ANTHROPIC_API_KEY",
		},
		{
			name:    "groq without key",
			cfg:     config.Config{NotesProvider: config.ProviderGroq},
			wantErr: "GROQ_API_KEY",
		},
		{
			name:    "unknown",
			cfg:     config.Config{NotesProvider: "other"},
			wantErr: "unknown notes provider",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, err := New(&tt.cfg)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.IsType(t, tt.want, w)
		})
	}
}

func TestNotesPrompt(t *testing.T) {
	p := NotesPrompt("we met on tuesday")
	assert.Contains(t, p, "Rules:")
	assert.Contains(t, p, "we met on tuesday")
}

func TestOpenAI_GenerateNotes(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer groq-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "chatcmpl-1",
			"object": "chat.completion",
			"created": 1,
			"model": "llama3-70b-8192",
			"choices": [{
				"index": 0,
				"finish_reason": "stop",
				"message": {"role": "assistant", "content": "# Meeting\n\n- item"}
			}]
		}`))
	}))
	defer srv.Close()

	w := NewOpenAI("groq-key", srv.URL+"/", "", openaiopt.WithMaxRetries(0))
	notes, err := w.GenerateNotes(t.Context(), "raw transcript")
	require.NoError(t, err)
	assert.Equal(t, "# Meeting\n\n- item", notes)

	assert.Equal(t, DefaultOpenAIModel, got["model"])
	assert.InDelta(t, 0.1, got["temperature"], 1e-9)
	assert.InDelta(t, 0.9, got["top_p"], 1e-9)
	assert.InDelta(t, 4096, got["max_tokens"], 1e-9)
}

func TestOpenAI_GenerateNotes_EmptyChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"x","object":"chat.completion","created":1,"model":"m","choices":[]}`))
	}))
	defer srv.Close()

	w := NewOpenAI("k", srv.URL+"/", "m", openaiopt.WithMaxRetries(0))
	_, err := w.GenerateNotes(t.Context(), "raw transcript")
	assert.ErrorIs(t, err, ErrEmptyResponse)
}

func TestOpenAI_GenerateNotes_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"error":{"message":"bad key"}}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	w := NewOpenAI("k", srv.URL+"/", "m", openaiopt.WithMaxRetries(0))
	_, err := w.GenerateNotes(t.Context(), "raw transcript")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to generate notes")
}

func TestAnthropic_GenerateNotes(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "claude-key", r.Header.Get("X-Api-Key"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "msg_1",
			"type": "message",
			"role": "assistant",
			"model": "claude-sonnet-4-5-20250929",
			"content": [{"type": "text", "text": "# Summary"}],
			"stop_reason": "end_turn",
			"usage": {"input_tokens": 10, "output_tokens": 3}
		}`))
	}))
	defer srv.Close()

	w := NewAnthropic("claude-key", "", anthropicopt.WithBaseURL(srv.URL), anthropicopt.WithMaxRetries(0))
	notes, err := w.GenerateNotes(t.Context(), "raw transcript")
	require.NoError(t, err)
	assert.Equal(t, "# Summary", notes)
	assert.Equal(t, "claude-sonnet-4-5-20250929", got["model"])
}

func TestWriters_RejectEmptyTranscript(t *testing.T) {
	for name, w := range map[string]Writer{
		"anthropic": NewAnthropic("k", ""),
		"openai":    NewOpenAI("k", "", ""),
	} {
		t.Run(name, func(t *testing.T) {
			_, err := w.GenerateNotes(t.Context(), "  \n")
			require.Error(t, err)
			assert.Contains(t, err.Error(), "empty")
		})
	}
}
