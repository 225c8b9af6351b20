package generate

import (
	"context"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// DefaultOpenAIModel is used against Groq when no model is configured.
const DefaultOpenAIModel = "llama3-70b-8192"

// OpenAI generates notes through an OpenAI compatible chat completions API,
// such as Groq's.
type OpenAI struct {
	client openai.Client
	model  string
}

// NewOpenAI creates a chat completions writer. baseURL may be empty for the
// OpenAI API itself.
func NewOpenAI(apiKey, baseURL, model string, opts ...option.RequestOption) *OpenAI {
	if model == "" {
		model = DefaultOpenAIModel
	}
	reqOpts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(baseURL))
	}
	return &OpenAI{
		client: openai.NewClient(append(reqOpts, opts...)...),
		model:  model,
	}
}

// GenerateNotes implements Writer.
func (o *OpenAI) GenerateNotes(ctx context.Context, transcript string) (string, error) {
	if err := checkTranscript(transcript); err != nil {
		return "", err
	}

	resp, err := o.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(o.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(NotesPrompt(transcript)),
		},
		Temperature: openai.Float(0.1),
		MaxTokens:   openai.Int(4096),
		TopP:        openai.Float(0.9),
	})
	if err != nil {
		return "", fmt.Errorf("failed to generate notes via chat completions: %w", err)
	}
	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return "", ErrEmptyResponse
	}
	return resp.Choices[0].Message.Content, nil
}
