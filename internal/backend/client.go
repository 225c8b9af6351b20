// Package backend is the HTTP client for the notes backend.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/alkime/scribe/internal/apperr"
)

// Endpoint paths served by the backend.
const (
	PathSaveTranscript    = "/save-transcript"
	PathGenerateNotes     = "/generate-notes"
	PathYoutubeTranscript = "/youtube-transcript"
	PathTranscribe        = "/transcribe"
	PathDownloadPDF       = "/download-pdf"

	// SessionHeader carries the client session identifier.
	SessionHeader = "X-Session-ID"

	// AudioField is the multipart form field holding uploaded audio.
	AudioField = "audio"
	// LanguageField optionally names the spoken language of the audio.
	LanguageField = "language"
	// PersistField set to "false" keeps the transcript out of the session's
	// stored state. Dictation clips are partial and never stored.
	PersistField = "persist"
)

// maxErrorBody bounds how much of an error response is read.
const maxErrorBody = 64 << 10

// Config configures a Client.
type Config struct {
	// BaseURL is the backend root, e.g. http://localhost:8080.
	BaseURL string
	// SessionID is sent with every request.
	SessionID string
	// Timeout bounds each request. Zero means no client-side timeout.
	Timeout time.Duration
	// HTTPClient overrides the underlying client (tests).
	HTTPClient *http.Client
}

// Client calls the backend endpoints. Every method returns an *apperr.Error
// on failure.
type Client struct {
	baseURL   string
	sessionID string
	http      *http.Client
}

// New creates a backend client.
func New(cfg Config) *Client {
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: cfg.Timeout}
	}
	return &Client{
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		sessionID: cfg.SessionID,
		http:      hc,
	}
}

// TranscriptRequest is the body of save and generate requests.
type TranscriptRequest struct {
	Transcript string `json:"transcript"`
}

// VideoRequest is the body of a video transcript request.
type VideoRequest struct {
	SourceURL string `json:"source_url"`
}

// ExportRequest is the body of a PDF export request.
type ExportRequest struct {
	Content string `json:"content"`
}

// Response is the JSON envelope returned by the backend.
type Response struct {
	Status     string `json:"status,omitempty"`
	Transcript string `json:"transcript,omitempty"`
	Notes      string `json:"notes,omitempty"`
	Error      string `json:"error,omitempty"`
}

// SaveTranscript persists the transcript for this session.
func (c *Client) SaveTranscript(ctx context.Context, transcript string) error {
	_, err := c.postJSON(ctx, PathSaveTranscript, TranscriptRequest{Transcript: transcript})
	return err
}

// GenerateNotes asks the backend to turn transcript into markdown notes.
func (c *Client) GenerateNotes(ctx context.Context, transcript string) (string, error) {
	resp, err := c.postJSON(ctx, PathGenerateNotes, TranscriptRequest{Transcript: transcript})
	if err != nil {
		return "", err
	}
	return resp.Notes, nil
}

// FetchVideoTranscript extracts the transcript of a remote video.
func (c *Client) FetchVideoTranscript(ctx context.Context, sourceURL string) (string, error) {
	resp, err := c.postJSON(ctx, PathYoutubeTranscript, VideoRequest{SourceURL: sourceURL})
	if err != nil {
		return "", err
	}
	return resp.Transcript, nil
}

// TranscribeAudio uploads audio as multipart form data and returns its
// transcript. The backend stores it as the session transcript.
func (c *Client) TranscribeAudio(ctx context.Context, filename string, audio io.Reader) (string, error) {
	return c.transcribe(ctx, filename, audio, nil)
}

// TranscribeClip transcribes a dictation clip without storing the result.
// language may be empty.
func (c *Client) TranscribeClip(ctx context.Context, filename, language string, audio io.Reader) (string, error) {
	fields := map[string]string{PersistField: "false"}
	if language != "" {
		fields[LanguageField] = language
	}
	return c.transcribe(ctx, filename, audio, fields)
}

func (c *Client) transcribe(ctx context.Context, filename string, audio io.Reader, fields map[string]string) (string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			return "", apperr.Network(fmt.Errorf("failed to write form field %s: %w", k, err))
		}
	}
	part, err := w.CreateFormFile(AudioField, filename)
	if err != nil {
		return "", apperr.Network(fmt.Errorf("failed to create multipart part: %w", err))
	}
	if _, err := io.Copy(part, audio); err != nil {
		return "", apperr.Network(fmt.Errorf("failed to read audio: %w", err))
	}
	if err := w.Close(); err != nil {
		return "", apperr.Network(fmt.Errorf("failed to finish multipart body: %w", err))
	}

	body, err := c.do(ctx, http.MethodPost, PathTranscribe, &buf, w.FormDataContentType())
	if err != nil {
		return "", err
	}
	resp, err := decode(body)
	if err != nil {
		return "", err
	}
	return resp.Transcript, nil
}

// ExportPDF renders already-sanitized markup into a PDF document.
func (c *Client) ExportPDF(ctx context.Context, content string) ([]byte, error) {
	payload, err := json.Marshal(ExportRequest{Content: content})
	if err != nil {
		return nil, apperr.Network(fmt.Errorf("failed to encode request: %w", err))
	}
	return c.do(ctx, http.MethodPost, PathDownloadPDF, bytes.NewReader(payload), "application/json")
}

func (c *Client) postJSON(ctx context.Context, path string, in any) (*Response, error) {
	payload, err := json.Marshal(in)
	if err != nil {
		return nil, apperr.Network(fmt.Errorf("failed to encode request: %w", err))
	}
	body, err := c.do(ctx, http.MethodPost, path, bytes.NewReader(payload), "application/json")
	if err != nil {
		return nil, err
	}
	return decode(body)
}

// do sends a request and returns the body of a 2xx response.
func (c *Client) do(ctx context.Context, method, path string, body io.Reader, contentType string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, apperr.Network(fmt.Errorf("failed to build request: %w", err))
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if c.sessionID != "" {
		req.Header.Set(SessionHeader, c.sessionID)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil && errors.Is(ctx.Err(), context.Canceled) {
			return nil, apperr.Canceled(err)
		}
		return nil, apperr.Network(err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, classifyStatus(resp.StatusCode, data)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperr.Network(fmt.Errorf("failed to read response body: %w", err))
	}
	return data, nil
}

// decode parses a JSON envelope; an envelope carrying an error message is a
// server error even on 2xx.
func decode(body []byte) (*Response, error) {
	var resp Response
	if len(bytes.TrimSpace(body)) == 0 {
		return &resp, nil
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, apperr.Server(http.StatusOK, fmt.Sprintf("malformed response: %v", err))
	}
	if resp.Error != "" {
		return nil, apperr.Server(http.StatusOK, resp.Error)
	}
	return &resp, nil
}

// classifyStatus converts a non-2xx response into a server error, using the
// backend's {error} message when it sent one.
func classifyStatus(status int, body []byte) error {
	var resp Response
	if err := json.Unmarshal(body, &resp); err == nil && resp.Error != "" {
		return apperr.Server(status, resp.Error)
	}
	msg := strings.TrimSpace(string(body))
	if msg == "" {
		msg = http.StatusText(status)
	}
	return apperr.Server(status, msg)
}
