package server

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/alkime/scribe/internal/apperr"
	"github.com/alkime/scribe/internal/backend"
	"github.com/alkime/scribe/internal/export"
	"github.com/alkime/scribe/internal/ingest"
	"github.com/alkime/scribe/internal/pdf"
	"github.com/alkime/scribe/internal/store"
	"github.com/alkime/scribe/internal/transcribe"
	"github.com/alkime/scribe/internal/videourl"
)

// formOverhead is allowed on top of the upload limit for multipart framing.
const formOverhead = 1 << 20

func (s *Server) fail(c *gin.Context, status int, msg string, err error) {
	if err != nil {
		s.logger.Error(msg, "error", err, "session_id", sessionID(c), "path", c.FullPath())
	}
	c.JSON(status, gin.H{"error": msg})
}

func (s *Server) handleSaveTranscript(c *gin.Context) {
	var req backend.TranscriptRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Transcript) == "" {
		s.fail(c, http.StatusBadRequest, "No transcript provided", nil)
		return
	}

	if err := s.deps.Store.SaveTranscript(c.Request.Context(), sessionID(c), req.Transcript); err != nil {
		s.fail(c, http.StatusInternalServerError, "Failed to save transcript", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success"})
}

func (s *Server) handleGenerateNotes(c *gin.Context) {
	if s.deps.Notes == nil {
		s.fail(c, http.StatusServiceUnavailable, "Notes generation is not configured", nil)
		return
	}

	var req backend.TranscriptRequest
	// an empty body falls back to the stored transcript
	_ = c.ShouldBindJSON(&req)
	ctx := c.Request.Context()
	id := sessionID(c)

	transcript := req.Transcript
	if strings.TrimSpace(transcript) == "" {
		stored, err := s.deps.Store.Transcript(ctx, id)
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			s.fail(c, http.StatusInternalServerError, "Failed to load transcript", err)
			return
		}
		transcript = stored
	}
	if strings.TrimSpace(transcript) == "" {
		s.fail(c, http.StatusBadRequest, "No transcript provided", nil)
		return
	}

	md, err := s.deps.Notes.GenerateNotes(ctx, transcript)
	if err != nil {
		s.fail(c, http.StatusInternalServerError, "Failed to generate notes", err)
		return
	}
	if err := s.deps.Store.SaveNotes(ctx, id, md); err != nil {
		s.fail(c, http.StatusInternalServerError, "Failed to save notes", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"notes": md})
}

func (s *Server) handleYoutubeTranscript(c *gin.Context) {
	var req backend.VideoRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.SourceURL) == "" {
		s.fail(c, http.StatusBadRequest, "No video URL provided", nil)
		return
	}
	if s.deps.Videos == nil {
		s.fail(c, http.StatusServiceUnavailable, "Video transcripts are not configured", nil)
		return
	}

	ctx := c.Request.Context()
	text, err := s.deps.Videos.Fetch(ctx, req.SourceURL)
	switch {
	case errors.Is(err, videourl.ErrUnsupported):
		s.fail(c, http.StatusBadRequest, "Could not extract video ID from the provided URL", nil)
		return
	case errors.Is(err, transcribe.ErrNoCaptions):
		s.fail(c, http.StatusNotFound, "This video has no transcript", nil)
		return
	case err != nil:
		s.fail(c, http.StatusInternalServerError, "Failed to get transcript", err)
		return
	}

	if err := s.deps.Store.SaveTranscript(ctx, sessionID(c), text); err != nil {
		s.fail(c, http.StatusInternalServerError, "Failed to save transcript", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"transcript": text})
}

func (s *Server) handleTranscribe(c *gin.Context) {
	if s.deps.Audio == nil {
		s.fail(c, http.StatusServiceUnavailable, "Transcription is not configured", nil)
		return
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.config.MaxUploadBytes+formOverhead)
	fh, err := c.FormFile(backend.AudioField)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.fail(c, http.StatusRequestEntityTooLarge, "Audio file is too large", nil)
			return
		}
		s.fail(c, http.StatusBadRequest, "No audio file provided", nil)
		return
	}
	if fh.Size > s.config.MaxUploadBytes {
		s.fail(c, http.StatusRequestEntityTooLarge, "Audio file is too large", nil)
		return
	}
	if err := ingest.ValidateAudio(fh.Filename, fh.Size); err != nil {
		s.fail(c, http.StatusBadRequest, apperr.Classify(err).Message, nil)
		return
	}

	path, err := saveTemp(fh)
	if err != nil {
		s.fail(c, http.StatusInternalServerError, "Failed to store audio", err)
		return
	}
	defer os.Remove(path)

	f, err := os.Open(path)
	if err != nil {
		s.fail(c, http.StatusInternalServerError, "Failed to store audio", err)
		return
	}
	defer f.Close()

	ctx := c.Request.Context()
	text, err := s.deps.Audio.Transcribe(ctx, filepath.Base(path), c.PostForm(backend.LanguageField), f)
	if err != nil {
		s.fail(c, http.StatusInternalServerError, "Failed to transcribe audio", err)
		return
	}
	// dictation clips are partial windows of a recording
	if c.PostForm(backend.PersistField) == "false" {
		c.JSON(http.StatusOK, gin.H{"transcript": text})
		return
	}
	if err := s.deps.Store.SaveTranscript(ctx, sessionID(c), text); err != nil {
		s.fail(c, http.StatusInternalServerError, "Failed to save transcript", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"transcript": text})
}

// saveTemp copies the uploaded audio to a temporary file that keeps the
// original extension, since the transcriber infers the format from it.
func saveTemp(fh *multipart.FileHeader) (string, error) {
	in, err := fh.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open upload: %w", err)
	}
	defer in.Close()

	out, err := os.CreateTemp("", "scribe-*"+strings.ToLower(filepath.Ext(fh.Filename)))
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(out.Name())
		return "", fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := out.Close(); err != nil {
		os.Remove(out.Name())
		return "", fmt.Errorf("failed to write temp file: %w", err)
	}
	return out.Name(), nil
}

// handleDownloadPDF renders notes as a PDF. GET uses the session's stored
// notes; POST renders the markup in the body.
func (s *Server) handleDownloadPDF(c *gin.Context) {
	ctx := c.Request.Context()

	var markup string
	if c.Request.Method == http.MethodPost {
		var req backend.ExportRequest
		if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Content) == "" {
			s.fail(c, http.StatusBadRequest, "No content provided", nil)
			return
		}
		// content arrives already sanitized but is checked again
		markup = s.renderer.Sanitize(req.Content)
	} else {
		md, err := s.deps.Store.Notes(ctx, sessionID(c))
		if errors.Is(err, store.ErrNotFound) {
			s.fail(c, http.StatusBadRequest, "No notes available to download", nil)
			return
		}
		if err != nil {
			s.fail(c, http.StatusInternalServerError, "Failed to load notes", err)
			return
		}
		markup, err = s.renderer.Render(md)
		if err != nil {
			s.fail(c, http.StatusInternalServerError, "Failed to render notes", err)
			return
		}
	}

	doc, err := pdf.Render(markup)
	if errors.Is(err, pdf.ErrEmpty) {
		s.fail(c, http.StatusBadRequest, "No content provided", nil)
		return
	}
	if err != nil {
		s.fail(c, http.StatusInternalServerError, "Failed to generate PDF", err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.FileName))
	c.Data(http.StatusOK, "application/pdf", doc)
}
