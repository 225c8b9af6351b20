// Package export renders the current notes artifact into a downloadable
// document.
package export

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/alkime/scribe/internal/apperr"
	"github.com/alkime/scribe/internal/notes"
	"github.com/alkime/scribe/internal/remote"
)

// FileName is the name of the exported document.
const FileName = "structured_notes.pdf"

// Renderer turns sanitized markup into PDF bytes.
type Renderer interface {
	ExportPDF(ctx context.Context, content string) ([]byte, error)
}

// Sink stores an exported document and returns where it went.
type Sink interface {
	Store(name string, pdf []byte) (string, error)
}

// DirSink writes documents into a directory.
type DirSink struct {
	Dir string
}

// Store writes pdf to Dir/name, creating Dir if needed.
func (s DirSink) Store(name string, pdf []byte) (string, error) {
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create export directory: %w", err)
	}
	path := filepath.Join(s.Dir, name)
	if err := os.WriteFile(path, pdf, 0o644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}
	return path, nil
}

// Controller exports notes artifacts through the coordinator.
type Controller struct {
	coord    *remote.Coordinator
	renderer Renderer
	sink     Sink
	logger   *slog.Logger
}

// NewController creates an export controller.
func NewController(coord *remote.Coordinator, renderer Renderer, sink Sink, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{
		coord:    coord,
		renderer: renderer,
		sink:     sink,
		logger:   logger.With("component", "export"),
	}
}

// Export renders artifact's sanitized markup. Without an artifact it fails
// with a validation error and makes no request. done receives the stored
// document's location.
func (c *Controller) Export(ctx context.Context, artifact *notes.Artifact, done func(string, error)) (*remote.Handle, error) {
	if artifact == nil || artifact.SanitizedMarkup == "" {
		return nil, apperr.Validation("notes", "generate notes before exporting")
	}
	content := artifact.SanitizedMarkup

	h := remote.Dispatch(c.coord, ctx, remote.ExportPdf,
		func(ctx context.Context) ([]byte, error) {
			return c.renderer.ExportPDF(ctx, content)
		},
		func(pdf []byte, err error) {
			if err != nil {
				done("", err)
				return
			}
			path, err := c.sink.Store(FileName, pdf)
			if err != nil {
				c.logger.Error("failed to store export", "error", err)
				done("", &apperr.Error{Kind: apperr.ValidationError, Field: "export", Message: "could not save the document", Cause: err})
				return
			}
			c.logger.Info("exported notes", "path", path, "bytes", len(pdf))
			done(path, nil)
		},
	)
	return h, nil
}
