// Package notes turns a transcript snapshot into a rendered notes artifact.
package notes

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/alkime/scribe/internal/apperr"
	"github.com/alkime/scribe/internal/remote"
)

// Artifact is a generated notes document.
//
// SanitizedMarkup is only ever produced by a Renderer, so it is safe to hand
// to any display or export surface.
type Artifact struct {
	Raw             string
	SanitizedMarkup string
	CreatedAt       time.Time
}

// Generator produces markdown notes from a transcript.
type Generator interface {
	GenerateNotes(ctx context.Context, transcript string) (string, error)
}

// Pipeline generates and renders notes through the coordinator.
type Pipeline struct {
	coord    *remote.Coordinator
	gen      Generator
	renderer *Renderer
	now      func() time.Time
	logger   *slog.Logger
}

// NewPipeline creates a notes pipeline.
func NewPipeline(coord *remote.Coordinator, gen Generator, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		coord:    coord,
		gen:      gen,
		renderer: NewRenderer(),
		now:      time.Now,
		logger:   logger.With("component", "notes"),
	}
}

// Generate dispatches notes generation for snapshot. An empty snapshot is a
// validation error and makes no request. done receives the artifact or a
// classified error, and only for the most recent request.
func (p *Pipeline) Generate(ctx context.Context, snapshot string, done func(*Artifact, error)) (*remote.Handle, error) {
	if strings.TrimSpace(snapshot) == "" {
		return nil, apperr.Validation("transcript", "no transcript to generate notes from")
	}

	h := remote.Dispatch(p.coord, ctx, remote.GenerateNotes,
		func(ctx context.Context) (*Artifact, error) {
			raw, err := p.gen.GenerateNotes(ctx, snapshot)
			if err != nil {
				return nil, err
			}
			if strings.TrimSpace(raw) == "" {
				return nil, apperr.Server(0, "the notes service returned no content")
			}
			markup, err := p.renderer.Render(raw)
			if err != nil {
				return nil, &apperr.Error{Kind: apperr.ServerError, Message: "notes could not be rendered", Cause: err}
			}
			return &Artifact{Raw: raw, SanitizedMarkup: markup, CreatedAt: p.now()}, nil
		},
		func(a *Artifact, err error) {
			if err != nil {
				p.logger.Warn("notes generation failed", "error", err)
			}
			done(a, err)
		},
	)
	return h, nil
}
