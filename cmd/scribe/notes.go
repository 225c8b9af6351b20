package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/google/uuid"

	"github.com/alkime/scribe/internal/config"
	"github.com/alkime/scribe/internal/ingest"
	"github.com/alkime/scribe/internal/notes"
	"github.com/alkime/scribe/internal/videourl"
)

// NotesCmd generates notes without the terminal UI.
type NotesCmd struct {
	BackendFlags `embed:""`

	Source string `arg:"" help:"Text file, audio file (mp3, wav, m4a, ogg, flac), video URL, or - for stdin"`
	Out    string `flag:"" short:"o" optional:"" help:"Write markdown notes here instead of stdout"`
	PDF    string `flag:"" name:"pdf" optional:"" help:"Also export the notes as a PDF to this path"`
}

// notesBackend is the part of the backend client the notes command uses.
type notesBackend interface {
	GenerateNotes(ctx context.Context, transcript string) (string, error)
	FetchVideoTranscript(ctx context.Context, sourceURL string) (string, error)
	TranscribeAudio(ctx context.Context, filename string, audio io.Reader) (string, error)
	ExportPDF(ctx context.Context, content string) ([]byte, error)
}

// Run executes the notes command.
func (c *NotesCmd) Run() error {
	ctx := context.Background()

	cfg, err := config.LoadClient()
	if err != nil {
		return err
	}
	client := c.client(cfg, uuid.NewString())

	transcript, err := transcriptFor(ctx, client, c.Source, os.Stdin)
	if err != nil {
		return err
	}
	slog.Info("Generating notes", "words", len(strings.Fields(transcript)))

	md, err := client.GenerateNotes(ctx, transcript)
	if err != nil {
		return fmt.Errorf("failed to generate notes: %w", err)
	}

	if c.Out == "" {
		fmt.Println(md)
	} else if err := os.WriteFile(c.Out, []byte(md+"\n"), 0o644); err != nil {
		return fmt.Errorf("failed to write notes: %w", err)
	}

	if c.PDF != "" {
		if err := exportPDF(ctx, client, md, c.PDF); err != nil {
			return err
		}
		slog.Info("Exported notes", "path", c.PDF)
	}

	return nil
}

// transcriptFor reads, fetches or transcribes source depending on what it
// names.
func transcriptFor(ctx context.Context, b notesBackend, source string, stdin io.Reader) (string, error) {
	var (
		text string
		err  error
	)

	switch {
	case source == "-":
		var raw []byte
		raw, err = io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("failed to read stdin: %w", err)
		}
		text = string(raw)

	case videourl.Supported(source):
		slog.Info("Fetching video transcript", "url", source)
		text, err = b.FetchVideoTranscript(ctx, source)
		if err != nil {
			return "", fmt.Errorf("failed to fetch video transcript: %w", err)
		}

	case slices.Contains(ingest.AudioExtensions, strings.ToLower(filepath.Ext(source))):
		text, err = transcribeFile(ctx, b, source)
		if err != nil {
			return "", err
		}

	default:
		var raw []byte
		raw, err = os.ReadFile(source)
		if err != nil {
			return "", fmt.Errorf("failed to read %s: %w", source, err)
		}
		text = string(raw)
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return "", errors.New("transcript is empty")
	}

	return text, nil
}

func transcribeFile(ctx context.Context, b notesBackend, path string) (string, error) {
	f, err := ingest.OpenFile(path)
	if err != nil {
		return "", err
	}
	if err := ingest.ValidateAudio(f.Name, f.Size); err != nil {
		return "", err
	}

	rc, err := f.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer rc.Close()

	slog.Info("Transcribing audio", "file", f.Name, "bytes", f.Size)
	text, err := b.TranscribeAudio(ctx, f.Name, rc)
	if err != nil {
		return "", fmt.Errorf("failed to transcribe audio: %w", err)
	}

	return text, nil
}

func exportPDF(ctx context.Context, b notesBackend, md, path string) error {
	markup, err := notes.NewRenderer().Render(md)
	if err != nil {
		return fmt.Errorf("failed to render notes: %w", err)
	}

	doc, err := b.ExportPDF(ctx, markup)
	if err != nil {
		return fmt.Errorf("failed to export pdf: %w", err)
	}

	if err := os.WriteFile(path, doc, 0o644); err != nil {
		return fmt.Errorf("failed to write pdf: %w", err)
	}

	return nil
}
