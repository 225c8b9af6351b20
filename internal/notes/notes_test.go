package notes

import (
	"context"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alkime/scribe/internal/apperr"
	"github.com/alkime/scribe/internal/remote"
)

type generatorFunc func(ctx context.Context, transcript string) (string, error)

func (f generatorFunc) GenerateNotes(ctx context.Context, transcript string) (string, error) {
	return f(ctx, transcript)
}

func TestRenderStripsScripts(t *testing.T) {
	out, err := NewRenderer().Render("# Title\n<script>evil()</script>")
	require.NoError(t, err)

	assert.Contains(t, out, "<h1>Title</h1>")
	assert.NotContains(t, out, "<script")
	assert.NotContains(t, out, "evil()")
}

func TestRenderKeepsStructure(t *testing.T) {
	md := strings.Join([]string{
		"## Summary",
		"",
		"- **bold** and *italic*",
		"- ~~gone~~",
		"",
		"1. first",
		"2. second",
		"",
		"> quoted",
		"",
		"| a | b |",
		"|---|---|",
		"| 1 | 2 |",
		"",
		"```go",
		"fmt.Println()",
		"```",
	}, "\n")

	out, err := NewRenderer().Render(md)
	require.NoError(t, err)

	for _, want := range []string{
		"<h2>Summary</h2>", "<strong>bold</strong>", "<em>italic</em>", "<del>gone</del>",
		"<ol>", "<li>first</li>", "<blockquote>", "<table>", "<td>1</td>", "<pre><code",
	} {
		assert.Contains(t, out, want)
	}
}

func TestRenderLinks(t *testing.T) {
	out, err := NewRenderer().Render("[site](https://example.com) and [bad](javascript:alert(1))")
	require.NoError(t, err)

	assert.Contains(t, out, `href="https://example.com"`)
	assert.Contains(t, out, `target="_blank"`)
	assert.Contains(t, out, "noopener")
	assert.Contains(t, out, "noreferrer")
	assert.NotContains(t, out, "javascript:")
}

func TestRenderDropsEventHandlers(t *testing.T) {
	out, err := NewRenderer().Render(`<p onclick="steal()">hi</p><img src=x onerror=alert(1)>`)
	require.NoError(t, err)

	assert.NotContains(t, out, "onclick")
	assert.NotContains(t, out, "onerror")
	assert.NotContains(t, out, "<img")
}

func TestGenerateEmptySnapshot(t *testing.T) {
	var calls atomic.Int32
	p := NewPipeline(remote.NewCoordinator(remote.Inline, nil), generatorFunc(func(context.Context, string) (string, error) {
		calls.Add(1)
		return "", nil
	}), nil)

	h, err := p.Generate(t.Context(), "  ", func(*Artifact, error) { t.Fatal("unexpected completion") })
	assert.Nil(t, h)
	assert.ErrorIs(t, err, apperr.ErrValidation)
	assert.Zero(t, calls.Load())
}

func TestGenerateProducesSanitizedArtifact(t *testing.T) {
	coord := remote.NewCoordinator(remote.Inline, nil)
	p := NewPipeline(coord, generatorFunc(func(_ context.Context, transcript string) (string, error) {
		return "# Title\n<script>evil()</script>\n\n" + transcript, nil
	}), nil)
	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	p.now = func() time.Time { return fixed }

	var got *Artifact
	_, err := p.Generate(t.Context(), "body text", func(a *Artifact, err error) {
		require.NoError(t, err)
		got = a
	})
	require.NoError(t, err)
	coord.Wait()

	require.NotNil(t, got)
	assert.Contains(t, got.SanitizedMarkup, "<h1>Title</h1>")
	assert.NotContains(t, got.SanitizedMarkup, "<script")
	assert.Contains(t, got.Raw, "<script>", "raw content is kept verbatim")
	assert.Equal(t, fixed, got.CreatedAt)
}

func TestSecondGenerateWins(t *testing.T) {
	coord := remote.NewCoordinator(remote.Inline, nil)
	release := make(chan struct{})
	p := NewPipeline(coord, generatorFunc(func(ctx context.Context, transcript string) (string, error) {
		if transcript == "first" {
			select {
			case <-release:
			case <-ctx.Done():
			}
		}
		return "# " + transcript, nil
	}), nil)

	var delivered []string
	first, err := p.Generate(t.Context(), "first", func(a *Artifact, err error) {
		delivered = append(delivered, "first")
	})
	require.NoError(t, err)
	second, err := p.Generate(t.Context(), "second", func(a *Artifact, err error) {
		require.NoError(t, err)
		delivered = append(delivered, a.Raw)
	})
	require.NoError(t, err)
	close(release)
	coord.Wait()

	assert.Equal(t, []string{"# second"}, delivered)
	assert.Equal(t, remote.Cancelled, coord.Status(first))
	assert.Equal(t, remote.Succeeded, coord.Status(second))
}

func TestGenerateFailure(t *testing.T) {
	coord := remote.NewCoordinator(remote.Inline, nil)
	p := NewPipeline(coord, generatorFunc(func(context.Context, string) (string, error) {
		return "", apperr.Server(502, "upstream unavailable")
	}), nil)

	var gotErr error
	_, err := p.Generate(t.Context(), "text", func(a *Artifact, err error) {
		assert.Nil(t, a)
		gotErr = err
	})
	require.NoError(t, err)
	coord.Wait()

	assert.ErrorIs(t, gotErr, apperr.ErrServer)
	assert.Contains(t, gotErr.Error(), "upstream unavailable")
}
