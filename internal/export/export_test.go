package export

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alkime/scribe/internal/apperr"
	"github.com/alkime/scribe/internal/notes"
	"github.com/alkime/scribe/internal/remote"
)

type fakeRenderer struct {
	calls   atomic.Int32
	content atomic.Value
}

func (r *fakeRenderer) ExportPDF(_ context.Context, content string) ([]byte, error) {
	r.calls.Add(1)
	r.content.Store(content)
	return []byte("%PDF-1.3 fake"), nil
}

func TestExportWithoutNotes(t *testing.T) {
	r := &fakeRenderer{}
	c := NewController(remote.NewCoordinator(remote.Inline, nil), r, DirSink{Dir: t.TempDir()}, nil)

	h, err := c.Export(t.Context(), nil, func(string, error) { t.Fatal("unexpected completion") })
	assert.Nil(t, h)
	assert.ErrorIs(t, err, apperr.ErrValidation)
	assert.Zero(t, r.calls.Load())
}

func TestExportUsesSanitizedMarkup(t *testing.T) {
	dir := t.TempDir()
	coord := remote.NewCoordinator(remote.Inline, nil)
	r := &fakeRenderer{}
	c := NewController(coord, r, DirSink{Dir: dir}, nil)

	artifact := &notes.Artifact{Raw: "# Raw <script>", SanitizedMarkup: "<h1>Raw</h1>"}
	var path string
	_, err := c.Export(t.Context(), artifact, func(p string, err error) {
		require.NoError(t, err)
		path = p
	})
	require.NoError(t, err)
	coord.Wait()

	assert.Equal(t, "<h1>Raw</h1>", r.content.Load())
	assert.Equal(t, filepath.Join(dir, FileName), path)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.3 fake", string(data))
}

func TestDirSinkCreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "out")

	path, err := DirSink{Dir: dir}.Store("x.pdf", []byte("pdf"))
	require.NoError(t, err)
	assert.FileExists(t, path)
}
