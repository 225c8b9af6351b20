package ingest

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/alkime/scribe/internal/apperr"
)

// MaxAudioBytes is the largest accepted audio upload (100 MiB).
const MaxAudioBytes int64 = 100 << 20

// AudioExtensions lists the accepted audio file extensions.
var AudioExtensions = []string{".mp3", ".wav", ".m4a", ".ogg", ".flac"}

// File is an audio file selected for upload.
type File struct {
	// Name is the file's base name; its extension selects the format.
	Name string
	// Size is the file length in bytes.
	Size int64
	// Open returns the file content. It is only called after validation.
	Open func() (io.ReadCloser, error)
}

// OpenFile describes the audio file at path.
func OpenFile(path string) (File, error) {
	info, err := os.Stat(path)
	if err != nil {
		return File{}, apperr.Validation("audio", fmt.Sprintf("cannot read %s", path))
	}
	if info.IsDir() {
		return File{}, apperr.Validation("audio", fmt.Sprintf("%s is a directory", path))
	}
	return File{
		Name: filepath.Base(path),
		Size: info.Size(),
		Open: func() (io.ReadCloser, error) {
			return os.Open(path)
		},
	}, nil
}

// ValidateAudio checks an upload's extension and size without touching the
// network.
func ValidateAudio(name string, size int64) error {
	ext := strings.ToLower(filepath.Ext(name))
	if !slices.Contains(AudioExtensions, ext) {
		return apperr.Validation("audio",
			fmt.Sprintf("unsupported file type %q, use one of %s", ext, strings.Join(AudioExtensions, " ")))
	}
	if size > MaxAudioBytes {
		return apperr.Validation("audio",
			fmt.Sprintf("file is too large (%d MiB), the limit is %d MiB", size>>20, MaxAudioBytes>>20))
	}
	if size <= 0 {
		return apperr.Validation("audio", "file is empty")
	}
	return nil
}
