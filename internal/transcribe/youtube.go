package transcribe

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/kkdai/youtube/v2"

	"github.com/alkime/scribe/internal/videourl"
)

// ErrNoCaptions is returned for videos without a caption track.
var ErrNoCaptions = errors.New("video has no captions")

// videoClient is the part of youtube.Client used for captions.
type videoClient interface {
	GetVideoContext(ctx context.Context, id string) (*youtube.Video, error)
	GetTranscriptCtx(ctx context.Context, video *youtube.Video, lang string) (youtube.VideoTranscript, error)
}

// Captions extracts video transcripts from YouTube caption tracks.
type Captions struct {
	client   videoClient
	language string
}

// NewCaptions creates a caption fetcher preferring language.
func NewCaptions(language string) *Captions {
	if language == "" {
		language = "en"
	}
	return &Captions{client: &youtube.Client{}, language: language}
}

// Fetch returns the caption text of the video at sourceURL. Errors wrap
// videourl.ErrUnsupported for URLs without a video id.
func (c *Captions) Fetch(ctx context.Context, sourceURL string) (string, error) {
	id, err := videourl.ID(sourceURL)
	if err != nil {
		return "", err
	}

	video, err := c.client.GetVideoContext(ctx, id)
	if err != nil {
		return "", fmt.Errorf("failed to load video %s: %w", id, err)
	}
	if len(video.CaptionTracks) == 0 {
		return "", ErrNoCaptions
	}

	lang := c.language
	if !hasTrack(video, lang) {
		lang = video.CaptionTracks[0].LanguageCode
	}

	segments, err := c.client.GetTranscriptCtx(ctx, video, lang)
	if err != nil {
		return "", fmt.Errorf("failed to fetch captions for %s: %w", id, err)
	}
	return joinSegments(segments), nil
}

func hasTrack(video *youtube.Video, lang string) bool {
	for _, track := range video.CaptionTracks {
		if track.LanguageCode == lang {
			return true
		}
	}
	return false
}

// joinSegments joins caption segments with single spaces.
func joinSegments(segments youtube.VideoTranscript) string {
	parts := make([]string, 0, len(segments))
	for _, s := range segments {
		if text := strings.Join(strings.Fields(s.Text), " "); text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, " ")
}
