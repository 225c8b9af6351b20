// Package videourl recognizes supported remote video links.
package videourl

import (
	"errors"
	"net/url"
	"regexp"
	"strings"
)

// ErrUnsupported is returned for links that name no supported video.
var ErrUnsupported = errors.New("unsupported video URL")

const shortHost = "youtu.be"

var (
	hosts = map[string]bool{
		"youtube.com":     true,
		"www.youtube.com": true,
		"m.youtube.com":   true,
		shortHost:         true,
	}

	// prefixes are the youtube.com paths followed by the video ID.
	prefixes = []string{"/embed/", "/v/", "/shorts/"}

	validID = regexp.MustCompile(`^[\w-]+$`)
)

// ID extracts the video identifier from a watch, short, embed, legacy or
// shorts link. Links without a scheme are read as https.
func ID(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", ErrUnsupported
	}
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return "", ErrUnsupported
	}
	host := strings.ToLower(u.Hostname())
	if !hosts[host] {
		return "", ErrUnsupported
	}

	var id string
	switch {
	case host == shortHost:
		id = strings.TrimPrefix(u.Path, "/")
	case u.Path == "/watch":
		id = u.Query().Get("v")
	default:
		for _, p := range prefixes {
			if rest, ok := strings.CutPrefix(u.Path, p); ok {
				id, _, _ = strings.Cut(rest, "/")
				break
			}
		}
	}
	if !validID.MatchString(id) {
		return "", ErrUnsupported
	}
	return id, nil
}

// Supported reports whether raw is a link ID understands.
func Supported(raw string) bool {
	_, err := ID(raw)
	return err == nil
}
