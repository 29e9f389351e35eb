// Package extract implements the content-extraction pipeline (spec
// §4.4): classifying an input URL, then routing it through transcript,
// media, or HTML strategies to produce ExtractedContent.
package extract

import (
	"net/url"
	"path"
	"strings"
)

// Kind is the routing classification for an input URL.
type Kind string

const (
	KindWebsite Kind = "website"
	KindYouTube Kind = "youtube"
	KindAsset   Kind = "asset"
	KindFile    Kind = "file"
)

var youtubeHosts = map[string]bool{
	"youtube.com":     true,
	"www.youtube.com": true,
	"m.youtube.com":   true,
	"youtu.be":        true,
}

var mediaExtensions = map[string]bool{
	".mp3": true, ".mp4": true, ".m4a": true, ".wav": true, ".flac": true,
	".webm": true, ".mov": true, ".mkv": true, ".ogg": true, ".aac": true,
}

// Classify routes a raw input string to its extraction strategy.
// file: scheme (or a bare local path) is KindFile; an http(s) URL is
// further classified as YouTube, a direct media asset (by pathname
// extension), or a generic website.
func Classify(raw string) Kind {
	if strings.HasPrefix(raw, "file:") || !strings.Contains(raw, "://") {
		return KindFile
	}

	u, err := url.Parse(raw)
	if err != nil {
		return KindWebsite
	}

	host := strings.ToLower(u.Hostname())
	if youtubeHosts[host] {
		return KindYouTube
	}

	ext := strings.ToLower(path.Ext(u.Path))
	if mediaExtensions[ext] {
		return KindAsset
	}

	return KindWebsite
}

// YouTubeVideoID extracts the 11-character video ID from a YouTube
// URL, checking youtu.be short links, the "v" query parameter, and
// the /shorts/ and /embed/ path forms.
func YouTubeVideoID(raw string) (string, bool) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", false
	}
	host := strings.ToLower(u.Hostname())
	if !youtubeHosts[host] {
		return "", false
	}

	if host == "youtu.be" {
		id := strings.Trim(u.Path, "/")
		if id != "" {
			return id, true
		}
		return "", false
	}

	if v := u.Query().Get("v"); v != "" {
		return v, true
	}

	for _, prefix := range []string{"/shorts/", "/embed/", "/v/"} {
		if strings.HasPrefix(u.Path, prefix) {
			id := strings.TrimPrefix(u.Path, prefix)
			id = strings.TrimSuffix(id, "/")
			if id != "" {
				return id, true
			}
		}
	}

	return "", false
}

// RescanEmbeddedScheme handles the "URL with embedded https:// after a
// non-http scheme is rescanned from the last prefix" edge case:
// InputTarget validation rejects non-http(s)/file schemes unless an
// embedded http(s) prefix can be extracted, and the LAST
// occurrence wins.
func RescanEmbeddedScheme(raw string) (string, bool) {
	lower := strings.ToLower(raw)
	lastIdx := -1
	for _, s := range []string{"http://", "https://"} {
		if idx := strings.LastIndex(lower, s); idx > lastIdx {
			lastIdx = idx
		}
	}
	if lastIdx < 0 {
		return "", false
	}
	return raw[lastIdx:], true
}
