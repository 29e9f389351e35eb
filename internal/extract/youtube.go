package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shaneholloman/summarize/internal/metacache"
)

// TranscriptActorFunc is the shape of a call to an external
// transcript-fetching service. The type is declared only: the
// Extractor holds no such function and extractYouTube never calls one.
type TranscriptActorFunc func(ctx context.Context, videoID, token string) (string, error)

// extractYouTube fetches the video's caption track through yt-dlp
// (manually authored subtitles first, automatic captions otherwise) and
// flattens it to plain text. That is its only source: no platform
// transcript API and no external transcript service is consulted, so a
// video without caption tracks yields an error. The text is cached
// under TranscriptKey(url, "yt:"+mode, "") with mode "manual" or "auto".
func (e *Extractor) extractYouTube(ctx context.Context, rawURL string, settings Settings) (*ExtractedContent, error) {
	const op = "Extractor.extractYouTube"

	videoID, ok := YouTubeVideoID(rawURL)
	if !ok {
		return nil, fmt.Errorf("extract: %s: not a recognizable youtube url: %s", op, rawURL)
	}

	var diagnostics []string

	if text, mode, err := e.fetchYouTubeCaptions(ctx, videoID); err == nil && text != "" {
		return e.cacheYouTube(ctx, rawURL, mode, text, diagnostics)
	} else if err != nil {
		diagnostics = append(diagnostics, fmt.Sprintf("captions: %v", err))
	}

	return nil, fmt.Errorf("extract: %s: no transcript available for %s: %s", op, rawURL, strings.Join(diagnostics, "; "))
}

func (e *Extractor) cacheYouTube(ctx context.Context, rawURL, mode, text string, diagnostics []string) (*ExtractedContent, error) {
	if e.Transcripts != nil {
		key := metacache.TranscriptKey(rawURL, "yt:"+mode, "")
		_ = e.Transcripts.Put(ctx, key, "transcript", []byte(text))
	}
	return &ExtractedContent{
		FinalURL:    rawURL,
		Text:        text,
		Source:      "youtube-transcript",
		Diagnostics: diagnostics,
	}, nil
}

// ytDlpInfo mirrors the subset of `yt-dlp -J` output this pipeline
// reads: subtitles and automatic_captions, each keyed by language code
// to a list of format entries (a "vtt" entry is preferred).
type ytDlpInfo struct {
	Title             string                         `json:"title"`
	AutomaticCaptions map[string][]ytDlpSubtitleTrack `json:"automatic_captions"`
	Subtitles         map[string][]ytDlpSubtitleTrack `json:"subtitles"`
}

type ytDlpSubtitleTrack struct {
	Ext string `json:"ext"`
	URL string `json:"url"`
}

// fetchYouTubeCaptions shells out to yt-dlp to dump video info (which
// includes direct URLs to caption tracks), preferring manually
// authored subtitles over automatic captions, then downloads and
// flattens the caption track to plain text.
func (e *Extractor) fetchYouTubeCaptions(ctx context.Context, videoID string) (text string, mode string, err error) {
	if e.Scripts == nil {
		return "", "", fmt.Errorf("extract: no script runner configured for yt-dlp")
	}

	url := "https://www.youtube.com/watch?v=" + videoID
	result, err := e.Scripts.Run(ctx, "yt-dlp", "-J", "--skip-download", url)
	if err != nil {
		return "", "", fmt.Errorf("yt-dlp info: %w", err)
	}

	var info ytDlpInfo
	if err := json.Unmarshal(result.Stdout, &info); err != nil {
		return "", "", fmt.Errorf("parse yt-dlp info: %w", err)
	}

	track, trackMode, ok := pickCaptionTrack(info)
	if !ok {
		return "", "", fmt.Errorf("no caption tracks available")
	}

	capResult, err := e.Scripts.Run(ctx, "curl", "-sL", track.URL)
	if err != nil {
		return "", "", fmt.Errorf("download caption track: %w", err)
	}

	return captionTrackToText(string(capResult.Stdout)), trackMode, nil
}

func pickCaptionTrack(info ytDlpInfo) (ytDlpSubtitleTrack, string, bool) {
	if tracks, ok := bestEnglishTrack(info.Subtitles); ok {
		return tracks, "manual", true
	}
	if tracks, ok := bestEnglishTrack(info.AutomaticCaptions); ok {
		return tracks, "auto", true
	}
	return ytDlpSubtitleTrack{}, "", false
}

func bestEnglishTrack(byLang map[string][]ytDlpSubtitleTrack) (ytDlpSubtitleTrack, bool) {
	for _, lang := range []string{"en", "en-US", "en-GB"} {
		if formats, ok := byLang[lang]; ok {
			for _, f := range formats {
				if f.Ext == "vtt" {
					return f, true
				}
			}
			if len(formats) > 0 {
				return formats[0], true
			}
		}
	}
	for _, formats := range byLang {
		if len(formats) > 0 {
			return formats[0], true
		}
	}
	return ytDlpSubtitleTrack{}, false
}

// captionTrackToText strips WebVTT cue timing/markup down to plain
// text lines, deduplicating consecutive repeated lines (a common VTT
// artifact from rolling captions).
func captionTrackToText(vtt string) string {
	lines := strings.Split(vtt, "\n")
	var out []string
	var lastLine string
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" || line == "WEBVTT" || strings.Contains(line, "-->") {
			continue
		}
		if strings.HasPrefix(line, "Kind:") || strings.HasPrefix(line, "Language:") {
			continue
		}
		line = collapseWhitespace(stripVTTTags(line))
		if line == "" || line == lastLine {
			continue
		}
		out = append(out, line)
		lastLine = line
	}
	return collapseWhitespace(strings.Join(out, " "))
}

func stripVTTTags(s string) string {
	var sb strings.Builder
	inTag := false
	for _, r := range s {
		switch r {
		case '<':
			inTag = true
		case '>':
			inTag = false
		default:
			if !inTag {
				sb.WriteRune(r)
			}
		}
	}
	return sb.String()
}
