package extract

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// ResolveLocalMedia returns a local file path the slides pipeline can
// run ffmpeg/ffprobe against, downloading through the media cache
// (asset/website URLs) or via yt-dlp (YouTube). yt-dlp downloads land
// in a unique temp directory that the caller owns once this function
// returns a path outside the media cache.
func (e *Extractor) ResolveLocalMedia(ctx context.Context, rawURL string) (string, error) {
	switch Classify(rawURL) {
	case KindYouTube:
		return e.downloadYouTubeVideo(ctx, rawURL)
	case KindFile:
		return rawURL, nil
	default:
		return e.downloadThroughMediaCache(ctx, rawURL)
	}
}

// downloadYouTubeVideo shells out to yt-dlp to fetch a playable video
// file into a fresh temp directory.
func (e *Extractor) downloadYouTubeVideo(ctx context.Context, rawURL string) (string, error) {
	if e.Scripts == nil {
		return "", fmt.Errorf("extract: no script runner configured for yt-dlp")
	}

	dir, err := os.MkdirTemp("", "summarize-ytvideo-*")
	if err != nil {
		return "", fmt.Errorf("extract: create yt-dlp temp dir: %w", err)
	}

	outputTemplate := filepath.Join(dir, "source.%(ext)s")
	if _, err := e.Scripts.Run(ctx, "yt-dlp", "-f", "mp4/best", "-o", outputTemplate, rawURL); err != nil {
		os.RemoveAll(dir)
		return "", fmt.Errorf("extract: yt-dlp download: %w", err)
	}

	matches, err := filepath.Glob(filepath.Join(dir, "source.*"))
	if err != nil || len(matches) == 0 {
		os.RemoveAll(dir)
		return "", fmt.Errorf("extract: yt-dlp produced no output file")
	}
	return matches[0], nil
}
