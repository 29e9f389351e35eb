package extract

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"

	"github.com/shaneholloman/summarize/internal/metacache"
)

// extractAsset downloads the asset through the media cache, then
// transcribes it via the external transcription tool (tesseract/
// whisper-style providers are invoked through Scripts).
func (e *Extractor) extractAsset(ctx context.Context, rawURL string, settings Settings) (*ExtractedContent, error) {
	const op = "Extractor.extractAsset"

	localPath, err := e.downloadThroughMediaCache(ctx, rawURL)
	if err != nil {
		return nil, fmt.Errorf("extract: %s: %w", op, err)
	}

	text, err := e.transcribeMedia(ctx, localPath)
	if err != nil {
		return nil, fmt.Errorf("extract: %s: transcribe: %w", op, err)
	}

	if e.Transcripts != nil {
		key := metacache.TranscriptKey(rawURL, "asset", "")
		_ = e.Transcripts.Put(ctx, key, "transcript", []byte(text))
	}

	return &ExtractedContent{
		FinalURL: rawURL,
		Text:     text,
		Source:   "media-transcription",
	}, nil
}

func (e *Extractor) downloadThroughMediaCache(ctx context.Context, rawURL string) (string, error) {
	if e.Media == nil {
		return e.downloadToTemp(ctx, rawURL)
	}

	if path, _, ok, err := e.Media.Get(rawURL); err == nil && ok {
		return path, nil
	}

	tmp, err := e.downloadToTemp(ctx, rawURL)
	if err != nil {
		return "", err
	}

	ext := path.Ext(rawURL)
	entry, err := e.Media.Put(rawURL, tmp, 0, ext, true)
	if err != nil {
		return "", err
	}
	if entry == nil {
		return tmp, nil
	}
	if cachedPath, _, ok, err := e.Media.Get(rawURL); err == nil && ok {
		return cachedPath, nil
	}
	return tmp, nil
}

func (e *Extractor) downloadToTemp(ctx context.Context, rawURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}

	resp, err := e.httpClient().Do(req)
	if err != nil {
		return "", fmt.Errorf("download: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("download returned status %d", resp.StatusCode)
	}

	f, err := os.CreateTemp("", "summarize-asset-*"+path.Ext(rawURL))
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, resp.Body); err != nil {
		return "", fmt.Errorf("write temp file: %w", err)
	}
	return f.Name(), nil
}

// transcribeMedia shells out to a transcription tool. whisper.cpp/
// faster-whisper-style tools typically accept an input path and print
// plain text on stdout; ffprobe is used first to confirm the file is
// audio/video.
func (e *Extractor) transcribeMedia(ctx context.Context, localPath string) (string, error) {
	if e.Scripts == nil {
		return "", fmt.Errorf("no script runner configured for transcription")
	}

	if _, err := e.Scripts.Run(ctx, "ffprobe", "-v", "error", localPath); err != nil {
		return "", fmt.Errorf("ffprobe validation failed: %w", err)
	}

	result, err := e.Scripts.Run(ctx, "whisper", localPath, "--output_format", "txt", "--output_dir", filepath.Dir(localPath))
	if err != nil {
		return "", fmt.Errorf("whisper transcription failed: %w", err)
	}

	return collapseWhitespace(string(result.Stdout)), nil
}
