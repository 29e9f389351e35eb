package metacache

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// FormatVersion participates in every cache key: bumping it
// invalidates every previously-cached entry in one change.
const FormatVersion = "1"

// hashFields builds a deterministic, content-addressed cache key. Fields are
// joined with a separator unlikely to appear in any single field and
// hashed, so adding an unrelated field never changes the key unless
// that field is actually part of the formula.
func hashFields(fields ...string) string {
	h := sha256.New()
	h.Write([]byte(strings.Join(fields, "\x1f")))
	return hex.EncodeToString(h.Sum(nil))
}

// TranscriptKey: H(url, namespace, fileMtime?, formatVersion).
func TranscriptKey(url, namespace, fileMtime string) string {
	return hashFields("transcript", url, namespace, fileMtime, FormatVersion)
}

// ContentKey: H(url, extractSettings, formatVersion).
func ContentKey(url, extractSettings string) string {
	return hashFields("content", url, extractSettings, FormatVersion)
}

// SummaryKey: H(contentHash, promptHash, model, length, language, formatVersion).
func SummaryKey(contentHash, promptHash, model, length, language string) string {
	return hashFields("summary", contentHash, promptHash, model, length, language, FormatVersion)
}

// SlidesKey: H(url, slideSettings, formatVersion).
func SlidesKey(url, slideSettings string) string {
	return hashFields("slides", url, slideSettings, FormatVersion)
}
