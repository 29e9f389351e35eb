// Package streammerge implements the token-delta merge rule and the
// SSE event bus that multiplexes one run's output to any number of
// live and late-joining subscribers: one producer, N consumers plus
// replay.
package streammerge

import "strings"

// MergeStreamingChunk merges a streamed delta with a prefix-extension
// awareness: some vendors replay the whole delta so far and extend it
// rather than emitting a true incremental token; when that happens,
// keep the longer (already-extended) string instead of duplicating
// it. Otherwise this is a plain concatenation. Idempotent on repeats:
// MergeStreamingChunk(s, s) == s, since s is trivially a prefix of
// itself.
func MergeStreamingChunk(previous, next string) string {
	if strings.HasPrefix(next, previous) {
		return next
	}
	if strings.HasPrefix(previous, next) {
		return previous
	}
	return previous + next
}

// CleanObservable collapses whitespace for display: the server
// retains the raw concatenation, but an observer-facing "cleaned" form
// collapses runs of whitespace to single spaces.
func CleanObservable(raw string) string {
	fields := strings.Fields(raw)
	return strings.Join(fields, " ")
}
