package metacache

import "testing"

func TestKeysAreDeterministic(t *testing.T) {
	a := TranscriptKey("https://youtu.be/x", "yt:captions", "")
	b := TranscriptKey("https://youtu.be/x", "yt:captions", "")
	if a != b {
		t.Fatalf("same inputs produced different keys: %q vs %q", a, b)
	}
}

func TestKeysDistinguishNamespace(t *testing.T) {
	a := TranscriptKey("https://youtu.be/x", "yt:captions", "")
	b := TranscriptKey("https://youtu.be/x", "yt:actor", "")
	if a == b {
		t.Fatalf("different namespace produced the same key")
	}
}

func TestKeyFamiliesDoNotCollide(t *testing.T) {
	if FormatVersion == "" {
		t.Fatalf("FormatVersion must not be empty")
	}
	_ = ContentKey("u", "settings")
	_ = SummaryKey("c", "p", "m", "short", "en")
	_ = SlidesKey("u", "settings")
}
