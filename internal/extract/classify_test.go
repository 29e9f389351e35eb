package extract

import "testing"

func TestClassify(t *testing.T) {
	cases := map[string]Kind{
		"https://youtu.be/abc123":                    KindYouTube,
		"https://www.youtube.com/watch?v=abc123":     KindYouTube,
		"https://example.com/audio/episode.mp3":      KindAsset,
		"https://example.com/article/foo":            KindWebsite,
		"file:///home/user/notes.txt":                KindFile,
		"/home/user/notes.txt":                       KindFile,
	}
	for in, want := range cases {
		if got := Classify(in); got != want {
			t.Fatalf("Classify(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestYouTubeVideoID(t *testing.T) {
	cases := map[string]string{
		"https://youtu.be/dQw4w9WgXcQ":                   "dQw4w9WgXcQ",
		"https://www.youtube.com/watch?v=dQw4w9WgXcQ":    "dQw4w9WgXcQ",
		"https://www.youtube.com/shorts/dQw4w9WgXcQ":     "dQw4w9WgXcQ",
		"https://www.youtube.com/embed/dQw4w9WgXcQ":      "dQw4w9WgXcQ",
	}
	for in, want := range cases {
		got, ok := YouTubeVideoID(in)
		if !ok || got != want {
			t.Fatalf("YouTubeVideoID(%q) = %q, %v; want %q", in, got, ok, want)
		}
	}
}

func TestYouTubeVideoIDRejectsNonYouTube(t *testing.T) {
	if _, ok := YouTubeVideoID("https://example.com/watch?v=abc"); ok {
		t.Fatalf("expected non-youtube host to be rejected")
	}
}

func TestRescanEmbeddedScheme(t *testing.T) {
	got, ok := RescanEmbeddedScheme("ftp://evil.example/redirect?to=https://real.example/page")
	if !ok {
		t.Fatalf("expected embedded scheme to be found")
	}
	if got != "https://real.example/page" {
		t.Fatalf("got %q", got)
	}
}

func TestRescanEmbeddedSchemeNoMatch(t *testing.T) {
	if _, ok := RescanEmbeddedScheme("ftp://example.com/file"); ok {
		t.Fatalf("expected no embedded http(s) prefix")
	}
}
