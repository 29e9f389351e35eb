package streammerge

import "testing"

func TestMergeStreamingChunkPrefixExtension(t *testing.T) {
	got := MergeStreamingChunk("Hello wor", "Hello world")
	if got != "Hello world" {
		t.Fatalf("got %q, want %q", got, "Hello world")
	}
}

func TestMergeStreamingChunkOrdinaryDelta(t *testing.T) {
	got := MergeStreamingChunk("Hello ", "world")
	if got != "Hello world" {
		t.Fatalf("got %q, want %q", got, "Hello world")
	}
}

func TestMergeStreamingChunkIdempotentOnRepeat(t *testing.T) {
	s := "some partial text"
	if got := MergeStreamingChunk(s, s); got != s {
		t.Fatalf("merge(s,s) = %q, want %q", got, s)
	}
}

func TestMergeStreamingChunkNextShorterPrefixOfPrevious(t *testing.T) {
	got := MergeStreamingChunk("Hello world", "Hello wor")
	if got != "Hello world" {
		t.Fatalf("got %q, want the longer previous string %q", got, "Hello world")
	}
}

func TestCleanObservableCollapsesWhitespace(t *testing.T) {
	got := CleanObservable("Hello   \n\tworld  ")
	if got != "Hello world" {
		t.Fatalf("got %q, want %q", got, "Hello world")
	}
}
