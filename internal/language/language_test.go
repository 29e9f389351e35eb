package language

import "testing"

func TestResolveKnown(t *testing.T) {
	cases := map[string]string{
		"English":   "en",
		"spanish":   "es",
		"pt-BR":     "pt-br",
		"日本語":       "ja",
	}
	for in, wantTag := range cases {
		got := Resolve(in)
		if !got.Known || got.Tag != wantTag {
			t.Fatalf("Resolve(%q) = %+v, want tag %q", in, got, wantTag)
		}
	}
}

func TestResolveUnknownPassesThroughSanitized(t *testing.T) {
	got := Resolve("  Klingon\twith\nnoise  ")
	if got.Known {
		t.Fatalf("expected unknown language, got %+v", got)
	}
	if got.Label != "Klingon with noise" {
		t.Fatalf("Label = %q", got.Label)
	}
}

func TestResolveIsStable(t *testing.T) {
	for _, in := range []string{"English", "French", "Unknown Language"} {
		first := Resolve(in)
		second := Resolve(first.Label)
		if first.Known != second.Known || first.Tag != second.Tag {
			t.Fatalf("resolve(resolve(%q).label) changed: %+v vs %+v", in, first, second)
		}
	}
}
