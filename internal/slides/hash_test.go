package slides

import (
	"image"
	"image/color"
	"testing"
)

func solidImage(c color.Color) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, 64, 64))
	for y := 0; y < 64; y++ {
		for x := 0; x < 64; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func TestAverageHashOfIdenticalImagesMatch(t *testing.T) {
	a := AverageHashOf(solidImage(color.Gray{Y: 120}))
	b := AverageHashOf(solidImage(color.Gray{Y: 120}))
	if HammingRatio(a, b) != 0 {
		t.Fatalf("expected identical images to hash identically")
	}
}

func TestAverageHashOfBlackVsWhiteRatioInRange(t *testing.T) {
	black := AverageHashOf(solidImage(color.Gray{Y: 0}))
	white := AverageHashOf(solidImage(color.Gray{Y: 255}))
	ratio := HammingRatio(black, white)
	if ratio < 0 || ratio > 1 {
		t.Fatalf("hamming ratio out of range: %v", ratio)
	}
}

func TestHammingRatioRange(t *testing.T) {
	a := Hash{}
	b := Hash{^uint64(0), ^uint64(0), ^uint64(0), ^uint64(0), ^uint64(0), ^uint64(0), ^uint64(0), ^uint64(0), ^uint64(0), ^uint64(0), ^uint64(0), ^uint64(0), ^uint64(0), ^uint64(0), ^uint64(0), ^uint64(0)}
	if got := HammingRatio(a, b); got != 1 {
		t.Fatalf("expected fully-inverted hashes to have ratio 1, got %v", got)
	}
	if got := HammingRatio(a, a); got != 0 {
		t.Fatalf("expected identical hashes to have ratio 0, got %v", got)
	}
}
