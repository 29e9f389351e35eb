package slides

import (
	"image"
	_ "image/jpeg"
	_ "image/png"
	"math/bits"
	"os"
)

// Hash is a 32x32 grayscale average hash as a 1024-bit
// fingerprint (packed into 16 uint64s), used to detect scene changes
// between sampled frames. No third-party dependency provides
// perceptual image hashing here, so this is a small stdlib
// implementation (image/draw-free nearest-neighbor resize, since the
// inputs are already low-resolution probe frames).
type Hash [16]uint64

// HashFile decodes an image file and computes its average hash.
func HashFile(path string) (Hash, error) {
	f, err := os.Open(path)
	if err != nil {
		return Hash{}, err
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return Hash{}, err
	}
	return AverageHashOf(img), nil
}

const hashGrid = 32

// AverageHashOf resizes img to 32x32 grayscale via nearest-neighbor
// sampling, computes the mean luminance, then sets one bit per pixel
// based on whether it is above or below the mean.
func AverageHashOf(img image.Image) Hash {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()

	var gray [hashGrid * hashGrid]float64
	var sum float64
	for y := 0; y < hashGrid; y++ {
		sy := bounds.Min.Y + y*h/hashGrid
		for x := 0; x < hashGrid; x++ {
			sx := bounds.Min.X + x*w/hashGrid
			r, g, b, _ := img.At(sx, sy).RGBA()
			lum := (0.299*float64(r) + 0.587*float64(g) + 0.114*float64(b)) / 65535.0
			gray[y*hashGrid+x] = lum
			sum += lum
		}
	}
	mean := sum / float64(hashGrid*hashGrid)

	var result Hash
	for i, lum := range gray {
		if lum >= mean {
			result[i/64] |= 1 << uint(i%64)
		}
	}
	return result
}

// HammingRatio returns the fraction of differing bits between two
// hashes, in [0, 1].
func HammingRatio(a, b Hash) float64 {
	var diff int
	for i := range a {
		diff += bits.OnesCount64(a[i] ^ b[i])
	}
	return float64(diff) / float64(hashGrid*hashGrid)
}
