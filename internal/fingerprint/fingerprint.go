// Package fingerprint computes perceptual hashes (pHash) for duplicate image
// detection. The pHash algorithm is robust to resizing, compression artifacts,
// minor color adjustments, and small crops.
package fingerprint

import (
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"math"
	"math/bits"
	"sort"
	"strings"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
)

// Compute computes the perceptual hash of an image as a lowercase hex string.
// hashSize controls the bit length: hashSize^2 bits, so the default of 8
// produces a 64-bit fingerprint encoded as 16 hex characters. Two fingerprints
// are only comparable when computed with the same hashSize.
func Compute(img image.Image, hashSize int) string {
	if hashSize <= 0 {
		hashSize = 8
	}

	// 1. Resize to 4*hashSize square for DCT processing (32x32 for the default)
	dctSize := hashSize * 4
	resized := resizeImage(img, dctSize, dctSize)

	// 2. Convert to grayscale
	gray := toGrayscale(resized)

	// 3. Compute the Discrete Cosine Transform
	dct := computeDCT(gray)

	// 4. Extract the top-left hashSize x hashSize low-frequency coefficients,
	//    excluding the DC component (0,0)
	n := hashSize * hashSize
	lowFreq := make([]float64, 0, n)
	for u := 0; u < hashSize && len(lowFreq) < n; u++ {
		for v := 0; v < hashSize && len(lowFreq) < n; v++ {
			if u == 0 && v == 0 {
				continue
			}
			lowFreq = append(lowFreq, dct[u][v])
		}
	}
	// Backfill the slot freed by skipping DC with the next coefficient row.
	for len(lowFreq) < n {
		lowFreq = append(lowFreq, dct[hashSize][len(lowFreq)%hashSize])
	}

	// 5. Threshold each coefficient against the median
	median := computeMedian(lowFreq)

	bitsOut := make([]byte, n)
	for i, v := range lowFreq {
		if v > median {
			bitsOut[i] = 1
		}
	}

	return encodeHex(bitsOut)
}

// ComputeFile computes the perceptual hash of an image file. The image is
// decoded with automatic EXIF orientation so that rotated variants of the
// same photo produce matching fingerprints.
func ComputeFile(path string, hashSize int) (string, error) {
	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return "", fmt.Errorf("failed to decode image %s: %w", path, err)
	}
	return Compute(img, hashSize), nil
}

// HammingDistance computes the number of differing bits between two hex
// fingerprints. Fingerprints of mismatched length, or containing undecodable
// characters, have no meaningful distance; they report the maximal distance
// for the longer operand so a corrupt record reads as a definite non-match
// instead of aborting a run.
func HammingDistance(a, b string) int {
	if len(a) != len(b) || len(a) == 0 {
		return maxDistance(a, b)
	}

	distance := 0
	for i := 0; i < len(a); i++ {
		na, okA := hexNibble(a[i])
		nb, okB := hexNibble(b[i])
		if !okA || !okB {
			return maxDistance(a, b)
		}
		distance += bits.OnesCount8(na ^ nb)
	}
	return distance
}

// Similar returns true if two fingerprints are within the given threshold.
func Similar(a, b string, threshold int) bool {
	if a == "" || b == "" {
		return false
	}
	return HammingDistance(a, b) <= threshold
}

// maxDistance is the bit length of the longer of two hex fingerprints.
func maxDistance(a, b string) int {
	n := len(a)
	if len(b) > n {
		n = len(b)
	}
	return n * 4
}

func hexNibble(c byte) (uint8, bool) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', true
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, true
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, true
	}
	return 0, false
}

// encodeHex packs a bit slice (one byte per bit, MSB first) into a hex string.
func encodeHex(bitSlice []byte) string {
	var sb strings.Builder
	sb.Grow((len(bitSlice) + 3) / 4)
	for i := 0; i < len(bitSlice); i += 4 {
		var nibble uint8
		for j := 0; j < 4 && i+j < len(bitSlice); j++ {
			nibble = nibble<<1 | bitSlice[i+j]
		}
		sb.WriteByte("0123456789abcdef"[nibble])
	}
	return sb.String()
}

// resizeImage scales an image to the specified dimensions.
func resizeImage(img image.Image, width, height int) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.BiLinear.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Over, nil)
	return dst
}

// toGrayscale converts an image to a 2D array of grayscale values (0-255).
func toGrayscale(img *image.RGBA) [][]float64 {
	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()

	gray := make([][]float64, width)
	for x := 0; x < width; x++ {
		gray[x] = make([]float64, height)
		for y := 0; y < height; y++ {
			r, g, b, _ := img.At(x, y).RGBA()
			// ITU-R BT.601 luma formula.
			luma := 0.299*float64(r>>8) + 0.587*float64(g>>8) + 0.114*float64(b>>8)
			gray[x][y] = luma
		}
	}

	return gray
}

// computeDCT computes the Discrete Cosine Transform of a grayscale image.
func computeDCT(gray [][]float64) [][]float64 {
	size := len(gray)
	dct := make([][]float64, size)
	for i := range dct {
		dct[i] = make([]float64, size)
	}

	// Precompute cosine values for efficiency.
	cosTable := make([][]float64, size)
	for i := range cosTable {
		cosTable[i] = make([]float64, size)
		for j := 0; j < size; j++ {
			cosTable[i][j] = math.Cos(math.Pi * float64(i) * (2*float64(j) + 1) / (2 * float64(size)))
		}
	}

	// DCT-II formula.
	for u := 0; u < size; u++ {
		for v := 0; v < size; v++ {
			var sum float64
			for x := 0; x < size; x++ {
				for y := 0; y < size; y++ {
					sum += gray[x][y] * cosTable[u][x] * cosTable[v][y]
				}
			}
			dct[u][v] = sum
		}
	}

	return dct
}

// computeMedian returns the median value from a slice.
func computeMedian(values []float64) float64 {
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)
	n := len(sorted)
	if n%2 == 0 {
		return (sorted[n/2-1] + sorted[n/2]) / 2
	}
	return sorted[n/2]
}
