package fingerprint

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"math"
	"sort"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
)

// PhotoPrint bundles the fingerprints computed for one submitted photo.
// The content hash identifies exact resubmissions; the perceptual hashes
// catch re-encoded or lightly edited copies of the same photo.
type PhotoPrint struct {
	SHA256 string `json:"sha256"`
	PHash  string `json:"phash"` // 64-bit DCT perceptual hash, hex
	DHash  string `json:"dhash"` // 64-bit difference hash, hex

	PHashBits uint64 `json:"-"`
	DHashBits uint64 `json:"-"`
}

// FromImage computes all fingerprints for a photo.
func FromImage(data []byte) (*PhotoPrint, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	p := perceptualHash(img)
	d := differenceHash(img)

	return &PhotoPrint{
		SHA256:    ContentHash(data),
		PHash:     fmt.Sprintf("%016x", p),
		DHash:     fmt.Sprintf("%016x", d),
		PHashBits: p,
		DHashBits: d,
	}, nil
}

// HammingDistance counts differing bits between two 64-bit hashes.
func HammingDistance(a, b uint64) int {
	xor := a ^ b
	distance := 0
	for xor != 0 {
		distance++
		xor &= xor - 1
	}
	return distance
}

// NearDuplicate reports whether two hashes are within threshold bits.
// A threshold of 10 works well for re-encoded copies.
func NearDuplicate(a, b uint64, threshold int) bool {
	return HammingDistance(a, b) <= threshold
}

// perceptualHash computes a 64-bit DCT hash: resize to 32x32, grayscale,
// DCT-II, then threshold the low-frequency coefficients at their median.
func perceptualHash(img image.Image) uint64 {
	gray := grayscale(scale(img, 32, 32))
	dct := dct2(gray)

	lowFreq := make([]float64, 64)
	idx := 0
	for u := range 8 {
		for v := range 8 {
			if u == 0 && v == 0 {
				continue // DC component carries no structure
			}
			if idx < 64 {
				lowFreq[idx] = dct[u][v]
				idx++
			}
		}
	}
	for ; idx < 64; idx++ {
		lowFreq[idx] = dct[idx/8][idx%8]
	}

	median := medianOf(lowFreq)

	var hash uint64
	for i := range 64 {
		if lowFreq[i] > median {
			hash |= 1 << (63 - i)
		}
	}
	return hash
}

// differenceHash compares horizontally adjacent pixels of a 9x8 downscale.
func differenceHash(img image.Image) uint64 {
	gray := grayscale(scale(img, 9, 8))

	var hash uint64
	bit := 63
	for y := range 8 {
		for x := range 8 {
			if gray[x][y] > gray[x+1][y] {
				hash |= 1 << bit
			}
			bit--
		}
	}
	return hash
}

func scale(img image.Image, width, height int) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.BiLinear.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Over, nil)
	return dst
}

// grayscale converts to a [x][y] luma matrix (ITU-R BT.601).
func grayscale(img *image.RGBA) [][]float64 {
	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()

	gray := make([][]float64, width)
	for x := range width {
		gray[x] = make([]float64, height)
		for y := range height {
			r, g, b, _ := img.At(x, y).RGBA()
			gray[x][y] = 0.299*float64(r>>8) + 0.587*float64(g>>8) + 0.114*float64(b>>8)
		}
	}
	return gray
}

// dct2 computes the 2D DCT-II of a square luma matrix.
func dct2(gray [][]float64) [][]float64 {
	size := len(gray)
	out := make([][]float64, size)
	for i := range out {
		out[i] = make([]float64, size)
	}

	cosTable := make([][]float64, size)
	for i := range cosTable {
		cosTable[i] = make([]float64, size)
		for j := range size {
			cosTable[i][j] = math.Cos(math.Pi * float64(i) * (2*float64(j) + 1) / (2 * float64(size)))
		}
	}

	for u := range size {
		for v := range size {
			var sum float64
			for x := range size {
				for y := range size {
					sum += gray[x][y] * cosTable[u][x] * cosTable[v][y]
				}
			}
			out[u][v] = sum
		}
	}
	return out
}

func medianOf(values []float64) float64 {
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)
	n := len(sorted)
	if n%2 == 0 {
		return (sorted[n/2-1] + sorted[n/2]) / 2
	}
	return sorted[n/2]
}
