package pipeline

import (
	"fmt"
	"image"
	_ "image/jpeg"
	"math"
	"os"

	"github.com/livepeer/catalyst-api/config"
)

// scoreFrameCropX scores config.ReframeStripCount equal-width vertical
// strips of a single extracted frame by brightness+saturation with a
// slight central bias, picks the best contiguous window of
// config.ReframeWindowStrips strips, and returns the crop's left
// edge in source pixels (spec.md §4.6 step 2).
//
// Decoding a single still frame per sample is plain raster work with no
// natural library home in the pack (no image-processing dependency
// appears anywhere in the corpus); stdlib image/jpeg is used here, see
// DESIGN.md.
func scoreFrameCropX(framePath string) (int, error) {
	f, err := os.Open(framePath)
	if err != nil {
		return 0, fmt.Errorf("failed to open frame %q: %w", framePath, err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return 0, fmt.Errorf("failed to decode frame %q: %w", framePath, err)
	}

	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()
	stripCount := config.ReframeStripCount
	stripWidth := width / stripCount

	scores := make([]float64, stripCount)
	for s := 0; s < stripCount; s++ {
		x0 := bounds.Min.X + s*stripWidth
		x1 := x0 + stripWidth
		if s == stripCount-1 {
			x1 = bounds.Max.X
		}
		scores[s] = stripScore(img, x0, x1, bounds.Min.Y, bounds.Max.Y, s, stripCount)
	}

	windowStrips := config.ReframeWindowStrips
	bestStart, bestScore := 0, math.Inf(-1)
	for start := 0; start+windowStrips <= stripCount; start++ {
		sum := 0.0
		for s := start; s < start+windowStrips; s++ {
			sum += scores[s]
		}
		if sum > bestScore {
			bestScore = sum
			bestStart = start
		}
	}

	return bounds.Min.X + bestStart*stripWidth, nil
}

// stripScore averages brightness+saturation over a sampled grid of pixels
// in [x0,x1)x[y0,y1) and applies a slight central bias so that, all else
// equal, a more central strip wins ties (spec.md §4.6 step 2).
func stripScore(img image.Image, x0, x1, y0, y1, stripIdx, stripCount int) float64 {
	const sampleStep = 4
	var sum float64
	var n int
	for y := y0; y < y1; y += sampleStep {
		for x := x0; x < x1; x += sampleStep {
			r, g, b, _ := img.At(x, y).RGBA()
			rf, gf, bf := float64(r)/65535, float64(g)/65535, float64(b)/65535

			max := math.Max(rf, math.Max(gf, bf))
			min := math.Min(rf, math.Min(gf, bf))
			brightness := (max + min) / 2
			var saturation float64
			if max != min {
				if brightness > 0.5 {
					saturation = (max - min) / (2 - max - min)
				} else {
					saturation = (max - min) / (max + min)
				}
			}

			sum += brightness + saturation
			n++
		}
	}
	if n == 0 {
		return 0
	}
	avg := sum / float64(n)

	center := float64(stripCount-1) / 2
	distanceFromCenter := math.Abs(float64(stripIdx) - center)
	centralBias := 1 - 0.05*distanceFromCenter
	return avg * centralBias
}
