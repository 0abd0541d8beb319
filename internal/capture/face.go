package capture

import (
	"image"
	"sync"
	"time"

	"github.com/nfnt/resize"
)

// FaceEstimator estimates where a face sits in a frame by averaging the
// coordinates of skin-tone pixels on a small canvas. It is a coarse color
// heuristic, not face detection: backgrounds in skin-like tones, strong color
// casts and very dark or very pale lighting all bias or defeat it.
type FaceEstimator struct {
	mu   sync.Mutex
	last FacePosition
}

// NewFaceEstimator creates an estimator whose last position is the center.
func NewFaceEstimator() *FaceEstimator {
	return &FaceEstimator{last: FacePosition{X: 0.5, Y: 0.5}}
}

// Estimate returns the face position in img. When too few skin-tone pixels are
// found, detection fails and the previous position decays toward the center.
func (f *FaceEstimator) Estimate(img image.Image, at time.Time) FacePosition {
	x, y, ok := locateSkin(img)

	f.mu.Lock()
	defer f.mu.Unlock()
	if !ok {
		return f.missLocked(at)
	}
	f.last = FacePosition{X: x, Y: y, Detected: true, At: at}
	return f.last
}

func (f *FaceEstimator) missLocked(at time.Time) FacePosition {
	f.last = FacePosition{
		X:  f.last.X + (0.5-f.last.X)*CenterDecay,
		Y:  f.last.Y + (0.5-f.last.Y)*CenterDecay,
		At: at,
	}
	return f.last
}

// Last returns the most recent estimate.
func (f *FaceEstimator) Last() FacePosition {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.last
}

func locateSkin(img image.Image) (x, y float64, ok bool) {
	if img == nil || img.Bounds().Empty() {
		return 0, 0, false
	}
	canvas := resize.Resize(CanvasWidth, CanvasHeight, img, resize.NearestNeighbor)
	b := canvas.Bounds()

	var sumX, sumY, n int
	for py := b.Min.Y; py < b.Max.Y; py++ {
		for px := b.Min.X; px < b.Max.X; px++ {
			r, g, bl, _ := canvas.At(px, py).RGBA()
			if isSkin(uint8(r>>8), uint8(g>>8), uint8(bl>>8)) {
				sumX += px - b.Min.X
				sumY += py - b.Min.Y
				n++
			}
		}
	}
	if n < MinSkinPixels {
		return 0, 0, false
	}
	x = (float64(sumX)/float64(n) + 0.5) / float64(b.Dx())
	y = (float64(sumY)/float64(n) + 0.5) / float64(b.Dy())
	return x, y, true
}

// isSkin is the RGB skin rule for daylight illumination: red dominant,
// enough spread between channels, and each channel above a floor.
func isSkin(r, g, b uint8) bool {
	maxC := max(r, g, b)
	minC := min(r, g, b)
	return r > 95 && g > 40 && b > 20 &&
		maxC-minC > 15 &&
		absDiff(r, g) > 15 &&
		r > g && r > b
}

func absDiff(a, b uint8) uint8 {
	if a > b {
		return a - b
	}
	return b - a
}
