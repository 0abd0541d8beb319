package capture

import (
	"image"
	"image/color"
	"math"
	"testing"
	"time"
)

var (
	skin       = color.RGBA{R: 220, G: 170, B: 140, A: 255}
	background = color.RGBA{R: 30, G: 60, B: 120, A: 255}
)

// frameWithPatch returns a w×h frame with a skin patch covering rect.
func frameWithPatch(w, h int, patch image.Rectangle) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := background
			if image.Pt(x, y).In(patch) {
				c = skin
			}
			img.SetRGBA(x, y, c)
		}
	}
	return img
}

func TestIsSkin(t *testing.T) {
	if !isSkin(skin.R, skin.G, skin.B) {
		t.Error("skin tone should match")
	}
	if isSkin(background.R, background.G, background.B) {
		t.Error("blue background should not match")
	}
	if isSkin(200, 200, 200) {
		t.Error("grey should not match")
	}
}

func TestEstimateCenteredFace(t *testing.T) {
	f := NewFaceEstimator()
	img := frameWithPatch(640, 480, image.Rect(240, 160, 400, 320))

	pos := f.Estimate(img, time.Now())
	if !pos.Detected {
		t.Fatal("face should be detected")
	}
	if math.Abs(pos.X-0.5) > 0.05 || math.Abs(pos.Y-0.5) > 0.05 {
		t.Errorf("position = (%.3f, %.3f), want near center", pos.X, pos.Y)
	}
}

func TestEstimateOffsetFace(t *testing.T) {
	f := NewFaceEstimator()
	img := frameWithPatch(640, 480, image.Rect(0, 0, 160, 160))

	pos := f.Estimate(img, time.Now())
	if !pos.Detected {
		t.Fatal("face should be detected")
	}
	if pos.X > 0.2 || pos.Y > 0.25 {
		t.Errorf("position = (%.3f, %.3f), want top-left", pos.X, pos.Y)
	}
}

func TestEstimateDecaysTowardCenter(t *testing.T) {
	f := NewFaceEstimator()
	f.Estimate(frameWithPatch(640, 480, image.Rect(0, 0, 160, 160)), time.Now())
	before := f.Last()

	empty := frameWithPatch(640, 480, image.Rectangle{})
	pos := f.Estimate(empty, time.Now())
	if pos.Detected {
		t.Fatal("blank frame should not detect a face")
	}
	if math.Abs(pos.X-0.5) >= math.Abs(before.X-0.5) {
		t.Errorf("x should move toward center: before %.3f, after %.3f", before.X, pos.X)
	}
	want := before.X + (0.5-before.X)*CenterDecay
	if math.Abs(pos.X-want) > 1e-9 {
		t.Errorf("x = %.4f, want %.4f", pos.X, want)
	}
}

func TestEstimateTinyPatchFails(t *testing.T) {
	f := NewFaceEstimator()
	// 20x20 source pixels cover roughly 2x2 canvas pixels.
	pos := f.Estimate(frameWithPatch(640, 480, image.Rect(300, 220, 320, 240)), time.Now())
	if pos.Detected {
		t.Error("a patch below the minimum pixel count should not be accepted")
	}
}

func TestEstimateNilImage(t *testing.T) {
	f := NewFaceEstimator()
	if f.Estimate(nil, time.Now()).Detected {
		t.Error("nil image should not detect a face")
	}
}
