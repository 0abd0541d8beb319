package analytics

import (
	"math"
	"time"
)

// PostureSample is a smoothed face position.
type PostureSample struct {
	X  float64   `json:"x"`
	Y  float64   `json:"y"`
	At time.Time `json:"at"`
}

type posture struct {
	samples  *window[PostureSample]
	smoothed PostureSample
	raw      PostureSample
	seen     bool
	fidgets  int
}

func newPosture() posture {
	return posture{samples: newWindow[PostureSample](PostureWindowSize)}
}

func (p *posture) record(x, y float64, at time.Time) {
	if !p.seen {
		p.seen = true
		p.raw = PostureSample{X: x, Y: y, At: at}
		p.smoothed = p.raw
		p.samples.push(p.smoothed)
		return
	}

	delta := math.Hypot(x-p.raw.X, y-p.raw.Y)
	if delta >= FidgetMinDelta && delta <= FidgetMaxDelta {
		p.fidgets++
	}
	p.raw = PostureSample{X: x, Y: y, At: at}
	p.smoothed = PostureSample{
		X:  p.smoothed.X*SmoothingPrevious + x*SmoothingNew,
		Y:  p.smoothed.Y*SmoothingPrevious + y*SmoothingNew,
		At: at,
	}
	p.samples.push(p.smoothed)
}

// variance is the summed population variance of x and y over the window.
func (p *posture) variance() float64 {
	n := float64(p.samples.len())
	if n == 0 {
		return 0
	}
	var sx, sy float64
	for _, s := range p.samples.items {
		sx += s.X
		sy += s.Y
	}
	mx, my := sx/n, sy/n
	var v float64
	for _, s := range p.samples.items {
		v += (s.X-mx)*(s.X-mx) + (s.Y-my)*(s.Y-my)
	}
	return v / n
}

// stability is 100 until enough samples exist to judge.
func (p *posture) stability() float64 {
	if p.samples.len() < MinPostureSamples {
		return 100
	}
	return clamp(100-p.variance()*VariancePenalty, 0, 100)
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
