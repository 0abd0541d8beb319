package analytics

import (
	"math"
	"time"
)

// EyeContactSample records whether the candidate was looking at the camera.
type EyeContactSample struct {
	Looking bool      `json:"looking"`
	At      time.Time `json:"at"`
}

type eyeContact struct {
	samples *window[EyeContactSample]
	looking int
	total   int
}

func newEyeContact() eyeContact {
	return eyeContact{samples: newWindow[EyeContactSample](FaceWindowSize)}
}

func (e *eyeContact) record(s EyeContactSample) {
	e.samples.push(s)
	e.total++
	if s.Looking {
		e.looking++
	}
}

// percentage is the share of all frames spent looking, in [0,100].
func (e *eyeContact) percentage() float64 {
	if e.total == 0 {
		return 0
	}
	return float64(e.looking) * 100 / float64(e.total)
}

func isLooking(s FaceSample) bool {
	return s.Detected && math.Abs(s.X-0.5) < GazeThreshold && math.Abs(s.Y-0.5) < GazeThreshold
}
