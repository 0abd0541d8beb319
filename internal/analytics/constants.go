package analytics

import "time"

// Analytics configuration constants
const (
	// Rolling window sizes
	FaceWindowSize    = 100
	PostureWindowSize = 60
	SampleWindowSize  = 100

	// Eye contact: maximum offset from frame center, as a fraction of the frame
	GazeThreshold = 0.3

	// Posture smoothing weights and stability scaling
	SmoothingPrevious = 0.7
	SmoothingNew      = 0.3
	MinPostureSamples = 10
	VariancePenalty   = 2000
	FidgetMinDelta    = 0.05
	FidgetMaxDelta    = 0.15

	// Pace thresholds in words per minute
	TooFastWPM  = 180
	TooSlowWPM  = 100
	IdealMinWPM = 120
	IdealMaxWPM = 160
	IdealWPM    = 140

	// Countdown resolution
	TickInterval = time.Second

	// Default silence threshold when a persona leaves it unset
	DefaultSilenceThreshold = 2 * time.Second

	// TimeoutPlaceholder is submitted when the countdown expires with no answer.
	TimeoutPlaceholder = "[No answer given before time ran out]"
)
