package capture

import "time"

// Capture configuration constants
const (
	// Face estimation canvas
	CanvasWidth  = 64
	CanvasHeight = 48

	// Minimum skin-tone pixels on the canvas to accept a face position
	MinSkinPixels = 60

	// Fraction of the distance to center the last position moves per missed frame
	CenterDecay = 0.1

	// Perceptual hash distance at or below which two frames count as the same
	MaxHashDistance = 4

	// Default frame sampling rate for the capture loop
	DefaultFrameRate = 5

	// Default recorder chunk length
	DefaultTimeslice = time.Second

	// Channel buffer sizes
	AudioBufferSize = 100
	MediaBufferSize = 256

	// Frames per portaudio read, ~64ms at 16kHz
	FramesPerBuffer = 1024

	// Upper bound on how long Stop waits for in-flight stream data
	DefaultStopTimeout = 5 * time.Second
)
