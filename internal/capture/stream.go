// Package capture negotiates camera and microphone access, samples a coarse
// face position from video frames, and records the stream to a single blob.
package capture

import (
	"context"
	"image"
	"time"
)

// Kind is a media track kind.
type Kind string

const (
	Audio Kind = "audio"
	Video Kind = "video"
)

// PermissionState mirrors the states a capture permission can be in.
type PermissionState string

const (
	PermissionGranted PermissionState = "granted"
	PermissionDenied  PermissionState = "denied"
	PermissionPrompt  PermissionState = "prompt"
)

// Track describes one media track of a stream.
type Track struct {
	Kind    Kind   `json:"kind"`
	Label   string `json:"label"`
	Live    bool   `json:"live"`
	Enabled bool   `json:"enabled"`
}

// Frame is a decoded video frame. Seq increases with every new frame.
type Frame struct {
	Image image.Image
	Seq   uint64
	At    time.Time
}

// AudioChunk is a block of mono float32 PCM samples.
type AudioChunk struct {
	Samples    []float32
	SampleRate int
	At         time.Time
}

// Constraints are passed to a combined audio+video request.
type Constraints struct {
	Audio      bool
	Video      bool
	SampleRate int
	FrameRate  int
}

// Stream is an acquired capture stream.
type Stream interface {
	Tracks() []Track
	// LatestFrame returns the most recent video frame, if any.
	LatestFrame() (Frame, bool)
	// Audio delivers PCM chunks; nil when there is no audio track.
	Audio() <-chan AudioChunk
	// Media delivers encoded data for recording. It is closed after the
	// last chunk once the stream is closed.
	Media() <-chan []byte
	MIMEType() string
	Close() error
}

// Encoder is implemented by streams whose recorded bytes need a container
// wrapped around them once complete.
type Encoder interface {
	Encode(data []byte, d time.Duration) []byte
}

// Devices is the capture host: the local machine or a remote frontend.
type Devices interface {
	// Permission reports the current permission state without prompting.
	Permission(ctx context.Context, kind Kind) (PermissionState, error)
	// Open requests audio and video together in one call.
	Open(ctx context.Context, c Constraints) (Stream, error)
}

// FacePosition is a face estimate normalized to the frame, center (0.5, 0.5).
type FacePosition struct {
	X        float64   `json:"x"`
	Y        float64   `json:"y"`
	Detected bool      `json:"detected"`
	At       time.Time `json:"at"`
}
