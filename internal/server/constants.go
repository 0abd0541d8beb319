// Package server exposes interview sessions over HTTP, WebSocket and gRPC
// health.
package server

import "time"

// Server configuration constants
const (
	// Per-connection sliding window. Audio and frames stream over the same
	// socket, so the limit is well above human input rates.
	RateLimitMessages = 120
	RateLimitWindow   = time.Second

	// WriteTimeout bounds a single WebSocket write to a slow client.
	WriteTimeout = 5 * time.Second

	// MaxMessageBytes is the read limit for one WebSocket message; media
	// chunks are the largest.
	MaxMessageBytes = 4 << 20

	// MaxBodyBytes limits REST request bodies.
	MaxBodyBytes = 64 << 10

	// DefaultResultRetention is how long a completed session stays readable
	// before it is released.
	DefaultResultRetention = 10 * time.Minute
)

// Inbound WebSocket message types
const (
	MsgInput              = "input"
	MsgListen             = "listen"
	MsgMicToggle          = "mic_toggle"
	MsgTranscript         = "transcript"
	MsgRecognitionEnd     = "recognition_end"
	MsgRecognitionSupport = "recognition_support"
	MsgSpeechDone         = "speech_done"
	MsgPermission         = "permission"
	MsgTracks             = "tracks"
	MsgTrack              = "track"
	MsgFrame              = "frame"
	MsgAudio              = "audio"
	MsgMedia              = "media"
)

// Outbound WebSocket message types besides session events
const (
	MsgCommand     = "command"
	MsgError       = "error"
	MsgRateLimited = "rate_limited"
)
