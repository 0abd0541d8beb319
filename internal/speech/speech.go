// Package speech wraps text-to-speech and speech recognition behind a turn-
// taking service that never listens while it speaks.
package speech

import (
	"context"
	"time"
)

// Synthesizer plays text aloud.
type Synthesizer interface {
	// Speak returns when playback finishes or ctx is cancelled.
	Speak(ctx context.Context, text string) error
}

// Result is a recognition update. Text is the full transcript of the current
// recognition session so far.
type Result struct {
	Text  string
	Final bool
}

// Recognizer turns speech into text.
type Recognizer interface {
	// Recognize runs one recognition session, reporting updates to onResult.
	// It returns nil when the session ends on its own, ctx.Err() when
	// cancelled, or a RECOGNITION_* error.
	Recognize(ctx context.Context, onResult func(Result)) error
	Supported() bool
}

// State is a snapshot of the service.
type State struct {
	Speaking   bool    `json:"speaking"`
	Listening  bool    `json:"listening"`
	MicEnabled bool    `json:"mic_enabled"`
	Supported  bool    `json:"supported"`
	Level      float64 `json:"level"`
}

// Callbacks connect the service to its owner. None are invoked with a
// service lock held.
type Callbacks struct {
	// Gate reports whether listening may start automatically after speech.
	Gate func() bool
	// OnTranscript receives the cumulative transcript of one listen cycle.
	// cycle increases with every Listen.
	OnTranscript func(cycle uint64, text string)
	// OnListenEnd is called when a listen cycle ends without being stopped.
	// err is nil for a normal end.
	OnListenEnd func(err error)
	// OnSpeechStart and OnSpeechEnd mark candidate speech bursts.
	OnSpeechStart func(at time.Time)
	OnSpeechEnd   func(at time.Time)
	OnStateChange func(State)
}
