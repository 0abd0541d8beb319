package session

import (
	"errors"
	"time"

	apperrors "github.com/GriffinCanCode/interview-coach/internal/errors"
)

// EventType names what changed.
type EventType string

const (
	EventMessage    EventType = "message"
	EventPhase      EventType = "phase"
	EventTranscript EventType = "transcript"
	EventSpeech     EventType = "speech"
	EventTick       EventType = "tick"
	EventRound      EventType = "round"
	EventMetrics    EventType = "metrics"
	EventCapture    EventType = "capture"
	EventFace       EventType = "face"
	EventError      EventType = "error"
	EventComplete   EventType = "complete"
)

// Event is a change broadcast to connected clients.
type Event struct {
	Type      EventType `json:"type"`
	SessionID string    `json:"session_id,omitempty"`
	Data      any       `json:"data,omitempty"`
	At        time.Time `json:"at"`
}

// ErrorInfo is the payload of an error event.
type ErrorInfo struct {
	Code    apperrors.Code `json:"code"`
	Message string         `json:"message"`
	Hint    string         `json:"hint,omitempty"`
}

// Tick is the payload of a countdown event.
type Tick struct {
	QuestionIndex int     `json:"question_index"`
	Remaining     float64 `json:"remaining_seconds"`
}

// NewErrorInfo describes err for clients. Non-application errors map to
// UNKNOWN.
func NewErrorInfo(err error) ErrorInfo {
	var app *apperrors.AppError
	if errors.As(err, &app) {
		return ErrorInfo{Code: app.Code, Message: app.Message, Hint: app.Hint}
	}
	return ErrorInfo{Code: apperrors.Unknown, Message: err.Error()}
}
