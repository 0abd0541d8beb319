// Package session runs one simulated interview: it moves through the
// interview phases, drives speaking and listening, and wires capture and
// analytics to the Session API.
package session

// Phase is the interview state.
type Phase string

const (
	PhaseGreeting          Phase = "GREETING"
	PhaseWaitingForConsent Phase = "WAITING_FOR_CONSENT"
	PhaseInProgress        Phase = "IN_PROGRESS"
	PhasePaused            Phase = "PAUSED"
	PhaseCompleted         Phase = "COMPLETED"
)

// Listening reports whether candidate input is accepted in p.
func (p Phase) Listening() bool {
	return p == PhaseWaitingForConsent || p == PhaseInProgress
}
