// Package sessionapi talks to the interview backend that owns question plans
// and stores answers.
package sessionapi

import "context"

// Question is one interview question.
type Question struct {
	ID         string `json:"id"`
	Text       string `json:"text"`
	Category   string `json:"category"`
	Difficulty string `json:"difficulty"`
	Index      int    `json:"index"`
}

// Progress counts answered questions.
type Progress struct {
	Answered int `json:"answered"`
	Total    int `json:"total"`
}

// StartResult is returned when a session is created. FirstQuestion is
// withheld from the candidate until they consent.
type StartResult struct {
	SessionID     string    `json:"session_id"`
	Greeting      string    `json:"greeting,omitempty"`
	FirstQuestion *Question `json:"first_question"`
	Progress      Progress  `json:"progress"`
}

// AnswerResult is returned after an answer or a skip.
type AnswerResult struct {
	Acknowledgment string    `json:"acknowledgment,omitempty"`
	NextQuestion   *Question `json:"next_question,omitempty"`
	IsComplete     bool      `json:"is_complete"`
	Progress       Progress  `json:"progress"`
}

// API is the Session API surface used by the interview controller.
type API interface {
	Start(ctx context.Context, planID, persona string) (*StartResult, error)
	ConfirmConsent(ctx context.Context, sessionID string) error
	SubmitAnswer(ctx context.Context, sessionID, answer string, responseSeconds float64) (*AnswerResult, error)
	Skip(ctx context.Context, sessionID string) (*AnswerResult, error)
	Pause(ctx context.Context, sessionID string) error
	Resume(ctx context.Context, sessionID string) error
	End(ctx context.Context, sessionID string) error
}
