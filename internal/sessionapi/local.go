package sessionapi

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	apperrors "github.com/GriffinCanCode/interview-coach/internal/errors"
)

// Plan is a fixed list of questions.
type Plan struct {
	ID        string     `yaml:"id"`
	Greeting  string     `yaml:"greeting"`
	Questions []Question `yaml:"questions"`
}

// DefaultPlan is served when no plan file is configured.
func DefaultPlan() Plan {
	return Plan{
		ID:       "default",
		Greeting: "Hi, I'm your interviewer today. We'll go through a few questions. Let me know when you're ready to begin.",
		Questions: []Question{
			{ID: "q1", Text: "Given an array of integers, how would you find two numbers that add up to a target?", Category: "DSA", Difficulty: "easy"},
			{ID: "q2", Text: "How would you design a rate limiter for a public API?", Category: "System Design", Difficulty: "medium"},
			{ID: "q3", Text: "Tell me about a time you disagreed with a teammate and how you resolved it.", Category: "Behavioral", Difficulty: "medium"},
		},
	}
}

// LoadPlans reads plans from a YAML file holding a list of plans.
func LoadPlans(path string) ([]Plan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read plans: %w", err)
	}
	var plans []Plan
	if err := yaml.Unmarshal(data, &plans); err != nil {
		return nil, fmt.Errorf("parse plans %s: %w", path, err)
	}
	for i, p := range plans {
		if p.ID == "" || len(p.Questions) == 0 {
			return nil, fmt.Errorf("plan %d in %s needs an id and questions", i, path)
		}
	}
	return plans, nil
}

type localSession struct {
	plan      Plan
	persona   string
	consented bool
	paused    bool
	ended     bool
	next      int
	answers   []string
}

// Local is an in-process Session API serving fixed plans. It backs offline
// runs and tests.
type Local struct {
	mu       sync.Mutex
	plans    map[string]Plan
	sessions map[string]*localSession
}

// NewLocal creates a Local API. The first plan is also served for unknown
// plan ids.
func NewLocal(plans ...Plan) *Local {
	if len(plans) == 0 {
		plans = []Plan{DefaultPlan()}
	}
	l := &Local{plans: make(map[string]Plan), sessions: make(map[string]*localSession)}
	for i, p := range plans {
		p.Questions = append([]Question(nil), p.Questions...)
		for j := range p.Questions {
			p.Questions[j].Index = j
		}
		l.plans[p.ID] = p
		if i == 0 {
			l.plans[""] = p
		}
	}
	return l
}

// Start implements API.
func (l *Local) Start(_ context.Context, planID, persona string) (*StartResult, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	plan, ok := l.plans[planID]
	if !ok {
		plan = l.plans[""]
	}
	id := uuid.NewString()
	l.sessions[id] = &localSession{plan: plan, persona: persona}
	first := plan.Questions[0]
	return &StartResult{
		SessionID:     id,
		Greeting:      plan.Greeting,
		FirstQuestion: &first,
		Progress:      Progress{Total: len(plan.Questions)},
	}, nil
}

// ConfirmConsent implements API.
func (l *Local) ConfirmConsent(_ context.Context, sessionID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	s, err := l.session(sessionID)
	if err != nil {
		return err
	}
	s.consented = true
	return nil
}

// SubmitAnswer implements API.
func (l *Local) SubmitAnswer(_ context.Context, sessionID, answer string, _ float64) (*AnswerResult, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.advance(sessionID, answer, "Thank you.")
}

// Skip implements API.
func (l *Local) Skip(_ context.Context, sessionID string) (*AnswerResult, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.advance(sessionID, "", "Let's move on.")
}

func (l *Local) advance(sessionID, answer, ack string) (*AnswerResult, error) {
	s, err := l.session(sessionID)
	if err != nil {
		return nil, err
	}
	switch {
	case !s.consented:
		return nil, apperrors.New(apperrors.InvalidPhase, "candidate has not consented")
	case s.paused:
		return nil, apperrors.New(apperrors.InvalidPhase, "session is paused")
	case s.next >= len(s.plan.Questions):
		return nil, apperrors.New(apperrors.AlreadyAnswered, "all questions answered")
	}
	s.answers = append(s.answers, answer)
	s.next++
	res := &AnswerResult{
		Acknowledgment: ack,
		Progress:       Progress{Answered: s.next, Total: len(s.plan.Questions)},
	}
	if s.next == len(s.plan.Questions) {
		res.IsComplete = true
		return res, nil
	}
	q := s.plan.Questions[s.next]
	res.NextQuestion = &q
	return res, nil
}

// Pause implements API.
func (l *Local) Pause(_ context.Context, sessionID string) error {
	return l.setPaused(sessionID, true)
}

// Resume implements API.
func (l *Local) Resume(_ context.Context, sessionID string) error {
	return l.setPaused(sessionID, false)
}

func (l *Local) setPaused(sessionID string, paused bool) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	s, err := l.session(sessionID)
	if err != nil {
		return err
	}
	s.paused = paused
	return nil
}

// End implements API.
func (l *Local) End(_ context.Context, sessionID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	s, err := l.session(sessionID)
	if err != nil {
		return err
	}
	s.ended = true
	return nil
}

// Answers returns the answers recorded for a session, skips as "".
func (l *Local) Answers(sessionID string) []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	if s, ok := l.sessions[sessionID]; ok {
		return append([]string(nil), s.answers...)
	}
	return nil
}

func (l *Local) session(id string) (*localSession, error) {
	s, ok := l.sessions[id]
	if !ok {
		return nil, apperrors.New(apperrors.NotFound, "session not found").WithMetadata("session_id", id)
	}
	if s.ended {
		return nil, apperrors.New(apperrors.InvalidPhase, "session has ended").WithMetadata("session_id", id)
	}
	return s, nil
}
