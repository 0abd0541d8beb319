package session

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/GriffinCanCode/interview-coach/internal/analytics"
	"github.com/GriffinCanCode/interview-coach/internal/capture"
	apperrors "github.com/GriffinCanCode/interview-coach/internal/errors"
	"github.com/GriffinCanCode/interview-coach/internal/intent"
	"github.com/GriffinCanCode/interview-coach/internal/rounds"
	"github.com/GriffinCanCode/interview-coach/internal/scheduler"
	"github.com/GriffinCanCode/interview-coach/internal/sessionapi"
	"github.com/GriffinCanCode/interview-coach/internal/trace"
)

// Start opens a backend session with the given plan and persona. The first
// question is held back until the candidate consents.
func (c *Controller) Start(ctx context.Context, planID, persona string) error {
	ctx, span := trace.StartSpan(ctx, "session_start")
	defer span.End()
	span.SetAttr("persona", persona)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Phase() != PhaseGreeting || c.info.ID != "" {
		return span.Fail(c.phaseError("start"))
	}
	if c.inflight {
		return span.Fail(errBusy())
	}
	p, ok := c.opts.Personas.Lookup(persona)
	if !ok {
		return span.Fail(apperrors.Newf(apperrors.InvalidArgument, "unknown persona %q", persona).
			WithMetadata("personas", strings.Join(c.opts.Personas.Names(), ",")))
	}

	var res *sessionapi.StartResult
	err := c.unlocked(func() (err error) {
		res, err = c.deps.API.Start(ctx, planID, p.Name)
		return err
	})
	if err != nil {
		c.emitError(err)
		return span.Fail(err)
	}
	if c.Phase() != PhaseGreeting {
		return span.Fail(c.phaseError("start"))
	}
	if res.FirstQuestion == nil {
		return span.Fail(apperrors.New(apperrors.Internal, "session api returned no questions"))
	}

	c.id.Store(res.SessionID)
	c.info.ID = res.SessionID
	c.info.Persona = p.Name
	c.info.Progress = res.Progress
	c.persona = p
	c.current = res.FirstQuestion
	c.revealed = false
	c.engine.Store(analytics.New(c.sched, analytics.OptionsFor(p), analytics.Hooks{
		OnTick:    c.onTick,
		OnTimeout: c.onTimeout,
	}))
	span.SetAttr("session_id", res.SessionID)

	c.setPhaseLocked(PhaseWaitingForConsent)
	greeting := trimmed(res.Greeting)
	if greeting == "" {
		greeting = defaultGreeting
	}
	c.say(TypeGreeting, greeting)
	trace.Logger(trace.WithSession(ctx, res.SessionID)).Info("session started",
		"persona", p.Name, "plan", planID, "total", res.Progress.Total)
	return nil
}

// SubmitInput handles typed or transcribed candidate input. Before consent it
// is classified; during the interview it answers the open question.
func (c *Controller) SubmitInput(ctx context.Context, text string) error {
	text = trimmed(text)
	if text == "" {
		return apperrors.New(apperrors.InvalidArgument, "input is empty")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.submitLocked(ctx, text)
}

func (c *Controller) submitLocked(ctx context.Context, text string) error {
	if c.inflight {
		return errBusy()
	}
	switch c.Phase() {
	case PhaseWaitingForConsent:
		return c.converseLocked(ctx, text)
	case PhaseInProgress:
		return c.answerLocked(ctx, text)
	default:
		return c.phaseError("submit input")
	}
}

func (c *Controller) clearInputLocked() {
	c.sched.Cancel(scheduler.TaskSilence)
	c.buffer.Store("")
	c.carried = ""
}

// converseLocked handles pre-consent input: consent starts the interview,
// anything else gets a canned reply and the phase is unchanged.
func (c *Controller) converseLocked(ctx context.Context, text string) error {
	c.clearInputLocked()
	c.record(RoleCandidate, TypeMessage, text)
	label := intent.Classify(text)
	c.logger().Debug("classified pre-consent input", "intent", label)
	if label == intent.Consent {
		return c.consentLocked(ctx)
	}
	reply, _ := intent.Response(label)
	c.say(TypeResponse, reply)
	return nil
}

func (c *Controller) consentLocked(ctx context.Context) error {
	ctx, span := trace.StartSpan(ctx, "session_consent")
	defer span.End()

	id, withAnalytics := c.info.ID, c.persona.AnalyticsEnabled
	var acq capture.Acquisition
	var acqErr error
	err := c.unlocked(func() error {
		if err := c.deps.API.ConfirmConsent(ctx, id); err != nil {
			return err
		}
		if withAnalytics && c.media != nil {
			acq, acqErr = c.media.Acquire(ctx)
		}
		return nil
	})
	if err != nil {
		c.emitError(err)
		return span.Fail(err)
	}
	if c.Phase() != PhaseWaitingForConsent {
		if c.media != nil {
			c.media.Release()
		}
		return span.Fail(c.phaseError("start the interview"))
	}

	c.setPhaseLocked(PhaseInProgress)
	q := c.current
	round := c.rounds.Start(q.Category)
	c.emit(EventRound, RoundUpdate{Current: round})
	if withAnalytics {
		c.engine.Load().Start()
		c.startCaptureLocked(acq, acqErr)
		c.sched.Every(scheduler.TaskMetrics, c.opts.MetricsInterval, c.broadcastMetrics)
	}
	c.revealLocked(q, "")
	return nil
}

func (c *Controller) startCaptureLocked(acq capture.Acquisition, acqErr error) {
	if c.media == nil {
		return
	}
	if acqErr != nil {
		c.logger().Warn("capture unavailable, continuing without it", "error", acqErr)
		c.emitError(acqErr)
		return
	}
	c.acq = &acq
	c.emit(EventCapture, acq)
	sinks := capture.Sinks{OnFace: c.onFace, OnAudio: c.onAudio}
	if err := c.media.Start(c.sessionContext(), sinks); err != nil {
		c.logger().Warn("capture did not start", "error", err)
		c.emitError(err)
	}
}

// revealLocked shows q, starts its countdown and speaks it after preface.
func (c *Controller) revealLocked(q *sessionapi.Question, preface string) {
	c.revealed = true
	c.askedAt = c.sched.Now()
	c.heardAt = time.Time{}
	c.buffer.Store("")
	c.carried = ""
	if c.analyticsOn() {
		c.engine.Load().StartQuestion(q.Index)
	}
	c.record(RoleInterviewer, TypeQuestion, q.Text)
	c.speech.Speak(trimmed(preface + " " + q.Text))
}

func (c *Controller) openQuestionLocked() (*sessionapi.Question, error) {
	q := c.current
	if q == nil || !c.revealed {
		return nil, apperrors.New(apperrors.InvalidPhase, "no question is open")
	}
	if c.answered[q.ID] {
		return nil, apperrors.Newf(apperrors.AlreadyAnswered, "question %s was already answered", q.ID)
	}
	return q, nil
}

// answerLocked submits text as the answer to the open question.
func (c *Controller) answerLocked(ctx context.Context, text string) error {
	ctx, span := trace.StartSpan(ctx, "session_answer")
	defer span.End()

	q, err := c.openQuestionLocked()
	if err != nil {
		return span.Fail(err)
	}
	span.SetAttr("question_id", q.ID)
	c.clearInputLocked()

	id := c.info.ID
	responseTime := c.sched.Now().Sub(c.askedAt)
	var res *sessionapi.AnswerResult
	err = c.unlocked(func() (err error) {
		res, err = c.deps.API.SubmitAnswer(ctx, id, text, responseTime.Seconds())
		return err
	})
	if err != nil {
		if c.Phase() == PhaseInProgress {
			c.draft = text
		}
		c.emitError(err)
		return span.Fail(err)
	}
	if c.Phase() != PhaseInProgress || c.current != q {
		return span.Fail(c.phaseError("record an answer"))
	}

	c.draft = ""
	c.answered[q.ID] = true
	if eng := c.engine.Load(); eng != nil {
		eng.StopQuestionTimer()
		if c.analyticsOn() {
			eng.RecordSpeed(analytics.WordCount(text), c.speakingTimeLocked(eng))
		}
	}
	c.record(RoleCandidate, TypeAnswer, text)
	c.advanceLocked(ctx, res)
	return nil
}

// speakingTimeLocked is the time the candidate spent speaking the open answer:
// the speech bursts when the meter saw any, else the time since the first
// transcript. Typed answers have no speaking time.
func (c *Controller) speakingTimeLocked(eng *analytics.Engine) time.Duration {
	if d := eng.SpeakingTime(); d > 0 {
		return d
	}
	if c.heardAt.IsZero() {
		return 0
	}
	return c.sched.Now().Sub(c.heardAt)
}

// Skip moves past the open question without answering it.
func (c *Controller) Skip(ctx context.Context) error {
	ctx, span := trace.StartSpan(ctx, "session_skip")
	defer span.End()

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Phase() != PhaseInProgress {
		return span.Fail(c.phaseError("skip"))
	}
	if c.inflight {
		return span.Fail(errBusy())
	}
	q, err := c.openQuestionLocked()
	if err != nil {
		return span.Fail(err)
	}
	c.clearInputLocked()
	c.speech.StopListening()

	id := c.info.ID
	var res *sessionapi.AnswerResult
	err = c.unlocked(func() (err error) {
		res, err = c.deps.API.Skip(ctx, id)
		return err
	})
	if err != nil {
		c.emitError(err)
		return span.Fail(err)
	}
	if c.Phase() != PhaseInProgress || c.current != q {
		return span.Fail(c.phaseError("skip"))
	}

	c.answered[q.ID] = true
	if eng := c.engine.Load(); eng != nil {
		eng.StopQuestionTimer()
	}
	c.draft = ""
	c.record(RoleSystem, TypeNotice, "Question skipped.")
	c.advanceLocked(ctx, res)
	return nil
}

// RoundUpdate is the payload of a round event.
type RoundUpdate struct {
	Current    rounds.Round       `json:"current,omitempty"`
	Transition *rounds.Transition `json:"transition,omitempty"`
	Completed  []rounds.Round     `json:"completed,omitempty"`
}

// advanceLocked acknowledges the last answer and moves to the next question,
// or completes the session.
func (c *Controller) advanceLocked(ctx context.Context, res *sessionapi.AnswerResult) {
	c.info.Progress = res.Progress
	ack := c.memory.Acknowledge(res.Acknowledgment)
	c.record(RoleInterviewer, TypeAcknowledgment, ack)

	if res.IsComplete || res.NextQuestion == nil {
		if !res.IsComplete {
			c.logger().Warn("session api returned no next question, completing")
		}
		c.completeLocked(ctx)
		return
	}

	next := res.NextQuestion
	c.current = next
	c.revealed = false
	tr, changed := c.rounds.Observe(next.Category, c.commitRound(next))
	if !changed {
		c.revealLocked(next, ack)
		return
	}
	notice := fmt.Sprintf("That wraps up the %s round. Next up is the %s round.", roundTitle(tr.Completed), roundTitle(tr.Next))
	c.record(RoleInterviewer, TypeRound, notice)
	c.emit(EventRound, RoundUpdate{Transition: &tr, Completed: c.rounds.Completed()})
	c.speech.Speak(ack + " " + notice)
}

// commitRound returns the callback run once the round banner has been shown.
func (c *Controller) commitRound(next *sessionapi.Question) func(rounds.Round) {
	return func(r rounds.Round) {
		c.mu.Lock()
		defer c.mu.Unlock()
		c.emit(EventRound, RoundUpdate{Current: r, Completed: c.rounds.Completed()})
		if c.Phase() != PhaseInProgress || c.current != next || c.revealed {
			return
		}
		c.revealLocked(next, "")
	}
}

func roundTitle(r rounds.Round) string {
	switch r {
	case rounds.DSA, rounds.HR:
		return string(r)
	}
	return strings.ToLower(string(r))
}
