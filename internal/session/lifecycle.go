package session

import (
	"context"

	"github.com/GriffinCanCode/interview-coach/internal/scheduler"
	"github.com/GriffinCanCode/interview-coach/internal/trace"
)

// Pause suspends the interview. Speech, listening, the countdown and
// analytics sampling stop until Resume.
func (c *Controller) Pause(ctx context.Context) error {
	ctx, span := trace.StartSpan(ctx, "session_pause")
	defer span.End()

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Phase() != PhaseInProgress {
		return span.Fail(c.phaseError("pause"))
	}
	if c.inflight {
		return span.Fail(errBusy())
	}
	id := c.info.ID
	if err := c.unlocked(func() error { return c.deps.API.Pause(ctx, id) }); err != nil {
		c.emitError(err)
		return span.Fail(err)
	}
	if c.Phase() != PhaseInProgress {
		return span.Fail(c.phaseError("pause"))
	}

	if text := trimmed(c.buffer.Swap("")); text != "" {
		c.draft = text
	}
	c.clearInputLocked()
	c.sched.Cancel(scheduler.TaskMetrics)
	c.setPhaseLocked(PhasePaused)
	c.speech.Halt()
	if eng := c.engine.Load(); eng != nil {
		eng.PauseTimer()
		eng.Stop()
	}
	c.record(RoleSystem, TypeNotice, "Interview paused.")
	return nil
}

// Resume continues a paused interview.
func (c *Controller) Resume(ctx context.Context) error {
	ctx, span := trace.StartSpan(ctx, "session_resume")
	defer span.End()

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Phase() != PhasePaused {
		return span.Fail(c.phaseError("resume"))
	}
	if c.inflight {
		return span.Fail(errBusy())
	}
	id := c.info.ID
	if err := c.unlocked(func() error { return c.deps.API.Resume(ctx, id) }); err != nil {
		c.emitError(err)
		return span.Fail(err)
	}
	if c.Phase() != PhasePaused {
		return span.Fail(c.phaseError("resume"))
	}

	c.setPhaseLocked(PhaseInProgress)
	if c.analyticsOn() {
		eng := c.engine.Load()
		eng.Start()
		eng.ResumeTimer()
		c.sched.Every(scheduler.TaskMetrics, c.opts.MetricsInterval, c.broadcastMetrics)
	}
	switch {
	case c.revealed || c.current == nil:
		c.say(TypeMessage, resumeLine)
	case !c.rounds.Pending():
		c.record(RoleInterviewer, TypeMessage, resumeLine)
		c.revealLocked(c.current, resumeLine)
	default:
		c.say(TypeMessage, resumeLine)
	}
	return nil
}

// End finishes the session early. It is idempotent; ending a completed
// session does nothing. The backend is told after local teardown, so a
// failure there still leaves the session completed.
func (c *Controller) End(ctx context.Context) error {
	ctx, span := trace.StartSpan(ctx, "session_end")
	defer span.End()

	c.mu.Lock()
	if c.Phase() == PhaseCompleted {
		c.mu.Unlock()
		return nil
	}
	id := c.info.ID
	c.completeLocked(ctx)
	c.mu.Unlock()

	if id == "" {
		return nil
	}
	if err := c.deps.API.End(ctx, id); err != nil {
		trace.Logger(trace.WithSession(ctx, id)).Warn("session api end failed", "error", err)
		c.emitError(err)
		return span.Fail(err)
	}
	return nil
}

// completeLocked tears the session down: timers, speech, analytics, rounds
// and capture stop, the recording is persisted and the summary computed.
func (c *Controller) completeLocked(ctx context.Context) {
	ctx = context.WithoutCancel(ctx)
	c.setPhaseLocked(PhaseCompleted)
	c.sched.CancelAll()
	c.buffer.Store("")
	c.draft = ""
	c.speech.Halt()
	eng := c.engine.Load()
	if eng != nil {
		eng.StopQuestionTimer()
		eng.Stop()
	}
	c.rounds.Finish()

	res := &Result{Session: c.info, CompletedAt: c.sched.Now()}
	c.finishRecordingLocked(ctx, res)
	if eng != nil && c.persona.AnalyticsEnabled {
		if s, err := eng.Summary(); err != nil {
			res.SummaryError = err.Error()
		} else {
			res.Summary = &s
		}
		res.Timeouts = eng.Timeouts()
	}
	res.Rounds = c.rounds.Completed()

	if c.info.ID != "" {
		c.say(TypeClosing, closingLine)
	}
	res.Messages = c.log.Messages()
	c.result = res
	c.emit(EventComplete, res)
	c.logger().Info("session completed",
		"answered", c.info.Progress.Answered, "total", c.info.Progress.Total,
		"rounds", len(res.Rounds), "recording", res.Recording != nil)
}

// finishRecordingLocked stops capture and persists the recording before the
// summary is produced.
func (c *Controller) finishRecordingLocked(ctx context.Context, res *Result) {
	if c.media == nil {
		return
	}
	if !c.media.Running() {
		c.media.Release()
		return
	}
	rec, err := c.media.Stop(ctx)
	if err != nil {
		c.logger().Error("recording failed", "error", err)
		res.RecordingError = err.Error()
		c.emitError(err)
		return
	}
	res.Recording = &RecordingInfo{
		Duration: rec.Duration,
		MIMEType: rec.MIMEType,
		Size:     len(rec.Data),
		Chunks:   rec.Chunks,
	}
	if c.deps.Store == nil {
		return
	}
	if err := c.deps.Store.Save(ctx, c.info.ID, rec); err != nil {
		c.logger().Error("persisting recording failed", "error", err)
		res.RecordingError = err.Error()
		c.emitError(err)
		return
	}
	res.Recording.Persisted = true
}
