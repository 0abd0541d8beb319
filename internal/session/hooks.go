package session

import (
	"time"

	"github.com/GriffinCanCode/interview-coach/internal/analytics"
	"github.com/GriffinCanCode/interview-coach/internal/capture"
	"github.com/GriffinCanCode/interview-coach/internal/config"
	"github.com/GriffinCanCode/interview-coach/internal/scheduler"
)

// Callbacks from speech, capture and the countdown. Capture and speech-burst
// hooks never take the controller lock.

// onTranscript receives the cumulative text of one listen cycle. Text heard
// in earlier cycles of the same question is kept in front of it.
func (c *Controller) onTranscript(cycle uint64, text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.Phase().Listening() {
		return
	}
	if cycle != c.cycle {
		c.cycle = cycle
		c.carried = trimmed(c.buffer.Load())
		if c.carried == "" {
			c.carried = c.draft
		}
	}
	if c.heardAt.IsZero() {
		c.heardAt = c.sched.Now()
	}
	text = joinText(c.carried, text)
	c.buffer.Store(text)
	c.emit(EventTranscript, text)
	if eng := c.engine.Load(); eng != nil {
		eng.ObserveTranscript(text)
	}
	if len([]rune(trimmed(text))) > c.opts.MinAnswerLength {
		c.sched.After(scheduler.TaskSilence, c.autoSubmitDelay(), c.onSilence)
	}
}

func (c *Controller) autoSubmitDelay() time.Duration {
	if d := c.persona.AutoSubmitDelay; d > 0 {
		return d
	}
	return config.DefaultAutoSubmitDelay
}

// onSilence submits whatever the transcript holds when the timer fires.
func (c *Controller) onSilence() {
	c.mu.Lock()
	defer c.mu.Unlock()
	text := trimmed(c.buffer.Load())
	if text == "" || !c.Phase().Listening() || c.inflight {
		return
	}
	c.speech.StopListening()
	if err := c.submitLocked(c.sessionContext(), text); err != nil {
		c.logger().Warn("auto-submit failed", "error", err)
	}
}

func (c *Controller) onListenEnd(err error) {
	if err != nil {
		c.emitError(err)
	}
}

func (c *Controller) onSpeechStart(at time.Time) {
	if eng := c.engine.Load(); eng != nil {
		eng.SpeechStarted(at)
	}
}

func (c *Controller) onSpeechEnd(at time.Time) {
	if eng := c.engine.Load(); eng != nil {
		eng.SpeechEnded(at)
	}
}

func (c *Controller) onAudio(chunk capture.AudioChunk) {
	c.speech.ObserveAudio(chunk.Samples, chunk.At)
}

func (c *Controller) onFace(p capture.FacePosition) {
	if eng := c.engine.Load(); eng != nil {
		eng.ObserveFace(analytics.FaceSample{X: p.X, Y: p.Y, Detected: p.Detected, At: p.At})
	}
	c.emit(EventFace, p)
}

func (c *Controller) onTick(index int, remaining time.Duration) {
	c.emit(EventTick, Tick{QuestionIndex: index, Remaining: remaining.Seconds()})
}

// onTimeout submits the transcript so far, or a placeholder, when the
// countdown for the open question runs out.
func (c *Controller) onTimeout(index int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	q := c.current
	if c.Phase() != PhaseInProgress || c.inflight || q == nil || !c.revealed || q.Index != index || c.answered[q.ID] {
		return
	}
	text := trimmed(c.buffer.Load())
	if text == "" {
		text = c.draft
	}
	if text == "" {
		text = analytics.TimeoutPlaceholder
	}
	c.logger().Info("question timed out", "question", index)
	c.speech.StopListening()
	if err := c.answerLocked(c.sessionContext(), text); err != nil {
		c.logger().Warn("timeout submit failed", "error", err)
	}
}

func (c *Controller) broadcastMetrics() {
	if eng := c.engine.Load(); eng != nil && eng.Active() {
		c.emit(EventMetrics, eng.Metrics())
	}
}
