package analytics

import (
	"log/slog"
	"time"

	"github.com/GriffinCanCode/interview-coach/internal/scheduler"
)

type questionTimer struct {
	limit     time.Duration
	remaining time.Duration
	running   bool
	paused    bool
	timeouts  []int
}

// StartQuestion moves to question index and restarts the countdown from the
// configured limit. A zero limit disables the countdown.
func (e *Engine) StartQuestion(index int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.question = index
	e.silence.forget()
	e.speed.newQuestion()
	e.timer.remaining = e.timer.limit
	e.timer.paused = false
	e.timer.running = e.timer.limit > 0
	if !e.timer.running {
		e.sched.Cancel(scheduler.TaskQuestionTimer)
		return
	}
	e.sched.Every(scheduler.TaskQuestionTimer, TickInterval, e.tick)
}

// StopQuestionTimer cancels the countdown and returns how long the current
// question has been open.
func (e *Engine) StopQuestionTimer() time.Duration {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.sched.Cancel(scheduler.TaskQuestionTimer)
	e.timer.running = false
	e.timer.paused = false
	return e.timer.limit - e.timer.remaining
}

// PauseTimer stops the countdown without discarding the remaining time.
func (e *Engine) PauseTimer() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.timer.running {
		return
	}
	e.sched.Cancel(scheduler.TaskQuestionTimer)
	e.timer.running = false
	e.timer.paused = true
}

// ResumeTimer continues a paused countdown.
func (e *Engine) ResumeTimer() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.timer.paused || e.timer.remaining <= 0 {
		return
	}
	e.timer.paused = false
	e.timer.running = true
	e.sched.Every(scheduler.TaskQuestionTimer, TickInterval, e.tick)
}

// Remaining returns the time left on the current question.
func (e *Engine) Remaining() time.Duration {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.timer.remaining
}

// Timeouts returns the indexes of questions whose countdown expired.
func (e *Engine) Timeouts() []int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]int(nil), e.timer.timeouts...)
}

func (e *Engine) tick() {
	e.mu.Lock()
	if !e.timer.running {
		e.mu.Unlock()
		return
	}
	e.timer.remaining -= TickInterval
	index, remaining := e.question, e.timer.remaining
	expired := remaining <= 0
	if expired {
		e.timer.remaining = 0
		remaining = 0
		e.timer.running = false
		e.timer.timeouts = append(e.timer.timeouts, index)
		e.sched.Cancel(scheduler.TaskQuestionTimer)
	}
	autoSubmit := e.opts.AutoSubmit
	e.mu.Unlock()

	if e.hooks.OnTick != nil {
		e.hooks.OnTick(index, remaining)
	}
	if !expired {
		return
	}
	slog.Info("question timed out", "question_index", index, "auto_submit", autoSubmit)
	if autoSubmit && e.hooks.OnTimeout != nil {
		e.hooks.OnTimeout(index)
	}
}
