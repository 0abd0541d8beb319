package analytics

import (
	"testing"
	"time"
)

func TestCountdownTicksAndTimesOut(t *testing.T) {
	var ticks []time.Duration
	var timedOut []int
	e, clock := newEngine(
		Options{QuestionTimeLimit: 3 * time.Second, AutoSubmit: true},
		Hooks{
			OnTick:    func(_ int, remaining time.Duration) { ticks = append(ticks, remaining) },
			OnTimeout: func(index int) { timedOut = append(timedOut, index) },
		},
	)

	e.StartQuestion(2)
	clock.Advance(2 * time.Second)
	if e.Remaining() != time.Second {
		t.Errorf("remaining = %v, want 1s", e.Remaining())
	}

	clock.Advance(5 * time.Second)
	if len(ticks) != 3 || ticks[2] != 0 {
		t.Errorf("ticks = %v", ticks)
	}
	if len(timedOut) != 1 || timedOut[0] != 2 {
		t.Errorf("timeouts = %v, want [2]", timedOut)
	}
	if got := e.Timeouts(); len(got) != 1 || got[0] != 2 {
		t.Errorf("recorded timeouts = %v", got)
	}
	if clock.Pending() != 0 {
		t.Errorf("countdown should stop after expiry, %d timers pending", clock.Pending())
	}
}

func TestCountdownWithoutAutoSubmit(t *testing.T) {
	called := false
	e, clock := newEngine(
		Options{QuestionTimeLimit: time.Second},
		Hooks{OnTimeout: func(int) { called = true }},
	)
	e.StartQuestion(0)
	clock.Advance(2 * time.Second)

	if called {
		t.Error("timeout hook should only fire when auto-submit is enabled")
	}
	if len(e.Timeouts()) != 1 {
		t.Error("timeout should still be recorded")
	}
}

func TestPauseKeepsRemainingTime(t *testing.T) {
	e, clock := newEngine(Options{QuestionTimeLimit: 10 * time.Second}, Hooks{})
	e.StartQuestion(0)
	clock.Advance(4 * time.Second)

	e.PauseTimer()
	clock.Advance(30 * time.Second)
	if got := e.Remaining(); got != 6*time.Second {
		t.Errorf("remaining while paused = %v, want 6s", got)
	}

	e.ResumeTimer()
	clock.Advance(2 * time.Second)
	if got := e.Remaining(); got != 4*time.Second {
		t.Errorf("remaining after resume = %v, want 4s", got)
	}
}

func TestStopQuestionTimer(t *testing.T) {
	e, clock := newEngine(Options{QuestionTimeLimit: 10 * time.Second}, Hooks{})
	e.StartQuestion(0)
	clock.Advance(3 * time.Second)

	if got := e.StopQuestionTimer(); got != 3*time.Second {
		t.Errorf("elapsed = %v, want 3s", got)
	}
	clock.Advance(20 * time.Second)
	if got := e.Remaining(); got != 7*time.Second {
		t.Errorf("remaining = %v, want 7s", got)
	}
	e.ResumeTimer()
	if e.Metrics().TimerRunning {
		t.Error("a stopped timer should not resume")
	}
}

func TestStartQuestionRestartsCountdown(t *testing.T) {
	e, clock := newEngine(Options{QuestionTimeLimit: 5 * time.Second}, Hooks{})
	e.StartQuestion(0)
	clock.Advance(3 * time.Second)
	e.StartQuestion(1)
	if got := e.Remaining(); got != 5*time.Second {
		t.Errorf("remaining = %v, want 5s", got)
	}
	if got := e.Metrics().QuestionIndex; got != 1 {
		t.Errorf("question = %d, want 1", got)
	}
}
