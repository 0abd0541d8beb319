// Package analytics derives behavioral signals from an interview in progress:
// eye contact, posture stability, filler words, silences and speaking pace,
// plus the per-question countdown.
package analytics

import (
	"log/slog"
	"sync"
	"time"

	"github.com/GriffinCanCode/interview-coach/internal/config"
	"github.com/GriffinCanCode/interview-coach/internal/scheduler"
)

// FaceSample is one face-position estimate. X and Y are normalized to the
// frame, with (0.5, 0.5) at the center.
type FaceSample struct {
	X        float64   `json:"x"`
	Y        float64   `json:"y"`
	Detected bool      `json:"detected"`
	At       time.Time `json:"at"`
}

// Options configure an Engine for one session.
type Options struct {
	QuestionTimeLimit time.Duration
	SilenceThreshold  time.Duration
	// AutoSubmit makes the countdown submit the current answer on expiry.
	AutoSubmit bool
	// Fillers overrides DefaultFillers.
	Fillers []string
}

// OptionsFor derives engine options from a persona.
func OptionsFor(p config.Persona) Options {
	return Options{
		QuestionTimeLimit: p.QuestionTimeLimit,
		SilenceThreshold:  p.SilenceThreshold,
		AutoSubmit:        p.TimerAutoSubmit,
	}
}

// Hooks receive countdown events. They run on the scheduler's goroutine
// without any engine lock held.
type Hooks struct {
	OnTick    func(questionIndex int, remaining time.Duration)
	OnTimeout func(questionIndex int)
}

// Engine accumulates metrics while active. All methods are safe for
// concurrent use.
type Engine struct {
	sched *scheduler.Scheduler
	opts  Options
	hooks Hooks

	mu       sync.Mutex
	active   bool
	question int
	lastFace FaceSample
	eye      eyeContact
	posture  posture
	fillers  *fillerTracker
	silence  silenceTracker
	speed    speedTracker
	timer    questionTimer
}

// New creates an inactive engine. Timers run on sched.
func New(sched *scheduler.Scheduler, opts Options, hooks Hooks) *Engine {
	if opts.SilenceThreshold <= 0 {
		opts.SilenceThreshold = DefaultSilenceThreshold
	}
	if len(opts.Fillers) == 0 {
		opts.Fillers = DefaultFillers
	}
	e := &Engine{sched: sched, opts: opts, hooks: hooks}
	e.resetLocked()
	return e
}

func (e *Engine) resetLocked() {
	e.question = 0
	e.lastFace = FaceSample{X: 0.5, Y: 0.5}
	e.eye = newEyeContact()
	e.posture = newPosture()
	e.fillers = newFillerTracker(e.opts.Fillers)
	e.silence = newSilenceTracker(e.opts.SilenceThreshold)
	e.speed = newSpeedTracker()
	e.timer = questionTimer{limit: e.opts.QuestionTimeLimit}
}

// Start enables sampling.
func (e *Engine) Start() {
	e.mu.Lock()
	e.active = true
	e.mu.Unlock()
	slog.Debug("analytics started")
}

// Stop disables sampling. Collected data and the countdown state are kept.
func (e *Engine) Stop() {
	e.mu.Lock()
	e.speed.burstEnded(e.sched.Now())
	e.active = false
	e.mu.Unlock()
	slog.Debug("analytics stopped")
}

// Active reports whether the engine is sampling.
func (e *Engine) Active() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.active
}

// Reset cancels the countdown and discards all collected data.
func (e *Engine) Reset() {
	e.sched.Cancel(scheduler.TaskQuestionTimer)
	e.mu.Lock()
	defer e.mu.Unlock()
	e.active = false
	e.resetLocked()
}

// ObserveFace records one capture-loop tick.
func (e *Engine) ObserveFace(s FaceSample) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.active {
		return
	}
	if s.At.IsZero() {
		s.At = e.sched.Now()
	}
	e.lastFace = s
	e.eye.record(EyeContactSample{Looking: isLooking(s), At: s.At})
	if s.Detected {
		e.posture.record(s.X, s.Y, s.At)
	}
}

// ObserveTranscript records the latest transcript of the current answer.
// Updates are cumulative: a later call for the same question replaces the
// earlier tally.
func (e *Engine) ObserveTranscript(text string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.active {
		return
	}
	e.fillers.observe(e.question, text)
}

// SpeechStarted marks the start of a speech burst.
func (e *Engine) SpeechStarted(at time.Time) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.active {
		return
	}
	e.silence.started(at, e.question)
	e.speed.burstStarted(at)
}

// SpeechEnded marks the end of a speech burst.
func (e *Engine) SpeechEnded(at time.Time) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.active {
		return
	}
	e.silence.ended(at)
	e.speed.burstEnded(at)
}

// SpeakingTime returns how long the candidate has spoken on the current
// question, from speech bursts. It is zero when no burst was observed.
func (e *Engine) SpeakingTime() time.Duration {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.speed.speaking(e.sched.Now())
}

// RecordSpeed records words spoken over elapsed speaking time.
func (e *Engine) RecordSpeed(words int, elapsed time.Duration) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.active {
		return
	}
	e.speed.record(words, elapsed, e.sched.Now())
}

// Metrics is a live view of every signal, suitable for broadcasting.
type Metrics struct {
	QuestionIndex   int            `json:"question_index"`
	FaceDetected    bool           `json:"face_detected"`
	Looking         bool           `json:"looking"`
	EyeContact      float64        `json:"eye_contact"`
	Stability       float64        `json:"stability"`
	FidgetCount     int            `json:"fidget_count"`
	FillerCount     int            `json:"filler_count"`
	FillerBreakdown map[string]int `json:"filler_breakdown"`
	FillerRatio     float64        `json:"filler_ratio"`
	SilenceCount    int            `json:"silence_count"`
	LongestSilence  time.Duration  `json:"longest_silence"`
	AverageSilence  time.Duration  `json:"average_silence"`
	WPM             float64        `json:"wpm"`
	TooFast         bool           `json:"too_fast"`
	TooSlow         bool           `json:"too_slow"`
	Remaining       time.Duration  `json:"remaining"`
	TimerRunning    bool           `json:"timer_running"`
	Timeouts        []int          `json:"timeouts"`
}

// Metrics returns the current values.
func (e *Engine) Metrics() Metrics {
	e.mu.Lock()
	defer e.mu.Unlock()
	wpm := e.speed.wpm()
	return Metrics{
		QuestionIndex:   e.question,
		FaceDetected:    e.lastFace.Detected,
		Looking:         isLooking(e.lastFace),
		EyeContact:      e.eye.percentage(),
		Stability:       e.posture.stability(),
		FidgetCount:     e.posture.fidgets,
		FillerCount:     e.fillers.total(),
		FillerBreakdown: e.fillers.breakdown(),
		FillerRatio:     e.fillers.ratio(),
		SilenceCount:    e.silence.count,
		LongestSilence:  e.silence.longest,
		AverageSilence:  e.silence.average(),
		WPM:             wpm,
		TooFast:         e.speed.hasSamples() && wpm > TooFastWPM,
		TooSlow:         e.speed.hasSamples() && wpm < TooSlowWPM,
		Remaining:       e.timer.remaining,
		TimerRunning:    e.timer.running,
		Timeouts:        append([]int(nil), e.timer.timeouts...),
	}
}

// Samples holds copies of the rolling sample windows.
type Samples struct {
	EyeContact []EyeContactSample `json:"eye_contact"`
	Posture    []PostureSample    `json:"posture"`
	Fillers    []FillerOccurrence `json:"fillers"`
	Silences   []SilenceInterval  `json:"silences"`
	Speed      []SpeedSample      `json:"speed"`
}

// Samples returns the rolling windows.
func (e *Engine) Samples() Samples {
	e.mu.Lock()
	defer e.mu.Unlock()
	return Samples{
		EyeContact: e.eye.samples.snapshot(),
		Posture:    e.posture.samples.snapshot(),
		Fillers:    e.fillers.occurrences.snapshot(),
		Silences:   e.silence.intervals.snapshot(),
		Speed:      e.speed.samples.snapshot(),
	}
}
