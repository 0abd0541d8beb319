package speech

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	apperrors "github.com/GriffinCanCode/interview-coach/internal/errors"
	"github.com/GriffinCanCode/interview-coach/internal/resilience"
	"github.com/GriffinCanCode/interview-coach/internal/scheduler"
)

// Service defaults
const (
	DefaultListenDelay         = 500 * time.Millisecond
	DefaultMaxNoSpeechRestarts = 3
)

// errEnded marks a recognition session that ended without being stopped.
var errEnded = errors.New("speech: recognition ended")

// Options configure a Service.
type Options struct {
	// ListenDelay separates the end of speech from the start of listening.
	ListenDelay time.Duration
	// Restart governs the single automatic restart of a recognition session
	// that ended on its own.
	Restart resilience.RetryConfig
	// MaxNoSpeechRestarts bounds restarts after no-speech timeouts within one
	// recognition session.
	MaxNoSpeechRestarts int
	Level               LevelConfig
}

// Service coordinates one synthesizer and one recognizer so that at most one
// utterance and one recognition session are alive, never both at once.
type Service struct {
	synth Synthesizer
	rec   Recognizer
	sched *scheduler.Scheduler
	opts  Options
	cb    Callbacks
	meter *LevelMeter

	mu           sync.Mutex
	speaking     bool
	listening    bool
	micEnabled   bool
	speakGen     uint64
	speakCancel  context.CancelFunc
	listenGen    uint64
	listenCancel context.CancelFunc
}

// NewService creates a service. rec may be nil when recognition is unavailable.
func NewService(synth Synthesizer, rec Recognizer, sched *scheduler.Scheduler, opts Options, cb Callbacks) *Service {
	if opts.ListenDelay <= 0 {
		opts.ListenDelay = DefaultListenDelay
	}
	if opts.MaxNoSpeechRestarts <= 0 {
		opts.MaxNoSpeechRestarts = DefaultMaxNoSpeechRestarts
	}
	if opts.Restart.BaseDelay <= 0 {
		opts.Restart = resilience.DefaultRetryConfig()
	}
	opts.Restart.MaxRetries = 1
	opts.Restart.IsRetryable = func(err error) bool { return errors.Is(err, errEnded) }

	s := &Service{synth: synth, rec: rec, sched: sched, opts: opts, cb: cb, micEnabled: true}
	s.meter = NewLevelMeter(opts.Level, s.burstStarted, s.burstEnded)
	return s
}

// Supported reports whether speech recognition is available.
func (s *Service) Supported() bool {
	return s.rec != nil && s.rec.Supported()
}

// Speak cancels any utterance in flight, stops listening and speaks text.
// It returns immediately; when playback completes listening resumes after
// ListenDelay if the gate allows it.
func (s *Service) Speak(text string) {
	s.mu.Lock()
	s.cancelSpeakLocked()
	s.stopListeningLocked()
	s.sched.Cancel(scheduler.TaskListenDelay)
	s.speakGen++
	gen := s.speakGen
	ctx, cancel := context.WithCancel(context.Background())
	s.speakCancel = cancel
	s.speaking = true
	s.mu.Unlock()
	s.notify()

	go func() {
		err := s.synth.Speak(ctx, text)
		s.finishSpeaking(gen, err)
	}()
}

func (s *Service) finishSpeaking(gen uint64, err error) {
	s.mu.Lock()
	if gen != s.speakGen || !s.speaking {
		s.mu.Unlock()
		return
	}
	s.speaking = false
	s.speakCancel = nil
	s.mu.Unlock()
	s.notify()

	if err != nil && !errors.Is(err, context.Canceled) {
		slog.Warn("speech synthesis failed", "error", err)
	}
	s.scheduleListen()
}

func (s *Service) scheduleListen() {
	if !s.Supported() || (s.cb.Gate != nil && !s.cb.Gate()) {
		return
	}
	s.sched.After(scheduler.TaskListenDelay, s.opts.ListenDelay, func() {
		if s.cb.Gate != nil && !s.cb.Gate() {
			return
		}
		if err := s.Listen(); err != nil {
			slog.Debug("listen after speech skipped", "error", err)
		}
	})
}

// Listen starts a recognition session, cancelling any utterance in flight.
// It is a no-op while the microphone is disabled.
func (s *Service) Listen() error {
	if !s.Supported() {
		return apperrors.New(apperrors.RecognitionUnsupported, "speech recognition is not available")
	}
	s.mu.Lock()
	if !s.micEnabled {
		s.mu.Unlock()
		return nil
	}
	s.cancelSpeakLocked()
	s.stopListeningLocked()
	s.sched.Cancel(scheduler.TaskListenDelay)
	s.listenGen++
	gen := s.listenGen
	ctx, cancel := context.WithCancel(context.Background())
	s.listenCancel = cancel
	s.listening = true
	s.mu.Unlock()
	s.notify()

	go s.recognize(ctx, gen)
	return nil
}

func (s *Service) recognize(ctx context.Context, gen uint64) {
	noSpeech := 0
	var base, text string
	err := resilience.Retry(ctx, s.opts.Restart, func() error {
		for {
			base = text
			err := s.rec.Recognize(ctx, func(r Result) {
				text = joinTranscript(base, r.Text)
				s.deliver(gen, text)
			})
			if ctx.Err() != nil {
				return ctx.Err()
			}
			switch {
			case err == nil:
				slog.Debug("recognition ended, restarting")
				return errEnded
			case apperrors.IsBenign(err) && noSpeech < s.opts.MaxNoSpeechRestarts:
				noSpeech++
				slog.Debug("no speech detected, continuing to listen", "restarts", noSpeech)
				continue
			default:
				return err
			}
		}
	})
	if ctx.Err() != nil {
		return
	}
	if errors.Is(err, errEnded) || apperrors.IsBenign(err) {
		err = nil
	}
	if !s.finishListening(gen) {
		return
	}
	if err != nil {
		slog.Warn("recognition failed", "error", err)
	}
	if s.cb.OnListenEnd != nil {
		s.cb.OnListenEnd(err)
	}
}

func (s *Service) deliver(gen uint64, text string) {
	s.mu.Lock()
	current := gen == s.listenGen && s.listening
	s.mu.Unlock()
	if current && s.cb.OnTranscript != nil {
		s.cb.OnTranscript(gen, text)
	}
}

// joinTranscript appends the text of a restarted recognition session to what
// the listen cycle has already heard.
func joinTranscript(base, text string) string {
	text = strings.TrimSpace(text)
	switch {
	case base == "":
		return text
	case text == "":
		return base
	}
	return base + " " + text
}

func (s *Service) finishListening(gen uint64) bool {
	s.mu.Lock()
	if gen != s.listenGen || !s.listening {
		s.mu.Unlock()
		return false
	}
	s.listening = false
	s.listenCancel = nil
	s.mu.Unlock()
	s.notify()
	return true
}

// StopListening ends the current recognition session. No restart follows.
func (s *Service) StopListening() {
	s.mu.Lock()
	s.sched.Cancel(scheduler.TaskListenDelay)
	changed := s.stopListeningLocked()
	s.mu.Unlock()
	if changed {
		s.notify()
	}
}

// Halt stops speaking and listening and cancels a pending listen.
func (s *Service) Halt() {
	s.mu.Lock()
	s.sched.Cancel(scheduler.TaskListenDelay)
	changed := s.cancelSpeakLocked()
	changed = s.stopListeningLocked() || changed
	s.mu.Unlock()
	s.meter.Reset()
	if changed {
		s.notify()
	}
}

// ToggleMic enables or disables the microphone and returns the new state.
// It does nothing while speech is playing.
func (s *Service) ToggleMic() bool {
	s.mu.Lock()
	if s.speaking {
		enabled := s.micEnabled
		s.mu.Unlock()
		return enabled
	}
	s.micEnabled = !s.micEnabled
	enabled := s.micEnabled
	if !enabled {
		s.stopListeningLocked()
	}
	s.mu.Unlock()
	s.notify()

	if enabled && (s.cb.Gate == nil || s.cb.Gate()) {
		if err := s.Listen(); err != nil {
			slog.Debug("listen after mic toggle skipped", "error", err)
		}
	}
	return enabled
}

// ObserveAudio feeds microphone PCM into the level meter.
func (s *Service) ObserveAudio(samples []float32, at time.Time) {
	s.meter.Process(samples, at)
}

// Level returns the current microphone level.
func (s *Service) Level() float64 { return s.meter.Level() }

// State returns a snapshot.
func (s *Service) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return State{
		Speaking:   s.speaking,
		Listening:  s.listening,
		MicEnabled: s.micEnabled,
		Supported:  s.Supported(),
		Level:      s.meter.Level(),
	}
}

func (s *Service) burstStarted(at time.Time) {
	if s.isListening() && s.cb.OnSpeechStart != nil {
		s.cb.OnSpeechStart(at)
	}
}

func (s *Service) burstEnded(at time.Time) {
	if s.isListening() && s.cb.OnSpeechEnd != nil {
		s.cb.OnSpeechEnd(at)
	}
}

func (s *Service) isListening() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listening
}

func (s *Service) cancelSpeakLocked() bool {
	if s.speakCancel == nil {
		return false
	}
	s.speakCancel()
	s.speakCancel = nil
	s.speakGen++
	s.speaking = false
	return true
}

func (s *Service) stopListeningLocked() bool {
	if s.listenCancel == nil {
		return false
	}
	s.listenCancel()
	s.listenCancel = nil
	s.listenGen++
	s.listening = false
	return true
}

func (s *Service) notify() {
	if s.cb.OnStateChange != nil {
		s.cb.OnStateChange(s.State())
	}
}
