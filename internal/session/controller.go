package session

import (
	"context"
	"log/slog"
	"math"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/GriffinCanCode/interview-coach/internal/analytics"
	"github.com/GriffinCanCode/interview-coach/internal/blobstore"
	"github.com/GriffinCanCode/interview-coach/internal/capture"
	"github.com/GriffinCanCode/interview-coach/internal/config"
	apperrors "github.com/GriffinCanCode/interview-coach/internal/errors"
	"github.com/GriffinCanCode/interview-coach/internal/rounds"
	"github.com/GriffinCanCode/interview-coach/internal/scheduler"
	"github.com/GriffinCanCode/interview-coach/internal/sessionapi"
	"github.com/GriffinCanCode/interview-coach/internal/speech"
	"github.com/GriffinCanCode/interview-coach/internal/syncx"
	"github.com/GriffinCanCode/interview-coach/internal/trace"
)

// Controller defaults
const (
	DefaultMinAnswerLength = 10
	DefaultMetricsInterval = time.Second
	DefaultEventBuffer     = 256
)

const (
	defaultGreeting = "Hi, I'll be your interviewer today. Let me know when you're ready to begin."
	closingLine     = "That concludes our interview. Thank you for your time."
	resumeLine      = "Welcome back. Let's pick up where we left off."
)

// Deps are the collaborators of one controller. Store, Devices and Recognizer
// may be nil.
type Deps struct {
	API        sessionapi.API
	Store      blobstore.Store
	Devices    capture.Devices
	Synth      speech.Synthesizer
	Recognizer speech.Recognizer
	Clock      scheduler.Clock
}

// Options tune turn-taking and capture.
type Options struct {
	Personas          config.Personas
	Role              string
	ListenDelay       time.Duration
	RoundDisplayDelay time.Duration
	// MinAnswerLength is the transcript length that arms the silence
	// auto-submit timer.
	MinAnswerLength int
	Level           speech.LevelConfig
	Capture         capture.Options
	MetricsInterval time.Duration
	EventBuffer     int
}

// OptionsFromConfig maps process configuration onto controller options.
func OptionsFromConfig(cfg *config.Config, personas config.Personas) Options {
	return Options{
		Personas:          personas,
		ListenDelay:       cfg.ListenDelay,
		RoundDisplayDelay: cfg.RoundDisplayDelay,
		MinAnswerLength:   cfg.MinAnswerLength,
		Level: speech.LevelConfig{
			SampleRate:       cfg.SampleRate,
			Threshold:        cfg.SpeechLevelFloor,
			MaxSilenceChunks: cfg.MaxSilenceChunks,
		},
		Capture: capture.Options{
			FrameRate:  int(math.Round(cfg.FrameRate)),
			SampleRate: cfg.SampleRate,
			Timeslice:  cfg.RecordingTimeslice,
		},
	}
}

// Info identifies the running session.
type Info struct {
	ID       string              `json:"id"`
	Role     string              `json:"role,omitempty"`
	Persona  string              `json:"persona"`
	Progress sessionapi.Progress `json:"progress"`
}

// Controller drives one interview: phase transitions, turn-taking between
// interviewer speech and candidate input, rounds, analytics and capture.
type Controller struct {
	deps   Deps
	opts   Options
	sched  *scheduler.Scheduler
	speech *speech.Service
	media  *capture.Manager
	rounds *rounds.Tracker
	events chan Event

	phase  atomic.Value // Phase
	id     atomic.Value // string
	engine atomic.Pointer[analytics.Engine]
	buffer *syncx.Ref[string]

	mu       sync.Mutex
	info     Info
	persona  config.Persona
	log      *Log
	memory   *Memory
	current  *sessionapi.Question
	revealed bool
	answered map[string]bool
	inflight bool
	draft    string
	askedAt  time.Time
	heardAt  time.Time
	cycle    uint64
	carried  string
	acq      *capture.Acquisition
	result   *Result
}

// New creates a controller in the GREETING phase.
func New(deps Deps, opts Options) *Controller {
	if deps.Clock == nil {
		deps.Clock = scheduler.RealClock()
	}
	if opts.Personas == nil {
		opts.Personas = config.DefaultPersonas()
	}
	if opts.MinAnswerLength <= 0 {
		opts.MinAnswerLength = DefaultMinAnswerLength
	}
	if opts.RoundDisplayDelay <= 0 {
		opts.RoundDisplayDelay = rounds.DefaultDisplayDelay
	}
	if opts.MetricsInterval <= 0 {
		opts.MetricsInterval = DefaultMetricsInterval
	}
	if opts.EventBuffer <= 0 {
		opts.EventBuffer = DefaultEventBuffer
	}

	c := &Controller{
		deps:     deps,
		opts:     opts,
		sched:    scheduler.New(deps.Clock),
		events:   make(chan Event, opts.EventBuffer),
		buffer:   syncx.NewRef(""),
		info:     Info{Role: opts.Role},
		log:      NewLog(),
		memory:   NewMemory(),
		answered: make(map[string]bool),
	}
	c.phase.Store(PhaseGreeting)
	c.id.Store("")
	c.rounds = rounds.New(c.sched, opts.RoundDisplayDelay)
	c.speech = speech.NewService(deps.Synth, deps.Recognizer, c.sched, speech.Options{
		ListenDelay: opts.ListenDelay,
		Level:       opts.Level,
	}, speech.Callbacks{
		Gate:          func() bool { return c.Phase() == PhaseInProgress },
		OnTranscript:  c.onTranscript,
		OnListenEnd:   c.onListenEnd,
		OnSpeechStart: c.onSpeechStart,
		OnSpeechEnd:   c.onSpeechEnd,
		OnStateChange: func(st speech.State) { c.emit(EventSpeech, st) },
	})
	if deps.Devices != nil {
		c.media = capture.NewManager(deps.Devices, c.sched, opts.Capture)
	}
	return c
}

// Phase returns the current phase.
func (c *Controller) Phase() Phase {
	return c.phase.Load().(Phase)
}

// SessionID returns the backend session id, empty before Start.
func (c *Controller) SessionID() string {
	return c.id.Load().(string)
}

// Events returns the broadcast channel. Events are dropped when the channel
// is full.
func (c *Controller) Events() <-chan Event {
	return c.events
}

// Clock returns the clock driving the controller's timers.
func (c *Controller) Clock() scheduler.Clock {
	return c.sched.Clock()
}

func (c *Controller) emit(typ EventType, data any) {
	ev := Event{Type: typ, SessionID: c.SessionID(), Data: data, At: c.sched.Now()}
	select {
	case c.events <- ev:
	default:
		c.logger().Debug("event buffer full, dropping", "type", typ)
	}
}

func (c *Controller) emitError(err error) {
	c.emit(EventError, NewErrorInfo(err))
}

func (c *Controller) logger() *slog.Logger {
	return trace.Logger(c.sessionContext())
}

// sessionContext outlives any single request and is used for work the
// controller starts on its own.
func (c *Controller) sessionContext() context.Context {
	ctx := context.Background()
	if id := c.SessionID(); id != "" {
		ctx = trace.WithSession(ctx, id)
	}
	return ctx
}

func (c *Controller) setPhaseLocked(p Phase) {
	prev := c.Phase()
	c.phase.Store(p)
	c.emit(EventPhase, p)
	c.logger().Info("phase changed", "from", prev, "to", p)
}

func (c *Controller) phaseError(op string) error {
	p := c.Phase()
	return apperrors.Newf(apperrors.InvalidPhase, "cannot %s while %s", op, p).WithMetadata("phase", string(p))
}

func errBusy() error {
	return apperrors.New(apperrors.InvalidPhase, "another request is still in progress")
}

// unlocked runs fn with the controller lock released and marks the
// controller busy meanwhile. Callers must re-check the phase afterwards.
func (c *Controller) unlocked(fn func() error) error {
	c.inflight = true
	c.mu.Unlock()
	err := fn()
	c.mu.Lock()
	c.inflight = false
	return err
}

func (c *Controller) record(role Role, typ MessageType, text string) Message {
	msg := c.log.Append(role, typ, text, c.sched.Now())
	if role == RoleInterviewer {
		c.memory.Remember(text)
	}
	c.emit(EventMessage, msg)
	return msg
}

// say records an interviewer line and speaks it.
func (c *Controller) say(typ MessageType, text string) {
	c.record(RoleInterviewer, typ, text)
	c.speech.Speak(text)
}

func (c *Controller) analyticsOn() bool {
	return c.persona.AnalyticsEnabled && c.engine.Load() != nil
}

// Listen explicitly opens the microphone for candidate input.
func (c *Controller) Listen() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.Phase().Listening() {
		return c.phaseError("listen")
	}
	return c.speech.Listen()
}

// ToggleMic flips the microphone toggle and returns whether it is enabled.
func (c *Controller) ToggleMic() bool {
	return c.speech.ToggleMic()
}

// Snapshot is the externally visible state of the controller.
type Snapshot struct {
	Session         Info                 `json:"session"`
	Phase           Phase                `json:"phase"`
	Question        *sessionapi.Question `json:"question,omitempty"`
	Round           rounds.Round         `json:"round,omitempty"`
	RoundPending    bool                 `json:"round_pending"`
	CompletedRounds []rounds.Round       `json:"completed_rounds"`
	Speech          speech.State         `json:"speech"`
	Transcript      string               `json:"transcript,omitempty"`
	Draft           string               `json:"draft,omitempty"`
	Remaining       float64              `json:"remaining_seconds,omitempty"`
	Capture         *capture.Acquisition `json:"capture,omitempty"`
	Metrics         *analytics.Metrics   `json:"metrics,omitempty"`
	Messages        []Message            `json:"messages"`
}

// Snapshot returns the current state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := Snapshot{
		Session:         c.info,
		Phase:           c.Phase(),
		Round:           c.rounds.Current(),
		RoundPending:    c.rounds.Pending(),
		CompletedRounds: c.rounds.Completed(),
		Speech:          c.speech.State(),
		Transcript:      c.buffer.Load(),
		Draft:           c.draft,
		Capture:         c.acq,
		Messages:        c.log.Messages(),
	}
	if c.revealed && c.current != nil {
		q := *c.current
		s.Question = &q
	}
	if c.analyticsOn() {
		m := c.engine.Load().Metrics()
		s.Metrics = &m
		s.Remaining = c.engine.Load().Remaining().Seconds()
	}
	return s
}

// RecordingInfo describes the finalized recording.
type RecordingInfo struct {
	Duration  time.Duration `json:"duration"`
	MIMEType  string        `json:"mime_type"`
	Size      int           `json:"size"`
	Chunks    int           `json:"chunks"`
	Persisted bool          `json:"persisted"`
}

// Result is produced once the session completes.
type Result struct {
	Session        Info               `json:"session"`
	Summary        *analytics.Summary `json:"summary,omitempty"`
	SummaryError   string             `json:"summary_error,omitempty"`
	Recording      *RecordingInfo     `json:"recording,omitempty"`
	RecordingError string             `json:"recording_error,omitempty"`
	Rounds         []rounds.Round     `json:"rounds"`
	Timeouts       []int              `json:"timeouts,omitempty"`
	Messages       []Message          `json:"messages"`
	CompletedAt    time.Time          `json:"completed_at"`
}

// Result returns the outcome of a completed session.
func (c *Controller) Result() (Result, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.result == nil {
		return Result{}, c.phaseError("read results")
	}
	return *c.result, nil
}

func trimmed(s string) string { return strings.TrimSpace(s) }

// joinText appends text to base with a single space between them.
func joinText(base, text string) string {
	base, text = trimmed(base), trimmed(text)
	switch {
	case base == "":
		return text
	case text == "":
		return base
	}
	return base + " " + text
}
