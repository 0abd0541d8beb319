package analytics

import (
	"math"
	"testing"
	"time"

	"github.com/GriffinCanCode/interview-coach/internal/config"
	"github.com/GriffinCanCode/interview-coach/internal/scheduler"
)

var epoch = time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)

func newEngine(opts Options, hooks Hooks) (*Engine, *scheduler.FakeClock) {
	clock := scheduler.NewFakeClock(epoch)
	e := New(scheduler.New(clock), opts, hooks)
	e.Start()
	return e, clock
}

func face(x, y float64) FaceSample {
	return FaceSample{X: x, Y: y, Detected: true}
}

func TestEyeContactPercentage(t *testing.T) {
	e, _ := newEngine(Options{}, Hooks{})
	for _, s := range []FaceSample{face(0.5, 0.5), face(0.55, 0.45), face(0.95, 0.5), face(0.5, 0.6)} {
		e.ObserveFace(s)
	}
	if got := e.Metrics().EyeContact; got != 75 {
		t.Errorf("eye contact = %v, want 75", got)
	}
}

func TestEyeContactRequiresDetection(t *testing.T) {
	e, _ := newEngine(Options{}, Hooks{})
	e.ObserveFace(FaceSample{X: 0.5, Y: 0.5})
	e.ObserveFace(face(0.5, 0.5))
	if got := e.Metrics().EyeContact; got != 50 {
		t.Errorf("eye contact = %v, want 50", got)
	}
}

func TestInactiveEngineIgnoresSamples(t *testing.T) {
	e, _ := newEngine(Options{}, Hooks{})
	e.Stop()
	e.ObserveFace(face(0.5, 0.5))
	e.ObserveTranscript("um um")
	if m := e.Metrics(); m.EyeContact != 0 || m.FillerCount != 0 {
		t.Errorf("stopped engine recorded samples: %+v", m)
	}
}

func TestPostureStability(t *testing.T) {
	e, _ := newEngine(Options{}, Hooks{})
	for i := 0; i < 5; i++ {
		e.ObserveFace(face(0.5, 0.5))
	}
	if got := e.Metrics().Stability; got != 100 {
		t.Errorf("stability with few samples = %v, want 100", got)
	}

	for i := 0; i < 20; i++ {
		e.ObserveFace(face(0.5, 0.5))
	}
	if got := e.Metrics().Stability; got != 100 {
		t.Errorf("still candidate stability = %v, want 100", got)
	}

	for i := 0; i < 30; i++ {
		x := 0.2
		if i%2 == 0 {
			x = 0.8
		}
		e.ObserveFace(face(x, 0.5))
	}
	if got := e.Metrics().Stability; got >= 100 || got < 0 {
		t.Errorf("moving candidate stability = %v, want in [0,100)", got)
	}
}

func TestFidgetCounting(t *testing.T) {
	e, _ := newEngine(Options{}, Hooks{})
	e.ObserveFace(face(0.50, 0.5))
	e.ObserveFace(face(0.51, 0.5)) // still
	e.ObserveFace(face(0.60, 0.5)) // fidget
	e.ObserveFace(face(0.90, 0.5)) // relocation
	if got := e.Metrics().FidgetCount; got != 1 {
		t.Errorf("fidgets = %d, want 1", got)
	}
}

func TestFillerWords(t *testing.T) {
	e, _ := newEngine(Options{Fillers: []string{"um"}}, Hooks{})
	e.ObserveTranscript("um I think um")

	m := e.Metrics()
	if m.FillerCount != 2 {
		t.Errorf("total = %d, want 2", m.FillerCount)
	}
	if m.FillerBreakdown["um"] != 2 {
		t.Errorf("breakdown = %v, want um=2", m.FillerBreakdown)
	}
	if m.FillerRatio != 0.5 {
		t.Errorf("ratio = %v, want 0.5", m.FillerRatio)
	}
}

func TestFillerWordsWholeWordOnly(t *testing.T) {
	e, _ := newEngine(Options{Fillers: []string{"um", "you know"}}, Hooks{})
	e.ObserveTranscript("Umbrella, you know, is a dumb example. UM.")
	m := e.Metrics()
	if m.FillerBreakdown["um"] != 1 || m.FillerBreakdown["you know"] != 1 {
		t.Errorf("breakdown = %v", m.FillerBreakdown)
	}
}

func TestFillerUpdatesAreCumulative(t *testing.T) {
	e, _ := newEngine(Options{Fillers: []string{"um"}}, Hooks{})
	e.ObserveTranscript("um")
	e.ObserveTranscript("um so")
	e.ObserveTranscript("um so um")
	if got := e.Metrics().FillerCount; got != 2 {
		t.Errorf("total = %d, want 2", got)
	}

	e.StartQuestion(1)
	e.ObserveTranscript("um")
	if got := e.Metrics().FillerCount; got != 3 {
		t.Errorf("total across answers = %d, want 3", got)
	}
	if got := len(e.Samples().Fillers); got != 3 {
		t.Errorf("occurrences = %d, want 3", got)
	}
}

func TestSilenceThreshold(t *testing.T) {
	e, _ := newEngine(Options{SilenceThreshold: 2 * time.Second}, Hooks{})

	e.SpeechStarted(epoch)
	e.SpeechEnded(epoch.Add(time.Second))
	e.SpeechStarted(epoch.Add(3500 * time.Millisecond)) // 2500ms gap
	e.SpeechEnded(epoch.Add(4 * time.Second))
	e.SpeechStarted(epoch.Add(5 * time.Second)) // 1000ms gap

	s := e.Samples().Silences
	if len(s) != 1 {
		t.Fatalf("silences = %d, want 1", len(s))
	}
	if s[0].Duration < 2*time.Second {
		t.Errorf("duration = %v, want >= 2s", s[0].Duration)
	}
	m := e.Metrics()
	if m.LongestSilence != 2500*time.Millisecond || m.AverageSilence != 2500*time.Millisecond {
		t.Errorf("longest = %v, average = %v", m.LongestSilence, m.AverageSilence)
	}
}

func TestSilenceNotCountedAcrossQuestions(t *testing.T) {
	e, _ := newEngine(Options{SilenceThreshold: time.Second}, Hooks{})
	e.SpeechStarted(epoch)
	e.SpeechEnded(epoch.Add(time.Second))
	e.StartQuestion(1)
	e.SpeechStarted(epoch.Add(30 * time.Second))
	if got := e.Metrics().SilenceCount; got != 0 {
		t.Errorf("silences = %d, want 0", got)
	}
}

func TestSpeed(t *testing.T) {
	e, _ := newEngine(Options{}, Hooks{})
	e.RecordSpeed(200, time.Minute)
	m := e.Metrics()
	if m.WPM != 200 || !m.TooFast || m.TooSlow {
		t.Errorf("metrics = %+v", m)
	}

	e.RecordSpeed(0, time.Minute)
	e.RecordSpeed(10, 0)
	if got := len(e.Samples().Speed); got != 1 {
		t.Errorf("invalid samples should be ignored, got %d", got)
	}

	if got := WPM(70, 30*time.Second); got != 140 {
		t.Errorf("WPM = %v, want 140", got)
	}
}

func TestSpeakingTimeFromBursts(t *testing.T) {
	e, clock := newEngine(Options{}, Hooks{})
	e.StartQuestion(0)
	if got := e.SpeakingTime(); got != 0 {
		t.Fatalf("speaking time before any burst = %v", got)
	}

	// Thinking time before the first burst and the pause between bursts do
	// not count.
	e.SpeechStarted(epoch.Add(30 * time.Second))
	e.SpeechEnded(epoch.Add(50 * time.Second))
	e.SpeechStarted(epoch.Add(55 * time.Second))
	clock.Advance(60 * time.Second)
	if got := e.SpeakingTime(); got != 25*time.Second {
		t.Errorf("speaking time with an open burst = %v, want 25s", got)
	}
	e.SpeechEnded(epoch.Add(60 * time.Second))
	if got := e.SpeakingTime(); got != 25*time.Second {
		t.Errorf("speaking time = %v, want 25s", got)
	}

	e.StartQuestion(1)
	if got := e.SpeakingTime(); got != 0 {
		t.Errorf("speaking time after next question = %v, want 0", got)
	}
}

func TestPaceFit(t *testing.T) {
	tests := []struct {
		wpm  float64
		want float64
	}{
		{140, 100},
		{120, 100},
		{160, 100},
		{100, 60},
		{200, 40},
		{0, 0},
		{400, 0},
	}
	for _, tt := range tests {
		if got := PaceFit(tt.wpm); got != tt.want {
			t.Errorf("PaceFit(%v) = %v, want %v", tt.wpm, got, tt.want)
		}
	}
}

func TestCompositeBounds(t *testing.T) {
	inputs := []struct {
		eye, stability float64
		fillers        int
		silences       int
		wpm            float64
	}{
		{100, 100, 0, 0, 140},
		{0, 0, 1000, 1000, 0},
		{150, -20, -5, -5, 140},
		{50, 50, 10, 3, 95},
	}
	for _, in := range inputs {
		got := Composite(in.eye, in.stability, in.fillers, in.silences, in.wpm)
		if got < 0 || got > 100 || math.IsNaN(got) {
			t.Errorf("Composite(%+v) = %v, out of range", in, got)
		}
	}
	if got := Composite(100, 100, 0, 0, 140); got != 100 {
		t.Errorf("perfect composite = %v, want 100", got)
	}
}

func TestGradeFor(t *testing.T) {
	tests := map[float64]Grade{95: Excellent, 85: Excellent, 72: Good, 50: Fair, 10: NeedsImprovement}
	for score, want := range tests {
		if got := GradeFor(score); got != want {
			t.Errorf("GradeFor(%v) = %s, want %s", score, got, want)
		}
	}
}

func TestSummary(t *testing.T) {
	e, _ := newEngine(Options{Fillers: []string{"um"}}, Hooks{})
	if _, err := e.Summary(); err != ErrNoData {
		t.Errorf("empty summary error = %v, want ErrNoData", err)
	}

	for i := 0; i < 4; i++ {
		e.ObserveFace(face(0.5, 0.5))
	}
	e.ObserveTranscript("um I think hash maps are fast")
	e.RecordSpeed(70, 30*time.Second)

	s, err := e.Summary()
	if err != nil {
		t.Fatalf("Summary: %v", err)
	}
	// 100*.25 + 100*.20 + 97*.20 + 100*.15 + 100*.20
	if math.Abs(s.Overall.Value-99.4) > 1e-9 {
		t.Errorf("overall = %v, want 99.4", s.Overall.Value)
	}
	if s.Overall.Grade != Excellent || s.Pace.Value != 100 {
		t.Errorf("summary = %+v", s)
	}
}

func TestResetClearsData(t *testing.T) {
	e, _ := newEngine(Options{}, Hooks{})
	e.ObserveFace(face(0.5, 0.5))
	e.RecordSpeed(100, time.Minute)
	e.Reset()

	if e.Active() {
		t.Error("reset should deactivate the engine")
	}
	if _, err := e.Summary(); err != ErrNoData {
		t.Errorf("summary after reset: %v", err)
	}
}

func TestOptionsFor(t *testing.T) {
	p, _ := config.DefaultPersonas().Lookup("strict")
	opts := OptionsFor(p)
	if opts.QuestionTimeLimit != p.QuestionTimeLimit || !opts.AutoSubmit {
		t.Errorf("options = %+v", opts)
	}
}

func TestWindowIsBounded(t *testing.T) {
	w := newWindow[int](3)
	for i := 0; i < 5; i++ {
		w.push(i)
	}
	got := w.snapshot()
	if len(got) != 3 || got[0] != 2 || got[2] != 4 {
		t.Errorf("window = %v, want [2 3 4]", got)
	}
}
