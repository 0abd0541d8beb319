package speech

import (
	"context"
	"sync"
	"testing"
	"time"

	apperrors "github.com/GriffinCanCode/interview-coach/internal/errors"
	"github.com/GriffinCanCode/interview-coach/internal/resilience"
	"github.com/GriffinCanCode/interview-coach/internal/scheduler"
)

type fakeSynth struct {
	mu     sync.Mutex
	spoken []string
	hold   chan struct{}
}

func (f *fakeSynth) Speak(ctx context.Context, text string) error {
	f.mu.Lock()
	f.spoken = append(f.spoken, text)
	hold := f.hold
	f.mu.Unlock()
	if hold == nil {
		return nil
	}
	select {
	case <-hold:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (f *fakeSynth) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.spoken)
}

// recSession scripts one Recognize call. Unscripted calls block until stopped.
type recSession struct {
	results []string
	err     error
	block   bool
}

type fakeRecognizer struct {
	mu     sync.Mutex
	script []recSession
	calls  int
}

func (f *fakeRecognizer) Supported() bool { return true }

func (f *fakeRecognizer) Recognize(ctx context.Context, onResult func(Result)) error {
	f.mu.Lock()
	f.calls++
	s := recSession{block: true}
	if len(f.script) > 0 {
		s = f.script[0]
		f.script = f.script[1:]
	}
	f.mu.Unlock()

	for _, text := range s.results {
		onResult(Result{Text: text})
	}
	if s.block {
		<-ctx.Done()
		return ctx.Err()
	}
	return s.err
}

func (f *fakeRecognizer) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type recorder struct {
	mu          sync.Mutex
	transcripts []string
	cycles      []uint64
	ends        []error
	violations  int
}

func (r *recorder) callbacks(gate func() bool) Callbacks {
	return Callbacks{
		Gate: gate,
		OnTranscript: func(cycle uint64, text string) {
			r.mu.Lock()
			r.transcripts = append(r.transcripts, text)
			r.cycles = append(r.cycles, cycle)
			r.mu.Unlock()
		},
		OnListenEnd: func(err error) {
			r.mu.Lock()
			r.ends = append(r.ends, err)
			r.mu.Unlock()
		},
		OnStateChange: func(s State) {
			if s.Speaking && s.Listening {
				r.mu.Lock()
				r.violations++
				r.mu.Unlock()
			}
		},
	}
}

func (r *recorder) snapshot() ([]string, []error, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.transcripts...), append([]error(nil), r.ends...), r.violations
}

func (r *recorder) cycleList() []uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]uint64(nil), r.cycles...)
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func newTestService(synth Synthesizer, rec Recognizer, cb Callbacks) (*Service, *scheduler.Scheduler, *scheduler.FakeClock) {
	clk := scheduler.NewFakeClock(time.Unix(1000, 0))
	sched := scheduler.New(clk)
	opts := Options{
		ListenDelay: 500 * time.Millisecond,
		Restart:     resilience.RetryConfig{BaseDelay: time.Millisecond, MaxDelay: time.Millisecond},
	}
	return NewService(synth, rec, sched, opts, cb), sched, clk
}

func open() bool { return true }

func TestSpeakThenListensAfterDelay(t *testing.T) {
	rec := &fakeRecognizer{}
	var r recorder
	svc, sched, clk := newTestService(&fakeSynth{}, rec, r.callbacks(open))

	svc.Speak("Tell me about yourself.")
	waitFor(t, "listen delay armed", func() bool { return sched.Active(scheduler.TaskListenDelay) })
	if svc.State().Listening {
		t.Fatal("listening should wait for the delay")
	}

	clk.Advance(499 * time.Millisecond)
	if svc.State().Listening {
		t.Fatal("listening started before the delay elapsed")
	}
	clk.Advance(time.Millisecond)
	if !svc.State().Listening {
		t.Fatal("listening should start after the delay")
	}
	waitFor(t, "recognition session", func() bool { return rec.callCount() == 1 })
	svc.Halt()
}

func TestSpeakWithClosedGateDoesNotListen(t *testing.T) {
	var r recorder
	svc, sched, _ := newTestService(&fakeSynth{}, &fakeRecognizer{}, r.callbacks(func() bool { return false }))

	svc.Speak("Paused.")
	waitFor(t, "speech to finish", func() bool { return !svc.State().Speaking })
	if sched.Active(scheduler.TaskListenDelay) {
		t.Error("closed gate should not arm the listen delay")
	}
}

func TestSpeakStopsListening(t *testing.T) {
	rec := &fakeRecognizer{}
	synth := &fakeSynth{hold: make(chan struct{})}
	var r recorder
	svc, _, _ := newTestService(synth, rec, r.callbacks(open))

	if err := svc.Listen(); err != nil {
		t.Fatal(err)
	}
	waitFor(t, "recognition session", func() bool { return rec.callCount() == 1 })

	svc.Speak("Next question.")
	st := svc.State()
	if !st.Speaking || st.Listening {
		t.Fatalf("state = %+v, want speaking only", st)
	}
	svc.Halt()

	time.Sleep(10 * time.Millisecond)
	_, ends, violations := r.snapshot()
	if len(ends) != 0 {
		t.Errorf("stopped recognition should not report an end, got %v", ends)
	}
	if violations != 0 {
		t.Errorf("observed %d states speaking and listening at once", violations)
	}
}

func TestSpeakSupersedesUtterance(t *testing.T) {
	synth := &fakeSynth{hold: make(chan struct{})}
	var r recorder
	svc, sched, _ := newTestService(synth, &fakeRecognizer{}, r.callbacks(open))

	svc.Speak("first")
	svc.Speak("second")
	waitFor(t, "both utterances", func() bool { return synth.count() == 2 })
	if !svc.State().Speaking {
		t.Fatal("second utterance should still be playing")
	}
	if sched.Active(scheduler.TaskListenDelay) {
		t.Fatal("cancelled utterance must not schedule listening")
	}

	close(synth.hold)
	waitFor(t, "speech to finish", func() bool { return !svc.State().Speaking })
	waitFor(t, "listen delay armed", func() bool { return sched.Active(scheduler.TaskListenDelay) })
}

func TestTranscriptAccumulatesAcrossRestart(t *testing.T) {
	rec := &fakeRecognizer{script: []recSession{
		{results: []string{"I led", "I led a team"}},
		{results: []string{"of five"}, block: true},
	}}
	var r recorder
	svc, _, _ := newTestService(&fakeSynth{}, rec, r.callbacks(open))

	if err := svc.Listen(); err != nil {
		t.Fatal(err)
	}
	waitFor(t, "restarted session", func() bool { return rec.callCount() == 2 })
	waitFor(t, "three transcripts", func() bool {
		got, _, _ := r.snapshot()
		return len(got) == 3
	})

	got, ends, _ := r.snapshot()
	want := []string{"I led", "I led a team", "I led a team of five"}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("transcript[%d] = %q, want %q", i, got[i], want[i])
		}
	}
	if len(ends) != 0 {
		t.Errorf("restart should not end the cycle, got %v", ends)
	}
	svc.StopListening()
}

func TestTranscriptCycleChangesPerListen(t *testing.T) {
	rec := &fakeRecognizer{script: []recSession{
		{results: []string{"um so"}, block: true},
		{results: []string{"uh"}, block: true},
	}}
	var r recorder
	svc, _, _ := newTestService(&fakeSynth{}, rec, r.callbacks(open))

	if err := svc.Listen(); err != nil {
		t.Fatal(err)
	}
	waitFor(t, "first transcript", func() bool { return len(r.cycleList()) == 1 })
	if svc.ToggleMic() {
		t.Fatal("mic should be off after toggling")
	}
	if !svc.ToggleMic() {
		t.Fatal("mic should be on after toggling back")
	}
	waitFor(t, "second transcript", func() bool { return len(r.cycleList()) == 2 })

	got, _, _ := r.snapshot()
	if got[1] != "uh" {
		t.Errorf("new cycle transcript = %q, want it to start fresh", got[1])
	}
	cycles := r.cycleList()
	if cycles[1] <= cycles[0] {
		t.Errorf("cycles = %v, want increasing", cycles)
	}
	svc.Halt()
}

func TestRecognitionRestartsOnlyOnce(t *testing.T) {
	rec := &fakeRecognizer{script: []recSession{{}, {}, {}}}
	var r recorder
	svc, _, _ := newTestService(&fakeSynth{}, rec, r.callbacks(open))

	if err := svc.Listen(); err != nil {
		t.Fatal(err)
	}
	waitFor(t, "listen end", func() bool {
		_, ends, _ := r.snapshot()
		return len(ends) == 1
	})
	if rec.callCount() != 2 {
		t.Errorf("sessions = %d, want 2", rec.callCount())
	}
	if _, ends, _ := r.snapshot(); ends[0] != nil {
		t.Errorf("normal end reported %v", ends[0])
	}
	if svc.State().Listening {
		t.Error("listening should be false after the cycle ends")
	}
}

func TestNoSpeechKeepsListening(t *testing.T) {
	noSpeech := apperrors.New(apperrors.RecognitionNoSpeech, "no speech")
	rec := &fakeRecognizer{script: []recSession{{err: noSpeech}, {err: noSpeech}}}
	var r recorder
	svc, _, _ := newTestService(&fakeSynth{}, rec, r.callbacks(open))

	if err := svc.Listen(); err != nil {
		t.Fatal(err)
	}
	waitFor(t, "third session", func() bool { return rec.callCount() == 3 })
	if !svc.State().Listening {
		t.Error("no-speech should not end listening")
	}
	if _, ends, _ := r.snapshot(); len(ends) != 0 {
		t.Errorf("no-speech should be swallowed, got %v", ends)
	}
	svc.Halt()
}

func TestFatalRecognitionErrorEndsCycle(t *testing.T) {
	rec := &fakeRecognizer{script: []recSession{{err: apperrors.New(apperrors.RecognitionNotAllowed, "denied")}}}
	var r recorder
	svc, _, _ := newTestService(&fakeSynth{}, rec, r.callbacks(open))

	if err := svc.Listen(); err != nil {
		t.Fatal(err)
	}
	waitFor(t, "listen end", func() bool {
		_, ends, _ := r.snapshot()
		return len(ends) == 1
	})
	_, ends, _ := r.snapshot()
	if !apperrors.IsCode(ends[0], apperrors.RecognitionNotAllowed) {
		t.Errorf("end error = %v, want RECOGNITION_NOT_ALLOWED", ends[0])
	}
	if rec.callCount() != 1 {
		t.Errorf("fatal errors must not restart, sessions = %d", rec.callCount())
	}
}

func TestToggleMic(t *testing.T) {
	rec := &fakeRecognizer{}
	synth := &fakeSynth{hold: make(chan struct{})}
	var r recorder
	svc, _, _ := newTestService(synth, rec, r.callbacks(open))

	svc.Speak("Question one.")
	if !svc.ToggleMic() {
		t.Fatal("toggle while speaking should leave the mic enabled")
	}

	svc.Halt()
	if svc.ToggleMic() {
		t.Fatal("toggle should disable the mic")
	}
	if err := svc.Listen(); err != nil {
		t.Fatal(err)
	}
	if svc.State().Listening {
		t.Fatal("listen with the mic disabled should do nothing")
	}

	if !svc.ToggleMic() {
		t.Fatal("toggle should enable the mic")
	}
	if !svc.State().Listening {
		t.Error("enabling the mic should resume listening")
	}
	svc.Halt()
}

func TestListenUnsupported(t *testing.T) {
	svc, _, _ := newTestService(&fakeSynth{}, nil, Callbacks{})
	if err := svc.Listen(); !apperrors.IsCode(err, apperrors.RecognitionUnsupported) {
		t.Errorf("Listen() = %v, want RECOGNITION_UNSUPPORTED", err)
	}
	if svc.State().Supported {
		t.Error("service without recognizer should report unsupported")
	}
}

func TestBurstsForwardedOnlyWhileListening(t *testing.T) {
	var mu sync.Mutex
	starts := 0
	cb := Callbacks{OnSpeechStart: func(time.Time) {
		mu.Lock()
		starts++
		mu.Unlock()
	}}
	svc, _, _ := newTestService(&fakeSynth{}, &fakeRecognizer{}, cb)
	loud := tone(DefaultWindowSamples, 0.5)
	quiet := make([]float32, DefaultWindowSamples*(DefaultMaxSilenceChunks+1))
	at := time.Unix(2000, 0)

	svc.ObserveAudio(loud, at)
	svc.ObserveAudio(quiet, at.Add(time.Second))
	if err := svc.Listen(); err != nil {
		t.Fatal(err)
	}
	svc.ObserveAudio(loud, at.Add(2*time.Second))
	svc.Halt()

	mu.Lock()
	defer mu.Unlock()
	if starts != 1 {
		t.Errorf("forwarded starts = %d, want 1", starts)
	}
}
