package speech

import (
	"context"
	"sync"
	"testing"

	apperrors "github.com/GriffinCanCode/interview-coach/internal/errors"
)

type commandLog struct {
	mu   sync.Mutex
	cmds []Command
}

func (l *commandLog) send(c Command) error {
	l.mu.Lock()
	l.cmds = append(l.cmds, c)
	l.mu.Unlock()
	return nil
}

func (l *commandLog) last() (Command, int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.cmds) == 0 {
		return Command{}, 0
	}
	return l.cmds[len(l.cmds)-1], len(l.cmds)
}

func TestRemoteSynthesizerWaitsForDone(t *testing.T) {
	var log commandLog
	s := NewRemoteSynthesizer(log.send)

	errc := make(chan error, 1)
	go func() { errc <- s.Speak(context.Background(), "Hello") }()

	waitFor(t, "speak command", func() bool { _, n := log.last(); return n == 1 })
	cmd, _ := log.last()
	if cmd.Type != CmdSpeak || cmd.Text != "Hello" || cmd.ID == "" {
		t.Fatalf("command = %+v", cmd)
	}
	if s.SpeechDone("unknown") {
		t.Error("unknown ids should be ignored")
	}
	if !s.SpeechDone(cmd.ID) {
		t.Fatal("SpeechDone should find the pending utterance")
	}
	if err := <-errc; err != nil {
		t.Errorf("Speak() = %v", err)
	}
}

func TestRemoteSynthesizerCancel(t *testing.T) {
	var log commandLog
	s := NewRemoteSynthesizer(log.send)
	ctx, cancel := context.WithCancel(context.Background())

	errc := make(chan error, 1)
	go func() { errc <- s.Speak(ctx, "Hello") }()
	waitFor(t, "speak command", func() bool { _, n := log.last(); return n == 1 })
	cancel()

	if err := <-errc; err != context.Canceled {
		t.Errorf("Speak() = %v, want context.Canceled", err)
	}
	if cmd, _ := log.last(); cmd.Type != CmdCancelSpeech {
		t.Errorf("last command = %q, want %q", cmd.Type, CmdCancelSpeech)
	}
}

func TestRemoteRecognizerSession(t *testing.T) {
	var log commandLog
	r := NewRemoteRecognizer(log.send)
	if err := r.Recognize(context.Background(), func(Result) {}); !apperrors.IsCode(err, apperrors.RecognitionUnsupported) {
		t.Fatalf("Recognize() before support = %v", err)
	}
	r.SetSupported(true)

	var got []Result
	errc := make(chan error, 1)
	go func() { errc <- r.Recognize(context.Background(), func(res Result) { got = append(got, res) }) }()
	waitFor(t, "active session", func() bool { return r.ActiveID() != "" })

	id := r.ActiveID()
	if r.Deliver("stale", "ignored", false) {
		t.Error("stale session updates should be dropped")
	}
	r.Deliver(id, "hello", false)
	r.Deliver(id, "hello there", true)
	r.End(id, "")

	if err := <-errc; err != nil {
		t.Errorf("Recognize() = %v", err)
	}
	if len(got) != 2 || got[1].Text != "hello there" || !got[1].Final {
		t.Errorf("results = %+v", got)
	}
	if r.ActiveID() != "" {
		t.Error("session should be cleared after it ends")
	}
}

func TestRemoteRecognizerStop(t *testing.T) {
	var log commandLog
	r := NewRemoteRecognizer(log.send)
	r.SetSupported(true)
	ctx, cancel := context.WithCancel(context.Background())

	errc := make(chan error, 1)
	go func() { errc <- r.Recognize(ctx, func(Result) {}) }()
	waitFor(t, "active session", func() bool { return r.ActiveID() != "" })
	cancel()

	if err := <-errc; err != context.Canceled {
		t.Errorf("Recognize() = %v, want context.Canceled", err)
	}
	if cmd, _ := log.last(); cmd.Type != CmdStopListening {
		t.Errorf("last command = %q, want %q", cmd.Type, CmdStopListening)
	}
}

func TestRecognitionErrorCodes(t *testing.T) {
	tests := []struct {
		code string
		want apperrors.Code
	}{
		{"no-speech", apperrors.RecognitionNoSpeech},
		{"not-allowed", apperrors.RecognitionNotAllowed},
		{"aborted", apperrors.RecognitionAborted},
		{"network", apperrors.RecognitionAborted},
	}
	for _, tt := range tests {
		if got := apperrors.CodeOf(recognitionError(tt.code)); got != tt.want {
			t.Errorf("recognitionError(%q) = %s, want %s", tt.code, got, tt.want)
		}
	}
	if recognitionError("") != nil {
		t.Error("empty code should be a normal end")
	}
}
