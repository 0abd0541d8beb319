package speech

import (
	"context"
	"os/exec"
	"testing"
	"time"

	apperrors "github.com/GriffinCanCode/interview-coach/internal/errors"
)

func TestDefaultTTSCommand(t *testing.T) {
	if got := defaultTTSCommand("darwin"); len(got) != 1 || got[0] != "say" {
		t.Errorf("darwin = %v", got)
	}
	if got := defaultTTSCommand("windows"); len(got) == 0 || got[0] != "powershell" {
		t.Errorf("windows = %v", got)
	}
	if got := defaultTTSCommand("plan9"); got != nil {
		t.Errorf("plan9 = %v, want nil", got)
	}
}

func TestExecSynthesizerMissingCommand(t *testing.T) {
	_, err := NewExecSynthesizer("no-such-tts-binary --fast")
	if !apperrors.IsCode(err, apperrors.DeviceNotFound) {
		t.Errorf("err = %v, want DEVICE_NOT_FOUND", err)
	}
}

func TestExecSynthesizerSpeak(t *testing.T) {
	if _, err := exec.LookPath("sleep"); err != nil {
		t.Skip("sleep not available")
	}
	s, err := NewExecSynthesizer("sleep")
	if err != nil {
		t.Fatal(err)
	}
	// The text is passed as the final argument.
	if err := s.Speak(context.Background(), "0"); err != nil {
		t.Errorf("Speak() = %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := s.Speak(ctx, "5"); err != context.DeadlineExceeded {
		t.Errorf("Speak() = %v, want context.DeadlineExceeded", err)
	}
}
