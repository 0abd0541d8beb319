package speech

import (
	"context"
	"os/exec"
	"runtime"
	"strings"

	apperrors "github.com/GriffinCanCode/interview-coach/internal/errors"
)

// ExecSynthesizer speaks through a local text-to-speech command.
type ExecSynthesizer struct {
	name string
	args []string
}

// NewExecSynthesizer resolves the TTS command. command overrides the
// platform default; the text is appended as the final argument.
func NewExecSynthesizer(command string) (*ExecSynthesizer, error) {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		fields = defaultTTSCommand(runtime.GOOS)
	}
	if len(fields) == 0 {
		return nil, apperrors.Newf(apperrors.DeviceNotFound, "no text-to-speech command for %s", runtime.GOOS)
	}
	path, err := exec.LookPath(fields[0])
	if err != nil {
		return nil, apperrors.Wrapf(err, apperrors.DeviceNotFound, "text-to-speech command %q not found", fields[0])
	}
	return &ExecSynthesizer{name: path, args: fields[1:]}, nil
}

func defaultTTSCommand(goos string) []string {
	switch goos {
	case "darwin":
		return []string{"say"}
	case "linux":
		for _, name := range []string{"espeak-ng", "espeak"} {
			if _, err := exec.LookPath(name); err == nil {
				return []string{name}
			}
		}
		return []string{"espeak-ng"}
	case "windows":
		return []string{"powershell", "-NoProfile", "-Command",
			"Add-Type -AssemblyName System.Speech; (New-Object System.Speech.Synthesis.SpeechSynthesizer).Speak($args[0])"}
	}
	return nil
}

// Speak runs the command and waits for it to exit. Cancelling ctx kills it.
func (s *ExecSynthesizer) Speak(ctx context.Context, text string) error {
	args := append(append([]string(nil), s.args...), text)
	cmd := exec.CommandContext(ctx, s.name, args...)
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return apperrors.Wrap(err, apperrors.Internal, "text-to-speech failed")
	}
	return nil
}
