//go:build windows

package capture

import (
	"strconv"

	apperrors "github.com/GriffinCanCode/interview-coach/internal/errors"
)

func cameraInputArgs(device string, frameRate int) ([]string, error) {
	if device == "" {
		return nil, apperrors.New(apperrors.DeviceNotFound, "set CAMERA_DEVICE to the DirectShow camera name")
	}
	return []string{"-f", "dshow", "-framerate", strconv.Itoa(frameRate), "-i", "video=" + device}, nil
}
