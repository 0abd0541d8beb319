//go:build !linux && !darwin && !windows

package capture

import apperrors "github.com/GriffinCanCode/interview-coach/internal/errors"

func cameraInputArgs(string, int) ([]string, error) {
	return nil, apperrors.New(apperrors.DeviceNotFound, "local camera capture is not supported on this platform")
}
