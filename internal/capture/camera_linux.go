//go:build linux

package capture

import "strconv"

func cameraInputArgs(device string, frameRate int) ([]string, error) {
	if device == "" {
		device = "/dev/video0"
	}
	return []string{"-f", "v4l2", "-framerate", strconv.Itoa(frameRate), "-i", device}, nil
}
