//go:build darwin

package capture

import "strconv"

func cameraInputArgs(device string, frameRate int) ([]string, error) {
	if device == "" {
		device = "0"
	}
	return []string{"-f", "avfoundation", "-framerate", strconv.Itoa(frameRate), "-i", device + ":none"}, nil
}
