package capture

import (
	"bufio"
	"bytes"
	"context"
	"image/jpeg"
	"io"
	"log/slog"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"

	apperrors "github.com/GriffinCanCode/interview-coach/internal/errors"
)

// FirstFrameTimeout bounds how long opening the camera waits for a frame.
const FirstFrameTimeout = 5 * time.Second

// camera reads MJPEG frames from an ffmpeg process capturing the local webcam.
type camera struct {
	label  string
	cmd    *exec.Cmd
	cancel context.CancelFunc
	done   chan struct{}
	stderr *bytes.Buffer

	mu     sync.Mutex
	latest Frame
	seq    uint64
}

func openCamera(ctx context.Context, device string, frameRate int) (*camera, error) {
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		return nil, apperrors.Wrap(err, apperrors.DeviceNotFound, "ffmpeg is required for local camera capture")
	}
	if frameRate <= 0 {
		frameRate = DefaultFrameRate
	}
	input, err := cameraInputArgs(device, frameRate)
	if err != nil {
		return nil, err
	}
	args := append(input, "-an", "-f", "image2pipe", "-vcodec", "mjpeg", "-q:v", "5", "-r", strconv.Itoa(frameRate), "-")

	camCtx, cancel := context.WithCancel(ctx)
	cmd := exec.CommandContext(camCtx, "ffmpeg", args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		cancel()
		return nil, apperrors.Wrap(err, apperrors.Internal, "camera pipe")
	}
	if err := cmd.Start(); err != nil {
		cancel()
		return nil, apperrors.Wrap(err, apperrors.DeviceNotFound, "start ffmpeg")
	}

	c := &camera{label: device, cmd: cmd, cancel: cancel, done: make(chan struct{}), stderr: &stderr}
	first := make(chan struct{})
	go c.read(stdout, first)

	select {
	case <-first:
		slog.Info("started camera", "device", device, "frame_rate", frameRate)
		return c, nil
	case <-c.done:
		c.stop()
		return nil, cameraError(stderr.String())
	case <-time.After(FirstFrameTimeout):
		c.stop()
		return nil, apperrors.New(apperrors.DeviceConstraint, "camera produced no frames").WithMetadata("device", device)
	case <-ctx.Done():
		c.stop()
		return nil, ctx.Err()
	}
}

func (c *camera) read(r io.Reader, first chan<- struct{}) {
	defer close(c.done)
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 256*1024), 8*1024*1024)
	scanner.Split(splitJPEG)

	signalled := false
	for scanner.Scan() {
		img, err := jpeg.Decode(bytes.NewReader(scanner.Bytes()))
		if err != nil {
			slog.Debug("skipping undecodable camera frame", "error", err)
			continue
		}
		c.mu.Lock()
		c.seq++
		c.latest = Frame{Image: img, Seq: c.seq, At: time.Now()}
		c.mu.Unlock()
		if !signalled {
			close(first)
			signalled = true
		}
	}
	if err := scanner.Err(); err != nil {
		slog.Debug("camera stream ended", "device", c.label, "error", err)
	}
}

func (c *camera) frame() (Frame, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.latest, c.seq > 0
}

func (c *camera) live() bool {
	select {
	case <-c.done:
		return false
	default:
		return true
	}
}

func (c *camera) stop() {
	c.cancel()
	<-c.done
	_ = c.cmd.Wait()
}

// cameraError maps ffmpeg diagnostics onto device errors.
func cameraError(stderr string) error {
	s := strings.ToLower(stderr)
	switch {
	case strings.Contains(s, "busy"), strings.Contains(s, "in use"):
		return apperrors.New(apperrors.DeviceInUse, "camera is in use by another application")
	case strings.Contains(s, "permission denied"), strings.Contains(s, "not authorized"):
		return apperrors.New(apperrors.PermissionDenied, "camera access denied")
	case strings.Contains(s, "no such file"), strings.Contains(s, "not found"), strings.Contains(s, "could not find"):
		return apperrors.New(apperrors.DeviceNotFound, "camera not found")
	default:
		return apperrors.New(apperrors.DeviceConstraint, "camera could not be opened").WithMetadata("detail", lastLine(stderr))
	}
}

func lastLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		return s[i+1:]
	}
	return s
}

var (
	jpegStart = []byte{0xFF, 0xD8}
	jpegEnd   = []byte{0xFF, 0xD9}
)

// splitJPEG is a bufio.SplitFunc yielding whole JPEG images from an MJPEG
// byte stream.
func splitJPEG(data []byte, atEOF bool) (advance int, token []byte, err error) {
	start := bytes.Index(data, jpegStart)
	if start < 0 {
		if atEOF {
			return len(data), nil, nil
		}
		// Keep a trailing 0xFF that may begin the next marker.
		if n := len(data); n > 0 {
			return n - 1, nil, nil
		}
		return 0, nil, nil
	}
	end := bytes.Index(data[start+len(jpegStart):], jpegEnd)
	if end < 0 {
		if atEOF {
			return len(data), nil, nil
		}
		return start, nil, nil
	}
	stop := start + len(jpegStart) + end + len(jpegEnd)
	return stop, data[start:stop], nil
}
