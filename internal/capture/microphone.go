package capture

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/gordonklaus/portaudio"

	apperrors "github.com/GriffinCanCode/interview-coach/internal/errors"
)

// microphone reads the best local input device through portaudio.
type microphone struct {
	stream     *portaudio.Stream
	label      string
	sampleRate int
	cancel     context.CancelFunc
	done       chan struct{}
	stopOnce   sync.Once
}

func openMicrophone(ctx context.Context, sampleRate int, excluded []string, audioOut chan<- AudioChunk, mediaOut chan<- []byte) (*microphone, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, apperrors.Wrap(err, apperrors.DeviceNotFound, "audio subsystem unavailable")
	}

	devices, err := portaudio.Devices()
	if err != nil {
		_ = portaudio.Terminate()
		return nil, apperrors.Wrap(err, apperrors.DeviceNotFound, "list audio devices")
	}
	dev := selectMicrophone(devices, excluded)
	if dev == nil {
		_ = portaudio.Terminate()
		return nil, apperrors.New(apperrors.DeviceNotFound, "no microphone found")
	}

	params := portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Device:   dev,
			Channels: 1,
			Latency:  dev.DefaultLowInputLatency,
		},
		SampleRate:      float64(sampleRate),
		FramesPerBuffer: FramesPerBuffer,
	}
	buf := make([]float32, FramesPerBuffer)
	stream, err := portaudio.OpenStream(params, buf)
	if err != nil {
		_ = portaudio.Terminate()
		return nil, portaudioError(err, dev.Name)
	}
	if err := stream.Start(); err != nil {
		_ = stream.Close()
		_ = portaudio.Terminate()
		return nil, portaudioError(err, dev.Name)
	}

	micCtx, cancel := context.WithCancel(ctx)
	m := &microphone{stream: stream, label: dev.Name, sampleRate: sampleRate, cancel: cancel, done: make(chan struct{})}
	go m.read(micCtx, buf, audioOut, mediaOut)
	slog.Info("started microphone", "device", dev.Name, "sample_rate", sampleRate)
	return m, nil
}

func (m *microphone) read(ctx context.Context, buf []float32, audioOut chan<- AudioChunk, mediaOut chan<- []byte) {
	defer close(m.done)
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if err := m.stream.Read(); err != nil {
			slog.Debug("microphone read error", "device", m.label, "error", err)
			return
		}
		samples := append([]float32(nil), buf...)

		select {
		case audioOut <- AudioChunk{Samples: samples, SampleRate: m.sampleRate, At: time.Now()}:
		default:
			slog.Debug("audio buffer full, dropping chunk", "device", m.label)
		}
		select {
		case mediaOut <- Float32ToPCM16(samples):
		default:
			slog.Warn("recording buffer full, dropping audio", "device", m.label)
		}
	}
}

func (m *microphone) live() bool {
	select {
	case <-m.done:
		return false
	default:
		return true
	}
}

// stop waits for the read loop to exit before closing the device, so no
// chunk is sent after stop returns.
func (m *microphone) stop() {
	m.stopOnce.Do(func() {
		m.cancel()
		<-m.done
		_ = m.stream.Stop()
		_ = m.stream.Close()
		_ = portaudio.Terminate()
	})
}

func portaudioError(err error, device string) error {
	switch {
	case errors.Is(err, portaudio.DeviceUnavailable):
		return apperrors.Wrap(err, apperrors.DeviceInUse, "microphone is in use").WithMetadata("device", device)
	case errors.Is(err, portaudio.InvalidSampleRate), errors.Is(err, portaudio.InvalidChannelCount):
		return apperrors.Wrap(err, apperrors.DeviceConstraint, "microphone does not support the requested format").WithMetadata("device", device)
	case errors.Is(err, portaudio.InvalidDevice):
		return apperrors.Wrap(err, apperrors.DeviceNotFound, "microphone disappeared").WithMetadata("device", device)
	default:
		return apperrors.Wrap(err, apperrors.DeviceInUse, "open microphone").WithMetadata("device", device)
	}
}

var (
	loopbackKeywords = []string{"blackhole", "vb-cable", "loopback", "monitor", "soundflower"}
	micKeywords      = []string{"microphone", "input", "mic", "built-in", "headset"}
	preferredMics    = []string{"macbook", "built-in"}
)

// selectMicrophone picks one physical input, skipping loopback and excluded
// devices and preferring built-in microphones.
func selectMicrophone(devices []*portaudio.DeviceInfo, excluded []string) *portaudio.DeviceInfo {
	var best *portaudio.DeviceInfo
	for _, dev := range devices {
		if dev == nil || dev.MaxInputChannels < 1 || containsAny(dev.Name, excluded) {
			continue
		}
		if containsAny(dev.Name, loopbackKeywords) || !containsAny(dev.Name, micKeywords) {
			continue
		}
		if best == nil || preferMicrophone(dev.Name, best.Name) {
			best = dev
		}
	}
	return best
}

func preferMicrophone(name, current string) bool {
	for _, p := range preferredMics {
		if containsFold(name, p) && !containsFold(current, p) {
			return true
		}
	}
	return false
}

func containsAny(s string, keywords []string) bool {
	for _, kw := range keywords {
		if containsFold(s, kw) {
			return true
		}
	}
	return false
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
