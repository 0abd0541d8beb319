package capture

import (
	"context"
	"log/slog"
	"sync"
	"time"

	apperrors "github.com/GriffinCanCode/interview-coach/internal/errors"
)

// LocalConfig configures capture from devices attached to this machine.
type LocalConfig struct {
	SampleRate           int
	ExcludedAudioDevices []string
	CameraDevice         string
	FrameRate            int
	AllowMicrophone      bool
	AllowCamera          bool
}

// LocalDevices captures from the local microphone (portaudio) and camera
// (ffmpeg). Permission is granted by configuration; there is no prompt.
type LocalDevices struct {
	cfg LocalConfig
}

// NewLocalDevices creates local capture devices.
func NewLocalDevices(cfg LocalConfig) *LocalDevices {
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = 16000
	}
	if cfg.FrameRate <= 0 {
		cfg.FrameRate = DefaultFrameRate
	}
	return &LocalDevices{cfg: cfg}
}

// Permission reports the configured permission for kind.
func (d *LocalDevices) Permission(_ context.Context, kind Kind) (PermissionState, error) {
	allowed := d.cfg.AllowMicrophone
	if kind == Video {
		allowed = d.cfg.AllowCamera
	}
	if allowed {
		return PermissionGranted, nil
	}
	return PermissionDenied, nil
}

// Open starts the microphone and camera together. A device that fails to open
// is left out of the stream; Open fails only when nothing could be opened.
func (d *LocalDevices) Open(ctx context.Context, c Constraints) (Stream, error) {
	wantAudio := c.Audio && d.cfg.AllowMicrophone
	wantVideo := c.Video && d.cfg.AllowCamera
	if !wantAudio && !wantVideo {
		return nil, apperrors.New(apperrors.PermissionDenied, "camera and microphone are not allowed")
	}

	s := &localStream{
		audio: make(chan AudioChunk, AudioBufferSize),
		media: make(chan []byte, MediaBufferSize),
		wav:   wavEncoder{sampleRate: d.cfg.SampleRate},
	}
	var errs []error
	if wantAudio {
		mic, err := openMicrophone(ctx, d.cfg.SampleRate, d.cfg.ExcludedAudioDevices, s.audio, s.media)
		if err != nil {
			slog.Warn("microphone unavailable", "error", err)
			errs = append(errs, err)
		}
		s.mic = mic
	}
	if wantVideo {
		frameRate := d.cfg.FrameRate
		if c.FrameRate > 0 {
			frameRate = c.FrameRate
		}
		cam, err := openCamera(ctx, d.cfg.CameraDevice, frameRate)
		if err != nil {
			slog.Warn("camera unavailable", "error", err)
			errs = append(errs, err)
		}
		s.cam = cam
	}
	if s.mic == nil && s.cam == nil {
		close(s.audio)
		close(s.media)
		return nil, errs[0]
	}
	return s, nil
}

type localStream struct {
	mic   *microphone
	cam   *camera
	audio chan AudioChunk
	media chan []byte
	wav   wavEncoder

	closeOnce sync.Once
}

func (s *localStream) Tracks() []Track {
	var tracks []Track
	if s.mic != nil {
		tracks = append(tracks, Track{Kind: Audio, Label: s.mic.label, Live: s.mic.live(), Enabled: true})
	}
	if s.cam != nil {
		tracks = append(tracks, Track{Kind: Video, Label: s.cam.label, Live: s.cam.live(), Enabled: true})
	}
	return tracks
}

func (s *localStream) LatestFrame() (Frame, bool) {
	if s.cam == nil {
		return Frame{}, false
	}
	return s.cam.frame()
}

func (s *localStream) Audio() <-chan AudioChunk {
	if s.mic == nil {
		return nil
	}
	return s.audio
}

func (s *localStream) Media() <-chan []byte {
	if s.mic == nil {
		return nil
	}
	return s.media
}

func (s *localStream) MIMEType() string { return "audio/wav" }

func (s *localStream) Encode(data []byte, d time.Duration) []byte {
	return s.wav.Encode(data, d)
}

func (s *localStream) Close() error {
	s.closeOnce.Do(func() {
		if s.mic != nil {
			s.mic.stop()
		}
		if s.cam != nil {
			s.cam.stop()
		}
		close(s.audio)
		close(s.media)
	})
	return nil
}

var (
	_ Stream  = (*localStream)(nil)
	_ Encoder = (*localStream)(nil)
)
