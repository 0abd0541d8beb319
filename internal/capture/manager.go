package capture

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	apperrors "github.com/GriffinCanCode/interview-coach/internal/errors"
	"github.com/GriffinCanCode/interview-coach/internal/scheduler"
)

// Status distinguishes full from partial capture.
type Status string

const (
	StatusFull    Status = "full"
	StatusPartial Status = "partial"
)

// Acquisition is the validated result of a capture request.
type Acquisition struct {
	Status Status  `json:"status"`
	Audio  bool    `json:"audio"`
	Video  bool    `json:"video"`
	Tracks []Track `json:"tracks"`
}

// Options configure a Manager.
type Options struct {
	FrameRate   int
	SampleRate  int
	Timeslice   time.Duration
	StopTimeout time.Duration
}

// Sinks receive derived samples while capture runs.
type Sinks struct {
	OnFace  func(FacePosition)
	OnAudio func(AudioChunk)
}

// Manager owns the single combined capture stream of a session.
type Manager struct {
	devices   Devices
	sched     *scheduler.Scheduler
	opts      Options
	estimator *FaceEstimator

	mu       sync.Mutex
	stream   Stream
	acq      Acquisition
	recorder *Recorder
	sampler  *frameSampler
	cancel   context.CancelFunc
	pumps    sync.WaitGroup
	running  bool
}

// NewManager creates a manager over devices. The capture loop runs on sched.
func NewManager(devices Devices, sched *scheduler.Scheduler, opts Options) *Manager {
	if opts.FrameRate <= 0 {
		opts.FrameRate = DefaultFrameRate
	}
	if opts.Timeslice <= 0 {
		opts.Timeslice = DefaultTimeslice
	}
	if opts.StopTimeout <= 0 {
		opts.StopTimeout = DefaultStopTimeout
	}
	return &Manager{devices: devices, sched: sched, opts: opts, estimator: NewFaceEstimator()}
}

// Acquire checks permissions and requests audio and video in one call. When
// both permissions are already denied it fails with PERMISSION_BLOCKED without
// requesting anything.
func (m *Manager) Acquire(ctx context.Context) (Acquisition, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stream != nil {
		return m.acq, nil
	}

	cam := m.permission(ctx, Video)
	mic := m.permission(ctx, Audio)
	if cam == PermissionDenied && mic == PermissionDenied {
		return Acquisition{}, apperrors.New(apperrors.PermissionBlocked, "camera and microphone access are blocked")
	}

	stream, err := m.devices.Open(ctx, Constraints{
		Audio:      true,
		Video:      true,
		SampleRate: m.opts.SampleRate,
		FrameRate:  m.opts.FrameRate,
	})
	if err != nil {
		return Acquisition{}, deviceError(err)
	}

	acq := validate(stream.Tracks())
	if !acq.Audio && !acq.Video {
		_ = stream.Close()
		return Acquisition{}, apperrors.New(apperrors.CaptureInvalid, "stream has no live audio or video track")
	}
	m.stream = stream
	m.acq = acq
	slog.Info("capture acquired", "status", acq.Status, "audio", acq.Audio, "video", acq.Video)
	return acq, nil
}

func (m *Manager) permission(ctx context.Context, kind Kind) PermissionState {
	state, err := m.devices.Permission(ctx, kind)
	if err != nil {
		slog.Debug("permission query failed", "kind", kind, "error", err)
		return PermissionPrompt
	}
	return state
}

// validate requires at least one live, enabled track per kind.
func validate(tracks []Track) Acquisition {
	acq := Acquisition{Tracks: tracks}
	for _, t := range tracks {
		if !t.Live || !t.Enabled {
			continue
		}
		switch t.Kind {
		case Audio:
			acq.Audio = true
		case Video:
			acq.Video = true
		}
	}
	acq.Status = StatusPartial
	if acq.Audio && acq.Video {
		acq.Status = StatusFull
	}
	return acq
}

func deviceError(err error) error {
	var app *apperrors.AppError
	if errors.As(err, &app) {
		return app
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return apperrors.Wrap(err, apperrors.DeviceConstraint, "could not open camera and microphone")
}

// Start begins recording and the capture loop. Face positions are sampled
// FrameRate times per second; audio chunks are forwarded as they arrive.
func (m *Manager) Start(ctx context.Context, sinks Sinks) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stream == nil {
		return apperrors.New(apperrors.CaptureInvalid, "capture has not been acquired")
	}
	if m.running {
		return nil
	}

	var enc Encoder
	if e, ok := m.stream.(Encoder); ok {
		enc = e
	}
	m.recorder = NewRecorder(m.sched.Clock(), m.opts.Timeslice, m.stream.MIMEType(), enc)
	m.recorder.Start()
	m.recorder.Consume(m.stream.Media())

	pumpCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	if audio := m.stream.Audio(); audio != nil && sinks.OnAudio != nil {
		m.pumps.Add(1)
		go func() {
			defer m.pumps.Done()
			for {
				select {
				case <-pumpCtx.Done():
					return
				case chunk, ok := <-audio:
					if !ok {
						return
					}
					sinks.OnAudio(chunk)
				}
			}
		}()
	}

	if m.acq.Video && sinks.OnFace != nil {
		m.sampler = newFrameSampler(m.stream, m.estimator, m.sched.Clock(), sinks.OnFace)
		interval := time.Second / time.Duration(m.opts.FrameRate)
		m.sched.Every(scheduler.TaskCaptureLoop, interval, m.sampler.tick)
	}
	m.running = true
	return nil
}

// Running reports whether capture has been started and not yet stopped.
func (m *Manager) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

// Stop ends the capture loop, closes the stream and returns the finished
// recording. It returns only once the final blob is assembled.
func (m *Manager) Stop(ctx context.Context) (*Recording, error) {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		m.Release()
		return nil, apperrors.New(apperrors.CaptureInvalid, "capture is not running")
	}
	m.running = false
	stream, recorder, cancel := m.stream, m.recorder, m.cancel
	m.stream, m.recorder, m.cancel, m.sampler = nil, nil, nil, nil
	m.mu.Unlock()

	m.sched.Cancel(scheduler.TaskCaptureLoop)
	cancel()
	m.pumps.Wait()
	if err := stream.Close(); err != nil {
		slog.Warn("closing capture stream", "error", err)
	}

	ctx, done := context.WithTimeout(ctx, m.opts.StopTimeout)
	defer done()
	rec, err := recorder.Stop(ctx)
	if err != nil {
		return nil, err
	}
	slog.Info("recording finalized", "bytes", len(rec.Data), "duration", rec.Duration, "chunks", rec.Chunks)
	return rec, nil
}

// Release closes an acquired stream that was never started.
func (m *Manager) Release() {
	m.mu.Lock()
	stream := m.stream
	running := m.running
	if !running {
		m.stream = nil
	}
	m.mu.Unlock()
	if stream != nil && !running {
		_ = stream.Close()
	}
}

// SkippedFrames returns how many frames the capture loop did not re-estimate
// because they matched the previous frame.
func (m *Manager) SkippedFrames() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sampler == nil {
		return 0
	}
	return m.sampler.skippedFrames()
}
