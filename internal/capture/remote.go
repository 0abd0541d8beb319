package capture

import (
	"bytes"
	"context"
	"image"
	"image/jpeg"
	"log/slog"
	"sync"

	apperrors "github.com/GriffinCanCode/interview-coach/internal/errors"
	"github.com/GriffinCanCode/interview-coach/internal/scheduler"
)

// RemoteDevices is capture hosted by a connected frontend. The frontend
// reports permission states and the tracks it obtained, then pushes frames,
// audio and encoded media into the current stream.
type RemoteDevices struct {
	clock scheduler.Clock

	mu       sync.Mutex
	perms    map[Kind]PermissionState
	tracks   []Track
	mimeType string
	stream   *RemoteStream
}

// NewRemoteDevices creates a frontend-hosted device set. Permissions start in
// the prompt state.
func NewRemoteDevices(clock scheduler.Clock) *RemoteDevices {
	if clock == nil {
		clock = scheduler.RealClock()
	}
	return &RemoteDevices{clock: clock, perms: make(map[Kind]PermissionState)}
}

// SetPermission records the frontend's permission state for kind.
func (d *RemoteDevices) SetPermission(kind Kind, state PermissionState) {
	d.mu.Lock()
	d.perms[kind] = state
	d.mu.Unlock()
}

// Announce records the tracks the frontend obtained from its combined
// audio+video request and the MIME type of the media it will push.
func (d *RemoteDevices) Announce(tracks []Track, mimeType string) {
	d.mu.Lock()
	d.tracks = append([]Track(nil), tracks...)
	d.mimeType = mimeType
	d.mu.Unlock()
}

// Permission returns the last reported state.
func (d *RemoteDevices) Permission(_ context.Context, kind Kind) (PermissionState, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if s, ok := d.perms[kind]; ok {
		return s, nil
	}
	return PermissionPrompt, nil
}

// Open returns a stream over the announced tracks.
func (d *RemoteDevices) Open(_ context.Context, _ Constraints) (Stream, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.tracks) == 0 {
		return nil, apperrors.New(apperrors.DeviceNotFound, "frontend reported no capture tracks")
	}
	if d.stream != nil {
		d.stream.Close()
	}
	d.stream = newRemoteStream(d.clock, d.tracks, d.mimeType)
	return d.stream, nil
}

// Stream returns the open stream, or nil.
func (d *RemoteDevices) Stream() *RemoteStream {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.stream
}

// RemoteStream is a stream whose data is pushed by the frontend.
type RemoteStream struct {
	clock    scheduler.Clock
	mimeType string
	audio    chan AudioChunk
	media    chan []byte

	mu     sync.Mutex
	tracks []Track
	frame  Frame
	seq    uint64

	// sendMu guards closed and the channel sends against Close.
	sendMu sync.RWMutex
	closed bool
}

func newRemoteStream(clock scheduler.Clock, tracks []Track, mimeType string) *RemoteStream {
	return &RemoteStream{
		clock:    clock,
		mimeType: mimeType,
		tracks:   append([]Track(nil), tracks...),
		audio:    make(chan AudioChunk, AudioBufferSize),
		media:    make(chan []byte, MediaBufferSize),
	}
}

// Tracks returns the current track states.
func (s *RemoteStream) Tracks() []Track {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Track(nil), s.tracks...)
}

// SetTrack updates the state of the first track of kind, e.g. when the
// frontend reports that a track ended.
func (s *RemoteStream) SetTrack(kind Kind, live, enabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.tracks {
		if s.tracks[i].Kind == kind {
			s.tracks[i].Live, s.tracks[i].Enabled = live, enabled
			return
		}
	}
}

// PushFrame stores img as the latest frame.
func (s *RemoteStream) PushFrame(img image.Image) {
	s.sendMu.RLock()
	defer s.sendMu.RUnlock()
	if s.closed {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	s.frame = Frame{Image: img, Seq: s.seq, At: s.clock.Now()}
}

// PushJPEG decodes a JPEG frame and stores it as the latest frame.
func (s *RemoteStream) PushJPEG(data []byte) error {
	img, err := jpeg.Decode(bytes.NewReader(data))
	if err != nil {
		return apperrors.Wrap(err, apperrors.InvalidArgument, "decode frame")
	}
	s.PushFrame(img)
	return nil
}

// PushAudio forwards PCM samples. Chunks are dropped when the consumer lags.
func (s *RemoteStream) PushAudio(samples []float32, sampleRate int) {
	s.sendMu.RLock()
	defer s.sendMu.RUnlock()
	if s.closed {
		return
	}
	select {
	case s.audio <- AudioChunk{Samples: samples, SampleRate: sampleRate, At: s.clock.Now()}:
	default:
		slog.Debug("remote audio buffer full, dropping chunk")
	}
}

// PushMedia forwards encoded media for recording. It blocks while the
// recorder catches up so no recorded data is lost.
func (s *RemoteStream) PushMedia(ctx context.Context, data []byte) error {
	s.sendMu.RLock()
	defer s.sendMu.RUnlock()
	if s.closed {
		return apperrors.New(apperrors.CaptureInvalid, "stream closed")
	}
	select {
	case s.media <- data:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// LatestFrame returns the most recent frame.
func (s *RemoteStream) LatestFrame() (Frame, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.frame, s.seq > 0
}

func (s *RemoteStream) Audio() <-chan AudioChunk { return s.audio }
func (s *RemoteStream) Media() <-chan []byte     { return s.media }
func (s *RemoteStream) MIMEType() string         { return s.mimeType }

// Close ends the stream. Media already pushed is still delivered.
func (s *RemoteStream) Close() error {
	s.sendMu.Lock()
	defer s.sendMu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	close(s.audio)
	close(s.media)
	return nil
}
