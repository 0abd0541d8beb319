package capture

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	apperrors "github.com/GriffinCanCode/interview-coach/internal/errors"
	"github.com/GriffinCanCode/interview-coach/internal/scheduler"
)

// ErrNotRecording is returned when writing to a recorder that is not running.
var ErrNotRecording = errors.New("capture: recorder is not running")

// Recording is a finished recording.
type Recording struct {
	Data     []byte        `json:"-"`
	Duration time.Duration `json:"duration"`
	MIMEType string        `json:"mime_type"`
	Chunks   int           `json:"chunks"`
}

// Recorder accumulates stream data into timed chunks and assembles them into
// a single blob when stopped.
type Recorder struct {
	clock     scheduler.Clock
	timeslice time.Duration
	mimeType  string
	encoder   Encoder

	mu        sync.Mutex
	current   bytes.Buffer
	chunks    [][]byte
	timer     scheduler.Timer
	started   time.Time
	recording bool
	wg        sync.WaitGroup
}

// NewRecorder creates a recorder that seals a chunk every timeslice.
func NewRecorder(clock scheduler.Clock, timeslice time.Duration, mimeType string, encoder Encoder) *Recorder {
	if clock == nil {
		clock = scheduler.RealClock()
	}
	if timeslice <= 0 {
		timeslice = DefaultTimeslice
	}
	return &Recorder{clock: clock, timeslice: timeslice, mimeType: mimeType, encoder: encoder}
}

// Start begins a new recording, discarding any previous data.
func (r *Recorder) Start() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.current.Reset()
	r.chunks = nil
	r.started = r.clock.Now()
	r.recording = true
	r.armLocked()
}

func (r *Recorder) armLocked() {
	r.timer = r.clock.AfterFunc(r.timeslice, r.timerSeal)
}

func (r *Recorder) timerSeal() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.recording {
		return
	}
	r.sealLocked()
	r.armLocked()
}

func (r *Recorder) sealLocked() {
	if r.current.Len() == 0 {
		return
	}
	r.chunks = append(r.chunks, bytes.Clone(r.current.Bytes()))
	r.current.Reset()
}

// Write appends stream data to the current chunk.
func (r *Recorder) Write(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.recording {
		return 0, ErrNotRecording
	}
	return r.current.Write(p)
}

// Consume copies everything from src into the recorder until src is closed.
// Stop waits for it to finish.
func (r *Recorder) Consume(src <-chan []byte) {
	if src == nil {
		return
	}
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		for data := range src {
			if _, err := r.Write(data); err != nil {
				slog.Debug("dropping media after recorder stopped", "bytes", len(data))
			}
		}
	}()
}

// Recording reports whether the recorder is running.
func (r *Recorder) Recording() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.recording
}

// Stop waits for consumed sources to drain, seals the final chunk and returns
// the assembled recording. It never returns a partial blob: if ctx expires
// before the sources drain, it returns an error instead.
func (r *Recorder) Stop(ctx context.Context) (*Recording, error) {
	drained := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(drained)
	}()
	select {
	case <-drained:
	case <-ctx.Done():
		return nil, apperrors.Wrap(ctx.Err(), apperrors.CaptureInvalid, "recording did not finish")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.recording {
		return nil, ErrNotRecording
	}
	r.recording = false
	if r.timer != nil {
		r.timer.Stop()
		r.timer = nil
	}
	r.sealLocked()

	var blob bytes.Buffer
	for _, c := range r.chunks {
		blob.Write(c)
	}
	rec := &Recording{
		Data:     blob.Bytes(),
		Duration: r.clock.Now().Sub(r.started),
		MIMEType: r.mimeType,
		Chunks:   len(r.chunks),
	}
	if r.encoder != nil {
		rec.Data = r.encoder.Encode(rec.Data, rec.Duration)
	}
	r.chunks = nil
	return rec, nil
}
