package capture

import (
	"log/slog"
	"sync"

	"github.com/corona10/goimagehash"

	"github.com/GriffinCanCode/interview-coach/internal/scheduler"
)

// frameSampler runs on every capture-loop tick. It reuses the previous
// estimate when the frame has not changed or is perceptually identical.
type frameSampler struct {
	stream    Stream
	estimator *FaceEstimator
	clock     scheduler.Clock
	onFace    func(FacePosition)

	mu       sync.Mutex
	lastSeq  uint64
	lastHash *goimagehash.ImageHash
	skipped  int
}

func newFrameSampler(stream Stream, estimator *FaceEstimator, clock scheduler.Clock, onFace func(FacePosition)) *frameSampler {
	return &frameSampler{stream: stream, estimator: estimator, clock: clock, onFace: onFace}
}

func (s *frameSampler) tick() {
	frame, ok := s.stream.LatestFrame()
	if !ok {
		return
	}
	now := s.clock.Now()

	s.mu.Lock()
	var pos FacePosition
	switch {
	case frame.Seq == s.lastSeq:
		pos = s.estimator.Last()
	case s.similarLocked(frame):
		s.lastSeq = frame.Seq
		s.skipped++
		pos = s.estimator.Last()
	default:
		s.lastSeq = frame.Seq
		pos = s.estimator.Estimate(frame.Image, frame.At)
	}
	s.mu.Unlock()

	pos.At = now
	if s.onFace != nil {
		s.onFace(pos)
	}
}

// similarLocked reports whether frame is within MaxHashDistance of the last
// estimated frame. A frame that is not similar becomes the new reference.
func (s *frameSampler) similarLocked(frame Frame) bool {
	if frame.Image == nil {
		return false
	}
	hash, err := goimagehash.PerceptionHash(frame.Image)
	if err != nil {
		return false
	}
	if s.lastHash == nil {
		s.lastHash = hash
		return false
	}
	dist, err := s.lastHash.Distance(hash)
	if err != nil {
		s.lastHash = hash
		return false
	}
	if dist <= MaxHashDistance {
		slog.Debug("skipping face estimate for similar frame", "distance", dist)
		return true
	}
	s.lastHash = hash
	return false
}

func (s *frameSampler) skippedFrames() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.skipped
}
