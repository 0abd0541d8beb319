package analytics

import "time"

// SilenceInterval is a pause between speech bursts that met the threshold.
type SilenceInterval struct {
	Start         time.Time     `json:"start"`
	Duration      time.Duration `json:"duration"`
	QuestionIndex int           `json:"question_index"`
}

type silenceTracker struct {
	threshold time.Duration
	intervals *window[SilenceInterval]
	speaking  bool
	lastEnd   time.Time
	count     int
	total     time.Duration
	longest   time.Duration
}

func newSilenceTracker(threshold time.Duration) silenceTracker {
	return silenceTracker{threshold: threshold, intervals: newWindow[SilenceInterval](SampleWindowSize)}
}

func (s *silenceTracker) started(at time.Time, question int) {
	if s.speaking {
		return
	}
	s.speaking = true
	if s.lastEnd.IsZero() {
		return
	}
	gap := at.Sub(s.lastEnd)
	if gap < s.threshold {
		return
	}
	s.intervals.push(SilenceInterval{Start: s.lastEnd, Duration: gap, QuestionIndex: question})
	s.count++
	s.total += gap
	if gap > s.longest {
		s.longest = gap
	}
}

func (s *silenceTracker) ended(at time.Time) {
	s.speaking = false
	s.lastEnd = at
}

// forget drops the pending burst end so the gap across a question boundary
// is not counted.
func (s *silenceTracker) forget() {
	s.speaking = false
	s.lastEnd = time.Time{}
}

func (s *silenceTracker) average() time.Duration {
	if s.count == 0 {
		return 0
	}
	return s.total / time.Duration(s.count)
}
