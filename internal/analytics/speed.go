package analytics

import "time"

// SpeedSample is the pace of one answer.
type SpeedSample struct {
	WPM float64   `json:"wpm"`
	At  time.Time `json:"at"`
}

type speedTracker struct {
	samples *window[SpeedSample]
	words   int
	elapsed time.Duration

	// Speaking time of the open question, summed over speech bursts.
	burstStart time.Time
	spoken     time.Duration
}

func newSpeedTracker() speedTracker {
	return speedTracker{samples: newWindow[SpeedSample](SampleWindowSize)}
}

func (s *speedTracker) record(words int, elapsed time.Duration, at time.Time) {
	if words <= 0 || elapsed <= 0 {
		return
	}
	s.samples.push(SpeedSample{WPM: WPM(words, elapsed), At: at})
	s.words += words
	s.elapsed += elapsed
}

func (s *speedTracker) burstStarted(at time.Time) {
	if s.burstStart.IsZero() {
		s.burstStart = at
	}
}

func (s *speedTracker) burstEnded(at time.Time) {
	if s.burstStart.IsZero() {
		return
	}
	if at.After(s.burstStart) {
		s.spoken += at.Sub(s.burstStart)
	}
	s.burstStart = time.Time{}
}

// speaking returns the question's speaking time, counting an open burst up
// to now.
func (s *speedTracker) speaking(now time.Time) time.Duration {
	d := s.spoken
	if !s.burstStart.IsZero() && now.After(s.burstStart) {
		d += now.Sub(s.burstStart)
	}
	return d
}

func (s *speedTracker) newQuestion() {
	s.burstStart = time.Time{}
	s.spoken = 0
}

func (s *speedTracker) hasSamples() bool { return s.samples.len() > 0 }

// wpm is the pace over all recorded speaking time.
func (s *speedTracker) wpm() float64 {
	return WPM(s.words, s.elapsed)
}

// WPM converts a word count over elapsed time to words per minute.
func WPM(words int, elapsed time.Duration) float64 {
	ms := elapsed.Milliseconds()
	if ms <= 0 {
		return 0
	}
	return float64(words) * 60000 / float64(ms)
}
