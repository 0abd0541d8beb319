package speech

import (
	"math"
	"sync"
	"time"
)

// LevelConfig configures a LevelMeter.
type LevelConfig struct {
	SampleRate int
	// Threshold is the RMS level above which a window counts as speech.
	Threshold float64
	// MaxSilenceChunks is how many quiet windows end a burst.
	MaxSilenceChunks int
	WindowSamples    int
}

// Level meter defaults
const (
	DefaultLevelThreshold   = 0.02
	DefaultMaxSilenceChunks = 15
	DefaultWindowSamples    = 512

	// levelSmoothing weights the previous level against the new window.
	levelSmoothing = 0.6
)

// LevelMeter derives a smoothed loudness level and speech bursts from PCM.
type LevelMeter struct {
	cfg     LevelConfig
	onStart func(time.Time)
	onEnd   func(time.Time)

	mu            sync.Mutex
	buffer        []float32
	level         float64
	speaking      bool
	silenceChunks int
	lastVoice     time.Time
}

// NewLevelMeter creates a meter. onStart and onEnd may be nil.
func NewLevelMeter(cfg LevelConfig, onStart, onEnd func(time.Time)) *LevelMeter {
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = 16000
	}
	if cfg.Threshold <= 0 {
		cfg.Threshold = DefaultLevelThreshold
	}
	if cfg.MaxSilenceChunks <= 0 {
		cfg.MaxSilenceChunks = DefaultMaxSilenceChunks
	}
	if cfg.WindowSamples <= 0 {
		cfg.WindowSamples = DefaultWindowSamples
	}
	return &LevelMeter{cfg: cfg, onStart: onStart, onEnd: onEnd}
}

type burstEvent struct {
	start bool
	at    time.Time
}

// Process consumes a chunk of samples captured at at.
func (m *LevelMeter) Process(samples []float32, at time.Time) {
	m.mu.Lock()
	m.buffer = append(m.buffer, samples...)
	window := m.cfg.WindowSamples
	perWindow := time.Duration(window) * time.Second / time.Duration(m.cfg.SampleRate)
	// at marks the end of samples; walk windows forward from the oldest.
	t := at.Add(-time.Duration(len(m.buffer)) * time.Second / time.Duration(m.cfg.SampleRate))

	var events []burstEvent
	for len(m.buffer) >= window {
		chunk := m.buffer[:window]
		m.buffer = m.buffer[window:]
		t = t.Add(perWindow)

		rms := RMS(chunk)
		m.level = m.level*levelSmoothing + rms*(1-levelSmoothing)

		if rms > m.cfg.Threshold {
			if !m.speaking {
				m.speaking = true
				events = append(events, burstEvent{start: true, at: t.Add(-perWindow)})
			}
			m.silenceChunks = 0
			m.lastVoice = t
			continue
		}
		if m.speaking {
			m.silenceChunks++
			if m.silenceChunks > m.cfg.MaxSilenceChunks {
				m.speaking = false
				m.silenceChunks = 0
				events = append(events, burstEvent{at: m.lastVoice})
			}
		}
	}
	m.mu.Unlock()

	for _, e := range events {
		if e.start && m.onStart != nil {
			m.onStart(e.at)
		} else if !e.start && m.onEnd != nil {
			m.onEnd(e.at)
		}
	}
}

// Level returns the smoothed RMS level in [0, 1].
func (m *LevelMeter) Level() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return math.Min(1, m.level)
}

// Speaking reports whether a burst is in progress.
func (m *LevelMeter) Speaking() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.speaking
}

// Reset clears all state.
func (m *LevelMeter) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.buffer = nil
	m.level = 0
	m.speaking = false
	m.silenceChunks = 0
}

// RMS returns the root mean square of samples.
func RMS(samples []float32) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		sum += float64(s) * float64(s)
	}
	return math.Sqrt(sum / float64(len(samples)))
}
