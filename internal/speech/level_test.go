package speech

import (
	"math"
	"testing"
	"time"
)

func tone(n int, amp float32) []float32 {
	s := make([]float32, n)
	for i := range s {
		if i%2 == 0 {
			s[i] = amp
		} else {
			s[i] = -amp
		}
	}
	return s
}

func TestRMS(t *testing.T) {
	if got := RMS(tone(100, 0.5)); math.Abs(got-0.5) > 1e-9 {
		t.Errorf("RMS = %v, want 0.5", got)
	}
	if RMS(nil) != 0 {
		t.Error("RMS of no samples should be 0")
	}
}

func TestLevelMeterBursts(t *testing.T) {
	var starts, ends []time.Time
	m := NewLevelMeter(LevelConfig{SampleRate: 1000, WindowSamples: 100, MaxSilenceChunks: 2},
		func(at time.Time) { starts = append(starts, at) },
		func(at time.Time) { ends = append(ends, at) })

	base := time.Unix(100, 0)
	// 300ms of speech ending at base+300ms.
	m.Process(tone(300, 0.3), base.Add(300*time.Millisecond))
	if len(starts) != 1 || !starts[0].Equal(base) {
		t.Fatalf("starts = %v, want [%v]", starts, base)
	}
	if !m.Speaking() {
		t.Fatal("meter should be in a burst")
	}

	// Two quiet windows are tolerated, the third ends the burst.
	m.Process(make([]float32, 200), base.Add(500*time.Millisecond))
	if len(ends) != 0 {
		t.Fatal("burst ended too early")
	}
	m.Process(make([]float32, 100), base.Add(600*time.Millisecond))
	if len(ends) != 1 {
		t.Fatalf("ends = %d, want 1", len(ends))
	}
	if want := base.Add(300 * time.Millisecond); !ends[0].Equal(want) {
		t.Errorf("end = %v, want last voiced window %v", ends[0], want)
	}
}

func TestLevelMeterBuffersPartialWindows(t *testing.T) {
	starts := 0
	m := NewLevelMeter(LevelConfig{SampleRate: 1000, WindowSamples: 100}, func(time.Time) { starts++ }, nil)

	m.Process(tone(60, 0.3), time.Unix(0, 0))
	if starts != 0 || m.Level() != 0 {
		t.Fatal("partial window should not be measured")
	}
	m.Process(tone(60, 0.3), time.Unix(0, 0))
	if starts != 1 {
		t.Errorf("starts = %d, want 1", starts)
	}
	if m.Level() <= 0 {
		t.Error("level should rise after a loud window")
	}

	m.Reset()
	if m.Level() != 0 || m.Speaking() {
		t.Error("Reset should clear level and burst state")
	}
}
