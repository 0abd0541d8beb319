package analytics

import (
	"errors"
	"math"
)

// ErrNoData is returned by Summary when nothing was ever sampled.
var ErrNoData = errors.New("analytics: no samples recorded")

// Grade is a human-readable bucket for a 0-100 score.
type Grade string

const (
	Excellent        Grade = "Excellent"
	Good             Grade = "Good"
	Fair             Grade = "Fair"
	NeedsImprovement Grade = "Needs Improvement"
)

// GradeFor buckets a score.
func GradeFor(score float64) Grade {
	switch {
	case score >= 85:
		return Excellent
	case score >= 70:
		return Good
	case score >= 50:
		return Fair
	default:
		return NeedsImprovement
	}
}

// Score is one graded metric.
type Score struct {
	Value float64 `json:"value"`
	Grade Grade   `json:"grade"`
}

func graded(v float64) Score {
	v = clamp(v, 0, 100)
	return Score{Value: v, Grade: GradeFor(v)}
}

// Summary is the end-of-interview report.
type Summary struct {
	Overall      Score   `json:"overall"`
	EyeContact   Score   `json:"eye_contact"`
	Stability    Score   `json:"stability"`
	Fillers      Score   `json:"fillers"`
	Silence      Score   `json:"silence"`
	Pace         Score   `json:"pace"`
	WPM          float64 `json:"wpm"`
	FillerCount  int     `json:"filler_count"`
	SilenceCount int     `json:"silence_count"`
	FidgetCount  int     `json:"fidget_count"`
	Timeouts     []int   `json:"timeouts"`
}

// PaceFit scores speaking pace: 100 inside the ideal band, falling off one
// point per wpm away from the ideal pace outside it.
func PaceFit(wpm float64) float64 {
	if wpm >= IdealMinWPM && wpm <= IdealMaxWPM {
		return 100
	}
	return math.Max(0, 100-math.Abs(IdealWPM-wpm))
}

// Composite combines the metrics into one score in [0,100].
func Composite(eyeContact, stability float64, fillers, silences int, wpm float64) float64 {
	score := clamp(eyeContact, 0, 100)*0.25 +
		clamp(stability, 0, 100)*0.20 +
		fillerScore(fillers)*0.20 +
		silenceScore(silences)*0.15 +
		PaceFit(wpm)*0.20
	return clamp(score, 0, 100)
}

func fillerScore(n int) float64 { return math.Max(0, 100-float64(n)*3) }
func silenceScore(n int) float64 { return math.Max(0, 100-float64(n)*10) }

// Summary computes the final report from everything collected so far.
func (e *Engine) Summary() (Summary, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.eye.total == 0 && len(e.fillers.answers) == 0 && !e.speed.hasSamples() && e.silence.count == 0 {
		return Summary{}, ErrNoData
	}

	eye := e.eye.percentage()
	stability := e.posture.stability()
	fillers := e.fillers.total()
	wpm := e.speed.wpm()
	overall := Composite(eye, stability, fillers, e.silence.count, wpm)
	if math.IsNaN(overall) {
		return Summary{}, errors.New("analytics: summary is not a number")
	}

	return Summary{
		Overall:      graded(overall),
		EyeContact:   graded(eye),
		Stability:    graded(stability),
		Fillers:      graded(fillerScore(fillers)),
		Silence:      graded(silenceScore(e.silence.count)),
		Pace:         graded(PaceFit(wpm)),
		WPM:          wpm,
		FillerCount:  fillers,
		SilenceCount: e.silence.count,
		FidgetCount:  e.posture.fidgets,
		Timeouts:     append([]int(nil), e.timer.timeouts...),
	}, nil
}
