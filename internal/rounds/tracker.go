// Package rounds maps question categories onto the five fixed interview rounds
// and announces round changes.
package rounds

import (
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/GriffinCanCode/interview-coach/internal/scheduler"
)

// Round is one of the fixed interview segments.
type Round string

const (
	DSA         Round = "DSA"
	Technical   Round = "TECHNICAL"
	Behavioral  Round = "BEHAVIORAL"
	HR          Round = "HR"
	Situational Round = "SITUATIONAL"
)

// DefaultDisplayDelay is how long a round banner stays up before the next
// question may be shown.
const DefaultDisplayDelay = 3 * time.Second

type mapping struct {
	round Round
	keys  []string
}

// Evaluated in order. Keys of three characters or fewer must match a whole
// word so "hr" does not fire inside "threads".
var mappings = []mapping{
	{DSA, []string{"dsa", "algorithm", "data structure", "leetcode", "coding"}},
	{HR, []string{"hr", "culture", "human resources", "salary", "fit"}},
	{Behavioral, []string{"behavior", "behaviour", "leadership"}},
	{Situational, []string{"situation", "scenario", "hypothetical"}},
}

// Classify returns the round for a question category, defaulting to Technical.
func Classify(category string) Round {
	c := strings.ToLower(strings.TrimSpace(category))
	if c == "" {
		return Technical
	}
	words := strings.FieldsFunc(c, func(r rune) bool {
		return !(r >= 'a' && r <= 'z') && !(r >= '0' && r <= '9')
	})
	for _, m := range mappings {
		for _, k := range m.keys {
			if len(k) <= 3 {
				for _, w := range words {
					if w == k {
						return m.round
					}
				}
				continue
			}
			if strings.Contains(c, k) {
				return m.round
			}
		}
	}
	return Technical
}

// Transition announces the end of one round and the start of the next.
type Transition struct {
	Completed Round     `json:"completed"`
	Next      Round     `json:"next"`
	At        time.Time `json:"at"`
}

// Tracker follows the active round across questions. The newly observed round
// becomes current only after the display delay.
type Tracker struct {
	sched *scheduler.Scheduler
	delay time.Duration

	mu        sync.Mutex
	started   bool
	current   Round
	target    Round
	completed []Round
	done      map[Round]bool
	pending   bool
}

// New creates a tracker committing round changes on sched after delay.
func New(sched *scheduler.Scheduler, delay time.Duration) *Tracker {
	if delay < 0 {
		delay = 0
	}
	return &Tracker{sched: sched, delay: delay, done: make(map[Round]bool)}
}

// Start sets the opening round from the first question's category. No
// transition is announced for it.
func (t *Tracker) Start(category string) Round {
	r := Classify(category)
	t.mu.Lock()
	defer t.mu.Unlock()
	t.started = true
	t.current, t.target = r, r
	t.pending = false
	return r
}

// Observe records the category of the next question. When the round changes
// it returns the transition and schedules commit of the new round, after which
// onCommit runs. When the round is unchanged it returns false and onCommit is
// not called; the caller may reveal the question right away.
func (t *Tracker) Observe(category string, onCommit func(Round)) (Transition, bool) {
	r := Classify(category)

	t.mu.Lock()
	if !t.started {
		t.mu.Unlock()
		t.Start(category)
		return Transition{}, false
	}
	if r == t.target {
		pending := t.pending
		t.mu.Unlock()
		if pending {
			slog.Debug("round commit already pending", "round", r)
		}
		return Transition{}, false
	}
	tr := Transition{Completed: t.target, Next: r, At: t.sched.Now()}
	if !t.done[t.target] {
		t.done[t.target] = true
		t.completed = append(t.completed, t.target)
	}
	t.target = r
	t.pending = true
	t.mu.Unlock()

	slog.Debug("round transition", "completed", tr.Completed, "next", tr.Next)
	t.sched.After(scheduler.TaskRoundCommit, t.delay, func() {
		t.mu.Lock()
		if !t.pending || t.target != r {
			t.mu.Unlock()
			return
		}
		t.current = r
		t.pending = false
		t.mu.Unlock()
		if onCommit != nil {
			onCommit(r)
		}
	})
	return tr, true
}

// Current returns the committed round.
func (t *Tracker) Current() Round {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.current
}

// Pending reports whether a round change is waiting on its display delay.
func (t *Tracker) Pending() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.pending
}

// Completed returns completed rounds in the order they finished.
func (t *Tracker) Completed() []Round {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]Round(nil), t.completed...)
}

// Finish marks the active round completed at the end of the interview.
func (t *Tracker) Finish() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.started && !t.done[t.target] {
		t.done[t.target] = true
		t.completed = append(t.completed, t.target)
	}
	t.pending = false
}

// Reset clears all state and cancels a pending commit.
func (t *Tracker) Reset() {
	t.sched.Cancel(scheduler.TaskRoundCommit)
	t.mu.Lock()
	defer t.mu.Unlock()
	t.started = false
	t.current, t.target = "", ""
	t.completed = nil
	t.done = make(map[Round]bool)
	t.pending = false
}
