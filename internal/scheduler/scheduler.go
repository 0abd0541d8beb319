package scheduler

import (
	"log/slog"
	"sort"
	"sync"
	"time"
)

// Task names used by the interview session.
const (
	TaskSilence       = "silence-submit"
	TaskQuestionTimer = "question-timer"
	TaskListenDelay   = "listen-after-speak"
	TaskRoundCommit   = "round-commit"
	TaskCaptureLoop   = "capture-loop"
	TaskMetrics       = "metrics-broadcast"
)

// Scheduler owns a set of named tasks. Scheduling a name that is already
// active replaces the previous task, so a name never has two live timers.
type Scheduler struct {
	clock Clock

	mu    sync.Mutex
	tasks map[string]*task
	gen   uint64
}

type task struct {
	gen      uint64
	timer    Timer
	interval time.Duration // zero for one-shot tasks
}

// New creates a scheduler on clock. A nil clock means the wall clock.
func New(clock Clock) *Scheduler {
	if clock == nil {
		clock = RealClock()
	}
	return &Scheduler{clock: clock, tasks: make(map[string]*task)}
}

// Clock returns the scheduler's clock.
func (s *Scheduler) Clock() Clock { return s.clock }

// Now returns the scheduler's current time.
func (s *Scheduler) Now() time.Time { return s.clock.Now() }

// After runs fn once after d under name, replacing any task with that name.
func (s *Scheduler) After(name string, d time.Duration, fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked(name)
	s.gen++
	t := &task{gen: s.gen}
	t.timer = s.clock.AfterFunc(d, s.wrap(name, t.gen, fn))
	s.tasks[name] = t
}

// Every runs fn every d under name until cancelled, replacing any task with that name.
func (s *Scheduler) Every(name string, d time.Duration, fn func()) {
	if d <= 0 {
		slog.Warn("scheduler: ignoring non-positive interval", "task", name, "interval", d)
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked(name)
	s.gen++
	t := &task{gen: s.gen, interval: d}
	t.timer = s.clock.AfterFunc(d, s.wrap(name, t.gen, fn))
	s.tasks[name] = t
}

// wrap guards fn against running after its task was cancelled or replaced,
// and re-arms repeating tasks before invoking fn.
func (s *Scheduler) wrap(name string, gen uint64, fn func()) func() {
	var run func()
	run = func() {
		s.mu.Lock()
		t, ok := s.tasks[name]
		if !ok || t.gen != gen {
			s.mu.Unlock()
			return
		}
		if t.interval > 0 {
			t.timer = s.clock.AfterFunc(t.interval, run)
		} else {
			delete(s.tasks, name)
		}
		s.mu.Unlock()
		fn()
	}
	return run
}

// Cancel stops the named task. It reports whether a task was active.
func (s *Scheduler) Cancel(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopLocked(name)
}

// CancelAll stops every task.
func (s *Scheduler) CancelAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for name := range s.tasks {
		s.stopLocked(name)
	}
}

// Active reports whether the named task is scheduled.
func (s *Scheduler) Active(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.tasks[name]
	return ok
}

// Names returns the active task names, sorted.
func (s *Scheduler) Names() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.tasks))
	for name := range s.tasks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (s *Scheduler) stopLocked(name string) bool {
	t, ok := s.tasks[name]
	if !ok {
		return false
	}
	t.timer.Stop()
	delete(s.tasks, name)
	return true
}
