package timers

import (
	"sync"
	"time"
)

// Set runs at most one pending task per key. Scheduling a key again replaces
// the previous task; a replaced or cancelled task never runs even if its
// underlying timer already fired.
type Set struct {
	mu    sync.Mutex
	gen   uint64
	tasks map[string]entry
}

type entry struct {
	gen   uint64
	timer *time.Timer
}

func New() *Set {
	return &Set{tasks: map[string]entry{}}
}

func (s *Set) Schedule(key string, delay time.Duration, fn func()) {
	if delay < 0 {
		delay = 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if old, ok := s.tasks[key]; ok {
		old.timer.Stop()
	}
	s.gen++
	gen := s.gen
	s.tasks[key] = entry{
		gen: gen,
		timer: time.AfterFunc(delay, func() {
			if !s.claim(key, gen) {
				return
			}
			fn()
		}),
	}
}

// claim removes the task if it is still the current one for key.
func (s *Set) claim(key string, gen uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.tasks[key]
	if !ok || cur.gen != gen {
		return false
	}
	delete(s.tasks, key)
	return true
}

// Cancel reports whether a pending task was removed.
func (s *Set) Cancel(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.tasks[key]
	if !ok {
		return false
	}
	cur.timer.Stop()
	delete(s.tasks, key)
	return true
}

func (s *Set) Pending(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.tasks[key]
	return ok
}

func (s *Set) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tasks)
}

// Stop cancels everything.
func (s *Set) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, e := range s.tasks {
		e.timer.Stop()
		delete(s.tasks, k)
	}
}
