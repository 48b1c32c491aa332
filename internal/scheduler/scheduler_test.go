package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

type countingStarter struct {
	calls atomic.Int32
	err   error
}

func (c *countingStarter) StartDue(_ context.Context, _ time.Time) (int, error) {
	c.calls.Add(1)
	return 1, c.err
}

func TestSchedulerRunsTick(t *testing.T) {
	st := &countingStarter{}
	s, err := New(st, 10*time.Millisecond)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	s.Start()
	defer func() {
		if err := s.Stop(); err != nil {
			t.Fatalf("stop: %v", err)
		}
	}()

	deadline := time.Now().Add(2 * time.Second)
	for st.calls.Load() < 2 {
		if time.Now().After(deadline) {
			t.Fatalf("tick ran %d times, want at least 2", st.calls.Load())
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestTickSurvivesStarterError(t *testing.T) {
	st := &countingStarter{err: errors.New("db down")}
	s, err := New(st, time.Hour)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	defer s.Stop()

	s.Tick()
	s.Tick()
	if got := st.calls.Load(); got != 2 {
		t.Fatalf("calls = %d, want 2", got)
	}
}
