package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/rs/zerolog/log"
)

// Starter promotes due tournaments.
type Starter interface {
	StartDue(ctx context.Context, now time.Time) (int, error)
}

// Scheduler runs the periodic tournament tick. Overlapping ticks are
// prevented by singleton mode; Starter re-reads state anyway.
type Scheduler struct {
	sched   gocron.Scheduler
	starter Starter
	ctx     context.Context
	cancel  context.CancelFunc
}

func New(starter Starter, interval time.Duration) (*Scheduler, error) {
	if interval <= 0 {
		interval = time.Minute
	}
	sched, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("new scheduler: %w", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	s := &Scheduler{sched: sched, starter: starter, ctx: ctx, cancel: cancel}
	_, err = sched.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(s.Tick),
		gocron.WithName("tournament-start-due"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		cancel()
		_ = sched.Shutdown()
		return nil, fmt.Errorf("schedule tournament tick: %w", err)
	}
	return s, nil
}

func (s *Scheduler) Start() {
	s.sched.Start()
	log.Info().Msg("scheduler started")
}

// Tick runs one pass. Exposed so it can be driven directly.
func (s *Scheduler) Tick() {
	started, err := s.starter.StartDue(s.ctx, time.Now())
	if err != nil {
		log.Error().Err(err).Msg("scheduler tick failed")
		return
	}
	if started > 0 {
		log.Info().Int("started", started).Msg("due tournaments started")
	}
}

func (s *Scheduler) Stop() error {
	s.cancel()
	return s.sched.Shutdown()
}
