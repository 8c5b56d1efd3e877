// Package trigger drives the broadcast cycle on a fixed interval. The
// interval is deliberately much shorter than the cooldown window: failed
// or empty cycles don't consume the window, so polling often lets fresh
// content go out as soon as the cooldown opens.
package trigger

import (
	"context"
	"runtime/debug"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"newsbot/pkg/logx"
)

type Service struct {
	log      logx.Logger
	interval time.Duration
	run      func(ctx context.Context)

	mu     sync.Mutex
	c      *cron.Cron
	cancel context.CancelFunc
}

// New builds the trigger. run is invoked once per tick; it must be safe
// against overlapping invocations (the dispatcher guards itself).
func New(interval time.Duration, run func(ctx context.Context), log logx.Logger) *Service {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Service{log: log, interval: interval, run: run}
}

func (s *Service) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.c != nil {
		return
	}
	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	job := func() {
		defer func() {
			if r := recover(); r != nil {
				s.log.Error("panic in broadcast cycle", logx.Any("panic", r), logx.String("stack", string(debug.Stack())))
			}
		}()
		s.run(runCtx)
	}

	s.c = cron.New()
	s.c.Schedule(cron.Every(s.interval), cron.FuncJob(job))
	s.c.Start()

	// First check shortly after startup instead of waiting a full interval.
	firstTimer := time.AfterFunc(10*time.Second, func() {
		if runCtx.Err() == nil {
			job()
		}
	})
	go func() {
		<-runCtx.Done()
		firstTimer.Stop()
	}()

	s.log.Info("trigger started", logx.Duration("interval", s.interval))
}

func (s *Service) Stop(ctx context.Context) {
	s.mu.Lock()
	c := s.c
	cancel := s.cancel
	s.c = nil
	s.cancel = nil
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if c == nil {
		return
	}
	done := c.Stop().Done()
	select {
	case <-done:
	case <-ctx.Done():
	}
	s.log.Info("trigger stopped")
}
