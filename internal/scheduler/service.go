package scheduler

import (
	"context"
	"strings"
	"time"

	"crontide/internal/executor"
	"crontide/internal/registry"
	logx "crontide/pkg/logx"
)

func New(cfg Config, table *registry.Table, exec *executor.Service, log logx.Logger) *Service {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Service{
		cfg:   cfg,
		log:   log,
		table: table,
		exec:  exec,
	}
}

// Table exposes the underlying task table (admin UIs, diagnostics).
func (s *Service) Table() *registry.Table { return s.table }

// Start launches the tick loop. It is idempotent.
func (s *Service) Start(ctx context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopCh != nil {
		return
	}

	loc := s.loadLocationLocked()
	s.loc = loc
	s.stopCh = make(chan struct{})
	s.done = make(chan struct{})

	step := time.Minute
	if s.cfg.MatchSecond {
		step = time.Second
	}

	go s.loop(ctx, s.stopCh, s.done, loc, step, s.cfg.MatchSecond)
	s.log.Info("scheduler started", logx.String("tz", loc.String()), logx.Duration("tick", step), logx.Int("tasks", s.table.Len()))
}

// Stop stops the tick loop and waits for the in-progress scan, bounded by ctx.
func (s *Service) Stop(ctx context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}
	s.mu.Lock()
	if s.stopCh == nil {
		s.mu.Unlock()
		return
	}
	close(s.stopCh)
	s.stopCh = nil
	done := s.done
	s.done = nil
	s.mu.Unlock()

	select {
	case <-done:
		s.log.Info("scheduler stopped")
	case <-ctx.Done():
		s.log.Warn("scheduler stop timed out", logx.Any("err", ctx.Err()))
	}
}

// loop wakes once per step, aligned to the step boundary, and runs one full
// table scan per tick. The scan itself blocks this goroutine, never the
// ticker channel (missed ticks are simply dropped by time.Ticker).
func (s *Service) loop(ctx context.Context, stopCh <-chan struct{}, done chan<- struct{}, loc *time.Location, step time.Duration, matchSecond bool) {
	defer close(done)

	// Align the first tick to the next step boundary so minute patterns fire
	// at :00 rather than at an arbitrary process start offset.
	now := time.Now().In(loc)
	first := now.Truncate(step).Add(step)
	tmr := time.NewTimer(time.Until(first))
	select {
	case <-ctx.Done():
		tmr.Stop()
		return
	case <-stopCh:
		tmr.Stop()
		return
	case <-tmr.C:
	}
	s.tick(first, loc, matchSecond)

	tk := time.NewTicker(step)
	defer tk.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-stopCh:
			return
		case t := <-tk.C:
			s.tick(t.In(loc), loc, matchSecond)
		}
	}
}

func (s *Service) tick(t time.Time, loc *time.Location, matchSecond bool) {
	n := s.table.DispatchMatched(s.exec, loc, t.UnixMilli(), matchSecond)
	if n > 0 {
		s.log.Debug("tick dispatched", logx.Time("at", t), logx.Int("matched", n))
	}
}

func (s *Service) loadLocationLocked() *time.Location {
	tz := strings.TrimSpace(s.cfg.Timezone)
	if tz == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		s.log.Warn("invalid timezone; falling back to Local", logx.String("tz", tz), logx.Any("err", err))
		return time.Local
	}
	return loc
}
