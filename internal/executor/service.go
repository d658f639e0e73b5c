package executor

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"crontide/internal/registry"
	"crontide/internal/storage"
	logx "crontide/pkg/logx"
)

// Service runs dispatched tasks on a bounded worker pool.
//
// Dispatch never blocks: the registry issues dispatches while holding its
// read lock, so a full queue rejects with ErrQueueFull instead of waiting.
type Service struct {
	mu  sync.Mutex
	cfg Config
	log logx.Logger

	store storage.Store

	q      chan queued
	stopCh chan struct{}
	wg     sync.WaitGroup

	inFlight int32
	dropped  uint64

	// Queue-full warnings are bursty by nature; cap them.
	warnLimit *rate.Limiter

	hmu     sync.Mutex
	history []HistoryItem
}

type queued struct {
	rec        registry.DispatchRecord
	enqueuedAt time.Time
}

func New(cfg Config, log logx.Logger, store storage.Store) *Service {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Service{
		cfg:       cfg.withDefaults(),
		log:       log,
		store:     store,
		warnLimit: rate.NewLimiter(rate.Every(5*time.Second), 1),
	}
}

// Start launches the worker pool. It is idempotent.
func (s *Service) Start(ctx context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopCh != nil {
		return
	}
	cfg := s.cfg

	s.q = make(chan queued, cfg.QueueSize)
	s.stopCh = make(chan struct{})

	queue := s.q
	stopCh := s.stopCh
	for i := 0; i < cfg.Workers; i++ {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.worker(ctx, stopCh, queue)
		}()
	}
	s.log.Info("executor started", logx.Int("workers", cfg.Workers), logx.Int("queue", cap(queue)))
}

// Stop signals workers and waits for them, bounded by ctx.
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
	s.q = nil
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.log.Info("executor stopped")
	case <-ctx.Done():
		s.log.Warn("executor stop timed out", logx.Any("err", ctx.Err()))
	}
}

// Dispatch accepts a matched entry for asynchronous execution.
// It is the registry.Dispatcher implementation.
func (s *Service) Dispatch(rec registry.DispatchRecord) error {
	s.mu.Lock()
	q := s.q
	running := s.stopCh != nil
	s.mu.Unlock()

	if !running || q == nil {
		return ErrStopped
	}

	select {
	case q <- queued{rec: rec, enqueuedAt: time.Now()}:
		return nil
	default:
		atomic.AddUint64(&s.dropped, 1)
		if s.warnLimit.Allow() {
			s.log.Warn("task dropped: queue full",
				logx.String("id", rec.ID),
				logx.Int("queue_cap", cap(q)),
				logx.Uint64("dropped", atomic.LoadUint64(&s.dropped)),
			)
		}
		return ErrQueueFull
	}
}

func (s *Service) Snapshot() Snapshot {
	s.mu.Lock()
	cfg := s.cfg
	q := s.q
	running := s.stopCh != nil
	s.mu.Unlock()

	ql, qc := 0, 0
	if q != nil {
		ql = len(q)
		qc = cap(q)
	}

	s.hmu.Lock()
	h := make([]HistoryItem, len(s.history))
	copy(h, s.history)
	s.hmu.Unlock()

	return Snapshot{
		Running:  running,
		Workers:  cfg.Workers,
		QueueLen: ql,
		QueueCap: qc,
		InFlight: int(atomic.LoadInt32(&s.inFlight)),
		Dropped:  atomic.LoadUint64(&s.dropped),
		History:  h,
	}
}

func (s *Service) appendHistory(item HistoryItem) {
	s.hmu.Lock()
	s.history = append(s.history, item)
	if len(s.history) > s.cfg.HistorySize {
		s.history = s.history[len(s.history)-s.cfg.HistorySize:]
	}
	s.hmu.Unlock()
}
