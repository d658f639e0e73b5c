package executor

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync/atomic"
	"time"

	"crontide/internal/storage"
	logx "crontide/pkg/logx"
)

func (s *Service) worker(ctx context.Context, stopCh <-chan struct{}, queue <-chan queued) {
	for {
		// Fast-exit check so a closed stopCh wins over queued work.
		select {
		case <-ctx.Done():
			return
		case <-stopCh:
			return
		default:
		}

		select {
		case <-ctx.Done():
			return
		case <-stopCh:
			return
		case qt, ok := <-queue:
			if !ok {
				return
			}
			atomic.AddInt32(&s.inFlight, 1)
			s.execOne(ctx, qt)
			atomic.AddInt32(&s.inFlight, -1)
		}
	}
}

func (s *Service) execOne(ctx context.Context, qt queued) {
	start := time.Now()
	queueDelay := time.Duration(0)
	if !qt.enqueuedAt.IsZero() {
		queueDelay = start.Sub(qt.enqueuedAt)
		if queueDelay < 0 {
			queueDelay = 0
		}
	}

	runCtx := ctx
	var cancel func()
	if s.cfg.DefaultTimeout > 0 {
		runCtx, cancel = context.WithTimeout(ctx, s.cfg.DefaultTimeout)
	}

	// Guard against task panics: convert to error so one bad task can't kill
	// a worker.
	var err error
	func() {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("panic: %v", r)
				s.log.Error("task.panic", logx.String("id", qt.rec.ID), logx.Any("panic", r), logx.String("stack", string(debug.Stack())))
			}
		}()
		err = qt.rec.Task.Run(runCtx)
	}()
	if cancel != nil {
		cancel()
	}

	dur := time.Since(start)
	item := HistoryItem{
		ID:         qt.rec.ID,
		Pattern:    qt.rec.Pattern.String(),
		Started:    start,
		QueueDelay: queueDelay,
		Duration:   dur,
	}
	if err != nil {
		item.Error = err.Error()
		s.log.Warn("task.failed", logx.String("id", qt.rec.ID), logx.Any("err", err), logx.Duration("dur", dur))
	} else {
		s.log.Debug("task.completed", logx.String("id", qt.rec.ID), logx.Duration("queue_delay", queueDelay), logx.Duration("dur", dur))
	}

	s.appendHistory(item)

	if s.store != nil {
		rec := storage.RunRecord{
			At:       start,
			TaskID:   qt.rec.ID,
			Pattern:  item.Pattern,
			TookMS:   dur.Milliseconds(),
			QueuedMS: queueDelay.Milliseconds(),
			Error:    item.Error,
		}
		wctx, wcancel := context.WithTimeout(context.Background(), 2*time.Second)
		if werr := s.store.AppendRun(wctx, rec); werr != nil {
			s.log.Debug("run journal append failed", logx.String("id", qt.rec.ID), logx.Any("err", werr))
		}
		wcancel()
	}
}
