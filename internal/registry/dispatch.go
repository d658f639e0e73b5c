package registry

import (
	"time"

	"crontide/internal/pattern"
	logx "crontide/pkg/logx"
)

// DispatchRecord is the tuple handed to the executor when a pattern matches.
type DispatchRecord struct {
	ID      string
	Pattern pattern.Pattern
	Task    Task
}

// Dispatcher accepts matched entries for asynchronous execution.
//
// Dispatch is fire-and-forget and must not block: the table issues all
// dispatches of one tick while holding its read lock, so a blocking
// Dispatch would stall every registration and removal for that duration.
// Implementations should reject (return an error) rather than wait.
type Dispatcher interface {
	Dispatch(rec DispatchRecord) error
}

// DispatchMatched scans all live entries once, in insertion order, and hands
// every entry whose pattern matches the instant to d.
//
// The read lock is held for the entire pass, so the set of entries scanned is
// one consistent snapshot with respect to concurrent writers. A failed
// dispatch is the executor's concern; it is logged and the scan continues.
//
// It returns the number of records accepted by d.
func (t *Table) DispatchMatched(d Dispatcher, loc *time.Location, millis int64, matchSecond bool) int {
	if loc == nil {
		loc = time.Local
	}

	t.mu.RLock()
	defer t.mu.RUnlock()

	dispatched := 0
	for i := range t.ids {
		if !t.patterns[i].Match(loc, millis, matchSecond) {
			continue
		}
		rec := DispatchRecord{ID: t.ids[i], Pattern: t.patterns[i], Task: t.tasks[i]}
		if err := d.Dispatch(rec); err != nil {
			t.log.Warn("task dispatch rejected", logx.String("id", rec.ID), logx.Any("err", err))
			continue
		}
		dispatched++
	}
	return dispatched
}
