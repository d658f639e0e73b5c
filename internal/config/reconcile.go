package config

import (
	"crontide/internal/command"
	"crontide/internal/scheduler"
	logx "crontide/pkg/logx"
)

// Reconcile makes the task table match the declared job set.
//
// Jobs are compared by id: a changed pattern is applied in place (the entry
// keeps its identity), a changed command replaces the entry, and table
// entries absent from the config are descheduled. Jobs with specs the
// pattern parser rejects are skipped with a warning; the rest still apply.
func Reconcile(s *scheduler.Service, jobs []JobConfig, log logx.Logger) {
	if log.IsZero() {
		log = logx.Nop()
	}

	desired := make(map[string]JobConfig, len(jobs))
	for _, j := range jobs {
		desired[j.ID] = j
	}

	// Drop entries no longer declared.
	for _, id := range s.Table().IDs() {
		if _, ok := desired[id]; !ok {
			s.Deschedule(id)
		}
	}

	for _, j := range jobs {
		cur, exists := s.Table().TaskByID(j.ID)
		if exists {
			if ct, ok := cur.(*command.Task); ok && ct.Command == j.Command {
				// Same body; apply the (possibly unchanged) pattern in place.
				if p, _ := s.Table().PatternByID(j.ID); p != nil && p.String() == j.Pattern {
					continue
				}
				if _, err := s.UpdatePattern(j.ID, j.Pattern); err != nil {
					log.Warn("job pattern rejected", logx.String("id", j.ID), logx.String("pattern", j.Pattern), logx.Any("err", err))
				}
				continue
			}
			// Task bodies are immutable; a changed command means a new entry.
			s.Deschedule(j.ID)
		}
		if _, err := s.Schedule(j.ID, j.Pattern, command.New(j.Command)); err != nil {
			log.Warn("job rejected", logx.String("id", j.ID), logx.String("pattern", j.Pattern), logx.Any("err", err))
		}
	}
}
