package scheduler

import (
	"time"

	"github.com/google/uuid"

	"crontide/internal/pattern"
	"crontide/internal/registry"
	logx "crontide/pkg/logx"
)

// Schedule parses spec and registers task under id. An empty id gets a
// generated one. The returned id is the handle for Deschedule/UpdatePattern.
func (s *Service) Schedule(id, spec string, task registry.Task) (string, error) {
	p, err := pattern.Parse(spec)
	if err != nil {
		return "", err
	}
	if id == "" {
		id = uuid.NewString()
	}
	if err := s.table.Add(id, p, task); err != nil {
		return "", err
	}
	return id, nil
}

// Deschedule removes the task with the given id. It reports whether anything
// was removed.
func (s *Service) Deschedule(id string) bool {
	removed := s.table.Remove(id)
	if removed {
		s.log.Debug("task descheduled", logx.String("id", id))
	}
	return removed
}

// UpdatePattern replaces the recurrence pattern of an existing task.
// It reports whether the task was found; an invalid spec is an error either way.
func (s *Service) UpdatePattern(id, spec string) (bool, error) {
	p, err := pattern.Parse(spec)
	if err != nil {
		return false, err
	}
	return s.table.UpdatePattern(id, p), nil
}

func (s *Service) Snapshot() Snapshot {
	s.mu.Lock()
	cfg := s.cfg
	loc := s.loc
	running := s.stopCh != nil
	s.mu.Unlock()

	if loc == nil {
		loc = time.Local
	}
	tz := cfg.Timezone
	if tz == "" {
		tz = loc.String()
	}

	now := time.Now().In(loc)
	live := s.table.Entries()
	entries := make([]EntryInfo, 0, len(live))
	for _, ent := range live {
		e := EntryInfo{ID: ent.ID, Pattern: ent.Pattern.String()}
		if n, ok := ent.Pattern.(interface{ Next(time.Time) time.Time }); ok {
			e.Next = n.Next(now)
		}
		entries = append(entries, e)
	}

	return Snapshot{
		Running:     running,
		Timezone:    tz,
		MatchSecond: cfg.MatchSecond,
		Entries:     entries,
		Executor:    s.exec.Snapshot(),
	}
}
