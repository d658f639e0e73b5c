package pattern

import (
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// Pattern is an opaque recurrence descriptor. The registry asks it one
// question per tick: does this instant, viewed in the given location, trigger
// a run?
//
// matchSecond selects the match granularity. When false, the instant is
// truncated to the minute before matching, so at most one match per minute.
type Pattern interface {
	Match(loc *time.Location, millis int64, matchSecond bool) bool
	fmt.Stringer
}

// NewParser returns the cron parser used across the repo.
// SecondOptional allows both 5-field and 6-field (with seconds) specs.
func NewParser() cron.Parser {
	return cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
}

// Parse parses a cron spec ("*/5 * * * *", "30 2 * * 1", "@hourly", ...)
// into a Pattern.
func Parse(spec string) (Pattern, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return nil, fmt.Errorf("cron spec required")
	}
	sched, err := NewParser().Parse(spec)
	if err != nil {
		return nil, fmt.Errorf("invalid cron spec %q: %w", spec, err)
	}
	return &cronPattern{spec: spec, sched: sched}, nil
}

// MustParse is Parse for static specs; it panics on error.
func MustParse(spec string) Pattern {
	p, err := Parse(spec)
	if err != nil {
		panic(err)
	}
	return p
}

type cronPattern struct {
	spec  string
	sched cron.Schedule
}

// Match reports whether the schedule fires exactly at the given instant.
// The instant is truncated to the match granularity, then the schedule's next
// activation after (instant - granularity) is compared against it. This
// defers all boundary inclusive/exclusive decisions to the cron schedule
// itself.
func (p *cronPattern) Match(loc *time.Location, millis int64, matchSecond bool) bool {
	if loc == nil {
		loc = time.Local
	}
	step := time.Second
	if !matchSecond {
		step = time.Minute
	}
	t := time.UnixMilli(millis).In(loc).Truncate(step)
	return p.sched.Next(t.Add(-step)).Equal(t)
}

// Next returns the schedule's next activation strictly after t.
func (p *cronPattern) Next(t time.Time) time.Time { return p.sched.Next(t) }

func (p *cronPattern) String() string { return p.spec }
