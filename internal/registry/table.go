package registry

import (
	"context"
	"strings"
	"sync"

	"crontide/internal/pattern"
	logx "crontide/pkg/logx"
)

const defaultCapacity = 10

// Task is the opaque unit of work registered against a schedule.
// It is immutable once registered; replacing it requires Remove + Add.
type Task interface {
	Run(ctx context.Context) error
}

// Func adapts a plain function to the Task interface.
type Func func(ctx context.Context) error

func (f Func) Run(ctx context.Context) error { return f(ctx) }

// Table is the task table.
//
// Ids, patterns and tasks are kept as three slices indexed by a common
// position; every write keeps them aligned, so position i always describes
// one logical entry. Insertion order is preserved and only affects listing
// and dispatch order, never matching.
type Table struct {
	mu sync.RWMutex

	ids      []string
	patterns []pattern.Pattern
	tasks    []Task

	log logx.Logger
}

func New(log logx.Logger) *Table {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Table{
		ids:      make([]string, 0, defaultCapacity),
		patterns: make([]pattern.Pattern, 0, defaultCapacity),
		tasks:    make([]Task, 0, defaultCapacity),
		log:      log,
	}
}

// Add registers a new entry at the end of the insertion order.
// It returns ErrTaskExists (and leaves the table unchanged) when id already
// names a live entry.
func (t *Table) Add(id string, p pattern.Pattern, task Task) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.indexOfLocked(id) >= 0 {
		return ErrTaskExists
	}
	t.ids = append(t.ids, id)
	t.patterns = append(t.patterns, p)
	t.tasks = append(t.tasks, task)

	t.log.Debug("task registered", logx.String("id", id), logx.String("pattern", p.String()), logx.Int("size", len(t.ids)))
	return nil
}

// Remove unregisters the entry with the given id. Removing an unknown id is a
// no-op returning false, never an error. Relative order of the remaining
// entries is preserved.
func (t *Table) Remove(id string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	i := t.indexOfLocked(id)
	if i < 0 {
		return false
	}
	t.ids = append(t.ids[:i], t.ids[i+1:]...)
	t.patterns = append(t.patterns[:i], t.patterns[i+1:]...)
	t.tasks = append(t.tasks[:i], t.tasks[i+1:]...)

	t.log.Debug("task removed", logx.String("id", id), logx.Int("size", len(t.ids)))
	return true
}

// UpdatePattern replaces the pattern of the entry named by id, leaving its
// identity and task untouched. It returns whether the entry was found.
func (t *Table) UpdatePattern(id string, p pattern.Pattern) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	i := t.indexOfLocked(id)
	if i < 0 {
		return false
	}
	t.patterns[i] = p

	t.log.Debug("task pattern updated", logx.String("id", id), logx.String("pattern", p.String()))
	return true
}

// IDs returns a detached copy of all task ids in insertion order.
func (t *Table) IDs() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]string, len(t.ids))
	copy(out, t.ids)
	return out
}

// Patterns returns a detached copy of all patterns in insertion order.
func (t *Table) Patterns() []pattern.Pattern {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]pattern.Pattern, len(t.patterns))
	copy(out, t.patterns)
	return out
}

// Tasks returns a detached copy of all tasks in insertion order.
func (t *Table) Tasks() []Task {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]Task, len(t.tasks))
	copy(out, t.tasks)
	return out
}

// Entry pairs a task id with its current pattern.
type Entry struct {
	ID      string
	Pattern pattern.Pattern
}

// Entries returns a detached id/pattern listing in insertion order. The
// copy is taken under a single read lock, so the pairs are always aligned
// even with concurrent writers (separate IDs and Patterns calls give no such
// guarantee).
func (t *Table) Entries() []Entry {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]Entry, len(t.ids))
	for i := range t.ids {
		out[i] = Entry{ID: t.ids[i], Pattern: t.patterns[i]}
	}
	return out
}

// TaskByID looks an entry up by id. Missing ids are reported through the
// ok result, not an error.
func (t *Table) TaskByID(id string) (Task, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	i := t.indexOfLocked(id)
	if i < 0 {
		return nil, false
	}
	return t.tasks[i], true
}

// PatternByID looks a pattern up by task id.
func (t *Table) PatternByID(id string) (pattern.Pattern, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	i := t.indexOfLocked(id)
	if i < 0 {
		return nil, false
	}
	return t.patterns[i], true
}

// TaskAt returns the task at the given position. Positions are only stable
// between write operations.
func (t *Table) TaskAt(index int) (Task, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if index < 0 || index >= len(t.tasks) {
		return nil, ErrIndexOutOfRange
	}
	return t.tasks[index], nil
}

// PatternAt returns the pattern at the given position.
func (t *Table) PatternAt(index int) (pattern.Pattern, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if index < 0 || index >= len(t.patterns) {
		return nil, ErrIndexOutOfRange
	}
	return t.patterns[index], nil
}

// Len reports the number of live entries.
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.ids)
}

func (t *Table) IsEmpty() bool { return t.Len() == 0 }

// String renders one entry per line in insertion order. Diagnostic only, not
// a stable format.
func (t *Table) String() string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var b strings.Builder
	for i := range t.ids {
		b.WriteString("[")
		b.WriteString(t.ids[i])
		b.WriteString("] [")
		b.WriteString(t.patterns[i].String())
		b.WriteString("] [")
		if s, ok := t.tasks[i].(interface{ String() string }); ok {
			b.WriteString(s.String())
		} else {
			b.WriteString("task")
		}
		b.WriteString("]\n")
	}
	return b.String()
}

// indexOfLocked is a linear scan by id. Identity is the table's external key
// while position is the internal axis, so an O(n) scan is the accepted cost.
// Call with t.mu held (either mode).
func (t *Table) indexOfLocked(id string) int {
	for i, v := range t.ids {
		if v == id {
			return i
		}
	}
	return -1
}
