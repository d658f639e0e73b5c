package registry

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"crontide/internal/pattern"
	logx "crontide/pkg/logx"
)

// fixedPattern matches (or not) unconditionally; registry tests don't care
// about cron semantics.
type fixedPattern struct {
	name string
	on   bool
}

func (p fixedPattern) Match(loc *time.Location, millis int64, matchSecond bool) bool { return p.on }
func (p fixedPattern) String() string                                                { return p.name }

// namedTask records executions and is comparable by pointer identity.
type namedTask struct {
	name string
}

func (t *namedTask) Run(ctx context.Context) error { return nil }
func (t *namedTask) String() string                { return t.name }

func newTestTable() *Table { return New(logx.Nop()) }

func TestEntriesAlignedUnderConcurrentWrites(t *testing.T) {
	t.Parallel()
	tbl := newTestTable()

	ids := []string{"a", "b", "c", "d", "e"}
	for _, id := range ids {
		if err := tbl.Add(id, fixedPattern{name: "p-" + id}, &namedTask{name: id}); err != nil {
			t.Fatalf("Add(%s): %v", id, err)
		}
	}

	stop := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; ; i++ {
			select {
			case <-stop:
				return
			default:
			}
			id := ids[i%len(ids)]
			tbl.Remove(id)
			_ = tbl.Add(id, fixedPattern{name: "p-" + id}, &namedTask{name: id})
		}
	}()

	// A removal between two separate listing calls could pair an id with a
	// shifted pattern; one Entries call must never observe that.
	deadline := time.Now().Add(200 * time.Millisecond)
	for time.Now().Before(deadline) {
		for _, e := range tbl.Entries() {
			if got := e.Pattern.String(); got != "p-"+e.ID {
				t.Fatalf("entry %s paired with pattern %s", e.ID, got)
			}
		}
	}
	close(stop)
	wg.Wait()
}

func TestAddDuplicateID(t *testing.T) {
	t.Parallel()
	tbl := newTestTable()

	if err := tbl.Add("a", fixedPattern{name: "p1"}, &namedTask{name: "t1"}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	err := tbl.Add("a", fixedPattern{name: "p2"}, &namedTask{name: "t2"})
	if !errors.Is(err, ErrTaskExists) {
		t.Fatalf("expected ErrTaskExists, got %v", err)
	}

	// Failed insert must leave the table unchanged.
	if tbl.Len() != 1 {
		t.Fatalf("Len = %d, want 1", tbl.Len())
	}
	p, ok := tbl.PatternByID("a")
	if !ok || p.String() != "p1" {
		t.Fatalf("pattern for a = %v, want p1", p)
	}
}

func TestAlignmentAcrossWrites(t *testing.T) {
	t.Parallel()
	tbl := newTestTable()

	tasks := map[string]*namedTask{}
	for _, id := range []string{"a", "b", "c", "d"} {
		task := &namedTask{name: "task-" + id}
		tasks[id] = task
		if err := tbl.Add(id, fixedPattern{name: "pat-" + id}, task); err != nil {
			t.Fatalf("Add(%s): %v", id, err)
		}
	}

	if !tbl.Remove("b") {
		t.Fatal("Remove(b) = false")
	}
	if !tbl.UpdatePattern("c", fixedPattern{name: "pat-c2"}) {
		t.Fatal("UpdatePattern(c) = false")
	}

	// Every surviving id still maps to its own registration.
	for _, id := range []string{"a", "c", "d"} {
		task, ok := tbl.TaskByID(id)
		if !ok {
			t.Fatalf("TaskByID(%s) missing", id)
		}
		if task != tasks[id] {
			t.Fatalf("TaskByID(%s) returned a different registration", id)
		}
	}
	if p, _ := tbl.PatternByID("c"); p.String() != "pat-c2" {
		t.Fatalf("pattern for c = %v, want pat-c2", p)
	}
	if p, _ := tbl.PatternByID("d"); p.String() != "pat-d" {
		t.Fatalf("pattern for d = %v, want pat-d", p)
	}

	// Relative order of the remaining entries is preserved.
	got := tbl.IDs()
	want := []string{"a", "c", "d"}
	if len(got) != len(want) {
		t.Fatalf("IDs = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("IDs = %v, want %v", got, want)
		}
	}
}

func TestRemoveSemantics(t *testing.T) {
	t.Parallel()
	tbl := newTestTable()
	_ = tbl.Add("x", fixedPattern{name: "p"}, &namedTask{name: "t"})

	if !tbl.Remove("x") {
		t.Fatal("expected removal")
	}
	if _, ok := tbl.TaskByID("x"); ok {
		t.Fatal("task still resolvable after removal")
	}
	if _, ok := tbl.PatternByID("x"); ok {
		t.Fatal("pattern still resolvable after removal")
	}
	if tbl.Len() != 0 {
		t.Fatalf("Len = %d, want 0", tbl.Len())
	}

	// Second removal is a no-op, not an error.
	if tbl.Remove("x") {
		t.Fatal("second Remove returned true")
	}
	if tbl.Remove("never-existed") {
		t.Fatal("Remove of unknown id returned true")
	}
}

func TestUpdatePatternUnknownID(t *testing.T) {
	t.Parallel()
	tbl := newTestTable()
	if tbl.UpdatePattern("ghost", fixedPattern{name: "p"}) {
		t.Fatal("UpdatePattern of unknown id returned true")
	}
}

func TestCountCoherence(t *testing.T) {
	t.Parallel()
	tbl := newTestTable()
	if !tbl.IsEmpty() {
		t.Fatal("new table not empty")
	}

	for i, id := range []string{"a", "b", "c"} {
		_ = tbl.Add(id, fixedPattern{name: "p"}, &namedTask{name: id})
		if tbl.Len() != i+1 || len(tbl.IDs()) != i+1 {
			t.Fatalf("after add %d: Len=%d IDs=%d", i+1, tbl.Len(), len(tbl.IDs()))
		}
	}
	tbl.Remove("b")
	if tbl.Len() != 2 || len(tbl.IDs()) != 2 {
		t.Fatalf("after remove: Len=%d IDs=%d", tbl.Len(), len(tbl.IDs()))
	}
}

func TestPositionalAccess(t *testing.T) {
	t.Parallel()
	tbl := newTestTable()
	task := &namedTask{name: "t0"}
	_ = tbl.Add("a", fixedPattern{name: "p0"}, task)

	got, err := tbl.TaskAt(0)
	if err != nil || got != task {
		t.Fatalf("TaskAt(0) = %v, %v", got, err)
	}
	p, err := tbl.PatternAt(0)
	if err != nil || p.String() != "p0" {
		t.Fatalf("PatternAt(0) = %v, %v", p, err)
	}

	for _, idx := range []int{-1, 1, 42} {
		if _, err := tbl.TaskAt(idx); !errors.Is(err, ErrIndexOutOfRange) {
			t.Fatalf("TaskAt(%d): expected ErrIndexOutOfRange, got %v", idx, err)
		}
		if _, err := tbl.PatternAt(idx); !errors.Is(err, ErrIndexOutOfRange) {
			t.Fatalf("PatternAt(%d): expected ErrIndexOutOfRange, got %v", idx, err)
		}
	}
}

func TestListingsAreDetached(t *testing.T) {
	t.Parallel()
	tbl := newTestTable()
	_ = tbl.Add("a", fixedPattern{name: "p"}, &namedTask{name: "t"})
	_ = tbl.Add("b", fixedPattern{name: "p"}, &namedTask{name: "t"})

	ids := tbl.IDs()
	ids[0] = "mutated"
	if got := tbl.IDs()[0]; got != "a" {
		t.Fatalf("table observed caller mutation: %q", got)
	}

	pats := tbl.Patterns()
	pats[0] = fixedPattern{name: "mutated"}
	if got, _ := tbl.PatternByID("a"); got.String() != "p" {
		t.Fatalf("table observed caller mutation: %q", got)
	}
}

func TestStringDump(t *testing.T) {
	t.Parallel()
	tbl := newTestTable()
	_ = tbl.Add("first", fixedPattern{name: "*/5 * * * *"}, &namedTask{name: "echo hi"})
	_ = tbl.Add("second", fixedPattern{name: "@hourly"}, &namedTask{name: "make backup"})

	out := tbl.String()
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d:\n%s", len(lines), out)
	}
	if !strings.Contains(lines[0], "first") || !strings.Contains(lines[0], "*/5 * * * *") || !strings.Contains(lines[0], "echo hi") {
		t.Fatalf("unexpected first line: %q", lines[0])
	}
	if !strings.Contains(lines[1], "second") {
		t.Fatalf("unexpected second line: %q", lines[1])
	}
}

// Compile-time check: the real cron pattern satisfies the interface the table
// stores.
var _ pattern.Pattern = fixedPattern{}
