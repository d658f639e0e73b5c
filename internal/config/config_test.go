package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"
	"time"

	"crontide/internal/command"
	"crontide/internal/executor"
	"crontide/internal/registry"
	"crontide/internal/scheduler"
	logx "crontide/pkg/logx"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "crontide.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestParseFull(t *testing.T) {
	t.Parallel()
	path := writeConfig(t, `
logging:
  level: debug
  file: /var/log/crontide.log
scheduler:
  timezone: Asia/Jakarta
  match_second: true
executor:
  workers: 4
  queue_size: 128
  default_timeout: 30s
storage:
  driver: sqlite
  path: /var/lib/crontide/runs.db
  busy_timeout: 5s
jobs:
  - id: backup
    pattern: "0 3 * * *"
    command: /usr/local/bin/backup.sh
  - id: heartbeat
    pattern: "*/5 * * * *"
    command: curl -fsS https://example.com/ping
`)
	cfg, err := NewManager(path, logx.Nop()).Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Logging.Level != "debug" || cfg.Logging.File != "/var/log/crontide.log" {
		t.Fatalf("logging = %+v", cfg.Logging)
	}
	if cfg.Scheduler.Timezone != "Asia/Jakarta" || !cfg.Scheduler.MatchSecond {
		t.Fatalf("scheduler = %+v", cfg.Scheduler)
	}
	ex, err := cfg.Executor.ToExecutor()
	if err != nil {
		t.Fatalf("ToExecutor: %v", err)
	}
	if ex.Workers != 4 || ex.QueueSize != 128 || ex.DefaultTimeout != 30*time.Second {
		t.Fatalf("executor = %+v", ex)
	}
	st, err := cfg.Storage.ToStorage()
	if err != nil {
		t.Fatalf("ToStorage: %v", err)
	}
	if st.Driver != "sqlite" || st.BusyTimeout != 5*time.Second {
		t.Fatalf("storage = %+v", st)
	}
	if len(cfg.Jobs) != 2 || cfg.Jobs[0].ID != "backup" || cfg.Jobs[1].Pattern != "*/5 * * * *" {
		t.Fatalf("jobs = %+v", cfg.Jobs)
	}
}

func TestParseRejectsUnknownField(t *testing.T) {
	t.Parallel()
	path := writeConfig(t, `
scheduler:
  timezone: UTC
  matchsecond: true
jobs: []
`)
	if _, err := NewManager(path, logx.Nop()).Parse(); err == nil {
		t.Fatal("expected error for unknown field")
	}
}

func TestYAMLToJSONStringifiesKeys(t *testing.T) {
	t.Parallel()
	// YAML permits non-string keys; the JSON re-encode must not choke on them.
	j, err := yamlToJSON([]byte("outer:\n  7: daily\n  30: monthly\n"))
	if err != nil {
		t.Fatalf("yamlToJSON: %v", err)
	}
	var v map[string]map[string]string
	if err := json.Unmarshal(j, &v); err != nil {
		t.Fatalf("json.Unmarshal: %v", err)
	}
	if v["outer"]["7"] != "daily" || v["outer"]["30"] != "monthly" {
		t.Fatalf("decoded %v", v)
	}
}

func TestParseRejectsTrailingJSON(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "crontide.json")
	if err := os.WriteFile(path, []byte(`{"jobs": []}{"jobs": []}`), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := NewManager(path, logx.Nop()).Parse(); err == nil {
		t.Fatal("expected error for trailing data")
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		jobs    []JobConfig
		wantErr string
	}{
		{
			name: "ok",
			jobs: []JobConfig{
				{ID: "a", Pattern: "* * * * *", Command: "true"},
				{ID: "b", Pattern: "* * * * *", Command: "true"},
			},
		},
		{
			name:    "missing id",
			jobs:    []JobConfig{{Pattern: "* * * * *", Command: "true"}},
			wantErr: "id is required",
		},
		{
			name: "duplicate id",
			jobs: []JobConfig{
				{ID: "a", Pattern: "* * * * *", Command: "true"},
				{ID: "a", Pattern: "0 * * * *", Command: "false"},
			},
			wantErr: "duplicate id",
		},
		{
			name:    "missing pattern",
			jobs:    []JobConfig{{ID: "a", Command: "true"}},
			wantErr: "pattern is required",
		},
		{
			name:    "missing command",
			jobs:    []JobConfig{{ID: "a", Pattern: "* * * * *"}},
			wantErr: "command is required",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := (&Config{Jobs: tt.jobs}).Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("Validate = %v, want %q", err, tt.wantErr)
			}
		})
	}
}

func newTestScheduler(t *testing.T) *scheduler.Service {
	t.Helper()
	table := registry.New(logx.Nop())
	exec := executor.New(executor.Config{}, logx.Nop(), nil)
	return scheduler.New(scheduler.Config{Timezone: "UTC"}, table, exec, logx.Nop())
}

func TestReconcile(t *testing.T) {
	t.Parallel()
	s := newTestScheduler(t)

	Reconcile(s, []JobConfig{
		{ID: "a", Pattern: "* * * * *", Command: "echo a"},
		{ID: "b", Pattern: "0 * * * *", Command: "echo b"},
	}, logx.Nop())

	ids := s.Table().IDs()
	sort.Strings(ids)
	if len(ids) != 2 || ids[0] != "a" || ids[1] != "b" {
		t.Fatalf("ids after initial reconcile = %v", ids)
	}
	taskA, _ := s.Table().TaskByID("a")

	// Pattern change keeps identity, command change replaces, absence removes.
	Reconcile(s, []JobConfig{
		{ID: "a", Pattern: "*/10 * * * *", Command: "echo a"},
		{ID: "c", Pattern: "30 * * * *", Command: "echo c"},
	}, logx.Nop())

	if s.Table().Len() != 2 {
		t.Fatalf("Len = %d, want 2", s.Table().Len())
	}
	if _, ok := s.Table().TaskByID("b"); ok {
		t.Fatal("b should have been descheduled")
	}
	if p, _ := s.Table().PatternByID("a"); p == nil || p.String() != "*/10 * * * *" {
		t.Fatalf("a pattern = %v", p)
	}
	if cur, _ := s.Table().TaskByID("a"); cur != taskA {
		t.Fatal("a should keep its task on a pattern-only change")
	}
	if cur, _ := s.Table().TaskByID("c"); cur == nil {
		t.Fatal("c missing")
	}

	// Command change replaces the entry.
	Reconcile(s, []JobConfig{
		{ID: "a", Pattern: "*/10 * * * *", Command: "echo A2"},
		{ID: "c", Pattern: "30 * * * *", Command: "echo c"},
	}, logx.Nop())
	cur, ok := s.Table().TaskByID("a")
	if !ok {
		t.Fatal("a missing after command change")
	}
	if ct, ok := cur.(*command.Task); !ok || ct.Command != "echo A2" {
		t.Fatalf("a task = %v", cur)
	}
}

func TestReconcileSkipsBadPattern(t *testing.T) {
	t.Parallel()
	s := newTestScheduler(t)

	Reconcile(s, []JobConfig{
		{ID: "good", Pattern: "* * * * *", Command: "true"},
		{ID: "bad", Pattern: "not a cron", Command: "true"},
	}, logx.Nop())

	if _, ok := s.Table().TaskByID("good"); !ok {
		t.Fatal("good job missing")
	}
	if _, ok := s.Table().TaskByID("bad"); ok {
		t.Fatal("bad job should have been skipped")
	}
}
