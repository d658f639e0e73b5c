package storage

import (
	"errors"
	"time"
)

var ErrDisabled = errors.New("storage disabled")

// Config configures the run journal.
//
// Driver values:
//   - "file": dependency-free file backend (jsonl)
//   - "sqlite": SQLite database file
//
// If Driver is empty or "none", storage is disabled.
type Config struct {
	Driver      string
	Path        string
	BusyTimeout time.Duration // sqlite only; 0 means default
}

// RunRecord records one task execution.
// Keep it compact and schema-stable.
type RunRecord struct {
	At       time.Time `json:"at"`
	TaskID   string    `json:"task_id"`
	Pattern  string    `json:"pattern"`
	TookMS   int64     `json:"took_ms"`
	QueuedMS int64     `json:"queued_ms"`
	Error    string    `json:"err,omitempty"`
}
