package config

import (
	"fmt"
	"strings"
	"time"

	"crontide/internal/executor"
	"crontide/internal/scheduler"
	"crontide/internal/storage"
	logx "crontide/pkg/logx"
)

// Config is the daemon configuration.
//
// All durations are Go duration strings (e.g. "500ms", "10s", "1m").
type Config struct {
	Logging   LoggingConfig   `json:"logging"`
	Scheduler SchedulerConfig `json:"scheduler"`
	Executor  ExecutorConfig  `json:"executor,omitempty"`
	Storage   *StorageConfig  `json:"storage,omitempty"`

	// Jobs declares the scheduled shell commands. The set is reconciled
	// against the task table on every reload.
	Jobs []JobConfig `json:"jobs"`
}

type LoggingConfig struct {
	Level   string `json:"level,omitempty"`
	Console *bool  `json:"console,omitempty"`
	File    string `json:"file,omitempty"`
}

type SchedulerConfig struct {
	Timezone    string `json:"timezone,omitempty"`
	MatchSecond bool   `json:"match_second,omitempty"`
}

// ExecutorConfig maps to executor.Config.
//
// Defaults (when fields are omitted/zero):
//   - workers: 2
//   - queue_size: 256
//   - default_timeout: "0s" (disabled)
//   - history_size: 200
type ExecutorConfig struct {
	Workers        int    `json:"workers,omitempty"`
	QueueSize      int    `json:"queue_size,omitempty"`
	DefaultTimeout string `json:"default_timeout,omitempty"`
	HistorySize    int    `json:"history_size,omitempty"`
}

type StorageConfig struct {
	Driver      string `json:"driver,omitempty"`
	Path        string `json:"path,omitempty"`
	BusyTimeout string `json:"busy_timeout,omitempty"`
}

// JobConfig declares one scheduled command.
type JobConfig struct {
	ID      string `json:"id"`
	Pattern string `json:"pattern"`
	Command string `json:"command"`
}

// Validate performs structural checks that don't need the table or the
// pattern parser (the scheduler rejects bad specs on reconcile anyway).
func (c *Config) Validate() error {
	seen := map[string]bool{}
	for i, j := range c.Jobs {
		id := strings.TrimSpace(j.ID)
		if id == "" {
			return fmt.Errorf("jobs[%d]: id is required", i)
		}
		if seen[id] {
			return fmt.Errorf("jobs[%d]: duplicate id %q", i, id)
		}
		seen[id] = true
		if strings.TrimSpace(j.Pattern) == "" {
			return fmt.Errorf("jobs[%d] (%s): pattern is required", i, id)
		}
		if strings.TrimSpace(j.Command) == "" {
			return fmt.Errorf("jobs[%d] (%s): command is required", i, id)
		}
	}
	return nil
}

func (c LoggingConfig) ToLogx() logx.Config {
	console := true
	if c.Console != nil {
		console = *c.Console
	}
	out := logx.Config{Level: c.Level, Console: console}
	if strings.TrimSpace(c.File) != "" {
		out.File = logx.FileConfig{Enabled: true, Path: c.File}
	}
	return out
}

func (c SchedulerConfig) ToScheduler() scheduler.Config {
	return scheduler.Config{Timezone: c.Timezone, MatchSecond: c.MatchSecond}
}

func (c ExecutorConfig) ToExecutor() (executor.Config, error) {
	timeout, err := ParseDurationField("executor.default_timeout", c.DefaultTimeout)
	if err != nil {
		return executor.Config{}, err
	}
	return executor.Config{
		Workers:        c.Workers,
		QueueSize:      c.QueueSize,
		DefaultTimeout: timeout,
		HistorySize:    c.HistorySize,
	}, nil
}

func (c *StorageConfig) ToStorage() (storage.Config, error) {
	if c == nil {
		return storage.Config{}, nil
	}
	busy, err := ParseDurationField("storage.busy_timeout", c.BusyTimeout)
	if err != nil {
		return storage.Config{}, err
	}
	return storage.Config{Driver: c.Driver, Path: c.Path, BusyTimeout: busy}, nil
}

func ParseDurationField(path, raw string) (time.Duration, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid duration %q: %w", path, raw, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("%s: duration must be >= 0", path)
	}
	return d, nil
}
