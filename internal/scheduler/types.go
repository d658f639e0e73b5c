package scheduler

import (
	"sync"
	"time"

	"crontide/internal/executor"
	"crontide/internal/registry"
	logx "crontide/pkg/logx"
)

// Config controls the tick loop.
type Config struct {
	Timezone string // IANA TZ, e.g. "Asia/Jakarta"; empty means local time

	// MatchSecond enables second-granularity matching: one scan per second
	// instead of one per minute.
	MatchSecond bool
}

type Service struct {
	mu  sync.Mutex
	cfg Config
	log logx.Logger
	loc *time.Location

	table *registry.Table
	exec  *executor.Service

	stopCh chan struct{}
	done   chan struct{}
}

// EntryInfo describes one registered task for diagnostics.
type EntryInfo struct {
	ID      string
	Pattern string
	Next    time.Time
}

type Snapshot struct {
	Running     bool
	Timezone    string
	MatchSecond bool
	Entries     []EntryInfo

	Executor executor.Snapshot
}
