package executor

import "errors"

var (
	ErrStopped   = errors.New("executor not running")
	ErrQueueFull = errors.New("executor queue full")
)
