package registry

import "errors"

var (
	// ErrTaskExists is returned by Add when the id already names a live entry.
	ErrTaskExists = errors.New("task id already registered")

	// ErrIndexOutOfRange is returned by positional lookups outside [0, Len()).
	ErrIndexOutOfRange = errors.New("task index out of range")
)
