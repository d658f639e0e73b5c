package storage

// Package storage provides the run journal used by the executor.
//
// It currently supports:
//   - Appending one record per completed execution
//   - Reading back recent runs for diagnostics
