package pipeline

import (
	"sync"

	"go.uber.org/zap"
)

// Warnings collects non-fatal diagnostics (degenerate faces, livery
// collisions, lenient-parse skips) for the end-of-run report, mirroring
// each one to the logger as it arrives. Safe for concurrent use.
type Warnings struct {
	mu   sync.Mutex
	msgs []string
	log  *zap.Logger
}

// NewWarnings creates a collector. log may be nil.
func NewWarnings(log *zap.Logger) *Warnings {
	return &Warnings{log: log}
}

// Add records one warning.
func (w *Warnings) Add(msg string) {
	w.mu.Lock()
	w.msgs = append(w.msgs, msg)
	w.mu.Unlock()
	if w.log != nil {
		w.log.Warn(msg)
	}
}

// Messages returns the collected warnings in arrival order.
func (w *Warnings) Messages() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]string, len(w.msgs))
	copy(out, w.msgs)
	return out
}

// Count returns the number of collected warnings.
func (w *Warnings) Count() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.msgs)
}
