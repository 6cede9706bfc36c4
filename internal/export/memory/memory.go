// Package memory is an in-memory snapshot writer for tests and local runs
// without Google credentials.
package memory

import (
	"context"
	"sync"

	"tally/internal/export"
)

type Writer struct {
	mu        sync.Mutex
	snapshots []export.MonthlySnapshot
}

var _ export.SnapshotWriter = (*Writer)(nil)

func New() *Writer {
	return &Writer{}
}

func (w *Writer) AppendSnapshot(_ context.Context, snap export.MonthlySnapshot) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.snapshots = append(w.snapshots, snap)
	return nil
}

// Snapshots returns a copy of everything appended so far.
func (w *Writer) Snapshots() []export.MonthlySnapshot {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]export.MonthlySnapshot, len(w.snapshots))
	copy(out, w.snapshots)
	return out
}
