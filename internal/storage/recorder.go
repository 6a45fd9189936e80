package storage

import (
	"context"
	"log/slog"
	"time"

	"github.com/matrixise/amm-tracker/internal/coordinator"
)

const saveTimeout = 5 * time.Second

// Saver persists one snapshot.
type Saver interface {
	SaveSnapshot(ctx context.Context, rec Snapshot) (int64, error)
}

// Recorder saves every settled cycle. It implements coordinator.Observer;
// other events are ignored. Save failures are logged and never affect the
// coordinator.
type Recorder struct {
	saver   Saver
	timeout time.Duration
}

// NewRecorder wraps saver.
func NewRecorder(saver Saver) *Recorder {
	return &Recorder{saver: saver, timeout: saveTimeout}
}

func (r *Recorder) CycleSettled(snap coordinator.Snapshot, _ time.Duration) {
	rec, err := FromSnapshot(snap)
	if err != nil {
		slog.Error("Snapshot not recorded", "cycle", snap.SettledCycle, "error", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	id, err := r.saver.SaveSnapshot(ctx, rec)
	if err != nil {
		slog.Error("Failed to save snapshot", "cycle", snap.SettledCycle, "error", err)
		return
	}
	slog.Debug("Snapshot recorded", "id", id, "cycle", snap.SettledCycle, "amounts", len(rec.Amounts))
}

func (r *Recorder) CycleStarted(uint64, coordinator.Trigger) {}

func (r *Recorder) CycleFailed(uint64, error) {}

func (r *Recorder) CycleDiscarded(uint64) {}
