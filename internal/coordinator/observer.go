package coordinator

import "time"

// Observer receives cycle lifecycle events. CycleStarted is called with the
// coordinator's lock held, in cycle order, and must not call back into the
// coordinator. The other events come from the goroutine that ran the cycle,
// outside the lock.
type Observer interface {
	CycleStarted(cycle uint64, trigger Trigger)
	CycleSettled(snap Snapshot, elapsed time.Duration)
	CycleFailed(cycle uint64, err error)
	CycleDiscarded(cycle uint64)
}

// Observers fans events out to each observer in order.
type Observers []Observer

func (o Observers) CycleStarted(cycle uint64, trigger Trigger) {
	for _, obs := range o {
		obs.CycleStarted(cycle, trigger)
	}
}

func (o Observers) CycleSettled(snap Snapshot, elapsed time.Duration) {
	for _, obs := range o {
		obs.CycleSettled(snap, elapsed)
	}
}

func (o Observers) CycleFailed(cycle uint64, err error) {
	for _, obs := range o {
		obs.CycleFailed(cycle, err)
	}
}

func (o Observers) CycleDiscarded(cycle uint64) {
	for _, obs := range o {
		obs.CycleDiscarded(cycle)
	}
}
