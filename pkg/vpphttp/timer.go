package vpphttp

import "time"

// TimerWheel drives the two-phase inactivity timer design (spec §4.4,
// §9). It does no internal ticking of its own: per spec §5's
// single-worker-per-connection scheduling model, a WorkerPool and the
// connections inside it are only ever touched by their owning worker,
// so Sweep is meant to be called from that worker's own event loop
// (e.g. once per poll iteration) rather than from an independent
// goroutine that would otherwise race the worker over the same slots.
type TimerWheel struct {
	pool   *WorkerPool
	onFire func(h Handle)
}

// InactivityTimer is the per-connection timer state a Connection holds
// (spec §3: "inactivity timer handle, pending-timer flag, configured
// timeout seconds").
type InactivityTimer struct {
	deadlineNS int64 // monotonicNow() value at which this timer expires; 0 = disarmed
}

// NewTimerWheel creates a wheel bound to pool, invoking onFire for
// every connection whose deadline has passed on a Sweep call. pool is
// the owning worker's WorkerPool.
func NewTimerWheel(pool *WorkerPool, onFire func(h Handle)) *TimerWheel {
	return &TimerWheel{pool: pool, onFire: onFire}
}

// Arm (re)sets the deadline for t to now + timeout (spec §3: "started
// at accept/connected, updated on every successful state-machine
// pass").
func (t *InactivityTimer) Arm(timeout time.Duration) {
	t.deadlineNS = monotonicNow() + int64(timeout)
}

// Expired reports whether t's deadline has passed as of now.
func (t *InactivityTimer) Expired(now int64) bool {
	return t.deadlineNS != 0 && now >= t.deadlineNS
}

// Disarm clears the deadline so a subsequent sweep skips this slot
// (spec §3: "stopped in cleanup unless it has already fired and is
// pending").
func (t *InactivityTimer) Disarm() {
	t.deadlineNS = 0
}

// Sweep scans the owning worker's pool for expired timers, running the
// invalidate phase (mark pending, disarm) and then the timeout phase
// (re-validate through the pool, invoke onFire) for each. Called from
// the worker's own loop, so no locking is required here; the
// re-validation through w.pool.Get is what protects against a slot
// that was freed or recycled by this same worker earlier in the same
// poll iteration, not against concurrent access (spec §9 "Timer
// callbacks and record lifetimes").
func (w *TimerWheel) Sweep() {
	now := monotonicNow()
	for idx := range w.pool.slots {
		conn := w.pool.slots[idx]
		if conn == nil || conn.Timer == nil {
			continue
		}
		if !conn.Timer.Expired(now) {
			continue
		}
		conn.PendingTimer.Store(true)
		conn.Timer.Disarm()

		h := conn.Handle()
		revalidated, ok := w.pool.Get(h)
		if !ok || !revalidated.PendingTimer.Load() {
			continue
		}
		w.onFire(h)
	}
}
