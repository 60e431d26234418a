package exam

import "sync"

// Gate is the submission gate: a mutual-exclusion primitive guaranteeing
// at most one finalize pipeline per session. Each session owns exactly one
// Gate; it is never shared across sessions.
type Gate struct {
	mu        sync.Mutex
	locked    bool
	submitted bool
	mounted   bool
}

// NewGate creates a mounted, unlocked gate.
func NewGate() *Gate {
	return &Gate{mounted: true}
}

// Acquire attempts to win the finalize pipeline. Of any number of
// near-simultaneous callers exactly one gets true; the check and the set
// happen under one lock so no interleaving is possible between them.
// An unmounted gate (session torn down) never grants acquisition.
func (g *Gate) Acquire() bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.mounted || g.locked || g.submitted {
		return false
	}
	g.locked = true
	g.submitted = true
	return true
}

// Release reopens the gate after a failed finalize so the candidate can
// retry. Both flags are reset; the session store's idempotent submit
// guards against double side effects if the failed write partially
// succeeded upstream.
func (g *Gate) Release() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.locked = false
	g.submitted = false
}

// Unmount marks the owning session as torn down. Every subsequent write
// path checks Mounted before mutating state, including in-flight
// asynchronous callbacks resolving after teardown.
func (g *Gate) Unmount() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.mounted = false
}

// Mounted reports whether the owning session is still live.
func (g *Gate) Mounted() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.mounted
}

// Submitted reports whether a finalize pipeline has completed or is running.
func (g *Gate) Submitted() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.submitted
}
