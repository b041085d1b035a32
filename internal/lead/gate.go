package lead

import "sync/atomic"

// Gate is the single "session active" flag shared between the input loop and
// the lead loop. The zero value is an open gate.
type Gate struct {
	active atomic.Bool
}

// TryAcquire closes the gate and reports true if it was open.
func (g *Gate) TryAcquire() bool {
	return g.active.CompareAndSwap(false, true)
}

// Release opens the gate.
func (g *Gate) Release() {
	g.active.Store(false)
}

// Active reports whether a session holds the gate.
func (g *Gate) Active() bool {
	return g.active.Load()
}
