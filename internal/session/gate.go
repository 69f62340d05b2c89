package session

import "sync"

// Gate enforces the single-connection rule: at most one session is active
// system-wide. A second caller gets a busy notice and is closed without
// ever reaching the state machine.
type Gate struct {
	mu   sync.Mutex
	busy bool
}

// NewGate creates an idle gate.
func NewGate() *Gate { return &Gate{} }

// Acquire claims the line. It never blocks; callers reject the
// connection when it returns false.
func (g *Gate) Acquire() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.busy {
		return false
	}
	g.busy = true
	return true
}

// Release frees the line for the next caller.
func (g *Gate) Release() {
	g.mu.Lock()
	g.busy = false
	g.mu.Unlock()
}
