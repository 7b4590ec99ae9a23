// Package liveness discards asynchronous results that arrive after their
// issuer was closed or superseded.
package liveness

import "sync"

// Ticket identifies one issued operation.
type Ticket uint64

// Guard hands out tickets. Only the most recent ticket of an open guard is current.
type Guard struct {
	mu     sync.Mutex
	latest Ticket
	closed bool
}

// Begin issues a new ticket, superseding any earlier one.
func (g *Guard) Begin() Ticket {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.latest++
	return g.latest
}

// Current reports whether t is still the latest ticket and the guard is open.
func (g *Guard) Current(t Ticket) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return !g.closed && t == g.latest
}

// Close invalidates every ticket, issued or future.
func (g *Guard) Close() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.closed = true
}

// Closed reports whether Close was called.
func (g *Guard) Closed() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.closed
}
