// Package quota serializes access to the external embedding API. The
// upstream limit is 5 requests per minute; the gate conservatively grants
// at most one call every 15 seconds, process-wide, across the scheduled
// pipeline, real-time processing, and search fan-out.
package quota

import (
	"context"
	"log"
	"sync"
	"time"
)

// DefaultInterval keeps us at ≤4 calls/min against the 5 QPM ceiling.
const DefaultInterval = 15 * time.Second

// Gate is a fair FIFO throttle around the embedding API. One instance per
// process, injected into every caller; the last-grant time starts at zero
// so the first acquire proceeds immediately.
type Gate struct {
	interval time.Duration

	mu    sync.Mutex
	held  bool
	queue []chan struct{} // waiters in arrival order
	last  time.Time       // written only by the gate holder
}

// NewGate creates a gate with the given minimum spacing between grants.
func NewGate(interval time.Duration) *Gate {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Gate{interval: interval}
}

// Acquire blocks until at least the configured interval has elapsed since
// the last grant, then records the new grant time. Waiters are served in
// arrival order. If ctx is cancelled while waiting, Acquire returns the
// context error and the caller must abort its operation: proceeding
// without a grant would breach the upstream quota.
func (g *Gate) Acquire(ctx context.Context) error {
	turn := make(chan struct{})

	g.mu.Lock()
	if g.held {
		g.queue = append(g.queue, turn)
		g.mu.Unlock()

		select {
		case <-turn:
		case <-ctx.Done():
			if g.withdraw(turn) {
				return ctx.Err()
			}
			// Our turn was granted concurrently with cancellation; hand
			// the gate to the next waiter without stamping a grant.
			<-turn
			g.release()
			return ctx.Err()
		}
	} else {
		g.held = true
		g.mu.Unlock()
	}

	wait := g.interval - time.Since(g.last)
	if wait > 0 {
		log.Printf("quota: waiting %v for embedding grant", wait.Round(time.Millisecond))
		timer := time.NewTimer(wait)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			g.release()
			return ctx.Err()
		}
	}

	g.last = time.Now()
	g.release()
	return nil
}

// withdraw removes a waiter that has not yet been granted its turn.
// Returns false when the turn was already handed over.
func (g *Gate) withdraw(turn chan struct{}) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	for i, w := range g.queue {
		if w == turn {
			g.queue = append(g.queue[:i], g.queue[i+1:]...)
			return true
		}
	}
	return false
}

// release hands the gate to the oldest waiter, or marks it free.
func (g *Gate) release() {
	g.mu.Lock()
	if len(g.queue) > 0 {
		next := g.queue[0]
		g.queue = g.queue[1:]
		g.mu.Unlock()
		close(next)
		return
	}
	g.held = false
	g.mu.Unlock()
}
