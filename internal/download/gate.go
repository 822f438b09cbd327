// Package download serializes external media downloads behind a single
// global permit and charges the per-user download quota around them.
package download

import (
	"context"
	"errors"
	"sync"
)

// ErrUserBusy reports that the user already has a download in flight.
var ErrUserBusy = errors.New("download: user already has a download in flight")

// Gate caps simultaneous downloads at one system-wide and refuses a second
// concurrent download from the same user. Waiters are woken in whatever order
// the runtime picks, ordering is best effort, not FIFO.
type Gate struct {
	permit chan struct{}

	mu     sync.Mutex
	active map[int64]struct{}
}

func NewGate() *Gate {
	return &Gate{
		permit: make(chan struct{}, 1),
		active: make(map[int64]struct{}),
	}
}

// Enter admits userID for one download. A user already mid-download is
// refused immediately with ErrUserBusy; everyone else waits for the single
// global permit or for ctx. The user is marked active only once the permit is
// held, and stays marked for the whole job, not just the queue wait.
func (g *Gate) Enter(ctx context.Context, userID int64) (*Permit, error) {
	g.mu.Lock()
	_, busy := g.active[userID]
	g.mu.Unlock()
	if busy {
		return nil, ErrUserBusy
	}

	select {
	case g.permit <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	g.mu.Lock()
	g.active[userID] = struct{}{}
	g.mu.Unlock()

	return &Permit{gate: g, userID: userID}, nil
}

// IsActive reports whether userID has a download in flight.
func (g *Gate) IsActive(userID int64) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.active[userID]
	return ok
}

// Active returns the users currently mid-download.
func (g *Gate) Active() []int64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	ids := make([]int64, 0, len(g.active))
	for id := range g.active {
		ids = append(ids, id)
	}
	return ids
}

// Permit is the single global download ticket, held from admission until the
// job terminates.
type Permit struct {
	gate    *Gate
	userID  int64
	release sync.Once
}

// Release clears the holder's active mark and frees the permit. Safe to call
// more than once; it must run on every exit path so a failed job cannot wedge
// the gate or strand the user in a falsely busy state.
func (p *Permit) Release() {
	p.release.Do(func() {
		p.gate.mu.Lock()
		delete(p.gate.active, p.userID)
		p.gate.mu.Unlock()
		<-p.gate.permit
	})
}
