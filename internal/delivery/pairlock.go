package delivery

import (
	"sync"
	"time"
)

// Pairs are long-lived but only a handful are active at once, so idle lock
// entries are swept once the table grows past this size.
const (
	pairLockSweepThreshold = 256
	pairLockMaxIdle        = time.Minute
)

type pairEntry struct {
	mu       sync.Mutex
	refs     int
	lastUsed time.Time
}

// PairLocks serializes coalescing decisions per ordered (sender, receiver)
// pair. Different pairs proceed independently.
type PairLocks struct {
	mu      sync.Mutex
	entries map[string]*pairEntry
	now     func() time.Time
}

// NewPairLocks constructs an empty lock table.
func NewPairLocks() *PairLocks {
	return &PairLocks{entries: make(map[string]*pairEntry), now: time.Now}
}

// Lock acquires the lock for the ordered pair and returns its release
// function.
func (p *PairLocks) Lock(senderID, receiverID string) func() {
	key := senderID + "\x00" + receiverID

	p.mu.Lock()
	entry, ok := p.entries[key]
	if !ok {
		entry = &pairEntry{}
		p.entries[key] = entry
	}
	entry.refs++
	p.mu.Unlock()

	entry.mu.Lock()
	return func() {
		entry.mu.Unlock()

		p.mu.Lock()
		entry.refs--
		entry.lastUsed = p.now()
		if len(p.entries) > pairLockSweepThreshold {
			p.sweepLocked()
		}
		p.mu.Unlock()
	}
}

// sweepLocked drops idle unreferenced entries. Callers hold p.mu.
func (p *PairLocks) sweepLocked() {
	cutoff := p.now().Add(-pairLockMaxIdle)
	for key, entry := range p.entries {
		if entry.refs == 0 && entry.lastUsed.Before(cutoff) {
			delete(p.entries, key)
		}
	}
}
