// Package feed simulates multi-viewer visibility for a single-session store:
// it re-reads both collections on a fixed cadence and fans a refresh snapshot
// out to subscribers. The cadence is the documented staleness bound; this is
// polling, not a change subscription.
package feed

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"hostelpass.org/internal/store"
)

// Snapshot tells subscribers what the store held at one poll tick. Clients
// re-fetch their role-filtered views through the API when counts move.
type Snapshot struct {
	At            time.Time `json:"at"`
	Passes        int       `json:"passes"`
	Notifications int       `json:"notifications"`
}

// Feed fan-outs poll snapshots to all active subscribers (SSE clients).
type Feed struct {
	mu   sync.RWMutex
	subs map[int]chan Snapshot
	next int
}

func New() *Feed {
	return &Feed{subs: make(map[int]chan Snapshot)}
}

// Subscribe registers a subscriber and returns a channel receiving snapshots.
// The channel is closed when the provided context ends.
func (f *Feed) Subscribe(ctx context.Context) <-chan Snapshot {
	ch := make(chan Snapshot, 16)

	f.mu.Lock()
	id := f.next
	f.next++
	f.subs[id] = ch
	f.mu.Unlock()

	go func() {
		<-ctx.Done()
		f.mu.Lock()
		delete(f.subs, id)
		close(ch)
		f.mu.Unlock()
	}()

	return ch
}

// Publish fan-outs the snapshot to all subscribers.
func (f *Feed) Publish(s Snapshot) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	for _, ch := range f.subs {
		select {
		case ch <- s:
		default:
			// Drop when a subscriber is slow to avoid blocking the poller.
		}
	}
}

// Poll reads both collections once. Read errors degrade to zero counts
// rather than stopping the ticker.
func Poll(ctx context.Context, s store.Store) Snapshot {
	snap := Snapshot{At: time.Now().UTC()}
	if records, err := store.Load[json.RawMessage](ctx, s, store.Passes); err == nil {
		snap.Passes = len(records)
	}
	if records, err := store.Load[json.RawMessage](ctx, s, store.Notifications); err == nil {
		snap.Notifications = len(records)
	}
	return snap
}

// Start polls the store at the given interval until the returned stop
// function is called.
func (f *Feed) Start(s store.Store, interval time.Duration) func() {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				f.Publish(Poll(ctx, s))
			}
		}
	}()
	return cancel
}
