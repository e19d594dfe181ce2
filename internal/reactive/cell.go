// Package reactive provides a minimal observable state cell used by the
// board stores and the sync coordinator. A Cell holds the latest value,
// replays it to new subscribers, and conflates updates so a slow subscriber
// only ever sees the most recent state, never a backlog of intermediates.
package reactive

import (
	"context"
	"sync"
)

// Cell is a last-value broadcast cell.
//
// Delivery contract:
//   - Subscribe replays the latest value immediately if one has been set.
//   - Each subscriber channel has capacity 1; when a subscriber lags, older
//     pending values are replaced by newer ones (latest-wins).
//   - Subscriptions end when their context is canceled.
type Cell[T any] struct {
	mu     sync.Mutex
	value  T
	set    bool
	subs   map[uint64]chan T
	nextID uint64
}

// NewCell creates an empty cell.
func NewCell[T any]() *Cell[T] {
	return &Cell[T]{subs: make(map[uint64]chan T)}
}

// Set stores a new value and broadcasts it to all subscribers.
func (c *Cell[T]) Set(v T) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.value = v
	c.set = true

	for _, ch := range c.subs {
		// Conflate: drop the stale pending value, keep the newest.
		select {
		case <-ch:
		default:
		}
		ch <- v
	}
}

// Get returns the latest value and whether one has been set.
func (c *Cell[T]) Get() (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.value, c.set
}

// Subscribe registers a new subscriber. The returned channel receives the
// current value (if any) followed by every subsequent update, conflated.
// The subscription is released when ctx is canceled.
func (c *Cell[T]) Subscribe(ctx context.Context) <-chan T {
	ch := make(chan T, 1)

	c.mu.Lock()
	id := c.nextID
	c.nextID++
	c.subs[id] = ch
	if c.set {
		ch <- c.value
	}
	c.mu.Unlock()

	go func() {
		<-ctx.Done()
		c.mu.Lock()
		delete(c.subs, id)
		c.mu.Unlock()
	}()

	return ch
}

// SubscriberCount returns the number of active subscriptions.
func (c *Cell[T]) SubscriberCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.subs)
}
