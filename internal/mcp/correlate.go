package mcp

import (
	"fmt"
	"sync"
)

// Table correlates outstanding request ids with their eventual responses.
// Any party that sends a request and must await the matching reply registers
// the id first, then blocks on the returned channel until another goroutine
// resolves or expires it.
type Table struct {
	mu      sync.Mutex
	pending map[string]chan Response
}

// NewTable creates an empty correlation table.
func NewTable() *Table {
	return &Table{pending: make(map[string]chan Response)}
}

// Register reserves id and returns the channel its response will arrive on.
// Registering an id that is already outstanding is an error.
func (t *Table) Register(id string) (<-chan Response, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, exists := t.pending[id]; exists {
		return nil, fmt.Errorf("request id %q already registered", id)
	}
	ch := make(chan Response, 1)
	t.pending[id] = ch
	return ch, nil
}

// Resolve completes the wait for id and removes the entry. Resolving an id
// that is not registered (already completed, expired, or never existed) is a
// safe no-op: a late handler must not disturb anything.
func (t *Table) Resolve(id string, resp Response) {
	t.mu.Lock()
	ch, ok := t.pending[id]
	if ok {
		delete(t.pending, id)
	}
	t.mu.Unlock()
	if ok {
		ch <- resp
	}
}

// Expire abandons the wait for id and removes the entry. The waiter's channel
// is closed so a blocked receive observes the zero Response. Expiring an
// unregistered id is a no-op.
func (t *Table) Expire(id string) {
	t.mu.Lock()
	ch, ok := t.pending[id]
	if ok {
		delete(t.pending, id)
	}
	t.mu.Unlock()
	if ok {
		close(ch)
	}
}

// ExpireAll abandons every outstanding wait. Used when the response stream
// itself is gone and no registered id can ever be resolved.
func (t *Table) ExpireAll() {
	t.mu.Lock()
	channels := make([]chan Response, 0, len(t.pending))
	for id, ch := range t.pending {
		channels = append(channels, ch)
		delete(t.pending, id)
	}
	t.mu.Unlock()
	for _, ch := range channels {
		close(ch)
	}
}

// Outstanding returns the number of registered ids awaiting resolution.
func (t *Table) Outstanding() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.pending)
}
