// Package registry tracks the single live real-time channel of each online
// user. It is the one shared mutable structure touched by concurrent flows
// (delivery vs. connect/disconnect), so every transition happens under the
// lock as an atomic replace-or-insert; there is no check-then-assign window.
package registry

import "sync"

// Channel is a live outbound delivery handle for a connected user. Send must
// not block indefinitely: a slow consumer is reported as an error so the
// registry can evict it.
type Channel interface {
	Send(payload []byte) error
	Close() error
}

// Registry maps each user ID to at most one live channel.
type Registry struct {
	mu    sync.Mutex
	conns map[string]Channel
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{conns: make(map[string]Channel)}
}

// Connect registers ch as the sole live channel for userID. A previously
// registered channel is superseded and closed; last connect wins.
func (r *Registry) Connect(userID string, ch Channel) {
	r.mu.Lock()
	old := r.conns[userID]
	r.conns[userID] = ch
	r.mu.Unlock()

	if old != nil && old != ch {
		old.Close()
	}
}

// Disconnect removes the entry only if ch still owns it, so a stale
// disconnect cannot evict a newer connection.
func (r *Registry) Disconnect(userID string, ch Channel) {
	r.mu.Lock()
	if r.conns[userID] == ch {
		delete(r.conns, userID)
	}
	r.mu.Unlock()
}

// Push delivers payload to the user's live channel, best effort. It returns
// false when the user has no channel or the write fails; a failed write is
// treated as a disconnect. The channel write itself happens outside the lock
// so one slow consumer cannot stall delivery to other users.
func (r *Registry) Push(userID string, payload []byte) bool {
	r.mu.Lock()
	ch := r.conns[userID]
	r.mu.Unlock()

	if ch == nil {
		return false
	}

	if err := ch.Send(payload); err != nil {
		r.mu.Lock()
		if r.conns[userID] == ch {
			delete(r.conns, userID)
		}
		r.mu.Unlock()
		ch.Close()
		return false
	}
	return true
}
