// Package realtime pushes messages to users' live socket connections.
package realtime

import "sync"

// Channel is one live connection a user can be reached on. A socket.io
// connection satisfies it directly.
type Channel interface {
	ID() string
	Emit(event string, v ...interface{})
}

// Hub maps a user id to the channels currently registered for it. A user
// may hold many channels at once; registering one never replaces another.
type Hub struct {
	mu       sync.RWMutex
	channels map[uint64]map[string]Channel
}

func NewHub() *Hub {
	return &Hub{channels: make(map[uint64]map[string]Channel)}
}

// Register adds ch under userID.
func (h *Hub) Register(userID uint64, ch Channel) {
	h.mu.Lock()
	defer h.mu.Unlock()

	set, ok := h.channels[userID]
	if !ok {
		set = make(map[string]Channel)
		h.channels[userID] = set
	}
	set[ch.ID()] = ch
}

// Deregister removes one channel of userID and reports whether it was there.
func (h *Hub) Deregister(userID uint64, channelID string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	set, ok := h.channels[userID]
	if !ok {
		return false
	}
	if _, ok := set[channelID]; !ok {
		return false
	}
	delete(set, channelID)
	if len(set) == 0 {
		delete(h.channels, userID)
	}
	return true
}

// Channels returns a snapshot of userID's channels, safe to emit on without
// holding the lock.
func (h *Hub) Channels(userID uint64) []Channel {
	h.mu.RLock()
	defer h.mu.RUnlock()

	set := h.channels[userID]
	out := make([]Channel, 0, len(set))
	for _, ch := range set {
		out = append(out, ch)
	}
	return out
}

// Len counts every registered channel.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	n := 0
	for _, set := range h.channels {
		n += len(set)
	}
	return n
}
