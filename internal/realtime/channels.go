package realtime

import "sync"

// ChannelHub keeps the per-chat broadcast groups. Membership belongs to the
// connection: a reconnecting client starts with no channels.
type ChannelHub struct {
	mu     sync.RWMutex
	chats  map[string]map[*Client]struct{}
	joined map[*Client]map[string]struct{}
}

func NewChannelHub() *ChannelHub {
	return &ChannelHub{
		chats:  make(map[string]map[*Client]struct{}),
		joined: make(map[*Client]map[string]struct{}),
	}
}

// Join adds c to the chat channel. It reports false if c was already a member.
func (h *ChannelHub) Join(chatID string, c *Client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.chats[chatID] == nil {
		h.chats[chatID] = make(map[*Client]struct{})
	}
	if _, ok := h.chats[chatID][c]; ok {
		return false
	}
	h.chats[chatID][c] = struct{}{}
	if h.joined[c] == nil {
		h.joined[c] = make(map[string]struct{})
	}
	h.joined[c][chatID] = struct{}{}
	return true
}

// LeaveAll removes c from every channel it joined.
func (h *ChannelHub) LeaveAll(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for chatID := range h.joined[c] {
		h.leaveLocked(chatID, c)
	}
	delete(h.joined, c)
}

func (h *ChannelHub) leaveLocked(chatID string, c *Client) {
	if conns, ok := h.chats[chatID]; ok {
		delete(conns, c)
		if len(conns) == 0 {
			delete(h.chats, chatID)
		}
	}
	if chats, ok := h.joined[c]; ok {
		delete(chats, chatID)
	}
}

// Members returns a copy of the chat channel's connections.
func (h *ChannelHub) Members(chatID string) []*Client {
	h.mu.RLock()
	defer h.mu.RUnlock()
	conns := h.chats[chatID]
	out := make([]*Client, 0, len(conns))
	for c := range conns {
		out = append(out, c)
	}
	return out
}

// Len is the number of channels with at least one member.
func (h *ChannelHub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.chats)
}
