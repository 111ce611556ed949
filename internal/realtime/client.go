package realtime

import "sync"

// Client is one live connection as seen by the gateway. The transport drains
// Outbox and calls Gateway.Disconnect when the peer goes away.
type Client struct {
	ID string
	// AuthUser is the identity proven at connect time; empty for anonymous connections.
	AuthUser string

	mu     sync.Mutex
	closed bool
	send   chan []byte
	done   chan struct{}
}

func newClient(id, authUser string, buffer int) *Client {
	return &Client{
		ID:       id,
		AuthUser: authUser,
		send:     make(chan []byte, buffer),
		done:     make(chan struct{}),
	}
}

// enqueue never blocks. It reports false when the client is closed or its queue is full.
func (c *Client) enqueue(frame []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- frame:
		return true
	default:
		return false
	}
}

func (c *Client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.done)
	}
}

func (c *Client) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *Client) Outbox() <-chan []byte { return c.send }

// Done is closed once the gateway stops serving the client.
func (c *Client) Done() <-chan struct{} { return c.done }
