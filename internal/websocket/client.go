package websocket

import (
	"sync"

	"github.com/coder/websocket"
)

// Client represents a single connected WebSocket client.
type Client struct {
	ID     string
	UserID int64
	conn   *websocket.Conn
	send   chan []byte

	mu          sync.RWMutex
	closed      bool
	closeStatus websocket.StatusCode
	closeReason string
}

func newClient(id string, userID int64, conn *websocket.Conn, buffer int) *Client {
	return &Client{
		ID:     id,
		UserID: userID,
		conn:   conn,
		send:   make(chan []byte, buffer),
	}
}

// SendMessage queues msg for the client. It reports false when the client is
// closed or its buffer is full.
func (c *Client) SendMessage(msg []byte) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.closed {
		return false
	}
	select {
	case c.send <- msg:
		return true
	default:
		return false
	}
}

// Close stops the client's write loop. The status and reason are sent to the
// peer in the close frame. Only the first call has an effect.
func (c *Client) Close(status websocket.StatusCode, reason string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.closed = true
	c.closeStatus = status
	c.closeReason = reason
	close(c.send)
}

func (c *Client) closeFrame() (websocket.StatusCode, string) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.closeStatus, c.closeReason
}
