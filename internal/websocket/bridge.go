// Package websocket streams market events to browser clients. The Bridge
// subscribes to bus topics and fans every message out to all connected
// clients as a {type, payload} JSON frame.
package websocket

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/nfrund/smartshop/internal/middleware"
	"github.com/nfrund/smartshop/internal/pubsub"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second
	// Default number of queued frames per client before it counts as slow.
	defaultBufferSize = 64
)

// Option configures a Bridge.
type Option func(*Bridge)

// WithBufferSize sets how many frames may queue for one client before it is
// dropped.
func WithBufferSize(n int) Option {
	return func(b *Bridge) {
		if n > 0 {
			b.bufferSize = n
		}
	}
}

// WithOriginPatterns restricts the origins allowed to connect. Without it
// every origin is accepted, matching the API's open CORS policy.
func WithOriginPatterns(patterns ...string) Option {
	return func(b *Bridge) { b.originPatterns = patterns }
}

// Bridge fans bus messages out to every connected WebSocket client.
type Bridge struct {
	subscriber     pubsub.Subscriber
	manager        *ClientManager
	bufferSize     int
	originPatterns []string
	done           chan struct{}
}

// NewBridge creates a bridge reading from sub.
func NewBridge(sub pubsub.Subscriber, opts ...Option) *Bridge {
	b := &Bridge{
		subscriber: sub,
		manager:    NewClientManager(),
		bufferSize: defaultBufferSize,
		done:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Start subscribes to the given topics. When ctx is canceled every client is
// disconnected.
func (b *Bridge) Start(ctx context.Context, topics ...string) error {
	if len(topics) == 0 {
		return errors.New("websocket bridge needs at least one topic")
	}
	for _, topic := range topics {
		if err := b.subscriber.Subscribe(ctx, topic, b.handleBusMessage); err != nil {
			return err
		}
	}
	slog.Info("WebSocket bridge started", "event", "ws_bridge_started", "topics", topics)

	go func() {
		<-ctx.Done()
		close(b.done)
		for _, client := range b.manager.GetAll() {
			b.drop(client, websocket.StatusGoingAway, "server shutting down")
		}
	}()
	return nil
}

func (b *Bridge) handleBusMessage(_ context.Context, msg pubsub.Message) error {
	frame, err := NewMessage(msg.Topic, msg.Payload).Encode()
	if err != nil {
		return err
	}
	b.Broadcast(frame)
	return nil
}

// Broadcast queues frame for every client. Clients whose buffer is full are
// disconnected.
func (b *Bridge) Broadcast(frame []byte) {
	for _, client := range b.manager.GetAll() {
		if !client.SendMessage(frame) {
			slog.Warn("Client send buffer full, dropping connection", "event", "ws_client_dropped", "client_id", client.ID)
			b.drop(client, websocket.StatusPolicyViolation, "connection too slow")
		}
	}
}

// ClientCount returns the number of connected clients.
func (b *Bridge) ClientCount() int {
	return b.manager.Count()
}

func (b *Bridge) drop(client *Client, status websocket.StatusCode, reason string) {
	if b.manager.Remove(client.ID) != nil {
		client.Close(status, reason)
	}
}

// Handler returns an echo.HandlerFunc that upgrades the request and streams
// events until the client goes away. A session user, when present, is
// recorded on the client for logging.
func (b *Bridge) Handler() echo.HandlerFunc {
	return func(c echo.Context) error {
		select {
		case <-b.done:
			return c.JSON(http.StatusServiceUnavailable, map[string]string{"error": "Shutting down"})
		default:
		}

		userID, _, _ := middleware.CurrentUser(c)

		conn, err := websocket.Accept(c.Response(), c.Request(), &websocket.AcceptOptions{
			InsecureSkipVerify: len(b.originPatterns) == 0,
			OriginPatterns:     b.originPatterns,
		})
		if err != nil {
			// Accept has already written the error response.
			middleware.FromContext(c.Request().Context()).Warn("Failed to upgrade connection to WebSocket", "event", "ws_upgrade_failure", "error", err)
			return nil
		}

		client := newClient(uuid.NewString(), userID, conn, b.bufferSize)
		b.manager.Add(client)
		slog.Info("Client connected", "event", "ws_client_connected", "client_id", client.ID, "user_id", client.UserID)

		// Clients only listen; CloseRead discards their frames and cancels
		// ctx once the connection closes.
		ctx := conn.CloseRead(context.Background())
		b.writePump(ctx, client)

		b.drop(client, websocket.StatusNormalClosure, "")
		slog.Info("Client disconnected", "event", "ws_client_disconnected", "client_id", client.ID)
		return nil
	}
}

// writePump sends queued frames until the client is closed or the peer goes
// away.
func (b *Bridge) writePump(ctx context.Context, client *Client) {
	for {
		select {
		case <-ctx.Done():
			client.conn.CloseNow()
			return

		case frame, ok := <-client.send:
			if !ok {
				status, reason := client.closeFrame()
				client.conn.Close(status, reason)
				return
			}
			writeCtx, cancel := context.WithTimeout(ctx, writeWait)
			err := client.conn.Write(writeCtx, websocket.MessageText, frame)
			cancel()
			if err != nil {
				slog.Warn("WebSocket write error", "event", "ws_write_failure", "client_id", client.ID, "error", err)
				client.conn.CloseNow()
				return
			}
		}
	}
}
