package websocket

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	gorillaws "github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/nfrund/smartshop/internal/pubsub"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testTopic = "market.price"

type testFixture struct {
	bridge *Bridge
	bus    *pubsub.WatermillBridge
	server *httptest.Server
	ctx    context.Context
	cancel context.CancelFunc
}

func setupTestFixture(t *testing.T, opts ...Option) *testFixture {
	t.Helper()

	bus := pubsub.NewWatermillBridge()
	bridge := NewBridge(bus, opts...)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, bridge.Start(ctx, testTopic, "market.purchase"))

	e := echo.New()
	e.GET("/ws/market", bridge.Handler())
	server := httptest.NewServer(e)

	t.Cleanup(func() {
		cancel()
		server.Close()
		bus.Close()
	})
	return &testFixture{bridge: bridge, bus: bus, server: server, ctx: ctx, cancel: cancel}
}

func connectTestClient(t *testing.T, f *testFixture) *gorillaws.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(f.server.URL, "http") + "/ws/market"
	conn, _, err := gorillaws.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readMessage(t *testing.T, conn *gorillaws.Conn) Message {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var msg Message
	require.NoError(t, json.Unmarshal(data, &msg))
	return msg
}

func TestBridge_FansOutToEveryClient(t *testing.T) {
	f := setupTestFixture(t)
	first := connectTestClient(t, f)
	second := connectTestClient(t, f)
	require.Eventually(t, func() bool { return f.bridge.ClientCount() == 2 }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, f.bus.Publish(f.ctx, pubsub.Message{
		Topic:   testTopic,
		Payload: []byte(`{"product_id":4,"price":4200,"stock":19}`),
	}))

	for _, conn := range []*gorillaws.Conn{first, second} {
		msg := readMessage(t, conn)
		assert.Equal(t, testTopic, msg.Type)
		assert.JSONEq(t, `{"product_id":4,"price":4200,"stock":19}`, string(msg.Payload))
	}
}

func TestBridge_ForwardsEveryTopic(t *testing.T) {
	f := setupTestFixture(t)
	conn := connectTestClient(t, f)
	require.Eventually(t, func() bool { return f.bridge.ClientCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, f.bus.Publish(f.ctx, pubsub.Message{Topic: "market.purchase", Payload: []byte(`{"user_id":1}`)}))
	msg := readMessage(t, conn)
	assert.Equal(t, "market.purchase", msg.Type)

	require.NoError(t, f.bus.Publish(f.ctx, pubsub.Message{Topic: "market.other", Payload: []byte(`{}`)}))
	require.NoError(t, f.bus.Publish(f.ctx, pubsub.Message{Topic: testTopic, Payload: []byte(`{"price":1}`)}))
	msg = readMessage(t, conn)
	assert.Equal(t, testTopic, msg.Type, "unsubscribed topics are not forwarded")
}

func TestBridge_ClientDisconnectUnregisters(t *testing.T) {
	f := setupTestFixture(t)
	conn := connectTestClient(t, f)
	require.Eventually(t, func() bool { return f.bridge.ClientCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, conn.WriteMessage(gorillaws.CloseMessage,
		gorillaws.FormatCloseMessage(gorillaws.CloseNormalClosure, "bye")))
	conn.Close()

	assert.Eventually(t, func() bool { return f.bridge.ClientCount() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestBridge_ShutdownClosesClients(t *testing.T) {
	f := setupTestFixture(t)
	conn := connectTestClient(t, f)
	require.Eventually(t, func() bool { return f.bridge.ClientCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	f.cancel()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := conn.ReadMessage()
	require.Error(t, err)
	assert.True(t, gorillaws.IsCloseError(err, gorillaws.CloseGoingAway), "got %v", err)
}

func TestBridge_DropsSlowClients(t *testing.T) {
	b := NewBridge(pubsub.NewWatermillBridge(), WithBufferSize(1))
	slow := newClient("slow", 0, nil, 1)
	b.manager.Add(slow)

	b.Broadcast([]byte(`{"type":"a"}`))
	assert.Equal(t, 1, b.ClientCount(), "first frame fits the buffer")

	b.Broadcast([]byte(`{"type":"b"}`))
	assert.Equal(t, 0, b.ClientCount())

	status, reason := slow.closeFrame()
	assert.EqualValues(t, gorillaws.ClosePolicyViolation, status)
	assert.Equal(t, "connection too slow", reason)
	assert.False(t, slow.SendMessage([]byte("late")), "closed clients accept nothing")
}

func TestBridge_StartRequiresTopics(t *testing.T) {
	b := NewBridge(pubsub.NewWatermillBridge())
	assert.Error(t, b.Start(context.Background()))
}

func TestNewMessage(t *testing.T) {
	tests := []struct {
		name    string
		payload []byte
		want    string
	}{
		{name: "json object", payload: []byte(`{"price":1}`), want: `{"type":"t","payload":{"price":1}}`},
		{name: "plain text", payload: []byte("sold out"), want: `{"type":"t","payload":"sold out"}`},
		{name: "empty", payload: nil, want: `{"type":"t","payload":null}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			frame, err := NewMessage("t", tt.payload).Encode()
			require.NoError(t, err)
			assert.JSONEq(t, tt.want, string(frame))
		})
	}
}
