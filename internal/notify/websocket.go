package notify

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const writeTimeout = 10 * time.Second

// WebSocketChannel adapts one gorilla/websocket connection to the Channel
// contract. Writes are serialized with a mutex because the underlying
// connection permits only one concurrent writer.
type WebSocketChannel struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

// NewWebSocketChannel wraps an upgraded connection.
func NewWebSocketChannel(conn *websocket.Conn) *WebSocketChannel {
	return &WebSocketChannel{conn: conn}
}

var _ Channel = (*WebSocketChannel)(nil)

// Send writes the event as a single JSON message with a bounded deadline so
// one stalled client cannot wedge a fan-out.
func (c *WebSocketChannel) Send(event Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
		return err
	}
	return c.conn.WriteJSON(event)
}

// Close tears down the underlying connection.
func (c *WebSocketChannel) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	return c.conn.Close()
}
