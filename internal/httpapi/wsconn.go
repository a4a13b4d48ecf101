package httpapi

import (
	"context"
	"sync"

	"nhooyr.io/websocket"
)

// wsConn adapts a websocket connection to the stream.Conn interface. Writes
// are serialized; the registry may emit to the same connection from the
// workflow goroutine and the replay goroutine during handover.
type wsConn struct {
	mu sync.Mutex
	ws *websocket.Conn
}

func newWSConn(ws *websocket.Conn) *wsConn {
	return &wsConn{ws: ws}
}

func (c *wsConn) Send(ctx context.Context, payload []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ws.Write(ctx, websocket.MessageText, payload)
}

func (c *wsConn) Close() error {
	return c.ws.Close(websocket.StatusNormalClosure, "")
}
