package httpapi

import (
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"chasehome/internal/observability"
	"chasehome/internal/protocol"
)

const writeWait = 10 * time.Second

var (
	errChannelClosed  = errors.New("channel closed")
	errSendBufferFull = errors.New("send buffer full")
)

// wsClient adapts one websocket connection into a delivery channel. All
// writes to the connection go through a single writer goroutine; Send only
// enqueues and never blocks on the network.
type wsClient struct {
	conn     *websocket.Conn
	outbound chan protocol.ServerMessage
	done     chan struct{}
	once     sync.Once
	ping     time.Duration
	metrics  *observability.Metrics
}

func newWSClient(conn *websocket.Conn, ping time.Duration, metrics *observability.Metrics) *wsClient {
	return &wsClient{
		conn:     conn,
		outbound: make(chan protocol.ServerMessage, 256),
		done:     make(chan struct{}),
		ping:     ping,
		metrics:  metrics,
	}
}

func (c *wsClient) Send(v any) error {
	msg, ok := v.(protocol.ServerMessage)
	if !ok {
		return errors.New("unsupported payload")
	}
	select {
	case <-c.done:
		return errChannelClosed
	case c.outbound <- msg:
		return nil
	default:
		return errSendBufferFull
	}
}

func (c *wsClient) Close() {
	c.once.Do(func() { close(c.done) })
}

func (c *wsClient) sendError(code, message string) {
	_ = c.Send(protocol.ServerMessage{
		Event: protocol.EventError,
		Data:  protocol.ErrorData{Code: code, Message: message},
	})
}

// writeLoop drains the outbound queue and keeps the connection alive with
// periodic pings. It owns the connection close, which in turn unblocks the
// read loop.
func (c *wsClient) writeLoop() {
	ticker := time.NewTicker(c.ping)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case <-c.done:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		case msg := <-c.outbound:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(msg); err != nil {
				return
			}
			if c.metrics != nil {
				c.metrics.WSMessages.WithLabelValues("outbound", string(msg.Event)).Inc()
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
