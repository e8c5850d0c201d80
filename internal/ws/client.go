package ws

import (
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	// writeWait is how long a single write may take
	writeWait = 10 * time.Second

	// pongWait is how long to wait for a pong before assuming the
	// connection is dead
	pongWait = 60 * time.Second

	// pingPeriod must be shorter than pongWait
	pingPeriod = (pongWait * 9) / 10

	// maxMessageSize bounds inbound frames; protocol messages are tiny
	maxMessageSize = 4096

	// sendBufferSize is the per-connection outbound queue
	sendBufferSize = 64
)

// Client is one websocket connection. Its ID is the server-assigned
// connection identity, invalidated on every reconnect.
type Client struct {
	ID string

	conn *websocket.Conn
	// send is never closed: concurrent deliveries may be in flight when the
	// connection goes away. The write pump is stopped through done instead.
	send     chan []byte
	done     chan struct{}
	doneOnce sync.Once
	logger   *slog.Logger
}

// NewClient wraps an upgraded connection
func NewClient(id string, conn *websocket.Conn, logger *slog.Logger) *Client {
	return &Client{
		ID:     id,
		conn:   conn,
		send:   make(chan []byte, sendBufferSize),
		done:   make(chan struct{}),
		logger: logger.With(slog.String("connection", id)),
	}
}

// shutdown signals the write pump to exit. Safe to call more than once.
func (c *Client) shutdown() {
	c.doneOnce.Do(func() { close(c.done) })
}

// readPump reads inbound frames and hands them to onMessage until the
// connection drops. It runs on the handler's goroutine; when it returns the
// connection is gone.
func (c *Client) readPump(onMessage func(data []byte)) {
	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Warn("connection read error", slog.Any("error", err))
			}
			return
		}
		onMessage(data)
	}
}

// writePump drains the send queue onto the socket and keeps the connection
// alive with pings. Runs on its own goroutine; exits when shutdown is
// signalled or a write fails.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
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

		case data := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
