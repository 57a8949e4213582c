package socket

import (
	"time"

	"github.com/gorilla/websocket"
)

const (
	defaultPingInterval   = 30 * time.Second
	defaultPongTimeout    = 10 * time.Second
	defaultMaxMessageSize = 64 * 1024
	writeWait             = 10 * time.Second
)

// client is one WebSocket connection with a buffered outbound queue.
// All writes go through the send channel so that writePump is the only
// goroutine touching the connection's write side.
type client struct {
	id   string
	srv  *Server
	conn *websocket.Conn
	send chan []byte
}

// trySend queues a payload without blocking. A slow client whose buffer is
// full loses the frame; it will resynchronize from the next full snapshot.
// Recover covers the race where unregister closes the channel while a
// broadcast is in flight.
func (c *client) trySend(payload []byte) {
	defer func() {
		if r := recover(); r != nil {
			c.srv.logger.Debug("send to closed client", "client_id", c.id)
		}
	}()

	select {
	case c.send <- payload:
	default:
		c.srv.logger.Warn("client send buffer full, dropping frame", "client_id", c.id)
	}
}

// readPump reads inbound frames until the connection fails or closes, then
// unregisters the client. Runs in the connection's handler goroutine.
func (c *client) readPump() {
	defer func() {
		c.srv.unregister(c)
		c.conn.Close()
	}()

	maxSize := c.srv.cfg.MaxMessageSize
	if maxSize <= 0 {
		maxSize = defaultMaxMessageSize
	}
	c.conn.SetReadLimit(int64(maxSize))

	readWait := c.pingInterval() + c.pongTimeout()
	_ = c.conn.SetReadDeadline(time.Now().Add(readWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(readWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.srv.logger.Debug("client read error", "client_id", c.id, "error", err)
			}
			return
		}
		c.srv.notifyMessage(c.id, data)
	}
}

// writePump drains the send channel onto the wire and keeps the connection
// alive with periodic pings. Exits when the send channel closes.
func (c *client) writePump() {
	ticker := time.NewTicker(c.pingInterval())
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case payload, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
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

func (c *client) pingInterval() time.Duration {
	if c.srv.cfg.PingInterval > 0 {
		return time.Duration(c.srv.cfg.PingInterval) * time.Second
	}
	return defaultPingInterval
}

func (c *client) pongTimeout() time.Duration {
	if c.srv.cfg.PongTimeout > 0 {
		return time.Duration(c.srv.cfg.PongTimeout) * time.Second
	}
	return defaultPongTimeout
}
