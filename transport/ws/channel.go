package ws

import (
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	// sendQueueSize bounds how far a consumer may fall behind before
	// pushes to it start failing.
	sendQueueSize = 16

	// writeWait is the per-frame write deadline.
	writeWait = 10 * time.Second
)

var (
	errChannelClosed = errors.New("channel closed")
	errSlowConsumer  = errors.New("send queue full")
)

// channel adapts a websocket connection to the registry's Channel interface.
// Send only enqueues; a dedicated write loop owns the connection's write
// side, so a slow or broken peer never blocks the caller.
type channel struct {
	conn *websocket.Conn
	send chan []byte
	done chan struct{}
	once sync.Once
}

func newChannel(conn *websocket.Conn) *channel {
	c := &channel{
		conn: conn,
		send: make(chan []byte, sendQueueSize),
		done: make(chan struct{}),
	}
	go c.writeLoop()
	return c
}

// Send enqueues a payload for delivery. A full queue counts as a failed
// write: the registry treats it as a disconnect.
func (c *channel) Send(payload []byte) error {
	select {
	case <-c.done:
		return errChannelClosed
	default:
	}

	select {
	case c.send <- payload:
		return nil
	case <-c.done:
		return errChannelClosed
	default:
		return errSlowConsumer
	}
}

// Close releases the channel and the underlying connection. Safe to call
// more than once.
func (c *channel) Close() error {
	c.once.Do(func() {
		close(c.done)
		c.conn.Close()
	})
	return nil
}

func (c *channel) writeLoop() {
	for {
		select {
		case payload := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				c.Close()
				return
			}
		case <-c.done:
			return
		}
	}
}
