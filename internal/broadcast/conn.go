package broadcast

import (
	"log/slog"
	"sync"

	"github.com/gorilla/websocket"
)

// Transport is the subset of *websocket.Conn the broadcaster writes to.
type Transport interface {
	WriteJSON(v any) error
	WriteMessage(messageType int, data []byte) error
	Close() error
}

type Message struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

const sendQueueSize = 64

type envelope struct {
	msg       *Message
	closeCode int
	closeText string
}

// Conn serializes all writes to one websocket connection through a
// single writer goroutine fed by a bounded queue. Enqueueing never
// blocks: when the queue is full the message is dropped, so a slow or
// dead reader cannot stall whoever publishes to it. Delivery is
// best-effort at-most-once; a connection that misses a message recovers
// via sync-request.
type Conn struct {
	transport Transport
	logger    *slog.Logger

	mu     sync.Mutex
	queue  chan envelope
	closed bool
}

func NewConn(transport Transport, logger *slog.Logger) *Conn {
	c := &Conn{
		transport: transport,
		logger:    logger,
		queue:     make(chan envelope, sendQueueSize),
	}
	go c.writeLoop()

	return c
}

func (c *Conn) Send(msg *Message) {
	c.enqueue(envelope{msg: msg})
}

// SendClose enqueues a websocket close frame. The writer closes the
// underlying transport after sending it, so every message enqueued
// before the close frame is flushed first.
func (c *Conn) SendClose(code int, text string) {
	c.enqueue(envelope{closeCode: code, closeText: text})
}

// Close stops the writer goroutine after the queue drains. Further
// sends are no-ops.
func (c *Conn) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.closed = true
	close(c.queue)
}

func (c *Conn) enqueue(env envelope) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}

	select {
	case c.queue <- env:
	default:
		c.logger.Debug("send queue full, dropping message")
	}
}

func (c *Conn) writeLoop() {
	for env := range c.queue {
		if env.closeCode != 0 {
			if err := c.transport.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(env.closeCode, env.closeText)); err != nil {
				c.logger.Debug("failed to write close frame", "error", err)
			}
			c.transport.Close()
			continue
		}

		if err := c.transport.WriteJSON(env.msg); err != nil {
			c.logger.Debug("failed to write message", "error", err)
		}
	}
}
