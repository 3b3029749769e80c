package ws

import (
	"sync"

	"github.com/gorilla/websocket"

	"github.com/Battlearmour2000/invest-tracker/internal/domain"
)

// connState tracks the per-connection lifecycle: Connecting until the topic
// join completes, Joined while relaying, Closed after disconnect.
type connState int

const (
	stateConnecting connState = iota
	stateJoined
	stateClosed
)

// Client is one subscriber connection. The write pump goroutine is the sole
// writer on the socket; everything else hands frames to it through the send
// queue.
type Client struct {
	conn    *websocket.Conn
	session domain.Session
	send    chan any
	done    chan struct{}

	mu    sync.Mutex
	state connState

	closeOnce sync.Once
}

func newClient(conn *websocket.Conn, session domain.Session, sendBuffer int) *Client {
	if sendBuffer <= 0 {
		sendBuffer = 16
	}
	return &Client{
		conn:    conn,
		session: session,
		send:    make(chan any, sendBuffer),
		done:    make(chan struct{}),
	}
}

func (c *Client) setState(s connState) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}

// enqueue hands a frame to the write pump. It never blocks; false means the
// client's queue is full and the caller should treat it as a slow consumer.
// Frames offered to a closed client are silently discarded.
func (c *Client) enqueue(v any) bool {
	select {
	case <-c.done:
		return true
	case c.send <- v:
		return true
	default:
		return false
	}
}

// writePump serializes queued frames onto the socket until the client closes
// or a write fails.
func (c *Client) writePump() {
	for {
		select {
		case <-c.done:
			return
		case v := <-c.send:
			if err := c.conn.WriteJSON(v); err != nil {
				c.close()
				return
			}
		}
	}
}

// close transitions the client to Closed and tears the socket down. Safe to
// call multiple times from any goroutine.
func (c *Client) close() {
	c.closeOnce.Do(func() {
		c.setState(stateClosed)
		close(c.done)
		_ = c.conn.Close()
	})
}
