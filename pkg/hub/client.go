package hub

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"

	"github.com/teslashibe/go-gaze/pkg/protocol"
)

const (
	// writeWait is how long to wait for a write to complete
	writeWait = 10 * time.Second

	// pongWait is how long to wait for a pong response
	pongWait = 60 * time.Second

	// pingPeriod must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	// maxMessageSize caps inbound viewer messages; viewers only send pings
	maxMessageSize = 4 * 1024
)

// Client is a single viewer connection
type Client struct {
	id     string
	hub    *Hub
	conn   *websocket.Conn
	send   chan Message
	binary bool
}

// NewClient creates a client and registers it with the hub. binary selects
// CBOR frames instead of JSON. Returns nil when the hub is not running.
func NewClient(hub *Hub, conn *websocket.Conn, binary bool) *Client {
	client := &Client{
		id:     uuid.NewString(),
		hub:    hub,
		conn:   conn,
		send:   make(chan Message, 256), // Buffered channel for backpressure
		binary: binary,
	}
	select {
	case hub.register <- client:
		return client
	case <-hub.done:
		return nil
	}
}

// Handler returns a fiber handler that upgrades viewers and attaches them
// to the hub. "?format=cbor" selects binary frames.
func (h *Hub) Handler() fiber.Handler {
	return websocket.New(func(c *websocket.Conn) {
		client := NewClient(h, c, c.Query("format") == "cbor")
		if client == nil {
			return
		}
		client.Run()
	})
}

// ID returns the client's identifier.
func (c *Client) ID() string {
	return c.id
}

// Run starts the client's read and write pumps and blocks until the
// connection closes.
func (c *Client) Run() {
	go c.writePump()
	c.readPump()
}

// readPump detects disconnection and answers protocol pings.
func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			break
		}
		c.handle(data)
	}
}

func (c *Client) handle(data []byte) {
	msg, err := protocol.ParseMessage(data)
	if err != nil || msg.Type != protocol.TypePing {
		return
	}
	ping, err := msg.GetPingData()
	if err != nil {
		return
	}
	pong, err := protocol.NewPongMessage(ping.ID, ping.Timestamp, time.Now().UnixMilli())
	if err != nil {
		return
	}
	out, err := pong.Bytes()
	if err != nil {
		return
	}
	c.reply(NewJSONMessage(out))
}

// reply queues a message for this client only. The hub lock keeps send
// open while queuing.
func (c *Client) reply(m Message) {
	c.hub.mu.RLock()
	defer c.hub.mu.RUnlock()
	if !c.hub.clients[c] {
		return
	}
	select {
	case c.send <- m:
	default:
	}
}

// writePump writes messages to the websocket connection. Only this
// goroutine writes to the connection.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Hub closed the channel
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			kind, data := message.payload(c.binary)
			if data == nil {
				continue
			}
			wsType := websocket.TextMessage
			if kind == BinaryMessage {
				wsType = websocket.BinaryMessage
			}

			if err := c.conn.WriteMessage(wsType, data); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
