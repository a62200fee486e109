package hub

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fxamacker/cbor/v2"

	"github.com/teslashibe/go-gaze/pkg/protocol"
	"github.com/teslashibe/go-gaze/pkg/render"
)

// Hub maintains the set of active viewers and broadcasts messages to them
type Hub struct {
	// Name for logging
	name   string
	logger *slog.Logger

	// Registered clients
	clients map[*Client]bool

	// Inbound messages to broadcast
	broadcast chan Message

	// Register requests from clients
	register chan *Client

	// Unregister requests from clients
	unregister chan *Client

	// Closed when Run returns
	done chan struct{}

	// Guards clients for readers outside the loop
	mu sync.RWMutex

	running       atomic.Bool
	binaryClients atomic.Int64
	sent          atomic.Uint64
	dropped       atomic.Uint64
}

// Stats are hub counters.
type Stats struct {
	Clients int    `json:"clients"`
	Sent    uint64 `json:"sent"`
	Dropped uint64 `json:"dropped"`
}

// New creates a new Hub
func New(name string, logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		name:       name,
		logger:     logger.With("hub", name),
		clients:    make(map[*Client]bool),
		broadcast:  make(chan Message, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
	}
}

// Run runs the hub's main loop until ctx is cancelled. Remaining clients
// are closed on exit.
func (h *Hub) Run(ctx context.Context) {
	h.running.Store(true)
	defer func() {
		h.mu.Lock()
		for client := range h.clients {
			h.remove(client)
		}
		h.mu.Unlock()
		h.running.Store(false)
		close(h.done)
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			if client.binary {
				h.binaryClients.Add(1)
			}
			count := len(h.clients)
			h.mu.Unlock()
			fmt.Printf("🔌 [%s] Viewer connected (%d total)\n", h.name, count)

		case client := <-h.unregister:
			h.mu.Lock()
			h.remove(client)
			count := len(h.clients)
			h.mu.Unlock()
			fmt.Printf("🔌 [%s] Viewer disconnected (%d remaining)\n", h.name, count)

		case message := <-h.broadcast:
			h.mu.Lock()
			for client := range h.clients {
				select {
				case client.send <- message:
					h.sent.Add(1)
				default:
					// Too slow to keep up
					h.remove(client)
					h.dropped.Add(1)
					h.logger.Warn("dropped slow viewer", "client", client.id)
				}
			}
			h.mu.Unlock()
		}
	}
}

// remove must be called with mu held.
func (h *Hub) remove(client *Client) {
	if _, ok := h.clients[client]; !ok {
		return
	}
	delete(h.clients, client)
	if client.binary {
		h.binaryClients.Add(-1)
	}
	close(client.send)
}

// Broadcast queues a message for all connected clients. It never blocks;
// when the queue is full the message is dropped.
func (h *Hub) Broadcast(msg Message) {
	select {
	case h.broadcast <- msg:
	default:
		h.dropped.Add(1)
		h.logger.Debug("broadcast queue full, dropping message")
	}
}

// BroadcastJSON encodes and broadcasts a JSON message
func (h *Hub) BroadcastJSON(v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	h.Broadcast(NewJSONMessage(data))
	return nil
}

// BroadcastProtocol broadcasts a protocol message. The CBOR form is only
// encoded while binary viewers are connected.
func (h *Hub) BroadcastProtocol(msg *protocol.Message, payload interface{}) error {
	data, err := msg.Bytes()
	if err != nil {
		return err
	}
	out := NewJSONMessage(data)
	if h.binaryClients.Load() > 0 {
		bin, err := cbor.Marshal(binaryEnvelope{Type: msg.Type, Timestamp: msg.Timestamp, Data: payload})
		if err != nil {
			return fmt.Errorf("encode cbor: %w", err)
		}
		out.Binary = bin
	}
	h.Broadcast(out)
	return nil
}

// binaryEnvelope mirrors protocol.Message with a decoded payload so CBOR
// viewers get native maps instead of embedded JSON text.
type binaryEnvelope struct {
	Type      protocol.MessageType `cbor:"type"`
	Timestamp int64                `cbor:"ts"`
	Data      interface{}          `cbor:"data"`
}

// PublishFrame implements render.Sink.
func (h *Hub) PublishFrame(f render.Frame) {
	if h.ClientCount() == 0 {
		return
	}
	data := FrameData(f)
	msg, err := protocol.NewFrameMessage(data)
	if err != nil {
		h.logger.Error("encode frame", "error", err)
		return
	}
	if err := h.BroadcastProtocol(msg, data); err != nil {
		h.logger.Error("broadcast frame", "error", err)
	}
}

// FrameData converts a render frame to its wire form.
func FrameData(f render.Frame) protocol.FrameData {
	eyes := make([]protocol.EyeData, len(f.Eyes))
	for i, e := range f.Eyes {
		eyes[i] = protocol.EyeData{ID: e.ID, Geometry: e.Geometry, Offset: e.Offset}
	}
	return protocol.FrameData{
		Seq:      f.Seq,
		Target:   f.Target,
		Viewport: f.Viewport,
		Eyes:     eyes,
		Layout:   f.Layout,
	}
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// IsRunning returns whether the hub is running
func (h *Hub) IsRunning() bool {
	return h.running.Load()
}

// Stats returns hub counters.
func (h *Hub) Stats() Stats {
	return Stats{
		Clients: h.ClientCount(),
		Sent:    h.sent.Load(),
		Dropped: h.dropped.Load(),
	}
}

// WaitForClients blocks until at least n clients are registered or the
// timeout passes. Reports whether the count was reached.
func (h *Hub) WaitForClients(n int, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if h.ClientCount() >= n {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return h.ClientCount() >= n
}

var _ render.Sink = (*Hub)(nil)
