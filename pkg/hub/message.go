// Package hub fans rendered frames out to websocket viewers using a
// channel-based register/unregister/broadcast loop.
package hub

// MessageType indicates the websocket message format
type MessageType int

const (
	// JSONMessage is a JSON-encoded protocol message
	JSONMessage MessageType = iota
	// BinaryMessage is a CBOR-encoded protocol message
	BinaryMessage
)

// Message is one queued write. A message may carry both encodings; each
// client picks the one it asked for.
type Message struct {
	Type   MessageType
	Data   []byte
	Binary []byte
}

// NewJSONMessage creates a JSON message from pre-encoded bytes
func NewJSONMessage(data []byte) Message {
	return Message{Type: JSONMessage, Data: data}
}

// NewBinaryMessage creates a binary message
func NewBinaryMessage(data []byte) Message {
	return Message{Type: BinaryMessage, Binary: data}
}

// payload returns the encoding a client wants, falling back to whatever
// the message has.
func (m Message) payload(binary bool) (MessageType, []byte) {
	if binary && m.Binary != nil {
		return BinaryMessage, m.Binary
	}
	if m.Data != nil {
		return JSONMessage, m.Data
	}
	return BinaryMessage, m.Binary
}
