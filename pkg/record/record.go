// Package record captures input messages to a CBOR trace and replays them
// with their original timing.
package record

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/fxamacker/cbor/v2"

	"github.com/teslashibe/go-gaze/pkg/protocol"
)

// Version is the trace format version written in the header.
const Version = 1

// ErrBadTrace is returned when a trace has no valid header.
var ErrBadTrace = errors.New("record: not a gaze trace")

// Header is the first item in a trace.
type Header struct {
	Version int       `cbor:"version"`
	Started time.Time `cbor:"started"`
}

// Entry is one recorded input message.
type Entry struct {
	At      time.Duration `cbor:"at"` // Since the trace started
	Message []byte        `cbor:"msg"` // JSON-encoded protocol message
}

// Decode parses the entry's message.
func (e Entry) Decode() (*protocol.Message, error) {
	return protocol.ParseMessage(e.Message)
}

// Recorder appends entries to a trace. Safe for concurrent use.
type Recorder struct {
	mu      sync.Mutex
	enc     *cbor.Encoder
	closer  io.Closer
	started time.Time
	count   int
	now     func() time.Time
}

// NewRecorder writes a header to w and returns a recorder appending to it.
func NewRecorder(w io.Writer) (*Recorder, error) {
	r := &Recorder{enc: cbor.NewEncoder(w), now: time.Now}
	r.started = r.now()
	if err := r.enc.Encode(Header{Version: Version, Started: r.started}); err != nil {
		return nil, fmt.Errorf("write trace header: %w", err)
	}
	if c, ok := w.(io.Closer); ok {
		r.closer = c
	}
	return r, nil
}

// Create opens path for writing and starts a trace in it.
func Create(path string) (*Recorder, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	r, err := NewRecorder(f)
	if err != nil {
		f.Close()
		return nil, err
	}
	return r, nil
}

// Record appends a message stamped with the time since the trace started.
func (r *Recorder) Record(msg *protocol.Message) error {
	data, err := msg.Bytes()
	if err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.enc == nil {
		return os.ErrClosed
	}
	if err := r.enc.Encode(Entry{At: r.now().Sub(r.started), Message: data}); err != nil {
		return fmt.Errorf("write trace entry: %w", err)
	}
	r.count++
	return nil
}

// Count returns the number of recorded entries.
func (r *Recorder) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.count
}

// Close stops recording and closes the underlying writer when it is closable.
func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.enc = nil
	if r.closer != nil {
		c := r.closer
		r.closer = nil
		return c.Close()
	}
	return nil
}

// Player reads a trace.
type Player struct {
	dec    *cbor.Decoder
	header Header
	closer io.Closer
}

// NewPlayer reads the trace header from r.
func NewPlayer(r io.Reader) (*Player, error) {
	p := &Player{dec: cbor.NewDecoder(r)}
	if err := p.dec.Decode(&p.header); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadTrace, err)
	}
	if p.header.Version != Version {
		return nil, fmt.Errorf("%w: version %d", ErrBadTrace, p.header.Version)
	}
	if c, ok := r.(io.Closer); ok {
		p.closer = c
	}
	return p, nil
}

// Open opens a trace file for playback.
func Open(path string) (*Player, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	p, err := NewPlayer(f)
	if err != nil {
		f.Close()
		return nil, err
	}
	return p, nil
}

// Header returns the trace header.
func (p *Player) Header() Header {
	return p.header
}

// Next returns the next entry, or io.EOF at the end of the trace.
func (p *Player) Next() (Entry, error) {
	var e Entry
	if err := p.dec.Decode(&e); err != nil {
		return Entry{}, err
	}
	return e, nil
}

// Play delivers every remaining entry to fn, sleeping between entries to
// reproduce the recorded timing divided by speed. speed <= 0 plays without
// delays. Returns the number of entries delivered.
func (p *Player) Play(ctx context.Context, speed float64, fn func(*protocol.Message) error) (int, error) {
	var last time.Duration
	played := 0
	for {
		e, err := p.Next()
		if errors.Is(err, io.EOF) {
			return played, nil
		}
		if err != nil {
			return played, fmt.Errorf("read trace entry: %w", err)
		}

		if speed > 0 && e.At > last {
			wait := time.Duration(float64(e.At-last) / speed)
			timer := time.NewTimer(wait)
			select {
			case <-ctx.Done():
				timer.Stop()
				return played, ctx.Err()
			case <-timer.C:
			}
		} else if err := ctx.Err(); err != nil {
			return played, err
		}
		last = e.At

		msg, err := e.Decode()
		if err != nil {
			return played, fmt.Errorf("decode entry %d: %w", played, err)
		}
		if err := fn(msg); err != nil {
			return played, err
		}
		played++
	}
}

// Close closes the underlying reader when it is closable.
func (p *Player) Close() error {
	if p.closer != nil {
		return p.closer.Close()
	}
	return nil
}
