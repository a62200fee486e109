package record

import (
	"bytes"
	"context"
	"errors"
	"io"
	"path/filepath"
	"testing"
	"time"

	"github.com/teslashibe/go-gaze/pkg/gaze"
	"github.com/teslashibe/go-gaze/pkg/protocol"
)

func fakeClock(start time.Time, steps ...time.Duration) func() time.Time {
	i := 0
	return func() time.Time {
		if i == 0 {
			i++
			return start
		}
		t := start.Add(steps[min(i-1, len(steps)-1)])
		i++
		return t
	}
}

func TestRecordAndPlay(t *testing.T) {
	var buf bytes.Buffer
	rec, err := NewRecorder(&buf)
	if err != nil {
		t.Fatalf("NewRecorder error: %v", err)
	}

	m1, _ := protocol.NewPointerMessage(10, 20)
	m2, _ := protocol.NewOrientationMessage(gaze.OrientationSample{Beta: gaze.Float(5), Gamma: gaze.Float(-5)})
	if err := rec.Record(m1); err != nil {
		t.Fatalf("Record error: %v", err)
	}
	if err := rec.Record(m2); err != nil {
		t.Fatalf("Record error: %v", err)
	}
	if rec.Count() != 2 {
		t.Errorf("Expected 2 entries, got %d", rec.Count())
	}

	player, err := NewPlayer(&buf)
	if err != nil {
		t.Fatalf("NewPlayer error: %v", err)
	}
	if player.Header().Version != Version {
		t.Errorf("Expected version %d, got %d", Version, player.Header().Version)
	}

	var got []protocol.MessageType
	n, err := player.Play(context.Background(), 0, func(m *protocol.Message) error {
		got = append(got, m.Type)
		return nil
	})
	if err != nil {
		t.Fatalf("Play error: %v", err)
	}
	if n != 2 || got[0] != protocol.TypePointer || got[1] != protocol.TypeOrientation {
		t.Errorf("Unexpected playback %v (n=%d)", got, n)
	}
}

func TestEntryTiming(t *testing.T) {
	var buf bytes.Buffer
	rec, _ := NewRecorder(&buf)
	rec.now = fakeClock(time.Unix(0, 0), 50*time.Millisecond, 120*time.Millisecond)

	// Restart the clock after the header was written
	rec.started = rec.now()
	msg, _ := protocol.NewPointerMessage(1, 1)
	rec.Record(msg)
	rec.Record(msg)

	player, _ := NewPlayer(&buf)
	e1, _ := player.Next()
	e2, _ := player.Next()
	if e1.At != 50*time.Millisecond || e2.At != 120*time.Millisecond {
		t.Errorf("Expected offsets 50ms/120ms, got %v/%v", e1.At, e2.At)
	}
	if _, err := player.Next(); !errors.Is(err, io.EOF) {
		t.Errorf("Expected io.EOF at end, got %v", err)
	}
}

func TestPlayHonorsContext(t *testing.T) {
	var buf bytes.Buffer
	rec, _ := NewRecorder(&buf)
	rec.now = fakeClock(time.Unix(0, 0), time.Hour)
	rec.started = rec.now()
	msg, _ := protocol.NewPointerMessage(1, 1)
	rec.Record(msg)

	player, _ := NewPlayer(&buf)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	n, err := player.Play(ctx, 1, func(*protocol.Message) error { return nil })
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Expected deadline exceeded, got %v", err)
	}
	if n != 0 {
		t.Errorf("Expected nothing played, got %d", n)
	}
}

func TestPlayStopsOnCallbackError(t *testing.T) {
	var buf bytes.Buffer
	rec, _ := NewRecorder(&buf)
	msg, _ := protocol.NewPointerMessage(1, 1)
	rec.Record(msg)
	rec.Record(msg)

	player, _ := NewPlayer(&buf)
	stop := errors.New("stop")
	n, err := player.Play(context.Background(), 0, func(*protocol.Message) error { return stop })
	if !errors.Is(err, stop) || n != 0 {
		t.Errorf("Expected callback error after 0 entries, got n=%d err=%v", n, err)
	}
}

func TestNewPlayer_BadTrace(t *testing.T) {
	if _, err := NewPlayer(bytes.NewReader([]byte("garbage"))); !errors.Is(err, ErrBadTrace) {
		t.Errorf("Expected ErrBadTrace, got %v", err)
	}
	if _, err := NewPlayer(bytes.NewReader(nil)); !errors.Is(err, ErrBadTrace) {
		t.Errorf("Expected ErrBadTrace for empty input, got %v", err)
	}
}

func TestFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trace.cbor")
	rec, err := Create(path)
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}
	msg, _ := protocol.NewViewportMessage(800, 600)
	rec.Record(msg)
	if err := rec.Close(); err != nil {
		t.Fatalf("Close error: %v", err)
	}
	if err := rec.Record(msg); err == nil {
		t.Error("Record after Close should fail")
	}

	player, err := Open(path)
	if err != nil {
		t.Fatalf("Open error: %v", err)
	}
	defer player.Close()

	e, err := player.Next()
	if err != nil {
		t.Fatalf("Next error: %v", err)
	}
	m, err := e.Decode()
	if err != nil || m.Type != protocol.TypeViewport {
		t.Errorf("Expected viewport entry, got %+v err=%v", m, err)
	}
}
