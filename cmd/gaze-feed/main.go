// gaze-feed: drive a gaze service input socket
// Replays a recorded input trace, or sweeps a synthetic pointer in a circle
// when no trace is given.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gorilla/websocket"

	"github.com/teslashibe/go-gaze/internal/config"
	gazelog "github.com/teslashibe/go-gaze/internal/log"
	"github.com/teslashibe/go-gaze/pkg/protocol"
	"github.com/teslashibe/go-gaze/pkg/record"
)

func main() {
	url := flag.String("url", config.URL(), "Service base URL (GAZE_URL)")
	trace := flag.String("trace", "", "CBOR input trace to replay")
	speed := flag.Float64("speed", 1, "Replay speed, 0 sends without delays")
	width := flag.Float64("width", 1280, "Synthetic viewport width")
	height := flag.Float64("height", 720, "Synthetic viewport height")
	period := flag.Duration("period", 4*time.Second, "Synthetic sweep period")
	level := flag.String("log-level", config.LogLevel(), "Log level")
	flag.Parse()

	gazelog.Init(*level)
	logger := gazelog.L()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	wsURL := config.WebSocketURL(*url, "/ws/input")
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		log.Fatalf("❌ Dial %s: %v", wsURL, err)
	}
	defer conn.Close()
	fmt.Printf("🔌 Connected to %s\n", wsURL)

	// Replies are only logged; errors from the service mean a rejected message.
	go func() {
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			msg, err := protocol.ParseMessage(data)
			if err != nil {
				continue
			}
			if msg.Type == protocol.TypeError {
				logger.Warn("message rejected", "data", string(msg.Data))
			}
		}
	}()

	f := &feeder{conn: conn}
	if *trace != "" {
		err = replay(ctx, f, *trace, *speed)
	} else {
		err = sweep(ctx, f, *width, *height, *period)
	}
	if err != nil && ctx.Err() == nil {
		log.Fatalf("❌ %v", err)
	}

	conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
	fmt.Printf("👋 Sent %d messages\n", f.sent)
}

type feeder struct {
	mu   sync.Mutex
	conn *websocket.Conn
	sent int
}

func (f *feeder) send(msg *protocol.Message) error {
	data, err := msg.Bytes()
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return err
	}
	f.sent++
	return nil
}

func replay(ctx context.Context, f *feeder, path string, speed float64) error {
	player, err := record.Open(path)
	if err != nil {
		return err
	}
	defer player.Close()

	fmt.Printf("▶️  Replaying %s (recorded %s, speed %.1fx)\n",
		path, player.Header().Started.Format(time.RFC3339), speed)
	_, err = player.Play(ctx, speed, f.send)
	return err
}

func sweep(ctx context.Context, f *feeder, width, height float64, period time.Duration) error {
	if period <= 0 {
		return fmt.Errorf("period must be positive")
	}
	msg, err := protocol.NewViewportMessage(width, height)
	if err != nil {
		return err
	}
	if err := f.send(msg); err != nil {
		return err
	}

	fmt.Printf("🔄 Sweeping pointer over %.0fx%.0f every %s\n", width, height, period)
	ticker := time.NewTicker(time.Second / 30)
	defer ticker.Stop()
	start := time.Now()

	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-ticker.C:
			x, y := sweepPoint(now.Sub(start), period, width, height)
			msg, err := protocol.NewPointerMessage(x, y)
			if err != nil {
				return err
			}
			if err := f.send(msg); err != nil {
				return err
			}
		}
	}
}

// sweepPoint is the pointer position on an ellipse covering 80% of the
// viewport, one lap per period.
func sweepPoint(elapsed, period time.Duration, width, height float64) (float64, float64) {
	phase := 2 * math.Pi * float64(elapsed%period) / float64(period)
	return width/2 + 0.4*width*math.Cos(phase), height/2 + 0.4*height*math.Sin(phase)
}
