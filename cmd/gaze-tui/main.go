// gaze-tui: terminal eye grid
// Eyes follow the mouse, or the webcam when motion vision is on.
//
// Keys: w toggles the webcam, 1-5 apply presets, q or Esc quits.
package main

import (
	"context"
	"flag"
	"fmt"
	"math"
	"os"
	"os/signal"
	"syscall"

	"github.com/gdamore/tcell/v2"

	"github.com/teslashibe/go-gaze/internal/config"
	gazelog "github.com/teslashibe/go-gaze/internal/log"
	"github.com/teslashibe/go-gaze/pkg/app"
	"github.com/teslashibe/go-gaze/pkg/camera"
	"github.com/teslashibe/go-gaze/pkg/gaze"
	"github.com/teslashibe/go-gaze/pkg/render"
	"github.com/teslashibe/go-gaze/pkg/settings"
)

var (
	eyeStyle    = tcell.StyleDefault.Foreground(tcell.ColorWhite)
	pupilStyle  = tcell.StyleDefault.Foreground(tcell.ColorAqua).Bold(true)
	statusStyle = tcell.StyleDefault.Foreground(tcell.ColorYellow)
)

func main() {
	device := flag.String("camera", config.Camera(), "Capture device for motion vision (GAZE_CAMERA)")
	logPath := flag.String("log", "gaze-tui.log", "Log file")
	level := flag.String("log-level", config.LogLevel(), "Log level")
	preset := flag.String("preset", "default", "Initial settings preset")
	mirror := flag.Bool("mirror", true, "Mirror motion horizontally")
	flag.Parse()

	closer, err := gazelog.InitFile(*logPath, *level)
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ Log file: %v\n", err)
		os.Exit(1)
	}
	defer closer.Close()

	if err := run(*device, *preset, *mirror); err != nil {
		fmt.Fprintf(os.Stderr, "❌ %v\n", err)
		os.Exit(1)
	}
}

func run(device, preset string, mirror bool) error {
	opts := app.DefaultPipelineOptions()
	opts.Preset = preset
	opts.Logger = gazelog.L()
	opts.Render.FPS = 30

	if device != "" {
		manager := camera.NewManager()
		cfg := manager.GetConfig()
		cfg.Device = device
		if err := manager.SetConfig(cfg); err != nil {
			return fmt.Errorf("camera config: %w", err)
		}
		opts.Camera = camera.NewGoCV(manager, opts.Logger)
		opts.Motion = app.MotionConfigFor(cfg)
		opts.Motion.Mirror = mirror
	}

	p, err := app.NewPipeline(opts)
	if err != nil {
		return err
	}
	defer p.Close()

	screen, err := tcell.NewScreen()
	if err != nil {
		return fmt.Errorf("create screen: %w", err)
	}
	if err := screen.Init(); err != nil {
		return fmt.Errorf("init screen: %w", err)
	}
	defer screen.Fini()
	screen.EnableMouse()
	screen.HideCursor()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Frames are drawn on the event goroutine.
	p.Scheduler.AddSink(render.SinkFunc(func(f render.Frame) {
		screen.PostEvent(tcell.NewEventInterrupt(f))
	}))
	go p.Scheduler.Run(ctx)
	go func() {
		<-ctx.Done()
		screen.PostEvent(tcell.NewEventInterrupt(nil))
	}()

	resize(screen, p)
	status := "w: webcam  1-5: presets  q: quit"

	for {
		switch ev := screen.PollEvent().(type) {
		case *tcell.EventResize:
			screen.Sync()
			resize(screen, p)

		case *tcell.EventMouse:
			x, y := ev.Position()
			p.Pointer.Move(float64(x)+0.5, float64(y)+0.5)

		case *tcell.EventKey:
			switch {
			case ev.Key() == tcell.KeyEscape || ev.Key() == tcell.KeyCtrlC || ev.Rune() == 'q':
				return nil
			case ev.Rune() == 'w':
				status = toggleWebcam(ctx, p)
			case ev.Rune() >= '1' && ev.Rune() <= '5':
				names := settings.PresetNames()
				i := int(ev.Rune() - '1')
				if i < len(names) {
					if err := p.Store.ApplyPreset(names[i]); err != nil {
						status = err.Error()
					} else {
						status = "preset " + names[i]
					}
				}
			}

		case *tcell.EventInterrupt:
			f, ok := ev.Data().(render.Frame)
			if !ok {
				if ctx.Err() != nil {
					return nil
				}
				continue
			}
			draw(screen, f, status)
		}
	}
}

func toggleWebcam(ctx context.Context, p *app.Pipeline) string {
	if p.Motion == nil {
		return "no camera configured (-camera)"
	}
	if err := p.Motion.Initialize(ctx); err != nil {
		return "webcam: " + err.Error()
	}
	if p.Motion.IsEnabled() {
		return "webcam on"
	}
	return "webcam off"
}

// resize reports the terminal size in cells as the viewport. The last row is
// reserved for status.
func resize(screen tcell.Screen, p *app.Pipeline) {
	w, h := screen.Size()
	if h > 1 {
		h--
	}
	vp := gaze.Viewport{Width: float64(w), Height: float64(h)}
	p.Pointer.SetViewport(vp)
	p.Scheduler.SetViewport(vp)
}

func draw(screen tcell.Screen, f render.Frame, status string) {
	screen.Clear()
	w, h := screen.Size()

	for _, e := range f.Eyes {
		if !e.Geometry.Measured() {
			continue
		}
		c := e.Geometry.Center()
		cx, cy := int(c.X), int(c.Y)
		radius := e.Geometry.Size() / 2

		if radius >= 2 {
			drawOutline(screen, cx, cy, radius)
			px := cx + int(math.Round(e.Offset.X))
			py := cy + int(math.Round(e.Offset.Y))
			setCell(screen, w, h-1, px, py, '●', pupilStyle)
			continue
		}
		setCell(screen, w, h-1, cx, cy, pupilGlyph(e.Offset, radius), pupilStyle)
	}

	line := fmt.Sprintf(" %s (%.0f,%.0f)  %d eyes  %s", f.Target.Source, f.Target.X, f.Target.Y, len(f.Eyes), status)
	for i, r := range []rune(line) {
		if i >= w {
			break
		}
		screen.SetContent(i, h-1, r, nil, statusStyle)
	}
	screen.Show()
}

func drawOutline(screen tcell.Screen, cx, cy int, radius float64) {
	w, h := screen.Size()
	r := int(radius)
	for dy := -r; dy <= r; dy++ {
		for dx := -r; dx <= r; dx++ {
			d := math.Hypot(float64(dx), float64(dy))
			if math.Abs(d-radius) < 0.5 {
				setCell(screen, w, h-1, cx+dx, cy+dy, '·', eyeStyle)
			}
		}
	}
}

func setCell(screen tcell.Screen, w, h, x, y int, r rune, style tcell.Style) {
	if x < 0 || y < 0 || x >= w || y >= h {
		return
	}
	screen.SetContent(x, y, r, nil, style)
}

var arrows = []rune{'→', '↘', '↓', '↙', '←', '↖', '↑', '↗'}

// pupilGlyph draws an eye too small for an outline as one cell: a dot when
// centered, otherwise an arrow in the gaze direction.
func pupilGlyph(offset gaze.Vector, radius float64) rune {
	if radius <= 0 || offset.Len() < radius*0.25 {
		return '•'
	}
	angle := math.Atan2(offset.Y, offset.X)
	octant := int(math.Round(angle/(math.Pi/4))+8) % 8
	return arrows[octant]
}
