package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/teslashibe/go-gaze/pkg/camera"
	"github.com/teslashibe/go-gaze/pkg/debug"
	"github.com/teslashibe/go-gaze/pkg/hub"
	"github.com/teslashibe/go-gaze/pkg/motion"
	"github.com/teslashibe/go-gaze/pkg/orientation"
	"github.com/teslashibe/go-gaze/pkg/protocol"
	"github.com/teslashibe/go-gaze/pkg/record"
	"github.com/teslashibe/go-gaze/pkg/web"
)

// App is the gaze service orchestrator.
// It owns every component and their lifecycle.
type App struct {
	config Config
	logger *slog.Logger

	cameraManager *camera.Manager
	pipeline      *Pipeline
	frames        *hub.Hub
	server        *web.Server
	recorder      *record.Recorder

	// Overrides for tests
	camera   motion.Camera
	platform orientation.Platform
}

// Option customizes an App.
type Option func(*App)

// WithCamera replaces the OpenCV camera.
func WithCamera(c motion.Camera) Option {
	return func(a *App) { a.camera = c }
}

// WithPlatform replaces the orientation platform.
func WithPlatform(p orientation.Platform) Option {
	return func(a *App) { a.platform = p }
}

// New validates the configuration and creates the app.
func New(cfg Config, logger *slog.Logger, opts ...Option) (*App, error) {
	cfg.LoadEnvConfig()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}

	debug.Enabled = cfg.Debug
	debug.Motion = cfg.Debug || cfg.DebugMotion
	debug.Fusion = cfg.Debug || cfg.DebugFusion

	a := &App{config: cfg, logger: logger}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// Init builds the pipeline, the frame hub and the server.
// Call this after New() and before Run().
func (a *App) Init() error {
	fmt.Println("👀 go-gaze")
	fmt.Println("=========")
	if debug.Enabled {
		fmt.Println("🐛 Debug mode enabled")
	}

	opts := DefaultPipelineOptions()
	opts.Logger = a.logger
	opts.Preset = a.config.Preset
	opts.Render.FPS = a.config.FPS
	opts.Platform = a.platform

	a.cameraManager = camera.NewManager()
	if a.config.Camera != "" {
		cfg := a.cameraManager.GetConfig()
		cfg.Device = a.config.Camera
		if err := a.cameraManager.SetConfig(cfg); err != nil {
			return fmt.Errorf("camera config: %w", err)
		}
	}
	if a.camera == nil && a.config.Camera != "" {
		a.camera = camera.NewGoCV(a.cameraManager, a.logger)
	}
	if a.camera != nil {
		opts.Camera = a.camera
		opts.Motion = MotionConfigFor(a.cameraManager.GetConfig())
		opts.Motion.Mirror = a.config.Mirror
		fmt.Printf("📷 Motion vision available on camera %s\n", a.cameraManager.GetConfig().Device)
	}

	if opts.Platform == nil && a.config.IMUEndpoint != "" {
		zcfg := orientation.DefaultZMQConfig()
		zcfg.Endpoint = a.config.IMUEndpoint
		opts.Platform = orientation.NewZMQPlatform(zcfg, a.logger)
		fmt.Printf("🧭 Orientation from IMU feed %s\n", a.config.IMUEndpoint)
	}

	p, err := NewPipeline(opts)
	if err != nil {
		return fmt.Errorf("pipeline: %w", err)
	}
	a.pipeline = p

	if p.Motion != nil {
		a.cameraManager.OnConfigChange = func(cfg camera.Config) error {
			return p.Motion.Reconfigure(context.Background(), cfg.Width, cfg.Height, cfg.Facing)
		}
	}

	a.frames = hub.New("frames", a.logger)
	p.Scheduler.AddSink(a.frames)

	a.server = web.NewServer(web.Config{Port: a.config.Port, StaticDir: a.config.StaticDir, Debug: a.config.Debug}, web.Deps{
		Scheduler:   p.Scheduler,
		Store:       p.Store,
		Pointer:     p.Pointer,
		Relay:       p.Relay,
		Orientation: p.Orientation,
		Motion:      p.Motion,
		Camera:      a.cameraManager,
		Frames:      a.frames,
		Logger:      a.logger,
	})

	if a.config.RecordPath != "" {
		rec, err := record.Create(a.config.RecordPath)
		if err != nil {
			return fmt.Errorf("record: %w", err)
		}
		a.recorder = rec
		a.server.OnInput = func(msg *protocol.Message) {
			if err := rec.Record(msg); err != nil {
				a.logger.Warn("trace write failed", "error", err)
			}
		}
		fmt.Printf("⏺️  Recording input to %s\n", a.config.RecordPath)
	}

	return nil
}

// Run starts the hub, the scheduler and the server.
// Blocks until ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	if a.pipeline == nil {
		return fmt.Errorf("app not initialized")
	}

	go a.frames.Run(ctx)
	go a.pipeline.Scheduler.Run(ctx)

	// Platforms without a consent flow (IMU feed) start right away
	if a.pipeline.Relay == nil && a.pipeline.Orientation.AutoStart(ctx) {
		fmt.Println("🧭 Orientation listening")
	}

	errCh := make(chan error, 1)
	go func() { errCh <- a.server.Start() }()

	fmt.Printf("   Input:  ws://localhost:%s/ws/input\n", a.config.Port)
	fmt.Printf("   Frames: ws://localhost:%s/ws/frames\n", a.config.Port)
	fmt.Printf("   Status: http://localhost:%s/api/status\n", a.config.Port)
	fmt.Println("   (Ctrl+C to exit)")

	select {
	case <-ctx.Done():
		return nil
	case err := <-errCh:
		return fmt.Errorf("server: %w", err)
	}
}

// Pipeline returns the wired pipeline. Nil before Init.
func (a *App) Pipeline() *Pipeline {
	return a.pipeline
}

// Server returns the web server. Nil before Init.
func (a *App) Server() *web.Server {
	return a.server
}

// Shutdown gracefully shuts down all components.
func (a *App) Shutdown() {
	fmt.Println("\n👋 Goodbye!")

	if a.server != nil {
		a.server.Shutdown()
	}
	if a.pipeline != nil {
		a.pipeline.Close()
	}
	if a.recorder != nil {
		if err := a.recorder.Close(); err != nil {
			a.logger.Warn("trace close failed", "error", err)
		} else {
			fmt.Printf("⏺️  Recorded %d input messages\n", a.recorder.Count())
		}
	}
}
