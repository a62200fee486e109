// Package web serves the gaze HTTP API and its websockets: /ws/input for
// clients relaying pointer, viewport and sensor events, and /ws/frames for
// viewers of the rendered eyes.
package web

import (
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"

	"github.com/teslashibe/go-gaze/pkg/camera"
	"github.com/teslashibe/go-gaze/pkg/gaze"
	"github.com/teslashibe/go-gaze/pkg/hub"
	"github.com/teslashibe/go-gaze/pkg/motion"
	"github.com/teslashibe/go-gaze/pkg/orientation"
	"github.com/teslashibe/go-gaze/pkg/pointer"
	"github.com/teslashibe/go-gaze/pkg/protocol"
	"github.com/teslashibe/go-gaze/pkg/render"
	"github.com/teslashibe/go-gaze/pkg/settings"
)

// Config configures the server.
type Config struct {
	Port      string
	StaticDir string // Served at / when set
	Debug     bool   // Log every request
}

// DefaultConfig listens on 8080 without static files.
func DefaultConfig() Config {
	return Config{Port: "8080"}
}

// Deps are the pipeline parts the server drives. Scheduler is required;
// the rest may be nil when that input is not wired.
type Deps struct {
	Scheduler   *render.Scheduler
	Store       *settings.Store
	Pointer     *pointer.Source
	Relay       *orientation.RelayPlatform
	Orientation *orientation.Source
	Motion      *motion.Source
	Camera      *camera.Manager
	Frames      *hub.Hub
	Logger      *slog.Logger
}

// Server is the gaze HTTP/websocket server
type Server struct {
	app  *fiber.App
	cfg  Config
	deps Deps

	logger *slog.Logger

	// Connected input clients by ID
	inputs   map[string]*inputSession
	inputsMu sync.RWMutex

	// Session that currently answers orientation consent prompts
	relayOwner atomic.Pointer[inputSession]

	received atomic.Uint64
	rejected atomic.Uint64

	// OnInput is called with every accepted input message, e.g. to record
	// a trace. Set before Start.
	OnInput func(msg *protocol.Message)
}

// NewServer creates the server and registers its routes.
func NewServer(cfg Config, deps Deps) *Server {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Store == nil {
		deps.Store = settings.NewStore()
	}
	if deps.Pointer == nil {
		deps.Pointer = pointer.New(gaze.Viewport{})
	}
	s := &Server{
		cfg:    cfg,
		deps:   deps,
		logger: deps.Logger,
		inputs: make(map[string]*inputSession),
	}

	app := fiber.New(fiber.Config{
		AppName:               "go-gaze",
		DisableStartupMessage: true,
	})

	app.Use(recover.New())
	// CORS for local development
	app.Use(cors.New())
	if cfg.Debug {
		app.Use(logger.New())
	}

	if cfg.StaticDir != "" {
		app.Static("/", cfg.StaticDir)
	}

	app.Get("/health", s.handleHealth)
	app.Get("/metrics", s.handleMetrics)

	// API routes
	api := app.Group("/api")
	api.Get("/status", s.handleStatus)
	api.Get("/frame", s.handleFrame)
	api.Get("/inputs", s.handleInputs)

	api.Get("/settings", s.handleGetSettings)
	api.Patch("/settings", s.handleUpdateSettings)
	api.Get("/settings/presets", s.handleSettingsPresets)
	api.Post("/settings/presets/:name", s.handleApplyPreset)

	api.Get("/camera", s.handleGetCamera)
	api.Patch("/camera", s.handleUpdateCamera)
	api.Get("/camera/presets", s.handleCameraPresets)

	api.Post("/motion", s.handleSetMotion)
	api.Post("/orientation/request", s.handleOrientationRequest)
	api.Post("/orientation/revoke", s.handleOrientationRevoke)

	// WebSocket upgrade middleware
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	app.Get("/ws/input", s.inputHandler())
	if deps.Frames != nil {
		app.Get("/ws/frames", deps.Frames.Handler())
	}

	s.app = app
	return s
}

// App returns the underlying fiber app.
func (s *Server) App() *fiber.App {
	return s.app
}

// Start listens on the configured port and blocks.
func (s *Server) Start() error {
	fmt.Printf("🌐 Gaze server: http://localhost:%s\n", s.cfg.Port)
	return s.app.Listen(":" + s.cfg.Port)
}

// StartAsync starts the server in a goroutine
func (s *Server) StartAsync() {
	go func() {
		if err := s.Start(); err != nil {
			fmt.Printf("⚠️  Web server error: %v\n", err)
		}
	}()
}

// Shutdown gracefully stops the server
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

// InputCount returns the number of connected input clients.
func (s *Server) InputCount() int {
	s.inputsMu.RLock()
	defer s.inputsMu.RUnlock()
	return len(s.inputs)
}

// BroadcastSettings pushes the current settings to input clients and viewers.
func (s *Server) BroadcastSettings() {
	msg, err := protocol.NewSettingsMessage(s.deps.Store.Get())
	if err != nil {
		s.logger.Error("encode settings", "error", err)
		return
	}
	s.inputsMu.RLock()
	sessions := make([]*inputSession, 0, len(s.inputs))
	for _, in := range s.inputs {
		sessions = append(sessions, in)
	}
	s.inputsMu.RUnlock()

	for _, in := range sessions {
		if err := in.Send(msg); err != nil {
			s.logger.Debug("settings push failed", "client", in.ID, "error", err)
		}
	}
	if s.deps.Frames != nil {
		if err := s.deps.Frames.BroadcastProtocol(msg, s.deps.Store.Get()); err != nil {
			s.logger.Debug("settings broadcast failed", "error", err)
		}
	}
}
