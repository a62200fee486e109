// gazed: eye-grid gaze service
// Fuses webcam motion, device tilt and pointer input into per-eye pupil
// offsets and streams them to viewers over websockets.
package main

import (
	"context"
	"flag"
	"log"
	"os/signal"
	"syscall"

	"github.com/teslashibe/go-gaze/internal/config"
	gazelog "github.com/teslashibe/go-gaze/internal/log"
	"github.com/teslashibe/go-gaze/pkg/app"
)

func main() {
	cfg, level := parseFlags()
	gazelog.Init(level)

	a, err := app.New(cfg, gazelog.L())
	if err != nil {
		log.Fatalf("❌ Configuration error: %v", err)
	}

	if err := a.Init(); err != nil {
		log.Fatalf("❌ Initialization failed: %v", err)
	}
	defer a.Shutdown()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := a.Run(ctx); err != nil {
		log.Fatalf("❌ Runtime error: %v", err)
	}
}

// parseFlags parses command line flags and returns configuration.
func parseFlags() (app.Config, string) {
	cfg := app.DefaultConfig()

	port := flag.String("port", config.Port(), "HTTP port (GAZE_PORT)")
	camera := flag.String("camera", config.Camera(), "Capture device for motion vision, empty to disable (GAZE_CAMERA)")
	imu := flag.String("imu", config.IMUEndpoint(), "ZeroMQ IMU endpoint, replaces the browser relay (GAZE_IMU_ENDPOINT)")
	record := flag.String("record", "", "Record input messages to a CBOR trace")
	level := flag.String("log-level", config.LogLevel(), "Log level: debug, info, warn, error (GAZE_LOG_LEVEL)")
	fps := flag.Int("fps", config.FPS(), "Render rate (GAZE_FPS)")
	static := flag.String("static", "", "Directory served at /")
	preset := flag.String("preset", cfg.Preset, "Initial settings preset")
	mirror := flag.Bool("mirror", false, "Mirror motion horizontally")
	debug := flag.Bool("debug", false, "Enable debug output")
	debugMotion := flag.Bool("debug-motion", false, "Log every motion centroid")
	debugFusion := flag.Bool("debug-fusion", false, "Log every target change")
	flag.Parse()

	cfg.Port, cfg.Camera, cfg.IMUEndpoint = *port, *camera, *imu
	cfg.RecordPath, cfg.FPS, cfg.StaticDir = *record, *fps, *static
	cfg.Preset, cfg.Mirror, cfg.Debug = *preset, *mirror, *debug
	cfg.DebugMotion, cfg.DebugFusion = *debugMotion, *debugFusion
	return cfg, *level
}
