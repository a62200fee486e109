package app

import (
	"fmt"
	"log/slog"

	"github.com/teslashibe/go-gaze/pkg/camera"
	"github.com/teslashibe/go-gaze/pkg/fusion"
	"github.com/teslashibe/go-gaze/pkg/gaze"
	"github.com/teslashibe/go-gaze/pkg/motion"
	"github.com/teslashibe/go-gaze/pkg/orientation"
	"github.com/teslashibe/go-gaze/pkg/pointer"
	"github.com/teslashibe/go-gaze/pkg/render"
	"github.com/teslashibe/go-gaze/pkg/settings"
)

// PipelineOptions selects the inputs of a pipeline. Nil fields get defaults:
// a browser relay for orientation and no camera.
type PipelineOptions struct {
	Platform orientation.Platform
	Camera   motion.Camera
	Motion   motion.Config
	Render   render.Config
	Preset   string
	Logger   *slog.Logger
}

// DefaultPipelineOptions returns relay orientation, no camera and the
// default motion and render configs.
func DefaultPipelineOptions() PipelineOptions {
	return PipelineOptions{
		Motion: motion.DefaultConfig(),
		Render: render.DefaultConfig(),
		Preset: "default",
	}
}

// Pipeline is the wired set of sources, fusion and scheduler.
type Pipeline struct {
	Store       *settings.Store
	Pointer     *pointer.Source
	Relay       *orientation.RelayPlatform // Nil when another platform is used
	Orientation *orientation.Source
	Tilt        *fusion.OrientationSource
	Motion      *motion.Source // Nil without a camera
	Fuser       *fusion.Fuser
	Scheduler   *render.Scheduler
}

// NewPipeline wires sources in priority order: motion, orientation, pointer.
func NewPipeline(opts PipelineOptions) (*Pipeline, error) {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	p := &Pipeline{Store: settings.NewStore()}
	if opts.Preset != "" {
		if err := p.Store.ApplyPreset(opts.Preset); err != nil {
			return nil, err
		}
	}

	if errs := opts.Motion.Validate(); len(errs) > 0 {
		return nil, fmt.Errorf("motion config: %v", errs)
	}

	p.Pointer = pointer.New(gaze.Viewport{})

	platform := opts.Platform
	if platform == nil {
		p.Relay = orientation.NewRelayPlatform()
		platform = p.Relay
	}
	p.Orientation = orientation.New(platform, opts.Logger.With("source", orientation.Name))
	p.Tilt = fusion.NewOrientationSource(p.Orientation, p.Store.Get().Mapping)

	sources := make([]fusion.Source, 0, 3)
	if opts.Camera != nil {
		p.Motion = motion.New(opts.Motion, opts.Camera, opts.Logger.With("source", motion.Name))
		sources = append(sources, p.Motion)
	}
	sources = append(sources, p.Tilt, p.Pointer)

	p.Fuser = fusion.NewFuser(opts.Logger, sources...)
	p.Scheduler = render.New(opts.Render, p.Fuser, p.Store, opts.Logger)
	return p, nil
}

// Close stops capture and sensor subscriptions.
func (p *Pipeline) Close() {
	if p.Motion != nil {
		p.Motion.Close()
	}
	p.Orientation.RevokeAccess()
}

// MotionConfigFor derives the motion capture request from a camera config.
func MotionConfigFor(cam camera.Config) motion.Config {
	cfg := motion.DefaultConfig()
	cfg.Width = cam.Width
	cfg.Height = cam.Height
	if cam.Facing != "" {
		cfg.Facing = cam.Facing
	}
	return cfg
}
