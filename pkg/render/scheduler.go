// Package render drives per-eye recomputation. One goroutine owns every eye;
// other goroutines change layout or viewport by sending commands.
package render

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/teslashibe/go-gaze/pkg/eye"
	"github.com/teslashibe/go-gaze/pkg/fusion"
	"github.com/teslashibe/go-gaze/pkg/gaze"
	"github.com/teslashibe/go-gaze/pkg/grid"
	"github.com/teslashibe/go-gaze/pkg/motion"
	"github.com/teslashibe/go-gaze/pkg/settings"
)

// Config tunes the scheduler.
type Config struct {
	FPS        int  // Animation cadence
	AutoLayout bool // Lay eyes out with pkg/grid from settings and viewport
}

// DefaultConfig returns 60 FPS with automatic grid layout.
func DefaultConfig() Config {
	return Config{FPS: 60, AutoLayout: true}
}

// EyeState is one eye in a published frame.
type EyeState struct {
	ID       string           `json:"id"`
	Geometry gaze.EyeGeometry `json:"geometry"`
	Offset   gaze.Vector      `json:"offset"`
}

// Frame is the state of every eye after one tick.
type Frame struct {
	Seq      uint64        `json:"seq"`
	Target   gaze.Target   `json:"target"`
	Viewport gaze.Viewport `json:"viewport"`
	Eyes     []EyeState    `json:"eyes"`
	Layout   bool          `json:"layout"` // Eye set or geometry changed this tick
}

// Sink receives published frames. PublishFrame must not block.
type Sink interface {
	PublishFrame(f Frame)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(Frame)

// PublishFrame implements Sink.
func (f SinkFunc) PublishFrame(fr Frame) { f(fr) }

// ViewportObserver is implemented by sources that scale into the viewport.
type ViewportObserver interface {
	SetViewport(v gaze.Viewport)
}

// MappingObserver is implemented by sources that use the orientation mapping.
type MappingObserver interface {
	SetMapping(m settings.Mapping)
}

// Stats are scheduler counters.
type Stats struct {
	Ticks     uint64 `json:"ticks"`
	Published uint64 `json:"published"`
	Eyes      int64  `json:"eyes"`
}

type command func(*Scheduler)

// Scheduler owns the eyes and recomputes them from the fused target.
type Scheduler struct {
	cfg    Config
	fuser  *fusion.Fuser
	store  *settings.Store
	logger *slog.Logger

	cmds chan command

	// loopMu guards running/done and is held for every Tick. While no loop
	// runs, commands apply directly under it.
	loopMu  sync.Mutex
	running bool
	done    chan struct{}

	// Loop-owned state
	eyes            []*eye.Eye
	index           map[string]*eye.Eye
	viewport        gaze.Viewport
	target          gaze.Target
	settings        settings.Settings
	settingsVersion uint64
	params          eye.Params
	layoutDirty     bool
	seq             uint64

	sinksMu sync.RWMutex
	sinks   []Sink

	lastMu sync.RWMutex
	last   Frame

	ticks     atomic.Uint64
	published atomic.Uint64
	eyeCount  atomic.Int64
}

// New creates a scheduler reading targets from fuser and tunables from store.
func New(cfg Config, fuser *fusion.Fuser, store *settings.Store, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.FPS <= 0 {
		cfg.FPS = DefaultConfig().FPS
	}
	if store == nil {
		store = settings.NewStore()
	}
	s := &Scheduler{
		cfg:    cfg,
		fuser:  fuser,
		store:  store,
		logger: logger,
		cmds:   make(chan command, 256),
		index:  make(map[string]*eye.Eye),
	}
	s.settings, s.settingsVersion = store.Snapshot()
	s.params = eye.ParamsFrom(s.settings)
	return s
}

// AddSink registers a frame consumer.
func (s *Scheduler) AddSink(sink Sink) {
	s.sinksMu.Lock()
	defer s.sinksMu.Unlock()
	s.sinks = append(s.sinks, sink)
}

// AddEye queues a new eye and returns its ID.
func (s *Scheduler) AddEye(geom gaze.EyeGeometry) string {
	e := eye.New(geom)
	s.submit(func(s *Scheduler) {
		s.eyes = append(s.eyes, e)
		s.index[e.ID()] = e
		s.layoutDirty = true
	})
	return e.ID()
}

// RemoveEye queues removal of an eye.
func (s *Scheduler) RemoveEye(id string) {
	s.submit(func(s *Scheduler) {
		if _, ok := s.index[id]; !ok {
			return
		}
		delete(s.index, id)
		for i, e := range s.eyes {
			if e.ID() == id {
				s.eyes = append(s.eyes[:i], s.eyes[i+1:]...)
				break
			}
		}
		s.layoutDirty = true
	})
}

// SetGeometry queues a new bounding box for one eye, as reported by a host
// after resize or scroll.
func (s *Scheduler) SetGeometry(id string, geom gaze.EyeGeometry) {
	s.submit(func(s *Scheduler) {
		if e, ok := s.index[id]; ok && e.SetGeometry(geom) {
			s.layoutDirty = true
		}
	})
}

// SetLayout queues a full layout. Existing eyes keep their IDs by position;
// extra eyes are added and surplus eyes removed.
func (s *Scheduler) SetLayout(geoms []gaze.EyeGeometry) {
	s.submit(func(s *Scheduler) {
		s.applyLayout(geoms)
	})
}

// SetViewport queues a viewport change and forwards it to the sources.
func (s *Scheduler) SetViewport(v gaze.Viewport) {
	s.submit(func(s *Scheduler) {
		if v == s.viewport {
			return
		}
		s.viewport = v
		for _, src := range s.sources() {
			if o, ok := src.(ViewportObserver); ok {
				o.SetViewport(v)
			}
		}
		if s.cfg.AutoLayout {
			s.relayout()
		}
		for _, e := range s.eyes {
			e.MarkDirty()
		}
		s.layoutDirty = true
	})
}

// submit hands cmd to the running loop, or applies it directly when no
// loop runs. It never blocks past the loop's exit.
func (s *Scheduler) submit(cmd command) {
	s.loopMu.Lock()
	if !s.running {
		s.applyCommands()
		cmd(s)
		s.loopMu.Unlock()
		return
	}
	done := s.done
	s.loopMu.Unlock()

	select {
	case s.cmds <- cmd:
	case <-done:
		s.submit(cmd)
	}
}

// Run ticks at the configured FPS until ctx is cancelled. A second
// concurrent Run returns immediately.
func (s *Scheduler) Run(ctx context.Context) {
	s.loopMu.Lock()
	if s.running {
		s.loopMu.Unlock()
		return
	}
	s.running = true
	done := make(chan struct{})
	s.done = done
	s.loopMu.Unlock()

	defer func() {
		s.loopMu.Lock()
		s.running = false
		s.applyCommands()
		close(done)
		s.loopMu.Unlock()
	}()

	ticker := time.NewTicker(time.Second / time.Duration(s.cfg.FPS))
	defer ticker.Stop()

	s.logger.Info("render scheduler started", "fps", s.cfg.FPS, "auto_layout", s.cfg.AutoLayout)

	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("render scheduler stopped", "ticks", s.ticks.Load())
			return
		case now := <-ticker.C:
			dt := now.Sub(last).Seconds()
			last = now
			// Clamp long stalls so springs do not jump
			if dt > 0.1 {
				dt = 0.1
			}
			s.Tick(dt)
		}
	}
}

// Tick applies queued commands, resolves the target and advances every eye
// that needs it. It publishes and returns a frame when anything moved.
func (s *Scheduler) Tick(dt float64) (Frame, bool) {
	s.loopMu.Lock()
	frame, ok := s.tick(dt)
	s.loopMu.Unlock()

	if ok {
		s.publish(frame)
	}
	return frame, ok
}

// tick advances the eyes. Caller holds loopMu.
func (s *Scheduler) tick(dt float64) (Frame, bool) {
	s.ticks.Add(1)
	s.applyCommands()

	settingsChanged := s.refreshSettings()

	var target gaze.Target
	targetChanged := false
	if s.fuser != nil {
		target, targetChanged = s.fuser.Tick()
	}
	s.target = target

	smooth := s.useSpring(target)
	moved := false
	for _, e := range s.eyes {
		if targetChanged || settingsChanged || e.Dirty() {
			if err := e.Retarget(target.Point, s.viewport, s.params); err != nil {
				s.logger.Debug("eye not measured", "id", e.ID(), "error", err)
			}
		}
		if e.Animating() {
			if e.Advance(dt, s.settings.Damping, s.settings.Stiffness, smooth) {
				moved = true
			}
		}
	}

	s.eyeCount.Store(int64(len(s.eyes)))

	layout := s.layoutDirty
	s.layoutDirty = false
	if !moved && !targetChanged && !layout {
		return Frame{}, false
	}

	return s.snapshot(layout), true
}

// Last returns the most recently published frame.
func (s *Scheduler) Last() Frame {
	s.lastMu.RLock()
	defer s.lastMu.RUnlock()
	return s.last
}

// Stats returns scheduler counters.
func (s *Scheduler) Stats() Stats {
	return Stats{
		Ticks:     s.ticks.Load(),
		Published: s.published.Load(),
		Eyes:      s.eyeCount.Load(),
	}
}

func (s *Scheduler) applyCommands() {
	for {
		select {
		case cmd := <-s.cmds:
			cmd(s)
		default:
			return
		}
	}
}

// refreshSettings picks up a new settings version. Reports whether eyes
// need a retarget.
func (s *Scheduler) refreshSettings() bool {
	cur, version := s.store.Snapshot()
	if version == s.settingsVersion {
		return false
	}
	prev := s.settings
	s.settings, s.settingsVersion = cur, version
	s.params = eye.ParamsFrom(cur)

	if cur.Mapping != prev.Mapping {
		for _, src := range s.sources() {
			if o, ok := src.(MappingObserver); ok {
				o.SetMapping(cur.Mapping)
			}
		}
	}
	if s.cfg.AutoLayout && (cur.EyeCount != prev.EyeCount || cur.EyeScale != prev.EyeScale) {
		s.relayout()
		s.layoutDirty = true
	}
	s.logger.Debug("settings applied", "version", version)
	return true
}

func (s *Scheduler) useSpring(t gaze.Target) bool {
	switch s.settings.Spring {
	case settings.SpringNever:
		return false
	case settings.SpringUnbuffered:
		return t.Source != motion.Name
	default:
		return true
	}
}

func (s *Scheduler) relayout() {
	s.applyLayout(grid.Layout(s.viewport, s.settings.EyeCount, s.settings.EyeScale))
}

func (s *Scheduler) applyLayout(geoms []gaze.EyeGeometry) {
	for i, g := range geoms {
		if i < len(s.eyes) {
			s.eyes[i].SetGeometry(g)
			continue
		}
		e := eye.New(g)
		s.eyes = append(s.eyes, e)
		s.index[e.ID()] = e
	}
	for _, e := range s.eyes[len(geoms):] {
		delete(s.index, e.ID())
	}
	if len(geoms) < len(s.eyes) {
		s.eyes = s.eyes[:len(geoms)]
	}
	s.layoutDirty = true
}

func (s *Scheduler) sources() []fusion.Source {
	if s.fuser == nil {
		return nil
	}
	return s.fuser.Sources()
}

func (s *Scheduler) snapshot(layout bool) Frame {
	s.seq++
	states := make([]EyeState, len(s.eyes))
	for i, e := range s.eyes {
		states[i] = EyeState{ID: e.ID(), Geometry: e.Geometry(), Offset: e.Offset()}
	}
	return Frame{
		Seq:      s.seq,
		Target:   s.target,
		Viewport: s.viewport,
		Eyes:     states,
		Layout:   layout,
	}
}

func (s *Scheduler) publish(f Frame) {
	s.lastMu.Lock()
	s.last = f
	s.lastMu.Unlock()

	s.sinksMu.RLock()
	sinks := s.sinks
	s.sinksMu.RUnlock()

	for _, sink := range sinks {
		sink.PublishFrame(f)
	}
	s.published.Add(1)
}
