// Package fusion reduces several gaze sources to one target per tick.
// Sources are consulted in a fixed priority order and the first one with a
// position wins; the last source is expected to always have one.
package fusion

import (
	"log/slog"
	"sync"

	"github.com/teslashibe/go-gaze/pkg/debug"
	"github.com/teslashibe/go-gaze/pkg/gaze"
	"github.com/teslashibe/go-gaze/pkg/settings"
)

// Source is anything that can offer a gaze position.
type Source interface {
	Name() string
	Available() bool
	Position() (gaze.Point, bool)
}

// Notifier is implemented by sources that signal new samples.
type Notifier interface {
	Updates() <-chan struct{}
}

// Resolve returns the position of the first available source.
// ok is false only when no source has a position.
func Resolve(sources ...Source) (gaze.Target, bool) {
	for _, s := range sources {
		if s == nil || !s.Available() {
			continue
		}
		if p, ok := s.Position(); ok {
			return gaze.Target{Point: p, Source: s.Name()}, true
		}
	}
	return gaze.Target{}, false
}

// OrientationReader is the part of an orientation source fusion needs.
type OrientationReader interface {
	Name() string
	Available() bool
	Latest() (gaze.OrientationSample, bool)
}

// OrientationSource maps an orientation reader into viewport positions.
type OrientationSource struct {
	reader OrientationReader

	mu       sync.RWMutex
	mapping  settings.Mapping
	viewport gaze.Viewport
}

// NewOrientationSource wraps reader with the given mapping.
func NewOrientationSource(reader OrientationReader, m settings.Mapping) *OrientationSource {
	return &OrientationSource{reader: reader, mapping: m}
}

// SetMapping replaces the mapping constants.
func (o *OrientationSource) SetMapping(m settings.Mapping) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.mapping = m
}

// SetViewport sets the screen the tilt is mapped onto.
func (o *OrientationSource) SetViewport(v gaze.Viewport) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.viewport = v
}

// Name implements Source.
func (o *OrientationSource) Name() string {
	return o.reader.Name()
}

// Available implements Source.
func (o *OrientationSource) Available() bool {
	return o.reader.Available()
}

// Position implements Source.
func (o *OrientationSource) Position() (gaze.Point, bool) {
	sample, ok := o.reader.Latest()
	if !ok {
		return gaze.Point{}, false
	}
	o.mu.RLock()
	m, v := o.mapping, o.viewport
	o.mu.RUnlock()
	return MapOrientation(sample, m, v)
}

// Updates forwards the reader's notifications when it has any.
func (o *OrientationSource) Updates() <-chan struct{} {
	if n, ok := o.reader.(Notifier); ok {
		return n.Updates()
	}
	return nil
}

// Fuser resolves the target once per tick and tracks changes.
// It is not safe for concurrent use; the render loop owns it.
type Fuser struct {
	sources []Source
	logger  *slog.Logger

	last    gaze.Target
	hasLast bool
}

// NewFuser creates a fuser over sources in priority order, highest first.
func NewFuser(logger *slog.Logger, sources ...Source) *Fuser {
	if logger == nil {
		logger = slog.Default()
	}
	return &Fuser{sources: sources, logger: logger}
}

// Sources returns the sources in priority order.
func (f *Fuser) Sources() []Source {
	return f.sources
}

// Drain empties every source's notification channel and reports whether
// any source signaled since the last call.
func (f *Fuser) Drain() bool {
	signaled := false
	for _, s := range f.sources {
		n, ok := s.(Notifier)
		if !ok {
			continue
		}
		ch := n.Updates()
		if ch == nil {
			continue
		}
	drain:
		for {
			select {
			case <-ch:
				signaled = true
			default:
				break drain
			}
		}
	}
	return signaled
}

// Tick drains notifications and resolves the target. changed is true when
// the target point or its source differs from the previous tick. When no
// source has a position the previous target is kept.
func (f *Fuser) Tick() (target gaze.Target, changed bool) {
	f.Drain()

	t, ok := Resolve(f.sources...)
	if !ok {
		return f.last, false
	}

	if f.hasLast && t == f.last {
		return t, false
	}

	if !f.hasLast || t.Source != f.last.Source {
		f.logger.Info("gaze source active", "source", t.Source)
	}
	debug.FusionLog("🎯 target %s (%.0f, %.0f)\n", t.Source, t.X, t.Y)

	f.last = t
	f.hasLast = true
	return t, true
}

// Last returns the most recent target.
func (f *Fuser) Last() (gaze.Target, bool) {
	return f.last, f.hasLast
}
