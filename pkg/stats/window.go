package stats

// WindowConfig tunes a Window2D.
type WindowConfig struct {
	Capacity   int     // Samples kept per axis
	MinSamples int     // Samples required before a smoothed value is produced
	Sigma      float64 // Outlier threshold in standard deviations
}

// DefaultWindowConfig returns the position-buffer defaults: 10 samples,
// smoothed output from 3 samples on, 2 sigma outlier rejection.
func DefaultWindowConfig() WindowConfig {
	return WindowConfig{
		Capacity:   10,
		MinSamples: 3,
		Sigma:      2.0,
	}
}

// Window2D buffers paired x/y samples and produces an outlier-filtered average
// per axis. Axes are filtered independently.
type Window2D struct {
	cfg WindowConfig
	x   *Ring
	y   *Ring
}

// NewWindow2D creates an empty window.
func NewWindow2D(cfg WindowConfig) *Window2D {
	if cfg.MinSamples < 1 {
		cfg.MinSamples = 1
	}
	return &Window2D{
		cfg: cfg,
		x:   NewRing(cfg.Capacity),
		y:   NewRing(cfg.Capacity),
	}
}

// Push adds one sample to both axes.
func (w *Window2D) Push(x, y float64) {
	w.x.Push(x)
	w.y.Push(y)
}

// Len returns the number of buffered samples.
func (w *Window2D) Len() int {
	return w.x.Len()
}

// Reset clears both axes.
func (w *Window2D) Reset() {
	w.x.Reset()
	w.y.Reset()
}

// Smoothed returns the filtered average of each axis.
// ok is false until MinSamples samples have been buffered.
func (w *Window2D) Smoothed() (x, y float64, ok bool) {
	if w.x.Len() < w.cfg.MinSamples {
		return 0, 0, false
	}
	x, _ = FilteredMean(w.x.Slice(), w.cfg.Sigma)
	y, _ = FilteredMean(w.y.Slice(), w.cfg.Sigma)
	return x, y, true
}

// Latest returns the most recent sample without filtering.
func (w *Window2D) Latest() (x, y float64, ok bool) {
	xs, ys := w.x.Slice(), w.y.Slice()
	if len(xs) == 0 {
		return 0, 0, false
	}
	return xs[len(xs)-1], ys[len(ys)-1], true
}
