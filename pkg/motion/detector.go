// Package motion turns a camera feed into a smoothed gaze target by frame
// differencing. Only every Nth pixel is compared, which keeps one frame well
// under a 16ms budget at 640x480.
package motion

import (
	"github.com/teslashibe/go-gaze/pkg/gaze"
)

// Frame is one packed video frame. Pix holds Height rows of Width pixels,
// Channels bytes per pixel. The first three channels are compared; channel
// order does not matter.
type Frame struct {
	Width    int
	Height   int
	Channels int
	Pix      []byte
}

// Valid reports whether the frame holds enough bytes for its dimensions.
func (f *Frame) Valid() bool {
	return f.Width > 0 && f.Height > 0 && f.Channels >= 3 &&
		len(f.Pix) >= f.Width*f.Height*f.Channels
}

// Detector compares consecutive frames and reports the centroid of changed pixels.
type Detector struct {
	stride    int
	threshold float64

	prev                    []byte
	width, height, channels int
	hasPrev                 bool
}

// NewDetector creates a detector sampling every stride pixels on both axes.
// A pixel moves when its averaged RGB difference exceeds threshold (0-255).
func NewDetector(stride int, threshold float64) *Detector {
	if stride < 1 {
		stride = 1
	}
	return &Detector{stride: stride, threshold: threshold}
}

// Detect compares f against the previous frame and returns the normalized
// centroid of moving pixels. ok is false for the first frame, after a size
// change, for invalid frames, and when nothing moved.
func (d *Detector) Detect(f *Frame) (sample gaze.MotionSample, ok bool) {
	if !f.Valid() {
		return gaze.MotionSample{}, false
	}

	if !d.hasPrev || f.Width != d.width || f.Height != d.height || f.Channels != d.channels {
		d.store(f)
		return gaze.MotionSample{}, false
	}

	var sumX, sumY float64
	moving := 0
	rowBytes := f.Width * f.Channels

	for y := 0; y < f.Height; y += d.stride {
		row := y * rowBytes
		for x := 0; x < f.Width; x += d.stride {
			i := row + x*f.Channels
			diff := (absDiff(f.Pix[i], d.prev[i]) +
				absDiff(f.Pix[i+1], d.prev[i+1]) +
				absDiff(f.Pix[i+2], d.prev[i+2])) / 3
			if diff > d.threshold {
				sumX += float64(x)
				sumY += float64(y)
				moving++
			}
		}
	}

	d.store(f)

	if moving == 0 {
		return gaze.MotionSample{}, false
	}

	return gaze.MotionSample{
		X: sumX / float64(moving) / float64(f.Width),
		Y: sumY / float64(moving) / float64(f.Height),
	}, true
}

// Reset drops the previous frame.
func (d *Detector) Reset() {
	d.hasPrev = false
	d.prev = d.prev[:0]
}

func (d *Detector) store(f *Frame) {
	n := f.Width * f.Height * f.Channels
	if cap(d.prev) < n {
		d.prev = make([]byte, n)
	}
	d.prev = d.prev[:n]
	copy(d.prev, f.Pix[:n])
	d.width, d.height, d.channels = f.Width, f.Height, f.Channels
	d.hasPrev = true
}

func absDiff(a, b byte) float64 {
	if a > b {
		return float64(a - b)
	}
	return float64(b - a)
}
