// Package media defines the frame type that flows from stream workers
// through the latest-frame caches into the compositor.
package media

import (
	"image"
	"time"
)

// Frame is a single decoded picture. The pixel buffer is owned by exactly
// one goroutine at a time: workers hand copies to their cache, and the
// render loop receives copies from it. A Frame is never shared by reference
// across goroutines.
type Frame struct {
	Image      *image.RGBA
	Seq        uint64
	CapturedAt time.Time
}

// Bounds returns the pixel bounds of the frame image.
func (f *Frame) Bounds() image.Rectangle {
	return f.Image.Bounds()
}

// Clone returns a deep copy of the frame, including the pixel buffer.
func (f *Frame) Clone() *Frame {
	img := image.NewRGBA(f.Image.Rect)
	copy(img.Pix, f.Image.Pix)
	img.Stride = f.Image.Stride
	return &Frame{
		Image:      img,
		Seq:        f.Seq,
		CapturedAt: f.CapturedAt,
	}
}
