package source

import (
	"image"
	"image/draw"
	"time"

	"github.com/zsiec/mosaic/internal/media"
)

// frameFromImage wraps a decoded image in a Frame, converting to RGBA
// when the decoder produced another color model (JPEG decodes to YCbCr).
func frameFromImage(img image.Image) *media.Frame {
	rgba, ok := img.(*image.RGBA)
	if !ok {
		rgba = image.NewRGBA(img.Bounds())
		draw.Draw(rgba, rgba.Rect, img, img.Bounds().Min, draw.Src)
	}
	return &media.Frame{
		Image:      rgba,
		CapturedAt: time.Now(),
	}
}
