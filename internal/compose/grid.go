// Package compose tiles the latest frame of every stream into a single
// fixed-size canvas and produces the hit-test geometry for the audio
// controls drawn on each tile.
package compose

import (
	"image"
	"image/color"
	"image/draw"
	"math"

	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/zsiec/mosaic/internal/media"
)

// Layout returns the grid dimensions for n streams: rows = ceil(sqrt(n)),
// cols = ceil(n/rows), so rows*cols >= n.
func Layout(n int) (rows, cols int) {
	if n <= 0 {
		return 0, 0
	}
	rows = int(math.Ceil(math.Sqrt(float64(n))))
	cols = (n + rows - 1) / rows
	return rows, cols
}

// Tile is one stream's render input. A nil Frame leaves the cell blank.
type Tile struct {
	Frame        *media.Frame
	Label        string
	AudioCapable bool
	AudioOn      bool
}

// Geometry is the canvas-space rectangle set produced for one tile index.
// Present is false when the tile had no frame, in which case neither
// rectangle is meaningful.
type Geometry struct {
	Index      int
	Present    bool
	Tile       image.Rectangle
	Control    image.Rectangle
	HasControl bool
}

// Fixed offsets inside a cell, in canvas pixels.
const (
	labelOffsetX = 10
	labelOffsetY = 25

	controlSize   = 28
	controlMargin = 10
)

var (
	labelColor     = color.RGBA{G: 255, A: 255}
	controlOnColor = color.RGBA{G: 255, A: 255}
	controlOffCol  = color.RGBA{R: 200, G: 200, B: 200, A: 255}
	controlBack    = color.RGBA{A: 160}
	muteColor      = color.RGBA{R: 220, A: 255}
)

// Compositor renders stream tiles onto a reusable canvas. Remainder
// pixels from integer cell division stay black along the right and
// bottom edges.
type Compositor struct {
	width   int
	height  int
	overlay bool
	canvas  *image.RGBA
}

// New creates a compositor with a fixed canvas size. overlay controls
// whether stream labels are drawn.
func New(width, height int, overlay bool) *Compositor {
	return &Compositor{
		width:   width,
		height:  height,
		overlay: overlay,
		canvas:  image.NewRGBA(image.Rect(0, 0, width, height)),
	}
}

// Compose renders one tile per stream in index order and returns the
// canvas plus per-index geometry. The canvas is fully cleared first, so
// no cell carries pixels from a previous cycle. The returned image is
// reused by the next Compose call; callers must consume it before then.
func (c *Compositor) Compose(tiles []Tile) (*image.RGBA, []Geometry) {
	for i := range c.canvas.Pix {
		c.canvas.Pix[i] = 0
	}

	geoms := make([]Geometry, len(tiles))
	rows, cols := Layout(len(tiles))
	if rows == 0 {
		return c.canvas, geoms
	}

	cellW := c.width / cols
	cellH := c.height / rows

	for i, t := range tiles {
		geoms[i].Index = i
		if t.Frame == nil {
			continue
		}

		x := (i % cols) * cellW
		y := (i / cols) * cellH
		cell := image.Rect(x, y, x+cellW, y+cellH)

		xdraw.ApproxBiLinear.Scale(c.canvas, cell, t.Frame.Image, t.Frame.Bounds(), draw.Src, nil)

		geoms[i].Present = true
		geoms[i].Tile = cell

		if c.overlay && t.Label != "" {
			c.drawLabel(t.Label, cell)
		}
		if t.AudioCapable {
			ctrl := image.Rect(
				cell.Max.X-controlMargin-controlSize,
				cell.Min.Y+controlMargin,
				cell.Max.X-controlMargin,
				cell.Min.Y+controlMargin+controlSize,
			)
			c.drawControl(ctrl, t.AudioOn)
			geoms[i].Control = ctrl
			geoms[i].HasControl = true
		}
	}

	return c.canvas, geoms
}

func (c *Compositor) drawLabel(label string, cell image.Rectangle) {
	d := font.Drawer{
		Dst:  c.canvas,
		Src:  image.NewUniform(labelColor),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(cell.Min.X+labelOffsetX, cell.Min.Y+labelOffsetY),
	}
	d.DrawString(label)
}

// drawControl renders the audio-toggle glyph: a speaker over a darkened
// backdrop, green when playing, gray with a mute bar when off.
func (c *Compositor) drawControl(r image.Rectangle, on bool) {
	draw.Draw(c.canvas, r, image.NewUniform(controlBack), image.Point{}, draw.Over)

	col := controlOffCol
	if on {
		col = controlOnColor
	}

	// Speaker body: a small box on the left half, vertically centered.
	bodyW := r.Dx() / 4
	bodyH := r.Dy() / 3
	body := image.Rect(
		r.Min.X+bodyW/2,
		r.Min.Y+(r.Dy()-bodyH)/2,
		r.Min.X+bodyW/2+bodyW,
		r.Min.Y+(r.Dy()-bodyH)/2+bodyH,
	)
	draw.Draw(c.canvas, body, image.NewUniform(col), image.Point{}, draw.Src)

	// Cone: rows widen toward the right edge of the glyph.
	coneX0 := body.Max.X
	coneX1 := r.Max.X - bodyW/2
	midY := r.Min.Y + r.Dy()/2
	for x := coneX0; x < coneX1; x++ {
		h := (x - coneX0 + 1) * (r.Dy() - 4) / (2 * (coneX1 - coneX0))
		for y := midY - h; y <= midY+h; y++ {
			c.canvas.SetRGBA(x, y, col)
		}
	}

	if !on {
		// Mute bar: diagonal across the glyph.
		for i := 0; i < r.Dx(); i++ {
			y := r.Min.Y + i*r.Dy()/r.Dx()
			c.canvas.SetRGBA(r.Min.X+i, y, muteColor)
			c.canvas.SetRGBA(r.Min.X+i, y+1, muteColor)
		}
	}
}
