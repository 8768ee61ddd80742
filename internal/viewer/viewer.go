// Package viewer drives the render loop: it polls every worker's latest
// frame, composes the grid, presents it to the output surface, and routes
// input events to the hit-test dispatcher.
package viewer

import (
	"context"
	"image"
	"log/slog"
	"time"

	"github.com/zsiec/mosaic/internal/compose"
	"github.com/zsiec/mosaic/internal/media"
	"github.com/zsiec/mosaic/internal/stream"
)

// Input events delivered by the surface. Quit maps from Escape or a
// window close, FullscreenToggle from the F key, Click from a left
// button press in canvas coordinates.
type (
	// Quit requests shutdown.
	Quit struct{}
	// FullscreenToggle flips the window's fullscreen state.
	FullscreenToggle struct{}
	// Click is a pointer press at canvas coordinates.
	Click struct{ X, Y int }
)

// Event is one of Quit, FullscreenToggle, or Click.
type Event any

// Surface is the output side of the render loop. The SDL window
// implements it; tests substitute a headless fake.
type Surface interface {
	Present(img *image.RGBA) error
	PollEvents() []Event
	ToggleFullscreen() error
	Close()
}

// idleDelay is how long the loop sleeps when no worker has produced a
// frame yet, instead of busy-spinning on an all-blank grid.
const idleDelay = 500 * time.Millisecond

// defaultFramePeriod paces rendering at roughly 30 fps.
const defaultFramePeriod = 33 * time.Millisecond

// Viewer owns the render loop state: the worker collection, the
// compositor, the current hit-test geometry, and the output surface.
// It is passed around explicitly; nothing here is package-global.
type Viewer struct {
	log     *slog.Logger
	mgr     *stream.Manager
	comp    *compose.Compositor
	disp    *compose.Dispatcher
	surface Surface

	framePeriod time.Duration
}

// New creates a viewer over the given workers, compositor, and surface.
// If log is nil, slog.Default() is used.
func New(mgr *stream.Manager, comp *compose.Compositor, surface Surface, log *slog.Logger) *Viewer {
	if log == nil {
		log = slog.Default()
	}
	v := &Viewer{
		log:         log.With("component", "viewer"),
		mgr:         mgr,
		comp:        comp,
		surface:     surface,
		framePeriod: defaultFramePeriod,
	}
	v.disp = compose.NewDispatcher(func(i int) {
		mgr.Worker(i).ToggleAudio()
	})
	return v
}

// Run starts all workers and loops until ctx is cancelled or the user
// quits. On the way out it stops every worker (waiting for their
// goroutines) before releasing the surface.
func (v *Viewer) Run(ctx context.Context) error {
	v.mgr.StartAll(ctx)
	defer func() {
		v.mgr.StopAll()
		for _, w := range v.mgr.Workers() {
			snap := w.Stats()
			v.log.Info("stream totals", "stream", w.Identity().Label,
				"frames", snap.FrameCount, "bytes", snap.BytesReceived)
		}
		v.surface.Close()
	}()

	ticker := time.NewTicker(v.framePeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		if v.handleEvents() {
			return nil
		}

		frames := v.mgr.Frames()
		if !anyPresent(frames) {
			// Nothing to draw yet; back off instead of spinning.
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(idleDelay):
			}
			continue
		}

		img, geoms := v.comp.Compose(v.tiles(frames))
		v.disp.Update(geoms)
		if err := v.surface.Present(img); err != nil {
			return err
		}
	}
}

// handleEvents drains pending input, reporting whether a quit was seen.
func (v *Viewer) handleEvents() bool {
	for _, ev := range v.surface.PollEvents() {
		switch e := ev.(type) {
		case Quit:
			v.log.Info("quit requested")
			return true
		case FullscreenToggle:
			if err := v.surface.ToggleFullscreen(); err != nil {
				v.log.Warn("fullscreen toggle failed", "error", err)
			}
		case Click:
			v.disp.Click(image.Pt(e.X, e.Y))
		}
	}
	return false
}

func (v *Viewer) tiles(frames []*media.Frame) []compose.Tile {
	workers := v.mgr.Workers()
	tiles := make([]compose.Tile, len(workers))
	for i, w := range workers {
		id := w.Identity()
		tiles[i] = compose.Tile{
			Frame:        frames[i],
			Label:        id.Label,
			AudioCapable: id.AudioCapable(),
			AudioOn:      w.AudioOn(),
		}
	}
	return tiles
}

func anyPresent(frames []*media.Frame) bool {
	for _, f := range frames {
		if f != nil {
			return true
		}
	}
	return false
}
