// Package display implements the viewer's output surface with an SDL
// window, renderer, and streaming texture. All calls must come from the
// render loop goroutine; SDL event pumping is not thread-safe.
package display

import (
	"fmt"
	"image"

	"github.com/veandco/go-sdl2/sdl"

	"github.com/zsiec/mosaic/internal/viewer"
)

// Window is an SDL-backed viewer.Surface with a fixed logical canvas
// size. The renderer's logical size keeps click coordinates in canvas
// space even when the OS window is resized or fullscreened.
type Window struct {
	window   *sdl.Window
	renderer *sdl.Renderer
	texture  *sdl.Texture

	width      int
	height     int
	fullscreen bool
}

// NewWindow creates the SDL window and rendering pipeline.
func NewWindow(title string, width, height int, fullscreen bool) (*Window, error) {
	if err := sdl.InitSubSystem(sdl.INIT_VIDEO | sdl.INIT_EVENTS); err != nil {
		return nil, fmt.Errorf("display: init SDL: %w", err)
	}

	win, err := sdl.CreateWindow(title,
		sdl.WINDOWPOS_UNDEFINED, sdl.WINDOWPOS_UNDEFINED,
		int32(width), int32(height),
		sdl.WINDOW_SHOWN|sdl.WINDOW_RESIZABLE)
	if err != nil {
		return nil, fmt.Errorf("display: create window: %w", err)
	}

	ren, err := sdl.CreateRenderer(win, -1, sdl.RENDERER_ACCELERATED|sdl.RENDERER_PRESENTVSYNC)
	if err != nil {
		win.Destroy()
		return nil, fmt.Errorf("display: create renderer: %w", err)
	}
	if err := ren.SetLogicalSize(int32(width), int32(height)); err != nil {
		ren.Destroy()
		win.Destroy()
		return nil, fmt.Errorf("display: set logical size: %w", err)
	}

	// ABGR8888 matches image.RGBA's byte order on little-endian hosts.
	tex, err := ren.CreateTexture(sdl.PIXELFORMAT_ABGR8888, sdl.TEXTUREACCESS_STREAMING,
		int32(width), int32(height))
	if err != nil {
		ren.Destroy()
		win.Destroy()
		return nil, fmt.Errorf("display: create texture: %w", err)
	}

	w := &Window{
		window:   win,
		renderer: ren,
		texture:  tex,
		width:    width,
		height:   height,
	}
	if fullscreen {
		if err := w.ToggleFullscreen(); err != nil {
			w.Close()
			return nil, err
		}
	}
	return w, nil
}

// Present uploads the composed image and flips it to the screen. img must
// match the canvas dimensions the window was created with.
func (w *Window) Present(img *image.RGBA) error {
	if img.Rect.Dx() != w.width || img.Rect.Dy() != w.height {
		return fmt.Errorf("display: image %dx%d does not match canvas %dx%d",
			img.Rect.Dx(), img.Rect.Dy(), w.width, w.height)
	}
	if err := w.texture.Update(nil, img.Pix, img.Stride); err != nil {
		return fmt.Errorf("display: texture update: %w", err)
	}
	if err := w.renderer.Clear(); err != nil {
		return fmt.Errorf("display: renderer clear: %w", err)
	}
	if err := w.renderer.Copy(w.texture, nil, nil); err != nil {
		return fmt.Errorf("display: renderer copy: %w", err)
	}
	w.renderer.Present()
	return nil
}

// PollEvents drains the SDL event queue, translating window close and
// Escape to Quit, F to FullscreenToggle, and left presses to Click in
// canvas coordinates.
func (w *Window) PollEvents() []viewer.Event {
	var events []viewer.Event
	for ev := sdl.PollEvent(); ev != nil; ev = sdl.PollEvent() {
		switch e := ev.(type) {
		case *sdl.QuitEvent:
			events = append(events, viewer.Quit{})
		case *sdl.KeyboardEvent:
			if e.Type != sdl.KEYDOWN || e.Repeat != 0 {
				continue
			}
			switch e.Keysym.Sym {
			case sdl.K_ESCAPE:
				events = append(events, viewer.Quit{})
			case sdl.K_f:
				events = append(events, viewer.FullscreenToggle{})
			}
		case *sdl.MouseButtonEvent:
			if e.Type == sdl.MOUSEBUTTONDOWN && e.Button == sdl.BUTTON_LEFT {
				events = append(events, viewer.Click{X: int(e.X), Y: int(e.Y)})
			}
		}
	}
	return events
}

// ToggleFullscreen flips between desktop fullscreen and windowed mode.
func (w *Window) ToggleFullscreen() error {
	var flags uint32
	if !w.fullscreen {
		flags = sdl.WINDOW_FULLSCREEN_DESKTOP
	}
	if err := w.window.SetFullscreen(flags); err != nil {
		return fmt.Errorf("display: set fullscreen: %w", err)
	}
	w.fullscreen = !w.fullscreen
	return nil
}

// Close destroys the rendering pipeline and the window.
func (w *Window) Close() {
	w.texture.Destroy()
	w.renderer.Destroy()
	w.window.Destroy()
	sdl.QuitSubSystem(sdl.INIT_VIDEO | sdl.INIT_EVENTS)
}
