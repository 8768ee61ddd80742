package compose

import (
	"image"
	"sync"
	"testing"
)

func twoTileGeometry() []Geometry {
	return []Geometry{
		{
			Index:      0,
			Present:    true,
			Tile:       image.Rect(0, 0, 100, 100),
			Control:    image.Rect(62, 10, 90, 38),
			HasControl: true,
		},
		{
			Index:      1,
			Present:    true,
			Tile:       image.Rect(100, 0, 200, 100),
			Control:    image.Rect(162, 10, 190, 38),
			HasControl: true,
		},
	}
}

func TestHitTestInsideControl(t *testing.T) {
	t.Parallel()
	geoms := twoTileGeometry()

	if idx, ok := HitTest(geoms, image.Pt(75, 20)); !ok || idx != 0 {
		t.Errorf("click in control 0: got (%d, %v)", idx, ok)
	}
	if idx, ok := HitTest(geoms, image.Pt(175, 20)); !ok || idx != 1 {
		t.Errorf("click in control 1: got (%d, %v)", idx, ok)
	}
}

func TestHitTestTileButNotControl(t *testing.T) {
	t.Parallel()
	// Inside tile 0 but outside its control rect.
	if _, ok := HitTest(twoTileGeometry(), image.Pt(30, 70)); ok {
		t.Error("click in a tile body should not hit")
	}
}

func TestHitTestSkipsAbsentAndControlless(t *testing.T) {
	t.Parallel()
	geoms := twoTileGeometry()
	geoms[0].Present = false
	geoms[1].HasControl = false

	if _, ok := HitTest(geoms, image.Pt(75, 20)); ok {
		t.Error("absent tile should not hit")
	}
	if _, ok := HitTest(geoms, image.Pt(175, 20)); ok {
		t.Error("control-less tile should not hit")
	}
}

func TestDispatcherTogglesExactlyOneStream(t *testing.T) {
	t.Parallel()

	var mu sync.Mutex
	toggled := map[int]int{}
	d := NewDispatcher(func(i int) {
		mu.Lock()
		toggled[i]++
		mu.Unlock()
	})
	d.Update(twoTileGeometry())

	if !d.Click(image.Pt(170, 15)) {
		t.Fatal("click inside control 1 should dispatch")
	}
	if toggled[1] != 1 || toggled[0] != 0 {
		t.Errorf("toggles: got %v, want only stream 1 once", toggled)
	}
}

func TestDispatcherIgnoresMiss(t *testing.T) {
	t.Parallel()

	d := NewDispatcher(func(i int) {
		t.Errorf("unexpected toggle of stream %d", i)
	})
	d.Update(twoTileGeometry())

	if d.Click(image.Pt(5, 95)) {
		t.Error("click outside all controls should not dispatch")
	}
}

func TestDispatcherBeforeFirstRender(t *testing.T) {
	t.Parallel()

	d := NewDispatcher(func(i int) {
		t.Errorf("unexpected toggle of stream %d", i)
	})
	if d.Click(image.Pt(10, 10)) {
		t.Error("no geometry yet, nothing should dispatch")
	}
}
