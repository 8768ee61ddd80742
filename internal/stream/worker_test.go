package stream

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/zsiec/mosaic/internal/audio"
	"github.com/zsiec/mosaic/internal/media"
	"github.com/zsiec/mosaic/internal/source"
)

// testBackoff keeps reconnect cycles fast enough for tests.
var testBackoff = Backoff{Initial: 5 * time.Millisecond, Max: 20 * time.Millisecond}

// fakeSource delivers frames from a channel; closing the kill channel
// makes the next read fail, simulating a mid-stream disconnect.
type fakeSource struct {
	frames chan *media.Frame
	kill   chan struct{}
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		frames: make(chan *media.Frame, 8),
		kill:   make(chan struct{}),
	}
}

func (s *fakeSource) ReadFrame(ctx context.Context) (*media.Frame, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-s.kill:
		return nil, errors.New("connection reset")
	case f := <-s.frames:
		return f, nil
	}
}

func (s *fakeSource) Close() error { return nil }

// fakeDialer hands out a fresh fakeSource per dial, optionally failing
// the first failN attempts.
type fakeDialer struct {
	mu    sync.Mutex
	failN int
	dials int
	cur   *fakeSource
}

func (d *fakeDialer) dial(ctx context.Context, rawURL string) (source.Source, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.dials++
	if d.dials <= d.failN {
		return nil, errors.New("connection refused")
	}
	d.cur = newFakeSource()
	return d.cur, nil
}

func (d *fakeDialer) dialCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dials
}

func (d *fakeDialer) current() *fakeSource {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.cur
}

// fakeChannel is an audio playback handle recording its lifecycle.
type fakeChannel struct {
	mu        sync.Mutex
	active    bool
	starts    int
	failStart bool
}

func (c *fakeChannel) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.starts++
	if c.failStart {
		return errors.New("audio device busy")
	}
	c.active = true
	return nil
}

func (c *fakeChannel) Stop() {
	c.mu.Lock()
	c.active = false
	c.mu.Unlock()
}

func (c *fakeChannel) isActive() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active
}

func (c *fakeChannel) startCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.starts
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func audioIdentity() Identity {
	return Identity{URL: "fake://cam", Label: "Cam 1", AudioURL: "http://fake/audio.mp3"}
}

func TestWorkerConnectAndPublish(t *testing.T) {
	t.Parallel()
	d := &fakeDialer{}
	w := NewWorker(Identity{URL: "fake://cam", Label: "Cam 1"}, d.dial, nil, testBackoff, nil)

	w.Start(context.Background())
	defer w.Stop()

	waitFor(t, "streaming state", func() bool { return w.State() == StateStreaming })

	if _, ok := w.Frame(); ok {
		t.Error("frame should be absent before the first read")
	}

	d.current().frames <- testFrame(4, 4, 0xAA)
	waitFor(t, "published frame", func() bool { _, ok := w.Frame(); return ok })

	f, _ := w.Frame()
	if f.Image.Pix[0] != 0xAA {
		t.Errorf("pixel: got 0x%02X, want 0xAA", f.Image.Pix[0])
	}
	if f.Seq != 1 {
		t.Errorf("seq: got %d, want 1", f.Seq)
	}
}

func TestWorkerStatsCountFrames(t *testing.T) {
	t.Parallel()
	d := &fakeDialer{}
	w := NewWorker(Identity{URL: "fake://cam", Label: "Cam 1"}, d.dial, nil, testBackoff, nil)

	w.Start(context.Background())
	defer w.Stop()

	waitFor(t, "streaming state", func() bool { return w.State() == StateStreaming })

	d.current().frames <- testFrame(4, 4, 0x11)
	d.current().frames <- testFrame(4, 4, 0x22)
	waitFor(t, "frames counted", func() bool { return w.Stats().FrameCount == 2 })

	snap := w.Stats()
	if want := int64(2 * 4 * 4 * 4); snap.BytesReceived != want {
		t.Errorf("bytes: got %d, want %d", snap.BytesReceived, want)
	}
	if snap.ConnectedAt == 0 {
		t.Error("connect time should be stamped")
	}
}

func TestWorkerRetriesFailedConnect(t *testing.T) {
	t.Parallel()
	d := &fakeDialer{failN: 3}
	w := NewWorker(Identity{URL: "fake://cam", Label: "Cam 1"}, d.dial, nil, testBackoff, nil)

	w.Start(context.Background())
	defer w.Stop()

	// Three refused connects, then success.
	waitFor(t, "streaming after retries", func() bool { return w.State() == StateStreaming })
	if got := d.dialCount(); got != 4 {
		t.Errorf("dials: got %d, want 4", got)
	}
}

func TestWorkerReconnectsAfterReadFailure(t *testing.T) {
	t.Parallel()
	d := &fakeDialer{}
	w := NewWorker(Identity{URL: "fake://cam", Label: "Cam 1"}, d.dial, nil, testBackoff, nil)

	w.Start(context.Background())
	defer w.Stop()

	waitFor(t, "first connect", func() bool { return w.State() == StateStreaming })
	first := d.current()
	first.frames <- testFrame(2, 2, 0x11)
	waitFor(t, "first frame", func() bool { _, ok := w.Frame(); return ok })

	close(first.kill)
	waitFor(t, "reconnect", func() bool { return d.dialCount() >= 2 && w.State() == StateStreaming })

	// The cache keeps the pre-disconnect frame rather than blanking.
	f, ok := w.Frame()
	if !ok || f.Image.Pix[0] != 0x11 {
		t.Error("cache should retain the last frame across a reconnect")
	}
}

func TestWorkerStartIdempotentBeforeStop(t *testing.T) {
	t.Parallel()
	d := &fakeDialer{}
	w := NewWorker(Identity{URL: "fake://cam", Label: "Cam 1"}, d.dial, nil, testBackoff, nil)

	w.Start(context.Background())
	w.Start(context.Background()) // no second goroutine
	defer w.Stop()

	waitFor(t, "streaming", func() bool { return w.State() == StateStreaming })
	if got := d.dialCount(); got != 1 {
		t.Errorf("dials: got %d, want 1", got)
	}
}

func TestWorkerStopIsBounded(t *testing.T) {
	t.Parallel()
	d := &fakeDialer{}
	w := NewWorker(Identity{URL: "fake://cam", Label: "Cam 1"}, d.dial, nil, testBackoff, nil)

	w.Start(context.Background())
	waitFor(t, "streaming", func() bool { return w.State() == StateStreaming })

	done := make(chan struct{})
	go func() {
		w.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not return in time")
	}
	if w.State() != StateDisconnected {
		t.Errorf("state after stop: got %s, want disconnected", w.State())
	}
}

func TestWorkerAudioToggle(t *testing.T) {
	t.Parallel()
	d := &fakeDialer{}
	ch := &fakeChannel{}
	starter := func(rawURL string) audio.Channel { return ch }
	w := NewWorker(audioIdentity(), d.dial, starter, testBackoff, nil)

	w.Start(context.Background())
	defer w.Stop()
	waitFor(t, "streaming", func() bool { return w.State() == StateStreaming })

	w.ToggleAudio()
	if !w.AudioOn() || !ch.isActive() {
		t.Fatal("toggle on should start playback while streaming")
	}

	w.ToggleAudio()
	if w.AudioOn() || ch.isActive() {
		t.Fatal("toggle off should stop playback")
	}
}

func TestWorkerAudioResumesAfterReconnect(t *testing.T) {
	t.Parallel()
	d := &fakeDialer{}
	ch := &fakeChannel{}
	starter := func(rawURL string) audio.Channel { return ch }
	w := NewWorker(audioIdentity(), d.dial, starter, testBackoff, nil)

	w.Start(context.Background())
	defer w.Stop()
	waitFor(t, "streaming", func() bool { return w.State() == StateStreaming })

	w.ToggleAudio()
	waitFor(t, "audio active", func() bool { return ch.isActive() })

	close(d.current().kill)
	waitFor(t, "audio resumed after reconnect", func() bool {
		return d.dialCount() >= 2 && w.State() == StateStreaming && ch.isActive()
	})

	if !w.AudioOn() {
		t.Error("desired audio state should survive the disconnect")
	}
	if got := ch.startCount(); got != 2 {
		t.Errorf("audio starts: got %d, want 2 (initial + resume)", got)
	}
}

func TestWorkerAudioOffStaysOffAcrossReconnect(t *testing.T) {
	t.Parallel()
	d := &fakeDialer{}
	ch := &fakeChannel{}
	starter := func(rawURL string) audio.Channel { return ch }
	w := NewWorker(audioIdentity(), d.dial, starter, testBackoff, nil)

	w.Start(context.Background())
	defer w.Stop()
	waitFor(t, "streaming", func() bool { return w.State() == StateStreaming })

	close(d.current().kill)
	waitFor(t, "reconnect", func() bool { return d.dialCount() >= 2 && w.State() == StateStreaming })

	if w.AudioOn() || ch.isActive() || ch.startCount() != 0 {
		t.Error("audio was never enabled, no handle should exist after reconnect")
	}
}

func TestWorkerAudioStartFailureIsIsolated(t *testing.T) {
	t.Parallel()
	d := &fakeDialer{}
	ch := &fakeChannel{failStart: true}
	starter := func(rawURL string) audio.Channel { return ch }
	w := NewWorker(audioIdentity(), d.dial, starter, testBackoff, nil)

	w.Start(context.Background())
	defer w.Stop()
	waitFor(t, "streaming", func() bool { return w.State() == StateStreaming })

	w.ToggleAudio()

	// Desired state reflects user intent even though the device failed,
	// and the video path is untouched.
	if !w.AudioOn() {
		t.Error("audio state should track user intent despite start failure")
	}
	if ch.isActive() {
		t.Error("no playback handle should exist after a failed start")
	}
	if w.State() != StateStreaming {
		t.Error("audio failure must not affect connection state")
	}
}

func TestWorkerAudioDeferredUntilStreaming(t *testing.T) {
	t.Parallel()
	d := &fakeDialer{failN: 1000} // never connects
	ch := &fakeChannel{}
	starter := func(rawURL string) audio.Channel { return ch }
	w := NewWorker(audioIdentity(), d.dial, starter, testBackoff, nil)

	w.Start(context.Background())
	defer w.Stop()
	waitFor(t, "a connect attempt", func() bool { return d.dialCount() >= 1 })

	w.ToggleAudio()
	if !w.AudioOn() {
		t.Error("audio intent should be recorded while disconnected")
	}
	if ch.startCount() != 0 {
		t.Error("playback must not start before the stream is up")
	}
}

func TestWorkerIgnoresAudioWithoutCapability(t *testing.T) {
	t.Parallel()
	d := &fakeDialer{}
	w := NewWorker(Identity{URL: "fake://cam", Label: "Cam 1"}, d.dial, nil, testBackoff, nil)

	w.Start(context.Background())
	defer w.Stop()
	waitFor(t, "streaming", func() bool { return w.State() == StateStreaming })

	w.ToggleAudio()
	if w.AudioOn() {
		t.Error("video-only stream should never report audio on")
	}
}
