package stream

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/zsiec/mosaic/internal/audio"
	"github.com/zsiec/mosaic/internal/media"
	"github.com/zsiec/mosaic/internal/source"
)

// State is a worker's connection state. Transitions are driven solely by
// connect/read success and failure; nothing external forces a transition
// except shutdown.
type State int32

// Connection states.
const (
	StateDisconnected State = iota
	StateConnecting
	StateStreaming
)

// String implements fmt.Stringer.
func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateStreaming:
		return "streaming"
	default:
		return "unknown"
	}
}

// Identity names one stream: its connection target, its display label,
// and an optional sidecar audio URL. Immutable for the process lifetime.
// A stream is audio-capable iff AudioURL is set.
type Identity struct {
	URL      string
	Label    string
	AudioURL string
}

// AudioCapable reports whether the stream carries an audio channel.
func (id Identity) AudioCapable() bool {
	return id.AudioURL != ""
}

// Backoff configures the reconnect delay. The delay doubles after each
// failed connect up to Max and resets to Initial after a successful open,
// bounding retry storms against a permanently dead source.
type Backoff struct {
	Initial time.Duration
	Max     time.Duration
}

// DefaultBackoff matches the 1s retry cadence of typical camera viewers,
// capped at 30s.
var DefaultBackoff = Backoff{Initial: time.Second, Max: 30 * time.Second}

// Worker owns one stream: its connection lifecycle, its latest-frame
// cache, and its optional audio channel. Each worker runs in its own
// goroutine and never blocks another worker or the render loop.
type Worker struct {
	log     *slog.Logger
	id      Identity
	dial    source.Dialer
	cache   Cache
	stats   media.SourceStats
	backoff Backoff

	state   atomic.Int32
	seq     atomic.Uint64
	started atomic.Bool

	// audioMu guards desired audio state and the live handle. The desired
	// state survives disconnects; the handle does not.
	audioMu  sync.Mutex
	audioOn  bool
	audioCh  audio.Channel
	newAudio audio.Starter

	cancel context.CancelFunc
	done   chan struct{}
}

// NewWorker creates a worker for the given stream identity. dial opens the
// video source; newAudio builds the playback handle and may be nil for
// audio-incapable deployments. If log is nil, slog.Default() is used.
func NewWorker(id Identity, dial source.Dialer, newAudio audio.Starter, backoff Backoff, log *slog.Logger) *Worker {
	if log == nil {
		log = slog.Default()
	}
	if backoff.Initial <= 0 {
		backoff = DefaultBackoff
	}
	return &Worker{
		log:      log.With("stream", id.Label),
		id:       id,
		dial:     dial,
		newAudio: newAudio,
		backoff:  backoff,
	}
}

// Identity returns the stream's immutable identity.
func (w *Worker) Identity() Identity {
	return w.id
}

// State returns the current connection state.
func (w *Worker) State() State {
	return State(w.state.Load())
}

// Stats returns a snapshot of the worker's source counters.
func (w *Worker) Stats() media.SourceStatsSnapshot {
	return w.stats.Snapshot()
}

// Frame returns a copy of the latest cached frame without blocking on
// I/O, or false if the cache has never been populated.
func (w *Worker) Frame() (*media.Frame, bool) {
	return w.cache.Latest()
}

// Start launches the worker goroutine. It is a no-op after the first
// call. A worker handed to a Manager is started by StartAll instead;
// the two paths are exclusive.
func (w *Worker) Start(ctx context.Context) {
	if !w.started.CompareAndSwap(false, true) {
		return
	}
	ctx, w.cancel = context.WithCancel(ctx)
	w.done = make(chan struct{})
	go func() {
		defer close(w.done)
		w.run(ctx)
	}()
}

// Stop signals termination and waits for the worker goroutine to exit.
// The source connection and any audio handle are released on the way out.
func (w *Worker) Stop() {
	if w.cancel == nil {
		return
	}
	w.cancel()
	<-w.done
}

// run is the connection state machine: Disconnected -> Connecting ->
// Streaming, back to Disconnected on any failure, retried until ctx is
// cancelled.
func (w *Worker) run(ctx context.Context) error {
	defer w.suspendAudio()
	defer w.state.Store(int32(StateDisconnected))

	delay := w.backoff.Initial
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		w.state.Store(int32(StateConnecting))
		src, err := w.dial(ctx, w.id.URL)
		if err != nil {
			w.state.Store(int32(StateDisconnected))
			if ctx.Err() != nil {
				return ctx.Err()
			}
			w.log.Warn("connect failed", "error", err, "retry_in", delay)
			if !sleep(ctx, delay) {
				return ctx.Err()
			}
			delay = nextDelay(delay, w.backoff.Max)
			continue
		}

		w.state.Store(int32(StateStreaming))
		w.stats.RecordConnect()
		w.log.Info("connected")
		delay = w.backoff.Initial
		w.resumeAudio()

		err = w.pull(ctx, src)
		src.Close()
		w.suspendAudio()
		w.state.Store(int32(StateDisconnected))

		if ctx.Err() != nil {
			return ctx.Err()
		}
		snap := w.stats.Snapshot()
		w.log.Warn("stream interrupted", "error", err,
			"frames", snap.FrameCount, "bytes", snap.BytesReceived,
			"uptime_ms", snap.UptimeMs, "retry_in", delay)
		if !sleep(ctx, delay) {
			return ctx.Err()
		}
		delay = nextDelay(delay, w.backoff.Max)
	}
}

// pull reads frames until the source fails or ctx is cancelled, publishing
// each frame to the cache.
func (w *Worker) pull(ctx context.Context, src source.Source) error {
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		frame, err := src.ReadFrame(ctx)
		if err != nil {
			return err
		}
		frame.Seq = w.seq.Add(1)
		w.stats.RecordFrame(len(frame.Image.Pix))
		w.cache.Put(frame)
	}
}

// ToggleAudio flips the desired audio state and starts or stops the
// playback handle accordingly. Start/stop failures are logged; the
// desired state still reflects user intent and the connection state is
// untouched.
func (w *Worker) ToggleAudio() {
	if !w.id.AudioCapable() || w.newAudio == nil {
		return
	}

	w.audioMu.Lock()
	defer w.audioMu.Unlock()

	w.audioOn = !w.audioOn
	if w.audioOn {
		if w.State() != StateStreaming {
			// Handle opens on the next transition into Streaming.
			w.log.Info("audio on, deferred until streaming")
			return
		}
		w.startAudioLocked()
		return
	}
	w.stopAudioLocked()
	w.log.Info("audio off")
}

// AudioOn returns the desired audio state.
func (w *Worker) AudioOn() bool {
	w.audioMu.Lock()
	defer w.audioMu.Unlock()
	return w.audioOn
}

// audioActive reports whether a live playback handle exists.
func (w *Worker) audioActive() bool {
	w.audioMu.Lock()
	defer w.audioMu.Unlock()
	return w.audioCh != nil
}

// resumeAudio restarts playback after a reconnect iff the desired state
// was On before the disconnect.
func (w *Worker) resumeAudio() {
	w.audioMu.Lock()
	defer w.audioMu.Unlock()
	if w.audioOn && w.audioCh == nil && w.newAudio != nil {
		w.startAudioLocked()
	}
}

// suspendAudio releases the playback handle on disconnect or shutdown,
// preserving the desired state for resumeAudio.
func (w *Worker) suspendAudio() {
	w.audioMu.Lock()
	defer w.audioMu.Unlock()
	w.stopAudioLocked()
}

func (w *Worker) startAudioLocked() {
	ch := w.newAudio(w.id.AudioURL)
	if err := ch.Start(); err != nil {
		w.log.Warn("audio start failed", "error", err)
		return
	}
	w.audioCh = ch
	w.log.Info("audio playing")
}

func (w *Worker) stopAudioLocked() {
	if w.audioCh == nil {
		return
	}
	w.audioCh.Stop()
	w.audioCh = nil
}

// nextDelay doubles the reconnect delay up to max.
func nextDelay(d, max time.Duration) time.Duration {
	d *= 2
	if d > max {
		d = max
	}
	return d
}

// sleep waits for d or until ctx is cancelled, reporting whether the full
// delay elapsed.
func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
