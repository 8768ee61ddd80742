package audio

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	mp3 "github.com/hajimehoshi/go-mp3"
	"github.com/veandco/go-sdl2/sdl"
)

// audioQueueHighWater caps the SDL queue at roughly half a second of
// 44.1kHz stereo 16-bit PCM so toggling off never leaves seconds of
// already-queued audio playing.
const audioQueueHighWater = 96 * 1024

// pumpChunkSize is the PCM read size per decoder pull.
const pumpChunkSize = 16 * 1024

// Player streams a sidecar MP3 URL to an SDL audio device. go-mp3 emits
// 16-bit little-endian stereo PCM at the stream's native sample rate,
// which maps directly onto an AUDIO_S16LSB device.
type Player struct {
	log *slog.Logger
	url string

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
	dev    sdl.AudioDeviceID
	body   io.Closer
}

// NewPlayer creates a player for the given audio URL. If log is nil,
// slog.Default() is used.
func NewPlayer(rawURL string, log *slog.Logger) *Player {
	if log == nil {
		log = slog.Default()
	}
	return &Player{
		log: log.With("component", "audio-player", "url", rawURL),
		url: rawURL,
	}
}

// SDLStarter returns a Starter producing SDL-backed players.
func SDLStarter(log *slog.Logger) Starter {
	return func(rawURL string) Channel {
		return NewPlayer(rawURL, log)
	}
}

// Start opens the HTTP stream, the MP3 decoder, and an SDL audio device,
// then begins the pump goroutine. Calling Start on an already playing
// player is a no-op.
func (p *Player) Start() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cancel != nil {
		return nil
	}

	if err := sdl.InitSubSystem(sdl.INIT_AUDIO); err != nil {
		return fmt.Errorf("audio: init subsystem: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url, nil)
	if err != nil {
		cancel()
		return fmt.Errorf("audio: request %s: %w", p.url, err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		cancel()
		return fmt.Errorf("audio: fetch %s: %w", p.url, err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		cancel()
		return fmt.Errorf("audio: fetch %s: status %s", p.url, resp.Status)
	}

	dec, err := mp3.NewDecoder(resp.Body)
	if err != nil {
		resp.Body.Close()
		cancel()
		return fmt.Errorf("audio: mp3 decoder: %w", err)
	}

	spec := &sdl.AudioSpec{
		Freq:     int32(dec.SampleRate()),
		Format:   sdl.AUDIO_S16LSB,
		Channels: 2,
		Samples:  4096,
	}
	var obtained sdl.AudioSpec
	dev, err := sdl.OpenAudioDevice("", false, spec, &obtained, 0)
	if err != nil {
		resp.Body.Close()
		cancel()
		return fmt.Errorf("audio: open device: %w", err)
	}
	sdl.PauseAudioDevice(dev, false)

	done := make(chan struct{})
	p.cancel = cancel
	p.done = done
	p.dev = dev
	p.body = resp.Body

	p.log.Info("playback started", "sample_rate", dec.SampleRate())
	go p.pump(ctx, dec, dev, done)

	return nil
}

// pump moves decoded PCM into the SDL queue until the stream ends or the
// player is stopped, throttling against the queue high-water mark.
func (p *Player) pump(ctx context.Context, dec *mp3.Decoder, dev sdl.AudioDeviceID, done chan struct{}) {
	defer close(done)

	buf := make([]byte, pumpChunkSize)
	for {
		if ctx.Err() != nil {
			return
		}
		if sdl.GetQueuedAudioSize(dev) > audioQueueHighWater {
			select {
			case <-ctx.Done():
				return
			case <-time.After(50 * time.Millisecond):
			}
			continue
		}

		n, err := dec.Read(buf)
		if n > 0 {
			if qerr := sdl.QueueAudio(dev, buf[:n]); qerr != nil {
				p.log.Warn("queue audio failed", "error", qerr)
				return
			}
		}
		if err != nil {
			if err != io.EOF && ctx.Err() == nil {
				p.log.Warn("audio stream ended", "error", err)
			}
			return
		}
	}
}

// Stop halts playback and releases the HTTP connection and audio device.
// Safe to call at any time, including when nothing is playing.
func (p *Player) Stop() {
	p.mu.Lock()
	cancel, done, dev, body := p.cancel, p.done, p.dev, p.body
	p.cancel = nil
	p.done = nil
	p.dev = 0
	p.body = nil
	p.mu.Unlock()

	if cancel == nil {
		return
	}

	cancel()
	body.Close()
	<-done
	sdl.ClearQueuedAudio(dev)
	sdl.CloseAudioDevice(dev)
	p.log.Info("playback stopped")
}
