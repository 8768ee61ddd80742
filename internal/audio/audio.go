// Package audio implements the optional per-stream audio channel. A
// channel pulls a sidecar MP3 stream over HTTP, decodes it to PCM, and
// queues the samples on an SDL audio device. The channel lifecycle is
// fully decoupled from the video path: start and stop failures are
// reported to the caller and never touch the stream connection.
package audio

// Channel is one stream's playback handle. Start opens the handle and
// begins playback; Stop releases it and is a no-op when nothing is
// playing. Both are safe to call from the worker goroutine and the input
// path concurrently.
type Channel interface {
	Start() error
	Stop()
}

// Starter builds a Channel for a stream's audio URL. Workers hold a
// Starter so tests can substitute a fake playback handle.
type Starter func(rawURL string) Channel
