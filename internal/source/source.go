// Package source opens live video sources by URL and turns them into a
// sequence of decoded frames. Supported schemes: http/https (multipart
// MJPEG), ws/wss (one JPEG per binary message), and srt (MPEG-TS carrying
// JPEG pictures).
package source

import (
	"context"
	"fmt"
	"net/url"

	"github.com/zsiec/mosaic/internal/media"
)

// Source is an open connection to one video stream. ReadFrame blocks until
// the next frame arrives, the source fails, or ctx is cancelled; it is
// expected to return within bounded time rather than hang.
type Source interface {
	ReadFrame(ctx context.Context) (*media.Frame, error)
	Close() error
}

// Dialer opens a source for a stream URL. Workers hold a Dialer rather
// than a concrete source so tests can substitute synthetic streams.
type Dialer func(ctx context.Context, rawURL string) (Source, error)

// Open dials rawURL using the scheme-appropriate transport. An unknown
// scheme is a connect failure like any other and feeds the caller's
// reconnect path.
func Open(ctx context.Context, rawURL string) (Source, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("source: parse %q: %w", rawURL, err)
	}

	switch u.Scheme {
	case "http", "https":
		return openMJPEG(ctx, rawURL)
	case "ws", "wss":
		return openWebSocket(ctx, rawURL)
	case "srt":
		return openSRT(ctx, u)
	default:
		return nil, fmt.Errorf("source: unsupported scheme %q", u.Scheme)
	}
}
