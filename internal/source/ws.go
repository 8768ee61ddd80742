package source

import (
	"bytes"
	"context"
	"fmt"
	"image/jpeg"
	"time"

	"github.com/gorilla/websocket"

	"github.com/zsiec/mosaic/internal/media"
)

// wsReadDeadline bounds each frame read so a silent peer is treated as a
// dead stream and fed to the reconnect path.
const wsReadDeadline = 30 * time.Second

// wsSource reads a WebSocket stream that delivers one JPEG picture per
// binary message. Text messages are ignored.
type wsSource struct {
	conn *websocket.Conn
}

func openWebSocket(ctx context.Context, rawURL string) (Source, error) {
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("source: websocket dial %s: %w", rawURL, err)
	}

	// ReadMessage cannot take a context; closing the conn on cancel is
	// what unblocks a worker waiting in ReadFrame during shutdown.
	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	return &wsSource{conn: conn}, nil
}

func (s *wsSource) ReadFrame(ctx context.Context) (*media.Frame, error) {
	for {
		if err := s.conn.SetReadDeadline(time.Now().Add(wsReadDeadline)); err != nil {
			return nil, fmt.Errorf("source: set read deadline: %w", err)
		}
		typ, data, err := s.conn.ReadMessage()
		if err != nil {
			return nil, fmt.Errorf("source: websocket read: %w", err)
		}
		if typ != websocket.BinaryMessage {
			continue
		}

		img, err := jpeg.Decode(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("source: decode jpeg: %w", err)
		}
		return frameFromImage(img), nil
	}
}

func (s *wsSource) Close() error {
	return s.conn.Close()
}
