package source

import (
	"context"
	"fmt"
	"image/jpeg"
	"mime"
	"mime/multipart"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/zsiec/mosaic/internal/media"
)

// mjpegClient dials and waits for response headers with bounded timeouts
// but places no deadline on the body, which streams for the lifetime of
// the connection. Cancelling the request context aborts in-flight body
// reads, which is how workers get bounded shutdown.
var mjpegClient = &http.Client{
	Transport: &http.Transport{
		DialContext: (&net.Dialer{
			Timeout: 10 * time.Second,
		}).DialContext,
		ResponseHeaderTimeout: 10 * time.Second,
	},
}

// mjpegSource reads a multipart/x-mixed-replace MJPEG stream, one JPEG
// image per part.
type mjpegSource struct {
	resp  *http.Response
	parts *multipart.Reader
}

func openMJPEG(ctx context.Context, rawURL string) (Source, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("source: request %s: %w", rawURL, err)
	}

	resp, err := mjpegClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("source: connect %s: %w", rawURL, err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("source: connect %s: status %s", rawURL, resp.Status)
	}

	mediaType, params, err := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if err != nil || !strings.HasPrefix(mediaType, "multipart/") {
		resp.Body.Close()
		return nil, fmt.Errorf("source: %s is not a multipart MJPEG stream (content-type %q)", rawURL, resp.Header.Get("Content-Type"))
	}
	boundary := params["boundary"]
	if boundary == "" {
		resp.Body.Close()
		return nil, fmt.Errorf("source: %s: multipart response without boundary", rawURL)
	}

	return &mjpegSource{
		resp:  resp,
		parts: multipart.NewReader(resp.Body, boundary),
	}, nil
}

func (s *mjpegSource) ReadFrame(ctx context.Context) (*media.Frame, error) {
	part, err := s.parts.NextPart()
	if err != nil {
		return nil, fmt.Errorf("source: next part: %w", err)
	}
	defer part.Close()

	img, err := jpeg.Decode(part)
	if err != nil {
		return nil, fmt.Errorf("source: decode jpeg: %w", err)
	}
	return frameFromImage(img), nil
}

func (s *mjpegSource) Close() error {
	return s.resp.Body.Close()
}
