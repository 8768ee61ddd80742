package source

import (
	"bytes"
	"context"
	"fmt"
	"image/jpeg"
	"net/url"
	"time"

	srtgo "github.com/zsiec/srtgo"

	"github.com/zsiec/mosaic/internal/media"
	"github.com/zsiec/mosaic/internal/mpegts"
)

// srtDialTimeout bounds the synchronous part of an SRT connect.
const srtDialTimeout = 10 * time.Second

// srtLatencyNs is the SRT latency setting in nanoseconds (120ms).
const srtLatencyNs = 120_000_000

// streamTypePrivatePES is how common muxers mark JPEG pictures in a
// transport stream.
const streamTypePrivatePES = 0x06

// srtSource pulls an MPEG-TS stream over SRT and extracts JPEG pictures
// from the video elementary stream's PES payloads.
type srtSource struct {
	conn     *srtgo.Conn
	demux    *mpegts.Demuxer
	videoPID uint16
}

func openSRT(ctx context.Context, u *url.URL) (Source, error) {
	cfg := srtgo.DefaultConfig()
	cfg.Latency = srtLatencyNs
	if sid := u.Query().Get("streamid"); sid != "" {
		cfg.StreamID = sid
	}

	type dialResult struct {
		conn *srtgo.Conn
		err  error
	}
	ch := make(chan dialResult, 1)
	go func() {
		conn, err := srtgo.Dial(u.Host, cfg)
		ch <- dialResult{conn, err}
	}()

	timer := time.NewTimer(srtDialTimeout)
	defer timer.Stop()

	select {
	case res := <-ch:
		if res.err != nil {
			return nil, fmt.Errorf("source: srt dial %s: %w", u.Host, res.err)
		}
		// Closing the conn on cancel unblocks a worker waiting in
		// ReadFrame during shutdown.
		go func() {
			<-ctx.Done()
			res.conn.Close()
		}()
		return &srtSource{
			conn:  res.conn,
			demux: mpegts.NewDemuxer(res.conn),
		}, nil

	case <-timer.C:
		// Drain the dial result in the background and close any leaked connection.
		go func() {
			if res := <-ch; res.conn != nil {
				res.conn.Close()
			}
		}()
		return nil, fmt.Errorf("source: srt dial %s: timed out after %s", u.Host, srtDialTimeout)

	case <-ctx.Done():
		go func() {
			if res := <-ch; res.conn != nil {
				res.conn.Close()
			}
		}()
		return nil, ctx.Err()
	}
}

func (s *srtSource) ReadFrame(ctx context.Context) (*media.Frame, error) {
	for {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		data, err := s.demux.Next()
		if err != nil {
			return nil, fmt.Errorf("source: srt demux: %w", err)
		}

		switch {
		case data.PMT != nil:
			if s.videoPID == 0 {
				s.videoPID = pickVideoPID(data.PMT)
			}
		case data.PES != nil && s.videoPID != 0 && data.PID == s.videoPID:
			img, err := jpeg.Decode(bytes.NewReader(data.PES.Data))
			if err != nil {
				continue // non-picture payloads on the video PID
			}
			return frameFromImage(img), nil
		}
	}
}

func (s *srtSource) Close() error {
	s.conn.Close()
	return nil
}

// pickVideoPID selects the elementary stream carrying pictures: the first
// private-PES entry if present, otherwise the first entry.
func pickVideoPID(pmt *mpegts.PMT) uint16 {
	for _, es := range pmt.Streams {
		if es.StreamType == streamTypePrivatePES {
			return es.PID
		}
	}
	if len(pmt.Streams) > 0 {
		return pmt.Streams[0].PID
	}
	return 0
}
