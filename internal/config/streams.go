package config

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/zsiec/mosaic/internal/stream"
)

// ErrNoStreams is returned when the stream list is missing or empty.
// Startup treats it as a user message plus clean exit, not a crash.
var ErrNoStreams = errors.New("no streams configured")

// LoadStreams reads the stream list: one stream per line as
// "video-url [audio-url]", with blank lines and #-comments ignored.
// Labels are assigned "Cam 1".."Cam N" in file order.
func LoadStreams(path string) ([]stream.Identity, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s not found", ErrNoStreams, path)
		}
		return nil, fmt.Errorf("config: open %s: %w", path, err)
	}
	defer f.Close()

	var ids []stream.Identity
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		fields := strings.Fields(line)
		id := stream.Identity{
			URL:   fields[0],
			Label: fmt.Sprintf("Cam %d", len(ids)+1),
		}
		if len(fields) > 1 {
			id.AudioURL = fields[1]
		}
		ids = append(ids, id)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("%w: %s is empty", ErrNoStreams, path)
	}
	return ids, nil
}
