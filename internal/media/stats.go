package media

import (
	"sync/atomic"
	"time"
)

// SourceStats captures connection-level counters for one stream source,
// surfaced by workers in connection-lifecycle log lines.
type SourceStats struct {
	bytesReceived atomic.Int64
	frameCount    atomic.Int64
	connectedAt   atomic.Int64
}

// RecordConnect stamps the connection time and resets nothing else; byte
// and frame counters accumulate across reconnects.
func (s *SourceStats) RecordConnect() {
	s.connectedAt.Store(time.Now().UnixMilli())
}

// RecordFrame increments the frame counter and adds n received bytes.
func (s *SourceStats) RecordFrame(n int) {
	s.frameCount.Add(1)
	s.bytesReceived.Add(int64(n))
}

// Snapshot returns a point-in-time copy of the counters.
func (s *SourceStats) Snapshot() SourceStatsSnapshot {
	connectedAt := s.connectedAt.Load()
	snap := SourceStatsSnapshot{
		BytesReceived: s.bytesReceived.Load(),
		FrameCount:    s.frameCount.Load(),
		ConnectedAt:   connectedAt,
	}
	if connectedAt > 0 {
		snap.UptimeMs = time.Now().UnixMilli() - connectedAt
	}
	return snap
}

// SourceStatsSnapshot is an immutable view of SourceStats.
type SourceStatsSnapshot struct {
	BytesReceived int64 `json:"bytesReceived"`
	FrameCount    int64 `json:"frameCount"`
	ConnectedAt   int64 `json:"connectedAt"`
	UptimeMs      int64 `json:"uptimeMs"`
}
