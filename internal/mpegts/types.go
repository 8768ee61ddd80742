// Package mpegts implements the subset of MPEG-TS demuxing the SRT video
// source needs: PAT/PMT discovery with CRC verification and PES
// reassembly with PTS extraction. The pull API yields one logical unit
// per call.
package mpegts

// Data is one demuxed unit. Exactly one of PAT, PMT, or PES is non-nil.
type Data struct {
	PID uint16
	PAT *PAT
	PMT *PMT
	PES *PES
}

// PAT is a parsed Program Association Table.
type PAT struct {
	Programs []Program
}

// Program maps a program number to its PMT PID.
type Program struct {
	Number uint16
	PMTPID uint16
}

// PMT is a parsed Program Map Table.
type PMT struct {
	Streams []ElementaryStream
}

// ElementaryStream describes one elementary stream in a PMT.
type ElementaryStream struct {
	PID        uint16
	StreamType uint8
}

// PES is a reassembled Packetized Elementary Stream unit. PTS is in
// 90 kHz clock ticks, or -1 when the header carried no timestamp.
type PES struct {
	StreamID uint8
	PTS      int64
	Data     []byte
}
