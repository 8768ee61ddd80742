package mpegts

import (
	"errors"
	"io"
)

// Demuxer reads transport stream packets from a reader and yields parsed
// PAT, PMT, and PES units. Cancellation is the caller's concern: closing
// the underlying reader makes Next return its error.
type Demuxer struct {
	reader  io.Reader
	readBuf []byte
	pmtPIDs map[uint16]bool
	accs    map[uint16]*accumulator
	pending []*Data
	eof     bool
}

// NewDemuxer creates a demuxer reading 188-byte packets from r.
func NewDemuxer(r io.Reader) *Demuxer {
	return &Demuxer{
		reader:  r,
		readBuf: make([]byte, PacketSize),
		pmtPIDs: make(map[uint16]bool),
		accs:    make(map[uint16]*accumulator),
	}
}

// Next returns the next demuxed unit, or io.EOF once the stream and all
// buffered partial units are exhausted.
func (d *Demuxer) Next() (*Data, error) {
	for {
		if len(d.pending) > 0 {
			unit := d.pending[0]
			d.pending = d.pending[1:]
			return unit, nil
		}
		if d.eof {
			return nil, io.EOF
		}

		if _, err := io.ReadFull(d.reader, d.readBuf); err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				d.eof = true
				d.drain()
				continue
			}
			return nil, err
		}

		pkt, err := parsePacket(d.readBuf)
		if err != nil {
			continue // resync on corrupt packets
		}

		complete := d.accumulate(pkt)
		if complete == nil {
			continue
		}
		d.enqueue(pkt.pid, complete)
	}
}

func (d *Demuxer) isPSI(pid uint16) bool {
	return pid == pidPAT || d.pmtPIDs[pid]
}

func (d *Demuxer) accumulate(pkt *packet) []*packet {
	acc, ok := d.accs[pkt.pid]
	if !ok {
		acc = &accumulator{pid: pkt.pid, psi: d.isPSI}
		d.accs[pkt.pid] = acc
	}
	return acc.add(pkt)
}

// enqueue parses a completed unit and appends its results to pending,
// registering PMT PIDs discovered via PAT along the way.
func (d *Demuxer) enqueue(pid uint16, packets []*packet) {
	payload := concatPayloads(packets)
	if len(payload) == 0 {
		return
	}

	if d.isPSI(pid) {
		results, err := parsePSI(pid, payload)
		if err != nil {
			return // skip corrupt sections
		}
		for _, r := range results {
			if r.PAT != nil {
				for _, p := range r.PAT.Programs {
					d.pmtPIDs[p.PMTPID] = true
				}
			}
		}
		d.pending = append(d.pending, results...)
		return
	}

	if isPESPayload(payload) {
		pes, err := parsePES(payload)
		if err != nil {
			return
		}
		d.pending = append(d.pending, &Data{PID: pid, PES: pes})
	}
}

// drain flushes partial units at EOF. PID order matters so the PAT (PID 0)
// registers PMT PIDs before their sections are parsed; map iteration is
// replaced by two passes.
func (d *Demuxer) drain() {
	if acc, ok := d.accs[pidPAT]; ok {
		if packets := acc.flush(); packets != nil {
			d.enqueue(pidPAT, packets)
		}
	}
	for pid, acc := range d.accs {
		if pid == pidPAT {
			continue
		}
		if packets := acc.flush(); packets != nil {
			d.enqueue(pid, packets)
		}
	}
}
