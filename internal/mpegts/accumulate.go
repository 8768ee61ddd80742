package mpegts

// accumulator buffers packets for a single PID until a unit boundary: the
// next payload-unit-start packet for PES PIDs, or a complete section for
// PSI PIDs.
type accumulator struct {
	pid     uint16
	psi     func(uint16) bool
	packets []*packet
}

// add buffers p and returns the packets of a completed unit, or nil.
func (a *accumulator) add(p *packet) []*packet {
	if p.transportError {
		a.packets = nil
		return nil
	}
	if !p.hasPayload {
		return nil
	}

	// Continuity accounting: duplicates are dropped, unsignaled jumps
	// discard the partial unit.
	if len(a.packets) > 0 && !p.discontinuity {
		prev := a.packets[len(a.packets)-1].continuityCounter
		if p.continuityCounter != (prev+1)&0x0F {
			if p.continuityCounter == prev {
				return nil
			}
			a.packets = nil
		}
	}

	var complete []*packet
	if p.payloadUnitStart && len(a.packets) > 0 {
		complete = a.packets
		a.packets = nil
	}
	a.packets = append(a.packets, p)

	if complete == nil && a.psi(a.pid) && psiComplete(concatPayloads(a.packets)) {
		complete = a.packets
		a.packets = nil
	}
	return complete
}

func (a *accumulator) flush() []*packet {
	complete := a.packets
	a.packets = nil
	return complete
}

func concatPayloads(packets []*packet) []byte {
	var payload []byte
	for _, p := range packets {
		payload = append(payload, p.payload...)
	}
	return payload
}

// psiComplete reports whether payload holds every section it promises.
func psiComplete(payload []byte) bool {
	if len(payload) < 1 {
		return false
	}
	offset := 1 + int(payload[0]) // pointer field
	if offset >= len(payload) {
		return false
	}
	for offset < len(payload) {
		if payload[offset] == 0xFF {
			return true // stuffing
		}
		if offset+3 > len(payload) {
			return false
		}
		if payload[offset+1]&0x80 == 0 {
			return true // padding, not a section header
		}
		sectionLength := int(payload[offset+1]&0x0F)<<8 | int(payload[offset+2])
		if offset+3+sectionLength > len(payload) {
			return false
		}
		offset += 3 + sectionLength
	}
	return true
}
