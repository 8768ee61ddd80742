package mpegts

import "fmt"

// isPESPayload checks for the PES start code prefix (0x000001).
func isPESPayload(payload []byte) bool {
	return len(payload) >= 3 && payload[0] == 0x00 && payload[1] == 0x00 && payload[2] == 0x01
}

// parsePES parses a reassembled PES packet, extracting the PTS when the
// optional header carries one.
func parsePES(payload []byte) (*PES, error) {
	if len(payload) < 6 {
		return nil, fmt.Errorf("mpegts: PES packet too short (%d bytes)", len(payload))
	}
	if !isPESPayload(payload) {
		return nil, fmt.Errorf("mpegts: invalid PES start code")
	}

	streamID := payload[3]
	packetLength := int(payload[4])<<8 | int(payload[5])
	pes := &PES{StreamID: streamID, PTS: -1}

	// Stream IDs without an optional header: padding (0xBE),
	// private_stream_2 (0xBF), ECM/EMM (0xF0/0xF1), DSMCC (0xF2),
	// H.222.1 type E (0xF8), directory (0xFF).
	switch streamID {
	case 0xBE, 0xBF, 0xF0, 0xF1, 0xF2, 0xF8, 0xFF:
		if packetLength > 0 && 6+packetLength <= len(payload) {
			pes.Data = payload[6 : 6+packetLength]
		} else {
			pes.Data = payload[6:]
		}
		return pes, nil
	}

	if len(payload) < 9 {
		return nil, fmt.Errorf("mpegts: PES optional header too short")
	}

	ptsDTSFlags := (payload[7] >> 6) & 0x03
	headerDataLength := int(payload[8])
	dataStart := 9 + headerDataLength
	if dataStart > len(payload) {
		dataStart = len(payload)
	}

	// DTS (flags == 3) is parsed past but not kept; the viewer has no
	// decode-reorder path.
	if ptsDTSFlags >= 2 && len(payload) >= 14 {
		pes.PTS = parseTimestamp(payload[9:14])
	}

	if packetLength > 0 {
		if end := 6 + packetLength; end <= len(payload) {
			// Both lengths come from the wire and can disagree; a header
			// claiming more bytes than the packet holds is malformed.
			if dataStart > end {
				return nil, fmt.Errorf("mpegts: PES header data length %d overruns packet length %d",
					headerDataLength, packetLength)
			}
			pes.Data = payload[dataStart:end]
			return pes, nil
		}
	}
	// packetLength == 0 means unbounded, the norm for video.
	pes.Data = payload[dataStart:]
	return pes, nil
}

// parseTimestamp extracts the 33-bit 90 kHz timestamp from 5 PES
// timestamp bytes.
func parseTimestamp(bs []byte) int64 {
	return int64(bs[0]>>1&0x07)<<30 |
		int64(bs[1])<<22 |
		int64(bs[2]>>1&0x7F)<<15 |
		int64(bs[3])<<7 |
		int64(bs[4]>>1&0x7F)
}
