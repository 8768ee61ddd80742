package mpegts

import "fmt"

const (
	// PacketSize is the fixed transport stream packet size.
	PacketSize = 188

	syncByte = 0x47
	pidPAT   = 0x0000
)

// packet is a parsed transport stream packet header plus payload.
type packet struct {
	pid               uint16
	continuityCounter uint8
	payloadUnitStart  bool
	transportError    bool
	discontinuity     bool
	hasPayload        bool
	payload           []byte
}

func parsePacket(buf []byte) (*packet, error) {
	if len(buf) != PacketSize {
		return nil, fmt.Errorf("mpegts: packet size %d, expected %d", len(buf), PacketSize)
	}
	if buf[0] != syncByte {
		return nil, fmt.Errorf("mpegts: invalid sync byte 0x%02X", buf[0])
	}

	p := &packet{
		transportError:    buf[1]&0x80 != 0,
		payloadUnitStart:  buf[1]&0x40 != 0,
		pid:               uint16(buf[1]&0x1F)<<8 | uint16(buf[2]),
		hasPayload:        buf[3]&0x10 != 0,
		continuityCounter: buf[3] & 0x0F,
	}

	offset := 4
	if buf[3]&0x20 != 0 { // adaptation field present
		if offset >= PacketSize {
			return p, nil
		}
		afLen := int(buf[offset])
		if afLen > 0 && offset+1 < PacketSize {
			p.discontinuity = buf[offset+1]&0x80 != 0
		}
		offset += 1 + afLen
		if offset > PacketSize {
			offset = PacketSize
		}
	}

	if p.hasPayload && offset < PacketSize {
		p.payload = make([]byte, PacketSize-offset)
		copy(p.payload, buf[offset:])
	}

	return p, nil
}
