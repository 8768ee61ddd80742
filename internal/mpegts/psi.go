package mpegts

import "fmt"

const (
	tableIDPAT = 0x00
	tableIDPMT = 0x02
)

// crcTable is the MPEG-2 CRC32 table (polynomial 0x04C11DB7).
var crcTable [256]uint32

func init() {
	for i := 0; i < 256; i++ {
		crc := uint32(i) << 24
		for j := 0; j < 8; j++ {
			if crc&0x80000000 != 0 {
				crc = (crc << 1) ^ 0x04C11DB7
			} else {
				crc <<= 1
			}
		}
		crcTable[i] = crc
	}
}

func verifyCRC32(data []byte) error {
	if len(data) < 4 {
		return fmt.Errorf("mpegts: section too short for CRC32")
	}
	crc := uint32(0xFFFFFFFF)
	for _, b := range data {
		crc = (crc << 8) ^ crcTable[byte(crc>>24)^b]
	}
	if crc != 0 {
		return fmt.Errorf("mpegts: CRC32 mismatch")
	}
	return nil
}

// parsePSI walks the sections in a PSI payload and returns the parsed
// PAT/PMT units.
func parsePSI(pid uint16, payload []byte) ([]*Data, error) {
	if len(payload) < 1 {
		return nil, fmt.Errorf("mpegts: PSI payload too short")
	}
	offset := 1 + int(payload[0]) // pointer field
	if offset >= len(payload) {
		return nil, fmt.Errorf("mpegts: PSI pointer field out of range")
	}

	var results []*Data
	for offset < len(payload) {
		tableID := payload[offset]
		if tableID == 0xFF {
			break // stuffing
		}
		if offset+3 > len(payload) {
			break
		}
		// section_syntax_indicator is set for PAT/PMT; padding has it clear.
		if payload[offset+1]&0x80 == 0 {
			break
		}
		sectionLength := int(payload[offset+1]&0x0F)<<8 | int(payload[offset+2])
		sectionEnd := offset + 3 + sectionLength
		if sectionEnd > len(payload) {
			break
		}
		section := payload[offset:sectionEnd]

		switch tableID {
		case tableIDPAT:
			pat, err := parsePAT(section)
			if err != nil {
				return results, err
			}
			results = append(results, &Data{PID: pid, PAT: pat})
		case tableIDPMT:
			pmt, err := parsePMT(section)
			if err != nil {
				return results, err
			}
			results = append(results, &Data{PID: pid, PMT: pmt})
		}
		offset = sectionEnd
	}
	return results, nil
}

// parsePAT extracts program number to PMT PID mappings from a PAT section.
// Layout: 8 header bytes, 4-byte program entries, 4-byte CRC32.
func parsePAT(section []byte) (*PAT, error) {
	if err := verifyCRC32(section); err != nil {
		return nil, fmt.Errorf("mpegts: PAT %w", err)
	}
	if len(section) < 12 {
		return nil, fmt.Errorf("mpegts: PAT too short")
	}

	sectionLength := int(section[1]&0x0F)<<8 | int(section[2])
	entryEnd := 3 + sectionLength - 4
	if entryEnd > len(section)-4 {
		entryEnd = len(section) - 4
	}

	pat := &PAT{}
	for i := 8; i+4 <= entryEnd; i += 4 {
		number := uint16(section[i])<<8 | uint16(section[i+1])
		if number == 0 {
			continue // NIT entry
		}
		pat.Programs = append(pat.Programs, Program{
			Number: number,
			PMTPID: uint16(section[i+2]&0x1F)<<8 | uint16(section[i+3]),
		})
	}
	return pat, nil
}

// parsePMT extracts elementary stream entries from a PMT section.
// Layout: 12 header bytes (incl. PCR PID and program_info_length),
// program descriptors, 5-byte stream entries plus ES descriptors, CRC32.
func parsePMT(section []byte) (*PMT, error) {
	if err := verifyCRC32(section); err != nil {
		return nil, fmt.Errorf("mpegts: PMT %w", err)
	}
	if len(section) < 16 {
		return nil, fmt.Errorf("mpegts: PMT too short")
	}

	sectionLength := int(section[1]&0x0F)<<8 | int(section[2])
	sectionEnd := 3 + sectionLength
	programInfoLength := int(section[10]&0x0F)<<8 | int(section[11])
	offset := 12 + programInfoLength

	pmt := &PMT{}
	for offset+5 <= sectionEnd-4 {
		esInfoLength := int(section[offset+3]&0x0F)<<8 | int(section[offset+4])
		pmt.Streams = append(pmt.Streams, ElementaryStream{
			StreamType: section[offset],
			PID:        uint16(section[offset+1]&0x1F)<<8 | uint16(section[offset+2]),
		})
		offset += 5 + esInfoLength
	}
	return pmt, nil
}
