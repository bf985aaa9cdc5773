package protocol

import "encoding/binary"

// AckRange is a contiguous inclusive range of datagram sequence numbers being
// acknowledged (or negatively acknowledged).
type AckRange struct {
	Min uint32
	Max uint32
}

// maxAckRanges bounds how many ranges fit in a single ack datagram.
const maxAckRanges = 128

// MarshalAckDatagram encodes acknowledgment ranges as a complete wire
// datagram. nack selects the negative-acknowledgment flag.
//
// Payload format: count (2 bytes) then per range a single-sequence marker
// byte followed by Min (3 bytes) and, for multi-sequence ranges, Max (3 bytes).
func MarshalAckDatagram(nack bool, ranges []AckRange) []byte {
	if len(ranges) > maxAckRanges {
		ranges = ranges[:maxAckRanges]
	}
	flags := FlagValid | FlagAck
	if nack {
		flags = FlagValid | FlagNack
	}
	buf := make([]byte, 3, 3+7*len(ranges))
	buf[0] = flags
	binary.BigEndian.PutUint16(buf[1:3], uint16(len(ranges)))
	var seq [3]byte
	for _, r := range ranges {
		if r.Min == r.Max {
			buf = append(buf, 1)
			PutUint24(seq[:], r.Min)
			buf = append(buf, seq[:]...)
		} else {
			buf = append(buf, 0)
			PutUint24(seq[:], r.Min)
			buf = append(buf, seq[:]...)
			PutUint24(seq[:], r.Max)
			buf = append(buf, seq[:]...)
		}
	}
	return buf
}

// UnmarshalAckRanges parses the payload of an ack/nack datagram (everything
// after the flags byte).
func UnmarshalAckRanges(data []byte) ([]AckRange, error) {
	if len(data) < 2 {
		return nil, ErrPacketTooShort
	}
	n := int(binary.BigEndian.Uint16(data[0:2]))
	if n > maxAckRanges {
		return nil, ErrPacketTooShort
	}
	off := 2
	ranges := make([]AckRange, 0, n)
	for i := 0; i < n; i++ {
		if len(data) < off+4 {
			return nil, ErrPacketTooShort
		}
		single := data[off] == 1
		min := Uint24(data[off+1:])
		off += 4
		max := min
		if !single {
			if len(data) < off+3 {
				return nil, ErrPacketTooShort
			}
			max = Uint24(data[off:])
			off += 3
		}
		ranges = append(ranges, AckRange{Min: min, Max: max})
	}
	return ranges, nil
}

// RangesFromSeqs merges a batch of sequence numbers into sorted contiguous
// ranges. seqs must be sorted ascending; duplicates are tolerated.
func RangesFromSeqs(seqs []uint32) []AckRange {
	if len(seqs) == 0 {
		return nil
	}
	ranges := []AckRange{{Min: seqs[0], Max: seqs[0]}}
	for _, s := range seqs[1:] {
		last := &ranges[len(ranges)-1]
		switch {
		case s == last.Max || s == (last.Max+1)&MaxUint24:
			last.Max = s
		default:
			ranges = append(ranges, AckRange{Min: s, Max: s})
		}
	}
	return ranges
}
