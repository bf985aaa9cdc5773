package protocol

import (
	"encoding/binary"
	"fmt"
)

// Datagram flags (first byte on the wire). Offline handshake messages never
// set FlagValid, so the two packet families cannot collide.
const (
	FlagValid uint8 = 0x80 // set on every connected datagram
	FlagAck   uint8 = 0x40 // payload is acknowledgment ranges
	FlagNack  uint8 = 0x20 // payload is negative-acknowledgment ranges
	FlagSplit uint8 = 0x10 // frame header flag: message is one part of a split
)

// DatagramHeaderSize is the flags byte plus the 24-bit datagram sequence
// number.
const DatagramHeaderSize = 1 + 3

// MaxUint24 is the largest value representable in a 24-bit sequence field.
const MaxUint24 uint32 = 1<<24 - 1

// PutUint24 writes v into b[0:3] big-endian. Values wrap at 2^24.
func PutUint24(b []byte, v uint32) {
	b[0] = byte(v >> 16)
	b[1] = byte(v >> 8)
	b[2] = byte(v)
}

// Uint24 reads a big-endian 24-bit value from b[0:3].
func Uint24(b []byte) uint32 {
	return uint32(b[0])<<16 | uint32(b[1])<<8 | uint32(b[2])
}

// Seq24After reports whether a is after b in the circular 24-bit sequence
// space. RFC 1982 serial arithmetic, shifted so the 24-bit distance lands in
// the sign bit of an int32.
func Seq24After(a, b uint32) bool {
	return int32((a-b)<<8) > 0
}

// Seq24Diff returns the forward distance from b to a in the circular 24-bit
// sequence space.
func Seq24Diff(a, b uint32) uint32 {
	return (a - b) & MaxUint24
}

// Frame is one message (or one part of a split message) carried inside a
// datagram.
//
// Wire layout:
//
//	Byte  0:    [Reliability:3][FlagSplit:1][reserved:4]
//	Byte  1-2:  Payload length
//	MessageIndex   (3 bytes), reliable types only
//	SequencingIndex(3 bytes), sequenced types only
//	OrderingIndex  (3 bytes) + OrderingChannel (1 byte), ordered/sequenced only
//	SplitCount (4) + SplitID (2) + SplitIndex (4), split frames only
//	Payload
type Frame struct {
	Reliability Reliability

	MessageIndex    uint32 // per-connection reliable message number
	SequencingIndex uint32
	OrderingIndex   uint32
	OrderingChannel uint8

	Split      bool
	SplitCount uint32
	SplitID    uint16
	SplitIndex uint32

	Payload []byte
}

// HeaderSize returns the encoded size of the frame header for the frame's
// reliability type and split flag.
func (f *Frame) HeaderSize() int {
	n := 3 // flags + length
	if f.Reliability.IsReliable() {
		n += 3
	}
	if f.Reliability.IsSequenced() {
		n += 3
	}
	if f.Reliability.IsOrdered() || f.Reliability.IsSequenced() {
		n += 4
	}
	if f.Split {
		n += 10
	}
	return n
}

// Size returns the total encoded size of the frame.
func (f *Frame) Size() int {
	return f.HeaderSize() + len(f.Payload)
}

// MaxFrameHeaderSize is the worst-case frame header (reliable, sequenced,
// ordered, split).
const MaxFrameHeaderSize = 3 + 3 + 3 + 4 + 10

// MaxPayloadSize returns the largest single-frame payload that fits in one
// datagram at the given MTU. Payloads above this must be split.
func MaxPayloadSize(mtu uint16) int {
	return int(mtu) - DatagramHeaderSize - MaxFrameHeaderSize
}

// AppendFrame encodes the frame onto buf and returns the extended slice.
func AppendFrame(buf []byte, f *Frame) []byte {
	flags := byte(f.Reliability) << 5
	if f.Split {
		flags |= FlagSplit
	}
	buf = append(buf, flags)
	buf = binary.BigEndian.AppendUint16(buf, uint16(len(f.Payload)))
	var idx [3]byte
	if f.Reliability.IsReliable() {
		PutUint24(idx[:], f.MessageIndex)
		buf = append(buf, idx[:]...)
	}
	if f.Reliability.IsSequenced() {
		PutUint24(idx[:], f.SequencingIndex)
		buf = append(buf, idx[:]...)
	}
	if f.Reliability.IsOrdered() || f.Reliability.IsSequenced() {
		PutUint24(idx[:], f.OrderingIndex)
		buf = append(buf, idx[:]...)
		buf = append(buf, f.OrderingChannel)
	}
	if f.Split {
		buf = binary.BigEndian.AppendUint32(buf, f.SplitCount)
		buf = binary.BigEndian.AppendUint16(buf, f.SplitID)
		buf = binary.BigEndian.AppendUint32(buf, f.SplitIndex)
	}
	return append(buf, f.Payload...)
}

// ReadFrame decodes one frame from data, returning the frame and the number
// of bytes consumed. The payload aliases data; callers keeping the frame past
// the buffer's lifetime must copy it.
func ReadFrame(data []byte) (*Frame, int, error) {
	if len(data) < 3 {
		return nil, 0, ErrPacketTooShort
	}
	f := &Frame{
		Reliability: Reliability(data[0] >> 5),
		Split:       data[0]&FlagSplit != 0,
	}
	if f.Reliability > ReliableOrderedWithReceipt {
		return nil, 0, fmt.Errorf("bad reliability type %d", data[0]>>5)
	}
	payloadLen := int(binary.BigEndian.Uint16(data[1:3]))
	off := 3
	need := func(n int) bool { return len(data) >= off+n }
	if f.Reliability.IsReliable() {
		if !need(3) {
			return nil, 0, ErrPacketTooShort
		}
		f.MessageIndex = Uint24(data[off:])
		off += 3
	}
	if f.Reliability.IsSequenced() {
		if !need(3) {
			return nil, 0, ErrPacketTooShort
		}
		f.SequencingIndex = Uint24(data[off:])
		off += 3
	}
	if f.Reliability.IsOrdered() || f.Reliability.IsSequenced() {
		if !need(4) {
			return nil, 0, ErrPacketTooShort
		}
		f.OrderingIndex = Uint24(data[off:])
		f.OrderingChannel = data[off+3]
		off += 4
		if f.OrderingChannel >= NumOrderingChannels {
			return nil, 0, ErrBadOrderingChannel
		}
	}
	if f.Split {
		if !need(10) {
			return nil, 0, ErrPacketTooShort
		}
		f.SplitCount = binary.BigEndian.Uint32(data[off:])
		f.SplitID = binary.BigEndian.Uint16(data[off+4:])
		f.SplitIndex = binary.BigEndian.Uint32(data[off+6:])
		off += 10
	}
	if !need(payloadLen) {
		return nil, 0, fmt.Errorf("frame truncated: have %d bytes, need %d", len(data)-off, payloadLen)
	}
	f.Payload = data[off : off+payloadLen]
	return f, off + payloadLen, nil
}

// Datagram is the connected wire unit: a sequenced bundle of frames.
type Datagram struct {
	Seq    uint32
	Frames []*Frame
}

// Size returns the encoded size of the datagram.
func (d *Datagram) Size() int {
	n := DatagramHeaderSize
	for _, f := range d.Frames {
		n += f.Size()
	}
	return n
}

// Marshal serializes the datagram to wire format, appending to buf.
func (d *Datagram) Marshal(buf []byte) []byte {
	buf = append(buf, FlagValid)
	var seq [3]byte
	PutUint24(seq[:], d.Seq)
	buf = append(buf, seq[:]...)
	for _, f := range d.Frames {
		buf = AppendFrame(buf, f)
	}
	return buf
}

// UnmarshalDatagram parses a connected data datagram. Frame payloads alias
// data.
func UnmarshalDatagram(data []byte) (*Datagram, error) {
	if len(data) < DatagramHeaderSize {
		return nil, ErrPacketTooShort
	}
	if data[0]&FlagValid == 0 {
		return nil, fmt.Errorf("not a connected datagram: flags %#x", data[0])
	}
	d := &Datagram{Seq: Uint24(data[1:4])}
	rest := data[DatagramHeaderSize:]
	if len(rest) == 0 {
		return nil, fmt.Errorf("datagram %d carries no frames", d.Seq)
	}
	for len(rest) > 0 {
		f, n, err := ReadFrame(rest)
		if err != nil {
			return nil, fmt.Errorf("frame %d: %w", len(d.Frames), err)
		}
		d.Frames = append(d.Frames, f)
		rest = rest[n:]
	}
	return d, nil
}
