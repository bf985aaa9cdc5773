package protocol

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/google/uuid"
)

// OfflineMagic distinguishes handshake messages from stray UDP traffic that
// happens to hit our port.
var OfflineMagic = [16]byte{
	0x00, 0xff, 0xff, 0x00, 0xfe, 0xfe, 0xfe, 0xfe,
	0xfd, 0xfd, 0xfd, 0xfd, 0x12, 0x34, 0x56, 0x78,
}

// IsOffline reports whether data is an offline handshake message: a reserved
// message identifier (FlagValid clear) followed by the offline magic.
func IsOffline(data []byte) bool {
	if len(data) < 1+16 || data[0]&FlagValid != 0 {
		return false
	}
	return bytes.Equal(data[1:17], OfflineMagic[:])
}

// OpenConnectionRequest initiates a handshake. Sent repeatedly until a reply
// or refusal arrives.
type OpenConnectionRequest struct {
	GUID    uuid.UUID
	Version uint8
	MTU     uint16
}

func (r *OpenConnectionRequest) Marshal() []byte {
	buf := make([]byte, 1+16+16+1+2)
	buf[0] = byte(IDOpenConnectionRequest)
	copy(buf[1:17], OfflineMagic[:])
	copy(buf[17:33], r.GUID[:])
	buf[33] = r.Version
	binary.BigEndian.PutUint16(buf[34:36], r.MTU)
	return buf
}

func UnmarshalOpenConnectionRequest(data []byte) (*OpenConnectionRequest, error) {
	if len(data) < 36 {
		return nil, ErrPacketTooShort
	}
	r := &OpenConnectionRequest{
		Version: data[33],
		MTU:     binary.BigEndian.Uint16(data[34:36]),
	}
	copy(r.GUID[:], data[17:33])
	return r, nil
}

// OpenConnectionReply accepts a handshake. The initiator transitions to
// connected on receipt.
type OpenConnectionReply struct {
	GUID uuid.UUID
	MTU  uint16 // agreed MTU: min of both sides
}

func (r *OpenConnectionReply) Marshal() []byte {
	buf := make([]byte, 1+16+16+2)
	buf[0] = byte(IDOpenConnectionReply)
	copy(buf[1:17], OfflineMagic[:])
	copy(buf[17:33], r.GUID[:])
	binary.BigEndian.PutUint16(buf[33:35], r.MTU)
	return buf
}

func UnmarshalOpenConnectionReply(data []byte) (*OpenConnectionReply, error) {
	if len(data) < 35 {
		return nil, ErrPacketTooShort
	}
	r := &OpenConnectionReply{MTU: binary.BigEndian.Uint16(data[33:35])}
	copy(r.GUID[:], data[17:33])
	return r, nil
}

// ConnectionRefusal rejects a handshake. Reason is the message identifier the
// initiator should surface to its application (admission refusal or version
// mismatch).
type ConnectionRefusal struct {
	Reason MessageID
	GUID   uuid.UUID
}

func (r *ConnectionRefusal) Marshal() []byte {
	buf := make([]byte, 1+16+16)
	buf[0] = byte(r.Reason)
	copy(buf[1:17], OfflineMagic[:])
	copy(buf[17:33], r.GUID[:])
	return buf
}

func UnmarshalConnectionRefusal(data []byte) (*ConnectionRefusal, error) {
	if len(data) < 33 {
		return nil, ErrPacketTooShort
	}
	r := &ConnectionRefusal{Reason: MessageID(data[0])}
	copy(r.GUID[:], data[17:33])
	return r, nil
}

// MarshalPing builds a connected ping or pong frame payload carrying a
// nanosecond timestamp (pongs echo the ping's timestamp).
func MarshalPing(id MessageID, timestamp int64) []byte {
	buf := make([]byte, 9)
	buf[0] = byte(id)
	binary.BigEndian.PutUint64(buf[1:9], uint64(timestamp))
	return buf
}

// UnmarshalPing extracts the timestamp from a ping/pong payload.
func UnmarshalPing(data []byte) (int64, error) {
	if len(data) < 9 {
		return 0, ErrPacketTooShort
	}
	return int64(binary.BigEndian.Uint64(data[1:9])), nil
}

// MarshalDownloadProgress builds the application-visible progress event for an
// in-flight split message.
func MarshalDownloadProgress(splitID uint16, received, total uint32) []byte {
	buf := make([]byte, 11)
	buf[0] = byte(IDDownloadProgress)
	binary.BigEndian.PutUint16(buf[1:3], splitID)
	binary.BigEndian.PutUint32(buf[3:7], received)
	binary.BigEndian.PutUint32(buf[7:11], total)
	return buf
}

// UnmarshalDownloadProgress parses a progress event payload.
func UnmarshalDownloadProgress(data []byte) (splitID uint16, received, total uint32, err error) {
	if len(data) < 11 {
		return 0, 0, 0, ErrPacketTooShort
	}
	return binary.BigEndian.Uint16(data[1:3]),
		binary.BigEndian.Uint32(data[3:7]),
		binary.BigEndian.Uint32(data[7:11]), nil
}

// MarshalReceipt builds the local IDSndReceiptAcked event payload echoing the
// caller-supplied receipt serial.
func MarshalReceipt(serial uint32) []byte {
	buf := make([]byte, 5)
	buf[0] = byte(IDSndReceiptAcked)
	binary.BigEndian.PutUint32(buf[1:5], serial)
	return buf
}

// UnmarshalReceipt parses an IDSndReceiptAcked payload.
func UnmarshalReceipt(data []byte) (uint32, error) {
	if len(data) < 5 {
		return 0, ErrPacketTooShort
	}
	return binary.BigEndian.Uint32(data[1:5]), nil
}

// ValidateChannel returns an error if ch is not a legal ordering channel.
func ValidateChannel(ch uint8) error {
	if ch >= NumOrderingChannels {
		return fmt.Errorf("%w: %d", ErrBadOrderingChannel, ch)
	}
	return nil
}
