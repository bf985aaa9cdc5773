package protocol

import "errors"

// Protocol version carried in connection requests. Peers speaking a
// different version never complete a handshake.
const Version uint8 = 1

// Sentinel errors shared across packages.
var (
	ErrAlreadyConnected   = errors.New("already connected to that address")
	ErrNotConnected       = errors.New("no connection to that address")
	ErrMaxConnections     = errors.New("maximum connection count reached")
	ErrShutdown           = errors.New("peer is shut down")
	ErrPacketTooShort     = errors.New("packet too short")
	ErrBadOrderingChannel = errors.New("ordering channel out of range")
)

// MessageID is the reserved first byte of every packet surfaced through
// Receive. Values below IDUserPacketEnum are produced by the engine itself;
// applications start their own tags at IDUserPacketEnum.
type MessageID byte

const (
	IDConnectedPing MessageID = iota
	IDConnectedPong
	IDOpenConnectionRequest
	IDOpenConnectionReply
	IDConnectionRequestAccepted
	IDConnectionAttemptFailed
	IDNewIncomingConnection
	IDNoFreeIncomingConnections
	IDDisconnectionNotification
	IDConnectionLost
	IDDownloadProgress
	IDSndReceiptAcked
	IDAlreadyConnected

	// IDUserPacketEnum is the first message identifier available to
	// applications.
	IDUserPacketEnum MessageID = 0x40
)

func (id MessageID) String() string {
	switch id {
	case IDConnectedPing:
		return "CONNECTED_PING"
	case IDConnectedPong:
		return "CONNECTED_PONG"
	case IDOpenConnectionRequest:
		return "OPEN_CONNECTION_REQUEST"
	case IDOpenConnectionReply:
		return "OPEN_CONNECTION_REPLY"
	case IDConnectionRequestAccepted:
		return "CONNECTION_REQUEST_ACCEPTED"
	case IDConnectionAttemptFailed:
		return "CONNECTION_ATTEMPT_FAILED"
	case IDNewIncomingConnection:
		return "NEW_INCOMING_CONNECTION"
	case IDNoFreeIncomingConnections:
		return "NO_FREE_INCOMING_CONNECTIONS"
	case IDDisconnectionNotification:
		return "DISCONNECTION_NOTIFICATION"
	case IDConnectionLost:
		return "CONNECTION_LOST"
	case IDDownloadProgress:
		return "DOWNLOAD_PROGRESS"
	case IDSndReceiptAcked:
		return "SND_RECEIPT_ACKED"
	case IDAlreadyConnected:
		return "ALREADY_CONNECTED"
	default:
		if id >= IDUserPacketEnum {
			return "USER_PACKET"
		}
		return "unknown"
	}
}

// Reliability selects the delivery guarantees for an outgoing message.
type Reliability byte

const (
	// Unreliable messages are sent once and forgotten.
	Unreliable Reliability = iota
	// UnreliableSequenced messages are sent once; arrivals older than the
	// newest delivered message on the channel are dropped.
	UnreliableSequenced
	// Reliable messages are retransmitted until acknowledged.
	Reliable
	// ReliableOrdered messages arrive exactly once, in send order per channel.
	ReliableOrdered
	// ReliableSequenced messages arrive at most once; stale arrivals are
	// dropped in favor of the newest.
	ReliableSequenced
	// ReliableOrderedWithReceipt behaves like ReliableOrdered and additionally
	// delivers a local IDSndReceiptAcked event once the message is
	// acknowledged by the remote peer.
	ReliableOrderedWithReceipt
)

// IsReliable reports whether messages of this type are tracked for
// retransmission until acknowledged.
func (r Reliability) IsReliable() bool {
	switch r {
	case Reliable, ReliableOrdered, ReliableSequenced, ReliableOrderedWithReceipt:
		return true
	}
	return false
}

// IsOrdered reports whether messages of this type are held back until all
// predecessors on the channel have been delivered.
func (r Reliability) IsOrdered() bool {
	return r == ReliableOrdered || r == ReliableOrderedWithReceipt
}

// IsSequenced reports whether stale messages of this type are dropped rather
// than buffered.
func (r Reliability) IsSequenced() bool {
	return r == UnreliableSequenced || r == ReliableSequenced
}

func (r Reliability) String() string {
	switch r {
	case Unreliable:
		return "UNRELIABLE"
	case UnreliableSequenced:
		return "UNRELIABLE_SEQUENCED"
	case Reliable:
		return "RELIABLE"
	case ReliableOrdered:
		return "RELIABLE_ORDERED"
	case ReliableSequenced:
		return "RELIABLE_SEQUENCED"
	case ReliableOrderedWithReceipt:
		return "RELIABLE_ORDERED_WITH_RECEIPT"
	default:
		return "unknown"
	}
}

// Priority orders outgoing messages in the send queue.
type Priority byte

const (
	// ImmediatePriority messages skip send coalescing and go out on the next
	// update cycle.
	ImmediatePriority Priority = iota
	HighPriority
	MediumPriority
	LowPriority

	NumPriorities = 4
)

func (p Priority) String() string {
	switch p {
	case ImmediatePriority:
		return "IMMEDIATE"
	case HighPriority:
		return "HIGH"
	case MediumPriority:
		return "MEDIUM"
	case LowPriority:
		return "LOW"
	default:
		return "unknown"
	}
}

// NumOrderingChannels is the number of independent ordering/sequencing
// channels per connection.
const NumOrderingChannels = 32

// MTU bounds. DefaultMTU leaves headroom for IP+UDP headers on a standard
// 1500-byte ethernet path.
const (
	DefaultMTU uint16 = 1400
	MinMTU     uint16 = 576
	MaxMTU     uint16 = 1492
)
