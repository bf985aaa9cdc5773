package peer

import (
	"net"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/wu-vincent/RakNet/pkg/protocol"
)

// ConnState is the lifecycle state of a Connection.
type ConnState uint8

const (
	// StateUnconnected means no connection exists for the address.
	StateUnconnected ConnState = iota
	// StateConnecting is an outbound handshake in progress.
	StateConnecting
	// StatePendingIncoming is an inbound handshake in progress.
	StatePendingIncoming
	// StateConnected is an established connection.
	StateConnected
	// StateDisconnecting is a graceful close flushing reliable sends.
	StateDisconnecting
	// StateDisconnected is terminal; the connection is gone from the peer's
	// address map.
	StateDisconnected
)

func (s ConnState) String() string {
	switch s {
	case StateUnconnected:
		return "UNCONNECTED"
	case StateConnecting:
		return "CONNECTING"
	case StatePendingIncoming:
		return "PENDING_INCOMING"
	case StateConnected:
		return "CONNECTED"
	case StateDisconnecting:
		return "DISCONNECTING"
	case StateDisconnected:
		return "DISCONNECTED"
	default:
		return "unknown"
	}
}

// queuedFrame is a fully tagged frame waiting in a connection's priority
// queues for window capacity.
type queuedFrame struct {
	frame      *protocol.Frame
	receipt    uint32
	hasReceipt bool
}

// Connection holds all per-remote protocol state. Everything below the mutex
// block is owned by the peer's update goroutine; the mutex only covers the
// fields read by application threads (state, guid, stats).
type Connection struct {
	mu    sync.Mutex
	state ConnState
	guid  uuid.UUID
	stats ConnStats
	diag  connDiag

	addr *net.UDPAddr
	key  string

	incoming bool // counts against MaxIncomingConnections
	mtu      uint16
	timeout  time.Duration

	lastRecv time.Time
	lastSend time.Time
	lastPing time.Time

	// Handshake retransmission (Connecting/PendingIncoming).
	handshakeStart time.Time
	handshakeNext  time.Time

	// Graceful close. Set by CloseConnection, acted on by the update loop.
	closeRequested bool
	closeNotify    bool
	closeDeadline  time.Time
	noticeQueued   bool

	rel *ledger
	ord *orderingEngine
	asm *assembler

	nextSplitID uint16

	// Flow control.
	cwnd     int
	ssthresh int

	// Outgoing frames by priority tier, FIFO within each tier.
	queues [protocol.NumPriorities][]*queuedFrame
}

func newConnection(addr *net.UDPAddr, mtu uint16, timeout time.Duration, incoming bool) *Connection {
	now := time.Now()
	return &Connection{
		addr:           addr,
		key:            addr.String(),
		incoming:       incoming,
		mtu:            mtu,
		timeout:        timeout,
		lastRecv:       now,
		lastSend:       now,
		handshakeStart: now,
		handshakeNext:  now,
		rel:            newLedger(),
		ord:            newOrderingEngine(),
		asm:            newAssembler(),
		cwnd:           initialCwnd,
		ssthresh:       maxCwnd / 2,
	}
}

// State returns the connection's lifecycle state. Safe from any goroutine.
func (c *Connection) State() ConnState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Connection) setState(s ConnState) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}

// GUID returns the remote peer's identifier, zero until the handshake has
// resolved it.
func (c *Connection) GUID() uuid.UUID {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.guid
}

func (c *Connection) setGUID(g uuid.UUID) {
	c.mu.Lock()
	c.guid = g
	c.mu.Unlock()
}

// maxPartSize is the largest frame payload this connection can fit in one
// datagram.
func (c *Connection) maxPartSize() int {
	return protocol.MaxPayloadSize(c.mtu)
}

// enqueueMessage tags an outgoing message with ordering, sequencing, message
// and split indices and places the resulting frames on the priority queues.
// Runs on the update goroutine only.
func (c *Connection) enqueueMessage(m *outgoingMessage) {
	rel := m.reliability
	payloads := [][]byte{m.payload}

	// A payload that needs splitting must be reliable, or a single lost part
	// would wedge reassembly. Unreliable types are upgraded.
	if len(m.payload) > c.maxPartSize() {
		switch rel {
		case protocol.Unreliable:
			rel = protocol.Reliable
		case protocol.UnreliableSequenced:
			rel = protocol.ReliableSequenced
		}
	}

	// Oversized payloads are split. The whole message is tagged once so it
	// occupies a single ordering slot on the receiver.
	split := false
	if rel.IsReliable() && len(m.payload) > c.maxPartSize() {
		payloads = splitPayload(m.payload, c.maxPartSize())
		split = true
	}

	var orderingIndex, sequencingIndex uint32
	if rel.IsSequenced() {
		sequencingIndex = c.ord.nextSequencingIndex(m.channel)
		orderingIndex = c.ord.peekOrderingIndex(m.channel)
	} else if rel.IsOrdered() {
		orderingIndex = c.ord.nextOrderingIndex(m.channel)
	}

	splitID := uint16(0)
	if split {
		splitID = c.nextSplitID
		c.nextSplitID++
	}
	if m.hasReceipt {
		c.rel.addReceipt(m.receipt, len(payloads))
	}

	for i, part := range payloads {
		f := &protocol.Frame{
			Reliability:     rel,
			SequencingIndex: sequencingIndex,
			OrderingIndex:   orderingIndex,
			OrderingChannel: m.channel,
			Payload:         part,
		}
		if rel.IsReliable() {
			f.MessageIndex = c.rel.assignMessageIndex()
		}
		if split {
			f.Split = true
			f.SplitCount = uint32(len(payloads))
			f.SplitID = splitID
			f.SplitIndex = uint32(i)
		}
		c.queues[m.priority] = append(c.queues[m.priority], &queuedFrame{
			frame:      f,
			receipt:    m.receipt,
			hasReceipt: m.hasReceipt,
		})
	}
}

// queuedLen returns the number of frames waiting across all priority tiers.
func (c *Connection) queuedLen() int {
	n := 0
	for i := range c.queues {
		n += len(c.queues[i])
	}
	return n
}

// timedOut reports whether the connection has gone silent past its timeout.
func (c *Connection) timedOut(now time.Time) bool {
	return now.Sub(c.lastRecv) > c.timeout
}

func (c *Connection) addStat(f func(*ConnStats)) {
	c.mu.Lock()
	f(&c.stats)
	c.mu.Unlock()
}

// Stats returns a snapshot of the connection's counters.
func (c *Connection) Stats() ConnStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}
