package peer

import (
	"time"

	"github.com/google/uuid"
)

// ConnStats tracks per-connection traffic and reliability counters.
type ConnStats struct {
	MessagesSent      uint64 // user messages accepted for this connection
	MessagesReceived  uint64 // user messages delivered to the application
	BytesSent         uint64 // wire bytes sent, headers included
	BytesReceived     uint64 // wire bytes received
	Retransmits       uint64 // timer-driven retransmissions
	NackResends       uint64 // retransmissions triggered by negative acks
	AcksSent          uint64 // ack datagrams sent
	AcksReceived      uint64 // ack datagrams received
	NacksSent         uint64 // nack datagrams sent
	NacksReceived     uint64 // nack datagrams received
	Duplicates        uint64 // duplicate reliable messages dropped
	SplitsReassembled uint64 // split messages fully reassembled
}

// ConnectionInfo is a diagnostic snapshot of one connection.
type ConnectionInfo struct {
	Addr     string
	GUID     uuid.UUID
	State    string
	SRTT     time.Duration
	RTO      time.Duration
	CongWin  int
	InFlight int
	Unacked  int
	Queued   int
	Stats    ConnStats
}

// connDiag mirrors loop-owned ledger values so application threads can read
// them under the connection mutex without touching the ledger itself.
type connDiag struct {
	srtt     time.Duration
	rto      time.Duration
	congWin  int
	inFlight int
	unacked  int
	queued   int
}

// refreshDiag publishes the current ledger and queue numbers. Called by the
// update goroutine each tick.
func (c *Connection) refreshDiag() {
	d := connDiag{
		srtt:     c.rel.srtt,
		rto:      c.rel.rto,
		congWin:  c.effectiveWindow(),
		inFlight: c.rel.inFlight,
		unacked:  len(c.rel.unacked),
		queued:   c.queuedLen(),
	}
	c.mu.Lock()
	c.diag = d
	c.mu.Unlock()
}

// snapshot builds a ConnectionInfo from the published diagnostics. Safe from
// any goroutine.
func (c *Connection) snapshot() ConnectionInfo {
	c.mu.Lock()
	defer c.mu.Unlock()
	return ConnectionInfo{
		Addr:     c.key,
		GUID:     c.guid,
		State:    c.state.String(),
		SRTT:     c.diag.srtt,
		RTO:      c.diag.rto,
		CongWin:  c.diag.congWin,
		InFlight: c.diag.inFlight,
		Unacked:  c.diag.unacked,
		Queued:   c.diag.queued,
		Stats:    c.stats,
	}
}
