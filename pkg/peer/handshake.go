package peer

import (
	"bytes"
	"log/slog"
	"net"
	"time"

	"github.com/wu-vincent/RakNet/pkg/protocol"
)

// sendConnectionRequest transmits one handshake request for a connection in
// StateConnecting. Called from the update loop on the handshake cadence.
func (p *Peer) sendConnectionRequest(c *Connection) {
	req := protocol.OpenConnectionRequest{
		GUID:    p.guid,
		Version: protocol.Version,
		MTU:     c.mtu,
	}
	if _, err := p.conn.WriteToUDP(req.Marshal(), c.addr); err != nil {
		slog.Debug("handshake write", "addr", c.key, "error", err)
	}
}

func (p *Peer) sendConnectionReply(c *Connection) {
	rep := protocol.OpenConnectionReply{GUID: p.guid, MTU: c.mtu}
	if _, err := p.conn.WriteToUDP(rep.Marshal(), c.addr); err != nil {
		slog.Debug("handshake write", "addr", c.key, "error", err)
	}
}

func (p *Peer) sendRefusal(raddr *net.UDPAddr, reason protocol.MessageID) {
	ref := protocol.ConnectionRefusal{Reason: reason, GUID: p.guid}
	p.conn.WriteToUDP(ref.Marshal(), raddr)
}

// handleOffline dispatches unconnected handshake traffic. Runs on the update
// loop before any connection state is consulted.
func (p *Peer) handleOffline(data []byte, raddr *net.UDPAddr, now time.Time) {
	switch protocol.MessageID(data[0]) {
	case protocol.IDOpenConnectionRequest:
		req, err := protocol.UnmarshalOpenConnectionRequest(data)
		if err != nil {
			return
		}
		p.handleConnectionRequest(req, raddr, now)
	case protocol.IDOpenConnectionReply:
		rep, err := protocol.UnmarshalOpenConnectionReply(data)
		if err != nil {
			return
		}
		p.handleConnectionReply(rep, raddr, now)
	case protocol.IDNoFreeIncomingConnections, protocol.IDConnectionAttemptFailed, protocol.IDAlreadyConnected:
		ref, err := protocol.UnmarshalConnectionRefusal(data)
		if err != nil {
			return
		}
		p.handleRefusal(ref, raddr)
	}
}

func (p *Peer) handleConnectionRequest(req *protocol.OpenConnectionRequest, raddr *net.UDPAddr, now time.Time) {
	if req.Version != protocol.Version {
		slog.Debug("refusing connection, version mismatch", "addr", raddr, "version", req.Version)
		p.sendRefusal(raddr, protocol.IDConnectionAttemptFailed)
		return
	}

	key := raddr.String()
	if c := p.connFor(key); c != nil {
		switch c.State() {
		case StatePendingIncoming:
			// Duplicate request, our reply was lost.
			p.sendConnectionReply(c)
		case StateConnected, StateDisconnecting:
			// The remote end restarted while we still hold its old
			// connection. Tell it so, instead of leaving it to retry
			// until our timeout clears the entry.
			p.sendRefusal(raddr, protocol.IDAlreadyConnected)
		case StateConnecting:
			// Both sides dialed each other. The peer with the greater GUID
			// yields its attempt and accepts instead, so exactly one
			// handshake completes deterministically.
			if bytes.Compare(p.guid[:], req.GUID[:]) > 0 {
				c.setGUID(req.GUID)
				if req.MTU >= protocol.MinMTU && req.MTU < c.mtu {
					c.mtu = req.MTU
				}
				c.setState(StatePendingIncoming)
				c.handshakeStart = now
				slog.Debug("yielding simultaneous connect", "addr", key)
				p.sendConnectionReply(c)
			}
		}
		return
	}

	p.mu.Lock()
	if len(p.conns) >= p.cfg.MaxConnections || p.incomingCount() >= p.cfg.MaxIncomingConnections {
		p.mu.Unlock()
		slog.Debug("refusing connection, at capacity", "addr", key)
		p.sendRefusal(raddr, protocol.IDNoFreeIncomingConnections)
		return
	}
	mtu := p.cfg.MTU
	if req.MTU >= protocol.MinMTU && req.MTU < mtu {
		mtu = req.MTU
	}
	c := newConnection(raddr, mtu, p.cfg.TimeoutDuration, true)
	c.state = StatePendingIncoming
	c.guid = req.GUID
	c.lastRecv = now
	p.conns[key] = c
	p.mu.Unlock()

	slog.Debug("accepting connection", "addr", key, "guid", req.GUID, "mtu", mtu)
	p.sendConnectionReply(c)
}

func (p *Peer) handleConnectionReply(rep *protocol.OpenConnectionReply, raddr *net.UDPAddr, now time.Time) {
	c := p.connFor(raddr.String())
	if c == nil || c.State() != StateConnecting {
		return // duplicate reply after establishment
	}
	c.setGUID(rep.GUID)
	if rep.MTU >= protocol.MinMTU && rep.MTU < c.mtu {
		c.mtu = rep.MTU
	}
	c.lastRecv = now
	c.setState(StateConnected)
	slog.Info("connection established", "addr", c.key, "guid", rep.GUID, "mtu", c.mtu)

	// Tell the accepting side the handshake is complete; its connection
	// stays pending until this arrives.
	c.enqueueMessage(&outgoingMessage{
		payload:     []byte{byte(protocol.IDNewIncomingConnection)},
		priority:    protocol.ImmediatePriority,
		reliability: protocol.ReliableOrdered,
	})
	p.push(c, []byte{byte(protocol.IDConnectionRequestAccepted)}, nil)
}

func (p *Peer) handleRefusal(ref *protocol.ConnectionRefusal, raddr *net.UDPAddr) {
	c := p.connFor(raddr.String())
	if c == nil || c.State() != StateConnecting {
		return
	}
	slog.Debug("connection refused", "addr", c.key, "reason", ref.Reason)
	c.setGUID(ref.GUID)
	p.removeConnection(c, ref.Reason, true)
}
