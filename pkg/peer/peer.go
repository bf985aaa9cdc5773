package peer

import (
	"fmt"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/wu-vincent/RakNet/internal/pool"
	"github.com/wu-vincent/RakNet/pkg/protocol"
)

// pollInterval bounds how long the update goroutine blocks on the socket
// before running timed work (retransmits, pings, timeouts).
const pollInterval = 5 * time.Millisecond

// readBudget is the number of datagrams handled per update cycle before timed
// work runs, so a flood cannot starve retransmission.
const readBudget = 256

// closeFlushTimeout is how long a graceful close waits for in-flight reliable
// sends before finalizing anyway.
const closeFlushTimeout = 3 * time.Second

// handshakeInterval is the resend cadence for connection requests.
const handshakeInterval = 500 * time.Millisecond

// outgoingMessage is one Send call waiting to be routed to a connection.
type outgoingMessage struct {
	payload     []byte
	priority    protocol.Priority
	reliability protocol.Reliability
	channel     uint8
	dest        string // canonical remote address; "" broadcasts
	receipt     uint32
	hasReceipt  bool
}

// Packet is one received message or engine event. The first byte of Data is
// its message identifier. Call Release when done so pooled buffers can be
// reused.
type Packet struct {
	Addr *net.UDPAddr
	GUID uuid.UUID
	Data []byte

	buf *[]byte
}

// ID returns the packet's message identifier.
func (p *Packet) ID() protocol.MessageID {
	if len(p.Data) == 0 {
		return 0
	}
	return protocol.MessageID(p.Data[0])
}

// Release returns the packet's backing buffer to the pool. The packet must
// not be used afterward.
func (p *Packet) Release() {
	if p.buf != nil {
		pool.PutPayload(p.buf)
		p.buf = nil
	}
	p.Data = nil
}

// Peer owns a UDP socket, the set of connections on it, and the background
// goroutine that runs all protocol processing. Application threads interact
// only through the thread-safe boundary calls: Send, Receive, Connect,
// CloseConnection, ConnectionState and the statistics queries.
type Peer struct {
	cfg  Config
	guid uuid.UUID
	conn *net.UDPConn

	mu    sync.RWMutex
	conns map[string]*Connection

	inbound  chan *Packet
	outbound chan *outgoingMessage

	pluginMu sync.Mutex
	plugins  []Plugin

	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
	running   atomic.Bool
}

// New creates a Peer with its own locally-unique GUID. Call Startup to bind
// the socket and begin processing.
func New(cfg Config) *Peer {
	cfg.applyDefaults()
	return &Peer{
		cfg:      cfg,
		guid:     uuid.New(),
		conns:    make(map[string]*Connection),
		inbound:  make(chan *Packet, cfg.InboundQueueCapacity),
		outbound: make(chan *outgoingMessage, cfg.SendQueueCapacity),
		done:     make(chan struct{}),
	}
}

// Startup binds the UDP socket and starts the update goroutine.
func (p *Peer) Startup() error {
	if err := p.cfg.validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	addr, err := net.ResolveUDPAddr("udp", p.cfg.ListenAddr)
	if err != nil {
		return fmt.Errorf("resolve %q: %w", p.cfg.ListenAddr, err)
	}
	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return fmt.Errorf("listen udp: %w", err)
	}
	p.conn = conn
	p.running.Store(true)
	p.wg.Add(1)
	go p.updateLoop()
	slog.Info("peer started", "addr", conn.LocalAddr(), "guid", p.guid)
	return nil
}

// Shutdown stops the update goroutine, sends best-effort disconnect notices
// to connected peers and releases every connection. Unacknowledged reliable
// sends are discarded.
func (p *Peer) Shutdown() {
	p.closeOnce.Do(func() {
		p.running.Store(false)
		close(p.done)
		p.wg.Wait()

		notice := (&protocol.Datagram{Frames: []*protocol.Frame{{
			Reliability: protocol.Unreliable,
			Payload:     []byte{byte(protocol.IDDisconnectionNotification)},
		}}}).Marshal(nil)

		p.mu.Lock()
		conns := p.conns
		p.conns = make(map[string]*Connection)
		p.mu.Unlock()

		for _, c := range conns {
			if c.State() == StateConnected {
				p.conn.WriteToUDP(notice, c.addr)
			}
			c.setState(StateDisconnected)
		}
		p.conn.Close()
		for _, pl := range p.pluginList() {
			pl.OnDetach(p)
		}
		slog.Info("peer stopped", "guid", p.guid)
	})
}

// GUID returns this peer's locally-unique identifier.
func (p *Peer) GUID() uuid.UUID { return p.guid }

// Addr returns the bound socket address, nil before Startup.
func (p *Peer) Addr() net.Addr {
	if p.conn == nil {
		return nil
	}
	return p.conn.LocalAddr()
}

// Send enqueues an outgoing message and returns the number of payload bytes
// accepted: len(data) on success, 0 when the send queue is full or the peer
// is not running. It never blocks. A nil addr with broadcast false is
// rejected; broadcast true sends to every connected peer.
func (p *Peer) Send(data []byte, pri protocol.Priority, rel protocol.Reliability, channel uint8, addr *net.UDPAddr, broadcast bool) uint32 {
	return p.send(data, pri, rel, channel, addr, broadcast, 0, false)
}

// SendWithReceipt behaves like Send and additionally delivers a local
// IDSndReceiptAcked event echoing serial once the message has been
// acknowledged by the remote peer. The reliability type must be
// ReliableOrderedWithReceipt.
func (p *Peer) SendWithReceipt(data []byte, pri protocol.Priority, channel uint8, addr *net.UDPAddr, broadcast bool, serial uint32) uint32 {
	return p.send(data, pri, protocol.ReliableOrderedWithReceipt, channel, addr, broadcast, serial, true)
}

func (p *Peer) send(data []byte, pri protocol.Priority, rel protocol.Reliability, channel uint8, addr *net.UDPAddr, broadcast bool, serial uint32, hasReceipt bool) uint32 {
	if len(data) == 0 || !p.running.Load() {
		return 0
	}
	if err := protocol.ValidateChannel(channel); err != nil {
		slog.Warn("send rejected", "error", err)
		return 0
	}
	if addr == nil && !broadcast {
		return 0
	}
	dest := ""
	if !broadcast {
		dest = addr.String()
	}
	payload := make([]byte, len(data))
	copy(payload, data)
	m := &outgoingMessage{
		payload:     payload,
		priority:    pri,
		reliability: rel,
		channel:     channel,
		dest:        dest,
		receipt:     serial,
		hasReceipt:  hasReceipt,
	}
	select {
	case p.outbound <- m:
		return uint32(len(data))
	default:
		return 0 // backpressure: caller retries later
	}
}

// Receive dequeues one processed inbound message, nil when none is waiting.
// Each message is delivered to exactly one caller.
func (p *Peer) Receive() *Packet {
	select {
	case pkt := <-p.inbound:
		return pkt
	default:
		return nil
	}
}

// Connect starts a connection attempt to host:port. It returns as soon as
// the attempt is underway; completion is observed via an
// IDConnectionRequestAccepted (or failure) event from Receive.
func (p *Peer) Connect(host string, port uint16) error {
	if !p.running.Load() {
		return protocol.ErrShutdown
	}
	raddr, err := net.ResolveUDPAddr("udp", fmt.Sprintf("%s:%d", host, port))
	if err != nil {
		return fmt.Errorf("resolve %s:%d: %w", host, port, err)
	}
	key := raddr.String()

	p.mu.Lock()
	defer p.mu.Unlock()
	if c, ok := p.conns[key]; ok && c.State() != StateDisconnected {
		return protocol.ErrAlreadyConnected
	}
	if len(p.conns) >= p.cfg.MaxConnections {
		return protocol.ErrMaxConnections
	}
	c := newConnection(raddr, p.cfg.MTU, p.cfg.TimeoutDuration, false)
	c.state = StateConnecting
	p.conns[key] = c
	slog.Debug("connection attempt started", "addr", key)
	return nil
}

// CloseConnection closes the connection to addr. With notify true the remote
// peer receives a disconnection notice after in-flight reliable sends have
// been flushed; with notify false the connection is dropped silently.
func (p *Peer) CloseConnection(addr *net.UDPAddr, notify bool) {
	c := p.connFor(addr.String())
	if c == nil {
		return
	}
	c.mu.Lock()
	c.closeRequested = true
	c.closeNotify = notify
	c.mu.Unlock()
}

// ConnectionState reports the lifecycle state for addr, StateUnconnected when
// no connection exists.
func (p *Peer) ConnectionState(addr *net.UDPAddr) ConnState {
	c := p.connFor(addr.String())
	if c == nil {
		return StateUnconnected
	}
	return c.State()
}

// Statistics returns a diagnostic snapshot for the connection to addr.
func (p *Peer) Statistics(addr *net.UDPAddr) (ConnectionInfo, bool) {
	c := p.connFor(addr.String())
	if c == nil {
		return ConnectionInfo{}, false
	}
	return c.snapshot(), true
}

// ConnectionList returns snapshots of every current connection.
func (p *Peer) ConnectionList() []ConnectionInfo {
	var list []ConnectionInfo
	for _, c := range p.connsSnapshot() {
		list = append(list, c.snapshot())
	}
	return list
}

// NumConnections returns how many connections are currently established.
func (p *Peer) NumConnections() int {
	n := 0
	for _, c := range p.connsSnapshot() {
		if c.State() == StateConnected {
			n++
		}
	}
	return n
}

func (p *Peer) connFor(key string) *Connection {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.conns[key]
}

func (p *Peer) connsSnapshot() []*Connection {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]*Connection, 0, len(p.conns))
	for _, c := range p.conns {
		out = append(out, c)
	}
	return out
}

// incomingCount counts live connections that were initiated remotely. Must
// be called with p.mu held.
func (p *Peer) incomingCount() int {
	n := 0
	for _, c := range p.conns {
		if c.incoming && c.State() != StateDisconnected {
			n++
		}
	}
	return n
}

// updateLoop is the single mutator of all connection-internal state: it
// performs socket I/O, reliability bookkeeping, ordering, reassembly and
// state transitions. Application threads only touch the boundary queues.
func (p *Peer) updateLoop() {
	defer p.wg.Done()
	bufPtr := pool.GetDatagram()
	defer pool.PutDatagram(bufPtr)
	buf := *bufPtr

	for {
		select {
		case <-p.done:
			return
		default:
		}

		p.conn.SetReadDeadline(time.Now().Add(pollInterval))
		for i := 0; i < readBudget; i++ {
			n, raddr, err := p.conn.ReadFromUDP(buf)
			if err != nil {
				if ne, ok := err.(net.Error); ok && ne.Timeout() {
					break
				}
				select {
				case <-p.done:
				default:
					slog.Error("socket read", "error", err)
				}
				return
			}
			p.handleDatagram(buf[:n], raddr, time.Now())
		}

		p.drainOutbound()
		p.tick(time.Now())
		p.pluginsUpdate()
	}
}

// drainOutbound routes queued Send calls onto per-connection priority queues.
func (p *Peer) drainOutbound() {
	for {
		select {
		case m := <-p.outbound:
			if m.dest == "" {
				for _, c := range p.connsSnapshot() {
					if c.State() == StateConnected {
						c.enqueueMessage(m)
						c.addStat(func(s *ConnStats) { s.MessagesSent++ })
					}
				}
				continue
			}
			c := p.connFor(m.dest)
			if c == nil || c.State() != StateConnected {
				slog.Debug("dropping send to unconnected address", "addr", m.dest)
				continue
			}
			c.enqueueMessage(m)
			c.addStat(func(s *ConnStats) { s.MessagesSent++ })
		default:
			return
		}
	}
}

// tick runs all timed per-connection work: handshake retransmission, timeout
// detection, graceful close progress, heartbeats, retransmits, ack flushes
// and queued-frame transmission.
func (p *Peer) tick(now time.Time) {
	for _, c := range p.connsSnapshot() {
		c.mu.Lock()
		state := c.state
		closeReq, closeNotify := c.closeRequested, c.closeNotify
		c.mu.Unlock()

		switch state {
		case StateConnecting:
			if closeReq {
				p.removeConnection(c, protocol.IDDisconnectionNotification, false)
				continue
			}
			if now.Sub(c.handshakeStart) > c.timeout {
				p.removeConnection(c, protocol.IDConnectionAttemptFailed, true)
				continue
			}
			if !now.Before(c.handshakeNext) {
				p.sendConnectionRequest(c)
				c.handshakeNext = now.Add(handshakeInterval)
			}

		case StatePendingIncoming:
			if closeReq {
				p.removeConnection(c, protocol.IDDisconnectionNotification, false)
				continue
			}
			if now.Sub(c.handshakeStart) > c.timeout {
				p.removeConnection(c, protocol.IDConnectionLost, false)
				continue
			}

		case StateConnected, StateDisconnecting:
			if c.timedOut(now) {
				p.removeConnection(c, protocol.IDConnectionLost, true)
				continue
			}
			if closeReq && state == StateConnected {
				if !closeNotify {
					p.removeConnection(c, protocol.IDDisconnectionNotification, false)
					continue
				}
				if !c.noticeQueued {
					c.enqueueMessage(&outgoingMessage{
						payload:     []byte{byte(protocol.IDDisconnectionNotification)},
						priority:    protocol.ImmediatePriority,
						reliability: protocol.ReliableOrdered,
					})
					c.noticeQueued = true
					c.closeDeadline = now.Add(closeFlushTimeout)
					c.setState(StateDisconnecting)
				}
			}
			if c.State() == StateDisconnecting {
				flushed := len(c.rel.unacked) == 0 && c.queuedLen() == 0
				if flushed || now.After(c.closeDeadline) {
					p.removeConnection(c, protocol.IDDisconnectionNotification, false)
					continue
				}
			}
			if now.Sub(c.lastPing) >= p.cfg.PingInterval {
				c.enqueueMessage(&outgoingMessage{
					payload:     protocol.MarshalPing(protocol.IDConnectedPing, now.UnixNano()),
					priority:    protocol.ImmediatePriority,
					reliability: protocol.Unreliable,
				})
				c.lastPing = now
			}

			if due := c.rel.dueForResend(now); len(due) > 0 {
				c.onLoss(true)
				c.addStat(func(s *ConnStats) { s.Retransmits += uint64(len(due)) })
				p.sendRecords(c, due, now)
			}

			acks, nacks := c.rel.flushAcks(now, p.cfg.AckFlushInterval)
			if nacks != nil {
				p.write(c, protocol.MarshalAckDatagram(true, nacks), now)
				c.addStat(func(s *ConnStats) { s.NacksSent++ })
			}
			if acks != nil {
				p.write(c, protocol.MarshalAckDatagram(false, acks), now)
				c.addStat(func(s *ConnStats) { s.AcksSent++ })
			}

			p.transmit(c, now)
		}

		c.rel.expireDatagrams(now)
		c.asm.expire(now, c.timeout)
		c.refreshDiag()
	}
}

// transmit drains the connection's priority queues into MTU-sized datagrams.
// Reliable frames are gated by the congestion window; a blocked reliable
// frame stops the drain so priority and queue order are preserved.
func (p *Peer) transmit(c *Connection, now time.Time) {
	var frames []*protocol.Frame
	var indices []uint32
	size := protocol.DatagramHeaderSize

	flush := func() {
		if len(frames) == 0 {
			return
		}
		seq := c.rel.assignDatagramSeq()
		d := &protocol.Datagram{Seq: seq, Frames: frames}
		p.write(c, d.Marshal(nil), now)
		c.rel.noteDatagramSent(seq, indices, now)
		frames = nil
		indices = nil
		size = protocol.DatagramHeaderSize
	}

	blocked := false
	for tier := 0; tier < protocol.NumPriorities && !blocked; tier++ {
		q := c.queues[tier]
		i := 0
		for ; i < len(q); i++ {
			qf := q[i]
			reliable := qf.frame.Reliability.IsReliable()
			if reliable && !c.windowHasRoom(len(qf.frame.Payload)) {
				blocked = true
				break
			}
			if size+qf.frame.Size() > int(c.mtu) {
				flush()
			}
			frames = append(frames, qf.frame)
			size += qf.frame.Size()
			if reliable {
				c.rel.track(qf, now)
				indices = append(indices, qf.frame.MessageIndex)
			}
		}
		if i == len(q) {
			c.queues[tier] = q[:0]
		} else {
			c.queues[tier] = q[i:]
		}
	}
	flush()
}

// sendRecords retransmits reliable records in fresh datagrams.
func (p *Peer) sendRecords(c *Connection, recs []*reliableRecord, now time.Time) {
	var frames []*protocol.Frame
	var indices []uint32
	size := protocol.DatagramHeaderSize

	flush := func() {
		if len(frames) == 0 {
			return
		}
		seq := c.rel.assignDatagramSeq()
		d := &protocol.Datagram{Seq: seq, Frames: frames}
		p.write(c, d.Marshal(nil), now)
		c.rel.noteDatagramSent(seq, indices, now)
		frames = nil
		indices = nil
		size = protocol.DatagramHeaderSize
	}

	for _, rec := range recs {
		if size+rec.frame.Size() > int(c.mtu) {
			flush()
		}
		frames = append(frames, rec.frame)
		size += rec.frame.Size()
		indices = append(indices, rec.frame.MessageIndex)
	}
	flush()
}

// write sends raw wire bytes to the connection's remote address.
func (p *Peer) write(c *Connection, data []byte, now time.Time) {
	n, err := p.conn.WriteToUDP(data, c.addr)
	if err != nil {
		slog.Debug("socket write", "addr", c.key, "error", err)
		return
	}
	c.lastSend = now
	c.addStat(func(s *ConnStats) { s.BytesSent += uint64(n) })
}

// handleDatagram dispatches one received wire datagram.
func (p *Peer) handleDatagram(data []byte, raddr *net.UDPAddr, now time.Time) {
	if len(data) == 0 {
		return
	}
	if protocol.IsOffline(data) {
		p.handleOffline(data, raddr, now)
		return
	}
	if data[0]&protocol.FlagValid == 0 {
		return // stray traffic
	}
	c := p.connFor(raddr.String())
	if c == nil {
		return // out-of-window datagram for a dead connection
	}
	c.lastRecv = now
	c.addStat(func(s *ConnStats) { s.BytesReceived += uint64(len(data)) })

	switch {
	case data[0]&protocol.FlagAck != 0:
		ranges, err := protocol.UnmarshalAckRanges(data[1:])
		if err != nil {
			return
		}
		res := c.rel.onAck(ranges, now)
		c.onAckedBytes(res.ackedBytes)
		c.addStat(func(s *ConnStats) { s.AcksReceived++ })
		for _, serial := range res.receipts {
			p.push(c, protocol.MarshalReceipt(serial), nil)
		}

	case data[0]&protocol.FlagNack != 0:
		ranges, err := protocol.UnmarshalAckRanges(data[1:])
		if err != nil {
			return
		}
		c.addStat(func(s *ConnStats) { s.NacksReceived++ })
		if recs := c.rel.onNack(ranges); len(recs) > 0 {
			c.onLoss(false)
			for _, rec := range recs {
				c.rel.markResent(rec, now)
			}
			c.addStat(func(s *ConnStats) { s.NackResends += uint64(len(recs)) })
			p.sendRecords(c, recs, now)
		}

	default:
		d, err := protocol.UnmarshalDatagram(data)
		if err != nil {
			slog.Debug("bad datagram", "addr", c.key, "error", err)
			return
		}
		c.rel.noteDatagramRecv(d.Seq)
		for _, f := range d.Frames {
			p.handleFrame(c, f, now)
		}
	}
}

// handleFrame runs one received frame through duplicate suppression,
// reassembly and ordering, then delivers whatever became ready.
func (p *Peer) handleFrame(c *Connection, f *protocol.Frame, now time.Time) {
	if f.Reliability.IsReliable() && c.rel.isDuplicate(f.MessageIndex) {
		c.addStat(func(s *ConnStats) { s.Duplicates++ })
		return
	}

	var payload []byte
	if f.Split {
		whole, received, total := c.asm.submit(f, now)
		if whole == nil {
			if iv := p.cfg.SplitProgressInterval; iv > 0 && received > 0 && received%iv == 0 {
				p.push(c, protocol.MarshalDownloadProgress(f.SplitID, received, total), nil)
			}
			return
		}
		c.addStat(func(s *ConnStats) { s.SplitsReassembled++ })
		payload = whole
	}

	// Non-split frame payloads alias the read buffer and must be copied
	// before they leave this cycle. Ordered and sequenced payloads may be
	// held across cycles, so they get plain heap copies; the direct path
	// can use a pooled buffer that Packet.Release returns.
	switch {
	case f.Reliability.IsSequenced():
		if payload == nil {
			payload = append([]byte(nil), f.Payload...)
		}
		if out := c.ord.submitSequenced(f.OrderingChannel, f.SequencingIndex, payload); out != nil {
			p.deliver(c, out, nil, now)
		}
	case f.Reliability.IsOrdered():
		if payload == nil {
			payload = append([]byte(nil), f.Payload...)
		}
		for _, m := range c.ord.submitOrdered(f.OrderingChannel, f.OrderingIndex, payload) {
			p.deliver(c, m, nil, now)
		}
	default:
		var buf *[]byte
		if payload == nil {
			payload, buf = copyPayload(f.Payload)
		}
		p.deliver(c, payload, buf, now)
	}
}

// deliver dispatches a fully ordered message: engine-internal identifiers are
// handled here, everything else is surfaced to the application.
func (p *Peer) deliver(c *Connection, payload []byte, buf *[]byte, now time.Time) {
	if len(payload) == 0 {
		return
	}
	switch protocol.MessageID(payload[0]) {
	case protocol.IDConnectedPing:
		if ts, err := protocol.UnmarshalPing(payload); err == nil {
			c.enqueueMessage(&outgoingMessage{
				payload:     protocol.MarshalPing(protocol.IDConnectedPong, ts),
				priority:    protocol.ImmediatePriority,
				reliability: protocol.Unreliable,
			})
		}
		if buf != nil {
			pool.PutPayload(buf)
		}

	case protocol.IDConnectedPong:
		if ts, err := protocol.UnmarshalPing(payload); err == nil {
			c.rel.updateRTT(now.Sub(time.Unix(0, ts)))
		}
		if buf != nil {
			pool.PutPayload(buf)
		}

	case protocol.IDNewIncomingConnection:
		if c.State() == StatePendingIncoming {
			c.setState(StateConnected)
			slog.Info("incoming connection established", "addr", c.key, "guid", c.GUID())
			p.push(c, []byte{byte(protocol.IDNewIncomingConnection)}, nil)
		}
		if buf != nil {
			pool.PutPayload(buf)
		}

	case protocol.IDDisconnectionNotification:
		p.removeConnection(c, protocol.IDDisconnectionNotification, true)
		if buf != nil {
			pool.PutPayload(buf)
		}

	default:
		c.addStat(func(s *ConnStats) { s.MessagesReceived++ })
		p.push(c, payload, buf)
	}
}

// push hands a packet to the plugins and then the inbound queue. A full
// queue drops the packet; reliable delivery is complete once the message is
// queued, so the bound is the application's responsibility to drain.
func (p *Peer) push(c *Connection, payload []byte, buf *[]byte) {
	pkt := &Packet{Addr: c.addr, GUID: c.GUID(), Data: payload, buf: buf}
	if p.pluginsOnReceive(pkt) {
		pkt.Release()
		return
	}
	select {
	case p.inbound <- pkt:
	default:
		slog.Warn("inbound queue full, dropping packet", "addr", c.key, "id", pkt.ID())
		pkt.Release()
	}
}

// removeConnection takes a connection out of the address map, marks it
// terminal and optionally surfaces the reason to the application.
func (p *Peer) removeConnection(c *Connection, reason protocol.MessageID, emitEvent bool) {
	p.mu.Lock()
	delete(p.conns, c.key)
	p.mu.Unlock()
	c.setState(StateDisconnected)
	if emitEvent {
		p.push(c, []byte{byte(reason)}, nil)
	}
	p.pluginsOnClosed(c.addr, c.GUID(), reason)
	slog.Debug("connection removed", "addr", c.key, "reason", reason)
}

// copyPayload copies a received payload into a pooled buffer when it fits.
func copyPayload(src []byte) ([]byte, *[]byte) {
	if len(src) <= pool.PayloadBufSize {
		bp := pool.GetPayload()
		b := (*bp)[:len(src)]
		copy(b, src)
		return b, bp
	}
	b := make([]byte, len(src))
	copy(b, src)
	return b, nil
}
