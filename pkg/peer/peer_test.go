package peer

import (
	"bytes"
	"errors"
	"math/rand"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/wu-vincent/RakNet/pkg/protocol"
)

func startPeer(t *testing.T, cfg Config) *Peer {
	t.Helper()
	cfg.ListenAddr = "127.0.0.1:0"
	p := New(cfg)
	if err := p.Startup(); err != nil {
		t.Fatalf("startup: %v", err)
	}
	t.Cleanup(p.Shutdown)
	return p
}

func peerUDPAddr(t *testing.T, p *Peer) *net.UDPAddr {
	t.Helper()
	addr, ok := p.Addr().(*net.UDPAddr)
	if !ok {
		t.Fatalf("peer addr %v is not UDP", p.Addr())
	}
	return addr
}

// waitFor polls Receive until a packet satisfies match, failing the test at
// the deadline. Non-matching packets are released and dropped.
func waitFor(t *testing.T, p *Peer, timeout time.Duration, what string, match func(*Packet) bool) *Packet {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		pkt := p.Receive()
		if pkt == nil {
			time.Sleep(2 * time.Millisecond)
			continue
		}
		if match(pkt) {
			return pkt
		}
		pkt.Release()
	}
	t.Fatalf("timed out waiting for %s", what)
	return nil
}

func waitForID(t *testing.T, p *Peer, id protocol.MessageID, timeout time.Duration) *Packet {
	t.Helper()
	return waitFor(t, p, timeout, id.String(), func(pkt *Packet) bool { return pkt.ID() == id })
}

// connectPeers establishes a-to-b and returns b's address as a dials it.
func connectPeers(t *testing.T, a, b *Peer) *net.UDPAddr {
	t.Helper()
	baddr := peerUDPAddr(t, b)
	if err := a.Connect("127.0.0.1", uint16(baddr.Port)); err != nil {
		t.Fatalf("connect: %v", err)
	}
	waitForID(t, a, protocol.IDConnectionRequestAccepted, 5*time.Second).Release()
	waitForID(t, b, protocol.IDNewIncomingConnection, 5*time.Second).Release()
	return baddr
}

func TestConnectAndOrderedExchange(t *testing.T) {
	t.Parallel()
	a := startPeer(t, DefaultConfig())
	b := startPeer(t, DefaultConfig())
	baddr := connectPeers(t, a, b)

	if a.ConnectionState(baddr) != StateConnected {
		t.Fatalf("a state = %v", a.ConnectionState(baddr))
	}

	const n = 128
	for i := 0; i < n; i++ {
		payload := []byte{byte(protocol.IDUserPacketEnum), byte(i)}
		for a.Send(payload, protocol.MediumPriority, protocol.ReliableOrdered, 5, baddr, false) == 0 {
			time.Sleep(time.Millisecond)
		}
	}

	for i := 0; i < n; i++ {
		pkt := waitFor(t, b, 10*time.Second, "user message", func(pkt *Packet) bool {
			return pkt.ID() >= protocol.IDUserPacketEnum
		})
		if pkt.Data[1] != byte(i) {
			t.Fatalf("message %d: got %d, ordering violated", i, pkt.Data[1])
		}
		pkt.Release()
	}

	info, ok := a.Statistics(baddr)
	if !ok {
		t.Fatal("no statistics for established connection")
	}
	if info.Stats.MessagesSent < n {
		t.Fatalf("MessagesSent = %d, want >= %d", info.Stats.MessagesSent, n)
	}
}

func TestLargeTransferReassembly(t *testing.T) {
	t.Parallel()
	cfgB := DefaultConfig()
	cfgB.SplitProgressInterval = 8
	a := startPeer(t, DefaultConfig())
	b := startPeer(t, cfgB)
	baddr := connectPeers(t, a, b)

	blob := make([]byte, 200_000)
	rand.New(rand.NewSource(42)).Read(blob)
	payload := append([]byte{byte(protocol.IDUserPacketEnum)}, blob...)

	for a.Send(payload, protocol.HighPriority, protocol.ReliableOrdered, 0, baddr, false) == 0 {
		time.Sleep(time.Millisecond)
	}

	sawProgress := false
	pkt := waitFor(t, b, 30*time.Second, "reassembled blob", func(pkt *Packet) bool {
		if pkt.ID() == protocol.IDDownloadProgress {
			_, received, total, err := protocol.UnmarshalDownloadProgress(pkt.Data)
			if err != nil || received == 0 || received > total {
				t.Errorf("bad progress event: %d/%d err=%v", received, total, err)
			}
			sawProgress = true
		}
		return pkt.ID() >= protocol.IDUserPacketEnum
	})
	defer pkt.Release()

	if !bytes.Equal(pkt.Data[1:], blob) {
		t.Fatal("reassembled blob differs from original")
	}
	if !sawProgress {
		t.Error("no download progress events during split transfer")
	}
}

func TestSendWithReceipt(t *testing.T) {
	t.Parallel()
	a := startPeer(t, DefaultConfig())
	b := startPeer(t, DefaultConfig())
	baddr := connectPeers(t, a, b)

	const serial = 0xCAFE
	payload := []byte{byte(protocol.IDUserPacketEnum), 1, 2, 3}
	if a.SendWithReceipt(payload, protocol.HighPriority, 0, baddr, false, serial) == 0 {
		t.Fatal("send rejected")
	}

	pkt := waitForID(t, a, protocol.IDSndReceiptAcked, 10*time.Second)
	defer pkt.Release()
	got, err := protocol.UnmarshalReceipt(pkt.Data)
	if err != nil || got != serial {
		t.Fatalf("receipt serial = %d (err=%v), want %d", got, err, serial)
	}
}

func TestAdmissionCap(t *testing.T) {
	t.Parallel()
	cfg := DefaultConfig()
	cfg.MaxIncomingConnections = 1
	server := startPeer(t, cfg)

	c1 := startPeer(t, DefaultConfig())
	connectPeers(t, c1, server)

	c2 := startPeer(t, DefaultConfig())
	saddr := peerUDPAddr(t, server)
	if err := c2.Connect("127.0.0.1", uint16(saddr.Port)); err != nil {
		t.Fatalf("connect: %v", err)
	}
	waitForID(t, c2, protocol.IDNoFreeIncomingConnections, 5*time.Second).Release()

	if c2.ConnectionState(saddr) != StateUnconnected {
		t.Fatalf("refused attempt left state %v", c2.ConnectionState(saddr))
	}
}

func TestConnectAttemptFailed(t *testing.T) {
	t.Parallel()
	cfg := DefaultConfig()
	cfg.TimeoutDuration = 1500 * time.Millisecond
	a := startPeer(t, cfg)

	// Nothing listens here; grab a port that was just freed.
	tmp, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	if err != nil {
		t.Fatalf("probe port: %v", err)
	}
	port := uint16(tmp.LocalAddr().(*net.UDPAddr).Port)
	tmp.Close()

	if err := a.Connect("127.0.0.1", port); err != nil {
		t.Fatalf("connect: %v", err)
	}
	waitForID(t, a, protocol.IDConnectionAttemptFailed, 5*time.Second).Release()
}

func TestAlreadyConnected(t *testing.T) {
	t.Parallel()
	a := startPeer(t, DefaultConfig())
	b := startPeer(t, DefaultConfig())
	baddr := connectPeers(t, a, b)

	err := a.Connect("127.0.0.1", uint16(baddr.Port))
	if !errors.Is(err, protocol.ErrAlreadyConnected) {
		t.Fatalf("second connect: %v, want ErrAlreadyConnected", err)
	}
}

func TestCloseWithNotify(t *testing.T) {
	t.Parallel()
	a := startPeer(t, DefaultConfig())
	b := startPeer(t, DefaultConfig())
	baddr := connectPeers(t, a, b)

	a.CloseConnection(baddr, true)
	waitForID(t, b, protocol.IDDisconnectionNotification, 5*time.Second).Release()

	deadline := time.Now().Add(5 * time.Second)
	for a.ConnectionState(baddr) != StateUnconnected {
		if time.Now().After(deadline) {
			t.Fatalf("connection lingered in %v", a.ConnectionState(baddr))
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestSilentDropDetectedAsLost(t *testing.T) {
	t.Parallel()
	cfg := DefaultConfig()
	cfg.TimeoutDuration = 2 * time.Second
	a := startPeer(t, cfg)
	b := startPeer(t, DefaultConfig())
	connectPeers(t, a, b)

	// b drops a without a word; a's timeout must surface the loss.
	aaddr := waitingAddrOn(t, b)
	b.CloseConnection(aaddr, false)
	waitForID(t, a, protocol.IDConnectionLost, 10*time.Second).Release()
}

// waitingAddrOn returns the single connection address on p.
func waitingAddrOn(t *testing.T, p *Peer) *net.UDPAddr {
	t.Helper()
	list := p.ConnectionList()
	if len(list) != 1 {
		t.Fatalf("expected one connection, have %d", len(list))
	}
	addr, err := net.ResolveUDPAddr("udp", list[0].Addr)
	if err != nil {
		t.Fatalf("resolve %s: %v", list[0].Addr, err)
	}
	return addr
}

func TestSimultaneousConnect(t *testing.T) {
	t.Parallel()
	a := startPeer(t, DefaultConfig())
	b := startPeer(t, DefaultConfig())
	aport := uint16(peerUDPAddr(t, a).Port)
	bport := uint16(peerUDPAddr(t, b).Port)

	if err := a.Connect("127.0.0.1", bport); err != nil {
		t.Fatalf("a connect: %v", err)
	}
	// a's request may already have been admitted by the time b dials back;
	// both a true cross and a fast accept must converge on one connection.
	if err := b.Connect("127.0.0.1", aport); err != nil && !errors.Is(err, protocol.ErrAlreadyConnected) {
		t.Fatalf("b connect: %v", err)
	}

	established := func(pkt *Packet) bool {
		return pkt.ID() == protocol.IDConnectionRequestAccepted ||
			pkt.ID() == protocol.IDNewIncomingConnection
	}
	waitFor(t, a, 5*time.Second, "establishment on a", established).Release()
	waitFor(t, b, 5*time.Second, "establishment on b", established).Release()

	deadline := time.Now().Add(5 * time.Second)
	for a.NumConnections() != 1 || b.NumConnections() != 1 {
		if time.Now().After(deadline) {
			t.Fatalf("connections: a=%d b=%d, want 1 and 1", a.NumConnections(), b.NumConnections())
		}
		time.Sleep(5 * time.Millisecond)
	}

	// The single connection works in both directions.
	baddr := &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: int(bport)}
	aaddr := &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: int(aport)}
	msgA := []byte{byte(protocol.IDUserPacketEnum), 'a'}
	msgB := []byte{byte(protocol.IDUserPacketEnum), 'b'}
	for a.Send(msgA, protocol.HighPriority, protocol.ReliableOrdered, 0, baddr, false) == 0 {
		time.Sleep(time.Millisecond)
	}
	for b.Send(msgB, protocol.HighPriority, protocol.ReliableOrdered, 0, aaddr, false) == 0 {
		time.Sleep(time.Millisecond)
	}
	user := func(pkt *Packet) bool { return pkt.ID() >= protocol.IDUserPacketEnum }
	got := waitFor(t, b, 5*time.Second, "message on b", user)
	if got.Data[1] != 'a' {
		t.Fatalf("b received %q", got.Data[1])
	}
	got.Release()
	got = waitFor(t, a, 5*time.Second, "message on a", user)
	if got.Data[1] != 'b' {
		t.Fatalf("a received %q", got.Data[1])
	}
	got.Release()
}

func TestBroadcast(t *testing.T) {
	t.Parallel()
	hub := startPeer(t, DefaultConfig())
	var spokes []*Peer
	for i := 0; i < 3; i++ {
		s := startPeer(t, DefaultConfig())
		connectPeers(t, s, hub)
		spokes = append(spokes, s)
	}

	payload := []byte{byte(protocol.IDUserPacketEnum), 0xBC}
	for hub.Send(payload, protocol.HighPriority, protocol.ReliableOrdered, 0, nil, true) == 0 {
		time.Sleep(time.Millisecond)
	}
	for i, s := range spokes {
		pkt := waitFor(t, s, 5*time.Second, "broadcast", func(pkt *Packet) bool {
			return pkt.ID() >= protocol.IDUserPacketEnum
		})
		if pkt.Data[1] != 0xBC {
			t.Fatalf("spoke %d got %x", i, pkt.Data[1])
		}
		pkt.Release()
	}
}

func TestSendValidation(t *testing.T) {
	t.Parallel()
	a := startPeer(t, DefaultConfig())
	addr := &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 19999}

	if n := a.Send(nil, protocol.HighPriority, protocol.Reliable, 0, addr, false); n != 0 {
		t.Fatalf("empty payload accepted: %d", n)
	}
	if n := a.Send([]byte{0x41}, protocol.HighPriority, protocol.ReliableOrdered, protocol.NumOrderingChannels, addr, false); n != 0 {
		t.Fatalf("bad channel accepted: %d", n)
	}
	if n := a.Send([]byte{0x41}, protocol.HighPriority, protocol.Reliable, 0, nil, false); n != 0 {
		t.Fatalf("nil addr accepted: %d", n)
	}
}

func TestConnectAfterShutdown(t *testing.T) {
	t.Parallel()
	a := New(DefaultConfig())
	a.cfg.ListenAddr = "127.0.0.1:0"
	if err := a.Startup(); err != nil {
		t.Fatalf("startup: %v", err)
	}
	a.Shutdown()
	if err := a.Connect("127.0.0.1", 19132); !errors.Is(err, protocol.ErrShutdown) {
		t.Fatalf("connect after shutdown: %v, want ErrShutdown", err)
	}
}

// recordingPlugin counts engine callbacks.
type recordingPlugin struct {
	mu       sync.Mutex
	attached bool
	updates  int
	received int
	closed   []protocol.MessageID
}

func (r *recordingPlugin) OnAttach(*Peer) { r.mu.Lock(); r.attached = true; r.mu.Unlock() }
func (r *recordingPlugin) OnDetach(*Peer) { r.mu.Lock(); r.attached = false; r.mu.Unlock() }
func (r *recordingPlugin) Update(*Peer)   { r.mu.Lock(); r.updates++; r.mu.Unlock() }
func (r *recordingPlugin) OnReceive(_ *Peer, pkt *Packet) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.received++
	return false
}
func (r *recordingPlugin) OnClosedConnection(_ *Peer, _ *net.UDPAddr, _ uuid.UUID, reason protocol.MessageID) {
	r.mu.Lock()
	r.closed = append(r.closed, reason)
	r.mu.Unlock()
}

func TestPluginCallbacks(t *testing.T) {
	t.Parallel()
	a := startPeer(t, DefaultConfig())
	b := startPeer(t, DefaultConfig())
	rec := &recordingPlugin{}
	a.AttachPlugin(rec)

	baddr := connectPeers(t, a, b)
	a.CloseConnection(baddr, true)

	deadline := time.Now().Add(5 * time.Second)
	for {
		rec.mu.Lock()
		updates, received, closed := rec.updates, rec.received, len(rec.closed)
		rec.mu.Unlock()
		if updates > 0 && received > 0 && closed > 0 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("plugin callbacks missing: updates=%d received=%d closed=%d", updates, received, closed)
		}
		time.Sleep(5 * time.Millisecond)
	}
}
