package peer

import (
	"net"

	"github.com/google/uuid"

	"github.com/wu-vincent/RakNet/pkg/protocol"
)

// Plugin observes a Peer's traffic and lifecycle. Plugins run on the peer's
// update goroutine; they may inject their own messages through Send but must
// not block. This is the extension point higher layers (replication, relays,
// telemetry) attach through.
type Plugin interface {
	// OnAttach is called when the plugin is registered.
	OnAttach(p *Peer)

	// OnDetach is called when the plugin is removed or the peer shuts down.
	OnDetach(p *Peer)

	// Update is called once per update cycle.
	Update(p *Peer)

	// OnReceive sees every packet, engine events included, before it reaches
	// the inbound queue. Returning true consumes the packet.
	OnReceive(p *Peer, pkt *Packet) bool

	// OnClosedConnection is called when a connection reaches its terminal
	// state, with the reason event identifier.
	OnClosedConnection(p *Peer, addr *net.UDPAddr, guid uuid.UUID, reason protocol.MessageID)
}

// AttachPlugin registers a plugin. Safe to call before or after Startup.
func (p *Peer) AttachPlugin(pl Plugin) {
	p.pluginMu.Lock()
	p.plugins = append(p.plugins, pl)
	p.pluginMu.Unlock()
	pl.OnAttach(p)
}

// DetachPlugin removes a previously attached plugin.
func (p *Peer) DetachPlugin(pl Plugin) {
	p.pluginMu.Lock()
	for i, q := range p.plugins {
		if q == pl {
			p.plugins = append(p.plugins[:i], p.plugins[i+1:]...)
			break
		}
	}
	p.pluginMu.Unlock()
	pl.OnDetach(p)
}

func (p *Peer) pluginList() []Plugin {
	p.pluginMu.Lock()
	defer p.pluginMu.Unlock()
	out := make([]Plugin, len(p.plugins))
	copy(out, p.plugins)
	return out
}

func (p *Peer) pluginsUpdate() {
	for _, pl := range p.pluginList() {
		pl.Update(p)
	}
}

func (p *Peer) pluginsOnReceive(pkt *Packet) bool {
	for _, pl := range p.pluginList() {
		if pl.OnReceive(p, pkt) {
			return true
		}
	}
	return false
}

func (p *Peer) pluginsOnClosed(addr *net.UDPAddr, guid uuid.UUID, reason protocol.MessageID) {
	for _, pl := range p.pluginList() {
		pl.OnClosedConnection(p, addr, guid, reason)
	}
}
