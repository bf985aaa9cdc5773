package peer

import (
	"fmt"
	"time"

	"github.com/wu-vincent/RakNet/pkg/protocol"
)

// Config controls a Peer's capacity and timing knobs. Zero values are
// replaced with defaults at Startup.
type Config struct {
	// ListenAddr is the UDP address to bind, e.g. ":0" for an OS-assigned
	// port.
	ListenAddr string

	// MaxConnections bounds the total number of simultaneous connections,
	// outbound and inbound combined.
	MaxConnections int

	// MaxIncomingConnections bounds how many of those may be initiated by
	// remote peers. Handshakes beyond the limit are refused with
	// IDNoFreeIncomingConnections.
	MaxIncomingConnections int

	// TimeoutDuration is how long a connection may go without receiving any
	// datagram before it is declared lost.
	TimeoutDuration time.Duration

	// MTU is the largest datagram this peer will send. The handshake agrees
	// on the minimum of both sides.
	MTU uint16

	// PingInterval is how often connected peers exchange heartbeat pings.
	PingInterval time.Duration

	// AckFlushInterval is how long received datagrams may wait before their
	// acknowledgment ranges are sent.
	AckFlushInterval time.Duration

	// SplitProgressInterval emits an IDDownloadProgress event every N parts
	// of an incomplete split message. 0 disables progress events.
	SplitProgressInterval uint32

	// SendQueueCapacity bounds the outbound queue shared by all Send callers.
	// A full queue makes Send return 0 accepted bytes.
	SendQueueCapacity int

	// InboundQueueCapacity bounds the queue drained by Receive.
	InboundQueueCapacity int
}

// DefaultConfig returns the configuration used when fields are left zero.
func DefaultConfig() Config {
	return Config{
		ListenAddr:             ":0",
		MaxConnections:         64,
		MaxIncomingConnections: 32,
		TimeoutDuration:        10 * time.Second,
		MTU:                    protocol.DefaultMTU,
		PingInterval:           2 * time.Second,
		AckFlushInterval:       10 * time.Millisecond,
		SplitProgressInterval:  0,
		SendQueueCapacity:      1024,
		InboundQueueCapacity:   1024,
	}
}

func (cfg *Config) applyDefaults() {
	def := DefaultConfig()
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = def.ListenAddr
	}
	if cfg.MaxConnections == 0 {
		cfg.MaxConnections = def.MaxConnections
	}
	if cfg.MaxIncomingConnections == 0 {
		cfg.MaxIncomingConnections = def.MaxIncomingConnections
	}
	if cfg.TimeoutDuration == 0 {
		cfg.TimeoutDuration = def.TimeoutDuration
	}
	if cfg.MTU == 0 {
		cfg.MTU = def.MTU
	}
	if cfg.PingInterval == 0 {
		cfg.PingInterval = def.PingInterval
	}
	if cfg.AckFlushInterval == 0 {
		cfg.AckFlushInterval = def.AckFlushInterval
	}
	if cfg.SendQueueCapacity == 0 {
		cfg.SendQueueCapacity = def.SendQueueCapacity
	}
	if cfg.InboundQueueCapacity == 0 {
		cfg.InboundQueueCapacity = def.InboundQueueCapacity
	}
}

func (cfg *Config) validate() error {
	if cfg.MTU < protocol.MinMTU || cfg.MTU > protocol.MaxMTU {
		return fmt.Errorf("mtu %d outside [%d, %d]", cfg.MTU, protocol.MinMTU, protocol.MaxMTU)
	}
	if cfg.MaxIncomingConnections > cfg.MaxConnections {
		return fmt.Errorf("max incoming connections %d exceeds max connections %d",
			cfg.MaxIncomingConnections, cfg.MaxConnections)
	}
	return nil
}
