package peer

import (
	"github.com/wu-vincent/RakNet/pkg/protocol"
)

// maxHeldMessages bounds how many out-of-order messages a single channel will
// buffer while waiting for a gap to fill. Arrivals beyond the bound are
// dropped; the reliability layer retransmits them later.
const maxHeldMessages = 1024

// orderingChannel tracks send and receive sequence state for one of the 32
// independent channels.
type orderingChannel struct {
	sendOrdered   uint32 // next ordering index to assign
	sendSequenced uint32 // next sequencing index to assign

	recvOrdered uint32 // next ordering index expected

	recvHighestSeq uint32 // highest sequencing index delivered
	recvSeqAny     bool   // false until the first sequenced arrival

	held map[uint32][]byte // ordering index → payload awaiting predecessors
}

// orderingEngine assigns and consumes per-channel sequence numbers. All
// indices live in the circular 24-bit space.
type orderingEngine struct {
	channels [protocol.NumOrderingChannels]orderingChannel
}

func newOrderingEngine() *orderingEngine {
	return &orderingEngine{}
}

// nextOrderingIndex consumes the channel's ordering counter for an ordered
// send. The sequenced counter is independent; cross-type ordering on a
// channel is not guaranteed.
func (e *orderingEngine) nextOrderingIndex(ch uint8) uint32 {
	c := &e.channels[ch]
	idx := c.sendOrdered
	c.sendOrdered = (c.sendOrdered + 1) & protocol.MaxUint24
	return idx
}

// nextSequencingIndex consumes the channel's sequencing counter.
func (e *orderingEngine) nextSequencingIndex(ch uint8) uint32 {
	c := &e.channels[ch]
	idx := c.sendSequenced
	c.sendSequenced = (c.sendSequenced + 1) & protocol.MaxUint24
	return idx
}

// peekOrderingIndex returns the ordering index a sequenced send is anchored
// to, without consuming it.
func (e *orderingEngine) peekOrderingIndex(ch uint8) uint32 {
	return e.channels[ch].sendOrdered
}

// submitOrdered hands a received ordered message to the engine. It returns
// the payloads that became deliverable, in order: nothing if the message had
// to be held, the message plus any drained successors once the gap fills.
// Stale duplicates return nothing.
func (e *orderingEngine) submitOrdered(ch uint8, idx uint32, payload []byte) [][]byte {
	c := &e.channels[ch]

	if idx == c.recvOrdered {
		out := [][]byte{payload}
		c.recvOrdered = (c.recvOrdered + 1) & protocol.MaxUint24
		for c.held != nil {
			next, ok := c.held[c.recvOrdered]
			if !ok {
				break
			}
			delete(c.held, c.recvOrdered)
			out = append(out, next)
			c.recvOrdered = (c.recvOrdered + 1) & protocol.MaxUint24
		}
		return out
	}

	if protocol.Seq24After(idx, c.recvOrdered) {
		if c.held == nil {
			c.held = make(map[uint32][]byte)
		}
		if _, dup := c.held[idx]; !dup && len(c.held) < maxHeldMessages {
			c.held[idx] = payload
		}
		return nil
	}

	// Before the expected index: duplicate of something already delivered.
	return nil
}

// submitSequenced hands a received sequenced message to the engine. It
// returns the payload if it is newer than everything delivered so far on the
// channel, nil if it is stale. Sequenced traffic is never buffered.
func (e *orderingEngine) submitSequenced(ch uint8, seqIdx uint32, payload []byte) []byte {
	c := &e.channels[ch]
	if c.recvSeqAny && !protocol.Seq24After(seqIdx, c.recvHighestSeq) {
		return nil
	}
	c.recvSeqAny = true
	c.recvHighestSeq = seqIdx
	return payload
}
