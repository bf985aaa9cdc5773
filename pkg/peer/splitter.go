package peer

import (
	"time"

	"github.com/wu-vincent/RakNet/pkg/protocol"
)

// maxSplitParts caps how many parts a single split message may have. At the
// minimum MTU this still allows messages well over 30 MB.
const maxSplitParts = 1 << 16

// splitPayload cuts an oversized payload into MTU-sized parts. The parts
// alias the original slice; callers own the backing array.
func splitPayload(payload []byte, maxPart int) [][]byte {
	n := (len(payload) + maxPart - 1) / maxPart
	parts := make([][]byte, 0, n)
	for off := 0; off < len(payload); off += maxPart {
		end := off + maxPart
		if end > len(payload) {
			end = len(payload)
		}
		parts = append(parts, payload[off:end])
	}
	return parts
}

// splitAssembly collects the parts of one split message.
type splitAssembly struct {
	parts    [][]byte
	received uint32
	total    uint32
	bytes    int
	lastPart time.Time
}

// assembler reassembles split messages per connection. Incomplete assemblies
// are abandoned when the owning connection is destroyed.
type assembler struct {
	pending map[uint16]*splitAssembly
}

func newAssembler() *assembler {
	return &assembler{pending: make(map[uint16]*splitAssembly)}
}

// submit adds one split frame. It returns the fully reassembled payload once
// every part is present, or nil with the current progress count while the
// assembly is incomplete. The frame payload is copied; callers may reuse the
// buffer.
func (a *assembler) submit(f *protocol.Frame, now time.Time) (complete []byte, received, total uint32) {
	if f.SplitCount == 0 || f.SplitCount > maxSplitParts || f.SplitIndex >= f.SplitCount {
		return nil, 0, 0
	}
	asm, ok := a.pending[f.SplitID]
	if !ok {
		asm = &splitAssembly{
			parts:    make([][]byte, f.SplitCount),
			total:    f.SplitCount,
			lastPart: now,
		}
		a.pending[f.SplitID] = asm
	}
	if asm.total != f.SplitCount || asm.parts[f.SplitIndex] != nil {
		return nil, asm.received, asm.total
	}
	part := make([]byte, len(f.Payload))
	copy(part, f.Payload)
	asm.parts[f.SplitIndex] = part
	asm.received++
	asm.bytes += len(part)
	asm.lastPart = now

	if asm.received < asm.total {
		return nil, asm.received, asm.total
	}

	delete(a.pending, f.SplitID)
	whole := make([]byte, 0, asm.bytes)
	for _, p := range asm.parts {
		whole = append(whole, p...)
	}
	return whole, asm.total, asm.total
}

// lookup returns the assembly for a split id, if any.
func (a *assembler) lookup(id uint16) *splitAssembly {
	return a.pending[id]
}

// expire drops assemblies that have not made progress within maxAge. A
// reliable sender still working on the message refreshes the assembly with
// every new part, so only abandoned transfers are reaped.
func (a *assembler) expire(now time.Time, maxAge time.Duration) {
	for id, asm := range a.pending {
		if now.Sub(asm.lastPart) > maxAge {
			delete(a.pending, id)
		}
	}
}
