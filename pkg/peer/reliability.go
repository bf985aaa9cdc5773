package peer

import (
	"sort"
	"time"

	"github.com/wu-vincent/RakNet/pkg/protocol"
)

// Retransmission timing (RFC 6298 shape: SRTT/RTTVAR smoothed estimate with a
// clamped timeout, doubled per consecutive miss).
const (
	initialRTO       = 1 * time.Second
	rtoMin           = 100 * time.Millisecond
	rtoMax           = 4 * time.Second
	clockGranularity = 10 * time.Millisecond
)

// maxNackGap bounds how many consecutive missing datagram sequence numbers a
// single arrival may negatively acknowledge. Larger gaps are left to the
// sender's retransmit timer.
const maxNackGap = 128

// maxSparseIndices bounds the out-of-order duplicate-suppression set, the way
// maxHeldMessages bounds an ordering channel. Indices arriving with the set
// full are dropped and recovered by retransmission.
const maxSparseIndices = 8192

// datagramExpiry is how long a sent-datagram record is kept waiting for an
// acknowledgment before the per-message retransmit timer is assumed to have
// superseded it.
const datagramExpiry = 10 * time.Second

// reliableRecord tracks one reliable frame from first transmission until it
// is acknowledged or the connection dies. Never garbage-collected while
// unacknowledged: it is resent indefinitely.
type reliableRecord struct {
	frame      *protocol.Frame
	firstSent  time.Time
	nextResend time.Time
	attempts   int
	receipt    uint32
	hasReceipt bool
}

// datagramRecord remembers which reliable message indices a sent datagram
// carried, so acknowledgment of the datagram sequence resolves them.
type datagramRecord struct {
	indices []uint32
	sentAt  time.Time
}

// ledger is the per-connection reliability state: outstanding sends awaiting
// acknowledgment on one side, duplicate suppression and ack/nack generation
// on the other.
type ledger struct {
	// Send side.
	nextMessageIndex uint32
	nextDatagramSeq  uint32
	unacked          map[uint32]*reliableRecord // message index → record
	datagrams        map[uint32]*datagramRecord // datagram seq → carried indices
	inFlight         int                        // unacknowledged payload bytes

	receiptCounts map[uint32]int // receipt serial → parts still unacked

	srtt   time.Duration
	rttvar time.Duration
	rto    time.Duration

	// Receive side: duplicate suppression over reliable message indices.
	// Every index circularly before recvBase has been seen; indices at or
	// ahead of it are in the sparse set.
	recvBase   uint32
	recvSparse map[uint32]struct{}

	// Datagram sequence tracking for ack/nack generation.
	recvHighestSeq uint32
	recvAnySeq     bool
	ackQueue       []uint32
	nackQueue      []uint32
	lastAckFlush   time.Time
}

func newLedger() *ledger {
	return &ledger{
		unacked:       make(map[uint32]*reliableRecord),
		datagrams:     make(map[uint32]*datagramRecord),
		receiptCounts: make(map[uint32]int),
		recvSparse:    make(map[uint32]struct{}),
		rto:           initialRTO,
	}
}

// assignMessageIndex hands out the next per-connection reliable message
// index.
func (l *ledger) assignMessageIndex() uint32 {
	idx := l.nextMessageIndex
	l.nextMessageIndex = (l.nextMessageIndex + 1) & protocol.MaxUint24
	return idx
}

// assignDatagramSeq hands out the next datagram sequence number.
func (l *ledger) assignDatagramSeq() uint32 {
	seq := l.nextDatagramSeq
	l.nextDatagramSeq = (l.nextDatagramSeq + 1) & protocol.MaxUint24
	return seq
}

// addReceipt registers a delivery receipt spanning the given number of
// reliable parts.
func (l *ledger) addReceipt(serial uint32, parts int) {
	l.receiptCounts[serial] += parts
}

// track records a reliable frame's first transmission.
func (l *ledger) track(qf *queuedFrame, now time.Time) {
	rec := &reliableRecord{
		frame:      qf.frame,
		firstSent:  now,
		nextResend: now.Add(l.rto),
		attempts:   1,
		receipt:    qf.receipt,
		hasReceipt: qf.hasReceipt,
	}
	l.unacked[qf.frame.MessageIndex] = rec
	l.inFlight += len(qf.frame.Payload)
}

// noteDatagramSent associates a sent datagram sequence with the reliable
// message indices it carried.
func (l *ledger) noteDatagramSent(seq uint32, indices []uint32, now time.Time) {
	if len(indices) == 0 {
		return
	}
	l.datagrams[seq] = &datagramRecord{indices: indices, sentAt: now}
}

// ackResult is what consuming an acknowledgment produced.
type ackResult struct {
	ackedBytes int
	acked      int
	receipts   []uint32 // completed delivery-receipt serials
}

// onAck consumes acknowledgment ranges, resolving every reliable record
// carried by the acked datagrams. RTT samples are only taken from records
// acknowledged on their first transmission (Karn's algorithm).
func (l *ledger) onAck(ranges []protocol.AckRange, now time.Time) ackResult {
	var res ackResult
	l.eachSeq(ranges, func(seq uint32) {
		dr, ok := l.datagrams[seq]
		if !ok {
			return
		}
		delete(l.datagrams, seq)
		for _, idx := range dr.indices {
			rec, ok := l.unacked[idx]
			if !ok {
				continue
			}
			delete(l.unacked, idx)
			l.inFlight -= len(rec.frame.Payload)
			res.ackedBytes += len(rec.frame.Payload)
			res.acked++
			if rec.attempts == 1 {
				l.updateRTT(now.Sub(rec.firstSent))
			}
			if rec.hasReceipt {
				l.receiptCounts[rec.receipt]--
				if l.receiptCounts[rec.receipt] <= 0 {
					delete(l.receiptCounts, rec.receipt)
					res.receipts = append(res.receipts, rec.receipt)
				}
			}
		}
	})
	return res
}

// onNack returns the still-unacked records carried by negatively acknowledged
// datagrams so the caller can retransmit them at once.
func (l *ledger) onNack(ranges []protocol.AckRange) []*reliableRecord {
	var out []*reliableRecord
	l.eachSeq(ranges, func(seq uint32) {
		dr, ok := l.datagrams[seq]
		if !ok {
			return
		}
		delete(l.datagrams, seq)
		for _, idx := range dr.indices {
			if rec, ok := l.unacked[idx]; ok {
				out = append(out, rec)
			}
		}
	})
	return out
}

// eachSeq invokes fn for every acknowledged sequence that is still tracked.
// Narrow ranges are walked directly; anything wider than the nack gap limit
// is resolved by scanning the tracked-datagram map instead, so a hostile
// range can never force a walk of the 24-bit sequence space.
func (l *ledger) eachSeq(ranges []protocol.AckRange, fn func(uint32)) {
	for _, r := range ranges {
		width := protocol.Seq24Diff(r.Max, r.Min)
		if width > protocol.MaxUint24/2 {
			continue // inverted range
		}
		if width > maxNackGap {
			for seq := range l.datagrams {
				if protocol.Seq24Diff(seq, r.Min) <= width {
					fn(seq)
				}
			}
			continue
		}
		for i := uint32(0); i <= width; i++ {
			fn((r.Min + i) & protocol.MaxUint24)
		}
	}
}

// dueForResend returns records whose retransmit timer has expired, ordered by
// message index, and advances their backoff. The timeout doubles per attempt,
// capped at rtoMax.
func (l *ledger) dueForResend(now time.Time) []*reliableRecord {
	var due []*reliableRecord
	for _, rec := range l.unacked {
		if !rec.nextResend.After(now) {
			due = append(due, rec)
		}
	}
	if len(due) == 0 {
		return nil
	}
	sort.Slice(due, func(i, j int) bool {
		return protocol.Seq24After(due[j].frame.MessageIndex, due[i].frame.MessageIndex)
	})
	for _, rec := range due {
		rec.attempts++
		backoff := l.rto << uint(rec.attempts-1)
		if backoff > rtoMax {
			backoff = rtoMax
		}
		rec.nextResend = now.Add(backoff)
	}
	return due
}

// markResent resets a record's timer after a nack-driven retransmission.
func (l *ledger) markResent(rec *reliableRecord, now time.Time) {
	rec.attempts++
	rec.nextResend = now.Add(l.rto)
}

// expireDatagrams drops sent-datagram records old enough that the per-message
// timers have certainly taken over. Keeps the map bounded under ack loss.
func (l *ledger) expireDatagrams(now time.Time) {
	for seq, dr := range l.datagrams {
		if now.Sub(dr.sentAt) > datagramExpiry {
			delete(l.datagrams, seq)
		}
	}
}

// updateRTT folds a round-trip sample into the smoothed estimate and derives
// the retransmission timeout.
func (l *ledger) updateRTT(rtt time.Duration) {
	if rtt <= 0 {
		return
	}
	if l.srtt == 0 {
		l.srtt = rtt
		l.rttvar = rtt / 2
	} else {
		diff := l.srtt - rtt
		if diff < 0 {
			diff = -diff
		}
		l.rttvar = l.rttvar*3/4 + diff/4
		l.srtt = l.srtt*7/8 + rtt/8
	}
	kvar := l.rttvar * 4
	if kvar < clockGranularity {
		kvar = clockGranularity
	}
	l.rto = l.srtt + kvar
	if l.rto < rtoMin {
		l.rto = rtoMin
	}
	if l.rto > rtoMax {
		l.rto = rtoMax
	}
}

// isDuplicate reports whether a reliable message index has been seen before,
// recording it if not. This is the exactly-once gate: a retransmitted copy of
// an already-delivered message is dropped here.
func (l *ledger) isDuplicate(idx uint32) bool {
	if idx == l.recvBase {
		l.recvBase = (l.recvBase + 1) & protocol.MaxUint24
		for {
			if _, ok := l.recvSparse[l.recvBase]; !ok {
				break
			}
			delete(l.recvSparse, l.recvBase)
			l.recvBase = (l.recvBase + 1) & protocol.MaxUint24
		}
		return false
	}
	if !protocol.Seq24After(idx, l.recvBase) {
		return true // circularly before the base: already seen
	}
	if _, ok := l.recvSparse[idx]; ok {
		return true
	}
	if len(l.recvSparse) >= maxSparseIndices {
		return true // set full: drop, the sender's retransmit recovers it
	}
	l.recvSparse[idx] = struct{}{}
	return false
}

// noteDatagramRecv queues an acknowledgment for a received datagram sequence
// and negatively acknowledges any gap it reveals. Duplicates are re-acked so
// the sender recovers from lost ack packets.
func (l *ledger) noteDatagramRecv(seq uint32) {
	l.ackQueue = append(l.ackQueue, seq)
	if !l.recvAnySeq {
		l.recvAnySeq = true
		l.recvHighestSeq = seq
		return
	}
	if !protocol.Seq24After(seq, l.recvHighestSeq) {
		return
	}
	gap := protocol.Seq24Diff(seq, l.recvHighestSeq) - 1
	if gap > 0 && gap <= maxNackGap {
		for s := (l.recvHighestSeq + 1) & protocol.MaxUint24; s != seq; s = (s + 1) & protocol.MaxUint24 {
			l.nackQueue = append(l.nackQueue, s)
		}
	}
	l.recvHighestSeq = seq
}

// flushAcks returns the pending ack and nack ranges if the flush interval has
// elapsed (nacks flush immediately). Returns nils when there is nothing to
// send yet.
func (l *ledger) flushAcks(now time.Time, interval time.Duration) (acks, nacks []protocol.AckRange) {
	if len(l.nackQueue) > 0 {
		sortSeqs(l.nackQueue)
		nacks = protocol.RangesFromSeqs(l.nackQueue)
		l.nackQueue = l.nackQueue[:0]
	}
	if len(l.ackQueue) > 0 && now.Sub(l.lastAckFlush) >= interval {
		sortSeqs(l.ackQueue)
		acks = protocol.RangesFromSeqs(l.ackQueue)
		l.ackQueue = l.ackQueue[:0]
		l.lastAckFlush = now
	}
	return acks, nacks
}

// sortSeqs orders sequence numbers circularly so RangesFromSeqs can merge
// them.
func sortSeqs(seqs []uint32) {
	sort.Slice(seqs, func(i, j int) bool {
		return protocol.Seq24After(seqs[j], seqs[i])
	})
}
