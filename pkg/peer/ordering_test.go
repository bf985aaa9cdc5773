package peer

import (
	"fmt"
	"testing"
)

func TestOrderedInOrderDelivery(t *testing.T) {
	e := newOrderingEngine()
	for i := uint32(0); i < 10; i++ {
		out := e.submitOrdered(0, i, []byte{byte(i)})
		if len(out) != 1 || out[0][0] != byte(i) {
			t.Fatalf("index %d: got %v", i, out)
		}
	}
}

func TestOrderedHoldAndRelease(t *testing.T) {
	e := newOrderingEngine()

	// 2 and 1 arrive before 0: held.
	if out := e.submitOrdered(0, 2, []byte{2}); out != nil {
		t.Fatalf("future message delivered early: %v", out)
	}
	if out := e.submitOrdered(0, 1, []byte{1}); out != nil {
		t.Fatalf("future message delivered early: %v", out)
	}

	// 0 arrives: the whole run drains in order.
	out := e.submitOrdered(0, 0, []byte{0})
	if len(out) != 3 {
		t.Fatalf("got %d messages, want 3", len(out))
	}
	for i, m := range out {
		if m[0] != byte(i) {
			t.Fatalf("position %d: got %d", i, m[0])
		}
	}
}

func TestOrderedDropsStale(t *testing.T) {
	e := newOrderingEngine()
	e.submitOrdered(0, 0, []byte{0})
	e.submitOrdered(0, 1, []byte{1})
	if out := e.submitOrdered(0, 0, []byte{0}); out != nil {
		t.Fatalf("stale duplicate delivered: %v", out)
	}
}

func TestOrderedChannelsIndependent(t *testing.T) {
	e := newOrderingEngine()
	// Channel 1 blocked waiting for index 0; channel 2 flows freely.
	if out := e.submitOrdered(1, 1, []byte{1}); out != nil {
		t.Fatalf("channel 1 should hold: %v", out)
	}
	if out := e.submitOrdered(2, 0, []byte{9}); len(out) != 1 || out[0][0] != 9 {
		t.Fatalf("channel 2 blocked by channel 1: %v", out)
	}
}

func TestOrderedHeldBound(t *testing.T) {
	e := newOrderingEngine()
	for i := uint32(1); i <= maxHeldMessages+10; i++ {
		e.submitOrdered(0, i, []byte{byte(i)})
	}
	ch := &e.channels[0]
	if len(ch.held) > maxHeldMessages {
		t.Fatalf("held %d messages, bound is %d", len(ch.held), maxHeldMessages)
	}
}

func TestSequencedKeepsLatestOnly(t *testing.T) {
	e := newOrderingEngine()
	if out := e.submitSequenced(0, 0, []byte{0}); out == nil {
		t.Fatal("first message dropped")
	}
	if out := e.submitSequenced(0, 5, []byte{5}); out == nil {
		t.Fatal("newer message dropped")
	}
	// Older arrivals after a newer one are discarded, never buffered.
	for _, stale := range []uint32{1, 2, 3, 4, 5} {
		if out := e.submitSequenced(0, stale, []byte{byte(stale)}); out != nil {
			t.Fatalf("stale seq %d delivered", stale)
		}
	}
	if out := e.submitSequenced(0, 6, []byte{6}); out == nil {
		t.Fatal("next message dropped")
	}
}

func TestSendCountersIndependentPerChannel(t *testing.T) {
	e := newOrderingEngine()
	for ch := uint8(0); ch < 3; ch++ {
		for want := uint32(0); want < 4; want++ {
			if got := e.nextOrderingIndex(ch); got != want {
				t.Fatalf("channel %d ordering index = %d, want %d", ch, got, want)
			}
		}
	}
	// Sequencing counters advance on their own.
	if got := e.nextSequencingIndex(0); got != 0 {
		t.Fatalf("sequencing index = %d, want 0", got)
	}
	if got := e.nextSequencingIndex(0); got != 1 {
		t.Fatalf("sequencing index = %d, want 1", got)
	}
	// peek does not consume.
	before := e.peekOrderingIndex(7)
	if after := e.peekOrderingIndex(7); after != before {
		t.Fatalf("peek consumed the counter: %d then %d", before, after)
	}
}

func TestOrderedLongInterleaving(t *testing.T) {
	e := newOrderingEngine()
	// Deliver 0..99 submitted in a scrambled but valid arrival order:
	// evens first (held), then odds (each odd releases a run).
	var delivered []byte
	for i := uint32(0); i < 100; i += 2 {
		for _, m := range e.submitOrdered(3, i+1, []byte{byte(i + 1)}) {
			delivered = append(delivered, m[0])
		}
	}
	for i := uint32(0); i < 100; i += 2 {
		for _, m := range e.submitOrdered(3, i, []byte{byte(i)}) {
			delivered = append(delivered, m[0])
		}
	}
	if len(delivered) != 100 {
		t.Fatalf("delivered %d, want 100", len(delivered))
	}
	for i, b := range delivered {
		if b != byte(i) {
			t.Fatalf("position %d: got %d (%s)", i, b, fmt.Sprint(delivered[:i+1]))
		}
	}
}
