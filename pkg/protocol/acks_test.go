package protocol

import (
	"testing"

	"github.com/google/uuid"
)

func TestRangesFromSeqs(t *testing.T) {
	cases := []struct {
		seqs []uint32
		want []AckRange
	}{
		{nil, nil},
		{[]uint32{5}, []AckRange{{5, 5}}},
		{[]uint32{1, 2, 3}, []AckRange{{1, 3}}},
		{[]uint32{1, 2, 2, 3}, []AckRange{{1, 3}}},
		{[]uint32{1, 3, 4, 7}, []AckRange{{1, 1}, {3, 4}, {7, 7}}},
		{[]uint32{MaxUint24, 0, 1}, []AckRange{{MaxUint24, 1}}}, // wrap
	}
	for _, c := range cases {
		got := RangesFromSeqs(c.seqs)
		if len(got) != len(c.want) {
			t.Errorf("seqs %v: got %v, want %v", c.seqs, got, c.want)
			continue
		}
		for i := range got {
			if got[i] != c.want[i] {
				t.Errorf("seqs %v: range %d = %v, want %v", c.seqs, i, got[i], c.want[i])
			}
		}
	}
}

func TestAckDatagramRoundTrip(t *testing.T) {
	ranges := []AckRange{{1, 1}, {3, 10}, {100, 100}}
	for _, nack := range []bool{false, true} {
		wire := MarshalAckDatagram(nack, ranges)
		if wire[0]&FlagValid == 0 {
			t.Fatal("missing valid flag")
		}
		wantFlag := byte(FlagAck)
		if nack {
			wantFlag = FlagNack
		}
		if wire[0]&wantFlag == 0 {
			t.Fatalf("nack=%v: wrong flag byte 0x%02x", nack, wire[0])
		}
		got, err := UnmarshalAckRanges(wire[1:])
		if err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if len(got) != len(ranges) {
			t.Fatalf("got %d ranges, want %d", len(got), len(ranges))
		}
		for i := range got {
			if got[i] != ranges[i] {
				t.Errorf("range %d = %v, want %v", i, got[i], ranges[i])
			}
		}
	}
}

func TestOfflineMessages(t *testing.T) {
	guid := uuid.New()

	req := &OpenConnectionRequest{GUID: guid, Version: Version, MTU: 1200}
	wire := req.Marshal()
	if !IsOffline(wire) {
		t.Fatal("request not recognized as offline")
	}
	gotReq, err := UnmarshalOpenConnectionRequest(wire)
	if err != nil {
		t.Fatalf("unmarshal request: %v", err)
	}
	if gotReq.GUID != guid || gotReq.Version != Version || gotReq.MTU != 1200 {
		t.Fatalf("request mismatch: %+v", gotReq)
	}

	rep := &OpenConnectionReply{GUID: guid, MTU: 1200}
	wire = rep.Marshal()
	if !IsOffline(wire) {
		t.Fatal("reply not recognized as offline")
	}
	gotRep, err := UnmarshalOpenConnectionReply(wire)
	if err != nil {
		t.Fatalf("unmarshal reply: %v", err)
	}
	if gotRep.GUID != guid || gotRep.MTU != 1200 {
		t.Fatalf("reply mismatch: %+v", gotRep)
	}

	ref := &ConnectionRefusal{Reason: IDNoFreeIncomingConnections, GUID: guid}
	wire = ref.Marshal()
	if !IsOffline(wire) {
		t.Fatal("refusal not recognized as offline")
	}
	gotRef, err := UnmarshalConnectionRefusal(wire)
	if err != nil {
		t.Fatalf("unmarshal refusal: %v", err)
	}
	if gotRef.Reason != IDNoFreeIncomingConnections || gotRef.GUID != guid {
		t.Fatalf("refusal mismatch: %+v", gotRef)
	}

	// Connected datagrams must never be mistaken for offline traffic.
	d := &Datagram{Seq: 0, Frames: []*Frame{{Reliability: Unreliable, Payload: OfflineMagic[:]}}}
	if IsOffline(d.Marshal(nil)) {
		t.Fatal("connected datagram misclassified as offline")
	}
}

func TestPingRoundTrip(t *testing.T) {
	const ts = int64(1234567890123456789)
	for _, id := range []MessageID{IDConnectedPing, IDConnectedPong} {
		wire := MarshalPing(id, ts)
		if MessageID(wire[0]) != id {
			t.Fatalf("id = %v", wire[0])
		}
		got, err := UnmarshalPing(wire)
		if err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if got != ts {
			t.Fatalf("timestamp = %d, want %d", got, ts)
		}
	}
}

func TestValidateChannel(t *testing.T) {
	if err := ValidateChannel(0); err != nil {
		t.Fatalf("channel 0: %v", err)
	}
	if err := ValidateChannel(NumOrderingChannels - 1); err != nil {
		t.Fatalf("last channel: %v", err)
	}
	if err := ValidateChannel(NumOrderingChannels); err == nil {
		t.Fatal("out-of-range channel accepted")
	}
}
