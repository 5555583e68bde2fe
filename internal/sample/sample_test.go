package sample

import "testing"

func TestRateReverseIsInvolution(t *testing.T) {
	r := Rate{InBps: 100, OutBps: 200, BandwidthBps: 10000}
	got := r.Reverse().Reverse()
	if got != r {
		t.Fatalf("reverse().reverse() = %+v, want %+v", got, r)
	}
	if r.Reverse().BandwidthBps != r.BandwidthBps {
		t.Fatalf("reverse changed bandwidth: %v != %v", r.Reverse().BandwidthBps, r.BandwidthBps)
	}
}

func TestRateReverseSwapsInOut(t *testing.T) {
	r := Rate{InBps: 100, OutBps: 200}
	rev := r.Reverse()
	if rev.InBps != 200 || rev.OutBps != 100 {
		t.Fatalf("reverse did not swap: %+v", rev)
	}
}

func TestLinkEqualIgnoresOrientation(t *testing.T) {
	a := Interface{Node: "node-a", InterfaceID: "Te1/1"}
	b := Interface{Node: "node-b", InterfaceID: "Te1/1"}

	l1 := Link{Source: a, Target: b}
	l2 := Link{Source: b, Target: a}

	if !l1.Equal(l2) {
		t.Fatalf("expected orientation-independent equality")
	}
	if l1.Hash() != l2.Hash() {
		t.Fatalf("expected orientation-independent hash: %d != %d", l1.Hash(), l2.Hash())
	}
}

func TestLinkHashDistinguishesDifferentPairs(t *testing.T) {
	a := Interface{Node: "node-a", InterfaceID: "Te1/1"}
	b := Interface{Node: "node-b", InterfaceID: "Te1/1"}
	c := Interface{Node: "node-c", InterfaceID: "Te1/1"}

	l1 := Link{Source: a, Target: b}
	l2 := Link{Source: a, Target: c}
	if l1.Hash() == l2.Hash() {
		t.Fatalf("expected distinct hashes for distinct endpoint pairs")
	}
}

func TestCounterPacketLossZeroPackets(t *testing.T) {
	c := Counter{InputErrors: 5, PacketsReceived: 0}
	if got := c.PacketLoss(); got != 0 {
		t.Fatalf("PacketLoss() = %v, want 0", got)
	}
}

func TestCounterPacketLossRatio(t *testing.T) {
	c := Counter{InputErrors: 5, PacketsReceived: 100}
	if got := c.PacketLoss(); got != 0.05 {
		t.Fatalf("PacketLoss() = %v, want 0.05", got)
	}
}

func TestApplyStateOnlySetsProvenanceOnce(t *testing.T) {
	var l Link
	l.ApplyState(Measurement{State: StateSample{Value: StateUp, SourceTag: "first"}})
	l.ApplyState(Measurement{State: StateSample{Value: StateDown, SourceTag: "second"}})
	if l.State != StateDown {
		t.Fatalf("expected latest state value to win")
	}
	if l.DataSource != "first" {
		t.Fatalf("expected DataSource to stick to first writer, got %q", l.DataSource)
	}
}

func TestApplyRateAlwaysOverwritesProvenance(t *testing.T) {
	var l Link
	l.ApplyRate(SideSource, Measurement{Rate: Rate{InBps: 1, SourceTag: "first"}})
	l.ApplyRate(SideSource, Measurement{Rate: Rate{InBps: 2, SourceTag: "second"}})
	if l.DataSource != "second" {
		t.Fatalf("expected rate provenance to always overwrite, got %q", l.DataSource)
	}
}

func TestApplyRateReversesOnTargetSide(t *testing.T) {
	var l Link
	l.ApplyRate(SideTarget, Measurement{Rate: Rate{InBps: 10, OutBps: 20, BandwidthBps: 1000}})
	if l.InRateBps != 20 || l.OutRateBps != 10 {
		t.Fatalf("expected target-side rate to be reversed, got in=%v out=%v", l.InRateBps, l.OutRateBps)
	}
	if l.BandwidthBps != 1000 {
		t.Fatalf("expected bandwidth preserved through reverse")
	}
}

func TestEndpointEqual(t *testing.T) {
	local := Interface{Node: "test-a", InterfaceID: "Te1/1"}
	p1 := NewPair(local, Interface{Node: "node-b", InterfaceID: "Te2/2"})
	p2 := NewPair(local, Interface{Node: "node-b", InterfaceID: "Te2/2"})
	if !p1.Equal(p2) {
		t.Fatalf("expected equal pairs")
	}

	o1 := NewOpen(local, "fw")
	o2 := NewOpen(local, "fw")
	if !o1.Equal(o2) {
		t.Fatalf("expected equal open endpoints")
	}
	if p1.Equal(o1) {
		t.Fatalf("pair and open endpoints must not compare equal")
	}
}
