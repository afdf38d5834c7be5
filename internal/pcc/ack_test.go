package pcc

import "testing"

func TestSortSACKOrdersByStartWrapAware(t *testing.T) {
	in := [4]SACKBlock{
		{Start: 300, End: 350},
		{},
		{Start: 100, End: 150},
		{Start: 200, End: 250},
	}
	out := sortSACK(in)
	// The absent block has Start 0, so it sorts ahead of 100.
	if !out[0].isZero() || out[1].Start != 100 || out[2].Start != 200 || out[3].Start != 300 {
		t.Errorf("sortSACK = %+v", out)
	}
}

func TestApplyAckToIntervalAdvancesOnCumulativeAck(t *testing.T) {
	iv := &MonitorInterval{SndStartSeq: 0, SndEndSeq: 1000, LastAckedSeq: 0}
	applyAckToInterval(iv, 500, [4]SACKBlock{})
	if iv.LastAckedSeq != 500 {
		t.Errorf("LastAckedSeq = %d, want 500", iv.LastAckedSeq)
	}
	if iv.BytesLost != 0 {
		t.Errorf("BytesLost = %d, want 0 (no SACK holes)", iv.BytesLost)
	}
}

func TestApplyAckToIntervalAccountsSACKHoleAsLoss(t *testing.T) {
	iv := &MonitorInterval{SndStartSeq: 0, SndEndSeq: 1000, LastAckedSeq: 0}
	sack := [4]SACKBlock{{Start: 300, End: 1000}}
	applyAckToInterval(iv, 0, sack)
	if iv.BytesLost != 300 {
		t.Errorf("BytesLost = %d, want 300 (the [0,300) gap)", iv.BytesLost)
	}
	if iv.LastAckedSeq != 1000 {
		t.Errorf("LastAckedSeq = %d, want 1000", iv.LastAckedSeq)
	}
}

func TestApplyAckToIntervalMultipleHoles(t *testing.T) {
	iv := &MonitorInterval{SndStartSeq: 0, SndEndSeq: 1000, LastAckedSeq: 0}
	sack := sortSACK([4]SACKBlock{
		{Start: 800, End: 900},
		{Start: 200, End: 400},
	})
	applyAckToInterval(iv, 0, sack)
	// gap [0,200) + gap [400,800) = 200 + 400 = 600
	if iv.BytesLost != 600 {
		t.Errorf("BytesLost = %d, want 600", iv.BytesLost)
	}
	if iv.LastAckedSeq != 900 {
		t.Errorf("LastAckedSeq = %d, want 900", iv.LastAckedSeq)
	}
}

func TestApplyAckToIntervalClipsGapAtSndEndSeq(t *testing.T) {
	iv := &MonitorInterval{SndStartSeq: 0, SndEndSeq: 500, LastAckedSeq: 0}
	sack := [4]SACKBlock{{Start: 1000, End: 1200}}
	applyAckToInterval(iv, 0, sack)
	if iv.BytesLost != 500 {
		t.Errorf("BytesLost = %d, want 500 (the [0,1000) gap clipped at SndEndSeq)", iv.BytesLost)
	}
}

func TestApplyAckAppliesToAllValidIntervals(t *testing.T) {
	r := NewMonitorRing()
	r.slots[0] = MonitorInterval{Valid: true, SndStartSeq: 0, SndEndSeq: 1000, LastAckedSeq: 0}
	r.slots[5] = MonitorInterval{Valid: true, SndStartSeq: 1000, SndEndSeq: 2000, LastAckedSeq: 1000}
	r.slots[6] = MonitorInterval{Valid: false, SndStartSeq: 2000, SndEndSeq: 3000, LastAckedSeq: 2000}

	c := &Controller{ring: r}
	c.applyAck(AckSample{SndUna: 1000})

	if r.slots[0].LastAckedSeq != 1000 {
		t.Errorf("slot 0 LastAckedSeq = %d, want 1000", r.slots[0].LastAckedSeq)
	}
	if r.slots[5].LastAckedSeq != 1000 {
		t.Errorf("slot 5 LastAckedSeq should be untouched by an snd_una equal to it, got %d", r.slots[5].LastAckedSeq)
	}
	if r.slots[6].LastAckedSeq != 2000 {
		t.Error("invalid slot must not be updated")
	}
}

func TestApplyAckStoresPositiveRTTSample(t *testing.T) {
	c := &Controller{ring: NewMonitorRing()}
	c.applyAck(AckSample{RTT: 0})
	if c.lastRTT != 0 {
		t.Errorf("lastRTT = %v, want 0 (zero sample ignored)", c.lastRTT)
	}
	c.applyAck(AckSample{RTT: 42})
	if c.lastRTT != 42 {
		t.Errorf("lastRTT = %v, want 42", c.lastRTT)
	}
}
