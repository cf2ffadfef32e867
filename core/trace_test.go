package core

import (
	"strings"
	"testing"
)

func TestTraceRingWraps(t *testing.T) {
	r := NewTraceRing()
	for i := 0; i < TraceRingSize+5; i++ {
		r.Record(EvtOverflow, 2, 0, uint32(i))
	}
	events := r.Events()
	if len(events) != TraceRingSize {
		t.Fatalf("%d events, want %d", len(events), TraceRingSize)
	}
	if events[0].Value != 5 || events[0].Seq != 6 {
		t.Errorf("oldest event %+v, want value 5 seq 6", events[0])
	}
	last := events[len(events)-1]
	if last.Value != TraceRingSize+4 {
		t.Errorf("newest event value %d", last.Value)
	}

	r.Clear()
	if len(r.Events()) != 0 {
		t.Errorf("ring not empty after Clear")
	}
}

func TestSubsystemRecordsDispatch(t *testing.T) {
	f := newFixture(t)
	ring := NewTraceRing()
	f.s.SetTrace(ring)

	var c counters
	f.s.ClaimChannel(f.ch(3, 2), TypePPMInput, 2, 29)
	f.s.ConfigureCallbacks(f.ch(3, 2), c.edge("e"), c.overflow("o"))
	f.devs[3].counter = 77
	f.s.ForceOverflow(3)
	f.devs[3].ccr[1] = 900
	f.devs[3].status |= EventCC2
	f.s.Dispatch(3)

	var types []uint8
	for _, ev := range ring.Events() {
		types = append(types, ev.Type)
	}
	want := []uint8{EvtPriority, EvtClaim, EvtChain, EvtForced, EvtCompare, EvtOverflow}
	if len(types) != len(want) {
		t.Fatalf("types %v, want %v", types, want)
	}
	for i := range want {
		if types[i] != want[i] {
			t.Fatalf("types %v, want %v", types, want)
		}
	}

	recs := ring.Records()
	if recs[4].Channel != 2 || recs[4].Value != 900 || recs[5].Value != 77 {
		t.Errorf("records %+v", recs)
	}
}

func TestTraceDump(t *testing.T) {
	var lines []string
	SetDebugWriter(func(s string) { lines = append(lines, s) })
	defer SetDebugWriter(func(string) {})

	r := NewTraceRing()
	r.Record(EvtCompare, 4, 3, 1200)
	r.Dump()

	if len(lines) != 3 {
		t.Fatalf("lines %q", lines)
	}
	if lines[1] != "[TRACE] COMPARE seq=1 tim=4 ch=3 v=1200" {
		t.Errorf("line %q", lines[1])
	}
	if !strings.HasPrefix(lines[0], "[TRACE]") {
		t.Errorf("header %q", lines[0])
	}
	if EventName(99) != "UNKNOWN" {
		t.Errorf("EventName(99) = %q", EventName(99))
	}
}
