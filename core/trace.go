package core

import "fctimer/protocol"

// Trace event type codes
const (
	EvtClaim    = 1 // channel claimed, value = channel type
	EvtPriority = 2 // timer priority escalated, value = new priority
	EvtChain    = 3 // overflow chain rebuilt, value = chain length
	EvtForced   = 4 // forced overflow staged, value = latched counter
	EvtOverflow = 5 // overflow dispatched, value = capture
	EvtCompare  = 6 // compare dispatched, value = capture
)

// TraceRingSize is the number of events kept for post-mortem
const TraceRingSize = 32

// TraceEvent is one entry of the trace ring
type TraceEvent struct {
	Seq     uint32 // running event number
	Type    uint8  // Evt* code
	Timer   uint8  // timer number
	Channel uint8  // 1..4, 0 for timer-wide events
	Value   uint32
}

// TraceRing records subsystem events. Recording never blocks or allocates,
// so it is safe from interrupt context. Readers must not run concurrently
// with a dispatcher writing to the ring.
type TraceRing struct {
	events [TraceRingSize]TraceEvent
	head   uint8
	seq    uint32
}

// NewTraceRing returns an empty ring
func NewTraceRing() *TraceRing {
	return &TraceRing{}
}

// Record appends an event, overwriting the oldest when full
func (r *TraceRing) Record(typ, timer, channel uint8, value uint32) {
	r.seq++
	r.events[r.head] = TraceEvent{
		Seq:     r.seq,
		Type:    typ,
		Timer:   timer,
		Channel: channel,
		Value:   value,
	}
	r.head = (r.head + 1) % TraceRingSize
}

// Events returns the recorded events, oldest first
func (r *TraceRing) Events() []TraceEvent {
	out := make([]TraceEvent, 0, TraceRingSize)
	for i := uint8(0); i < TraceRingSize; i++ {
		ev := r.events[(r.head+i)%TraceRingSize]
		if ev.Type == 0 {
			continue // empty slot
		}
		out = append(out, ev)
	}
	return out
}

// Clear empties the ring
func (r *TraceRing) Clear() {
	for i := range r.events {
		r.events[i] = TraceEvent{}
	}
	r.head = 0
}

// EventName returns the dump label of an event type
func EventName(typ uint8) string {
	switch typ {
	case EvtClaim:
		return "CLAIM"
	case EvtPriority:
		return "PRIORITY"
	case EvtChain:
		return "CHAIN"
	case EvtForced:
		return "FORCED"
	case EvtOverflow:
		return "OVERFLOW"
	case EvtCompare:
		return "COMPARE"
	}
	return "UNKNOWN"
}

// Dump writes the ring through the debug writer, oldest first
func (r *TraceRing) Dump() {
	if debugPrintln == nil {
		return
	}
	debugPrintln("[TRACE] === Trace Ring Dump ===")
	for _, ev := range r.Events() {
		debugPrintln("[TRACE] " + EventName(ev.Type) +
			" seq=" + utoa(ev.Seq) +
			" tim=" + utoa(uint32(ev.Timer)) +
			" ch=" + utoa(uint32(ev.Channel)) +
			" v=" + utoa(ev.Value))
	}
	debugPrintln("[TRACE] === End Dump ===")
}

// Records converts the ring, oldest first, to wire trace records
func (r *TraceRing) Records() []protocol.TraceRecord {
	events := r.Events()
	out := make([]protocol.TraceRecord, len(events))
	for i, ev := range events {
		out[i] = protocol.TraceRecord{
			Seq:     ev.Seq,
			Type:    ev.Type,
			Timer:   ev.Timer,
			Channel: ev.Channel,
			Value:   ev.Value,
		}
	}
	return out
}

// record appends to the attached trace ring, if any
func (s *Subsystem) record(typ, timer, channel uint8, value uint32) {
	if s.trace != nil {
		s.trace.Record(typ, timer, channel, value)
	}
}
