package core

import "math/bits"

// Dispatch services every pending, enabled event of TIMn. Call it from the
// timer's interrupt handler. Host code delivering interrupts from its own
// goroutine goes through VectorHandler or HandleIRQ instead.
func (s *Subsystem) Dispatch(timer uint8) {
	if t := s.timer(timer); t != nil {
		s.dispatch(t)
	}
}

// DispatchShared services two timers whose interrupts share one vector.
// Both timers are always checked; a timer with nothing pending costs one
// register read.
func (s *Subsystem) DispatchShared(a, b uint8) {
	s.Dispatch(a)
	s.Dispatch(b)
}

// DispatchUpdateOnly services only the overflow event of TIMn. Other
// pending flags are cleared without being serviced.
func (s *Subsystem) DispatchUpdateOnly(timer uint8) {
	if t := s.timer(timer); t != nil {
		s.dispatchUpdate(t)
	}
}

// nextEvent returns the most significant set bit of pending.
// Events are serviced highest bit first; callers must not rely on the order.
func nextEvent(pending Event) Event {
	return Event(0x80000000) >> bits.LeadingZeros32(uint32(pending))
}

func (s *Subsystem) dispatch(t *timerState) {
	pending := t.dev.Pending()
	for pending != 0 {
		bit := nextEvent(pending)
		t.dev.ClearFlag(bit)
		pending &^= bit

		switch kind := bit.Kind(); kind {
		case KindOverflow:
			s.runOverflow(t)
		case KindCompare1, KindCompare2, KindCompare3, KindCompare4:
			ch := kind.Channel()
			capture := t.dev.Capture(ch)
			s.record(EvtCompare, t.def.Number, ch, uint32(capture))
			// compare interrupts are only enabled while the slot is filled
			t.dir.edge[ch-1].Load().cb.OnEdge(capture)
		}
	}
}

func (s *Subsystem) dispatchUpdate(t *timerState) {
	pending := t.dev.Pending()
	for pending != 0 {
		bit := nextEvent(pending)
		t.dev.ClearFlag(bit)
		pending &^= bit

		if bit == EventOverflow {
			s.runOverflow(t)
		}
	}
}

// runOverflow walks the active chain with the elapsed-period capture
func (s *Subsystem) runOverflow(t *timerState) {
	capture := t.overflowCapture()
	s.record(EvtOverflow, t.def.Number, 0, uint32(capture))
	for cb := t.dir.active.Load(); cb != nil; cb = cb.next {
		cb.cb.OnOverflow(capture)
	}
}

// VectorHandler returns the handler to install for a board vector, or nil
// if the vector is not on the board. Timers are resolved once here so the
// returned function does no lookups. With the default host controller the
// handler runs under the same lock as the critical sections.
func (s *Subsystem) VectorHandler(irq IRQ) func() {
	v, ok := s.vectors[irq]
	if !ok {
		return nil
	}
	var h func()
	switch v.Kind {
	case VectorShared:
		a, b := s.timer(v.Timers[0]), s.timer(v.Timers[1])
		h = func() {
			s.dispatch(a)
			s.dispatch(b)
		}
	case VectorUpdateOnly:
		t := s.timer(v.Timers[0])
		h = func() { s.dispatchUpdate(t) }
	default:
		t := s.timer(v.Timers[0])
		h = func() { s.dispatch(t) }
	}
	if ser, ok := s.irq.(handlerSerializer); ok {
		return func() { ser.serialize(h) }
	}
	return h
}

// HandleIRQ runs the dispatcher bound to irq. Unknown vectors are ignored.
// Interrupt handlers should cache VectorHandler instead.
func (s *Subsystem) HandleIRQ(irq IRQ) {
	if h := s.VectorHandler(irq); h != nil {
		h()
	}
}

// Vectors lists the board vectors in board order
func (s *Subsystem) Vectors() []VectorDef {
	return append([]VectorDef(nil), s.vecList...)
}
