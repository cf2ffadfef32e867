package core

// ForceOverflow forces an update event on TIMn.
//
// The live counter is latched first, so the next overflow dispatch hands
// the counter value at the forced wrap to the overflow chain instead of the
// period register. Input-capture consumers sharing the timer use it to keep
// their elapsed-tick bookkeeping exact across the artificial wrap.
func (s *Subsystem) ForceOverflow(timer uint8) {
	t := s.timer(timer)
	if t == nil {
		return
	}

	state := s.enterCritical(t)
	defer s.exitCritical(state)

	cnt := t.dev.Counter()
	t.dir.forced.Store(uint32(cnt) + 1)
	t.dev.GenerateUpdate()
	s.record(EvtForced, t.def.Number, 0, uint32(cnt))
}

// overflowCapture returns the elapsed-period value for an overflow event and
// consumes a staged forced value
func (t *timerState) overflowCapture() uint16 {
	if v := t.dir.forced.Swap(0); v != 0 {
		return uint16(v - 1)
	}
	return t.dev.Period()
}
