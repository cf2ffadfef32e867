package core

// SetEdgeCallback installs (or with nil, removes) the capture/compare
// callback of a channel. The compare interrupt is disabled before a slot is
// cleared and enabled only after it is filled, so the dispatcher never sees
// an enabled channel with an empty slot.
func (s *Subsystem) SetEdgeCallback(ch ChannelID, cb EdgeCallback) {
	c := s.channel(ch)
	if c == nil {
		return
	}
	t := s.timerOf(c)
	if t == nil {
		return
	}
	state := s.enterCritical(t)
	defer s.exitCritical(state)

	s.setEdge(t, c.def.Channel, cb)
}

func (s *Subsystem) setEdge(t *timerState, channel uint8, cb EdgeCallback) {
	bit := EventCC(channel)
	slot := &t.dir.edge[channel-1]
	if cb == nil {
		t.dev.SetInterrupt(bit, false)
		slot.Store(nil)
		return
	}
	slot.Store(&edgeSlot{cb: cb})
	t.dev.SetInterrupt(bit, true)
}

// SetOverflowCallback installs (or with nil, removes) the per-channel
// overflow callback. Every consumer on the timer pays for the overflow
// interrupt once any is registered, so prefer one consumer owning the global
// update callback when only one channel needs overflow notification.
func (s *Subsystem) SetOverflowCallback(ch ChannelID, cb OverflowCallback) {
	c := s.channel(ch)
	if c == nil {
		return
	}
	t := s.timerOf(c)
	if t == nil {
		return
	}
	state := s.enterCritical(t)
	defer s.exitCritical(state)

	t.dir.overflow[c.def.Channel-1] = cb
	s.rebuildChain(t)
}

// SetGlobalUpdateCallback installs (or with nil, removes) the update
// callback of TIMn. It runs first in the overflow chain.
func (s *Subsystem) SetGlobalUpdateCallback(timer uint8, cb OverflowCallback) {
	t := s.timer(timer)
	if t == nil {
		return
	}
	state := s.enterCritical(t)
	defer s.exitCritical(state)

	t.dir.update = cb
	s.rebuildChain(t)
}

// ConfigureCallbacks sets both the edge and the overflow callback of a
// channel with a single chain rebuild
func (s *Subsystem) ConfigureCallbacks(ch ChannelID, edge EdgeCallback, overflow OverflowCallback) {
	c := s.channel(ch)
	if c == nil {
		return
	}
	t := s.timerOf(c)
	if t == nil {
		return
	}
	state := s.enterCritical(t)
	defer s.exitCritical(state)

	s.setEdge(t, c.def.Channel, edge)
	t.dir.overflow[c.def.Channel-1] = overflow
	s.rebuildChain(t)
}

// rebuildChain relinks the active overflow chain of t: global update
// callback first, then channels 1..4. The new chain is published with a
// single store, so a dispatcher sees the old or the new chain, never a mix.
// The overflow interrupt is enabled iff the chain is non-empty.
//
// Must be called inside the critical section of t, together with the slot
// write that triggered it.
func (s *Subsystem) rebuildChain(t *timerState) {
	var head *chainLink
	tail := &head
	if t.dir.update != nil {
		*tail = &chainLink{cb: t.dir.update}
		tail = &(*tail).next
	}
	for _, cb := range t.dir.overflow {
		if cb != nil {
			*tail = &chainLink{cb: cb}
			tail = &(*tail).next
		}
	}
	t.dir.active.Store(head)
	t.dev.SetInterrupt(EventOverflow, head != nil)
	s.record(EvtChain, t.def.Number, 0, uint32(chainLen(head)))
}

func chainLen(l *chainLink) int {
	n := 0
	for ; l != nil; l = l.next {
		n++
	}
	return n
}

// OverflowChainLen returns the length of TIMn's active overflow chain
func (s *Subsystem) OverflowChainLen(timer uint8) int {
	t := s.timer(timer)
	if t == nil {
		return 0
	}
	return chainLen(t.dir.active.Load())
}

// SetChannelInterrupt enables or disables the compare interrupt of a channel
// without touching its callback slot
func (s *Subsystem) SetChannelInterrupt(ch ChannelID, on bool) {
	c := s.channel(ch)
	if c == nil {
		return
	}
	t := s.timerOf(c)
	if t == nil {
		return
	}
	state := s.enterCritical(t)
	defer s.exitCritical(state)

	if on && t.dir.edge[c.def.Channel-1].Load() == nil {
		return // never enable a channel with an empty slot
	}
	t.dev.SetInterrupt(EventCC(c.def.Channel), on)
}

// ClearCompareFlag clears the capture/compare flag of a channel
func (s *Subsystem) ClearCompareFlag(ch ChannelID) {
	c := s.channel(ch)
	if c == nil {
		return
	}
	t := s.timerOf(c)
	if t == nil {
		return
	}
	t.dev.ClearFlag(EventCC(c.def.Channel))
}
