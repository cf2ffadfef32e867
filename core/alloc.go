package core

// ClaimChannel allocates a channel for a consumer.
//
// The channel type is tagged unconditionally; callers must not claim a
// channel twice. A timer's priority is the most urgent priority of its
// channels: when prio beats the committed priority the timer is re-armed
// (default time base, counter on, IRQ line enabled at prio). Priority never
// relaxes. Out-of-range channels or timers are ignored.
func (s *Subsystem) ClaimChannel(ch ChannelID, typ ChannelType, prio Priority, irq IRQ) {
	c := s.channel(ch)
	if c == nil {
		return
	}
	c.typ = typ

	t := s.timerOf(c)
	if t == nil {
		return
	}
	state := s.enterCritical(t)
	defer s.exitCritical(state)

	if prio < t.priority {
		// it would be better to set priority in the end, but the startup
		// sequence configures consumers one at a time
		ConfigureTimeBase(t.dev, 0, 1)
		t.dev.SetCounterEnabled(true)
		s.irq.EnableLine(irq, prio)
		t.priority = prio
		s.record(EvtPriority, t.def.Number, c.def.Channel, uint32(prio))
	}
	s.record(EvtClaim, t.def.Number, c.def.Channel, uint32(typ))
}

// TimerPriorityOf returns the committed priority of TIMn, PriorityNone if
// no channel claimed it or the timer is not on the board
func (s *Subsystem) TimerPriorityOf(timer uint8) Priority {
	t := s.timer(timer)
	if t == nil {
		return PriorityNone
	}
	return t.priority
}

// ChannelTypeOf returns the consumer type occupying a channel, TypeFree for
// unknown channels
func (s *Subsystem) ChannelTypeOf(ch ChannelID) ChannelType {
	c := s.channel(ch)
	if c == nil {
		return TypeFree
	}
	return c.typ
}

// FindChannel looks a channel up by timer number and channel number
func (s *Subsystem) FindChannel(timer, channel uint8) (ChannelID, bool) {
	for i := range s.channels {
		if s.channels[i].def.Timer == timer && s.channels[i].def.Channel == channel {
			return ChannelID(i), true
		}
	}
	return -1, false
}

// ConfigureTimer sets the time base of a channel's timer and starts it with
// its vectors enabled at the board timer priority, or at the committed
// priority when a claim escalated past it. This is the legacy path used by
// PWM inputs that do not go through ClaimChannel.
func (s *Subsystem) ConfigureTimer(ch ChannelID, period uint16, hz uint32) {
	c := s.channel(ch)
	if c == nil {
		return
	}
	t := s.timerOf(c)
	if t == nil {
		return
	}
	ConfigureTimeBase(t.dev, period, hz)
	t.dev.SetCounterEnabled(true)
	prio := s.levelOf(t)
	s.irq.EnableLine(t.def.IRQ, prio)
	if t.def.UpdateIRQ > 0 && t.def.UpdateIRQ != t.def.IRQ {
		s.irq.EnableLine(t.def.UpdateIRQ, prio)
	}
}

// TimerIRQ returns the input (capture/compare or global) vector of TIMn,
// IRQNone if TIMn is not on the board
func (s *Subsystem) TimerIRQ(timer uint8) IRQ {
	t := s.timer(timer)
	if t == nil {
		return IRQNone
	}
	return t.def.IRQ
}
