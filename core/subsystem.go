package core

import (
	"fmt"
	"sync/atomic"
)

// ChannelID indexes the board's channel hardware table
type ChannelID int

// edgeSlot boxes an EdgeCallback so it can be published atomically
type edgeSlot struct {
	cb EdgeCallback
}

// chainLink is one node of a published overflow chain. Links are never
// modified after publication.
type chainLink struct {
	cb   OverflowCallback
	next *chainLink
}

// directory holds the callbacks of one timer.
//
// update and overflow are only touched by mutators inside the timer
// critical section. edge, active and forced are also read by the dispatcher.
type directory struct {
	update   OverflowCallback
	overflow [ChannelsPerTimer]OverflowCallback
	edge     [ChannelsPerTimer]atomic.Pointer[edgeSlot]
	active   atomic.Pointer[chainLink] // nil = empty chain
	forced   atomic.Uint32             // 0 = unset, else counter+1
}

func (d *directory) reset() {
	d.update = nil
	for i := range d.overflow {
		d.overflow[i] = nil
		d.edge[i].Store(nil)
	}
	d.active.Store(nil)
	d.forced.Store(0)
}

type timerState struct {
	def      TimerDef
	dev      Device
	priority Priority
	dir      directory
}

type channelState struct {
	def   ChannelDef
	timer uint8 // dense timer index
	typ   ChannelType
}

// Subsystem owns the channel table, the timer registry and the callback
// directory of every timer on a board. Build one at startup with
// NewSubsystem and hand it to every consumer and to the vector handlers.
type Subsystem struct {
	set      TimerSet
	prio     Priority
	irq      IRQController
	timers   []timerState   // by dense index
	channels []channelState // by ChannelID
	vectors  map[IRQ]VectorDef
	vecList  []VectorDef
	trace    *TraceRing
}

// NewSubsystem validates the board, binds one Device per timer number and
// resets all tables. A nil irq selects the platform default controller.
func NewSubsystem(board Board, devices map[uint8]Device, irq IRQController) (*Subsystem, error) {
	if err := board.Validate(); err != nil {
		return nil, err
	}
	if irq == nil {
		irq = defaultIRQController()
	}

	s := &Subsystem{
		set:     board.Set(),
		prio:    board.TimerPriority,
		irq:     irq,
		vectors: make(map[IRQ]VectorDef, len(board.Vectors)),
	}
	if s.prio == 0 {
		s.prio = DefaultTimerPriority
	}

	s.timers = make([]timerState, s.set.Count())
	for _, def := range board.Timers {
		dev, ok := devices[def.Number]
		if !ok || dev == nil {
			return nil, fmt.Errorf("%w: TIM%d", ErrMissingDevice, def.Number)
		}
		t := &s.timers[s.set.Index(def.Number)]
		t.def = def
		t.dev = dev
	}

	s.channels = make([]channelState, len(board.Channels))
	for i, def := range board.Channels {
		s.channels[i].def = def
		s.channels[i].timer = s.set.Index(def.Timer)
	}

	for _, v := range board.Vectors {
		s.vectors[v.IRQ] = v
	}
	s.vecList = append([]VectorDef(nil), board.Vectors...)

	s.Init()
	DebugPrintln("[TIMER] " + utoa(uint32(len(s.timers))) + " timers, " +
		utoa(uint32(len(s.channels))) + " channels")
	return s, nil
}

// Init resets every table: channels free, priorities none, callbacks empty.
// Peripheral clocks of timers that own channels are enabled.
func (s *Subsystem) Init() {
	for i := range s.timers {
		s.timers[i].priority = PriorityNone
		s.timers[i].dir.reset()
	}
	for i := range s.channels {
		s.channels[i].typ = TypeFree
		s.timers[s.channels[i].timer].dev.EnableClock()
	}
}

// Start finishes timer configuration after the allocation phase.
// Timers are started by ClaimChannel today, so there is nothing left to do.
func (s *Subsystem) Start() {}

// Timers returns the set of timers on the board
func (s *Subsystem) Timers() TimerSet { return s.set }

// TimerNumber maps a dense index back to its timer number (0 if out of range)
func (s *Subsystem) TimerNumber(index uint8) uint8 { return s.set.Number(index) }

// ChannelCount returns the number of entries in the channel table
func (s *Subsystem) ChannelCount() int { return len(s.channels) }

// ChannelDef returns the hardware description of a channel
func (s *Subsystem) ChannelDef(ch ChannelID) (ChannelDef, bool) {
	c := s.channel(ch)
	if c == nil {
		return ChannelDef{}, false
	}
	return c.def, true
}

// Device returns the device bound to TIMn, nil if TIMn is not on the board
func (s *Subsystem) Device(timer uint8) Device {
	t := s.timer(timer)
	if t == nil {
		return nil
	}
	return t.dev
}

// SetTrace attaches a trace ring (nil detaches). Attach before interrupts
// are enabled; the ring is not synchronised against a running dispatcher.
func (s *Subsystem) SetTrace(r *TraceRing) { s.trace = r }

func (s *Subsystem) timer(number uint8) *timerState {
	i := s.set.Index(number)
	if int(i) >= len(s.timers) {
		return nil
	}
	return &s.timers[i]
}

func (s *Subsystem) channel(ch ChannelID) *channelState {
	if ch < 0 || int(ch) >= len(s.channels) {
		return nil
	}
	return &s.channels[ch]
}

// timerOf resolves the timer owning a channel
func (s *Subsystem) timerOf(c *channelState) *timerState {
	if int(c.timer) >= len(s.timers) {
		return nil
	}
	return &s.timers[c.timer]
}

// enterCritical masks the dispatcher of t: the level is the board timer
// priority, or t's committed priority when a claim escalated past it.
func (s *Subsystem) enterCritical(t *timerState) MaskState {
	return s.irq.Raise(s.levelOf(t))
}

// levelOf is the more urgent of the board timer priority and t's committed
// priority
func (s *Subsystem) levelOf(t *timerState) Priority {
	if t.priority < s.prio {
		return t.priority
	}
	return s.prio
}

func (s *Subsystem) exitCritical(state MaskState) {
	s.irq.Restore(state)
}
