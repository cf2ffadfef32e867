package sim

import (
	"math"
	"sync"

	"fctimer/core"
)

// Timer is a 16-bit general purpose timer: prescaler, auto-reload counter,
// four capture/compare channels and status/enable registers. It implements
// core.Device.
//
// Overflow raises the update vector when the timer has one, the main vector
// otherwise. Capture/compare events raise the main vector.
type Timer struct {
	number    uint8
	clock     uint32
	nvic      *NVIC
	irq       core.IRQ
	updateIRQ core.IRQ

	mu        sync.Mutex
	clockOn   bool
	running   bool
	arr       uint16
	psc       uint16
	dir       core.CountDirection
	cnt       uint16
	div       uint32 // prescaler phase
	status    core.Event
	enable    core.Event
	ccr       [core.ChannelsPerTimer]uint16
	inputs    [core.ChannelsPerTimer]*core.InputConfig
	outputs   [core.ChannelsPerTimer]*core.OutputConfig
	updates   uint32
	overflows uint32
}

// NewTimer creates TIMn clocked at clock Hz, wired to nvic. updateIRQ is 0
// when the update event shares irq.
func NewTimer(number uint8, clock uint32, nvic *NVIC, irq, updateIRQ core.IRQ) *Timer {
	return &Timer{
		number:    number,
		clock:     clock,
		nvic:      nvic,
		irq:       irq,
		updateIRQ: updateIRQ,
		arr:       0xFFFF,
	}
}

func (t *Timer) Number() uint8 { return t.number }
func (t *Timer) Clock() uint32 { return t.clock }

func (t *Timer) EnableClock() {
	t.mu.Lock()
	t.clockOn = true
	t.mu.Unlock()
}

func (t *Timer) ConfigureBase(reload, prescaler uint16) {
	t.mu.Lock()
	t.arr = reload
	t.psc = prescaler
	t.div = 0
	t.mu.Unlock()
}

func (t *Timer) SetCountDirection(dir core.CountDirection) {
	t.mu.Lock()
	t.dir = dir
	t.mu.Unlock()
}

func (t *Timer) SetCounterEnabled(on bool) {
	t.mu.Lock()
	t.running = on
	t.mu.Unlock()
}

func (t *Timer) SetInterrupt(mask core.Event, on bool) {
	t.mu.Lock()
	if on {
		t.enable |= mask
	} else {
		t.enable &^= mask
	}
	raised := t.status & t.enable
	t.mu.Unlock()
	t.raise(raised)
}

func (t *Timer) ClearFlag(mask core.Event) {
	t.mu.Lock()
	t.status &^= mask
	t.mu.Unlock()
}

func (t *Timer) Pending() core.Event {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.status & t.enable
}

func (t *Timer) Capture(ch uint8) uint16 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.ccr[ch-1]
}

func (t *Timer) SetCompare(ch uint8, v uint16) {
	t.mu.Lock()
	t.ccr[ch-1] = v
	t.mu.Unlock()
}

func (t *Timer) Period() uint16 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.arr
}

func (t *Timer) Counter() uint16 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.cnt
}

// GenerateUpdate reinitialises the counter and sets the update flag
func (t *Timer) GenerateUpdate() {
	t.mu.Lock()
	t.updates++
	t.div = 0
	if t.dir == core.CountDown {
		t.cnt = t.arr
	} else {
		t.cnt = 0
	}
	t.status |= core.EventOverflow
	raised := t.status & t.enable
	t.mu.Unlock()
	t.raise(raised)
}

func (t *Timer) ConfigureInput(ch uint8, cfg core.InputConfig) {
	t.mu.Lock()
	t.inputs[ch-1] = &cfg
	t.outputs[ch-1] = nil
	t.mu.Unlock()
}

func (t *Timer) ConfigureOutput(ch uint8, cfg core.OutputConfig) {
	t.mu.Lock()
	t.outputs[ch-1] = &cfg
	t.inputs[ch-1] = nil
	t.mu.Unlock()
}

// raise triggers the vectors for the enabled events in ev. Must be called
// without t.mu held: the handler reads the timer.
func (t *Timer) raise(ev core.Event) {
	if ev == 0 {
		return
	}
	if t.updateIRQ > 0 {
		if ev&core.EventOverflow != 0 {
			t.nvic.Trigger(t.updateIRQ)
		}
		if ev&^core.EventOverflow != 0 {
			t.nvic.Trigger(t.irq)
		}
		return
	}
	t.nvic.Trigger(t.irq)
}

// Tick advances the timer by n input clock cycles. Interrupts are raised
// as each event happens, so handlers observe the counter at that event.
func (t *Timer) Tick(n uint32) {
	for n > 0 {
		t.mu.Lock()
		if !t.running || !t.clockOn {
			t.mu.Unlock()
			return
		}
		step := t.cyclesToEvent()
		if step > n {
			step = n
		}
		n -= step
		before := t.status
		t.advance(step)
		raised := (t.status &^ before) & t.enable
		t.mu.Unlock()
		t.raise(raised)
	}
}

// cyclesToEvent returns the input cycles until the next counter step that
// sets a flag: an overflow or an output compare match
func (t *Timer) cyclesToEvent() uint32 {
	var steps uint32
	switch {
	case t.dir == core.CountDown:
		steps = uint32(t.cnt) + 1
	case t.cnt >= t.arr:
		steps = 1
	default:
		steps = uint32(t.arr-t.cnt) + 1
	}
	for i, out := range t.outputs {
		if out == nil {
			continue
		}
		var d uint32
		if t.dir == core.CountDown {
			if t.ccr[i] < t.cnt {
				d = uint32(t.cnt - t.ccr[i])
			}
		} else if t.ccr[i] > t.cnt && t.ccr[i] <= t.arr {
			d = uint32(t.ccr[i] - t.cnt)
		}
		if d > 0 && d < steps {
			steps = d
		}
	}
	cycles := uint64(steps)*(uint64(t.psc)+1) - uint64(t.div)
	if cycles > math.MaxUint32 {
		return math.MaxUint32
	}
	return uint32(cycles)
}

// advance runs the counter for cycles input clock cycles
func (t *Timer) advance(cycles uint32) {
	psc := uint64(t.psc) + 1
	total := uint64(t.div) + uint64(cycles)
	t.div = uint32(total % psc)
	for steps := total / psc; steps > 0; steps-- {
		t.step()
	}
}

func (t *Timer) step() {
	if t.dir == core.CountDown {
		if t.cnt == 0 {
			t.cnt = t.arr
			t.overflow()
		} else {
			t.cnt--
		}
	} else {
		if t.cnt >= t.arr {
			t.cnt = 0
			t.overflow()
		} else {
			t.cnt++
		}
	}
	for i, out := range t.outputs {
		if out != nil && t.cnt == t.ccr[i] {
			t.status |= core.EventCC(uint8(i + 1))
		}
	}
}

func (t *Timer) overflow() {
	t.status |= core.EventOverflow
	t.overflows++
}

// CaptureEdge latches the counter into CCRn of an input channel, as an edge
// on its pin would. It reports false if the channel is not capturing.
func (t *Timer) CaptureEdge(ch uint8) bool {
	t.mu.Lock()
	if ch < 1 || ch > core.ChannelsPerTimer || t.inputs[ch-1] == nil {
		t.mu.Unlock()
		return false
	}
	t.ccr[ch-1] = t.cnt
	bit := core.EventCC(ch)
	t.status |= bit
	raised := bit & t.enable
	t.mu.Unlock()
	t.raise(raised)
	return true
}

// Input returns the capture configuration of a channel
func (t *Timer) Input(ch uint8) (core.InputConfig, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if in := t.inputs[ch-1]; in != nil {
		return *in, true
	}
	return core.InputConfig{}, false
}

// Output returns the compare configuration of a channel
func (t *Timer) Output(ch uint8) (core.OutputConfig, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if out := t.outputs[ch-1]; out != nil {
		return *out, true
	}
	return core.OutputConfig{}, false
}

// TimerStats is a snapshot of a timer's registers and counters
type TimerStats struct {
	Running   bool
	Reload    uint16
	Prescaler uint16
	Counter   uint16
	Status    core.Event
	Enable    core.Event
	Overflows uint32 // natural wraps
	Updates   uint32 // software update events
}

func (t *Timer) Stats() TimerStats {
	t.mu.Lock()
	defer t.mu.Unlock()
	return TimerStats{
		Running:   t.running,
		Reload:    t.arr,
		Prescaler: t.psc,
		Counter:   t.cnt,
		Status:    t.status,
		Enable:    t.enable,
		Overflows: t.overflows,
		Updates:   t.updates,
	}
}
