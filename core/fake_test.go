package core

import (
	"fmt"
	"strings"
	"testing"
)

// opLog records device and controller calls in order
type opLog struct {
	ops   []string
	depth int // critical section nesting seen by the fake controller
}

func (l *opLog) add(format string, args ...interface{}) {
	l.ops = append(l.ops, fmt.Sprintf(format, args...))
}

// indexOf returns the position of the first op equal to op, -1 if absent
func (l *opLog) indexOf(op string) int {
	for i, o := range l.ops {
		if o == op {
			return i
		}
	}
	return -1
}

func (l *opLog) reset() { l.ops = nil }

// hardware returns the ops other than critical section entry and exit
func (l *opLog) hardware() []string {
	var out []string
	for _, o := range l.ops {
		if strings.HasPrefix(o, "raise ") || o == "restore" {
			continue
		}
		out = append(out, o)
	}
	return out
}

type fakeDevice struct {
	log    *opLog
	number uint8
	clock  uint32

	clockOn   bool
	reload    uint16
	prescaler uint16
	dir       CountDirection
	running   bool
	enabled   Event
	status    Event
	ccr       [ChannelsPerTimer]uint16
	counter   uint16
	updates   int
	inputs    [ChannelsPerTimer]InputConfig
	outputs   [ChannelsPerTimer]OutputConfig

	// onSetInterrupt runs before the enable register changes
	onSetInterrupt func(mask Event, on bool)
}

func (d *fakeDevice) Clock() uint32 { return d.clock }

func (d *fakeDevice) EnableClock() {
	d.clockOn = true
	d.log.add("TIM%d clock", d.number)
}

func (d *fakeDevice) ConfigureBase(reload, prescaler uint16) {
	d.reload = reload
	d.prescaler = prescaler
	d.log.add("TIM%d base %d/%d", d.number, reload, prescaler)
}

func (d *fakeDevice) SetCountDirection(dir CountDirection) { d.dir = dir }

func (d *fakeDevice) SetCounterEnabled(on bool) {
	d.running = on
	d.log.add("TIM%d run %v", d.number, on)
}

func (d *fakeDevice) SetInterrupt(mask Event, on bool) {
	if d.onSetInterrupt != nil {
		d.onSetInterrupt(mask, on)
	}
	if on {
		d.enabled |= mask
	} else {
		d.enabled &^= mask
	}
	d.log.add("TIM%d irq %#x %v depth=%d", d.number, uint32(mask), on, d.log.depth)
}

func (d *fakeDevice) ClearFlag(mask Event) { d.status &^= mask }
func (d *fakeDevice) Pending() Event { return d.status & d.enabled }

func (d *fakeDevice) Capture(ch uint8) uint16 { return d.ccr[ch-1] }
func (d *fakeDevice) SetCompare(ch uint8, v uint16) { d.ccr[ch-1] = v }
func (d *fakeDevice) Period() uint16 { return d.reload }
func (d *fakeDevice) Counter() uint16 { return d.counter }
func (d *fakeDevice) ConfigureInput(ch uint8, c InputConfig) { d.inputs[ch-1] = c }
func (d *fakeDevice) ConfigureOutput(ch uint8, c OutputConfig) { d.outputs[ch-1] = c }

func (d *fakeDevice) GenerateUpdate() {
	d.updates++
	d.counter = 0
	d.status |= EventOverflow
	d.log.add("TIM%d update", d.number)
}

type fakeIRQ struct {
	log   *opLog
	lines map[IRQ]Priority
	last  Priority // level of the latest Raise
}

func (c *fakeIRQ) EnableLine(irq IRQ, prio Priority) {
	c.lines[irq] = prio
	c.log.add("line %d prio %d", irq, prio)
}

func (c *fakeIRQ) Raise(prio Priority) MaskState {
	c.log.depth++
	c.last = prio
	c.log.add("raise %d", prio)
	return MaskState(c.log.depth)
}

func (c *fakeIRQ) Restore(state MaskState) {
	c.log.depth--
	c.log.add("restore")
}

// testBoard is a small board with one shared and one update-only vector
//
//	TIM1: CH1, CH2 (update shares vector 25 with TIM10)
//	TIM2: CH1..CH4
//	TIM3: CH1, CH2
//	TIM8: CH1 (update-only vector 43)
//	TIM10: CH1
func testBoard() Board {
	return Board{
		Timers: []TimerDef{
			{Number: 1, IRQ: 27, UpdateIRQ: 25},
			{Number: 2, IRQ: 28},
			{Number: 3, IRQ: 29},
			{Number: 8, IRQ: 46, UpdateIRQ: 43},
			{Number: 10, IRQ: 25},
		},
		Channels: []ChannelDef{
			{Timer: 1, Channel: 1, Pin: "PA8"},
			{Timer: 1, Channel: 2, Pin: "PA9"},
			{Timer: 2, Channel: 1, Pin: "PA0"},
			{Timer: 2, Channel: 2, Pin: "PA1"},
			{Timer: 2, Channel: 3, Pin: "PA2"},
			{Timer: 2, Channel: 4, Pin: "PA3"},
			{Timer: 3, Channel: 1, Pin: "PB4"},
			{Timer: 3, Channel: 2, Pin: "PB5"},
			{Timer: 8, Channel: 1, Pin: "PC6"},
			{Timer: 10, Channel: 1, Pin: "PB8"},
		},
		Vectors: []VectorDef{
			{IRQ: 27, Kind: VectorSingle, Timers: [2]uint8{1}},
			{IRQ: 25, Kind: VectorShared, Timers: [2]uint8{1, 10}},
			{IRQ: 28, Kind: VectorSingle, Timers: [2]uint8{2}},
			{IRQ: 29, Kind: VectorSingle, Timers: [2]uint8{3}},
			{IRQ: 43, Kind: VectorUpdateOnly, Timers: [2]uint8{8}},
			{IRQ: 46, Kind: VectorSingle, Timers: [2]uint8{8}},
		},
		TimerPriority: 4,
	}
}

type fixture struct {
	s    *Subsystem
	log  *opLog
	irq  *fakeIRQ
	devs map[uint8]*fakeDevice
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	log := &opLog{}
	f := &fixture{
		log:  log,
		irq:  &fakeIRQ{log: log, lines: make(map[IRQ]Priority)},
		devs: make(map[uint8]*fakeDevice),
	}
	board := testBoard()
	devices := make(map[uint8]Device)
	for _, td := range board.Timers {
		d := &fakeDevice{log: log, number: td.Number, clock: 144000000}
		f.devs[td.Number] = d
		devices[td.Number] = d
	}
	s, err := NewSubsystem(board, devices, f.irq)
	if err != nil {
		t.Fatalf("NewSubsystem: %v", err)
	}
	f.s = s
	log.reset()
	return f
}

// ch looks a channel up by timer and channel number
func (f *fixture) ch(timer, channel uint8) ChannelID {
	id, ok := f.s.FindChannel(timer, channel)
	if !ok {
		panic(fmt.Sprintf("no channel TIM%d CH%d", timer, channel))
	}
	return id
}

// counters count callback invocations by name
type counters struct {
	calls    []string
	captures []uint16
}

func (c *counters) edge(name string) EdgeCallback {
	return EdgeFunc(func(capture uint16) {
		c.calls = append(c.calls, name)
		c.captures = append(c.captures, capture)
	})
}

func (c *counters) overflow(name string) OverflowCallback {
	return OverflowFunc(func(capture uint16) {
		c.calls = append(c.calls, name)
		c.captures = append(c.captures, capture)
	})
}
