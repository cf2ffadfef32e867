// Package sim models the timer peripherals and interrupt controller of a
// flight controller MCU on the host, so the timer subsystem and its
// consumers run unmodified in tests and in the fctimer-sim tool.
package sim

import (
	"sort"
	"sync"

	"fctimer/core"
)

type line struct {
	enabled   bool
	prio      core.Priority
	pending   bool
	handler   func()
	delivered uint64
}

// NVIC is a single-core interrupt controller.
//
// One goroutine at a time owns the "CPU": a critical section or a running
// handler. Interrupts triggered while the CPU is owned stay pending and are
// delivered by the owner before it lets go, most urgent first. Handlers
// never preempt each other and must not enter a critical section.
type NVIC struct {
	cpu sync.Mutex

	mu    sync.Mutex // guards lines
	lines map[core.IRQ]*line
}

func NewNVIC() *NVIC {
	return &NVIC{lines: make(map[core.IRQ]*line)}
}

func (n *NVIC) line(irq core.IRQ) *line {
	l, ok := n.lines[irq]
	if !ok {
		l = &line{}
		n.lines[irq] = l
	}
	return l
}

// Bind installs the handler of a vector
func (n *NVIC) Bind(irq core.IRQ, handler func()) {
	n.mu.Lock()
	n.line(irq).handler = handler
	n.mu.Unlock()
}

// EnableLine enables a vector. A pending interrupt is delivered at once.
func (n *NVIC) EnableLine(irq core.IRQ, prio core.Priority) {
	if irq < 0 {
		return
	}
	n.mu.Lock()
	l := n.line(irq)
	l.enabled = true
	l.prio = prio
	n.mu.Unlock()
	n.drain()
}

// Raise takes the CPU. Priority is ignored: the simulated core masks every
// vector, which is what the TinyGo Cortex-M controller does too.
func (n *NVIC) Raise(prio core.Priority) core.MaskState {
	n.cpu.Lock()
	return 0
}

// Restore releases the CPU and delivers what became pending meanwhile
func (n *NVIC) Restore(state core.MaskState) {
	n.runPending()
	n.cpu.Unlock()
	n.drain()
}

// Trigger marks irq pending and delivers it if the CPU is free
func (n *NVIC) Trigger(irq core.IRQ) {
	if irq < 0 {
		return
	}
	n.mu.Lock()
	n.line(irq).pending = true
	n.mu.Unlock()
	n.drain()
}

// drain delivers pending interrupts unless another goroutine owns the CPU,
// in which case that owner will
func (n *NVIC) drain() {
	for n.deliverable() {
		if !n.cpu.TryLock() {
			return
		}
		n.runPending()
		n.cpu.Unlock()
	}
}

func (n *NVIC) deliverable() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, l := range n.lines {
		if l.pending && l.enabled && l.handler != nil {
			return true
		}
	}
	return false
}

// runPending runs handlers until nothing deliverable is left. Caller owns
// the CPU.
func (n *NVIC) runPending() {
	for {
		h := n.next()
		if h == nil {
			return
		}
		h()
	}
}

// next pops the most urgent deliverable vector, lowest IRQ number first
// among equal priorities
func (n *NVIC) next() func() {
	n.mu.Lock()
	defer n.mu.Unlock()
	var best core.IRQ
	var found *line
	for irq, l := range n.lines {
		if !l.pending || !l.enabled || l.handler == nil {
			continue
		}
		if found == nil || l.prio < found.prio || (l.prio == found.prio && irq < best) {
			best, found = irq, l
		}
	}
	if found == nil {
		return nil
	}
	found.pending = false
	found.delivered++
	return found.handler
}

// Enabled reports whether irq is enabled and at which priority
func (n *NVIC) Enabled(irq core.IRQ) (core.Priority, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	l, ok := n.lines[irq]
	if !ok || !l.enabled {
		return 0, false
	}
	return l.prio, true
}

// Pending reports whether irq waits for delivery
func (n *NVIC) Pending(irq core.IRQ) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	l, ok := n.lines[irq]
	return ok && l.pending
}

// Delivered returns how many times the handler of irq ran
func (n *NVIC) Delivered(irq core.IRQ) uint64 {
	n.mu.Lock()
	defer n.mu.Unlock()
	if l, ok := n.lines[irq]; ok {
		return l.delivered
	}
	return 0
}

// LineStat is a snapshot of one vector
type LineStat struct {
	IRQ       core.IRQ
	Priority  core.Priority
	Enabled   bool
	Delivered uint64
}

// Stats lists every known vector in IRQ order
func (n *NVIC) Stats() []LineStat {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]LineStat, 0, len(n.lines))
	for irq, l := range n.lines {
		out = append(out, LineStat{IRQ: irq, Priority: l.prio, Enabled: l.enabled, Delivered: l.delivered})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].IRQ < out[j].IRQ })
	return out
}
