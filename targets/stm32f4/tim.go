//go:build stm32f4

package main

import (
	"runtime/volatile"
	"unsafe"

	"fctimer/core"
)

// timRegs overlays a general-purpose or advanced timer block
type timRegs struct {
	CR1  volatile.Register32
	CR2  volatile.Register32
	SMCR volatile.Register32
	DIER volatile.Register32
	SR   volatile.Register32
	EGR  volatile.Register32
	CCMR [2]volatile.Register32
	CCER volatile.Register32
	CNT  volatile.Register32
	PSC  volatile.Register32
	ARR  volatile.Register32
	RCR  volatile.Register32
	CCR  [4]volatile.Register32
	BDTR volatile.Register32
	DCR  volatile.Register32
	DMAR volatile.Register32
}

type rccRegs struct {
	_       [16]volatile.Register32
	APB1ENR volatile.Register32 // 0x40
	APB2ENR volatile.Register32 // 0x44
}

var rcc = (*rccRegs)(unsafe.Pointer(uintptr(0x40023800)))

const (
	cr1CEN  = 1 << 0
	cr1DIR  = 1 << 4
	cr1ARPE = 1 << 7
	egrUG   = 1 << 0
	bdtrMOE = 1 << 15

	ccmrInput   = 0x01 // CCxS = TIx
	ccmrPreload = 1 << 3
	ccmrPWM1    = 0x6 << 4
	ccmrInact   = 0x2 << 4

	ccerEnable   = 1 << 0
	ccerPolarity = 1 << 1
)

// timHW places one timer on the bus
type timHW struct {
	base     uintptr
	apb2     bool
	enable   uint32 // RCC enable bit
	advanced bool   // needs BDTR.MOE for outputs
}

var timers = map[uint8]timHW{
	1:  {base: 0x40010000, apb2: true, enable: 1 << 0, advanced: true},
	2:  {base: 0x40000000, enable: 1 << 0},
	3:  {base: 0x40000400, enable: 1 << 1},
	4:  {base: 0x40000800, enable: 1 << 2},
	5:  {base: 0x40000C00, enable: 1 << 3},
	8:  {base: 0x40010400, apb2: true, enable: 1 << 1, advanced: true},
	10: {base: 0x40014400, apb2: true, enable: 1 << 17},
}

// Timer is a core.Device over one STM32F4 timer
type Timer struct {
	hw    timHW
	regs  *timRegs
	clock uint32
}

func newTimer(number uint8, clock uint32) *Timer {
	hw := timers[number]
	return &Timer{
		hw:    hw,
		regs:  (*timRegs)(unsafe.Pointer(hw.base)),
		clock: clock,
	}
}

func (t *Timer) Clock() uint32 { return t.clock }

func (t *Timer) EnableClock() {
	if t.hw.apb2 {
		rcc.APB2ENR.SetBits(t.hw.enable)
	} else {
		rcc.APB1ENR.SetBits(t.hw.enable)
	}
}

func (t *Timer) ConfigureBase(reload, prescaler uint16) {
	t.regs.CR1.ClearBits(cr1CEN)
	t.regs.ARR.Set(uint32(reload))
	t.regs.PSC.Set(uint32(prescaler))
	t.regs.CR1.SetBits(cr1ARPE)
	// load PSC without raising an update interrupt
	dier := t.regs.DIER.Get()
	t.regs.DIER.Set(0)
	t.regs.EGR.Set(egrUG)
	t.regs.SR.Set(^uint32(core.EventOverflow))
	t.regs.DIER.Set(dier)
}

func (t *Timer) SetCountDirection(dir core.CountDirection) {
	if dir == core.CountDown {
		t.regs.CR1.SetBits(cr1DIR)
	} else {
		t.regs.CR1.ClearBits(cr1DIR)
	}
}

func (t *Timer) SetCounterEnabled(on bool) {
	if on {
		t.regs.CR1.SetBits(cr1CEN)
	} else {
		t.regs.CR1.ClearBits(cr1CEN)
	}
}

func (t *Timer) SetInterrupt(mask core.Event, on bool) {
	if on {
		t.regs.DIER.SetBits(uint32(mask))
	} else {
		t.regs.DIER.ClearBits(uint32(mask))
	}
}

// ClearFlag writes zeros to the flags in mask; SR bits are rc_w0
func (t *Timer) ClearFlag(mask core.Event) {
	t.regs.SR.Set(^uint32(mask))
}

func (t *Timer) Pending() core.Event {
	return core.Event(t.regs.SR.Get() & t.regs.DIER.Get())
}

func (t *Timer) Capture(ch uint8) uint16 { return uint16(t.regs.CCR[ch-1].Get()) }

func (t *Timer) SetCompare(ch uint8, v uint16) { t.regs.CCR[ch-1].Set(uint32(v)) }

func (t *Timer) Period() uint16 { return uint16(t.regs.ARR.Get()) }

func (t *Timer) Counter() uint16 { return uint16(t.regs.CNT.Get()) }

func (t *Timer) GenerateUpdate() { t.regs.EGR.Set(egrUG) }

// ccmrField rewrites the 8-bit CCMR field of a channel, with its CCER
// enable cleared while CCxS changes
func (t *Timer) ccmrField(ch uint8, field, ccer uint32) {
	reg := &t.regs.CCMR[(ch-1)/2]
	shift := uint32((ch-1)%2) * 8
	ccerShift := uint32(ch-1) * 4

	t.regs.CCER.ClearBits(0xF << ccerShift)
	reg.Set(reg.Get()&^(0xFF<<shift) | field<<shift)
	t.regs.CCER.SetBits(ccer << ccerShift)
}

func (t *Timer) ConfigureInput(ch uint8, cfg core.InputConfig) {
	ccer := uint32(ccerEnable)
	if !cfg.Rising {
		ccer |= ccerPolarity
	}
	t.ccmrField(ch, ccmrInput|uint32(cfg.Filter&0x0F)<<4, ccer)
}

func (t *Timer) ConfigureOutput(ch uint8, cfg core.OutputConfig) {
	var field uint32
	switch cfg.Mode {
	case core.OutputPWM1:
		field = ccmrPWM1
	case core.OutputInactive:
		field = ccmrInact
	}
	if cfg.Preload {
		field |= ccmrPreload
	}
	var ccer uint32
	if cfg.Enable {
		ccer |= ccerEnable
	}
	if cfg.ActiveLow {
		ccer |= ccerPolarity
	}
	t.ccmrField(ch, field, ccer)
	if t.hw.advanced && cfg.Enable {
		t.regs.BDTR.SetBits(bdtrMOE)
	}
}

var _ core.Device = (*Timer)(nil)
