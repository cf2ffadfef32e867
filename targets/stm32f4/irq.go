//go:build stm32f4

package main

import (
	"device/arm"
	"runtime/interrupt"

	"fctimer/core"
)

// primaskHeld marks a mask state taken through PRIMASK rather than BASEPRI
const primaskHeld core.MaskState = 1 << 31

// basepriController masks by priority: a critical section at level p holds
// off interrupts at p and below while more urgent lines keep running.
type basepriController struct{}

func (basepriController) EnableLine(irq core.IRQ, prio core.Priority) {
	if irq < 0 {
		return
	}
	arm.SetPriority(uint32(irq), core.NVICPriority(prio))
	arm.EnableIRQ(uint32(irq))
}

func (basepriController) Raise(prio core.Priority) core.MaskState {
	v := core.BasepriFor(prio)
	if v == 0 {
		return core.MaskState(interrupt.Disable()) | primaskHeld
	}
	old := arm.AsmFull("mrs {}, basepri", nil)
	// basepri_max only ever makes the mask more urgent
	arm.AsmFull("msr basepri_max, {v}", map[string]interface{}{"v": v})
	return core.MaskState(old)
}

func (basepriController) Restore(state core.MaskState) {
	if state&primaskHeld != 0 {
		interrupt.Restore(interrupt.State(state &^ primaskHeld))
		return
	}
	arm.AsmFull("msr basepri, {v}", map[string]interface{}{"v": uint32(state)})
}
