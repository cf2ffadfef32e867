//go:build tinygo && cortexm

package core

import (
	"device/arm"
	"runtime/interrupt"
)

// cortexMController drives the NVIC directly. Raise masks every interrupt
// through PRIMASK, which every Cortex-M core has. Targets with BASEPRI
// inject a controller that masks by priority instead.
type cortexMController struct{}

// defaultIRQController returns the controller used when none is injected
func defaultIRQController() IRQController {
	return cortexMController{}
}

func (cortexMController) EnableLine(irq IRQ, prio Priority) {
	if irq < 0 {
		return
	}
	arm.SetPriority(uint32(irq), NVICPriority(prio))
	arm.EnableIRQ(uint32(irq))
}

func (cortexMController) Raise(prio Priority) MaskState {
	return MaskState(interrupt.Disable())
}

func (cortexMController) Restore(state MaskState) {
	interrupt.Restore(interrupt.State(state))
}
