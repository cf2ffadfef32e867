//go:build !tinygo || !cortexm

package core

import "sync"

// hostController serialises critical sections with a mutex.
// Host builds have no interrupt lines to enable. Handlers from VectorHandler
// take the same mutex, so callbacks must not call back into the subsystem.
type hostController struct {
	mu sync.Mutex
}

// defaultIRQController returns the controller used when none is injected
func defaultIRQController() IRQController {
	return &hostController{}
}

func (c *hostController) EnableLine(irq IRQ, prio Priority) {}

func (c *hostController) Raise(prio Priority) MaskState {
	c.mu.Lock()
	return 0
}

func (c *hostController) Restore(state MaskState) {
	c.mu.Unlock()
}

func (c *hostController) serialize(h func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	h()
}
