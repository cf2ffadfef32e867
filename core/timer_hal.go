package core

// CountDirection selects the counting direction of a timer
type CountDirection uint8

const (
	CountUp CountDirection = iota
	CountDown
)

// InputConfig configures a channel for input capture
type InputConfig struct {
	Rising bool  // capture on rising edge (falling otherwise)
	Filter uint8 // input filter index 0..15, see InputFilter
}

// OutputMode is the compare output mode of a channel
type OutputMode uint8

const (
	OutputTiming   OutputMode = iota // compare only, pin untouched
	OutputInactive                   // force inactive on match
	OutputPWM1
)

// OutputConfig configures a channel for output compare
type OutputConfig struct {
	Mode      OutputMode
	Enable    bool // drive the pin
	ActiveLow bool
	Preload   bool // buffer compare writes until the next update event
}

// Device is the abstract timer peripheral interface that core code uses.
// Platform-specific implementations handle the vendor registers.
type Device interface {
	// Clock returns the timer input clock in Hz
	Clock() uint32

	// EnableClock turns on the peripheral clock
	EnableClock()

	// ConfigureBase programs the auto-reload (period) and prescaler
	// registers with clock division 1
	ConfigureBase(reload uint16, prescaler uint16)

	// SetCountDirection sets up/down counting
	SetCountDirection(dir CountDirection)

	// SetCounterEnabled starts or stops the counter
	SetCounterEnabled(on bool)

	// SetInterrupt enables or disables the interrupts in mask
	SetInterrupt(mask Event, on bool)

	// ClearFlag clears the status flags in mask
	ClearFlag(mask Event)

	// Pending returns status & interrupt-enable
	Pending() Event

	// Capture reads the capture/compare register of channel 1..4
	Capture(channel uint8) uint16

	// SetCompare writes the capture/compare register of channel 1..4
	SetCompare(channel uint8, value uint16)

	// Period reads the auto-reload register
	Period() uint16

	// Counter reads the live counter
	Counter() uint16

	// GenerateUpdate requests a software update (overflow) event
	GenerateUpdate()

	// ConfigureInput sets channel 1..4 up for input capture
	ConfigureInput(channel uint8, cfg InputConfig)

	// ConfigureOutput sets channel 1..4 up for output compare
	ConfigureOutput(channel uint8, cfg OutputConfig)
}

// IRQController is the interrupt controller capability
type IRQController interface {
	// EnableLine enables a vector at the given priority
	EnableLine(irq IRQ, prio Priority)

	// Raise masks every interrupt at prio or less urgent and returns the
	// previous mask state. Calls must be paired with Restore.
	Raise(prio Priority) MaskState

	// Restore undoes Raise
	Restore(state MaskState)
}

// handlerSerializer is implemented by controllers whose critical sections
// do not hold off interrupt handlers by themselves
type handlerSerializer interface {
	serialize(h func())
}
