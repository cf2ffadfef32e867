package core

// ChannelsPerTimer is the number of capture/compare units on a timer (CH1..CH4)
const ChannelsPerTimer = 4

// Priority is an interrupt priority level. Lower values are more urgent.
type Priority uint8

// PriorityNone is the committed priority of a timer no channel has claimed yet
const PriorityNone Priority = 0xFF

// IRQ identifies an interrupt vector on the interrupt controller
type IRQ int16

// IRQNone marks an absent vector (e.g. a timer without a separate update vector)
const IRQNone IRQ = -1

// MaskState is the opaque interrupt mask state returned by IRQController.Raise
type MaskState uintptr

// ChannelType tags the consumer currently occupying a timer channel
type ChannelType uint8

const (
	TypeFree ChannelType = iota
	TypePWMInput
	TypePPMInput
	TypePWMOutputFast
	TypePWMOutputStandard
	TypePPMOutput
	TypeMotor
	TypeServo
	TypeLED
	TypeBeeper
	TypeTransponder
	TypeCamera
	TypeSoftSerialRX
	TypeSoftSerialTX
	TypeSoftSerialRXTX
	TypeSoftSerialAuxTimer
	TypeTimer
)

var channelTypeNames = [...]string{
	TypeFree:               "free",
	TypePWMInput:           "pwm_input",
	TypePPMInput:           "ppm_input",
	TypePWMOutputFast:      "pwm_output_fast",
	TypePWMOutputStandard:  "pwm_output_standard",
	TypePPMOutput:          "ppm_output",
	TypeMotor:              "motor",
	TypeServo:              "servo",
	TypeLED:                "led",
	TypeBeeper:             "beeper",
	TypeTransponder:        "transponder",
	TypeCamera:             "camera",
	TypeSoftSerialRX:       "softserial_rx",
	TypeSoftSerialTX:       "softserial_tx",
	TypeSoftSerialRXTX:     "softserial_rxtx",
	TypeSoftSerialAuxTimer: "softserial_auxtimer",
	TypeTimer:              "timer",
}

func (t ChannelType) String() string {
	if int(t) < len(channelTypeNames) {
		return channelTypeNames[t]
	}
	return "unknown"
}

// IsInput reports whether the type is an input-capture consumer
func (t ChannelType) IsInput() bool {
	switch t {
	case TypePWMInput, TypePPMInput, TypeSoftSerialRX:
		return true
	}
	return false
}

// Event is a bitmask over a timer's status/interrupt-enable bits.
// The layout matches the AT32/STM32 ISTS/IDEN (SR/DIER) registers.
type Event uint32

const (
	EventOverflow Event = 1 << 0 // update / overflow
	EventCC1      Event = 1 << 1
	EventCC2      Event = 1 << 2
	EventCC3      Event = 1 << 3
	EventCC4      Event = 1 << 4

	// EventAll covers every event the dispatcher knows how to service
	EventAll = EventOverflow | EventCC1 | EventCC2 | EventCC3 | EventCC4
)

// EventCC returns the compare/capture event bit for channel 1..4
func EventCC(channel uint8) Event {
	return EventCC1 << (channel - 1)
}

// EventKind is the decoded form of a single event bit
type EventKind uint8

const (
	KindNone EventKind = iota
	KindOverflow
	KindCompare1
	KindCompare2
	KindCompare3
	KindCompare4
)

// Kind decodes a single-bit Event. Multi-bit or unknown values give KindNone.
func (e Event) Kind() EventKind {
	switch e {
	case EventOverflow:
		return KindOverflow
	case EventCC1:
		return KindCompare1
	case EventCC2:
		return KindCompare2
	case EventCC3:
		return KindCompare3
	case EventCC4:
		return KindCompare4
	}
	return KindNone
}

// Channel returns the channel number (1..4) of a compare kind, 0 otherwise
func (k EventKind) Channel() uint8 {
	if k >= KindCompare1 && k <= KindCompare4 {
		return uint8(k-KindCompare1) + 1
	}
	return 0
}

// EdgeCallback is notified when its channel's capture/compare event fires.
// capture is the channel's capture register at dispatch time.
type EdgeCallback interface {
	OnEdge(capture uint16)
}

// OverflowCallback is notified on the timer's update event.
// capture is the elapsed period: the period register, or the counter value
// latched by ForceOverflow.
type OverflowCallback interface {
	OnOverflow(capture uint16)
}

// EdgeFunc adapts a plain function to EdgeCallback
type EdgeFunc func(capture uint16)

func (f EdgeFunc) OnEdge(capture uint16) { f(capture) }

// OverflowFunc adapts a plain function to OverflowCallback
type OverflowFunc func(capture uint16)

func (f OverflowFunc) OnOverflow(capture uint16) { f(capture) }
