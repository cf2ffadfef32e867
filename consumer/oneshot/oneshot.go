// Package oneshot drives OneShot125-style ESC outputs. Pulse widths are
// written to the compare registers, then Complete restarts every timer so
// all motors start their pulse together.
package oneshot

import (
	"errors"

	"fctimer/core"
)

var (
	ErrNoChannel = errors.New("oneshot: channel not on board")
	ErrNoMotors  = errors.New("oneshot: no motor channels")
)

// Protocol constants for OneShot125
const (
	TimerHz  = 8000000 // 0.125 us resolution
	Period   = 0xFFFF  // longer than any pulse, counter restarted by Complete
	MinPulse = 125     // microseconds
	MaxPulse = 250
)

// Output is a set of motor channels
type Output struct {
	s      *core.Subsystem
	regs   []core.CompareRegister
	timers []uint8 // distinct timers, in motor order
}

// New claims every channel as a motor output at prio
func New(s *core.Subsystem, channels []core.ChannelID, prio core.Priority) (*Output, error) {
	if len(channels) == 0 {
		return nil, ErrNoMotors
	}
	o := &Output{s: s}
	for _, ch := range channels {
		def, ok := s.ChannelDef(ch)
		if !ok {
			return nil, ErrNoChannel
		}
		s.ClaimChannel(ch, core.TypeMotor, prio, s.TimerIRQ(def.Timer))
		s.ConfigureTimer(ch, Period, TimerHz)
		s.ConfigureOutputCompare(ch, core.OutputConfig{
			Mode:    core.OutputPWM1,
			Enable:  true,
			Preload: true,
		})
		reg, _ := s.CompareRegister(ch)
		reg.Set(0)
		o.regs = append(o.regs, reg)
		if !o.hasTimer(def.Timer) {
			o.timers = append(o.timers, def.Timer)
		}
	}
	return o, nil
}

func (o *Output) hasTimer(n uint8) bool {
	for _, t := range o.timers {
		if t == n {
			return true
		}
	}
	return false
}

// Motors returns the number of outputs
func (o *Output) Motors() int { return len(o.regs) }

// Write sets the pulse of motor i from a throttle in 0..1000. The pulse
// goes out on the next Complete.
func (o *Output) Write(i int, throttle uint16) {
	if i < 0 || i >= len(o.regs) {
		return
	}
	if throttle > 1000 {
		throttle = 1000
	}
	us := MinPulse + uint32(throttle)*(MaxPulse-MinPulse)/1000
	o.regs[i].Set(uint16(core.TicksFromUS(us, TimerHz)))
}

// Pulse returns the programmed pulse of motor i in timer ticks
func (o *Output) Pulse(i int) uint16 {
	if i < 0 || i >= len(o.regs) {
		return 0
	}
	return o.regs[i].Get()
}

// Complete restarts every motor timer, starting the pulses
func (o *Output) Complete() {
	for _, t := range o.timers {
		o.s.ForceOverflow(t)
	}
}
