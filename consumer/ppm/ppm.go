// Package ppm decodes a PPM receiver stream captured on a timer channel.
//
// The decoder keeps a 32-bit time base from the timer's overflow chain
// (large counter += elapsed period on every wrap) and measures the time
// between rising edges. A gap of at least SyncMinUS ends a frame.
package ppm

import (
	"errors"
	"sync/atomic"

	"fctimer/core"
)

var ErrNoChannel = errors.New("ppm: channel not on board")

// Timing, with the timer counting at 1 MHz
const (
	TimerHz     = 1000000
	MinChannels = 4
	MaxChannels = 12
	SyncMinUS   = 2700
	PulseMinUS  = 750
	PulseMaxUS  = 2250
	FilterTicks = 8 // input filter, timer clock ticks
)

// Frame is one decoded PPM frame
type Frame struct {
	Count    int
	Channels [MaxChannels]uint16 // pulse widths in microseconds
}

// Decoder is a PPM input on one timer channel
type Decoder struct {
	s   *core.Subsystem
	ch  core.ChannelID
	dev core.Device

	// dispatcher state
	large   uint32
	last    uint32
	started bool
	count   int // -1 while waiting for sync after a bad pulse
	pulses  [MaxChannels]uint16

	frames chan Frame
	drops  atomic.Uint32
	bad    atomic.Uint32
}

// New claims ch as a PPM input at prio and starts capturing rising edges.
// Decoded frames are queued on a channel of size buf; frames that find the
// queue full are dropped.
func New(s *core.Subsystem, ch core.ChannelID, prio core.Priority, buf int) (*Decoder, error) {
	def, ok := s.ChannelDef(ch)
	if !ok {
		return nil, ErrNoChannel
	}
	if buf <= 0 {
		buf = 4
	}
	d := &Decoder{
		s:      s,
		ch:     ch,
		dev:    s.Device(def.Timer),
		count:  -1,
		frames: make(chan Frame, buf),
	}

	s.ClaimChannel(ch, core.TypePPMInput, prio, s.TimerIRQ(def.Timer))
	s.ConfigureTimer(ch, 0, TimerHz)
	s.ConfigureInputCapture(ch, true, FilterTicks)
	s.ConfigureCallbacks(ch, d, d)
	return d, nil
}

// Close detaches the decoder from the timer
func (d *Decoder) Close() {
	d.s.ConfigureCallbacks(d.ch, nil, nil)
}

// Frames returns the decoded frame queue
func (d *Decoder) Frames() <-chan Frame { return d.frames }

// Drops returns the number of frames lost to a full queue
func (d *Decoder) Drops() uint32 { return d.drops.Load() }

// Errors returns the number of out-of-range pulses seen
func (d *Decoder) Errors() uint32 { return d.bad.Load() }

// OnOverflow extends the time base by the elapsed period
func (d *Decoder) OnOverflow(capture uint16) {
	d.large += uint32(capture) + 1
}

// OnEdge measures the pulse that ended at capture
func (d *Decoder) OnEdge(capture uint16) {
	now := d.large + uint32(capture)
	// A capture in the lower half with the update flag still pending
	// happened after a wrap the overflow chain has not seen yet.
	if capture < 0x8000 && d.dev.Pending()&core.EventOverflow != 0 {
		now += uint32(d.dev.Period()) + 1
	}
	if !d.started {
		d.started = true
		d.last = now
		return
	}
	width := now - d.last
	d.last = now

	switch {
	case width >= SyncMinUS:
		if d.count >= MinChannels {
			d.publish()
		}
		d.count = 0
	case d.count < 0:
		// waiting for sync
	case width < PulseMinUS || width > PulseMaxUS || d.count == MaxChannels:
		d.bad.Add(1)
		d.count = -1
	default:
		d.pulses[d.count] = uint16(width)
		d.count++
	}
}

func (d *Decoder) publish() {
	f := Frame{Count: d.count, Channels: d.pulses}
	select {
	case d.frames <- f:
	default:
		d.drops.Add(1)
	}
}
