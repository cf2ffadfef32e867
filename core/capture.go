package core

// ConfigureInputCapture sets a channel up for input capture on the chosen
// edge. filterTicks is the shortest pulse (in timer clock ticks) that must
// not be filtered out.
func (s *Subsystem) ConfigureInputCapture(ch ChannelID, rising bool, filterTicks uint32) {
	c := s.channel(ch)
	if c == nil {
		return
	}
	t := s.timerOf(c)
	if t == nil {
		return
	}
	t.dev.ConfigureInput(c.def.Channel, InputConfig{
		Rising: rising,
		Filter: InputFilter(filterTicks),
	})
}

// ConfigureOutputCompare sets a channel up for output compare
func (s *Subsystem) ConfigureOutputCompare(ch ChannelID, cfg OutputConfig) {
	c := s.channel(ch)
	if c == nil {
		return
	}
	t := s.timerOf(c)
	if t == nil {
		return
	}
	t.dev.ConfigureOutput(c.def.Channel, cfg)
}

// CompareRegister is a handle on one channel's capture/compare register
type CompareRegister struct {
	dev     Device
	channel uint8
}

// Get reads the register
func (r CompareRegister) Get() uint16 { return r.dev.Capture(r.channel) }

// Set writes the register
func (r CompareRegister) Set(v uint16) { r.dev.SetCompare(r.channel, v) }

// CompareRegister returns the capture/compare register of a channel
func (s *Subsystem) CompareRegister(ch ChannelID) (CompareRegister, bool) {
	c := s.channel(ch)
	if c == nil {
		return CompareRegister{}, false
	}
	t := s.timerOf(c)
	if t == nil {
		return CompareRegister{}, false
	}
	return CompareRegister{dev: t.dev, channel: c.def.Channel}, true
}
