package sim

// PPMSource drives rising edges into one input-capture channel of a
// simulated timer, timed in microseconds
type PPMSource struct {
	tim         *Timer
	ch          uint8
	cyclesPerUS uint32
}

// NewPPMSource returns a source for channel ch of tim
func NewPPMSource(tim *Timer, ch uint8) *PPMSource {
	return &PPMSource{tim: tim, ch: ch, cyclesPerUS: tim.Clock() / 1000000}
}

// Edge waits us microseconds of timer input clock, then captures an edge.
// It reports whether the channel captured.
func (p *PPMSource) Edge(us uint32) bool {
	p.tim.Tick(us * p.cyclesPerUS)
	return p.tim.CaptureEdge(p.ch)
}

// Frame sends a sync gap followed by one pulse per width
func (p *PPMSource) Frame(sync uint32, widths ...uint32) {
	p.Edge(sync)
	for _, w := range widths {
		p.Edge(w)
	}
}
