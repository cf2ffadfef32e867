// Package sampler reads an ADXL345 accelerometer at a fixed rate paced by
// a hardware timer. The timer overflow only posts a tick; the bus traffic
// happens on a worker goroutine.
package sampler

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"fctimer/core"

	"tinygo.org/x/drivers"
	"tinygo.org/x/drivers/adxl345"
)

var (
	ErrNoChannel = errors.New("sampler: channel not on board")
	ErrRate      = errors.New("sampler: rate out of range")
	ErrRunning   = errors.New("sampler: already running")
)

// TimerHz is the tick rate of the pacing timer
const TimerHz = 1000000

// Sample is one accelerometer reading in raw counts
type Sample struct {
	Seq     uint32 // overflow number that triggered the read
	X, Y, Z int32
}

// Sampler paces accelerometer reads from a timer overflow
type Sampler struct {
	s      *core.Subsystem
	timer  uint8
	sensor adxl345.Device

	seq     uint32 // written only by the overflow handler
	ticks   chan uint32
	samples chan Sample
	drops   atomic.Uint32

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// New claims ch as a pacing timer running at rate Hz and configures the
// accelerometer at addr on bus
func New(s *core.Subsystem, ch core.ChannelID, prio core.Priority, rate uint32,
	bus drivers.I2C, addr uint16) (*Sampler, error) {
	def, ok := s.ChannelDef(ch)
	if !ok {
		return nil, ErrNoChannel
	}
	if rate == 0 || TimerHz/rate > 0xFFFF || TimerHz/rate < 2 {
		return nil, ErrRate
	}

	sensor := adxl345.New(bus)
	if addr != 0 {
		sensor.Address = addr
	}
	sensor.Configure()
	sensor.SetRate(adxl345.RATE_100HZ)
	sensor.SetRange(adxl345.RANGE_2G)

	sp := &Sampler{
		s:       s,
		timer:   def.Timer,
		sensor:  sensor,
		ticks:   make(chan uint32, 4),
		samples: make(chan Sample, 16),
	}
	s.ClaimChannel(ch, core.TypeTimer, prio, s.TimerIRQ(def.Timer))
	s.ConfigureTimer(ch, uint16(TimerHz/rate), TimerHz)
	s.SetGlobalUpdateCallback(def.Timer, sp)
	return sp, nil
}

// OnOverflow posts a tick to the worker, dropping it if the worker is behind
func (sp *Sampler) OnOverflow(capture uint16) {
	sp.seq++
	select {
	case sp.ticks <- sp.seq:
	default:
		sp.drops.Add(1)
		core.DebugAsync("[SAMPLER] tick dropped")
	}
}

// Samples returns the reading queue
func (sp *Sampler) Samples() <-chan Sample { return sp.samples }

// Drops returns the number of ticks or samples lost to full queues
func (sp *Sampler) Drops() uint32 { return sp.drops.Load() }

// Start launches the read worker. It stops when ctx is done or Stop is called.
func (sp *Sampler) Start(ctx context.Context) error {
	sp.mu.Lock()
	defer sp.mu.Unlock()
	if sp.cancel != nil {
		return ErrRunning
	}
	ctx, sp.cancel = context.WithCancel(ctx)
	sp.done = make(chan struct{})
	go sp.run(ctx, sp.done)
	return nil
}

func (sp *Sampler) run(ctx context.Context, done chan struct{}) {
	defer close(done)
	for {
		select {
		case <-ctx.Done():
			return
		case seq := <-sp.ticks:
			x, y, z := sp.sensor.ReadRawAcceleration()
			select {
			case sp.samples <- Sample{Seq: seq, X: int32(x), Y: int32(y), Z: int32(z)}:
			default:
				sp.drops.Add(1)
			}
		}
	}
}

// Stop detaches the pacing callback and waits for the worker to exit
func (sp *Sampler) Stop() {
	sp.s.SetGlobalUpdateCallback(sp.timer, nil)

	sp.mu.Lock()
	cancel, done := sp.cancel, sp.done
	sp.cancel, sp.done = nil, nil
	sp.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
}
