package core

// ConfigureTimeBase programs a counting-up time base.
// period is the number of ticks per overflow (0 = the full 16-bit range) and
// hz the requested tick rate; the prescaler saturates at 0xFFFF.
func ConfigureTimeBase(dev Device, period uint16, hz uint32) {
	reload := period - 1 // wraps 0 to 0xFFFF
	dev.ConfigureBase(reload, prescalerFor(dev.Clock(), hz))
	dev.SetCountDirection(CountUp)
}

func prescalerFor(clock, hz uint32) uint16 {
	if hz == 0 || hz > clock {
		return 0
	}
	div := clock/hz - 1
	if div > 0xFFFF {
		return 0xFFFF
	}
	return uint16(div)
}

// PrescalerForHz returns the prescaler giving the tick rate closest to hz,
// or 0 if hz is above the timer clock
func PrescalerForHz(clock, hz uint32) uint16 {
	if hz == 0 || hz > clock {
		return 0
	}
	return uint16((clock+hz/2)/hz) - 1
}

// PrescalerForMHz is PrescalerForHz for a rate in MHz
func PrescalerForMHz(clock uint32, mhz uint16) uint16 {
	return PrescalerForHz(clock, uint32(mhz)*1000000)
}

// PeriodForPrescaler returns the period in ticks giving an overflow rate of hz
func PeriodForPrescaler(clock uint32, prescaler uint16, hz uint32) uint16 {
	if hz == 0 {
		return 0
	}
	return uint16((clock / (uint32(prescaler) + 1)) / hz)
}

// TimerPrescalerForHz is PrescalerForHz using TIMn's clock
func (s *Subsystem) TimerPrescalerForHz(timer uint8, hz uint32) uint16 {
	t := s.timer(timer)
	if t == nil {
		return 0
	}
	return PrescalerForHz(t.dev.Clock(), hz)
}

// TimerPeriodForPrescaler is PeriodForPrescaler using TIMn's clock
func (s *Subsystem) TimerPeriodForPrescaler(timer uint8, prescaler uint16, hz uint32) uint16 {
	t := s.timer(timer)
	if t == nil {
		return 0
	}
	return PeriodForPrescaler(t.dev.Clock(), prescaler, hz)
}

// TicksFromUS converts microseconds to ticks at rate hz
func TicksFromUS(us, hz uint32) uint32 {
	return uint32(uint64(us) * uint64(hz) / 1000000)
}

// TicksToUS converts ticks at rate hz to microseconds
func TicksToUS(ticks, hz uint32) uint32 {
	if hz == 0 {
		return 0
	}
	return uint32(uint64(ticks) * 1000000 / uint64(hz))
}

// input filter sample counts, indexed by the filter register value
var inputFilterTicks = [16]uint32{
	1 * 1,               // fDTS
	1 * 2, 1 * 4, 1 * 8, // fCK_INT
	2 * 6, 2 * 8, // fDTS/2
	4 * 6, 4 * 8,
	8 * 6, 8 * 8,
	16 * 5, 16 * 6, 16 * 8,
	32 * 5, 32 * 6, 32 * 8,
}

// InputFilter returns the largest filter setting whose sample window is not
// longer than ticks
func InputFilter(ticks uint32) uint8 {
	for i := 1; i < len(inputFilterTicks); i++ {
		if inputFilterTicks[i] > ticks {
			return uint8(i - 1)
		}
	}
	return 0x0F
}

// DMA request enable bits per channel
const (
	DMASourceCC1 uint16 = 0x0200
	DMASourceCC2 uint16 = 0x0400
	DMASourceCC3 uint16 = 0x0800
	DMASourceCC4 uint16 = 0x1000
)

// DMASource returns the DMA request bit for channel 1..4, 0 otherwise
func DMASource(channel uint8) uint16 {
	switch channel {
	case 1:
		return DMASourceCC1
	case 2:
		return DMASourceCC2
	case 3:
		return DMASourceCC3
	case 4:
		return DMASourceCC4
	}
	return 0
}
