package sampler

import (
	"context"
	"testing"
	"time"

	"fctimer/config"
	"fctimer/core"
	"fctimer/sim"
)

type rig struct {
	b     *sim.Board
	accel *sim.ADXL345
	sp    *Sampler
}

func newRig(t *testing.T, rate uint32) *rig {
	t.Helper()
	b, err := sim.NewBoard(config.DefaultAT32F435Config())
	if err != nil {
		t.Fatalf("NewBoard: %v", err)
	}
	bus := sim.NewI2CBus()
	accel := sim.AttachADXL345(bus, sim.ADXL345Address)

	ch, ok := b.Subsystem.FindChannel(5, 4)
	if !ok {
		t.Fatal("TIM5 CH4 missing from default board")
	}
	sp, err := New(b.Subsystem, ch, 3, rate, bus, sim.ADXL345Address)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return &rig{b: b, accel: accel, sp: sp}
}

func (r *rig) next(t *testing.T) Sample {
	t.Helper()
	select {
	case s := <-r.sp.Samples():
		return s
	case <-time.After(2 * time.Second):
		t.Fatal("no sample")
	}
	return Sample{}
}

func TestSamplesPacedByTimer(t *testing.T) {
	r := newRig(t, 1000)
	if !r.accel.Measuring() {
		t.Fatal("sensor not put in measurement mode")
	}
	r.accel.SetRaw(10, 20, 256)

	if err := r.sp.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer r.sp.Stop()

	// 1 ms per overflow at 1 kHz
	for i := uint32(1); i <= 3; i++ {
		r.b.Tick(config.DefaultClockHz / 1000)
		s := r.next(t)
		if s.Seq != i {
			t.Errorf("sample %d has seq %d", i, s.Seq)
		}
		if s.X != 10 || s.Y != 20 || s.Z != 256 {
			t.Errorf("sample %d = %d,%d,%d", i, s.X, s.Y, s.Z)
		}
	}
	if r.sp.Drops() != 0 {
		t.Errorf("Drops = %d", r.sp.Drops())
	}
}

func TestStopDetachesCallback(t *testing.T) {
	r := newRig(t, 500)
	if got := r.b.Subsystem.OverflowChainLen(5); got != 1 {
		t.Fatalf("chain length %d, want 1", got)
	}
	if err := r.sp.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := r.sp.Start(context.Background()); err != ErrRunning {
		t.Errorf("second Start: %v", err)
	}
	r.sp.Stop()
	r.sp.Stop()

	if got := r.b.Subsystem.OverflowChainLen(5); got != 0 {
		t.Errorf("chain length %d after Stop", got)
	}
	r.b.Tick(config.DefaultClockHz / 100)
	select {
	case s := <-r.sp.Samples():
		t.Errorf("sample %+v after Stop", s)
	default:
	}
}

func TestTicksDroppedWithoutWorker(t *testing.T) {
	r := newRig(t, 1000)
	// no worker: the tick queue fills and the rest are dropped
	r.b.Tick(config.DefaultClockHz / 100)
	if got := r.sp.Drops(); got != 6 {
		t.Errorf("Drops = %d, want 6", got)
	}
}

func TestNewErrors(t *testing.T) {
	b, err := sim.NewBoard(config.DefaultAT32F435Config())
	if err != nil {
		t.Fatal(err)
	}
	bus := sim.NewI2CBus()
	ch, _ := b.Subsystem.FindChannel(5, 4)
	for _, rate := range []uint32{0, 10, 600000} {
		if _, err := New(b.Subsystem, ch, 3, rate, bus, 0); err != ErrRate {
			t.Errorf("rate %d: %v", rate, err)
		}
	}
	if _, err := New(b.Subsystem, core.ChannelID(99), 3, 1000, bus, 0); err != ErrNoChannel {
		t.Errorf("unknown channel: %v", err)
	}
}

func TestNewKeepsEscalatedLinePriority(t *testing.T) {
	b, err := sim.NewBoard(config.DefaultAT32F435Config())
	if err != nil {
		t.Fatalf("NewBoard: %v", err)
	}
	bus := sim.NewI2CBus()
	sim.AttachADXL345(bus, sim.ADXL345Address)
	ch, _ := b.Subsystem.FindChannel(5, 4)
	sp, err := New(b.Subsystem, ch, 1, 1000, bus, sim.ADXL345Address)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer sp.Stop()

	want := b.Subsystem.TimerPriorityOf(5)
	if want != 1 {
		t.Fatalf("TIM5 priority %d, want 1", want)
	}
	prio, ok := b.NVIC.Enabled(b.Subsystem.TimerIRQ(5))
	if !ok || prio != want {
		t.Errorf("line at %d (enabled %v), want %d", prio, ok, want)
	}
}
