package sim

import (
	"sync"
	"sync/atomic"
	"testing"

	"fctimer/config"
	"fctimer/core"
)

func newDefaultBoard(t *testing.T) *Board {
	t.Helper()
	b, err := NewBoard(config.DefaultAT32F435Config())
	if err != nil {
		t.Fatalf("NewBoard: %v", err)
	}
	return b
}

func TestNewBoardBindsVectors(t *testing.T) {
	b := newDefaultBoard(t)
	if b.Timer(3) == nil || b.Timer(9) != nil {
		t.Fatalf("timer table wrong")
	}
	if got := b.Subsystem.Timers().Count(); got != 10 {
		t.Errorf("%d timers, want 10", got)
	}

	s := b.Subsystem
	ch, _ := s.FindChannel(3, 2)
	s.ClaimChannel(ch, core.TypeMotor, 2, 29)
	if p, ok := b.NVIC.Enabled(29); !ok || p != 2 {
		t.Errorf("TIM3 vector enabled=%v prio=%d", ok, p)
	}
	if !b.Timer(3).Stats().Running {
		t.Errorf("TIM3 not started by claim")
	}
}

func TestNewBoardInvalidConfig(t *testing.T) {
	cfg := config.DefaultAT32F435Config()
	cfg.Vectors[0].Kind = "bogus"
	if _, err := NewBoard(cfg); err == nil {
		t.Error("expected an error")
	}
}

// setupCapture claims TIM2 CH1 as a 1 MHz input capture with a 1000 tick period
func setupCapture(t *testing.T, b *Board) core.ChannelID {
	t.Helper()
	s := b.Subsystem
	ch, ok := s.FindChannel(2, 1)
	if !ok {
		t.Fatal("TIM2 CH1 missing")
	}
	s.ClaimChannel(ch, core.TypePWMInput, 1, 28)
	s.ConfigureTimer(ch, 1000, 1000000)
	s.ConfigureInputCapture(ch, true, 0)
	return ch
}

func TestSharedUpdateVector(t *testing.T) {
	b := newDefaultBoard(t)
	s := b.Subsystem
	ch, _ := s.FindChannel(1, 1)
	s.ClaimChannel(ch, core.TypePPMInput, 2, 27)
	s.ConfigureTimer(ch, 500, 1000000)

	var tim1, tim10 int32
	s.SetGlobalUpdateCallback(1, core.OverflowFunc(func(uint16) { atomic.AddInt32(&tim1, 1) }))
	ch10, _ := s.FindChannel(10, 1)
	s.ClaimChannel(ch10, core.TypeTimer, 2, 25)
	s.ConfigureTimer(ch10, 250, 1000000)
	s.SetGlobalUpdateCallback(10, core.OverflowFunc(func(uint16) { atomic.AddInt32(&tim10, 1) }))

	// 1000 ticks at 1 MHz
	b.Tick(1000 * 288)

	if tim1 != 2 || tim10 != 4 {
		t.Errorf("tim1=%d tim10=%d, want 2 and 4", tim1, tim10)
	}
	if b.NVIC.Delivered(25) != 6 {
		t.Errorf("shared vector delivered %d times, want 6", b.NVIC.Delivered(25))
	}
}

func TestForcedOverflowOnSimulatedTimer(t *testing.T) {
	b := newDefaultBoard(t)
	ch := setupCapture(t, b)
	s := b.Subsystem

	var caps []uint16
	s.SetOverflowCallback(ch, core.OverflowFunc(func(c uint16) { caps = append(caps, c) }))

	b.Timer(2).Tick(400 * 288)
	s.ForceOverflow(2)
	b.Timer(2).Tick(1000 * 288)

	if len(caps) != 2 || caps[0] != 400 || caps[1] != 999 {
		t.Errorf("captures %v, want [400 999]", caps)
	}
}

func TestMutatorsRaceDispatcher(t *testing.T) {
	b := newDefaultBoard(t)
	ch := setupCapture(t, b)
	s := b.Subsystem
	ring := core.NewTraceRing()
	s.SetTrace(ring)

	var global, perChannel, edges int64
	s.SetGlobalUpdateCallback(2, core.OverflowFunc(func(uint16) { atomic.AddInt64(&global, 1) }))
	ovf := core.OverflowFunc(func(uint16) { atomic.AddInt64(&perChannel, 1) })
	edge := core.EdgeFunc(func(uint16) { atomic.AddInt64(&edges, 1) })

	const overflows = 200
	var wg sync.WaitGroup
	stop := make(chan struct{})

	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; ; i++ {
			select {
			case <-stop:
				return
			default:
			}
			if i%2 == 0 {
				s.ConfigureCallbacks(ch, edge, ovf)
			} else {
				s.SetEdgeCallback(ch, nil)
				s.SetOverflowCallback(ch, nil)
			}
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-stop:
				return
			default:
			}
			b.Timer(2).CaptureEdge(1)
		}
	}()

	b.Timer(2).Tick(overflows * 1000 * 288)
	close(stop)
	wg.Wait()

	if n := b.Timer(2).Stats().Overflows; n != overflows {
		t.Fatalf("timer wrapped %d times, want %d", n, overflows)
	}
	// overflows raised while a mutator held the CPU may coalesce
	g := atomic.LoadInt64(&global)
	if g < 1 || g > overflows {
		t.Errorf("global update ran %d times for %d overflows", g, overflows)
	}
	if p := atomic.LoadInt64(&perChannel); p > g {
		t.Errorf("per-channel overflow ran %d times, more than the chain head (%d)", p, g)
	}
	if s.OverflowChainLen(2) < 1 {
		t.Errorf("global callback dropped from the chain")
	}
}
