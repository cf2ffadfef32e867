package core

import "testing"

func TestEdgeCallbackSlotFilledBeforeEnable(t *testing.T) {
	f := newFixture(t)
	ch := f.ch(2, 3)
	slot := &f.s.timer(2).dir.edge[2]

	var checked int
	f.devs[2].onSetInterrupt = func(mask Event, on bool) {
		if mask != EventCC3 {
			return
		}
		checked++
		filled := slot.Load() != nil
		if on && !filled {
			t.Errorf("CC3 enabled with an empty slot")
		}
		if !on && !filled {
			t.Errorf("CC3 disabled after its slot was cleared")
		}
	}

	var c counters
	f.s.SetEdgeCallback(ch, c.edge("a"))
	if f.devs[2].enabled&EventCC3 == 0 {
		t.Errorf("CC3 not enabled")
	}
	f.s.SetEdgeCallback(ch, nil)
	if f.devs[2].enabled&EventCC3 != 0 {
		t.Errorf("CC3 still enabled")
	}
	if slot.Load() != nil {
		t.Errorf("slot not cleared")
	}
	if checked != 2 {
		t.Errorf("saw %d CC3 enable writes, want 2", checked)
	}
}

func TestOverflowChainOrder(t *testing.T) {
	f := newFixture(t)
	var c counters
	f.s.SetOverflowCallback(f.ch(2, 3), c.overflow("ch3"))
	f.s.SetOverflowCallback(f.ch(2, 1), c.overflow("ch1"))
	f.s.SetGlobalUpdateCallback(2, c.overflow("global"))

	if n := f.s.OverflowChainLen(2); n != 3 {
		t.Fatalf("chain length %d, want 3", n)
	}
	d := f.devs[2]
	d.status |= EventOverflow
	f.s.Dispatch(2)

	want := []string{"global", "ch1", "ch3"}
	if len(c.calls) != len(want) {
		t.Fatalf("calls %v, want %v", c.calls, want)
	}
	for i := range want {
		if c.calls[i] != want[i] {
			t.Errorf("calls %v, want %v", c.calls, want)
			break
		}
	}
}

func TestOverflowChainEverySubset(t *testing.T) {
	names := []string{"global", "ch1", "ch2", "ch3", "ch4"}
	for mask := 0; mask < 1<<len(names); mask++ {
		f := newFixture(t)
		var c counters
		// register in reverse so order comes from the rebuild, not the calls
		for i := len(names) - 1; i >= 0; i-- {
			if mask&(1<<i) == 0 {
				continue
			}
			if i == 0 {
				f.s.SetGlobalUpdateCallback(2, c.overflow(names[0]))
			} else {
				f.s.SetOverflowCallback(f.ch(2, uint8(i)), c.overflow(names[i]))
			}
		}

		var want []string
		for i, name := range names {
			if mask&(1<<i) != 0 {
				want = append(want, name)
			}
		}
		if n := f.s.OverflowChainLen(2); n != len(want) {
			t.Errorf("mask %#x: chain length %d, want %d", mask, n, len(want))
		}
		d := f.devs[2]
		if on := d.enabled&EventOverflow != 0; on != (mask != 0) {
			t.Errorf("mask %#x: overflow enable %v", mask, on)
		}

		d.status = EventOverflow
		f.s.Dispatch(2)
		if len(c.calls) != len(want) {
			t.Errorf("mask %#x: calls %v, want %v", mask, c.calls, want)
			continue
		}
		for i := range want {
			if c.calls[i] != want[i] {
				t.Errorf("mask %#x: calls %v, want %v", mask, c.calls, want)
				break
			}
		}
	}
}

func TestOverflowEnableTracksChain(t *testing.T) {
	f := newFixture(t)
	d := f.devs[2]
	var c counters

	f.s.SetOverflowCallback(f.ch(2, 1), c.overflow("ch1"))
	f.s.SetOverflowCallback(f.ch(2, 3), c.overflow("ch3"))
	if d.enabled&EventOverflow == 0 {
		t.Fatalf("overflow interrupt not enabled")
	}

	f.s.SetOverflowCallback(f.ch(2, 1), nil)
	if d.enabled&EventOverflow == 0 {
		t.Errorf("overflow disabled while CH3 is still registered")
	}
	if n := f.s.OverflowChainLen(2); n != 1 {
		t.Errorf("chain length %d, want 1", n)
	}

	f.s.SetOverflowCallback(f.ch(2, 3), nil)
	if d.enabled&EventOverflow != 0 {
		t.Errorf("overflow enabled with an empty chain")
	}
	if f.s.OverflowChainLen(2) != 0 {
		t.Errorf("chain not empty")
	}
}

func TestChainRebuildInsideCriticalSection(t *testing.T) {
	f := newFixture(t)
	f.s.ClaimChannel(f.ch(3, 1), TypePWMInput, 1, 29)
	f.log.reset()

	var c counters
	f.s.SetOverflowCallback(f.ch(3, 1), c.overflow("x"))

	raise := f.log.indexOf("raise 1")
	enable := f.log.indexOf("TIM3 irq 0x1 true depth=1")
	restore := f.log.indexOf("restore")
	if raise < 0 || enable < 0 || restore < 0 {
		t.Fatalf("missing ops: %v", f.log.ops)
	}
	if !(raise < enable && enable < restore) {
		t.Errorf("enable write outside critical section: %v", f.log.ops)
	}
}

func TestCriticalSectionUsesBoardPriorityByDefault(t *testing.T) {
	f := newFixture(t)
	var c counters
	f.s.SetGlobalUpdateCallback(10, c.overflow("g"))
	if f.irq.last != 4 {
		t.Errorf("raised to %d, want board priority 4", f.irq.last)
	}

	f.s.ClaimChannel(f.ch(10, 1), TypeTimer, 6, 25)
	f.s.SetGlobalUpdateCallback(10, nil)
	if f.irq.last != 4 {
		t.Errorf("raised to %d, want board priority 4", f.irq.last)
	}
}

func TestConfigureCallbacksSingleRebuild(t *testing.T) {
	f := newFixture(t)
	var c counters
	f.s.ConfigureCallbacks(f.ch(1, 2), c.edge("e"), c.overflow("o"))

	d := f.devs[1]
	if d.enabled&(EventCC2|EventOverflow) != EventCC2|EventOverflow {
		t.Errorf("enabled %#x, want CC2 and overflow", uint32(d.enabled))
	}
	n := 0
	for _, op := range f.log.ops {
		if op == "raise 4" {
			n++
		}
	}
	if n != 1 {
		t.Errorf("%d critical sections, want 1: %v", n, f.log.ops)
	}

	f.s.ConfigureCallbacks(f.ch(1, 2), nil, nil)
	if d.enabled != 0 {
		t.Errorf("enabled %#x after clearing both", uint32(d.enabled))
	}
}

func TestSetChannelInterruptRefusesEmptySlot(t *testing.T) {
	f := newFixture(t)
	ch := f.ch(3, 2)
	f.s.SetChannelInterrupt(ch, true)
	if f.devs[3].enabled != 0 {
		t.Errorf("enabled a channel with no callback")
	}

	var c counters
	f.s.SetEdgeCallback(ch, c.edge("e"))
	f.s.SetChannelInterrupt(ch, false)
	if f.devs[3].enabled&EventCC2 != 0 {
		t.Errorf("CC2 still enabled")
	}
	f.s.SetChannelInterrupt(ch, true)
	if f.devs[3].enabled&EventCC2 == 0 {
		t.Errorf("CC2 not re-enabled")
	}

	f.devs[3].status = EventCC2
	f.s.ClearCompareFlag(ch)
	if f.devs[3].status != 0 {
		t.Errorf("flag not cleared")
	}
}

func TestCallbackSettersIgnoreOutOfRange(t *testing.T) {
	f := newFixture(t)
	var c counters
	f.s.SetEdgeCallback(-3, c.edge("e"))
	f.s.SetOverflowCallback(100, c.overflow("o"))
	f.s.SetGlobalUpdateCallback(4, c.overflow("g"))
	f.s.ConfigureCallbacks(100, c.edge("e"), c.overflow("o"))
	f.s.SetChannelInterrupt(100, true)
	f.s.ClearCompareFlag(-1)
	if len(f.log.ops) != 0 {
		t.Errorf("out-of-range calls had side effects: %v", f.log.ops)
	}
}
