package sim

import (
	"sync"
	"testing"
)

func TestNVICDeliversEnabledBoundLines(t *testing.T) {
	n := NewNVIC()
	var hits int
	n.Bind(5, func() { hits++ })

	n.Trigger(5)
	if hits != 0 {
		t.Fatalf("disabled line delivered")
	}
	if !n.Pending(5) {
		t.Fatalf("trigger on a disabled line not kept pending")
	}

	n.EnableLine(5, 2)
	if hits != 1 {
		t.Fatalf("pending line not delivered on enable, hits=%d", hits)
	}
	n.Trigger(5)
	if hits != 2 || n.Delivered(5) != 2 {
		t.Errorf("hits=%d delivered=%d, want 2", hits, n.Delivered(5))
	}
	if p, ok := n.Enabled(5); !ok || p != 2 {
		t.Errorf("Enabled(5) = %d, %v", p, ok)
	}
}

func TestNVICDefersInsideCriticalSection(t *testing.T) {
	n := NewNVIC()
	var hits int
	n.Bind(1, func() { hits++ })
	n.EnableLine(1, 0)

	state := n.Raise(3)
	n.Trigger(1)
	if hits != 0 {
		t.Fatalf("handler ran inside the critical section")
	}
	n.Restore(state)
	if hits != 1 {
		t.Errorf("pending handler not run on Restore, hits=%d", hits)
	}
}

func TestNVICPriorityOrder(t *testing.T) {
	n := NewNVIC()
	var order []int
	n.Bind(10, func() { order = append(order, 10) })
	n.Bind(11, func() { order = append(order, 11) })
	n.Bind(12, func() { order = append(order, 12) })
	n.EnableLine(10, 5)
	n.EnableLine(11, 1)
	n.EnableLine(12, 5)

	state := n.Raise(0)
	n.Trigger(12)
	n.Trigger(10)
	n.Trigger(11)
	n.Restore(state)

	want := []int{11, 10, 12}
	if len(order) != 3 {
		t.Fatalf("order %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Errorf("order %v, want %v", order, want)
			break
		}
	}
}

func TestNVICTriggerFromHandler(t *testing.T) {
	n := NewNVIC()
	var second int
	n.Bind(2, func() { second++ })
	n.Bind(1, func() { n.Trigger(2) })
	n.EnableLine(1, 0)
	n.EnableLine(2, 0)

	n.Trigger(1)
	if second != 1 {
		t.Errorf("nested trigger delivered %d times", second)
	}
}

func TestNVICConcurrentTriggers(t *testing.T) {
	n := NewNVIC()
	var mu sync.Mutex
	running := 0
	overlap := false
	n.Bind(3, func() {
		mu.Lock()
		running++
		if running > 1 {
			overlap = true
		}
		mu.Unlock()
		mu.Lock()
		running--
		mu.Unlock()
	})
	n.EnableLine(3, 1)

	var wg sync.WaitGroup
	for g := 0; g < 4; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 500; i++ {
				if i%3 == 0 {
					s := n.Raise(1)
					n.Trigger(3)
					n.Restore(s)
				} else {
					n.Trigger(3)
				}
			}
		}()
	}
	wg.Wait()

	if overlap {
		t.Errorf("handlers overlapped")
	}
	if n.Pending(3) {
		t.Errorf("interrupt left pending after all triggers returned")
	}
	if n.Delivered(3) == 0 {
		t.Errorf("no interrupt delivered")
	}
}
