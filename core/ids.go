package core

import "math/bits"

// IndexInvalid is returned for timer numbers outside the set.
// It is always >= TimerSet.Count(), so a single bounds check rejects it.
const IndexInvalid uint8 = 0xFE

// MaxTimerNumber is the highest timer number a TimerSet can hold
const MaxTimerNumber = 31

// TimerSet is the set of physical timers present on a target.
// Bit n set means TIMn exists.
type TimerSet uint32

// NewTimerSet builds a set from timer numbers. Numbers outside 1..31 are ignored.
func NewTimerSet(numbers ...uint8) TimerSet {
	var s TimerSet
	for _, n := range numbers {
		if n >= 1 && n <= MaxTimerNumber {
			s |= 1 << n
		}
	}
	return s
}

// Has reports whether TIMn is in the set
func (s TimerSet) Has(n uint8) bool {
	return n >= 1 && n <= MaxTimerNumber && s&(1<<n) != 0
}

// Count returns the number of timers in the set
func (s TimerSet) Count() int {
	return bits.OnesCount32(uint32(s))
}

// Index returns the dense index of TIMn: the number of set bits below n.
// Timers outside the set map to IndexInvalid.
func (s TimerSet) Index(n uint8) uint8 {
	if !s.Has(n) {
		return IndexInvalid
	}
	return uint8(bits.OnesCount32(uint32(s) & (1<<n - 1)))
}

// Number is the inverse of Index. Out-of-range indexes give 0.
func (s TimerSet) Number(index uint8) uint8 {
	if int(index) >= s.Count() {
		return 0
	}
	v := uint32(s)
	for i := uint8(0); i < index; i++ {
		v &= v - 1 // drop lowest set bit
	}
	return uint8(bits.TrailingZeros32(v))
}

// Numbers lists the timers in dense-index order
func (s TimerSet) Numbers() []uint8 {
	out := make([]uint8, 0, s.Count())
	for v := uint32(s); v != 0; v &= v - 1 {
		out = append(out, uint8(bits.TrailingZeros32(v)))
	}
	return out
}
