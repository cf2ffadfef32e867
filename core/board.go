package core

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidBoard  = errors.New("invalid board description")
	ErrMissingDevice = errors.New("missing timer device")
)

// DefaultTimerPriority is the priority used for timer critical sections and
// for timers configured through ConfigureTimer
const DefaultTimerPriority Priority = 3

// TimerDef describes one physical timer
type TimerDef struct {
	Number    uint8 // TIMn
	IRQ       IRQ   // capture/compare (or global) vector
	UpdateIRQ IRQ   // separate update vector, 0 if the update event uses IRQ
}

// ChannelDef is one entry of the static channel hardware table
type ChannelDef struct {
	Timer   uint8  // timer number
	Channel uint8  // 1..4
	Pin     string // pin label, informational
}

// VectorKind selects the dispatcher bound to a vector
type VectorKind uint8

const (
	VectorSingle     VectorKind = iota // one timer, full dispatch
	VectorShared                       // two timers, full dispatch on both
	VectorUpdateOnly                   // one timer, overflow only
)

func (k VectorKind) String() string {
	switch k {
	case VectorSingle:
		return "single"
	case VectorShared:
		return "shared"
	case VectorUpdateOnly:
		return "update_only"
	}
	return "unknown"
}

// VectorDef binds an interrupt vector to the timers it serves
type VectorDef struct {
	IRQ    IRQ
	Kind   VectorKind
	Timers [2]uint8 // second entry used by VectorShared only
}

// Board is the static timer description of a target
type Board struct {
	Timers        []TimerDef
	Channels      []ChannelDef
	Vectors       []VectorDef
	TimerPriority Priority // critical-section level, DefaultTimerPriority if zero
}

// Set returns the set of timers on the board
func (b *Board) Set() TimerSet {
	var s TimerSet
	for _, t := range b.Timers {
		s |= NewTimerSet(t.Number)
	}
	return s
}

// Validate checks the board description for consistency
func (b *Board) Validate() error {
	set := TimerSet(0)
	for _, t := range b.Timers {
		if t.Number < 1 || t.Number > MaxTimerNumber {
			return fmt.Errorf("%w: timer number %d out of range", ErrInvalidBoard, t.Number)
		}
		if set.Has(t.Number) {
			return fmt.Errorf("%w: timer %d listed twice", ErrInvalidBoard, t.Number)
		}
		set |= NewTimerSet(t.Number)
	}
	for i, c := range b.Channels {
		if !set.Has(c.Timer) {
			return fmt.Errorf("%w: channel %d on unknown timer %d", ErrInvalidBoard, i, c.Timer)
		}
		if c.Channel < 1 || c.Channel > ChannelsPerTimer {
			return fmt.Errorf("%w: channel %d has channel number %d", ErrInvalidBoard, i, c.Channel)
		}
	}
	seen := make(map[IRQ]bool, len(b.Vectors))
	for _, v := range b.Vectors {
		if seen[v.IRQ] {
			return fmt.Errorf("%w: vector %d bound twice", ErrInvalidBoard, v.IRQ)
		}
		seen[v.IRQ] = true
		n := 1
		switch v.Kind {
		case VectorShared:
			n = 2
		case VectorSingle, VectorUpdateOnly:
		default:
			return fmt.Errorf("%w: vector %d has unknown kind %d", ErrInvalidBoard, v.IRQ, v.Kind)
		}
		for _, num := range v.Timers[:n] {
			if !set.Has(num) {
				return fmt.Errorf("%w: vector %d serves unknown timer %d", ErrInvalidBoard, v.IRQ, num)
			}
		}
	}
	return nil
}
