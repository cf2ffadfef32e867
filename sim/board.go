package sim

import (
	"fmt"

	"fctimer/config"
	"fctimer/core"
)

// Board is a simulated MCU: one Timer per configured timer, an NVIC with
// the board's vectors bound, and the timer subsystem on top
type Board struct {
	Name      string
	NVIC      *NVIC
	Subsystem *core.Subsystem
	timers    map[uint8]*Timer
}

// NewBoard builds a simulated board from a configuration
func NewBoard(cfg *config.Config) (*Board, error) {
	def, err := cfg.Board()
	if err != nil {
		return nil, err
	}

	b := &Board{
		Name:   cfg.Name,
		NVIC:   NewNVIC(),
		timers: make(map[uint8]*Timer, len(cfg.Timers)),
	}
	devices := make(map[uint8]core.Device, len(cfg.Timers))
	for _, tc := range cfg.Timers {
		t := NewTimer(tc.Number, tc.ClockHz, b.NVIC, core.IRQ(tc.IRQ), core.IRQ(tc.UpdateIRQ))
		b.timers[tc.Number] = t
		devices[tc.Number] = t
	}

	s, err := core.NewSubsystem(def, devices, b.NVIC)
	if err != nil {
		return nil, fmt.Errorf("sim board %s: %w", cfg.Name, err)
	}
	b.Subsystem = s

	for _, v := range s.Vectors() {
		b.NVIC.Bind(v.IRQ, s.VectorHandler(v.IRQ))
	}
	return b, nil
}

// Timer returns the simulated TIMn, nil if the board has none
func (b *Board) Timer(number uint8) *Timer {
	return b.timers[number]
}

// Tick advances every running timer by n input clock cycles
func (b *Board) Tick(n uint32) {
	for _, num := range b.Subsystem.Timers().Numbers() {
		b.timers[num].Tick(n)
	}
}
