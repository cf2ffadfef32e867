package config

import (
	"encoding/json"
	"errors"
	"fmt"

	"fctimer/core"
)

var ErrUnknownVectorKind = errors.New("unknown vector kind")

// DefaultClockHz is the timer input clock used when a timer omits clock_hz
const DefaultClockHz = 288000000

// Config is the JSON description of a board's timers
type Config struct {
	Name          string          `json:"name"`
	TimerPriority uint8           `json:"timer_priority"`
	Timers        []TimerConfig   `json:"timers"`
	Channels      []ChannelConfig `json:"channels"`
	Vectors       []VectorConfig  `json:"vectors"`
}

// TimerConfig describes one timer
type TimerConfig struct {
	Number    uint8  `json:"number"`
	ClockHz   uint32 `json:"clock_hz"`
	IRQ       int16  `json:"irq"`
	UpdateIRQ int16  `json:"update_irq,omitempty"` // separate update vector, 0 if none
}

// ChannelConfig is one row of the channel hardware table
type ChannelConfig struct {
	Timer   uint8  `json:"timer"`
	Channel uint8  `json:"channel"`
	Pin     string `json:"pin"`
}

// VectorConfig binds an interrupt vector to its timers.
// Kind is "single", "shared" or "update_only".
type VectorConfig struct {
	IRQ    int16   `json:"irq"`
	Kind   string  `json:"kind"`
	Timers []uint8 `json:"timers"`
}

// LoadConfig parses a JSON board description and applies defaults
func LoadConfig(jsonData []byte) (*Config, error) {
	var config Config

	if err := json.Unmarshal(jsonData, &config); err != nil {
		return nil, err
	}

	applyDefaults(&config)

	return &config, nil
}

// applyDefaults fills in missing values. Vectors are derived from the
// timers' IRQ numbers when none are listed: a vector reached by one timer
// is single, by two timers shared.
func applyDefaults(config *Config) {
	if config.Name == "" {
		config.Name = "custom"
	}
	if config.TimerPriority == 0 {
		config.TimerPriority = uint8(core.DefaultTimerPriority)
	}
	for i := range config.Timers {
		if config.Timers[i].ClockHz == 0 {
			config.Timers[i].ClockHz = DefaultClockHz
		}
	}
	if len(config.Vectors) == 0 {
		config.Vectors = deriveVectors(config.Timers)
	}
}

func deriveVectors(timers []TimerConfig) []VectorConfig {
	var order []int16
	byIRQ := make(map[int16][]uint8)
	add := func(irq int16, number uint8) {
		if _, ok := byIRQ[irq]; !ok {
			order = append(order, irq)
		}
		byIRQ[irq] = append(byIRQ[irq], number)
	}
	for _, t := range timers {
		add(t.IRQ, t.Number)
		if t.UpdateIRQ > 0 && t.UpdateIRQ != t.IRQ {
			add(t.UpdateIRQ, t.Number)
		}
	}

	vectors := make([]VectorConfig, 0, len(order))
	for _, irq := range order {
		v := VectorConfig{IRQ: irq, Kind: "single", Timers: byIRQ[irq]}
		if len(v.Timers) > 1 {
			v.Kind = "shared"
		}
		vectors = append(vectors, v)
	}
	return vectors
}

func parseKind(kind string) (core.VectorKind, int, error) {
	switch kind {
	case core.VectorSingle.String():
		return core.VectorSingle, 1, nil
	case core.VectorShared.String():
		return core.VectorShared, 2, nil
	case core.VectorUpdateOnly.String():
		return core.VectorUpdateOnly, 1, nil
	}
	return 0, 0, fmt.Errorf("%w: %q", ErrUnknownVectorKind, kind)
}

// Board converts the configuration to the core board description and
// validates it
func (c *Config) Board() (core.Board, error) {
	b := core.Board{TimerPriority: core.Priority(c.TimerPriority)}
	for _, t := range c.Timers {
		b.Timers = append(b.Timers, core.TimerDef{
			Number:    t.Number,
			IRQ:       core.IRQ(t.IRQ),
			UpdateIRQ: core.IRQ(t.UpdateIRQ),
		})
	}
	for _, ch := range c.Channels {
		b.Channels = append(b.Channels, core.ChannelDef{
			Timer:   ch.Timer,
			Channel: ch.Channel,
			Pin:     ch.Pin,
		})
	}
	for _, v := range c.Vectors {
		kind, n, err := parseKind(v.Kind)
		if err != nil {
			return core.Board{}, fmt.Errorf("vector %d: %w", v.IRQ, err)
		}
		if len(v.Timers) != n {
			return core.Board{}, fmt.Errorf("%w: %s vector %d lists %d timers",
				core.ErrInvalidBoard, v.Kind, v.IRQ, len(v.Timers))
		}
		def := core.VectorDef{IRQ: core.IRQ(v.IRQ), Kind: kind}
		copy(def.Timers[:], v.Timers)
		b.Vectors = append(b.Vectors, def)
	}
	if err := b.Validate(); err != nil {
		return core.Board{}, fmt.Errorf("board %s: %w", c.Name, err)
	}
	return b, nil
}

// Timer returns the configuration of TIMn
func (c *Config) Timer(number uint8) (TimerConfig, bool) {
	for _, t := range c.Timers {
		if t.Number == number {
			return t, true
		}
	}
	return TimerConfig{}, false
}

// AT32F435 interrupt numbers
const (
	irqTMR1OvfTMR10 = 25
	irqTMR1Ch       = 27
	irqTMR2         = 28
	irqTMR3         = 29
	irqTMR4         = 30
	irqTMR8OvfTMR13 = 44
	irqTMR8Ch       = 46
	irqTMR5         = 50
	irqTMR6DAC      = 54
	irqTMR7         = 55
)

// DefaultAT32F435Config returns the timer layout of a typical AT32F435
// flight controller: motors on TIM3 and TIM8, PPM on TIM1, LED strip on
// TIM4 and the basic timers TIM6 and TIM7 on update-only vectors.
func DefaultAT32F435Config() *Config {
	return &Config{
		Name:          "at32f435",
		TimerPriority: 3,
		Timers: []TimerConfig{
			{Number: 1, ClockHz: DefaultClockHz, IRQ: irqTMR1Ch, UpdateIRQ: irqTMR1OvfTMR10},
			{Number: 2, ClockHz: DefaultClockHz, IRQ: irqTMR2},
			{Number: 3, ClockHz: DefaultClockHz, IRQ: irqTMR3},
			{Number: 4, ClockHz: DefaultClockHz, IRQ: irqTMR4},
			{Number: 5, ClockHz: DefaultClockHz, IRQ: irqTMR5},
			{Number: 6, ClockHz: DefaultClockHz, IRQ: irqTMR6DAC},
			{Number: 7, ClockHz: DefaultClockHz, IRQ: irqTMR7},
			{Number: 8, ClockHz: DefaultClockHz, IRQ: irqTMR8Ch, UpdateIRQ: irqTMR8OvfTMR13},
			{Number: 10, ClockHz: DefaultClockHz, IRQ: irqTMR1OvfTMR10},
			{Number: 13, ClockHz: DefaultClockHz, IRQ: irqTMR8OvfTMR13},
		},
		Channels: []ChannelConfig{
			{Timer: 1, Channel: 1, Pin: "PA8"},
			{Timer: 2, Channel: 1, Pin: "PA0"},
			{Timer: 2, Channel: 2, Pin: "PA1"},
			{Timer: 3, Channel: 1, Pin: "PB4"},
			{Timer: 3, Channel: 2, Pin: "PB5"},
			{Timer: 3, Channel: 3, Pin: "PB0"},
			{Timer: 3, Channel: 4, Pin: "PB1"},
			{Timer: 4, Channel: 1, Pin: "PB6"},
			{Timer: 5, Channel: 3, Pin: "PA2"},
			{Timer: 5, Channel: 4, Pin: "PA3"},
			{Timer: 8, Channel: 1, Pin: "PC6"},
			{Timer: 8, Channel: 2, Pin: "PC7"},
			{Timer: 10, Channel: 1, Pin: "PB8"},
		},
		Vectors: []VectorConfig{
			{IRQ: irqTMR1Ch, Kind: "single", Timers: []uint8{1}},
			{IRQ: irqTMR1OvfTMR10, Kind: "shared", Timers: []uint8{1, 10}},
			{IRQ: irqTMR2, Kind: "single", Timers: []uint8{2}},
			{IRQ: irqTMR3, Kind: "single", Timers: []uint8{3}},
			{IRQ: irqTMR4, Kind: "single", Timers: []uint8{4}},
			{IRQ: irqTMR5, Kind: "single", Timers: []uint8{5}},
			{IRQ: irqTMR6DAC, Kind: "update_only", Timers: []uint8{6}},
			{IRQ: irqTMR7, Kind: "update_only", Timers: []uint8{7}},
			{IRQ: irqTMR8Ch, Kind: "single", Timers: []uint8{8}},
			{IRQ: irqTMR8OvfTMR13, Kind: "shared", Timers: []uint8{8, 13}},
		},
	}
}

// STM32F405 timer input clocks at 168 MHz SYSCLK
const (
	STM32F4APB1TimerHz = 84000000
	STM32F4APB2TimerHz = 168000000
)

// DefaultSTM32F405Config returns the timer layout of a typical STM32F405
// flight controller. The vector numbers match the AT32F435 for these
// timers; the clocks differ per APB bus.
func DefaultSTM32F405Config() *Config {
	return &Config{
		Name:          "stm32f405",
		TimerPriority: 3,
		Timers: []TimerConfig{
			{Number: 1, ClockHz: STM32F4APB2TimerHz, IRQ: irqTMR1Ch, UpdateIRQ: irqTMR1OvfTMR10},
			{Number: 2, ClockHz: STM32F4APB1TimerHz, IRQ: irqTMR2},
			{Number: 3, ClockHz: STM32F4APB1TimerHz, IRQ: irqTMR3},
			{Number: 4, ClockHz: STM32F4APB1TimerHz, IRQ: irqTMR4},
			{Number: 5, ClockHz: STM32F4APB1TimerHz, IRQ: irqTMR5},
			{Number: 8, ClockHz: STM32F4APB2TimerHz, IRQ: irqTMR8Ch, UpdateIRQ: irqTMR8OvfTMR13},
			{Number: 10, ClockHz: STM32F4APB2TimerHz, IRQ: irqTMR1OvfTMR10},
		},
		Channels: []ChannelConfig{
			{Timer: 1, Channel: 2, Pin: "PA9"},
			{Timer: 2, Channel: 1, Pin: "PA0"},
			{Timer: 3, Channel: 3, Pin: "PB0"},
			{Timer: 3, Channel: 4, Pin: "PB1"},
			{Timer: 4, Channel: 1, Pin: "PB6"},
			{Timer: 5, Channel: 4, Pin: "PA3"},
			{Timer: 8, Channel: 3, Pin: "PC8"},
			{Timer: 8, Channel: 4, Pin: "PC9"},
			{Timer: 10, Channel: 1, Pin: "PB8"},
		},
		Vectors: []VectorConfig{
			{IRQ: irqTMR1Ch, Kind: "single", Timers: []uint8{1}},
			{IRQ: irqTMR1OvfTMR10, Kind: "shared", Timers: []uint8{1, 10}},
			{IRQ: irqTMR2, Kind: "single", Timers: []uint8{2}},
			{IRQ: irqTMR3, Kind: "single", Timers: []uint8{3}},
			{IRQ: irqTMR4, Kind: "single", Timers: []uint8{4}},
			{IRQ: irqTMR5, Kind: "single", Timers: []uint8{5}},
			{IRQ: irqTMR8Ch, Kind: "single", Timers: []uint8{8}},
			{IRQ: irqTMR8OvfTMR13, Kind: "update_only", Timers: []uint8{8}},
		},
	}
}
