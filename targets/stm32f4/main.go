//go:build stm32f4

// Firmware for STM32F405 flight controllers: PPM receiver on TIM2,
// OneShot125 motors on TIM3 and TIM8, accelerometer sampling paced by TIM5.
package main

import (
	"context"
	"machine"
	"runtime/interrupt"
	"strconv"
	"time"

	"fctimer/config"
	"fctimer/consumer/oneshot"
	"fctimer/consumer/ppm"
	"fctimer/consumer/sampler"
	"fctimer/core"
)

// adxl345Addr is the accelerometer address with SDO low
const adxl345Addr = 0x53

// vector handlers, resolved once at startup
var (
	vecTIM1CC      func()
	vecTIM1UpTIM10 func()
	vecTIM2        func()
	vecTIM3        func()
	vecTIM4        func()
	vecTIM5        func()
	vecTIM8CC      func()
	vecTIM8UpTIM13 func()
)

func bindVectors(s *core.Subsystem) {
	vecTIM1CC = s.VectorHandler(27)
	vecTIM1UpTIM10 = s.VectorHandler(25)
	vecTIM2 = s.VectorHandler(28)
	vecTIM3 = s.VectorHandler(29)
	vecTIM4 = s.VectorHandler(30)
	vecTIM5 = s.VectorHandler(50)
	vecTIM8CC = s.VectorHandler(46)
	vecTIM8UpTIM13 = s.VectorHandler(44)

	interrupt.New(27, func(interrupt.Interrupt) { vecTIM1CC() })
	interrupt.New(25, func(interrupt.Interrupt) { vecTIM1UpTIM10() })
	interrupt.New(28, func(interrupt.Interrupt) { vecTIM2() })
	interrupt.New(29, func(interrupt.Interrupt) { vecTIM3() })
	interrupt.New(30, func(interrupt.Interrupt) { vecTIM4() })
	interrupt.New(50, func(interrupt.Interrupt) { vecTIM5() })
	interrupt.New(46, func(interrupt.Interrupt) { vecTIM8CC() })
	interrupt.New(44, func(interrupt.Interrupt) { vecTIM8UpTIM13() })
}

func main() {
	machine.Serial.Configure(machine.UARTConfig{BaudRate: 115200})
	core.SetDebugWriter(func(s string) {
		machine.Serial.Write([]byte(s + "\r\n"))
	})
	core.SetDebugEnabled(true)
	core.InitAsyncDebug()

	cfg := config.DefaultSTM32F405Config()
	board, err := cfg.Board()
	if err != nil {
		halt(err)
	}
	devices := make(map[uint8]core.Device, len(cfg.Timers))
	for _, tc := range cfg.Timers {
		devices[tc.Number] = newTimer(tc.Number, tc.ClockHz)
	}
	s, err := core.NewSubsystem(board, devices, basepriController{})
	if err != nil {
		halt(err)
	}
	trace := core.NewTraceRing()
	s.SetTrace(trace)
	bindVectors(s)

	rx, err := ppm.New(s, channel(s, 2, 1), 1, 4)
	if err != nil {
		halt(err)
	}

	motors, err := oneshot.New(s, []core.ChannelID{
		channel(s, 3, 3), channel(s, 3, 4),
		channel(s, 8, 3), channel(s, 8, 4),
	}, 2)
	if err != nil {
		halt(err)
	}

	machine.I2C1.Configure(machine.I2CConfig{Frequency: 400 * machine.KHz})
	gyro, err := sampler.New(s, channel(s, 5, 4), 3, 1000, machine.I2C1, adxl345Addr)
	if err != nil {
		halt(err)
	}
	gyro.Start(context.Background())

	trace.Dump()

	var throttle uint16
	loop := time.NewTicker(2 * time.Millisecond)
	for {
		select {
		case f := <-rx.Frames():
			if f.Count > 2 {
				throttle = pulseToThrottle(f.Channels[2])
			}
		case smp := <-gyro.Samples():
			if smp.Seq%1000 == 0 {
				core.DebugPrintln("[GYRO] z=" + strconv.Itoa(int(smp.Z)))
			}
		case <-loop.C:
			for i := 0; i < motors.Motors(); i++ {
				motors.Write(i, throttle)
			}
			motors.Complete()
		}
	}
}

func channel(s *core.Subsystem, timer, ch uint8) core.ChannelID {
	id, ok := s.FindChannel(timer, ch)
	if !ok {
		halt(ppm.ErrNoChannel)
	}
	return id
}

// pulseToThrottle maps a 1000..2000 us receiver pulse to 0..1000
func pulseToThrottle(us uint16) uint16 {
	switch {
	case us <= 1000:
		return 0
	case us >= 2000:
		return 1000
	}
	return us - 1000
}

func halt(err error) {
	for {
		core.DebugPrintln("[FATAL] " + err.Error())
		time.Sleep(time.Second)
	}
}
