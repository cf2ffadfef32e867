// Command fctimer-sim runs the timer subsystem on a simulated board and
// prints what the consumers observed, followed by the trace ring.
package main

import (
	"flag"
	"fmt"
	"os"

	"fctimer/config"
	"fctimer/consumer/oneshot"
	"fctimer/consumer/ppm"
	"fctimer/core"
	"fctimer/protocol"
	"fctimer/sim"
)

var (
	configPath = flag.String("config", "", "Board JSON (default: built-in AT32F435)")
	scenario   = flag.String("scenario", "ppm", "Scenario to run: ppm or oneshot")
	timerNum   = flag.Uint("timer", 2, "Timer carrying the PPM input")
	channelNum = flag.Uint("channel", 1, "Channel carrying the PPM input")
	frames     = flag.Int("frames", 5, "Number of frames to run")
	forceEvery = flag.Int("force", 2, "Force an overflow on the PPM timer every n frames (0 = never)")
	tracePath  = flag.String("trace", "", "Write the trace ring as wire frames to this file")
	debug      = flag.Bool("debug", false, "Enable subsystem debug output")
)

func main() {
	flag.Parse()

	core.SetDebugWriter(func(s string) { fmt.Println(s) })
	core.SetDebugEnabled(*debug)

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	board, err := sim.NewBoard(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	ring := core.NewTraceRing()
	board.Subsystem.SetTrace(ring)
	fmt.Printf("Board %s: %d timers, %d channels\n",
		board.Name, board.Subsystem.Timers().Count(), board.Subsystem.ChannelCount())

	switch *scenario {
	case "ppm":
		err = runPPM(board, uint8(*timerNum), uint8(*channelNum))
	case "oneshot":
		err = runOneshot(board)
	default:
		err = fmt.Errorf("unknown scenario %q", *scenario)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	printVectors(board)
	ring.Dump()
	if *tracePath != "" {
		if err := writeTrace(*tracePath, ring); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.DefaultAT32F435Config(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return config.LoadConfig(data)
}

func runPPM(board *sim.Board, timer, channel uint8) error {
	id, ok := board.Subsystem.FindChannel(timer, channel)
	if !ok {
		return fmt.Errorf("TIM%d CH%d is not on board %s", timer, channel, board.Name)
	}
	tim := board.Timer(timer)
	dec, err := ppm.New(board.Subsystem, id, 1, *frames+1)
	if err != nil {
		return err
	}
	defer dec.Close()

	src := sim.NewPPMSource(tim, channel)
	widths := []uint32{1000, 1250, 1500, 1750, 2000, 1500, 1500, 1500}
	src.Edge(100)
	for i := 0; i < *frames; i++ {
		src.Edge(6000)
		for j, w := range widths {
			if *forceEvery > 0 && i%*forceEvery == *forceEvery-1 && j == len(widths)/2 {
				// wrap the counter in the middle of a pulse
				tim.Tick(w / 2 * (tim.Clock() / 1000000))
				board.Subsystem.ForceOverflow(timer)
				src.Edge(w - w/2)
				continue
			}
			src.Edge(w)
		}
	}
	src.Edge(6000)

	for i := 0; i < *frames; i++ {
		select {
		case f := <-dec.Frames():
			fmt.Printf("frame %d: %v\n", i, f.Channels[:f.Count])
		default:
			return fmt.Errorf("only %d of %d frames decoded (%d bad pulses)", i, *frames, dec.Errors())
		}
	}
	return nil
}

func runOneshot(board *sim.Board) error {
	var motors []core.ChannelID
	for ch := uint8(1); ch <= 4; ch++ {
		id, ok := board.Subsystem.FindChannel(3, ch)
		if !ok {
			return fmt.Errorf("TIM3 CH%d is not on board %s", ch, board.Name)
		}
		motors = append(motors, id)
	}
	out, err := oneshot.New(board.Subsystem, motors, 2)
	if err != nil {
		return err
	}
	for i := 0; i < *frames; i++ {
		for m := 0; m < out.Motors(); m++ {
			out.Write(m, uint16((i*200+m*100)%1001))
		}
		out.Complete()
		board.Tick(board.Timer(3).Clock() / 1000)
		fmt.Printf("cycle %d:", i)
		for m := 0; m < out.Motors(); m++ {
			fmt.Printf(" %.3fus", float64(out.Pulse(m))/(oneshot.TimerHz/1e6))
		}
		fmt.Println()
	}
	return nil
}

func printVectors(board *sim.Board) {
	fmt.Println("Vectors:")
	for _, st := range board.NVIC.Stats() {
		if !st.Enabled {
			continue
		}
		fmt.Printf("  IRQ %3d prio %d delivered %d\n", st.IRQ, st.Priority, st.Delivered)
	}
}

func writeTrace(path string, ring *core.TraceRing) error {
	out := &protocol.SliceOutput{}
	if _, err := protocol.EncodeTraceFrames(out, 0, ring.Records()); err != nil {
		return err
	}
	return os.WriteFile(path, out.Buf, 0o644)
}
