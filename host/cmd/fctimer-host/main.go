package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"

	"github.com/google/shlex"

	"fctimer/core"
	"fctimer/host/mcu"
	"fctimer/host/serial"
	"fctimer/protocol"
)

var (
	device  = flag.String("device", "/dev/ttyACM0", "Serial device path")
	baud    = flag.Int("baud", 115200, "Baud rate (ignored for USB CDC)")
	verbose = flag.Bool("verbose", false, "Print every trace record as it arrives")
)

func main() {
	flag.Parse()

	fmt.Println("fctimer host - timer trace monitor")

	link := mcu.NewMCU()
	cfg := serial.DefaultConfig(*device)
	cfg.Baud = *baud
	fmt.Printf("Connecting to %s...\n", cfg.Device)
	if err := link.ConnectWithConfig(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer link.Close()

	if *verbose {
		link.SetRecordHandler(func(r protocol.TraceRecord) {
			fmt.Println(formatRecord(r))
		})
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		if err := link.Run(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "Link error: %v\n", err)
		}
	}()

	fmt.Println("Enter commands (type 'help' for available commands, 'quit' to exit):")
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		args, err := shlex.Split(scanner.Text())
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			continue
		}
		if len(args) == 0 {
			continue
		}

		switch args[0] {
		case "quit", "exit", "q":
			return
		case "help", "?":
			printHelp()
		case "stats":
			st := link.Stats()
			fmt.Printf("frames=%d records=%d resyncs=%d missing=%d bad=%d\n",
				st.Frames, st.Records, st.Dropped, st.SeqGaps, st.Bad)
		case "last":
			n := 10
			if len(args) > 1 {
				if n, err = strconv.Atoi(args[1]); err != nil {
					fmt.Fprintf(os.Stderr, "Error: bad count %q\n", args[1])
					continue
				}
			}
			for _, r := range link.Recent(n) {
				fmt.Println(formatRecord(r))
			}
		default:
			fmt.Printf("Unknown command: %s (type 'help' for available commands)\n", args[0])
		}
	}

	if err := scanner.Err(); err != nil {
		fmt.Fprintf(os.Stderr, "Error reading input: %v\n", err)
		os.Exit(1)
	}
}

func printHelp() {
	fmt.Println("\nAvailable commands:")
	fmt.Println("  help           - Show this help message")
	fmt.Println("  stats          - Print link counters")
	fmt.Println("  last [n]       - Print the last n trace records (default 10)")
	fmt.Println("  quit/exit/q    - Exit the program")
	fmt.Println()
}

func formatRecord(r protocol.TraceRecord) string {
	return fmt.Sprintf("%8d %-8s tim=%d ch=%d v=%d",
		r.Seq, core.EventName(r.Type), r.Timer, r.Channel, r.Value)
}
