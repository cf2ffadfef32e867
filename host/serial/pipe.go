package serial

import "net"

type pipePort struct {
	net.Conn
}

func (pipePort) Flush() error { return nil }

// Pipe returns two connected in-memory ports. Writes on one block until
// the other reads.
func Pipe() (Port, Port) {
	a, b := net.Pipe()
	return pipePort{a}, pipePort{b}
}
