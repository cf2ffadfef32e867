// Package mcu is the host end of a flight controller trace link. It turns
// the framed byte stream into trace records.
package mcu

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"fctimer/host/serial"
	"fctimer/protocol"
)

var ErrNotConnected = errors.New("not connected to MCU")

// HistorySize is the number of records kept for Recent
const HistorySize = 256

// Stats counts link activity
type Stats struct {
	Frames  uint32
	Records uint32
	Dropped uint32 // times the decoder lost synchronisation
	SeqGaps uint32 // frames missing between received sequence numbers
	Bad     uint32 // frames whose payload did not decode
}

// MCU represents a trace link to a flight controller
type MCU struct {
	port serial.Port
	fifo *protocol.FifoBuffer
	dec  *protocol.FrameDecoder

	mu      sync.Mutex
	history []protocol.TraceRecord
	stats   Stats
	nextSeq int // -1 until the first frame
	handler func(protocol.TraceRecord)
}

// NewMCU creates a new MCU instance (not yet connected)
func NewMCU() *MCU {
	return &MCU{
		fifo:    protocol.NewFifoBuffer(protocol.MessageMax),
		dec:     protocol.NewFrameDecoder(),
		nextSeq: -1,
	}
}

// Connect opens device with the default link settings
func (m *MCU) Connect(device string) error {
	return m.ConnectWithConfig(serial.DefaultConfig(device))
}

// ConnectWithConfig opens a serial port with a custom config
func (m *MCU) ConnectWithConfig(cfg *serial.Config) error {
	port, err := serial.Open(cfg)
	if err != nil {
		return fmt.Errorf("failed to open serial port: %w", err)
	}
	m.Attach(port)
	return nil
}

// Attach uses an already open port
func (m *MCU) Attach(port serial.Port) {
	m.port = port
}

// SetRecordHandler installs a function called for every decoded record,
// from the goroutine running Run
func (m *MCU) SetRecordHandler(fn func(protocol.TraceRecord)) {
	m.mu.Lock()
	m.handler = fn
	m.mu.Unlock()
}

// Run reads the port until ctx is done, the port reports EOF or a read
// fails
func (m *MCU) Run(ctx context.Context) error {
	if m.port == nil {
		return ErrNotConnected
	}
	buf := make([]byte, 64)
	for ctx.Err() == nil {
		n, err := m.port.Read(buf)
		if n > 0 {
			m.Feed(buf[:n])
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read: %w", err)
		}
	}
	return nil
}

// Feed pushes received bytes through the frame decoder and returns the
// records completed by them
func (m *MCU) Feed(data []byte) []protocol.TraceRecord {
	var out []protocol.TraceRecord
	for len(data) > 0 {
		n := m.fifo.Write(data)
		data = data[n:]
		for _, f := range m.dec.Receive(m.fifo) {
			out = append(out, m.frame(f)...)
		}
		if n == 0 && m.fifo.Available() >= protocol.MessageMax-1 {
			// full of bytes that never framed
			m.fifo.Pop(m.fifo.Available())
		}
	}

	m.mu.Lock()
	m.stats.Dropped = m.dec.Dropped()
	handler := m.handler
	m.mu.Unlock()

	if handler != nil {
		for _, r := range out {
			handler(r)
		}
	}
	return out
}

func (m *MCU) frame(f protocol.Frame) []protocol.TraceRecord {
	recs, err := protocol.DecodeTraceRecords(f.Data)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.stats.Frames++
	if m.nextSeq >= 0 && int(f.Sequence) != m.nextSeq {
		m.stats.SeqGaps += uint32((int(f.Sequence) - m.nextSeq) & protocol.MessageSeqMask)
	}
	m.nextSeq = int((f.Sequence + 1) & protocol.MessageSeqMask)
	if err != nil {
		m.stats.Bad++
		return nil
	}
	m.stats.Records += uint32(len(recs))
	m.history = append(m.history, recs...)
	if extra := len(m.history) - HistorySize; extra > 0 {
		m.history = append(m.history[:0], m.history[extra:]...)
	}
	return recs
}

// Recent returns up to n of the latest records, oldest first
func (m *MCU) Recent(n int) []protocol.TraceRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	if n > len(m.history) || n < 0 {
		n = len(m.history)
	}
	return append([]protocol.TraceRecord(nil), m.history[len(m.history)-n:]...)
}

// Stats returns the link counters
func (m *MCU) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stats
}

// Close closes the port
func (m *MCU) Close() error {
	if m.port == nil {
		return nil
	}
	return m.port.Close()
}
