package sim

import (
	"errors"
	"sync"

	"tinygo.org/x/drivers"
)

var ErrNoDevice = errors.New("i2c: no device at address")

// Compile-time check.
var _ drivers.I2C = (*I2CBus)(nil)

// RegisterDevice is an I2C target with a 256-byte register file and an
// auto-incrementing register pointer
type RegisterDevice struct {
	mu   sync.Mutex
	regs [256]byte
	ptr  uint8
	txs  uint32
}

// Set writes registers starting at reg, as the device itself would
func (d *RegisterDevice) Set(reg uint8, data ...byte) {
	d.mu.Lock()
	for _, b := range data {
		d.regs[reg] = b
		reg++
	}
	d.mu.Unlock()
}

// Get reads one register
func (d *RegisterDevice) Get(reg uint8) byte {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.regs[reg]
}

// Transactions returns the number of bus transactions addressed to d
func (d *RegisterDevice) Transactions() uint32 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.txs
}

func (d *RegisterDevice) tx(w, r []byte) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.txs++
	if len(w) > 0 {
		d.ptr = w[0]
		for _, b := range w[1:] {
			d.regs[d.ptr] = b
			d.ptr++
		}
	}
	for i := range r {
		r[i] = d.regs[d.ptr]
		d.ptr++
	}
}

// I2CBus implements tinygo drivers.I2C over attached register devices
type I2CBus struct {
	mu      sync.Mutex
	devices map[uint16]*RegisterDevice
}

func NewI2CBus() *I2CBus {
	return &I2CBus{devices: make(map[uint16]*RegisterDevice)}
}

// Attach puts a register device on the bus at addr
func (b *I2CBus) Attach(addr uint16) *RegisterDevice {
	b.mu.Lock()
	defer b.mu.Unlock()
	d := &RegisterDevice{}
	b.devices[addr] = d
	return d
}

func (b *I2CBus) Tx(addr uint16, w, r []byte) error {
	b.mu.Lock()
	d, ok := b.devices[addr]
	b.mu.Unlock()
	if !ok {
		return ErrNoDevice
	}
	d.tx(w, r)
	return nil
}
