package sim

// ADXL345 register map subset
const (
	adxl345RegDevID  = 0x00
	adxl345RegPower  = 0x2D
	adxl345RegDataX0 = 0x32
	adxl345DevID     = 0xE5
	adxl345Measure   = 0x08
)

// ADXL345Address is the accelerometer address with SDO low
const ADXL345Address = 0x53

// ADXL345 models the register file of an ADXL345 accelerometer
type ADXL345 struct {
	dev *RegisterDevice
}

// AttachADXL345 puts an accelerometer on bus at addr
func AttachADXL345(bus *I2CBus, addr uint16) *ADXL345 {
	a := &ADXL345{dev: bus.Attach(addr)}
	a.dev.Set(adxl345RegDevID, adxl345DevID)
	return a
}

// SetRaw loads the data registers with raw axis counts (little endian)
func (a *ADXL345) SetRaw(x, y, z int16) {
	a.dev.Set(adxl345RegDataX0,
		byte(x), byte(uint16(x)>>8),
		byte(y), byte(uint16(y)>>8),
		byte(z), byte(uint16(z)>>8))
}

// Measuring reports whether the driver put the part in measurement mode
func (a *ADXL345) Measuring() bool {
	return a.dev.Get(adxl345RegPower)&adxl345Measure != 0
}

// Reads returns the number of bus transactions the part has seen
func (a *ADXL345) Reads() uint32 { return a.dev.Transactions() }
