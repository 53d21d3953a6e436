// Package mcp23017 drives the MCP23017 16-bit I2C port expander in the
// configuration arcade boards use: all monitored bits as pull-up inputs
// with change interrupts mirrored onto a single INT line, spare bits
// optionally driven low as extra ground points.
package mcp23017

import (
	"dscheirer.com/gpiokeys/i2c"
)

// Register addresses in bank-0 (interleaved A/B) mode.
const (
	regIODIRA   = 0x00
	regIPOLA    = 0x02
	regGPINTENA = 0x04
	regIOCONB1  = 0x05 // IOCON's address while the chip is in bank-1 mode
	regIOCONA   = 0x0A
	regGPPUA    = 0x0C
	regINTCAPA  = 0x10
	regGPIOA    = 0x12
	regOLATA    = 0x14
)

// IOCON value: bank 0, mirrored interrupts (INTA=INTB), sequential
// addressing, open-drain INT output.
const ioconValue = 0x44

// Conn is the register transport; *i2c.Device satisfies it, tests
// substitute a fake.
type Conn interface {
	WriteReg(reg uint8, vals ...byte) error
	ReadReg(reg uint8, buf []byte) error
	Close() error
}

// Open binds to the chip on /dev/i2c-<bus> and configures it.
func Open(bus int, addr uint8, cfg PortConfig) (*Device, error) {
	c, err := i2c.Open(bus, addr)
	if err != nil {
		return nil, err
	}
	d, err := Configure(c, cfg)
	if err != nil {
		c.Close()
		return nil, err
	}
	return d, nil
}

// PortConfig describes the 16 bits as masks, bit 0 = A0 ... bit 15 = B7.
type PortConfig struct {
	Inputs    uint16 // input direction (keys and unassigned bits)
	Pullups   uint16 // 100k pull-up enabled
	IntEnable uint16 // interrupt-on-change enabled
	DriveLow  uint16 // outputs driven low (spare grounds)
}

type Device struct {
	c     Conn
	state uint16 // last-read port levels
}

// Configure initializes the chip and seeds the level cache.  The first
// write targets address 0x05: if the chip powered up in bank-1 mode
// that is IOCON and flips it to bank 0; if it was already bank 0 the
// write lands in GPINTENB, which the full config below rewrites anyway.
func Configure(c Conn, cfg PortConfig) (*Device, error) {
	if err := c.WriteReg(regIOCONB1, 0x00); err != nil {
		return nil, err
	}
	if err := c.WriteReg(regIOCONA, ioconValue); err != nil {
		return nil, err
	}
	steps := []struct {
		reg uint8
		val uint16
	}{
		{regIODIRA, cfg.Inputs},
		{regIPOLA, 0x0000}, // no polarity inversion
		{regGPINTENA, cfg.IntEnable},
		{regGPPUA, cfg.Pullups},
		{regOLATA, 0x0000}, // ground bits drive low
	}
	for _, s := range steps {
		if err := c.WriteReg(s.reg, byte(s.val), byte(s.val>>8)); err != nil {
			return nil, err
		}
	}
	d := &Device{c: c}
	// seed the cache; this read also releases any interrupt the chip
	// latched before we were listening
	if _, err := d.ReadPorts(); err != nil {
		return nil, err
	}
	return d, nil
}

// ReadPorts reads both GPIO registers as one 16-bit value and updates
// the cache.  GPIO is read rather than INTCAP: the capture register
// only holds the state at the moment of the interrupt, and inputs that
// change faster than we service them would be lost.
func (d *Device) ReadPorts() (uint16, error) {
	var buf [2]byte
	if err := d.c.ReadReg(regGPIOA, buf[:]); err != nil {
		return 0, err
	}
	d.state = uint16(buf[0]) | uint16(buf[1])<<8
	return d.state, nil
}

// Poll re-reads the ports and reports current levels plus the bits
// that changed since the previous read.
func (d *Device) Poll() (levels, changed uint16, err error) {
	old := d.state
	levels, err = d.ReadPorts()
	if err != nil {
		return 0, 0, err
	}
	return levels, levels ^ old, nil
}

// Levels returns the cached port value without touching the bus.
func (d *Device) Levels() uint16 {
	return d.state
}

func (d *Device) Close() error {
	return d.c.Close()
}
