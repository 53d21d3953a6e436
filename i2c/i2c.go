// Package i2c is a thin register transport over the Linux i2c-dev
// interface.  Transfers that move fewer bytes than requested are
// reported as errors: a partial register read or write leaves device
// state tracking ambiguous, which callers treat as fatal.
package i2c

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

const i2cSlave = 0x0703 // linux/i2c-dev.h I2C_SLAVE

type Device struct {
	f    *os.File
	addr uint8
}

// Open binds to one chip address on /dev/i2c-<bus>.
func Open(bus int, addr uint8) (*Device, error) {
	f, err := os.OpenFile(fmt.Sprintf("/dev/i2c-%d", bus), os.O_RDWR, 0600)
	if err != nil {
		return nil, err
	}
	if err := ioctl(f.Fd(), i2cSlave, uintptr(addr)); err != nil {
		f.Close()
		return nil, fmt.Errorf("can't select i2c address 0x%02x: %v", addr, err)
	}
	return &Device{f: f, addr: addr}, nil
}

func (d *Device) Close() error {
	return d.f.Close()
}

// WriteReg sends the one-byte register address followed by its value
// bytes in a single transaction.
func (d *Device) WriteReg(reg uint8, vals ...byte) error {
	buf := append([]byte{reg}, vals...)
	n, err := d.f.Write(buf)
	if err != nil {
		return err
	}
	if n != len(buf) {
		return fmt.Errorf("i2c 0x%02x: short write to reg 0x%02x (%d of %d)", d.addr, reg, n, len(buf))
	}
	return nil
}

// ReadReg sets the register address and reads len(buf) value bytes.
func (d *Device) ReadReg(reg uint8, buf []byte) error {
	if err := d.WriteReg(reg); err != nil {
		return err
	}
	n, err := d.f.Read(buf)
	if err != nil {
		return err
	}
	if n != len(buf) {
		return fmt.Errorf("i2c 0x%02x: short read from reg 0x%02x (%d of %d)", d.addr, reg, n, len(buf))
	}
	return nil
}

func ioctl(fd, cmd, arg uintptr) error {
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, fd, cmd, arg)
	if errno != 0 {
		return errno
	}
	return nil
}
