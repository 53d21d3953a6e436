package main

import (
	"fmt"
	"os"
	"strconv"

	"golang.org/x/sys/unix"
)

const sysfsRoot = "/sys/class/gpio"

// monitoredInput is the runtime record for one non-ground binding: the
// binding itself, its value descriptor, and both state fields.  raw is
// written only while servicing poll readiness, debounced only while
// servicing a debounce timeout; that split is what keeps the
// single-threaded loop race-free.
type monitoredInput struct {
	b         binding
	fd        int
	raw       bool // latest sampled level, inverted: true = pressed
	debounced bool // last level reported to the virtual keyboard
}

// pinSetup writes one sysfs pin attribute.
func pinSetup(pin int, attr, value string) error {
	path := fmt.Sprintf("%s/gpio%d/%s", sysfsRoot, pin, attr)
	f, err := os.OpenFile(path, os.O_WRONLY, 0)
	if err != nil {
		return err
	}
	defer f.Close()
	n, err := f.WriteString(value)
	if err != nil {
		return err
	}
	if n != len(value) {
		return fmt.Errorf("short write to %s", path)
	}
	return nil
}

// exportPins walks the direct-GPIO bindings: ground pins become driven-
// low outputs, everything else becomes a pull-up input with both-edge
// detection and an open value descriptor seeded from the current level.
// Any failure is fatal to the caller; inputs built so far are returned
// regardless so partial state can be torn down.
func exportPins(cfg *pinConfig) ([]*monitoredInput, error) {
	export, err := os.OpenFile(sysfsRoot+"/export", os.O_WRONLY, 0)
	if err != nil {
		return nil, fmt.Errorf("can't open GPIO export file: %v", err)
	}
	defer export.Close()

	var inputs []*monitoredInput
	for _, b := range cfg.bindings {
		if b.src != srcGPIO {
			continue
		}
		// export may report busy if a previous run leaked the
		// pin; the attribute writes below are the real check
		export.WriteString(strconv.Itoa(b.pin))
		if err := pinSetup(b.pin, "active_low", "0"); err != nil {
			return inputs, fmt.Errorf("pin %d: %v", b.pin, err)
		}
		if b.key == keyGround {
			if err := pinSetup(b.pin, "direction", "out"); err != nil {
				return inputs, fmt.Errorf("pin %d (GND): %v", b.pin, err)
			}
			if err := pinSetup(b.pin, "value", "0"); err != nil {
				return inputs, fmt.Errorf("pin %d (GND): %v", b.pin, err)
			}
			continue
		}
		if err := pinSetup(b.pin, "direction", "in"); err != nil {
			return inputs, fmt.Errorf("pin %d: %v", b.pin, err)
		}
		if err := pinSetup(b.pin, "edge", "both"); err != nil {
			return inputs, fmt.Errorf("pin %d: %v", b.pin, err)
		}
		path := fmt.Sprintf("%s/gpio%d/value", sysfsRoot, b.pin)
		fd, err := unix.Open(path, unix.O_RDONLY, 0)
		if err != nil {
			return inputs, fmt.Errorf("can't access pin %d value: %v", b.pin, err)
		}
		mi := &monitoredInput{b: b, fd: fd}
		pressed, err := readPinLevel(fd)
		if err != nil {
			unix.Close(fd)
			return inputs, fmt.Errorf("pin %d: %v", b.pin, err)
		}
		mi.raw = pressed
		mi.debounced = pressed
		inputs = append(inputs, mi)
	}
	return inputs, nil
}

// readPinLevel samples a sysfs value descriptor.  Pull-ups hold the
// line high until a button shorts it to ground, so low reads as
// pressed.
func readPinLevel(fd int) (bool, error) {
	if _, err := unix.Seek(fd, 0, 0); err != nil {
		return false, err
	}
	var buf [1]byte
	n, err := unix.Read(fd, buf[:])
	if err != nil {
		return false, err
	}
	if n != 1 {
		return false, fmt.Errorf("short read on pin value")
	}
	return buf[0] == '0', nil
}

// unexportPins reverses exportPins: closes descriptors, restores ground
// pins to plain inputs, and un-exports everything.  Write errors are
// ignored; pins may be mid-teardown already.
func unexportPins(cfg *pinConfig, inputs []*monitoredInput) {
	for _, mi := range inputs {
		if mi.fd >= 0 {
			unix.Close(mi.fd)
			mi.fd = -1
		}
	}
	unexport, err := os.OpenFile(sysfsRoot+"/unexport", os.O_WRONLY, 0)
	if err != nil {
		return
	}
	defer unexport.Close()
	for _, b := range cfg.bindings {
		if b.src != srcGPIO {
			continue
		}
		if b.key == keyGround {
			pinSetup(b.pin, "direction", "in")
		}
		unexport.WriteString(strconv.Itoa(b.pin))
	}
}
