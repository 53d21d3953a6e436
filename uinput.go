package main

import (
	"fmt"
	"io/ioutil"
	"log"
	"os"
	"strings"
	"unsafe"

	"golang.org/x/sys/unix"
)

// Event types and codes from linux/input-event-codes.h.
const (
	evSyn     = 0x00
	evKey     = 0x01
	synReport = 0
	busUSB    = 0x03
)

// uinput ioctls: UI_SET_EVBIT / UI_SET_KEYBIT are _IOW('U', 100/101, int),
// UI_DEV_CREATE / UI_DEV_DESTROY are _IO('U', 1/2).
const (
	uiSetEvBit   = 0x40045564
	uiSetKeyBit  = 0x40045565
	uiDevCreate  = 0x5501
	uiDevDestroy = 0x5502
)

// inputEvent mirrors struct input_event; the timeval makes the size
// come out right on both 32-bit and 64-bit ARM.
type inputEvent struct {
	time  unix.Timeval
	etype uint16
	code  uint16
	value int32
}

func (ev *inputEvent) bytes() []byte {
	return (*[unsafe.Sizeof(inputEvent{})]byte)(unsafe.Pointer(ev))[:]
}

// uinputUserDev mirrors struct uinput_user_dev.
type uinputUserDev struct {
	name       [80]byte
	id         struct{ bustype, vendor, product, version uint16 }
	effectsMax uint32
	absmax     [64]int32
	absmin     [64]int32
	absfuzz    [64]int32
	absflat    [64]int32
}

// virtualKeyboard is the process-wide virtual input device.  writeFd is
// the kernel-assigned event node when one can be found: SDL2-based
// emulators read from /dev/input/eventX rather than the creating
// handle, and events written to the node reach them either way.
type virtualKeyboard struct {
	uiFd    int // /dev/uinput, owns the device
	eventFd int // /dev/input/eventX, or -1
	writeFd int
}

// keyEmitter is what the debounce engine emits through.
type keyEmitter interface {
	keyEvent(code int, value int32) error
	sync() error
}

// openVirtualKeyboard creates the device advertising exactly the given
// keycodes under the program's name.
func openVirtualKeyboard(name string, keys []int) (*virtualKeyboard, error) {
	fd, err := unix.Open("/dev/uinput", unix.O_WRONLY|unix.O_NONBLOCK, 0)
	if err != nil {
		return nil, fmt.Errorf("can't open /dev/uinput: %v", err)
	}
	vk := &virtualKeyboard{uiFd: fd, eventFd: -1, writeFd: fd}

	if err := unix.IoctlSetInt(fd, uiSetEvBit, evKey); err != nil {
		vk.close()
		return nil, fmt.Errorf("can't set EV_KEY: %v", err)
	}
	for _, k := range keys {
		if err := unix.IoctlSetInt(fd, uiSetKeyBit, k); err != nil {
			vk.close()
			return nil, fmt.Errorf("can't advertise %s: %v", keyName(k), err)
		}
	}

	var dev uinputUserDev
	copy(dev.name[:], name)
	dev.id.bustype = busUSB
	dev.id.vendor = 0x1
	dev.id.product = 0x1
	dev.id.version = 1
	buf := (*[unsafe.Sizeof(uinputUserDev{})]byte)(unsafe.Pointer(&dev))[:]
	n, err := unix.Write(fd, buf)
	if err != nil {
		vk.close()
		return nil, fmt.Errorf("uinput device write failed: %v", err)
	}
	if n != len(buf) {
		vk.close()
		return nil, fmt.Errorf("short uinput device write (%d of %d)", n, len(buf))
	}
	if err := unix.IoctlSetInt(fd, uiDevCreate, 0); err != nil {
		vk.close()
		return nil, fmt.Errorf("UI_DEV_CREATE failed: %v", err)
	}

	if node := findEventNode(name); node != "" {
		evFd, err := unix.Open(node, unix.O_WRONLY|unix.O_NONBLOCK, 0)
		if err == nil {
			vk.eventFd = evFd
			vk.writeFd = evFd
			log.Printf("virtual keyboard at %s", node)
		}
	}
	return vk, nil
}

// findEventNode locates the /dev/input/eventX node the kernel assigned
// to our device.  The X is dynamic (it shifts with whatever USB input
// hardware was present at boot), so search the virtual-input sysfs tree
// for a device whose advertised name is ours; if that fails, fall back
// to the most recently created event node, which is usually the one
// that appeared when UI_DEV_CREATE ran.
func findEventNode(name string) string {
	entries, err := ioutil.ReadDir("/sys/devices/virtual/input")
	if err == nil {
		for _, e := range entries {
			if !strings.HasPrefix(e.Name(), "input") {
				continue
			}
			dir := "/sys/devices/virtual/input/" + e.Name()
			data, err := ioutil.ReadFile(dir + "/name")
			if err != nil || strings.TrimSpace(string(data)) != name {
				continue
			}
			sub, err := ioutil.ReadDir(dir)
			if err != nil {
				continue
			}
			for _, s := range sub {
				if strings.HasPrefix(s.Name(), "event") {
					return "/dev/input/" + s.Name()
				}
			}
		}
	}
	for i := 99; i >= 0; i-- {
		node := fmt.Sprintf("/dev/input/event%d", i)
		if _, err := os.Stat(node); err == nil {
			return node
		}
	}
	return ""
}

func (vk *virtualKeyboard) keyEvent(code int, value int32) error {
	ev := inputEvent{etype: evKey, code: uint16(code), value: value}
	if _, err := unix.Write(vk.writeFd, ev.bytes()); err != nil {
		return fmt.Errorf("key event write failed: %v", err)
	}
	return nil
}

// sync signals "this batch of key changes is complete"; consumers batch
// on it per the kernel input contract.
func (vk *virtualKeyboard) sync() error {
	ev := inputEvent{etype: evSyn, code: synReport}
	if _, err := unix.Write(vk.writeFd, ev.bytes()); err != nil {
		return fmt.Errorf("syn event write failed: %v", err)
	}
	return nil
}

func (vk *virtualKeyboard) close() {
	if vk.eventFd >= 0 {
		unix.Close(vk.eventFd)
		vk.eventFd = -1
	}
	if vk.uiFd >= 0 {
		unix.IoctlSetInt(vk.uiFd, uiDevDestroy, 0)
		unix.Close(vk.uiFd)
		vk.uiFd = -1
	}
	vk.writeFd = -1
}
