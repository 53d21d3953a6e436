package main

import (
	"dscheirer.com/gpiokeys/mcp23017"
)

// expanderPorts is what an activation needs from the port expander.
type expanderPorts interface {
	portPoller
	Levels() uint16
	Close() error
}

// outputDevice is the virtual keyboard from the activation's side.
type outputDevice interface {
	keyEmitter
	close()
}

// pinHardware collects everything an activation touches on the
// machine.  The runtime carries one so tests can swap in fakes and
// drive the whole activate/deactivate/reload path without sysfs, rpio,
// i2c or uinput behind it.
type pinHardware interface {
	enablePullups(cfg *pinConfig) error
	disablePullups(cfg *pinConfig)
	exportPins(cfg *pinConfig) ([]*monitoredInput, error)
	unexportPins(cfg *pinConfig, inputs []*monitoredInput)
	openExpander(bus int, addr byte, pc mcp23017.PortConfig) (expanderPorts, error)
	openKeyboard(name string, keys []int) (outputDevice, error)
}

// gpioHardware is the real machine.
type gpioHardware struct{}

func (gpioHardware) enablePullups(cfg *pinConfig) error {
	return enablePullups(cfg)
}

func (gpioHardware) disablePullups(cfg *pinConfig) {
	disablePullups(cfg)
}

func (gpioHardware) exportPins(cfg *pinConfig) ([]*monitoredInput, error) {
	return exportPins(cfg)
}

func (gpioHardware) unexportPins(cfg *pinConfig, inputs []*monitoredInput) {
	unexportPins(cfg, inputs)
}

func (gpioHardware) openExpander(bus int, addr byte, pc mcp23017.PortConfig) (expanderPorts, error) {
	return mcp23017.Open(bus, addr, pc)
}

func (gpioHardware) openKeyboard(name string, keys []int) (outputDevice, error) {
	return openVirtualKeyboard(name, keys)
}
