package main

import (
	"log"

	"dscheirer.com/gpiokeys/mcp23017"
)

// activation is everything one pinConfig owns at runtime: exported
// pins, the expander, the virtual keyboard, and the engine tracking
// them.  Reload never patches one in place; it builds a new activation
// and tears down the old one, so no partial view is ever observable.
type activation struct {
	cfg    *pinConfig
	hw     pinHardware
	inputs []*monitoredInput
	exp    expanderPorts
	kb     outputDevice
	eng    *engine
}

// discardEmitter stands in when no keys are bound (empty or missing
// config); the daemon still runs and hot reload still works.
type discardEmitter struct{}

func (discardEmitter) keyEvent(code int, value int32) error { return nil }
func (discardEmitter) sync() error                          { return nil }

func activate(rt runtimeConfig, cfg *pinConfig) (*activation, error) {
	a := &activation{cfg: cfg, hw: rt.hw}
	if err := a.hw.enablePullups(cfg); err != nil {
		return nil, err
	}
	inputs, err := a.hw.exportPins(cfg)
	a.inputs = inputs
	if err != nil {
		a.deactivate()
		return nil, err
	}

	expLevels := uint16(0xffff) // pull-ups read high until pressed
	if cfg.expander != nil {
		exp, err := a.hw.openExpander(rt.settings.GetInt("i2cBus"), cfg.expander.addr, expanderPortConfig(cfg))
		if err != nil {
			a.deactivate()
			return nil, err
		}
		a.exp = exp
		expLevels = exp.Levels()
	}

	var out keyEmitter = discardEmitter{}
	if keys := cfg.keys(); len(keys) > 0 {
		kb, err := a.hw.openKeyboard(rt.settings.GetString("deviceName"), keys)
		if err != nil {
			a.deactivate()
			return nil, err
		}
		a.kb = kb
		out = kb
	}

	a.eng = newEngine(rt, cfg, inputs, a.exp, expLevels, out)

	log.Printf("active config: %s", cfg)
	return a, nil
}

// expanderPortConfig maps the expander bindings onto port masks: every
// bit not driven as a ground is an input with pull-up and
// change-interrupt enabled, bound or not.
func expanderPortConfig(cfg *pinConfig) mcp23017.PortConfig {
	var grounds uint16
	for _, b := range cfg.bindings {
		if b.src == srcExpander && b.key == keyGround {
			grounds |= uint16(1) << uint(b.pin)
		}
	}
	return mcp23017.PortConfig{
		Inputs:    ^grounds,
		Pullups:   ^grounds,
		IntEnable: ^grounds,
		DriveLow:  grounds,
	}
}

// deactivate releases everything, tolerating a partially-built
// activation: keyboard first, then the expander, then the pins.
func (a *activation) deactivate() {
	if a.kb != nil {
		a.kb.close()
		a.kb = nil
	}
	if a.exp != nil {
		a.exp.Close()
		a.exp = nil
	}
	a.hw.unexportPins(a.cfg, a.inputs)
	a.inputs = nil
	a.hw.disablePullups(a.cfg)
}
