package main

import (
	"time"
)

// Engine states.  The poll timeout doubles as the pending deadline for
// whichever state we're in; idle blocks indefinitely.
type engineState int

const (
	stateIdle engineState = iota
	stateDebouncing
	stateRepeating
	statePinchArmed
)

// portPoller is the expander's contribution: re-read the ports, report
// levels and changed bits.  *mcp23017.Device satisfies it.
type portPoller interface {
	Poll() (levels, changed uint16, err error)
}

// pinProbe answers "is this pinch member currently pressed" for either
// hardware source.
type pinProbe struct {
	mi  *monitoredInput // direct pin, or
	bit int             // expander bit when mi == nil
}

// engine converts raw, possibly-chattering transitions into clean
// press/release events, runs key auto-repeat, and watches for the
// multi-button pinch gesture.  Everything runs on the poll loop's
// goroutine: raw states are written only from handleReady, debounced
// states only from expire, so there is nothing to lock.
type engine struct {
	rt  runtimeConfig
	t   timings
	out keyEmitter

	inputs []*monitoredInput // ascending pin order; includes the INT pin

	exp        portPoller
	expKeys    [16]int
	expMask    uint16 // bits we monitor (keys + unassigned inputs)
	expPressed uint16

	pinch    []pinProbe
	pinchKey int

	state   engineState
	wait    int // pending poll timeout in ms; -1 blocks
	repKey  int // keycode being auto-repeated, keyNone when idle
	repWait int // next repeat interval in ms
}

func newEngine(rt runtimeConfig, cfg *pinConfig, inputs []*monitoredInput, exp portPoller, expLevels uint16, out keyEmitter) *engine {
	e := &engine{
		rt:     rt,
		t:      rt.timings(),
		out:    out,
		inputs: inputs,
		exp:    exp,
		state:  stateIdle,
		wait:   -1,
	}
	for _, b := range cfg.bindings {
		if b.src != srcExpander {
			continue
		}
		m := uint16(1) << uint(b.pin)
		if b.key == keyGround {
			continue
		}
		e.expKeys[b.pin] = b.key
		e.expMask |= m
	}
	e.expPressed = ^expLevels & e.expMask

	if len(cfg.pinchSet) > 0 {
		e.pinchKey = cfg.pinchKey
		byRef := make(map[pinRef]*monitoredInput, len(inputs))
		for _, mi := range inputs {
			byRef[pinRef{src: mi.b.src, pin: mi.b.pin}] = mi
		}
		for ref := range cfg.pinchSet {
			if ref.src == srcExpander {
				e.pinch = append(e.pinch, pinProbe{bit: ref.pin})
			} else if mi, ok := byRef[ref]; ok {
				e.pinch = append(e.pinch, pinProbe{mi: mi})
			}
		}
	}
	return e
}

// pollTimeout is what the event loop blocks with.
func (e *engine) pollTimeout() int {
	if e.state == stateIdle {
		return -1
	}
	return e.wait
}

// handleReady services poll readiness on one input: sample the level
// and (re)arm the debounce window.  Nothing is emitted yet.
func (e *engine) handleReady(mi *monitoredInput) error {
	pressed, err := readPinLevel(mi.fd)
	if err != nil {
		return err
	}
	e.noteLevel(mi, pressed)
	return nil
}

// noteLevel is the raw-state half of handleReady, split out so tests
// can drive transitions without sysfs descriptors.
func (e *engine) noteLevel(mi *monitoredInput, pressed bool) {
	mi.raw = pressed
	e.state = stateDebouncing
	e.wait = e.t.debounce
}

// expire services a poll timeout.
func (e *engine) expire() error {
	switch e.state {
	case stateDebouncing:
		return e.commit()
	case statePinchArmed:
		return e.firePinch()
	case stateRepeating:
		return e.fireRepeat()
	}
	return nil
}

// commit runs once the debounce window passes with no further
// readiness: every input whose raw state settled somewhere new gets
// exactly one press or release, in ascending pin/bit order, followed
// by a single syn.  A settled press becomes the repeat target; a
// settled release cancels repeat.  The pinch check runs last and
// overrides whatever state the pass left behind.
func (e *engine) commit() error {
	emitted := false
	for _, mi := range e.inputs {
		if mi.raw == mi.debounced {
			continue
		}
		mi.debounced = mi.raw
		switch {
		case mi.b.intr:
			if mi.debounced {
				if err := e.scanExpander(&emitted); err != nil {
					return err
				}
			}
		case mi.b.key > 0:
			if err := e.emitKey(mi.b.key, mi.debounced); err != nil {
				return err
			}
			emitted = true
		}
	}
	if emitted {
		if err := e.out.sync(); err != nil {
			return err
		}
	}

	if e.state == stateDebouncing {
		// nothing changed hands (chatter that settled back, or a
		// pinch-only pin): resume repeat if a key is still down
		if e.repKey != keyNone {
			e.state = stateRepeating
			e.wait = e.repWait
		} else {
			e.state = stateIdle
			e.wait = -1
		}
	}

	if e.pinchHeld() {
		e.state = statePinchArmed
		e.wait = e.t.pinchHold
	}
	return nil
}

// scanExpander re-reads the expander ports after its interrupt line
// settled active and emits an event for every changed key bit, in
// ascending bit order.
func (e *engine) scanExpander(emitted *bool) error {
	levels, changed, err := e.exp.Poll()
	if err != nil {
		return err
	}
	e.expPressed = ^levels & e.expMask
	for bit := 0; bit < 16; bit++ {
		m := uint16(1) << uint(bit)
		if changed&m == 0 || e.expMask&m == 0 {
			continue
		}
		k := e.expKeys[bit]
		if k == keyNone {
			continue
		}
		pressed := levels&m == 0
		if err := e.emitKey(k, pressed); err != nil {
			return err
		}
		*emitted = true
	}
	return nil
}

// emitKey writes one press/release and adjusts the repeat tracking:
// the most recent press in a pass wins the repeat slot, any release
// cancels it.
func (e *engine) emitKey(key int, pressed bool) error {
	val := int32(keyRelease)
	if pressed {
		val = keyPress
	}
	if err := e.out.keyEvent(key, val); err != nil {
		return err
	}
	if pressed {
		e.repKey = key
		e.repWait = e.t.repeatDelay
		e.state = stateRepeating
		e.wait = e.repWait
	} else {
		e.repKey = keyNone
		e.state = stateIdle
		e.wait = -1
	}
	return nil
}

func (e *engine) pinchHeld() bool {
	if len(e.pinch) == 0 {
		return false
	}
	for _, p := range e.pinch {
		if p.mi != nil {
			if !p.mi.debounced {
				return false
			}
		} else if e.expPressed&(uint16(1)<<uint(p.bit)) == 0 {
			return false
		}
	}
	return true
}

// firePinch runs when the combo was held for the full pinch duration
// with no state change interrupting it: one press+release of the pinch
// key.  The pacing sleeps are deliberate; some emulators drop events
// delivered without inter-event spacing.
func (e *engine) firePinch() error {
	pace := time.Duration(e.t.pinchPace) * time.Millisecond
	for _, val := range []int32{keyPress, keyRelease} {
		if err := e.out.keyEvent(e.pinchKey, val); err != nil {
			return err
		}
		e.rt.clock.Sleep(pace)
		if err := e.out.sync(); err != nil {
			return err
		}
		e.rt.clock.Sleep(pace)
	}
	e.repKey = keyNone
	e.state = stateIdle
	e.wait = -1
	return nil
}

// fireRepeat emits one auto-repeat for the held key, then shortens the
// interval toward the floor to accelerate.
func (e *engine) fireRepeat() error {
	if e.repWait == e.t.repeatDelay {
		e.repWait = e.t.repeatInterval
	} else if e.repWait > e.t.repeatFloor {
		e.repWait -= e.t.repeatStep
		if e.repWait < e.t.repeatFloor {
			e.repWait = e.t.repeatFloor
		}
	}
	if err := e.out.keyEvent(e.repKey, keyRepeat); err != nil {
		return err
	}
	if err := e.out.sync(); err != nil {
		return err
	}
	e.wait = e.repWait
	return nil
}
