package main

import (
	"strings"
	"testing"

	"github.com/jonboulle/clockwork"
	"gotest.tools/assert"
)

type keyEvt struct {
	code int
	val  int32
}

// fakeEmitter records what would have gone to the virtual keyboard.
type fakeEmitter struct {
	events []keyEvt
	syncs  int
}

func (f *fakeEmitter) keyEvent(code int, value int32) error {
	f.events = append(f.events, keyEvt{code: code, val: value})
	return nil
}

func (f *fakeEmitter) sync() error {
	f.syncs++
	return nil
}

// fakePorts stands in for the expander: set levels, and Poll reports
// the diff against the previous call like the real chip cache does.
type fakePorts struct {
	levels uint16
	prev   uint16
	closed bool
}

func (f *fakePorts) Poll() (uint16, uint16, error) {
	changed := f.levels ^ f.prev
	f.prev = f.levels
	return f.levels, changed, nil
}

func (f *fakePorts) Levels() uint16 {
	return f.prev
}

func (f *fakePorts) Close() error {
	f.closed = true
	return nil
}

func testRuntime() (runtimeConfig, clockwork.FakeClock) {
	clock := clockwork.NewFakeClock()
	return runtimeConfig{clock: clock, settings: defaultSettings()}, clock
}

func parseConfig(t *testing.T, text string) *pinConfig {
	t.Helper()
	return parsePinConfig(strings.NewReader(text), 0x26)
}

// testInputs builds the monitored-input list the way pin export would,
// minus the sysfs descriptors.
func testInputs(cfg *pinConfig) []*monitoredInput {
	var out []*monitoredInput
	for _, b := range cfg.bindings {
		if b.src != srcGPIO || b.key == keyGround {
			continue
		}
		out = append(out, &monitoredInput{b: b, fd: -1})
	}
	return out
}

func inputByPin(t *testing.T, inputs []*monitoredInput, pin int) *monitoredInput {
	t.Helper()
	for _, mi := range inputs {
		if mi.b.pin == pin {
			return mi
		}
	}
	t.Fatalf("no monitored input for pin %d", pin)
	return nil
}

// settle drives one raw transition through its debounce window.
func settle(t *testing.T, e *engine, mi *monitoredInput, pressed bool) {
	t.Helper()
	e.noteLevel(mi, pressed)
	assert.NilError(t, e.expire())
}

func assertEvents(t *testing.T, out *fakeEmitter, want ...keyEvt) {
	t.Helper()
	assert.Equal(t, len(out.events), len(want))
	for i := range want {
		assert.Equal(t, out.events[i], want[i])
	}
}

func mustKey(t *testing.T, name string) int {
	t.Helper()
	code, ok := keyCode(name)
	assert.Assert(t, ok)
	return code
}
