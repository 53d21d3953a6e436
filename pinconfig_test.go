package main

import (
	"testing"

	"gotest.tools/assert"
)

func findBinding(t *testing.T, cfg *pinConfig, ref pinRef) binding {
	t.Helper()
	for _, b := range cfg.bindings {
		if b.ref() == ref {
			return b
		}
	}
	t.Fatalf("no binding for %s", ref)
	return binding{}
}

func TestParseBasic(t *testing.T) {
	cfg := parseConfig(t, "KEY_UP 4\nGND 5")

	assert.Equal(t, len(cfg.bindings), 2)
	up := findBinding(t, cfg, pinRef{src: srcGPIO, pin: 4})
	assert.Equal(t, up.key, mustKey(t, "KEY_UP"))
	gnd := findBinding(t, cfg, pinRef{src: srcGPIO, pin: 5})
	assert.Equal(t, gnd.key, keyGround)

	keys := cfg.keys()
	assert.Equal(t, len(keys), 1)
	assert.Equal(t, keys[0], mustKey(t, "KEY_UP"))
}

func TestParseLastBindingWins(t *testing.T) {
	cfg := parseConfig(t, "KEY_A 2\nKEY_B 2")
	assert.Equal(t, len(cfg.bindings), 1)
	assert.Equal(t, cfg.bindings[0].key, mustKey(t, "KEY_B"))
}

func TestParseHexAndCasing(t *testing.T) {
	cfg := parseConfig(t, "key_a 0x1a\nGround 7")
	a := findBinding(t, cfg, pinRef{src: srcGPIO, pin: 26})
	assert.Equal(t, a.key, mustKey(t, "KEY_A"))
	gnd := findBinding(t, cfg, pinRef{src: srcGPIO, pin: 7})
	assert.Equal(t, gnd.key, keyGround)
}

func TestParseComments(t *testing.T) {
	cfg := parseConfig(t, `
# full-line comment
KEY_UP 4 # trailing comment
KEY_DOWN 5 #6
`)
	assert.Equal(t, len(cfg.bindings), 2)
	findBinding(t, cfg, pinRef{src: srcGPIO, pin: 4})
	down := findBinding(t, cfg, pinRef{src: srcGPIO, pin: 5})
	assert.Equal(t, down.key, mustKey(t, "KEY_DOWN"))
}

func TestParseUnknownKeywordSkipped(t *testing.T) {
	cfg := parseConfig(t, "KEY_BOGUS 4\nKEY_UP 5")
	assert.Equal(t, len(cfg.bindings), 1)
	assert.Equal(t, cfg.bindings[0].pin, 5)
}

func TestParseBadPinSkipped(t *testing.T) {
	// the out-of-range pin drops, the valid one on the same line keeps
	cfg := parseConfig(t, "GND 4 99")
	assert.Equal(t, len(cfg.bindings), 1)
	assert.Equal(t, cfg.bindings[0].pin, 4)
}

func TestParsePinchCombo(t *testing.T) {
	cfg := parseConfig(t, "KEY_LEFT 4\nKEY_ESC 4 5")

	assert.Equal(t, cfg.pinchKey, mustKey(t, "KEY_ESC"))
	assert.Equal(t, len(cfg.pinchSet), 2)
	assert.Assert(t, cfg.pinchSet[pinRef{src: srcGPIO, pin: 4}])
	assert.Assert(t, cfg.pinchSet[pinRef{src: srcGPIO, pin: 5}])

	// pin 5 is monitored but emits nothing of its own
	b := findBinding(t, cfg, pinRef{src: srcGPIO, pin: 5})
	assert.Equal(t, b.key, keyNone)

	// the pinch key is advertised even though no single pin carries it
	keys := cfg.keys()
	assert.Equal(t, len(keys), 2)
}

func TestParseLaterComboWins(t *testing.T) {
	cfg := parseConfig(t, "KEY_ESC 4 5\nKEY_TAB 6 7")
	assert.Equal(t, cfg.pinchKey, mustKey(t, "KEY_TAB"))
	assert.Assert(t, cfg.pinchSet[pinRef{src: srcGPIO, pin: 6}])
	assert.Assert(t, !cfg.pinchSet[pinRef{src: srcGPIO, pin: 4}])
}

func TestParsePinchDropsGroundMember(t *testing.T) {
	cfg := parseConfig(t, "KEY_ESC 4 5\nGND 5")
	assert.Equal(t, len(cfg.pinchSet), 1)
	assert.Assert(t, cfg.pinchSet[pinRef{src: srcGPIO, pin: 4}])
}

func TestParseExpander(t *testing.T) {
	cfg := parseConfig(t, "EXPANDER 0x27 17\nKEY_A E0\nGND E3")

	assert.Assert(t, cfg.expander != nil)
	assert.Equal(t, cfg.expander.addr, byte(0x27))
	assert.Equal(t, cfg.expander.intPin, 17)

	a := findBinding(t, cfg, pinRef{src: srcExpander, pin: 0})
	assert.Equal(t, a.key, mustKey(t, "KEY_A"))
	gnd := findBinding(t, cfg, pinRef{src: srcExpander, pin: 3})
	assert.Equal(t, gnd.key, keyGround)

	// the interrupt line is claimed as a keyless monitored pin
	intr := findBinding(t, cfg, pinRef{src: srcGPIO, pin: 17})
	assert.Assert(t, intr.intr)
	assert.Equal(t, intr.key, keyNone)
}

func TestParseExpanderDefaultAddr(t *testing.T) {
	cfg := parseConfig(t, "EXPANDER 17")
	assert.Assert(t, cfg.expander != nil)
	assert.Equal(t, cfg.expander.addr, byte(0x26))
}

func TestParseExpanderBitsWithoutExpander(t *testing.T) {
	cfg := parseConfig(t, "KEY_A E0\nKEY_UP 4")
	assert.Equal(t, len(cfg.bindings), 1)
	assert.Equal(t, cfg.bindings[0].pin, 4)
}

func TestParseIntPinReassignment(t *testing.T) {
	// a key on the pin the expander later claims loses to the INT line
	cfg := parseConfig(t, "KEY_UP 17\nEXPANDER 17")
	b := findBinding(t, cfg, pinRef{src: srcGPIO, pin: 17})
	assert.Assert(t, b.intr)
	assert.Equal(t, b.key, keyNone)
}

func TestBindingsSorted(t *testing.T) {
	cfg := parseConfig(t, "EXPANDER 17\nKEY_A E5\nKEY_B 9\nKEY_C 4\nKEY_D E1")
	var last pinRef
	for i, b := range cfg.bindings {
		if i > 0 {
			assert.Assert(t, b.src > last.src || (b.src == last.src && b.pin > last.pin))
		}
		last = b.ref()
	}
}

func TestKeysSortedAndDeduped(t *testing.T) {
	cfg := parseConfig(t, "KEY_A 4\nKEY_A 5\nKEY_ESC 6")
	keys := cfg.keys()
	assert.Equal(t, len(keys), 2)
	assert.Equal(t, keys[0], mustKey(t, "KEY_ESC"))
	assert.Equal(t, keys[1], mustKey(t, "KEY_A"))
}

func TestEmptyConfig(t *testing.T) {
	cfg := parseConfig(t, "")
	assert.Equal(t, len(cfg.bindings), 0)
	assert.Equal(t, len(cfg.keys()), 0)
	assert.Equal(t, cfg.pinchKey, keyNone)
}
