package main

import (
	"testing"

	"gotest.tools/assert"
)

func TestKeyCodeLookup(t *testing.T) {
	esc, ok := keyCode("KEY_ESC")
	assert.Assert(t, ok)
	assert.Equal(t, esc, 1)

	// prefix and case don't matter
	esc2, ok := keyCode("esc")
	assert.Assert(t, ok)
	assert.Equal(t, esc2, esc)

	ctrl, ok := keyCode("key_leftctrl")
	assert.Assert(t, ok)
	assert.Equal(t, ctrl, 29)

	_, ok = keyCode("KEY_FLUX_CAPACITOR")
	assert.Assert(t, !ok)
}

func TestKeyNameRoundTrip(t *testing.T) {
	for _, name := range []string{"KEY_A", "KEY_SPACE", "KEY_LEFT"} {
		code, ok := keyCode(name)
		assert.Assert(t, ok)
		assert.Equal(t, keyName(code), name)
	}
	assert.Equal(t, keyName(0), "KEY_?")
}
