package main

import (
	"testing"

	"gotest.tools/assert"
)

func TestBoardTypeFromCmdline(t *testing.T) {
	cases := []struct {
		cmdline string
		want    int
	}{
		{"", boardPi1Rev2},
		{"console=ttyAMA0,115200 root=/dev/mmcblk0p2", boardPi1Rev2},
		{"mem_size=0x3F000000 console=ttyAMA0", boardPi2},
		{"boardrev=0x02", boardPi1Rev1},
		{"boardrev=0x03", boardPi1Rev1},
		{"boardrev=0xa21041", boardPi1Rev2},
		{"boardrev=bogus", boardPi1Rev2},
		{"some_mem_size=0x3F000000x", boardPi1Rev2},
	}
	for _, c := range cases {
		assert.Equal(t, boardTypeFromCmdline(c.cmdline), c.want)
	}
}

func TestRev1Remap(t *testing.T) {
	cfg := parseConfig(t, "KEY_A 2\nKEY_B 3\nKEY_C 27\nKEY_D 10")
	remapForBoard(cfg, boardPi1Rev1)

	findBinding(t, cfg, pinRef{src: srcGPIO, pin: 0})
	findBinding(t, cfg, pinRef{src: srcGPIO, pin: 1})
	findBinding(t, cfg, pinRef{src: srcGPIO, pin: 21})
	findBinding(t, cfg, pinRef{src: srcGPIO, pin: 10})
}

func TestRemapNoopOnLaterBoards(t *testing.T) {
	cfg := parseConfig(t, "KEY_A 2\nKEY_B 27")
	remapForBoard(cfg, boardPi2)
	findBinding(t, cfg, pinRef{src: srcGPIO, pin: 2})
	findBinding(t, cfg, pinRef{src: srcGPIO, pin: 27})
}

func TestRev1RemapCollision(t *testing.T) {
	// the config names pin 0 and pin 2, which both land on pin 0 on
	// a rev-1 board; one binding survives and the remapped one wins
	cfg := parseConfig(t, "KEY_A 0\nKEY_B 2")
	remapForBoard(cfg, boardPi1Rev1)

	assert.Equal(t, len(cfg.bindings), 1)
	b := findBinding(t, cfg, pinRef{src: srcGPIO, pin: 0})
	assert.Equal(t, b.key, mustKey(t, "KEY_B"))
}

func TestRemapTouchesPinchAndExpander(t *testing.T) {
	cfg := parseConfig(t, "EXPANDER 27\nKEY_A 2\nKEY_B E4\nKEY_ESC 2 E4")
	remapForBoard(cfg, boardPi1Rev1)

	// pinch set follows the renumbering; expander bits don't move
	assert.Assert(t, cfg.pinchSet[pinRef{src: srcGPIO, pin: 0}])
	assert.Assert(t, cfg.pinchSet[pinRef{src: srcExpander, pin: 4}])
	assert.Equal(t, cfg.expander.intPin, 21)
	findBinding(t, cfg, pinRef{src: srcGPIO, pin: 21})
}
