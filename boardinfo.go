package main

import (
	"io/ioutil"
	"strconv"
	"strings"
)

// Board generations that matter for GPIO compatibility.  Nothing more
// granular is needed: the peripheral base address is handled inside the
// rpio library, so the only distinction we act on ourselves is the
// rev-1 pin renumbering.
const (
	boardPi1Rev1 = 0
	boardPi1Rev2 = 1 // also Model A, B+, A+
	boardPi2     = 2
)

// boardType inspects the kernel boot parameters.  Defaults to Pi 1
// rev 2 when nothing conclusive is found, same as the hardware docs
// assume.
func boardType() int {
	data, err := ioutil.ReadFile("/proc/cmdline")
	if err != nil {
		return boardPi1Rev2
	}
	return boardTypeFromCmdline(string(data))
}

func boardTypeFromCmdline(cmdline string) int {
	for _, tok := range strings.Fields(cmdline) {
		if v, ok := hexParam(tok, "mem_size="); ok && v == 0x3F000000 {
			return boardPi2
		}
		if v, ok := hexParam(tok, "boardrev="); ok && (v == 0x02 || v == 0x03) {
			return boardPi1Rev1
		}
	}
	return boardPi1Rev2
}

func hexParam(tok, prefix string) (int64, bool) {
	if !strings.HasPrefix(tok, prefix) {
		return 0, false
	}
	s := strings.TrimPrefix(tok, prefix)
	s = strings.TrimPrefix(s, "0x")
	v, err := strconv.ParseInt(s, 16, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// Rev-1 boards expose different physical pins for what the config
// calls by modern numbers.  Applied once, after parsing, so configs
// never need board-specific edits.
var rev1PinRemap = map[int]int{
	2:  0,
	3:  1,
	27: 21,
}

func remapForBoard(cfg *pinConfig, board int) {
	if board != boardPi1Rev1 {
		return
	}
	// rebuild through a map so a config that names both a remapped
	// pin and its target keeps one binding per pin; walking in
	// ascending pin order means the remapped binding wins
	bound := make(map[pinRef]binding, len(cfg.bindings))
	for _, b := range cfg.bindings {
		if b.src == srcGPIO {
			if to, ok := rev1PinRemap[b.pin]; ok {
				b.pin = to
			}
		}
		bound[b.ref()] = b
	}
	cfg.bindings = cfg.bindings[:0]
	for _, b := range bound {
		cfg.bindings = append(cfg.bindings, b)
	}
	sortBindings(cfg.bindings)
	pinch := make(map[pinRef]bool, len(cfg.pinchSet))
	for ref := range cfg.pinchSet {
		if to, ok := rev1PinRemap[ref.pin]; ok && ref.src == srcGPIO {
			ref.pin = to
		}
		pinch[ref] = true
	}
	cfg.pinchSet = pinch
	if cfg.expander != nil {
		if to, ok := rev1PinRemap[cfg.expander.intPin]; ok {
			cfg.expander.intPin = to
		}
	}
}
