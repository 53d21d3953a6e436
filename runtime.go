package main

import (
	"github.com/jonboulle/clockwork"
)

// progName doubles as the virtual keyboard device name and the default
// config file basename; the event-node search keys off it.
const progName = "gpiokeys"

type runtimeConfig struct {
	clock    clockwork.Clock
	settings *settings
	hw       pinHardware
}

type timings struct {
	debounce       int // poll timeouts, in ms
	pinchHold      int
	repeatDelay    int
	repeatInterval int
	repeatStep     int
	repeatFloor    int
	pinchPace      int // spacing between pinch key/syn writes
}

func initRuntime(s *settings) runtimeConfig {
	return runtimeConfig{
		clock:    clockwork.NewRealClock(),
		settings: s,
		hw:       gpioHardware{},
	}
}

func (rt runtimeConfig) timings() timings {
	ms := func(key string) int {
		return int(rt.settings.GetDuration(key).Milliseconds())
	}
	return timings{
		debounce:       ms("debounceTime"),
		pinchHold:      ms("pinchTime"),
		repeatDelay:    ms("repeatDelay"),
		repeatInterval: ms("repeatInterval"),
		repeatStep:     ms("repeatStep"),
		repeatFloor:    ms("repeatFloor"),
		pinchPace:      ms("pinchPace"),
	}
}
