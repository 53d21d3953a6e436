package main

import (
	"log"
	"os"
)

// gpiokeys -settings={settings file} -config={pin config file}

func run(rt runtimeConfig) error {
	board := boardType()
	configPath := resolveConfigPath(rt.settings.GetString("pinConfig"))
	log.Printf("board type %d, pin config %s", board, configPath)

	sigFd, err := startSignalPipe()
	if err != nil {
		return err
	}

	watcher, err := newConfigWatcher(configPath)
	if err != nil {
		return err
	}
	defer watcher.close()

	status := newStatusBoard(configPath, rt.clock)
	svc := startStatusService(rt.settings.GetString("httpListen"), status)
	defer svc.stop()

	// a missing config file is not fatal: run empty and let the
	// watcher reload when the file shows up
	cfg, err := loadPinConfig(configPath, rt.settings.GetByte("i2cAddr"))
	if err != nil {
		log.Printf("no pin config yet: %v", err)
		cfg = &pinConfig{pinchSet: make(map[pinRef]bool)}
	}
	remapForBoard(cfg, board)

	act, err := activate(rt, cfg)
	if err != nil {
		return err
	}
	status.setConfig(cfg)

	loop := &eventLoop{
		rt:      rt,
		board:   board,
		sigFd:   sigFd,
		watcher: watcher,
		status:  status,
		act:     act,
	}
	err = loop.run()
	loop.act.deactivate()
	return err
}

func main() {
	settings := initSettings()
	setupLogging(settings)
	rt := initRuntime(settings)

	log.Printf("starting %s", progName)
	settings.Dump()

	if err := run(rt); err != nil {
		log.Printf("fatal: %v", err)
		os.Exit(1)
	}
}
