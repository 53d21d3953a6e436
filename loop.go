package main

import (
	"fmt"
	"log"
	"syscall"

	"golang.org/x/sys/unix"
)

// Poll set layout: slot 0 is the signal pipe, slots 1 and 2 belong to
// the config watcher (file, directory), pins follow from slot 3.  A
// dropped file watch leaves fd -1 in its slot, which poll(2) skips.
const firstPinSlot = 3

type eventLoop struct {
	rt      runtimeConfig
	board   int
	sigFd   int
	watcher *configWatcher
	status  *statusBoard
	act     *activation
}

func (l *eventLoop) run() error {
	for {
		fds := make([]unix.PollFd, firstPinSlot+len(l.act.inputs))
		fds[0] = unix.PollFd{Fd: int32(l.sigFd), Events: unix.POLLIN}
		fds[1] = unix.PollFd{Fd: int32(l.watcher.fileFd), Events: unix.POLLIN}
		fds[2] = unix.PollFd{Fd: int32(l.watcher.dirFd), Events: unix.POLLIN}
		for i, mi := range l.act.inputs {
			// sysfs value nodes signal edges via POLLPRI
			fds[firstPinSlot+i] = unix.PollFd{Fd: int32(mi.fd), Events: unix.POLLPRI}
		}

		n, err := unix.Poll(fds, l.act.eng.pollTimeout())
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return fmt.Errorf("poll failed: %v", err)
		}
		if n == 0 {
			if err := l.act.eng.expire(); err != nil {
				return err
			}
			continue
		}

		if fds[0].Revents&unix.POLLIN != 0 {
			sig, ok := readSignal(l.sigFd)
			if ok && sig == syscall.SIGHUP {
				if err := l.reload(); err != nil {
					return err
				}
			} else if ok {
				log.Printf("got signal %d, shutting down", sig)
				return nil
			}
			continue
		}

		wantReload := false
		if fds[1].Revents&unix.POLLIN != 0 {
			wantReload = l.watcher.handleFileEvents() || wantReload
		}
		if fds[2].Revents&unix.POLLIN != 0 {
			wantReload = l.watcher.handleDirEvents() || wantReload
		}

		for i, mi := range l.act.inputs {
			if fds[firstPinSlot+i].Revents&(unix.POLLPRI|unix.POLLERR) == 0 {
				continue
			}
			if err := l.act.eng.handleReady(mi); err != nil {
				log.Printf("pin %s read failed: %v", mi.b.ref(), err)
			}
		}

		if wantReload {
			if err := l.reload(); err != nil {
				return err
			}
		}
	}
}

// reload swaps in a freshly parsed config.  An unreadable file keeps
// the current bindings (the edit may still be in flight); a failure to
// activate the new config is fatal since the old one is already torn
// down by then.
func (l *eventLoop) reload() error {
	cfg, err := loadPinConfig(l.watcher.path, l.rt.settings.GetByte("i2cAddr"))
	if err != nil {
		log.Printf("reload skipped: %v", err)
		return nil
	}
	remapForBoard(cfg, l.board)
	l.act.deactivate()
	act, err := activate(l.rt, cfg)
	if err != nil {
		return fmt.Errorf("reload failed to activate: %v", err)
	}
	l.act = act
	if l.status != nil {
		l.status.setConfig(cfg)
	}
	return nil
}
