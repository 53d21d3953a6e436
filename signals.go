package main

import (
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sys/unix"
)

// Signals arrive as bytes on a pipe so they take a normal slot in the
// poll set and are handled synchronously with everything else (the Go
// runtime owns real signal delivery, so a raw signalfd is not an
// option here).
func startSignalPipe() (int, error) {
	var fds [2]int
	if err := unix.Pipe2(fds[:], unix.O_CLOEXEC|unix.O_NONBLOCK); err != nil {
		return -1, err
	}
	c := make(chan os.Signal, 8)
	signal.Notify(c, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	go func() {
		for s := range c {
			sig, ok := s.(syscall.Signal)
			if !ok {
				continue
			}
			unix.Write(fds[1], []byte{byte(sig)})
		}
	}()
	return fds[0], nil
}

// readSignal drains one signal byte off the pipe.
func readSignal(fd int) (syscall.Signal, bool) {
	var buf [1]byte
	n, err := unix.Read(fd, buf[:])
	if err != nil || n != 1 {
		return 0, false
	}
	return syscall.Signal(buf[0]), true
}

// requestReload asks the poll loop for a config reload from anywhere
// (the status API uses this); delivery goes through the same signal
// path as an external kill -HUP, so the reload still happens inside
// the loop, never concurrently with it.
func requestReload() {
	unix.Kill(unix.Getpid(), unix.SIGHUP)
}
