package main

import (
	"encoding/binary"
	"fmt"
	"log"
	"path/filepath"

	"golang.org/x/sys/unix"
)

// configWatcher owns the two inotify descriptors the poll loop
// multiplexes: one on the config file itself (modify/delete), one on
// its parent directory (create/rename-in).  The file watch comes and
// goes with the file; the directory watch lives for the process.
// If the directory itself is removed or remounted both watches go
// quiet; that case is a known gap, inherited rather than guessed at.
type configWatcher struct {
	path string
	dir  string
	name string

	fileFd    int // -1 while the file is gone
	fileWatch int
	dirFd     int
}

func newConfigWatcher(path string) (*configWatcher, error) {
	w := &configWatcher{
		path:   path,
		dir:    filepath.Dir(path),
		name:   filepath.Base(path),
		fileFd: -1,
	}
	fd, err := unix.InotifyInit1(unix.IN_CLOEXEC)
	if err != nil {
		return nil, fmt.Errorf("inotify init failed: %v", err)
	}
	w.dirFd = fd
	if _, err := unix.InotifyAddWatch(fd, w.dir, unix.IN_CREATE|unix.IN_MOVED_FROM|unix.IN_MOVED_TO); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("can't watch %s: %v", w.dir, err)
	}
	// a missing config file is fine; the directory watch picks it
	// up when it appears
	w.armFileWatch()
	return w, nil
}

// armFileWatch (re)subscribes to the config file's inode.
func (w *configWatcher) armFileWatch() {
	w.dropFileWatch()
	fd, err := unix.InotifyInit1(unix.IN_CLOEXEC)
	if err != nil {
		return
	}
	wd, err := unix.InotifyAddWatch(fd, w.path, unix.IN_MODIFY|unix.IN_IGNORED)
	if err != nil {
		unix.Close(fd)
		return
	}
	w.fileFd = fd
	w.fileWatch = wd
}

// dropFileWatch stops watching a gone inode.  Closing the descriptor
// matters: removing the watch alone generates another IN_IGNORED and
// it's turtles all the way down.
func (w *configWatcher) dropFileWatch() {
	if w.fileFd < 0 {
		return
	}
	unix.InotifyRmWatch(w.fileFd, uint32(w.fileWatch))
	unix.Close(w.fileFd)
	w.fileFd = -1
}

type fsEvent struct {
	mask uint32
	name string
}

// decodeInotify unpacks a raw inotify read: fixed header (wd, mask,
// cookie, len) followed by len name bytes, NUL padded.
func decodeInotify(buf []byte) []fsEvent {
	var events []fsEvent
	for pos := 0; pos+unix.SizeofInotifyEvent <= len(buf); {
		mask := binary.LittleEndian.Uint32(buf[pos+4:])
		nameLen := int(binary.LittleEndian.Uint32(buf[pos+12:]))
		pos += unix.SizeofInotifyEvent
		name := ""
		if nameLen > 0 && pos+nameLen <= len(buf) {
			raw := buf[pos : pos+nameLen]
			for i, c := range raw {
				if c == 0 {
					raw = raw[:i]
					break
				}
			}
			name = string(raw)
		}
		pos += nameLen
		events = append(events, fsEvent{mask: mask, name: name})
	}
	return events
}

// handleFileEvents drains the file watch.  Returns true when the
// config should be reloaded.
func (w *configWatcher) handleFileEvents() bool {
	buf := make([]byte, 4096)
	n, err := unix.Read(w.fileFd, buf)
	if err != nil || n <= 0 {
		return false
	}
	reload := false
	for _, ev := range decodeInotify(buf[:n]) {
		switch {
		case ev.mask&unix.IN_MODIFY != 0:
			log.Printf("config file changed, reloading")
			reload = true
		case ev.mask&unix.IN_IGNORED != 0:
			// file deleted: keep the last-good bindings
			// active until a same-named file reappears
			log.Printf("config file removed; keeping current bindings")
			w.dropFileWatch()
			return reload
		}
	}
	return reload
}

// handleDirEvents drains the directory watch.
func (w *configWatcher) handleDirEvents() bool {
	buf := make([]byte, 4096)
	n, err := unix.Read(w.dirFd, buf)
	if err != nil || n <= 0 {
		return false
	}
	reload := false
	for _, ev := range decodeInotify(buf[:n]) {
		if ev.name != w.name {
			continue
		}
		switch {
		case ev.mask&(unix.IN_CREATE|unix.IN_MOVED_TO) != 0:
			log.Printf("config file appeared, reloading")
			w.armFileWatch()
			reload = true
		case ev.mask&unix.IN_MOVED_FROM != 0:
			log.Printf("config file moved away; keeping current bindings")
			w.dropFileWatch()
		}
	}
	return reload
}

func (w *configWatcher) close() {
	w.dropFileWatch()
	if w.dirFd >= 0 {
		unix.Close(w.dirFd)
		w.dirFd = -1
	}
}
