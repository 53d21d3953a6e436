package main

import (
	"encoding/binary"
	"testing"

	"golang.org/x/sys/unix"
	"gotest.tools/assert"
)

// rawInotify builds one wire-format event: 16-byte header followed by
// the NUL-padded name, like a read from an inotify descriptor yields.
func rawInotify(mask uint32, name string) []byte {
	nameLen := 0
	if name != "" {
		nameLen = len(name) + 1
	}
	buf := make([]byte, unix.SizeofInotifyEvent+nameLen)
	binary.LittleEndian.PutUint32(buf[4:], mask)
	binary.LittleEndian.PutUint32(buf[12:], uint32(nameLen))
	copy(buf[unix.SizeofInotifyEvent:], name)
	return buf
}

func TestDecodeInotifySingle(t *testing.T) {
	events := decodeInotify(rawInotify(unix.IN_MODIFY, ""))
	assert.Equal(t, len(events), 1)
	assert.Equal(t, events[0].mask, uint32(unix.IN_MODIFY))
	assert.Equal(t, events[0].name, "")
}

func TestDecodeInotifyBatch(t *testing.T) {
	buf := append(rawInotify(unix.IN_MOVED_FROM, "gpiokeys.cfg"),
		rawInotify(unix.IN_MOVED_TO, "gpiokeys.cfg.bak")...)
	events := decodeInotify(buf)

	assert.Equal(t, len(events), 2)
	assert.Equal(t, events[0].mask, uint32(unix.IN_MOVED_FROM))
	assert.Equal(t, events[0].name, "gpiokeys.cfg")
	assert.Equal(t, events[1].mask, uint32(unix.IN_MOVED_TO))
	assert.Equal(t, events[1].name, "gpiokeys.cfg.bak")
}

func TestDecodeInotifyTruncated(t *testing.T) {
	full := rawInotify(unix.IN_CREATE, "x.cfg")
	assert.Equal(t, len(decodeInotify(full[:10])), 0)
	assert.Equal(t, len(decodeInotify(nil)), 0)
}
