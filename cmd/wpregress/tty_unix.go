//go:build !windows

package main

import (
	"os"

	"golang.org/x/sys/unix"
	"golang.org/x/term"
)

// ttyMode holds the line settings of a terminal saved before a run.
type ttyMode struct {
	fd    int
	saved unix.Termios
}

// quietTTY clears ECHOCTL on f, so an interrupt does not print "^C" over the progress output.
// returns nil if f is not a terminal or its settings can't be changed.
func quietTTY(f *os.File) *ttyMode {
	fd := int(f.Fd())
	if !term.IsTerminal(fd) {
		return nil
	}
	cur, err := unix.IoctlGetTermios(fd, termiosGet)
	if err != nil {
		return nil
	}
	m := &ttyMode{fd: fd, saved: *cur}
	cur.Lflag &^= unix.ECHOCTL
	if unix.IoctlSetTermios(fd, termiosSet, cur) != nil {
		return nil
	}
	return m
}

// restore puts the saved settings back. Safe on nil.
func (m *ttyMode) restore() {
	if m == nil {
		return
	}
	_ = unix.IoctlSetTermios(m.fd, termiosSet, &m.saved)
}
