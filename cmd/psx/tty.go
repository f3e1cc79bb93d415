package main

import (
	"fmt"
	"os"

	"github.com/pkg/term"
)

// ttyMirror writes the guest kernel's putchar output straight to the
// controlling terminal device, bypassing the host process's own stdout
// buffering so output appears character-at-a-time exactly as the BIOS
// writes it. Optional: if no terminal is attached (piped output, CI),
// newTTYMirror returns a mirror whose write is a no-op rather than an
// error, since the feature is a debugging convenience, not a requirement.
type ttyMirror struct {
	t *term.Term
}

func newTTYMirror() *ttyMirror {
	t, err := term.Open("/dev/tty")
	if err != nil {
		return &ttyMirror{}
	}
	if err := term.RawMode(t); err != nil {
		t.Close()
		return &ttyMirror{}
	}
	return &ttyMirror{t: t}
}

func (m *ttyMirror) write(s string) {
	if m.t == nil {
		return
	}
	for i := 0; i < len(s); i++ {
		// CRLF translation: raw mode disables the line discipline that
		// would otherwise turn a bare \n into a fresh line on screen.
		if s[i] == '\n' {
			fmt.Fprint(m.t, "\r\n")
			continue
		}
		fmt.Fprint(m.t, string(s[i]))
	}
}

func (m *ttyMirror) close() {
	if m.t == nil {
		return
	}
	m.t.Restore()
	m.t.Close()
}

// fallbackTTYWrite is used instead of ttyMirror when -raw-tty is not
// passed: plain buffered stdout, no line-discipline bypass.
func fallbackTTYWrite(s string) {
	os.Stdout.WriteString(s)
}
