package main

import (
	"fmt"
	"os"
	"sync"
	"syscall"
	"time"

	"golang.org/x/term"
)

// terminal puts stdin into raw mode and delivers each read on C.
type terminal struct {
	C            chan []byte
	stopCh       chan struct{}
	done         chan struct{}
	stopped      sync.Once
	fd           int
	nonblockSet  bool
	oldTermState *term.State
}

func newTerminal() *terminal {
	return &terminal{
		C:      make(chan []byte, 16),
		stopCh: make(chan struct{}),
		done:   make(chan struct{}),
	}
}

func (t *terminal) Start() error {
	t.fd = int(os.Stdin.Fd())
	if !term.IsTerminal(t.fd) {
		close(t.done)
		return fmt.Errorf("stdin is not a terminal")
	}

	oldState, err := term.MakeRaw(t.fd)
	if err != nil {
		close(t.done)
		return fmt.Errorf("set raw mode: %w", err)
	}
	t.oldTermState = oldState

	if err := syscall.SetNonblock(t.fd, true); err != nil {
		_ = term.Restore(t.fd, t.oldTermState)
		t.oldTermState = nil
		close(t.done)
		return fmt.Errorf("set nonblocking stdin: %w", err)
	}
	t.nonblockSet = true

	go func() {
		defer close(t.done)
		buf := make([]byte, 64)
		for {
			select {
			case <-t.stopCh:
				return
			default:
			}

			n, err := syscall.Read(t.fd, buf)
			if n > 0 {
				chunk := append([]byte(nil), buf[:n]...)
				select {
				case t.C <- chunk:
				case <-t.stopCh:
					return
				}
			}
			if err == syscall.EAGAIN || err == syscall.EWOULDBLOCK {
				time.Sleep(5 * time.Millisecond)
				continue
			}
			if err != nil {
				return
			}
			if n == 0 {
				time.Sleep(5 * time.Millisecond)
			}
		}
	}()
	return nil
}

// Stop ends the reader and restores the terminal.
func (t *terminal) Stop() {
	t.stopped.Do(func() {
		close(t.stopCh)
	})
	<-t.done
	if t.nonblockSet {
		_ = syscall.SetNonblock(t.fd, false)
		t.nonblockSet = false
	}
	if t.oldTermState != nil {
		_ = term.Restore(t.fd, t.oldTermState)
		t.oldTermState = nil
	}
}

// Width returns the terminal width, or fallback when unknown.
func (t *terminal) Width(fallback int) int {
	w, _, err := term.GetSize(t.fd)
	if err != nil || w <= 0 {
		return fallback
	}
	return w
}
