package terminal

import (
	"errors"
	"fmt"
	"sync"

	"golang.org/x/term"
)

var ErrNotTerminal = errors.New("not a terminal")

// File is the subset of *os.File needed to switch modes.
type File interface {
	Fd() uintptr
}

type Controller struct {
	file File
}

func NewController(file File) *Controller {
	return &Controller{file: file}
}

// EnterRaw switches the device into raw mode. The returned handle must be
// closed on every exit path to restore the previous mode.
func (c *Controller) EnterRaw() (*Handle, error) {
	fd := int(c.file.Fd())
	if !term.IsTerminal(fd) {
		return nil, ErrNotTerminal
	}

	state, err := term.MakeRaw(fd)
	if err != nil {
		return nil, fmt.Errorf("failed to enter raw mode: %w", err)
	}

	return newHandle(func() error {
		return term.Restore(fd, state)
	}), nil
}

// Handle restores the terminal exactly once, no matter how many times Close
// is called.
type Handle struct {
	once    sync.Once
	restore func() error
	err     error
}

func newHandle(restore func() error) *Handle {
	return &Handle{restore: restore}
}

func (h *Handle) Close() error {
	h.once.Do(func() {
		if err := h.restore(); err != nil {
			h.err = fmt.Errorf("failed to restore terminal: %w", err)
		}
	})
	return h.err
}
