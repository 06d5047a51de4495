package terminal

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/muesli/cancelreader"
)

const (
	inputBacklog = 256
	errorBackoff = 10 * time.Millisecond
)

type readResult struct {
	b   byte
	err error
}

// Reader turns a blocking keyboard device into a non-blocking byte source.
// A single goroutine performs the blocking reads and hands bytes over a
// buffered channel; PollByte never waits.
type Reader struct {
	cr      cancelreader.CancelReader
	results chan readResult
	done    chan struct{}
}

func NewReader(in io.Reader) (*Reader, error) {
	cr, err := cancelreader.NewReader(in)
	if err != nil {
		return nil, fmt.Errorf("failed to create input reader: %w", err)
	}

	r := &Reader{
		cr:      cr,
		results: make(chan readResult, inputBacklog),
		done:    make(chan struct{}),
	}
	go r.run()

	return r, nil
}

func (r *Reader) run() {
	defer close(r.done)
	defer close(r.results)

	buf := make([]byte, 64)
	for {
		n, err := r.cr.Read(buf)
		for _, b := range buf[:n] {
			r.results <- readResult{b: b}
		}
		if err == nil {
			continue
		}
		if errors.Is(err, cancelreader.ErrCanceled) {
			return
		}
		r.results <- readResult{err: err}
		if errors.Is(err, io.EOF) || errors.Is(err, os.ErrClosed) || errors.Is(err, io.ErrClosedPipe) {
			return
		}
		time.Sleep(errorBackoff)
	}
}

// PollByte reports ok=false when no input is pending. When ok is true,
// either b holds the next byte or err holds a read fault. After the device
// reaches EOF or is closed, every poll returns io.EOF.
func (r *Reader) PollByte() (b byte, ok bool, err error) {
	select {
	case res, open := <-r.results:
		if !open {
			return 0, true, io.EOF
		}
		return res.b, true, res.err
	default:
		return 0, false, nil
	}
}

// Close stops the read goroutine. If the underlying reader cannot be
// interrupted, the goroutine exits on its next read instead.
func (r *Reader) Close() error {
	canceled := r.cr.Cancel()
	if canceled {
		// Drain so a send blocked on a full backlog can observe cancellation.
		go func() {
			for range r.results {
			}
		}()
		<-r.done
	}
	return r.cr.Close()
}
