//go:build linux

package gpio

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/pkg/term"
	"golang.org/x/sys/unix"

	"github.com/sweeney/apm-stick/internal/pins"
)

const ctrlC = 0x03

// TerminalReader simulates the controller from a keyboard on a TTY.
// The terminal is put in raw mode; Close restores it.
type TerminalReader struct {
	src     io.Reader
	release func() error
	keys    chan byte
	done    chan struct{}
	wg      sync.WaitGroup

	mu  sync.Mutex
	err error // set when the key goroutine gave up

	now   func() time.Time
	state *keyState
}

// NewTerminalReader opens path (usually /dev/tty) in raw mode. Each key
// mapped in pins.Controls presses its control for hold.
func NewTerminalReader(path string, hold time.Duration) (*TerminalReader, error) {
	t, err := term.Open(path, term.RawMode)
	if err != nil {
		return nil, fmt.Errorf("open terminal %s: %w", path, err)
	}
	// Wake the key goroutine periodically so Close does not block on it.
	if err := t.SetReadTimeout(100 * time.Millisecond); err != nil {
		t.Restore()
		t.Close()
		return nil, fmt.Errorf("set read timeout: %w", err)
	}
	return newTerminalReader(t, hold, func() error {
		return errors.Join(t.Restore(), t.Close())
	}), nil
}

func newTerminalReader(src io.Reader, hold time.Duration, release func() error) *TerminalReader {
	r := &TerminalReader{
		src:     src,
		release: release,
		keys:    make(chan byte, 64),
		done:    make(chan struct{}),
		now:     time.Now,
		state:   newKeyState(hold),
	}
	r.wg.Add(1)
	go r.readKeys()
	return r
}

// readKeys forwards typed bytes until Close or a read error other than the
// read timeout, which the terminal reports as io.EOF.
func (r *TerminalReader) readKeys() {
	defer r.wg.Done()
	buf := make([]byte, 16)
	for {
		select {
		case <-r.done:
			return
		default:
		}

		n, err := r.src.Read(buf)
		for _, b := range buf[:n] {
			if b == ctrlC {
				// Raw mode swallows the terminal's own interrupt.
				unix.Kill(os.Getpid(), unix.SIGINT)
				continue
			}
			select {
			case r.keys <- b:
			default:
				slog.Debug("terminal: key dropped", "key", b)
			}
		}
		if err == nil || errors.Is(err, io.EOF) || errors.Is(err, unix.EINTR) || errors.Is(err, unix.EAGAIN) {
			continue
		}

		slog.Error("terminal: read failed, input stopped", "err", err)
		r.mu.Lock()
		r.err = fmt.Errorf("read terminal: %w", err)
		r.mu.Unlock()
		return
	}
}

// Read applies the keys typed since the last call and returns the held
// controls. It never blocks. Once the terminal has failed, Read returns
// that error.
func (r *TerminalReader) Read() (pins.Snapshot, error) {
	r.mu.Lock()
	err := r.err
	r.mu.Unlock()
	if err != nil {
		return pins.Snapshot{}, err
	}

	now := r.now()
drain:
	for {
		select {
		case b := <-r.keys:
			r.state.press(rune(b), now)
		default:
			break drain
		}
	}
	return r.state.snapshot(now), nil
}

// Close stops the key goroutine and restores the terminal.
func (r *TerminalReader) Close() error {
	close(r.done)
	r.wg.Wait()
	return r.release()
}
