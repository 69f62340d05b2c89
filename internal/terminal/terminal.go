package terminal

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"
)

// ErrTimeout is returned by timed reads when the deadline expires before a
// byte arrives. Callers treat it exactly like the user submitting empty
// input: a cancellation, never an error worth surfacing.
var ErrTimeout = errors.New("terminal: read timed out")

// crlfGrace is how long a CR/LF byte trailing a line terminator is still
// considered part of the same keypress and drained silently.
const crlfGrace = 50 * time.Millisecond

// Terminal provides a line-editing read/write abstraction over a raw
// connection. A single pump goroutine moves bytes from the connection into
// a channel so every read can be bounded by a deadline regardless of
// whether the transport supports read deadlines itself.
type Terminal struct {
	rwc         io.ReadWriteCloser
	Width       int
	Height      int
	ANSIEnabled bool

	in        chan byte
	quit      chan struct{} // closed by Close; unblocks a backlogged pump
	closeOnce sync.Once
	pending   []byte // pushed-back bytes, consumed before the channel
	readErr   error  // set by the pump before closing in
}

// New creates a Terminal wrapping the given connection and starts its
// read pump. The caller owns closing the Terminal.
func New(rwc io.ReadWriteCloser, width, height int, ansiEnabled bool) *Terminal {
	t := &Terminal{
		rwc:         rwc,
		Width:       width,
		Height:      height,
		ANSIEnabled: ansiEnabled,
		in:          make(chan byte, 256),
		quit:        make(chan struct{}),
	}
	go t.pump()
	return t
}

// pump copies bytes from the connection into the channel until the
// connection errors out, then records the error and closes the channel.
// A send blocked on a full channel is released by Close via quit, so a
// client flooding input past the buffer cannot pin the goroutine after
// the session ends.
func (t *Terminal) pump() {
	buf := make([]byte, 256)
	for {
		n, err := t.rwc.Read(buf)
		for i := 0; i < n; i++ {
			select {
			case t.in <- buf[i]:
			case <-t.quit:
				return
			}
		}
		if err != nil {
			t.readErr = err
			close(t.in)
			return
		}
	}
}

// Close closes the underlying connection and releases the pump.
func (t *Terminal) Close() error {
	t.closeOnce.Do(func() { close(t.quit) })
	return t.rwc.Close()
}

// readByte returns the next input byte, waiting at most timeout.
// A timeout of zero blocks until a byte arrives or the connection closes.
func (t *Terminal) readByte(timeout time.Duration) (byte, error) {
	if n := len(t.pending); n > 0 {
		b := t.pending[n-1]
		t.pending = t.pending[:n-1]
		return b, nil
	}

	if timeout <= 0 {
		select {
		case b, ok := <-t.in:
			if !ok {
				return 0, t.closedErr()
			}
			return b, nil
		case <-t.quit:
			return 0, t.closedErr()
		}
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case b, ok := <-t.in:
		if !ok {
			return 0, t.closedErr()
		}
		return b, nil
	case <-t.quit:
		return 0, t.closedErr()
	case <-timer.C:
		return 0, ErrTimeout
	}
}

// unread pushes a byte back so the next read returns it first.
func (t *Terminal) unread(b byte) {
	t.pending = append(t.pending, b)
}

func (t *Terminal) closedErr() error {
	if t.readErr != nil {
		return t.readErr
	}
	return io.EOF
}

// drainLineEnding swallows CR/LF bytes that arrive right after a line
// terminator so a CRLF pair never submits two lines. Anything else that
// shows up within the grace window is pushed back for the next read.
func (t *Terminal) drainLineEnding() {
	for {
		b, err := t.readByte(crlfGrace)
		if err != nil {
			return
		}
		if b == '\r' || b == '\n' {
			continue
		}
		t.unread(b)
		return
	}
}

// GetKey waits for a single keypress, bounded by timeout (zero = forever).
func (t *Terminal) GetKey(timeout time.Duration) (byte, error) {
	return t.readByte(timeout)
}

// GetLine reads one line of input with echo and backspace editing.
// The per-byte timeout resets on every received byte; when it expires the
// partial input is discarded and ErrTimeout is returned. Only printable
// ASCII (32-126) is accepted; other bytes are dropped. The returned line
// has no trailing CR/LF.
func (t *Terminal) GetLine(maxLen int, timeout time.Duration) (string, error) {
	return t.getLine(maxLen, timeout, false)
}

// GetPassword reads a line like GetLine but echoes asterisks.
func (t *Terminal) GetPassword(maxLen int, timeout time.Duration) (string, error) {
	return t.getLine(maxLen, timeout, true)
}

func (t *Terminal) getLine(maxLen int, timeout time.Duration, mask bool) (string, error) {
	var buf []byte
	for {
		b, err := t.readByte(timeout)
		if err != nil {
			return "", err
		}

		switch {
		case b == '\r' || b == '\n':
			t.drainLineEnding()
			t.Send("\r\n")
			return string(buf), nil
		case b == 8 || b == 127:
			if len(buf) > 0 {
				buf = buf[:len(buf)-1]
				t.Send("\b \b")
			}
		case b >= 32 && b <= 126:
			if len(buf) < maxLen {
				buf = append(buf, b)
				if mask {
					t.Send("*")
				} else {
					t.Send(string(b))
				}
			}
		}
	}
}

// Send writes raw text to the terminal.
func (t *Terminal) Send(data string) error {
	_, err := io.WriteString(t.rwc, data)
	return err
}

// SendLn writes a line of text followed by CR+LF.
func (t *Terminal) SendLn(text string) error {
	return t.Send(text + "\r\n")
}

// Sendf writes formatted text.
func (t *Terminal) Sendf(format string, args ...any) error {
	return t.Send(fmt.Sprintf(format, args...))
}

// Write implements io.Writer, delegating to the underlying connection.
func (t *Terminal) Write(p []byte) (int, error) {
	return t.rwc.Write(p)
}

// Cls clears the screen, falling back to blank lines without ANSI.
func (t *Terminal) Cls() error {
	if t.ANSIEnabled {
		return t.Send(ClearScreen)
	}
	return t.Send(strings.Repeat("\r\n", 24))
}

// SetColor sends an SGR color sequence when ANSI is enabled.
func (t *Terminal) SetColor(seq string) error {
	if t.ANSIEnabled {
		return t.Send(seq)
	}
	return nil
}

// ResetColor resets terminal attributes.
func (t *Terminal) ResetColor() error {
	if t.ANSIEnabled {
		return t.Send(Reset)
	}
	return nil
}
