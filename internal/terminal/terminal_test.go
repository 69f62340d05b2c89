package terminal

import (
	"bytes"
	"io"
	"net"
	"runtime"
	"testing"
	"time"
)

// newTestTerminal returns a terminal over one end of a net.Pipe and the
// other end for the test to drive. Output is drained so writes from the
// terminal never block.
func newTestTerminal(t *testing.T) (*Terminal, net.Conn) {
	t.Helper()
	server, client := net.Pipe()
	t.Cleanup(func() {
		server.Close()
		client.Close()
	})
	go io.Copy(io.Discard, client)
	return New(server, 80, 24, false), client
}

func sendBytes(t *testing.T, conn net.Conn, data []byte) {
	t.Helper()
	done := make(chan error, 1)
	go func() {
		_, err := conn.Write(data)
		done <- err
	}()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("client write: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("client write did not complete")
	}
}

func TestGetLineBackspaceEditing(t *testing.T) {
	term, client := newTestTerminal(t)

	lineCh := make(chan string, 1)
	errCh := make(chan error, 1)
	go func() {
		line, err := term.GetLine(80, 0)
		if err != nil {
			errCh <- err
			return
		}
		lineCh <- line
	}()

	sendBytes(t, client, []byte("helo\x7f\x7flp\bo\r"))

	select {
	case line := <-lineCh:
		if line != "helo" {
			t.Fatalf("expected %q, got %q", "helo", line)
		}
	case err := <-errCh:
		t.Fatalf("GetLine returned error: %v", err)
	case <-time.After(2 * time.Second):
		t.Fatalf("GetLine did not return")
	}
}

func TestGetLineDropsNonPrintableBytes(t *testing.T) {
	term, client := newTestTerminal(t)

	lineCh := make(chan string, 1)
	go func() {
		line, _ := term.GetLine(80, 0)
		lineCh <- line
	}()

	// Control bytes and a high byte interleaved with printable input.
	sendBytes(t, client, []byte{'a', 0x01, 'b', 0x1b, 'c', 0xf0, '\r'})

	select {
	case line := <-lineCh:
		if line != "abc" {
			t.Fatalf("expected %q, got %q", "abc", line)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("GetLine did not return")
	}
}

func TestGetLineCRLFSubmitsOnce(t *testing.T) {
	term, client := newTestTerminal(t)

	lineCh := make(chan string, 2)
	go func() {
		first, _ := term.GetLine(80, 0)
		lineCh <- first
		second, _ := term.GetLine(80, 0)
		lineCh <- second
	}()

	// CRLF ends the first line; the LF must not submit an empty second
	// line.
	sendBytes(t, client, []byte("one\r\n"))
	time.Sleep(100 * time.Millisecond)
	sendBytes(t, client, []byte("two\r"))

	for i, want := range []string{"one", "two"} {
		select {
		case got := <-lineCh:
			if got != want {
				t.Fatalf("line %d: expected %q, got %q", i+1, want, got)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("line %d not returned", i+1)
		}
	}
}

func TestGetLineRespectsMaxLen(t *testing.T) {
	term, client := newTestTerminal(t)

	lineCh := make(chan string, 1)
	go func() {
		line, _ := term.GetLine(4, 0)
		lineCh <- line
	}()

	sendBytes(t, client, []byte("abcdefgh\r"))

	select {
	case line := <-lineCh:
		if line != "abcd" {
			t.Fatalf("expected %q, got %q", "abcd", line)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("GetLine did not return")
	}
}

func TestGetLineTimeout(t *testing.T) {
	term, client := newTestTerminal(t)

	errCh := make(chan error, 1)
	go func() {
		_, err := term.GetLine(80, 200*time.Millisecond)
		errCh <- err
	}()

	// Partial input, then silence past the deadline.
	sendBytes(t, client, []byte("part"))

	select {
	case err := <-errCh:
		if err != ErrTimeout {
			t.Fatalf("expected ErrTimeout, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("GetLine did not time out")
	}
}

func TestGetLineDisconnect(t *testing.T) {
	term, client := newTestTerminal(t)

	errCh := make(chan error, 1)
	go func() {
		_, err := term.GetLine(80, 0)
		errCh <- err
	}()

	sendBytes(t, client, []byte("abc"))
	client.Close()

	select {
	case err := <-errCh:
		if err == nil {
			t.Fatalf("expected an error on disconnect")
		}
		if err == ErrTimeout {
			t.Fatalf("disconnect must not read as a timeout")
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("GetLine did not return on disconnect")
	}
}

// A client that floods more input than the pump's channel holds must not
// pin the pump goroutine once the terminal is closed.
func TestCloseReleasesBackloggedPump(t *testing.T) {
	before := runtime.NumGoroutine()

	for i := 0; i < 20; i++ {
		server, client := net.Pipe()
		term := New(server, 80, 24, false)

		// Write well past the channel capacity without anything reading
		// from the terminal, so the pump blocks mid-send.
		writeDone := make(chan struct{})
		go func() {
			client.Write(bytes.Repeat([]byte{'x'}, 1024))
			close(writeDone)
		}()

		time.Sleep(10 * time.Millisecond)
		term.Close()
		client.Close()

		select {
		case <-writeDone:
		case <-time.After(2 * time.Second):
			t.Fatalf("client write still blocked after close")
		}
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if runtime.NumGoroutine() <= before+2 {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("goroutines leaked: before=%d after=%d", before, runtime.NumGoroutine())
}

func TestGetKeyTimeout(t *testing.T) {
	term, _ := newTestTerminal(t)

	start := time.Now()
	_, err := term.GetKey(150 * time.Millisecond)
	if err != ErrTimeout {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
	if time.Since(start) > time.Second {
		t.Fatalf("GetKey took too long to time out")
	}
}
