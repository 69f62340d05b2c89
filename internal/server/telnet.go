// Package server owns the two transports a caller can arrive on: raw
// telnet and SSH. Both hand the session layer a plain byte stream with
// the protocol framing already stripped.
package server

import (
	"bufio"
	"fmt"
	"io"
	"net"
	"sync"
)

// Telnet protocol bytes.
const (
	cmdIAC  byte = 255
	cmdDONT byte = 254
	cmdDO   byte = 253
	cmdWONT byte = 252
	cmdWILL byte = 251
	cmdSB   byte = 250
	cmdSE   byte = 240
	cmdGA   byte = 249

	optEcho     byte = 1
	optSGA      byte = 3
	optTType    byte = 24
	optNAWS     byte = 31
	optLinemode byte = 34
)

// TelnetConn wraps a TCP connection, strips IAC sequences from the
// inbound stream and escapes literal 0xFF on the way out. Window size
// and terminal type picked up during negotiation are exposed as fields.
type TelnetConn struct {
	conn   net.Conn
	reader *bufio.Reader
	mu     sync.Mutex

	TermType    string
	Width       int
	Height      int
	ANSICapable bool
}

// NewTelnetConn wraps an accepted TCP connection. ANSI is assumed until
// terminal-type negotiation says otherwise.
func NewTelnetConn(conn net.Conn) *TelnetConn {
	return &TelnetConn{
		conn:        conn,
		reader:      bufio.NewReaderSize(conn, 1024),
		Width:       80,
		Height:      24,
		ANSICapable: true,
	}
}

// Negotiate sends the initial option set: server-side echo, suppressed
// go-ahead both ways, no linemode, and requests for NAWS and TTYPE.
func (tc *TelnetConn) Negotiate() error {
	for _, c := range [][2]byte{
		{cmdWILL, optEcho},
		{cmdWILL, optSGA},
		{cmdDO, optSGA},
		{cmdDONT, optLinemode},
		{cmdDO, optNAWS},
		{cmdDO, optTType},
	} {
		if err := tc.sendCommand(c[0], c[1]); err != nil {
			return err
		}
	}
	return nil
}

func (tc *TelnetConn) sendCommand(cmd, option byte) error {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	_, err := tc.conn.Write([]byte{cmdIAC, cmd, option})
	return err
}

// readByte returns the next data byte, consuming any IAC sequences in
// between.
func (tc *TelnetConn) readByte() (byte, error) {
	for {
		b, err := tc.reader.ReadByte()
		if err != nil {
			return 0, err
		}
		if b != cmdIAC {
			return b, nil
		}

		cmd, err := tc.reader.ReadByte()
		if err != nil {
			return 0, err
		}

		switch cmd {
		case cmdIAC:
			// Escaped 0xFF is data.
			return cmdIAC, nil
		case cmdWILL, cmdWONT:
			opt, err := tc.reader.ReadByte()
			if err != nil {
				return 0, err
			}
			tc.handleWillWont(cmd, opt)
		case cmdDO, cmdDONT:
			opt, err := tc.reader.ReadByte()
			if err != nil {
				return 0, err
			}
			tc.handleDoDont(cmd, opt)
		case cmdSB:
			if err := tc.readSubNegotiation(); err != nil {
				return 0, err
			}
		case cmdGA:
		default:
			// Unknown two-byte command, skip.
		}
	}
}

// Read implements io.Reader with the protocol filtered out. It returns
// as soon as the buffered data is exhausted rather than blocking to
// fill p.
func (tc *TelnetConn) Read(p []byte) (int, error) {
	n := 0
	for n < len(p) {
		b, err := tc.readByte()
		if err != nil {
			if n > 0 {
				return n, nil
			}
			return 0, err
		}
		p[n] = b
		n++

		if tc.reader.Buffered() == 0 {
			break
		}
	}
	return n, nil
}

// Write sends data to the client, doubling any literal 0xFF bytes.
func (tc *TelnetConn) Write(p []byte) (int, error) {
	tc.mu.Lock()
	defer tc.mu.Unlock()

	written := 0
	for i, b := range p {
		if b != cmdIAC {
			continue
		}
		if i > written {
			if _, err := tc.conn.Write(p[written:i]); err != nil {
				return written, err
			}
		}
		if _, err := tc.conn.Write([]byte{cmdIAC, cmdIAC}); err != nil {
			return i, err
		}
		written = i + 1
	}
	if written < len(p) {
		if _, err := tc.conn.Write(p[written:]); err != nil {
			return written, err
		}
	}
	return len(p), nil
}

func (tc *TelnetConn) Close() error {
	return tc.conn.Close()
}

func (tc *TelnetConn) RemoteAddr() net.Addr {
	return tc.conn.RemoteAddr()
}

func (tc *TelnetConn) handleWillWont(cmd, opt byte) {
	switch opt {
	case optNAWS:
		// Dimensions arrive in sub-negotiation.
	case optTType:
		if cmd == cmdWILL {
			tc.mu.Lock()
			tc.conn.Write([]byte{cmdIAC, cmdSB, optTType, 1, cmdIAC, cmdSE})
			tc.mu.Unlock()
		}
	case optLinemode:
		if cmd == cmdWILL {
			_ = tc.sendCommand(cmdDONT, optLinemode)
		}
	}
}

func (tc *TelnetConn) handleDoDont(cmd, opt byte) {
	switch opt {
	case optEcho, optSGA:
		// Confirmations of our own WILLs.
	default:
		if cmd == cmdDO {
			tc.sendCommand(cmdWONT, opt)
		}
	}
}

func (tc *TelnetConn) readSubNegotiation() error {
	const maxSubnegLen = 1024
	var buf []byte
	for {
		b, err := tc.reader.ReadByte()
		if err != nil {
			return fmt.Errorf("subnegotiation read: %w", err)
		}
		if b == cmdIAC {
			next, err := tc.reader.ReadByte()
			if err != nil {
				return fmt.Errorf("subnegotiation read: %w", err)
			}
			if next == cmdSE {
				break
			}
			if next == cmdIAC {
				b = cmdIAC
			} else {
				break
			}
		}
		buf = append(buf, b)
		if len(buf) > maxSubnegLen {
			return fmt.Errorf("subnegotiation too long")
		}
	}

	if len(buf) == 0 {
		return nil
	}

	switch buf[0] {
	case optNAWS:
		if len(buf) >= 5 {
			tc.Width = int(buf[1])<<8 | int(buf[2])
			tc.Height = int(buf[3])<<8 | int(buf[4])
		}
	case optTType:
		if len(buf) >= 2 && buf[1] == 0 {
			term := string(buf[2:])
			if len(term) > 64 {
				term = term[:64]
			}
			tc.TermType = term
			tc.ANSICapable = isANSITermType(term)
		}
	}
	return nil
}

func isANSITermType(termType string) bool {
	switch termType {
	case "ANSI", "ansi", "ANSI-BBS", "ansi-bbs",
		"xterm", "xterm-256color", "xterm-color",
		"vt100", "VT100", "vt102", "VT102",
		"linux", "screen", "screen-256color",
		"tmux", "tmux-256color",
		"rxvt", "rxvt-unicode":
		return true
	}
	return false
}

var _ io.ReadWriteCloser = (*TelnetConn)(nil)
