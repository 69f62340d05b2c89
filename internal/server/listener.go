package server

import (
	"fmt"
	"log"
	"net"
)

// TelnetHandler runs one accepted telnet connection and is responsible
// for closing it.
type TelnetHandler func(tc *TelnetConn)

// TelnetListener accepts telnet connections on a TCP port.
type TelnetListener struct {
	addr    string
	handler TelnetHandler
}

// NewTelnetListener creates a listener bound to port.
func NewTelnetListener(port int, handler TelnetHandler) *TelnetListener {
	return &TelnetListener{
		addr:    fmt.Sprintf(":%d", port),
		handler: handler,
	}
}

// ListenAndServe accepts connections until the process exits. Accept
// errors are logged and skipped.
func (l *TelnetListener) ListenAndServe() error {
	ln, err := net.Listen("tcp", l.addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", l.addr, err)
	}
	defer ln.Close()

	log.Printf("Telnet listening on %s", l.addr)

	for {
		conn, err := ln.Accept()
		if err != nil {
			log.Printf("Telnet accept: %v", err)
			continue
		}
		go l.handler(NewTelnetConn(conn))
	}
}
