package server

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"io"
	"log"
	"net"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/crypto/ssh"
)

// SSHConn adapts an SSH channel to the io.ReadWriteCloser the terminal
// layer expects.
type SSHConn struct {
	channel ssh.Channel
	mu      sync.Mutex

	TermType    string
	Width       int
	Height      int
	ANSICapable bool
}

// NewSSHConn wraps an accepted SSH session channel.
func NewSSHConn(channel ssh.Channel, width, height int, termType string) *SSHConn {
	return &SSHConn{
		channel:     channel,
		Width:       width,
		Height:      height,
		TermType:    termType,
		ANSICapable: true,
	}
}

func (sc *SSHConn) Read(p []byte) (int, error) {
	return sc.channel.Read(p)
}

func (sc *SSHConn) Write(p []byte) (int, error) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	return sc.channel.Write(p)
}

func (sc *SSHConn) Close() error {
	return sc.channel.Close()
}

// SSHHandler runs one established SSH session channel.
type SSHHandler func(conn *SSHConn, remoteAddr string)

// SSHListener accepts SSH connections. The SSH layer does no
// authentication of its own; callers land on the login prompt exactly
// like telnet callers.
type SSHListener struct {
	addr        string
	config      *ssh.ServerConfig
	handler     SSHHandler
	hostKeyPath string
}

// NewSSHListener creates a listener bound to port, loading or creating
// the ed25519 host key at hostKeyPath.
func NewSSHListener(port int, hostKeyPath string, handler SSHHandler) (*SSHListener, error) {
	l := &SSHListener{
		addr: fmt.Sprintf(":%d", port),
		config: &ssh.ServerConfig{
			ServerVersion: "SSH-2.0-Hearth",
			NoClientAuth:  true,
		},
		handler:     handler,
		hostKeyPath: hostKeyPath,
	}
	if err := l.loadOrGenerateHostKey(); err != nil {
		return nil, fmt.Errorf("host key: %w", err)
	}
	return l, nil
}

func (l *SSHListener) loadOrGenerateHostKey() error {
	data, err := os.ReadFile(l.hostKeyPath)
	if err == nil {
		signer, err := ssh.ParsePrivateKey(data)
		if err != nil {
			return fmt.Errorf("parse host key %s: %w", l.hostKeyPath, err)
		}
		l.config.AddHostKey(signer)
		return nil
	}
	if !os.IsNotExist(err) {
		return err
	}

	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return fmt.Errorf("generate ed25519 key: %w", err)
	}
	privBytes, err := x509.MarshalPKCS8PrivateKey(priv)
	if err != nil {
		return fmt.Errorf("marshal ed25519 key: %w", err)
	}
	pemData := pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: privBytes})

	if err := os.MkdirAll(filepath.Dir(l.hostKeyPath), 0o700); err != nil {
		return fmt.Errorf("create key dir: %w", err)
	}
	if err := os.WriteFile(l.hostKeyPath, pemData, 0o600); err != nil {
		return fmt.Errorf("write host key: %w", err)
	}

	signer, err := ssh.ParsePrivateKey(pemData)
	if err != nil {
		return fmt.Errorf("parse new host key: %w", err)
	}
	l.config.AddHostKey(signer)
	log.Printf("SSH: generated host key at %s", l.hostKeyPath)
	return nil
}

// ListenAndServe accepts connections until the process exits.
func (l *SSHListener) ListenAndServe() error {
	ln, err := net.Listen("tcp", l.addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", l.addr, err)
	}
	defer ln.Close()

	log.Printf("SSH listening on %s", l.addr)

	for {
		conn, err := ln.Accept()
		if err != nil {
			log.Printf("SSH accept: %v", err)
			continue
		}
		go l.handleConnection(conn)
	}
}

func (l *SSHListener) handleConnection(conn net.Conn) {
	remoteAddr := conn.RemoteAddr().String()

	// Bound the handshake so a stalled client cannot pin the goroutine.
	_ = conn.SetDeadline(time.Now().Add(20 * time.Second))
	sshConn, chans, reqs, err := ssh.NewServerConn(conn, l.config)
	if err != nil {
		log.Printf("SSH handshake from %s: %v", remoteAddr, err)
		conn.Close()
		return
	}
	defer sshConn.Close()
	_ = conn.SetDeadline(time.Time{})

	go ssh.DiscardRequests(reqs)

	for newChannel := range chans {
		if newChannel.ChannelType() != "session" {
			newChannel.Reject(ssh.UnknownChannelType, "unknown channel type")
			continue
		}

		channel, requests, err := newChannel.Accept()
		if err != nil {
			log.Printf("SSH channel accept: %v", err)
			continue
		}

		width, height := 80, 24
		termType := "xterm"

		go func() {
			for req := range requests {
				switch req.Type {
				case "pty-req":
					if len(req.Payload) >= 4 {
						termLen := int(req.Payload[3])
						if len(req.Payload) >= 4+termLen+8 {
							termType = string(req.Payload[4 : 4+termLen])
							o := 4 + termLen
							width = int(req.Payload[o])<<24 | int(req.Payload[o+1])<<16 |
								int(req.Payload[o+2])<<8 | int(req.Payload[o+3])
							height = int(req.Payload[o+4])<<24 | int(req.Payload[o+5])<<16 |
								int(req.Payload[o+6])<<8 | int(req.Payload[o+7])
						}
					}
					if req.WantReply {
						req.Reply(true, nil)
					}
				case "shell":
					if req.WantReply {
						req.Reply(true, nil)
					}
					sc := NewSSHConn(channel, width, height, termType)
					l.handler(sc, remoteAddr)
					channel.Close()
					return
				case "window-change":
					if len(req.Payload) >= 8 {
						width = int(req.Payload[0])<<24 | int(req.Payload[1])<<16 |
							int(req.Payload[2])<<8 | int(req.Payload[3])
						height = int(req.Payload[4])<<24 | int(req.Payload[5])<<16 |
							int(req.Payload[6])<<8 | int(req.Payload[7])
					}
				default:
					if req.WantReply {
						req.Reply(false, nil)
					}
				}
			}
		}()
	}
}

var _ io.ReadWriteCloser = (*SSHConn)(nil)
