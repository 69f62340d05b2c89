package homeauto

import (
	"errors"
	"io"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/tmarken/hearth_bbs/internal/store"
)

// fakeServer listens on loopback and serves one canned response per
// connection, after consuming the request.
func fakeServer(t *testing.T, response string) (addr string, requests chan string) {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { ln.Close() })

	requests = make(chan string, 8)
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go func(conn net.Conn) {
				defer conn.Close()
				buf := make([]byte, 4096)
				n, _ := conn.Read(buf)
				requests <- string(buf[:n])
				io.WriteString(conn, response)
			}(conn)
		}
	}()

	return ln.Addr().String(), requests
}

func configuredStore(t *testing.T, addr string) *store.Store {
	t.Helper()
	st, err := store.New(t.TempDir())
	if err != nil {
		t.Fatalf("store: %v", err)
	}

	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		t.Fatalf("split addr: %v", err)
	}
	port := 0
	for _, c := range portStr {
		port = port*10 + int(c-'0')
	}
	if err := st.SaveHAConfig(store.HAConfig{Server: host, Port: port, Token: "secret-token"}); err != nil {
		t.Fatalf("save ha config: %v", err)
	}
	return st
}

func TestGetStateExtractsValue(t *testing.T) {
	body := `{"entity_id":"sensor.kitchen","state":"21.4","attributes":{}}`
	resp := "HTTP/1.1 200 OK\r\nContent-Type: application/json\r\n\r\n" + body
	addr, requests := fakeServer(t, resp)

	c := New(configuredStore(t, addr), 2*time.Second)
	state, err := c.GetState("sensor.kitchen")
	if err != nil {
		t.Fatalf("get state: %v", err)
	}
	if state != "21.4" {
		t.Errorf("state = %q, want 21.4", state)
	}

	req := <-requests
	for _, want := range []string{
		"GET /api/states/sensor.kitchen HTTP/1.1\r\n",
		"Authorization: Bearer secret-token\r\n",
		"Connection: close\r\n",
	} {
		if !strings.Contains(req, want) {
			t.Errorf("request missing %q:\n%s", want, req)
		}
	}
}

func TestCallServiceStatusTally(t *testing.T) {
	cases := []struct {
		name string
		resp string
		ok   bool
	}{
		{"ok", "HTTP/1.1 200 OK\r\n\r\n{}", true},
		{"server error", "HTTP/1.1 500 Internal Server Error\r\n\r\n", false},
		{"unauthorized", "HTTP/1.1 401 Unauthorized\r\n\r\n", false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			addr, requests := fakeServer(t, tc.resp)
			c := New(configuredStore(t, addr), 2*time.Second)

			ok, err := c.CallService("light", "toggle", "light.porch")
			if err != nil {
				t.Fatalf("call service: %v", err)
			}
			if ok != tc.ok {
				t.Errorf("ok = %v, want %v", ok, tc.ok)
			}

			req := <-requests
			if !strings.Contains(req, "POST /api/services/light/toggle HTTP/1.1\r\n") {
				t.Errorf("bad request line:\n%s", req)
			}
			if !strings.Contains(req, `{"entity_id":"light.porch"}`) {
				t.Errorf("request missing entity body:\n%s", req)
			}
			if !strings.Contains(req, "Content-Length: 27\r\n") {
				t.Errorf("request missing content length:\n%s", req)
			}
		})
	}
}

func TestTimeoutIsGenericFailureWithinDeadline(t *testing.T) {
	// Server accepts but never responds.
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { ln.Close() })
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			defer conn.Close()
			select {} // hold the connection open silently
		}
	}()

	c := New(configuredStore(t, ln.Addr().String()), 300*time.Millisecond)
	start := time.Now()
	_, err = c.GetState("sensor.x")
	elapsed := time.Since(start)

	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("err = %v, want ErrUnavailable", err)
	}
	if elapsed > 2*time.Second {
		t.Fatalf("timed read blocked %v, deadline was 300ms", elapsed)
	}
}

func TestConnectionRefusedIsGenericFailure(t *testing.T) {
	// Grab a port and close it so nothing is listening.
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := ln.Addr().String()
	ln.Close()

	c := New(configuredStore(t, addr), 300*time.Millisecond)
	if _, err := c.GetState("sensor.x"); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("err = %v, want ErrUnavailable", err)
	}
}

func TestNotConfiguredCombinations(t *testing.T) {
	full := store.HAConfig{Server: "ha.local", Port: 8123, Token: "tok"}

	cases := []store.HAConfig{
		{},
		{Server: full.Server},
		{Port: full.Port},
		{Token: full.Token},
		{Server: full.Server, Port: full.Port},
		{Server: full.Server, Token: full.Token},
		{Port: full.Port, Token: full.Token},
	}
	for _, cfg := range cases {
		if cfg.Configured() {
			t.Errorf("%+v reported configured", cfg)
		}
	}
	if !full.Configured() {
		t.Errorf("%+v reported not configured", full)
	}

	st, err := store.New(t.TempDir())
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	if err := st.SaveHAConfig(store.HAConfig{Server: "ha.local"}); err != nil {
		t.Fatalf("save: %v", err)
	}
	c := New(st, time.Second)
	if _, err := c.GetState("sensor.x"); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("err = %v, want ErrNotConfigured", err)
	}
}

func TestExtractState(t *testing.T) {
	raw := `HTTP/1.1 200 OK` + "\r\n\r\n" + `{"state":"on","last_changed":"x"}`
	state, ok := extractState(raw)
	if !ok || state != "on" {
		t.Fatalf("extractState = %q/%v, want on/true", state, ok)
	}

	if _, ok := extractState("HTTP/1.1 200 OK\r\n\r\n{}"); ok {
		t.Fatalf("extractState found a state in an empty body")
	}
}
