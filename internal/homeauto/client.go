// Package homeauto calls a home-automation REST API over raw TCP with
// hand-assembled HTTP/1.1 requests.
//
// This is deliberately not an HTTP client: every call opens a fresh
// connection, nothing is kept alive, chunked transfer is not understood,
// and response values are extracted by literal substring search rather
// than JSON parsing. A payload that carries the searched token in an
// unexpected shape will misparse. These limitations are part of the
// component's contract; all remote failures collapse into ErrUnavailable
// and never abort the session.
package homeauto

import (
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/tmarken/hearth_bbs/internal/store"
)

// ErrNotConfigured is returned while any of server, port or token is
// missing from the persisted config.
var ErrNotConfigured = errors.New("home automation is not configured")

// ErrUnavailable is the single generic failure for refused connections,
// timeouts and malformed responses.
var ErrUnavailable = errors.New("home automation service unavailable")

// interCallDelay spaces out sequential calls during a bulk toggle.
const interCallDelay = 250 * time.Millisecond

// Client issues requests against the configured target. Target and token
// are re-read from the store on every call so external edits take effect
// immediately.
type Client struct {
	store   *store.Store
	timeout time.Duration

	// dial is swapped in tests.
	dial func(addr string, timeout time.Duration) (net.Conn, error)
}

// New creates a client with the given per-request deadline.
func New(st *store.Store, timeout time.Duration) *Client {
	return &Client{
		store:   st,
		timeout: timeout,
		dial: func(addr string, timeout time.Duration) (net.Conn, error) {
			return net.DialTimeout("tcp", addr, timeout)
		},
	}
}

// Configured reports whether all three of server, port and token are set.
func (c *Client) Configured() bool {
	cfg, err := c.store.LoadHAConfig()
	return err == nil && cfg.Configured()
}

// GetState fetches /api/states/<entity> and extracts the state value.
func (c *Client) GetState(entityID string) (string, error) {
	raw, err := c.request("GET", "/api/states/"+entityID, "")
	if err != nil {
		return "", err
	}
	state, ok := extractState(raw)
	if !ok {
		return "", ErrUnavailable
	}
	return state, nil
}

// CallService posts /api/services/<domain>/<service> with an entity_id
// body and reports whether the response carried a 200 OK status line.
func (c *Client) CallService(domain, service, entityID string) (bool, error) {
	body := `{"entity_id":"` + entityID + `"}`
	raw, err := c.request("POST", "/api/services/"+domain+"/"+service, body)
	if err != nil {
		return false, err
	}
	return statusOK(raw), nil
}

// ToggleAll toggles every configured light in sequence with a short delay
// between calls, tallying successes and failures. Individual failures do
// not stop the sweep.
func (c *Client) ToggleAll() (ok, failed int, err error) {
	lights, err := c.store.Lights()
	if err != nil {
		return 0, 0, err
	}

	for i, light := range lights {
		if i > 0 {
			time.Sleep(interCallDelay)
		}
		good, err := c.CallService("light", "toggle", light.ID)
		if err != nil || !good {
			failed++
			continue
		}
		ok++
	}
	return ok, failed, nil
}

// request opens a fresh connection, writes one HTTP/1.1 request and
// returns the raw response bytes read before the deadline.
func (c *Client) request(method, path, body string) (string, error) {
	cfg, err := c.store.LoadHAConfig()
	if err != nil {
		return "", err
	}
	if !cfg.Configured() {
		return "", ErrNotConfigured
	}

	addr := net.JoinHostPort(cfg.Server, strconv.Itoa(cfg.Port))
	conn, err := c.dial(addr, c.timeout)
	if err != nil {
		return "", ErrUnavailable
	}
	defer conn.Close()

	var req strings.Builder
	fmt.Fprintf(&req, "%s %s HTTP/1.1\r\n", method, path)
	fmt.Fprintf(&req, "Host: %s\r\n", cfg.Server)
	fmt.Fprintf(&req, "Authorization: Bearer %s\r\n", cfg.Token)
	if body != "" {
		req.WriteString("Content-Type: application/json\r\n")
		fmt.Fprintf(&req, "Content-Length: %d\r\n", len(body))
	}
	req.WriteString("Connection: close\r\n\r\n")
	req.WriteString(body)

	if err := conn.SetDeadline(time.Now().Add(c.timeout)); err != nil {
		return "", ErrUnavailable
	}
	if _, err := io.WriteString(conn, req.String()); err != nil {
		return "", ErrUnavailable
	}

	// Connection: close means the peer ends the response with EOF. A
	// deadline expiry with bytes already in hand still counts as a
	// response; with nothing read it is the generic failure.
	raw, err := io.ReadAll(conn)
	if len(raw) == 0 {
		if err == nil {
			err = io.ErrUnexpectedEOF
		}
		return "", ErrUnavailable
	}
	_ = err
	return string(raw), nil
}

// extractState searches for the literal "state":" token and returns the
// bytes up to the next quote. Pattern matching, not JSON.
func extractState(raw string) (string, bool) {
	const needle = `"state":"`
	i := strings.Index(raw, needle)
	if i < 0 {
		return "", false
	}
	rest := raw[i+len(needle):]
	j := strings.IndexByte(rest, '"')
	if j < 0 {
		return "", false
	}
	return rest[:j], true
}

// statusOK reports whether the raw response contains a 200 OK status line.
func statusOK(raw string) bool {
	return strings.Contains(raw, "HTTP/1.1 200 OK")
}
