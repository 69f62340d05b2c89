package session

import (
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/tmarken/hearth_bbs/internal/auth"
	"github.com/tmarken/hearth_bbs/internal/config"
	"github.com/tmarken/hearth_bbs/internal/homeauto"
	"github.com/tmarken/hearth_bbs/internal/mail"
	"github.com/tmarken/hearth_bbs/internal/store"
	"github.com/tmarken/hearth_bbs/internal/terminal"
)

// caller drives one end of a net.Pipe against a running session and
// records everything the session prints.
type caller struct {
	t    *testing.T
	conn net.Conn
	done chan struct{}

	mu     sync.Mutex
	output strings.Builder
	seen   int
}

func startSession(t *testing.T) (*caller, *Session, store.UserRecord) {
	t.Helper()

	st, err := store.New(t.TempDir())
	if err != nil {
		t.Fatalf("store.New: %v", err)
	}
	mailStore := mail.NewStore(st.MailRoot())

	deps := Deps{
		Store: st,
		Mail:  mailStore,
		Auth:  auth.New(st, mailStore),
		HA:    homeauto.New(st, time.Second),
		Timeouts: config.TimeoutsConfig{
			Idle:    5,
			Prompt:  5,
			Compose: 5,
		},
	}

	server, client := net.Pipe()
	term := terminal.New(server, 80, 24, false)
	s := New(term, "test:0", deps)

	c := &caller{t: t, conn: client, done: make(chan struct{})}
	go func() {
		buf := make([]byte, 512)
		for {
			n, err := client.Read(buf)
			if n > 0 {
				c.mu.Lock()
				c.output.Write(buf[:n])
				c.mu.Unlock()
			}
			if err != nil {
				return
			}
		}
	}()
	go func() {
		s.Run()
		close(c.done)
	}()
	t.Cleanup(func() {
		term.Close()
		client.Close()
	})

	return c, s, store.UserRecord{Username: "admin", Password: "admin123", Admin: true}
}

// expect waits until text appears in output produced after the previous
// expect call.
func (c *caller) expect(text string) {
	c.t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		c.mu.Lock()
		out := c.output.String()
		idx := strings.Index(out[c.seen:], text)
		if idx >= 0 {
			c.seen += idx + len(text)
			c.mu.Unlock()
			return
		}
		c.mu.Unlock()
		time.Sleep(10 * time.Millisecond)
	}

	c.mu.Lock()
	out := c.output.String()
	c.mu.Unlock()
	c.t.Fatalf("expected %q in session output, got:\n%s", text, out)
}

func (c *caller) sendLine(line string) {
	c.t.Helper()
	done := make(chan error, 1)
	go func() {
		_, err := c.conn.Write([]byte(line + "\r"))
		done <- err
	}()
	select {
	case err := <-done:
		if err != nil {
			c.t.Fatalf("write %q: %v", line, err)
		}
	case <-time.After(2 * time.Second):
		c.t.Fatalf("write %q did not complete", line)
	}
}

func (c *caller) login(username, password string) {
	c.t.Helper()
	c.expect("Username: ")
	c.sendLine(username)
	c.expect("Password: ")
	c.sendLine(password)
}

func (c *caller) waitDisconnect() {
	c.t.Helper()
	select {
	case <-c.done:
	case <-time.After(2 * time.Second):
		c.t.Fatalf("session did not end")
	}
}

func TestLoginLogout(t *testing.T) {
	c, _, admin := startSession(t)

	c.login(admin.Username, admin.Password)
	c.expect("Welcome, admin.")
	c.expect("Main Menu")
	c.expect("Choice: ")

	c.sendLine("Q")
	c.expect("Really log out?")
	c.sendLine("Y")
	c.expect("Goodbye!")
	c.waitDisconnect()
}

func TestLoginRejectionIsGeneric(t *testing.T) {
	c, _, admin := startSession(t)

	c.login("nobody", "whatever")
	c.expect("Login incorrect.")

	c.login(admin.Username, "wrongpass")
	c.expect("Login incorrect.")

	// Still on the login prompt, and a correct login works after the
	// failures.
	c.login(admin.Username, admin.Password)
	c.expect("Welcome, admin.")
}

func TestInvalidMenuChoiceReprompts(t *testing.T) {
	c, _, admin := startSession(t)

	c.login(admin.Username, admin.Password)
	c.expect("Choice: ")

	c.sendLine("99")
	c.expect("Invalid choice.")
	c.expect("Main Menu")

	c.sendLine("bogus")
	c.expect("Invalid choice.")
	c.expect("Main Menu")
}

func TestContinuePromptSwallowsInput(t *testing.T) {
	c, _, admin := startSession(t)

	c.login(admin.Username, admin.Password)
	c.expect("Choice: ")

	c.sendLine("7")
	c.expect("Weather")
	c.expect("[Enter] to continue: ")

	// Anything but a bare Enter re-prompts without leaving the screen.
	c.sendLine("nonsense")
	c.expect("[Enter] to continue: ")

	c.sendLine("")
	c.expect("Main Menu")
}

func TestPasswordChangeFlow(t *testing.T) {
	c, s, admin := startSession(t)

	c.login(admin.Username, admin.Password)
	c.expect("Choice: ")

	c.sendLine("11")
	c.expect("Settings")
	c.sendLine("1")
	c.expect("New password")
	c.sendLine("fresh")
	c.expect("Password changed.")

	u, err := s.deps.Store.FindUser(admin.Username)
	if err != nil {
		t.Fatalf("FindUser: %v", err)
	}
	if u.Password != "fresh" {
		t.Fatalf("password not updated: %q", u.Password)
	}
}

func TestComposeDeliversToBothFolders(t *testing.T) {
	c, s, admin := startSession(t)

	if err := s.deps.Store.AddUser(store.UserRecord{Username: "bob", Password: "pw"}); err != nil {
		t.Fatalf("AddUser: %v", err)
	}

	c.login(admin.Username, admin.Password)
	c.expect("Choice: ")

	c.sendLine("2")
	c.expect("Secure Mail")
	c.sendLine("2")
	c.expect("To (Enter to cancel): ")
	c.sendLine("bob")
	c.expect("Subject: ")
	c.sendLine("hello")
	c.expect("Body")
	c.sendLine("see you at eight")
	c.expect("Sent.")

	inbox, err := s.deps.Mail.List("bob", mail.FolderInbox)
	if err != nil {
		t.Fatalf("List inbox: %v", err)
	}
	if len(inbox) != 1 {
		t.Fatalf("bob inbox has %d messages", len(inbox))
	}

	sent, err := s.deps.Mail.List(admin.Username, mail.FolderSent)
	if err != nil {
		t.Fatalf("List sent: %v", err)
	}
	if len(sent) != 1 {
		t.Fatalf("admin sent has %d messages", len(sent))
	}

	// The sent copy is plaintext; the inbox copy is ciphered.
	msg, err := s.deps.Mail.ReadOrdinal(admin.Username, mail.FolderSent, 1)
	if err != nil {
		t.Fatalf("ReadOrdinal: %v", err)
	}
	if string(msg.Body) != "see you at eight" {
		t.Fatalf("sent body = %q", msg.Body)
	}
	ciphered, err := s.deps.Mail.ReadOrdinal("bob", mail.FolderInbox, 1)
	if err != nil {
		t.Fatal(err)
	}
	if string(ciphered.Body) == "see you at eight" {
		t.Fatalf("inbox copy stored in plaintext")
	}
}

func TestComposeUnknownRecipient(t *testing.T) {
	c, _, admin := startSession(t)

	c.login(admin.Username, admin.Password)
	c.expect("Choice: ")

	c.sendLine("2")
	c.expect("Secure Mail")
	c.sendLine("2")
	c.expect("To (Enter to cancel): ")
	c.sendLine("ghost")
	c.expect("No such user.")
	c.expect("To (Enter to cancel): ")
}

func TestHAControlUnconfiguredNotice(t *testing.T) {
	c, _, admin := startSession(t)

	c.login(admin.Username, admin.Password)
	c.expect("Choice: ")

	c.sendLine("3")
	c.expect("Home automation is not configured.")
	c.expect("[Enter] to continue: ")
	c.sendLine("")
	c.expect("Main Menu")
}
