// Package session owns the per-connection state machine. There are no
// process-wide mutable globals: everything a handler needs hangs off the
// Session passed to it.
package session

import (
	"errors"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tmarken/hearth_bbs/internal/auth"
	"github.com/tmarken/hearth_bbs/internal/board"
	"github.com/tmarken/hearth_bbs/internal/calllog"
	"github.com/tmarken/hearth_bbs/internal/config"
	"github.com/tmarken/hearth_bbs/internal/homeauto"
	"github.com/tmarken/hearth_bbs/internal/mail"
	"github.com/tmarken/hearth_bbs/internal/mailcrypt"
	"github.com/tmarken/hearth_bbs/internal/shell"
	"github.com/tmarken/hearth_bbs/internal/store"
	"github.com/tmarken/hearth_bbs/internal/terminal"
)

// Deps bundles the shared collaborators injected from main. Board, Calls
// and Shell may be nil; the screens that need them degrade to an inline
// notice.
type Deps struct {
	Store    *store.Store
	Mail     *mail.Store
	Auth     *auth.Authenticator
	HA       *homeauto.Client
	Board    *board.Repo
	Calls    *calllog.Repo
	Shell    *shell.Runner
	Timeouts config.TimeoutsConfig
}

// Session is the transient per-connection object: created at connect,
// destroyed at disconnect, timeout or logout.
type Session struct {
	ID     string
	Term   *terminal.Terminal
	Remote string

	deps Deps

	// Authentication
	Authed   bool
	Username string
	Admin    bool
	Key      mailcrypt.Key // live mail key, never persisted

	// Primary state
	state   MenuState
	running bool

	// "Waiting for continue": a secondary flag orthogonal to the menu
	// state. While set, a bare Enter jumps to continueReturn instead of
	// being handled by the current state.
	waitContinue   bool
	continueReturn MenuState

	// Scratch carried between prompt states
	pendingUser       string
	composeTo         string
	composeSubject    string
	pendingEntityKind string
	editorLines       []string
	theme             string
}

// New creates a session for a connected terminal.
func New(term *terminal.Terminal, remote string, deps Deps) *Session {
	return &Session{
		ID:      uuid.NewString(),
		Term:    term,
		Remote:  remote,
		deps:    deps,
		state:   StateLoginUser,
		running: true,
	}
}

// Run drives the session until logout, disconnect or idle timeout.
func (s *Session) Run() {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Session %s panic: %v", s.ID, r)
		}
		if s.deps.Calls != nil {
			s.deps.Calls.End(s.ID)
		}
		s.Term.Close()
		log.Printf("Session %s disconnected (%s)", s.ID, s.Remote)
	}()

	log.Printf("Session %s connected from %s", s.ID, s.Remote)
	if s.deps.Calls != nil {
		if err := s.deps.Calls.Begin(s.ID, s.Remote); err != nil {
			log.Printf("Session %s: call log: %v", s.ID, err)
		}
	}

	s.banner()

	for s.running {
		if !s.waitContinue {
			if err := s.render(); err != nil {
				return
			}
		}

		line, err := s.readLine()
		if err != nil {
			if errors.Is(err, terminal.ErrTimeout) {
				s.Term.SendLn("")
				s.Term.SendLn("Idle too long; closing the line. Goodbye.")
				return
			}
			return // disconnect
		}

		if s.waitContinue {
			if line == "" {
				s.setState(s.continueReturn)
				s.waitContinue = false
			} else {
				s.Term.Send("\r\n[Enter] to continue: ")
			}
			continue
		}

		s.dispatch(line)
	}
}

// readLine reads one line under the current state's deadline and masking
// rules. Prompt-class expiry is folded into empty input here so handlers
// only ever see the cancellation.
func (s *Session) readLine() (string, error) {
	sp := s.spec(s.state)

	maxLen := sp.maxLen
	if maxLen == 0 {
		maxLen = 80
	}

	var line string
	var err error
	if sp.masked {
		line, err = s.Term.GetPassword(maxLen, s.timeoutFor(sp.class))
	} else {
		line, err = s.Term.GetLine(maxLen, s.timeoutFor(sp.class))
	}

	if errors.Is(err, terminal.ErrTimeout) && sp.class != classMenu {
		return "", nil // timeout == cancel
	}
	if err != nil {
		return "", err
	}
	if !sp.masked {
		line = strings.TrimSpace(line)
	}
	return line, nil
}

func (s *Session) timeoutFor(class timeoutClass) time.Duration {
	secs := s.deps.Timeouts.Prompt
	switch class {
	case classMenu:
		secs = s.deps.Timeouts.Idle
	case classCompose:
		secs = s.deps.Timeouts.Compose
	}
	if secs <= 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}

// dispatch routes one completed line to the current state's handler,
// checking single-letter hotkeys first.
func (s *Session) dispatch(line string) {
	sp := s.spec(s.state)

	if len(line) == 1 && sp.hotkeys != nil {
		b := upperByte(line[0])
		if next, ok := sp.hotkeys[b]; ok {
			s.setState(next)
			return
		}
	}

	next, err := sp.handle(s, line)
	if err != nil {
		// Storage and remote failures are inline and non-fatal; the
		// operation is aborted and the state does not advance.
		s.Term.SendLn("")
		s.errorLn("Error: " + err.Error())
		return
	}
	s.setState(next)
}

func (s *Session) setState(next MenuState) {
	s.state = next
}

// pressEnter arranges the continue flow: output stays on screen until
// the user hits Enter, then the session lands on ret.
func (s *Session) pressEnter(ret MenuState) {
	s.waitContinue = true
	s.continueReturn = ret
	s.Term.Send("\r\n[Enter] to continue: ")
}

func (s *Session) render() error {
	return s.spec(s.state).render(s)
}

// logout ends the session loop; the deferred cleanup closes the line.
func (s *Session) logout() {
	s.running = false
}

func upperByte(b byte) byte {
	if b >= 'a' && b <= 'z' {
		return b - 32
	}
	return b
}
