package session

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/tmarken/hearth_bbs/internal/auth"
	"github.com/tmarken/hearth_bbs/internal/board"
	"github.com/tmarken/hearth_bbs/internal/mail"
	"github.com/tmarken/hearth_bbs/internal/terminal"
)

func init() {
	states = map[MenuState]stateSpec{
		StateLoginUser: {render: renderLoginUser, handle: handleLoginUser, class: classMenu, maxLen: 32},
		StateLoginPass: {render: renderLoginPass, handle: handleLoginPass, class: classMenu, masked: true, maxLen: 32},

		StateMain: {render: renderMain, handle: handleMain, class: classMenu,
			hotkeys: map[byte]MenuState{'M': StateMailMenu, 'H': StateHAControl, 'B': StateBoard, 'Q': StateLogout}},

		StateBoard:     {render: renderBoard, handle: handleBoard, class: classPrompt},
		StateBoardPost: {render: renderBoardPost, handle: handleBoardPost, class: classCompose, maxLen: board.MaxBodyLen},

		StateFiles:      {render: renderFiles, handle: handleContinueNoop, class: classPrompt},
		StateEditor:     {render: renderEditor, handle: handleEditor, class: classCompose, maxLen: 200},
		StateCalculator: {render: renderCalculator, handle: handleCalculator, class: classPrompt},
		StateWeather:    {render: renderWeather, handle: handleContinueNoop, class: classPrompt},
		StateStocks:     {render: renderStocks, handle: handleContinueNoop, class: classPrompt},
		StateGames:      {render: renderGames, handle: handleContinueNoop, class: classPrompt},
		StateUtilities:  {render: renderUtilities, handle: handleUtilities, class: classMenu},
		StateSettings:   {render: renderSettings, handle: handleSettings, class: classMenu},
		StatePassword:   {render: renderPassword, handle: handlePassword, class: classPrompt, masked: true, maxLen: 32},
		StateShell:      {render: renderShell, handle: handleShell, class: classPrompt},
		StateTheme:      {render: renderTheme, handle: handleTheme, class: classPrompt},
		StateLogout:     {render: renderLogout, handle: handleLogout, class: classPrompt},

		StateHASetup:    {render: renderHASetup, handle: handleHASetup, class: classMenu},
		StateHAServer:   {render: renderHAServer, handle: handleHAServer, class: classPrompt},
		StateHAPort:     {render: renderHAPort, handle: handleHAPort, class: classPrompt},
		StateHAToken:    {render: renderHAToken, handle: handleHAToken, class: classPrompt},
		StateHAAddLight: {render: renderHAAddLight, handle: handleHAAddLight, class: classPrompt},
		StateHAControl: {render: renderHAControl, handle: handleHAControl, class: classMenu,
			hotkeys: map[byte]MenuState{'M': StateMain}},

		StateMailMenu: {render: renderMailMenu, handle: handleMailMenu, class: classMenu,
			hotkeys: map[byte]MenuState{'I': StateMailInbox, 'C': StateMailComposeTo, 'K': StateMailKeys}},
		StateMailInbox:          {render: renderMailInbox, handle: handleMailInbox, class: classPrompt},
		StateMailSent:           {render: renderMailSent, handle: handleMailSent, class: classPrompt},
		StateMailComposeTo:      {render: renderMailComposeTo, handle: handleMailComposeTo, class: classPrompt, maxLen: 32},
		StateMailComposeSubject: {render: renderMailComposeSubject, handle: handleMailComposeSubject, class: classPrompt},
		StateMailComposeBody:    {render: renderMailComposeBody, handle: handleMailComposeBody, class: classCompose, maxLen: mail.MaxBodyLen},
		StateMailKeys:           {render: renderMailKeys, handle: handleMailKeys, class: classPrompt},
	}
}

// handleContinueNoop backs pure display screens; input other than the
// continue Enter is swallowed by the waiting flag before reaching here.
func handleContinueNoop(s *Session, _ string) (MenuState, error) {
	return s.state, nil
}

// --- Login ---

func renderLoginUser(s *Session) error {
	return s.Term.Send("\r\nUsername: ")
}

func handleLoginUser(s *Session, line string) (MenuState, error) {
	if line == "" {
		return StateLoginUser, nil
	}
	s.pendingUser = line
	return StateLoginPass, nil
}

func renderLoginPass(s *Session) error {
	return s.Term.Send("Password: ")
}

func handleLoginPass(s *Session, line string) (MenuState, error) {
	res, err := s.deps.Auth.Login(s.pendingUser, line)
	s.pendingUser = ""
	if err != nil {
		if !errors.Is(err, auth.ErrBadCredentials) {
			return StateLoginUser, err
		}
		// One rejection for unknown user and wrong password alike.
		if s.deps.Calls != nil {
			s.deps.Calls.AuthFailure(s.ID)
		}
		s.errorLn("Login incorrect.")
		return StateLoginUser, nil
	}

	s.Authed = true
	s.Username = res.Username
	s.Admin = res.Admin
	s.Key = res.Key
	if s.deps.Calls != nil {
		s.deps.Calls.SetUser(s.ID, s.Username)
	}

	s.Term.SendLn("")
	s.headingLn(fmt.Sprintf("Welcome, %s.", s.Username))
	if n, err := s.deps.Mail.UnreadCount(s.Username); err == nil && n > 0 {
		s.Term.SendLn(fmt.Sprintf("You have %d unread message(s).", n))
	}
	return StateMain, nil
}

// --- Main menu ---

func renderMain(s *Session) error {
	s.Term.SendLn("")
	s.headingLn("=== HEARTH * Main Menu ===")
	s.Term.SendLn(" [1] Message Board      [7] Weather")
	s.Term.SendLn(" [2] Secure Mail        [8] Stocks")
	s.Term.SendLn(" [3] Home Control       [9] Games")
	s.Term.SendLn(" [4] File Manager      [10] Utilities")
	s.Term.SendLn(" [5] Line Editor       [11] Settings")
	s.Term.SendLn(" [6] Calculator        [12] Command Shell")
	s.Term.SendLn("")
	s.Term.SendLn(" Hotkeys: M=mail  H=home  B=board  Q=logout")
	return s.Term.Send("Choice: ")
}

var mainChoices = map[int]MenuState{
	1:  StateBoard,
	2:  StateMailMenu,
	3:  StateHAControl,
	4:  StateFiles,
	5:  StateEditor,
	6:  StateCalculator,
	7:  StateWeather,
	8:  StateStocks,
	9:  StateGames,
	10: StateUtilities,
	11: StateSettings,
	12: StateShell,
}

func handleMain(s *Session, line string) (MenuState, error) {
	if line == "" {
		return StateMain, nil
	}
	n, err := strconv.Atoi(line)
	if err != nil {
		s.errorLn("Invalid choice.")
		return StateMain, nil
	}
	next, ok := mainChoices[n]
	if !ok {
		s.errorLn("Invalid choice.")
		return StateMain, nil
	}
	return next, nil
}

// --- Settings ---

func renderSettings(s *Session) error {
	s.Term.SendLn("")
	s.headingLn("--- Settings ---")
	s.Term.SendLn(" [1] Change password")
	s.Term.SendLn(" [2] Theme")
	s.Term.SendLn(" [3] Home automation setup")
	s.Term.SendLn(" [4] Back")
	return s.Term.Send("Choice: ")
}

func handleSettings(s *Session, line string) (MenuState, error) {
	switch line {
	case "1":
		return StatePassword, nil
	case "2":
		return StateTheme, nil
	case "3":
		return StateHASetup, nil
	case "4", "":
		return StateMain, nil
	}
	s.errorLn("Invalid choice.")
	return StateSettings, nil
}

func renderPassword(s *Session) error {
	return s.Term.Send("\r\nNew password (Enter to cancel): ")
}

func handlePassword(s *Session, line string) (MenuState, error) {
	if line == "" {
		return StateSettings, nil
	}
	if err := s.deps.Store.UpdatePassword(s.Username, line); err != nil {
		return StateSettings, err
	}
	s.Term.SendLn("Password changed.")
	return StateSettings, nil
}

// --- Theme ---

var themes = []struct {
	name string
	seq  string
}{
	{"Plain", ""},
	{"Ember", terminal.FgBrightRed},
	{"Forest", terminal.FgBrightGreen},
	{"Ice", terminal.FgBrightCyan},
}

func renderTheme(s *Session) error {
	s.Term.SendLn("")
	s.headingLn("--- Theme ---")
	for i, t := range themes {
		s.Term.SendLn(fmt.Sprintf(" [%d] %s", i+1, t.name))
	}
	return s.Term.Send("Choice (Enter to cancel): ")
}

func handleTheme(s *Session, line string) (MenuState, error) {
	if line == "" {
		return StateSettings, nil
	}
	n, err := strconv.Atoi(line)
	if err != nil || n < 1 || n > len(themes) {
		s.errorLn("Invalid choice.")
		return StateTheme, nil
	}
	s.theme = themes[n-1].seq
	s.Term.SendLn("Theme set: " + themes[n-1].name)
	return StateSettings, nil
}

// --- Logout ---

func renderLogout(s *Session) error {
	return s.Term.Send("\r\nReally log out? (Y/N) ")
}

func handleLogout(s *Session, line string) (MenuState, error) {
	if len(line) == 1 && upperByte(line[0]) == 'Y' {
		s.Term.SendLn("Goodbye!")
		s.logout()
		return s.state, nil
	}
	return StateMain, nil
}

// --- Shared output helpers ---

func (s *Session) banner() {
	s.Term.Cls()
	s.headingLn("  H E A R T H")
	s.Term.SendLn("  home terminal service")
	s.Term.SendLn("")
}

func (s *Session) headingLn(text string) {
	if s.theme != "" {
		s.Term.SetColor(s.theme)
	} else {
		s.Term.SetColor(terminal.FgBrightCyan)
	}
	s.Term.SendLn(text)
	s.Term.ResetColor()
}

func (s *Session) errorLn(text string) {
	s.Term.SetColor(terminal.FgBrightRed)
	s.Term.SendLn(text)
	s.Term.ResetColor()
}
