package session

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/tmarken/hearth_bbs/internal/mail"
	"github.com/tmarken/hearth_bbs/internal/mailcrypt"
)

// --- Mail menu ---

func renderMailMenu(s *Session) error {
	s.Term.SendLn("")
	s.headingLn("--- Secure Mail ---")

	unread, err := s.deps.Mail.UnreadCount(s.Username)
	if err == nil {
		s.Term.SendLn(fmt.Sprintf(" %d unread", unread))
	}
	s.Term.SendLn(" [1] Inbox      (I)")
	s.Term.SendLn(" [2] Compose    (C)")
	s.Term.SendLn(" [3] Sent")
	s.Term.SendLn(" [4] Key management (K)")
	s.Term.SendLn(" [5] Back")
	return s.Term.Send("Choice: ")
}

func handleMailMenu(s *Session, line string) (MenuState, error) {
	switch line {
	case "1":
		return StateMailInbox, nil
	case "2":
		return StateMailComposeTo, nil
	case "3":
		return StateMailSent, nil
	case "4":
		return StateMailKeys, nil
	case "5", "":
		return StateMain, nil
	}
	s.errorLn("Invalid choice.")
	return StateMailMenu, nil
}

// --- Inbox / sent listings ---

func renderMailInbox(s *Session) error {
	return s.renderFolder(mail.FolderInbox, "Inbox", "Msg # to read, D<#> to delete, [Enter] back: ")
}

func renderMailSent(s *Session) error {
	return s.renderFolder(mail.FolderSent, "Sent", "Msg # to view, [Enter] back: ")
}

func (s *Session) renderFolder(folder, title, prompt string) error {
	s.Term.SendLn("")
	s.headingLn("--- " + title + " ---")

	files, err := s.deps.Mail.List(s.Username, folder)
	if err != nil {
		s.errorLn("Error reading mailbox.")
		s.pressEnter(StateMailMenu)
		return nil
	}
	if len(files) == 0 {
		s.Term.SendLn(" (empty)")
	}
	for i := range files {
		msg, err := s.deps.Mail.Peek(s.Username, folder, i+1)
		if err != nil {
			s.Term.SendLn(fmt.Sprintf(" %2d. (unreadable)", i+1))
			continue
		}
		flag := " "
		if folder == mail.FolderInbox && !msg.Read {
			flag = "*"
		}
		s.Term.SendLn(fmt.Sprintf(" %2d.%s %-12s %s", i+1, flag, msg.From, msg.Subject))
	}
	return s.Term.Send(prompt)
}

func handleMailInbox(s *Session, line string) (MenuState, error) {
	if line == "" {
		return StateMailMenu, nil
	}

	if len(line) > 1 && upperByte(line[0]) == 'D' {
		n, err := strconv.Atoi(strings.TrimSpace(line[1:]))
		if err != nil {
			s.errorLn("Invalid choice.")
			return StateMailInbox, nil
		}
		if err := s.deps.Mail.Delete(s.Username, mail.FolderInbox, n); err != nil {
			if errors.Is(err, mail.ErrNoSuchMessage) {
				s.errorLn("No such message.")
				return StateMailInbox, nil
			}
			return StateMailInbox, err
		}
		s.Term.SendLn("Deleted.")
		return StateMailInbox, nil
	}

	n, err := strconv.Atoi(line)
	if err != nil {
		s.errorLn("Invalid choice.")
		return StateMailInbox, nil
	}
	return s.showMessage(mail.FolderInbox, n, StateMailInbox)
}

func handleMailSent(s *Session, line string) (MenuState, error) {
	if line == "" {
		return StateMailMenu, nil
	}
	n, err := strconv.Atoi(line)
	if err != nil {
		s.errorLn("Invalid choice.")
		return StateMailSent, nil
	}
	return s.showMessage(mail.FolderSent, n, StateMailSent)
}

// showMessage displays one message; inbox bodies are decrypted with the
// live session key before display.
func (s *Session) showMessage(folder string, n int, ret MenuState) (MenuState, error) {
	msg, err := s.deps.Mail.ReadOrdinal(s.Username, folder, n)
	if err != nil {
		if errors.Is(err, mail.ErrNoSuchMessage) {
			s.errorLn("No such message.")
			return ret, nil
		}
		return ret, err
	}

	body := msg.Body
	if folder == mail.FolderInbox {
		body = mailcrypt.Transform(body, s.Key)
	}

	s.Term.SendLn("")
	s.Term.SendLn("From:    " + msg.From)
	s.Term.SendLn("Subject: " + msg.Subject)
	if !msg.Time.IsZero() {
		s.Term.SendLn("Time:    " + msg.Time.Format("2006-01-02 15:04:05"))
	}
	s.Term.SendLn(strings.Repeat("-", 40))
	s.Term.SendLn(printableOnly(body))
	s.pressEnter(ret)
	return ret, nil
}

// printableOnly masks bytes outside printable ASCII. A body encrypted
// under an older key decrypts to garbage; show it without corrupting the
// terminal rather than pretending it is readable.
func printableOnly(body []byte) string {
	out := make([]byte, len(body))
	for i, b := range body {
		if b >= 32 && b <= 126 {
			out[i] = b
		} else {
			out[i] = '?'
		}
	}
	return string(out)
}

// --- Compose ---

func renderMailComposeTo(s *Session) error {
	return s.Term.Send("\r\nTo (Enter to cancel): ")
}

func handleMailComposeTo(s *Session, line string) (MenuState, error) {
	if line == "" {
		return StateMailMenu, nil
	}
	if !s.deps.Store.UserExists(line) {
		s.errorLn("No such user.")
		return StateMailComposeTo, nil
	}
	s.composeTo = line
	return StateMailComposeSubject, nil
}

func renderMailComposeSubject(s *Session) error {
	return s.Term.Send("Subject: ")
}

func handleMailComposeSubject(s *Session, line string) (MenuState, error) {
	if line == "" {
		s.composeTo = ""
		return StateMailMenu, nil
	}
	s.composeSubject = line
	return StateMailComposeBody, nil
}

func renderMailComposeBody(s *Session) error {
	return s.Term.Send(fmt.Sprintf("Body (max %d chars, Enter to cancel):\r\n> ", mail.MaxBodyLen))
}

func handleMailComposeBody(s *Session, line string) (MenuState, error) {
	to, subject := s.composeTo, s.composeSubject
	s.composeTo, s.composeSubject = "", ""
	if line == "" {
		return StateMailMenu, nil
	}

	err := s.deps.Mail.Compose(s.Username, to, subject, []byte(line), s.Key)
	if err != nil {
		if errors.Is(err, mail.ErrBodyTooLong) {
			s.errorLn("Message too long.")
			return StateMailMenu, nil
		}
		if errors.Is(err, mail.ErrMailboxFull) {
			s.errorLn("Recipient's mailbox is full.")
			return StateMailMenu, nil
		}
		return StateMailMenu, err
	}
	s.Term.SendLn("Sent.")
	return StateMailMenu, nil
}

// --- Key management ---

func renderMailKeys(s *Session) error {
	s.Term.SendLn("")
	s.headingLn("--- Mail Key Management ---")
	s.Term.SendLn("Your mail key is derived from this device and your")
	s.Term.SendLn("identity at login and is never stored.")
	s.Term.SendLn("")
	s.errorLn("WARNING: regenerating the key makes every message already")
	s.errorLn("in your inbox PERMANENTLY unreadable. This cannot be undone.")
	return s.Term.Send("Type YES to regenerate, anything else to cancel: ")
}

func handleMailKeys(s *Session, line string) (MenuState, error) {
	if line != "YES" {
		s.Term.SendLn("Cancelled.")
		return StateMailMenu, nil
	}
	s.Key = mailcrypt.Derive(s.Username)
	s.Term.SendLn("New key in effect for this session.")
	return StateMailMenu, nil
}
