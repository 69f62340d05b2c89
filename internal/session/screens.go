package session

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/tmarken/hearth_bbs/internal/board"
	"github.com/tmarken/hearth_bbs/internal/mail"
)

// --- Message board ---

func renderBoard(s *Session) error {
	s.Term.SendLn("")
	s.headingLn("--- Message Board ---")
	if s.deps.Board == nil {
		s.Term.SendLn("The board is not available.")
		return s.Term.Send("[Enter] back: ")
	}

	posts, err := s.deps.Board.List(10)
	if err != nil {
		s.errorLn("Error reading the board.")
		return s.Term.Send("[Enter] back: ")
	}
	if len(posts) == 0 {
		s.Term.SendLn("No posts yet.")
	}
	for _, p := range posts {
		s.Term.SendLn(fmt.Sprintf(" %s <%s>", p.CreatedAt.Format("Jan 02 15:04"), p.Author))
		s.Term.SendLn("   " + p.Body)
	}
	return s.Term.Send("\r\n[P]ost, [Enter] back: ")
}

func handleBoard(s *Session, line string) (MenuState, error) {
	if line == "" {
		return StateMain, nil
	}
	if upperByte(line[0]) == 'P' && len(line) == 1 {
		return StateBoardPost, nil
	}
	s.errorLn("Invalid choice.")
	return StateBoard, nil
}

func renderBoardPost(s *Session) error {
	return s.Term.Send(fmt.Sprintf("\r\nPost (max %d chars, Enter to cancel):\r\n> ", board.MaxBodyLen))
}

func handleBoardPost(s *Session, line string) (MenuState, error) {
	if line == "" {
		return StateBoard, nil
	}
	if s.deps.Board == nil {
		s.errorLn("The board is not available.")
		return StateBoard, nil
	}
	if err := s.deps.Board.Post(s.Username, line); err != nil {
		if errors.Is(err, board.ErrBodyTooLong) {
			s.errorLn("Post too long.")
			return StateBoardPost, nil
		}
		return StateBoard, err
	}
	s.Term.SendLn("Posted.")
	return StateBoard, nil
}

// --- File manager ---

func renderFiles(s *Session) error {
	s.Term.SendLn("")
	s.headingLn("--- File Manager ---")
	s.Term.SendLn("Your mailbox storage:")

	for _, folder := range []string{mail.FolderInbox, mail.FolderSent} {
		s.Term.SendLn(" " + folder + "/")
		files, err := s.deps.Mail.List(s.Username, folder)
		if err != nil {
			s.errorLn("   error reading folder")
			continue
		}
		if len(files) == 0 {
			s.Term.SendLn("   (empty)")
		}
		for _, f := range files {
			size := int64(0)
			if fi, err := os.Stat(filepath.Join(s.deps.Store.MailRoot(), s.Username, folder, f)); err == nil {
				size = fi.Size()
			}
			s.Term.SendLn(fmt.Sprintf("   %-16s %6d bytes", f, size))
		}
	}
	s.pressEnter(StateMain)
	return nil
}

// --- Line editor ---

const maxEditorLines = 50

func renderEditor(s *Session) error {
	if len(s.editorLines) == 0 {
		s.Term.SendLn("")
		s.headingLn("--- Line Editor ---")
		s.Term.SendLn("Type lines; a single . ends the document.")
	}
	return s.Term.Send(fmt.Sprintf("%3d> ", len(s.editorLines)+1))
}

func handleEditor(s *Session, line string) (MenuState, error) {
	if line == "." {
		s.Term.SendLn(fmt.Sprintf("Document finished: %d line(s).", len(s.editorLines)))
		s.editorLines = nil
		s.pressEnter(StateMain)
		return StateEditor, nil
	}
	if len(s.editorLines) >= maxEditorLines {
		s.errorLn("Document full; finish with a single .")
		return StateEditor, nil
	}
	s.editorLines = append(s.editorLines, line)
	return StateEditor, nil
}

// --- Calculator ---

func renderCalculator(s *Session) error {
	return s.Term.Send("\r\ncalc (e.g. 2 + 3, Enter to return): ")
}

func handleCalculator(s *Session, line string) (MenuState, error) {
	if line == "" {
		return StateMain, nil
	}
	parts := strings.Fields(line)
	if len(parts) != 3 {
		s.errorLn("Use: <number> <op> <number>")
		return StateCalculator, nil
	}
	a, errA := strconv.ParseFloat(parts[0], 64)
	b, errB := strconv.ParseFloat(parts[2], 64)
	if errA != nil || errB != nil {
		s.errorLn("Use: <number> <op> <number>")
		return StateCalculator, nil
	}

	var result float64
	switch parts[1] {
	case "+":
		result = a + b
	case "-":
		result = a - b
	case "*":
		result = a * b
	case "/":
		if b == 0 {
			s.errorLn("Division by zero.")
			return StateCalculator, nil
		}
		result = a / b
	default:
		s.errorLn("Operators: + - * /")
		return StateCalculator, nil
	}
	s.Term.SendLn(fmt.Sprintf("= %g", result))
	return StateCalculator, nil
}

// --- Static displays ---

func renderWeather(s *Session) error {
	s.Term.SendLn("")
	s.headingLn("--- Weather ---")
	s.Term.SendLn(" Today     partly cloudy   18/24 C")
	s.Term.SendLn(" Tomorrow  showers         15/20 C")
	s.Term.SendLn(" Saturday  sunny           17/26 C")
	s.Term.SendLn(" (demo data; wire a sensor for live readings)")
	s.pressEnter(StateMain)
	return nil
}

func renderStocks(s *Session) error {
	s.Term.SendLn("")
	s.headingLn("--- Stocks ---")
	s.Term.SendLn(" ACME   102.40  +1.2%")
	s.Term.SendLn(" GLOBX   48.15  -0.4%")
	s.Term.SendLn(" NORD    77.90  +0.1%")
	s.Term.SendLn(" (demo data)")
	s.pressEnter(StateMain)
	return nil
}

func renderGames(s *Session) error {
	s.Term.SendLn("")
	s.headingLn("--- Games ---")
	s.Term.SendLn(" Nothing installed on this line yet.")
	s.pressEnter(StateMain)
	return nil
}

// --- Utilities ---

func renderUtilities(s *Session) error {
	s.Term.SendLn("")
	s.headingLn("--- Utilities ---")
	s.Term.SendLn(" [1] Session info")
	s.Term.SendLn(" [2] Server time")
	s.Term.SendLn(" [3] Back")
	return s.Term.Send("Choice: ")
}

func handleUtilities(s *Session, line string) (MenuState, error) {
	switch line {
	case "1":
		s.Term.SendLn("Session " + s.ID)
		s.Term.SendLn("Caller  " + s.Remote)
		s.Term.SendLn("User    " + s.Username)
		return StateUtilities, nil
	case "2":
		s.Term.SendLn(time.Now().Format("2006-01-02 15:04:05 MST"))
		return StateUtilities, nil
	case "3", "":
		return StateMain, nil
	}
	s.errorLn("Invalid choice.")
	return StateUtilities, nil
}

// --- Command shell ---

func renderShell(s *Session) error {
	s.Term.SendLn("")
	s.headingLn("--- Command Shell ---")
	if !s.Admin {
		s.Term.SendLn("Admins only.")
		s.pressEnter(StateMain)
		return nil
	}
	if s.deps.Shell == nil {
		s.Term.SendLn("Shell not available.")
		s.pressEnter(StateMain)
		return nil
	}
	s.Term.SendLn("Commands: " + strings.Join(s.deps.Shell.Commands(), " "))
	return s.Term.Send("cmd (Enter to return)> ")
}

func handleShell(s *Session, line string) (MenuState, error) {
	if line == "" {
		return StateMain, nil
	}
	if s.deps.Shell == nil || !s.deps.Shell.Allowed(line) {
		s.errorLn("Not an allowed command.")
		return StateShell, nil
	}
	s.Term.SendLn("")
	if err := s.deps.Shell.Run(line, s.Term); err != nil {
		s.errorLn("Command failed.")
	}
	return StateShell, nil
}
