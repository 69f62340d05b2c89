// Package mail manages per-user mailbox directories, message numbering
// and read markers.
//
// Layout: <root>/<username>/inbox and <root>/<username>/sent. A message
// is a plain file with From/Subject/Time header lines, a literal ---
// delimiter and the body bytes: ciphertext in an inbox copy, plaintext in
// the sender's sent copy. A sibling <file>.read marker, by existing,
// records that a message has been opened.
package mail

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	// MaxMessages caps the linear probe for a free message slot.
	MaxMessages = 100
	// MaxBodyLen is the accepted body length for direct mail.
	MaxBodyLen = 300

	// FolderInbox and FolderSent name the two mailbox folders.
	FolderInbox = "inbox"
	FolderSent  = "sent"

	markerSuffix = ".read"
	timeLayout   = "2006-01-02 15:04:05"
)

// ErrMailboxFull is returned when no message slot is free.
var ErrMailboxFull = errors.New("mailbox is full")

// ErrNoSuchMessage is returned when an ordinal does not resolve.
var ErrNoSuchMessage = errors.New("no such message")

// Message is a parsed mailbox file. Body holds the raw stored bytes:
// ciphertext for inbox copies, plaintext for sent copies.
type Message struct {
	File    string
	From    string
	Subject string
	Time    time.Time
	Body    []byte
	Read    bool
}

// Store manages the mailbox tree under root.
type Store struct {
	root string
}

// NewStore creates a mail store rooted at root.
func NewStore(root string) *Store {
	return &Store{root: root}
}

func (s *Store) folder(user, folder string) string {
	return filepath.Join(s.root, user, folder)
}

// EnsureMailbox lazily creates a user's inbox and sent directories.
// Called on first login.
func (s *Store) EnsureMailbox(user string) error {
	for _, f := range []string{FolderInbox, FolderSent} {
		if err := os.MkdirAll(s.folder(user, f), 0o755); err != nil {
			return fmt.Errorf("create mailbox for %s: %w", user, err)
		}
	}
	return nil
}

// isMarker reports whether a directory entry is a read marker rather
// than a message. This is an exact suffix check: the original system
// matched the substring ".read" anywhere in the name, which misclassifies
// a message file that merely contains it.
func isMarker(name string) bool {
	return strings.HasSuffix(name, markerSuffix)
}

// List enumerates the message files of a folder, excluding markers.
// Ordinal positions are stable only between enumerations with no
// intervening mutation.
func (s *Store) List(user, folder string) ([]string, error) {
	entries, err := os.ReadDir(s.folder(user, folder))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("list %s/%s: %w", user, folder, err)
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() || isMarker(e.Name()) {
			continue
		}
		files = append(files, e.Name())
	}
	return files, nil
}

// UnreadCount scans the inbox and counts messages lacking a read marker.
func (s *Store) UnreadCount(user string) (int, error) {
	files, err := s.List(user, FolderInbox)
	if err != nil {
		return 0, err
	}

	count := 0
	for _, f := range files {
		if !s.isRead(user, f) {
			count++
		}
	}
	return count, nil
}

func (s *Store) isRead(user, file string) bool {
	_, err := os.Stat(filepath.Join(s.folder(user, FolderInbox), file+markerSuffix))
	return err == nil
}

// MarkRead records that an inbox message has been opened. Idempotent:
// marking twice leaves exactly one marker.
func (s *Store) MarkRead(user, file string) error {
	path := filepath.Join(s.folder(user, FolderInbox), file+markerSuffix)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("mark read %s: %w", file, err)
	}
	return f.Close()
}

// Peek returns the nth message (1-based) without marking it read.
func (s *Store) Peek(user, folder string, n int) (*Message, error) {
	files, err := s.List(user, folder)
	if err != nil {
		return nil, err
	}
	if n < 1 || n > len(files) {
		return nil, ErrNoSuchMessage
	}

	msg, err := s.readFile(user, folder, files[n-1])
	if err != nil {
		return nil, err
	}
	if folder == FolderInbox {
		msg.Read = s.isRead(user, files[n-1])
	}
	return msg, nil
}

// ReadOrdinal re-enumerates the folder and returns the nth message
// (1-based). Inbox reads mark the message read.
func (s *Store) ReadOrdinal(user, folder string, n int) (*Message, error) {
	files, err := s.List(user, folder)
	if err != nil {
		return nil, err
	}
	if n < 1 || n > len(files) {
		return nil, ErrNoSuchMessage
	}

	file := files[n-1]
	msg, err := s.readFile(user, folder, file)
	if err != nil {
		return nil, err
	}

	if folder == FolderInbox {
		msg.Read = s.isRead(user, file)
		if err := s.MarkRead(user, file); err != nil {
			return nil, err
		}
	}
	return msg, nil
}

func (s *Store) readFile(user, folder, file string) (*Message, error) {
	data, err := os.ReadFile(filepath.Join(s.folder(user, folder), file))
	if err != nil {
		return nil, fmt.Errorf("read message %s: %w", file, err)
	}

	header, body, found := bytes.Cut(data, []byte("\n---\n"))
	if !found {
		return nil, fmt.Errorf("message %s: missing body delimiter", file)
	}
	body = bytes.TrimSuffix(body, []byte("\n"))

	msg := &Message{File: file, Body: body}
	for _, line := range strings.Split(string(header), "\n") {
		switch {
		case strings.HasPrefix(line, "From: "):
			msg.From = line[len("From: "):]
		case strings.HasPrefix(line, "Subject: "):
			msg.Subject = line[len("Subject: "):]
		case strings.HasPrefix(line, "Time: "):
			msg.Time, _ = time.Parse(timeLayout, line[len("Time: "):])
		}
	}
	return msg, nil
}

// Deliver writes a message file into a user's folder using the first
// free numeric slot. Low numbers vacated by deletion get reused.
func (s *Store) Deliver(user, folder, from, subject string, body []byte) error {
	dir := s.folder(user, folder)
	file, err := nextSlot(dir)
	if err != nil {
		return err
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "From: %s\n", from)
	fmt.Fprintf(&sb, "Subject: %s\n", subject)
	fmt.Fprintf(&sb, "Time: %s\n", time.Now().Format(timeLayout))
	sb.WriteString("---\n")

	content := append([]byte(sb.String()), body...)
	content = append(content, '\n')

	if err := os.WriteFile(filepath.Join(dir, file), content, 0o644); err != nil {
		return fmt.Errorf("write message %s: %w", file, err)
	}
	return nil
}

// Delete removes a message by ordinal along with its read marker.
func (s *Store) Delete(user, folder string, n int) error {
	files, err := s.List(user, folder)
	if err != nil {
		return err
	}
	if n < 1 || n > len(files) {
		return ErrNoSuchMessage
	}

	dir := s.folder(user, folder)
	file := files[n-1]
	if err := os.Remove(filepath.Join(dir, file)); err != nil {
		return fmt.Errorf("delete message %s: %w", file, err)
	}
	os.Remove(filepath.Join(dir, file+markerSuffix))
	return nil
}

// nextSlot probes msg001.txt..msg100.txt for the first unused name.
func nextSlot(dir string) (string, error) {
	for i := 1; i <= MaxMessages; i++ {
		name := fmt.Sprintf("msg%03d.txt", i)
		if _, err := os.Stat(filepath.Join(dir, name)); os.IsNotExist(err) {
			return name, nil
		}
	}
	return "", ErrMailboxFull
}
