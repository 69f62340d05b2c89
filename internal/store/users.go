package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// UserRecord is one line of users.txt: username:password:isAdmin(0|1).
type UserRecord struct {
	Username string
	Password string
	Admin    bool
}

// ErrUserNotFound is returned when no record matches a username.
var ErrUserNotFound = errors.New("user not found")

func (s *Store) usersPath() string { return filepath.Join(s.dir, "users.txt") }

// ensureDefaultAdmin writes the install-time admin account when users.txt
// does not exist yet.
func (s *Store) ensureDefaultAdmin() error {
	path := s.usersPath()
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("stat %s: %w", path, err)
	}
	return writeLines(path, []string{"admin:admin123:1"})
}

// Users returns every user record in file order.
func (s *Store) Users() ([]UserRecord, error) {
	lines, err := readLines(s.usersPath())
	if err != nil {
		return nil, err
	}

	var users []UserRecord
	for _, line := range lines {
		if u, ok := parseUser(line); ok {
			users = append(users, u)
		}
	}
	return users, nil
}

// FindUser scans for the first record with the given username. No index
// is kept; the scan order is the file order.
func (s *Store) FindUser(username string) (*UserRecord, error) {
	users, err := s.Users()
	if err != nil {
		return nil, err
	}
	for _, u := range users {
		if u.Username == username {
			u := u
			return &u, nil
		}
	}
	return nil, ErrUserNotFound
}

// UserExists reports whether a username has a record.
func (s *Store) UserExists(username string) bool {
	_, err := s.FindUser(username)
	return err == nil
}

// UpdatePassword rewrites the matching user's record with a new password.
func (s *Store) UpdatePassword(username, newPassword string) error {
	if strings.ContainsAny(newPassword, ":\r\n") {
		return errors.New("password contains invalid characters")
	}

	found := false
	err := replaceRecords(s.usersPath(), func(line string) (string, bool) {
		u, ok := parseUser(line)
		if !ok || u.Username != username {
			return line, true
		}
		found = true
		return formatUser(UserRecord{Username: u.Username, Password: newPassword, Admin: u.Admin}), true
	})
	if err != nil {
		return err
	}
	if !found {
		return ErrUserNotFound
	}
	return nil
}

// AddUser appends a new user record. Duplicate usernames are rejected;
// the first record would shadow the new one on every lookup.
func (s *Store) AddUser(u UserRecord) error {
	if u.Username == "" || strings.ContainsAny(u.Username, ":\r\n") {
		return errors.New("username contains invalid characters")
	}
	if strings.ContainsAny(u.Password, ":\r\n") {
		return errors.New("password contains invalid characters")
	}
	if s.UserExists(u.Username) {
		return errors.New("username already exists")
	}
	return appendLine(s.usersPath(), formatUser(u))
}

// RemoveUser deletes every record matching the username.
func (s *Store) RemoveUser(username string) error {
	found := false
	err := replaceRecords(s.usersPath(), func(line string) (string, bool) {
		u, ok := parseUser(line)
		if ok && u.Username == username {
			found = true
			return "", false
		}
		return line, true
	})
	if err != nil {
		return err
	}
	if !found {
		return ErrUserNotFound
	}
	return nil
}

// SetAdmin rewrites the matching user's admin flag.
func (s *Store) SetAdmin(username string, admin bool) error {
	found := false
	err := replaceRecords(s.usersPath(), func(line string) (string, bool) {
		u, ok := parseUser(line)
		if !ok || u.Username != username {
			return line, true
		}
		found = true
		u.Admin = admin
		return formatUser(u), true
	})
	if err != nil {
		return err
	}
	if !found {
		return ErrUserNotFound
	}
	return nil
}

func parseUser(line string) (UserRecord, bool) {
	parts := strings.Split(line, ":")
	if len(parts) != 3 || parts[0] == "" {
		return UserRecord{}, false
	}
	return UserRecord{
		Username: parts[0],
		Password: parts[1],
		Admin:    parts[2] == "1",
	}, true
}

func formatUser(u UserRecord) string {
	admin := "0"
	if u.Admin {
		admin = "1"
	}
	return fmt.Sprintf("%s:%s:%s", u.Username, u.Password, admin)
}
