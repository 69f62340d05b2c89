// Package auth validates credentials against the user store and
// provisions a session on success.
package auth

import (
	"errors"

	"github.com/tmarken/hearth_bbs/internal/mail"
	"github.com/tmarken/hearth_bbs/internal/mailcrypt"
	"github.com/tmarken/hearth_bbs/internal/store"
)

// ErrBadCredentials is the single rejection for both unknown users and
// wrong passwords; callers must not be able to tell them apart.
var ErrBadCredentials = errors.New("invalid credentials")

// Result describes a successful login.
type Result struct {
	Username string
	Admin    bool
	Key      mailcrypt.Key
}

// Authenticator validates logins and provisions mailboxes.
type Authenticator struct {
	store *store.Store
	mail  *mail.Store
}

// New creates an Authenticator over the given stores.
func New(st *store.Store, ms *mail.Store) *Authenticator {
	return &Authenticator{store: st, mail: ms}
}

// Login scans the user records in file order; the first username match
// wins. On success it derives the session mail key and lazily creates
// the user's mailbox directories.
func (a *Authenticator) Login(username, password string) (*Result, error) {
	users, err := a.store.Users()
	if err != nil {
		return nil, err
	}

	for _, u := range users {
		if u.Username != username {
			continue
		}
		if u.Password != password {
			return nil, ErrBadCredentials
		}
		if err := a.mail.EnsureMailbox(u.Username); err != nil {
			return nil, err
		}
		return &Result{
			Username: u.Username,
			Admin:    u.Admin,
			Key:      mailcrypt.Derive(u.Username),
		}, nil
	}
	return nil, ErrBadCredentials
}
