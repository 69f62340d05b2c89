package mail

import (
	"errors"

	"github.com/tmarken/hearth_bbs/internal/mailcrypt"
)

// ErrBodyTooLong is returned when a body exceeds MaxBodyLen.
var ErrBodyTooLong = errors.New("message body too long")

// Compose delivers a message: the body is encrypted with the sender's
// live session key into the recipient's inbox, and a plaintext courtesy
// copy goes to the sender's own sent folder. The caller is responsible
// for verifying the recipient exists in the user store.
func (s *Store) Compose(from, to, subject string, body []byte, key mailcrypt.Key) error {
	if len(body) > MaxBodyLen {
		return ErrBodyTooLong
	}

	// The recipient may never have logged in yet.
	if err := s.EnsureMailbox(to); err != nil {
		return err
	}
	if err := s.EnsureMailbox(from); err != nil {
		return err
	}

	cipher := mailcrypt.Transform(body, key)
	if err := s.Deliver(to, FolderInbox, from, subject, cipher); err != nil {
		return err
	}
	return s.Deliver(from, FolderSent, from, subject, body)
}
