// Package calllog records one row per connection for later audit.
package calllog

import (
	"database/sql"
	"fmt"
	"time"
)

// Call is one session's audit row.
type Call struct {
	ID             string
	Username       string
	RemoteAddr     string
	ConnectedAt    time.Time
	DisconnectedAt *time.Time
	AuthFailures   int
}

// Repo handles database operations for the call log.
type Repo struct {
	db *sql.DB
}

// NewRepo creates a call log repository.
func NewRepo(db *sql.DB) *Repo {
	return &Repo{db: db}
}

// Begin records a new connection.
func (r *Repo) Begin(id, remoteAddr string) error {
	_, err := r.db.Exec(`
		INSERT INTO call_log (id, remote_addr, connected_at) VALUES (?, ?, ?)
	`, id, remoteAddr, time.Now())
	if err != nil {
		return fmt.Errorf("begin call %s: %w", id, err)
	}
	return nil
}

// SetUser attaches the authenticated username to a call.
func (r *Repo) SetUser(id, username string) error {
	_, err := r.db.Exec("UPDATE call_log SET username = ? WHERE id = ?", username, id)
	return err
}

// AuthFailure counts one failed login attempt on a call.
func (r *Repo) AuthFailure(id string) error {
	_, err := r.db.Exec("UPDATE call_log SET auth_failures = auth_failures + 1 WHERE id = ?", id)
	return err
}

// End stamps the disconnect time.
func (r *Repo) End(id string) error {
	_, err := r.db.Exec("UPDATE call_log SET disconnected_at = ? WHERE id = ?", time.Now(), id)
	return err
}

// List returns the most recent calls, newest first.
func (r *Repo) List(limit int) ([]*Call, error) {
	rows, err := r.db.Query(`
		SELECT id, username, remote_addr, connected_at, disconnected_at, auth_failures
		FROM call_log ORDER BY connected_at DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list calls: %w", err)
	}
	defer rows.Close()

	var calls []*Call
	for rows.Next() {
		c := &Call{}
		var disc sql.NullTime
		if err := rows.Scan(&c.ID, &c.Username, &c.RemoteAddr, &c.ConnectedAt, &disc, &c.AuthFailures); err != nil {
			return nil, err
		}
		if disc.Valid {
			c.DisconnectedAt = &disc.Time
		}
		calls = append(calls, c)
	}
	return calls, rows.Err()
}
