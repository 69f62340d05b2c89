package board

import (
	"database/sql"
	"errors"
	"fmt"
)

// ErrBodyTooLong is returned when a post exceeds MaxBodyLen.
var ErrBodyTooLong = errors.New("post body too long")

// Repo handles database operations for the public board.
type Repo struct {
	db *sql.DB
}

// NewRepo creates a board repository.
func NewRepo(db *sql.DB) *Repo {
	return &Repo{db: db}
}

// Post appends a board entry.
func (r *Repo) Post(author, body string) error {
	if len(body) > MaxBodyLen {
		return ErrBodyTooLong
	}
	if _, err := r.db.Exec(
		"INSERT INTO board_posts (author, body) VALUES (?, ?)", author, body,
	); err != nil {
		return fmt.Errorf("post to board: %w", err)
	}
	return nil
}

// List returns the newest posts first, up to limit.
func (r *Repo) List(limit int) ([]*Post, error) {
	rows, err := r.db.Query(`
		SELECT id, author, body, created_at
		FROM board_posts ORDER BY id DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list board: %w", err)
	}
	defer rows.Close()

	var posts []*Post
	for rows.Next() {
		p := &Post{}
		if err := rows.Scan(&p.ID, &p.Author, &p.Body, &p.CreatedAt); err != nil {
			return nil, err
		}
		posts = append(posts, p)
	}
	return posts, rows.Err()
}

// Delete removes a post by id.
func (r *Repo) Delete(id int) error {
	_, err := r.db.Exec("DELETE FROM board_posts WHERE id = ?", id)
	return err
}
