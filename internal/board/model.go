package board

import "time"

// MaxBodyLen is the accepted body length for a board post.
const MaxBodyLen = 200

// Post is one public board entry.
type Post struct {
	ID        int
	Author    string
	Body      string
	CreatedAt time.Time
}
