package board

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/tmarken/hearth_bbs/internal/db"
)

func newTestRepo(t *testing.T) *Repo {
	t.Helper()
	database, err := db.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("db.Open: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	return NewRepo(database.DB)
}

func TestPostAndListNewestFirst(t *testing.T) {
	r := newTestRepo(t)

	for _, body := range []string{"first", "second", "third"} {
		if err := r.Post("alice", body); err != nil {
			t.Fatalf("Post: %v", err)
		}
	}

	posts, err := r.List(10)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(posts) != 3 {
		t.Fatalf("got %d posts", len(posts))
	}
	if posts[0].Body != "third" || posts[2].Body != "first" {
		t.Fatalf("wrong order: %q ... %q", posts[0].Body, posts[2].Body)
	}
	if posts[0].Author != "alice" {
		t.Fatalf("author = %q", posts[0].Author)
	}
}

func TestListHonorsLimit(t *testing.T) {
	r := newTestRepo(t)
	for i := 0; i < 5; i++ {
		if err := r.Post("bob", "post"); err != nil {
			t.Fatal(err)
		}
	}
	posts, err := r.List(2)
	if err != nil {
		t.Fatal(err)
	}
	if len(posts) != 2 {
		t.Fatalf("limit ignored: %d posts", len(posts))
	}
}

func TestPostBodyCap(t *testing.T) {
	r := newTestRepo(t)

	if err := r.Post("carol", strings.Repeat("x", MaxBodyLen)); err != nil {
		t.Fatalf("body at cap rejected: %v", err)
	}
	if err := r.Post("carol", strings.Repeat("x", MaxBodyLen+1)); err != ErrBodyTooLong {
		t.Fatalf("expected ErrBodyTooLong, got %v", err)
	}
}

func TestDelete(t *testing.T) {
	r := newTestRepo(t)
	if err := r.Post("dave", "gone soon"); err != nil {
		t.Fatal(err)
	}
	posts, _ := r.List(10)
	if len(posts) != 1 {
		t.Fatalf("setup: %d posts", len(posts))
	}

	if err := r.Delete(posts[0].ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	posts, _ = r.List(10)
	if len(posts) != 0 {
		t.Fatalf("post still present")
	}
}
