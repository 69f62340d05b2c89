package calllog

import (
	"path/filepath"
	"testing"

	"github.com/google/uuid"

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

func TestCallLifecycle(t *testing.T) {
	r := newTestRepo(t)
	id := uuid.NewString()

	if err := r.Begin(id, "192.0.2.1:50000"); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if err := r.AuthFailure(id); err != nil {
		t.Fatalf("AuthFailure: %v", err)
	}
	if err := r.SetUser(id, "alice"); err != nil {
		t.Fatalf("SetUser: %v", err)
	}
	if err := r.End(id); err != nil {
		t.Fatalf("End: %v", err)
	}

	calls, err := r.List(10)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(calls) != 1 {
		t.Fatalf("got %d calls", len(calls))
	}

	c := calls[0]
	if c.ID != id || c.Username != "alice" || c.RemoteAddr != "192.0.2.1:50000" {
		t.Fatalf("unexpected call: %+v", c)
	}
	if c.AuthFailures != 1 {
		t.Fatalf("auth failures = %d", c.AuthFailures)
	}
	if c.DisconnectedAt == nil {
		t.Fatalf("disconnect time not recorded")
	}
}

func TestListNewestFirstWithOpenCall(t *testing.T) {
	r := newTestRepo(t)

	first := uuid.NewString()
	if err := r.Begin(first, "192.0.2.1:1"); err != nil {
		t.Fatal(err)
	}
	if err := r.End(first); err != nil {
		t.Fatal(err)
	}

	second := uuid.NewString()
	if err := r.Begin(second, "192.0.2.2:2"); err != nil {
		t.Fatal(err)
	}

	calls, err := r.List(10)
	if err != nil {
		t.Fatal(err)
	}
	if len(calls) != 2 {
		t.Fatalf("got %d calls", len(calls))
	}
	if calls[0].ID != second {
		t.Fatalf("newest call not first")
	}
	if calls[0].DisconnectedAt != nil {
		t.Fatalf("open call has a disconnect time")
	}
	if calls[0].Username != "" {
		t.Fatalf("unauthenticated call has username %q", calls[0].Username)
	}
}
