package store

import (
	"os"
	"path/filepath"
	"testing"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return s
}

func TestNewSeedsDefaultAdmin(t *testing.T) {
	s := newTestStore(t)

	u, err := s.FindUser("admin")
	if err != nil {
		t.Fatalf("FindUser: %v", err)
	}
	if u.Password != "admin123" || !u.Admin {
		t.Fatalf("unexpected default admin record: %+v", u)
	}

	data, err := os.ReadFile(filepath.Join(s.Dir(), "users.txt"))
	if err != nil {
		t.Fatalf("read users.txt: %v", err)
	}
	if string(data) != "admin:admin123:1\n" {
		t.Fatalf("users.txt format changed: %q", string(data))
	}
}

func TestNewKeepsExistingUsers(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "users.txt"), []byte("alice:pw:0\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	s, err := New(dir)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if s.UserExists("admin") {
		t.Fatalf("seeding must not run when users.txt exists")
	}
	if !s.UserExists("alice") {
		t.Fatalf("existing record lost")
	}
}

func TestUpdatePasswordPreservesOtherRecords(t *testing.T) {
	s := newTestStore(t)
	if err := s.AddUser(UserRecord{Username: "bob", Password: "old"}); err != nil {
		t.Fatalf("AddUser: %v", err)
	}

	if err := s.UpdatePassword("bob", "new"); err != nil {
		t.Fatalf("UpdatePassword: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(s.Dir(), "users.txt"))
	if err != nil {
		t.Fatal(err)
	}
	want := "admin:admin123:1\nbob:new:0\n"
	if string(data) != want {
		t.Fatalf("users.txt = %q, want %q", string(data), want)
	}
}

func TestUpdatePasswordRejectsDelimiterBytes(t *testing.T) {
	s := newTestStore(t)
	for _, pw := range []string{"a:b", "a\nb", "a\rb"} {
		if err := s.UpdatePassword("admin", pw); err == nil {
			t.Fatalf("password %q accepted", pw)
		}
	}
}

func TestAddUserRejectsDuplicate(t *testing.T) {
	s := newTestStore(t)
	if err := s.AddUser(UserRecord{Username: "admin", Password: "x"}); err == nil {
		t.Fatalf("duplicate username accepted")
	}
}

func TestRemoveUser(t *testing.T) {
	s := newTestStore(t)
	if err := s.AddUser(UserRecord{Username: "carol", Password: "pw"}); err != nil {
		t.Fatal(err)
	}
	if err := s.RemoveUser("carol"); err != nil {
		t.Fatalf("RemoveUser: %v", err)
	}
	if s.UserExists("carol") {
		t.Fatalf("record still present")
	}
	if err := s.RemoveUser("carol"); err != ErrUserNotFound {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestHAConfigRoundTripAndCache(t *testing.T) {
	s := newTestStore(t)

	cfg, err := s.LoadHAConfig()
	if err != nil {
		t.Fatalf("LoadHAConfig: %v", err)
	}
	if cfg.Configured() {
		t.Fatalf("fresh store must not be configured")
	}

	want := HAConfig{Server: "192.168.1.50", Port: 8123, Token: "tok"}
	if err := s.SaveHAConfig(want); err != nil {
		t.Fatalf("SaveHAConfig: %v", err)
	}

	got, err := s.LoadHAConfig()
	if err != nil {
		t.Fatal(err)
	}
	if got != want {
		t.Fatalf("got %+v, want %+v", got, want)
	}

	// Edit behind the cache; the stale value must persist until
	// invalidation.
	path := filepath.Join(s.Dir(), "ha", "config.txt")
	if err := os.WriteFile(path, []byte("server=other\nport=80\ntoken=t2\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	got, _ = s.LoadHAConfig()
	if got != want {
		t.Fatalf("cache bypassed: %+v", got)
	}

	s.InvalidateHACache()
	got, _ = s.LoadHAConfig()
	if got.Server != "other" || got.Port != 80 || got.Token != "t2" {
		t.Fatalf("invalidate did not reload: %+v", got)
	}
}

func TestConfiguredRequiresAllFields(t *testing.T) {
	full := HAConfig{Server: "h", Port: 1, Token: "t"}
	if !full.Configured() {
		t.Fatalf("complete config reported unconfigured")
	}
	partials := []HAConfig{
		{Port: 1, Token: "t"},
		{Server: "h", Token: "t"},
		{Server: "h", Port: 1},
	}
	for i, p := range partials {
		if p.Configured() {
			t.Fatalf("partial %d reported configured", i)
		}
	}
}

func TestEntityRecords(t *testing.T) {
	s := newTestStore(t)

	if err := s.AddLight(Entity{ID: "light.hall", Name: "Hall"}); err != nil {
		t.Fatalf("AddLight: %v", err)
	}
	if err := s.AddSensor(Entity{ID: "sensor.temp", Name: "Temperature", Unit: "C"}); err != nil {
		t.Fatalf("AddSensor: %v", err)
	}

	lights, err := s.Lights()
	if err != nil {
		t.Fatal(err)
	}
	if len(lights) != 1 || lights[0].ID != "light.hall" || lights[0].Unit != "" {
		t.Fatalf("unexpected lights: %+v", lights)
	}

	sensors, err := s.Sensors()
	if err != nil {
		t.Fatal(err)
	}
	if len(sensors) != 1 || sensors[0].Unit != "C" {
		t.Fatalf("unexpected sensors: %+v", sensors)
	}

	data, err := os.ReadFile(filepath.Join(s.Dir(), "ha", "sensors.txt"))
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "sensor.temp:Temperature:C\n" {
		t.Fatalf("sensors.txt format changed: %q", string(data))
	}

	if err := s.RemoveLight("light.hall"); err != nil {
		t.Fatalf("RemoveLight: %v", err)
	}
	lights, _ = s.Lights()
	if len(lights) != 0 {
		t.Fatalf("light not removed: %+v", lights)
	}
}

func TestAddEntityRejectsDelimiterBytes(t *testing.T) {
	s := newTestStore(t)
	if err := s.AddLight(Entity{ID: "a:b", Name: "x"}); err == nil {
		t.Fatalf("colon in id accepted")
	}
	if err := s.AddLight(Entity{ID: "a", Name: "x\ny"}); err == nil {
		t.Fatalf("newline in name accepted")
	}
}

func TestWriteLinesReplacesAtomically(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rec.txt")
	if err := writeLines(path, []string{"one", "two"}); err != nil {
		t.Fatalf("writeLines: %v", err)
	}
	if err := writeLines(path, []string{"three"}); err != nil {
		t.Fatalf("writeLines: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "three\n" {
		t.Fatalf("content = %q", string(data))
	}

	// No temp files may survive a completed write.
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Fatalf("leftover files in %s: %d entries", dir, len(entries))
	}
}
