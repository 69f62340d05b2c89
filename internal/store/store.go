package store

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Store owns the line-record files under the data directory: the user
// store, the home-automation config and the entity lists. Record formats
// are fixed plain-text shapes shared with earlier deployments, so writes
// must reproduce them byte for byte.
type Store struct {
	dir string

	mu      sync.Mutex
	haCache *HAConfig // nil when not loaded or invalidated
}

// New opens the store rooted at dir, creating the directory layout and the
// initial user record when absent. Failure here is fatal to the process:
// nothing else can run without persistent storage.
func New(dir string) (*Store, error) {
	s := &Store{dir: dir}

	for _, d := range []string{dir, filepath.Join(dir, "ha"), filepath.Join(dir, "mail")} {
		if err := os.MkdirAll(d, 0o755); err != nil {
			return nil, fmt.Errorf("create %s: %w", d, err)
		}
	}

	if err := s.ensureDefaultAdmin(); err != nil {
		return nil, err
	}

	return s, nil
}

// Dir returns the data directory root.
func (s *Store) Dir() string { return s.dir }

// MailRoot returns the directory holding per-user mailboxes.
func (s *Store) MailRoot() string { return filepath.Join(s.dir, "mail") }

// haDir returns the directory holding home-automation record files.
func (s *Store) haDir() string { return filepath.Join(s.dir, "ha") }

// readLines returns the non-empty lines of a record file. A missing file
// reads as an empty record set.
func readLines(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	var lines []string
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimRight(line, "\r")
		if line != "" {
			lines = append(lines, line)
		}
	}
	return lines, nil
}

// writeLines replaces a record file with the given lines. The new content
// is written to a temporary file in the same directory and renamed over
// the original, so readers never observe a half-written file.
func writeLines(path string, lines []string) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp*")
	if err != nil {
		return fmt.Errorf("create temp for %s: %w", path, err)
	}
	tmpName := tmp.Name()

	var sb strings.Builder
	for _, line := range lines {
		sb.WriteString(line)
		sb.WriteByte('\n')
	}

	if _, err := tmp.WriteString(sb.String()); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close %s: %w", tmpName, err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace %s: %w", path, err)
	}
	return nil
}

// appendLine appends a single record line to a file.
func appendLine(path, line string) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	if _, err := f.WriteString(line + "\n"); err != nil {
		return fmt.Errorf("append %s: %w", path, err)
	}
	return nil
}

// replaceRecords rewrites a record file, mapping each line through fn.
// fn returns the replacement line and whether to keep the record; all
// other lines pass through untouched.
func replaceRecords(path string, fn func(line string) (string, bool)) error {
	lines, err := readLines(path)
	if err != nil {
		return err
	}

	out := make([]string, 0, len(lines))
	for _, line := range lines {
		if repl, keep := fn(line); keep {
			out = append(out, repl)
		}
	}
	return writeLines(path, out)
}
