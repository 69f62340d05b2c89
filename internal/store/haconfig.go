package store

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
)

// HAConfig is the home-automation target, persisted as key=value lines in
// ha/config.txt.
type HAConfig struct {
	Server string
	Port   int
	Token  string
}

// Configured reports whether the target is usable: all three of server,
// port and token must be present.
func (c HAConfig) Configured() bool {
	return c.Server != "" && c.Port != 0 && c.Token != ""
}

func (s *Store) haConfigPath() string { return filepath.Join(s.haDir(), "config.txt") }

// LoadHAConfig reads the home-automation target. The parsed config is
// cached until saved again or invalidated by the file watcher. A missing
// file yields a zero (not configured) config.
func (s *Store) LoadHAConfig() (HAConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.haCache != nil {
		return *s.haCache, nil
	}

	lines, err := readLines(s.haConfigPath())
	if err != nil {
		return HAConfig{}, err
	}

	var cfg HAConfig
	for _, line := range lines {
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		switch key {
		case "server":
			cfg.Server = value
		case "port":
			cfg.Port, _ = strconv.Atoi(value)
		case "token":
			cfg.Token = value
		}
	}

	s.haCache = &cfg
	return cfg, nil
}

// SaveHAConfig writes the target and refreshes the cache.
func (s *Store) SaveHAConfig(cfg HAConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	lines := []string{
		"server=" + cfg.Server,
		"port=" + strconv.Itoa(cfg.Port),
		"token=" + cfg.Token,
	}
	if err := writeLines(s.haConfigPath(), lines); err != nil {
		return fmt.Errorf("save ha config: %w", err)
	}

	s.haCache = &cfg
	return nil
}

// InvalidateHACache drops the cached config so the next load re-reads the
// files. Called by the watcher when ha/ records change on disk.
func (s *Store) InvalidateHACache() {
	s.mu.Lock()
	s.haCache = nil
	s.mu.Unlock()
}
