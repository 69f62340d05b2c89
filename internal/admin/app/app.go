// Package app wires the admin tool's collaborators: the record store
// and the SQLite repositories, opened read-write alongside a possibly
// running daemon.
package app

import (
	"errors"
	"log"
	"os"
	"time"

	"github.com/tmarken/hearth_bbs/internal/board"
	"github.com/tmarken/hearth_bbs/internal/calllog"
	"github.com/tmarken/hearth_bbs/internal/config"
	"github.com/tmarken/hearth_bbs/internal/db"
	"github.com/tmarken/hearth_bbs/internal/store"
)

type App struct {
	ConfigPath string
	Config     *config.Config

	Store *store.Store
	DB    *db.DB

	Board *board.Repo
	Calls *calllog.Repo

	BusyTimeout time.Duration
}

func New(configPath string) (*App, func(), error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, nil, err
		}
		cfg = config.Default()
	}

	st, err := store.New(cfg.Paths.Data)
	if err != nil {
		return nil, nil, err
	}

	a := &App{
		ConfigPath:  configPath,
		Config:      cfg,
		Store:       st,
		BusyTimeout: 5 * time.Second,
	}

	// The board and call log screens degrade when the database is
	// unavailable; record-file screens still work.
	database, err := db.Open(cfg.Paths.Database)
	if err != nil {
		log.Printf("Warning: database unavailable: %v", err)
		return a, func() {}, nil
	}
	a.DB = database
	a.Board = board.NewRepo(database.DB)
	a.Calls = calllog.NewRepo(database.DB)

	// Best-effort online use: reduce SQLITE_BUSY failures.
	_, _ = database.Exec("PRAGMA busy_timeout = 5000")

	cleanup := func() {
		_ = database.Close()
	}
	return a, cleanup, nil
}
