package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/tmarken/hearth_bbs/internal/auth"
	"github.com/tmarken/hearth_bbs/internal/board"
	"github.com/tmarken/hearth_bbs/internal/calllog"
	"github.com/tmarken/hearth_bbs/internal/config"
	"github.com/tmarken/hearth_bbs/internal/db"
	"github.com/tmarken/hearth_bbs/internal/homeauto"
	"github.com/tmarken/hearth_bbs/internal/mail"
	"github.com/tmarken/hearth_bbs/internal/server"
	"github.com/tmarken/hearth_bbs/internal/session"
	"github.com/tmarken/hearth_bbs/internal/shell"
	"github.com/tmarken/hearth_bbs/internal/store"
	"github.com/tmarken/hearth_bbs/internal/terminal"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			log.Fatalf("Failed to load config: %v", err)
		}
		log.Printf("No config at %s, using defaults", *configPath)
		cfg = config.Default()
	}

	st, err := store.New(cfg.Paths.Data)
	if err != nil {
		log.Fatalf("Failed to open data store: %v", err)
	}

	mailStore := mail.NewStore(st.MailRoot())
	authn := auth.New(st, mailStore)
	haClient := homeauto.New(st, time.Duration(cfg.Timeouts.HARequest)*time.Second)

	// The board and call log ride on SQLite; the core service runs
	// without them if the database cannot be opened.
	var boardRepo *board.Repo
	var callRepo *calllog.Repo
	database, err := db.Open(cfg.Paths.Database)
	if err != nil {
		log.Printf("Warning: database unavailable (%v); board and call log disabled", err)
	} else {
		defer database.Close()
		boardRepo = board.NewRepo(database.DB)
		callRepo = calllog.NewRepo(database.DB)
	}

	deps := session.Deps{
		Store:    st,
		Mail:     mailStore,
		Auth:     authn,
		HA:       haClient,
		Board:    boardRepo,
		Calls:    callRepo,
		Shell:    shell.New(),
		Timeouts: cfg.Timeouts,
	}

	gate := session.NewGate()

	// handleConnection runs one caller on an already-framed byte stream.
	handleConnection := func(term *terminal.Terminal, remoteAddr string) {
		if !gate.Acquire() {
			term.SendLn("The line is busy. Please call back later.")
			term.Close()
			return
		}
		defer gate.Release()

		session.New(term, remoteAddr, deps).Run()
	}

	telnetListener := server.NewTelnetListener(cfg.Server.TelnetPort, func(tc *server.TelnetConn) {
		if err := tc.Negotiate(); err != nil {
			log.Printf("Telnet negotiation from %s: %v", tc.RemoteAddr(), err)
			tc.Close()
			return
		}
		term := terminal.New(tc, tc.Width, tc.Height, tc.ANSICapable)
		handleConnection(term, tc.RemoteAddr().String())
	})
	go func() {
		if err := telnetListener.ListenAndServe(); err != nil {
			log.Fatalf("Telnet server: %v", err)
		}
	}()

	hostKeyPath := filepath.Join(cfg.Paths.Data, "ssh_host_key")
	sshListener, err := server.NewSSHListener(cfg.Server.SSHPort, hostKeyPath, func(sc *server.SSHConn, remoteAddr string) {
		term := terminal.New(sc, sc.Width, sc.Height, sc.ANSICapable)
		handleConnection(term, remoteAddr)
	})
	if err != nil {
		log.Fatalf("Failed to create SSH listener: %v", err)
	}
	go func() {
		if err := sshListener.ListenAndServe(); err != nil {
			log.Fatalf("SSH server: %v", err)
		}
	}()

	stopWatch, err := watchHARecords(st)
	if err != nil {
		log.Printf("Warning: config watch unavailable: %v", err)
	} else {
		defer stopWatch()
	}

	fmt.Println("Hearth is running")
	fmt.Printf("  Telnet: port %d\n", cfg.Server.TelnetPort)
	fmt.Printf("  SSH:    port %d\n", cfg.Server.SSHPort)
	fmt.Println("\nPress Ctrl+C to shut down.")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh

	log.Printf("Received signal %v, shutting down", sig)
}
