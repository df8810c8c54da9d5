package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/evcharge-console/internal/app"
	"github.com/nhle/evcharge-console/internal/cache"
	"github.com/nhle/evcharge-console/internal/gateway"
	"github.com/nhle/evcharge-console/internal/inbox"
	"github.com/nhle/evcharge-console/internal/model"
	"github.com/nhle/evcharge-console/internal/session"
	appsync "github.com/nhle/evcharge-console/internal/sync"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "evcharge: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := model.LoadConfig(model.DefaultConfigPath())
	if err != nil {
		return err
	}

	// The terminal owns stdout; route background logging to a file.
	if logFile := openLogFile(); logFile != nil {
		defer logFile.Close()
		log.SetOutput(logFile)
	}

	sess, err := session.Load()
	if err != nil {
		return fmt.Errorf("loading session: %w", err)
	}

	var snapshots *cache.Cache
	if cfg.Cache.Path != "" {
		snapshots, err = cache.Open(cfg.Cache.Path)
		if err != nil {
			// The cache is a convenience; run without it.
			log.Printf("opening snapshot cache: %v", err)
		} else {
			defer snapshots.Close()
		}
	}

	gw := gateway.NewREST(cfg.Server.BaseURL, sess)
	store := inbox.New(gw, sess)
	poller := appsync.New(
		store, gw, sess,
		time.Duration(cfg.Server.PollIntervalSec)*time.Second,
	)

	program := tea.NewProgram(
		app.New(store, poller, sess, snapshots),
		tea.WithAltScreen(),
	)
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("running UI: %w", err)
	}

	return nil
}

// openLogFile opens the log file next to the config, or returns nil when
// that fails (logging then stays on stderr).
func openLogFile() *os.File {
	dir := filepath.Dir(model.DefaultConfigPath())
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil
	}

	f, err := os.OpenFile(
		filepath.Join(dir, "evcharge.log"),
		os.O_CREATE|os.O_APPEND|os.O_WRONLY,
		0o644,
	)
	if err != nil {
		return nil
	}
	return f
}
