package cli

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/runnerr0/dailyverse/internal/archive"
	"github.com/runnerr0/dailyverse/internal/config"
	"github.com/runnerr0/dailyverse/internal/logging"
	"github.com/runnerr0/dailyverse/internal/selector"
	"github.com/runnerr0/dailyverse/internal/storage"
	"github.com/runnerr0/dailyverse/internal/verse"
)

// app bundles everything a command needs. Commands build one from the
// config file; tests inject their own.
type app struct {
	cfg      *config.Config
	dbPath   string
	db       *sql.DB
	store    *storage.SQLiteStore
	fetcher  *archive.Fetcher
	selector *selector.Selector
	repo     *verse.Repository
	log      *slog.Logger
	now      func() time.Time
	closers  []io.Closer
}

// loadConfig reads the file named by --config, or the default location.
func loadConfig(globals *GlobalFlags) (*config.Config, error) {
	if globals != nil && globals.Config != "" {
		return config.Load(globals.Config)
	}
	return config.LoadOrCreate()
}

// openApp loads the configuration and wires logging, storage, fetcher,
// selector and repository.
func openApp(globals *GlobalFlags) (*app, error) {
	cfg, err := loadConfig(globals)
	if err != nil {
		return nil, err
	}

	logFile, err := cfg.LogFilePath()
	if err != nil {
		return nil, err
	}
	level := cfg.Logging.Level
	if globals != nil && globals.Verbose {
		level = "debug"
	}
	logger, logCloser, err := logging.New(logging.Options{
		Level:  level,
		Format: cfg.Logging.Format,
		File:   logFile,
	}, os.Stderr)
	if err != nil {
		return nil, fmt.Errorf("init logging: %w", err)
	}

	dbPath, err := cfg.DBPath()
	if err != nil {
		logCloser.Close()
		return nil, err
	}
	db, err := openDB(dbPath, cfg.Storage.SQLiteJournalMode)
	if err != nil {
		logCloser.Close()
		return nil, err
	}

	cacheDir, err := cfg.CacheDirPath()
	if err != nil {
		db.Close()
		logCloser.Close()
		return nil, err
	}

	a, err := newApp(cfg, db, cacheDir, logger, time.Now)
	if err != nil {
		db.Close()
		logCloser.Close()
		return nil, err
	}
	a.dbPath = dbPath
	a.closers = append(a.closers, db, logCloser)
	return a, nil
}

// openDB opens the SQLite database at path and applies migrations.
func openDB(path, journalMode string) (*sql.DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	runner := storage.NewMigrationRunner(db).WithJournalMode(journalMode)
	if err := runner.Run(); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return db, nil
}

// newApp wires the components on top of an opened, migrated database.
func newApp(cfg *config.Config, db *sql.DB, cacheDir string, logger *slog.Logger, now func() time.Time) (*app, error) {
	store, err := storage.NewSQLiteStore(db)
	if err != nil {
		return nil, fmt.Errorf("init store: %w", err)
	}

	fetcher := archive.NewFetcher(archive.Options{
		URLTemplate:    cfg.Archive.URLTemplate,
		Dir:            cacheDir,
		Dataset:        cfg.Archive.Dataset,
		ConnectTimeout: cfg.Archive.ConnectTimeout,
		ReadTimeout:    cfg.Archive.ReadTimeout,
		Logger:         logger,
	})
	sel := selector.New(store, selector.Options{
		BalanceOrder:    cfg.Selector.BalanceOrder,
		SessionRotation: cfg.Selector.SessionRotation,
		Now:             now,
		Logger:          logger,
	})
	repo := verse.New(fetcher, store, sel, verse.Options{
		DefaultDataset: cfg.Bundled.DefaultDataset,
		Datasets:       cfg.Bundled.Datasets,
		Logger:         logger,
	})

	return &app{
		cfg:      cfg,
		db:       db,
		store:    store,
		fetcher:  fetcher,
		selector: sel,
		repo:     repo,
		log:      logger,
		now:      now,
		closers:  []io.Closer{store},
	}, nil
}

// Close releases the store, database and log file.
func (a *app) Close() error {
	for _, c := range a.closers {
		c.Close()
	}
	return nil
}

// withApp runs fn against the injected app, or one opened from config.
func withApp(injected *app, globals *GlobalFlags, fn func(*app) error) error {
	if injected != nil {
		return fn(injected)
	}
	a, err := openApp(globals)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(a)
}

// printJSON writes v to stdout as indented JSON.
func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func wantJSON(globals *GlobalFlags) bool {
	return globals != nil && globals.JSON
}
