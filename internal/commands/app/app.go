// Package app bootstraps the shared collaborators every command-surface
// adapter needs: the settings file, the shared sqlite store opened once per
// process, and the Fetch Manager wired up exactly the way
// cmd/paperfuse-worker/main.go wires it for the Headless Worker. Both the
// cobra command tree (internal/commands) and the MCP tool server
// (internal/commands/mcp) build on this single bootstrap so the two host
// surfaces never drift into separate wiring.
package app

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/paperfuse/core/internal/aiclient"
	"github.com/paperfuse/core/internal/arxiv"
	"github.com/paperfuse/core/internal/cache"
	"github.com/paperfuse/core/internal/config"
	"github.com/paperfuse/core/internal/fetchmanager"
	"github.com/paperfuse/core/internal/latex"
	"github.com/paperfuse/core/internal/paperstore"
	"github.com/paperfuse/core/internal/pdf"
	"github.com/paperfuse/core/internal/scheduler"
)

// App holds every collaborator a command-surface adapter may need. It owns
// the single sqlite connection shared by all stores (spec §6 "Persisted
// state layout": one relational file).
type App struct {
	Config   *config.Config
	DB       *sql.DB
	Papers   *paperstore.Store
	Cache    *cache.Store
	History  *fetchmanager.HistoryStore
	Schedule *scheduler.Store
	Manager  *fetchmanager.Manager
	PDF      *pdf.Fetcher

	LatexDir string
	PDFDir   string
}

// Open loads settings, opens the shared database, and constructs every
// collaborator the Fetch Manager needs, mirroring cmd/paperfuse-worker's
// wiring (the AI client is omitted when no provider credential is
// configured, per spec §4.G.2 step 4).
func Open() (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}

	dbPath, err := config.DBPath()
	if err != nil {
		return nil, fmt.Errorf("resolve database path: %w", err)
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	papers, err := paperstore.Open(db)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("open paper store: %w", err)
	}
	cacheStore, err := cache.Open(db)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("open classification cache: %w", err)
	}
	history, err := fetchmanager.OpenHistoryStore(db)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("open fetch history store: %w", err)
	}
	schedStore, err := scheduler.Open(db)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("open schedule store: %w", err)
	}

	var ai *aiclient.Client
	if providerCfg, perr := cfg.ActiveProviderConfig(); perr == nil && providerCfg.APIKey != "" {
		ai, err = aiclient.New(providerCfg)
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("construct AI client: %w", err)
		}
	}

	latexDir := cfg.LatexDownloadDir
	if latexDir == "" {
		if d, derr := config.DefaultLatexDir(); derr == nil {
			latexDir = d
		}
	}
	pdfDir, perr := config.DefaultPDFDir()
	if perr != nil {
		pdfDir = ""
	}

	mgr := fetchmanager.New(papers, cacheStore, arxiv.NewClient(0), latex.NewDownloader(0), ai, history, &cfg.Retry)

	return &App{
		Config:   cfg,
		DB:       db,
		Papers:   papers,
		Cache:    cacheStore,
		History:  history,
		Schedule: schedStore,
		Manager:  mgr,
		PDF:      pdf.NewFetcher(0),
		LatexDir: latexDir,
		PDFDir:   pdfDir,
	}, nil
}

// Close releases the shared database connection.
func (a *App) Close() error {
	return a.DB.Close()
}

// SaveConfig persists a.Config, invalidating the classification cache if
// the topic set changed (spec §4.B).
func (a *App) SaveConfig() error {
	return config.Save(a.Config, a.Cache)
}

// ConsecutiveFailures reads the schedule-run failure streak, treating a
// read error as zero so callers degrade gracefully rather than blocking on
// an audit-log hiccup.
func (a *App) ConsecutiveFailures() int {
	n, err := a.Schedule.ConsecutiveFailures()
	if err != nil {
		return 0
	}
	return n
}

// HasAPIKey reports whether the active provider has a credential configured.
func (a *App) HasAPIKey() bool {
	pc, err := a.Config.ActiveProviderConfig()
	return err == nil && pc.APIKey != ""
}
