// Command paperfuse-worker is the headless scheduled-fetch entrypoint (spec
// §4.I): a single-shot process invoked by the OS scheduler (cron/systemd
// timer/Task Scheduler) that loads persisted settings, validates the
// schedule's preconditions, runs one fetch with no event emitter, and
// records the outcome as a ScheduleRun. Exit code 0 on success, 1 on any
// failure — the failure itself is already captured in the ScheduleRun.
package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"

	_ "modernc.org/sqlite"

	"github.com/paperfuse/core/internal/aiclient"
	"github.com/paperfuse/core/internal/arxiv"
	"github.com/paperfuse/core/internal/cache"
	"github.com/paperfuse/core/internal/config"
	"github.com/paperfuse/core/internal/fetchmanager"
	"github.com/paperfuse/core/internal/latex"
	"github.com/paperfuse/core/internal/paperstore"
	"github.com/paperfuse/core/internal/scheduler"
	"github.com/paperfuse/core/internal/types"
)

func main() {
	os.Exit(run())
}

// run executes one headless fetch and returns the process exit code,
// keeping main itself trivial and testable-by-inspection.
func run() int {
	log := slog.New(slog.NewTextHandler(os.Stderr, nil))

	cfg, err := config.Load()
	if err != nil {
		log.Error("load settings", "error", err)
		return 1
	}

	dbPath, err := config.DBPath()
	if err != nil {
		log.Error("resolve database path", "error", err)
		return 1
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		log.Error("open database", "error", err)
		return 1
	}
	defer db.Close()

	schedStore, err := scheduler.Open(db)
	if err != nil {
		log.Error("open schedule store", "error", err)
		return 1
	}

	if !cfg.Schedule.Enabled {
		log.Info("schedule disabled, nothing to do")
		return recordRefusal(schedStore, "schedule is disabled")
	}

	providerCfg, perr := cfg.ActiveProviderConfig()
	hasAPIKey := perr == nil && providerCfg.APIKey != ""

	consecutive, cferr := schedStore.ConsecutiveFailures()
	if cferr != nil {
		log.Warn("read consecutive failures, assuming zero", "error", cferr)
	}

	if verr := scheduler.ValidateEnable(scheduler.EnableConfig{
		Frequency: cfg.Schedule.Frequency,
		TimeOfDay: cfg.Schedule.TimeOfDay,
		Weekdays:  cfg.Schedule.Weekdays,
		Topics:    cfg.Topics,
		HasAPIKey: hasAPIKey,
	}, consecutive); verr != nil {
		log.Error("schedule prerequisites not met", "error", verr)
		return recordRefusal(schedStore, verr.Error())
	}

	papers, err := paperstore.Open(db)
	if err != nil {
		log.Error("open paper store", "error", err)
		return 1
	}
	cacheStore, err := cache.Open(db)
	if err != nil {
		log.Error("open classification cache", "error", err)
		return 1
	}
	history, err := fetchmanager.OpenHistoryStore(db)
	if err != nil {
		log.Error("open fetch history store", "error", err)
		return 1
	}

	var ai *aiclient.Client
	if hasAPIKey {
		ai, err = aiclient.New(providerCfg)
		if err != nil {
			log.Error("construct AI client", "error", err)
			return 1
		}
	}

	latexDir := cfg.LatexDownloadDir
	if latexDir == "" {
		if d, derr := config.DefaultLatexDir(); derr == nil {
			latexDir = d
		}
	}

	mgr := fetchmanager.New(papers, cacheStore, arxiv.NewClient(0), latex.NewDownloader(0), ai, history, &cfg.Retry)

	// Spec §4.I: overrides on top of the persisted defaults.
	opts := cfg.ToFetchOptions()
	opts.DaysBack = 1
	opts.DeepAnalysis = false
	opts.MinRelevance = 50

	runID, err := schedStore.StartRun()
	if err != nil {
		log.Warn("failed to start schedule run", "error", err)
	}

	agg, ferr := mgr.FetchPapers(context.Background(), opts, cfg.Topics, types.TriggerScheduled, cfg.Retry, latexDir, nil)

	status := types.RunCompleted
	errMsg := ""
	if ferr != nil {
		status = types.RunFailed
		errMsg = ferr.Error()
		log.Error("fetch failed", "error", ferr)
	}
	if runID != "" {
		if cerr := schedStore.CompleteRun(runID, status, agg.Counters.Found, agg.Counters.Saved, errMsg); cerr != nil {
			log.Warn("failed to complete schedule run", "error", cerr)
		}
	}

	if ferr != nil {
		consecutive, cferr := schedStore.ConsecutiveFailures()
		if cferr == nil && scheduler.ShouldAutoDisable(consecutive) {
			log.Warn("auto-disabling schedule after consecutive failures", "count", consecutive)
			cfg.Schedule.Enabled = false
			if serr := config.Save(cfg, cacheStore); serr != nil {
				log.Warn("failed to persist auto-disable", "error", serr)
			}
		}
		return 1
	}

	log.Info("fetch completed", "saved", agg.Counters.Saved, "filtered", agg.Counters.Filtered, "duplicates", agg.Counters.Duplicates)
	return 0
}

// recordRefusal writes a failed ScheduleRun for a precondition rejection
// (spec §4.I "refuse to run ... recording a failed ScheduleRun") and
// returns the process exit code.
func recordRefusal(store *scheduler.Store, reason string) int {
	id, err := store.StartRun()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to record refused run: %v\n", err)
		return 1
	}
	if err := store.CompleteRun(id, types.RunFailed, 0, 0, reason); err != nil {
		fmt.Fprintf(os.Stderr, "failed to complete refused run: %v\n", err)
	}
	return 1
}
