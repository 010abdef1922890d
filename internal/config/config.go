// Package config loads and persists PaperFuse's settings file: provider
// credentials, topics, schedule, fetch defaults, retry tuning, and the LaTeX
// download directory. Grounded on the teacher's internal/utils/config.go
// (load-with-applyDefaults, JSON file under an app directory in the home folder,
// 0600 permissions) and on original_source/src-tauri/src/models/settings.rs
// for the field shape (RetryConfig, per-provider API keys/models, schedule
// fields, arxiv_categories, latex_download_path, async/concurrency knobs).
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/paperfuse/core/internal/cache"
	"github.com/paperfuse/core/internal/consts"
	"github.com/paperfuse/core/internal/retry"
	"github.com/paperfuse/core/internal/scheduler"
	"github.com/paperfuse/core/internal/types"
)

// ScheduleConfig holds the recurring-fetch schedule settings (spec §4.H).
type ScheduleConfig struct {
	Enabled   bool                `json:"enabled"`
	Frequency scheduler.Frequency `json:"frequency"`
	TimeOfDay string              `json:"time_of_day"`
	Weekdays  []int               `json:"weekdays,omitempty"`
}

// FetchDefaults seeds FetchOptions for commands and the Headless Worker
// that don't override every field explicitly (spec §4.G.1, §4.I).
type FetchDefaults struct {
	DaysBack              int    `json:"days_back"`
	MaxPapers             int    `json:"max_papers"`
	MinRelevance          int    `json:"min_relevance"`
	DeepAnalysis          bool   `json:"deep_analysis"`
	DeepAnalysisThreshold int    `json:"deep_analysis_threshold"`
	AnalysisMode          string `json:"analysis_mode"`
	AsyncMode             string `json:"async_mode"`
	MaxConcurrent         int    `json:"max_concurrent"`
	Language              string `json:"language"`
}

// Config is the full persisted settings document.
type Config struct {
	ActiveProvider string                          `json:"active_provider"`
	Providers      map[string]types.ProviderConfig `json:"providers"`
	Topics         []types.TopicConfig             `json:"topics"`
	Schedule       ScheduleConfig                  `json:"schedule"`
	Fetch          FetchDefaults                   `json:"fetch"`
	Retry          retry.Config                    `json:"retry"`
	LatexDownloadDir string                        `json:"latex_download_dir,omitempty"`
	Debug          bool                            `json:"debug,omitempty"`
}

// DefaultConfig returns the out-of-the-box settings document.
func DefaultConfig() *Config {
	return &Config{
		ActiveProvider: consts.ProviderClaude,
		Providers: map[string]types.ProviderConfig{
			consts.ProviderClaude: {
				Name:       consts.ProviderClaude,
				QuickModel: consts.DefaultClaudeQuickModel,
				DeepModel:  consts.DefaultClaudeDeepModel,
			},
			consts.ProviderGLM: {
				Name:       consts.ProviderGLM,
				BaseURL:    consts.DefaultGLMBaseURL,
				QuickModel: consts.DefaultGLMQuickModel,
				DeepModel:  consts.DefaultGLMDeepModel,
			},
			consts.ProviderGoogle: {
				Name:       consts.ProviderGoogle,
				QuickModel: consts.DefaultGoogleQuickModel,
				DeepModel:  consts.DefaultGoogleDeepModel,
			},
		},
		Topics: nil,
		Schedule: ScheduleConfig{
			Enabled:   false,
			Frequency: scheduler.FrequencyDaily,
			TimeOfDay: "09:00",
		},
		Fetch: FetchDefaults{
			DaysBack:              1,
			MaxPapers:             50,
			MinRelevance:          50,
			DeepAnalysis:          false,
			DeepAnalysisThreshold: consts.DefaultDeepAnalysisThreshold,
			AnalysisMode:          "standard",
			AsyncMode:             "sequential",
			MaxConcurrent:         consts.DefaultMinConcurrent,
			Language:              "en",
		},
		Retry: retry.DefaultConfig(),
	}
}

// Dir returns the application directory <home>/com.paperfuse.app, creating
// it if absent. Mirrors the teacher's GetConfigPath, generalized from a
// single-dotfile layout to an app directory (settings.json sitting
// alongside paperfuse.db). The same home-relative path is used on every
// platform; the OS-specific user-data locations (Application Support,
// %APPDATA%, ~/.local/share) are not used.
func Dir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get user home directory: %w", err)
	}
	appDir := filepath.Join(homeDir, consts.AppDirName)
	if err := os.MkdirAll(appDir, 0o755); err != nil {
		return "", fmt.Errorf("create app directory: %w", err)
	}
	return appDir, nil
}

// Path returns the settings file path, creating the app directory if
// needed.
func Path() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, consts.ConfigFileName), nil
}

// DBPath returns the path to the shared relational store file.
func DBPath() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, consts.DBFileName), nil
}

// DefaultLatexDir returns the fallback LaTeX download/cache directory used
// when Config.LatexDownloadDir is unset (spec §6: a leaf under the user's
// Documents folder).
func DefaultLatexDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get user home directory: %w", err)
	}
	return filepath.Join(homeDir, "Documents", consts.LatexCacheDirName), nil
}

// DefaultPDFDir returns the directory downloaded PDFs are cached under
// (spec §6 "download-PDF"), a sibling of DefaultLatexDir.
func DefaultPDFDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get user home directory: %w", err)
	}
	return filepath.Join(homeDir, "Documents", consts.PDFCacheDirName), nil
}

// Load reads settings from disk, returning DefaultConfig if no file exists
// yet. Missing fields in an older settings file are backfilled via
// applyDefaults, mirroring the teacher's load-then-patch behavior.
func Load() (*Config, error) {
	path, err := Path()
	if err != nil {
		return nil, err
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return DefaultConfig(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read settings file: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse settings file: %w", err)
	}
	applyDefaults(&cfg)
	return &cfg, nil
}

// applyDefaults backfills zero-valued fields against DefaultConfig so that
// settings files written by an earlier version stay usable.
func applyDefaults(cfg *Config) {
	d := DefaultConfig()

	if cfg.ActiveProvider == "" {
		cfg.ActiveProvider = d.ActiveProvider
	}
	if cfg.Providers == nil {
		cfg.Providers = d.Providers
	}
	if cfg.Schedule.Frequency == "" {
		cfg.Schedule.Frequency = d.Schedule.Frequency
	}
	if cfg.Schedule.TimeOfDay == "" {
		cfg.Schedule.TimeOfDay = d.Schedule.TimeOfDay
	}

	if cfg.Fetch.DaysBack == 0 {
		cfg.Fetch.DaysBack = d.Fetch.DaysBack
	}
	if cfg.Fetch.MaxPapers == 0 {
		cfg.Fetch.MaxPapers = d.Fetch.MaxPapers
	}
	if cfg.Fetch.MinRelevance == 0 {
		cfg.Fetch.MinRelevance = d.Fetch.MinRelevance
	}
	if cfg.Fetch.DeepAnalysisThreshold == 0 {
		cfg.Fetch.DeepAnalysisThreshold = d.Fetch.DeepAnalysisThreshold
	}
	if cfg.Fetch.AnalysisMode == "" {
		cfg.Fetch.AnalysisMode = d.Fetch.AnalysisMode
	}
	if cfg.Fetch.AsyncMode == "" {
		cfg.Fetch.AsyncMode = d.Fetch.AsyncMode
	}
	if cfg.Fetch.MaxConcurrent == 0 {
		cfg.Fetch.MaxConcurrent = d.Fetch.MaxConcurrent
	}
	if cfg.Fetch.Language == "" {
		cfg.Fetch.Language = d.Fetch.Language
	}

	if cfg.Retry.MaxRetries == 0 {
		cfg.Retry.MaxRetries = d.Retry.MaxRetries
	}
	if cfg.Retry.InitialBackoff == 0 {
		cfg.Retry.InitialBackoff = d.Retry.InitialBackoff
	}
	if cfg.Retry.MaxBackoff == 0 {
		cfg.Retry.MaxBackoff = d.Retry.MaxBackoff
	}
	if cfg.Retry.Multiplier == 0 {
		cfg.Retry.Multiplier = d.Retry.Multiplier
	}
	if cfg.Retry.RequestTimeout == 0 {
		cfg.Retry.RequestTimeout = d.Retry.RequestTimeout
	}
	if cfg.Retry.MaxTotalDuration == 0 {
		cfg.Retry.MaxTotalDuration = d.Retry.MaxTotalDuration
	}
}

// Save writes cfg to the settings file at 0600, atomically invalidating the
// classification cache when the topics set changes (spec §4.B: "when
// persisted settings are updated, compare hash(old_topics) vs
// hash(new_topics); if different, invoke clear_all()"). Pass a nil
// cacheStore to skip invalidation (e.g. before the store is opened).
func Save(cfg *Config, cacheStore *cache.Store) error {
	if cacheStore != nil {
		previous, err := Load()
		if err == nil {
			oldHash := cache.TopicsHash(previous.Topics)
			newHash := cache.TopicsHash(cfg.Topics)
			if _, err := cache.InvalidateIfChanged(cacheStore, oldHash, newHash); err != nil {
				return fmt.Errorf("invalidate cache for topic change: %w", err)
			}
		}
	}

	path, err := Path()
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write settings file: %w", err)
	}
	return nil
}

// ActiveProviderConfig returns the ProviderConfig for cfg.ActiveProvider, or
// an error if it has no entry.
func (cfg *Config) ActiveProviderConfig() (types.ProviderConfig, error) {
	pc, ok := cfg.Providers[cfg.ActiveProvider]
	if !ok {
		return types.ProviderConfig{}, fmt.Errorf("no provider config for %q", cfg.ActiveProvider)
	}
	return pc, nil
}

// ToFetchOptions builds default FetchOptions from the persisted fetch
// defaults plus the union of enabled topic categories (spec §4.I: categories
// unioned across enabled topics; max_papers = max(topic.max_papers_per_day),
// default 50).
func (cfg *Config) ToFetchOptions() types.FetchOptions {
	var categories []string
	seen := make(map[string]struct{})
	maxPapers := 0
	for _, t := range cfg.Topics {
		if !t.Enabled {
			continue
		}
		for _, c := range t.ArxivCategories {
			if _, ok := seen[c]; ok {
				continue
			}
			seen[c] = struct{}{}
			categories = append(categories, c)
		}
		if t.MaxPapersPerDay > maxPapers {
			maxPapers = t.MaxPapersPerDay
		}
	}
	if maxPapers == 0 {
		maxPapers = cfg.Fetch.MaxPapers
	}

	return types.FetchOptions{
		Categories:            categories,
		DaysBack:              cfg.Fetch.DaysBack,
		MaxPapers:             maxPapers,
		MinRelevance:          cfg.Fetch.MinRelevance,
		DeepAnalysis:          cfg.Fetch.DeepAnalysis,
		DeepAnalysisThreshold: cfg.Fetch.DeepAnalysisThreshold,
		AnalysisMode:          cfg.Fetch.AnalysisMode,
		AsyncMode:             cfg.Fetch.AsyncMode,
		MaxConcurrent:         cfg.Fetch.MaxConcurrent,
		Language:              cfg.Fetch.Language,
		Provider:              cfg.ActiveProvider,
	}
}
