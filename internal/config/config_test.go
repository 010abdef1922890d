package config

import (
	"database/sql"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	_ "modernc.org/sqlite"

	"github.com/paperfuse/core/internal/cache"
	"github.com/paperfuse/core/internal/types"
)

// withHome redirects os.UserHomeDir's result by setting HOME (and USERPROFILE
// for completeness); Dir/Path/Load/Save all resolve through it.
func withHome(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Setenv("USERPROFILE", dir)
	return dir
}

func TestLoadReturnsDefaultsWhenNoFileExists(t *testing.T) {
	withHome(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ActiveProvider != "claude" {
		t.Fatalf("expected default active provider claude, got %q", cfg.ActiveProvider)
	}
	if cfg.Fetch.MaxPapers != 50 {
		t.Fatalf("expected default max papers 50, got %d", cfg.Fetch.MaxPapers)
	}
	if cfg.Retry.MaxRetries != 3 {
		t.Fatalf("expected default retry max retries 3, got %d", cfg.Retry.MaxRetries)
	}
}

func TestSaveThenLoadRoundTrips(t *testing.T) {
	withHome(t)

	cfg := DefaultConfig()
	cfg.ActiveProvider = "glm"
	cfg.Topics = []types.TopicConfig{{Key: "ai", Label: "AI", ArxivCategories: []string{"cs.AI"}, Enabled: true}}

	if err := Save(cfg, nil); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.ActiveProvider != "glm" {
		t.Fatalf("expected active provider glm, got %q", got.ActiveProvider)
	}
	if len(got.Topics) != 1 || got.Topics[0].Key != "ai" {
		t.Fatalf("unexpected topics after round trip: %+v", got.Topics)
	}
}

func TestSaveWritesFileWithRestrictivePermissions(t *testing.T) {
	home := withHome(t)

	if err := Save(DefaultConfig(), nil); err != nil {
		t.Fatalf("save: %v", err)
	}

	path := filepath.Join(home, "com.paperfuse.app", "settings.json")
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat settings file: %v", err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Fatalf("expected 0600 permissions, got %v", info.Mode().Perm())
	}
}

func TestLoadBackfillsMissingFieldsFromOlderFile(t *testing.T) {
	home := withHome(t)
	dir := filepath.Join(home, "com.paperfuse.app")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	partial := map[string]any{"active_provider": "claude"}
	data, _ := json.Marshal(partial)
	if err := os.WriteFile(filepath.Join(dir, "settings.json"), data, 0o600); err != nil {
		t.Fatalf("write partial settings: %v", err)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Fetch.MaxPapers != 50 {
		t.Fatalf("expected backfilled max papers 50, got %d", cfg.Fetch.MaxPapers)
	}
	if cfg.Retry.Multiplier != 2.0 {
		t.Fatalf("expected backfilled retry multiplier 2.0, got %v", cfg.Retry.Multiplier)
	}
}

func TestSaveInvalidatesCacheWhenTopicsChange(t *testing.T) {
	withHome(t)

	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	store, err := cache.Open(db)
	if err != nil {
		t.Fatalf("open cache store: %v", err)
	}

	oldHash := cache.TopicsHash(nil)
	if err := store.Save("paper-1", oldHash, types.RelevanceResult{Score: 90}); err != nil {
		t.Fatalf("seed cache entry: %v", err)
	}

	initial := DefaultConfig()
	if err := Save(initial, nil); err != nil {
		t.Fatalf("save initial config: %v", err)
	}

	changed := DefaultConfig()
	changed.Topics = []types.TopicConfig{{Key: "ai", ArxivCategories: []string{"cs.AI"}}}
	if err := Save(changed, store); err != nil {
		t.Fatalf("save changed config: %v", err)
	}

	if got, err := store.Get("paper-1", oldHash); err != nil {
		t.Fatalf("get after invalidation: %v", err)
	} else if got != nil {
		t.Fatalf("expected cache entry to be cleared after topics change, got %+v", got)
	}
}

func TestToFetchOptionsUnionsEnabledTopicCategoriesOnly(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Topics = []types.TopicConfig{
		{Key: "ai", Enabled: true, ArxivCategories: []string{"cs.AI", "cs.LG"}, MaxPapersPerDay: 20},
		{Key: "bio", Enabled: false, ArxivCategories: []string{"q-bio.NC"}},
		{Key: "sys", Enabled: true, ArxivCategories: []string{"cs.LG", "cs.DC"}, MaxPapersPerDay: 30},
	}

	opts := cfg.ToFetchOptions()
	want := map[string]bool{"cs.AI": true, "cs.LG": true, "cs.DC": true}
	if len(opts.Categories) != len(want) {
		t.Fatalf("expected %d categories, got %v", len(want), opts.Categories)
	}
	for _, c := range opts.Categories {
		if !want[c] {
			t.Fatalf("unexpected category %q", c)
		}
	}
	if opts.MaxPapers != 30 {
		t.Fatalf("expected max papers to be the largest topic cap (30), got %d", opts.MaxPapers)
	}
}

func TestActiveProviderConfigMissingReturnsError(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ActiveProvider = "nonexistent"
	if _, err := cfg.ActiveProviderConfig(); err == nil {
		t.Fatal("expected error for unknown active provider")
	}
}
