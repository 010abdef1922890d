package types

import "time"

// FetchPhase labels the coarse stage a fetch is in; emitted in FetchStatus
// snapshots per spec §4.G.3 ("starting -> fetching -> fetched -> processing
// (N times) -> completed").
type FetchPhase string

const (
	PhaseStarting   FetchPhase = "starting"
	PhaseFetching   FetchPhase = "fetching"
	PhaseFetched    FetchPhase = "fetched"
	PhaseProcessing FetchPhase = "processing"
	PhaseCompleted  FetchPhase = "completed"
	PhaseCancelled  FetchPhase = "cancelled"
	PhaseError      FetchPhase = "error"
)

// FetchCounters accumulates the per-run outcome counts used by both the
// live FetchStatus snapshot and the final FetchHistory/ScheduleRun record.
type FetchCounters struct {
	Found      int `json:"found"`
	Analyzed   int `json:"analyzed"`
	Saved      int `json:"saved"`
	Filtered   int `json:"filtered"`
	Duplicates int `json:"duplicates"`
	CacheHits  int `json:"cache_hits"`
}

// FetchStatus is the transient, caller-visible snapshot of an in-flight (or
// just-finished) fetch. Progress and the derived counters are documented as
// approximate under concurrency; see spec §9 open question on active_tasks.
type FetchStatus struct {
	Phase        FetchPhase `json:"phase"`
	Progress     float64    `json:"progress"` // 0..1
	CurrentStep  string     `json:"current_step"`
	Counters     FetchCounters `json:"counters"`
	QueueSize    int        `json:"queue_size"`
	ActiveTasks  int        `json:"active_tasks"`
	CompletedTasks int      `json:"completed_tasks"`
	Errors       []string   `json:"errors,omitempty"`
	AsyncMode    bool       `json:"async_mode"`
	ErrorLabel   string     `json:"error_label,omitempty"`
	ErrorMessage string     `json:"error_message,omitempty"`
}

// FetchOptions is the per-invocation configuration for a fetch_papers call.
type FetchOptions struct {
	FetchByID             bool
	IDs                   []string
	Categories            []string
	DaysBack              int
	DateFrom              *time.Time
	DateTo                *time.Time
	MaxPapers             int
	MinRelevance           int
	FetchByIDGate          bool // true disables the relevance gate, per §4.G.2 step 6
	DeepAnalysis           bool
	DeepAnalysisThreshold int
	AnalysisMode           string // "standard" | "full"
	AsyncMode              string // "async" | "sequential"
	MaxConcurrent          int
	Language               string // "en" | "zh"
	Provider               string
}

// ScheduleRunStatus enumerates a ScheduleRun's lifecycle states.
type ScheduleRunStatus string

const (
	RunPending   ScheduleRunStatus = "pending"
	RunRunning   ScheduleRunStatus = "running"
	RunCompleted ScheduleRunStatus = "completed"
	RunFailed    ScheduleRunStatus = "failed"
	RunCancelled ScheduleRunStatus = "cancelled"
)

// ScheduleRun is the persistent audit row for one scheduled (headless) fetch
// invocation, per spec §3.
type ScheduleRun struct {
	ID           string            `json:"id"`
	StartedAt    time.Time         `json:"started_at"`
	CompletedAt  *time.Time        `json:"completed_at,omitempty"`
	Status       ScheduleRunStatus `json:"status"`
	PapersFetched int              `json:"papers_fetched"`
	PapersSaved   int              `json:"papers_saved"`
	ErrorMessage  string           `json:"error_message,omitempty"`
}

// FetchHistoryTrigger distinguishes a manually-triggered fetch from one run
// by the Headless Worker under a schedule (SPEC_FULL.md §3 NEW).
type FetchHistoryTrigger string

const (
	TriggerManual    FetchHistoryTrigger = "manual"
	TriggerScheduled FetchHistoryTrigger = "scheduled"
)

// FetchHistory is the persistent audit row written by every fetch_papers
// invocation, manual or scheduled (SPEC_FULL.md §3 NEW, §4.G.3 NEW).
type FetchHistory struct {
	ID              string              `json:"id"`
	StartedAt       time.Time           `json:"started_at"`
	CompletedAt     *time.Time          `json:"completed_at,omitempty"`
	Status          ScheduleRunStatus   `json:"status"`
	Trigger         FetchHistoryTrigger `json:"trigger"`
	PapersFound     int                 `json:"papers_found"`
	PapersSaved     int                 `json:"papers_saved"`
	PapersFiltered  int                 `json:"papers_filtered"`
	PapersDuplicate int                 `json:"papers_duplicate"`
	CacheHits       int                 `json:"cache_hits"`
	ErrorMessage    string              `json:"error_message,omitempty"`
	Papers          []PaperSummary      `json:"papers,omitempty"`
}

// Collection is a user-defined named group of papers (SPEC_FULL.md §3 NEW).
type Collection struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// ProviderConfig is the per-provider credential/model configuration used by
// the AI Client factory (SPEC_FULL.md §4.C NEW).
type ProviderConfig struct {
	Name       string `json:"name"`
	APIKey     string `json:"api_key,omitempty"`
	BaseURL    string `json:"base_url,omitempty"`
	QuickModel string `json:"quick_model,omitempty"`
	DeepModel  string `json:"deep_model,omitempty"`
}
