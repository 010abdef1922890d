// Package consts holds the provider keys, default models, and filesystem
// layout constants shared across the pipeline. Reconstructed from the
// teacher's call sites (internal/utils/config.go referenced a sibling
// internal/consts package that was not itself part of the retrieved slice).
package consts

// Provider keys identify which AI provider transport and ErrorClassifier a
// component should use.
const (
	ProviderClaude = "claude"
	ProviderGLM    = "glm"
	ProviderGoogle = "google"
)

// Default models per provider for the two analysis tiers (spec §4.C "Model
// selection": quick_model for relevance, deep_model for standard/full).
const (
	DefaultClaudeQuickModel = "claude-haiku-4-5"
	DefaultClaudeDeepModel  = "claude-opus-4-5"

	DefaultGLMQuickModel = "glm-4-flash"
	DefaultGLMDeepModel  = "glm-4-plus"

	DefaultGoogleQuickModel = "gemini-2.0-flash"
	DefaultGoogleDeepModel  = "gemini-2.5-pro"
)

// DefaultGLMBaseURL is GLM's OpenAI-compatible endpoint.
const DefaultGLMBaseURL = "https://open.bigmodel.cn/api/paas/v4"

// Max-token budgets per analysis operation (spec §4.C, §6).
const (
	MaxTokensRelevance = 5_000
	MaxTokensStandard  = 30_000
	MaxTokensFull      = 100_000
)

// AppDirName names the application directory, created directly under the
// user's home directory on every platform (see config.Dir).
const AppDirName = "com.paperfuse.app"

// DBFileName is the single relational store file name.
const DBFileName = "paperfuse.db"

// ConfigFileName is the settings file persisted alongside the database.
const ConfigFileName = "settings.json"

// LatexCacheDirName is the leaf directory name under the user's Documents
// folder used as the default LaTeX download/cache location (spec §6).
const LatexCacheDirName = "PaperFuse/latex"

// PDFCacheDirName is the leaf directory name under the user's Documents
// folder used as the default downloaded-PDF cache location (spec §6
// "download-PDF" / "get-PDF-local-path"), sibling to LatexCacheDirName.
const PDFCacheDirName = "PaperFuse/pdfs"

// ArxivAPIBaseURL is the bibliographic metadata query endpoint (spec §6).
const ArxivAPIBaseURL = "https://export.arxiv.org/api/query"

// ArxivBaseURL is used to build pdf/e-print URLs when not present in the feed.
const ArxivBaseURL = "https://arxiv.org"

// Default fetch/retry knobs (spec §4.A, §4.G.3, §5).
const (
	DefaultRequestTimeoutSecs   = 120
	DefaultMaxTotalDurationSecs = 300
	DefaultDeepAnalysisThreshold = 70
	DefaultMinConcurrent         = 1
	DefaultMaxConcurrent         = 5
)

// MaxConsecutiveFailures is the auto-disable threshold (spec §4.H, §8.11).
const MaxConsecutiveFailures = 3
