package types

import "time"

// CacheEntry is one Classification Cache row: a memoized Phase-1 relevance
// result keyed by (paper_id, topics_hash), per spec §3/§4.B.
type CacheEntry struct {
	PaperID    string
	TopicsHash string
	Result     RelevanceResult
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// CacheStats summarizes the cache contents for the "get cache stats"
// command-surface operation.
type CacheStats struct {
	Total         int        `json:"total"`
	UniquePapers  int        `json:"unique_papers"`
	UniqueConfigs int        `json:"unique_configs"`
	Oldest        *time.Time `json:"oldest,omitempty"`
	Newest        *time.Time `json:"newest,omitempty"`
}
