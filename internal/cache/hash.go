package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"

	"github.com/paperfuse/core/internal/types"
)

// TopicsHash computes a deterministic hash over the sorted-by-key topic
// list (key, label, description, keywords, arxiv categories), per spec §3
// "Topics-hash". Equal hash implies semantically equivalent topics for
// classification purposes. Grounded on
// original_source/src-tauri/src/models/settings.rs compute_topics_hash,
// rendered with crypto/sha256 instead of Rust's DefaultHasher (which is not
// a portable, cross-process-stable hash) since this hash is persisted to
// disk and compared across process runs.
func TopicsHash(topics []types.TopicConfig) string {
	sorted := make([]types.TopicConfig, len(topics))
	copy(sorted, topics)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Key < sorted[j].Key })

	h := sha256.New()
	for _, t := range sorted {
		h.Write([]byte(t.Key))
		h.Write([]byte{0})
		h.Write([]byte(t.Label))
		h.Write([]byte{0})
		h.Write([]byte(t.Description))
		h.Write([]byte{0})
		for _, k := range t.Keywords {
			h.Write([]byte(k))
			h.Write([]byte{0})
		}
		for _, c := range t.ArxivCategories {
			h.Write([]byte(c))
			h.Write([]byte{0})
		}
		h.Write([]byte{1})
	}
	return hex.EncodeToString(h.Sum(nil))
}
