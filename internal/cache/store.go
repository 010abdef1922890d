// Package cache implements the Classification Cache (spec §4.B): memoized
// Phase-1 relevance results keyed by (paper_id, topics_hash), with
// topic-config-drift invalidation. Grounded on the teacher's
// internal/memory/store/store.go exactly (go:embed schema+queries, the
// "-- name: X" named-query convention, modernc.org/sqlite open/exec/scan
// shape) repurposed from memory items to cache rows; schema and upsert
// statement grounded on
// original_source/src-tauri/src/database/classification_cache.rs.
package cache

import (
	"database/sql"
	_ "embed"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/paperfuse/core/internal/types"
)

//go:embed sql/schema.sql
var schemaSQL string

//go:embed sql/queries.sql
var queriesSQL string

var queries map[string]string

func init() {
	queries = parseQueries(queriesSQL)
}

func parseQueries(content string) map[string]string {
	result := make(map[string]string)
	re := regexp.MustCompile(`(?m)^--\s*name:\s*(\w+)\s*$`)
	matches := re.FindAllStringSubmatchIndex(content, -1)

	for i, match := range matches {
		name := content[match[2]:match[3]]
		start := match[1]
		end := len(content)
		if i+1 < len(matches) {
			end = matches[i+1][0]
		}
		result[name] = strings.TrimSpace(content[start:end])
	}

	return result
}

const timeLayout = "2006-01-02T15:04:05.000Z"

// Store persists classification cache entries in SQLite.
type Store struct {
	db *sql.DB
}

// Open builds a cache store on an already-open database handle, creating
// the classification_cache table if needed. The handle is typically shared
// with the other stores, as all tables live in the same application
// database.
func Open(db *sql.DB) (*Store, error) {
	s := &Store{db: db}
	if _, err := db.Exec(schemaSQL); err != nil {
		return nil, fmt.Errorf("init classification_cache schema: %w", err)
	}
	return s, nil
}

// Get returns the cached relevance result for (paperID, topicsHash), or nil
// if absent.
func (s *Store) Get(paperID, topicsHash string) (*types.RelevanceResult, error) {
	row := s.db.QueryRow(queries["GetEntry"], paperID, topicsHash)

	var resultJSON, createdAt, updatedAt string
	if err := row.Scan(&resultJSON, &createdAt, &updatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get cache entry: %w", err)
	}

	var result types.RelevanceResult
	if err := json.Unmarshal([]byte(resultJSON), &result); err != nil {
		return nil, fmt.Errorf("decode cached relevance result: %w", err)
	}
	return &result, nil
}

// Save upserts the relevance result for (paperID, topicsHash).
func (s *Store) Save(paperID, topicsHash string, result types.RelevanceResult) error {
	resultJSON, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("encode relevance result: %w", err)
	}

	now := time.Now().UTC().Format(timeLayout)
	_, err = s.db.Exec(queries["UpsertEntry"], paperID, topicsHash, string(resultJSON), now, now)
	if err != nil {
		return fmt.Errorf("upsert cache entry: %w", err)
	}
	return nil
}

// ClearForTopics deletes every entry keyed by topicsHash, returning the
// number of rows deleted.
func (s *Store) ClearForTopics(topicsHash string) (int64, error) {
	res, err := s.db.Exec(queries["ClearForTopics"], topicsHash)
	if err != nil {
		return 0, fmt.Errorf("clear cache for topics: %w", err)
	}
	return res.RowsAffected()
}

// ClearAll deletes every cache entry, returning the number of rows deleted.
func (s *Store) ClearAll() (int64, error) {
	res, err := s.db.Exec(queries["ClearAll"])
	if err != nil {
		return 0, fmt.Errorf("clear all cache: %w", err)
	}
	return res.RowsAffected()
}

// Stats summarizes the cache contents.
func (s *Store) Stats() (types.CacheStats, error) {
	row := s.db.QueryRow(queries["Stats"])

	var stats types.CacheStats
	var oldest, newest sql.NullString
	if err := row.Scan(&stats.Total, &stats.UniquePapers, &stats.UniqueConfigs, &oldest, &newest); err != nil {
		return types.CacheStats{}, fmt.Errorf("cache stats: %w", err)
	}
	if oldest.Valid {
		if t, err := time.Parse(timeLayout, oldest.String); err == nil {
			stats.Oldest = &t
		}
	}
	if newest.Valid {
		if t, err := time.Parse(timeLayout, newest.String); err == nil {
			stats.Newest = &t
		}
	}
	return stats, nil
}

// InvalidateIfChanged clears the whole cache when oldHash != newHash, per
// spec §4.B's invalidation policy.
func InvalidateIfChanged(s *Store, oldHash, newHash string) (int64, error) {
	if oldHash == newHash {
		return 0, nil
	}
	return s.ClearAll()
}
