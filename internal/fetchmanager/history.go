package fetchmanager

import (
	"database/sql"
	_ "embed"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/paperfuse/core/internal/types"
)

//go:embed sql/schema.sql
var historySchemaSQL string

//go:embed sql/queries.sql
var historyQueriesSQL string

var historyQueries map[string]string

func init() {
	historyQueries = parseHistoryQueries(historyQueriesSQL)
}

// parseHistoryQueries follows the `-- name: X` convention shared by every
// SQL-backed store in this module (internal/cache, internal/paperstore,
// internal/scheduler).
func parseHistoryQueries(content string) map[string]string {
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

const historyTimeLayout = time.RFC3339Nano

// HistoryStore persists FetchHistory audit rows (SPEC_FULL.md §3 NEW,
// §4.G.3 NEW): every fetch_papers invocation, manual or scheduled, writes
// one of these independent of whatever ScheduleRun the Headless Worker
// also manages.
type HistoryStore struct {
	db *sql.DB
}

// OpenHistoryStore opens a history store against db, creating the schema
// if needed.
func OpenHistoryStore(db *sql.DB) (*HistoryStore, error) {
	if _, err := db.Exec(historySchemaSQL); err != nil {
		return nil, fmt.Errorf("init fetch_history schema: %w", err)
	}
	return &HistoryStore{db: db}, nil
}

// Start inserts a new running FetchHistory row, returning its id.
func (s *HistoryStore) Start(trigger types.FetchHistoryTrigger) (string, error) {
	id := uuid.New().String()
	_, err := s.db.Exec(historyQueries["InsertHistory"],
		id, time.Now().UTC().Format(historyTimeLayout), nil, string(types.RunRunning), string(trigger),
		0, 0, 0, 0, 0, nil, nil)
	if err != nil {
		return "", fmt.Errorf("start fetch history: %w", err)
	}
	return id, nil
}

// Complete writes the terminal state of a fetch history row: final status,
// counters, saved-paper summaries, and an optional error message. Per spec
// §4.G.3, failure to write history is non-fatal and only logged by the
// caller — Complete itself still returns the error so the caller can log it.
func (s *HistoryStore) Complete(id string, status types.ScheduleRunStatus, counters types.FetchCounters, saved []types.PaperSummary, errMsg string) error {
	var papersJSON any
	if len(saved) > 0 {
		b, err := json.Marshal(saved)
		if err != nil {
			return fmt.Errorf("marshal saved papers: %w", err)
		}
		papersJSON = string(b)
	}
	var errArg any
	if errMsg != "" {
		errArg = errMsg
	}

	_, err := s.db.Exec(historyQueries["CompleteHistory"],
		time.Now().UTC().Format(historyTimeLayout), string(status),
		counters.Found, counters.Saved, counters.Filtered, counters.Duplicates, counters.CacheHits,
		errArg, papersJSON, id)
	if err != nil {
		return fmt.Errorf("complete fetch history: %w", err)
	}
	return nil
}

func scanHistory(scan func(dest ...any) error) (types.FetchHistory, error) {
	var h types.FetchHistory
	var startedAt, status, trigger string
	var completedAt, errMsg, papersJSON sql.NullString

	if err := scan(&h.ID, &startedAt, &completedAt, &status, &trigger,
		&h.PapersFound, &h.PapersSaved, &h.PapersFiltered, &h.PapersDuplicate, &h.CacheHits,
		&errMsg, &papersJSON); err != nil {
		return types.FetchHistory{}, err
	}

	h.StartedAt, _ = time.Parse(historyTimeLayout, startedAt)
	h.Status = types.ScheduleRunStatus(status)
	h.Trigger = types.FetchHistoryTrigger(trigger)
	h.ErrorMessage = errMsg.String
	if completedAt.Valid {
		if t, err := time.Parse(historyTimeLayout, completedAt.String); err == nil {
			h.CompletedAt = &t
		}
	}
	if papersJSON.Valid && papersJSON.String != "" {
		if err := json.Unmarshal([]byte(papersJSON.String), &h.Papers); err != nil {
			return types.FetchHistory{}, fmt.Errorf("unmarshal saved papers: %w", err)
		}
	}
	return h, nil
}

// Recent returns up to limit history rows, most recent first.
func (s *HistoryStore) Recent(limit int) ([]types.FetchHistory, error) {
	rows, err := s.db.Query(historyQueries["RecentHistory"], limit)
	if err != nil {
		return nil, fmt.Errorf("recent fetch history: %w", err)
	}
	defer rows.Close()

	var out []types.FetchHistory
	for rows.Next() {
		h, err := scanHistory(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

// Delete removes a single history row by id.
func (s *HistoryStore) Delete(id string) error {
	_, err := s.db.Exec(historyQueries["DeleteHistory"], id)
	if err != nil {
		return fmt.Errorf("delete fetch history: %w", err)
	}
	return nil
}
