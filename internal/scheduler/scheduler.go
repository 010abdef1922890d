// Package scheduler implements Scheduler/Status (spec §4.H): next-run-time
// computation from frequency + time-of-day + weekday set, the ScheduleRun
// audit repository, consecutive-failure counting, and enable/disable
// validation including the auto-disable policy. Grounded on
// original_source/src-tauri/src/scheduler/status.rs (next-run math,
// consecutive-failure scan over the most recent 10 runs) rendered with the
// teacher's go:embed schema+queries store pattern.
package scheduler

import (
	"database/sql"
	_ "embed"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/paperfuse/core/internal/consts"
	"github.com/paperfuse/core/internal/types"
)

// Frequency enumerates the two schedule cadences (spec §4.H).
type Frequency string

const (
	FrequencyDaily  Frequency = "daily"
	FrequencyWeekly Frequency = "weekly"
)

// ErrInvalidTime is returned when a "HH:MM" string fails to parse or its
// components are out of range.
var ErrInvalidTime = fmt.Errorf("invalid schedule time")

// ErrInvalidWeekday is returned when a weekly schedule has no configured
// weekdays.
var ErrInvalidWeekday = fmt.Errorf("invalid or empty weekday set")

// parseTime parses "HH:MM" with HH in [0,23] and MM in [0,59].
func parseTime(timeStr string) (hour, minute int, err error) {
	parts := strings.Split(timeStr, ":")
	if len(parts) != 2 {
		return 0, 0, ErrInvalidTime
	}
	hour, err1 := strconv.Atoi(parts[0])
	minute, err2 := strconv.Atoi(parts[1])
	if err1 != nil || err2 != nil || hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return 0, 0, ErrInvalidTime
	}
	return hour, minute, nil
}

// NextRunTime computes the next occurrence per spec §4.H:
//   - Daily: today at HH:MM if still future; otherwise tomorrow at HH:MM.
//   - Weekly: for each configured weekday in sorted order, compute the next
//     occurrence of (weekday, HH:MM) strictly in the future; return the
//     earliest. weekdays use 0=Monday ... 6=Sunday.
func NextRunTime(now time.Time, frequency Frequency, timeStr string, weekdays []int) (time.Time, error) {
	hour, minute, err := parseTime(timeStr)
	if err != nil {
		return time.Time{}, err
	}

	switch frequency {
	case FrequencyDaily:
		return nextDaily(now, hour, minute), nil
	case FrequencyWeekly:
		if len(weekdays) == 0 {
			return time.Time{}, ErrInvalidWeekday
		}
		return nextWeekly(now, hour, minute, weekdays)
	default:
		return time.Time{}, fmt.Errorf("unknown frequency %q", frequency)
	}
}

func atTime(t time.Time, hour, minute int) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), hour, minute, 0, 0, t.Location())
}

func nextDaily(now time.Time, hour, minute int) time.Time {
	target := atTime(now, hour, minute)
	if target.After(now) {
		return target
	}
	return atTime(now.AddDate(0, 0, 1), hour, minute)
}

// mondayIndex converts Go's time.Weekday (0=Sunday) to the spec's
// 0=Monday...6=Sunday convention.
func mondayIndex(w time.Weekday) int {
	return (int(w) + 6) % 7
}

func nextWeekly(now time.Time, hour, minute int, weekdays []int) (time.Time, error) {
	sorted := append([]int(nil), weekdays...)
	sort.Ints(sorted)

	current := mondayIndex(now.Weekday())
	var best *time.Time

	for _, day := range sorted {
		if day < 0 || day > 6 {
			return time.Time{}, ErrInvalidWeekday
		}

		var candidate time.Time
		dayDiff := day - current
		switch {
		case dayDiff > 0:
			candidate = atTime(now.AddDate(0, 0, dayDiff), hour, minute)
		case dayDiff < 0:
			candidate = atTime(now.AddDate(0, 0, 7+dayDiff), hour, minute)
		default:
			todayAtTime := atTime(now, hour, minute)
			if todayAtTime.After(now) {
				candidate = todayAtTime
			} else {
				candidate = atTime(now.AddDate(0, 0, 7), hour, minute)
			}
		}

		if best == nil || candidate.Before(*best) {
			best = &candidate
		}
	}

	return *best, nil
}

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

const timeLayout = time.RFC3339Nano

// Store persists ScheduleRun audit rows.
type Store struct {
	db *sql.DB
}

// Open opens a scheduler store against db, creating the schema if needed.
func Open(db *sql.DB) (*Store, error) {
	s := &Store{db: db}
	if _, err := db.Exec(schemaSQL); err != nil {
		return nil, fmt.Errorf("init schedule_runs schema: %w", err)
	}
	return s, nil
}

// StartRun inserts a new run with status Running, returning its id.
func (s *Store) StartRun() (string, error) {
	id := uuid.New().String()
	run := types.ScheduleRun{
		ID:        id,
		StartedAt: time.Now().UTC(),
		Status:    types.RunRunning,
	}
	_, err := s.db.Exec(queries["InsertRun"], run.ID, run.StartedAt.Format(timeLayout),
		nil, string(run.Status), 0, 0, nil)
	if err != nil {
		return "", fmt.Errorf("start schedule run: %w", err)
	}
	return id, nil
}

// CompleteRun updates a run's terminal state.
func (s *Store) CompleteRun(id string, status types.ScheduleRunStatus, papersFetched, papersSaved int, errMsg string) error {
	completedAt := time.Now().UTC().Format(timeLayout)
	var errArg any
	if errMsg != "" {
		errArg = errMsg
	}
	_, err := s.db.Exec(queries["UpdateRun"], completedAt, string(status), papersFetched, papersSaved, errArg, id)
	if err != nil {
		return fmt.Errorf("complete schedule run: %w", err)
	}
	return nil
}

func scanRun(scan func(dest ...any) error) (types.ScheduleRun, error) {
	var run types.ScheduleRun
	var startedAt string
	var completedAt, errMsg sql.NullString
	var status string

	if err := scan(&run.ID, &startedAt, &completedAt, &status, &run.PapersFetched, &run.PapersSaved, &errMsg); err != nil {
		return types.ScheduleRun{}, err
	}

	run.StartedAt, _ = time.Parse(timeLayout, startedAt)
	run.Status = types.ScheduleRunStatus(status)
	run.ErrorMessage = errMsg.String
	if completedAt.Valid {
		t, err := time.Parse(timeLayout, completedAt.String)
		if err == nil {
			run.CompletedAt = &t
		}
	}
	return run, nil
}

// RecentRuns returns up to limit runs, most recent first.
func (s *Store) RecentRuns(limit int) ([]types.ScheduleRun, error) {
	rows, err := s.db.Query(queries["RecentRuns"], limit)
	if err != nil {
		return nil, fmt.Errorf("recent runs: %w", err)
	}
	defer rows.Close()

	var out []types.ScheduleRun
	for rows.Next() {
		r, err := scanRun(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// LastCompletedRun returns the most recent run with status "completed", or
// nil if none exists.
func (s *Store) LastCompletedRun() (*types.ScheduleRun, error) {
	row := s.db.QueryRow(queries["LastCompletedRun"])
	r, err := scanRun(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("last completed run: %w", err)
	}
	return &r, nil
}

// ConsecutiveFailures scans the most-recent <=10 runs and counts from the
// head while status == failed, stopping at the first non-failed run
// (spec §4.H).
func (s *Store) ConsecutiveFailures() (int, error) {
	rows, err := s.db.Query(queries["RecentStatusesForFailureCount"])
	if err != nil {
		return 0, fmt.Errorf("consecutive failures: %w", err)
	}
	defer rows.Close()

	failures := 0
	for rows.Next() {
		var status string
		if err := rows.Scan(&status); err != nil {
			return 0, err
		}
		if types.ScheduleRunStatus(status) != types.RunFailed {
			break
		}
		failures++
	}
	return failures, rows.Err()
}

// EnableConfig is the set of preconditions checked before a recurring
// schedule may be turned on (spec §4.H "Enable").
type EnableConfig struct {
	Frequency    Frequency
	TimeOfDay    string
	Weekdays     []int
	Topics       []types.TopicConfig
	HasAPIKey    bool
}

// ErrScheduleInvalid wraps a specific enable-precondition failure.
type ErrScheduleInvalid struct{ Reason string }

func (e ErrScheduleInvalid) Error() string { return "schedule invalid: " + e.Reason }

// ValidateEnable checks the preconditions spec §4.H requires before a
// schedule may be enabled: valid time, valid weekday set when weekly, at
// least one topic with at least one category, an API key, and fewer than
// consts.MaxConsecutiveFailures consecutive failures.
func ValidateEnable(cfg EnableConfig, consecutiveFailures int) error {
	if _, _, err := parseTime(cfg.TimeOfDay); err != nil {
		return ErrScheduleInvalid{Reason: "time of day must be HH:MM with valid ranges"}
	}
	if cfg.Frequency == FrequencyWeekly {
		if len(cfg.Weekdays) == 0 {
			return ErrScheduleInvalid{Reason: "weekly schedule requires at least one weekday"}
		}
		for _, d := range cfg.Weekdays {
			if d < 0 || d > 6 {
				return ErrScheduleInvalid{Reason: "weekday values must be 0..6"}
			}
		}
	}

	hasTopicWithCategory := false
	for _, t := range cfg.Topics {
		if len(t.ArxivCategories) > 0 {
			hasTopicWithCategory = true
			break
		}
	}
	if !hasTopicWithCategory {
		return ErrScheduleInvalid{Reason: "at least one topic with at least one category is required"}
	}

	if !cfg.HasAPIKey {
		return ErrScheduleInvalid{Reason: "an AI provider API key is required"}
	}

	if consecutiveFailures >= consts.MaxConsecutiveFailures {
		return ErrScheduleInvalid{Reason: "too many consecutive failures; resolve before re-enabling"}
	}

	return nil
}

// ShouldAutoDisable reports whether the auto-disable policy should fire
// after a headless run completes: consecutive_failures >= 3 (spec §4.H
// "Auto-disable policy").
func ShouldAutoDisable(consecutiveFailures int) bool {
	return consecutiveFailures >= consts.MaxConsecutiveFailures
}
