// Package paperstore implements the Paper Store Contract (spec §4.D) plus
// the Collections CRUD recovered from original_source (spec §3 NEW).
// Grounded on the teacher's internal/memory/store/store.go pattern
// (go:embed schema+queries, named-query convention, modernc.org/sqlite
// open/exec/scan shape), a second independent adaptation from the cache
// store since a paper row has a different shape. Batch exist_by_ids and
// FTS-with-LIKE-fallback grounded on
// original_source/src-tauri/src/database/papers.rs.
package paperstore

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

// Store persists Paper records and Collections in SQLite.
type Store struct {
	db *sql.DB
}

// Open opens a paper store against db, creating the schema if needed.
func Open(db *sql.DB) (*Store, error) {
	s := &Store{db: db}
	if _, err := db.Exec(schemaSQL); err != nil {
		return nil, fmt.Errorf("init papers schema: %w", err)
	}
	return s, nil
}

// DB exposes the underlying connection so other stores sharing the same
// database file (e.g. internal/cache, internal/scheduler) can migrate
// against the same pool.
func (s *Store) DB() *sql.DB { return s.db }

var errNotFound = fmt.Errorf("paper not found")

// ErrNotFound is returned by Get when no row matches the given id.
func ErrNotFound() error { return errNotFound }

func jsonOrEmpty(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func nullFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func paperArgs(p types.Paper) ([]any, error) {
	authorsJSON, err := jsonOrEmpty(p.Authors)
	if err != nil {
		return nil, err
	}
	categoriesJSON, err := jsonOrEmpty(p.Categories)
	if err != nil {
		return nil, err
	}
	tagsJSON, err := jsonOrEmpty(p.Tags)
	if err != nil {
		return nil, err
	}
	topicsJSON, err := jsonOrEmpty(p.Topics)
	if err != nil {
		return nil, err
	}
	insightsJSON, err := jsonOrEmpty(p.KeyInsights)
	if err != nil {
		return nil, err
	}
	linksJSON, err := jsonOrEmpty(p.CodeLinks)
	if err != nil {
		return nil, err
	}

	createdAt := p.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	return []any{
		p.ID, p.ArxivID, p.Title, authorsJSON, p.Summary,
		p.PublishedDate.UTC().Format(timeLayout), p.SourceURL, p.PDFURL,
		p.PrimaryCategory, categoriesJSON, tagsJSON, topicsJSON,
		boolToInt(p.IsSpam), createdAt.UTC().Format(timeLayout),
		p.AISummary, insightsJSON, p.EngineeringNotes, boolToInt(p.CodeAvailable), linksJSON,
		nullFloat(p.NoveltyScore), p.NoveltyReason, nullFloat(p.EffectivenessScore), p.EffectivenessReason,
		nullFloat(p.ExperimentCompletenessScore), p.ExperimentCompletenessReason, p.AlgorithmFlowchart,
		p.TimeComplexity, p.SpaceComplexity, p.AnalysisMode, boolToInt(p.IsDeepAnalyzed),
		boolToInt(p.AnalysisIncomplete), nullFloat(p.FilterScore), p.FilterReason,
	}, nil
}

func scanPaper(scan func(dest ...any) error) (types.Paper, error) {
	var p types.Paper
	var authorsJSON, categoriesJSON, tagsJSON, topicsJSON string
	var publishedDate, createdAt string
	var isSpam, codeAvailable, isDeepAnalyzed, analysisIncomplete int
	var aiSummary, engineeringNotes, noveltyReason, effectivenessReason, experimentReason string
	var algorithmFlowchart, timeComplexity, spaceComplexity, analysisMode, filterReason string
	var insightsJSON, linksJSON sql.NullString
	var noveltyScore, effectivenessScore, experimentScore, filterScore sql.NullFloat64

	err := scan(
		&p.ID, &p.ArxivID, &p.Title, &authorsJSON, &p.Summary,
		&publishedDate, &p.SourceURL, &p.PDFURL,
		&p.PrimaryCategory, &categoriesJSON, &tagsJSON, &topicsJSON,
		&isSpam, &createdAt,
		&aiSummary, &insightsJSON, &engineeringNotes, &codeAvailable, &linksJSON,
		&noveltyScore, &noveltyReason, &effectivenessScore, &effectivenessReason,
		&experimentScore, &experimentReason, &algorithmFlowchart,
		&timeComplexity, &spaceComplexity, &analysisMode, &isDeepAnalyzed,
		&analysisIncomplete, &filterScore, &filterReason,
	)
	if err != nil {
		return types.Paper{}, err
	}

	_ = json.Unmarshal([]byte(authorsJSON), &p.Authors)
	_ = json.Unmarshal([]byte(categoriesJSON), &p.Categories)
	_ = json.Unmarshal([]byte(tagsJSON), &p.Tags)
	_ = json.Unmarshal([]byte(topicsJSON), &p.Topics)
	if insightsJSON.Valid {
		_ = json.Unmarshal([]byte(insightsJSON.String), &p.KeyInsights)
	}
	if linksJSON.Valid {
		_ = json.Unmarshal([]byte(linksJSON.String), &p.CodeLinks)
	}

	p.PublishedDate, _ = time.Parse(timeLayout, publishedDate)
	p.CreatedAt, _ = time.Parse(timeLayout, createdAt)
	p.IsSpam = isSpam != 0
	p.AISummary = aiSummary
	p.EngineeringNotes = engineeringNotes
	p.CodeAvailable = codeAvailable != 0
	p.NoveltyReason = noveltyReason
	p.EffectivenessReason = effectivenessReason
	p.ExperimentCompletenessReason = experimentReason
	p.AlgorithmFlowchart = algorithmFlowchart
	p.TimeComplexity = timeComplexity
	p.SpaceComplexity = spaceComplexity
	p.AnalysisMode = analysisMode
	p.IsDeepAnalyzed = isDeepAnalyzed != 0
	p.AnalysisIncomplete = analysisIncomplete != 0
	p.FilterReason = filterReason
	if noveltyScore.Valid {
		v := noveltyScore.Float64
		p.NoveltyScore = &v
	}
	if effectivenessScore.Valid {
		v := effectivenessScore.Float64
		p.EffectivenessScore = &v
	}
	if experimentScore.Valid {
		v := experimentScore.Float64
		p.ExperimentCompletenessScore = &v
	}
	if filterScore.Valid {
		v := filterScore.Float64
		p.FilterScore = &v
	}

	return p, nil
}

// InsertIfAbsent atomically inserts p if no row with p.ID exists. Returns
// whether a row was written; this is the sole write path used in the hot
// loop (spec §4.D).
func (s *Store) InsertIfAbsent(p types.Paper) (bool, error) {
	args, err := paperArgs(p)
	if err != nil {
		return false, fmt.Errorf("marshal paper: %w", err)
	}
	res, err := s.db.Exec(queries["InsertIfAbsent"], args...)
	if err != nil {
		return false, fmt.Errorf("insert paper: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Upsert inserts or replaces p. Used only by explicit single-paper
// re-analysis flows outside the hot loop (spec §4.D).
func (s *Store) Upsert(p types.Paper) error {
	args, err := paperArgs(p)
	if err != nil {
		return fmt.Errorf("marshal paper: %w", err)
	}
	if _, err := s.db.Exec(queries["Upsert"], args...); err != nil {
		return fmt.Errorf("upsert paper: %w", err)
	}
	return nil
}

// Get returns the paper with the given id, or ErrNotFound().
func (s *Store) Get(id string) (types.Paper, error) {
	row := s.db.QueryRow(queries["Get"], id)
	p, err := scanPaper(row.Scan)
	if err == sql.ErrNoRows {
		return types.Paper{}, errNotFound
	}
	if err != nil {
		return types.Paper{}, fmt.Errorf("get paper: %w", err)
	}
	return p, nil
}

func (s *Store) queryPapers(query string, args ...any) ([]types.Paper, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []types.Paper
	for rows.Next() {
		p, err := scanPaper(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan paper: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// List returns up to limit non-spam papers ordered by most recent first.
func (s *Store) List(limit, offset int) ([]types.Paper, error) {
	return s.queryPapers(queries["List"], limit, offset)
}

// ListSpam returns up to limit spam-flagged papers ordered by most recent first.
func (s *Store) ListSpam(limit, offset int) ([]types.Paper, error) {
	return s.queryPapers(queries["ListSpam"], limit, offset)
}

// Count returns the number of non-spam papers.
func (s *Store) Count() (int, error) {
	var n int
	if err := s.db.QueryRow(queries["Count"]).Scan(&n); err != nil {
		return 0, fmt.Errorf("count papers: %w", err)
	}
	return n, nil
}

// CountSpam returns the number of spam-flagged papers.
func (s *Store) CountSpam() (int, error) {
	var n int
	if err := s.db.QueryRow(queries["CountSpam"]).Scan(&n); err != nil {
		return 0, fmt.Errorf("count spam papers: %w", err)
	}
	return n, nil
}

// ByTag returns non-spam papers whose tags contain tag.
func (s *Store) ByTag(tag string, limit, offset int) ([]types.Paper, error) {
	return s.queryPapers(queries["ByTag"], "%\""+tag+"\"%", limit, offset)
}

// ToggleSpam sets the is_spam flag for id.
func (s *Store) ToggleSpam(id string, flag bool) error {
	_, err := s.db.Exec(queries["ToggleSpam"], boolToInt(flag), id)
	if err != nil {
		return fmt.Errorf("toggle spam: %w", err)
	}
	return nil
}

// Delete removes the paper with the given id.
func (s *Store) Delete(id string) error {
	_, err := s.db.Exec(queries["Delete"], id)
	if err != nil {
		return fmt.Errorf("delete paper: %w", err)
	}
	return nil
}

// ExistByIDs returns the subset of ids already present in the store, used
// as the batch-duplicate prefilter in by-ID fetch mode (spec §4.D).
func (s *Store) ExistByIDs(ids []string) ([]string, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	placeholders := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		placeholders[i] = "?"
		args[i] = id
	}
	query := fmt.Sprintf("SELECT id FROM papers WHERE id IN (%s)", strings.Join(placeholders, ","))

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("exist_by_ids: %w", err)
	}
	defer rows.Close()

	var found []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		found = append(found, id)
	}
	return found, rows.Err()
}

// ftsQuery builds a disjunctive FTS5 MATCH expression from free-text words,
// with prefix matching on the final token.
func ftsQuery(freeText string) string {
	words := strings.Fields(freeText)
	cleaned := make([]string, 0, len(words))
	for _, w := range words {
		w = strings.Map(func(r rune) rune {
			if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
				return r
			}
			return -1
		}, w)
		if w != "" {
			cleaned = append(cleaned, w+"*")
		}
	}
	return strings.Join(cleaned, " OR ")
}

// Search performs a full-text search over title, summary, ai_summary,
// topics, tags, and authors, falling back to a LIKE disjunction when the
// FTS5 index is unavailable (spec §4.D).
func (s *Store) Search(freeText string, limit int) ([]types.Paper, error) {
	if q := ftsQuery(freeText); q != "" {
		papers, err := s.queryPapers(queries["SearchFTS"], q, limit)
		if err == nil {
			return papers, nil
		}
	}

	pattern := "%" + freeText + "%"
	return s.queryPapers(queries["SearchLike"], pattern, pattern, pattern, pattern, pattern, pattern, limit)
}

// ---- Collections ----

// CreateCollection inserts a new collection, assigning an id if empty.
func (s *Store) CreateCollection(c types.Collection) (types.Collection, error) {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.Exec(queries["CreateCollection"], c.ID, c.Name, c.Description, c.CreatedAt.Format(timeLayout))
	if err != nil {
		return types.Collection{}, fmt.Errorf("create collection: %w", err)
	}
	return c, nil
}

func scanCollection(scan func(dest ...any) error) (types.Collection, error) {
	var c types.Collection
	var createdAt string
	var description sql.NullString
	if err := scan(&c.ID, &c.Name, &description, &createdAt); err != nil {
		return types.Collection{}, err
	}
	c.Description = description.String
	c.CreatedAt, _ = time.Parse(timeLayout, createdAt)
	return c, nil
}

// GetCollection returns the collection with the given id.
func (s *Store) GetCollection(id string) (types.Collection, error) {
	row := s.db.QueryRow(queries["GetCollection"], id)
	c, err := scanCollection(row.Scan)
	if err == sql.ErrNoRows {
		return types.Collection{}, errNotFound
	}
	return c, err
}

// ListCollections returns every collection, most recent first.
func (s *Store) ListCollections() ([]types.Collection, error) {
	rows, err := s.db.Query(queries["ListCollections"])
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []types.Collection
	for rows.Next() {
		c, err := scanCollection(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// UpdateCollection updates name/description for id.
func (s *Store) UpdateCollection(id, name, description string) error {
	_, err := s.db.Exec(queries["UpdateCollection"], name, description, id)
	return err
}

// DeleteCollection removes a collection and its paper memberships. The
// memberships are deleted explicitly, since the connection does not turn
// on SQLite's foreign_keys pragma and ON DELETE CASCADE is not applied.
func (s *Store) DeleteCollection(id string) error {
	if _, err := s.db.Exec("DELETE FROM collection_papers WHERE collection_id = ?", id); err != nil {
		return err
	}
	_, err := s.db.Exec(queries["DeleteCollection"], id)
	return err
}

// AddPaperToCollection adds paperID to collectionID's membership.
func (s *Store) AddPaperToCollection(collectionID, paperID string) error {
	_, err := s.db.Exec(queries["AddPaperToCollection"], collectionID, paperID, time.Now().UTC().Format(timeLayout))
	return err
}

// RemovePaperFromCollection removes paperID from collectionID's membership.
func (s *Store) RemovePaperFromCollection(collectionID, paperID string) error {
	_, err := s.db.Exec(queries["RemovePaperFromCollection"], collectionID, paperID)
	return err
}

// PapersInCollection lists the papers belonging to collectionID.
func (s *Store) PapersInCollection(collectionID string) ([]types.Paper, error) {
	return s.queryPapers(queries["PapersInCollection"], collectionID)
}

// CollectionsForPaper lists the collections paperID belongs to.
func (s *Store) CollectionsForPaper(paperID string) ([]types.Collection, error) {
	rows, err := s.db.Query(queries["CollectionsForPaper"], paperID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []types.Collection
	for rows.Next() {
		c, err := scanCollection(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
