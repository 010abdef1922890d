// Package types holds the data shapes shared across the fetch-and-analyze
// pipeline: papers, topics, analysis results, and transient status snapshots.
package types

import (
	"encoding/json"
	"time"
)

// Author is one entry in a paper's ordered author list.
type Author struct {
	Name        string `json:"name"`
	Affiliation string `json:"affiliation,omitempty"`
}

// UnmarshalJSON accepts both the legacy `["name"]` array-of-strings form and
// the current `[{name, affiliation?}]` array-of-objects form.
func (a *Author) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err == nil {
		a.Name = name
		a.Affiliation = ""
		return nil
	}
	type alias Author
	var v alias
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*a = Author(v)
	return nil
}

// Enrichment is the optional, AI-filled analysis block attached to a Paper.
type Enrichment struct {
	AISummary                    string   `json:"ai_summary,omitempty"`
	KeyInsights                  []string `json:"key_insights,omitempty"`
	EngineeringNotes             string   `json:"engineering_notes,omitempty"`
	CodeAvailable                bool     `json:"code_available"`
	CodeLinks                    []string `json:"code_links,omitempty"`
	NoveltyScore                 *float64 `json:"novelty_score,omitempty"`
	NoveltyReason                string   `json:"novelty_reason,omitempty"`
	EffectivenessScore           *float64 `json:"effectiveness_score,omitempty"`
	EffectivenessReason          string   `json:"effectiveness_reason,omitempty"`
	ExperimentCompletenessScore  *float64 `json:"experiment_completeness_score,omitempty"`
	ExperimentCompletenessReason string   `json:"experiment_completeness_reason,omitempty"`
	AlgorithmFlowchart           string   `json:"algorithm_flowchart,omitempty"`
	TimeComplexity                string   `json:"time_complexity,omitempty"`
	SpaceComplexity               string   `json:"space_complexity,omitempty"`
	AnalysisMode                  string   `json:"analysis_mode,omitempty"` // "standard" | "full"
	IsDeepAnalyzed                bool     `json:"is_deep_analyzed"`
	AnalysisIncomplete             bool     `json:"analysis_incomplete"`
	FilterScore                   *float64 `json:"filter_score,omitempty"`
	FilterReason                  string   `json:"filter_reason,omitempty"`
}

// ApplyCodeLinksCorrection enforces the invariant that a non-empty CodeLinks
// implies CodeAvailable, per spec §3 and §8.12.
func (e *Enrichment) ApplyCodeLinksCorrection() {
	if len(e.CodeLinks) > 0 && !e.CodeAvailable {
		e.CodeAvailable = true
	}
}

const (
	AnalysisModeStandard = "standard"
	AnalysisModeFull     = "full"
)

// Paper is the persistent record for a single ingested paper.
type Paper struct {
	ID            string     `json:"id"`
	ArxivID       string     `json:"arxiv_id"`
	Title         string     `json:"title"`
	Authors       []Author   `json:"authors"`
	Summary       string     `json:"summary"`
	PublishedDate time.Time  `json:"published_date"`
	SourceURL     string     `json:"source_url"`
	PDFURL        string     `json:"pdf_url"`
	PrimaryCategory string   `json:"primary_category"`
	Categories    []string   `json:"categories"`
	Tags          []string   `json:"tags"`
	Topics        []string   `json:"topics"`
	IsSpam        bool       `json:"is_spam"`
	CreatedAt     time.Time  `json:"created_at"`
	Enrichment
}

// PaperSummary is the minimal projection recorded into FetchHistory /
// ScheduleRun audit rows for the papers saved during a run.
type PaperSummary struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	ArxivID string `json:"arxiv_id"`
}

// dedupOrdered removes duplicates from s while preserving first-seen order.
func dedupOrdered(s []string) []string {
	seen := make(map[string]struct{}, len(s))
	out := make([]string, 0, len(s))
	for _, v := range s {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

// SetTags deduplicates and stores tags, preserving order of first occurrence.
func (p *Paper) SetTags(tags []string) { p.Tags = dedupOrdered(tags) }

// SetTopics deduplicates and stores topic keys, preserving order.
func (p *Paper) SetTopics(topics []string) { p.Topics = dedupOrdered(topics) }
