package types

// TopicConfig is a user-defined topic used both to prematch papers by ArXiv
// category and, via keywords/description, as relevance-gate context passed
// to the AI client.
type TopicConfig struct {
	Key             string   `json:"key"`
	Label           string   `json:"label"`
	Description     string   `json:"description"`
	Color           string   `json:"color"`
	Enabled         bool     `json:"enabled"`
	ArxivCategories []string `json:"arxiv_categories,omitempty"`
	Keywords        []string `json:"keywords,omitempty"`

	DailyCap       int `json:"daily_cap,omitempty"`
	DeepCount      int `json:"deep_count,omitempty"`
	ScoreThreshold int `json:"score_threshold,omitempty"`

	// MaxPapersPerDay feeds the Headless Worker's max_papers computation
	// (spec §4.I: max_papers = max(topic.max_papers_per_day), default 50).
	MaxPapersPerDay int `json:"max_papers_per_day,omitempty"`
}

// Matches reports whether the topic's category list intersects categories.
func (t TopicConfig) Matches(categories []string) bool {
	if len(t.ArxivCategories) == 0 {
		return false
	}
	want := make(map[string]struct{}, len(t.ArxivCategories))
	for _, c := range t.ArxivCategories {
		want[c] = struct{}{}
	}
	for _, c := range categories {
		if _, ok := want[c]; ok {
			return true
		}
	}
	return false
}

// RelevanceResult is the Phase-1 (cheap) scoring output.
type RelevanceResult struct {
	Score            int      `json:"score"` // 0..100
	Reason           string   `json:"reason"`
	SuggestedTags    []string `json:"suggested_tags,omitempty"`
	SuggestedTopics  []string `json:"suggested_topics,omitempty"`
}

// StandardAnalysisResult is the Phase-2 "standard" (intro+conclusion) output.
type StandardAnalysisResult struct {
	AISummary            string   `json:"ai_summary"`
	KeyInsights          []string `json:"key_insights,omitempty"`
	EngineeringNotes      string   `json:"engineering_notes,omitempty"`
	CodeAvailable         bool     `json:"code_available"`
	CodeLinks             []string `json:"code_links,omitempty"`
	NoveltyScore          float64  `json:"novelty_score"`
	NoveltyReason         string   `json:"novelty_reason"`
	EffectivenessScore    float64  `json:"effectiveness_score"`
	EffectivenessReason   string   `json:"effectiveness_reason"`
	SuggestedTags         []string `json:"suggested_tags,omitempty"`
	SuggestedTopics       []string `json:"suggested_topics,omitempty"`
}

// FullAnalysisResult is the Phase-2 "full" (whole document) output.
type FullAnalysisResult struct {
	StandardAnalysisResult
	ExperimentCompletenessScore  float64 `json:"experiment_completeness_score"`
	ExperimentCompletenessReason string  `json:"experiment_completeness_reason"`
	AlgorithmFlowchart           string  `json:"algorithm_flowchart,omitempty"`
	TimeComplexity                string  `json:"time_complexity,omitempty"`
	SpaceComplexity               string  `json:"space_complexity,omitempty"`
}
