package aiclient

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/paperfuse/core/internal/types"
)

// languageInstruction returns the language-conditional prefix instructing
// response language for prose fields while keeping tags/topics in English.
// Grounded on original_source/src-tauri/src/llm.rs build_relevance_prompt.
func languageInstruction(language string) string {
	if language != "zh" {
		return ""
	}
	return "\n\n===== LANGUAGE REQUIREMENTS =====\n" +
		"- Respond in Chinese (中文) for prose explanation fields\n" +
		"- Keep in ENGLISH for: suggested_tags, suggested_topics, code_links\n" +
		"- Explanation fields must be in Chinese, but tags/topics must remain in English"
}

func topicsJSON(topics []types.TopicConfig) string {
	b, err := json.Marshal(topics)
	if err != nil {
		return "[]"
	}
	return string(b)
}

func relevancePrompt(title, summary string, topics []types.TopicConfig, language string) string {
	return fmt.Sprintf(`You are a research paper relevance classifier. Analyze if this paper matches the user's interests.%s

User Research Topics:
%s

Paper Title:
%s

Paper Abstract:
%s

===== OUTPUT FORMAT REQUIREMENTS =====
1. Respond ONLY with valid JSON - no markdown, no code blocks
2. Do NOT use line breaks inside JSON string values
3. Keep all text on ONE line

===== SCORING =====
Rate relevance on a scale of 0-100:
- 90-100: perfect match, directly addresses the user's research topics
- 70-89: highly relevant, strongly related to the user's interests
- 50-69: moderately relevant, tangential connection
- 30-49: somewhat relevant, weak connection
- 0-29: not relevant, minimal or no connection

===== JSON FORMAT =====
{
  "score": 85,
  "reason": "Brief explanation of the relevance score (one line, no line breaks)",
  "suggested_tags": ["tag1", "tag2", "tag3"],
  "suggested_topics": ["topic1", "topic2"]
}`, languageInstruction(language), topicsJSON(topics), title, summary)
}

func standardPrompt(title, summary string, topics []types.TopicConfig, latex, language string) string {
	return fmt.Sprintf(`You are a research paper analyst producing an engineer-facing deep analysis.%s

User Research Topics:
%s

Paper Title:
%s

Paper Abstract:
%s

Paper Introduction/Conclusion excerpt:
%s

===== OUTPUT FORMAT REQUIREMENTS =====
Respond ONLY with valid JSON - no markdown, no code blocks. One line per string value.

===== JSON FORMAT =====
{
  "novelty_score": 7,
  "novelty_reason": "...",
  "effectiveness_score": 7,
  "effectiveness_reason": "...",
  "code_available": false,
  "code_links": [],
  "engineering_notes": "...",
  "ai_summary": "...",
  "key_insights": ["...", "..."],
  "suggested_tags": ["tag1"],
  "suggested_topics": ["topic1"]
}`, languageInstruction(language), topicsJSON(topics), title, summary, latex)
}

func fullPrompt(title, summary string, topics []types.TopicConfig, latex, language string) string {
	return fmt.Sprintf(`You are a research paper analyst producing a comprehensive engineer-facing deep analysis of the full document.%s

User Research Topics:
%s

Paper Title:
%s

Paper Abstract:
%s

Full paper content (truncated):
%s

===== OUTPUT FORMAT REQUIREMENTS =====
Respond ONLY with valid JSON - no markdown, no code blocks. One line per string value.

===== JSON FORMAT =====
{
  "novelty_score": 7,
  "novelty_reason": "...",
  "effectiveness_score": 7,
  "effectiveness_reason": "...",
  "code_available": false,
  "code_links": [],
  "engineering_notes": "...",
  "ai_summary": "...",
  "key_insights": ["...", "..."],
  "suggested_tags": ["tag1"],
  "suggested_topics": ["topic1"],
  "experiment_completeness_score": 7,
  "experiment_completeness_reason": "...",
  "algorithm_flowchart": "...",
  "time_complexity": "O(n)",
  "space_complexity": "O(n)"
}`, languageInstruction(language), topicsJSON(topics), title, summary, latex)
}

// cleanResponse strips fenced code blocks (including nested ones) until
// none remain, then trims surrounding whitespace. Grounded on
// original_source/src-tauri/src/llm.rs clean_response.
func cleanResponse(response string) string {
	response = strings.TrimSpace(response)
	for {
		original := response
		for {
			start := strings.Index(response, "```")
			if start == -1 {
				break
			}
			afterOpen := start + 3
			nl := strings.IndexByte(response[afterOpen:], '\n')
			if nl == -1 {
				response = response[:start] + response[afterOpen:]
				continue
			}
			contentStart := afterOpen + nl + 1
			end := strings.Index(response[contentStart:], "```")
			if end == -1 {
				response = response[:start] + response[afterOpen:]
				continue
			}
			contentEnd := contentStart + end
			response = response[:start] + response[contentStart:contentEnd] + response[contentEnd+3:]
		}
		if response == original {
			break
		}
	}
	return strings.TrimSpace(response)
}

// fixJSONFormatting inserts a missing comma between array elements that an
// LLM emitted on separate lines without a separator. Grounded on
// original_source/src-tauri/src/llm.rs fix_json_formatting; leaves every
// other malformation to the JSON parser, per spec §4.C.
func fixJSONFormatting(jsonStr string) string {
	lines := strings.Split(jsonStr, "\n")
	result := make([]string, 0, len(lines))
	inArray := false

	for i, line := range lines {
		trimmed := strings.TrimSpace(line)

		if strings.Contains(trimmed, "[") {
			inArray = true
		}
		if strings.Contains(trimmed, "]") {
			inArray = false
		}

		if strings.HasPrefix(trimmed, "\"") && inArray && i > 0 {
			prev := strings.TrimSpace(lines[i-1])
			if strings.HasSuffix(prev, "\"") && !strings.HasSuffix(prev, ",") && !strings.HasSuffix(prev, "[") {
				if len(result) > 0 {
					last := result[len(result)-1]
					if !strings.HasSuffix(strings.TrimRight(last, " \t"), ",") {
						result[len(result)-1] = last + ","
					}
				}
			}
		}

		result = append(result, line)
	}

	return strings.Join(result, "\n")
}
