// Package insight turns raw oracle text into validated structures.
//
// Parsing is strict: the response (optionally fenced in a markdown code
// block) must decode as a whole into the expected schema. Best-effort
// substring matching is deliberately not done, so malformed or adversarial
// content is rejected instead of silently accepted.
package insight

import (
	"encoding/json"
	"strings"

	"arahkarir/internal/profile"
	"arahkarir/internal/roadmap"
)

// Reasons a response yielded nothing usable. All are soft failures: callers
// report "no update" and never escalate them into hard errors.
const (
	ReasonOracleError     = "oracle_error"
	ReasonParseError      = "parse_error"
	ReasonNoValidAnalysis = "no_valid_analysis"
)

// ParseExtraction decodes a conversation-insight response.
// A non-empty reason means the extraction is unusable.
func ParseExtraction(raw string) (profile.Extraction, string) {
	var ext profile.Extraction
	if !decodeStrict(raw, &ext) {
		return profile.Extraction{}, ReasonParseError
	}
	if ext.Confidence < 0 || ext.Confidence > 100 {
		return profile.Extraction{}, ReasonNoValidAnalysis
	}
	return ext, ""
}

// ParseTestAnalysis decodes a test-analysis response.
func ParseTestAnalysis(raw string) (profile.TestAnalysis, string) {
	var analysis profile.TestAnalysis
	if !decodeStrict(raw, &analysis) {
		return profile.TestAnalysis{}, ReasonParseError
	}
	if analysis.PersonalityType == "" || len(analysis.RecommendedCareers) == 0 {
		return profile.TestAnalysis{}, ReasonNoValidAnalysis
	}
	for _, c := range analysis.RecommendedCareers {
		if c.Title == "" {
			return profile.TestAnalysis{}, ReasonNoValidAnalysis
		}
	}
	return analysis, ""
}

// ParseRoadmapBody decodes a roadmap-generation response.
func ParseRoadmapBody(raw string) (roadmap.Body, string) {
	var body roadmap.Body
	if !decodeStrict(raw, &body) {
		return roadmap.Body{}, ReasonParseError
	}
	if body.Title == "" || len(body.Phases) == 0 {
		return roadmap.Body{}, ReasonNoValidAnalysis
	}
	for _, phase := range body.Phases {
		if phase.Name == "" {
			return roadmap.Body{}, ReasonNoValidAnalysis
		}
	}
	return body, ""
}

// decodeStrict unwraps an optional markdown code fence and requires the
// remaining text to be exactly one JSON object.
func decodeStrict(raw string, dest any) bool {
	text := stripFence(raw)
	if !strings.HasPrefix(text, "{") {
		return false
	}
	// Unmarshal rejects trailing content, so an object embedded in prose
	// fails here instead of being half-accepted.
	return json.Unmarshal([]byte(text), dest) == nil
}

func stripFence(raw string) string {
	text := strings.TrimSpace(raw)
	if !strings.HasPrefix(text, "```") {
		return text
	}
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	if i := strings.LastIndex(text, "```"); i >= 0 {
		text = text[:i]
	}
	return strings.TrimSpace(text)
}
