package insight

import "testing"

func TestParseExtraction_Valid(t *testing.T) {
	raw := `{"has_insights": true, "interests": ["musik"], "skills": [], "confidence": 80}`
	ext, reason := ParseExtraction(raw)
	if reason != "" {
		t.Fatalf("reason = %q, want empty", reason)
	}
	if !ext.HasInsights || ext.Confidence != 80 {
		t.Fatalf("unexpected extraction: %+v", ext)
	}
	if len(ext.Interests) != 1 || ext.Interests[0] != "musik" {
		t.Fatalf("interests = %v", ext.Interests)
	}
}

func TestParseExtraction_FencedJSON(t *testing.T) {
	raw := "```json\n{\"has_insights\": true, \"confidence\": 72}\n```"
	ext, reason := ParseExtraction(raw)
	if reason != "" {
		t.Fatalf("reason = %q, want empty", reason)
	}
	if ext.Confidence != 72 {
		t.Fatalf("confidence = %d", ext.Confidence)
	}
}

func TestParseExtraction_ProseEmbeddedObjectRejected(t *testing.T) {
	raw := `Here is the result: {"has_insights": true, "confidence": 80} hope it helps!`
	if _, reason := ParseExtraction(raw); reason != ReasonParseError {
		t.Fatalf("reason = %q, want %q", reason, ReasonParseError)
	}
}

func TestParseExtraction_TrailingGarbageRejected(t *testing.T) {
	raw := `{"has_insights": true, "confidence": 80} trailing`
	if _, reason := ParseExtraction(raw); reason != ReasonParseError {
		t.Fatalf("reason = %q, want %q", reason, ReasonParseError)
	}
}

func TestParseExtraction_ConfidenceRange(t *testing.T) {
	for _, raw := range []string{
		`{"has_insights": true, "confidence": -1}`,
		`{"has_insights": true, "confidence": 101}`,
	} {
		if _, reason := ParseExtraction(raw); reason != ReasonNoValidAnalysis {
			t.Errorf("%s: reason = %q, want %q", raw, reason, ReasonNoValidAnalysis)
		}
	}
}

func TestParseTestAnalysis_Valid(t *testing.T) {
	raw := `{
		"personality_type": "INTJ",
		"recommended_careers": [{"title": "Engineer", "match_percentage": 90, "reason": "analytical"}],
		"strengths": ["logic"]
	}`
	analysis, reason := ParseTestAnalysis(raw)
	if reason != "" {
		t.Fatalf("reason = %q, want empty", reason)
	}
	if analysis.PersonalityType != "INTJ" || len(analysis.RecommendedCareers) != 1 {
		t.Fatalf("unexpected analysis: %+v", analysis)
	}
}

func TestParseTestAnalysis_RequiredFields(t *testing.T) {
	cases := map[string]string{
		"missing type":    `{"recommended_careers": [{"title": "Engineer"}]}`,
		"no careers":      `{"personality_type": "INTJ", "recommended_careers": []}`,
		"untitled career": `{"personality_type": "INTJ", "recommended_careers": [{"match_percentage": 90}]}`,
	}
	for name, raw := range cases {
		if _, reason := ParseTestAnalysis(raw); reason != ReasonNoValidAnalysis {
			t.Errorf("%s: reason = %q, want %q", name, reason, ReasonNoValidAnalysis)
		}
	}
}

func TestParseTestAnalysis_NotJSON(t *testing.T) {
	if _, reason := ParseTestAnalysis("I could not analyze this."); reason != ReasonParseError {
		t.Fatalf("reason = %q, want %q", reason, ReasonParseError)
	}
}

func TestParseRoadmapBody_Valid(t *testing.T) {
	raw := `{
		"title": "Jalur Backend",
		"phases": [
			{"name": "Dasar", "skills": ["go"]},
			{"name": "Lanjutan", "skills": ["postgres"]}
		]
	}`
	body, reason := ParseRoadmapBody(raw)
	if reason != "" {
		t.Fatalf("reason = %q, want empty", reason)
	}
	if body.Title != "Jalur Backend" || len(body.Phases) != 2 {
		t.Fatalf("unexpected body: %+v", body)
	}
}

func TestParseRoadmapBody_RequiredFields(t *testing.T) {
	cases := map[string]string{
		"missing title":  `{"phases": [{"name": "Dasar"}]}`,
		"no phases":      `{"title": "T", "phases": []}`,
		"unnamed phase":  `{"title": "T", "phases": [{"skills": ["go"]}]}`,
		"not an object":  `["phase one"]`,
		"empty response": ``,
	}
	for name, raw := range cases {
		if _, reason := ParseRoadmapBody(raw); reason == "" {
			t.Errorf("%s: accepted invalid body", name)
		}
	}
}
