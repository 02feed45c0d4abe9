package profile

// CareerMatch is one entry in the profile's career match list.
type CareerMatch struct {
	Title           string `json:"title"`
	MatchPercentage int    `json:"match_percentage"`
	Reason          string `json:"reason"`
}

// Snapshot is the decoded view of a user's profile row.
// A nil *Snapshot means no profile row exists yet.
type Snapshot struct {
	Interests         []string
	Skills            []string
	WorkPreferences   map[string]any
	PersonalityTraits map[string]any
	CareerMatches     []CareerMatch
	ConfidenceScore   int
}

// Extraction carries the signals pulled out of a conversation by the oracle.
type Extraction struct {
	HasInsights       bool           `json:"has_insights"`
	Interests         []string       `json:"interests"`
	Skills            []string       `json:"skills"`
	WorkPreferences   map[string]any `json:"work_preferences"`
	CareerHints       []string       `json:"career_hints"`
	PersonalityTraits map[string]any `json:"personality_traits"`
	Confidence        int            `json:"confidence"`
}

// TestAnalysis is the oracle's structured verdict on a completed test.
type TestAnalysis struct {
	PersonalityType    string        `json:"personality_type"`
	RecommendedCareers []CareerMatch `json:"recommended_careers"`
	Strengths          []string      `json:"strengths"`
	DevelopmentAreas   []string      `json:"development_areas"`
	NextSteps          []string      `json:"next_steps"`
}
