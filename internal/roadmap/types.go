package roadmap

// Body is the structured roadmap document stored in the roadmap's JSONB column.
type Body struct {
	Title             string   `json:"title"`
	Overview          string   `json:"overview"`
	EstimatedDuration string   `json:"estimated_duration"`
	Phases            []Phase  `json:"phases"`
	CareerTips        []string `json:"career_tips"`
}

// Phase is one ordered stage of a roadmap.
type Phase struct {
	Name        string     `json:"name"`
	Duration    string     `json:"duration"`
	Description string     `json:"description"`
	Skills      []string   `json:"skills"`
	Resources   []Resource `json:"resources"`
	Milestones  []string   `json:"milestones"`
}

// Resource is a learning resource attached to a phase.
type Resource struct {
	Name string `json:"name"`
	URL  string `json:"url"`
	Type string `json:"type"`
}
