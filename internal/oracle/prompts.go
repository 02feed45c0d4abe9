package oracle

import (
	"fmt"
	"strings"
)

// Turn is one prior message of a conversation, oldest first.
type Turn struct {
	Role    string
	Content string
}

const chatSystemPrompt = `You are a friendly Indonesian career counselor for students and young professionals.
Answer in Indonesian, be concise and practical, and keep the conversation focused on the user's interests, skills and career options.`

// BuildChatPrompt renders the conversation for a reply request.
func BuildChatPrompt(history []Turn, latest string, age int) (system, user string) {
	var b strings.Builder
	fmt.Fprintf(&b, "User age: %d\n\nConversation so far:\n", age)
	for _, turn := range history {
		fmt.Fprintf(&b, "[%s] %s\n", turn.Role, turn.Content)
	}
	fmt.Fprintf(&b, "\nLatest user message:\n%s\n", latest)
	return chatSystemPrompt, b.String()
}

const extractionSystemPrompt = `You extract career signals from a counseling conversation.
Respond with a single JSON object and nothing else, using exactly this shape:
{
  "has_insights": bool,
  "interests": [string],
  "skills": [string],
  "work_preferences": {string: any},
  "career_hints": [string],
  "personality_traits": {string: any},
  "confidence": int (0-100)
}
Set has_insights to false when the conversation carries no usable signal.`

// BuildExtractionPrompt renders the conversation for insight extraction.
func BuildExtractionPrompt(history []Turn, age int) (system, user string) {
	var b strings.Builder
	fmt.Fprintf(&b, "User age: %d\n\nConversation:\n", age)
	for _, turn := range history {
		fmt.Fprintf(&b, "[%s] %s\n", turn.Role, turn.Content)
	}
	return extractionSystemPrompt, b.String()
}

const testAnalysisSystemPrompt = `You analyze the answers of an Indonesian career interest test (tes minat bakat).
Respond with a single JSON object and nothing else, using exactly this shape:
{
  "personality_type": string,
  "recommended_careers": [{"title": string, "match_percentage": int, "reason": string}],
  "strengths": [string],
  "development_areas": [string],
  "next_steps": [string]
}`

// QuestionAnswer is one answered test question.
type QuestionAnswer struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// BuildTestAnalysisPrompt renders answered questions for analysis.
func BuildTestAnalysisPrompt(testType string, answers []QuestionAnswer, age int) (system, user string) {
	var b strings.Builder
	fmt.Fprintf(&b, "Test type: %s\nUser age: %d\n\nAnswers:\n", testType, age)
	for i, qa := range answers {
		fmt.Fprintf(&b, "%d. Q: %s\n   A: %s\n", i+1, qa.Question, qa.Answer)
	}
	return testAnalysisSystemPrompt, b.String()
}

const roadmapSystemPrompt = `You design a learning roadmap toward a target role.
Respond with a single JSON object and nothing else, using exactly this shape:
{
  "title": string,
  "overview": string,
  "estimated_duration": string,
  "phases": [{"name": string, "duration": string, "description": string,
              "skills": [string],
              "resources": [{"name": string, "url": string, "type": string}],
              "milestones": [string]}],
  "career_tips": [string]
}
Order phases from first to last. Produce at least three phases.`

// BuildRoadmapPrompt renders a roadmap generation request.
func BuildRoadmapPrompt(targetRole, currentStatus string, existingSkills []string) (system, user string) {
	var b strings.Builder
	fmt.Fprintf(&b, "Target role: %s\nCurrent status: %s\n", targetRole, currentStatus)
	if len(existingSkills) > 0 {
		fmt.Fprintf(&b, "Existing skills: %s\n", strings.Join(existingSkills, ", "))
	}
	return roadmapSystemPrompt, b.String()
}

const summarySystemPrompt = `You write a short narrative career profile summary in Indonesian.
Base it only on the data given. Two to four sentences, plain text, no JSON.`

// BuildSummaryPrompt renders a profile for narrative summarization.
func BuildSummaryPrompt(interests, skills []string, personalityType string) (system, user string) {
	var b strings.Builder
	fmt.Fprintf(&b, "Interests: %s\n", strings.Join(interests, ", "))
	fmt.Fprintf(&b, "Skills: %s\n", strings.Join(skills, ", "))
	if personalityType != "" {
		fmt.Fprintf(&b, "Personality type: %s\n", personalityType)
	}
	return summarySystemPrompt, b.String()
}
