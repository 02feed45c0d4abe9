package database

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Roles of a conversation message.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Supported test types.
const (
	TestTypeMinatBakat = "minat_bakat"
	TestTypeMini       = "mini_test"
)

// Supported roadmap statuses.
const (
	StatusPelajar     = "pelajar"
	StatusProfesional = "profesional"
)

// User is an account. Immutable after registration except the password hash.
type User struct {
	gorm.Model
	Username     string `gorm:"uniqueIndex;size:64"`
	PasswordHash string `gorm:"size:255"`
	Age          int
}

// ConversationMessage is one turn of the chat with the assistant.
// Append-only; never mutated or deleted.
type ConversationMessage struct {
	gorm.Model
	UserID  uint   `gorm:"index"`
	User    User   `gorm:"constraint:OnDelete:CASCADE"`
	Role    string `gorm:"size:16"` // user | assistant
	Content string `gorm:"type:text"`
}

// TestResult is an immutable snapshot of a completed test and its AI analysis.
type TestResult struct {
	gorm.Model
	UserID    uint           `gorm:"index"`
	User      User           `gorm:"constraint:OnDelete:CASCADE"`
	TestType  string         `gorm:"size:32"` // minat_bakat | mini_test
	Questions datatypes.JSON `gorm:"type:jsonb"`
	Analysis  datatypes.JSON `gorm:"type:jsonb"`
}

// Roadmap holds a generated learning roadmap. The body is immutable after creation.
type Roadmap struct {
	gorm.Model
	UserID        uint   `gorm:"index"`
	User          User   `gorm:"constraint:OnDelete:CASCADE"`
	Title         string `gorm:"size:255"`
	TargetRole    string `gorm:"size:255"`
	CurrentStatus string `gorm:"size:32"` // pelajar | profesional
	Content       datatypes.JSON `gorm:"type:jsonb"`
	EstimatedTime string `gorm:"size:64"`
	Progress      *RoadmapProgress
}

// RoadmapProgress tracks completion for exactly one roadmap.
// Created together with the roadmap at 0%.
type RoadmapProgress struct {
	gorm.Model
	RoadmapID         uint           `gorm:"uniqueIndex"`
	CompletedPhases   datatypes.JSON `gorm:"type:jsonb"` // phase indices
	CompletedSkills   datatypes.JSON `gorm:"type:jsonb"` // skill names
	CompletionPercent int
}

// UserProfile is the single evolving profile per user.
// The unique index on UserID enforces the singleton at the storage layer.
type UserProfile struct {
	gorm.Model
	UserID            uint           `gorm:"uniqueIndex"`
	User              User           `gorm:"constraint:OnDelete:CASCADE"`
	Interests         datatypes.JSON `gorm:"type:jsonb"`
	Skills            datatypes.JSON `gorm:"type:jsonb"`
	WorkPreferences   datatypes.JSON `gorm:"type:jsonb"`
	PersonalityTraits datatypes.JSON `gorm:"type:jsonb"`
	CareerMatches     datatypes.JSON `gorm:"type:jsonb"`
	LastAnalyzedAt    *time.Time
	AIConfidenceScore int
}

// ProfileSummary is an oracle-written narrative summary of a profile.
// Ratings reference a summary, so summaries are persisted.
type ProfileSummary struct {
	gorm.Model
	UserID  uint   `gorm:"index"`
	User    User   `gorm:"constraint:OnDelete:CASCADE"`
	Content string `gorm:"type:text"`
}

// SummaryRating is user feedback on a profile summary.
// At most one rating per (summary, user) pair; a second submission is a conflict.
type SummaryRating struct {
	gorm.Model
	SummaryID      uint `gorm:"uniqueIndex:idx_summary_user"`
	UserID         uint `gorm:"uniqueIndex:idx_summary_user"`
	IsAccurate     bool
	FeedbackReason string `gorm:"size:1024"`
	Rating         int
}
