package profile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"arahkarir/internal/database"
)

// Store persists profile merges. One profile row per user, enforced by the
// unique index on user_id together with upsert writes.
type Store struct {
	db *gorm.DB
}

// NewStore builds a profile store on the given database.
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Load returns the decoded profile for the user, or nil when none exists.
func (s *Store) Load(ctx context.Context, userID uint) (*Snapshot, error) {
	var row database.UserProfile
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load profile: %w", err)
	}
	return decodeSnapshot(row)
}

// ApplyConversationMerge loads the current profile, runs the conversation
// merge and persists only the changed fields. When no row exists yet it is
// created with ai_confidence_score taken from the extraction.
//
// The read-merge-write sequence is not serialized against a concurrent merge
// for the same user; two racing merges are last-write-wins on the field
// subset each computed. Accepted for the product's write frequency.
func (s *Store) ApplyConversationMerge(ctx context.Context, userID uint, ext Extraction) (MergeOutcome, error) {
	snap, err := s.Load(ctx, userID)
	if err != nil {
		return MergeOutcome{}, err
	}

	outcome := MergeConversation(snap, ext)
	if !outcome.Updated {
		return outcome, nil
	}

	now := time.Now()
	updates := map[string]any{
		"last_analyzed_at": now,
		"updated_at":       now,
	}
	for name, value := range outcome.Fields {
		encoded, err := encodeField(value)
		if err != nil {
			return MergeOutcome{}, err
		}
		updates[name] = encoded
	}

	if snap == nil {
		row := database.UserProfile{
			UserID:            userID,
			LastAnalyzedAt:    &now,
			AIConfidenceScore: ext.Confidence,
		}
		if err := assignFields(&row, outcome.Fields); err != nil {
			return MergeOutcome{}, err
		}
		// Upsert: a racing first merge for the same user must not violate
		// the user_id unique index.
		err := s.db.WithContext(ctx).
			Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "user_id"}},
				DoUpdates: clause.Assignments(updates),
			}).
			Create(&row).Error
		if err != nil {
			return MergeOutcome{}, fmt.Errorf("create profile: %w", err)
		}
		return outcome, nil
	}

	err = s.db.WithContext(ctx).
		Model(&database.UserProfile{}).
		Where("user_id = ?", userID).
		Updates(updates).Error
	if err != nil {
		return MergeOutcome{}, fmt.Errorf("update profile: %w", err)
	}
	return outcome, nil
}

// ApplyTestAnalysis overwrites career matches, personality traits and skills
// wholesale with the test verdict, setting the fixed test confidence. The
// write is unconditional; the no-change short-circuit does not apply here.
func (s *Store) ApplyTestAnalysis(ctx context.Context, userID uint, analysis TestAnalysis) error {
	fields := ApplyTestAnalysis(analysis)

	now := time.Now()
	updates := map[string]any{
		"last_analyzed_at":    now,
		"updated_at":          now,
		"ai_confidence_score": TestConfidenceScore,
	}
	for name, value := range fields {
		encoded, err := encodeField(value)
		if err != nil {
			return err
		}
		updates[name] = encoded
	}

	row := database.UserProfile{
		UserID:            userID,
		LastAnalyzedAt:    &now,
		AIConfidenceScore: TestConfidenceScore,
	}
	if err := assignFields(&row, fields); err != nil {
		return err
	}

	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.Assignments(updates),
		}).
		Create(&row).Error
	if err != nil {
		return fmt.Errorf("apply test analysis: %w", err)
	}
	return nil
}

func decodeSnapshot(row database.UserProfile) (*Snapshot, error) {
	snap := Snapshot{ConfidenceScore: row.AIConfidenceScore}
	decoders := []struct {
		data datatypes.JSON
		dest any
	}{
		{row.Interests, &snap.Interests},
		{row.Skills, &snap.Skills},
		{row.WorkPreferences, &snap.WorkPreferences},
		{row.PersonalityTraits, &snap.PersonalityTraits},
		{row.CareerMatches, &snap.CareerMatches},
	}
	for _, d := range decoders {
		if len(d.data) == 0 {
			continue
		}
		if err := json.Unmarshal(d.data, d.dest); err != nil {
			return nil, fmt.Errorf("decode profile column: %w", err)
		}
	}
	return &snap, nil
}

func encodeField(value any) (datatypes.JSON, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("encode profile field: %w", err)
	}
	return datatypes.JSON(data), nil
}

func assignFields(row *database.UserProfile, fields Fields) error {
	for name, value := range fields {
		encoded, err := encodeField(value)
		if err != nil {
			return err
		}
		switch name {
		case "interests":
			row.Interests = encoded
		case "skills":
			row.Skills = encoded
		case "work_preferences":
			row.WorkPreferences = encoded
		case "personality_traits":
			row.PersonalityTraits = encoded
		case "career_matches":
			row.CareerMatches = encoded
		default:
			return fmt.Errorf("unknown profile field %q", name)
		}
	}
	return nil
}
