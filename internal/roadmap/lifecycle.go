package roadmap

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"arahkarir/internal/database"
)

// ErrValidation marks a create/update input error; handlers map it to a 400.
var ErrValidation = errors.New("invalid roadmap input")

// Manager creates roadmaps together with their progress tracker and keeps
// the derived completion percentage consistent.
type Manager struct {
	db *gorm.DB
}

// NewManager builds a roadmap manager on the given database.
func NewManager(db *gorm.DB) *Manager {
	return &Manager{db: db}
}

// CreateInput is everything needed to create a roadmap.
type CreateInput struct {
	Title         string
	TargetRole    string
	CurrentStatus string
	Body          Body
	EstimatedTime string
}

func (in CreateInput) validate() error {
	if in.Title == "" {
		return fmt.Errorf("%w: title is required", ErrValidation)
	}
	if in.TargetRole == "" {
		return fmt.Errorf("%w: target role is required", ErrValidation)
	}
	if in.CurrentStatus != database.StatusPelajar && in.CurrentStatus != database.StatusProfesional {
		return fmt.Errorf("%w: current status must be %q or %q", ErrValidation, database.StatusPelajar, database.StatusProfesional)
	}
	if len(in.Body.Phases) == 0 {
		return fmt.Errorf("%w: roadmap body must contain at least one phase", ErrValidation)
	}
	return nil
}

// Create inserts the roadmap and its zero-percent progress row as one
// transaction, so a failed progress insert never leaves an orphan roadmap.
func (m *Manager) Create(ctx context.Context, userID uint, in CreateInput) (*database.Roadmap, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	content, err := json.Marshal(in.Body)
	if err != nil {
		return nil, fmt.Errorf("encode roadmap body: %w", err)
	}

	row := database.Roadmap{
		UserID:        userID,
		Title:         in.Title,
		TargetRole:    in.TargetRole,
		CurrentStatus: in.CurrentStatus,
		Content:       datatypes.JSON(content),
		EstimatedTime: in.EstimatedTime,
	}

	err = m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&row).Error; err != nil {
			return fmt.Errorf("create roadmap: %w", err)
		}
		progress := database.RoadmapProgress{
			RoadmapID:         row.ID,
			CompletedPhases:   datatypes.JSON([]byte("[]")),
			CompletedSkills:   datatypes.JSON([]byte("[]")),
			CompletionPercent: 0,
		}
		if err := tx.Create(&progress).Error; err != nil {
			return fmt.Errorf("create roadmap progress: %w", err)
		}
		row.Progress = &progress
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &row, nil
}

// Get returns one roadmap with its progress, scoped to the owner.
func (m *Manager) Get(ctx context.Context, userID, roadmapID uint) (*database.Roadmap, error) {
	var row database.Roadmap
	err := m.db.WithContext(ctx).
		Preload("Progress").
		Where("id = ? AND user_id = ?", roadmapID, userID).
		First(&row).Error
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// List returns all of a user's roadmaps with progress, most recent first.
func (m *Manager) List(ctx context.Context, userID uint) ([]database.Roadmap, error) {
	var rows []database.Roadmap
	err := m.db.WithContext(ctx).
		Preload("Progress").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list roadmaps: %w", err)
	}
	return rows, nil
}

// CompletePhase marks the phase at the given index as done and recomputes
// the percentage. Marking an already completed phase is a no-op.
func (m *Manager) CompletePhase(ctx context.Context, userID, roadmapID uint, phaseIndex int) (*database.RoadmapProgress, error) {
	row, err := m.Get(ctx, userID, roadmapID)
	if err != nil {
		return nil, err
	}

	var body Body
	if err := json.Unmarshal(row.Content, &body); err != nil {
		return nil, fmt.Errorf("decode roadmap body: %w", err)
	}
	if phaseIndex < 0 || phaseIndex >= len(body.Phases) {
		return nil, fmt.Errorf("%w: phase index out of range", ErrValidation)
	}
	if row.Progress == nil {
		// Progress is created with the roadmap; a missing row can only come
		// from data predating the transactional create. Recover by seeding it.
		if err := m.seedProgress(ctx, row); err != nil {
			return nil, err
		}
	}

	phases, err := decodeIntSet(row.Progress.CompletedPhases)
	if err != nil {
		return nil, err
	}
	if _, ok := phases[phaseIndex]; ok {
		return row.Progress, nil
	}
	phases[phaseIndex] = struct{}{}

	return m.saveProgress(ctx, row, &body, phases, nil)
}

// CompleteSkill records a skill as acquired. The skill must appear in one of
// the roadmap's phases. Repeated completion is a no-op.
func (m *Manager) CompleteSkill(ctx context.Context, userID, roadmapID uint, skill string) (*database.RoadmapProgress, error) {
	if skill == "" {
		return nil, fmt.Errorf("%w: skill is required", ErrValidation)
	}

	row, err := m.Get(ctx, userID, roadmapID)
	if err != nil {
		return nil, err
	}

	var body Body
	if err := json.Unmarshal(row.Content, &body); err != nil {
		return nil, fmt.Errorf("decode roadmap body: %w", err)
	}
	if !body.hasSkill(skill) {
		return nil, fmt.Errorf("%w: skill not part of this roadmap", ErrValidation)
	}
	if row.Progress == nil {
		if err := m.seedProgress(ctx, row); err != nil {
			return nil, err
		}
	}

	var skills []string
	if len(row.Progress.CompletedSkills) > 0 {
		if err := json.Unmarshal(row.Progress.CompletedSkills, &skills); err != nil {
			return nil, fmt.Errorf("decode completed skills: %w", err)
		}
	}
	for _, s := range skills {
		if s == skill {
			return row.Progress, nil
		}
	}
	skills = append(skills, skill)

	return m.saveProgress(ctx, row, &body, nil, skills)
}

// OverallProgress averages per-roadmap percentages for dashboard summaries.
// A user with no roadmaps is at 0, not an error.
func (m *Manager) OverallProgress(ctx context.Context, userID uint) (int, error) {
	rows, err := m.List(ctx, userID)
	if err != nil {
		return 0, err
	}
	if len(rows) == 0 {
		return 0, nil
	}

	sum := 0
	for _, row := range rows {
		if row.Progress != nil {
			sum += row.Progress.CompletionPercent
		}
	}
	return int(math.Round(float64(sum) / float64(len(rows)))), nil
}

// Percentage derives the completion percentage, rounding half up.
// A roadmap without phases fails closed to 0.
func Percentage(completedPhases, totalPhases int) int {
	if totalPhases <= 0 {
		return 0
	}
	return int(math.Round(100 * float64(completedPhases) / float64(totalPhases)))
}

func (b *Body) hasSkill(skill string) bool {
	for _, phase := range b.Phases {
		for _, s := range phase.Skills {
			if s == skill {
				return true
			}
		}
	}
	return false
}

// seedProgress idempotently initializes a missing progress row at 0%.
func (m *Manager) seedProgress(ctx context.Context, row *database.Roadmap) error {
	progress := database.RoadmapProgress{
		RoadmapID:         row.ID,
		CompletedPhases:   datatypes.JSON([]byte("[]")),
		CompletedSkills:   datatypes.JSON([]byte("[]")),
		CompletionPercent: 0,
	}
	if err := m.db.WithContext(ctx).Create(&progress).Error; err != nil {
		return fmt.Errorf("seed roadmap progress: %w", err)
	}
	row.Progress = &progress
	return nil
}

func (m *Manager) saveProgress(ctx context.Context, row *database.Roadmap, body *Body, phases map[int]struct{}, skills []string) (*database.RoadmapProgress, error) {
	updates := map[string]any{}

	if phases != nil {
		encoded, err := encodeIntSet(phases)
		if err != nil {
			return nil, err
		}
		row.Progress.CompletedPhases = encoded
		row.Progress.CompletionPercent = Percentage(len(phases), len(body.Phases))
		updates["completed_phases"] = encoded
		updates["completion_percent"] = row.Progress.CompletionPercent
	}
	if skills != nil {
		encoded, err := json.Marshal(skills)
		if err != nil {
			return nil, fmt.Errorf("encode completed skills: %w", err)
		}
		row.Progress.CompletedSkills = datatypes.JSON(encoded)
		updates["completed_skills"] = datatypes.JSON(encoded)
	}

	err := m.db.WithContext(ctx).
		Model(&database.RoadmapProgress{}).
		Where("roadmap_id = ?", row.ID).
		Updates(updates).Error
	if err != nil {
		return nil, fmt.Errorf("update roadmap progress: %w", err)
	}
	return row.Progress, nil
}

func decodeIntSet(data datatypes.JSON) (map[int]struct{}, error) {
	set := map[int]struct{}{}
	if len(data) == 0 {
		return set, nil
	}
	var values []int
	if err := json.Unmarshal(data, &values); err != nil {
		return nil, fmt.Errorf("decode completed phases: %w", err)
	}
	for _, v := range values {
		set[v] = struct{}{}
	}
	return set, nil
}

func encodeIntSet(set map[int]struct{}) (datatypes.JSON, error) {
	values := make([]int, 0, len(set))
	for v := range set {
		values = append(values, v)
	}
	// Deterministic storage order keeps progress rows comparable.
	sort.Ints(values)
	data, err := json.Marshal(values)
	if err != nil {
		return nil, fmt.Errorf("encode completed phases: %w", err)
	}
	return datatypes.JSON(data), nil
}
