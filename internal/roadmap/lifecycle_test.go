package roadmap

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"arahkarir/internal/database"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&database.User{}, &database.Roadmap{}, &database.RoadmapProgress{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return NewManager(db)
}

func fourPhaseBody() Body {
	return Body{
		Title: "Jalur Data Analyst",
		Phases: []Phase{
			{Name: "Dasar", Skills: []string{"sql"}},
			{Name: "Analisis", Skills: []string{"python"}},
			{Name: "Visualisasi", Skills: []string{"tableau"}},
			{Name: "Portofolio"},
		},
	}
}

func createRoadmap(t *testing.T, m *Manager, userID uint, body Body) *database.Roadmap {
	t.Helper()
	row, err := m.Create(context.Background(), userID, CreateInput{
		Title:         body.Title,
		TargetRole:    "Data Analyst",
		CurrentStatus: database.StatusPelajar,
		Body:          body,
	})
	if err != nil {
		t.Fatalf("create roadmap: %v", err)
	}
	return row
}

func TestPercentage(t *testing.T) {
	cases := []struct {
		completed, total, want int
	}{
		{0, 4, 0},
		{1, 4, 25},
		{2, 4, 50},
		{3, 4, 75},
		{4, 4, 100},
		{1, 3, 33},
		{2, 3, 67},
		{1, 0, 0},
		{0, 0, 0},
	}
	for _, tc := range cases {
		if got := Percentage(tc.completed, tc.total); got != tc.want {
			t.Errorf("Percentage(%d, %d) = %d, want %d", tc.completed, tc.total, got, tc.want)
		}
	}
}

func TestCreate_SeedsZeroProgress(t *testing.T) {
	m := newTestManager(t)
	row := createRoadmap(t, m, 1, fourPhaseBody())

	if row.Progress == nil {
		t.Fatal("progress not created with roadmap")
	}
	if row.Progress.CompletionPercent != 0 {
		t.Fatalf("completion = %d, want 0", row.Progress.CompletionPercent)
	}

	loaded, err := m.Get(context.Background(), 1, row.ID)
	if err != nil {
		t.Fatalf("get roadmap: %v", err)
	}
	if loaded.Progress == nil || loaded.Progress.RoadmapID != row.ID {
		t.Fatalf("progress row not persisted: %+v", loaded.Progress)
	}
}

func TestCreate_Validation(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	cases := []CreateInput{
		{Title: "", TargetRole: "X", CurrentStatus: database.StatusPelajar, Body: fourPhaseBody()},
		{Title: "T", TargetRole: "", CurrentStatus: database.StatusPelajar, Body: fourPhaseBody()},
		{Title: "T", TargetRole: "X", CurrentStatus: "student", Body: fourPhaseBody()},
		{Title: "T", TargetRole: "X", CurrentStatus: database.StatusPelajar, Body: Body{Title: "T"}},
	}
	for i, in := range cases {
		if _, err := m.Create(ctx, 1, in); !errors.Is(err, ErrValidation) {
			t.Errorf("case %d: err = %v, want ErrValidation", i, err)
		}
	}

	var count int64
	if err := m.db.Model(&database.Roadmap{}).Count(&count).Error; err != nil {
		t.Fatalf("count roadmaps: %v", err)
	}
	if count != 0 {
		t.Fatalf("invalid input created %d roadmaps", count)
	}
}

func TestCompletePhase_RecomputesPercentage(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()
	row := createRoadmap(t, m, 1, fourPhaseBody())

	progress, err := m.CompletePhase(ctx, 1, row.ID, 0)
	if err != nil {
		t.Fatalf("complete phase 0: %v", err)
	}
	if progress.CompletionPercent != 25 {
		t.Fatalf("after 1/4 phases: %d%%, want 25%%", progress.CompletionPercent)
	}

	for _, idx := range []int{1, 2} {
		if progress, err = m.CompletePhase(ctx, 1, row.ID, idx); err != nil {
			t.Fatalf("complete phase %d: %v", idx, err)
		}
	}
	if progress.CompletionPercent != 75 {
		t.Fatalf("after 3/4 phases: %d%%, want 75%%", progress.CompletionPercent)
	}
}

func TestCompletePhase_Idempotent(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()
	row := createRoadmap(t, m, 1, fourPhaseBody())

	if _, err := m.CompletePhase(ctx, 1, row.ID, 2); err != nil {
		t.Fatalf("first completion: %v", err)
	}
	progress, err := m.CompletePhase(ctx, 1, row.ID, 2)
	if err != nil {
		t.Fatalf("repeat completion: %v", err)
	}
	if progress.CompletionPercent != 25 {
		t.Fatalf("repeat completion changed percentage: %d%%", progress.CompletionPercent)
	}

	var phases []int
	if err := json.Unmarshal(progress.CompletedPhases, &phases); err != nil {
		t.Fatalf("decode phases: %v", err)
	}
	if len(phases) != 1 || phases[0] != 2 {
		t.Fatalf("completed phases = %v, want [2]", phases)
	}
}

func TestCompletePhase_IndexOutOfRange(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()
	row := createRoadmap(t, m, 1, fourPhaseBody())

	for _, idx := range []int{-1, 4} {
		if _, err := m.CompletePhase(ctx, 1, row.ID, idx); !errors.Is(err, ErrValidation) {
			t.Errorf("index %d: err = %v, want ErrValidation", idx, err)
		}
	}
}

func TestCompletePhase_ScopedToOwner(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()
	row := createRoadmap(t, m, 1, fourPhaseBody())

	if _, err := m.CompletePhase(ctx, 2, row.ID, 0); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("other user's completion: err = %v, want record not found", err)
	}
}

func TestCompleteSkill(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()
	row := createRoadmap(t, m, 1, fourPhaseBody())

	progress, err := m.CompleteSkill(ctx, 1, row.ID, "sql")
	if err != nil {
		t.Fatalf("complete skill: %v", err)
	}
	var skills []string
	if err := json.Unmarshal(progress.CompletedSkills, &skills); err != nil {
		t.Fatalf("decode skills: %v", err)
	}
	if len(skills) != 1 || skills[0] != "sql" {
		t.Fatalf("completed skills = %v, want [sql]", skills)
	}

	// Skill completion does not move the phase percentage.
	if progress.CompletionPercent != 0 {
		t.Fatalf("skill completion changed percentage: %d%%", progress.CompletionPercent)
	}

	if _, err := m.CompleteSkill(ctx, 1, row.ID, "sql"); err != nil {
		t.Fatalf("repeat completion: %v", err)
	}
	if _, err := m.CompleteSkill(ctx, 1, row.ID, "welding"); !errors.Is(err, ErrValidation) {
		t.Fatalf("unknown skill: err = %v, want ErrValidation", err)
	}
}

func TestOverallProgress(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	overall, err := m.OverallProgress(ctx, 1)
	if err != nil {
		t.Fatalf("overall with no roadmaps: %v", err)
	}
	if overall != 0 {
		t.Fatalf("overall = %d, want 0 for no roadmaps", overall)
	}

	first := createRoadmap(t, m, 1, fourPhaseBody())
	second := createRoadmap(t, m, 1, fourPhaseBody())

	// first at 50%, second at 25% -> mean 37.5 rounds to 38.
	for _, idx := range []int{0, 1} {
		if _, err := m.CompletePhase(ctx, 1, first.ID, idx); err != nil {
			t.Fatalf("complete phase: %v", err)
		}
	}
	if _, err := m.CompletePhase(ctx, 1, second.ID, 0); err != nil {
		t.Fatalf("complete phase: %v", err)
	}

	overall, err = m.OverallProgress(ctx, 1)
	if err != nil {
		t.Fatalf("overall: %v", err)
	}
	if overall != 38 {
		t.Fatalf("overall = %d, want 38", overall)
	}
}

func TestList_MostRecentFirstAndScoped(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	createRoadmap(t, m, 1, fourPhaseBody())
	createRoadmap(t, m, 2, fourPhaseBody())

	rows, err := m.List(ctx, 1)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("got %d roadmaps, want 1", len(rows))
	}
	if rows[0].UserID != 1 {
		t.Fatalf("listed foreign roadmap: %+v", rows[0])
	}
	if rows[0].Progress == nil {
		t.Fatal("list did not preload progress")
	}
}
