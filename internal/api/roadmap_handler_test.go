package api

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"arahkarir/internal/database"
	"arahkarir/internal/oracle"
	"arahkarir/internal/roadmap"
)

const validRoadmapReply = `{
	"title": "Jalur Data Analyst",
	"overview": "Dari dasar sampai siap kerja.",
	"estimated_duration": "6 bulan",
	"phases": [
		{"name": "Dasar", "duration": "2 bulan", "skills": ["sql"]},
		{"name": "Analisis", "duration": "2 bulan", "skills": ["python"]},
		{"name": "Portofolio", "duration": "2 bulan", "skills": []}
	],
	"career_tips": ["ikut komunitas data"]
}`

func newRoadmapTestRouter(t *testing.T, db *gorm.DB, userID uint, oracleClient oracle.Client) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	h := NewRoadmapHandler(roadmap.NewManager(db), oracleClient, time.Second)

	router := gin.New()
	group := router.Group("/v1/roadmaps", asUser(userID))
	group.POST("", h.CreateRoadmap)
	group.GET("", h.ListRoadmaps)
	group.GET("/progress", h.OverallProgress)
	group.GET("/:id", h.GetRoadmap)
	group.POST("/:id/phases/:index/complete", h.CompletePhase)
	group.POST("/:id/skills/complete", h.CompleteSkill)
	return router
}

func createRoadmapPayload() gin.H {
	return gin.H{
		"title":          "Jalur Data Analyst",
		"target_role":    "Data Analyst",
		"current_status": "pelajar",
	}
}

func TestCreateRoadmap_PersistsWithZeroProgress(t *testing.T) {
	db := newTestDB(t)
	user := seedUser(t, db, "budi", 17)
	router := newRoadmapTestRouter(t, db, user.ID, &fakeOracle{reply: validRoadmapReply})

	w := performJSON(t, router, http.MethodPost, "/v1/roadmaps", createRoadmapPayload())
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	var resp roadmapResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Progress == nil || resp.Progress.CompletionPercent != 0 {
		t.Fatalf("progress = %+v, want 0%%", resp.Progress)
	}
	if resp.EstimatedTime != "6 bulan" {
		t.Fatalf("estimated_time = %q, want value from generated body", resp.EstimatedTime)
	}

	var body roadmap.Body
	if err := json.Unmarshal(resp.Content, &body); err != nil {
		t.Fatalf("decode content: %v", err)
	}
	if len(body.Phases) != 3 {
		t.Fatalf("phases = %d, want 3", len(body.Phases))
	}
}

func TestCreateRoadmap_OracleDown(t *testing.T) {
	db := newTestDB(t)
	user := seedUser(t, db, "budi", 17)
	router := newRoadmapTestRouter(t, db, user.ID, &fakeOracle{err: oracle.ErrUnavailable})

	w := performJSON(t, router, http.MethodPost, "/v1/roadmaps", createRoadmapPayload())
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", w.Code)
	}

	var count int64
	if err := db.Model(&database.Roadmap{}).Count(&count).Error; err != nil {
		t.Fatalf("count roadmaps: %v", err)
	}
	if count != 0 {
		t.Fatalf("failed creation stored %d roadmaps", count)
	}
}

func TestCreateRoadmap_UnusableBody(t *testing.T) {
	db := newTestDB(t)
	user := seedUser(t, db, "budi", 17)
	router := newRoadmapTestRouter(t, db, user.ID, &fakeOracle{reply: `{"title": "T", "phases": []}`})

	w := performJSON(t, router, http.MethodPost, "/v1/roadmaps", createRoadmapPayload())
	if w.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", w.Code)
	}
}

func TestCompletePhaseEndpoint(t *testing.T) {
	db := newTestDB(t)
	user := seedUser(t, db, "budi", 17)
	router := newRoadmapTestRouter(t, db, user.ID, &fakeOracle{reply: validRoadmapReply})

	w := performJSON(t, router, http.MethodPost, "/v1/roadmaps", createRoadmapPayload())
	if w.Code != http.StatusCreated {
		t.Fatalf("create: status = %d", w.Code)
	}
	var created roadmapResponse
	if err := json.Unmarshal(w.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode: %v", err)
	}

	w = performJSON(t, router, http.MethodPost, "/v1/roadmaps/"+itoa(created.ID)+"/phases/0/complete", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("complete phase: status = %d, body = %s", w.Code, w.Body.String())
	}
	var progress progressResponse
	if err := json.Unmarshal(w.Body.Bytes(), &progress); err != nil {
		t.Fatalf("decode progress: %v", err)
	}
	if progress.CompletionPercent != 33 {
		t.Fatalf("completion = %d%%, want 33%%", progress.CompletionPercent)
	}

	w = performJSON(t, router, http.MethodPost, "/v1/roadmaps/"+itoa(created.ID)+"/phases/9/complete", nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("out-of-range phase: status = %d, want 400", w.Code)
	}

	w = performJSON(t, router, http.MethodGet, "/v1/roadmaps/progress", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("overall progress: status = %d", w.Code)
	}
	var overall struct {
		OverallProgress int `json:"overall_progress"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &overall); err != nil {
		t.Fatalf("decode overall: %v", err)
	}
	if overall.OverallProgress != 33 {
		t.Fatalf("overall = %d, want 33", overall.OverallProgress)
	}
}

func TestGetRoadmap_NotFound(t *testing.T) {
	db := newTestDB(t)
	user := seedUser(t, db, "budi", 17)
	router := newRoadmapTestRouter(t, db, user.ID, &fakeOracle{reply: validRoadmapReply})

	w := performJSON(t, router, http.MethodGet, "/v1/roadmaps/999", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
}
