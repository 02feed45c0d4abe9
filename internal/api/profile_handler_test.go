package api

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"arahkarir/internal/database"
	"arahkarir/internal/oracle"
	"arahkarir/internal/profile"
)

func newProfileTestRouter(t *testing.T, db *gorm.DB, userID uint, oracleClient oracle.Client) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	h := NewProfileHandler(db, profile.NewStore(db), oracleClient, time.Second)

	router := gin.New()
	group := router.Group("/v1/profile", asUser(userID))
	group.GET("", h.GetProfile)
	group.POST("/summaries", h.GenerateSummary)
	group.GET("/summaries", h.ListSummaries)
	return router
}

func TestGetProfile_NotBuiltYet(t *testing.T) {
	db := newTestDB(t)
	user := seedUser(t, db, "budi", 17)
	router := newProfileTestRouter(t, db, user.ID, &fakeOracle{})

	w := performJSON(t, router, http.MethodGet, "/v1/profile", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
}

func TestGetProfile_ReturnsMergedSnapshot(t *testing.T) {
	db := newTestDB(t)
	user := seedUser(t, db, "budi", 17)
	profiles := profile.NewStore(db)

	ext := profile.Extraction{
		HasInsights: true,
		Interests:   []string{"data"},
		Skills:      []string{"sql"},
		Confidence:  81,
	}
	if _, err := profiles.ApplyConversationMerge(context.Background(), user.ID, ext); err != nil {
		t.Fatalf("seed profile: %v", err)
	}

	router := newProfileTestRouter(t, db, user.ID, &fakeOracle{})
	w := performJSON(t, router, http.MethodGet, "/v1/profile", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	var resp profileResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.ConfidenceScore != 81 {
		t.Fatalf("confidence = %d, want 81", resp.ConfidenceScore)
	}
	if len(resp.Interests) != 1 || resp.Interests[0] != "data" {
		t.Fatalf("interests = %v", resp.Interests)
	}
	if resp.LastAnalyzedAt == nil {
		t.Fatal("last_analyzed_at missing")
	}
}

func TestGenerateSummary_PersistsContent(t *testing.T) {
	db := newTestDB(t)
	user := seedUser(t, db, "budi", 17)
	profiles := profile.NewStore(db)

	ext := profile.Extraction{HasInsights: true, Interests: []string{"data"}, Confidence: 80}
	if _, err := profiles.ApplyConversationMerge(context.Background(), user.ID, ext); err != nil {
		t.Fatalf("seed profile: %v", err)
	}

	router := newProfileTestRouter(t, db, user.ID, &fakeOracle{reply: "Kamu punya minat kuat di bidang data."})
	w := performJSON(t, router, http.MethodPost, "/v1/profile/summaries", nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	var resp summaryResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Content == "" || resp.ID == 0 {
		t.Fatalf("summary = %+v", resp)
	}

	var row database.ProfileSummary
	if err := db.First(&row, resp.ID).Error; err != nil {
		t.Fatalf("load summary: %v", err)
	}
	if row.UserID != user.ID {
		t.Fatalf("summary owner = %d, want %d", row.UserID, user.ID)
	}
}

func TestGenerateSummary_RequiresProfile(t *testing.T) {
	db := newTestDB(t)
	user := seedUser(t, db, "budi", 17)
	router := newProfileTestRouter(t, db, user.ID, &fakeOracle{reply: "ringkasan"})

	w := performJSON(t, router, http.MethodPost, "/v1/profile/summaries", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
}
