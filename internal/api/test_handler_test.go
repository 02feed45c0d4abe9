package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"arahkarir/internal/database"
	"arahkarir/internal/oracle"
	"arahkarir/internal/profile"
)

type fakeOracle struct {
	reply string
	err   error

	systemPrompts []string
}

func (f *fakeOracle) Complete(_ context.Context, systemPrompt, _ string) (string, error) {
	f.systemPrompts = append(f.systemPrompts, systemPrompt)
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

func seedUser(t *testing.T, db *gorm.DB, username string, age int) database.User {
	t.Helper()
	user := database.User{Username: username, PasswordHash: "hash", Age: age}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return user
}

func newTestRouter(t *testing.T, db *gorm.DB, userID uint, oracleClient oracle.Client) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	profiles := profile.NewStore(db)
	h := NewTestHandler(db, oracleClient, profiles, nil, time.Second)

	router := gin.New()
	group := router.Group("/v1/tests", asUser(userID))
	group.POST("", h.SubmitTest)
	group.GET("", h.ListTests)
	group.GET("/:id", h.GetTest)
	return router
}

const validAnalysisReply = `{
	"personality_type": "INTJ",
	"recommended_careers": [{"title": "Software Engineer", "match_percentage": 90, "reason": "analytical"}],
	"strengths": ["problem solving"],
	"development_areas": ["public speaking"],
	"next_steps": ["build a portfolio"]
}`

func submitPayload() gin.H {
	return gin.H{
		"test_type": "minat_bakat",
		"answers": []gin.H{
			{"question": "Apa yang kamu sukai?", "answer": "memecahkan masalah"},
		},
	}
}

func TestSubmitTest_SavesResultAndUpdatesProfile(t *testing.T) {
	db := newTestDB(t)
	user := seedUser(t, db, "budi", 17)
	router := newTestRouter(t, db, user.ID, &fakeOracle{reply: validAnalysisReply})

	w := performJSON(t, router, http.MethodPost, "/v1/tests", submitPayload())
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	var resp struct {
		ID             uint                 `json:"id"`
		TestType       string               `json:"test_type"`
		Analysis       profile.TestAnalysis `json:"analysis"`
		ProfileUpdated bool                 `json:"profile_updated"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !resp.ProfileUpdated {
		t.Fatal("profile not updated")
	}
	if resp.Analysis.PersonalityType != "INTJ" {
		t.Fatalf("analysis = %+v", resp.Analysis)
	}

	var result database.TestResult
	if err := db.First(&result, resp.ID).Error; err != nil {
		t.Fatalf("load test result: %v", err)
	}
	if result.UserID != user.ID || result.TestType != "minat_bakat" {
		t.Fatalf("unexpected result row: %+v", result)
	}

	var profileRow database.UserProfile
	if err := db.Where("user_id = ?", user.ID).First(&profileRow).Error; err != nil {
		t.Fatalf("load profile: %v", err)
	}
	if profileRow.AIConfidenceScore != profile.TestConfidenceScore {
		t.Fatalf("ai_confidence_score = %d, want %d", profileRow.AIConfidenceScore, profile.TestConfidenceScore)
	}

	var traits map[string]any
	if err := json.Unmarshal(profileRow.PersonalityTraits, &traits); err != nil {
		t.Fatalf("decode traits: %v", err)
	}
	if traits["type"] != "INTJ" {
		t.Fatalf("traits = %v", traits)
	}
}

func TestSubmitTest_OverwritesProfileSkills(t *testing.T) {
	db := newTestDB(t)
	user := seedUser(t, db, "budi", 17)
	profiles := profile.NewStore(db)

	seed := profile.Extraction{HasInsights: true, Skills: []string{"menggambar"}, Confidence: 90}
	if _, err := profiles.ApplyConversationMerge(context.Background(), user.ID, seed); err != nil {
		t.Fatalf("seed profile: %v", err)
	}

	router := newTestRouter(t, db, user.ID, &fakeOracle{reply: validAnalysisReply})
	if w := performJSON(t, router, http.MethodPost, "/v1/tests", submitPayload()); w.Code != http.StatusCreated {
		t.Fatalf("status = %d", w.Code)
	}

	var profileRow database.UserProfile
	if err := db.Where("user_id = ?", user.ID).First(&profileRow).Error; err != nil {
		t.Fatalf("load profile: %v", err)
	}
	var skills []string
	if err := json.Unmarshal(profileRow.Skills, &skills); err != nil {
		t.Fatalf("decode skills: %v", err)
	}
	if len(skills) != 1 || skills[0] != "problem solving" {
		t.Fatalf("skills = %v, want test result to replace them", skills)
	}
}

func TestSubmitTest_OracleDown(t *testing.T) {
	db := newTestDB(t)
	user := seedUser(t, db, "budi", 17)
	router := newTestRouter(t, db, user.ID, &fakeOracle{err: errors.New("connection refused")})

	w := performJSON(t, router, http.MethodPost, "/v1/tests", submitPayload())
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", w.Code)
	}

	var count int64
	if err := db.Model(&database.TestResult{}).Count(&count).Error; err != nil {
		t.Fatalf("count results: %v", err)
	}
	if count != 0 {
		t.Fatalf("failed submission stored %d results", count)
	}
}

func TestSubmitTest_UnusableAnalysis(t *testing.T) {
	db := newTestDB(t)
	user := seedUser(t, db, "budi", 17)
	router := newTestRouter(t, db, user.ID, &fakeOracle{reply: "I cannot analyze this."})

	w := performJSON(t, router, http.MethodPost, "/v1/tests", submitPayload())
	if w.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", w.Code)
	}
}

func TestSubmitTest_RejectsUnknownType(t *testing.T) {
	db := newTestDB(t)
	user := seedUser(t, db, "budi", 17)
	router := newTestRouter(t, db, user.ID, &fakeOracle{reply: validAnalysisReply})

	w := performJSON(t, router, http.MethodPost, "/v1/tests", gin.H{
		"test_type": "horoscope",
		"answers":   []gin.H{{"question": "q", "answer": "a"}},
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestGetTest_ScopedToOwner(t *testing.T) {
	db := newTestDB(t)
	owner := seedUser(t, db, "budi", 17)
	other := seedUser(t, db, "siti", 19)

	ownerRouter := newTestRouter(t, db, owner.ID, &fakeOracle{reply: validAnalysisReply})
	w := performJSON(t, ownerRouter, http.MethodPost, "/v1/tests", submitPayload())
	if w.Code != http.StatusCreated {
		t.Fatalf("submit: status = %d", w.Code)
	}
	var resp struct {
		ID uint `json:"id"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}

	otherRouter := newTestRouter(t, db, other.ID, &fakeOracle{reply: validAnalysisReply})
	w = performJSON(t, otherRouter, http.MethodGet, "/v1/tests/"+itoa(resp.ID), nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("foreign access: status = %d, want 404", w.Code)
	}
}

func itoa(v uint) string {
	return strconv.FormatUint(uint64(v), 10)
}
