package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"arahkarir/internal/api/middleware"
	"arahkarir/internal/database"
	"arahkarir/internal/oracle"
	"arahkarir/internal/profile"
)

// ProfileHandler serves the merged profile and its narrative summaries.
type ProfileHandler struct {
	db            *gorm.DB
	profiles      *profile.Store
	oracle        oracle.Client
	oracleTimeout time.Duration
}

// NewProfileHandler builds the profile handler.
func NewProfileHandler(db *gorm.DB, profiles *profile.Store, oracleClient oracle.Client, oracleTimeout time.Duration) *ProfileHandler {
	return &ProfileHandler{
		db:            db,
		profiles:      profiles,
		oracle:        oracleClient,
		oracleTimeout: oracleTimeout,
	}
}

type profileResponse struct {
	Interests         []string              `json:"interests"`
	Skills            []string              `json:"skills"`
	WorkPreferences   map[string]any        `json:"work_preferences"`
	PersonalityTraits map[string]any        `json:"personality_traits"`
	CareerMatches     []profile.CareerMatch `json:"career_matches"`
	ConfidenceScore   int                   `json:"ai_confidence_score"`
	LastAnalyzedAt    *time.Time            `json:"last_analyzed_at"`
}

type summaryResponse struct {
	ID        uint      `json:"id"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// GetProfile returns the user's merged profile, or 404 when no analysis has
// produced one yet.
func (h *ProfileHandler) GetProfile(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	ctx := c.Request.Context()

	var row database.UserProfile
	err := h.db.WithContext(ctx).Where("user_id = ?", userID).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			NotFound(c, "profile not built yet")
			return
		}
		Internal(c, "failed to load profile")
		return
	}

	snap, err := h.profiles.Load(ctx, userID)
	if err != nil || snap == nil {
		Internal(c, "failed to decode profile")
		return
	}

	c.JSON(http.StatusOK, profileResponse{
		Interests:         emptyIfNil(snap.Interests),
		Skills:            emptyIfNil(snap.Skills),
		WorkPreferences:   snap.WorkPreferences,
		PersonalityTraits: snap.PersonalityTraits,
		CareerMatches:     snap.CareerMatches,
		ConfidenceScore:   snap.ConfidenceScore,
		LastAnalyzedAt:    row.LastAnalyzedAt,
	})
}

// GenerateSummary asks the oracle for a narrative summary of the profile and
// persists it so it can be rated later.
func (h *ProfileHandler) GenerateSummary(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	ctx := c.Request.Context()
	logger := middleware.LoggerFromContext(c).With(slog.Uint64("user_id", uint64(userID)))

	snap, err := h.profiles.Load(ctx, userID)
	if err != nil {
		Internal(c, "failed to load profile")
		return
	}
	if snap == nil {
		NotFound(c, "profile not built yet")
		return
	}

	system, prompt := oracle.BuildSummaryPrompt(snap.Interests, snap.Skills, personalityType(snap))
	oracleCtx, cancel := context.WithTimeout(ctx, h.oracleTimeout)
	defer cancel()

	content, err := h.oracle.Complete(oracleCtx, system, prompt)
	if err != nil {
		logger.Warn("oracle summary generation failed", slog.Any("error", err))
		ServiceUnavailable(c, "summary generation unavailable")
		return
	}
	content = strings.TrimSpace(content)
	if content == "" {
		Error(c, http.StatusBadGateway, "could not obtain a summary")
		return
	}

	summary := database.ProfileSummary{
		UserID:  userID,
		Content: content,
	}
	if err := h.db.WithContext(ctx).Create(&summary).Error; err != nil {
		logger.Error("store profile summary failed", slog.Any("error", err))
		Internal(c, "failed to store summary")
		return
	}

	c.JSON(http.StatusCreated, summaryResponse{
		ID:        summary.ID,
		Content:   summary.Content,
		CreatedAt: summary.CreatedAt,
	})
}

// ListSummaries lists the user's summaries, most recent first.
func (h *ProfileHandler) ListSummaries(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	var summaries []database.ProfileSummary
	err := h.db.WithContext(c.Request.Context()).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&summaries).Error
	if err != nil {
		Internal(c, "failed to list summaries")
		return
	}

	items := make([]summaryResponse, 0, len(summaries))
	for _, s := range summaries {
		items = append(items, summaryResponse{
			ID:        s.ID,
			Content:   s.Content,
			CreatedAt: s.CreatedAt,
		})
	}
	c.JSON(http.StatusOK, items)
}

func personalityType(snap *profile.Snapshot) string {
	if t, ok := snap.PersonalityTraits["type"].(string); ok {
		return t
	}
	return ""
}

func emptyIfNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
