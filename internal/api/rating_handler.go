package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"arahkarir/internal/database"
)

// RatingHandler serves feedback on profile summaries.
type RatingHandler struct {
	db *gorm.DB
}

// NewRatingHandler builds the rating handler.
func NewRatingHandler(db *gorm.DB) *RatingHandler {
	return &RatingHandler{db: db}
}

type rateSummaryRequest struct {
	IsAccurate     *bool  `json:"is_accurate" binding:"required"`
	FeedbackReason string `json:"feedback_reason" binding:"required,min=10,max=1024"`
	Rating         int    `json:"rating" binding:"required,min=1,max=5"`
}

type ratingResponse struct {
	ID             uint   `json:"id"`
	SummaryID      uint   `json:"summary_id"`
	IsAccurate     bool   `json:"is_accurate"`
	FeedbackReason string `json:"feedback_reason"`
	Rating         int    `json:"rating"`
}

// RateSummary records one rating per user per summary. A repeat submission is
// rejected and the first rating stands.
func (h *RatingHandler) RateSummary(c *gin.Context) {
	var req rateSummaryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	summaryID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		BadRequest(c, "invalid summary id")
		return
	}

	ctx := c.Request.Context()

	var summary database.ProfileSummary
	err = h.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", uint(summaryID), userID).
		First(&summary).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			NotFound(c, "summary not found")
			return
		}
		Internal(c, "failed to load summary")
		return
	}

	var existing database.SummaryRating
	err = h.db.WithContext(ctx).
		Where("summary_id = ? AND user_id = ?", summary.ID, userID).
		First(&existing).Error
	if err == nil {
		Conflict(c, "summary already rated")
		return
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		Internal(c, "failed to check rating")
		return
	}

	rating := database.SummaryRating{
		SummaryID:      summary.ID,
		UserID:         userID,
		IsAccurate:     *req.IsAccurate,
		FeedbackReason: req.FeedbackReason,
		Rating:         req.Rating,
	}
	if err := h.db.WithContext(ctx).Create(&rating).Error; err != nil {
		// The unique index backstops the racing double-submit.
		if isUniqueViolation(err) {
			Conflict(c, "summary already rated")
			return
		}
		Internal(c, "failed to store rating")
		return
	}

	c.JSON(http.StatusCreated, ratingResponse{
		ID:             rating.ID,
		SummaryID:      rating.SummaryID,
		IsAccurate:     rating.IsAccurate,
		FeedbackReason: rating.FeedbackReason,
		Rating:         rating.Rating,
	})
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "duplicate key") || strings.Contains(msg, "UNIQUE constraint")
}
