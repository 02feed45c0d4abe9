package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"arahkarir/internal/api/middleware"
	"arahkarir/internal/database"
	"arahkarir/internal/insight"
	"arahkarir/internal/oracle"
	"arahkarir/internal/profile"
)

type transcriptArchiver interface {
	UploadFile(ctx context.Context, objectName string, reader io.Reader, size int64, contentType string) (*minio.UploadInfo, error)
}

// TestHandler serves test submission and retrieval.
type TestHandler struct {
	db            *gorm.DB
	oracle        oracle.Client
	profiles      *profile.Store
	archive       transcriptArchiver
	oracleTimeout time.Duration
}

// NewTestHandler builds the test handler. archive may be nil to disable
// transcript archiving.
func NewTestHandler(db *gorm.DB, oracleClient oracle.Client, profiles *profile.Store, archive transcriptArchiver, oracleTimeout time.Duration) *TestHandler {
	return &TestHandler{
		db:            db,
		oracle:        oracleClient,
		profiles:      profiles,
		archive:       archive,
		oracleTimeout: oracleTimeout,
	}
}

type submitTestRequest struct {
	TestType string                  `json:"test_type" binding:"required,oneof=minat_bakat mini_test"`
	Answers  []oracle.QuestionAnswer `json:"answers" binding:"required,min=1,dive"`
}

type submitTestResponse struct {
	ID             uint                 `json:"id"`
	TestType       string               `json:"test_type"`
	Analysis       profile.TestAnalysis `json:"analysis"`
	ProfileUpdated bool                 `json:"profile_updated"`
}

type testResultItem struct {
	ID        uint      `json:"id"`
	TestType  string    `json:"test_type"`
	CreatedAt time.Time `json:"created_at"`
}

type testResultResponse struct {
	ID        uint           `json:"id"`
	TestType  string         `json:"test_type"`
	Questions datatypes.JSON `json:"questions"`
	Analysis  datatypes.JSON `json:"analysis"`
	CreatedAt time.Time      `json:"created_at"`
}

// SubmitTest analyzes the answers via the oracle and persists the result.
// The test result row is the system of record: it is written before the
// profile merge, and a failed merge does not undo it.
func (h *TestHandler) SubmitTest(c *gin.Context) {
	var req submitTestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	ctx := c.Request.Context()
	logger := middleware.LoggerFromContext(c).With(slog.Uint64("user_id", uint64(userID)))

	var user database.User
	if err := h.db.WithContext(ctx).First(&user, userID).Error; err != nil {
		Unauthorized(c)
		return
	}

	system, prompt := oracle.BuildTestAnalysisPrompt(req.TestType, req.Answers, user.Age)
	oracleCtx, cancel := context.WithTimeout(ctx, h.oracleTimeout)
	defer cancel()

	raw, err := h.oracle.Complete(oracleCtx, system, prompt)
	if err != nil {
		logger.Warn("oracle test analysis failed", slog.Any("error", err))
		ServiceUnavailable(c, "analysis unavailable")
		return
	}

	analysis, reason := insight.ParseTestAnalysis(raw)
	if reason != "" {
		logger.Warn("test analysis rejected", slog.String("reason", reason))
		Error(c, http.StatusBadGateway, "could not obtain a valid analysis: "+reason)
		return
	}

	questionsJSON, err := json.Marshal(req.Answers)
	if err != nil {
		Internal(c, "failed to encode answers")
		return
	}
	analysisJSON, err := json.Marshal(analysis)
	if err != nil {
		Internal(c, "failed to encode analysis")
		return
	}

	result := database.TestResult{
		UserID:    userID,
		TestType:  req.TestType,
		Questions: datatypes.JSON(questionsJSON),
		Analysis:  datatypes.JSON(analysisJSON),
	}
	if err := h.db.WithContext(ctx).Create(&result).Error; err != nil {
		logger.Error("store test result failed", slog.Any("error", err))
		Internal(c, "failed to store test result")
		return
	}

	// Derived cache: a failed profile merge leaves the saved result intact.
	profileUpdated := true
	if err := h.profiles.ApplyTestAnalysis(ctx, userID, analysis); err != nil {
		logger.Error("apply test analysis to profile failed", slog.Any("error", err))
		profileUpdated = false
	}

	h.archiveTranscript(ctx, logger, userID, "test-analysis", raw)

	c.JSON(http.StatusCreated, submitTestResponse{
		ID:             result.ID,
		TestType:       result.TestType,
		Analysis:       analysis,
		ProfileUpdated: profileUpdated,
	})
}

// ListTests lists the user's test results, most recent first.
func (h *TestHandler) ListTests(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	var results []database.TestResult
	err := h.db.WithContext(c.Request.Context()).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&results).Error
	if err != nil {
		Internal(c, "failed to list test results")
		return
	}

	items := make([]testResultItem, 0, len(results))
	for _, r := range results {
		items = append(items, testResultItem{
			ID:        r.ID,
			TestType:  r.TestType,
			CreatedAt: r.CreatedAt,
		})
	}

	c.JSON(http.StatusOK, items)
}

// GetTest returns one full test result.
func (h *TestHandler) GetTest(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	resultID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		BadRequest(c, "invalid test result id")
		return
	}

	var result database.TestResult
	err = h.db.WithContext(c.Request.Context()).
		Where("id = ? AND user_id = ?", uint(resultID), userID).
		First(&result).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			NotFound(c, "test result not found")
			return
		}
		Internal(c, "failed to load test result")
		return
	}

	c.JSON(http.StatusOK, testResultResponse{
		ID:        result.ID,
		TestType:  result.TestType,
		Questions: result.Questions,
		Analysis:  result.Analysis,
		CreatedAt: result.CreatedAt,
	})
}

func (h *TestHandler) archiveTranscript(ctx context.Context, logger *slog.Logger, userID uint, kind, raw string) {
	if h.archive == nil {
		return
	}
	objectName := fmt.Sprintf("oracle-transcripts/%d/%s/%s.txt", userID, kind, uuid.NewString())
	reader := bytes.NewReader([]byte(raw))
	if _, err := h.archive.UploadFile(ctx, objectName, reader, int64(len(raw)), "text/plain"); err != nil {
		logger.Warn("archive oracle transcript failed", slog.Any("error", err))
	}
}
