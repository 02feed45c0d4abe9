package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"arahkarir/internal/api/middleware"
	"arahkarir/internal/database"
	"arahkarir/internal/insight"
	"arahkarir/internal/oracle"
	"arahkarir/internal/roadmap"
)

// RoadmapHandler serves roadmap generation, retrieval and progress updates.
type RoadmapHandler struct {
	manager       *roadmap.Manager
	oracle        oracle.Client
	oracleTimeout time.Duration
}

// NewRoadmapHandler builds the roadmap handler.
func NewRoadmapHandler(manager *roadmap.Manager, oracleClient oracle.Client, oracleTimeout time.Duration) *RoadmapHandler {
	return &RoadmapHandler{
		manager:       manager,
		oracle:        oracleClient,
		oracleTimeout: oracleTimeout,
	}
}

type createRoadmapRequest struct {
	Title          string   `json:"title" binding:"required,max=255"`
	TargetRole     string   `json:"target_role" binding:"required,max=255"`
	CurrentStatus  string   `json:"current_status" binding:"required,oneof=pelajar profesional"`
	ExistingSkills []string `json:"existing_skills"`
	EstimatedTime  string   `json:"estimated_time"`
}

type progressResponse struct {
	CompletedPhases   datatypes.JSON `json:"completed_phases"`
	CompletedSkills   datatypes.JSON `json:"completed_skills"`
	CompletionPercent int            `json:"completion_percent"`
}

type roadmapResponse struct {
	ID            uint              `json:"id"`
	Title         string            `json:"title"`
	TargetRole    string            `json:"target_role"`
	CurrentStatus string            `json:"current_status"`
	Content       datatypes.JSON    `json:"content"`
	EstimatedTime string            `json:"estimated_time,omitempty"`
	CreatedAt     time.Time         `json:"created_at"`
	Progress      *progressResponse `json:"progress,omitempty"`
}

// CreateRoadmap asks the oracle for a roadmap body and persists it together
// with a zero-percent progress tracker.
func (h *RoadmapHandler) CreateRoadmap(c *gin.Context) {
	var req createRoadmapRequest
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

	system, prompt := oracle.BuildRoadmapPrompt(req.TargetRole, req.CurrentStatus, req.ExistingSkills)
	oracleCtx, cancel := context.WithTimeout(ctx, h.oracleTimeout)
	defer cancel()

	raw, err := h.oracle.Complete(oracleCtx, system, prompt)
	if err != nil {
		logger.Warn("oracle roadmap generation failed", slog.Any("error", err))
		ServiceUnavailable(c, "roadmap generation unavailable")
		return
	}

	body, reason := insight.ParseRoadmapBody(raw)
	if reason != "" {
		logger.Warn("roadmap body rejected", slog.String("reason", reason))
		Error(c, http.StatusBadGateway, "could not obtain a valid roadmap: "+reason)
		return
	}

	estimatedTime := req.EstimatedTime
	if estimatedTime == "" {
		estimatedTime = body.EstimatedDuration
	}

	row, err := h.manager.Create(ctx, userID, roadmap.CreateInput{
		Title:         req.Title,
		TargetRole:    req.TargetRole,
		CurrentStatus: req.CurrentStatus,
		Body:          body,
		EstimatedTime: estimatedTime,
	})
	if err != nil {
		if errors.Is(err, roadmap.ErrValidation) {
			BadRequest(c, err.Error())
			return
		}
		logger.Error("create roadmap failed", slog.Any("error", err))
		Internal(c, "failed to create roadmap")
		return
	}

	c.JSON(http.StatusCreated, newRoadmapResponse(*row))
}

// ListRoadmaps lists the user's roadmaps with progress, most recent first.
func (h *RoadmapHandler) ListRoadmaps(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	rows, err := h.manager.List(c.Request.Context(), userID)
	if err != nil {
		Internal(c, "failed to list roadmaps")
		return
	}

	items := make([]roadmapResponse, 0, len(rows))
	for _, row := range rows {
		items = append(items, newRoadmapResponse(row))
	}
	c.JSON(http.StatusOK, items)
}

// GetRoadmap returns one roadmap joined with its progress.
func (h *RoadmapHandler) GetRoadmap(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	roadmapID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		BadRequest(c, "invalid roadmap id")
		return
	}

	row, err := h.manager.Get(c.Request.Context(), userID, uint(roadmapID))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			NotFound(c, "roadmap not found")
			return
		}
		Internal(c, "failed to load roadmap")
		return
	}

	c.JSON(http.StatusOK, newRoadmapResponse(*row))
}

// CompletePhase marks one phase as done and returns the updated progress.
func (h *RoadmapHandler) CompletePhase(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	roadmapID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		BadRequest(c, "invalid roadmap id")
		return
	}
	phaseIndex, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		BadRequest(c, "invalid phase index")
		return
	}

	progress, err := h.manager.CompletePhase(c.Request.Context(), userID, uint(roadmapID), phaseIndex)
	if err != nil {
		h.writeProgressError(c, err)
		return
	}

	c.JSON(http.StatusOK, newProgressResponse(progress))
}

type completeSkillRequest struct {
	Skill string `json:"skill" binding:"required,max=255"`
}

// CompleteSkill records a skill as acquired and returns the updated progress.
func (h *RoadmapHandler) CompleteSkill(c *gin.Context) {
	var req completeSkillRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	roadmapID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		BadRequest(c, "invalid roadmap id")
		return
	}

	progress, err := h.manager.CompleteSkill(c.Request.Context(), userID, uint(roadmapID), req.Skill)
	if err != nil {
		h.writeProgressError(c, err)
		return
	}

	c.JSON(http.StatusOK, newProgressResponse(progress))
}

// OverallProgress returns the rounded average completion across roadmaps.
func (h *RoadmapHandler) OverallProgress(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	overall, err := h.manager.OverallProgress(c.Request.Context(), userID)
	if err != nil {
		Internal(c, "failed to compute overall progress")
		return
	}

	c.JSON(http.StatusOK, gin.H{"overall_progress": overall})
}

func (h *RoadmapHandler) writeProgressError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, roadmap.ErrValidation):
		BadRequest(c, err.Error())
	case errors.Is(err, gorm.ErrRecordNotFound):
		NotFound(c, "roadmap not found")
	default:
		Internal(c, "failed to update progress")
	}
}

func newRoadmapResponse(row database.Roadmap) roadmapResponse {
	resp := roadmapResponse{
		ID:            row.ID,
		Title:         row.Title,
		TargetRole:    row.TargetRole,
		CurrentStatus: row.CurrentStatus,
		Content:       row.Content,
		EstimatedTime: row.EstimatedTime,
		CreatedAt:     row.CreatedAt,
	}
	if row.Progress != nil {
		resp.Progress = newProgressResponse(row.Progress)
	}
	return resp
}

func newProgressResponse(progress *database.RoadmapProgress) *progressResponse {
	return &progressResponse{
		CompletedPhases:   progress.CompletedPhases,
		CompletedSkills:   progress.CompletedSkills,
		CompletionPercent: progress.CompletionPercent,
	}
}
