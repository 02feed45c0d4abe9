package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/minio/minio-go/v7"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"arahkarir/internal/database"
	"arahkarir/internal/errcode"
	"arahkarir/internal/insight"
	"arahkarir/internal/oracle"
	"arahkarir/internal/profile"
	"arahkarir/internal/tasks"
)

// analysisWindow bounds how many recent turns are fed to the oracle.
const analysisWindow = 20

type transcriptArchiver interface {
	UploadFile(ctx context.Context, objectName string, reader io.Reader, size int64, contentType string) (*minio.UploadInfo, error)
}

// AnalyzeTaskHandler consumes conversation-analysis tasks.
type AnalyzeTaskHandler struct {
	db            *gorm.DB
	oracle        oracle.Client
	profiles      *profile.Store
	redisClient   *redis.Client
	archive       transcriptArchiver
	logger        *slog.Logger
	oracleTimeout time.Duration
}

// NewAnalyzeTaskHandler builds the task handler. archive may be nil to
// disable transcript archiving.
func NewAnalyzeTaskHandler(
	db *gorm.DB,
	oracleClient oracle.Client,
	profiles *profile.Store,
	redisClient *redis.Client,
	archive transcriptArchiver,
	logger *slog.Logger,
	oracleTimeout time.Duration,
) *AnalyzeTaskHandler {
	return &AnalyzeTaskHandler{
		db:            db,
		oracle:        oracleClient,
		profiles:      profiles,
		redisClient:   redisClient,
		archive:       archive,
		logger:        logger,
		oracleTimeout: oracleTimeout,
	}
}

// ProcessTask implements asynq.Handler.
//
// Oracle failures and unusable responses are soft: the task completes with a
// "skipped" notification and no retry. Only database errors are returned so
// asynq retries them.
func (h *AnalyzeTaskHandler) ProcessTask(ctx context.Context, t *asynq.Task) (retErr error) {
	log := h.logger

	var payload tasks.ProfileAnalyzePayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		log.Error("unmarshal task payload failed", slog.Any("error", err))
		return err
	}

	log = log.With(
		slog.String("correlation_id", payload.CorrelationID),
		slog.Uint64("user_id", uint64(payload.UserID)),
	)
	log.Info("starting conversation analysis task")

	var user database.User
	if err := h.db.WithContext(ctx).First(&user, payload.UserID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			log.Warn("user not found, skipping task")
			return nil
		}
		log.Error("query user failed", slog.Any("error", err))
		return err
	}

	defer func() {
		if retErr == nil {
			return
		}
		if !isFinalAsynqAttempt(ctx) {
			return
		}

		notify := ProfileAnalysisNotifyMessage{
			Status:        "error",
			CorrelationID: payload.CorrelationID,
			ErrorCode:     errcode.SystemError,
			ErrorMessage:  strings.TrimSpace(retErr.Error()),
		}
		if err := h.publishNotify(ctx, payload.UserID, notify); err != nil {
			log.Error("publish analysis error notification failed", slog.Any("error", err))
		}
	}()

	history, err := h.recentHistory(ctx, payload.UserID)
	if err != nil {
		log.Error("load conversation failed", slog.Any("error", err))
		return err
	}
	if len(history) == 0 {
		log.Info("no conversation to analyze, skipping task")
		return nil
	}

	system, prompt := oracle.BuildExtractionPrompt(history, user.Age)
	oracleCtx, cancel := context.WithTimeout(ctx, h.oracleTimeout)
	defer cancel()

	raw, err := h.oracle.Complete(oracleCtx, system, prompt)
	if err != nil {
		log.Warn("oracle extraction failed", slog.Any("error", err))
		return h.publishSkipped(ctx, log, payload, insight.ReasonOracleError)
	}

	h.archiveTranscript(ctx, log, payload.UserID, raw)

	ext, reason := insight.ParseExtraction(raw)
	if reason != "" {
		log.Warn("extraction rejected", slog.String("reason", reason))
		return h.publishSkipped(ctx, log, payload, reason)
	}

	outcome, err := h.profiles.ApplyConversationMerge(ctx, payload.UserID, ext)
	if err != nil {
		log.Error("apply conversation merge failed", slog.Any("error", err))
		return err
	}

	notify := ProfileAnalysisNotifyMessage{
		Status:        "completed",
		Updated:       outcome.Updated,
		Reason:        outcome.Reason,
		CorrelationID: payload.CorrelationID,
		ErrorCode:     errcode.OK,
	}
	if err := h.publishNotify(ctx, payload.UserID, notify); err != nil {
		log.Error("publish analysis notification failed", slog.Any("error", err))
		return err
	}

	log.Info("conversation analysis task completed",
		slog.Bool("updated", outcome.Updated),
		slog.String("reason", outcome.Reason),
	)
	return nil
}

// publishSkipped reports a soft failure and completes the task without retry.
func (h *AnalyzeTaskHandler) publishSkipped(ctx context.Context, log *slog.Logger, payload tasks.ProfileAnalyzePayload, reason string) error {
	notify := ProfileAnalysisNotifyMessage{
		Status:        "skipped",
		Updated:       false,
		Reason:        reason,
		CorrelationID: payload.CorrelationID,
		ErrorCode:     errcode.AnalysisSkipped,
	}
	if err := h.publishNotify(ctx, payload.UserID, notify); err != nil {
		log.Error("publish skipped notification failed", slog.Any("error", err))
	}
	return nil
}

func (h *AnalyzeTaskHandler) publishNotify(ctx context.Context, userID uint, notify ProfileAnalysisNotifyMessage) error {
	data, err := json.Marshal(notify)
	if err != nil {
		return fmt.Errorf("marshal notification payload: %w", err)
	}
	channel := fmt.Sprintf("user_notify:%d", userID)
	if err := h.redisClient.Publish(ctx, channel, data).Err(); err != nil {
		return fmt.Errorf("publish redis notification to %q: %w", channel, err)
	}
	return nil
}

func (h *AnalyzeTaskHandler) recentHistory(ctx context.Context, userID uint) ([]oracle.Turn, error) {
	var messages []database.ConversationMessage
	err := h.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(analysisWindow).
		Find(&messages).Error
	if err != nil {
		return nil, err
	}

	turns := make([]oracle.Turn, 0, len(messages))
	for i := len(messages) - 1; i >= 0; i-- {
		turns = append(turns, oracle.Turn{
			Role:    messages[i].Role,
			Content: messages[i].Content,
		})
	}
	return turns, nil
}

func (h *AnalyzeTaskHandler) archiveTranscript(ctx context.Context, log *slog.Logger, userID uint, raw string) {
	if h.archive == nil {
		return
	}
	objectName := fmt.Sprintf("oracle-transcripts/%d/extraction/%s.txt", userID, uuid.NewString())
	reader := bytes.NewReader([]byte(raw))
	if _, err := h.archive.UploadFile(ctx, objectName, reader, int64(len(raw)), "text/plain"); err != nil {
		log.Warn("archive oracle transcript failed", slog.Any("error", err))
	}
}

func isFinalAsynqAttempt(ctx context.Context) bool {
	retryCount, ok1 := asynq.GetRetryCount(ctx)
	maxRetry, ok2 := asynq.GetMaxRetry(ctx)
	if !ok1 || !ok2 {
		return false
	}
	return retryCount >= maxRetry
}
