package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"gorm.io/gorm"

	"arahkarir/internal/api/middleware"
	"arahkarir/internal/database"
	"arahkarir/internal/oracle"
	"arahkarir/internal/tasks"
)

// historyWindow bounds how many prior turns are replayed to the oracle.
const historyWindow = 20

type taskEnqueuer interface {
	Enqueue(task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// ChatHandler serves the conversation with the assistant.
type ChatHandler struct {
	db            *gorm.DB
	oracle        oracle.Client
	tasksClient   taskEnqueuer
	oracleTimeout time.Duration
}

// NewChatHandler builds the chat handler.
func NewChatHandler(db *gorm.DB, oracleClient oracle.Client, tasksClient taskEnqueuer, oracleTimeout time.Duration) *ChatHandler {
	return &ChatHandler{
		db:            db,
		oracle:        oracleClient,
		tasksClient:   tasksClient,
		oracleTimeout: oracleTimeout,
	}
}

type sendMessageRequest struct {
	Message string `json:"message" binding:"required,max=4096"`
}

type sendMessageResponse struct {
	Reply          string `json:"reply"`
	AnalysisQueued bool   `json:"analysis_queued"`
}

type chatMessageItem struct {
	ID        uint      `json:"id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// SendMessage stores the user turn, asks the oracle for a reply, stores the
// assistant turn and queues a background profile analysis. The oracle call
// happens outside any transaction and is bounded by the configured timeout.
func (h *ChatHandler) SendMessage(c *gin.Context) {
	var req sendMessageRequest
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

	history, err := h.recentHistory(ctx, userID)
	if err != nil {
		logger.Error("load chat history failed", slog.Any("error", err))
		Internal(c, "failed to load conversation")
		return
	}

	userMsg := database.ConversationMessage{
		UserID:  userID,
		Role:    database.RoleUser,
		Content: req.Message,
	}
	if err := h.db.WithContext(ctx).Create(&userMsg).Error; err != nil {
		logger.Error("store user message failed", slog.Any("error", err))
		Internal(c, "failed to store message")
		return
	}

	system, prompt := oracle.BuildChatPrompt(history, req.Message, user.Age)
	oracleCtx, cancel := context.WithTimeout(ctx, h.oracleTimeout)
	defer cancel()

	reply, err := h.oracle.Complete(oracleCtx, system, prompt)
	if err != nil {
		logger.Warn("oracle chat reply failed", slog.Any("error", err))
		ServiceUnavailable(c, "assistant unavailable")
		return
	}

	assistantMsg := database.ConversationMessage{
		UserID:  userID,
		Role:    database.RoleAssistant,
		Content: reply,
	}
	if err := h.db.WithContext(ctx).Create(&assistantMsg).Error; err != nil {
		logger.Error("store assistant message failed", slog.Any("error", err))
		Internal(c, "failed to store reply")
		return
	}

	queued := false
	correlationID := middleware.GetCorrelationID(c)
	if task, err := tasks.NewProfileAnalyzeTask(userID, correlationID); err == nil {
		if _, err := h.tasksClient.Enqueue(task, asynq.MaxRetry(3)); err != nil {
			logger.Warn("enqueue profile analysis failed", slog.Any("error", err))
		} else {
			queued = true
		}
	}

	c.JSON(http.StatusOK, sendMessageResponse{
		Reply:          reply,
		AnalysisQueued: queued,
	})
}

// GetHistory lists the user's conversation, oldest first.
func (h *ChatHandler) GetHistory(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	var messages []database.ConversationMessage
	err := h.db.WithContext(c.Request.Context()).
		Where("user_id = ?", userID).
		Order("created_at ASC").
		Find(&messages).Error
	if err != nil {
		Internal(c, "failed to load conversation")
		return
	}

	items := make([]chatMessageItem, 0, len(messages))
	for _, m := range messages {
		items = append(items, chatMessageItem{
			ID:        m.ID,
			Role:      m.Role,
			Content:   m.Content,
			CreatedAt: m.CreatedAt,
		})
	}

	c.JSON(http.StatusOK, items)
}

// recentHistory returns up to historyWindow latest turns, oldest first.
func (h *ChatHandler) recentHistory(ctx context.Context, userID uint) ([]oracle.Turn, error) {
	var messages []database.ConversationMessage
	err := h.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(historyWindow).
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
