package api

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"gorm.io/gorm"

	"arahkarir/internal/database"
	"arahkarir/internal/oracle"
	"arahkarir/internal/tasks"
)

type fakeEnqueuer struct {
	enqueued []*asynq.Task
	err      error
}

func (f *fakeEnqueuer) Enqueue(task *asynq.Task, _ ...asynq.Option) (*asynq.TaskInfo, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.enqueued = append(f.enqueued, task)
	return &asynq.TaskInfo{}, nil
}

func newChatTestRouter(t *testing.T, db *gorm.DB, userID uint, oracleClient oracle.Client, enqueuer taskEnqueuer) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	h := NewChatHandler(db, oracleClient, enqueuer, time.Second)

	router := gin.New()
	group := router.Group("/v1/chat", asUser(userID))
	group.POST("/messages", h.SendMessage)
	group.GET("/messages", h.GetHistory)
	return router
}

func TestSendMessage_StoresBothTurnsAndQueuesAnalysis(t *testing.T) {
	db := newTestDB(t)
	user := seedUser(t, db, "budi", 17)
	enqueuer := &fakeEnqueuer{}
	router := newChatTestRouter(t, db, user.ID, &fakeOracle{reply: "Coba ceritakan hobimu."}, enqueuer)

	w := performJSON(t, router, http.MethodPost, "/v1/chat/messages", gin.H{"message": "Halo, aku bingung pilih jurusan."})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	var resp sendMessageResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Reply != "Coba ceritakan hobimu." {
		t.Fatalf("reply = %q", resp.Reply)
	}
	if !resp.AnalysisQueued {
		t.Fatal("analysis not queued")
	}

	var messages []database.ConversationMessage
	if err := db.Where("user_id = ?", user.ID).Order("created_at ASC").Find(&messages).Error; err != nil {
		t.Fatalf("load messages: %v", err)
	}
	if len(messages) != 2 {
		t.Fatalf("stored %d messages, want 2", len(messages))
	}
	if messages[0].Role != database.RoleUser || messages[1].Role != database.RoleAssistant {
		t.Fatalf("roles = %q, %q", messages[0].Role, messages[1].Role)
	}

	if len(enqueuer.enqueued) != 1 {
		t.Fatalf("enqueued %d tasks, want 1", len(enqueuer.enqueued))
	}
	if enqueuer.enqueued[0].Type() != tasks.TypeProfileAnalyze {
		t.Fatalf("task type = %q", enqueuer.enqueued[0].Type())
	}
}

func TestSendMessage_OracleDownKeepsUserTurn(t *testing.T) {
	db := newTestDB(t)
	user := seedUser(t, db, "budi", 17)
	router := newChatTestRouter(t, db, user.ID, &fakeOracle{err: oracle.ErrUnavailable}, &fakeEnqueuer{})

	w := performJSON(t, router, http.MethodPost, "/v1/chat/messages", gin.H{"message": "halo"})
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", w.Code)
	}

	var count int64
	if err := db.Model(&database.ConversationMessage{}).Where("role = ?", database.RoleAssistant).Count(&count).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 0 {
		t.Fatalf("assistant turns = %d, want 0", count)
	}
}

func TestSendMessage_EnqueueFailureIsNotFatal(t *testing.T) {
	db := newTestDB(t)
	user := seedUser(t, db, "budi", 17)
	router := newChatTestRouter(t, db, user.ID, &fakeOracle{reply: "ok"}, &fakeEnqueuer{err: asynq.ErrDuplicateTask})

	w := performJSON(t, router, http.MethodPost, "/v1/chat/messages", gin.H{"message": "halo"})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var resp sendMessageResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.AnalysisQueued {
		t.Fatal("analysis_queued should be false when enqueue fails")
	}
}

func TestGetHistory_OldestFirst(t *testing.T) {
	db := newTestDB(t)
	user := seedUser(t, db, "budi", 17)
	for i, content := range []string{"pertama", "kedua"} {
		role := database.RoleUser
		if i%2 == 1 {
			role = database.RoleAssistant
		}
		msg := database.ConversationMessage{UserID: user.ID, Role: role, Content: content}
		if err := db.Create(&msg).Error; err != nil {
			t.Fatalf("seed message: %v", err)
		}
	}

	router := newChatTestRouter(t, db, user.ID, &fakeOracle{}, &fakeEnqueuer{})
	w := performJSON(t, router, http.MethodGet, "/v1/chat/messages", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}

	var items []chatMessageItem
	if err := json.Unmarshal(w.Body.Bytes(), &items); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(items) != 2 || items[0].Content != "pertama" {
		t.Fatalf("history = %+v", items)
	}
}
