package tasks

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

// Task type constants keep queue producers and consumers in sync.
const (
	TypeProfileAnalyze = "profile:analyze"
)

// ProfileAnalyzePayload identifies whose conversation to analyze.
type ProfileAnalyzePayload struct {
	UserID        uint   `json:"user_id"`
	CorrelationID string `json:"correlation_id"`
}

// NewProfileAnalyzeTask builds a conversation-analysis task for a user.
func NewProfileAnalyzeTask(userID uint, correlationID string) (*asynq.Task, error) {
	payload, err := json.Marshal(ProfileAnalyzePayload{
		UserID:        userID,
		CorrelationID: correlationID,
	})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeProfileAnalyze, payload), nil
}
