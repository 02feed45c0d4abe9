package worker

// WebSocket message protocol, forwarded to the frontend via Redis Pub/Sub.
// Field names must stay in sync with the frontend parser.
type ProfileAnalysisNotifyMessage struct {
	Status        string `json:"status"`
	Updated       bool   `json:"updated"`
	Reason        string `json:"reason,omitempty"`
	CorrelationID string `json:"correlation_id"`
	ErrorCode     int    `json:"error_code"`
	ErrorMessage  string `json:"error_message"`
}
