package model

// WebSocket message types
const (
	WSMessageTypeProgress = "progress"
	WSMessageTypeComplete = "complete"
	WSMessageTypeError    = "error"
	WSMessageTypePing     = "ping"
	WSMessageTypePong     = "pong"
)

// WSMessage represents a generic WebSocket message
type WSMessage struct {
	Type string `json:"type"`
}

// WSProgressMessage represents a generation progress update
type WSProgressMessage struct {
	Type     string    `json:"type"`
	JobID    string    `json:"jobId"`
	Progress int       `json:"progress"`
	Status   JobStatus `json:"status"`
	Phase    Phase     `json:"phase,omitempty"`
}

// WSCompleteMessage announces a completed generation
type WSCompleteMessage struct {
	Type            string         `json:"type"`
	JobID           string         `json:"jobId"`
	SessionID       string         `json:"sessionId"`
	CategorySummary map[string]int `json:"categorySummary,omitempty"`
}

// WSErrorMessage represents a job error
type WSErrorMessage struct {
	Type  string  `json:"type"`
	JobID string  `json:"jobId"`
	Error WSError `json:"error"`
}

// WSError represents error details
type WSError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
