package model

import "time"

// RequestLog is the persisted metadata for one completion request. Prompt
// and completion text are deliberately never stored; only shape and usage
// numbers are.
type RequestLog struct {
	ID               string    `db:"id" json:"id"`
	Model            string    `db:"model" json:"model"`
	Provider         string    `db:"provider" json:"provider"`
	IsStreamed       bool      `db:"is_streamed" json:"is_streamed"`
	Status           string    `db:"status" json:"status"` // 'ok', 'error', 'cancelled'
	ErrorCode        string    `db:"error_code" json:"error_code,omitempty"`
	PromptChars      int       `db:"prompt_chars" json:"prompt_chars"`
	PromptTokens     int       `db:"prompt_tokens" json:"prompt_tokens"`
	CompletionTokens int       `db:"completion_tokens" json:"completion_tokens"`
	TotalTokens      int       `db:"total_tokens" json:"total_tokens"`
	LatencyMS        int64     `db:"latency_ms" json:"latency_ms"`
	CreatedAt        time.Time `db:"created_at" json:"created_at"`
}

// DailyStats is aggregated usage for one calendar day.
type DailyStats struct {
	Date           string  `db:"date" json:"date"`
	TotalRequests  int     `db:"total_requests" json:"total_requests"`
	TotalErrors    int     `db:"total_errors" json:"total_errors"`
	TotalTokens    int     `db:"total_tokens" json:"total_tokens"`
	AverageLatency float64 `db:"avg_latency" json:"avg_latency"`
}
